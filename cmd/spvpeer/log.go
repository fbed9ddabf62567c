// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import "github.com/spvkit/spvpeer/internal/log"

var spvcLog = log.SpvcLog
