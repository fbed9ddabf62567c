// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines the bitcoin networks a wallet peer can connect to.
//
// Each Params value carries the frame magic, default port, DNS seeds, genesis
// hash and checkpoints of its network together with the matching btcd
// parameters, which are used for address encoding.
package chaincfg
