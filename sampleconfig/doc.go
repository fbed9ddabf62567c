// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package sampleconfig provides a single constant that contains the contents of
the sample configuration file for spvpeer.  The spvpeer binary writes it to the
default location on first start so users have every option at hand.
*/
package sampleconfig
