// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spvkit/spvpeer/internal/addrbook"
	"github.com/spvkit/spvpeer/internal/log"
	"github.com/spvkit/spvpeer/internal/version"
)

const addrBookDirname = "peers.ldb"

// spvpeerMain is the real main function for spvpeer.  It is necessary to work
// around the fact that deferred functions do not run when os.Exit() is called.
func spvpeerMain() error {
	// Load configuration and parse command line.  This function also
	// initializes logging and configures it accordingly.
	cfg, _, err := loadConfig(os.Args[1:])
	if err != nil {
		return err
	}
	defer func() {
		if log.LogRotator != nil {
			log.LogRotator.Close()
		}
	}()

	// Get a channel that will be closed when a shutdown signal has been
	// triggered from an OS signal such as SIGINT (Ctrl+C).
	interrupt := interruptListener()
	defer spvcLog.Info("Shutdown complete")

	// Show version at startup.
	spvcLog.Infof("Version %s (Go version %s %s/%s)", version.String(),
		runtime.Version(), runtime.GOOS, runtime.GOARCH)
	spvcLog.Infof("Watching %d %s on %s", len(cfg.watchAddrs),
		log.PickNoun(uint64(len(cfg.watchAddrs)), "address", "addresses"),
		cfg.params.Name)

	// Return now if an interrupt signal was triggered.
	if interruptRequested(interrupt) {
		return nil
	}

	book, err := addrbook.Open(filepath.Join(cfg.DataDir, addrBookDirname))
	if err != nil {
		spvcLog.Errorf("Unable to open address book: %v", err)
		return err
	}
	defer func() {
		if err := book.Close(); err != nil {
			spvcLog.Errorf("Unable to close address book: %v", err)
		}
	}()

	tweak, err := randomTweak()
	if err != nil {
		return fmt.Errorf("unable to generate filter tweak: %w", err)
	}

	node := newSpvNode(cfg, book, buildFilter(cfg.watchAddrs, tweak))
	node.run(interrupt)
	return nil
}

func main() {
	// Work around defer not working after os.Exit()
	if err := spvpeerMain(); err != nil {
		os.Exit(1)
	}
}
