// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spvkit/spvpeer/chaincfg"
	"github.com/spvkit/spvpeer/internal/log"
	"github.com/stretchr/testify/require"
)

// genesisAddr is the address paid by the main network genesis block.
const genesisAddr = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"

func TestNormalizePeerAddress(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"127.0.0.1", "127.0.0.1:18444"},
		{"127.0.0.1:1234", "127.0.0.1:1234"},
		{"::1", "[::1]:18444"},
		{"[::1]:1234", "[::1]:1234"},
		{"seed.example.org", "seed.example.org:18444"},
	}

	for _, test := range tests {
		got := normalizePeerAddress(test.addr, "18444")
		if got != test.want {
			t.Errorf("normalizePeerAddress(%q): got %q, want %q",
				test.addr, got, test.want)
		}
	}
}

func TestParseBirthday(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"", time.Unix(0, 0), false},
		{"1700000000", time.Unix(1700000000, 0), false},
		{"2024-01-02", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), false},
		{"-5", time.Time{}, true},
		{"yesterday", time.Time{}, true},
	}

	for _, test := range tests {
		got, err := parseBirthday(test.in)
		if test.wantErr {
			if err == nil {
				t.Errorf("parseBirthday(%q): expected error", test.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseBirthday(%q): unexpected error %v", test.in, err)
			continue
		}
		if !got.Equal(test.want) {
			t.Errorf("parseBirthday(%q): got %v, want %v", test.in, got,
				test.want)
		}
	}
}

func TestDecodeWatchAddrs(t *testing.T) {
	addrs, err := decodeWatchAddrs([]string{genesisAddr},
		&chaincfg.MainNetParams)
	require.NoError(t, err)
	require.Len(t, addrs, 1)
	require.Equal(t, genesisAddr, addrs[0].EncodeAddress())

	_, err = decodeWatchAddrs([]string{genesisAddr},
		&chaincfg.RegressionNetParams)
	require.Error(t, err)

	_, err = decodeWatchAddrs([]string{"notanaddress"},
		&chaincfg.MainNetParams)
	require.Error(t, err)
}

func TestParseAndSetDebugLevels(t *testing.T) {
	t.Cleanup(func() { log.SetLogLevels(defaultLogLevel) })

	tests := []struct {
		level   string
		wantErr bool
	}{
		{"debug", false},
		{"PEER=trace,CMGR=warn", false},
		{"verbose", true},
		{"PEER=trace,info", true},
		{"NOPE=info", true},
		{"PEER=loud", true},
	}

	for _, test := range tests {
		err := parseAndSetDebugLevels(test.level)
		if (err != nil) != test.wantErr {
			t.Errorf("parseAndSetDebugLevels(%q): got error %v, "+
				"want error %v", test.level, err, test.wantErr)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(func() {
		log.SetLogLevels(defaultLogLevel)
		if log.LogRotator != nil {
			log.LogRotator.Close()
			log.LogRotator = nil
		}
	})

	configFile := filepath.Join(dir, "spvpeer.conf")
	err := os.WriteFile(configFile, []byte("[Application Options]\n"+
		"connect=127.0.0.1\npinginterval=30s\n"), 0600)
	require.NoError(t, err)

	args := []string{
		"--configfile=" + configFile,
		"--datadir=" + filepath.Join(dir, "data"),
		"--logdir=" + filepath.Join(dir, "logs"),
		"--regtest",
		"--birthday=2024-01-02",
		"--pinginterval=45s",
	}
	cfg, remaining, err := loadConfig(args)
	require.NoError(t, err)
	require.Empty(t, remaining)

	require.Same(t, &chaincfg.RegressionNetParams, cfg.params)
	require.Equal(t, filepath.Join(dir, "data", "regtest"), cfg.DataDir)
	require.FileExists(t, filepath.Join(dir, "logs", "regtest",
		defaultLogFilename))

	// The config file sets values and the command line overrides them.
	require.Equal(t, "127.0.0.1:18444", cfg.Connect)
	require.True(t, cfg.DisableDNSSeed)
	require.Equal(t, 45*time.Second, cfg.PingInterval)
	require.True(t, cfg.earliestKeyTime.Equal(time.Date(2024, 1, 2, 0, 0, 0,
		0, time.UTC)))

	pcfg := cfg.peerConfig()
	require.Same(t, cfg.params, pcfg.ChainParams)
	require.Equal(t, "spvpeer", pcfg.UserAgentName)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(func() {
		log.SetLogLevels(defaultLogLevel)
		if log.LogRotator != nil {
			log.LogRotator.Close()
			log.LogRotator = nil
		}
	})

	base := []string{
		"--configfile=" + filepath.Join(dir, "missing.conf"),
		"--datadir=" + dir,
		"--logdir=" + dir,
	}
	tests := []struct {
		name string
		args []string
	}{
		{"both test networks", []string{"--testnet", "--regtest"}},
		{"tor without proxy", []string{"--tor"}},
		{"isolation without tor", []string{"--proxy=127.0.0.1:9050",
			"--torisolation"}},
		{"short ping interval", []string{"--pinginterval=10ms"}},
		{"bad debug level", []string{"--debuglevel=loud"}},
		{"bad birthday", []string{"--birthday=soon"}},
		{"foreign watch address", []string{"--regtest",
			"--watch=" + genesisAddr}},
		{"unknown flag", []string{"--nosuchflag"}},
	}

	for _, test := range tests {
		args := append(append([]string(nil), base...), test.args...)
		if _, _, err := loadConfig(args); err == nil {
			t.Errorf("%s: expected error", test.name)
		}
	}
}
