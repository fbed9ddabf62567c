// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	flags "github.com/jessevdk/go-flags"
	"github.com/spvkit/spvpeer/chaincfg"
	"github.com/spvkit/spvpeer/internal/log"
	"github.com/spvkit/spvpeer/internal/version"
	"github.com/spvkit/spvpeer/peer"
	"github.com/spvkit/spvpeer/sampleconfig"
)

const (
	defaultConfigFilename = "spvpeer.conf"
	defaultDataDirname    = "data"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "spvpeer.log"
	defaultLogLevel       = "info"
	defaultPingInterval   = 2 * time.Minute
	defaultBirthdayLayout = "2006-01-02"
)

var (
	defaultHomeDir    = btcutil.AppDataDir("spvpeer", false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(defaultHomeDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
)

// config defines the configuration options for spvpeer.
//
// See loadConfig for details on the configuration load process.
type config struct {
	ShowVersion       bool          `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile        string        `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir           string        `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir            string        `long:"logdir" description:"Directory to log output"`
	Connect           string        `long:"connect" description:"Connect only to the specified peer"`
	DisableDNSSeed    bool          `long:"nodnsseed" description:"Disable DNS seeding for peers"`
	Proxy             string        `long:"proxy" description:"Connect via SOCKS5 proxy (eg. 127.0.0.1:9050)"`
	ProxyUser         string        `long:"proxyuser" description:"Username for proxy server"`
	ProxyPass         string        `long:"proxypass" default-mask:"-" description:"Password for proxy server"`
	UseTor            bool          `long:"tor" description:"Specifies the proxy server used is a Tor node"`
	TorIsolation      bool          `long:"torisolation" description:"Enable Tor stream isolation by randomizing user credentials for each connection"`
	TestNet3          bool          `long:"testnet" description:"Use the test network"`
	RegressionTest    bool          `long:"regtest" description:"Use the regression test network"`
	ConnectTimeout    time.Duration `long:"connecttimeout" description:"Time allowed for the TCP connect to complete"`
	PingInterval      time.Duration `long:"pinginterval" description:"Interval between keep-alive pings; an unanswered ping disconnects the peer"`
	Watch             []string      `long:"watch" description:"Address to load into the bloom filter; may be repeated"`
	Birthday          string        `long:"birthday" description:"Creation date of the oldest watched address as YYYY-MM-DD or unix seconds"`
	UserAgentComments []string      `long:"uacomment" description:"Comment to add to the user agent; may be repeated"`
	DebugLevel        string        `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`

	params          *chaincfg.Params
	earliestKeyTime time.Time
	watchAddrs      []btcutil.Address
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(defaultHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but they variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// supportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func supportedSubsystems() []string {
	return log.SupportedSubsystems()
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		// Validate debug log level.
		if !log.ValidLogLevel(debugLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, debugLevel)
		}

		// Change the logging level for all subsystems.
		log.SetLogLevels(debugLevel)

		return nil
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			str := "the specified debug level contains an invalid " +
				"subsystem/level pair [%v]"
			return fmt.Errorf(str, logLevelPair)
		}

		// Extract the specified subsystem and log level.
		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		// Validate subsystem.
		if log.Logger(subsysID) == nil {
			str := "the specified subsystem [%v] is invalid -- " +
				"supported subsystems %v"
			return fmt.Errorf(str, subsysID, supportedSubsystems())
		}

		// Validate log level.
		if !log.ValidLogLevel(logLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, logLevel)
		}

		log.SetLogLevel(subsysID, logLevel)
	}

	return nil
}

// normalizePeerAddress returns addr with the default peer port appended if
// there is not already a port specified.
func normalizePeerAddress(addr, defaultPort string) string {
	_, _, err := net.SplitHostPort(addr)
	if err != nil {
		return net.JoinHostPort(addr, defaultPort)
	}
	return addr
}

// parseBirthday parses a wallet birthday given either as a date or as unix
// seconds.  An empty string means the genesis block, so every block is
// requested filtered.
func parseBirthday(s string) (time.Time, error) {
	if s == "" {
		return time.Unix(0, 0), nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		if secs < 0 {
			return time.Time{}, errors.New("negative birthday")
		}
		return time.Unix(secs, 0), nil
	}
	return time.Parse(defaultBirthdayLayout, s)
}

// decodeWatchAddrs decodes the watched addresses and checks that each of them
// belongs to the active network.
func decodeWatchAddrs(addrs []string, params *chaincfg.Params) ([]btcutil.Address, error) {
	decoded := make([]btcutil.Address, 0, len(addrs))
	for _, s := range addrs {
		addr, err := btcutil.DecodeAddress(s, params.Upstream)
		if err != nil {
			return nil, fmt.Errorf("invalid watch address %q: %w", s, err)
		}
		if !addr.IsForNet(params.Upstream) {
			return nil, fmt.Errorf("watch address %q is not for %s", s,
				params.Name)
		}
		decoded = append(decoded, addr)
	}
	return decoded, nil
}

// peerConfig returns the peer configuration derived from cfg.
func (cfg *config) peerConfig() *peer.Config {
	return &peer.Config{
		ChainParams:       cfg.params,
		UserAgentName:     version.AppName,
		UserAgentVersion:  version.UserAgentVersion(),
		UserAgentComments: cfg.UserAgentComments,
		ConnectTimeout:    cfg.ConnectTimeout,
		Proxy:             cfg.Proxy,
		ProxyUser:         cfg.ProxyUser,
		ProxyPass:         cfg.ProxyPass,
		TorIsolation:      cfg.TorIsolation,
	}
}

// createDefaultConfigFile writes the sample configuration to destPath unless
// a file already exists there.
func createDefaultConfigFile(destPath string) error {
	if _, err := os.Stat(destPath); err == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0700); err != nil {
		return err
	}
	return os.WriteFile(destPath, []byte(sampleconfig.FileContents), 0600)
}

// configError prints err along with the usage and returns it.
func configError(parser *flags.Parser, err error) error {
	fmt.Fprintln(os.Stderr, err)
	if parser != nil {
		parser.WriteHelp(os.Stderr)
	}
	return err
}

// loadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The above results in spvpeer functioning properly without any config
// settings while still allowing the user to override settings with config
// files and command line options.  Command line options always take
// precedence.
func loadConfig(args []string) (*config, []string, error) {
	// Default config.
	cfg := config{
		ConfigFile:     defaultConfigFile,
		DataDir:        defaultDataDir,
		LogDir:         defaultLogDir,
		DebugLevel:     defaultLogLevel,
		ConnectTimeout: peer.DefaultConnectTimeout,
		PingInterval:   defaultPingInterval,
	}

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.Default)
	_, err := preParser.ParseArgs(args)
	if err != nil {
		var e *flags.Error
		if !errors.As(err, &e) || e.Type != flags.ErrHelp {
			preParser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", version.String())
		os.Exit(0)
	}

	// Show the available subsystems and exit if requested.
	if preCfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		os.Exit(0)
	}

	// Create the sample config file at the default location on first
	// start.  A missing custom config file is only warned about below.
	var configFileError error
	if preCfg.ConfigFile == defaultConfigFile {
		if err := createDefaultConfigFile(preCfg.ConfigFile); err != nil {
			configFileError = err
		}
	}

	// Load additional config from file.
	parser := flags.NewParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, nil, configError(parser, err)
		}
		configFileError = err
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.ParseArgs(args)
	if err != nil {
		var e *flags.Error
		if !errors.As(err, &e) || e.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	// The two test networks can't be selected simultaneously.
	if cfg.TestNet3 && cfg.RegressionTest {
		str := "%s: the testnet and regtest params can't be used " +
			"together -- choose one of the two"
		return nil, nil, configError(parser, fmt.Errorf(str, "loadConfig"))
	}

	// Choose the active network params based on the testnet and regression
	// test net flags.
	cfg.params = &chaincfg.MainNetParams
	switch {
	case cfg.TestNet3:
		cfg.params = &chaincfg.TestNet3Params
	case cfg.RegressionTest:
		cfg.params = &chaincfg.RegressionNetParams
	}

	// Append the network type to the data and log directories so they are
	// "namespaced" per network.  The address book is specific to a network
	// so it must never be shared.
	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.DataDir = filepath.Join(cfg.DataDir, cfg.params.Name)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	cfg.LogDir = filepath.Join(cfg.LogDir, cfg.params.Name)

	// Initialize log rotation.  After log rotation has been initialized,
	// the logger variables may be used.
	err = log.InitLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))
	if err != nil {
		return nil, nil, configError(nil, err)
	}

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := fmt.Errorf("%s: %v", "loadConfig", err.Error())
		return nil, nil, configError(parser, err)
	}

	// --tor requires --proxy to be set.
	if cfg.UseTor && cfg.Proxy == "" {
		str := "%s: the --tor option requires --proxy to be set"
		return nil, nil, configError(parser, fmt.Errorf(str, "loadConfig"))
	}

	// Stream isolation only makes sense through Tor.
	if cfg.TorIsolation && !cfg.UseTor {
		str := "%s: the --torisolation option requires --tor to be set"
		return nil, nil, configError(parser, fmt.Errorf(str, "loadConfig"))
	}

	// Connect means no seeding.
	if cfg.Connect != "" {
		cfg.DisableDNSSeed = true
		cfg.Connect = normalizePeerAddress(cfg.Connect, cfg.params.DefaultPort)
	}

	if cfg.PingInterval < time.Second {
		str := "%s: the pinginterval option may not be less than 1s " +
			"-- parsed [%v]"
		err := fmt.Errorf(str, "loadConfig", cfg.PingInterval)
		return nil, nil, configError(parser, err)
	}

	cfg.earliestKeyTime, err = parseBirthday(cfg.Birthday)
	if err != nil {
		err := fmt.Errorf("%s: invalid birthday: %v", "loadConfig", err)
		return nil, nil, configError(parser, err)
	}

	// Header sync only switches to blocks once the headers reach the
	// birthday, so it can't lie in the future.
	if now := time.Now(); cfg.earliestKeyTime.After(now) {
		cfg.earliestKeyTime = now
	}

	cfg.watchAddrs, err = decodeWatchAddrs(cfg.Watch, cfg.params)
	if err != nil {
		err := fmt.Errorf("%s: %v", "loadConfig", err)
		return nil, nil, configError(parser, err)
	}

	// Warn about missing config file only after all other configuration is
	// done.  This prevents the warning on help messages and invalid
	// options.  Note this should go directly before the return.
	if configFileError != nil {
		spvcLog.Warnf("%v", configFileError)
	}

	return &cfg, remainingArgs, nil
}
