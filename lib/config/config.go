// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the node and its
// tooling.
//
// Configuration is loaded from a single YAML file specified by:
//   - the BNS_CONFIG environment variable, or
//   - the --config flag passed to the command
//
// There are no fallbacks or automatic discovery. The config file is
// the single source of truth; environment variables do not override
// values. The only expansion performed is ${VAR} substitution in
// paths for portability.
//
// The file may contain environment-specific sections (development,
// production) that override base values when the environment matches.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Production is for public-facing nodes.
	Production Environment = "production"
)

// Config is the master configuration for a node.
type Config struct {
	// Environment identifies the deployment type.
	Environment Environment `yaml:"environment"`

	// Network selects the chain parameter set (mainnet, testnet,
	// regtest).
	Network Network `yaml:"network"`

	// Paths configures data directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Chain configures the block source.
	Chain ChainConfig `yaml:"chain"`

	// RPC configures the public HTTP API.
	RPC RPCConfig `yaml:"rpc"`

	// Atlas configures zonefile replication.
	Atlas AtlasConfig `yaml:"atlas"`

	// FastSync configures snapshot trust.
	FastSync FastSyncConfig `yaml:"fast_sync"`

	// Per-environment overrides, applied after the base config loads.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Paths *PathsConfig `yaml:"paths,omitempty"`
	Chain *ChainConfig `yaml:"chain,omitempty"`
	RPC   *RPCConfig   `yaml:"rpc,omitempty"`
	Atlas *AtlasConfig `yaml:"atlas,omitempty"`
}

// PathsConfig configures data directory locations.
type PathsConfig struct {
	// Root is the base directory for node data.
	Root string `yaml:"root"`

	// NameDB is the name database file.
	NameDB string `yaml:"name_db"`

	// AtlasDB is the atlas peer and inventory database file.
	AtlasDB string `yaml:"atlas_db"`

	// SubdomainDB is the subdomain index database file.
	SubdomainDB string `yaml:"subdomain_db"`

	// Zonefiles is the content-addressed zonefile store directory.
	Zonefiles string `yaml:"zonefiles"`

	// Snapshots is where fast-sync snapshots are written and staged.
	Snapshots string `yaml:"snapshots"`
}

// ChainConfig configures the block source.
type ChainConfig struct {
	// SourceURL is the chain daemon's HTTP endpoint. Ignored when
	// JournalPath is set.
	SourceURL string `yaml:"source_url"`

	// JournalPath, when set, replays blocks from a journal file
	// instead of a live chain daemon (regtest and tests).
	JournalPath string `yaml:"journal_path"`

	// PollInterval is how often to ask the source for new blocks.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// RPCConfig configures the public HTTP API.
type RPCConfig struct {
	// Listen is the TCP listen address (e.g. ":6264").
	Listen string `yaml:"listen"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AtlasConfig configures zonefile replication.
type AtlasConfig struct {
	// PublicAddress is the address peers should dial back
	// (host:port of the RPC listener as seen from outside).
	PublicAddress string `yaml:"public_address"`

	// SeedsFile is a JSONC file listing bootstrap peers.
	SeedsFile string `yaml:"seeds_file"`

	// MaxPeers caps the tracked peer table.
	MaxPeers int `yaml:"max_peers"`

	// MaxNeighbors caps the active neighbor set.
	MaxNeighbors int `yaml:"max_neighbors"`

	// CrawlInterval is how often the crawler compares inventories.
	CrawlInterval time.Duration `yaml:"crawl_interval"`

	// PushInterval is how often freshly stored zonefiles are pushed.
	PushInterval time.Duration `yaml:"push_interval"`
}

// FastSyncConfig configures snapshot trust for bootstrap.
type FastSyncConfig struct {
	// TrustedKeys are hex ed25519 public keys allowed to sign
	// snapshots.
	TrustedKeys []string `yaml:"trusted_keys"`

	// SignatureThreshold is how many trusted signatures an imported
	// snapshot needs. Defaults to 1.
	SignatureThreshold int `yaml:"signature_threshold"`
}

// Default returns the default configuration. Defaults exist to give
// every field a sensible zero-value base, not as a substitute for the
// config file.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".bns")

	return &Config{
		Environment: Development,
		Network:     Mainnet,
		Paths: PathsConfig{
			Root:        defaultRoot,
			NameDB:      filepath.Join(defaultRoot, "names.db"),
			AtlasDB:     filepath.Join(defaultRoot, "atlas.db"),
			SubdomainDB: filepath.Join(defaultRoot, "subdomains.db"),
			Zonefiles:   filepath.Join(defaultRoot, "zonefiles"),
			Snapshots:   filepath.Join(defaultRoot, "snapshots"),
		},
		Chain: ChainConfig{
			SourceURL:    "http://localhost:8332",
			PollInterval: 30 * time.Second,
		},
		RPC: RPCConfig{
			Listen:          ":6264",
			ShutdownTimeout: 10 * time.Second,
		},
		Atlas: AtlasConfig{
			MaxPeers:      80,
			MaxNeighbors:  16,
			CrawlInterval: 60 * time.Second,
			PushInterval:  30 * time.Second,
		},
		FastSync: FastSyncConfig{
			SignatureThreshold: 1,
		},
	}
}

// Load loads configuration from the path in BNS_CONFIG. Fails if the
// variable is not set — there is no discovery.
func Load() (*Config, error) {
	configPath := os.Getenv("BNS_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("BNS_CONFIG environment variable not set; " +
			"set it to the path of your bns.yaml config file, or use --config")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, applies
// environment overrides, and expands ${VAR} patterns in paths.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if overrides.Paths != nil {
		applyString(&c.Paths.Root, overrides.Paths.Root)
		applyString(&c.Paths.NameDB, overrides.Paths.NameDB)
		applyString(&c.Paths.AtlasDB, overrides.Paths.AtlasDB)
		applyString(&c.Paths.SubdomainDB, overrides.Paths.SubdomainDB)
		applyString(&c.Paths.Zonefiles, overrides.Paths.Zonefiles)
		applyString(&c.Paths.Snapshots, overrides.Paths.Snapshots)
	}
	if overrides.Chain != nil {
		applyString(&c.Chain.SourceURL, overrides.Chain.SourceURL)
		applyString(&c.Chain.JournalPath, overrides.Chain.JournalPath)
		if overrides.Chain.PollInterval > 0 {
			c.Chain.PollInterval = overrides.Chain.PollInterval
		}
	}
	if overrides.RPC != nil {
		applyString(&c.RPC.Listen, overrides.RPC.Listen)
		if overrides.RPC.ShutdownTimeout > 0 {
			c.RPC.ShutdownTimeout = overrides.RPC.ShutdownTimeout
		}
	}
	if overrides.Atlas != nil {
		applyString(&c.Atlas.PublicAddress, overrides.Atlas.PublicAddress)
		applyString(&c.Atlas.SeedsFile, overrides.Atlas.SeedsFile)
		if overrides.Atlas.MaxPeers > 0 {
			c.Atlas.MaxPeers = overrides.Atlas.MaxPeers
		}
		if overrides.Atlas.MaxNeighbors > 0 {
			c.Atlas.MaxNeighbors = overrides.Atlas.MaxNeighbors
		}
		if overrides.Atlas.CrawlInterval > 0 {
			c.Atlas.CrawlInterval = overrides.Atlas.CrawlInterval
		}
		if overrides.Atlas.PushInterval > 0 {
			c.Atlas.PushInterval = overrides.Atlas.PushInterval
		}
	}
}

func applyString(target *string, value string) {
	if value != "" {
		*target = value
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"BNS_ROOT": c.Paths.Root,
		"HOME":     os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["BNS_ROOT"] = c.Paths.Root // Update for dependent paths.

	c.Paths.NameDB = expandVars(c.Paths.NameDB, vars)
	c.Paths.AtlasDB = expandVars(c.Paths.AtlasDB, vars)
	c.Paths.SubdomainDB = expandVars(c.Paths.SubdomainDB, vars)
	c.Paths.Zonefiles = expandVars(c.Paths.Zonefiles, vars)
	c.Paths.Snapshots = expandVars(c.Paths.Snapshots, vars)
	c.Atlas.SeedsFile = expandVars(c.Atlas.SeedsFile, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if _, err := Params(c.Network); err != nil {
		errs = append(errs, err)
	}
	if c.Paths.Root == "" {
		errs = append(errs, fmt.Errorf("paths.root is required"))
	}
	if c.Chain.SourceURL == "" && c.Chain.JournalPath == "" {
		errs = append(errs, fmt.Errorf("chain.source_url or chain.journal_path is required"))
	}
	if c.Chain.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("chain.poll_interval must be positive"))
	}
	if c.RPC.Listen == "" {
		errs = append(errs, fmt.Errorf("rpc.listen is required"))
	}
	if c.Atlas.MaxNeighbors > c.Atlas.MaxPeers {
		errs = append(errs, fmt.Errorf("atlas.max_neighbors (%d) exceeds atlas.max_peers (%d)",
			c.Atlas.MaxNeighbors, c.Atlas.MaxPeers))
	}
	if c.FastSync.SignatureThreshold > len(c.FastSync.TrustedKeys) && len(c.FastSync.TrustedKeys) > 0 {
		errs = append(errs, fmt.Errorf("fast_sync.signature_threshold (%d) exceeds trusted key count (%d)",
			c.FastSync.SignatureThreshold, len(c.FastSync.TrustedKeys)))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates all configured directories if they don't exist.
func (c *Config) EnsurePaths() error {
	paths := []string{
		c.Paths.Root,
		c.Paths.Zonefiles,
		c.Paths.Snapshots,
	}
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}
