// Package config loads the certificate registry client configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ruteri/certificate-registry/interfaces"
	"github.com/ruteri/certificate-registry/txutils"
)

// Config holds all configuration for the registry client
type Config struct {
	Ledger  LedgerConfig  `yaml:"ledger"`
	Client  ClientConfig  `yaml:"client"`
	Archive ArchiveConfig `yaml:"archive"`
	Index   IndexConfig   `yaml:"index"`
	Logging LoggingConfig `yaml:"logging"`
}

// LedgerConfig locates the registry contract
type LedgerConfig struct {
	RPCAddr         string `yaml:"rpc_addr"`
	ContractAddress string `yaml:"contract_address"`
	ChainID         int64  `yaml:"chain_id"`
	// PrivateKey is a hex encoded secp256k1 key. Prefer the environment
	// variable over storing it in the file.
	PrivateKey string `yaml:"private_key"`
}

// ClientConfig tunes the resilience layer
type ClientConfig struct {
	GasBufferPercent uint64 `yaml:"gas_buffer_percent"`
	ReadAttempts     int    `yaml:"read_attempts"`
	ReadRetryDelay   string `yaml:"read_retry_delay"`
	MutationTimeout  string `yaml:"mutation_timeout"`
}

// ArchiveConfig lists the receipt archive locations
type ArchiveConfig struct {
	Locations []string `yaml:"locations"`
}

// IndexConfig contains event index configuration
type IndexConfig struct {
	Path       string `yaml:"path"`
	StartBlock uint64 `yaml:"start_block"`
	BatchSize  uint64 `yaml:"batch_size"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Debug   bool   `yaml:"debug"`
	JSON    bool   `yaml:"json"`
	Service string `yaml:"service"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Ledger: LedgerConfig{
			RPCAddr: "http://127.0.0.1:8545",
		},
		Client: ClientConfig{
			GasBufferPercent: txutils.DefaultGasBufferPercent,
			ReadAttempts:     txutils.DefaultReadAttempts,
			ReadRetryDelay:   txutils.DefaultReadRetryDelay.String(),
			MutationTimeout:  "2m",
		},
		Index: IndexConfig{
			BatchSize: 5000,
		},
		Logging: LoggingConfig{
			Service: "certificate-registry",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Ledger.RPCAddr == "" {
		return fmt.Errorf("ledger.rpc_addr is required")
	}
	if c.Ledger.ContractAddress != "" && !common.IsHexAddress(c.Ledger.ContractAddress) {
		return fmt.Errorf("ledger.contract_address %q is not a valid address", c.Ledger.ContractAddress)
	}
	if c.Ledger.ChainID < 0 {
		return fmt.Errorf("ledger.chain_id must not be negative")
	}

	if c.Client.GasBufferPercent > 1000 {
		return fmt.Errorf("client.gas_buffer_percent must be at most 1000")
	}
	if c.Client.ReadAttempts < 1 {
		return fmt.Errorf("client.read_attempts must be at least 1")
	}
	if _, err := c.ReadRetryDelay(); err != nil {
		return err
	}
	if _, err := c.MutationTimeout(); err != nil {
		return err
	}

	for _, loc := range c.Archive.Locations {
		if _, err := interfaces.NewStorageBackendLocation(loc); err != nil {
			return fmt.Errorf("archive.locations: %w", err)
		}
	}

	if c.Index.BatchSize == 0 {
		return fmt.Errorf("index.batch_size must be positive")
	}
	return nil
}

// ContractAddress returns the configured registry address.
func (c *Config) ContractAddress() (common.Address, error) {
	if c.Ledger.ContractAddress == "" {
		return common.Address{}, fmt.Errorf("ledger.contract_address is required")
	}
	return common.HexToAddress(c.Ledger.ContractAddress), nil
}

// ReadRetryDelay returns the parsed delay between read attempts.
func (c *Config) ReadRetryDelay() (time.Duration, error) {
	return parseDuration("client.read_retry_delay", c.Client.ReadRetryDelay)
}

// MutationTimeout returns how long a mutation may wait to be finalized. Zero means no limit.
func (c *Config) MutationTimeout() (time.Duration, error) {
	return parseDuration("client.mutation_timeout", c.Client.MutationTimeout)
}

// ReadPolicy returns the retry policy for registry reads.
func (c *Config) ReadPolicy() (txutils.RetryPolicy, error) {
	delay, err := c.ReadRetryDelay()
	if err != nil {
		return txutils.RetryPolicy{}, err
	}
	policy := txutils.DefaultReadPolicy()
	policy.Attempts = c.Client.ReadAttempts
	policy.Delay = delay
	return policy, nil
}

func parseDuration(key, value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}
