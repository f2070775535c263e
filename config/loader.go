package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Environment variables applied over the file.
const (
	EnvRPCAddr         = "CERT_REGISTRY_RPC_ADDR"
	EnvContractAddress = "CERT_REGISTRY_CONTRACT"
	EnvChainID         = "CERT_REGISTRY_CHAIN_ID"
	EnvPrivateKey      = "CERT_REGISTRY_PRIVATE_KEY"
)

// Load loads configuration from a YAML file on top of the defaults
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadWithEnv loads configuration from a file and applies environment variable overrides
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if rpcAddr := os.Getenv(EnvRPCAddr); rpcAddr != "" {
		cfg.Ledger.RPCAddr = rpcAddr
	}
	if contract := os.Getenv(EnvContractAddress); contract != "" {
		cfg.Ledger.ContractAddress = contract
	}
	if chainID := os.Getenv(EnvChainID); chainID != "" {
		id, err := strconv.ParseInt(chainID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvChainID, err)
		}
		cfg.Ledger.ChainID = id
	}
	if key := os.Getenv(EnvPrivateKey); key != "" {
		cfg.Ledger.PrivateKey = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration after env overrides: %w", err)
	}
	return cfg, nil
}
