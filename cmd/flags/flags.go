package flags

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/ruteri/certificate-registry/common"
	"github.com/ruteri/certificate-registry/config"
)

// SetupLogger builds the process logger from the logging flags, falling back
// to the logging section of cfg.
func SetupLogger(cCtx *cli.Context, cfg *config.Config) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name) || cfg.Logging.JSON
	logDebug := cCtx.Bool(LogDebugFlag.Name) || cfg.Logging.Debug
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cfg.Logging.Service
	if cCtx.IsSet(LogServiceFlag.Name) {
		logService = cCtx.String(LogServiceFlag.Name)
	}

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

// LoadConfig reads the configuration file and environment, then applies the
// ledger and client flags that were set explicitly.
func LoadConfig(cCtx *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadWithEnv(cCtx.String(ConfigFlag.Name))
	if err != nil {
		return nil, err
	}

	if cCtx.IsSet(RpcAddrFlag.Name) {
		cfg.Ledger.RPCAddr = cCtx.String(RpcAddrFlag.Name)
	}
	if cCtx.IsSet(ContractFlag.Name) {
		cfg.Ledger.ContractAddress = cCtx.String(ContractFlag.Name)
	}
	if cCtx.IsSet(ChainIDFlag.Name) {
		cfg.Ledger.ChainID = cCtx.Int64(ChainIDFlag.Name)
	}
	if cCtx.IsSet(PrivateKeyFlag.Name) {
		cfg.Ledger.PrivateKey = cCtx.String(PrivateKeyFlag.Name)
	}
	if cCtx.IsSet(GasBufferFlag.Name) {
		cfg.Client.GasBufferPercent = cCtx.Uint64(GasBufferFlag.Name)
	}
	if cCtx.IsSet(ArchiveFlag.Name) {
		cfg.Archive.Locations = cCtx.StringSlice(ArchiveFlag.Name)
	}
	if cCtx.IsSet(IndexDBFlag.Name) {
		cfg.Index.Path = cCtx.String(IndexDBFlag.Name)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Transactor returns the signer configured by the key flags, or nil when no
// key was given. The keystore takes precedence over a raw private key.
func Transactor(ctx context.Context, cCtx *cli.Context, cfg *config.Config, chainID *big.Int) (*bind.TransactOpts, error) {
	var (
		key *ecdsa.PrivateKey
		err error
	)

	switch {
	case cCtx.String(KeystoreFlag.Name) != "":
		key, err = keyFromKeystore(cCtx.String(KeystoreFlag.Name), cCtx.String(PasswordFileFlag.Name))
	case cfg.Ledger.PrivateKey != "":
		key, err = crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(cfg.Ledger.PrivateKey), "0x"))
		if err != nil {
			err = fmt.Errorf("failed to parse private key: %w", err)
		}
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	auth.Context = ctx
	return auth, nil
}

func keyFromKeystore(path, passwordFile string) (*ecdsa.PrivateKey, error) {
	keyJSON, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore: %w", err)
	}

	var password string
	if passwordFile != "" {
		raw, err := os.ReadFile(passwordFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read password file: %w", err)
		}
		password = strings.TrimRight(string(raw), "\r\n")
	}

	key, err := keystore.DecryptKey(keyJSON, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt keystore: %w", err)
	}
	return key.PrivateKey, nil
}

var ConfigFlag = &cli.StringFlag{
	Name:    "config",
	EnvVars: []string{"CERT_REGISTRY_CONFIG"},
	Usage:   "path to a YAML configuration file",
}

var RpcAddrFlag = &cli.StringFlag{
	Name:  "rpc-addr",
	Value: "http://127.0.0.1:8545",
	Usage: "address to connect to RPC",
}

var ContractFlag = &cli.StringFlag{
	Name:  "contract",
	Usage: "certificate registry contract address",
}

var ChainIDFlag = &cli.Int64Flag{
	Name:  "chain-id",
	Usage: "chain id to sign transactions for (queried from the node when unset)",
}

var PrivateKeyFlag = &cli.StringFlag{
	Name:  "privkey",
	Usage: "hex encoded private key used to sign transactions (prefer " + config.EnvPrivateKey + ")",
}

var KeystoreFlag = &cli.StringFlag{
	Name:  "keystore",
	Usage: "path to an encrypted JSON keystore file used to sign transactions",
}

var PasswordFileFlag = &cli.StringFlag{
	Name:  "password-file",
	Usage: "file holding the keystore password",
}

var GasBufferFlag = &cli.Uint64Flag{
	Name:  "gas-buffer",
	Value: 20,
	Usage: "percentage added to every gas estimate",
}

var ArchiveFlag = &cli.StringSliceFlag{
	Name:  "archive",
	Usage: "receipt archive location (file://, s3://, ipfs://), may be repeated",
}

var IndexDBFlag = &cli.StringFlag{
	Name:  "index-db",
	Usage: "path to the SQLite event index",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: "certificate-registry",
	Usage: "add 'service' tag to logs",
}

var LedgerFlags = []cli.Flag{
	ConfigFlag,
	RpcAddrFlag,
	ContractFlag,
	ChainIDFlag,
	PrivateKeyFlag,
	KeystoreFlag,
	PasswordFileFlag,
	GasBufferFlag,
	ArchiveFlag,
	IndexDBFlag,
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
}
