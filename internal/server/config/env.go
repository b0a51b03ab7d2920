package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/dmitrijs2005/docanchor/internal/flagx"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by the server.
const EnvPrefix = "DOCANCHOR_"

// loadDotEnv exports the variables of path into the process environment
// without overriding variables that are already set. A missing file is
// not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// parseEnv overlays cfg with DOCANCHOR_* variables found through lookup.
func parseEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = d
		return nil
	}

	str("ADDR", &cfg.EndpointAddrGRPC)
	str("DATABASE_DSN", &cfg.DatabaseDSN)
	str("SECRET_KEY", &cfg.SecretKey)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("UPLOAD_DIR", &cfg.UploadDir)
	str("CONTENT_STORE", &cfg.ContentStore)
	str("IPFS_URL", &cfg.IPFSURL)
	str("S3_USER", &cfg.S3RootUser)
	str("S3_PASSWORD", &cfg.S3RootPassword)
	str("S3_BUCKET", &cfg.S3Bucket)
	str("S3_REGION", &cfg.S3Region)
	str("S3_ENDPOINT", &cfg.S3BaseEndpoint)
	str("LEDGER", &cfg.Ledger)
	str("ETH_RPC_URL", &cfg.EthereumRPCURL)
	str("CONTRACT_ADDRESS", &cfg.ContractAddress)
	str("PRIVATE_KEY", &cfg.PrivateKey)

	if v, ok := lookup(EnvPrefix + "ALLOWED_EXTENSIONS"); ok && v != "" {
		cfg.AllowedExtensions = flagx.SplitList(v)
	}
	if v, ok := lookup(EnvPrefix + "MAX_FILE_SIZE"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sMAX_FILE_SIZE: %w", EnvPrefix, err)
		}
		cfg.MaxFileSize = n
	}

	return errors.Join(
		dur("TOKEN_TTL", &cfg.AccessTokenValidityDuration),
		dur("CONTENT_TIMEOUT", &cfg.ContentStoreTimeout),
		dur("LEDGER_TIMEOUT", &cfg.LedgerTimeout),
	)
}
