package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/docanchor/internal/flagx"
	"github.com/dmitrijs2005/docanchor/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "30s" and integer nanoseconds are accepted. Only
// fields present in the file override earlier layers.
type JsonConfig struct {
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	LogLevel                    string         `json:"log_level"`

	UploadDir         string   `json:"upload_dir"`
	MaxFileSize       int64    `json:"max_file_size"`
	AllowedExtensions []string `json:"allowed_extensions"`

	ContentStore        string         `json:"content_store"`
	IPFSURL             string         `json:"ipfs_url"`
	S3RootUser          string         `json:"s3_root_user"`
	S3RootPassword      string         `json:"s3_root_password"`
	S3Bucket            string         `json:"s3_bucket"`
	S3Region            string         `json:"s3_region"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint"`
	ContentStoreTimeout timex.Duration `json:"content_store_timeout"`

	Ledger          string         `json:"ledger"`
	EthereumRPCURL  string         `json:"ethereum_rpc_url"`
	ContractAddress string         `json:"contract_address"`
	PrivateKey      string         `json:"private_key"`
	LedgerTimeout   timex.Duration `json:"ledger_timeout"`
}

// parseJSON overlays cfg with the file named by -c / -config in args, if any.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&cfg.DatabaseDSN, c.DatabaseDSN)
	setString(&cfg.SecretKey, c.SecretKey)
	setString(&cfg.LogLevel, c.LogLevel)
	setString(&cfg.UploadDir, c.UploadDir)
	setString(&cfg.ContentStore, c.ContentStore)
	setString(&cfg.IPFSURL, c.IPFSURL)
	setString(&cfg.S3RootUser, c.S3RootUser)
	setString(&cfg.S3RootPassword, c.S3RootPassword)
	setString(&cfg.S3Bucket, c.S3Bucket)
	setString(&cfg.S3Region, c.S3Region)
	setString(&cfg.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&cfg.Ledger, c.Ledger)
	setString(&cfg.EthereumRPCURL, c.EthereumRPCURL)
	setString(&cfg.ContractAddress, c.ContractAddress)
	setString(&cfg.PrivateKey, c.PrivateKey)

	if c.MaxFileSize != 0 {
		cfg.MaxFileSize = c.MaxFileSize
	}
	if len(c.AllowedExtensions) > 0 {
		cfg.AllowedExtensions = c.AllowedExtensions
	}
	if c.AccessTokenValidityDuration.Duration != 0 {
		cfg.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.ContentStoreTimeout.Duration != 0 {
		cfg.ContentStoreTimeout = c.ContentStoreTimeout.Duration
	}
	if c.LedgerTimeout.Duration != 0 {
		cfg.LedgerTimeout = c.LedgerTimeout.Duration
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
