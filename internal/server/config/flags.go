package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/docanchor/internal/flagx"
)

var serverFlags = []string{
	"-a", "-d", "-s", "-t", "-v",
	"-f", "-m",
	"-x", "-i", "-u", "-p", "-b", "-g", "-e", "-T",
	"-l", "-r", "-k", "-w", "-L",
}

// parseFlags overlays cfg with command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-v string   log level (debug, info, warn, error)
//	-f string   upload directory
//	-m int      max file size, bytes
//	-x string   content store backend (ipfs, s3, none)
//	-i string   IPFS node API URL
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-T duration content store call timeout
//	-l string   ledger backend (ethereum, memory)
//	-r string   Ethereum JSON-RPC URL
//	-k string   anchor contract address
//	-w string   hex private key of the anchoring account
//	-L duration ledger call timeout, including waiting for inclusion
//
// Flags owned by other parsers (e.g. -c) are filtered out first.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, serverFlags)

	fs := flag.NewFlagSet("docanchor", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.EndpointAddrGRPC, "a", cfg.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "secret key")
	tokenTTL := fs.Int("t", int(cfg.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	fs.StringVar(&cfg.LogLevel, "v", cfg.LogLevel, "log level")

	fs.StringVar(&cfg.UploadDir, "f", cfg.UploadDir, "upload directory")
	fs.Int64Var(&cfg.MaxFileSize, "m", cfg.MaxFileSize, "max file size in bytes")

	fs.StringVar(&cfg.ContentStore, "x", cfg.ContentStore, "content store backend")
	fs.StringVar(&cfg.IPFSURL, "i", cfg.IPFSURL, "IPFS API URL")
	fs.StringVar(&cfg.S3RootUser, "u", cfg.S3RootUser, "S3 root user")
	fs.StringVar(&cfg.S3RootPassword, "p", cfg.S3RootPassword, "S3 root password")
	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "S3 bucket")
	fs.StringVar(&cfg.S3Region, "g", cfg.S3Region, "S3 region")
	fs.StringVar(&cfg.S3BaseEndpoint, "e", cfg.S3BaseEndpoint, "S3 base endpoint")
	fs.DurationVar(&cfg.ContentStoreTimeout, "T", cfg.ContentStoreTimeout, "content store timeout")

	fs.StringVar(&cfg.Ledger, "l", cfg.Ledger, "ledger backend")
	fs.StringVar(&cfg.EthereumRPCURL, "r", cfg.EthereumRPCURL, "Ethereum RPC URL")
	fs.StringVar(&cfg.ContractAddress, "k", cfg.ContractAddress, "anchor contract address")
	fs.StringVar(&cfg.PrivateKey, "w", cfg.PrivateKey, "anchoring account private key")
	fs.DurationVar(&cfg.LedgerTimeout, "L", cfg.LedgerTimeout, "ledger timeout")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	cfg.AccessTokenValidityDuration = time.Duration(*tokenTTL) * time.Minute
	return nil
}
