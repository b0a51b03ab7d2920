// Package config loads runtime configuration for the docanchor CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment: DOCANCHOR_SERVER and DOCANCHOR_TOKEN.
//  3. Optional JSON file selected via -c or -config.
//  4. Global command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string     address:port of the backend gRPC endpoint
//	-t string     access token
//	-T duration   per-request timeout
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "access_token": "eyJ...",
//	  "request_timeout": "2m"
//	}
package config
