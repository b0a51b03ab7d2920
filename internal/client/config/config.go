package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the docanchor CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the backend gRPC endpoint.
//   - AccessToken: JWT sent as access_token metadata.
//   - RequestTimeout: upper bound for a single call; uploads wait for the
//     ledger, so keep it above the server's ledger timeout.
type Config struct {
	ServerEndpointAddr string
	AccessToken        string
	RequestTimeout     time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.RequestTimeout = 3 * time.Minute
}

// LoadConfig builds a Config from defaults, the environment, an optional
// JSON file and the global flags in args. It returns the arguments left
// after the global flags (the command and its arguments).
func LoadConfig(args []string) (*Config, []string, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg, os.LookupEnv)
	if err := parseJSON(cfg, args); err != nil {
		return nil, nil, err
	}
	rest, err := parseFlags(cfg, args)
	if err != nil {
		return nil, nil, err
	}
	return cfg, rest, nil
}

func parseEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup("DOCANCHOR_SERVER"); ok && v != "" {
		cfg.ServerEndpointAddr = v
	}
	if v, ok := lookup("DOCANCHOR_TOKEN"); ok && v != "" {
		cfg.AccessToken = v
	}
}
