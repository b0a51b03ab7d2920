package config

import (
	"flag"
	"io"
)

// parseFlags reads the global flags from the front of args and returns the
// remaining arguments.
//
//	-a string     address and port to access server
//	-t string     access token
//	-T duration   request timeout
//	-c / -config  JSON config file (read by parseJSON)
func parseFlags(cfg *Config, args []string) ([]string, error) {
	fs := flag.NewFlagSet("docanchor", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.AccessToken, "t", cfg.AccessToken, "access token")
	fs.DurationVar(&cfg.RequestTimeout, "T", cfg.RequestTimeout, "request timeout")
	var file string
	fs.StringVar(&file, "c", "", "config file")
	fs.StringVar(&file, "config", "", "config file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return fs.Args(), nil
}
