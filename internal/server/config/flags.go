package config

import (
	"flag"
	"io"
	"os"

	"github.com/dmitrijs2005/refinery/internal/flagx"
)

// parseFlags overlays the short command-line flags onto config.
//
//	-a string   HTTP bind address
//	-g string   gRPC bind address
//	-d string   PostgreSQL DSN (empty for the in-memory store)
//	-s string   token signing secret
//	-l string   log level
//	-n int      failed attempts before a block or lock
//	-dev        enable development endpoints
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-d", "-s", "-l", "-n"}, "-dev")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.IntVar(&config.MaxFailedAttempts, "n", config.MaxFailedAttempts, "failed attempts threshold")
	fs.BoolVar(&config.DevMode, "dev", config.DevMode, "development mode")

	return fs.Parse(args)
}
