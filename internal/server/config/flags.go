package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/duplofs/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., "0.0.0.0:5000")
//	-d string   PostgreSQL DSN, overrides the POSTGRES_* parts
//	-s string   session signing secret
//	-t int      session validity, minutes
//	-u string   storage access key
//	-p string   storage secret key
//	-b string   storage bucket name
//	-g string   storage region
//	-e string   storage endpoint (e.g., "http://127.0.0.1:9000")
//	-m string   storage provider, "do-spaces" or "generic"
//
// Only these flags are taken from os.Args; see flagx.FilterArgs.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-u", "-p", "-b", "-g", "-e", "-m"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	sessionTTL := fs.Int("t", int(config.SessionTTL.Minutes()), "session validity (in minutes)")

	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "storage access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "storage secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "storage bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "storage region")
	fs.StringVar(&config.S3Endpoint, "e", config.S3Endpoint, "storage endpoint")
	fs.StringVar(&config.S3Provider, "m", config.S3Provider, "storage provider (do-spaces|generic)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// -t counts whole minutes, so it only replaces a TTL from the file or
	// environment when given explicitly.
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.SessionTTL = time.Duration(*sessionTTL) * time.Minute
		}
	})
}
