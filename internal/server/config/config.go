// Package config handles configuration for the refinery security server:
// defaults, an optional JSON or TOML file overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the server.
//
// An empty DatabaseDSN selects the in-memory store. SecretKey signs session
// tokens with HS256 and must be overridden outside development.
type Config struct {
	EndpointAddrHTTP string
	EndpointAddrGRPC string
	DatabaseDSN      string
	SecretKey        string
	LogLevel         string
	DevMode          bool

	// FailOpen treats an unavailable ledger store as "not blocked".
	FailOpen            bool
	MaxFailedAttempts   int
	FailureWindow       time.Duration
	OriginBlockDuration time.Duration
	AccountLockDuration time.Duration
	AttackBlockDuration time.Duration

	WorkingHoursStart   int
	WorkingHoursEnd     int
	WorkingHoursRoles   []string
	WorkingHoursMessage string
	TimeZone            string

	ThrottleRate  float64
	ThrottleBurst int

	AdminUsername string
	AdminPassword string

	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string

	ShutdownTimeout time.Duration
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDSN = ""
	c.SecretKey = "secretKey"
	c.LogLevel = "info"
	c.DevMode = false

	c.FailOpen = true
	c.MaxFailedAttempts = 3
	c.FailureWindow = 30 * time.Second
	c.OriginBlockDuration = 15 * time.Minute
	c.AccountLockDuration = 10 * time.Minute
	c.AttackBlockDuration = 5 * time.Minute

	c.WorkingHoursStart = 8
	c.WorkingHoursEnd = 23
	c.WorkingHoursRoles = []string{"Operater", "Koordinator stanica"}
	c.WorkingHoursMessage = "access is allowed only on working days between 08:00 and 23:00"
	c.TimeZone = "Europe/Belgrade"

	c.ThrottleRate = 20
	c.ThrottleBurst = 40

	c.S3Bucket = "refinery-audit"
	c.S3Region = "us-east-1"

	c.ShutdownTimeout = 5 * time.Second
}

// Location resolves TimeZone, falling back to UTC for an empty value.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.TimeZone)
}

// LoadConfig applies defaults, then the file named by -c/-config, then
// command-line flags.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
