package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dmitrijs2005/refinery/internal/flagx"
	"github.com/dmitrijs2005/refinery/internal/timex"
)

// FileConfig is the on-disk shape of the configuration. Only keys present in
// the file override the current values; pointers distinguish "false" or "0"
// from "absent".
type FileConfig struct {
	EndpointAddrHTTP string `json:"endpoint_addr_http" toml:"endpoint_addr_http"`
	EndpointAddrGRPC string `json:"endpoint_addr_grpc" toml:"endpoint_addr_grpc"`
	DatabaseDSN      string `json:"database_dsn" toml:"database_dsn"`
	SecretKey        string `json:"secret_key" toml:"secret_key"`
	LogLevel         string `json:"log_level" toml:"log_level"`
	DevMode          *bool  `json:"dev_mode" toml:"dev_mode"`

	FailOpen            *bool          `json:"fail_open" toml:"fail_open"`
	MaxFailedAttempts   int            `json:"max_failed_attempts" toml:"max_failed_attempts"`
	FailureWindow       timex.Duration `json:"failure_window" toml:"failure_window"`
	OriginBlockDuration timex.Duration `json:"origin_block_duration" toml:"origin_block_duration"`
	AccountLockDuration timex.Duration `json:"account_lock_duration" toml:"account_lock_duration"`
	AttackBlockDuration timex.Duration `json:"attack_block_duration" toml:"attack_block_duration"`

	WorkingHoursStart   *int     `json:"working_hours_start" toml:"working_hours_start"`
	WorkingHoursEnd     *int     `json:"working_hours_end" toml:"working_hours_end"`
	WorkingHoursRoles   []string `json:"working_hours_roles" toml:"working_hours_roles"`
	WorkingHoursMessage string   `json:"working_hours_message" toml:"working_hours_message"`
	TimeZone            string   `json:"time_zone" toml:"time_zone"`

	ThrottleRate  float64 `json:"throttle_rate" toml:"throttle_rate"`
	ThrottleBurst int     `json:"throttle_burst" toml:"throttle_burst"`

	AdminUsername string `json:"admin_username" toml:"admin_username"`
	AdminPassword string `json:"admin_password" toml:"admin_password"`

	S3AccessKey    string `json:"s3_access_key" toml:"s3_access_key"`
	S3SecretKey    string `json:"s3_secret_key" toml:"s3_secret_key"`
	S3Bucket       string `json:"s3_bucket" toml:"s3_bucket"`
	S3Region       string `json:"s3_region" toml:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint" toml:"s3_base_endpoint"`

	ShutdownTimeout timex.Duration `json:"shutdown_timeout" toml:"shutdown_timeout"`
}

// parseFile overlays the file named by -c/-config onto config. Files ending
// in .toml are decoded as TOML, everything else as JSON.
func parseFile(config *Config) error {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return nil
	}

	fc, err := readFile(path)
	if err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	fc.apply(config)
	return nil
}

func readFile(path string) (*FileConfig, error) {
	fc := &FileConfig{}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.DecodeFile(path, fc); err != nil {
			return nil, err
		}
		return fc, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, fc); err != nil {
		return nil, err
	}
	return fc, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.EndpointAddrHTTP, fc.EndpointAddrHTTP)
	setString(&c.EndpointAddrGRPC, fc.EndpointAddrGRPC)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.SecretKey, fc.SecretKey)
	setString(&c.LogLevel, fc.LogLevel)
	if fc.DevMode != nil {
		c.DevMode = *fc.DevMode
	}

	if fc.FailOpen != nil {
		c.FailOpen = *fc.FailOpen
	}
	if fc.MaxFailedAttempts > 0 {
		c.MaxFailedAttempts = fc.MaxFailedAttempts
	}
	if fc.FailureWindow.Duration > 0 {
		c.FailureWindow = fc.FailureWindow.Duration
	}
	if fc.OriginBlockDuration.Duration > 0 {
		c.OriginBlockDuration = fc.OriginBlockDuration.Duration
	}
	if fc.AccountLockDuration.Duration > 0 {
		c.AccountLockDuration = fc.AccountLockDuration.Duration
	}
	if fc.AttackBlockDuration.Duration > 0 {
		c.AttackBlockDuration = fc.AttackBlockDuration.Duration
	}

	if fc.WorkingHoursStart != nil {
		c.WorkingHoursStart = *fc.WorkingHoursStart
	}
	if fc.WorkingHoursEnd != nil {
		c.WorkingHoursEnd = *fc.WorkingHoursEnd
	}
	if fc.WorkingHoursRoles != nil {
		c.WorkingHoursRoles = fc.WorkingHoursRoles
	}
	setString(&c.WorkingHoursMessage, fc.WorkingHoursMessage)
	setString(&c.TimeZone, fc.TimeZone)

	if fc.ThrottleRate > 0 {
		c.ThrottleRate = fc.ThrottleRate
	}
	if fc.ThrottleBurst > 0 {
		c.ThrottleBurst = fc.ThrottleBurst
	}

	setString(&c.AdminUsername, fc.AdminUsername)
	setString(&c.AdminPassword, fc.AdminPassword)

	setString(&c.S3AccessKey, fc.S3AccessKey)
	setString(&c.S3SecretKey, fc.S3SecretKey)
	setString(&c.S3Bucket, fc.S3Bucket)
	setString(&c.S3Region, fc.S3Region)
	setString(&c.S3BaseEndpoint, fc.S3BaseEndpoint)

	if fc.ShutdownTimeout.Duration > 0 {
		c.ShutdownTimeout = fc.ShutdownTimeout.Duration
	}
}
