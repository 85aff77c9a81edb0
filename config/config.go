/*
 * Copyright (c) SAS Institute Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sassoftware/webapkverify/lib/zipslicer"
	"github.com/sassoftware/webapkverify/signers/webapk"
)

const (
	defaultListen       = ":8080"
	defaultMaxBodyBytes = 256 << 20
	defaultShutdown     = 30 * time.Second
)

var Version = "unknown" // set by main
var Commit = "unknown"  // set by main

type VerifierConfig struct {
	PublicKey       string `yaml:"public_key"`         // Path to a PEM or DER SubjectPublicKeyInfo (required)
	MaxMetaInfFiles *int   `yaml:"max_meta_inf_files"` // Entries under META-INF/ tolerated in the archive
	MaxExtraField   *int   `yaml:"max_extra_field"`    // Per-entry extra field size limit
	MaxSigningBlock *int64 `yaml:"max_signing_block"`  // Largest APK signing block accepted before the central directory
}

type ServerConfig struct {
	Listen          string        `yaml:"listen"`           // Address to listen on
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`   // Largest archive accepted by /verify
	RateLimit       float64       `yaml:"rate_limit"`       // Requests per second, 0 for unlimited
	RateBurst       int           `yaml:"rate_burst"`       // Burst size for the rate limiter
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // Grace period for in-flight requests
	TrustedProxies  []string      `yaml:"trusted_proxies"`  // Proxies whose X-Forwarded-For is believed
}

type LoggingConfig struct {
	Level string `yaml:"level"` // zerolog level name
	File  string `yaml:"file"`  // Log file, "-" for JSON to stderr, empty for console output
}

type Config struct {
	Verifier *VerifierConfig `yaml:"verifier"`
	Server   *ServerConfig   `yaml:"server"`
	Logging  *LoggingConfig  `yaml:"logging"`

	path string
}

func ReadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	config.path = path
	return config, nil
}

func Parse(data []byte) (*Config, error) {
	config := new(Config)
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}
	config.Normalize()
	return config, config.Validate()
}

// Normalize fills in missing sections and defaults
func (config *Config) Normalize() {
	if config.Verifier == nil {
		config.Verifier = new(VerifierConfig)
	}
	if config.Server == nil {
		config.Server = new(ServerConfig)
	}
	if config.Logging == nil {
		config.Logging = new(LoggingConfig)
	}
	s := config.Server
	if s.Listen == "" {
		s.Listen = defaultListen
	}
	if s.MaxBodyBytes == 0 {
		s.MaxBodyBytes = defaultMaxBodyBytes
	}
	if s.RateLimit > 0 && s.RateBurst == 0 {
		s.RateBurst = int(s.RateLimit) + 1
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = defaultShutdown
	}
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
}

func (config *Config) Validate() error {
	v := config.Verifier
	if v.MaxMetaInfFiles != nil && *v.MaxMetaInfFiles < 0 {
		return errors.New("verifier: max_meta_inf_files must not be negative")
	}
	if v.MaxExtraField != nil && (*v.MaxExtraField < 0 || *v.MaxExtraField > 0xffff) {
		return errors.New("verifier: max_extra_field must be between 0 and 65535")
	}
	if v.MaxSigningBlock != nil && *v.MaxSigningBlock < 0 {
		return errors.New("verifier: max_signing_block must not be negative")
	}
	s := config.Server
	if s.MaxBodyBytes < 0 {
		return errors.New("server: max_body_bytes must not be negative")
	}
	if s.RateLimit < 0 || s.RateBurst < 0 {
		return errors.New("server: rate_limit and rate_burst must not be negative")
	}
	return nil
}

// Path returns the file the configuration was loaded from, if any
func (config *Config) Path() string {
	return config.path
}

// Limits returns the structural limits with any configured overrides applied
func (v *VerifierConfig) Limits() zipslicer.Limits {
	limits := zipslicer.DefaultLimits()
	if v.MaxExtraField != nil {
		limits.MaxExtraField = *v.MaxExtraField
	}
	if v.MaxSigningBlock != nil {
		limits.MaxSigningBlock = *v.MaxSigningBlock
	}
	return limits
}

// Options converts the verifier section into webapk verifier options
func (v *VerifierConfig) Options() []webapk.Option {
	opts := []webapk.Option{webapk.WithLimits(v.Limits())}
	if v.MaxMetaInfFiles != nil {
		opts = append(opts, webapk.WithMaxMetaInfFiles(*v.MaxMetaInfFiles))
	}
	return opts
}

// NewVerifier loads the configured public key and builds a verifier from it.
// Extra options are applied after the configured ones.
func (v *VerifierConfig) NewVerifier(extra ...webapk.Option) (*webapk.Verifier, error) {
	if v.PublicKey == "" {
		return nil, errors.New("verifier: public_key is not set")
	}
	blob, err := os.ReadFile(v.PublicKey)
	if err != nil {
		return nil, err
	}
	verifier, err := webapk.NewVerifier(blob, append(v.Options(), extra...)...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", v.PublicKey, err)
	}
	return verifier, nil
}
