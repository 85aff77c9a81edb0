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

package shared

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/sassoftware/webapkverify/config"
	"github.com/sassoftware/webapkverify/internal/logrotate"
	"github.com/sassoftware/webapkverify/internal/zhttp"
	"github.com/sassoftware/webapkverify/signers/webapk"
)

// LogFile is set when logging goes to a file that can be reopened after
// rotation
var LogFile *logrotate.Writer

// InitConfig loads --config, or the default config file if it exists.
// Without either, built-in defaults are used.
func InitConfig() error {
	if CurrentConfig != nil {
		return nil
	}
	path := ArgConfig
	usedDefault := false
	if path == "" {
		path = config.DefaultConfig()
		usedDefault = true
	}
	if path == "" {
		CurrentConfig = config.Default()
		return nil
	}
	cfg, err := config.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && usedDefault {
			CurrentConfig = config.Default()
			return nil
		}
		return err
	}
	CurrentConfig = cfg
	return nil
}

func InitLogging() error {
	level := CurrentConfig.Logging.Level
	if ArgLogLevel != "" {
		level = ArgLogLevel
	}
	w, err := zhttp.SetupLogging(level, CurrentConfig.Logging.File)
	if err != nil {
		return err
	}
	LogFile = w
	if path := CurrentConfig.Path(); path != "" {
		log.Debug().Str("config", path).Msg("loaded configuration")
	}
	return nil
}

// NewVerifier builds a verifier from the configuration. A non-empty keyPath
// replaces the configured public key.
func NewVerifier(keyPath string) (*webapk.Verifier, error) {
	vconf := *CurrentConfig.Verifier
	if keyPath != "" {
		vconf.PublicKey = keyPath
	}
	if vconf.PublicKey == "" {
		return nil, errors.New("no public key: use --key or set verifier.public_key")
	}
	return vconf.NewVerifier(webapk.WithLogger(log.Logger))
}

// Release unmaps an input file, logging rather than returning any failure
func Release(path string, release func() error) {
	if err := release(); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to unmap file")
	}
}

func Fail(err error) error {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(70)
	}
	return err
}
