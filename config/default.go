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
	"os"
	"path/filepath"
)

func DefaultDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "webapkverify")
	}
	profile := os.Getenv("USERPROFILE")
	if profile != "" {
		// windows
		return filepath.Join(profile, "webapkverify")
	}
	home := os.Getenv("HOME")
	if home != "" {
		return filepath.Join(home, ".config", "webapkverify")
	}
	return ""
}

func DefaultConfig() string {
	path := DefaultDir()
	if path != "" {
		path = filepath.Join(path, "webapkverify.yaml")
	}
	return path
}

// Default returns the configuration used when no file exists
func Default() *Config {
	config := new(Config)
	config.Normalize()
	return config
}
