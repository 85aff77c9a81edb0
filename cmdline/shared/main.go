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

	"github.com/spf13/cobra"

	"github.com/sassoftware/webapkverify/config"
)

var (
	ArgConfig     string
	ArgLogLevel   string
	CurrentConfig *config.Config
	argVersion    bool
)

var lateHooks []func()

var RootCmd = &cobra.Command{
	Use:               "webapkverify",
	Short:             "Verify and sign WebAPK comment signatures",
	PersistentPreRunE: setup,
	RunE:              bailUnlessVersion,
	SilenceUsage:      true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&ArgConfig, "config", "c", "", "Configuration file")
	RootCmd.PersistentFlags().StringVar(&ArgLogLevel, "log-level", "", "Override the configured log level")
	RootCmd.PersistentFlags().BoolVar(&argVersion, "version", false, "Show version and exit")
}

func setup(cmd *cobra.Command, args []string) error {
	if argVersion {
		fmt.Printf("webapkverify version %s (%s)\n", config.Version, config.Commit)
		os.Exit(0)
	}
	if err := InitConfig(); err != nil {
		return err
	}
	return InitLogging()
}

func bailUnlessVersion(cmd *cobra.Command, args []string) error {
	if !argVersion {
		return errors.New("Expected a command")
	}
	return nil
}

func AddLateHook(f func()) {
	lateHooks = append(lateHooks, f)
}

func Main() {
	for _, f := range lateHooks {
		f()
	}
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
