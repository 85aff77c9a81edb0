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

package servecmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sassoftware/webapkverify/cmdline/shared"
	"github.com/sassoftware/webapkverify/server/daemon"
)

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Offer WebAPK verification over a HTTP API",
	Args:  cobra.NoArgs,
	RunE:  serveCmd,
}

var (
	argTest   bool
	argListen string
)

func init() {
	shared.RootCmd.AddCommand(ServeCmd)
	ServeCmd.Flags().BoolVarP(&argTest, "test", "t", false, "Test configuration and exit")
	ServeCmd.Flags().StringVarP(&argListen, "listen", "l", "", "Override the configured listen address")
}

func MakeServer() (*daemon.Daemon, error) {
	cfg := shared.CurrentConfig
	if argListen != "" {
		cfg.Server.Listen = argListen
	}
	v, err := shared.NewVerifier("")
	if err != nil {
		return nil, err
	}
	return daemon.New(cfg, v, argTest)
}

func serveCmd(cmd *cobra.Command, args []string) error {
	srv, err := MakeServer()
	if err != nil {
		return shared.Fail(err)
	} else if argTest {
		fmt.Println("OK")
		return nil
	}
	done := make(chan struct{})
	go watchSignals(srv, done)
	err = srv.Serve()
	close(done)
	if err != nil {
		return shared.Fail(err)
	}
	log.Info().Msg("stopped")
	return nil
}
