//go:build !unix

//
// Copyright (c) SAS Institute Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package servecmd

import (
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"

	"github.com/sassoftware/webapkverify/server/daemon"
)

func watchSignals(srv *daemon.Daemon, done <-chan struct{}) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	defer signal.Stop(ch)
	select {
	case sig := <-ch:
		log.Info().Stringer("signal", sig).Msg("initiating graceful shutdown")
		if err := srv.Shutdown(); err != nil {
			log.Err(err).Msg("failed to shutdown gracefully")
		}
	case <-done:
	}
}
