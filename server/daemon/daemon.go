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

package daemon

import (
	"context"
	"errors"
	stdlog "log"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sassoftware/webapkverify/config"
	"github.com/sassoftware/webapkverify/internal/activation"
	"github.com/sassoftware/webapkverify/server"
	"github.com/sassoftware/webapkverify/signers/webapk"
)

type Daemon struct {
	server     *server.Server
	httpServer *http.Server
	listener   net.Listener
	shutdown   time.Duration
	stopped    chan struct{}
}

func getListener(laddr string) (net.Listener, error) {
	listener, inherited, err := activation.GetListener("tcp", laddr)
	if err != nil {
		return nil, err
	}
	if inherited {
		if listener.Addr().Network() != "tcp" {
			listener.Close()
			return nil, errors.New("inherited a listener but it isn't tcp")
		}
		log.Info().Stringer("addr", listener.Addr()).Msg("using inherited listener")
	}
	return listener, nil
}

// New prepares the HTTP service. With test set, the configuration is checked
// and nil is returned without opening a listener.
func New(cfg *config.Config, verifier *webapk.Verifier, test bool) (*Daemon, error) {
	srv, err := server.New(cfg.Server, verifier)
	if err != nil {
		return nil, err
	}
	httpServer := &http.Server{
		Handler:           srv.Handler(),
		ErrorLog:          stdlog.New(log.Logger, "", 0),
		ReadHeaderTimeout: 30 * time.Second,
	}
	if test {
		return nil, nil
	}
	listener, err := getListener(cfg.Server.Listen)
	if err != nil {
		return nil, err
	}
	return &Daemon{
		server:     srv,
		httpServer: httpServer,
		listener:   listener,
		shutdown:   cfg.Server.ShutdownTimeout,
		stopped:    make(chan struct{}),
	}, nil
}

func (d *Daemon) Addr() net.Addr {
	return d.listener.Addr()
}

// Serve runs until Shutdown is called, and returns after in-flight requests
// have drained
func (d *Daemon) Serve() error {
	if err := activation.DaemonReady(); err != nil {
		log.Warn().Err(err).Msg("failed to notify service manager")
	}
	log.Info().Stringer("addr", d.listener.Addr()).Msg("listening for requests")
	err := d.httpServer.Serve(d.listener)
	if errors.Is(err, http.ErrServerClosed) {
		<-d.stopped
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits up to the configured grace
// period for in-flight verifications to finish
func (d *Daemon) Shutdown() error {
	_ = activation.DaemonStopping()
	_ = d.server.Close()
	ctx, cancel := context.WithTimeout(context.Background(), d.shutdown)
	defer cancel()
	defer close(d.stopped)
	return d.httpServer.Shutdown(ctx)
}
