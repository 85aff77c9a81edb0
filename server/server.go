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

// Package server exposes WebAPK comment-signature verification over HTTP.
package server

import (
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/sassoftware/webapkverify/config"
	"github.com/sassoftware/webapkverify/internal/httperror"
	"github.com/sassoftware/webapkverify/internal/realip"
	"github.com/sassoftware/webapkverify/internal/zhttp"
	"github.com/sassoftware/webapkverify/lib/x509tools"
	"github.com/sassoftware/webapkverify/signers/webapk"
)

type Server struct {
	Config *config.ServerConfig

	verifier webapk.ArchiveVerifier
	limiter  *rate.Limiter
	realIP   *realip.Resolver
	closing  atomic.Bool
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.realIP.Middleware)
	r.Use(zhttp.LoggingMiddleware(zhttp.WithQuietPaths("/metrics")))
	r.Use(zhttp.RecoveryMiddleware)
	r.NotFound(httperror.ErrNotFound.ServeHTTP)
	r.MethodNotAllowed(httperror.ErrMethodNotAllowed.ServeHTTP)
	r.Get("/health", s.serveHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.With(s.rateLimit, decompressBody).Post("/verify", handleFunc(s.serveVerify))
	return r
}

// Close marks the server as shutting down so that health checks start
// failing while in-flight requests drain.
func (s *Server) Close() error {
	s.closing.Store(true)
	return nil
}

// New builds a server around a verifier. Every verification is recorded in
// the webapk metrics.
func New(cfg *config.ServerConfig, verifier *webapk.Verifier) (*Server, error) {
	realIP, err := realip.NewResolver(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}
	s := &Server{
		Config:   cfg,
		verifier: webapk.Metrics{ArchiveVerifier: verifier},
		realIP:   realIP,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	log.Info().
		Str("key", x509tools.Fingerprint(verifier.PublicKey())).
		Int64("max_body_bytes", cfg.MaxBodyBytes).
		Float64("rate_limit", cfg.RateLimit).
		Msg("verifier configured")
	return s, nil
}
