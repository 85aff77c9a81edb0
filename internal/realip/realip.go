// Copyright © SAS Institute Inc.
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

// Package realip recovers the client address of requests that reach the
// verification service through a reverse proxy.
package realip

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"strings"

	"github.com/sassoftware/webapkverify/internal/zhttp"
)

const forwardedFor = "X-Forwarded-For"

// Resolver walks X-Forwarded-For from the nearest hop outward, trusting only
// hops that fall within the configured prefixes.
type Resolver struct {
	trusted []netip.Prefix
}

// NewResolver parses a list of trusted proxy addresses or CIDR networks
func NewResolver(trustedProxies []string) (*Resolver, error) {
	r := new(Resolver)
	for _, v := range trustedProxies {
		var prefix netip.Prefix
		if strings.ContainsRune(v, '/') {
			p, err := netip.ParsePrefix(v)
			if err != nil {
				return nil, fmt.Errorf("trusted_proxies %q: %w", v, err)
			}
			prefix = p.Masked()
		} else {
			addr, err := netip.ParseAddr(v)
			if err != nil {
				return nil, fmt.Errorf("trusted_proxies %q: invalid IP or IP network", v)
			}
			prefix = netip.PrefixFrom(addr, addr.BitLen())
		}
		r.trusted = append(r.trusted, prefix)
	}
	return r, nil
}

// Middleware replaces req.RemoteAddr with the client address so that access
// logs and rate limiting see the real client.
func Middleware(trustedProxies []string) (func(http.Handler) http.Handler, error) {
	r, err := NewResolver(trustedProxies)
	if err != nil {
		return nil, err
	}
	return r.Middleware, nil
}

func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		client, proxied := r.ClientIP(req)
		req.RemoteAddr = client
		if proxied {
			req = req.WithContext(context.WithValue(req.Context(), ctxKeyProxied, true))
		}
		next.ServeHTTP(w, req)
	})
}

// ClientIP returns the best guess at the client address and whether it was
// taken from a trusted proxy's forwarding header.
func (r *Resolver) ClientIP(req *http.Request) (string, bool) {
	peer := zhttp.StripPort(req.RemoteAddr)
	if !r.trustedHop(peer) {
		return peer, false
	}
	hops := forwardedHops(req.Header)
	if len(hops) == 0 {
		return peer, false
	}
	for i := len(hops) - 1; i >= 0; i-- {
		if !r.trustedHop(hops[i]) {
			return hops[i], true
		}
	}
	// every hop is trusted, so the outermost one is the client
	return hops[0], true
}

func forwardedHops(h http.Header) []string {
	var hops []string
	for _, xff := range h.Values(forwardedFor) {
		for _, hop := range strings.Split(xff, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				hops = append(hops, hop)
			}
		}
	}
	return hops
}

func (r *Resolver) trustedHop(hop string) bool {
	if hop == "@" {
		// UNIX socket
		return true
	}
	addr, err := netip.ParseAddr(hop)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range r.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

type ctxKey int

const ctxKeyProxied ctxKey = 1

// Proxied reports whether the request arrived through a trusted proxy
func Proxied(req *http.Request) bool {
	proxied, _ := req.Context().Value(ctxKeyProxied).(bool)
	return proxied
}
