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

package webapk

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	buckets = []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1, .25, 1}

	MetricVerifySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "webapk_verify_seconds",
			Help:    "A histogram of latencies for WebAPK verification",
			Buckets: buckets,
		},
	)
	MetricResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webapk_verify_results",
			Help: "Outcomes of WebAPK verification",
		},
		[]string{"result"},
	)
)

// ArchiveVerifier is the interface shared by Verifier and Metrics
type ArchiveVerifier interface {
	Verify(buf []byte) error
}

// Metrics wraps a verifier and updates metrics when it is called
type Metrics struct {
	ArchiveVerifier
}

func observe(start time.Time, err error) {
	MetricVerifySeconds.Observe(time.Since(start).Seconds())
	MetricResults.WithLabelValues(ResultOf(err).String()).Inc()
}

func (m Metrics) Verify(buf []byte) (err error) {
	defer func(start time.Time) {
		observe(start, err)
	}(time.Now())
	return m.ArchiveVerifier.Verify(buf)
}
