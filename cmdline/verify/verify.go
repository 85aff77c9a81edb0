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

package verify

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sassoftware/webapkverify/cmdline/shared"
	"github.com/sassoftware/webapkverify/lib/mmfile"
	"github.com/sassoftware/webapkverify/signers/webapk"
)

var VerifyCmd = &cobra.Command{
	Use:   "verify [flags] file...",
	Short: "Verify the comment signature of one or more WebAPKs",
	RunE:  verifyCmd,
}

var (
	argKey         string
	argJobs        int
	argMetricsFile string
	argQuiet       bool
)

func init() {
	shared.RootCmd.AddCommand(VerifyCmd)
	shared.AddLimitFlags(VerifyCmd.Flags())
	VerifyCmd.Flags().StringVarP(&argKey, "key", "k", "", "Public key to verify against (PEM or DER); overrides verifier.public_key")
	VerifyCmd.Flags().IntVarP(&argJobs, "jobs", "j", runtime.NumCPU(), "Number of files to verify in parallel")
	VerifyCmd.Flags().StringVar(&argMetricsFile, "metrics-file", "", "Write verification metrics to this file in Prometheus text format")
	VerifyCmd.Flags().BoolVarP(&argQuiet, "quiet", "q", false, "Only print files that failed")
}

func verifyCmd(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.New("Expected 1 or more files")
	}
	shared.ApplyLimitFlags(cmd.Flags())
	v, err := shared.NewVerifier(argKey)
	if err != nil {
		return err
	}
	errs := VerifyFiles(webapk.Metrics{ArchiveVerifier: v}, args, argJobs)
	rc := Report(os.Stdout, args, errs, argQuiet)
	if rc != 0 {
		fmt.Fprintln(os.Stderr, "ERROR: 1 or more files did not validate")
	}
	if argMetricsFile != "" {
		if err := prometheus.WriteToTextfile(argMetricsFile, prometheus.DefaultGatherer); err != nil {
			log.Error().Err(err).Str("path", argMetricsFile).Msg("failed to write metrics")
			rc = 1
		}
	}
	os.Exit(rc)
	return nil
}

// VerifyFiles checks each path, at most jobs at a time, and returns the
// outcome for each in the same order
func VerifyFiles(v webapk.ArchiveVerifier, paths []string, jobs int) []error {
	if jobs < 1 {
		jobs = 1
	}
	errs := make([]error, len(paths))
	var eg errgroup.Group
	eg.SetLimit(jobs)
	for i, path := range paths {
		eg.Go(func() error {
			errs[i] = verifyOne(v, path)
			return nil
		})
	}
	_ = eg.Wait()
	return errs
}

func verifyOne(v webapk.ArchiveVerifier, path string) error {
	blob, release, err := mmfile.Open(path)
	if err != nil {
		return err
	}
	defer shared.Release(path, release)
	return v.Verify(blob)
}

// Report prints one line per file and returns the process exit code
func Report(w io.Writer, paths []string, errs []error, quiet bool) int {
	rc := 0
	for i, path := range paths {
		if errs[i] != nil {
			fmt.Fprintf(w, "%s ERROR: %s\n", path, errs[i])
			rc = 1
		} else if !quiet {
			fmt.Fprintf(w, "%s: OK\n", path)
		}
	}
	return rc
}
