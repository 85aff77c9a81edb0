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

package signcmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sassoftware/webapkverify/cmdline/shared"
	"github.com/sassoftware/webapkverify/lib/mmfile"
	"github.com/sassoftware/webapkverify/lib/x509tools"
	"github.com/sassoftware/webapkverify/signers/webapk"
)

var SignCmd = &cobra.Command{
	Use:   "sign [flags] file",
	Short: "Add or replace the comment signature of a WebAPK",
	Args:  cobra.ExactArgs(1),
	RunE:  signCmd,
}

var (
	argKey    string
	argKeyID  string
	argOutput string
)

func init() {
	shared.RootCmd.AddCommand(SignCmd)
	shared.AddLimitFlags(SignCmd.Flags())
	SignCmd.Flags().StringVarP(&argKey, "key", "k", "", "ECDSA private key (PEM or DER)")
	SignCmd.Flags().StringVar(&argKeyID, "keyid", "0", "Decimal key identifier to record in the comment")
	SignCmd.Flags().StringVarP(&argOutput, "output", "o", "", "Write the signed archive here instead of replacing the input; - for stdout")
}

func signCmd(cmd *cobra.Command, args []string) error {
	if argKey == "" {
		return errors.New("--key is required")
	}
	shared.ApplyLimitFlags(cmd.Flags())
	outpath := argOutput
	if outpath == "" {
		outpath = args[0]
	}
	return SignFile(argKey, argKeyID, args[0], outpath)
}

// SignFile signs the archive at inpath with the private key at keyPath and
// writes the result to outpath
func SignFile(keyPath, keyID, inpath, outpath string) error {
	keyBlob, err := os.ReadFile(keyPath)
	if err != nil {
		return err
	}
	key, err := x509tools.ParseEcdsaPrivateKey(keyBlob)
	if err != nil {
		return fmt.Errorf("%s: %w", keyPath, err)
	}
	blob, release, err := mmfile.Open(inpath)
	if err != nil {
		return err
	}
	defer shared.Release(inpath, release)
	signer := webapk.NewSigner(key, keyID)
	signer.Limits = shared.CurrentConfig.Verifier.Limits()
	if n := shared.CurrentConfig.Verifier.MaxMetaInfFiles; n != nil {
		signer.MaxMetaInfFiles = *n
	}
	patch, err := signer.Sign(blob)
	if err != nil {
		return fmt.Errorf("%s: %w", inpath, err)
	}
	if err := patch.WriteFile(blob, outpath); err != nil {
		return err
	}
	log.Info().
		Str("input", inpath).
		Str("output", outpath).
		Str("key", x509tools.Fingerprint(&key.PublicKey)).
		Str("key_id", keyID).
		Msg("signed")
	return nil
}
