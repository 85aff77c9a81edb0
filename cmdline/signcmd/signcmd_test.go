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
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sassoftware/webapkverify/cmdline/shared"
	"github.com/sassoftware/webapkverify/config"
	"github.com/sassoftware/webapkverify/lib/zipslicer/ziptest"
	"github.com/sassoftware/webapkverify/signers/webapk"
)

func TestSignFile(t *testing.T) {
	shared.CurrentConfig = config.Default()
	dir := t.TempDir()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	keyPath := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), 0o600))

	inpath := filepath.Join(dir, "in.apk")
	archive := (&ziptest.Archive{Entries: []ziptest.Entry{
		{Name: "classes.dex", Data: []byte("dex\n035\x00")},
	}}).Bytes()
	require.NoError(t, os.WriteFile(inpath, archive, 0o644))

	outpath := filepath.Join(dir, "out.apk")
	require.NoError(t, SignFile(keyPath, "42", inpath, outpath))
	signed, err := os.ReadFile(outpath)
	require.NoError(t, err)
	v := webapk.NewVerifierFromKey(&key.PublicKey)
	assert.Equal(t, webapk.Ok, v.Check(signed))

	// in place
	require.NoError(t, SignFile(keyPath, "7", inpath, inpath))
	signed, err = os.ReadFile(inpath)
	require.NoError(t, err)
	assert.Equal(t, webapk.Ok, v.Check(signed))

	assert.Error(t, SignFile(keyPath, "not-decimal", inpath, outpath))
	assert.Error(t, SignFile(filepath.Join(dir, "nokey.pem"), "0", inpath, outpath))
}
