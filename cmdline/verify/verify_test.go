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
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sassoftware/webapkverify/lib/zipslicer/ziptest"
	"github.com/sassoftware/webapkverify/signers/webapk"
)

func TestVerifyFiles(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	archive := (&ziptest.Archive{Entries: []ziptest.Entry{
		{Name: "AndroidManifest.xml", Data: []byte("<manifest/>")},
	}}).Bytes()
	signed, err := webapk.NewSigner(key, "0").SignBytes(archive)
	require.NoError(t, err)

	dir := t.TempDir()
	good := filepath.Join(dir, "good.apk")
	unsigned := filepath.Join(dir, "unsigned.apk")
	missing := filepath.Join(dir, "missing.apk")
	require.NoError(t, os.WriteFile(good, signed, 0o644))
	require.NoError(t, os.WriteFile(unsigned, archive, 0o644))

	paths := []string{good, unsigned, missing, good}
	errs := VerifyFiles(webapk.NewVerifierFromKey(&key.PublicKey), paths, 2)
	require.Len(t, errs, 4)
	assert.NoError(t, errs[0])
	assert.Equal(t, webapk.SignatureNotFound, webapk.ResultOf(errs[1]))
	assert.ErrorIs(t, errs[2], os.ErrNotExist)
	assert.NoError(t, errs[3])

	var out bytes.Buffer
	rc := Report(&out, paths, errs, false)
	assert.Equal(t, 1, rc)
	lines := out.String()
	assert.Contains(t, lines, good+": OK\n")
	assert.Contains(t, lines, unsigned+" ERROR: SignatureNotFound")

	out.Reset()
	assert.Equal(t, 0, Report(&out, []string{good}, []error{nil}, true))
	assert.Empty(t, out.String())
}
