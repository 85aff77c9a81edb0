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

package x509tools_test

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sassoftware/webapkverify/lib/x509tools"
)

func TestParsePublicKey(t *testing.T) {
	t.Parallel()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	pub, err := x509tools.ParsePublicKey(der)
	require.NoError(t, err)
	assert.True(t, pub.Equal(&key.PublicKey))

	pemBlob := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	pub, err = x509tools.ParsePublicKey(pemBlob)
	require.NoError(t, err)
	assert.True(t, pub.Equal(&key.PublicKey))

	_, err = x509tools.ParsePublicKey(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
	assert.Error(t, err)
	_, err = x509tools.ParsePublicKey([]byte("garbage"))
	assert.Error(t, err)
}

func TestParsePublicKeyWrongType(t *testing.T) {
	t.Parallel()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)
	_, err = x509tools.ParsePublicKey(der)
	assert.Error(t, err)
}

func TestParseEcdsaPrivateKey(t *testing.T) {
	t.Parallel()
	key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	parsed, err := x509tools.ParseEcdsaPrivateKey(der)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(key))

	sec1, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	parsed, err = x509tools.ParseEcdsaPrivateKey(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: sec1}))
	require.NoError(t, err)
	assert.True(t, parsed.Equal(key))
}

func TestFingerprint(t *testing.T) {
	t.Parallel()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	fp := x509tools.Fingerprint(&key.PublicKey)
	assert.Len(t, fp, 16)
	assert.Equal(t, fp, x509tools.Fingerprint(&key.PublicKey))
	assert.Equal(t, "unknown", x509tools.Fingerprint(nil))
}
