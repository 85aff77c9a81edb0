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

package x509tools

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
)

// Parse a private key from a blob of PEM data
func ParsePEMPrivateKey(pemData []byte) (crypto.PrivateKey, error) {
	var keyBlock *pem.Block
	for {
		keyBlock, pemData = pem.Decode(pemData)
		if keyBlock == nil {
			return nil, errors.New("failed to find any private keys in PEM data")
		}
		if keyBlock.Type == "PRIVATE KEY" || strings.HasSuffix(keyBlock.Type, " PRIVATE KEY") {
			return ParsePrivateKey(keyBlock.Bytes)
		}
	}
}

// Parse a private key from a DER block
// See crypto/tls.parsePrivateKey
func ParsePrivateKey(der []byte) (crypto.PrivateKey, error) {
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		switch key := key.(type) {
		case *ecdsa.PrivateKey:
			return key, nil
		default:
			return nil, fmt.Errorf("unsupported private key type %T in PKCS#8 wrapping", key)
		}
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	return nil, errors.New("failed to parse private key")
}

// ParseEcdsaPrivateKey loads a PEM or DER private key and checks that it is
// an ECDSA key on a supported curve
func ParseEcdsaPrivateKey(blob []byte) (*ecdsa.PrivateKey, error) {
	var priv crypto.PrivateKey
	var err error
	if bytes.Contains(blob, []byte("-----BEGIN")) {
		priv, err = ParsePEMPrivateKey(blob)
	} else {
		priv, err = ParsePrivateKey(blob)
	}
	if err != nil {
		return nil, err
	}
	key, ok := priv.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("expected an ECDSA private key, got %T", priv)
	}
	if _, err := CurveByCurve(key.Curve); err != nil {
		return nil, err
	}
	return key, nil
}

// ParsePublicKey loads a PEM or DER SubjectPublicKeyInfo holding an ECDSA
// key on a supported curve
func ParsePublicKey(blob []byte) (*ecdsa.PublicKey, error) {
	der := blob
	if block, _ := pem.Decode(blob); block != nil {
		if block.Type != "PUBLIC KEY" {
			return nil, fmt.Errorf("expected a PUBLIC KEY block, found %s", block.Type)
		}
		der = block.Bytes
	}
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	key, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("expected an ECDSA public key, got %T", pub)
	}
	if _, err := CurveByCurve(key.Curve); err != nil {
		return nil, err
	}
	return key, nil
}
