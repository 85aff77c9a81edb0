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
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/asn1"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

type CurveDefinition struct {
	Bits  uint
	Curve elliptic.Curve
	Oid   asn1.ObjectIdentifier
}

var DefinedCurves = []CurveDefinition{
	{256, elliptic.P256(), asn1.ObjectIdentifier{1, 2, 840, 10045, 3, 1, 7}},
	{384, elliptic.P384(), asn1.ObjectIdentifier{1, 3, 132, 0, 34}},
	{521, elliptic.P521(), asn1.ObjectIdentifier{1, 3, 132, 0, 35}},
}

func SupportedCurves() string {
	curves := make([]string, len(DefinedCurves))
	for i, def := range DefinedCurves {
		curves[i] = strconv.FormatUint(uint64(def.Bits), 10)
	}
	return strings.Join(curves, ", ")
}

func CurveByCurve(curve elliptic.Curve) (*CurveDefinition, error) {
	for _, def := range DefinedCurves {
		if curve == def.Curve {
			return &def, nil
		}
	}
	return nil, fmt.Errorf("unsupported ECDSA curve: %v\nSupported curves: %s", curve, SupportedCurves())
}

// EcdsaSignature is the ASN.1 form of an ECDSA signature, as produced by
// SHA256withECDSA style signers
type EcdsaSignature struct {
	R, S *big.Int
}

// UnmarshalEcdsaSignature parses a DER signature, rejecting trailing bytes
// and non-positive values
func UnmarshalEcdsaSignature(der []byte) (sig EcdsaSignature, err error) {
	rest, err := asn1.Unmarshal(der, &sig)
	if err != nil {
		return sig, err
	} else if len(rest) != 0 {
		return sig, errors.New("trailing garbage after ECDSA signature")
	}
	if sig.R == nil || sig.S == nil || sig.R.Sign() <= 0 || sig.S.Sign() <= 0 {
		return sig, errors.New("invalid ECDSA signature values")
	}
	return sig, nil
}

func (sig EcdsaSignature) Marshal() []byte {
	ret, err := asn1.Marshal(sig)
	if err != nil {
		panic(err)
	}
	return ret
}

// Verify checks the signature over an already-computed digest
func (sig EcdsaSignature) Verify(pub *ecdsa.PublicKey, digest []byte) error {
	if !ecdsa.Verify(pub, digest, sig.R, sig.S) {
		return errors.New("ECDSA verification failed")
	}
	return nil
}
