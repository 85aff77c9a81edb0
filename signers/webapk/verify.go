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

// Package webapk verifies WebAPKs signed with a "comment signature": an
// ECDSA signature over the archive's members stored as a webapk:<id>:<hex>
// token in the zip comment.
package webapk

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sassoftware/webapkverify/lib/x509tools"
	"github.com/sassoftware/webapkverify/lib/zipslicer"
)

// Verifier holds the trusted key and parsing limits. It is not modified
// after construction and may be shared between goroutines.
type Verifier struct {
	publicKey  *ecdsa.PublicKey
	limits     zipslicer.Limits
	maxMetaInf int
	logger     zerolog.Logger
}

type Option func(*Verifier)

// WithLimits overrides the zip parsing limits
func WithLimits(limits zipslicer.Limits) Option {
	return func(v *Verifier) {
		v.limits = limits
	}
}

// WithMaxMetaInfFiles overrides how many META-INF/ entries are tolerated
func WithMaxMetaInfFiles(n int) Option {
	return func(v *Verifier) {
		v.maxMetaInf = n
	}
}

// WithLogger sets a logger that receives rejection reasons at debug level
func WithLogger(logger zerolog.Logger) Option {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// NewVerifier creates a verifier from a PEM or DER encoded public key
func NewVerifier(publicKey []byte, opts ...Option) (*Verifier, error) {
	pub, err := x509tools.ParsePublicKey(publicKey)
	if err != nil {
		return nil, err
	}
	return NewVerifierFromKey(pub, opts...), nil
}

func NewVerifierFromKey(pub *ecdsa.PublicKey, opts ...Option) *Verifier {
	v := &Verifier{
		publicKey:  pub,
		limits:     zipslicer.DefaultLimits(),
		maxMetaInf: DefaultMaxMetaInfFiles,
		logger:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

func (v *Verifier) PublicKey() *ecdsa.PublicKey {
	return v.publicKey
}

// Archive is a structurally valid zip that carries a comment signature
type Archive struct {
	End       *zipslicer.EndRecord
	Blocks    []zipslicer.Block
	Signature *CommentSignature

	buf []byte
}

// Parse checks that buf is a well-formed archive with no unaccounted bytes
// and extracts its comment signature. The archive retains buf.
func (v *Verifier) Parse(buf []byte) (*Archive, error) {
	end, err := zipslicer.FindEndRecord(buf)
	if err != nil {
		return nil, v.reject(classify(err))
	}
	sig, err := ParseCommentSignature(end.Comment)
	if err != nil {
		return nil, v.reject(fail(SignatureNotFound, err))
	}
	blocks, err := zipslicer.ReadDirectory(buf, end, v.limits)
	if err != nil {
		return nil, v.reject(classify(err))
	}
	return &Archive{
		End:       end,
		Blocks:    blocks,
		Signature: sig,
		buf:       buf,
	}, nil
}

// VerifyArchive checks the archive's comment signature against the
// verifier's public key
func (v *Verifier) VerifyArchive(a *Archive) error {
	if a == nil || a.Signature == nil {
		return v.reject(fail(SignatureNotFound, ErrNoCommentSignature))
	}
	digest, err := Digest(a.buf, a.Blocks, v.maxMetaInf)
	if err != nil {
		return v.reject(classify(err))
	}
	if v.publicKey == nil {
		return v.reject(fail(IncorrectSignature, errors.New("no public key configured")))
	}
	sig, err := x509tools.UnmarshalEcdsaSignature(a.Signature.Signature)
	if err != nil {
		return v.reject(fail(IncorrectSignature, fmt.Errorf("parsing signature: %w", err)))
	}
	if err := sig.Verify(v.publicKey, digest); err != nil {
		return v.reject(fail(IncorrectSignature, err))
	}
	v.logger.Debug().
		Str("key_id", a.Signature.KeyID).
		Int("entries", len(a.Blocks)).
		Msg("webapk signature verified")
	return nil
}

// Verify parses buf and checks its comment signature. A nil error means the
// result is Ok; otherwise ResultOf reports why it was rejected.
func (v *Verifier) Verify(buf []byte) error {
	a, err := v.Parse(buf)
	if err != nil {
		return err
	}
	return v.VerifyArchive(a)
}

// Check is Verify reduced to a Result
func (v *Verifier) Check(buf []byte) Result {
	return ResultOf(v.Verify(buf))
}

func (v *Verifier) reject(err error) error {
	v.logger.Debug().Err(err).Stringer("result", ResultOf(err)).Msg("webapk rejected")
	return err
}
