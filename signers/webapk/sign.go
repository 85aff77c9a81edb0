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
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sassoftware/webapkverify/lib/binpatch"
	"github.com/sassoftware/webapkverify/lib/zipslicer"
)

// Signer produces comment signatures
type Signer struct {
	Key   crypto.Signer
	KeyID string

	Limits          zipslicer.Limits
	MaxMetaInfFiles int
}

func NewSigner(key crypto.Signer, keyID string) *Signer {
	return &Signer{
		Key:             key,
		KeyID:           keyID,
		Limits:          zipslicer.DefaultLimits(),
		MaxMetaInfFiles: DefaultMaxMetaInfFiles,
	}
}

// Sign digests the archive and returns a patch that stores the signature in
// the archive comment. An existing webapk token is replaced; any other
// comment text is kept.
func (s *Signer) Sign(buf []byte) (*binpatch.PatchSet, error) {
	if _, ok := s.Key.Public().(*ecdsa.PublicKey); !ok {
		return nil, fmt.Errorf("comment signatures require an ECDSA key, got %T", s.Key.Public())
	}
	if !keyIDPattern.MatchString(s.KeyID) {
		return nil, fmt.Errorf("key ID %q must be decimal digits", s.KeyID)
	}
	end, err := zipslicer.FindEndRecord(buf)
	if err != nil {
		return nil, classify(err)
	}
	blocks, err := zipslicer.ReadDirectory(buf, end, s.Limits)
	if err != nil {
		return nil, classify(err)
	}
	digest, err := Digest(buf, blocks, s.MaxMetaInfFiles)
	if err != nil {
		return nil, err
	}
	sig, err := s.Key.Sign(rand.Reader, digest, crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("signing: %w", err)
	}
	comment := replaceCommentSignature(end.Comment, FormatCommentSignature(s.KeyID, sig))
	if len(comment) > 0xffff {
		return nil, errors.New("archive comment would exceed 65535 bytes")
	}
	// comment length field, then the comment itself
	blob := make([]byte, 2+len(comment))
	binary.LittleEndian.PutUint16(blob, uint16(len(comment)))
	copy(blob[2:], comment)
	commentField := int64(end.EndOffset) + 20
	patch := binpatch.New()
	patch.Add(commentField, 2+int64(len(end.Comment)), blob)
	return patch, nil
}

// SignBytes is Sign followed by applying the patch
func (s *Signer) SignBytes(buf []byte) ([]byte, error) {
	patch, err := s.Sign(buf)
	if err != nil {
		return nil, err
	}
	return patch.Apply(buf)
}
