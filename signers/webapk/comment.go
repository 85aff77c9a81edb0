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
	"encoding/hex"
	"errors"
	"fmt"

	"rsc.io/binaryregexp"
)

// The token may appear anywhere in the archive comment so that other tools
// can add their own text around it.
var commentSignaturePattern = binaryregexp.MustCompile(`webapk:(\d+):([a-fA-F0-9]+)`)

var keyIDPattern = binaryregexp.MustCompile(`^\d+$`)

var (
	ErrNoCommentSignature = errors.New("no webapk signature in archive comment")
	ErrMalformedHex       = errors.New("malformed hex string")
)

// CommentSignature is the signature token found in a zip comment. KeyID is
// kept for diagnostics only; it does not select a verification key.
type CommentSignature struct {
	KeyID     string
	Signature []byte
}

func (s *CommentSignature) String() string {
	return FormatCommentSignature(s.KeyID, s.Signature)
}

// ParseCommentSignature finds the first webapk:<keyid>:<hex> token in a raw
// archive comment, which need not be valid UTF-8
func ParseCommentSignature(comment []byte) (*CommentSignature, error) {
	m := commentSignaturePattern.FindSubmatch(comment)
	if m == nil {
		return nil, ErrNoCommentSignature
	}
	sig, err := HexToBytes(string(m[2]))
	if err != nil {
		return nil, fmt.Errorf("webapk signature: %w", err)
	}
	return &CommentSignature{KeyID: string(m[1]), Signature: sig}, nil
}

// HexToBytes decodes two hex digits per byte, in either case
func HexToBytes(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: odd length %d", ErrMalformedHex, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedHex, err)
	}
	return b, nil
}

func FormatCommentSignature(keyID string, sig []byte) string {
	return "webapk:" + keyID + ":" + hex.EncodeToString(sig)
}

// replaceCommentSignature swaps an existing token for a new one, or adds
// the token to the end of the comment
func replaceCommentSignature(comment []byte, token string) []byte {
	loc := commentSignaturePattern.FindIndex(comment)
	var out []byte
	switch {
	case loc != nil:
		out = append(out, comment[:loc[0]]...)
		out = append(out, token...)
		out = append(out, comment[loc[1]:]...)
	case len(comment) == 0:
		out = []byte(token)
	default:
		out = append(out, comment...)
		out = append(out, '\n')
		out = append(out, token...)
	}
	return out
}
