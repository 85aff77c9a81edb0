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
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sassoftware/webapkverify/lib/zipslicer"
)

const (
	metaInfPrefix = "META-INF/"

	// DefaultMaxMetaInfFiles leaves room for v1 signatures from two signers
	DefaultMaxMetaInfFiles = 5
)

// WriteSignedContent writes the byte stream covered by a comment signature.
// Entries are taken in filename order and each is framed as
// len(name), name, compressed size, compressed bytes, with lengths as
// 32-bit little-endian integers. META-INF/ entries are skipped, but more
// than maxMetaInf of them is an error.
func WriteSignedContent(w io.Writer, buf []byte, blocks []zipslicer.Block, maxMetaInf int) error {
	sorted := make([]zipslicer.Block, len(blocks))
	copy(sorted, blocks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})
	var metaInf int
	for _, b := range sorted {
		if strings.HasPrefix(b.Name, metaInfPrefix) {
			metaInf++
			continue
		}
		payload, err := b.Payload(buf)
		if err != nil {
			return classify(err)
		}
		var d [4]byte
		binary.LittleEndian.PutUint32(d[:], uint32(len(b.Name)))
		if _, err := w.Write(d[:]); err != nil {
			return err
		}
		if _, err := io.WriteString(w, b.Name); err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(d[:], b.CompressedSize)
		if _, err := w.Write(d[:]); err != nil {
			return err
		}
		if _, err := w.Write(payload); err != nil {
			return err
		}
	}
	if metaInf > maxMetaInf {
		return fail(TooManyMetaInfFiles, fmt.Errorf("%d %s entries, at most %d allowed", metaInf, metaInfPrefix, maxMetaInf))
	}
	return nil
}

// Digest returns the SHA-256 of the signed content
func Digest(buf []byte, blocks []zipslicer.Block, maxMetaInf int) ([]byte, error) {
	d := sha256.New()
	if err := WriteSignedContent(d, buf, blocks, maxMetaInf); err != nil {
		return nil, err
	}
	return d.Sum(nil), nil
}
