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

// Package binpatch describes edits to a binary file as a set of ranges to
// replace, so that a signature can be spliced into a package without
// rewriting it by hand.
package binpatch

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/sassoftware/webapkverify/lib/atomicfile"
)

type PatchHeader struct {
	Offset  int64
	OldSize int64
	NewSize int64
}

type PatchSet struct {
	Patches []PatchHeader
	Blobs   [][]byte
}

func New() *PatchSet {
	return new(PatchSet)
}

// Add replaces oldSize bytes at offset with blob
func (p *PatchSet) Add(offset, oldSize int64, blob []byte) {
	p.Patches = append(p.Patches, PatchHeader{offset, oldSize, int64(len(blob))})
	p.Blobs = append(p.Blobs, blob)
}

// Apply returns a patched copy of the input
func (p *PatchSet) Apply(in []byte) ([]byte, error) {
	var out bytes.Buffer
	if err := p.apply(in, &out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (p *PatchSet) apply(in []byte, w io.Writer) error {
	sort.Sort(sorter{p})
	var pos int64
	for i, patch := range p.Patches {
		if patch.Offset < pos || patch.Offset+patch.OldSize > int64(len(in)) {
			return fmt.Errorf("patch %d at offset %d is out of range or overlaps", i, patch.Offset)
		}
		if _, err := w.Write(in[pos:patch.Offset]); err != nil {
			return err
		}
		if _, err := w.Write(p.Blobs[i]); err != nil {
			return err
		}
		pos = patch.Offset + patch.OldSize
	}
	_, err := w.Write(in[pos:])
	return err
}

// WriteFile writes the patched input to outpath via a temporary file and a
// rename, or to stdout if outpath is "-"
func (p *PatchSet) WriteFile(in []byte, outpath string) error {
	f, err := atomicfile.WriteAny(outpath)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := p.apply(in, f); err != nil {
		return err
	}
	return f.Commit()
}
