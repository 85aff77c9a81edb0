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

// Package ziptest builds small stored zip archives with exact control over
// their layout, for use in tests.
package ziptest

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
)

// Descriptor styles for Entry.Descriptor
const (
	NoDescriptor = iota
	Descriptor          // 12 bytes, no signature
	DescriptorWithMagic // 16 bytes
)

type Entry struct {
	Name       string
	Data       []byte
	LocalExtra []byte
	DirExtra   []byte
	Comment    []byte
	Descriptor int
}

// Archive describes a zip file. Entries are written in order; DirOrder, if
// set, lists entry indexes in central directory order.
type Archive struct {
	Entries  []Entry
	DirOrder []int
	// Gap is written after the last entry, before the central directory
	Gap     []byte
	Comment []byte
}

// Bytes encodes the archive
func (a *Archive) Bytes() []byte {
	var buf bytes.Buffer
	offsets := make([]uint32, len(a.Entries))
	for i, e := range a.Entries {
		offsets[i] = uint32(buf.Len())
		var flags uint16
		if e.Descriptor != NoDescriptor {
			flags |= 1 << 3
		}
		crc := crc32.ChecksumIEEE(e.Data)
		put32(&buf, 0x04034b50)
		put16(&buf, 20) // version needed
		put16(&buf, flags)
		put16(&buf, 0) // stored
		put16(&buf, 0) // time
		put16(&buf, 0) // date
		if e.Descriptor != NoDescriptor {
			put32(&buf, 0)
			put32(&buf, 0)
			put32(&buf, 0)
		} else {
			put32(&buf, crc)
			put32(&buf, uint32(len(e.Data)))
			put32(&buf, uint32(len(e.Data)))
		}
		put16(&buf, uint16(len(e.Name)))
		put16(&buf, uint16(len(e.LocalExtra)))
		buf.WriteString(e.Name)
		buf.Write(e.LocalExtra)
		buf.Write(e.Data)
		switch e.Descriptor {
		case DescriptorWithMagic:
			put32(&buf, 0x08074b50)
			fallthrough
		case Descriptor:
			put32(&buf, crc)
			put32(&buf, uint32(len(e.Data)))
			put32(&buf, uint32(len(e.Data)))
		}
	}
	buf.Write(a.Gap)
	dirOffset := uint32(buf.Len())
	order := a.DirOrder
	if order == nil {
		order = make([]int, len(a.Entries))
		for i := range order {
			order[i] = i
		}
	}
	for _, i := range order {
		e := a.Entries[i]
		put32(&buf, 0x02014b50)
		put16(&buf, 20) // version made by
		put16(&buf, 20) // version needed
		if e.Descriptor != NoDescriptor {
			put16(&buf, 1<<3)
		} else {
			put16(&buf, 0)
		}
		put16(&buf, 0) // stored
		put16(&buf, 0)
		put16(&buf, 0)
		put32(&buf, crc32.ChecksumIEEE(e.Data))
		put32(&buf, uint32(len(e.Data)))
		put32(&buf, uint32(len(e.Data)))
		put16(&buf, uint16(len(e.Name)))
		put16(&buf, uint16(len(e.DirExtra)))
		put16(&buf, uint16(len(e.Comment)))
		put16(&buf, 0) // disk
		put16(&buf, 0) // internal attrs
		put32(&buf, 0) // external attrs
		put32(&buf, offsets[i])
		buf.WriteString(e.Name)
		buf.Write(e.DirExtra)
		buf.Write(e.Comment)
	}
	dirSize := uint32(buf.Len()) - dirOffset
	put32(&buf, 0x06054b50)
	put16(&buf, 0)
	put16(&buf, 0)
	put16(&buf, uint16(len(order)))
	put16(&buf, uint16(len(order)))
	put32(&buf, dirSize)
	put32(&buf, dirOffset)
	put16(&buf, uint16(len(a.Comment)))
	buf.Write(a.Comment)
	return buf.Bytes()
}

// SigningBlock returns a well-formed APK signing block carrying a single
// opaque pair with the given payload size.
func SigningBlock(payloadLen int) []byte {
	block := make([]byte, 8+12+payloadLen+24)
	binary.LittleEndian.PutUint64(block, uint64(8+4+payloadLen+8+16))
	binary.LittleEndian.PutUint64(block[8:], uint64(4+payloadLen))
	binary.LittleEndian.PutUint32(block[16:], 0x7109871a)
	suffix := block[20+payloadLen:]
	copy(suffix, block[:8])
	copy(suffix[8:], "APK Sig Block 42")
	return block
}

func put16(buf *bytes.Buffer, v uint16) {
	var d [2]byte
	binary.LittleEndian.PutUint16(d[:], v)
	buf.Write(d[:])
}

func put32(buf *bytes.Buffer, v uint32) {
	var d [4]byte
	binary.LittleEndian.PutUint32(d[:], v)
	buf.Write(d[:])
}
