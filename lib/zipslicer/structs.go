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

package zipslicer

import (
	"errors"
	"fmt"
)

const (
	directoryEndSignature    = 0x06054b50
	directoryHeaderSignature = 0x02014b50
	fileHeaderSignature      = 0x04034b50
	dataDescriptorSignature  = 0x08074b50

	directoryEndLen     = 22
	maxCommentLen       = 65535
	fileHeaderLen       = 30
	dataDescriptorLen   = 12
	dataDescriptor64Len = dataDescriptorLen + 4

	flagDataDescriptor = 1 << 3

	// SigningBlockMagic ends an APK Signature Scheme v2 block, which sits
	// between the last local file and the central directory.
	SigningBlockMagic = "APK Sig Block 42"

	// DefaultMaxSigningBlock is room for three v2 signatures.
	DefaultMaxSigningBlock = 24 << 10
	// DefaultMaxExtraField allows zipalign page alignment padding.
	DefaultMaxExtraField = 4096
)

var (
	ErrBadArchive          = errors.New("malformed zip archive")
	ErrTrailingData        = fmt.Errorf("%w: trailing data after end of central directory", ErrBadArchive)
	ErrBadBlankSpace       = errors.New("unaccounted space in zip archive")
	ErrFileCommentTooLarge = errors.New("zip file comment too large")
	ErrExtraFieldTooLarge  = errors.New("zip extra field too large")
	ErrBadV2SigningBlock   = errors.New("malformed APK signing block")
)

// EndRecord is the part of the end of central directory record that the
// parser relies on.
type EndRecord struct {
	RecordCount uint16
	DirOffset   uint32
	EndOffset   uint32
	Comment     []byte
}

// Block is one archive member: its local header and compressed payload.
type Block struct {
	Name           string
	Position       uint32 // offset of the local file header
	HeaderSize     uint32 // local header length, filled in by the second pass
	CompressedSize uint32
}

// Payload returns the stored (still compressed) bytes of the block
func (b Block) Payload(buf []byte) ([]byte, error) {
	start := int64(b.Position) + int64(b.HeaderSize)
	end := start + int64(b.CompressedSize)
	if end > int64(len(buf)) {
		return nil, fmt.Errorf("%w: payload of %q extends past end of file", ErrBadArchive, b.Name)
	}
	return buf[start:end], nil
}

// Limits bounds the variable-length fields an archive may carry
type Limits struct {
	MaxFileComment  int   // per-entry comment in the central directory
	MaxExtraField   int   // per-entry extra field, central and local
	MaxSigningBlock int64 // gap before the central directory
	// CheckSigningBlockSizes additionally requires the u64 size fields at
	// both ends of the signing block to agree with the gap
	CheckSigningBlockSizes bool
}

func DefaultLimits() Limits {
	return Limits{
		MaxFileComment:  0,
		MaxExtraField:   DefaultMaxExtraField,
		MaxSigningBlock: DefaultMaxSigningBlock,
	}
}
