/*
 * Copyright (c) SAS Institute Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package zipslicer is a strict reader for zip archives that accounts for
// every byte between the start of the file and the end of central directory.
package zipslicer

import (
	"bytes"
	"fmt"
	"sort"
)

// ReadDirectory walks the central directory described by end, then walks
// the local file headers in file order and checks that they tile the
// archive up to the central directory. The only permitted gap is an APK
// signing block immediately before the directory.
//
// The returned blocks are in file order with HeaderSize populated.
func ReadDirectory(buf []byte, end *EndRecord, limits Limits) ([]Block, error) {
	entries, err := readCentralDirectory(buf, end, limits)
	if err != nil {
		return nil, err
	}
	return readLocalHeaders(buf, end, entries, limits)
}

func readCentralDirectory(buf []byte, end *EndRecord, limits Limits) ([]Block, error) {
	if end.DirOffset > end.EndOffset {
		return nil, fmt.Errorf("%w: central directory offset %d is past its end %d", ErrBadArchive, end.DirOffset, end.EndOffset)
	}
	entries := make([]Block, 0, int(end.RecordCount))
	c := newCursor(buf, int64(end.DirOffset))
	for i := 0; i < int(end.RecordCount); i++ {
		sigPos := c.pos
		if sig := c.uint32(); c.err == nil && sig != directoryHeaderSignature {
			return nil, fmt.Errorf("%w: bad central directory signature at offset %d", ErrBadArchive, sigPos)
		}
		// versions, flags, method, time, date, CRC
		c.skip(16)
		csize := c.uint32()
		c.skip(4)
		nameLen := c.uint16()
		extraLen := c.uint16()
		commentLen := c.uint16()
		// disk number and attributes
		c.skip(8)
		offset := c.uint32()
		name := c.bytes(int64(nameLen))
		if c.err != nil {
			return nil, c.err
		}
		if int(commentLen) > limits.MaxFileComment {
			return nil, fmt.Errorf("%w: %d bytes on %q", ErrFileCommentTooLarge, commentLen, name)
		}
		if int(extraLen) > limits.MaxExtraField {
			return nil, fmt.Errorf("%w: %d bytes in central directory for %q", ErrExtraFieldTooLarge, extraLen, name)
		}
		c.skip(int64(extraLen) + int64(commentLen))
		if c.err != nil {
			return nil, c.err
		}
		entries = append(entries, Block{
			Name:           string(name),
			Position:       offset,
			CompressedSize: csize,
		})
	}
	if c.pos != int64(end.EndOffset) {
		return nil, fmt.Errorf("%w: central directory ends at %d but end record is at %d", ErrBadBlankSpace, c.pos, end.EndOffset)
	}
	return entries, nil
}

func readLocalHeaders(buf []byte, end *EndRecord, entries []Block, limits Limits) ([]Block, error) {
	blocks := make([]Block, len(entries))
	copy(blocks, entries)
	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].Position < blocks[j].Position
	})
	dirOffset := int64(end.DirOffset)
	var lastByte int64
	for i := range blocks {
		b := &blocks[i]
		if int64(b.Position) != lastByte {
			return nil, fmt.Errorf("%w: %q starts at %d, expected %d", ErrBadBlankSpace, b.Name, b.Position, lastByte)
		}
		c := newCursor(buf, lastByte)
		if sig := c.uint32(); c.err == nil && sig != fileHeaderSignature {
			return nil, fmt.Errorf("%w: bad local file header signature for %q", ErrBadArchive, b.Name)
		}
		c.skip(2)
		flags := c.uint16()
		// method, time, date, CRC, sizes
		c.skip(18)
		nameLen := c.uint16()
		extraLen := c.uint16()
		if c.err != nil {
			return nil, c.err
		}
		if int(extraLen) > limits.MaxExtraField {
			return nil, fmt.Errorf("%w: %d bytes in local header for %q", ErrExtraFieldTooLarge, extraLen, b.Name)
		}
		headerSize := (c.pos - lastByte) + int64(nameLen) + int64(extraLen)
		b.HeaderSize = uint32(headerSize)
		lastByte += headerSize + int64(b.CompressedSize)
		if lastByte > dirOffset {
			return nil, fmt.Errorf("%w: %q overlaps the central directory", ErrBadBlankSpace, b.Name)
		}
		if flags&flagDataDescriptor != 0 {
			dc := newCursor(buf, lastByte)
			if dc.uint32() == dataDescriptorSignature {
				lastByte += dataDescriptor64Len
			} else {
				lastByte += dataDescriptorLen
			}
			if dc.err != nil {
				return nil, dc.err
			}
			if lastByte > dirOffset {
				return nil, fmt.Errorf("%w: data descriptor of %q overlaps the central directory", ErrBadBlankSpace, b.Name)
			}
		}
	}
	if lastByte != dirOffset {
		if err := checkSigningBlock(buf, lastByte, dirOffset, limits); err != nil {
			return nil, err
		}
	}
	return blocks, nil
}

// checkSigningBlock accepts the gap [start, dirOffset) only if it ends with
// the APK signing block magic and is no larger than the limit.
func checkSigningBlock(buf []byte, start, dirOffset int64, limits Limits) error {
	gap := dirOffset - start
	magicLen := int64(len(SigningBlockMagic))
	if gap < magicLen || !bytes.Equal(buf[dirOffset-magicLen:dirOffset], []byte(SigningBlockMagic)) {
		return fmt.Errorf("%w: %d bytes between last file and central directory", ErrBadBlankSpace, gap)
	}
	if gap > limits.MaxSigningBlock {
		return fmt.Errorf("%w: %d bytes exceeds maximum of %d", ErrBadV2SigningBlock, gap, limits.MaxSigningBlock)
	}
	if !limits.CheckSigningBlockSizes {
		return nil
	}
	// size prefix, then size suffix and magic
	if gap < 8+8+magicLen {
		return fmt.Errorf("%w: truncated", ErrBadV2SigningBlock)
	}
	expected := uint64(gap - 8)
	size1 := newCursor(buf, start).uint64()
	size2 := newCursor(buf, dirOffset-magicLen-8).uint64()
	if size1 != expected || size2 != expected {
		return fmt.Errorf("%w: size fields %d and %d do not match %d", ErrBadV2SigningBlock, size1, size2, expected)
	}
	return nil
}
