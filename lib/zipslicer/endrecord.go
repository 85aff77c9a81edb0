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
	"encoding/binary"
	"fmt"
)

// FindEndRecord locates the end of central directory record by scanning
// backwards from the end of buf. The record and its comment must reach
// exactly to the end of the buffer.
func FindEndRecord(buf []byte) (*EndRecord, error) {
	size := int64(len(buf))
	if size < directoryEndLen {
		return nil, fmt.Errorf("%w: %d bytes is too short for a zip file", ErrBadArchive, size)
	}
	start := size - directoryEndLen
	stop := start - maxCommentLen
	if stop < 0 {
		stop = 0
	}
	for pos := start; pos >= stop; pos-- {
		if binary.LittleEndian.Uint32(buf[pos:]) == directoryEndSignature {
			return readEndRecord(buf, pos)
		}
	}
	return nil, fmt.Errorf("%w: end of central directory not found", ErrBadArchive)
}

func readEndRecord(buf []byte, pos int64) (*EndRecord, error) {
	c := newCursor(buf, pos)
	// signature, disk number, directory disk, entries on this disk
	c.skip(10)
	count := c.uint16()
	// directory size is implied by walking the records
	c.skip(4)
	dirOffset := c.uint32()
	commentLen := c.uint16()
	comment := c.bytes(int64(commentLen))
	if c.err != nil {
		return nil, c.err
	}
	if c.pos != int64(len(buf)) {
		return nil, fmt.Errorf("%w: %d bytes follow the archive comment", ErrTrailingData, int64(len(buf))-c.pos)
	}
	return &EndRecord{
		RecordCount: count,
		DirOffset:   dirOffset,
		EndOffset:   uint32(pos),
		Comment:     comment,
	}, nil
}
