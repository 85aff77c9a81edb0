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

// cursor reads little-endian fields from a buffer. The first out-of-range
// read sets err and every later read is a no-op returning zero.
type cursor struct {
	buf []byte
	pos int64
	err error
}

func newCursor(buf []byte, pos int64) *cursor {
	return &cursor{buf: buf, pos: pos}
}

func (c *cursor) take(n int64) []byte {
	if c.err != nil {
		return nil
	}
	if n < 0 || c.pos < 0 || c.pos+n > int64(len(c.buf)) {
		c.err = fmt.Errorf("%w: read of %d bytes at offset %d is out of range", ErrBadArchive, n, c.pos)
		return nil
	}
	d := c.buf[c.pos : c.pos+n]
	c.pos += n
	return d
}

func (c *cursor) skip(n int64) {
	c.take(n)
}

func (c *cursor) uint16() uint16 {
	d := c.take(2)
	if d == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(d)
}

func (c *cursor) uint32() uint32 {
	d := c.take(4)
	if d == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(d)
}

func (c *cursor) uint64() uint64 {
	d := c.take(8)
	if d == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(d)
}

func (c *cursor) bytes(n int64) []byte {
	return c.take(n)
}
