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

package zipslicer_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sassoftware/webapkverify/lib/zipslicer"
	"github.com/sassoftware/webapkverify/lib/zipslicer/ziptest"
)

func sampleEntries() []ziptest.Entry {
	return []ziptest.Entry{
		{Name: "AndroidManifest.xml", Data: []byte("<manifest/>")},
		{Name: "classes.dex", Data: bytes.Repeat([]byte{0xde, 0x0a}, 50)},
		{Name: "res/raw/empty", Data: nil},
	}
}

func readAll(buf []byte) (*zipslicer.EndRecord, []zipslicer.Block, error) {
	end, err := zipslicer.FindEndRecord(buf)
	if err != nil {
		return nil, nil, err
	}
	blocks, err := zipslicer.ReadDirectory(buf, end, zipslicer.DefaultLimits())
	return end, blocks, err
}

func TestFindEndRecord(t *testing.T) {
	a := &ziptest.Archive{Entries: sampleEntries(), Comment: []byte("webapk:0000:decafbad")}
	buf := a.Bytes()
	end, err := zipslicer.FindEndRecord(buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(3), end.RecordCount)
	assert.Equal(t, []byte("webapk:0000:decafbad"), end.Comment)
	assert.Equal(t, len(buf), int(end.EndOffset)+22+len(end.Comment))
	assert.Less(t, end.DirOffset, end.EndOffset)
}

func TestFindEndRecordBinaryComment(t *testing.T) {
	comment := []byte{0xff, 0xfe, 0x00, 0xc3, 0x28}
	buf := (&ziptest.Archive{Entries: sampleEntries(), Comment: comment}).Bytes()
	end, err := zipslicer.FindEndRecord(buf)
	require.NoError(t, err)
	assert.Equal(t, comment, end.Comment)
}

func TestFindEndRecordTrailingData(t *testing.T) {
	buf := (&ziptest.Archive{Entries: sampleEntries(), Comment: []byte("hello")}).Bytes()
	t.Run("Appended", func(t *testing.T) {
		_, err := zipslicer.FindEndRecord(append(append([]byte{}, buf...), 0))
		assert.ErrorIs(t, err, zipslicer.ErrTrailingData)
		assert.ErrorIs(t, err, zipslicer.ErrBadArchive)
	})
	t.Run("Truncated", func(t *testing.T) {
		_, err := zipslicer.FindEndRecord(buf[:len(buf)-1])
		assert.ErrorIs(t, err, zipslicer.ErrBadArchive)
	})
	t.Run("TruncatedNoComment", func(t *testing.T) {
		buf := (&ziptest.Archive{Entries: sampleEntries()}).Bytes()
		_, err := zipslicer.FindEndRecord(buf[:len(buf)-1])
		assert.ErrorIs(t, err, zipslicer.ErrBadArchive)
	})
}

func TestFindEndRecordNotZip(t *testing.T) {
	_, err := zipslicer.FindEndRecord([]byte("short"))
	assert.ErrorIs(t, err, zipslicer.ErrBadArchive)
	_, err = zipslicer.FindEndRecord(make([]byte, 100000))
	assert.ErrorIs(t, err, zipslicer.ErrBadArchive)
}

func TestReadDirectory(t *testing.T) {
	a := &ziptest.Archive{Entries: sampleEntries()}
	a.Entries[1].LocalExtra = []byte{0, 0, 0}
	// directory order differs from file order
	a.DirOrder = []int{2, 0, 1}
	buf := a.Bytes()
	_, blocks, err := readAll(buf)
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	assert.Equal(t, "AndroidManifest.xml", blocks[0].Name)
	assert.Equal(t, "classes.dex", blocks[1].Name)
	assert.Equal(t, "res/raw/empty", blocks[2].Name)
	assert.Equal(t, uint32(0), blocks[0].Position)
	assert.Equal(t, uint32(30+len("classes.dex")+3), blocks[1].HeaderSize)
	payload, err := blocks[1].Payload(buf)
	require.NoError(t, err)
	assert.Equal(t, a.Entries[1].Data, payload)
}

func TestReadDirectoryEmpty(t *testing.T) {
	_, blocks, err := readAll((&ziptest.Archive{}).Bytes())
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestReadDirectoryDataDescriptor(t *testing.T) {
	for _, style := range []int{ziptest.Descriptor, ziptest.DescriptorWithMagic} {
		a := &ziptest.Archive{Entries: sampleEntries()}
		a.Entries[0].Descriptor = style
		a.Entries[2].Descriptor = style
		_, blocks, err := readAll(a.Bytes())
		require.NoError(t, err, "descriptor style %d", style)
		assert.Len(t, blocks, 3)
	}
}

func TestReadDirectoryGap(t *testing.T) {
	a := &ziptest.Archive{Entries: sampleEntries(), Gap: []byte{0}}
	_, _, err := readAll(a.Bytes())
	assert.ErrorIs(t, err, zipslicer.ErrBadBlankSpace)

	// looks like a signing block from the start but lacks the magic
	block := ziptest.SigningBlock(64)
	a.Gap = block[:len(block)-1]
	_, _, err = readAll(a.Bytes())
	assert.ErrorIs(t, err, zipslicer.ErrBadBlankSpace)
}

func TestReadDirectoryGapBetweenEntries(t *testing.T) {
	a := &ziptest.Archive{Entries: sampleEntries()}
	buf := a.Bytes()
	end, err := zipslicer.FindEndRecord(buf)
	require.NoError(t, err)
	// shift the second entry's recorded offset by one byte
	pos := int(end.DirOffset)
	for i := 0; i < 2; i++ {
		nameLen := int(binary.LittleEndian.Uint16(buf[pos+28:]))
		if i == 1 {
			off := binary.LittleEndian.Uint32(buf[pos+42:])
			binary.LittleEndian.PutUint32(buf[pos+42:], off+1)
		}
		pos += 46 + nameLen
	}
	_, err = zipslicer.ReadDirectory(buf, end, zipslicer.DefaultLimits())
	assert.ErrorIs(t, err, zipslicer.ErrBadBlankSpace)
}

func TestReadDirectorySigningBlock(t *testing.T) {
	a := &ziptest.Archive{Entries: sampleEntries(), Gap: ziptest.SigningBlock(1000)}
	_, blocks, err := readAll(a.Bytes())
	require.NoError(t, err)
	assert.Len(t, blocks, 3)

	t.Run("TooLarge", func(t *testing.T) {
		a := &ziptest.Archive{Entries: sampleEntries(), Gap: ziptest.SigningBlock(zipslicer.DefaultMaxSigningBlock)}
		_, _, err := readAll(a.Bytes())
		assert.ErrorIs(t, err, zipslicer.ErrBadV2SigningBlock)
	})
	t.Run("SizeFieldsIgnored", func(t *testing.T) {
		block := ziptest.SigningBlock(100)
		block[0]++
		a := &ziptest.Archive{Entries: sampleEntries(), Gap: block}
		_, blocks, err := readAll(a.Bytes())
		require.NoError(t, err)
		assert.Len(t, blocks, 3)
	})
	t.Run("SizeFieldsChecked", func(t *testing.T) {
		block := ziptest.SigningBlock(100)
		block[0]++
		buf := (&ziptest.Archive{Entries: sampleEntries(), Gap: block}).Bytes()
		end, err := zipslicer.FindEndRecord(buf)
		require.NoError(t, err)
		limits := zipslicer.DefaultLimits()
		limits.CheckSigningBlockSizes = true
		_, err = zipslicer.ReadDirectory(buf, end, limits)
		assert.ErrorIs(t, err, zipslicer.ErrBadV2SigningBlock)
	})
	t.Run("MagicOnly", func(t *testing.T) {
		a := &ziptest.Archive{Entries: sampleEntries(), Gap: []byte(zipslicer.SigningBlockMagic)}
		_, _, err := readAll(a.Bytes())
		require.NoError(t, err)
	})
	t.Run("ZeroFilled", func(t *testing.T) {
		gap := append(make([]byte, 100), zipslicer.SigningBlockMagic...)
		a := &ziptest.Archive{Entries: sampleEntries(), Gap: gap}
		_, _, err := readAll(a.Bytes())
		require.NoError(t, err)
	})
}

func TestReadDirectorySigningBlockBoundary(t *testing.T) {
	gapOf := func(n int) []byte {
		return append(make([]byte, n-len(zipslicer.SigningBlockMagic)), zipslicer.SigningBlockMagic...)
	}
	a := &ziptest.Archive{Entries: sampleEntries(), Gap: gapOf(zipslicer.DefaultMaxSigningBlock)}
	_, _, err := readAll(a.Bytes())
	require.NoError(t, err)

	a = &ziptest.Archive{Entries: sampleEntries(), Gap: gapOf(zipslicer.DefaultMaxSigningBlock + 1)}
	_, _, err = readAll(a.Bytes())
	assert.ErrorIs(t, err, zipslicer.ErrBadV2SigningBlock)
}

func TestReadDirectoryFileComment(t *testing.T) {
	a := &ziptest.Archive{Entries: sampleEntries()}
	a.Entries[1].Comment = []byte("x")
	_, _, err := readAll(a.Bytes())
	assert.ErrorIs(t, err, zipslicer.ErrFileCommentTooLarge)
}

func TestReadDirectoryExtraField(t *testing.T) {
	a := &ziptest.Archive{Entries: sampleEntries()}
	a.Entries[0].LocalExtra = make([]byte, zipslicer.DefaultMaxExtraField+1)
	_, _, err := readAll(a.Bytes())
	assert.ErrorIs(t, err, zipslicer.ErrExtraFieldTooLarge)

	a = &ziptest.Archive{Entries: sampleEntries()}
	a.Entries[0].DirExtra = make([]byte, zipslicer.DefaultMaxExtraField+1)
	_, _, err = readAll(a.Bytes())
	assert.ErrorIs(t, err, zipslicer.ErrExtraFieldTooLarge)
}

func TestReadDirectoryRecordCount(t *testing.T) {
	buf := (&ziptest.Archive{Entries: sampleEntries()}).Bytes()
	end, err := zipslicer.FindEndRecord(buf)
	require.NoError(t, err)
	// one record left over before the end record
	end.RecordCount--
	_, err = zipslicer.ReadDirectory(buf, end, zipslicer.DefaultLimits())
	assert.ErrorIs(t, err, zipslicer.ErrBadBlankSpace)
	// one record too many runs into the end record
	end.RecordCount += 2
	_, err = zipslicer.ReadDirectory(buf, end, zipslicer.DefaultLimits())
	assert.ErrorIs(t, err, zipslicer.ErrBadArchive)
}

func TestTruncatedArchivesNeverPanic(t *testing.T) {
	a := &ziptest.Archive{Entries: sampleEntries(), Gap: ziptest.SigningBlock(10), Comment: []byte("c")}
	a.Entries[0].Descriptor = ziptest.DescriptorWithMagic
	buf := a.Bytes()
	for n := 0; n < len(buf); n++ {
		assert.NotPanics(t, func() {
			_, _, err := readAll(buf[:n])
			assert.Error(t, err)
		})
	}
	// flip each byte in turn; any outcome is fine as long as it returns
	for i := range buf {
		mutated := append([]byte{}, buf...)
		mutated[i] ^= 0xff
		assert.NotPanics(t, func() { _, _, _ = readAll(mutated) })
	}
}
