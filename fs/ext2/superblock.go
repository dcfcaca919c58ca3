/*
 * nanok - ext2 superblock codec.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package ext2 implements the single on-disk filesystem backend: an
// EXT2-family layout with block-map addressing (no extents), per
// spec.md §4.6. The superblock/group/inode field layout follows the
// real EXT2 on-disk format closely enough that the magic number lands at
// the byte offset spec.md §6 names; fields the backend never reads
// (OS-dependent padding, reserved UID/GID, directory hash seeds) are not
// modeled: decode skips them and encode writes them as zero.
package ext2

import (
	"encoding/binary"

	"github.com/nanok-project/nanok/util/kerr"
)

const (
	// SuperblockOffset is the fixed byte offset of the superblock on the
	// device, per spec.md §4.6.
	SuperblockOffset = 1024
	superblockSize   = 1024

	// magicOffset is the offset of s_magic *within* the superblock, so
	// that SuperblockOffset+magicOffset == 1080 matches spec.md §6.
	magicOffset = 56

	magic uint16 = 0xEF53

	rootInode = 2

	// inodeSize128 is the fixed inode record size for revision 0
	// filesystems, per spec.md §3.
	inodeSize128 = 128
)

// Superblock is the subset of on-disk superblock fields the backend
// consults.
type Superblock struct {
	InodesCount     uint32
	BlocksCount     uint32
	FreeBlocksCount uint32
	FreeInodesCount uint32
	FirstDataBlock  uint32
	LogBlockSize    uint32
	BlocksPerGroup  uint32
	InodesPerGroup  uint32
	Magic           uint16
	RevLevel        uint32
	FirstIno        uint32
	InodeSize       uint16
}

// BlockSize returns the filesystem block size in bytes: 1024 << LogBlockSize.
func (sb *Superblock) BlockSize() uint32 {
	return 1024 << sb.LogBlockSize
}

// GroupCount returns the number of block groups, derived from BlocksCount
// and BlocksPerGroup.
func (sb *Superblock) GroupCount() uint32 {
	n := sb.BlocksCount / sb.BlocksPerGroup
	if sb.BlocksCount%sb.BlocksPerGroup != 0 {
		n++
	}
	return n
}

// EffectiveInodeSize reports 128 for revision 0, or the on-disk field for
// revision >= 1, per spec.md §3.
func (sb *Superblock) EffectiveInodeSize() uint16 {
	if sb.RevLevel == 0 {
		return inodeSize128
	}
	return sb.InodeSize
}

// decodeSuperblock parses 1024 raw bytes read from device offset 1024.
// Fails with ErrBadMagic without side effects if the magic does not
// match, per spec.md §3's mount invariant.
func decodeSuperblock(raw []byte) (*Superblock, kerr.KError) {
	if len(raw) < superblockSize {
		return nil, kerr.ErrIO
	}
	sb := &Superblock{
		InodesCount:     binary.LittleEndian.Uint32(raw[0:4]),
		BlocksCount:     binary.LittleEndian.Uint32(raw[4:8]),
		FreeBlocksCount: binary.LittleEndian.Uint32(raw[12:16]),
		FreeInodesCount: binary.LittleEndian.Uint32(raw[16:20]),
		FirstDataBlock:  binary.LittleEndian.Uint32(raw[20:24]),
		LogBlockSize:    binary.LittleEndian.Uint32(raw[24:28]),
		BlocksPerGroup:  binary.LittleEndian.Uint32(raw[32:36]),
		InodesPerGroup:  binary.LittleEndian.Uint32(raw[40:44]),
		Magic:           binary.LittleEndian.Uint16(raw[magicOffset : magicOffset+2]),
		RevLevel:        binary.LittleEndian.Uint32(raw[76:80]),
	}
	if sb.Magic != magic {
		return nil, kerr.ErrBadMagic
	}
	if sb.RevLevel >= 1 && len(raw) >= 92 {
		sb.FirstIno = binary.LittleEndian.Uint32(raw[84:88])
		sb.InodeSize = binary.LittleEndian.Uint16(raw[88:90])
	}
	return sb, kerr.OK
}

// encode serializes sb back into a fresh 1024-byte superblock buffer,
// preserving the fields the backend never models as zero.
func (sb *Superblock) encode() []byte {
	raw := make([]byte, superblockSize)
	binary.LittleEndian.PutUint32(raw[0:4], sb.InodesCount)
	binary.LittleEndian.PutUint32(raw[4:8], sb.BlocksCount)
	binary.LittleEndian.PutUint32(raw[12:16], sb.FreeBlocksCount)
	binary.LittleEndian.PutUint32(raw[16:20], sb.FreeInodesCount)
	binary.LittleEndian.PutUint32(raw[20:24], sb.FirstDataBlock)
	binary.LittleEndian.PutUint32(raw[24:28], sb.LogBlockSize)
	binary.LittleEndian.PutUint32(raw[32:36], sb.BlocksPerGroup)
	binary.LittleEndian.PutUint32(raw[40:44], sb.InodesPerGroup)
	binary.LittleEndian.PutUint16(raw[magicOffset:magicOffset+2], sb.Magic)
	binary.LittleEndian.PutUint32(raw[76:80], sb.RevLevel)
	if sb.RevLevel >= 1 {
		binary.LittleEndian.PutUint32(raw[84:88], sb.FirstIno)
		binary.LittleEndian.PutUint16(raw[88:90], sb.InodeSize)
	}
	return raw
}
