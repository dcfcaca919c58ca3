/*
 * nanok - ext2 block group descriptor codec.
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

package ext2

import "encoding/binary"

const groupDescSize = 32

// GroupDesc is one block-group descriptor, per spec.md §3.
type GroupDesc struct {
	BlockBitmap     uint32
	InodeBitmap     uint32
	InodeTable      uint32
	FreeBlocksCount uint16
	FreeInodesCount uint16
	UsedDirsCount   uint16
}

func decodeGroupDesc(raw []byte) GroupDesc {
	return GroupDesc{
		BlockBitmap:     binary.LittleEndian.Uint32(raw[0:4]),
		InodeBitmap:     binary.LittleEndian.Uint32(raw[4:8]),
		InodeTable:      binary.LittleEndian.Uint32(raw[8:12]),
		FreeBlocksCount: binary.LittleEndian.Uint16(raw[12:14]),
		FreeInodesCount: binary.LittleEndian.Uint16(raw[14:16]),
		UsedDirsCount:   binary.LittleEndian.Uint16(raw[16:18]),
	}
}

func (g GroupDesc) encode() []byte {
	raw := make([]byte, groupDescSize)
	binary.LittleEndian.PutUint32(raw[0:4], g.BlockBitmap)
	binary.LittleEndian.PutUint32(raw[4:8], g.InodeBitmap)
	binary.LittleEndian.PutUint32(raw[8:12], g.InodeTable)
	binary.LittleEndian.PutUint16(raw[12:14], g.FreeBlocksCount)
	binary.LittleEndian.PutUint16(raw[14:16], g.FreeInodesCount)
	binary.LittleEndian.PutUint16(raw[16:18], g.UsedDirsCount)
	return raw
}

// gdtBlock returns the block number the group descriptor table starts
// at: block 2 for 1024-byte blocks (block 0 is boot, block 1 is the
// superblock), block 1 otherwise (the superblock shares block 0 when
// blocks are larger than 1024 bytes), per spec.md §4.6.
func gdtBlock(sb *Superblock) uint32 {
	if sb.BlockSize() == 1024 {
		return 2
	}
	return 1
}

// maxCachedGroups bounds the in-memory group descriptor cache, per
// spec.md §3's "bounded number of group descriptors".
const maxCachedGroups = 32
