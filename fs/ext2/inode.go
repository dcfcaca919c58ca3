/*
 * nanok - ext2 inode codec.
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

// File-type bits of the inode mode's high nibble; directory entries use
// the separate FileType* tags.
const (
	ModeFIFO   = 0x1000
	ModeChar   = 0x2000
	ModeDir    = 0x4000
	ModeBlock  = 0x6000
	ModeRegular = 0x8000
	modeTypeMask = 0xF000
	modePermMask = 0x0FFF
)

// Inode is the in-memory decoding of one on-disk inode record: type and
// mode, size, link count, the 12 direct plus single/double/triple
// indirect block pointers, and timestamps, per spec.md §3.
type Inode struct {
	Mode   uint16
	Size   uint32
	Links  uint16
	ATime  uint32
	CTime  uint32
	MTime  uint32
	Direct [12]uint32
	Single uint32
	Double uint32
	Triple uint32
}

func (in *Inode) IsDir() bool { return in.Mode&modeTypeMask == ModeDir }

func decodeInode(raw []byte) Inode {
	var in Inode
	in.Mode = binary.LittleEndian.Uint16(raw[0:2])
	in.Size = binary.LittleEndian.Uint32(raw[4:8])
	in.ATime = binary.LittleEndian.Uint32(raw[8:12])
	in.CTime = binary.LittleEndian.Uint32(raw[12:16])
	in.MTime = binary.LittleEndian.Uint32(raw[16:20])
	in.Links = binary.LittleEndian.Uint16(raw[26:28])
	for i := 0; i < 12; i++ {
		off := 40 + i*4
		in.Direct[i] = binary.LittleEndian.Uint32(raw[off : off+4])
	}
	in.Single = binary.LittleEndian.Uint32(raw[88:92])
	in.Double = binary.LittleEndian.Uint32(raw[92:96])
	in.Triple = binary.LittleEndian.Uint32(raw[96:100])
	return in
}

func (in *Inode) encode() []byte {
	raw := make([]byte, inodeSize128)
	binary.LittleEndian.PutUint16(raw[0:2], in.Mode)
	binary.LittleEndian.PutUint32(raw[4:8], in.Size)
	binary.LittleEndian.PutUint32(raw[8:12], in.ATime)
	binary.LittleEndian.PutUint32(raw[12:16], in.CTime)
	binary.LittleEndian.PutUint32(raw[16:20], in.MTime)
	binary.LittleEndian.PutUint16(raw[26:28], in.Links)
	for i := 0; i < 12; i++ {
		off := 40 + i*4
		binary.LittleEndian.PutUint32(raw[off:off+4], in.Direct[i])
	}
	binary.LittleEndian.PutUint32(raw[88:92], in.Single)
	binary.LittleEndian.PutUint32(raw[92:96], in.Double)
	binary.LittleEndian.PutUint32(raw[96:100], in.Triple)
	return raw
}
