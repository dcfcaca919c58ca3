/*
 * nanok - ext2 directory entry codec.
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

const (
	directEntryHeaderSize = 8 // inode(4) + rec_len(2) + name_len(1) + file_type(1)

	FileTypeUnknown = 0
	FileTypeRegular = 1
	FileTypeDir     = 2
)

// dirEntry is one on-disk directory entry, per spec.md §6: `u32 inode,
// u16 rec_len, u8 name_len, u8 file_type, name[name_len]`, padded to 4
// bytes.
type dirEntry struct {
	Inode    uint32
	RecLen   uint16
	FileType uint8
	Name     string
}

func entrySize(nameLen int) uint16 {
	size := directEntryHeaderSize + nameLen
	if rem := size % 4; rem != 0 {
		size += 4 - rem
	}
	return uint16(size)
}

// decodeDirBlock walks one filesystem block of directory entries via
// rec_len, stopping at the block boundary; spec.md §3 guarantees
// rec_len sums to the block size.
func decodeDirBlock(block []byte) []dirEntry {
	var entries []dirEntry
	pos := 0
	for pos+directEntryHeaderSize <= len(block) {
		inode := binary.LittleEndian.Uint32(block[pos : pos+4])
		recLen := binary.LittleEndian.Uint16(block[pos+4 : pos+6])
		nameLen := int(block[pos+6])
		fileType := block[pos+7]
		if recLen < directEntryHeaderSize || pos+int(recLen) > len(block) {
			break
		}
		if inode != 0 {
			name := string(block[pos+8 : pos+8+nameLen])
			entries = append(entries, dirEntry{Inode: inode, RecLen: recLen, FileType: fileType, Name: name})
		} else if recLen == 0 {
			break
		}
		pos += int(recLen)
	}
	return entries
}

// encodeDirEntry writes one entry at block[offset:]; the next entry starts
// at offset+recLen.
func encodeDirEntry(block []byte, offset int, inode uint32, fileType uint8, name string, recLen uint16) {
	binary.LittleEndian.PutUint32(block[offset:offset+4], inode)
	binary.LittleEndian.PutUint16(block[offset+4:offset+6], recLen)
	block[offset+6] = byte(len(name))
	block[offset+7] = fileType
	copy(block[offset+8:offset+8+len(name)], name)
}

// initDirBlock lays out a freshly allocated directory data block
// containing "." and ".." as the only two entries, the second one's
// rec_len padded out to the end of the block.
func initDirBlock(block []byte, self, parent uint32) {
	dotLen := entrySize(1)
	encodeDirEntry(block, 0, self, FileTypeDir, ".", dotLen)
	remaining := uint16(len(block)) - dotLen
	encodeDirEntry(block, int(dotLen), parent, FileTypeDir, "..", remaining)
}
