/*
 * nanok - ext2 filesystem backend test cases.
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

import (
	"testing"

	"github.com/nanok-project/nanok/util/kerr"
)

// memDevice is an in-memory blockdev.Ops used to back the filesystem
// under test without touching the host filesystem.
type memDevice struct {
	blockSize int
	data      []byte
}

func newMemDevice(blockSize, blockCount int) *memDevice {
	return &memDevice{blockSize: blockSize, data: make([]byte, blockSize*blockCount)}
}

func (m *memDevice) ReadBlocks(lba uint64, count int, buf []byte) kerr.KError {
	off := int(lba) * m.blockSize
	copy(buf, m.data[off:off+count*m.blockSize])
	return kerr.OK
}

func (m *memDevice) WriteBlocks(lba uint64, count int, data []byte) kerr.KError {
	off := int(lba) * m.blockSize
	copy(m.data[off:off+count*m.blockSize], data[:count*m.blockSize])
	return kerr.OK
}

func (m *memDevice) GetBlockSize() int     { return m.blockSize }
func (m *memDevice) GetBlockCount() uint64 { return uint64(len(m.data) / m.blockSize) }
func (m *memDevice) IsReady() bool         { return true }

// formatMinimal writes a tiny single-group filesystem directly using the
// package's own encoders, standing in for a host-side mkfs tool.
func formatMinimal(t *testing.T) *memDevice {
	t.Helper()
	const (
		blockSize      = 1024
		blocksPerGroup = 65
		inodesPerGroup = 32
		totalBlocks    = 65
		firstDataBlock = 1
	)
	dev := newMemDevice(blockSize, totalBlocks+16) // headroom for data blocks.

	sb := &Superblock{
		InodesCount:     inodesPerGroup,
		BlocksCount:     blocksPerGroup,
		FreeBlocksCount: 0, // filled in below.
		FreeInodesCount: inodesPerGroup - 2,
		FirstDataBlock:  firstDataBlock,
		LogBlockSize:    0,
		BlocksPerGroup:  blocksPerGroup,
		InodesPerGroup:  inodesPerGroup,
		Magic:           magic,
		RevLevel:        0,
	}

	// Layout: block0 unused, block1 superblock, block2 gdt, block3 block
	// bitmap, block4 inode bitmap, blocks5-8 inode table (4 blocks for
	// 32*128 = 4096 bytes), block9 root directory data, rest free.
	const (
		blockBitmapBlock = 3
		inodeBitmapBlock = 4
		inodeTableStart  = 5
		inodeTableBlocks = 4
		rootDataBlock    = 9
	)

	gd := GroupDesc{
		BlockBitmap: blockBitmapBlock,
		InodeBitmap: inodeBitmapBlock,
		InodeTable:  inodeTableStart,
		FreeBlocksCount: uint16(blocksPerGroup - (rootDataBlock - firstDataBlock + 1)),
		FreeInodesCount: inodesPerGroup - 2,
		UsedDirsCount:   1,
	}
	sb.FreeBlocksCount = uint32(gd.FreeBlocksCount)

	writeBlockRaw := func(blockNum int, data []byte) {
		off := blockNum * blockSize
		copy(dev.data[off:off+len(data)], data)
	}

	writeBlockRaw(1, sb.encode())
	writeBlockRaw(2, gd.encode())

	blockBitmap := make([]byte, blockSize)
	for i := 0; i <= rootDataBlock-firstDataBlock; i++ {
		blockBitmap[i/8] |= 1 << (i % 8)
	}
	writeBlockRaw(blockBitmapBlock, blockBitmap)

	inodeBitmap := make([]byte, blockSize)
	inodeBitmap[0] |= 0b11 // inodes 1 and 2 reserved/root.
	writeBlockRaw(inodeBitmapBlock, inodeBitmap)

	rootIn := Inode{Mode: ModeDir, Links: 2, Size: blockSize}
	rootIn.Direct[0] = rootDataBlock
	inodeTable := make([]byte, inodeTableBlocks*blockSize)
	copy(inodeTable[128:256], rootIn.encode()) // inode 2 is the second 128-byte slot.
	for b := 0; b < inodeTableBlocks; b++ {
		writeBlockRaw(inodeTableStart+b, inodeTable[b*blockSize:(b+1)*blockSize])
	}

	rootData := make([]byte, blockSize)
	initDirBlock(rootData, rootInode, rootInode)
	writeBlockRaw(rootDataBlock, rootData)

	return dev
}

func TestMountReadsSuperblockAndGroups(t *testing.T) {
	dev := formatMinimal(t)
	fs, err := Mount(dev)
	if !err.Ok() {
		t.Fatalf("mount failed: %v", err)
	}
	if len(fs.groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(fs.groups))
	}
	if fs.sb.BlockSize() != 1024 {
		t.Fatalf("expected 1024-byte blocks, got %d", fs.sb.BlockSize())
	}
}

func TestMountFailsOnBadMagic(t *testing.T) {
	dev := newMemDevice(1024, 8)
	if _, err := Mount(dev); err != kerr.ErrBadMagic {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}
}

func TestCreateWriteReadRoundTrip(t *testing.T) {
	dev := formatMinimal(t)
	fs, err := Mount(dev)
	if !err.Ok() {
		t.Fatalf("mount failed: %v", err)
	}

	inodeNum, err := fs.CreateFile("/hello.txt")
	if !err.Ok() {
		t.Fatalf("create failed: %v", err)
	}

	want := []byte("hello, ext2-family filesystem")
	if _, err := fs.WriteAt(inodeNum, 0, want); !err.Ok() {
		t.Fatalf("write failed: %v", err)
	}

	got := make([]byte, len(want))
	n, err := fs.ReadAt(inodeNum, 0, got)
	if !err.Ok() {
		t.Fatalf("read failed: %v", err)
	}
	if n != len(want) || string(got) != string(want) {
		t.Fatalf("round trip mismatch: got %q want %q", got[:n], want)
	}

	st, err := fs.Stat("/hello.txt")
	if !err.Ok() || st.Size != uint32(len(want)) {
		t.Fatalf("stat mismatch: %+v err=%v", st, err)
	}
}

func TestCreateDirAndList(t *testing.T) {
	dev := formatMinimal(t)
	fs, _ := Mount(dev)

	if _, err := fs.CreateDir("/sub"); !err.Ok() {
		t.Fatalf("mkdir failed: %v", err)
	}
	if _, err := fs.CreateFile("/sub/a.txt"); !err.Ok() {
		t.Fatalf("create in subdir failed: %v", err)
	}

	var names []string
	if err := fs.List("/sub", func(e Entry) { names = append(names, e.Name) }); !err.Ok() {
		t.Fatalf("list failed: %v", err)
	}
	found := false
	for _, n := range names {
		if n == "a.txt" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a.txt in listing, got %v", names)
	}
}

func TestRemoveFile(t *testing.T) {
	dev := formatMinimal(t)
	fs, _ := Mount(dev)

	fs.CreateFile("/gone.txt")
	if err := fs.Remove("/gone.txt"); !err.Ok() {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := fs.Resolve("/gone.txt"); err != kerr.ErrFileNotFound {
		t.Fatalf("expected ErrFileNotFound after remove, got %v", err)
	}
}

func TestRemoveNonEmptyDirFails(t *testing.T) {
	dev := formatMinimal(t)
	fs, _ := Mount(dev)

	fs.CreateDir("/sub")
	fs.CreateFile("/sub/a.txt")
	if err := fs.Remove("/sub"); err != kerr.ErrAccess {
		t.Fatalf("expected ErrAccess removing non-empty dir, got %v", err)
	}
}

func TestWriteAcrossMultipleBlocks(t *testing.T) {
	dev := formatMinimal(t)
	fs, _ := Mount(dev)

	inodeNum, _ := fs.CreateFile("/big.bin")
	data := make([]byte, 3000) // spans 3 blocks at 1024 bytes each.
	for i := range data {
		data[i] = byte(i % 251)
	}
	if _, err := fs.WriteAt(inodeNum, 0, data); !err.Ok() {
		t.Fatalf("write failed: %v", err)
	}
	got := make([]byte, len(data))
	if _, err := fs.ReadAt(inodeNum, 0, got); !err.Ok() {
		t.Fatalf("read failed: %v", err)
	}
	for i := range data {
		if data[i] != got[i] {
			t.Fatalf("mismatch at byte %d: want %d got %d", i, data[i], got[i])
		}
	}
}
