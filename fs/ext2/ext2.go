/*
 * nanok - ext2 filesystem backend.
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
	"encoding/binary"
	"strings"
	"sync"
	"time"

	"github.com/nanok-project/nanok/blockdev"
	"github.com/nanok-project/nanok/util/kerr"
)

// FS is one mounted ext2-family filesystem instance bound to a block
// device. All operations are serialized by mu; the backend is documented
// as not interrupt-reentrant (spec.md §5), so this is an ordinary mutex
// rather than an interrupt-save section.
type FS struct {
	mu              sync.Mutex
	dev             blockdev.Ops
	sb              *Superblock
	groups          []GroupDesc
	sectorsPerBlock int
}

// Mount reads the superblock and group descriptor table from dev.
// Fails with ErrBadMagic or ErrIO without side effects if the magic
// mismatches or a critical read fails, per spec.md §4.6.
func Mount(dev blockdev.Ops) (*FS, kerr.KError) {
	devBlockSize := dev.GetBlockSize()
	sbSectors := superblockSize / devBlockSize
	if sbSectors == 0 {
		sbSectors = 1
	}
	raw := make([]byte, sbSectors*devBlockSize)
	lba := uint64(SuperblockOffset / devBlockSize)
	if err := dev.ReadBlocks(lba, sbSectors, raw); !err.Ok() {
		return nil, kerr.ErrIO
	}

	sb, err := decodeSuperblock(raw)
	if !err.Ok() {
		return nil, err
	}

	fsBlockSize := int(sb.BlockSize())
	sectorsPerBlock := fsBlockSize / devBlockSize
	if sectorsPerBlock == 0 {
		sectorsPerBlock = 1
	}

	fs := &FS{dev: dev, sb: sb, sectorsPerBlock: sectorsPerBlock}

	groupCount := int(sb.GroupCount())
	cached := groupCount
	if cached > maxCachedGroups {
		cached = maxCachedGroups
	}
	gdtStart := gdtBlock(sb)
	bytesNeeded := groupCount * groupDescSize
	blocksNeeded := (bytesNeeded + fsBlockSize - 1) / fsBlockSize

	fs.groups = make([]GroupDesc, 0, cached)
	for b := 0; b < blocksNeeded; b++ {
		block, err := fs.readBlock(gdtStart + uint32(b))
		if !err.Ok() {
			return nil, kerr.ErrIO
		}
		for off := 0; off+groupDescSize <= len(block) && len(fs.groups) < cached; off += groupDescSize {
			fs.groups = append(fs.groups, decodeGroupDesc(block[off:off+groupDescSize]))
		}
	}

	return fs, kerr.OK
}

func (fs *FS) readBlock(blockNum uint32) ([]byte, kerr.KError) {
	buf := make([]byte, fs.sb.BlockSize())
	lba := uint64(blockNum) * uint64(fs.sectorsPerBlock)
	if err := fs.dev.ReadBlocks(lba, fs.sectorsPerBlock, buf); !err.Ok() {
		return nil, kerr.ErrBlockReadWrite
	}
	return buf, kerr.OK
}

func (fs *FS) writeBlock(blockNum uint32, data []byte) kerr.KError {
	lba := uint64(blockNum) * uint64(fs.sectorsPerBlock)
	if err := fs.dev.WriteBlocks(lba, fs.sectorsPerBlock, data); !err.Ok() {
		return kerr.ErrBlockReadWrite
	}
	return kerr.OK
}

func (fs *FS) groupOf(number, perGroup uint32) (group int, idxInGroup uint32) {
	return int((number - 1) / perGroup), (number - 1) % perGroup
}

// allocBlock scans groups in order for the lowest-numbered free block,
// per spec.md §4.6's tie-break policy.
func (fs *FS) allocBlock() (uint32, kerr.KError) {
	for g := range fs.groups {
		bitmap, err := fs.readBlock(fs.groups[g].BlockBitmap)
		if !err.Ok() {
			return 0, err
		}
		for byteIdx, b := range bitmap {
			if b == 0xFF {
				continue
			}
			for bit := 0; bit < 8; bit++ {
				if b&(1<<bit) == 0 {
					bitmap[byteIdx] |= 1 << bit
					if err := fs.writeBlock(fs.groups[g].BlockBitmap, bitmap); !err.Ok() {
						return 0, err
					}
					blockNum := fs.sb.FirstDataBlock + uint32(g)*fs.sb.BlocksPerGroup + uint32(byteIdx*8+bit)
					fs.groups[g].FreeBlocksCount--
					fs.sb.FreeBlocksCount--
					fs.flushMetadata(g)
					return blockNum, kerr.OK
				}
			}
		}
	}
	return 0, kerr.ErrBlockExhausted
}

func (fs *FS) freeBlock(blockNum uint32) {
	rel := blockNum - fs.sb.FirstDataBlock
	g := int(rel / fs.sb.BlocksPerGroup)
	idx := rel % fs.sb.BlocksPerGroup
	if g < 0 || g >= len(fs.groups) {
		return
	}
	bitmap, err := fs.readBlock(fs.groups[g].BlockBitmap)
	if !err.Ok() {
		return
	}
	bitmap[idx/8] &^= 1 << (idx % 8)
	fs.writeBlock(fs.groups[g].BlockBitmap, bitmap)
	fs.groups[g].FreeBlocksCount++
	fs.sb.FreeBlocksCount++
	fs.flushMetadata(g)
}

// allocInode scans groups in order for the lowest-numbered free inode.
func (fs *FS) allocInode() (uint32, kerr.KError) {
	for g := range fs.groups {
		bitmap, err := fs.readBlock(fs.groups[g].InodeBitmap)
		if !err.Ok() {
			return 0, err
		}
		for byteIdx := range bitmap {
			if bitmap[byteIdx] == 0xFF {
				continue
			}
			for bit := 0; bit < 8; bit++ {
				if bitmap[byteIdx]&(1<<bit) == 0 {
					bitmap[byteIdx] |= 1 << bit
					if err := fs.writeBlock(fs.groups[g].InodeBitmap, bitmap); !err.Ok() {
						return 0, err
					}
					inodeNum := uint32(g)*fs.sb.InodesPerGroup + uint32(byteIdx*8+bit) + 1
					fs.groups[g].FreeInodesCount--
					fs.sb.FreeInodesCount--
					fs.flushMetadata(g)
					return inodeNum, kerr.OK
				}
			}
		}
	}
	return 0, kerr.ErrInodeExhausted
}

func (fs *FS) freeInode(inodeNum uint32) {
	g, idx := fs.groupOf(inodeNum, fs.sb.InodesPerGroup)
	if g < 0 || g >= len(fs.groups) {
		return
	}
	bitmap, err := fs.readBlock(fs.groups[g].InodeBitmap)
	if !err.Ok() {
		return
	}
	bitmap[idx/8] &^= 1 << (idx % 8)
	fs.writeBlock(fs.groups[g].InodeBitmap, bitmap)
	fs.groups[g].FreeInodesCount++
	fs.sb.FreeInodesCount++
	fs.flushMetadata(g)
}

// flushMetadata writes group g's descriptor and the superblock back to
// disk, per spec.md §4.6's "flush affected metadata before returning".
func (fs *FS) flushMetadata(g int) {
	gdtStart := gdtBlock(fs.sb)
	blockIdx := (g * groupDescSize) / int(fs.sb.BlockSize())
	block, err := fs.readBlock(gdtStart + uint32(blockIdx))
	if err.Ok() {
		offsetInBlock := (g * groupDescSize) % int(fs.sb.BlockSize())
		copy(block[offsetInBlock:offsetInBlock+groupDescSize], fs.groups[g].encode())
		fs.writeBlock(gdtStart+uint32(blockIdx), block)
	}

	devBlockSize := fs.dev.GetBlockSize()
	sbSectors := superblockSize / devBlockSize
	if sbSectors == 0 {
		sbSectors = 1
	}
	fs.dev.WriteBlocks(uint64(SuperblockOffset/devBlockSize), sbSectors, fs.sb.encode())
}

func (fs *FS) readInode(num uint32) (Inode, kerr.KError) {
	g, idx := fs.groupOf(num, fs.sb.InodesPerGroup)
	if g < 0 || g >= len(fs.groups) {
		return Inode{}, kerr.ErrInvalidArg
	}
	inodeSize := uint32(fs.sb.EffectiveInodeSize())
	perBlock := fs.sb.BlockSize() / inodeSize
	blockOffset := idx / perBlock
	offInBlock := (idx % perBlock) * inodeSize

	block, err := fs.readBlock(fs.groups[g].InodeTable + blockOffset)
	if !err.Ok() {
		return Inode{}, err
	}
	return decodeInode(block[offInBlock : offInBlock+inodeSize]), kerr.OK
}

func (fs *FS) writeInode(num uint32, in *Inode) kerr.KError {
	g, idx := fs.groupOf(num, fs.sb.InodesPerGroup)
	if g < 0 || g >= len(fs.groups) {
		return kerr.ErrInvalidArg
	}
	inodeSize := uint32(fs.sb.EffectiveInodeSize())
	perBlock := fs.sb.BlockSize() / inodeSize
	blockOffset := idx / perBlock
	offInBlock := (idx % perBlock) * inodeSize

	block, err := fs.readBlock(fs.groups[g].InodeTable + blockOffset)
	if !err.Ok() {
		return err
	}
	copy(block[offInBlock:offInBlock+inodeSize], in.encode())
	return fs.writeBlock(fs.groups[g].InodeTable+blockOffset, block)
}

// blockForIndex resolves a logical block index to a physical block
// number, walking direct pointers then single/double/triple indirect
// blocks, allocating fresh blocks along the way when alloc is true, per
// spec.md §4.6's "same recursive rule" description.
func (fs *FS) blockForIndex(in *Inode, inodeNum uint32, logical uint32, alloc bool) (uint32, kerr.KError) {
	ppb := fs.sb.BlockSize() / 4

	if logical < 12 {
		return fs.resolveDirect(in, inodeNum, logical, alloc)
	}
	logical -= 12

	if logical < ppb {
		return fs.resolveIndirect(&in.Single, logical, 1, ppb, alloc, func() kerr.KError { return fs.writeInode(inodeNum, in) })
	}
	logical -= ppb

	if logical < ppb*ppb {
		return fs.resolveIndirect(&in.Double, logical, 2, ppb, alloc, func() kerr.KError { return fs.writeInode(inodeNum, in) })
	}
	logical -= ppb * ppb

	return fs.resolveIndirect(&in.Triple, logical, 3, ppb, alloc, func() kerr.KError { return fs.writeInode(inodeNum, in) })
}

func (fs *FS) resolveDirect(in *Inode, inodeNum uint32, logical uint32, alloc bool) (uint32, kerr.KError) {
	if in.Direct[logical] != 0 {
		return in.Direct[logical], kerr.OK
	}
	if !alloc {
		return 0, kerr.OK
	}
	blk, err := fs.allocBlock()
	if !err.Ok() {
		return 0, err
	}
	in.Direct[logical] = blk
	if err := fs.writeInode(inodeNum, in); !err.Ok() {
		return 0, err
	}
	return blk, kerr.OK
}

// resolveIndirect walks `level` levels of indirection (1=single,
// 2=double, 3=triple) starting from *root, allocating blocks as needed.
func (fs *FS) resolveIndirect(root *uint32, logical uint32, level int, ppb uint32, alloc bool, persistRoot func() kerr.KError) (uint32, kerr.KError) {
	if *root == 0 {
		if !alloc {
			return 0, kerr.OK
		}
		blk, err := fs.allocBlock()
		if !err.Ok() {
			return 0, err
		}
		*root = blk
		if err := persistRoot(); !err.Ok() {
			return 0, err
		}
		zero := make([]byte, fs.sb.BlockSize())
		fs.writeBlock(blk, zero)
	}

	block, err := fs.readBlock(*root)
	if !err.Ok() {
		return 0, err
	}

	if level == 1 {
		ptr := binary.LittleEndian.Uint32(block[logical*4 : logical*4+4])
		if ptr != 0 {
			return ptr, kerr.OK
		}
		if !alloc {
			return 0, kerr.OK
		}
		blk, err := fs.allocBlock()
		if !err.Ok() {
			return 0, err
		}
		binary.LittleEndian.PutUint32(block[logical*4:logical*4+4], blk)
		if err := fs.writeBlock(*root, block); !err.Ok() {
			return 0, err
		}
		return blk, kerr.OK
	}

	// One entry of this block covers ppb^(level-1) logical blocks.
	span := uint32(1)
	for i := 1; i < level; i++ {
		span *= ppb
	}
	entryIdx := logical / span
	rest := logical % span

	entryPtr := binary.LittleEndian.Uint32(block[entryIdx*4 : entryIdx*4+4])
	entryPtrCopy := entryPtr
	persistEntry := func() kerr.KError {
		binary.LittleEndian.PutUint32(block[entryIdx*4:entryIdx*4+4], entryPtrCopy)
		return fs.writeBlock(*root, block)
	}

	result, err := fs.resolveIndirectEntry(&entryPtrCopy, rest, level-1, ppb, alloc, persistEntry)
	return result, err
}

func (fs *FS) resolveIndirectEntry(entry *uint32, logical uint32, level int, ppb uint32, alloc bool, persistEntry func() kerr.KError) (uint32, kerr.KError) {
	return fs.resolveIndirect(entry, logical, level, ppb, alloc, persistEntry)
}

// --- path resolution -------------------------------------------------

func splitPath(path string) []string {
	clean := strings.Trim(path, "/")
	if clean == "" {
		return nil
	}
	return strings.Split(clean, "/")
}

// lookupInDir scans dirInode's data blocks for name, returning its
// inode number and file-type tag.
func (fs *FS) lookupInDir(dirInode uint32, name string) (uint32, uint8, kerr.KError) {
	in, err := fs.readInode(dirInode)
	if !err.Ok() {
		return 0, 0, err
	}
	blockSize := fs.sb.BlockSize()
	blocks := (in.Size + blockSize - 1) / blockSize
	for b := uint32(0); b < blocks; b++ {
		blockNum, err := fs.blockForIndex(&in, dirInode, b, false)
		if !err.Ok() || blockNum == 0 {
			continue
		}
		block, err := fs.readBlock(blockNum)
		if !err.Ok() {
			continue
		}
		for _, e := range decodeDirBlock(block) {
			if e.Name == name {
				return e.Inode, e.FileType, kerr.OK
			}
		}
	}
	return 0, 0, kerr.ErrFileNotFound
}

// Resolve walks path from the root inode, component by component,
// failing with ErrFileNotFound on the first missing component.
func (fs *FS) Resolve(path string) (uint32, kerr.KError) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.resolveLocked(path)
}

func (fs *FS) resolveLocked(path string) (uint32, kerr.KError) {
	current := uint32(rootInode)
	for _, part := range splitPath(path) {
		next, _, err := fs.lookupInDir(current, part)
		if !err.Ok() {
			return 0, err
		}
		current = next
	}
	return current, kerr.OK
}

func splitParentName(path string) (parent string, name string) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return "/", ""
	}
	name = parts[len(parts)-1]
	parent = "/" + strings.Join(parts[:len(parts)-1], "/")
	return parent, name
}

// --- reads and writes --------------------------------------------------

// ReadAt copies up to len(buf) bytes starting at position pos of the file
// at inodeNum, per spec.md §4.6's "file read" contract.
func (fs *FS) ReadAt(inodeNum uint32, pos int64, buf []byte) (int, kerr.KError) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	in, err := fs.readInode(inodeNum)
	if !err.Ok() {
		return 0, err
	}
	blockSize := int64(fs.sb.BlockSize())
	total := 0
	for total < len(buf) && pos < int64(in.Size) {
		logical := uint32(pos / blockSize)
		offInBlock := pos % blockSize
		blockNum, err := fs.blockForIndex(&in, inodeNum, logical, false)
		if !err.Ok() {
			return total, err
		}
		remainInFile := int64(in.Size) - pos
		remainInBlock := blockSize - offInBlock
		want := int64(len(buf) - total)
		n := want
		if remainInBlock < n {
			n = remainInBlock
		}
		if remainInFile < n {
			n = remainInFile
		}
		if blockNum == 0 {
			for i := int64(0); i < n; i++ {
				buf[int64(total)+i] = 0
			}
		} else {
			block, err := fs.readBlock(blockNum)
			if !err.Ok() {
				return total, err
			}
			copy(buf[total:int64(total)+n], block[offInBlock:offInBlock+n])
		}
		total += int(n)
		pos += n
	}
	return total, kerr.OK
}

// WriteAt writes data starting at position pos into the file at
// inodeNum, allocating blocks on demand and extending Size, per
// spec.md §4.6's "file write" contract.
func (fs *FS) WriteAt(inodeNum uint32, pos int64, data []byte) (int, kerr.KError) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	in, err := fs.readInode(inodeNum)
	if !err.Ok() {
		return 0, err
	}
	blockSize := int64(fs.sb.BlockSize())
	total := 0
	for total < len(data) {
		logical := uint32(pos / blockSize)
		offInBlock := pos % blockSize
		blockNum, err := fs.blockForIndex(&in, inodeNum, logical, true)
		if !err.Ok() {
			return total, err
		}
		block, err := fs.readBlock(blockNum)
		if !err.Ok() {
			return total, err
		}
		n := blockSize - offInBlock
		if remain := int64(len(data) - total); remain < n {
			n = remain
		}
		copy(block[offInBlock:offInBlock+n], data[total:int64(total)+n])
		if err := fs.writeBlock(blockNum, block); !err.Ok() {
			return total, err
		}
		total += int(n)
		pos += n
	}

	if uint32(pos) > in.Size {
		in.Size = uint32(pos)
	}
	in.MTime = uint32(time.Now().Unix())
	if err := fs.writeInode(inodeNum, &in); !err.Ok() {
		return total, err
	}
	return total, kerr.OK
}

// --- directory mutation -------------------------------------------------

// appendDirEntry appends one record to dirInode's data, allocating a new
// data block when no existing record has enough padding, per
// spec.md §4.6.
func (fs *FS) appendDirEntry(dirInode uint32, childInode uint32, fileType uint8, name string) kerr.KError {
	in, err := fs.readInode(dirInode)
	if !err.Ok() {
		return err
	}
	blockSize := fs.sb.BlockSize()
	need := entrySize(len(name))
	blocks := (in.Size + blockSize - 1) / blockSize

	for b := uint32(0); b < blocks; b++ {
		blockNum, err := fs.blockForIndex(&in, dirInode, b, false)
		if !err.Ok() || blockNum == 0 {
			continue
		}
		block, err := fs.readBlock(blockNum)
		if !err.Ok() {
			continue
		}
		pos := 0
		for pos+directEntryHeaderSize <= len(block) {
			inode := binary.LittleEndian.Uint32(block[pos : pos+4])
			recLen := binary.LittleEndian.Uint16(block[pos+4 : pos+6])
			if recLen < directEntryHeaderSize {
				break
			}
			nameLen := int(block[pos+6])
			used := uint16(directEntryHeaderSize + nameLen)
			if used%4 != 0 {
				used += 4 - used%4
			}
			if inode != 0 && recLen-used >= need {
				newOffset := pos + int(used)
				encodeDirEntry(block, pos, inode, block[pos+7], string(block[pos+8:pos+8+nameLen]), used)
				encodeDirEntry(block, newOffset, childInode, fileType, name, recLen-used)
				return fs.writeBlock(blockNum, block)
			}
			pos += int(recLen)
		}
	}

	logical := blocks
	blk, err := fs.blockForIndex(&in, dirInode, logical, true)
	if !err.Ok() || blk == 0 {
		return kerr.ErrDirFull
	}
	block := make([]byte, blockSize)
	encodeDirEntry(block, 0, childInode, fileType, name, uint16(blockSize))
	if err := fs.writeBlock(blk, block); !err.Ok() {
		return err
	}

	in, err = fs.readInode(dirInode)
	if !err.Ok() {
		return err
	}
	in.Size += blockSize
	in.MTime = uint32(time.Now().Unix())
	return fs.writeInode(dirInode, &in)
}

// CreateFile creates a regular file at path, per spec.md §4.6.
func (fs *FS) CreateFile(path string) (uint32, kerr.KError) {
	return fs.create(path, ModeRegular, FileTypeRegular)
}

// CreateDir creates a directory at path, per spec.md §4.6.
func (fs *FS) CreateDir(path string) (uint32, kerr.KError) {
	return fs.create(path, ModeDir, FileTypeDir)
}

func (fs *FS) create(path string, mode uint16, fileType uint8) (uint32, kerr.KError) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	parentPath, name := splitParentName(path)
	if name == "" {
		return 0, kerr.ErrBadPath
	}
	parentInode, err := fs.resolveLocked(parentPath)
	if !err.Ok() {
		return 0, err
	}
	if _, _, err := fs.lookupInDir(parentInode, name); err.Ok() {
		return 0, kerr.ErrFileExists
	}

	newInodeNum, err := fs.allocInode()
	if !err.Ok() {
		return 0, err
	}

	now := uint32(time.Now().Unix())
	in := Inode{Mode: mode, CTime: now, MTime: now, ATime: now}
	if fileType == FileTypeDir {
		in.Links = 2
		blk, err := fs.allocBlock()
		if !err.Ok() {
			fs.freeInode(newInodeNum)
			return 0, err
		}
		block := make([]byte, fs.sb.BlockSize())
		initDirBlock(block, newInodeNum, parentInode)
		if err := fs.writeBlock(blk, block); !err.Ok() {
			return 0, err
		}
		in.Direct[0] = blk
		in.Size = fs.sb.BlockSize()
	} else {
		in.Links = 1
	}
	if err := fs.writeInode(newInodeNum, &in); !err.Ok() {
		return 0, err
	}

	if err := fs.appendDirEntry(parentInode, newInodeNum, fileType, name); !err.Ok() {
		return 0, err
	}
	if fileType == FileTypeDir {
		parentIn, _ := fs.readInode(parentInode)
		g, _ := fs.groupOf(parentInode, fs.sb.InodesPerGroup)
		if g >= 0 && g < len(fs.groups) {
			fs.groups[g].UsedDirsCount++
			fs.flushMetadata(g)
		}
		_ = parentIn
	}
	return newInodeNum, kerr.OK
}

// Entry is one listed directory member, per spec.md §4.6's listing
// callback.
type Entry struct {
	Name     string
	Size     uint32
	IsDir    bool
}

// List invokes fn once per live entry in the directory at path.
func (fs *FS) List(path string, fn func(Entry)) kerr.KError {
	fs.mu.Lock()
	dirInode, err := fs.resolveLocked(path)
	fs.mu.Unlock()
	if !err.Ok() {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	in, err := fs.readInode(dirInode)
	if !err.Ok() {
		return err
	}
	blockSize := fs.sb.BlockSize()
	blocks := (in.Size + blockSize - 1) / blockSize
	for b := uint32(0); b < blocks; b++ {
		blockNum, err := fs.blockForIndex(&in, dirInode, b, false)
		if !err.Ok() || blockNum == 0 {
			continue
		}
		block, err := fs.readBlock(blockNum)
		if !err.Ok() {
			continue
		}
		for _, e := range decodeDirBlock(block) {
			childInode, err := fs.readInode(e.Inode)
			size := uint32(0)
			if err.Ok() {
				size = childInode.Size
			}
			fn(Entry{Name: e.Name, Size: size, IsDir: e.FileType == FileTypeDir})
		}
	}
	return kerr.OK
}

// Stat reports size and type for path without opening it (added beyond
// the minimal contract).
func (fs *FS) Stat(path string) (Entry, kerr.KError) {
	inodeNum, err := fs.Resolve(path)
	if !err.Ok() {
		return Entry{}, err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	in, err := fs.readInode(inodeNum)
	if !err.Ok() {
		return Entry{}, err
	}
	_, name := splitParentName(path)
	return Entry{Name: name, Size: in.Size, IsDir: in.IsDir()}, kerr.OK
}

// Remove deletes the file or (empty) directory at path.
func (fs *FS) Remove(path string) kerr.KError {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	parentPath, name := splitParentName(path)
	parentInode, err := fs.resolveLocked(parentPath)
	if !err.Ok() {
		return err
	}
	childInode, fileType, err := fs.lookupInDir(parentInode, name)
	if !err.Ok() {
		return err
	}

	in, err := fs.readInode(childInode)
	if !err.Ok() {
		return err
	}
	if fileType == FileTypeDir {
		blockSize := fs.sb.BlockSize()
		blocks := (in.Size + blockSize - 1) / blockSize
		count := 0
		for b := uint32(0); b < blocks; b++ {
			blockNum, err := fs.blockForIndex(&in, childInode, b, false)
			if !err.Ok() || blockNum == 0 {
				continue
			}
			block, _ := fs.readBlock(blockNum)
			count += len(decodeDirBlock(block))
		}
		if count > 2 {
			return kerr.ErrAccess
		}
		in.Links = 1 // the "." self-link goes away with the directory itself.
	}

	if err := fs.removeDirEntry(parentInode, name); !err.Ok() {
		return err
	}

	in.Links--
	if in.Links == 0 {
		fs.freeInodeBlocks(&in)
		fs.freeInode(childInode)
	} else {
		fs.writeInode(childInode, &in)
	}
	return kerr.OK
}

func (fs *FS) freeInodeBlocks(in *Inode) {
	for _, b := range in.Direct {
		if b != 0 {
			fs.freeBlock(b)
		}
	}
	if in.Single != 0 {
		fs.freeIndirectBlock(in.Single, 1)
	}
	if in.Double != 0 {
		fs.freeIndirectBlock(in.Double, 2)
	}
	if in.Triple != 0 {
		fs.freeIndirectBlock(in.Triple, 3)
	}
}

func (fs *FS) freeIndirectBlock(blockNum uint32, level int) {
	block, err := fs.readBlock(blockNum)
	if !err.Ok() {
		return
	}
	ppb := fs.sb.BlockSize() / 4
	for i := uint32(0); i < ppb; i++ {
		ptr := binary.LittleEndian.Uint32(block[i*4 : i*4+4])
		if ptr == 0 {
			continue
		}
		if level > 1 {
			fs.freeIndirectBlock(ptr, level-1)
		} else {
			fs.freeBlock(ptr)
		}
	}
	fs.freeBlock(blockNum)
}

func (fs *FS) removeDirEntry(dirInode uint32, name string) kerr.KError {
	in, err := fs.readInode(dirInode)
	if !err.Ok() {
		return err
	}
	blockSize := fs.sb.BlockSize()
	blocks := (in.Size + blockSize - 1) / blockSize
	for b := uint32(0); b < blocks; b++ {
		blockNum, err := fs.blockForIndex(&in, dirInode, b, false)
		if !err.Ok() || blockNum == 0 {
			continue
		}
		block, err := fs.readBlock(blockNum)
		if !err.Ok() {
			continue
		}
		pos := 0
		prevOffset := -1
		for pos+directEntryHeaderSize <= len(block) {
			inode := binary.LittleEndian.Uint32(block[pos : pos+4])
			recLen := binary.LittleEndian.Uint16(block[pos+4 : pos+6])
			nameLen := int(block[pos+6])
			if recLen < directEntryHeaderSize {
				break
			}
			entryName := string(block[pos+8 : pos+8+nameLen])
			if inode != 0 && entryName == name {
				if prevOffset >= 0 {
					prevRecLen := binary.LittleEndian.Uint16(block[prevOffset+4 : prevOffset+6])
					binary.LittleEndian.PutUint16(block[prevOffset+4:prevOffset+6], prevRecLen+recLen)
				} else {
					binary.LittleEndian.PutUint32(block[pos:pos+4], 0)
				}
				return fs.writeBlock(blockNum, block)
			}
			prevOffset = pos
			pos += int(recLen)
		}
	}
	return kerr.ErrFileNotFound
}
