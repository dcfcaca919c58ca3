/*
 * nanok - Physical memory manager.
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

// Package pmm is the physical memory manager: a page-granular bitmap
// allocator seeded from the multiboot memory map (spec.md §4.2). It
// follows the teacher's global-singleton-module convention (see
// emu/memory in the teacher tree) — one package-level state value,
// guarded where an ISR could observe it mid-update, initialized once by
// Init with no hidden constructor ordering.
package pmm

import (
	"sync"

	"github.com/nanok-project/nanok/cpu"
)

const (
	// PageSize is the frame granularity; all allocations are one page.
	PageSize = 4096

	// maxSupportedBytes bounds the bitmap at 1 GiB of addressable
	// physical memory, per spec.md §4.2's "bitmap is oversized (supports
	// 1 GiB)"; frames beyond the reported total stay permanently marked
	// used.
	maxSupportedBytes = 1 << 30
	maxFrames         = maxSupportedBytes / PageSize

	// lowMemReserved is the BIOS/legacy low megabyte, always reserved.
	lowMemReserved = 1 * 1024 * 1024
)

// MemoryMapEntry mirrors one multiboot-1 memory map record: (base,
// length, type). Type 1 is AVAILABLE; every other type is reserved.
type MemoryMapEntry struct {
	Base   uint64
	Length uint64
	Type   uint32
}

const TypeAvailable uint32 = 1

type state struct {
	mu            sync.Mutex
	bitmap        [maxFrames / 8]byte // bit set == frame allocated.
	totalBytes    uint64              // bytes reported by the memory map as available, pre-reservation.
	reservedBytes uint64              // reserved bytes (low 1 MiB + kernel region) that fall within an AVAILABLE region.
	reservedEnd   uint32              // first frame after the reserved region (low 1 MiB + kernel region).
	scanFrom      int                 // first frame index eligible for allocation; speeds up linear scan.
}

var pmm state

// kernelRegionBytes is the size of the fixed kernel region reserved above
// the low megabyte, per spec.md §4.2.
const kernelRegionBytes = 1 * 1024 * 1024

// Init scans mmap, marking every AVAILABLE region free and reserving the
// low megabyte plus a fixed kernel region immediately above it. Frames
// outside any AVAILABLE region, and all frames beyond maxFrames, are left
// permanently allocated.
func Init(mmap []MemoryMapEntry) {
	pmm.mu.Lock()
	defer pmm.mu.Unlock()

	for i := range pmm.bitmap {
		pmm.bitmap[i] = 0xFF // default: every frame allocated until proven AVAILABLE.
	}
	pmm.totalBytes = 0
	pmm.reservedBytes = 0

	reservedEnd := uint64(lowMemReserved + kernelRegionBytes)
	for _, region := range mmap {
		if region.Type != TypeAvailable {
			continue
		}
		pmm.totalBytes += region.Length
		pmm.reservedBytes += overlapBytes(region.Base, region.Length, 0, reservedEnd)
		markRangeFree(region.Base, region.Length)
	}

	pmm.reservedEnd = uint32(reservedEnd)
	markRangeUsedLocked(0, uint32(reservedEnd))
	pmm.scanFrom = int(reservedEnd / PageSize)
}

// overlapBytes returns the length of the intersection of [aBase, aBase+aLen)
// and [bBase, bBase+bLen).
func overlapBytes(aBase, aLen, bBase, bLen uint64) uint64 {
	aEnd := aBase + aLen
	bEnd := bBase + bLen
	start := aBase
	if bBase > start {
		start = bBase
	}
	end := aEnd
	if bEnd < end {
		end = bEnd
	}
	if end <= start {
		return 0
	}
	return end - start
}

func markRangeFree(base, length uint64) {
	start := base / PageSize
	end := (base + length) / PageSize
	for f := start; f < end && f < maxFrames; f++ {
		clearBit(uint32(f))
	}
}

func markRangeUsedLocked(base, end uint32) {
	start := base / PageSize
	last := end / PageSize
	for f := start; f < last && f < maxFrames; f++ {
		setBit(f)
	}
}

func setBit(frame uint32) {
	pmm.bitmap[frame/8] |= 1 << (frame % 8)
}

func clearBit(frame uint32) {
	pmm.bitmap[frame/8] &^= 1 << (frame % 8)
}

func testBit(frame uint32) bool {
	return pmm.bitmap[frame/8]&(1<<(frame%8)) != 0
}

// AllocPage returns the physical address of a free frame at or above the
// reserved region, or 0 if none remain. Allocation scans the bitmap
// linearly from the first post-kernel page and returns the lowest-index
// free frame, per spec.md §4.2's tie-break policy.
func AllocPage() uint32 {
	prior := cpu.SaveFlags()
	defer cpu.RestoreFlags(prior)

	pmm.mu.Lock()
	defer pmm.mu.Unlock()

	for f := pmm.scanFrom; f < maxFrames; f++ {
		if !testBit(uint32(f)) {
			setBit(uint32(f))
			pmm.scanFrom = f + 1
			return uint32(f) * PageSize
		}
	}
	return 0
}

// FreePage clears the bit for the frame at addr. Double-free is silently
// ignored since the bit is already zero, per spec.md §4.2.
func FreePage(addr uint32) {
	prior := cpu.SaveFlags()
	defer cpu.RestoreFlags(prior)

	pmm.mu.Lock()
	defer pmm.mu.Unlock()

	frame := addr / PageSize
	if frame >= maxFrames {
		return
	}
	clearBit(frame)
	if int(frame) < pmm.scanFrom {
		pmm.scanFrom = int(frame)
	}
}

// TotalMemory returns the byte total reported by the multiboot memory
// map's AVAILABLE regions, minus the reserved low megabyte and kernel
// region (only the portion of each that actually falls within an
// AVAILABLE region is subtracted).
func TotalMemory() uint64 {
	pmm.mu.Lock()
	defer pmm.mu.Unlock()
	return pmm.totalBytes - pmm.reservedBytes
}

// FreeMemory returns the number of free bytes currently in the bitmap.
func FreeMemory() uint64 {
	pmm.mu.Lock()
	defer pmm.mu.Unlock()
	var free uint64
	for f := 0; f < maxFrames; f++ {
		if !testBit(uint32(f)) {
			free += PageSize
		}
	}
	return free
}

// Stats reports the aggregate view used by diagnostics commands.
type Stats struct {
	TotalBytes     uint64
	FreeBytes      uint64
	AllocatedBytes uint64
	ReservedBytes  uint64
}

// StatsSnapshot computes Stats in one pass under the package lock.
func StatsSnapshot() Stats {
	pmm.mu.Lock()
	defer pmm.mu.Unlock()

	var free, used uint64
	for f := 0; f < maxFrames; f++ {
		if testBit(uint32(f)) {
			used += PageSize
		} else {
			free += PageSize
		}
	}
	return Stats{
		TotalBytes:     pmm.totalBytes,
		FreeBytes:      free,
		AllocatedBytes: used,
		ReservedBytes:  uint64(pmm.reservedEnd),
	}
}

// SetBitCount returns the number of frames currently marked allocated,
// exposed only for asserting testable property 1 (PMM alloc/free
// round-trip).
func SetBitCount() int {
	pmm.mu.Lock()
	defer pmm.mu.Unlock()
	count := 0
	for f := 0; f < maxFrames; f++ {
		if testBit(uint32(f)) {
			count++
		}
	}
	return count
}
