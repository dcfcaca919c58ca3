/*
 * nanok - Global descriptor table and task state segment.
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

package cpu

// Descriptor is one GDT entry: a flat 4 GiB segment or a TSS descriptor.
// Real x86 packs this into 8 bytes (base/limit split across several
// fields, access and flag nibbles); nanok keeps base, limit, access and
// flags as plain Go fields instead of a packed bitfield, plus the selector
// that indexes the entry, since nothing here is ever handed to a real CPU.
type Descriptor struct {
	Base     uint32
	Limit    uint32
	Access   uint8
	Flags    uint8
	Selector uint16
}

// Segment selector indices into the GDT, fixed by spec.md §4.1: null,
// kernel code, kernel data, user code, user data, TSS.
const (
	SelNull uint16 = iota * 8
	SelKernelCode
	SelKernelData
	SelUserCode
	SelUserData
	SelTSS
)

const (
	accessPresent   uint8 = 1 << 7
	accessRing3     uint8 = 3 << 5
	accessCodeData  uint8 = 1 << 4
	accessExecRead  uint8 = 0x0a
	accessDataWrite uint8 = 0x02
	accessTSS32     uint8 = 0x09

	flagsGranular4K uint8 = 1 << 3
	flags32Bit      uint8 = 1 << 2
)

// TSS is the task-state segment. Protected-mode task switching is not
// used; only ESP0/SS0 matter, giving the CPU a kernel stack to switch to
// when an interrupt arrives while running at user privilege. Per spec.md
// §4.1 it covers "kernel stack 0" — the scheduler repoints ESP0 at the
// running PCB's kernel stack on every context switch.
type TSS struct {
	PrevTask uint16
	_        uint16
	ESP0     uint32
	SS0      uint16
	_        uint16
	// Remaining fields of the real 104-byte TSS are unused in a flat,
	// ring0-only kernel and are intentionally omitted.
}

type gdtTable struct {
	entries [6]Descriptor
	tss     TSS
	loaded  bool
}

var gdt gdtTable

// initGDT installs the six descriptors spec.md §4.1 names: null, kernel
// code, kernel data, user code, user data, and a TSS covering kernel
// stack 0.
func initGDT() {
	gdt.entries[0] = Descriptor{} // null descriptor, selector 0 must fault if used.

	gdt.entries[1] = Descriptor{ // kernel code
		Base: 0, Limit: 0xFFFFFFFF,
		Access: accessPresent | accessCodeData | accessExecRead,
		Flags:  flagsGranular4K | flags32Bit,
	}
	gdt.entries[2] = Descriptor{ // kernel data
		Base: 0, Limit: 0xFFFFFFFF,
		Access: accessPresent | accessCodeData | accessDataWrite,
		Flags:  flagsGranular4K | flags32Bit,
	}
	gdt.entries[3] = Descriptor{ // user code
		Base: 0, Limit: 0xFFFFFFFF,
		Access: accessPresent | accessRing3 | accessCodeData | accessExecRead,
		Flags:  flagsGranular4K | flags32Bit,
	}
	gdt.entries[4] = Descriptor{ // user data
		Base: 0, Limit: 0xFFFFFFFF,
		Access: accessPresent | accessRing3 | accessCodeData | accessDataWrite,
		Flags:  flagsGranular4K | flags32Bit,
	}
	gdt.entries[5] = Descriptor{ // TSS, base/limit filled by SetKernelStack.
		Access: accessPresent | accessTSS32,
	}
	gdt.tss = TSS{}
	gdt.loaded = true
}

// SetKernelStack repoints the TSS's ESP0/SS0 at top, the kernel stack the
// CPU will switch to on the next privilege-raising interrupt. The
// scheduler calls this on every context switch so a preempted user task
// always resumes kernel-mode work on its own stack.
func SetKernelStack(top uint32) {
	gdt.tss.ESP0 = top
	gdt.tss.SS0 = SelKernelData
}

// KernelStackTop returns the stack currently installed in the TSS,
// primarily for diagnostics and tests.
func KernelStackTop() uint32 {
	return gdt.tss.ESP0
}

// gdtLoaded reports whether initGDT has installed the table.
func gdtLoaded() bool {
	return gdt.loaded
}
