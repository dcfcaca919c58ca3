/*
 * nanok - Interrupt frame type.
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

// Package cpu models the x86 segmentation and interrupt-dispatch layer:
// the GDT/TSS, the IDT, the 8259 PIC remap, and the interrupt-frame
// convention every ISR receives. Nothing here runs on real silicon — nanok
// is a software simulation of the hardware documented in spec.md §4.1 and
// §6, built the way the teacher builds its own simulated CPU: explicit Go
// structs standing in for registers and tables, driven by a software loop
// that reproduces the documented state transitions exactly.
package cpu

// Frame is the interrupt frame every registered handler receives,
// matching spec.md §4.1's "segment registers, general registers,
// interrupt number, error code, and iret frame".
type Frame struct {
	// Segment registers, pushed first by the stub (lowest addresses).
	GS, FS, ES, DS uint32

	// General-purpose registers, pushed by pusha order.
	EDI, ESI, EBP, ESPDummy, EBX, EDX, ECX, EAX uint32

	// Interrupt number and CPU-pushed (or stub-pushed zero) error code.
	IntNo, ErrCode uint32

	// The iret frame: instruction pointer, code segment, flags, and,
	// only present on a privilege-level change, the user stack pointer
	// and stack segment. nanok's flat segmentation model never changes
	// privilege level across an interrupt, so UserESP/UserSS are unused
	// but kept present for layout fidelity with spec.md §4.1.
	EIP, CS, EFlags, UserESP, UserSS uint32
}
