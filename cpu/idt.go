/*
 * nanok - Interrupt descriptor table and dispatch.
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

import "log/slog"

// Handler receives a fully populated interrupt Frame. ISRs that need to
// signal end-of-work to the PIC never do so themselves; Dispatch sends
// EOI after the handler returns, matching spec.md §4.1.
type Handler func(frame *Frame)

const vectorCount = 256

type idtTable struct {
	handlers [vectorCount]Handler
	loaded   bool
}

var idt idtTable

// initIDT installs stub coverage for all 256 vectors; no handler is
// registered yet. A vector with no registered Handler is dispatched to a
// default trap that logs (at Error level for CPU exceptions 0-31, Warn
// otherwise) and returns.
func initIDT() {
	idt.handlers = [vectorCount]Handler{}
	idt.loaded = true
}

// Register installs handler for vector, overwriting whatever was there.
// Per spec.md §4.1 mis-registration is silent — last writer wins, no
// error is returned.
func Register(vector uint8, handler Handler) {
	idt.handlers[vector] = handler
}

// Unregister clears vector's handler, restoring the default trap.
func Unregister(vector uint8) {
	idt.handlers[vector] = nil
}

// Dispatch delivers frame to the handler registered for frame.IntNo, then
// sends end-of-interrupt for hardware IRQ vectors (32-47): master only
// for 32-39, master and slave for 40-47. Dispatch is what the interrupt
// stub calls after building frame on entry; it is not reentrant and
// assumes interrupts are disabled for the duration, as real hardware
// guarantees for the vector currently being serviced.
func Dispatch(frame *Frame) {
	h := idt.handlers[frame.IntNo]
	if h == nil {
		defaultTrap(frame)
	} else {
		h(frame)
	}

	if frame.IntNo >= uint32(irqBase) && frame.IntNo < uint32(irqBase)+16 {
		sendEOI(uint8(frame.IntNo - uint32(irqBase)))
	}
	wakeHalted()
}

func defaultTrap(frame *Frame) {
	if frame.IntNo < 32 {
		slog.Error("unhandled CPU exception", "vector", frame.IntNo, "err", frame.ErrCode, "eip", frame.EIP)
		return
	}
	slog.Warn("unhandled interrupt", "vector", frame.IntNo)
}
