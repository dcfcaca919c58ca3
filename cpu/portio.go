/*
 * nanok - I/O port read/write simulation.
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

import "sync"

// PortHandler backs one I/O port: In is called for an `in` instruction,
// Out for an `out` instruction. Drivers register the ports they own
// (PIC, PIT, PS/2 controller, poweroff word) instead of the kernel
// hard-coding every device's port behavior in one place.
type PortHandler struct {
	In  func() uint8
	Out func(v uint8)
}

var (
	portMu    sync.Mutex
	ports     = map[uint16]*PortHandler{}
	portStore = map[uint16]uint8{} // last value written/read, for unregistered ports.
)

// RegisterPort installs h as the handler for port, used by whichever
// simulated device owns that address. Installing on an already-registered
// port overwrites it, the same last-writer-wins policy spec.md §4.1
// specifies for interrupt vector registration.
func RegisterPort(port uint16, h *PortHandler) {
	portMu.Lock()
	defer portMu.Unlock()
	ports[port] = h
}

// Outb writes v to port, Inb reads one byte. Outw/Inw and Outl/Inl
// compose two or four Outb/Inb calls the way a real 16/32-bit port access
// decomposes into consecutive byte lanes on an 8-bit simulated bus.
func Outb(port uint16, v uint8) {
	portMu.Lock()
	h := ports[port]
	portMu.Unlock()
	if h != nil && h.Out != nil {
		h.Out(v)
		return
	}
	portMu.Lock()
	portStore[port] = v
	portMu.Unlock()
}

func Inb(port uint16) uint8 {
	portMu.Lock()
	h := ports[port]
	portMu.Unlock()
	if h != nil && h.In != nil {
		return h.In()
	}
	portMu.Lock()
	defer portMu.Unlock()
	return portStore[port]
}

func Outw(port uint16, v uint16) {
	Outb(port, uint8(v))
	Outb(port+1, uint8(v>>8))
}

func Inw(port uint16) uint16 {
	lo := Inb(port)
	hi := Inb(port + 1)
	return uint16(hi)<<8 | uint16(lo)
}

func Outl(port uint16, v uint32) {
	Outw(port, uint16(v))
	Outw(port+2, uint16(v>>16))
}

func Inl(port uint16) uint32 {
	lo := Inw(port)
	hi := Inw(port + 2)
	return uint32(hi)<<16 | uint32(lo)
}
