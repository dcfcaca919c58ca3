/*
 * nanok - 8259 programmable interrupt controller.
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

// irqBase is the vector the master PIC's IRQ0 is remapped to. Real BIOS
// defaults overlap vectors 8-15 with CPU exceptions; spec.md §4.1 mandates
// remapping IRQ0-15 to 32-47 to avoid that collision.
const irqBase uint8 = 32

const (
	picMasterCmd  = 0x20
	picMasterData = 0x21
	picSlaveCmd   = 0xA0
	picSlaveData  = 0xA1

	icw1Init  = 0x11 // ICW1: edge triggered, cascade mode, expect ICW4.
	icw4x86   = 0x01 // ICW4: 8086/88 mode.

	picEOI = 0x20
)

var picMask = struct {
	master, slave uint8
}{master: 0xFF, slave: 0xFF}

// remapPIC reprograms both 8259 controllers to route IRQ0-7 to vectors
// 32-39 and IRQ8-15 to 40-47, per spec.md §4.1. All lines start masked;
// callers unmask individual IRQs as their drivers come up (keyboard.Init
// unmasks IRQ1, pit.Start unmasks IRQ0).
func remapPIC() {
	Outb(picMasterCmd, icw1Init)
	Outb(picSlaveCmd, icw1Init)
	Outb(picMasterData, irqBase)      // ICW2: master base vector.
	Outb(picSlaveData, irqBase+8)     // ICW2: slave base vector.
	Outb(picMasterData, 0x04)         // ICW3: slave attached on IRQ2.
	Outb(picSlaveData, 0x02)          // ICW3: slave's cascade identity.
	Outb(picMasterData, icw4x86)
	Outb(picSlaveData, icw4x86)

	picMask.master = 0xFF
	picMask.slave = 0xFF
	Outb(picMasterData, picMask.master)
	Outb(picSlaveData, picMask.slave)
}

// UnmaskIRQ enables delivery of irq (0-15).
func UnmaskIRQ(irq uint8) {
	if irq < 8 {
		picMask.master &^= 1 << irq
		Outb(picMasterData, picMask.master)
		return
	}
	picMask.slave &^= 1 << (irq - 8)
	Outb(picSlaveData, picMask.slave)
}

// MaskIRQ disables delivery of irq (0-15).
func MaskIRQ(irq uint8) {
	if irq < 8 {
		picMask.master |= 1 << irq
		Outb(picMasterData, picMask.master)
		return
	}
	picMask.slave |= 1 << (irq - 8)
	Outb(picSlaveData, picMask.slave)
}

func sendEOI(irq uint8) {
	if irq >= 8 {
		Outb(picSlaveCmd, picEOI)
	}
	Outb(picMasterCmd, picEOI)
}
