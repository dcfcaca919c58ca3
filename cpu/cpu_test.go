/*
 * nanok - CPU bring-up and interrupt dispatch test cases.
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

import "testing"

func TestDispatchRoutesToRegisteredHandler(t *testing.T) {
	Init()
	called := false
	var got *Frame
	Register(0x21, func(f *Frame) {
		called = true
		got = f
	})
	defer Unregister(0x21)

	frame := &Frame{IntNo: 0x21, EAX: 42}
	Dispatch(frame)

	if !called {
		t.Fatal("handler was not invoked")
	}
	if got.EAX != 42 {
		t.Fatalf("frame not passed through: got EAX=%d", got.EAX)
	}
}

func TestDispatchSendsEOIOnlyForIRQVectors(t *testing.T) {
	Init()
	var masterEOI, slaveEOI int
	RegisterPort(picMasterCmd, &PortHandler{Out: func(v uint8) {
		if v == picEOI {
			masterEOI++
		}
	}})
	RegisterPort(picSlaveCmd, &PortHandler{Out: func(v uint8) {
		if v == picEOI {
			slaveEOI++
		}
	}})

	Dispatch(&Frame{IntNo: 0x00}) // CPU exception, no EOI expected.
	if masterEOI != 0 || slaveEOI != 0 {
		t.Fatalf("unexpected EOI for exception vector: master=%d slave=%d", masterEOI, slaveEOI)
	}

	Dispatch(&Frame{IntNo: 0x21}) // IRQ1, master only.
	if masterEOI != 1 || slaveEOI != 0 {
		t.Fatalf("expected master-only EOI for IRQ1: master=%d slave=%d", masterEOI, slaveEOI)
	}

	Dispatch(&Frame{IntNo: 0x28}) // IRQ8, master+slave.
	if masterEOI != 2 || slaveEOI != 1 {
		t.Fatalf("expected master+slave EOI for IRQ8: master=%d slave=%d", masterEOI, slaveEOI)
	}
}

func TestSaveRestoreFlagsNesting(t *testing.T) {
	Sti()
	prior := SaveFlags()
	if !prior {
		t.Fatal("expected interrupts enabled before SaveFlags")
	}
	if InterruptsEnabled() {
		t.Fatal("SaveFlags must disable interrupts")
	}
	RestoreFlags(prior)
	if !InterruptsEnabled() {
		t.Fatal("RestoreFlags must restore prior state")
	}
}

func TestUnregisteredVectorFallsBackToDefaultTrap(t *testing.T) {
	Init()
	// Vector with no handler must not panic; EOI still fires for IRQ range.
	Dispatch(&Frame{IntNo: 0x25})
}
