/*
 * nanok - PS/2 keyboard driver test cases.
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

package keyboard

import (
	"testing"

	"github.com/nanok-project/nanok/cpu"
)

// fakeController is a minimal PS/2 controller+device simulator driving the
// same two ports (0x60 data, 0x64 status/command) the real driver talks
// to, so Init and the ISR path can be exercised without real hardware.
type fakeController struct {
	queue []byte
}

func installFakeController(t *testing.T) *fakeController {
	t.Helper()
	cpu.Init()
	fc := &fakeController{}

	cpu.RegisterPort(portCmd, &cpu.PortHandler{
		Out: func(v byte) {
			switch v {
			case cmdSelfTest:
				fc.queue = append(fc.queue, selfTestPass)
			case cmdInterfaceTst:
				fc.queue = append(fc.queue, interfaceTstPass)
			case cmdReadConfig:
				fc.queue = append(fc.queue, 0x00)
			}
		},
		In: func() byte {
			if len(fc.queue) > 0 {
				return statusOutputFull
			}
			return 0
		},
	})

	cpu.RegisterPort(portData, &cpu.PortHandler{
		Out: func(v byte) {
			// Every byte written to the data port (device command, its
			// argument, or the post-read-config write) gets an ACK.
			fc.queue = append(fc.queue, devACK)
		},
		In: func() byte {
			if len(fc.queue) == 0 {
				return 0
			}
			b := fc.queue[0]
			fc.queue = fc.queue[1:]
			return b
		},
	})

	return fc
}

func TestInitSucceedsWithRespondingController(t *testing.T) {
	installFakeController(t)
	if err := Init(); err.Ok() != true {
		t.Fatalf("expected Init to succeed, got %v", err)
	}
	if !Status().Initialized {
		t.Fatal("expected Status().Initialized after successful Init")
	}
}

func TestInitFailsWhenSelfTestNeverResponds(t *testing.T) {
	cpu.Init()
	// Replace any fake controller an earlier test registered with one that
	// never reports output-full: statusReady() is always false, so
	// readDataWait times out on the very first wait.
	cpu.RegisterPort(portCmd, &cpu.PortHandler{In: func() byte { return 0 }})
	cpu.RegisterPort(portData, &cpu.PortHandler{In: func() byte { return 0 }})
	if err := Init(); err.Ok() {
		t.Fatal("expected Init to fail when the controller never responds")
	}
}

func TestProcessScancodeLowercaseLetter(t *testing.T) {
	installFakeController(t)
	Init()
	kbd.chars = charRing{}

	processScancode(0x1E) // 'a' make code.
	b, ok := kbd.chars.pop()
	if !ok || b != 'a' {
		t.Fatalf("expected 'a', got %q ok=%v", b, ok)
	}
}

func TestProcessScancodeShiftUppercase(t *testing.T) {
	installFakeController(t)
	Init()
	kbd.chars = charRing{}

	processScancode(0x2A)        // left shift make.
	processScancode(0x1E)        // 'a' with shift held.
	processScancode(0x2A | 0x80) // left shift break.

	b, ok := kbd.chars.pop()
	if !ok || b != 'A' {
		t.Fatalf("expected 'A', got %q ok=%v", b, ok)
	}
	if kbd.modifier&ModLShift != 0 {
		t.Fatal("expected shift modifier cleared after break code")
	}
}

func TestProcessScancodeCapsLockInvertsLetters(t *testing.T) {
	installFakeController(t)
	Init()
	kbd.chars = charRing{}

	processScancode(0x3A) // caps lock press: toggles lock, no char emitted.
	processScancode(0x1E) // 'a' -> should come out 'A'.

	b, ok := kbd.chars.pop()
	if !ok || b != 'A' {
		t.Fatalf("expected Caps Lock to invert 'a' to 'A', got %q ok=%v", b, ok)
	}
}

func TestProcessScancodeCtrlProducesControlChar(t *testing.T) {
	installFakeController(t)
	Init()
	kbd.chars = charRing{}

	processScancode(0x1D) // left ctrl make.
	processScancode(0x2E) // 'c' with ctrl held -> ETX.

	b, ok := kbd.chars.pop()
	if !ok || b != 0x03 {
		t.Fatalf("expected ETX (0x03), got %#x ok=%v", b, ok)
	}
}

func TestExtendedPrefixLatchesOnce(t *testing.T) {
	installFakeController(t)
	Init()

	processScancode(0xE0)
	processScancode(0x48) // up arrow, extended.

	ev, ok := PollEvent()
	if !ok || ev.Keycode != KeyUp || !ev.Extended {
		t.Fatalf("expected extended Up arrow event, got %+v ok=%v", ev, ok)
	}
}

func TestPauseSequenceEmitsSingleEvent(t *testing.T) {
	installFakeController(t)
	Init()

	processScancode(0xE1)
	for i := 0; i < 5; i++ {
		processScancode(0x1D) // filler bytes of the 5-byte pause sequence.
	}
	ev, ok := PollEvent()
	if !ok || ev.Keycode != KeyPause {
		t.Fatalf("expected a single Pause event, got %+v ok=%v", ev, ok)
	}
}

func TestGetLineEditing(t *testing.T) {
	installFakeController(t)
	Init()
	kbd.chars = charRing{}

	for _, b := range []byte{'h', 'i', 0x08, 'e', 'y', 0x0A} {
		kbd.chars.push(b)
	}
	line, ok := GetLine(32)
	if !ok || line != "hey" {
		t.Fatalf("expected %q, got %q ok=%v", "hey", line, ok)
	}
}

func TestGetLineCtrlCAborts(t *testing.T) {
	installFakeController(t)
	Init()
	kbd.chars = charRing{}
	kbd.chars.push('h')
	kbd.chars.push(0x03)

	_, ok := GetLine(32)
	if ok {
		t.Fatal("expected Ctrl-C to abort the line")
	}
}
