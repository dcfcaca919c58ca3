/*
 * nanok - PS/2 keyboard driver.
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

// Package keyboard implements the PS/2 keyboard protocol stack: controller
// bring-up, an interrupt handler that turns scancodes into translated
// characters and structured events, a lock-free circular buffer, and a
// cooperative polling/blocking read path (spec.md §4.4). Structurally this
// follows the teacher's device-module convention: package-level singleton
// state guarded by cpu's interrupt-save discipline rather than a mutex,
// since the producer is an ISR that must never block.
package keyboard

import (
	"log/slog"

	"github.com/nanok-project/nanok/cpu"
	"github.com/nanok-project/nanok/util/kerr"
)

const (
	portData   = 0x60
	portStatus = 0x64 // read
	portCmd    = 0x64 // write

	statusOutputFull = 1 << 0
	statusAUX        = 1 << 5
	statusTimeout    = 1 << 6
	statusParity     = 1 << 7

	cmdDisablePort1 = 0xAD
	cmdEnablePort1  = 0xAE
	cmdSelfTest     = 0xAA
	cmdInterfaceTst = 0xAB
	cmdReadConfig   = 0x20
	cmdWriteConfig  = 0x60

	selfTestPass     = 0x55
	interfaceTstPass = 0x00

	devSetLEDs       = 0xED
	devSetTypematic  = 0xF3
	devEnableScan    = 0xF4
	devSetDefaults   = 0xF6
	devResendReply   = 0xFE
	devACK           = 0xFA

	irqVector uint8 = 0x21 // IRQ1 remapped.

	maxRetries = 3
)

type driverState struct {
	initialized bool

	modifier uint16
	extendedPending bool
	pauseCountdown  int

	lastScancode byte
	lastErr      kerr.KError

	chars  charRing
	events eventRing
}

var kbd driverState

// Init performs controller bring-up: disables the port, runs the
// self-test and interface test, restores defaults, enables scanning, sets
// typematic rate, initializes LEDs, registers the ISR, and unmasks IRQ1.
// Returns a typed error if self-test or interface test fails, per
// spec.md §4.4.
func Init() kerr.KError {
	kbd = driverState{}

	outCmd(cmdDisablePort1)

	outCmd(cmdSelfTest)
	if r, ok := readDataWait(); !ok || r != selfTestPass {
		kbd.lastErr = kerr.ErrSelfTestFailed
		slog.Error("keyboard self-test failed", "result", r)
		return kerr.ErrSelfTestFailed
	}

	outCmd(cmdInterfaceTst)
	if r, ok := readDataWait(); !ok || r != interfaceTstPass {
		kbd.lastErr = kerr.ErrInterfaceFailed
		slog.Error("keyboard interface test failed", "result", r)
		return kerr.ErrInterfaceFailed
	}

	outCmd(cmdEnablePort1)

	outCmd(cmdReadConfig)
	config, _ := readDataWait()
	config |= 0x01 // enable IRQ1
	config |= 0x40 // enable translation
	config &^= 0x10 // clear disable bit
	outCmd(cmdWriteConfig)
	outData(config)

	sendCommand(devSetDefaults)
	if !sendCommand(devEnableScan) {
		kbd.lastErr = kerr.ErrNoAck
		return kerr.ErrNoAck
	}
	sendCommandArg(devSetTypematic, 0x20) // ~500ms delay, ~15cps repeat.

	refreshLEDs()

	cpu.Register(irqVector, isr)
	cpu.UnmaskIRQ(1)

	kbd.initialized = true
	kbd.lastErr = kerr.OK
	slog.Info("keyboard initialized")
	return kerr.OK
}

func outCmd(v byte)  { cpu.Outb(portCmd, v) }
func outData(v byte) { cpu.Outb(portData, v) }

func statusReady() bool {
	return cpu.Inb(portStatus)&statusOutputFull != 0
}

// readDataWait polls status for up to a bounded number of iterations,
// matching spec.md §5's "count iterations of status polling" cancellation
// policy for hardware waits.
func readDataWait() (byte, bool) {
	const maxSpin = 100000
	for i := 0; i < maxSpin; i++ {
		if statusReady() {
			return cpu.Inb(portData), true
		}
	}
	return 0, false
}

// sendCommand writes a one-byte device command, retrying up to maxRetries
// times on RESEND.
func sendCommand(cmd byte) bool {
	for attempt := 0; attempt < maxRetries; attempt++ {
		outData(cmd)
		r, ok := readDataWait()
		if !ok {
			kbd.lastErr = kerr.ErrInputTimeout
			return false
		}
		switch r {
		case devACK:
			return true
		case devResendReply:
			kbd.lastErr = kerr.ErrResend
			continue
		}
	}
	return false
}

func sendCommandArg(cmd, arg byte) bool {
	if !sendCommand(cmd) {
		return false
	}
	for attempt := 0; attempt < maxRetries; attempt++ {
		outData(arg)
		r, ok := readDataWait()
		if !ok {
			kbd.lastErr = kerr.ErrInputTimeout
			return false
		}
		switch r {
		case devACK:
			return true
		case devResendReply:
			kbd.lastErr = kerr.ErrResend
			continue
		}
	}
	return false
}

func refreshLEDs() {
	var leds byte
	if kbd.modifier&LockScroll != 0 {
		leds |= 1 << 0
	}
	if kbd.modifier&LockNum != 0 {
		leds |= 1 << 1
	}
	if kbd.modifier&LockCaps != 0 {
		leds |= 1 << 2
	}
	sendCommandArg(devSetLEDs, leds)
}

// isr is the IRQ1 handler. It never disables interrupts itself (it runs
// with them already off, per spec.md §4.4 item 4) and discards one data
// byte on parity/timeout status flags.
func isr(_ *cpu.Frame) {
	status := cpu.Inb(portStatus)
	if status&statusAUX != 0 {
		return
	}
	if status&(statusParity|statusTimeout) != 0 {
		cpu.Inb(portData) // discard.
		if status&statusParity != 0 {
			kbd.lastErr = kerr.ErrParity
		} else {
			kbd.lastErr = kerr.ErrInputTimeout
		}
		return
	}
	if status&statusOutputFull == 0 {
		return
	}
	b := cpu.Inb(portData)
	processScancode(b)
}

// processScancode implements spec.md §4.4 item 3 in full: the extended
// and pause prefixes, press/release detection, modifier and lock updates,
// and the three-table translation.
func processScancode(b byte) {
	kbd.lastScancode = b

	if b == 0xE1 {
		kbd.pauseCountdown = 5
		return
	}
	if kbd.pauseCountdown > 0 {
		kbd.pauseCountdown--
		if kbd.pauseCountdown == 0 {
			emit(KeyEvent{Keycode: KeyPause, Pressed: true})
		}
		return
	}
	if b == 0xE0 {
		kbd.extendedPending = true
		return
	}
	extended := kbd.extendedPending
	kbd.extendedPending = false

	pressed := b&0x80 == 0
	code := b &^ 0x80

	if bit, ok := isModifierKey(code, extended); ok {
		if pressed {
			kbd.modifier |= bit
		} else {
			kbd.modifier &^= bit
		}
		emit(KeyEvent{Modifier: kbd.modifier, Pressed: pressed, Extended: extended})
		return
	}

	if !pressed {
		return // releases of non-modifier keys are discarded, per spec.
	}

	if bit, ok := isLockKey(code); ok && !extended {
		kbd.modifier ^= bit
		refreshLEDs()
		emit(KeyEvent{Modifier: kbd.modifier, Pressed: true})
		return
	}

	if extended {
		if kc, ok := extendedMap[code]; ok {
			emit(KeyEvent{Keycode: kc, Modifier: kbd.modifier, Pressed: true, Extended: true})
		}
		return
	}

	if isKeypadCluster(code) {
		if kbd.modifier&LockNum != 0 {
			ascii := keypadNumLock[code]
			push(ascii)
			emit(KeyEvent{ASCII: ascii, Modifier: kbd.modifier, Pressed: true})
		} else {
			emit(KeyEvent{Keycode: keypadNav[code], Modifier: kbd.modifier, Pressed: true})
		}
		return
	}

	if kc, ok := functionKeys[code]; ok {
		emit(KeyEvent{Keycode: kc, Modifier: kbd.modifier, Pressed: true})
		return
	}

	ascii := translate(code)
	if ascii == 0 {
		return
	}
	if kbd.modifier&(ModLCtrl|ModRCtrl) != 0 {
		if ctl := toControlChar(ascii); ctl != 0 {
			ascii = ctl
		}
	}
	push(ascii)
	emit(KeyEvent{ASCII: ascii, Modifier: kbd.modifier, Pressed: true})
}

// translate resolves a base scancode to ASCII. Letters get Caps-Lock case
// inversion independent of Shift, per spec.md §4.4 item 3; everything else
// just follows Shift.
func translate(code byte) byte {
	shift := kbd.modifier&(ModLShift|ModRShift) != 0
	caps := kbd.modifier&LockCaps != 0

	lower := primaryMap[code]
	if lower >= 'a' && lower <= 'z' {
		if shift != caps {
			return lower - ('a' - 'A')
		}
		return lower
	}

	if shift {
		return shiftedMap[code]
	}
	return lower
}

func push(b byte) {
	if !kbd.chars.push(b) {
		slog.Warn("keyboard character ring overrun")
	}
}

func emit(e KeyEvent) {
	kbd.events.push(e)
}

// InjectByte feeds b directly into the character ring, bypassing scancode
// translation. This is how a host-terminal front end (which already hands
// over decoded characters, not raw make/break codes) drives the same
// ring GetC/GetLine read from a real PS/2 ISR.
func InjectByte(b byte) {
	push(b)
}

// Poll performs one ISR-equivalent step if a byte is waiting, for
// consumers that cannot trust interrupts (spec.md §4.4 item 5).
func Poll() {
	if statusReady() {
		isr(nil)
	}
}

// GetC enables interrupts and alternates between Poll and Halt until the
// character ring is non-empty, then returns one byte (spec.md §4.4 item
// 6).
func GetC() byte {
	cpu.Sti()
	for {
		if b, ok := kbd.chars.pop(); ok {
			return b
		}
		Poll()
		cpu.Halt()
	}
}

const (
	keyETX byte = 0x03
	keyNAK byte = 0x15
)

// GetLine performs line editing over GetC: backspace, Ctrl-C abort
// (returns "", false), Ctrl-U erase-line, Tab expansion to the next
// 4-column boundary, and printable-only insertion up to maxLen.
func GetLine(maxLen int) (string, bool) {
	buf := make([]byte, 0, maxLen)
	for {
		c := GetC()
		switch {
		case c == keyETX:
			return "", false
		case c == 0x08: // backspace
			if len(buf) > 0 {
				buf = buf[:len(buf)-1]
			}
		case c == keyNAK: // Ctrl-U
			buf = buf[:0]
		case c == 0x0A || c == 0x0D:
			return string(buf), true
		case c == 0x09: // Tab
			spaces := 4 - (len(buf) % 4)
			for i := 0; i < spaces && len(buf) < maxLen; i++ {
				buf = append(buf, ' ')
			}
		case c >= 0x20 && c <= 0x7E:
			if len(buf) < maxLen {
				buf = append(buf, c)
			}
		}
	}
}

// Diagnostics is the read-only snapshot exposed to shell diagnostics
// commands (added beyond the minimal protocol contract).
type Diagnostics struct {
	Initialized    bool
	Modifier       uint16
	LastScancode   byte
	LastError      kerr.KError
	CharOverruns   uint32
	EventOverruns  uint32
}

func Status() Diagnostics {
	return Diagnostics{
		Initialized:   kbd.initialized,
		Modifier:      kbd.modifier,
		LastScancode:  kbd.lastScancode,
		LastError:     kbd.lastErr,
		CharOverruns:  kbd.chars.overruns,
		EventOverruns: kbd.events.overruns,
	}
}

// PollEvent returns the next structured key event if one is buffered.
func PollEvent() (KeyEvent, bool) {
	return kbd.events.pop()
}
