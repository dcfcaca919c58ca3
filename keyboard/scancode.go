/*
 * nanok - PS/2 scancode translation tables.
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

// Modifier bitmask bits, per spec.md §3's "left/right for shift/ctrl/alt/
// gui, lock bits for caps/num/scroll".
const (
	ModLShift uint16 = 1 << iota
	ModRShift
	ModLCtrl
	ModRCtrl
	ModLAlt
	ModRAlt
	ModLGUI
	ModRGUI
	LockCaps
	LockNum
	LockScroll
)

// Virtual keycodes for non-printable/special keys, returned in the
// 0x80-0xFF sentinel range per spec.md §6.
const (
	KeyNone   uint16 = 0
	KeyEscape uint16 = 0x80 + iota - 1
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyInsert
	KeyDelete
	KeyPause
	KeyCapsLock
	KeyNumLock
	KeyScrollLock
)

// primaryMap is the unshifted 128-entry base scancode table (set 1). Index
// is the 7-bit base code (high bit already masked off by the caller).
// Unassigned entries are left at 0 and translate to nothing.
var primaryMap = [128]byte{
	0x01: 0, // Escape handled via virtual keycode, not ASCII.
	0x02: '1', 0x03: '2', 0x04: '3', 0x05: '4', 0x06: '5',
	0x07: '6', 0x08: '7', 0x09: '8', 0x0A: '9', 0x0B: '0',
	0x0C: '-', 0x0D: '=', 0x0E: 0x08, // backspace
	0x0F: 0x09, // tab
	0x10: 'q', 0x11: 'w', 0x12: 'e', 0x13: 'r', 0x14: 't',
	0x15: 'y', 0x16: 'u', 0x17: 'i', 0x18: 'o', 0x19: 'p',
	0x1A: '[', 0x1B: ']', 0x1C: 0x0A, // enter
	0x1E: 'a', 0x1F: 's', 0x20: 'd', 0x21: 'f', 0x22: 'g',
	0x23: 'h', 0x24: 'j', 0x25: 'k', 0x26: 'l',
	0x27: ';', 0x28: '\'', 0x29: '`',
	0x2B: '\\',
	0x2C: 'z', 0x2D: 'x', 0x2E: 'c', 0x2F: 'v', 0x30: 'b',
	0x31: 'n', 0x32: 'm', 0x33: ',', 0x34: '.', 0x35: '/',
	0x37: '*', // keypad multiply
	0x39: ' ',
}

// shiftedMap mirrors primaryMap for Shift-held presses.
var shiftedMap = [128]byte{
	0x02: '!', 0x03: '@', 0x04: '#', 0x05: '$', 0x06: '%',
	0x07: '^', 0x08: '&', 0x09: '*', 0x0A: '(', 0x0B: ')',
	0x0C: '_', 0x0D: '+',
	0x10: 'Q', 0x11: 'W', 0x12: 'E', 0x13: 'R', 0x14: 'T',
	0x15: 'Y', 0x16: 'U', 0x17: 'I', 0x18: 'O', 0x19: 'P',
	0x1A: '{', 0x1B: '}',
	0x1E: 'A', 0x1F: 'S', 0x20: 'D', 0x21: 'F', 0x22: 'G',
	0x23: 'H', 0x24: 'J', 0x25: 'K', 0x26: 'L',
	0x27: ':', 0x28: '"', 0x29: '~',
	0x2B: '|',
	0x2C: 'Z', 0x2D: 'X', 0x2E: 'C', 0x2F: 'V', 0x30: 'B',
	0x31: 'N', 0x32: 'M', 0x33: '<', 0x34: '>', 0x35: '?',
	0x39: ' ',
}

// functionKeys maps F1-F12, Escape and the three lock keys on the primary
// table (these have no ASCII value, only a virtual keycode).
var functionKeys = map[byte]uint16{
	0x3B: KeyF1, 0x3C: KeyF2, 0x3D: KeyF3, 0x3E: KeyF4, 0x3F: KeyF5,
	0x40: KeyF6, 0x41: KeyF7, 0x42: KeyF8, 0x43: KeyF9, 0x44: KeyF10,
	0x57: KeyF11, 0x58: KeyF12,
	0x01: KeyEscape,
	0x3A: KeyCapsLock, 0x45: KeyNumLock, 0x46: KeyScrollLock,
}

// extendedMap holds the 0xE0-prefixed arrows and navigation cluster.
// Right-side Ctrl/Alt are handled as modifiers by isModifierKey; other
// 0xE0-prefixed codes, keypad Enter and Divide among them, produce no key.
var extendedMap = map[byte]uint16{
	0x48: KeyUp, 0x50: KeyDown, 0x4B: KeyLeft, 0x4D: KeyRight,
	0x47: KeyHome, 0x4F: KeyEnd, 0x49: KeyPageUp, 0x51: KeyPageDown,
	0x52: KeyInsert, 0x53: KeyDelete,
}

// keypadNumLock and keypadNav distinguish the 0x47..0x53 keypad cluster
// depending on the NumLock state, per spec.md §4.4 item 3.
var keypadNumLock = map[byte]byte{
	0x47: '7', 0x48: '8', 0x49: '9',
	0x4B: '4', 0x4C: '5', 0x4D: '6',
	0x4F: '1', 0x50: '2', 0x51: '3',
	0x52: '0', 0x53: '.',
}

var keypadNav = map[byte]uint16{
	0x47: KeyHome, 0x48: KeyUp, 0x49: KeyPageUp,
	0x4B: KeyLeft, 0x4D: KeyRight,
	0x4F: KeyEnd, 0x50: KeyDown, 0x51: KeyPageDown,
	0x52: KeyInsert, 0x53: KeyDelete,
}

func isKeypadCluster(code byte) bool {
	_, ok := keypadNumLock[code]
	return ok
}

// isLockKey reports whether code (unshifted, non-extended) toggles a lock
// bit on press.
func isLockKey(code byte) (bit uint16, ok bool) {
	switch code {
	case 0x3A:
		return LockCaps, true
	case 0x45:
		return LockNum, true
	case 0x46:
		return LockScroll, true
	}
	return 0, false
}

// isModifierKey reports whether code is a modifier, returning the bit to
// set/clear. extended distinguishes right-side Ctrl/Alt/GUI from left.
func isModifierKey(code byte, extended bool) (bit uint16, ok bool) {
	switch code {
	case 0x2A:
		return ModLShift, true
	case 0x36:
		return ModRShift, true
	case 0x1D:
		if extended {
			return ModRCtrl, true
		}
		return ModLCtrl, true
	case 0x38:
		if extended {
			return ModRAlt, true
		}
		return ModLAlt, true
	case 0x5B:
		return ModLGUI, true
	case 0x5C:
		return ModRGUI, true
	}
	return 0, false
}

func toControlChar(ascii byte) byte {
	if ascii >= 'a' && ascii <= 'z' {
		return ascii - 'a' + 1
	}
	if ascii >= 'A' && ascii <= 'Z' {
		return ascii - 'A' + 1
	}
	return 0
}
