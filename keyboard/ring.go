/*
 * nanok - Keyboard input ring buffers.
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

import "github.com/nanok-project/nanok/cpu"

// charRingSize must be a power of two per spec.md §3's character ring.
const charRingSize = 256

type charRing struct {
	buf        [charRingSize]byte
	read, write uint32
	overruns    uint32
}

func (r *charRing) push(b byte) bool {
	next := (r.write + 1) % charRingSize
	if next == r.read {
		r.overruns++
		return false
	}
	r.buf[r.write] = b
	r.write = next
	return true
}

// pop removes and returns one byte under an interrupt-save critical
// section, per spec.md §5 ("ring operations disable interrupts around
// read-index manipulation").
func (r *charRing) pop() (byte, bool) {
	prior := cpu.SaveFlags()
	defer cpu.RestoreFlags(prior)

	if r.read == r.write {
		return 0, false
	}
	b := r.buf[r.read]
	r.read = (r.read + 1) % charRingSize
	return b, true
}

func (r *charRing) empty() bool {
	prior := cpu.SaveFlags()
	defer cpu.RestoreFlags(prior)
	return r.read == r.write
}

// KeyEvent is the fixed-size record pushed to the event ring on every
// successfully translated key, per spec.md §3.
type KeyEvent struct {
	Keycode  uint16
	Scancode uint8
	Modifier uint16
	Pressed  bool
	Extended bool
	ASCII    byte
}

const eventRingSize = 64

type eventRing struct {
	buf         [eventRingSize]KeyEvent
	read, write uint32
	overruns    uint32
}

func (r *eventRing) push(e KeyEvent) bool {
	next := (r.write + 1) % eventRingSize
	if next == r.read {
		r.overruns++
		return false
	}
	r.buf[r.write] = e
	r.write = next
	return true
}

func (r *eventRing) pop() (KeyEvent, bool) {
	prior := cpu.SaveFlags()
	defer cpu.RestoreFlags(prior)

	if r.read == r.write {
		return KeyEvent{}, false
	}
	e := r.buf[r.read]
	r.read = (r.read + 1) % eventRingSize
	return e, true
}
