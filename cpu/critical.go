/*
 * nanok - Interrupt flag save/restore critical sections.
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

// interruptsEnabled models EFLAGS.IF. nanok's "interrupt context" is
// simulated, not real preemption by hardware, but the keyboard rings'
// consumer side and the pmm bitmap still bracket their
// multi-field updates with SaveFlags/RestoreFlags exactly as spec.md §5
// requires, so the discipline transfers unchanged to a real port.
var (
	critMu             sync.Mutex
	interruptsEnabled  = true
)

// Cli disables interrupt delivery, returning nothing (matches the real
// instruction). Use SaveFlags/RestoreFlags in application code instead of
// calling Cli/Sti directly so nested critical sections never accidentally
// re-enable interrupts a caller still expects disabled.
func Cli() {
	critMu.Lock()
	interruptsEnabled = false
	critMu.Unlock()
}

// Sti enables interrupt delivery.
func Sti() {
	critMu.Lock()
	interruptsEnabled = true
	critMu.Unlock()
}

// InterruptsEnabled reports the current simulated IF flag.
func InterruptsEnabled() bool {
	critMu.Lock()
	defer critMu.Unlock()
	return interruptsEnabled
}

// SaveFlags disables interrupts and returns the prior state for
// RestoreFlags to hand back to Sti/Cli. This is the pushf;cli / popf
// pair spec.md §5 calls for around every keyboard ring and PMM bitmap
// mutation an ISR can also touch.
func SaveFlags() (prior bool) {
	critMu.Lock()
	prior = interruptsEnabled
	interruptsEnabled = false
	critMu.Unlock()
	return prior
}

// RestoreFlags restores the IF state SaveFlags captured.
func RestoreFlags(prior bool) {
	critMu.Lock()
	interruptsEnabled = prior
	critMu.Unlock()
}

// Halt blocks until the next interrupt is dispatched, modeling `hlt`.
// nanok's interrupts are delivered by the host's own goroutines (PIT
// ticker, keyboard feeder) rather than real hardware, so Halt parks on a
// channel that every Dispatch call fires after the handler returns.
var haltWake = make(chan struct{}, 1)

func Halt() {
	<-haltWake
}

// wakeHalted is called by Dispatch so a goroutine blocked in Halt resumes
// promptly after any interrupt, matching real hardware's "hlt wakes on
// the next interrupt" behavior.
func wakeHalted() {
	select {
	case haltWake <- struct{}{}:
	default:
	}
}
