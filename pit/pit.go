/*
 * nanok - Programmable interval timer.
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

// Package pit simulates the 8253/8254 Programmable Interval Timer: a
// periodic interrupt at a configured frequency, a monotonic tick counter,
// and millisecond sleep built from it (spec.md §2, §4.3 "PIT timer" row).
// Structurally this mirrors the teacher's emu/timer.Timer: a package-level
// ticker goroutine that fires a callback on its own schedule, except the
// callback here is wired to cpu.Dispatch on vector 32 (IRQ0) instead of a
// channel send, since nanok's "interrupt" for a hardware timer really is
// a goroutine tick translated into the same Frame-based dispatch every
// other interrupt source uses.
package pit

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/nanok-project/nanok/cpu"
)

const irqVector uint8 = 0x20 // IRQ0 remapped to vector 32.

type pit struct {
	mu        sync.Mutex
	ticker    *time.Ticker
	stop      chan struct{}
	frequency int
	ticks     atomic.Uint64
}

var p pit

// Init programs the timer for frequencyHz interrupts per second and
// registers the IRQ0 handler, but does not unmask the IRQ or start
// ticking; call Start for that, mirroring the teacher's
// NewTimer/Start split between construction and running.
func Init(frequencyHz int) {
	p.mu.Lock()
	p.frequency = frequencyHz
	p.mu.Unlock()

	cpu.Register(irqVector, handleTick)
}

// Frame is an alias kept for symmetry with other driver packages'
// exported handler signatures; the PIT's handler never inspects the
// frame contents.
type Frame = cpu.Frame

func handleTick(_ *cpu.Frame) {
	p.ticks.Add(1)
	fireSubscribers()
}

// Start begins delivering interrupts at the configured frequency and
// unmasks IRQ0.
func Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		return
	}
	interval := time.Second / time.Duration(p.frequency)
	p.ticker = time.NewTicker(interval)
	p.stop = make(chan struct{})
	ticker := p.ticker
	stop := p.stop
	p.mu.Unlock()

	cpu.UnmaskIRQ(0)

	go func() {
		for {
			select {
			case <-ticker.C:
				cpu.Dispatch(&cpu.Frame{IntNo: uint32(irqVector)})
			case <-stop:
				return
			}
		}
	}()
}

// Stop halts delivery; Ticks() retains its last value.
func Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ticker == nil {
		return
	}
	p.ticker.Stop()
	p.stop <- struct{}{} // unbuffered: returns only once the ticker goroutine has left its loop.
	p.ticker = nil
	cpu.MaskIRQ(0)
}

// Ticks returns the monotonic tick count; Init does not reset it.
func Ticks() uint64 {
	return p.ticks.Load()
}

// Frequency returns the configured interrupt rate.
func Frequency() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frequency
}

var (
	subMu  sync.Mutex
	subs   []func()
)

// Subscribe registers fn to run on every tick, in addition to the IRQ0
// handler table — this is how scheduler.Init wires scheduler.Tick without
// the pit package importing the scheduler package.
func Subscribe(fn func()) {
	subMu.Lock()
	defer subMu.Unlock()
	subs = append(subs, fn)
}

func fireSubscribers() {
	subMu.Lock()
	fns := append([]func(){}, subs...)
	subMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// SleepMS spins on Halt until approximately ms milliseconds of ticks have
// elapsed, per spec.md §4.2/§5's "pit.sleep_ms spins on hlt until the
// target tick".
func SleepMS(ms int) {
	ticksNeeded := uint64(ms*Frequency()) / 1000
	if ticksNeeded == 0 {
		ticksNeeded = 1
	}
	target := p.ticks.Load() + ticksNeeded
	for p.ticks.Load() < target {
		cpu.Halt()
	}
}
