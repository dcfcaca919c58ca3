/*
 * nanok - Programmable interval timer test cases.
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

package pit

import (
	"testing"
	"time"

	"github.com/nanok-project/nanok/cpu"
)

func TestTicksAdvanceAtConfiguredFrequency(t *testing.T) {
	cpu.Init()
	Init(1000) // 1kHz, 1ms per tick.
	Start()
	defer Stop()

	before := Ticks()
	time.Sleep(50 * time.Millisecond)
	after := Ticks()

	if after <= before {
		t.Fatalf("expected ticks to advance, before=%d after=%d", before, after)
	}
}

func TestSubscribersFireOnEveryTick(t *testing.T) {
	cpu.Init()
	Init(1000)

	var count int
	Subscribe(func() { count++ })

	Start()
	defer Stop()
	time.Sleep(30 * time.Millisecond)

	if count == 0 {
		t.Fatal("expected subscriber to be invoked at least once")
	}
}

func TestStopHaltsTickAdvance(t *testing.T) {
	cpu.Init()
	Init(1000)
	Start()
	time.Sleep(20 * time.Millisecond)
	Stop()

	after := Ticks()
	time.Sleep(20 * time.Millisecond)
	if Ticks() != after {
		t.Fatalf("ticks advanced after Stop: before=%d after=%d", after, Ticks())
	}
}
