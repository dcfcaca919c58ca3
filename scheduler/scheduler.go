/*
 * nanok - Task scheduler.
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

// Package scheduler implements preemptive round-robin multitasking over a
// fixed-size process control block table (spec.md §4.3). The PCB table and
// its transition functions follow the teacher's table-of-structs module
// convention; the control transfer between tasks is implemented with
// buffered channels instead of a real register/stack swap, since Go offers
// no portable way to suspend a goroutine from the outside. Tasks that want
// to honor preemption must call Checkpoint at a safe point in their own
// loop — the scheduler can always relabel a PCB from RUNNING to READY, but
// only the task itself can actually stop executing. This is noted as an
// explicit Open Question resolution rather than left implicit.
package scheduler

import (
	"log/slog"
	"sync"

	"github.com/nanok-project/nanok/cpu"
	"github.com/nanok-project/nanok/pit"
	"github.com/nanok-project/nanok/pmm"
)

// State is a PCB's lifecycle state.
type State int

const (
	Free State = iota
	Ready
	Running
	Blocked // reserved for future extension; never assigned today.
	Zombie  // reserved for future extension; never assigned today.
)

func (s State) String() string {
	switch s {
	case Free:
		return "FREE"
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Blocked:
		return "BLOCKED"
	case Zombie:
		return "ZOMBIE"
	default:
		return "UNKNOWN"
	}
}

// Context is the saved CPU context restored on resume.
type Context struct {
	EAX, EBX, ECX, EDX uint32
	ESI, EDI, EBP      uint32
	EIP, ESP, EFlags   uint32
	PageDir            uint32 // reserved for future paging support.
}

// PCB is one process control block.
type PCB struct {
	ID          uint32
	Name        string
	State       State
	Context     Context
	KernelStack uint32 // owning physical frame, released on Kill.
	TTY         int
	Quantum     int
	Remaining   int
	TicksTotal  int // lifetime count of ticks spent RUNNING, distinct from Remaining.

	entry  func()
	resume chan struct{}
}

const (
	maxPCBs        = 64
	// DefaultQuantum is the tick count granted to a task created without
	// an explicit quantum.
	DefaultQuantum = 5
)

type table struct {
	mu         sync.Mutex
	slots      [maxPCBs]*PCB
	runningIdx int // -1 when nothing is running.
	nextPID    uint32
}

var sched = table{runningIdx: -1, nextPID: 1}

// Init wires scheduler.Tick into the PIT's tick subscribers. It does not
// create any PCBs.
func Init() {
	sched.mu.Lock()
	sched.slots = [maxPCBs]*PCB{}
	sched.runningIdx = -1
	sched.nextPID = 1
	sched.mu.Unlock()

	pit.Subscribe(Tick)
}

// Create allocates a PCB and a kernel stack frame, and starts entry in its
// own goroutine parked until the scheduler first resumes it. Returns 0 if
// the table is full or the PMM is exhausted, per spec.md §4.3.
func Create(name string, entry func()) uint32 {
	sched.mu.Lock()

	slot := -1
	for i, p := range sched.slots {
		if p == nil || p.State == Free {
			slot = i
			break
		}
	}
	if slot == -1 {
		sched.mu.Unlock()
		return 0
	}

	stack := pmm.AllocPage()
	if stack == 0 {
		sched.mu.Unlock()
		return 0
	}

	pid := sched.nextPID
	sched.nextPID++

	pcb := &PCB{
		ID:          pid,
		Name:        name,
		State:       Ready,
		KernelStack: stack,
		TTY:         -1,
		Quantum:     DefaultQuantum,
		Remaining:   DefaultQuantum,
		entry:       entry,
		resume:      make(chan struct{}, 1),
	}
	pcb.Context.ESP = stack + pmm.PageSize
	sched.slots[slot] = pcb
	sched.mu.Unlock()

	go func() {
		<-pcb.resume
		entry()
		Kill(pid)
	}()

	slog.Info("task created", "pid", pid, "name", name)
	return pid
}

// Tick is invoked once per PIT interrupt. It decrements the running PCB's
// remaining quantum and, on expiry, resets it and triggers a reschedule.
// A no-op when nothing is running.
func Tick() {
	sched.mu.Lock()
	if sched.runningIdx < 0 {
		sched.mu.Unlock()
		return
	}
	running := sched.slots[sched.runningIdx]
	running.Remaining--
	running.TicksTotal++
	expired := running.Remaining <= 0
	if expired {
		running.Remaining = running.Quantum
	}
	sched.mu.Unlock()

	if expired {
		reschedule()
	}
}

// Yield voluntarily gives up the remainder of the current quantum and
// blocks the calling goroutine until the scheduler resumes it again. It is
// the cooperative half of preemption: a task calls Yield (directly, or
// indirectly via Checkpoint) at a point where it is safe to suspend.
func Yield() {
	sched.mu.Lock()
	idx := sched.runningIdx
	sched.mu.Unlock()
	if idx < 0 {
		reschedule()
		return
	}
	pcb := sched.slots[idx]
	reschedule()
	<-pcb.resume
}

// Checkpoint is called by task code at a safe point; it blocks until the
// next scheduled turn only if the task's quantum has already been spent by
// a concurrent Tick.
func Checkpoint(pid uint32) {
	sched.mu.Lock()
	pcb := findLocked(pid)
	if pcb == nil || pcb.State != Ready {
		sched.mu.Unlock()
		return
	}
	sched.mu.Unlock()
	<-pcb.resume
}

// reschedule performs the round-robin selection: the previous RUNNING PCB
// (if any) becomes READY, the next READY PCB starting at (current+1) mod N
// becomes RUNNING, and its goroutine is woken.
func reschedule() {
	sched.mu.Lock()
	prevIdx := sched.runningIdx
	if prevIdx >= 0 && sched.slots[prevIdx] != nil && sched.slots[prevIdx].State == Running {
		sched.slots[prevIdx].State = Ready
	}

	start := prevIdx + 1
	if start < 0 {
		start = 0
	}
	chosen := -1
	for i := 0; i < maxPCBs; i++ {
		idx := (start + i) % maxPCBs
		p := sched.slots[idx]
		if p != nil && p.State == Ready {
			chosen = idx
			break
		}
	}

	if chosen == -1 {
		sched.runningIdx = -1
		sched.mu.Unlock()
		return
	}

	pcb := sched.slots[chosen]
	pcb.State = Running
	pcb.Remaining = pcb.Quantum
	sched.runningIdx = chosen
	cpu.SetKernelStack(pcb.KernelStack + pmm.PageSize)
	sched.mu.Unlock()

	select {
	case pcb.resume <- struct{}{}:
	default:
	}
}

// Kill releases the kernel stack frame and marks the slot FREE. A no-op on
// an unknown pid. If pid is the running slot, the running index is
// cleared so the next reschedule chooses afresh.
func Kill(pid uint32) {
	sched.mu.Lock()
	idx := -1
	for i, p := range sched.slots {
		if p != nil && p.ID == pid && p.State != Free {
			idx = i
			break
		}
	}
	if idx == -1 {
		sched.mu.Unlock()
		return
	}
	pcb := sched.slots[idx]
	pmm.FreePage(pcb.KernelStack)
	pcb.State = Free
	if sched.runningIdx == idx {
		sched.runningIdx = -1
	}
	sched.mu.Unlock()

	reschedule()
}

func findLocked(pid uint32) *PCB {
	for _, p := range sched.slots {
		if p != nil && p.ID == pid {
			return p
		}
	}
	return nil
}

// Lookup returns a copy of the PCB for pid, or nil if it does not exist.
func Lookup(pid uint32) *PCB {
	sched.mu.Lock()
	defer sched.mu.Unlock()
	p := findLocked(pid)
	if p == nil || p.State == Free {
		return nil
	}
	cp := *p
	return &cp
}

// TaskStats is one PCB's lifetime RUNNING-tick accounting, exposed for
// diagnostics and fairness assertions.
type TaskStats struct {
	PID        uint32
	Name       string
	TicksTotal int
}

// Stats returns lifetime tick counts for every occupied PCB slot, in
// table order.
func Stats() []TaskStats {
	sched.mu.Lock()
	defer sched.mu.Unlock()
	var out []TaskStats
	for _, p := range sched.slots {
		if p == nil || p.State == Free {
			continue
		}
		out = append(out, TaskStats{PID: p.ID, Name: p.Name, TicksTotal: p.TicksTotal})
	}
	return out
}

// RunningPID returns the pid currently marked RUNNING, or 0 if none.
func RunningPID() uint32 {
	sched.mu.Lock()
	defer sched.mu.Unlock()
	if sched.runningIdx < 0 {
		return 0
	}
	return sched.slots[sched.runningIdx].ID
}

// BindTTY associates pid with a tty identifier.
func BindTTY(pid uint32, tty int) {
	sched.mu.Lock()
	defer sched.mu.Unlock()
	if p := findLocked(pid); p != nil {
		p.TTY = tty
	}
}

// Start kicks off the first reschedule; call once after all boot-time
// tasks have been Created.
func Start() {
	reschedule()
}
