/*
 * nanok - Kernel bring-up and privileged shutdown operations.
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

// Package boot owns the one thing no core subsystem can own: the order
// they all come up in. A host configuration file stands in for what a
// multiboot bootloader would otherwise hand the kernel (spec.md §2), and
// Machine.Boot brings up cpu, pmm, pit, scheduler, keyboard, blockdev and
// fs/ext2+fs/vfs in the dependency order spec.md §2's component table
// specifies (exec/registry is filled afterwards by InstallDefaultUtilities), mirroring the teacher's emu/core.NewCPU
// wiring step in main.go.
package boot

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/nanok-project/nanok/blockdev"
	"github.com/nanok-project/nanok/config"
	"github.com/nanok-project/nanok/cpu"
	"github.com/nanok-project/nanok/exec/registry"
	"github.com/nanok-project/nanok/fs/ext2"
	"github.com/nanok-project/nanok/fs/vfs"
	"github.com/nanok-project/nanok/keyboard"
	"github.com/nanok-project/nanok/pit"
	"github.com/nanok-project/nanok/pmm"
	"github.com/nanok-project/nanok/scheduler"
)

// qemuExitPort is the ISA debug-exit port convention used by small-kernel
// tutorials and by QEMU's isa-debug-exit device: a write to it ends the
// host process with a code derived from the byte written.
const qemuExitPort = 0xf4

// diskSpec is one DISK directive's fields, collected during Load.
type diskSpec struct {
	id         string
	path       string
	blockSize  int
	blockCount uint64
}

type pendingConfig struct {
	memoryMap   []pmm.MemoryMapEntry
	pitHz       int
	disks       []diskSpec
	rootDiskID  string
}

var pending pendingConfig

func init() {
	pending.pitHz = 100 // default tick rate until a PIT directive overrides it.

	config.Register("MEMORY", config.KindOptions, func(_ uint16, value string, opts []config.Option) error {
		base, length, err := memoryRegionFromOptions(value, opts)
		if err != nil {
			return err
		}
		pending.memoryMap = append(pending.memoryMap, pmm.MemoryMapEntry{Base: base, Length: length, Type: pmm.TypeAvailable})
		return nil
	})

	config.Register("PIT", config.KindValue, func(_ uint16, value string, _ []config.Option) error {
		hz, err := parseUint(value)
		if err != nil {
			return fmt.Errorf("PIT directive: %w", err)
		}
		pending.pitHz = int(hz)
		return nil
	})

	config.Register("DISK", config.KindOptions, func(_ uint16, value string, opts []config.Option) error {
		spec := diskSpec{id: value, blockSize: 512}
		for _, opt := range opts {
			switch opt.Name {
			case "path":
				spec.path = opt.EqualOpt
			case "blocksize":
				n, err := parseUint(opt.EqualOpt)
				if err != nil {
					return fmt.Errorf("DISK %s: blocksize: %w", value, err)
				}
				spec.blockSize = int(n)
			case "blockcount":
				n, err := parseUint(opt.EqualOpt)
				if err != nil {
					return fmt.Errorf("DISK %s: blockcount: %w", value, err)
				}
				spec.blockCount = n
			}
		}
		if spec.path == "" {
			return fmt.Errorf("DISK %s: missing path=", value)
		}
		pending.disks = append(pending.disks, spec)
		return nil
	})

	config.Register("ROOT", config.KindValue, func(_ uint16, value string, _ []config.Option) error {
		pending.rootDiskID = value
		return nil
	})
}

// Machine is one booted kernel instance: the mounted root filesystem and
// the channel main's host loop watches for a shutdown request.
type Machine struct {
	log     *slog.Logger
	Signals chan Signal
	Root    *ext2.FS
}

// Signal is a privileged control-flow request raised from inside the
// simulated kernel that only the host process can act on.
type Signal int

const (
	SignalNone Signal = iota
	SignalReboot
	SignalPowerOff
)

// New prepares an unbooted Machine. log may be nil, in which case
// slog.Default() is used.
func New(log *slog.Logger) *Machine {
	if log == nil {
		log = slog.Default()
	}
	return &Machine{log: log, Signals: make(chan Signal, 1)}
}

// Boot loads configPath and brings every subsystem up in order: cpu, pmm,
// pit, scheduler, keyboard, blockdev, fs/ext2+fs/vfs. It does not touch
// exec/registry; InstallDefaultUtilities does that.
// A failure past cpu.Init is unrecoverable at this layer, matching
// spec.md §7 ("a failing core initialization cannot be recovered"); Boot
// returns the first error instead of trying to continue bring-up.
func (m *Machine) Boot(configPath string) error {
	pending = pendingConfig{pitHz: 100}

	if err := config.Load(configPath); err != nil {
		return fmt.Errorf("boot: loading configuration: %w", err)
	}

	cpu.Init()
	m.log.Info("cpu initialized")

	if len(pending.memoryMap) == 0 {
		return fmt.Errorf("boot: no MEMORY directives in %s", configPath)
	}
	pmm.Init(pending.memoryMap)
	m.log.Info("physical memory manager initialized", "total_bytes", pmm.TotalMemory())

	pit.Init(pending.pitHz)
	pit.Start()
	m.log.Info("pit started", "hz", pending.pitHz)

	scheduler.Init()
	scheduler.Start()
	m.log.Info("scheduler started")

	if err := keyboard.Init(); !err.Ok() {
		return fmt.Errorf("boot: keyboard init: %s", err)
	}
	m.log.Info("keyboard initialized")

	cpu.RegisterPort(qemuExitPort, &cpu.PortHandler{
		Out: func(v uint8) { m.requestExit(v) },
	})

	for _, spec := range pending.disks {
		if err := m.attachDisk(spec); err != nil {
			return err
		}
	}

	if pending.rootDiskID != "" {
		if err := m.mountRoot(pending.rootDiskID); err != nil {
			return err
		}
	}

	cpu.Sti()
	m.log.Info("boot complete")
	return nil
}

func (m *Machine) attachDisk(spec diskSpec) error {
	fb, err := blockdev.OpenFileBacked(spec.path, spec.blockSize, spec.blockCount)
	if !err.Ok() {
		return fmt.Errorf("boot: opening disk %s at %s: %s", spec.id, spec.path, err)
	}
	if regErr := blockdev.Register(spec.id, fb); !regErr.Ok() {
		return fmt.Errorf("boot: registering disk %s: %s", spec.id, regErr)
	}
	m.log.Info("disk attached", "id", spec.id, "path", spec.path)
	return nil
}

func (m *Machine) mountRoot(id string) error {
	desc := blockdev.Lookup(id)
	if desc == nil {
		return fmt.Errorf("boot: ROOT references unknown disk %s", id)
	}
	fs, err := ext2.Mount(desc.Driver)
	if !err.Ok() {
		return fmt.Errorf("boot: mounting root filesystem on %s: %s", id, err)
	}
	m.Root = fs
	vfs.Mount(fs)
	m.log.Info("root filesystem mounted", "disk", id)
	return nil
}

// requestExit decodes a write to the QEMU-style debug-exit port: 0
// requests a reboot, any other byte a power-off with that code.
func (m *Machine) requestExit(v uint8) {
	if v == 0 {
		m.Reboot()
		return
	}
	m.PowerOff(v)
}

// Reboot is the privileged restart path: on real hardware the kernel
// loads a zero-limit IDT descriptor and triggers an interrupt, forcing a
// triple fault the CPU resolves by resetting. nanok has no hardware IDT
// to corrupt, so the same operation is expressed as a control signal the
// host process observes and answers by restarting the simulated machine.
func (m *Machine) Reboot() {
	m.log.Warn("reboot requested (triple fault simulation)")
	select {
	case m.Signals <- SignalReboot:
	default:
	}
}

// PowerOff is the privileged shutdown path, simulating a write to
// QEMU's isa-debug-exit port. code is logged only: the SignalPowerOff
// it sends carries no exit status. ExitCode converts a code to QEMU's
// (code<<1)|1 status.
func (m *Machine) PowerOff(code uint8) {
	m.log.Warn("poweroff requested", "code", code)
	select {
	case m.Signals <- SignalPowerOff:
	default:
	}
}

// ExitCode converts an isa-debug-exit byte into the process exit status
// QEMU itself would report.
func ExitCode(code uint8) int {
	return int(code)<<1 | 1
}

func parseUint(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return n, nil
}

func memoryRegionFromOptions(value string, opts []config.Option) (base, length uint64, err error) {
	// A KindOptions directive hands its first token over as value; in
	// "MEMORY base=... length=..." that token is itself an option.
	for i := 0; i < len(value); i++ {
		if value[i] == '=' {
			opts = append([]config.Option{{Name: value[:i], EqualOpt: value[i+1:]}}, opts...)
			break
		}
	}
	for _, opt := range opts {
		switch opt.Name {
		case "base":
			base, err = parseUint(opt.EqualOpt)
		case "length":
			length, err = parseUint(opt.EqualOpt)
		}
		if err != nil {
			return 0, 0, err
		}
	}
	if length == 0 {
		return 0, 0, fmt.Errorf("MEMORY %s: missing length=", value)
	}
	return base, length, nil
}

// InstallDefaultUtilities registers the small set of programs nanok ships
// with the kernel image itself, so the registry is never empty on a
// freshly booted machine.
func (m *Machine) InstallDefaultUtilities() {
	registry.Install("sh", "/bin/sh", 0, 0)
}
