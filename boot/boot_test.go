/*
 * nanok - Kernel bring-up test cases.
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

package boot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nanok-project/nanok/cpu"
)

const samplePS2Ports = `
MEMORY base=0x0 length=0x2000000
PIT 200
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "nanok.cfg")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func installFakeKeyboard(t *testing.T) {
	t.Helper()
	const (
		portData             = 0x60
		portCmd              = 0x64
		statusOutputFull     = 0x01
		cmdSelfTest          = 0xAA
		cmdInterfaceTst      = 0xAB
		cmdReadConfig        = 0x20
		selfTestPass         = 0x55
		interfaceTestPass    = 0x00
		devACK               = 0xFA
	)
	var queue []byte

	cpu.RegisterPort(portCmd, &cpu.PortHandler{
		Out: func(v byte) {
			switch v {
			case cmdSelfTest:
				queue = append(queue, selfTestPass)
			case cmdInterfaceTst:
				queue = append(queue, interfaceTestPass)
			case cmdReadConfig:
				queue = append(queue, 0x00)
			}
		},
		In: func() byte {
			if len(queue) > 0 {
				return statusOutputFull
			}
			return 0
		},
	})

	cpu.RegisterPort(portData, &cpu.PortHandler{
		Out: func(v byte) {
			queue = append(queue, devACK)
		},
		In: func() byte {
			if len(queue) == 0 {
				return 0
			}
			b := queue[0]
			queue = queue[1:]
			return b
		},
	})
}

func TestMemoryDirectiveAccumulatesRegions(t *testing.T) {
	pending = pendingConfig{}
	path := writeConfig(t, "MEMORY base=0x0 length=0x1000\nMEMORY base=0x100000 length=0x2000\n")
	m := New(nil)
	installFakeKeyboard(t)
	if err := m.Boot(path); err != nil {
		t.Fatalf("Boot failed: %v", err)
	}
	if len(pending.memoryMap) != 2 {
		t.Fatalf("expected 2 memory regions, got %d", len(pending.memoryMap))
	}
	if pending.memoryMap[1].Base != 0x100000 || pending.memoryMap[1].Length != 0x2000 {
		t.Fatalf("unexpected second region: %+v", pending.memoryMap[1])
	}
}

func TestBootFailsWithoutMemoryDirective(t *testing.T) {
	pending = pendingConfig{}
	path := writeConfig(t, "PIT 100\n")
	m := New(nil)
	if err := m.Boot(path); err == nil {
		t.Fatal("expected Boot to fail without a MEMORY directive")
	}
}

func TestBootBringsUpSubsystems(t *testing.T) {
	pending = pendingConfig{}
	path := writeConfig(t, samplePS2Ports)
	m := New(nil)
	installFakeKeyboard(t)
	if err := m.Boot(path); err != nil {
		t.Fatalf("Boot failed: %v", err)
	}
	if !cpu.Initialized() {
		t.Fatal("expected cpu to be initialized after Boot")
	}
}

func TestDiskDirectiveRequiresPath(t *testing.T) {
	pending = pendingConfig{}
	path := writeConfig(t, "MEMORY base=0x0 length=0x1000\nDISK hda blocksize=512\n")
	m := New(nil)
	if err := m.Boot(path); err == nil {
		t.Fatal("expected Boot to fail when a DISK directive omits path=")
	}
}

func TestRebootSendsSignal(t *testing.T) {
	m := New(nil)
	m.Reboot()
	select {
	case sig := <-m.Signals:
		if sig != SignalReboot {
			t.Fatalf("expected SignalReboot, got %v", sig)
		}
	default:
		t.Fatal("expected a signal on the channel")
	}
}

func TestPowerOffSendsSignal(t *testing.T) {
	m := New(nil)
	m.PowerOff(0)
	select {
	case sig := <-m.Signals:
		if sig != SignalPowerOff {
			t.Fatalf("expected SignalPowerOff, got %v", sig)
		}
	default:
		t.Fatal("expected a signal on the channel")
	}
}

func TestExitCodeMatchesQemuConvention(t *testing.T) {
	if got := ExitCode(3); got != 7 {
		t.Fatalf("ExitCode(3) = %d, want 7", got)
	}
}
