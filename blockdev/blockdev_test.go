/*
 * nanok - Block device registry test cases.
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

package blockdev

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nanok-project/nanok/util/kerr"
)

func newTestImage(t *testing.T, blocks int, blockSize int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "disk.img")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Truncate(int64(blocks * blockSize)); err != nil {
		t.Fatal(err)
	}
	f.Close()
	return path
}

func resetRegistry() {
	reg = registry{}
}

func TestRegisterRejectsDuplicateID(t *testing.T) {
	resetRegistry()
	path := newTestImage(t, 16, 512)
	fb, err := OpenFileBacked(path, 512, 16)
	if !err.Ok() {
		t.Fatalf("OpenFileBacked failed: %v", err)
	}
	if err := Register("disk0", fb); !err.Ok() {
		t.Fatalf("first register failed: %v", err)
	}
	if err := Register("disk0", fb); err != kerr.ErrExists {
		t.Fatalf("expected ErrExists, got %v", err)
	}
}

func TestReadWriteBlocksRoundTrip(t *testing.T) {
	resetRegistry()
	path := newTestImage(t, 16, 512)
	fb, err := OpenFileBacked(path, 512, 16)
	if !err.Ok() {
		t.Fatalf("OpenFileBacked failed: %v", err)
	}
	if err := Register("disk0", fb); !err.Ok() {
		t.Fatalf("register failed: %v", err)
	}

	want := make([]byte, 512*2)
	for i := range want {
		want[i] = byte(i)
	}
	if err := WriteBlocks("disk0", 3, 2, want); !err.Ok() {
		t.Fatalf("write failed: %v", err)
	}

	got := make([]byte, 512*2)
	if err := ReadBlocks("disk0", 3, 2, got); !err.Ok() {
		t.Fatalf("read failed: %v", err)
	}
	for i := range want {
		if want[i] != got[i] {
			t.Fatalf("mismatch at byte %d: want %d got %d", i, want[i], got[i])
		}
	}
}

func TestReadBlocksOutOfRangeFails(t *testing.T) {
	resetRegistry()
	path := newTestImage(t, 4, 512)
	fb, _ := OpenFileBacked(path, 512, 4)
	Register("disk0", fb)

	buf := make([]byte, 512*2)
	if err := ReadBlocks("disk0", 3, 2, buf); err != kerr.ErrInvalidBlock {
		t.Fatalf("expected ErrInvalidBlock, got %v", err)
	}
}

func TestUnregisterShiftsRemainingEntries(t *testing.T) {
	resetRegistry()
	p1 := newTestImage(t, 4, 512)
	p2 := newTestImage(t, 4, 512)
	fb1, _ := OpenFileBacked(p1, 512, 4)
	fb2, _ := OpenFileBacked(p2, 512, 4)
	Register("a", fb1)
	Register("b", fb2)

	if err := Unregister("a"); !err.Ok() {
		t.Fatalf("unregister failed: %v", err)
	}
	if Lookup("a") != nil {
		t.Fatal("expected a to be gone")
	}
	if Lookup("b") == nil {
		t.Fatal("expected b to remain")
	}
}

func TestDeviceMissingOnUnknownID(t *testing.T) {
	resetRegistry()
	buf := make([]byte, 512)
	if err := ReadBlocks("nope", 0, 1, buf); err != kerr.ErrDeviceMissing {
		t.Fatalf("expected ErrDeviceMissing, got %v", err)
	}
}
