/*
 * nanok - Installed program registry test cases.
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

package registry

import (
	"testing"

	"github.com/nanok-project/nanok/util/kerr"
)

type fakeAdmin bool

func (f fakeAdmin) IsAdmin() bool { return bool(f) }

func resetRegistry() {
	reg = table{nextID: 1}
}

func TestInstallAssignsMonotonicIDs(t *testing.T) {
	resetRegistry()
	a := Install("a", "/bin/a", 0, 100)
	b := Install("b", "/bin/b", 0, 200)
	if a == 0 || b == 0 || b <= a {
		t.Fatalf("expected increasing nonzero ids, got a=%d b=%d", a, b)
	}
}

func TestLookupExactMatch(t *testing.T) {
	resetRegistry()
	Install("echo", "/bin/echo", 0, 10)
	if _, ok := Lookup("echo"); !ok {
		t.Fatal("expected to find echo")
	}
	if _, ok := Lookup("ech"); ok {
		t.Fatal("expected prefix match to fail")
	}
}

func TestRemoveRequiresAdmin(t *testing.T) {
	resetRegistry()
	Install("tool", "/bin/tool", 0, 10)
	if err := Remove("tool", fakeAdmin(false)); err != kerr.ErrAccess {
		t.Fatalf("expected ErrAccess for non-admin, got %v", err)
	}
	if _, ok := Lookup("tool"); !ok {
		t.Fatal("entry should survive a rejected removal")
	}
	if err := Remove("tool", fakeAdmin(true)); !err.Ok() {
		t.Fatalf("expected admin removal to succeed, got %v", err)
	}
	if _, ok := Lookup("tool"); ok {
		t.Fatal("entry should be gone after admin removal")
	}
}

func TestDecodeHeaderRejectsBadMagic(t *testing.T) {
	raw := make([]byte, HeaderSize)
	if _, err := DecodeHeader(raw); err.Ok() {
		t.Fatal("expected failure on zeroed header")
	}
}

func TestDecodeHeaderRoundTrip(t *testing.T) {
	raw := make([]byte, HeaderSize)
	raw[0], raw[1], raw[2], raw[3] = 0x49, 0x41, 0x50, 0x4D // "IAPM" little-endian.
	copy(raw[20:], []byte("hello"))
	h, err := DecodeHeader(raw)
	if !err.Ok() {
		t.Fatalf("expected success, got %v", err)
	}
	if h.Name != "hello" {
		t.Fatalf("expected name %q, got %q", "hello", h.Name)
	}
}
