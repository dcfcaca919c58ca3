/*
 * nanok - Virtual filesystem dispatcher test cases.
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

package vfs

import (
	"testing"

	"github.com/nanok-project/nanok/fs/ext2"
	"github.com/nanok-project/nanok/util/kerr"
)

func TestSanitizeResolvesDotAndDotDot(t *testing.T) {
	cases := map[string]string{
		"/a/./b/../c": "/a/c",
		"/a//b///c":   "/a/b/c",
		"/a/b/":       "/a/b",
		"/../a":       "/a",
		"":            "/",
		"/":           "/",
	}
	for in, want := range cases {
		if got := Sanitize(in); got != want {
			t.Errorf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestSanitizeIsIdempotent exercises testable property 6: re-sanitizing
// an already-sanitized path is a no-op.
func TestSanitizeIsIdempotent(t *testing.T) {
	inputs := []string{"/a/./b/../c", "/a//b///c", "/x/y/z", "/"}
	for _, in := range inputs {
		once := Sanitize(in)
		twice := Sanitize(once)
		if once != twice {
			t.Errorf("Sanitize not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

// fakeBackend is a minimal in-memory Backend for exercising the handle
// table without a real ext2 mount.
type fakeBackend struct {
	files map[string][]byte
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{files: map[string][]byte{"/f": []byte("data")}}
}

func (b *fakeBackend) Resolve(path string) (uint32, kerr.KError) {
	if _, ok := b.files[path]; ok {
		return 1, kerr.OK
	}
	return 0, kerr.ErrFileNotFound
}
func (b *fakeBackend) ReadAt(inode uint32, pos int64, buf []byte) (int, kerr.KError) {
	n := copy(buf, b.files["/f"][pos:])
	return n, kerr.OK
}
func (b *fakeBackend) WriteAt(inode uint32, pos int64, data []byte) (int, kerr.KError) {
	return len(data), kerr.OK
}
func (b *fakeBackend) CreateFile(path string) (uint32, kerr.KError)   { return 1, kerr.OK }
func (b *fakeBackend) CreateDir(path string) (uint32, kerr.KError)    { return 1, kerr.OK }
func (b *fakeBackend) List(path string, fn func(ext2.Entry)) kerr.KError { return kerr.OK }
func (b *fakeBackend) Stat(path string) (ext2.Entry, kerr.KError)     { return ext2.Entry{}, kerr.OK }
func (b *fakeBackend) Remove(path string) kerr.KError                 { return kerr.OK }

func resetVFS() {
	v = state{}
}

// TestHandleRefCounting exercises testable property 7: handles track a
// reference count and are freed only when it reaches zero.
func TestHandleRefCounting(t *testing.T) {
	resetVFS()
	Mount(newFakeBackend())

	h, err := Open("/f")
	if !err.Ok() {
		t.Fatalf("open failed: %v", err)
	}
	if err := Dup(h); !err.Ok() {
		t.Fatalf("dup failed: %v", err)
	}
	if v.handles[h].RefCount != 2 {
		t.Fatalf("expected refcount 2, got %d", v.handles[h].RefCount)
	}

	Close(h)
	if !v.handles[h].valid {
		t.Fatal("handle freed too early")
	}
	Close(h)
	if v.handles[h].valid {
		t.Fatal("expected handle to be freed at refcount 0")
	}
}

func TestOpenUnknownPathFails(t *testing.T) {
	resetVFS()
	Mount(newFakeBackend())
	if _, err := Open("/missing"); err != kerr.ErrFileNotFound {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestReadWithoutMountFails(t *testing.T) {
	resetVFS()
	if _, err := Read(0, make([]byte, 4)); err != kerr.ErrNotMounted {
		t.Fatalf("expected ErrNotMounted, got %v", err)
	}
}
