/*
 * nanok - Virtual filesystem dispatcher.
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

// Package vfs is a thin dispatcher over a single active filesystem
// backend (spec.md §4.7): path sanitization, a file-handle table with
// reference counting, and straight-through forwarding of every
// operation to the backend. Only one backend is mounted at a time, kept
// as package-level singleton state like the rest of nanok's kernel
// modules.
package vfs

import (
	"strings"
	"sync"

	"github.com/nanok-project/nanok/fs/ext2"
	"github.com/nanok-project/nanok/util/kerr"
)

// Backend is the operation set a filesystem type must provide; ext2.FS
// satisfies it today, and it is the seam a future second backend would
// implement.
type Backend interface {
	Resolve(path string) (uint32, kerr.KError)
	ReadAt(inode uint32, pos int64, buf []byte) (int, kerr.KError)
	WriteAt(inode uint32, pos int64, data []byte) (int, kerr.KError)
	CreateFile(path string) (uint32, kerr.KError)
	CreateDir(path string) (uint32, kerr.KError)
	List(path string, fn func(ext2.Entry)) kerr.KError
	Stat(path string) (ext2.Entry, kerr.KError)
	Remove(path string) kerr.KError
}

const maxHandles = 64

// Handle is an indirect file handle: the sanitized path, the inode
// number the backend resolved it to, a byte position, and a reference
// count, per spec.md §3.
type Handle struct {
	Path     string
	Inode    uint32
	Position int64
	RefCount int
	valid    bool
}

type state struct {
	mu      sync.Mutex
	backend Backend
	handles [maxHandles]Handle
}

var v state

// Mount installs backend as the single active filesystem.
func Mount(backend Backend) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.backend = backend
}

// Sanitize resolves "." and "..", collapses repeated "/", and strips a
// trailing "/", satisfying testable property 6 (idempotence), per
// spec.md §4.7.
func Sanitize(path string) string {
	if path == "" {
		return "/"
	}
	absolute := strings.HasPrefix(path, "/")
	parts := strings.Split(path, "/")
	var stack []string
	for _, p := range parts {
		switch p {
		case "", ".":
			continue
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, p)
		}
	}
	joined := strings.Join(stack, "/")
	if absolute {
		return "/" + joined
	}
	if joined == "" {
		return "."
	}
	return joined
}

// Open sanitizes path, resolves it through the backend, and stores a new
// handle with a reference count of one. Returns a negative handle index
// (via kerr) on failure.
func Open(path string) (int, kerr.KError) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.backend == nil {
		return -1, kerr.ErrNotMounted
	}

	clean := Sanitize(path)
	inode, err := v.backend.Resolve(clean)
	if !err.Ok() {
		return -1, err
	}

	for i := range v.handles {
		if !v.handles[i].valid {
			v.handles[i] = Handle{Path: clean, Inode: inode, RefCount: 1, valid: true}
			return i, kerr.OK
		}
	}
	return -1, kerr.ErrBusy
}

// Close decrements the handle's refcount and forwards to the backend
// (nothing to forward today; the backend has no open/close notion) once
// it reaches zero.
func Close(handle int) kerr.KError {
	v.mu.Lock()
	defer v.mu.Unlock()
	if handle < 0 || handle >= maxHandles || !v.handles[handle].valid {
		return kerr.ErrInvalidArg
	}
	v.handles[handle].RefCount--
	if v.handles[handle].RefCount <= 0 {
		v.handles[handle] = Handle{}
	}
	return kerr.OK
}

// Dup increments handle's refcount, mirroring a second open of the same
// file.
func Dup(handle int) kerr.KError {
	v.mu.Lock()
	defer v.mu.Unlock()
	if handle < 0 || handle >= maxHandles || !v.handles[handle].valid {
		return kerr.ErrInvalidArg
	}
	v.handles[handle].RefCount++
	return kerr.OK
}

func (s *state) handleAt(h int) (*Handle, kerr.KError) {
	if h < 0 || h >= maxHandles || !s.handles[h].valid {
		return nil, kerr.ErrInvalidArg
	}
	return &s.handles[h], kerr.OK
}

// Read copies up to len(buf) bytes from handle's current position,
// advancing it.
func Read(handle int, buf []byte) (int, kerr.KError) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.backend == nil {
		return 0, kerr.ErrNotMounted
	}
	h, err := v.handleAt(handle)
	if !err.Ok() {
		return 0, err
	}
	n, err := v.backend.ReadAt(h.Inode, h.Position, buf)
	h.Position += int64(n)
	return n, err
}

// Write writes data at handle's current position, advancing it.
func Write(handle int, data []byte) (int, kerr.KError) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.backend == nil {
		return 0, kerr.ErrNotMounted
	}
	h, err := v.handleAt(handle)
	if !err.Ok() {
		return 0, err
	}
	n, err := v.backend.WriteAt(h.Inode, h.Position, data)
	h.Position += int64(n)
	return n, err
}

// CreateFile forwards to the backend after sanitizing path.
func CreateFile(path string) kerr.KError {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.backend == nil {
		return kerr.ErrNotMounted
	}
	_, err := v.backend.CreateFile(Sanitize(path))
	return err
}

// CreateDir forwards to the backend after sanitizing path.
func CreateDir(path string) kerr.KError {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.backend == nil {
		return kerr.ErrNotMounted
	}
	_, err := v.backend.CreateDir(Sanitize(path))
	return err
}

// ListDir forwards to the backend after sanitizing path.
func ListDir(path string, fn func(ext2.Entry)) kerr.KError {
	v.mu.Lock()
	backend := v.backend
	v.mu.Unlock()
	if backend == nil {
		return kerr.ErrNotMounted
	}
	return backend.List(Sanitize(path), fn)
}

// Exists reports whether path resolves to something.
func Exists(path string) bool {
	v.mu.Lock()
	backend := v.backend
	v.mu.Unlock()
	if backend == nil {
		return false
	}
	_, err := backend.Resolve(Sanitize(path))
	return err.Ok()
}

// GetFileSize forwards to the backend's Stat.
func GetFileSize(path string) (uint32, kerr.KError) {
	v.mu.Lock()
	backend := v.backend
	v.mu.Unlock()
	if backend == nil {
		return 0, kerr.ErrNotMounted
	}
	info, err := backend.Stat(Sanitize(path))
	return info.Size, err
}

// RemoveFile forwards to the backend after sanitizing path.
func RemoveFile(path string) kerr.KError {
	return remove(path)
}

// RemoveDir forwards to the backend after sanitizing path.
func RemoveDir(path string) kerr.KError {
	return remove(path)
}

func remove(path string) kerr.KError {
	v.mu.Lock()
	backend := v.backend
	v.mu.Unlock()
	if backend == nil {
		return kerr.ErrNotMounted
	}
	return backend.Remove(Sanitize(path))
}
