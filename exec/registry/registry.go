/*
 * nanok - Installed program registry.
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

// Package registry is the fixed-capacity table of installed programs
// (spec.md §4.8): identifiers from a monotonic counter, exact-name
// lookup, and admin-gated removal. It follows the teacher's
// fixed-capacity-array registration convention (its device/command
// registries) rather than a map, since identifiers must never be reused
// while an entry is installed.
package registry

import (
	"encoding/binary"
	"sync"

	"github.com/nanok-project/nanok/shellapi"
	"github.com/nanok-project/nanok/util/kerr"
)

const (
	maxEntries = 128

	// HeaderMagic is the installed-program package header magic,
	// "IAPM" read little-endian, per spec.md §6.
	HeaderMagic  uint32 = 0x4D504149
	HeaderSize          = 128
	nameFieldLen        = 32
	authorFieldLen      = 32
	descFieldLen        = 40
)

// Header is the 128-byte on-disk package header of an installed program.
type Header struct {
	FormatVersion uint8
	LanguageTag   uint8
	Flags         uint8
	EntryOffset   uint32
	CodeSize      uint32
	DataSize      uint32
	Name          string
	Author        string
	Description   string
	Checksum      uint32
}

// DecodeHeader parses a 128-byte buffer into a Header. Fails with
// ErrBadMagic-equivalent (ErrInvalidArg here, since the taxonomy has no
// dedicated package-header error) if the magic does not match.
func DecodeHeader(raw []byte) (Header, kerr.KError) {
	if len(raw) < HeaderSize {
		return Header{}, kerr.ErrInvalidArg
	}
	if binary.LittleEndian.Uint32(raw[0:4]) != HeaderMagic {
		return Header{}, kerr.ErrInvalidArg
	}
	h := Header{
		FormatVersion: raw[4],
		LanguageTag:   raw[5],
		Flags:         raw[6],
		EntryOffset:   binary.LittleEndian.Uint32(raw[8:12]),
		CodeSize:      binary.LittleEndian.Uint32(raw[12:16]),
		DataSize:      binary.LittleEndian.Uint32(raw[16:20]),
		Name:          trimNul(raw[20 : 20+nameFieldLen]),
		Author:        trimNul(raw[20+nameFieldLen : 20+nameFieldLen+authorFieldLen]),
		Description:   trimNul(raw[20+nameFieldLen+authorFieldLen : 20+nameFieldLen+authorFieldLen+descFieldLen]),
		Checksum:      binary.LittleEndian.Uint32(raw[HeaderSize-4 : HeaderSize]),
	}
	return h, kerr.OK
}

func trimNul(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// Entry is one installed program, per spec.md §3.
type Entry struct {
	ID        uint32
	Name      string
	Path      string
	Language  uint8
	Installed bool
	SizeHint  uint32
}

type table struct {
	mu      sync.Mutex
	entries [maxEntries]*Entry
	nextID  uint32
}

var reg = table{nextID: 1}

// Install adds a new entry, assigning the next identifier. Returns 0 if
// the table is full.
func Install(name, path string, language uint8, sizeHint uint32) uint32 {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	slot := -1
	for i, e := range reg.entries {
		if e == nil {
			slot = i
			break
		}
	}
	if slot == -1 {
		return 0
	}
	id := reg.nextID
	reg.nextID++
	reg.entries[slot] = &Entry{ID: id, Name: name, Path: path, Language: language, Installed: true, SizeHint: sizeHint}
	return id
}

// Lookup finds an entry by exact name match.
func Lookup(name string) (Entry, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for _, e := range reg.entries {
		if e != nil && e.Installed && e.Name == name {
			return *e, true
		}
	}
	return Entry{}, false
}

// List returns every installed entry, in slot order.
func List() []Entry {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	var out []Entry
	for _, e := range reg.entries {
		if e != nil && e.Installed {
			out = append(out, *e)
		}
	}
	return out
}

// Remove uninstalls the entry named name, requiring admin's IsAdmin to
// return true, per spec.md §4.8.
func Remove(name string, admin shellapi.UserAdmin) kerr.KError {
	if admin == nil || !admin.IsAdmin() {
		return kerr.ErrAccess
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for i, e := range reg.entries {
		if e != nil && e.Installed && e.Name == name {
			reg.entries[i] = nil
			return kerr.OK
		}
	}
	return kerr.ErrNotFound
}
