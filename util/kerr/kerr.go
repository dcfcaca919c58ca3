/*
 * nanok - Kernel error codes.
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

// Package kerr defines the stable, negative-valued error taxonomy nanok's
// layers report across their ABI boundary (spec.md §7). Zero always means
// success; every other value is a negative, stable KError.
package kerr

import "strconv"

// KError is a stable, ABI-facing error code. Zero is success; all other
// values are negative and never change meaning once assigned.
type KError int

// Generic errors, shared by every subsystem.
const (
	OK KError = 0

	ErrInvalidArg KError = -1 - iota
	ErrOutOfMemory
	ErrIO
	ErrNotFound
	ErrAccess
	ErrBusy
	ErrExists
	ErrIsDir
	ErrNotDir
)

// Storage errors (blockdev layer).
const (
	ErrDeviceMissing KError = -100 - iota
	ErrReadError
	ErrWriteError
	ErrTimeout
	ErrInvalidBlock
)

// Filesystem errors (fs/ext2, fs/vfs).
const (
	ErrNotMounted KError = -200 - iota
	ErrBadMagic
	ErrBlockReadWrite
	ErrInodeExhausted
	ErrBlockExhausted
	ErrDirFull
	ErrFileExists
	ErrFileNotFound
	ErrBadPath
)

// Input errors (keyboard layer).
const (
	ErrUninitialized KError = -300 - iota
	ErrSelfTestFailed
	ErrInterfaceFailed
	ErrBufferFull
	ErrParity
	ErrResend
	ErrNoAck
	ErrInputTimeout
)

var names = map[KError]string{
	OK:                 "ok",
	ErrInvalidArg:      "invalid argument",
	ErrOutOfMemory:     "out of memory",
	ErrIO:              "I/O error",
	ErrNotFound:        "not found",
	ErrAccess:          "access denied",
	ErrBusy:            "device busy",
	ErrExists:          "already exists",
	ErrIsDir:           "is a directory",
	ErrNotDir:          "not a directory",
	ErrDeviceMissing:   "no such device",
	ErrReadError:       "device read error",
	ErrWriteError:      "device write error",
	ErrTimeout:         "device timeout",
	ErrInvalidBlock:    "invalid block",
	ErrNotMounted:      "filesystem not mounted",
	ErrBadMagic:        "bad filesystem magic",
	ErrBlockReadWrite:  "block read/write failure",
	ErrInodeExhausted:  "inode table exhausted",
	ErrBlockExhausted:  "blocks exhausted",
	ErrDirFull:         "directory full",
	ErrFileExists:      "file exists",
	ErrFileNotFound:    "file not found",
	ErrBadPath:         "bad path",
	ErrUninitialized:   "keyboard not initialized",
	ErrSelfTestFailed:  "controller self-test failed",
	ErrInterfaceFailed: "interface test failed",
	ErrBufferFull:      "input buffer full",
	ErrParity:          "parity error",
	ErrResend:          "device requested resend",
	ErrNoAck:           "no acknowledgement",
	ErrInputTimeout:    "input timeout",
}

// Error satisfies the error interface so a KError can be returned,
// wrapped, and compared with errors.Is like any other Go error.
func (e KError) Error() string {
	if name, ok := names[e]; ok {
		return name
	}
	return "kerr " + strconv.Itoa(int(e))
}

// Ok reports whether e represents success.
func (e KError) Ok() bool {
	return e == OK
}
