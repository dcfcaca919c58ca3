/*
 * nanok - Shell collaborator interfaces.
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

// Package shellapi defines the interfaces nanok's core exposes to the
// excluded external collaborators named in spec.md §6: the shell's
// built-in utility commands, the TUI, and the user-account store. The
// core depends only on these small contracts, never on their
// implementations, following the teacher's pattern of keeping device and
// console I/O behind a narrow interface (its command/reader package).
package shellapi

// TTY is the standard I/O contract shell utilities use; the core
// provides at least one implementation bound to the keyboard/console
// pair, but never assumes which.
type TTY interface {
	Puts(s string)
	Printf(format string, args ...any)
	GetLine() (string, bool)
}

// UserAdmin answers whether the current session may perform privileged
// operations, per spec.md §4.8 ("removal is gated by an administrator
// check provided by the user subsystem").
type UserAdmin interface {
	IsAdmin() bool
}
