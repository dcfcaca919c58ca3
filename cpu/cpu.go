/*
 * nanok - CPU bring-up and interrupt dispatch.
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

package cpu

import "log/slog"

var initialized bool

// Init brings up segmentation and interrupt dispatch in the order spec.md
// §4.1 requires: GDT+TSS, then the IDT (stubs for vectors 0-255), then
// the PIC remap to 32-47. There is no runtime failure mode for this
// bring-up (§4.1) — Init never returns an error — but Machine.Boot in package
// boot returns an error before calling Sti if anything downstream of Init fails,
// satisfying §7's "a failing core initialization cannot be recovered"
// rule at the orchestration layer instead of inside Init itself.
func Init() {
	initGDT()
	initIDT()
	remapPIC()
	initialized = true
	slog.Info("cpu initialized", "gdt", gdtLoaded(), "idt", idt.loaded)
}

// Initialized reports whether Init has completed.
func Initialized() bool {
	return initialized
}
