/*
 * nanok - Hex formatting helpers.
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

// Package hex renders fixed-width kernel values (physical addresses, PCB
// registers, scancodes) as upper-case hex into a caller-supplied
// strings.Builder, avoiding fmt.Sprintf allocation in hot diagnostic paths
// the way the teacher's disassembler formatting does for instruction dumps.
package hex

import "strings"

var digits = "0123456789ABCDEF"

// Word32 appends an 8-digit hex rendering of v, followed by a space.
func Word32(str *strings.Builder, v uint32) {
	shift := 28
	for range 8 {
		str.WriteByte(digits[(v>>shift)&0xf])
		shift -= 4
	}
	str.WriteByte(' ')
}

// Half16 appends a 4-digit hex rendering of v.
func Half16(str *strings.Builder, v uint16) {
	shift := 12
	for range 4 {
		str.WriteByte(digits[(v>>shift)&0xf])
		shift -= 4
	}
}

// Byte8 appends a 2-digit hex rendering of v.
func Byte8(str *strings.Builder, v uint8) {
	str.WriteByte(digits[(v>>4)&0xf])
	str.WriteByte(digits[v&0xf])
}

// Bytes appends each byte of data as a 2-digit hex pair, space separated
// when space is true.
func Bytes(str *strings.Builder, space bool, data []byte) {
	for _, by := range data {
		Byte8(str, by)
		if space {
			str.WriteByte(' ')
		}
	}
}

// Dump formats data as addr-prefixed 16-byte hex rows, the layout a
// kernel "examine memory" diagnostic command would print.
func Dump(base uint32, data []byte) string {
	var b strings.Builder
	for i := 0; i < len(data); i += 16 {
		Word32(&b, base+uint32(i))
		b.WriteByte(' ')
		end := min(i+16, len(data))
		Bytes(&b, true, data[i:end])
		b.WriteByte('\n')
	}
	return b.String()
}
