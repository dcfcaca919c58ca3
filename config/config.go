/*
 * nanok - Boot configuration file parser.
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

// Package config parses the host-process boot configuration file: the
// harness-level directives that stand in for what a real multiboot
// bootloader would otherwise hand the kernel (which host file backs which
// simulated disk, how much physical memory to report, the PIT frequency).
// It is deliberately modeled on a tiny line grammar, not a general markup
// format, the same shape and register-an-extension-point pattern the
// teacher's own device-configuration file parser uses.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// NoAddr marks a directive with no numeric address argument.
const NoAddr uint16 = 0xffff

// Option is one name[=value][,value...] token trailing a directive.
type Option struct {
	Name     string
	EqualOpt string
	Value    []string
}

// Directive kinds, mirroring how much of the line follows the keyword.
const (
	KindAddressed = 1 + iota // keyword <addr> options...
	KindValue                // keyword <value>
	KindOptions              // keyword <addr-or-name> options...
	KindSwitch               // keyword alone
)

type directive struct {
	create func(addr uint16, value string, opts []Option) error
	kind   int
}

var registry = map[string]directive{}
var lineNumber int

// Register installs a handler for keyword, called once per matching line
// found while loading a config file. Intended to be called from package
// init() the way the teacher registers device models.
func Register(keyword string, kind int, fn func(addr uint16, value string, opts []Option) error) {
	registry[strings.ToUpper(keyword)] = directive{create: fn, kind: kind}
}

// Load reads and applies every directive in the named file, in order.
// A malformed or unknown directive aborts the whole load with a line
// number in the error.
func Load(name string) error {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()

	lineNumber = 0
	reader := bufio.NewReader(file)
	for {
		raw, err := reader.ReadString('\n')
		lineNumber++
		if len(raw) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if applyErr := applyLine(raw); applyErr != nil {
			return applyErr
		}
		if err != nil {
			return nil
		}
	}
}

type cursor struct {
	line string
	pos  int
}

func applyLine(raw string) error {
	c := &cursor{line: raw}
	keyword := c.word()
	if keyword == "" {
		return nil
	}

	dir, ok := registry[strings.ToUpper(keyword)]
	if !ok {
		return fmt.Errorf("config line %d: unknown directive %q", lineNumber, keyword)
	}

	switch dir.kind {
	case KindAddressed, KindOptions:
		addr, value, hasAddr := c.addrOrValue()
		if !hasAddr && dir.kind == KindAddressed {
			return fmt.Errorf("config line %d: %q requires an address", lineNumber, keyword)
		}
		opts, err := c.options()
		if err != nil {
			return err
		}
		return dir.create(addr, value, opts)
	case KindValue:
		_, value, _ := c.addrOrValue()
		c.skipSpace()
		if !c.eol() {
			return fmt.Errorf("config line %d: %q takes a single value", lineNumber, keyword)
		}
		return dir.create(NoAddr, value, nil)
	case KindSwitch:
		c.skipSpace()
		if !c.eol() {
			return fmt.Errorf("config line %d: %q takes no arguments", lineNumber, keyword)
		}
		return dir.create(NoAddr, "", nil)
	}
	return nil
}

func (c *cursor) eol() bool {
	if c.pos >= len(c.line) {
		return true
	}
	return c.line[c.pos] == '#'
}

func (c *cursor) skipSpace() {
	for c.pos < len(c.line) && unicode.IsSpace(rune(c.line[c.pos])) {
		c.pos++
	}
}

func (c *cursor) next() byte {
	c.pos++
	if c.eol() {
		return 0
	}
	return c.line[c.pos]
}

// word reads the directive keyword: letters and digits only.
func (c *cursor) word() string {
	c.skipSpace()
	if c.eol() {
		return ""
	}
	value := ""
	for !c.eol() {
		by := c.line[c.pos]
		if !unicode.IsLetter(rune(by)) && !unicode.IsDigit(rune(by)) {
			break
		}
		value += string(by)
		c.pos++
	}
	return value
}

// addrOrValue reads the token right after the keyword: a hex device
// address when it parses as one, otherwise an opaque value string.
func (c *cursor) addrOrValue() (addr uint16, value string, isAddr bool) {
	c.skipSpace()
	if c.eol() {
		return NoAddr, "", false
	}
	start := c.pos
	for !c.eol() && !unicode.IsSpace(rune(c.line[c.pos])) {
		c.pos++
	}
	value = c.line[start:c.pos]
	if n, err := strconv.ParseUint(value, 16, 16); err == nil {
		return uint16(n), value, true
	}
	return NoAddr, value, false
}

// quoted reads a "quoted string" or a bare token up to the next
// whitespace or comma.
func (c *cursor) quoted() (string, error) {
	value := ""
	inQuote := false
	if c.pos < len(c.line) && c.line[c.pos] == '"' {
		inQuote = true
		c.pos++
	}
	for {
		if c.pos >= len(c.line) {
			return value, nil
		}
		by := c.line[c.pos]
		if inQuote && by == '"' {
			c.pos++
			return value, nil
		}
		if !inQuote && (unicode.IsSpace(rune(by)) || by == ',' || by == '#') {
			return value, nil
		}
		value += string(by)
		c.pos++
	}
}

// options collects the trailing name[=value][,value]* list.
func (c *cursor) options() ([]Option, error) {
	var opts []Option
	for {
		c.skipSpace()
		if c.eol() {
			return opts, nil
		}
		name := c.word()
		if name == "" {
			return nil, fmt.Errorf("config line %d: expected option name", lineNumber)
		}
		opt := Option{Name: name}
		if c.pos < len(c.line) && c.line[c.pos] == '=' {
			c.pos++
			v, err := c.quoted()
			if err != nil {
				return nil, err
			}
			opt.EqualOpt = v
		}
		c.skipSpace()
		for c.pos < len(c.line) && c.line[c.pos] == ',' {
			c.pos++
			c.skipSpace()
			v, err := c.quoted()
			if err != nil {
				return nil, err
			}
			opt.Value = append(opt.Value, v)
			c.skipSpace()
		}
		opts = append(opts, opt)
	}
}
