/*
 * nanok - Script interpreter.
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

// Package script is the line-oriented interpreter shared by every
// textual program syntax nanok runs (spec.md §4.8): a shell-style
// default mode plus Python-lite and BASIC-lite mini-modes selected by
// file extension. The cursor-based tokenizer (skipSpace/isEOL/getNext/
// quoted-string handling) follows the teacher's command-line parser
// convention; unlike the teacher's fixed command set bound at compile
// time, the first-token dispatch here falls through to an external
// lookup function so the shell layer's own utility table stays outside
// this package, per spec.md §6.
package script

import (
	"strconv"
	"strings"

	"github.com/nanok-project/nanok/pit"
	"github.com/nanok-project/nanok/shellapi"
)

// Mode selects which mini-grammar a source buffer is interpreted with.
type Mode int

const (
	ModeShell Mode = iota
	ModePython
	ModeBasic
)

// extensionAliases maps file extensions to an interpreter mode. Several
// shell-style variants alias to ModeShell, per spec.md §4.8.
var extensionAliases = map[string]Mode{
	".sh":    ModeShell,
	".nsh":   ModeShell,
	".cmd":   ModeShell,
	".rc":    ModeShell,
	".py":    ModePython,
	".pyw":   ModePython,
	".bas":   ModeBasic,
	".basic": ModeBasic,
}

// ModeForExtension returns the mode to interpret a file with, defaulting
// to ModeShell for an unknown or missing extension.
func ModeForExtension(ext string) Mode {
	if m, ok := extensionAliases[strings.ToLower(ext)]; ok {
		return m
	}
	return ModeShell
}

// MaxSourceBytes bounds how much of a loaded script is read into the
// context buffer; the remainder is silently dropped, per spec.md §4.8.
const MaxSourceBytes = 64 * 1024

const maxVars = 256

// Context is a single interpretation's mutable state, per spec.md §3.
type Context struct {
	Source     []byte
	Line       int
	Vars       map[string]string
	ErrorCount int
	ExitCode   int
	exiting    bool
}

// NewContext loads src, truncated to MaxSourceBytes.
func NewContext(src []byte) *Context {
	if len(src) > MaxSourceBytes {
		src = src[:MaxSourceBytes]
	}
	return &Context{Source: src, Vars: make(map[string]string)}
}

// CommandLookup resolves a first token that isn't one of the built-ins
// to the shell layer's external utility table, per spec.md §6.
type CommandLookup func(name string, args []string, tty shellapi.TTY) (handled bool, exitCode int)

// Run interprets ctx.Source under mode, writing output through tty and
// falling back to lookup for anything that isn't a recognized built-in.
func Run(ctx *Context, mode Mode, tty shellapi.TTY, lookup CommandLookup) int {
	lines := splitLines(string(ctx.Source))
	for i, raw := range lines {
		ctx.Line = i + 1
		if ctx.exiting {
			break
		}
		if i == 0 && strings.HasPrefix(raw, "#!") {
			continue // shebang.
		}
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch mode {
		case ModePython:
			runPythonLine(ctx, line, tty, lookup)
		case ModeBasic:
			runBasicLine(ctx, line, tty, lookup)
		default:
			runShellLine(ctx, line, tty, lookup)
		}
	}
	return ctx.ExitCode
}

func splitLines(src string) []string {
	return strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
}

// expandVars replaces $NAME and ${NAME} with the current value, or
// empty string when unset, per spec.md §4.8. Expansion happens before
// tokenization.
func expandVars(ctx *Context, line string) string {
	var out strings.Builder
	i := 0
	for i < len(line) {
		c := line[i]
		if c != '$' || i+1 >= len(line) {
			out.WriteByte(c)
			i++
			continue
		}
		if line[i+1] == '{' {
			end := strings.IndexByte(line[i+2:], '}')
			if end < 0 {
				out.WriteByte(c)
				i++
				continue
			}
			name := line[i+2 : i+2+end]
			out.WriteString(ctx.Vars[name])
			i += 2 + end + 1
			continue
		}
		j := i + 1
		for j < len(line) && isNameByte(line[j]) {
			j++
		}
		if j == i+1 {
			out.WriteByte(c)
			i++
			continue
		}
		out.WriteString(ctx.Vars[line[i+1:j]])
		i = j
	}
	return out.String()
}

func isNameByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// cursor is the shared tokenizer: whitespace-separated words plus
// single/double-quoted strings with no escape processing inside quotes.
type cursor struct {
	src []byte
	pos int
}

func (c *cursor) isEOL() bool { return c.pos >= len(c.src) }

func (c *cursor) skipSpace() {
	for !c.isEOL() && (c.src[c.pos] == ' ' || c.src[c.pos] == '\t') {
		c.pos++
	}
}

// getNext returns the next whitespace-delimited token, honoring quotes.
func (c *cursor) getNext() (string, bool) {
	c.skipSpace()
	if c.isEOL() {
		return "", false
	}
	if c.src[c.pos] == '\'' || c.src[c.pos] == '"' {
		return c.parseQuoteString(), true
	}
	start := c.pos
	for !c.isEOL() && c.src[c.pos] != ' ' && c.src[c.pos] != '\t' {
		c.pos++
	}
	return string(c.src[start:c.pos]), true
}

func (c *cursor) parseQuoteString() string {
	quote := c.src[c.pos]
	c.pos++
	start := c.pos
	for !c.isEOL() && c.src[c.pos] != quote {
		c.pos++
	}
	s := string(c.src[start:c.pos])
	if !c.isEOL() {
		c.pos++ // closing quote.
	}
	return s
}

func tokenize(line string) []string {
	c := cursor{src: []byte(line)}
	var tokens []string
	for {
		tok, ok := c.getNext()
		if !ok {
			break
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

func runShellLine(ctx *Context, line string, tty shellapi.TTY, lookup CommandLookup) {
	expanded := expandVars(ctx, line)
	tokens := tokenize(expanded)
	if len(tokens) == 0 {
		return
	}
	cmd, args := tokens[0], tokens[1:]

	switch cmd {
	case "echo", "print":
		tty.Puts(strings.Join(args, " ") + "\n")
	case "set", "let":
		if len(args) == 0 {
			ctx.ErrorCount++
			return
		}
		if len(ctx.Vars) >= maxVars {
			ctx.ErrorCount++
			return
		}
		ctx.Vars[args[0]] = strings.Join(args[1:], " ")
	case "sleep":
		if len(args) != 1 {
			ctx.ErrorCount++
			return
		}
		ms, err := strconv.Atoi(args[0])
		if err != nil {
			ctx.ErrorCount++
			return
		}
		pit.SleepMS(ms)
	case "exit", "quit":
		ctx.ExitCode = 0
		if len(args) == 1 {
			if n, err := strconv.Atoi(args[0]); err == nil {
				ctx.ExitCode = n
			}
		}
		ctx.exiting = true
	default:
		if lookup != nil {
			if handled, code := lookup(cmd, args, tty); handled {
				if code != 0 {
					ctx.ExitCode = code
				}
				return
			}
		}
		ctx.ErrorCount++
		tty.Printf("unknown command: %s\n", cmd)
	}
}

// evalPythonArg resolves a single print() argument: a quoted string is
// literal text (with $ expansion applied inside), a bare valid identifier
// is a variable reference, and anything else is expanded as-is.
func evalPythonArg(ctx *Context, inner string) string {
	if n := len(inner); n >= 2 && (inner[0] == '"' || inner[0] == '\'') && inner[n-1] == inner[0] {
		return expandVars(ctx, inner[1:n-1])
	}
	if isValidName(inner) {
		return ctx.Vars[inner]
	}
	return expandVars(ctx, inner)
}

// runPythonLine accepts print("literal") and NAME = VALUE assignments,
// per spec.md §4.8's Python-lite mode.
func runPythonLine(ctx *Context, line string, tty shellapi.TTY, lookup CommandLookup) {
	if strings.HasPrefix(line, "print(") && strings.HasSuffix(line, ")") {
		inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(line, "print("), ")"))
		tty.Puts(evalPythonArg(ctx, inner) + "\n")
		return
	}
	if idx := strings.Index(line, "="); idx > 0 {
		name := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		value = strings.Trim(value, "\"'")
		if isValidName(name) {
			ctx.Vars[name] = expandVars(ctx, value)
			return
		}
	}
	runShellLine(ctx, line, tty, lookup)
}

// runBasicLine accepts PRINT "..." and LET NAME = ..., per spec.md
// §4.8's BASIC-lite mode.
func runBasicLine(ctx *Context, line string, tty shellapi.TTY, lookup CommandLookup) {
	upper := strings.ToUpper(line)
	switch {
	case strings.HasPrefix(upper, "PRINT "):
		arg := strings.TrimSpace(line[len("PRINT "):])
		arg = strings.Trim(arg, "\"")
		tty.Puts(expandVars(ctx, arg) + "\n")
	case strings.HasPrefix(upper, "LET "):
		rest := line[len("LET "):]
		if idx := strings.Index(rest, "="); idx > 0 {
			name := strings.TrimSpace(rest[:idx])
			value := strings.TrimSpace(rest[idx+1:])
			value = strings.Trim(value, "\"")
			ctx.Vars[name] = expandVars(ctx, value)
		}
	default:
		runShellLine(ctx, line, tty, lookup)
	}
}

func isValidName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isNameByte(s[i]) {
			return false
		}
	}
	return true
}
