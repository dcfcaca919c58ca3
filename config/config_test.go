/*
 * nanok - Boot configuration file parser test cases.
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

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.cfg")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestAddressedDirectiveParsesHexAddrAndOptions(t *testing.T) {
	var gotAddr uint16
	var gotOpts []Option
	Register("TESTDEV", KindAddressed, func(addr uint16, value string, opts []Option) error {
		gotAddr = addr
		gotOpts = opts
		return nil
	})

	path := writeTempConfig(t, `TESTDEV 1f0 model=disk,"quoted value"`+"\n")
	if err := Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if gotAddr != 0x1f0 {
		t.Fatalf("expected addr 0x1f0, got 0x%x", gotAddr)
	}
	if len(gotOpts) != 1 || gotOpts[0].Name != "model" {
		t.Fatalf("unexpected options: %+v", gotOpts)
	}
	if len(gotOpts[0].Value) != 1 || gotOpts[0].Value[0] != "quoted value" {
		t.Fatalf("unexpected option values: %+v", gotOpts[0])
	}
}

func TestAddressedDirectiveRequiresAddr(t *testing.T) {
	Register("NEEDSADDR", KindAddressed, func(addr uint16, value string, opts []Option) error {
		return nil
	})
	path := writeTempConfig(t, "NEEDSADDR notanaddr\n")
	if err := Load(path); err == nil {
		t.Fatal("expected an error when an addressed directive has no hex address")
	}
}

func TestValueDirectiveRejectsTrailingTokens(t *testing.T) {
	var got string
	Register("SINGLEVALUE", KindValue, func(_ uint16, value string, _ []Option) error {
		got = value
		return nil
	})
	path := writeTempConfig(t, "SINGLEVALUE 100\n")
	if err := Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != "100" {
		t.Fatalf("expected value 100, got %q", got)
	}

	path2 := writeTempConfig(t, "SINGLEVALUE 100 extra\n")
	if err := Load(path2); err == nil {
		t.Fatal("expected an error for a value directive with trailing tokens")
	}
}

func TestSwitchDirectiveTakesNoArguments(t *testing.T) {
	called := false
	Register("ASWITCH", KindSwitch, func(_ uint16, _ string, _ []Option) error {
		called = true
		return nil
	})
	path := writeTempConfig(t, "ASWITCH\n")
	if err := Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !called {
		t.Fatal("expected switch handler to run")
	}
}

func TestUnknownDirectiveFails(t *testing.T) {
	path := writeTempConfig(t, "BOGUSKEYWORD foo\n")
	if err := Load(path); err == nil {
		t.Fatal("expected an error for an unregistered directive")
	}
}

func TestBlankLinesAndCommentsSkipped(t *testing.T) {
	count := 0
	Register("COUNTME", KindSwitch, func(_ uint16, _ string, _ []Option) error {
		count++
		return nil
	})
	path := writeTempConfig(t, "# a comment\n\nCOUNTME\n   \n# trailing comment\nCOUNTME\n")
	if err := Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 invocations, got %d", count)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if err := Load(filepath.Join(t.TempDir(), "missing.cfg")); err == nil {
		t.Fatal("expected an error loading a nonexistent file")
	}
}
