// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package repair

import (
	"fmt"
	"strings"
)

// Container parse positions. Arrays only use expectValue and afterValue.
const (
	expectKey = iota
	expectColon
	expectValue
	afterValue
)

type frame struct {
	open  byte
	state int
}

// scanResult is the output of a single repair pass.
type scanResult struct {
	text   string
	notes  []string
	closed bool // Closers, a string quote or a null had to be appended.
}

// repairScan walks text once, starting at its first '{', and rewrites it into
// something encoding/json accepts. Raw control characters inside strings are
// escaped and trailing commas are dropped. When the input ends before the
// document does, the scan closes an open value string, fills a dangling ':'
// with null, or rolls back to the last complete value, and then appends the
// closers for every open container in stack order.
func repairScan(text string) scanResult {
	out := make([]byte, 0, len(text)+16)
	var (
		stack       []frame
		notes       []string
		inString    bool
		escaped     bool
		stringIsKey bool
		inLiteral   bool
		commaAt     = -1 // Output index of a comma not yet followed by a value.
		safeLen     int
		safeDepth   int // Stack depth at the last safe point.
		safeState   int // State of the top frame at the last safe point.
		escapes     int
		commas      int
	)

	// markSafe records a point the output can be rolled back to. Only the top
	// frame is saved: frames below it cannot change before it is popped, and
	// every pop marks a new safe point.
	markSafe := func() {
		safeLen = len(out)
		safeDepth = len(stack)
		if safeDepth > 0 {
			safeState = stack[safeDepth-1].state
		}
	}
	top := func() *frame {
		return &stack[len(stack)-1]
	}
	// valueDone moves the enclosing container past a completed value.
	valueDone := func() {
		if len(stack) > 0 {
			top().state = afterValue
		}
		markSafe()
	}

	i := 0
scan:
	for ; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
				out = append(out, c)
			case c == '\\':
				escaped = true
				out = append(out, c)
			case c == '"':
				inString = false
				out = append(out, c)
				if stringIsKey {
					top().state = expectColon
				} else {
					valueDone()
				}
			case c < 0x20:
				out = append(out, escapeControl(c)...)
				escapes++
			default:
				out = append(out, c)
			}
			continue
		}

		if inLiteral {
			if isLiteralByte(c) {
				out = append(out, c)
				continue
			}
			inLiteral = false
			valueDone()
		}

		switch c {
		case '{', '[':
			if len(stack) > 0 {
				if f := top(); f.open == '{' && f.state != expectValue {
					break scan
				}
			}
			commaAt = -1
			f := frame{open: c, state: expectValue}
			if c == '{' {
				f.state = expectKey
			}
			stack = append(stack, f)
			out = append(out, c)
			markSafe()
		case '}', ']':
			if len(stack) == 0 {
				break scan
			}
			if commaAt >= 0 {
				out = append(out[:commaAt], out[commaAt+1:]...)
				commaAt = -1
				commas++
			}
			// A mismatched closer closes the inner containers first.
			want := openerFor(c)
			for len(stack) > 0 && top().open != want {
				out = append(out, closerFor(top().open))
				stack = stack[:len(stack)-1]
				notes = append(notes, "closed a container left open before a mismatched closer")
			}
			if len(stack) == 0 {
				break scan
			}
			stack = stack[:len(stack)-1]
			out = append(out, c)
			valueDone()
			if len(stack) == 0 {
				i++
				break scan
			}
		case '"':
			commaAt = -1
			inString = true
			stringIsKey = len(stack) > 0 && top().open == '{' && top().state == expectKey
			out = append(out, c)
		case ':':
			if len(stack) > 0 && top().state == expectColon {
				top().state = expectValue
			}
			out = append(out, c)
		case ',':
			if len(stack) > 0 {
				if top().open == '{' {
					top().state = expectKey
				} else {
					top().state = expectValue
				}
			}
			commaAt = len(out)
			out = append(out, c)
		case ' ', '\t', '\n', '\r':
			out = append(out, c)
		default:
			if len(stack) == 0 {
				break scan
			}
			commaAt = -1
			inLiteral = true
			out = append(out, c)
		}
	}

	if escapes > 0 {
		notes = append(notes, fmt.Sprintf("escaped %d control characters inside strings", escapes))
	}
	if commas > 0 {
		notes = append(notes, fmt.Sprintf("removed %d trailing commas", commas))
	}
	if i < len(text) && len(stack) == 0 {
		notes = append(notes, fmt.Sprintf("ignored %d bytes after the document", len(text)-i))
	}

	if len(stack) == 0 && !inString {
		return scanResult{text: string(out), notes: notes}
	}

	// The input ended inside the document.
	switch {
	case inString && !stringIsKey:
		out = trimPartialEscape(out, escaped)
		out = append(out, '"')
		notes = append(notes, "closed an unterminated string")
	case inLiteral && validLiteral(out, safeLen):
		notes = append(notes, "kept a trailing literal")
	case !inString && !inLiteral && len(stack) > 0 && top().open == '{' && top().state == expectValue:
		out = trimTrailingSpace(out)
		out = append(out, "null"...)
		notes = append(notes, "filled a dangling ':' with null")
	default:
		if len(out) > safeLen {
			notes = append(notes, fmt.Sprintf("dropped %d bytes of an incomplete member", len(out)-safeLen))
		}
		out = out[:safeLen]
		stack = stack[:safeDepth]
		if safeDepth > 0 {
			stack[safeDepth-1].state = safeState
		}
	}

	out = trimTrailingSpace(out)
	if n := len(out); n > 0 && out[n-1] == ',' {
		out = out[:n-1]
	}
	closers := make([]byte, 0, len(stack))
	for j := len(stack) - 1; j >= 0; j-- {
		closers = append(closers, closerFor(stack[j].open))
	}
	out = append(out, closers...)
	notes = append(notes, fmt.Sprintf("appended closers %q", closers))
	return scanResult{text: string(out), notes: notes, closed: true}
}

func closerFor(open byte) byte {
	if open == '[' {
		return ']'
	}
	return '}'
}

func openerFor(closer byte) byte {
	if closer == ']' {
		return '['
	}
	return '{'
}

func isLiteralByte(c byte) bool {
	return c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// validLiteral reports whether the literal that starts after the last safe
// point is a complete JSON literal on its own.
func validLiteral(out []byte, safeLen int) bool {
	start := len(out)
	for start > safeLen && isLiteralByte(out[start-1]) {
		start--
	}
	lit := string(out[start:])
	switch lit {
	case "true", "false", "null":
		return true
	case "":
		return false
	}
	last := lit[len(lit)-1]
	if last < '0' || last > '9' {
		return false
	}
	var f float64
	_, err := fmt.Sscan(lit, &f)
	return err == nil
}

func escapeControl(c byte) []byte {
	switch c {
	case '\n':
		return []byte(`\n`)
	case '\t':
		return []byte(`\t`)
	case '\r':
		return []byte(`\r`)
	}
	return []byte(fmt.Sprintf(`\u%04x`, c))
}

func trimTrailingSpace(b []byte) []byte {
	for len(b) > 0 {
		switch b[len(b)-1] {
		case ' ', '\t', '\n', '\r':
			b = b[:len(b)-1]
			continue
		}
		break
	}
	return b
}

// trimPartialEscape drops an escape sequence cut off by the end of input: a
// lone backslash or a \u with fewer than four hex digits.
func trimPartialEscape(out []byte, danglingBackslash bool) []byte {
	if danglingBackslash {
		return out[:len(out)-1]
	}
	for digits := 0; digits <= 3; digits++ {
		start := len(out) - digits - 1
		if start < 1 {
			break
		}
		if out[start] != 'u' || out[start-1] != '\\' {
			continue
		}
		// The backslash must itself be unescaped.
		slashes := 0
		for j := start - 1; j >= 0 && out[j] == '\\'; j-- {
			slashes++
		}
		if slashes%2 == 1 && allHex(out[start+1:]) {
			return out[:start-1]
		}
	}
	return out
}

func allHex(b []byte) bool {
	for _, c := range b {
		if !strings.ContainsRune("0123456789abcdefABCDEF", rune(c)) {
			return false
		}
	}
	return true
}
