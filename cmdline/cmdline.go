// Package cmdline serializes argument vectors into a single command line
// string following the Windows argv-parsing convention, and splits such a
// line back into its arguments. Encode is the exact inverse of the parsing
// performed by CommandLineToArgvW, which is what a spawned process sees.
package cmdline

import (
	"strings"
)

// Encode joins args into one command line, quoting and escaping each
// argument so that the spawned process parses back the original vector.
func Encode(args []string) string {
	encoded := make([]string, len(args))
	for i, arg := range args {
		encoded[i] = EncodeArg(arg)
	}

	return strings.Join(encoded, " ")
}

// EncodeArg escapes a single argument. An argument is quoted if it is empty
// or contains a space or tab. Backslashes are only significant when they
// precede a double quote: a run of n backslashes before a literal quote
// becomes 2n+1 backslashes, and a run before the closing quote becomes 2n.
func EncodeArg(arg string) string {
	var b strings.Builder

	quote := arg == "" || strings.ContainsAny(arg, " \t")
	if quote {
		b.WriteByte('"')
	}

	bsCount := 0
	for i := 0; i < len(arg); i++ {
		switch c := arg[i]; c {
		case '\\':
			bsCount++
		case '"':
			writeBackslashes(&b, 2*bsCount+1)
			b.WriteByte('"')
			bsCount = 0
		default:
			writeBackslashes(&b, bsCount)
			bsCount = 0
			b.WriteByte(c)
		}
	}

	if quote {
		// A trailing backslash run must be doubled or it would escape
		// the closing quote.
		writeBackslashes(&b, 2*bsCount)
		b.WriteByte('"')
	} else {
		writeBackslashes(&b, bsCount)
	}

	return b.String()
}

// Decode splits a command line into its argument vector using the same
// rules as CommandLineToArgvW, including the pre-2008 double double quote
// rule. See http://daviddeley.com/autohotkey/parameters/parameters.htm.
func Decode(commandLine string) []string {
	var args []string
	for len(commandLine) > 0 {
		var arg string
		arg, commandLine = readNextArg(commandLine)
		args = append(args, arg)
	}

	return args
}

// readNextArg consumes one argument off the front of cmd and returns it
// with the remainder of the line, leading separators stripped.
func readNextArg(cmd string) (arg, rest string) {
	var b []byte
	var inQuote bool
	var bsCount int

	for ; len(cmd) > 0; cmd = cmd[1:] {
		c := cmd[0]
		switch c {
		case ' ', '\t':
			if !inQuote {
				return string(appendBackslashes(b, bsCount)), strings.TrimLeft(cmd[1:], " \t")
			}
		case '"':
			b = appendBackslashes(b, bsCount/2)
			if bsCount%2 == 0 {
				// Two adjacent quotes inside a quoted section yield one
				// literal quote.
				if inQuote && len(cmd) > 1 && cmd[1] == '"' {
					b = append(b, c)
					cmd = cmd[1:]
				}
				inQuote = !inQuote
			} else {
				b = append(b, c)
			}
			bsCount = 0
			continue
		case '\\':
			bsCount++
			continue
		}
		b = appendBackslashes(b, bsCount)
		bsCount = 0
		b = append(b, c)
	}

	return string(appendBackslashes(b, bsCount)), ""
}

func writeBackslashes(b *strings.Builder, n int) {
	for i := 0; i < n; i++ {
		b.WriteByte('\\')
	}
}

func appendBackslashes(b []byte, n int) []byte {
	for i := 0; i < n; i++ {
		b = append(b, '\\')
	}
	return b
}
