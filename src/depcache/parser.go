// Package depcache implements the dependency cache: parsing compiler-emitted
// dependency listings, memoizing the parse by file mtime, and persisting the
// result in a versioned, parent-chained cache keyed by base directory.
package depcache

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"
	"unicode"

	"gopkg.in/op/go-logging.v1"
)

var log = logging.MustGetLogger("depcache")

// isDriveLetter reports whether r is a single ASCII letter that could begin
// a Windows drive prefix ("C:\..." or "C:/..."). The tokenizer only ever
// treats a lone letter immediately before ':' this way; any other
// single-character token is a normal token boundary.
func isDriveLetter(r rune) bool {
	return unicode.IsLetter(r) && r < unicode.MaxASCII
}

// ParseMakeDepFile parses a makefile-style .d file: "target: dep1 dep2 ...",
// with escaped newlines (a trailing '\' continues the line) collapsed before
// tokenizing. Returns the dependency list only -- the target name on the
// left of ':' is discarded, since the cache is already keyed by the output
// file through its own bookkeeping.
func ParseMakeDepFile(data []byte) []string {
	collapsed := collapseEscapedNewlines(data)
	return tokenizeMakeDeps(collapsed)
}

func collapseEscapedNewlines(data []byte) []byte {
	var out bytes.Buffer
	for i := 0; i < len(data); i++ {
		if data[i] == '\\' && i+1 < len(data) && (data[i+1] == '\n' || (data[i+1] == '\r' && i+2 < len(data) && data[i+2] == '\n')) {
			out.WriteByte(' ')
			if data[i+1] == '\r' {
				i += 2
			} else {
				i++
			}
			continue
		}
		out.WriteByte(data[i])
	}
	return out.Bytes()
}

// tokenizeMakeDeps streams tokens terminated by whitespace or ':', with a
// single-letter-then-':'-then-slash sequence recognized as a Windows drive
// prefix and folded back into the following token rather than treated as a
// delimiter.
func tokenizeMakeDeps(data []byte) []string {
	var deps []string
	var cur strings.Builder
	seenColon := false
	runes := []rune(string(data))

	flush := func() {
		if tok := cur.String(); tok != "" {
			if seenColon {
				deps = append(deps, tok)
			}
			cur.Reset()
		}
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			flush()
		case r == ':':
			// A single letter immediately preceding ':' followed by '/' or
			// '\' is a drive prefix, not a delimiter; fold it into the
			// current token and keep scanning.
			if cur.Len() == 1 && isDriveLetter([]rune(cur.String())[0]) && i+1 < len(runes) && (runes[i+1] == '/' || runes[i+1] == '\\') {
				cur.WriteRune(r)
				continue
			}
			flush()
			seenColon = true
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return deps
}

// ParsePlainList parses a plain-text dependency list, one path per line.
// Lines ending in .tlh/.tli (compiler-generated COM headers) are dropped;
// doubled backslashes (an ISPC-emitted escaping quirk) are collapsed to one.
func ParsePlainList(data []byte) []string {
	var deps []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ext := strings.ToLower(filepath.Ext(line))
		if ext == ".tlh" || ext == ".tli" {
			continue
		}
		deps = append(deps, strings.ReplaceAll(line, `\\`, `\`))
	}
	return deps
}
