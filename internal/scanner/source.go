package scanner

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// ErrUnknownEncoding is returned for a coding declaration naming an
// encoding that cannot be decoded.
var ErrUnknownEncoding = errors.New("unknown source encoding")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// codingCookie matches a PEP 263 declaration such as "# -*- coding: latin-1 -*-".
var codingCookie = regexp.MustCompile(`^[ \t\f]*#.*?coding[:=][ \t]*([-\w.]+)`)

// ReadSource reads a source unit and returns its text as UTF-8.
func ReadSource(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	decoded, err := DecodeSource(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return decoded, nil
}

// DecodeSource strips a UTF-8 byte order mark or, failing that, decodes the
// text according to its coding declaration. Line structure is preserved.
func DecodeSource(content []byte) ([]byte, error) {
	if bytes.HasPrefix(content, utf8BOM) {
		return content[len(utf8BOM):], nil
	}

	name := declaredEncoding(content)
	if name == "" || name == "utf-8" {
		return content, nil
	}

	enc, err := lookupEncoding(name)
	if err != nil {
		return nil, err
	}
	decoded, _, err := transform.Bytes(enc.NewDecoder(), content)
	if err != nil {
		return nil, fmt.Errorf("decoding %s source: %w", name, err)
	}
	return decoded, nil
}

// declaredEncoding returns the normalized encoding named on the first or
// second line. The second line counts only when the first is a comment or
// blank.
func declaredEncoding(content []byte) string {
	lines := bytes.SplitN(content, []byte("\n"), 3)
	for i, line := range lines {
		if i > 1 {
			break
		}
		if m := codingCookie.FindSubmatch(line); m != nil {
			return normalEncodingName(string(m[1]))
		}
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) > 0 && trimmed[0] != '#' {
			break
		}
	}
	return ""
}

func normalEncodingName(name string) string {
	n := strings.ReplaceAll(strings.ToLower(name), "_", "-")
	switch {
	case n == "utf-8" || strings.HasPrefix(n, "utf-8-"):
		return "utf-8"
	case n == "latin-1" || n == "latin1" || n == "l1" || n == "iso-8859-1" || n == "iso8859-1" || n == "iso-latin-1" ||
		strings.HasPrefix(n, "latin-1-") || strings.HasPrefix(n, "iso-8859-1-") || strings.HasPrefix(n, "iso-latin-1-"):
		return "iso-8859-1"
	}
	return n
}

// lookupEncoding maps a normalized name to a decoder. iso-8859-1 bypasses
// the WHATWG index, which aliases it to windows-1252.
func lookupEncoding(name string) (encoding.Encoding, error) {
	if name == "iso-8859-1" {
		return charmap.ISO8859_1, nil
	}
	if enc, err := htmlindex.Get(name); err == nil && enc != nil {
		return enc, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEncoding, name)
	}
	return enc, nil
}
