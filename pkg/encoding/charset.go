// Package encoding provides text encoding utilities for OBJ object names.
package encoding

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// ErrUnknownCharset is returned for charset names x/text does not know.
var ErrUnknownCharset = errors.New("unknown charset")

// IsUTF8 reports whether charset names UTF-8 (or is empty).
func IsUTF8(charset string) bool {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		return true
	}
	return false
}

// NameDecoder returns a function converting names in the given charset
// (WHATWG label such as "euc-kr", "gbk", "shift_jis", "windows-1252")
// to UTF-8. A nil function is returned for UTF-8 input.
func NameDecoder(charset string) (func(string) (string, error), error) {
	if IsUTF8(charset) {
		return nil, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCharset, charset)
	}

	return func(s string) (string, error) {
		// Plain ASCII is identical in every supported charset.
		if isASCII(s) {
			return s, nil
		}
		out, _, err := transform.String(enc.NewDecoder(), s)
		if err != nil {
			return "", err
		}
		if !utf8.ValidString(out) {
			return "", fmt.Errorf("decoded name is not valid UTF-8")
		}
		return out, nil
	}, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
