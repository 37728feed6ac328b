package dcc

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrUnterminatedQuote is returned by Tokenize when a quoted token has no closing quote.
	ErrUnterminatedQuote = errors.New("unterminated quoted token")

	// ErrTrailingQuote is returned by Tokenize when a closing quote is not
	// followed by whitespace or the end of input.
	ErrTrailingQuote = errors.New("text after closing quote")
)

// Tokenize splits s on whitespace. A token that starts with a double quote
// extends to the next double quote and is returned without the quotes, so
// `DCC SEND "a b.zip" 1 2 3` yields six tokens. Quotes inside an unquoted
// token are kept as-is.
func Tokenize(s string) ([]string, error) {
	var tokens []string
	for {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		if s == "" {
			return tokens, nil
		}

		if s[0] == '"' {
			end := strings.IndexByte(s[1:], '"')
			if end < 0 {
				return nil, ErrUnterminatedQuote
			}
			tokens = append(tokens, s[1:1+end])
			s = s[end+2:]
			if r, _ := utf8.DecodeRuneInString(s); s != "" && !unicode.IsSpace(r) {
				return nil, ErrTrailingQuote
			}
			continue
		}

		end := strings.IndexFunc(s, unicode.IsSpace)
		if end < 0 {
			return append(tokens, s), nil
		}
		tokens = append(tokens, s[:end])
		s = s[end:]
	}
}
