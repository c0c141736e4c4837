// Package legacyconvert converts a legacy feature_list.py-style Python
// literal into a JSON document CatalogLoader can read. It is an offline
// migration aid, not part of the runtime catalog path (spec.md §6 notes
// that re-implementations may refuse interpreted-source input entirely;
// this repo does, and offers this converter instead).
package legacyconvert

import (
	"bytes"
	"fmt"
	"strings"
)

// identifiers recognized as the top-level feature list binding, tried in
// order. Grounded on migrate_features_to_db.py's `from feature_list import
// FEATURE_LIST`.
var identifiers = []string{"FEATURE_LIST", "feature_list"}

// Convert extracts the FEATURE_LIST (or feature_list) assignment from a
// legacy Python source file and renders it as a JSON array CatalogLoader's
// list-with-name-field shape can decode.
func Convert(src []byte) ([]byte, error) {
	literal, err := extractListLiteral(src)
	if err != nil {
		return nil, err
	}
	jsonText := pythonLiteralToJSON(literal)
	return bytes.TrimSpace([]byte(jsonText)), nil
}

// extractListLiteral finds `<identifier> = [` and returns the bracketed
// substring including both delimiters, using a bracket-depth scanner that
// ignores brackets inside string literals.
func extractListLiteral(src []byte) ([]byte, error) {
	text := string(src)
	var start int
	found := false
	for _, id := range identifiers {
		idx := strings.Index(text, id)
		for idx != -1 {
			rest := strings.TrimLeft(text[idx+len(id):], " \t")
			if strings.HasPrefix(rest, "=") {
				eq := idx + len(id) + strings.Index(text[idx+len(id):], "=")
				open := strings.IndexByte(text[eq:], '[')
				if open == -1 {
					break
				}
				start = eq + open
				found = true
				break
			}
			next := strings.Index(text[idx+len(id):], id)
			if next == -1 {
				break
			}
			idx = idx + len(id) + next
		}
		if found {
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("legacyconvert: no FEATURE_LIST/feature_list assignment found")
	}

	end, err := matchBracket(text, start)
	if err != nil {
		return nil, err
	}
	return []byte(text[start : end+1]), nil
}

// matchBracket returns the index of the ']' matching the '[' at open,
// treating characters inside single- or double-quoted strings (Python
// escaping rules) as opaque.
func matchBracket(text string, open int) (int, error) {
	depth := 0
	var quote byte
	inString := false
	for i := open; i < len(text); i++ {
		c := text[i]
		if inString {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				inString = false
			}
			continue
		}
		switch c {
		case '\'', '"':
			inString = true
			quote = c
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("legacyconvert: unterminated list literal")
}

// pythonLiteralToJSON token-substitutes Python literal syntax for JSON
// syntax, leaving string contents untouched. Python single-quoted strings
// are rewritten to double-quoted; True/False/None become true/false/null;
// trailing commas before a closing bracket are dropped.
func pythonLiteralToJSON(literal []byte) string {
	var out strings.Builder
	text := string(literal)
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == '\'' || c == '"':
			s, n := scanString(text[i:], c)
			out.WriteString(jsonQuote(s))
			i += n
		case isWordStart(c):
			word, n := scanWord(text[i:])
			switch word {
			case "True":
				out.WriteString("true")
			case "False":
				out.WriteString("false")
			case "None":
				out.WriteString("null")
			default:
				out.WriteString(word)
			}
			i += n
		default:
			out.WriteByte(c)
			i++
		}
	}
	return dropTrailingCommas(out.String())
}

func isWordStart(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isWordChar(c byte) bool {
	return isWordStart(c) || (c >= '0' && c <= '9')
}

func scanWord(text string) (string, int) {
	n := 1
	for n < len(text) && isWordChar(text[n]) {
		n++
	}
	return text[:n], n
}

// scanString reads a Python-quoted string starting at text[0] (the
// opening quote) and returns its unescaped content plus the number of
// bytes consumed including both delimiters.
func scanString(text string, quote byte) (string, int) {
	var content strings.Builder
	i := 1
	for i < len(text) {
		c := text[i]
		if c == '\\' && i+1 < len(text) {
			next := text[i+1]
			if next == quote {
				// Python escapes its own delimiter; JSON doesn't need
				// that escape for a single quote, and re-escapes a
				// literal double quote via jsonQuote.
				content.WriteByte(next)
			} else {
				content.WriteByte(c)
				content.WriteByte(next)
			}
			i += 2
			continue
		}
		if c == quote {
			i++
			break
		}
		content.WriteByte(c)
		i++
	}
	return content.String(), i
}

func jsonQuote(content string) string {
	return "\"" + strings.ReplaceAll(content, "\"", "\\\"") + "\""
}

// dropTrailingCommas removes a comma that appears immediately before a
// closing bracket or brace, ignoring intervening whitespace, since JSON
// forbids trailing commas that Python tuple/list/dict literals allow.
// Commas inside double-quoted JSON strings are left as they are.
func dropTrailingCommas(text string) string {
	var out strings.Builder
	runes := []byte(text)
	inString := false
	for i := 0; i < len(runes); i++ {
		if inString {
			out.WriteByte(runes[i])
			if runes[i] == '\\' && i+1 < len(runes) {
				i++
				out.WriteByte(runes[i])
			} else if runes[i] == '"' {
				inString = false
			}
			continue
		}
		if runes[i] == '"' {
			inString = true
		}
		if runes[i] == ',' {
			j := i + 1
			for j < len(runes) && (runes[j] == ' ' || runes[j] == '\t' || runes[j] == '\n' || runes[j] == '\r') {
				j++
			}
			if j < len(runes) && (runes[j] == ']' || runes[j] == '}') {
				continue
			}
		}
		out.WriteByte(runes[i])
	}
	return out.String()
}
