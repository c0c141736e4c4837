package nodepool

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var rangeToken = regexp.MustCompile(`^([A-Za-z_-]+)(\d+)-([A-Za-z_-]+)(\d+)$`)

// ParseDefinedSpec parses a comma-separated defined-pool spec: plain
// tokens pass through, and `<prefix><m>-<prefix><n>` tokens (same prefix,
// m <= n) expand to the enumerated range. Unknown range-shaped forms with
// mismatched prefixes pass through as literals, with a warning appended
// to warnings.
func ParseDefinedSpec(spec string) (names []string, warnings []string) {
	for _, tok := range strings.Split(spec, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}

		if expanded, ok := expandRange(tok); ok {
			names = append(names, expanded...)
			continue
		}
		if strings.Contains(tok, "-") {
			warnings = append(warnings, fmt.Sprintf("nodepool: %q looks like a range but does not match <prefix><m>-<prefix><n>; passing through literally", tok))
		}
		names = append(names, tok)
	}
	return names, warnings
}

func expandRange(tok string) ([]string, bool) {
	m := rangeToken.FindStringSubmatch(tok)
	if m == nil {
		return nil, false
	}
	prefixA, lowStr, prefixB, highStr := m[1], m[2], m[3], m[4]
	if prefixA != prefixB {
		return nil, false
	}
	low, err1 := strconv.Atoi(lowStr)
	high, err2 := strconv.Atoi(highStr)
	if err1 != nil || err2 != nil || low > high {
		return nil, false
	}

	out := make([]string, 0, high-low+1)
	for n := low; n <= high; n++ {
		out = append(out, fmt.Sprintf("%s%d", prefixA, n))
	}
	return out, true
}
