package common

import (
	"regexp"
	"strings"
)

// ansiRegex matches ANSI escape sequences (colors, cursor movement, etc.)
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// StripANSI removes ANSI escape codes from a string.
// Useful for parsing CLI output that may contain terminal formatting.
func StripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

var hexMAC = regexp.MustCompile(`^[0-9a-f]{12}$`)

// UnixMAC converts an Ethernet MAC address in any common vendor notation
// (AA:BB:CC:DD:EE:FF, aa-bb-cc-dd-ee-ff, aabb.ccdd.eeff) to the canonical
// lowercase colon-separated form. Returns false when the input is not a
// valid 48-bit address; callers must drop the record rather than keep a
// partial string.
func UnixMAC(mac string) (string, bool) {
	var b strings.Builder
	for _, c := range strings.ToLower(mac) {
		switch c {
		case ' ', '-', '.', ':':
		default:
			b.WriteRune(c)
		}
	}
	clean := b.String()
	if !hexMAC.MatchString(clean) {
		return "", false
	}
	parts := make([]string, 0, 6)
	for i := 0; i < 12; i += 2 {
		parts = append(parts, clean[i:i+2])
	}
	return strings.Join(parts, ":"), true
}

// statusUpTokens are the vendor spellings of an "up"/enabled status:
// "up" (Cisco IOS, JunOS), "E"/"A" (Extreme XOS enabled/active flags).
var statusUpTokens = map[string]bool{
	"up": true,
	"E":  true,
	"A":  true,
}

// StatusUp maps a vendor-specific port status token to a boolean.
func StatusUp(token string) bool {
	return statusUpTokens[strings.TrimSpace(token)]
}
