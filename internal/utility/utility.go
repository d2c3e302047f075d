package utility

import (
	"fmt"
	"regexp"
	"strings"
)

var hexColor = regexp.MustCompile(`^#?([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// NormalizeHexColor returns c as lowercase #rrggbb. Short #rgb forms are
// expanded.
func NormalizeHexColor(c string) (string, error) {
	c = strings.TrimSpace(c)
	m := hexColor.FindStringSubmatch(c)
	if m == nil {
		return "", fmt.Errorf("invalid hex color %q", c)
	}
	digits := strings.ToLower(m[1])
	if len(digits) == 3 {
		digits = string([]byte{digits[0], digits[0], digits[1], digits[1], digits[2], digits[2]})
	}
	return "#" + digits, nil
}
