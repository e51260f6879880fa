// Package mask provides masking helpers for sensitive values in logs and
// notifications. Usernames never appear unmasked outside credential storage.
package mask

import "strings"

// maxStars caps the number of mask characters shown for long usernames so
// the masked form does not leak the exact length.
const maxStars = 4

// Username masks a username for display.
//
// Rules:
//   - empty input returns ""
//   - length <= 2: every character replaced with '*'
//   - length <= 4: first character kept, the rest replaced with '*'
//   - length > 4: first and last characters kept, between 1 and 4 '*' in between
func Username(username string) string {
	runes := []rune(username)
	length := len(runes)

	switch {
	case length == 0:
		return ""
	case length <= 2:
		return strings.Repeat("*", length)
	case length <= 4:
		return string(runes[0]) + strings.Repeat("*", length-1)
	default:
		stars := length - 2
		if stars > maxStars {
			stars = maxStars
		}
		return string(runes[0]) + strings.Repeat("*", stars) + string(runes[length-1])
	}
}
