// Package colourise adds ANSI colour to console output.
package colourise

import (
	"fmt"
	"hash/crc32"
)

// palette holds the 256-colour codes that read well on a dark background.
var palette = []uint8{
	9, 10, 11, 12, 13, 14, 33, 39, 45, 51, 63, 69, 75, 81, 87, 99, 105, 111, 117, 123,
	129, 135, 141, 147, 153, 159, 165, 171, 177, 183, 189, 195, 201, 207, 213, 219, 225, 231,
}

// Hashed colours value with a colour picked from a hash of value, so the same trace id
// or span name has the same colour on every line and every run.
func Hashed(value string) string {
	i := crc32.ChecksumIEEE([]byte(value)) % uint32(len(palette))
	return fmt.Sprintf("\033[1;38;5;%dm%s\033[0m", palette[i], value)
}

// ErrorHighlight renders s as white on red.
func ErrorHighlight(s string) string {
	return fmt.Sprintf("\033[1;37;41m%s\033[0m", s)
}
