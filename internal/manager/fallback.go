package manager

import "strings"

var acceleratorSignatures = []string{
	"could not select device driver",
	"nvidia",
}

// IsAcceleratorUnavailable reports whether a launch failure looks like a
// missing GPU driver or container toolkit. It is a substring heuristic over
// the runtime's diagnostic text.
func IsAcceleratorUnavailable(text string) bool {
	t := strings.ToLower(text)
	for _, s := range acceleratorSignatures {
		if strings.Contains(t, s) {
			return true
		}
	}
	return false
}
