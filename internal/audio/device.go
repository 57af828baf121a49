package audio

import "strings"

// Bluetooth hands-free profile markers. Selecting such a device as input
// flips the whole headset into low-quality HFP routing, so the default is
// overridden unless the user asked for it by name.
var handsFreeMarkers = []string{
	"hands-free",
	"handsfree",
	"hfp",
	"hsp",
	"ag audio",
	"headset",
}

func isHandsFreeName(name string) bool {
	lower := strings.ToLower(name)
	for _, m := range handsFreeMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// selectInputDevice picks an input device index from names.
// Exact match wins when preferred is set; otherwise the default is used,
// except when the default looks like a Bluetooth hands-free profile and a
// non-hands-free input exists.
func selectInputDevice(names []string, defaultIdx int, preferred string) int {
	if preferred != "" {
		for i, n := range names {
			if n == preferred {
				return i
			}
		}
	}
	if defaultIdx < 0 || defaultIdx >= len(names) {
		return -1
	}
	if preferred == "" && isHandsFreeName(names[defaultIdx]) {
		for i, n := range names {
			if !isHandsFreeName(n) {
				return i
			}
		}
	}
	return defaultIdx
}
