package overlay

import "strings"

// VKEscape is the default close key.
const VKEscape = 0x1B

// ParseVK converts a key token (e.g. "Escape", "F3", "Q") into a Windows
// virtual-key code. Recognizes Escape, Pause, F1..F12 and single letters or
// digits. Unknown tokens return VKEscape.
func ParseVK(key string) byte {
	k := strings.ToUpper(strings.TrimSpace(key))
	switch k {
	case "ESC", "ESCAPE":
		return VKEscape
	case "PAUSE":
		return 0x13
	case "END":
		return 0x23
	}
	if len(k) >= 2 && len(k) <= 3 && k[0] == 'F' {
		n := 0
		for _, c := range k[1:] {
			if c < '0' || c > '9' {
				n = -1
				break
			}
			n = n*10 + int(c-'0')
		}
		if n >= 1 && n <= 12 {
			return byte(0x70 + (n - 1)) // VK_F1=0x70
		}
	}
	if len(k) == 1 && (k[0] >= 'A' && k[0] <= 'Z' || k[0] >= '0' && k[0] <= '9') {
		return k[0] // 'A'..'Z' and '0'..'9' match VK codes
	}
	return VKEscape
}
