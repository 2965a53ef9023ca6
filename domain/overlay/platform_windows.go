//go:build windows

package overlay

import "github.com/soocke/screen-mosaic-go/domain/capture"

// NativePlatform returns the Win32 overlay backend. closeKey names the key
// that requests the overlay to close (see ParseVK).
func NativePlatform(closeKey string) Platform {
	vk := ParseVK(closeKey)
	return Platform{
		NewSurface: func() Surface { return &nativeSurface{closeVK: vk} },
		Protector:  winProtector{},
		ZOrder:     winZOrder{},
		Watchers: func() []ActivationWatcher {
			return []ActivationWatcher{&foregroundWatcher{}}
		},
		Screen: capture.VirtualScreen,
	}
}
