//go:build !windows

package overlay

import "github.com/soocke/screen-mosaic-go/domain/capture"

// NativePlatform has no native overlay outside Windows; Show reports
// ErrWindowCreate wrapping ErrUnsupported.
func NativePlatform(closeKey string) Platform {
	return Platform{Screen: capture.VirtualScreen}
}
