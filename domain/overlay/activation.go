package overlay

import "time"

// ActivationWatcher delivers OS window-activation events. onActivate runs on
// whatever thread the OS dispatches from and must return quickly.
type ActivationWatcher interface {
	Name() string
	Start(target Handle, onActivate func(activated Handle)) error
	Stop(timeout time.Duration) error
}
