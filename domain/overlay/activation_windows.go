//go:build windows

package overlay

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

const hookInstallTimeout = 2 * time.Second

type activateFunc func(Handle)

// The hook procedure is process-wide: NewCallback slots are never freed, so
// the callback is created once and dispatches to whichever watcher is armed.
var (
	fgOnce  sync.Once
	fgProc  uintptr
	fgArmed atomic.Pointer[activateFunc]
)

func foregroundCallback(hook, event, hwnd, idObject, idChild, thread, ms uintptr) uintptr {
	if uint32(event) == eventSystemForeground {
		dispatch(&fgArmed, Handle(hwnd))
	}
	return 0
}

// dispatch runs on the OS dispatch thread; a panic here would take the
// process down, so it is contained.
func dispatch(p *atomic.Pointer[activateFunc], h Handle) {
	defer func() { _ = recover() }()
	if fn := p.Load(); fn != nil {
		(*fn)(h)
	}
}

// hookThread installs a hook on a dedicated OS thread and pumps its messages
// until stopped.
type hookThread struct {
	tid  atomic.Uint32
	done chan struct{}
}

func (t *hookThread) start(install func() (uintptr, error), uninstall func(uintptr)) error {
	ready := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(done)
		h, err := install()
		if err != nil {
			ready <- err
			return
		}
		defer uninstall(h)
		t.tid.Store(windows.GetCurrentThreadId())
		ready <- nil
		var m msg
		for {
			r, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
			if int32(r) <= 0 {
				return
			}
			procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
			procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
		}
	}()
	select {
	case err := <-ready:
		if err != nil {
			return err
		}
		t.done = done
		return nil
	case <-time.After(hookInstallTimeout):
		return errors.New("hook install timed out")
	}
}

func (t *hookThread) stop(timeout time.Duration) error {
	if t.done == nil {
		return nil
	}
	procPostThreadMessageW.Call(uintptr(t.tid.Load()), wmQuit, 0, 0)
	defer func() { t.done = nil }()
	select {
	case <-t.done:
		return nil
	case <-time.After(timeout):
		return errors.New("overlay: hook thread join timed out")
	}
}

// foregroundWatcher listens for EVENT_SYSTEM_FOREGROUND out of context, so no
// code is injected into other processes. It fires just after another window
// is activated; the guard then restores the overlay's z-order.
type foregroundWatcher struct{ hookThread }

func (w *foregroundWatcher) Name() string { return "winevent" }

func (w *foregroundWatcher) Start(target Handle, onActivate func(Handle)) error {
	fgOnce.Do(func() { fgProc = windows.NewCallback(foregroundCallback) })
	fn := activateFunc(onActivate)
	fgArmed.Store(&fn)
	err := w.start(func() (uintptr, error) {
		h, _, err := procSetWinEventHook.Call(eventSystemForeground, eventSystemForeground, 0, fgProc, 0, 0,
			wineventOutOfContext|wineventSkipOwnProc)
		if h == 0 {
			return 0, fmt.Errorf("SetWinEventHook: %w", err)
		}
		return h, nil
	}, func(h uintptr) { procUnhookWinEvent.Call(h) })
	if err != nil {
		fgArmed.Store(nil)
		return fmt.Errorf("%w: %v", ErrHookUnavailable, err)
	}
	return nil
}

func (w *foregroundWatcher) Stop(timeout time.Duration) error {
	fgArmed.Store(nil)
	return w.stop(timeout)
}
