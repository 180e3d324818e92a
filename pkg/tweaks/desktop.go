package tweaks

import (
	"errors"
	"fmt"
	"syscall"
	"time"
)

const (
	// broadcastTimeout bounds the wait for each window to answer
	// WM_SETTINGCHANGE.
	broadcastTimeout = 5 * time.Second

	errorTimeout = syscall.Errno(1460) // ERROR_TIMEOUT
)

// broadcastError interprets the result of SendMessageTimeoutW.
func broadcastError(area string, ret uintptr, callErr error) error {
	if ret != 0 {
		return nil
	}
	var errno syscall.Errno
	if callErr == nil || errors.Is(callErr, errorTimeout) || (errors.As(callErr, &errno) && errno == 0) {
		return fmt.Errorf("WM_SETTINGCHANGE %q not acknowledged within %s", area, broadcastTimeout)
	}
	return fmt.Errorf("SendMessageTimeoutW(WM_SETTINGCHANGE %q): %w", area, callErr)
}
