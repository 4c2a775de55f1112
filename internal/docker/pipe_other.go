//go:build !windows

package docker

import (
	"fmt"
	"time"
)

// probeNamedPipe reports that named pipes exist only on Windows.
func probeNamedPipe(path string, _ time.Duration) error {
	return fmt.Errorf("named pipe %s: not supported on this platform", path)
}
