//go:build windows

package docker

import (
	"time"

	"github.com/Microsoft/go-winio"
)

// probeNamedPipe dials the pipe once and closes it again.
func probeNamedPipe(path string, timeout time.Duration) error {
	conn, err := winio.DialPipe(path, &timeout)
	if err != nil {
		return err
	}
	return conn.Close()
}
