//go:build !wasm

package serial

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	tarm "github.com/tarm/serial"
)

// ErrNoDevice is returned by Open when the config names no device.
var ErrNoDevice = errors.New("serial: no device path")

// openPollInterval is how often Open retries a device node that is missing.
const openPollInterval = 50 * time.Millisecond

// cdcPort is the controller's CDC-ACM port. tarm/serial provides Read,
// Write, Close and Flush.
type cdcPort struct {
	*tarm.Port
}

// Open opens the controller port described by cfg and drops any input left
// from an earlier session. Right after a reset the device node can take a
// moment to reappear, so a missing node is retried for cfg.OpenWait ms.
func Open(cfg *Config) (Port, error) {
	if cfg == nil || cfg.Device == "" {
		return nil, ErrNoDevice
	}

	var p *tarm.Port
	err := retryMissing(time.Duration(cfg.OpenWait)*time.Millisecond, func() error {
		var err error
		p, err = tarm.OpenPort(&tarm.Config{
			Name:        cfg.Device,
			Baud:        cfg.Baud,
			ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", cfg.Device, err)
	}

	if err := p.Flush(); err != nil {
		p.Close()
		return nil, fmt.Errorf("serial: flush %s: %w", cfg.Device, err)
	}
	return &cdcPort{Port: p}, nil
}

// retryMissing calls open until it succeeds, fails with anything other than
// a missing file, or wait has passed.
func retryMissing(wait time.Duration, open func() error) error {
	deadline := time.Now().Add(wait)
	for {
		err := open()
		if err == nil || !errors.Is(err, fs.ErrNotExist) || !time.Now().Before(deadline) {
			return err
		}
		time.Sleep(openPollInterval)
	}
}
