//go:build rp2040

package main

import (
	"machine"

	"github.com/jangala-dev/tinygo-uartx/uartx"

	"hidlight/config"
	"hidlight/debug"
)

var debugUART *uartx.UART

// InitDebugUART routes debug output to the UART named in the board file.
// USB carries the lamp protocol, so debug text never goes there.
func InitDebugUART(cfg config.DebugConfig) {
	if !cfg.Enabled {
		debug.SetEnabled(false)
		return
	}

	tx, err := config.ParsePin(cfg.TX)
	if err != nil {
		return
	}
	rx, err := config.ParsePin(cfg.RX)
	if err != nil {
		return
	}

	switch cfg.UART {
	case 0:
		debugUART = uartx.UART0
	case 1:
		debugUART = uartx.UART1
	default:
		return
	}
	if err := debugUART.Configure(uartx.UARTConfig{
		BaudRate: cfg.Baud,
		TX:       machine.Pin(tx),
		RX:       machine.Pin(rx),
	}); err != nil {
		debugUART = nil
		return
	}

	debug.SetWriter(func(s string) {
		_, _ = debugUART.Write([]byte(s))
		_, _ = debugUART.Write([]byte("\r\n"))
	})
	debug.SetEnabled(true)
	debug.Println("=== hidlight debug UART" + debug.Itoa(cfg.UART) + " at " + debug.Utoa(cfg.Baud) + " baud ===")
}
