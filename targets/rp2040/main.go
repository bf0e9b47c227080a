//go:build rp2040

package main

import (
	_ "embed"
	"machine"
	"time"

	"hidlight/config"
	"hidlight/core"
	"hidlight/debug"
	"hidlight/persist"
	"hidlight/protocol"
)

//go:embed board.json
var boardJSON []byte

var (
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	transport    *protocol.Transport
	ctrl         *core.Controller

	msgerrors uint32

	usbWasDisconnected       bool
	consecutiveWriteFailures uint32

	// Set by the reset command; acted on once the ACK has been written.
	bootloaderPending bool
)

func main() {
	// Clear any watchdog state left over from the previous run.
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	InitUSB()

	cfg, cfgErr := loadBoardConfig()
	InitDebugUART(cfg.Debug)
	debug.SetClock(GetHardwareTime)
	UpdateSystemTime()
	if cfgErr != nil {
		debug.Println("main: board.json rejected, using reference board: " + cfgErr.Error())
	}

	driver, err := newLampDriver(cfg)
	if err != nil {
		debug.Println("main: lamp driver: " + err.Error())
		driver = nopDriver{}
	}

	var (
		settings core.Settings
		dumper   core.SettingsDumper
	)
	store, err := newSettingsStore(cfg.Geometry())
	if err != nil {
		debug.Println("main: settings disabled: " + err.Error())
	} else {
		settings, dumper = store, store
	}

	ctrl = core.NewController(cfg.ControllerConfig(), driver, core.SystemClock{}, settings)

	reg := core.NewCommandRegistry()
	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()
	transport = protocol.NewTransport(outputBuffer, reg.Dispatch)
	transport.SetResetCallback(func() {
		inputBuffer.Reset()
		outputBuffer.Reset()
	})
	transport.SetFlushCallback(writeUSB)

	lc := core.RegisterLampCommands(reg, ctrl, transport)
	lc.SetTemperatureSensor(newInternalTempSensor())
	lc.SetBootloaderHandler(func() { bootloaderPending = true })
	lc.EnableDiagnostics(dumper)

	if settings != nil {
		if err := ctrl.LoadDefaults(); err != nil {
			debug.Println("main: load defaults: " + err.Error())
		}
	}
	debug.Println("main: " + debug.Itoa(ctrl.LampCount()) + " lamps on " + cfg.Driver + " driver")

	go usbReaderLoop()

	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
					debug.Dump()
					inputBuffer.Reset()
					outputBuffer.Reset()
				}
			}()

			UpdateSystemTime()

			if inputBuffer.Available() > 0 {
				data := inputBuffer.Data()
				originalLen := len(data)
				in := protocol.NewSliceInputBuffer(data)
				transport.Receive(in)
				if consumed := originalLen - in.Available(); consumed > 0 {
					inputBuffer.Pop(consumed)
				}
			}

			if len(outputBuffer.Result()) > 0 {
				writeUSB()
			}

			checkPendingReset()

			ctrl.Task()
		}()

		time.Sleep(10 * time.Microsecond)
	}
}

// loadBoardConfig parses the embedded board description. A board file that
// does not parse or validate falls back to the reference board, and the
// reason is returned for logging once the debug UART is up.
func loadBoardConfig() (*config.DeviceConfig, error) {
	cfg, err := config.LoadConfig(boardJSON)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		return config.DefaultConfig(), err
	}
	return cfg, nil
}

func newSettingsStore(geo persist.Geometry) (*persist.Store, error) {
	flash, err := newFlashRegion(geo)
	if err != nil {
		return nil, err
	}
	store, err := persist.NewStore(flash, geo)
	if err != nil {
		return nil, err
	}
	erased, err := store.Init()
	if err != nil {
		return nil, err
	}
	if erased {
		debug.Println("main: settings region was corrupt and has been erased")
	}
	return store, nil
}

// checkPendingReset enters the USB bootloader once the output buffer has
// drained, so the host sees the ACK for the reset command.
func checkPendingReset() {
	if !bootloaderPending || len(outputBuffer.Result()) > 0 {
		return
	}
	time.Sleep(5 * time.Millisecond)
	ctrl.Suspend()
	machine.EnterBootloader()
	// EnterBootloader does not return on working hardware.
	watchdogReset()
}

func watchdogReset() {
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 1}); err != nil {
		return
	}
	if err := machine.Watchdog.Start(); err != nil {
		return
	}
	for {
		time.Sleep(1 * time.Millisecond)
	}
}

// usbReaderLoop moves bytes from USB into the input fifo.
func usbReaderLoop() {
	defer func() {
		if r := recover(); r != nil {
			msgerrors++
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	for {
		if USBAvailable() > 0 {
			b, err := USBRead()
			if err != nil {
				msgerrors++
				time.Sleep(1 * time.Millisecond)
				continue
			}

			if usbWasDisconnected {
				usbWasDisconnected = false
				inputBuffer.Reset()
				outputBuffer.Reset()
				transport.Reset()
				consecutiveWriteFailures = 0
			}

			if inputBuffer.Write([]byte{b}) == 0 {
				msgerrors++
				time.Sleep(10 * time.Millisecond)
			}
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// writeUSB drains the output buffer. After repeated failures the host is
// assumed gone and pending data is dropped.
func writeUSB() {
	result := outputBuffer.Result()
	written := 0
	for written < len(result) {
		n, err := USBWriteBytes(result[written:])
		if err != nil || n == 0 {
			consecutiveWriteFailures++
			if consecutiveWriteFailures > 10 {
				usbWasDisconnected = true
				consecutiveWriteFailures = 0
				outputBuffer.Reset()
				inputBuffer.Reset()
			}
			return
		}
		written += n
	}
	consecutiveWriteFailures = 0
	outputBuffer.Reset()
}
