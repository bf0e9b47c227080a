// Command hidlight controls an RGB lamp controller over its USB serial
// command channel.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"hidlight/color"
	"hidlight/core"
	"hidlight/debug"
	"hidlight/host/device"
	"hidlight/host/serial"
	"hidlight/persist"
)

var (
	devicePath = flag.String("device", "", "Serial device path (default: find by USB id)")
	timeout    = flag.Duration("timeout", 2*time.Second, "Command ACK timeout")
	verbose    = flag.Bool("verbose", false, "Enable verbose output")
)

type command struct {
	name  string
	usage string
	run   func(args []string) error
}

var commands []command

func init() {
	commands = []command{
		{"breathe", "fade a color on and off", runBreathe},
		{"fade", "cross-fade between colors", runFade},
		{"off", "stop a lamp's animation and turn it off", runOff},
		{"set", "set lamp colors directly (autonomous mode must be off)", runSet},
		{"range", "set a range of lamps to one color", runRange},
		{"lamp", "show a lamp's current output and animation", runLamp},
		{"autonomous", "on|off: switch between animations and host control", runAutonomous},
		{"suspend", "turn every lamp off until resume", runSimple("suspend", (*device.Client).Suspend)},
		{"resume", "restore lamps after suspend", runSimple("resume", (*device.Client).Resume)},
		{"save", "save a lamp's animation as its power-on default", runSave},
		{"load", "reapply every saved default", runSimple("load", (*device.Client).LoadDefaults)},
		{"clear", "erase every saved default", runReset(true, false)},
		{"bootsel", "reboot into the USB bootloader", runReset(false, true)},
		{"temp", "read the board temperature", runTemp},
		{"info", "show device configuration and lamp attributes", runInfo},
		{"dict", "print the device command dictionary", runDict},
		{"events", "print the device's recent event log", runEvents},
		{"dump", "hex dump the saved defaults to the debug UART", runDump},
		{"ports", "list serial ports", runPorts},
		{"board", "convert a YAML board file to the firmware's board.json", runBoard},
	}
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	name := flag.Arg(0)
	for _, cmd := range commands {
		if cmd.name == name {
			if err := cmd.run(flag.Args()[1:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}
	fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
	usage()
	os.Exit(2)
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: hidlight [flags] <command> [command flags]\n\nCommands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(os.Stderr, "  %-12s %s\n", cmd.name, cmd.usage)
	}
	fmt.Fprintf(os.Stderr, "\nFlags:\n")
	flag.PrintDefaults()
}

func connect() (*device.Client, error) {
	if *verbose {
		if *devicePath == "" {
			fmt.Printf("Searching for device %04x:%04x...\n", serial.DefaultVendorID, serial.DefaultProductID)
		} else {
			fmt.Printf("Connecting to %s...\n", *devicePath)
		}
	}
	c, err := device.Open(*devicePath)
	if err != nil {
		return nil, err
	}
	c.SetTimeout(*timeout)
	return c, nil
}

// withClient connects, runs fn and closes the connection.
func withClient(fn func(c *device.Client) error) error {
	c, err := connect()
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}

func runSimple(name string, fn func(*device.Client) error) func([]string) error {
	return func(args []string) error {
		fs := flag.NewFlagSet(name, flag.ExitOnError)
		fs.Parse(args)
		return withClient(fn)
	}
}

func runReset(clearDefaults, bootloader bool) func([]string) error {
	return func(args []string) error {
		return withClient(func(c *device.Client) error {
			err := c.Reset(clearDefaults, bootloader)
			if bootloader && err != nil {
				// the device can leave the bus before the ACK
				if *verbose {
					fmt.Printf("Reset not acknowledged: %v\n", err)
				}
				return nil
			}
			return err
		})
	}
}

// sharedFlags are the flags of every animation command.
type sharedFlags struct {
	lamp *uint
	save *bool
}

func addShared(fs *flag.FlagSet) sharedFlags {
	return sharedFlags{
		lamp: fs.Uint("lamp", 0, "Lamp that plays the animation"),
		save: fs.Bool("default", false, "Save the animation as the lamp's power-on default"),
	}
}

func (s sharedFlags) lampID() (uint8, error) {
	if *s.lamp > 255 {
		return 0, fmt.Errorf("-lamp %d out of range", *s.lamp)
	}
	return uint8(*s.lamp), nil
}

func runBreathe(args []string) error {
	fs := flag.NewFlagSet("breathe", flag.ExitOnError)
	shared := addShared(fs)
	onColor := fs.String("on-color", "", "Color at full brightness (required)")
	offColor := fs.String("off-color", "", "Color that fades to dark (default: on color)")
	onFade := fs.Float64("on-fade-time", 1, "Fade in time in seconds")
	onTime := fs.Float64("on-time", 0, "Time fully on in seconds")
	offFade := fs.Float64("off-fade-time", 0, "Fade out time in seconds (default: fade in time)")
	offTime := fs.Float64("off-time", 0, "Time fully off in seconds")
	fs.Parse(args)

	lamp, err := shared.lampID()
	if err != nil {
		return err
	}
	if *onColor == "" {
		return errors.New("-on-color is required")
	}

	var d core.BreatheData
	if d.OnColor, err = parseColor(*onColor); err != nil {
		return err
	}
	if *offColor != "" {
		if d.OffColor, err = parseColor(*offColor); err != nil {
			return err
		}
	}
	times := []struct {
		name string
		sec  float64
		dst  *uint16
	}{
		{"on-fade-time", *onFade, &d.OnFadeMS},
		{"on-time", *onTime, &d.OnMS},
		{"off-fade-time", *offFade, &d.OffFadeMS},
		{"off-time", *offTime, &d.OffMS},
	}
	for _, tm := range times {
		if *tm.dst, err = secondsToMS(tm.name, tm.sec); err != nil {
			return err
		}
	}

	return withClient(func(c *device.Client) error {
		return c.Breathe(lamp, d, *shared.save)
	})
}

func runFade(args []string) error {
	fs := flag.NewFlagSet("fade", flag.ExitOnError)
	shared := addShared(fs)
	var colors colorList
	fs.Var(&colors, "color", "Color to fade through; repeat for up to 8 colors")
	fadeTime := fs.Float64("fade-time", 1, "Fade time in seconds")
	holdTime := fs.Float64("hold-time", 0, "Hold time in seconds")
	fs.Parse(args)

	lamp, err := shared.lampID()
	if err != nil {
		return err
	}
	if len(colors) > core.MaxFadeTargets {
		return fmt.Errorf("at most %d colors, got %d", core.MaxFadeTargets, len(colors))
	}

	d := core.FadeData{ColorCount: uint8(len(colors))}
	copy(d.Colors[:], colors)
	if d.FadeMS, err = secondsToMS("fade-time", *fadeTime); err != nil {
		return err
	}
	if d.HoldMS, err = secondsToMS("hold-time", *holdTime); err != nil {
		return err
	}

	return withClient(func(c *device.Client) error {
		return c.Fade(lamp, d, *shared.save)
	})
}

func runOff(args []string) error {
	fs := flag.NewFlagSet("off", flag.ExitOnError)
	shared := addShared(fs)
	fs.Parse(args)

	lamp, err := shared.lampID()
	if err != nil {
		return err
	}
	return withClient(func(c *device.Client) error {
		return c.Off(lamp, *shared.save)
	})
}

func runSet(args []string) error {
	fs := flag.NewFlagSet("set", flag.ExitOnError)
	var lamps lampList
	var colors colorList
	fs.Var(&lamps, "lamp", "Lamp to update; repeat to update several lamps")
	fs.Var(&colors, "color", "Lamp color, black turns the lamp off; one per -lamp")
	fs.Parse(args)

	if len(lamps) == 0 || len(lamps) != len(colors) {
		return fmt.Errorf("need one -color per -lamp, got %d lamps and %d colors", len(lamps), len(colors))
	}
	updates := make([]device.LampUpdate, len(lamps))
	for i := range lamps {
		updates[i] = device.LampUpdate{Lamp: lamps[i], Color: colors[i], Intensity: intensity(colors[i])}
	}

	return withClient(func(c *device.Client) error {
		return c.UpdateLamps(updates, true)
	})
}

func runRange(args []string) error {
	fs := flag.NewFlagSet("range", flag.ExitOnError)
	start := fs.Int("start", 0, "First lamp")
	end := fs.Int("end", -1, "Last lamp (default: last lamp on the device)")
	colorFlag := fs.String("color", "black", "Color of every lamp in the range")
	fs.Parse(args)

	rgb, err := parseColor(*colorFlag)
	if err != nil {
		return err
	}

	return withClient(func(c *device.Client) error {
		last := *end
		if last < 0 {
			cfg, err := c.Config()
			if err != nil {
				return err
			}
			last = cfg.LampCount - 1
		}
		if *start < 0 || last > 255 || *start > last {
			return fmt.Errorf("invalid range %d..%d", *start, last)
		}
		return c.UpdateRange(uint8(*start), uint8(last), rgb, intensity(rgb), true)
	})
}

// intensity turns black lamps off.
func intensity(c color.RGB8) uint8 {
	if c.IsBlack() {
		return 0
	}
	return 1
}

func runLamp(args []string) error {
	fs := flag.NewFlagSet("lamp", flag.ExitOnError)
	lamp := fs.Uint("lamp", 0, "Lamp to show")
	fs.Parse(args)

	return withClient(func(c *device.Client) error {
		s, err := c.Lamp(uint8(*lamp))
		if err != nil {
			return err
		}
		fmt.Printf("Lamp %d: r=%d g=%d b=%d on=%v stage=%d frame=%d\n",
			s.Lamp, s.Value.R, s.Value.G, s.Value.B, s.Value.IsOn(), s.Stage, s.Frame)

		r, err := c.LampRecord(uint8(*lamp))
		if err != nil {
			return err
		}
		fmt.Printf("Animation: %s\n", describeRecord(r))
		return nil
	})
}

func hexColor(c color.RGB8) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func describeRecord(r persist.Record) string {
	switch core.AnimationType(r.Type) {
	case core.AnimationNone:
		return "none"
	case core.AnimationBreathe:
		d := core.DecodeBreatheData(r.Data)
		return fmt.Sprintf("breathe on=%s off=%s fade-in=%dms on=%dms fade-out=%dms off=%dms",
			hexColor(d.OnColor), hexColor(d.OffColor), d.OnFadeMS, d.OnMS, d.OffFadeMS, d.OffMS)
	case core.AnimationFade:
		d := core.DecodeFadeData(r.Data)
		colors := make([]string, 0, core.MaxFadeTargets)
		for i := 0; i < min(int(d.ColorCount), core.MaxFadeTargets); i++ {
			colors = append(colors, hexColor(d.Colors[i]))
		}
		return fmt.Sprintf("fade colors=%s fade=%dms hold=%dms", strings.Join(colors, ","), d.FadeMS, d.HoldMS)
	}
	return fmt.Sprintf("unknown type %d", r.Type)
}

func runAutonomous(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: autonomous on|off")
	}
	var on bool
	switch strings.ToLower(args[0]) {
	case "on", "true", "1":
		on = true
	case "off", "false", "0":
	default:
		return fmt.Errorf("expected on or off, got %q", args[0])
	}
	return withClient(func(c *device.Client) error {
		return c.SetAutonomous(on)
	})
}

func runSave(args []string) error {
	fs := flag.NewFlagSet("save", flag.ExitOnError)
	lamp := fs.Uint("lamp", 0, "Lamp whose animation is saved")
	fs.Parse(args)

	return withClient(func(c *device.Client) error {
		return c.SaveDefault(uint8(*lamp))
	})
}

func runTemp(args []string) error {
	fs := flag.NewFlagSet("temp", flag.ExitOnError)
	interval := fs.Duration("interval", 0, "Print repeatedly at this interval")
	fahrenheit := fs.Bool("f", false, "Print degrees Fahrenheit")
	fs.Parse(args)

	return withClient(func(c *device.Client) error {
		for {
			celsius, err := c.Temperature()
			if err != nil {
				return err
			}
			if *fahrenheit {
				fmt.Printf("%.1f °F\n", celsius*9/5+32)
			} else {
				fmt.Printf("%.1f °C\n", celsius)
			}
			if *interval <= 0 {
				return nil
			}
			time.Sleep(*interval)
		}
	})
}

func runInfo(args []string) error {
	return withClient(func(c *device.Client) error {
		cfg, err := c.Config()
		if err != nil {
			return err
		}
		fmt.Printf("Firmware:   %s\n", cfg.Version)
		fmt.Printf("Lamps:      %d\n", cfg.LampCount)
		fmt.Printf("Frame rate: %.1f Hz\n", 1e6/float64(cfg.FramePeriodUS))
		fmt.Printf("Autonomous: %v\n", cfg.Autonomous)
		fmt.Printf("Suspended:  %v\n", cfg.Suspended)

		dict, err := c.Dictionary()
		if err != nil {
			return err
		}
		if err := dict.Check(device.KnownCommands); err != nil {
			fmt.Printf("Warning: %v\n", err)
		}

		fmt.Println()
		for id := 0; id < cfg.LampCount; id++ {
			a, err := c.LampAttributes(uint8(id))
			if err != nil {
				return err
			}
			fmt.Printf("Lamp %d: position=(%d,%d,%d)um purpose=0x%02x levels=%d/%d/%d/%d latency=%dus\n",
				a.LampID, a.Position[0], a.Position[1], a.Position[2], a.Purpose,
				a.RedLevels, a.GreenLevels, a.BlueLevels, a.IntensityLevels, a.UpdateLatencyUS)
		}
		return nil
	})
}

func runDict(args []string) error {
	return withClient(func(c *device.Client) error {
		dict, err := c.Dictionary()
		if err != nil {
			return err
		}
		for _, e := range dict.Entries {
			fmt.Printf("  [%2d] %-20s %s\n", e.ID, e.Name, e.Format)
		}
		return nil
	})
}

func runEvents(args []string) error {
	return withClient(func(c *device.Client) error {
		events, err := c.Events()
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Println("No events recorded")
			return nil
		}
		for _, e := range events {
			fmt.Printf("%10d  %-12s lamp=%d v1=%d v2=%d\n", e.Clock, debug.EventName(e.Type), e.Lamp, e.Value1, e.Value2)
		}
		return nil
	})
}

func runDump(args []string) error {
	return withClient(func(c *device.Client) error {
		records, slots, err := c.DumpSettings()
		if err != nil {
			return err
		}
		fmt.Printf("%d of %d slots hold records; the hex dump is on the debug UART\n", records, slots)
		return nil
	})
}

func runPorts(args []string) error {
	ports, err := serial.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}
	for _, p := range ports {
		mark := " "
		if p.Matches(serial.DefaultVendorID, serial.DefaultProductID) {
			mark = "*"
		}
		if p.IsUSB {
			fmt.Printf("%s %s  usb %s:%s %s %s\n", mark, p.Name, p.VendorID, p.ProductID, p.Product, p.Serial)
		} else {
			fmt.Printf("%s %s\n", mark, p.Name)
		}
	}
	return nil
}
