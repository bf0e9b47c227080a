package core

import (
	"errors"

	"hidlight/debug"
	"hidlight/persist"
)

// DefaultLampCount is the number of lamps on the reference board.
const DefaultLampCount = 4

// MaxLamps is the largest lamp count addressable by a uint8 id.
const MaxLamps = 255

// ErrNoSettings is returned by the default operations when the controller
// has no settings store.
var ErrNoSettings = errors.New("core: no settings store")

// Lamp purpose bits reported in lamp attributes.
const (
	PurposeControl      uint16 = 0x01
	PurposeAccent       uint16 = 0x02
	PurposeBranding     uint16 = 0x04
	PurposeStatus       uint16 = 0x08
	PurposeIllumination uint16 = 0x10
	PurposePresentation uint16 = 0x20
)

// Settings stores the default animation record of each lamp.
// *persist.Store implements it.
type Settings interface {
	Find(lamp uint8) (persist.Record, bool, error)
	Save(r persist.Record) error
	Clear() error
}

// LampPlacement describes where a lamp sits and what it is for. Positions
// are in micrometers from the device origin.
type LampPlacement struct {
	Position [3]int32
	Purpose  uint16
}

// LampAttributes is the static description of one lamp.
type LampAttributes struct {
	LampID          uint8
	Position        [3]int32
	UpdateLatencyUS uint32
	Purpose         uint16
	RedLevels       uint8
	GreenLevels     uint8
	BlueLevels      uint8
	IntensityLevels uint8
	Programmable    bool
	InputBinding    uint16
}

// ControllerConfig sizes a Controller.
type ControllerConfig struct {
	LampCount       int
	FramePeriodUS   uint32
	UpdateLatencyUS uint32
	Placements      []LampPlacement // indexed by lamp id; missing entries are zero
}

type lampSlot struct {
	current LampValue
	next    LampValue
	dirty   bool

	anim   Animation
	state  AnimationState
	record persist.Record // last record applied, saved by SaveDefault
}

// Controller runs lamp animations and buffers lamp output.
//
// Updates are staged in next and committed to the driver by Task, so a burst
// of updates between two Task calls produces a single write per lamp. All
// methods must be called from the foreground loop; lamp ids are assumed to
// be in range.
type Controller struct {
	lamps    []lampSlot
	driver   LampDriver
	clock    Clock
	settings Settings

	framePeriod   uint32
	updateLatency uint32
	placements    []LampPlacement

	autonomous bool
	suspended  bool
	doUpdate   bool
	lastFrame  uint32
	nextAttrID uint8
}

// NewController returns a controller in autonomous mode with every lamp idle.
// settings may be nil.
func NewController(cfg ControllerConfig, driver LampDriver, clock Clock, settings Settings) *Controller {
	count := cfg.LampCount
	if count <= 0 {
		count = DefaultLampCount
	}
	if count > MaxLamps {
		count = MaxLamps
	}
	period := cfg.FramePeriodUS
	if period == 0 {
		period = FramePeriodUS(DefaultFrameRate)
	}

	c := &Controller{
		lamps:         make([]lampSlot, count),
		driver:        driver,
		clock:         clock,
		settings:      settings,
		framePeriod:   period,
		updateLatency: cfg.UpdateLatencyUS,
		placements:    cfg.Placements,
		autonomous:    true,
		lastFrame:     clock.Micros(),
	}
	for id := range c.lamps {
		c.lamps[id].record = NewNoneRecord(uint8(id))
	}
	return c
}

// LampCount returns the number of lamps.
func (c *Controller) LampCount() int {
	return len(c.lamps)
}

// FramePeriodUS returns the animation frame period.
func (c *Controller) FramePeriodUS() uint32 {
	return c.framePeriod
}

// SetAnimation replaces the animation of lamp and resets its cursor. A nil
// animation leaves the lamp at its current output.
func (c *Controller) SetAnimation(lamp uint8, a Animation) {
	slot := &c.lamps[lamp]
	slot.anim = a
	slot.state = AnimationState{}
}

// ApplyRecord builds and installs the animation described by r. The none
// type also turns the lamp off. It reports false for unknown types, leaving
// the lamp unchanged.
func (c *Controller) ApplyRecord(r persist.Record) bool {
	anim, ok := AnimationFromRecord(r, c.framePeriod)
	if !ok {
		return false
	}
	if AnimationType(r.Type) == AnimationNone {
		c.UpdateLamp(r.LampID, LampOff(), true)
	}
	c.SetAnimation(r.LampID, anim)
	c.lamps[r.LampID].record = r
	return true
}

// Record returns the record most recently applied to lamp.
func (c *Controller) Record(lamp uint8) persist.Record {
	return c.lamps[lamp].record
}

// UpdateLamp stages v for lamp. With apply, the staged values of every lamp
// are committed on the next Task.
func (c *Controller) UpdateLamp(lamp uint8, v LampValue, apply bool) {
	slot := &c.lamps[lamp]
	slot.next = v
	slot.dirty = true
	if apply {
		c.doUpdate = true
	}
}

// UpdateLamps stages values[i] for ids[i]. Extra entries in the longer slice
// are ignored.
func (c *Controller) UpdateLamps(ids []uint8, values []LampValue, apply bool) {
	n := min(len(ids), len(values))
	for i := 0; i < n; i++ {
		c.UpdateLamp(ids[i], values[i], false)
	}
	if apply {
		c.ApplyLampUpdates()
	}
}

// UpdateRange stages v for every lamp from start to end inclusive.
func (c *Controller) UpdateRange(start, end uint8, v LampValue, apply bool) {
	for id := int(start); id <= int(end) && id < len(c.lamps); id++ {
		c.UpdateLamp(uint8(id), v, false)
	}
	if apply {
		c.ApplyLampUpdates()
	}
}

// ApplyLampUpdates schedules a commit of all staged values.
func (c *Controller) ApplyLampUpdates() {
	c.doUpdate = true
}

// Lamp returns the last value committed to lamp.
func (c *Controller) Lamp(lamp uint8) LampValue {
	return c.lamps[lamp].current
}

// AnimationState returns the animation cursor of lamp.
func (c *Controller) AnimationState(lamp uint8) AnimationState {
	return c.lamps[lamp].state
}

// SetAutonomous enables or disables animation playback.
func (c *Controller) SetAutonomous(on bool) {
	c.autonomous = on
}

// Autonomous reports whether animations are running.
func (c *Controller) Autonomous() bool {
	return c.autonomous
}

// Suspended reports whether the controller is suspended.
func (c *Controller) Suspended() bool {
	return c.suspended
}

// Suspend turns every lamp off immediately and stops Task. The visible state
// is staged so that Resume restores it.
func (c *Controller) Suspend() {
	if c.suspended {
		return
	}
	for id := range c.lamps {
		slot := &c.lamps[id]
		slot.next = slot.current
		slot.dirty = true
		c.driver.LampOff(uint8(id))
	}
	flushDriver(c.driver)
	c.suspended = true
	debug.Record(debug.EvtSuspend, 0, 0, 0)
}

// Resume restarts Task. The next Task commits the pre-suspend outputs.
func (c *Controller) Resume() {
	if !c.suspended {
		return
	}
	c.suspended = false
	c.doUpdate = true
	debug.Record(debug.EvtResume, 0, 0, 0)
}

// Task advances animations when a frame period has elapsed, then commits
// pending lamp updates. It never blocks and should be polled more often than
// the frame period.
func (c *Controller) Task() {
	if c.suspended {
		return
	}

	if c.autonomous {
		now := c.clock.Micros()
		elapsed := ElapsedMicros(c.lastFrame, now)
		if elapsed >= c.framePeriod {
			for id := range c.lamps {
				c.animationFrame(uint8(id))
			}
			debug.Record(debug.EvtFrame, 0, elapsed, 0)
			c.lastFrame = now
		}
	}

	if c.doUpdate {
		c.commit()
	}
}

func (c *Controller) animationFrame(lamp uint8) {
	slot := &c.lamps[lamp]
	if slot.anim == nil {
		return
	}

	value, dirty, next := slot.anim.Advance(slot.state)
	if dirty {
		c.UpdateLamp(lamp, value, true)
	}

	state := &slot.state
	state.Frame++
	state.StageFrame++
	if next != state.Stage {
		debug.Record(debug.EvtStage, lamp, uint32(state.Stage), uint32(next))
		state.Stage = next
		state.StageFrame = 0
		if next == 0 {
			state.Frame = 0
		}
	}
}

func (c *Controller) commit() {
	wrote := false
	for id := range c.lamps {
		slot := &c.lamps[id]
		if !slot.dirty {
			continue
		}
		wrote = true
		c.driver.SetLamp(uint8(id), slot.next)
		debug.Record(debug.EvtCommit, uint8(id), uint32(slot.next.R), uint32(slot.next.I))
		slot.current = slot.next
		slot.next = LampValue{}
		slot.dirty = false
	}
	if wrote {
		flushDriver(c.driver)
	}
	c.doUpdate = false
}

// SaveDefault persists the record last applied to lamp, so LoadDefaults
// restores it after a power cycle. A lamp that never received an animation
// saves the none record.
func (c *Controller) SaveDefault(lamp uint8) error {
	if c.settings == nil {
		return ErrNoSettings
	}
	return c.settings.Save(c.lamps[lamp].record)
}

// LoadDefaults applies the saved record of every lamp that has one.
func (c *Controller) LoadDefaults() error {
	if c.settings == nil {
		return ErrNoSettings
	}
	for id := range c.lamps {
		r, ok, err := c.settings.Find(uint8(id))
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if !c.ApplyRecord(r) {
			debug.Println("controller: lamp " + debug.Itoa(id) + " has saved record of unknown type " + debug.Itoa(int(r.Type)))
		}
	}
	return nil
}

// ClearDefaults erases every saved record.
func (c *Controller) ClearDefaults() error {
	if c.settings == nil {
		return ErrNoSettings
	}
	return c.settings.Clear()
}

// SetNextAttributesLamp selects the lamp reported by the next LampAttributes
// call. Out of range ids select lamp 0.
func (c *Controller) SetNextAttributesLamp(lamp uint8) {
	if int(lamp) >= len(c.lamps) {
		lamp = 0
	}
	c.nextAttrID = lamp
}

// LampAttributes describes the selected lamp and advances the selection, so
// repeated calls walk every lamp in order.
func (c *Controller) LampAttributes() LampAttributes {
	id := c.nextAttrID
	c.nextAttrID = uint8((int(id) + 1) % len(c.lamps))

	var place LampPlacement
	if int(id) < len(c.placements) {
		place = c.placements[id]
	}
	return LampAttributes{
		LampID:          id,
		Position:        place.Position,
		UpdateLatencyUS: c.updateLatency,
		Purpose:         place.Purpose,
		RedLevels:       LampColorLevels,
		GreenLevels:     LampColorLevels,
		BlueLevels:      LampColorLevels,
		IntensityLevels: LampIntensityLevels,
		Programmable:    true,
	}
}
