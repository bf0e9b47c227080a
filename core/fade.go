package core

import (
	"hidlight/color"
	"hidlight/debug"
)

// MaxFadeTargets is the largest number of colors a fade cycles through.
const MaxFadeTargets = 8

// Fade cycles a lamp through up to MaxFadeTargets colors, interpolating in
// Oklab.
//
// Stages run from 0 to 2*count-1. Even stage 2k fades from the previous
// target to target k; odd stage 2k+1 holds target k. After the last hold the
// cycle wraps to stage 0, fading from the last target back to the first.
type Fade struct {
	current color.Lab
	diff    color.Lab // per-frame step of the current fade stage

	count      uint8
	targets    [MaxFadeTargets]color.Lab
	fadeFrames [MaxFadeTargets]uint32
	holdFrames [MaxFadeTargets]uint32

	period uint32 // frame period in microseconds
}

// NewFade returns a fade with two black targets and one second fades. A
// period of 0 selects the default frame period.
func NewFade(periodUS uint32) *Fade {
	if periodUS == 0 {
		periodUS = FramePeriodUS(DefaultFrameRate)
	}
	f := &Fade{count: 2, period: periodUS}
	f.SetFadeTime(0, 1000000)
	f.SetFadeTime(1, 1000000)
	return f
}

// SetTargets replaces the target colors. At most MaxFadeTargets are used;
// an empty list leaves the fade unchanged. The current color becomes the last
// target so the first fade starts from where the cycle ends.
func (f *Fade) SetTargets(targets []color.Lab) {
	if len(targets) == 0 {
		return
	}
	if len(targets) > MaxFadeTargets {
		targets = targets[:MaxFadeTargets]
	}
	f.count = uint8(copy(f.targets[:], targets))
	f.current = f.targets[f.count-1]
}

// SetFadeTime sets the duration of the fade toward target stage.
func (f *Fade) SetFadeTime(stage uint8, us uint32) {
	if stage >= MaxFadeTargets {
		return
	}
	f.fadeFrames[stage] = FramesFromUS(us, f.period)
}

// SetHoldTime sets how long target stage is held.
func (f *Fade) SetHoldTime(stage uint8, us uint32) {
	if stage >= MaxFadeTargets {
		return
	}
	f.holdFrames[stage] = FramesFromUS(us, f.period)
}

// TargetCount returns the number of targets in the cycle.
func (f *Fade) TargetCount() int { return int(f.count) }

// Target returns target i.
func (f *Fade) Target(i int) color.Lab { return f.targets[i] }

// Current returns the color shown by the last frame.
func (f *Fade) Current() color.Lab { return f.current }

// FadeFrames returns the length of the fade toward target i.
func (f *Fade) FadeFrames(i int) uint32 { return f.fadeFrames[i] }

// HoldFrames returns the length of the hold at target i.
func (f *Fade) HoldFrames(i int) uint32 { return f.holdFrames[i] }

// CycleFrames returns the number of Advance calls in one full cycle. A zero
// length stage still takes one call.
func (f *Fade) CycleFrames() uint32 {
	var n uint32
	for i := 0; i < int(f.count); i++ {
		n += max(f.fadeFrames[i], 1) + max(f.holdFrames[i], 1)
	}
	return n
}

// Advance implements Animation.
func (f *Fade) Advance(state AnimationState) (LampValue, bool, uint8) {
	stages := 2 * f.count
	stage := state.Stage
	if stage >= stages {
		stage %= stages
	}
	target := stage / 2

	var (
		dirty  bool
		frames uint32
	)
	if stage%2 == 1 {
		if state.StageFrame == 0 {
			f.logStage(stage, target)
			// snap to the exact target to drop accumulated error
			f.current = f.targets[target]
			dirty = true
		}
		frames = f.holdFrames[target]
	} else {
		if state.StageFrame == 0 {
			f.logStage(stage, target)
			prev := target - 1
			if target == 0 {
				prev = f.count - 1
			}
			f.setDiff(target, prev)
		}
		frames = f.fadeFrames[target]
		f.current = f.current.Add(f.diff)
		dirty = true
	}

	next := stage
	if frames == 0 || state.StageFrame >= frames-1 {
		next = (stage + 1) % stages
	}

	if !dirty {
		return LampValue{}, false, next
	}
	return LampFromRGB16(color.FromOklab(f.current).RGB16()), true, next
}

func (f *Fade) setDiff(dest, src uint8) {
	frames := f.fadeFrames[dest]
	if frames == 0 {
		f.diff = color.Lab{}
		return
	}
	f.diff = f.targets[dest].Sub(f.targets[src]).Div(float32(frames))
}

func (f *Fade) logStage(stage, target uint8) {
	if !debug.Enabled() {
		return
	}
	cur := color.FromOklab(f.current).RGB16()
	tgt := color.FromOklab(f.targets[target]).RGB16()
	debug.Println("animate/fade: start stage " + debug.Utoa(uint32(stage)) +
		" current=" + rgbString(cur) + " target=" + rgbString(tgt))
}

func rgbString(c color.RGB16) string {
	return "rgb(" + debug.Utoa(uint32(c.R)) + "," + debug.Utoa(uint32(c.G)) + "," + debug.Utoa(uint32(c.B)) + ")"
}
