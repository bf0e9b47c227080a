package core

// AnimationType identifies the kind of a saved or commanded animation.
type AnimationType uint8

const (
	AnimationNone    AnimationType = 0
	AnimationBreathe AnimationType = 1
	AnimationFade    AnimationType = 2
)

// String returns the command name of the type.
func (t AnimationType) String() string {
	switch t {
	case AnimationNone:
		return "none"
	case AnimationBreathe:
		return "breathe"
	case AnimationFade:
		return "fade"
	}
	return "unknown"
}

// AnimationState is the per-lamp cursor owned by the controller.
type AnimationState struct {
	Stage      uint8
	Frame      uint32 // frames since the animation last entered stage 0
	StageFrame uint32 // frames since the current stage began
}

// Animation advances a lamp by one frame.
//
// Advance returns the lamp value for this frame and whether it changed, plus
// the stage the next frame should run. The controller owns the cursor and
// updates Frame and StageFrame after each call.
type Animation interface {
	Advance(state AnimationState) (value LampValue, dirty bool, next uint8)
}
