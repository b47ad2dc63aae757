package movement

import "github.com/cfoust/strafe/pkg/input"

// Mode is either Ground or Noclip.
type Mode interface {
	isMode()
}

// Ground is walking under gravity.
type Ground struct {
	// Consecutive ticks spent touching the ground, saturating at 255.
	Tick uint8
}

// Noclip is free flight along the look direction.
type Noclip struct{}

func (Ground) isMode() {}
func (Noclip) isMode() {}

// Transition returns the mode a controller is in after seeing the sample.
func Transition(mode Mode, sample input.Sample) Mode {
	if mode == nil {
		mode = Ground{}
	}

	if !sample.Fly {
		return mode
	}

	if _, ok := mode.(Noclip); ok {
		return Ground{}
	}
	return Noclip{}
}

func ModeName(mode Mode) string {
	if _, ok := mode.(Noclip); ok {
		return "noclip"
	}
	return "ground"
}
