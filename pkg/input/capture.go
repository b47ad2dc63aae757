package input

import (
	"github.com/go-gl/mathgl/mgl32"
	opt "github.com/repeale/fp-go/option"
)

// Controls is the raw state of the player's keys and buttons for a frame.
type Controls struct {
	Forward bool
	Back    bool
	Left    bool
	Right   bool
	Up      bool
	Down    bool
	Jump    bool
	Crouch  bool
	Sprint  bool
	Fly     bool
	Fire    bool
	Reload  bool
}

// Capturer produces samples for the local player. Nothing is produced while
// the pointer is released, so a player tabbed out of the game does not move.
type Capturer struct {
	Look        Look
	Sensitivity float32

	captured bool
	mouse    mgl32.Vec2
	previous Controls
}

func NewCapturer(sensitivity float32) *Capturer {
	if sensitivity <= 0 {
		sensitivity = DEFAULT_SENSITIVITY
	}
	return &Capturer{Sensitivity: sensitivity}
}

func (c *Capturer) SetCaptured(captured bool) {
	c.captured = captured
	c.mouse = mgl32.Vec2{}
}

func (c *Capturer) Captured() bool {
	return c.captured
}

// MouseMotion accumulates pointer movement until the next capture.
func (c *Capturer) MouseMotion(delta mgl32.Vec2) {
	if !c.captured {
		return
	}
	c.mouse = c.mouse.Add(delta)
}

func axis(positive, negative bool) float32 {
	var value float32
	if positive {
		value++
	}
	if negative {
		value--
	}
	return value
}

// Capture returns the sample for this tick.
func (c *Capturer) Capture(controls Controls) opt.Option[Sample] {
	previous := c.previous
	c.previous = controls

	if !c.captured {
		return opt.None[Sample]()
	}

	c.Look.Apply(c.mouse, c.Sensitivity)
	c.mouse = mgl32.Vec2{}

	return opt.Some(Sample{
		Movement: mgl32.Vec3{
			axis(controls.Right, controls.Left),
			axis(controls.Up, controls.Down),
			axis(controls.Forward, controls.Back),
		},
		Jump:   controls.Jump,
		Crouch: controls.Crouch,
		Sprint: controls.Sprint,
		Fly:    controls.Fly && !previous.Fly,
		Shoot:  controls.Fire,
		Reload: controls.Reload && !previous.Reload,
		Pitch:  c.Look.Pitch,
		Yaw:    c.Look.Yaw,
	})
}
