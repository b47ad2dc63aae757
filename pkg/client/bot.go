package client

import (
	"github.com/cfoust/strafe/pkg/input"

	"github.com/go-gl/mathgl/mgl32"
	opt "github.com/repeale/fp-go/option"
)

// Bot walks in a circle and fires a burst every so often. It drives the
// same capture path a human player would, with the pointer always held.
type Bot struct {
	// Radians of yaw per tick.
	TurnRate    float32
	BurstEvery  int
	BurstLength int

	ticks    int
	capturer *input.Capturer
}

func NewBot() *Bot {
	capturer := input.NewCapturer(input.DEFAULT_SENSITIVITY)
	capturer.SetCaptured(true)
	return &Bot{
		TurnRate:    0.03,
		BurstEvery:  64,
		BurstLength: 8,
		capturer:    capturer,
	}
}

// Controls returns what the bot is pressing this tick.
func (b *Bot) Controls() input.Controls {
	shooting := false
	if b.BurstEvery > 0 {
		shooting = b.ticks%b.BurstEvery < b.BurstLength
	}
	return input.Controls{
		Forward: true,
		Fire:    shooting,
	}
}

func (b *Bot) Next() input.Sample {
	b.ticks++

	// Mouse motion to the left turns the player left, which is positive yaw.
	b.capturer.MouseMotion(mgl32.Vec2{-b.TurnRate / b.capturer.Sensitivity, 0})

	sample := b.capturer.Capture(b.Controls())
	if opt.IsNone(sample) {
		return input.Sample{}
	}
	return sample.Value
}
