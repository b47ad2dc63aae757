package arena

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

type Box struct {
	Center      [3]float32 `yaml:"center"`
	HalfExtents [3]float32 `yaml:"halfExtents"`
}

// Level is the static geometry of a map.
type Level struct {
	Name  string     `yaml:"name"`
	Spawn [3]float32 `yaml:"spawn"`
	Boxes []Box      `yaml:"boxes"`
}

// DefaultLevel is a floor slab with a single wall in front of the spawn.
var DefaultLevel = Level{
	Name:  "range",
	Spawn: [3]float32{0, 1.625, 0},
	Boxes: []Box{
		{Center: [3]float32{0, -0.5, 0}, HalfExtents: [3]float32{20, 0.1, 20}},
		{Center: [3]float32{0, 0, 10}, HalfExtents: [3]float32{5, 2.5, 0.5}},
	},
}

func ParseLevel(data []byte) (*Level, error) {
	level := Level{}
	if err := yaml.Unmarshal(data, &level); err != nil {
		return nil, fmt.Errorf("could not parse level: %w", err)
	}

	for i, box := range level.Boxes {
		for _, extent := range box.HalfExtents {
			if extent <= 0 {
				return nil, fmt.Errorf("box %d has a non-positive half extent", i)
			}
		}
	}

	return &level, nil
}

func LoadLevel(path string) (*Level, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read level %s: %w", path, err)
	}
	return ParseLevel(data)
}

func (l *Level) SpawnPoint() mgl32.Vec3 {
	return mgl32.Vec3(l.Spawn)
}

// Build creates an arena containing the level's static geometry.
func (l *Level) Build() *Arena {
	arena := New()
	for _, box := range l.Boxes {
		arena.AddStatic(mgl32.Vec3(box.Center), mgl32.Vec3(box.HalfExtents))
	}
	return arena
}
