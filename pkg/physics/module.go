// Package physics describes the shape-cast capability the simulation consumes.
// Collision detection itself lives behind Caster; see the arena package for
// the implementation the server and client use.
package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	opt "github.com/repeale/fp-go/option"
)

//go:generate go tool mockgen -destination=./mocks/caster_mock.go -package=mocks . Caster

// A unique identifier for a body in the world. Zero never names a body.
type EntityID uint32

const NoEntity EntityID = 0

type ShapeKind uint8

const (
	ShapeCylinder ShapeKind = iota
	ShapeCapsule
	ShapeBall
	ShapeCuboid
)

func (s ShapeKind) String() string {
	switch s {
	case ShapeCylinder:
		return "cylinder"
	case ShapeCapsule:
		return "capsule"
	case ShapeBall:
		return "ball"
	case ShapeCuboid:
		return "cuboid"
	}
	return fmt.Sprintf("shape(%d)", uint8(s))
}

// Collider is a Y-aligned shape centered on its body's translation.
//
// For a cylinder HalfHeight is half the full height. For a capsule it is half
// of the segment between the two hemisphere centers, so the full height is
// 2*(HalfHeight+Radius). Cuboids use HalfExtents only.
type Collider struct {
	Kind        ShapeKind
	HalfHeight  float32
	Radius      float32
	HalfExtents mgl32.Vec3
}

func Cylinder(halfHeight, radius float32) Collider {
	return Collider{Kind: ShapeCylinder, HalfHeight: halfHeight, Radius: radius}
}

func Capsule(halfHeight, radius float32) Collider {
	return Collider{Kind: ShapeCapsule, HalfHeight: halfHeight, Radius: radius}
}

func Ball(radius float32) Collider {
	return Collider{Kind: ShapeBall, Radius: radius}
}

func Cuboid(halfExtents mgl32.Vec3) Collider {
	return Collider{Kind: ShapeCuboid, HalfExtents: halfExtents}
}

// Extents returns the half size of the collider's bounding box.
func (c Collider) Extents() mgl32.Vec3 {
	switch c.Kind {
	case ShapeCylinder:
		return mgl32.Vec3{c.Radius, c.HalfHeight, c.Radius}
	case ShapeCapsule:
		return mgl32.Vec3{c.Radius, c.HalfHeight + c.Radius, c.Radius}
	case ShapeBall:
		return mgl32.Vec3{c.Radius, c.Radius, c.Radius}
	}
	return c.HalfExtents
}

// Hit is the result of a successful sweep. Distance is measured in
// multiples of the sweep direction and Normal is the outward normal of the
// surface that was struck.
type Hit struct {
	Distance float32
	Normal   mgl32.Vec3
}

// RayHit is the result of a successful raycast. Distance is measured in
// multiples of the ray direction.
type RayHit struct {
	Entity   EntityID
	Distance float32
}

type Caster interface {
	// Sweep moves the collider from origin along direction and reports the
	// first surface it touches within maxDistance. Bodies belonging to
	// exclude are ignored.
	Sweep(
		origin mgl32.Vec3,
		rotation mgl32.Quat,
		direction mgl32.Vec3,
		shape Collider,
		maxDistance float32,
		exclude EntityID,
	) opt.Option[Hit]
	// Raycast reports the first body along the ray. A solid ray that starts
	// inside a body hits it at distance zero.
	Raycast(
		origin mgl32.Vec3,
		direction mgl32.Vec3,
		maxDistance float32,
		solid bool,
		exclude EntityID,
	) opt.Option[RayHit]
}
