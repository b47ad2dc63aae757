// Package arena is a small collision world made of axis-aligned static boxes
// and dynamic bodies. It implements physics.Caster for the movement and combat
// code and moves bodies with a collide-and-slide integrator.
package arena

import (
	"math"

	"github.com/cfoust/strafe/pkg/geom"
	"github.com/cfoust/strafe/pkg/physics"

	"github.com/go-gl/mathgl/mgl32"
	opt "github.com/repeale/fp-go/option"
	"github.com/sasha-s/go-deadlock"
)

const (
	// Gap left between a body and the surface it slid into.
	SKIN float32 = 0.001
	// Parallel motion closer than this to a face does not count as touching it.
	TOUCH_TOLERANCE float32 = 1e-4
	MAX_SLIDE_ITERATIONS    = 4
)

type Body struct {
	ID       physics.EntityID
	Position mgl32.Vec3
	Collider physics.Collider
	Static   bool
}

func (b *Body) min() mgl32.Vec3 {
	return b.Position.Sub(b.Collider.Extents())
}

func (b *Body) max() mgl32.Vec3 {
	return b.Position.Add(b.Collider.Extents())
}

type Arena struct {
	mutex  deadlock.RWMutex
	nextID physics.EntityID
	bodies map[physics.EntityID]*Body
	// Iteration order for queries, so ties resolve the same way everywhere.
	order []physics.EntityID
}

var _ physics.Caster = (*Arena)(nil)

func New() *Arena {
	return &Arena{
		nextID: 1,
		bodies: make(map[physics.EntityID]*Body),
	}
}

func (a *Arena) add(body *Body) physics.EntityID {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	body.ID = a.nextID
	a.nextID++
	a.bodies[body.ID] = body
	a.order = append(a.order, body.ID)
	return body.ID
}

// AddStatic adds immovable level geometry.
func (a *Arena) AddStatic(center, halfExtents mgl32.Vec3) physics.EntityID {
	return a.add(&Body{
		Position: center,
		Collider: physics.Cuboid(halfExtents),
		Static:   true,
	})
}

// Spawn adds a dynamic body and returns its entity.
func (a *Arena) Spawn(position mgl32.Vec3, collider physics.Collider) physics.EntityID {
	return a.add(&Body{
		Position: position,
		Collider: collider,
	})
}

func (a *Arena) Remove(id physics.EntityID) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if _, ok := a.bodies[id]; !ok {
		return
	}
	delete(a.bodies, id)
	for i, other := range a.order {
		if other == id {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}

func (a *Arena) Get(id physics.EntityID) (Body, bool) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	body, ok := a.bodies[id]
	if !ok {
		return Body{}, false
	}
	return *body, true
}

// Update overwrites a body's position and shape, for example after a step-up
// or a change in crouch height.
func (a *Arena) Update(id physics.EntityID, position mgl32.Vec3, collider physics.Collider) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	body, ok := a.bodies[id]
	if !ok {
		return
	}
	body.Position = position
	body.Collider = collider
}

func (a *Arena) Sweep(
	origin mgl32.Vec3,
	rotation mgl32.Quat,
	direction mgl32.Vec3,
	shape physics.Collider,
	maxDistance float32,
	exclude physics.EntityID,
) opt.Option[physics.Hit] {
	// Every shape is Y-aligned, so a yaw rotation leaves its bounds unchanged.
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	hit, ok := a.sweep(origin, direction, shape.Extents(), maxDistance, exclude)
	if !ok {
		return opt.None[physics.Hit]()
	}
	return opt.Some(hit)
}

func (a *Arena) sweep(
	origin mgl32.Vec3,
	direction mgl32.Vec3,
	extents mgl32.Vec3,
	maxDistance float32,
	exclude physics.EntityID,
) (physics.Hit, bool) {
	var best physics.Hit
	found := false
	for _, id := range a.order {
		if id == exclude {
			continue
		}
		body := a.bodies[id]

		min := body.min().Sub(extents)
		max := body.max().Add(extents)
		hit, ok := sweepBox(origin, direction, min, max, maxDistance)
		if !ok {
			continue
		}
		if !found || hit.Distance < best.Distance {
			best = hit
			found = true
		}
	}
	return best, found
}

// sweepBox casts a ray against a box that has already been expanded by the
// moving shape's extents.
func sweepBox(origin, direction, min, max mgl32.Vec3, maxDistance float32) (physics.Hit, bool) {
	tEnter := float32(math.Inf(-1))
	tExit := float32(math.Inf(1))
	enterAxis := -1

	for axis := 0; axis < 3; axis++ {
		o := origin[axis]
		d := direction[axis]
		if abs(d) <= geom.Epsilon {
			if o <= min[axis]+TOUCH_TOLERANCE || o >= max[axis]-TOUCH_TOLERANCE {
				return physics.Hit{}, false
			}
			continue
		}

		near := (min[axis] - o) / d
		far := (max[axis] - o) / d
		if near > far {
			near, far = far, near
		}
		if near > tEnter {
			tEnter = near
			enterAxis = axis
		}
		if far < tExit {
			tExit = far
		}
	}

	if tEnter > tExit || tExit <= 0 || tEnter > maxDistance {
		return physics.Hit{}, false
	}

	if tEnter >= 0 && enterAxis >= 0 {
		normal := mgl32.Vec3{}
		if direction[enterAxis] > 0 {
			normal[enterAxis] = -1
		} else {
			normal[enterAxis] = 1
		}
		return physics.Hit{Distance: tEnter, Normal: normal}, true
	}

	// Started overlapping: report contact only when moving further in.
	normal := penetrationNormal(origin, min, max)
	if direction.Dot(normal) >= 0 {
		return physics.Hit{}, false
	}
	return physics.Hit{Distance: 0, Normal: normal}, true
}

// penetrationNormal points out of the box through the nearest face.
func penetrationNormal(point, min, max mgl32.Vec3) mgl32.Vec3 {
	best := float32(math.Inf(1))
	normal := geom.Up
	for axis := 0; axis < 3; axis++ {
		toMin := point[axis] - min[axis]
		toMax := max[axis] - point[axis]
		if toMax < best {
			best = toMax
			normal = mgl32.Vec3{}
			normal[axis] = 1
		}
		if toMin < best {
			best = toMin
			normal = mgl32.Vec3{}
			normal[axis] = -1
		}
	}
	return normal
}

func (a *Arena) Raycast(
	origin mgl32.Vec3,
	direction mgl32.Vec3,
	maxDistance float32,
	solid bool,
	exclude physics.EntityID,
) opt.Option[physics.RayHit] {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	var best physics.RayHit
	found := false
	for _, id := range a.order {
		if id == exclude {
			continue
		}
		body := a.bodies[id]

		var (
			distance float32
			ok       bool
		)
		if body.Collider.Kind == physics.ShapeBall {
			distance, ok = rayBall(origin, direction, body.Position, body.Collider.Radius, solid)
		} else {
			distance, ok = rayBox(origin, direction, body.min(), body.max(), solid)
		}
		if !ok || distance > maxDistance {
			continue
		}
		if !found || distance < best.Distance {
			best = physics.RayHit{Entity: id, Distance: distance}
			found = true
		}
	}

	if !found {
		return opt.None[physics.RayHit]()
	}
	return opt.Some(best)
}

func rayBox(origin, direction, min, max mgl32.Vec3, solid bool) (float32, bool) {
	tEnter := float32(math.Inf(-1))
	tExit := float32(math.Inf(1))
	for axis := 0; axis < 3; axis++ {
		o := origin[axis]
		d := direction[axis]
		if abs(d) <= geom.Epsilon {
			if o < min[axis] || o > max[axis] {
				return 0, false
			}
			continue
		}
		near := (min[axis] - o) / d
		far := (max[axis] - o) / d
		if near > far {
			near, far = far, near
		}
		if near > tEnter {
			tEnter = near
		}
		if far < tExit {
			tExit = far
		}
	}

	if tEnter > tExit || tExit < 0 {
		return 0, false
	}
	if tEnter >= 0 {
		return tEnter, true
	}
	if solid {
		return 0, true
	}
	return tExit, true
}

func rayBall(origin, direction, center mgl32.Vec3, radius float32, solid bool) (float32, bool) {
	offset := origin.Sub(center)
	a := direction.Dot(direction)
	if a <= geom.Epsilon {
		return 0, false
	}
	b := offset.Dot(direction)
	c := offset.Dot(offset) - radius*radius
	discriminant := b*b - a*c
	if discriminant < 0 {
		return 0, false
	}

	root := float32(math.Sqrt(float64(discriminant)))
	near := (-b - root) / a
	far := (-b + root) / a
	if far < 0 {
		return 0, false
	}
	if near >= 0 {
		return near, true
	}
	if solid {
		return 0, true
	}
	return far, true
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
