package arena

import (
	"github.com/cfoust/strafe/pkg/geom"
	"github.com/cfoust/strafe/pkg/physics"

	"github.com/go-gl/mathgl/mgl32"
)

// Integrate advances a dynamic body by velocity*dt, sliding along anything
// it runs into. It returns the body's new position and the velocity with
// every component that pointed into a contact removed.
func (a *Arena) Integrate(id physics.EntityID, velocity mgl32.Vec3, dt float32) (mgl32.Vec3, mgl32.Vec3) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	body, ok := a.bodies[id]
	if !ok {
		return mgl32.Vec3{}, velocity
	}

	extents := body.Collider.Extents()
	position, velocity := a.depenetrate(body, velocity)
	remaining := velocity.Mul(dt)

	for i := 0; i < MAX_SLIDE_ITERATIONS; i++ {
		distance := remaining.Len()
		if distance <= geom.Epsilon {
			break
		}
		direction := remaining.Mul(1 / distance)

		hit, found := a.sweep(position, direction, extents, distance, id)
		if !found {
			position = position.Add(remaining)
			break
		}

		travel := hit.Distance - SKIN
		if travel < 0 {
			travel = 0
		}
		position = position.Add(direction.Mul(travel))
		remaining = direction.Mul(distance - travel)

		normal := hit.Normal
		if into := remaining.Dot(normal); into < 0 {
			remaining = remaining.Sub(normal.Mul(into))
		}
		if into := velocity.Dot(normal); into < 0 {
			velocity = velocity.Sub(normal.Mul(into))
		}
	}

	body.Position = position
	return position, velocity
}

// depenetrate pushes a body out of any box it overlaps through the nearest
// face.
func (a *Arena) depenetrate(body *Body, velocity mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3) {
	position := body.Position
	extents := body.Collider.Extents()

	for _, id := range a.order {
		if id == body.ID {
			continue
		}
		other := a.bodies[id]

		min := other.min().Sub(extents)
		max := other.max().Add(extents)
		inside := true
		for axis := 0; axis < 3; axis++ {
			if position[axis] <= min[axis] || position[axis] >= max[axis] {
				inside = false
				break
			}
		}
		if !inside {
			continue
		}

		normal := penetrationNormal(position, min, max)
		for axis := 0; axis < 3; axis++ {
			switch {
			case normal[axis] > 0:
				position[axis] = max[axis] + SKIN
			case normal[axis] < 0:
				position[axis] = min[axis] - SKIN
			}
		}
		if into := velocity.Dot(normal); into < 0 {
			velocity = velocity.Sub(normal.Mul(into))
		}
	}

	return position, velocity
}
