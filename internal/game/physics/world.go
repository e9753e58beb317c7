package physics

import (
	"fmt"
	"math"
)

// Collision reports a contact between two bodies using their role tags, so
// higher layers never depend on the world's internal event shape.
type Collision struct {
	RoleA, RoleB string
	BodyA, BodyB *Body
	Speed        float64
}

// CollisionFunc is invoked synchronously for each contact resolved during a
// step. Persistent overlap (a sensor zone) reports once per sub-step; callers
// that need edge triggering debounce on their side.
type CollisionFunc func(Collision)

// Sleep tuning. A dynamic body slower than sleepSpeed for sleepDelay seconds
// is put to sleep with its residual velocity zeroed.
const (
	sleepSpeed = 0.05
	sleepDelay = 0.35
)

// World owns every body added to it and advances them in fixed increments.
type World struct {
	gravity     Vec3
	bodies      []*Body
	materials   map[string]Material
	contacts    map[string]Contact
	onCollision CollisionFunc
	nextID      uint64
}

// NewWorld constructs a world with the given gravity and the default
// material/contact tables.
func NewWorld(gravity Vec3) *World {
	return &World{
		gravity:   gravity,
		materials: defaultMaterials(),
		contacts:  defaultContacts(),
	}
}

func (w *World) SetGravity(g Vec3) {
	w.gravity = g
}

func (w *World) Gravity() Vec3 {
	return w.gravity
}

// Material looks up a named material. The second return is false when the
// name is unknown.
func (w *World) Material(name string) (Material, bool) {
	m, ok := w.materials[name]
	return m, ok
}

// ContactFor returns the contact rule for a material pair, falling back to a
// moderate default when no explicit rule exists.
func (w *World) ContactFor(a, b string) Contact {
	if c, ok := w.contacts[pairKey(a, b)]; ok {
		return c
	}
	return Contact{Friction: 0.3, Restitution: 0.3}
}

func (w *World) SetCollisionCallback(fn CollisionFunc) {
	w.onCollision = fn
}

// AddBody hands ownership of the body to the world and assigns its ID.
func (w *World) AddBody(b *Body) {
	if b == nil {
		return
	}
	w.nextID++
	b.ID = w.nextID
	w.bodies = append(w.bodies, b)
}

// RemoveBody freezes the body first (zeroed velocity/force/torque, awake) so
// a removed-but-still-referenced body never retains stale forces, then drops
// it from the world. Removing an absent body is a no-op.
func (w *World) RemoveBody(b *Body) {
	if b == nil {
		return
	}
	b.Freeze()
	for i := range w.bodies {
		if w.bodies[i] == b {
			w.bodies = append(w.bodies[:i:i], w.bodies[i+1:]...)
			return
		}
	}
}

// Bodies returns the world's body list. Callers must not mutate it.
func (w *World) Bodies() []*Body {
	return w.bodies
}

// Clear removes every body and rebuilds the contact-material tables.
func (w *World) Clear() {
	for _, b := range w.bodies {
		b.Freeze()
	}
	w.bodies = nil
	w.materials = defaultMaterials()
	w.contacts = defaultContacts()
}

// StepOnce advances the world by exactly dt seconds. It returns an error when
// a body reaches a non-finite state; the caller decides how to recover.
func (w *World) StepOnce(dt float64) error {
	for _, b := range w.bodies {
		if b.Static || b.Sleeping {
			continue
		}
		accel := w.gravity.Plus(b.Force.Times(b.invMass()))
		b.Velocity = b.Velocity.Plus(accel.Times(dt))
		b.Position = b.Position.Plus(b.Velocity.Times(dt))
		b.Force = Vec3{}
		b.Torque = Vec3{}
	}

	// Detect blow-ups before contact resolution so one non-finite body
	// cannot contaminate the rest through impulse exchange.
	for _, b := range w.bodies {
		if b.Static {
			continue
		}
		if !b.Position.IsFinite() || !b.Velocity.IsFinite() {
			return fmt.Errorf("body %d (%s) reached non-finite state at %+v", b.ID, b.Role(), b.Position)
		}
	}

	w.resolveCollisions()

	for _, b := range w.bodies {
		if b.Static {
			continue
		}
		if !b.Position.IsFinite() || !b.Velocity.IsFinite() {
			return fmt.Errorf("body %d (%s) reached non-finite state at %+v", b.ID, b.Role(), b.Position)
		}
		w.updateSleep(b, dt)
	}
	return nil
}

func (w *World) updateSleep(b *Body, dt float64) {
	if b.Sleeping {
		return
	}
	if b.Speed() < sleepSpeed && b.AngularVelocity.Magnitude() < sleepSpeed*4 {
		b.sleepTimer += dt
		if b.sleepTimer >= sleepDelay {
			b.Sleeping = true
			b.Velocity = Vec3{}
			b.AngularVelocity = Vec3{}
		}
		return
	}
	b.sleepTimer = 0
}

func (w *World) resolveCollisions() {
	for i, a := range w.bodies {
		if a.Shape != ShapeSphere || a.Static {
			continue
		}
		for j, b := range w.bodies {
			if i == j {
				continue
			}
			switch b.Shape {
			case ShapePlane:
				w.collideSpherePlane(a, b)
			case ShapeBox:
				w.collideSphereBox(a, b)
			case ShapeSphere:
				// Resolve each sphere pair once.
				if j > i {
					w.collideSpheres(a, b)
				}
			}
		}
	}
}

func (w *World) report(a, b *Body, speed float64) {
	if w.onCollision == nil {
		return
	}
	w.onCollision(Collision{
		RoleA: a.Role(),
		RoleB: b.Role(),
		BodyA: a,
		BodyB: b,
		Speed: speed,
	})
}

func (w *World) collideSpherePlane(sphere, plane *Body) {
	pen := plane.Position.Y - (sphere.Position.Y - sphere.Radius)
	if pen <= 0 {
		return
	}
	contact := w.ContactFor(sphere.Material, plane.Material)
	impactSpeed := math.Abs(sphere.Velocity.Y)

	sphere.Position.Y += pen
	if sphere.Velocity.Y < 0 {
		sphere.Velocity.Y = -sphere.Velocity.Y * contact.Restitution
		// Kill tiny bounces so the ball settles instead of jittering.
		if sphere.Velocity.Y < 0.08 {
			sphere.Velocity.Y = 0
		}
	}

	// Rolling friction on the horizontal velocity while in contact.
	damp := 1.0 - contact.Friction*0.08
	if damp < 0 {
		damp = 0
	}
	sphere.Velocity.X *= damp
	sphere.Velocity.Z *= damp

	// Roll angular velocity follows the horizontal motion.
	sphere.AngularVelocity = Vec3{
		X: sphere.Velocity.Z / sphere.Radius,
		Z: -sphere.Velocity.X / sphere.Radius,
	}

	if impactSpeed > 0.2 {
		w.report(sphere, plane, impactSpeed)
	}
}

// closestPointInBox clamps p to the box volume.
func closestPointInBox(p, minC, maxC Vec3) Vec3 {
	return Vec3{
		X: math.Min(math.Max(p.X, minC.X), maxC.X),
		Y: math.Min(math.Max(p.Y, minC.Y), maxC.Y),
		Z: math.Min(math.Max(p.Z, minC.Z), maxC.Z),
	}
}

func (w *World) collideSphereBox(sphere, box *Body) {
	closest := closestPointInBox(sphere.Position, box.Min, box.Max)
	delta := sphere.Position.Minus(closest)
	distSq := delta.MagnitudeSquared()
	if distSq >= sphere.Radius*sphere.Radius {
		return
	}

	speed := sphere.Speed()
	if box.Sensor {
		// Overlap only; hazard zones apply no impulse.
		w.report(sphere, box, speed)
		return
	}

	dist := math.Sqrt(distSq)
	var normal Vec3
	if dist > 1e-9 {
		normal = delta.Times(1.0 / dist)
	} else {
		// Sphere center on or inside the box; exit through the nearest face.
		pens := [6]float64{
			sphere.Position.X - box.Min.X, box.Max.X - sphere.Position.X,
			sphere.Position.Y - box.Min.Y, box.Max.Y - sphere.Position.Y,
			sphere.Position.Z - box.Min.Z, box.Max.Z - sphere.Position.Z,
		}
		normals := [6]Vec3{{X: -1}, {X: 1}, {Y: -1}, {Y: 1}, {Z: -1}, {Z: 1}}
		best := 0
		for i := 1; i < len(pens); i++ {
			if pens[i] < pens[best] {
				best = i
			}
		}
		normal = normals[best]
		dist = -pens[best]
	}

	contact := w.ContactFor(sphere.Material, box.Material)
	sphere.Position = sphere.Position.Plus(normal.Times(sphere.Radius - dist))

	vn := sphere.Velocity.Dot(normal)
	if vn < 0 {
		// Reflect the normal component, damp the tangential one.
		normalPart := normal.Times(vn)
		tangent := sphere.Velocity.Minus(normalPart)
		sphere.Velocity = tangent.Times(1.0 - contact.Friction).
			Minus(normalPart.Times(contact.Restitution))
		sphere.Wake()
	}

	w.report(sphere, box, math.Abs(vn))
}

func (w *World) collideSpheres(a, b *Body) {
	delta := b.Position.Minus(a.Position)
	dist := delta.Magnitude()
	minDist := a.Radius + b.Radius
	if dist >= minDist || dist == 0 {
		return
	}

	normal := delta.Times(1.0 / dist)
	overlap := minDist - dist
	a.Position = a.Position.Minus(normal.Times(overlap * 0.5))
	b.Position = b.Position.Plus(normal.Times(overlap * 0.5))

	relVel := b.Velocity.Minus(a.Velocity)
	vn := relVel.Dot(normal)
	if vn >= 0 {
		return
	}

	contact := w.ContactFor(a.Material, b.Material)
	invMassSum := a.invMass() + b.invMass()
	if invMassSum == 0 {
		return
	}
	j := -(1.0 + contact.Restitution) * vn / invMassSum
	impulse := normal.Times(j)
	a.Velocity = a.Velocity.Minus(impulse.Times(a.invMass()))
	b.Velocity = b.Velocity.Plus(impulse.Times(b.invMass()))
	a.Wake()
	b.Wake()

	w.report(a, b, math.Abs(vn))
}
