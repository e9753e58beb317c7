package physics

// ShapeKind enumerates the collision shapes the world knows how to resolve.
type ShapeKind int

const (
	ShapeSphere ShapeKind = iota
	ShapePlane
	ShapeBox
)

var shapeNames = map[ShapeKind]string{
	ShapeSphere: "SPHERE",
	ShapePlane:  "PLANE",
	ShapeBox:    "BOX",
}

func (k ShapeKind) String() string {
	if name, ok := shapeNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// Body is a rigid body owned by the world once added. Positions and
// velocities are mutated only by the world's integration and by the stepper's
// lifecycle methods.
type Body struct {
	ID    uint64
	Shape ShapeKind

	// Sphere
	Radius float64
	// Box (axis-aligned)
	Min, Max Vec3
	// Plane (horizontal, at Position.Y)

	Position        Vec3
	Velocity        Vec3
	AngularVelocity Vec3
	Force           Vec3
	Torque          Vec3

	Mass     float64
	Material string
	Static   bool
	// Sensor bodies report overlap through the collision callback but apply
	// no impulse response (hazard zones).
	Sensor   bool
	Sleeping bool

	// Tags identify the body's game role (ball, ground, wall, hazard) and
	// carry free-form userData for higher layers.
	Tags map[string]string

	sleepTimer float64
}

// NewSphere creates a dynamic sphere body.
func NewSphere(radius, mass float64, material string, pos Vec3) *Body {
	return &Body{
		Shape:    ShapeSphere,
		Radius:   radius,
		Mass:     mass,
		Material: material,
		Position: pos,
		Tags:     make(map[string]string),
	}
}

// NewPlane creates a static horizontal plane at the given height.
func NewPlane(height float64, material string) *Body {
	return &Body{
		Shape:    ShapePlane,
		Material: material,
		Position: Vec3{Y: height},
		Static:   true,
		Tags:     make(map[string]string),
	}
}

// NewBox creates a static axis-aligned box from min/max corners.
func NewBox(minCorner, maxCorner Vec3, material string) *Body {
	center := minCorner.Plus(maxCorner).Times(0.5)
	return &Body{
		Shape:    ShapeBox,
		Min:      minCorner,
		Max:      maxCorner,
		Position: center,
		Material: material,
		Static:   true,
		Tags:     make(map[string]string),
	}
}

// Role returns the body's game role tag, or "" when untagged.
func (b *Body) Role() string {
	return b.Tags["role"]
}

// SetRole tags the body's game role and returns the body for chaining.
func (b *Body) SetRole(role string) *Body {
	b.Tags["role"] = role
	return b
}

func (b *Body) invMass() float64 {
	if b.Static || b.Mass == 0 {
		return 0
	}
	return 1.0 / b.Mass
}

// ApplyImpulse changes velocity by impulse/mass and wakes the body.
func (b *Body) ApplyImpulse(impulse Vec3) {
	if b.Static {
		return
	}
	b.Velocity = b.Velocity.Plus(impulse.Times(b.invMass()))
	b.Wake()
}

// Wake clears the sleep state so the next integration step moves the body.
func (b *Body) Wake() {
	b.Sleeping = false
	b.sleepTimer = 0
}

// Freeze zeroes velocity, angular velocity, force and torque, and wakes the
// body. Used both on removal and when recovering from a simulation fault, so
// a body never retains stale forces.
func (b *Body) Freeze() {
	b.Velocity = Vec3{}
	b.AngularVelocity = Vec3{}
	b.Force = Vec3{}
	b.Torque = Vec3{}
	b.Wake()
}

// Speed is the magnitude of linear velocity.
func (b *Body) Speed() float64 {
	return b.Velocity.Magnitude()
}
