package physics

import "strings"

// Named surface materials. Contact behavior is defined per material pair.
const (
	MaterialBall   = "ball"
	MaterialGround = "ground"
	MaterialWall   = "wall"
	MaterialHazard = "hazard"
)

// Material is a named surface descriptor attached to bodies.
type Material struct {
	Name string
}

// Contact holds the friction/restitution rule for one material pair.
type Contact struct {
	Friction    float64
	Restitution float64
}

// pairKey builds an order-independent lookup key for a material pair.
func pairKey(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return a + "|" + b
}

// defaultContacts wires every material pair the simulation uses with an
// explicit friction/restitution rule.
func defaultContacts() map[string]Contact {
	return map[string]Contact{
		pairKey(MaterialBall, MaterialGround): {Friction: 0.4, Restitution: 0.35},
		pairKey(MaterialBall, MaterialWall):   {Friction: 0.15, Restitution: 0.7},
		pairKey(MaterialBall, MaterialHazard): {Friction: 0.8, Restitution: 0.1},
		pairKey(MaterialBall, MaterialBall):   {Friction: 0.1, Restitution: 0.9},
	}
}

func defaultMaterials() map[string]Material {
	return map[string]Material{
		MaterialBall:   {Name: MaterialBall},
		MaterialGround: {Name: MaterialGround},
		MaterialWall:   {Name: MaterialWall},
		MaterialHazard: {Name: MaterialHazard},
	}
}
