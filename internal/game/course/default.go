package course

import "github.com/puttworks/putt-server-go/internal/game/physics"

// Standard cup and surface constants shared by the built-in course.
const (
	defaultCupRadius = 0.11
	wallThickness    = 0.12
	wallHeight       = 0.35
)

// boundaryWalls builds the four perimeter wall boxes for a fairway.
func boundaryWalls(b Box, surface float64) []Box {
	top := surface + wallHeight
	return []Box{
		{ // north (min Z)
			Min: physics.NewVec3(b.Min.X-wallThickness, surface, b.Min.Z-wallThickness),
			Max: physics.NewVec3(b.Max.X+wallThickness, top, b.Min.Z),
		},
		{ // south (max Z)
			Min: physics.NewVec3(b.Min.X-wallThickness, surface, b.Max.Z),
			Max: physics.NewVec3(b.Max.X+wallThickness, top, b.Max.Z+wallThickness),
		},
		{ // west (min X)
			Min: physics.NewVec3(b.Min.X-wallThickness, surface, b.Min.Z),
			Max: physics.NewVec3(b.Min.X, top, b.Max.Z),
		},
		{ // east (max X)
			Min: physics.NewVec3(b.Max.X, surface, b.Min.Z),
			Max: physics.NewVec3(b.Max.X+wallThickness, top, b.Max.Z),
		},
	}
}

func fairway(index, par int, name string, width, length float64, startZ, cupX, cupZ float64, hazards ...Hazard) Hole {
	bounds := Box{
		Min: physics.NewVec3(-width/2, 0, -length/2),
		Max: physics.NewVec3(width/2, 1, length/2),
	}
	return Hole{
		Index:        index,
		Name:         name,
		Par:          par,
		Start:        physics.NewVec3(0, 0.025, startZ),
		Cup:          physics.NewVec3(cupX, 0, cupZ),
		CupRadius:    defaultCupRadius,
		SurfaceLevel: 0,
		Bounds:       bounds,
		Walls:        boundaryWalls(bounds, 0),
		Hazards:      hazards,
	}
}

// Default returns the built-in nine-hole course used when no manifest is
// configured.
func Default() *Course {
	return &Course{
		ID:   "classic-nine",
		Name: "Classic Nine",
		Holes: []Hole{
			fairway(0, 2, "The Opener", 2.0, 6.0, 2.5, 0, -2.5),
			fairway(1, 2, "Leftward Lean", 2.4, 7.0, 3.0, -0.8, -3.0),
			fairway(2, 3, "The Long Walk", 2.0, 10.0, 4.5, 0, -4.5),
			fairway(3, 3, "Puddle Jump", 2.6, 8.0, 3.5, 0.6, -3.5,
				Hazard{Kind: HazardWater, Zone: Box{
					Min: physics.NewVec3(-1.3, -0.1, -1.0),
					Max: physics.NewVec3(0.0, 0.25, 1.0),
				}},
			),
			fairway(4, 2, "Narrows", 1.2, 7.0, 3.0, 0, -3.0),
			fairway(5, 3, "Beach Day", 2.8, 9.0, 4.0, -1.0, -4.0,
				Hazard{Kind: HazardSand, Zone: Box{
					Min: physics.NewVec3(0.2, -0.1, -2.5),
					Max: physics.NewVec3(1.4, 0.25, -0.5),
				}},
			),
			fairway(6, 2, "Short Fuse", 1.8, 5.0, 2.0, 0.5, -2.0),
			fairway(7, 3, "Double Trouble", 3.0, 9.0, 4.0, 1.1, -4.0,
				Hazard{Kind: HazardWater, Zone: Box{
					Min: physics.NewVec3(-1.5, -0.1, -2.0),
					Max: physics.NewVec3(-0.2, 0.25, 0.0),
				}},
				Hazard{Kind: HazardSand, Zone: Box{
					Min: physics.NewVec3(0.2, -0.1, 1.0),
					Max: physics.NewVec3(1.5, 0.25, 2.6),
				}},
			),
			fairway(8, 3, "The Closer", 2.2, 11.0, 5.0, 0, -5.0),
		},
	}
}
