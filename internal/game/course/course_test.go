package course

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puttworks/putt-server-go/internal/game/physics"
)

func TestDefaultCourseIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Len(t, c.Holes, 9)
	assert.Greater(t, c.TotalPar(), 9)

	for _, h := range c.Holes {
		assert.NotEmpty(t, h.Walls, "hole %d has no walls", h.Index)
		assert.True(t, h.Bounds.Contains(h.Start))
		assert.True(t, h.Bounds.Contains(h.Cup))
	}
}

func TestValidateRejectsBadHoles(t *testing.T) {
	base := func() *Course {
		c := Default()
		return c
	}

	t.Run("par below one", func(t *testing.T) {
		c := base()
		c.Holes[2].Par = 0
		var verr *ValidationError
		err := c.Validate()
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, 2, verr.Hole)
		assert.Equal(t, "par", verr.Field)
	})

	t.Run("cup outside bounds", func(t *testing.T) {
		c := base()
		c.Holes[0].Cup = physics.NewVec3(100, 0, 0)
		var verr *ValidationError
		require.ErrorAs(t, c.Validate(), &verr)
		assert.Equal(t, "cup", verr.Field)
	})

	t.Run("holes out of order", func(t *testing.T) {
		c := base()
		c.Holes[1].Index = 5
		var verr *ValidationError
		require.ErrorAs(t, c.Validate(), &verr)
		assert.Equal(t, "index", verr.Field)
	})

	t.Run("no holes", func(t *testing.T) {
		c := &Course{ID: "empty"}
		assert.Error(t, c.Validate())
	})

	t.Run("missing id", func(t *testing.T) {
		c := base()
		c.ID = ""
		assert.Error(t, c.Validate())
	})
}

func TestParseManifest(t *testing.T) {
	doc := []byte(`
courses:
  - id: test-course
    name: Test Course
    holes:
      - index: 0
        name: First
        par: 2
        start: {x: 0, y: 0.025, z: 2}
        cup: {x: 0, y: 0, z: -2}
        cup_radius: 0.11
        surface_level: 0
        bounds:
          min: {x: -1, y: 0, z: -3}
          max: {x: 1, y: 1, z: 3}
        walls:
          - min: {x: -1.1, y: 0, z: -3.1}
            max: {x: 1.1, y: 0.3, z: -3}
        hazards:
          - kind: water
            zone:
              min: {x: -0.5, y: -0.1, z: -1}
              max: {x: 0.5, y: 0.3, z: 0}
`)

	courses, err := Parse(doc)
	require.NoError(t, err)
	require.Len(t, courses, 1)

	c := courses[0]
	assert.Equal(t, "test-course", c.ID)
	require.Len(t, c.Holes, 1)
	h := c.Holes[0]
	assert.Equal(t, 2, h.Par)
	assert.Equal(t, physics.NewVec3(0, 0.025, 2), h.Start)
	assert.Equal(t, 0.11, h.CupRadius)
	require.Len(t, h.Hazards, 1)
	assert.Equal(t, HazardWater, h.Hazards[0].Kind)
}

func TestParseRejectsMalformedManifests(t *testing.T) {
	t.Run("not yaml", func(t *testing.T) {
		_, err := Parse([]byte("{{{"))
		var perr *ParseError
		assert.ErrorAs(t, err, &perr)
	})

	t.Run("empty document", func(t *testing.T) {
		_, err := Parse([]byte("courses: []"))
		var perr *ParseError
		assert.ErrorAs(t, err, &perr)
	})

	t.Run("invalid course", func(t *testing.T) {
		_, err := Parse([]byte(`
courses:
  - id: bad
    holes:
      - index: 0
        par: 0
        cup_radius: 0.1
        bounds:
          min: {x: -1, z: -1}
          max: {x: 1, y: 1, z: 1}
`))
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}

func TestLoadFileMissingPath(t *testing.T) {
	_, err := LoadFile("/nonexistent/course.yaml")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "/nonexistent/course.yaml", perr.Path)
	assert.True(t, errors.Is(err, perr.Err))
}

type fakeSink struct {
	added   []*physics.Body
	removed []*physics.Body
}

func (f *fakeSink) AddBody(b *physics.Body)    { f.added = append(f.added, b) }
func (f *fakeSink) RemoveBody(b *physics.Body) { f.removed = append(f.removed, b) }

func TestBuilderOwnsBodiesExactlyOnce(t *testing.T) {
	sink := &fakeSink{}
	b := NewBuilder(sink, nil)
	hole := Default().Holes[3] // has a water hazard

	b.BuildHole(hole)
	// ground + 4 walls + 1 hazard
	assert.Equal(t, 6, b.BuiltCount())
	assert.Len(t, sink.added, 6)

	b.Teardown()
	assert.Equal(t, 0, b.BuiltCount())
	assert.Len(t, sink.removed, 6, "every body removed exactly once")

	b.Teardown()
	assert.Len(t, sink.removed, 6, "second teardown removes nothing")
}

func TestBuilderRebuildTearsDownFirst(t *testing.T) {
	sink := &fakeSink{}
	b := NewBuilder(sink, nil)
	holes := Default().Holes

	b.BuildHole(holes[0])
	first := b.BuiltCount()
	b.BuildHole(holes[1])

	assert.Len(t, sink.removed, first, "previous hole torn down before rebuild")
	assert.Equal(t, len(sink.added)-len(sink.removed), b.BuiltCount())
}

func TestBuilderBallIsNotTrackedByTeardown(t *testing.T) {
	sink := &fakeSink{}
	b := NewBuilder(sink, nil)
	b.BuildHole(Default().Holes[0])

	ball := b.NewBall(physics.NewVec3(0, 0.025, 2.5))
	require.NotNil(t, ball)
	assert.Equal(t, "ball", ball.Role())

	b.Teardown()
	for _, r := range sink.removed {
		assert.NotSame(t, ball, r, "ball must survive hole teardown")
	}
}
