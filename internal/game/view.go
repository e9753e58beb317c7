package game

import (
	"github.com/puttworks/putt-server-go/internal/game/physics"
)

// BallView is the client-facing ball state.
type BallView struct {
	InPlay   bool         `json:"inPlay"`
	Position physics.Vec3 `json:"position"`
	Velocity physics.Vec3 `json:"velocity"`
	AtRest   bool         `json:"atRest"`
}

// CameraView is the client-facing camera transform.
type CameraView struct {
	Mode          string       `json:"mode"`
	Transitioning bool         `json:"transitioning"`
	Position      physics.Vec3 `json:"position"`
	Target        physics.Vec3 `json:"target"`
	Up            physics.Vec3 `json:"up"`
	FOV           float64      `json:"fov"`
}

// Snapshot is the full view of a round streamed to rendering clients. It
// carries values only, never references into live engine state.
type Snapshot struct {
	Frame        uint64      `json:"frame"`
	State        string      `json:"state"`
	Paused       bool        `json:"paused"`
	Hole         int         `json:"hole"`
	Par          int         `json:"par"`
	HoleName     string      `json:"holeName"`
	TotalHoles   int         `json:"totalHoles"`
	Ball         BallView    `json:"ball"`
	Camera       CameraView  `json:"camera"`
	Strokes      int         `json:"strokes"`
	TotalStrokes int         `json:"totalStrokes"`
	Scorecard    []HoleScore `json:"scorecard"`
}

// Snapshot produces the current view of the round.
func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{
		Frame:        e.frame,
		State:        e.prog.State().String(),
		Paused:       e.paused,
		Hole:         e.prog.HoleIndex(),
		TotalHoles:   e.HoleCount(),
		Strokes:      e.score.CurrentHoleStrokes(),
		TotalStrokes: e.score.TotalStrokes(),
		Scorecard:    e.score.Scorecard(),
	}

	if hole, ok := e.Hole(e.prog.HoleIndex()); ok {
		snap.Par = hole.Par
		snap.HoleName = hole.Name
	}

	if e.ball != nil {
		snap.Ball = BallView{
			InPlay:   true,
			Position: e.ball.Position,
			Velocity: e.ball.Velocity,
			AtRest:   e.BallAtRest(),
		}
	}

	transform := e.cam.Transform()
	snap.Camera = CameraView{
		Mode:          string(e.cam.Mode()),
		Transitioning: e.cam.Transitioning(),
		Position:      transform.Position,
		Target:        transform.Target,
		Up:            transform.Up,
		FOV:           transform.FOV,
	}
	return snap
}
