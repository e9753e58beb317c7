package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/puttworks/putt-server-go/internal/auth"
	"github.com/puttworks/putt-server-go/internal/config"
	"github.com/puttworks/putt-server-go/internal/game"
	"github.com/puttworks/putt-server-go/internal/game/course"
	"github.com/puttworks/putt-server-go/internal/repository"
	"github.com/puttworks/putt-server-go/internal/round"
	"github.com/puttworks/putt-server-go/internal/session"
)

// PlayerStore is the account persistence the API needs.
type PlayerStore interface {
	Create(ctx context.Context, name, passwordHash string) (*repository.Player, error)
	GetByName(ctx context.Context, name string) (*repository.Player, error)
}

// RoundHistory reads completed rounds.
type RoundHistory interface {
	ListByPlayer(ctx context.Context, playerID string, limit int) ([]repository.RoundRecord, error)
	Scorecard(ctx context.Context, roundID string) ([]game.HoleScore, error)
	Leaderboard(ctx context.Context, courseID string, limit int) ([]repository.LeaderboardEntry, error)
}

// SnapshotReader loads cached live-round snapshots.
type SnapshotReader interface {
	Load(ctx context.Context, roundID string) (game.Snapshot, error)
}

// Server wires the HTTP surface: auth, course catalog, round lifecycle, and
// read endpoints over persisted rounds.
type Server struct {
	cfg      *config.Config
	logger   *zap.Logger
	players  PlayerStore
	history  RoundHistory
	snaps    SnapshotReader
	rounds   *round.Manager
	sessions *session.Manager
	issuer   *auth.TokenIssuer
	courses  map[string]*course.Course
	gateway  http.Handler
}

// NewServer builds the API server. history and snaps may be nil when the
// server runs without persistence.
func NewServer(
	cfg *config.Config,
	players PlayerStore,
	history RoundHistory,
	snaps SnapshotReader,
	rounds *round.Manager,
	sessions *session.Manager,
	issuer *auth.TokenIssuer,
	courses []*course.Course,
	gateway http.Handler,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	catalog := make(map[string]*course.Course, len(courses))
	for _, c := range courses {
		catalog[c.ID] = c
	}
	return &Server{
		cfg:      cfg,
		logger:   logger,
		players:  players,
		history:  history,
		snaps:    snaps,
		rounds:   rounds,
		sessions: sessions,
		issuer:   issuer,
		courses:  catalog,
		gateway:  gateway,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", s.handleHealth)
	if s.gateway != nil {
		r.GET("/ws", gin.WrapH(s.gateway))
	}

	v1 := r.Group("/api/v1")
	{
		v1.POST("/auth/register", s.handleRegister)
		v1.POST("/auth/login", s.handleLogin)

		v1.GET("/courses", s.handleListCourses)
		v1.GET("/courses/:id", s.handleGetCourse)
		v1.GET("/leaderboard/:courseId", s.handleLeaderboard)

		authed := v1.Group("", s.requireAuth())
		{
			authed.POST("/rounds", s.handleCreateRound)
			authed.GET("/rounds/history", s.handleRoundHistory)
			authed.GET("/rounds/:id", s.handleGetRound)
			authed.DELETE("/rounds/:id", s.handleCloseRound)
		}
	}
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == "/healthz" {
			return
		}
		s.logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

const ctxPlayerID = "playerID"
const ctxPlayerName = "playerName"

// requireAuth validates the bearer token and stashes the player identity on
// the request context.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := s.issuer.Verify(header[len(prefix):])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ctxPlayerID, claims.PlayerID)
		c.Set(ctxPlayerName, claims.Name)
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"rounds": s.rounds.Count(),
	})
}

type courseSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Holes int    `json:"holes"`
	Par   int    `json:"par"`
}

func (s *Server) handleListCourses(c *gin.Context) {
	out := make([]courseSummary, 0, len(s.courses))
	for _, crs := range s.courses {
		out = append(out, summarize(crs))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	c.JSON(http.StatusOK, gin.H{"courses": out})
}

func (s *Server) handleGetCourse(c *gin.Context) {
	crs, ok := s.courses[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
		return
	}
	c.JSON(http.StatusOK, crs)
}

func summarize(crs *course.Course) courseSummary {
	par := 0
	for _, h := range crs.Holes {
		par += h.Par
	}
	return courseSummary{ID: crs.ID, Name: crs.Name, Holes: len(crs.Holes), Par: par}
}
