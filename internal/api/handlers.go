package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/puttworks/putt-server-go/internal/auth"
	"github.com/puttworks/putt-server-go/internal/repository"
	"github.com/puttworks/putt-server-go/internal/round"
	"github.com/puttworks/putt-server-go/internal/store"
)

type credentialsRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=32"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if s.players == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "accounts are not enabled"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("password hash failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	player, err := s.players.Create(c.Request.Context(), req.Name, hash)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "name already taken"})
			return
		}
		s.logger.Error("player create failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	token, err := s.issuer.Issue(player.ID, player.Name)
	if err != nil {
		s.logger.Error("token issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"playerId": player.ID,
		"name":     player.Name,
		"token":    token,
	})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if s.players == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "accounts are not enabled"})
		return
	}

	player, err := s.players.GetByName(c.Request.Context(), req.Name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		s.logger.Error("player lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if err := auth.CheckPassword(player.PasswordHash, req.Password); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := s.issuer.Issue(player.ID, player.Name)
	if err != nil {
		s.logger.Error("token issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	s.sessions.Create(player.ID, player.Name)
	c.JSON(http.StatusOK, gin.H{
		"playerId": player.ID,
		"name":     player.Name,
		"token":    token,
	})
}

type createRoundRequest struct {
	CourseID string `json:"courseId" binding:"required"`
}

func (s *Server) handleCreateRound(c *gin.Context) {
	var req createRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	crs, ok := s.courses[req.CourseID]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
		return
	}

	playerID := c.GetString(ctxPlayerID)
	r, err := s.rounds.CreateRound(playerID, crs)
	if err != nil {
		if errors.Is(err, round.ErrPlayerBusy) {
			c.JSON(http.StatusConflict, gin.H{"error": "finish or quit your current round first"})
			return
		}
		s.logger.Error("round create failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if sess, ok := s.sessions.ByPlayer(playerID); ok {
		s.sessions.AttachRound(sess.ID, r.ID)
	}
	c.JSON(http.StatusCreated, gin.H{
		"roundId":  r.ID,
		"courseId": crs.ID,
	})
}

// handleGetRound serves the latest cached snapshot of a live round; the
// WebSocket stream is the hot path, this is the reconnect path.
func (s *Server) handleGetRound(c *gin.Context) {
	id := c.Param("id")
	r, ok := s.rounds.Round(id)
	if !ok || r.PlayerID != c.GetString(ctxPlayerID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "round not found"})
		return
	}
	if s.snaps == nil {
		c.JSON(http.StatusOK, gin.H{"roundId": r.ID, "courseId": r.CourseID})
		return
	}
	snap, err := s.snaps.Load(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"roundId": r.ID, "courseId": r.CourseID})
			return
		}
		s.logger.Error("snapshot load failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"roundId":  r.ID,
		"courseId": r.CourseID,
		"state":    snap,
	})
}

func (s *Server) handleCloseRound(c *gin.Context) {
	id := c.Param("id")
	r, ok := s.rounds.Round(id)
	if !ok || r.PlayerID != c.GetString(ctxPlayerID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "round not found"})
		return
	}
	s.rounds.CloseRound(id)
	c.JSON(http.StatusOK, gin.H{"closed": id})
}

func (s *Server) handleRoundHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusOK, gin.H{"rounds": []repository.RoundRecord{}})
		return
	}
	recs, err := s.history.ListByPlayer(c.Request.Context(), c.GetString(ctxPlayerID), 20)
	if err != nil {
		s.logger.Error("round history failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if recs == nil {
		recs = []repository.RoundRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"rounds": recs})
}

func (s *Server) handleLeaderboard(c *gin.Context) {
	courseID := c.Param("courseId")
	if _, ok := s.courses[courseID]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
		return
	}
	if s.history == nil {
		c.JSON(http.StatusOK, gin.H{"entries": []repository.LeaderboardEntry{}})
		return
	}
	entries, err := s.history.Leaderboard(c.Request.Context(), courseID, 10)
	if err != nil {
		s.logger.Error("leaderboard failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if entries == nil {
		entries = []repository.LeaderboardEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
