package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/deadraisers/riri/internal/biz/domain"
	"github.com/deadraisers/riri/internal/biz/usecase"
)

const (
	defaultTurnLimit = 10
	maxTurnLimit     = 100
)

// Server is the local admin HTTP API
type Server struct {
	command  *usecase.CommandUsecase
	activity *usecase.ActivityStore
	addr     string
	logger   *zap.Logger
}

// StatsResponse is the body of GET /api/chats/:id/stats
type StatsResponse struct {
	ChatID     string `json:"chat_id"`
	ChatTurns  int64  `json:"chat_turns"`
	TotalTurns int64  `json:"total_turns"`
	Sleeping   bool   `json:"sleeping"`
}

// TurnResponse is one stored turn
type TurnResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// ActivityRequest is the body of PUT /api/chats/:id/activity
type ActivityRequest struct {
	Sleeping *bool `json:"sleeping"`
}

// NewServer creates a new API server
func NewServer(command *usecase.CommandUsecase, activity *usecase.ActivityStore, addr string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		command:  command,
		activity: activity,
		addr:     addr,
		logger:   logger.Named("api"),
	}
}

// Router builds the gin engine with all routes
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	chats := router.Group("/api/chats/:id")
	chats.GET("/stats", s.handleStats)
	chats.GET("/turns", s.handleTurns)
	chats.DELETE("/turns", s.handleClear)
	chats.GET("/activity", s.handleGetActivity)
	chats.PUT("/activity", s.handlePutActivity)

	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("listening", zap.String("addr", s.addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.command.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toStatsResponse(stats))
}

func (s *Server) handleTurns(c *gin.Context) {
	limit := defaultTurnLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxTurnLimit)
	}

	turns, err := s.command.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		s.fail(c, err)
		return
	}

	out := make([]TurnResponse, 0, len(turns))
	for _, t := range turns {
		out = append(out, TurnResponse{
			ID:        t.ID,
			UserID:    t.UserID,
			Username:  t.Username,
			Message:   t.Message,
			Response:  t.Response,
			Timestamp: t.Timestamp,
		})
	}
	c.JSON(http.StatusOK, gin.H{"chat_id": c.Param("id"), "turns": out})
}

func (s *Server) handleClear(c *gin.Context) {
	chatID := c.Param("id")
	removed, err := s.command.Clear(c.Request.Context(), chatID)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.logger.Info("chat cleared", zap.String("chat_id", chatID), zap.Int64("removed", removed))
	c.JSON(http.StatusOK, gin.H{"chat_id": chatID, "removed": removed})
}

func (s *Server) handleGetActivity(c *gin.Context) {
	chatID := c.Param("id")
	c.JSON(http.StatusOK, gin.H{"chat_id": chatID, "sleeping": s.activity.IsSleeping(chatID)})
}

func (s *Server) handlePutActivity(c *gin.Context) {
	var req ActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Sleeping == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": `body must be {"sleeping": true|false}`})
		return
	}

	chatID := c.Param("id")
	s.activity.SetSleeping(chatID, *req.Sleeping)
	s.logger.Info("activity overridden", zap.String("chat_id", chatID), zap.Bool("sleeping", *req.Sleeping))
	c.JSON(http.StatusOK, gin.H{"chat_id": chatID, "sleeping": *req.Sleeping})
}

func (s *Server) fail(c *gin.Context, err error) {
	s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func toStatsResponse(st *domain.ChatStats) StatsResponse {
	return StatsResponse{
		ChatID:     st.ChatID,
		ChatTurns:  st.ChatTurns,
		TotalTurns: st.TotalTurns,
		Sleeping:   st.Sleeping,
	}
}
