package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/supplychain/internal/agent"
	"github.com/agenthands/supplychain/internal/auth"
	"github.com/agenthands/supplychain/internal/driver"
	"github.com/agenthands/supplychain/internal/llm"
	"github.com/agenthands/supplychain/internal/logger"
	"github.com/agenthands/supplychain/internal/tools"
)

type Asker interface {
	Ask(ctx context.Context, question string) (*agent.Answer, error)
}

type ToolCaller interface {
	Call(ctx context.Context, name string, args map[string]any) ([]driver.Record, error)
}

type Server struct {
	Agent Asker
	Tools ToolCaller

	log *logger.Logger
}

func NewServer(a Asker, t ToolCaller, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{Agent: a, Tools: t, log: log.With("component", "Server")}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.Health)
	r.POST("/ask", s.Ask)
	r.POST("/tools/:name", s.CallTool)

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.log.Info("Request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
		)
	}
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type AskRequest struct {
	Question          string `json:"question" binding:"required"`
	IncludeTranscript bool   `json:"include_transcript"`
}

func (s *Server) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: question is required"})
		return
	}

	answer, err := s.Agent.Ask(c.Request.Context(), req.Question)
	if err != nil {
		s.fail(c, "Failed to answer question", err)
		return
	}
	if !req.IncludeTranscript {
		answer.Transcript = nil
	}
	c.JSON(http.StatusOK, answer)
}

// CallTool runs a tool directly with the JSON body as its arguments. An
// empty body means no arguments.
func (s *Server) CallTool(c *gin.Context) {
	name := c.Param("name")
	args := map[string]any{}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if strings.TrimSpace(string(body)) != "" {
		decoded, ok := tools.DecodeArguments(string(body))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: body must be a JSON object"})
			return
		}
		args = decoded
	}

	records, err := s.Tools.Call(c.Request.Context(), name, args)
	if err != nil {
		s.fail(c, "Failed to run tool", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tool": name, "results": records})
}

func (s *Server) fail(c *gin.Context, msg string, err error) {
	status := statusFor(err)
	if status < http.StatusInternalServerError {
		s.log.Warn(msg, "error", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	// Upstream failures can carry identity-provider responses; keep them in the log.
	s.log.Error(msg, "error", err)
	c.JSON(status, gin.H{"error": msg})
}

func statusFor(err error) int {
	var (
		dispatchErr *tools.DispatchError
		authErr     *auth.AuthenticationError
		queryErr    *driver.QueryError
		apiErr      *llm.ChatAPIError
	)
	switch {
	case errors.Is(err, tools.ErrUnknownTool):
		return http.StatusNotFound
	case errors.As(err, &dispatchErr):
		return http.StatusBadRequest
	case errors.As(err, &authErr), errors.As(err, &queryErr), errors.As(err, &apiErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
