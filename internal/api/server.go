// Package api exposes a running session over HTTP (gin), WebSocket and
// server-sent events, and streams hold transitions over gRPC.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/banshee-data/plank.report/internal/monitoring"
	"github.com/banshee-data/plank.report/internal/session"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// maxFrameBytes bounds a single frame body or websocket message.
const maxFrameBytes = 1 << 20

// Server serves one session.
type Server struct {
	session  *session.Session
	upgrader websocket.Upgrader
}

func NewServer(s *session.Session) *Server {
	return &Server{
		session: s,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(c.Writer.Status()), c.Request.Method,
			colorCyan, c.Request.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	}
}

// Router builds the gin engine with every route attached.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), LoggingMiddleware())
	r.HandleMethodNotAllowed = true

	r.GET("/api/ping", s.ping)
	r.GET("/api/status", s.showStatus)
	r.POST("/api/reset", s.resetDuration)
	r.POST("/api/frames", s.postFrame)
	r.GET("/api/events", s.streamEvents)
	r.GET("/ws/frames", s.frameSocket)
	return r
}
