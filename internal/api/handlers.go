package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/banshee-data/plank.report/internal/frames"
	"github.com/banshee-data/plank.report/internal/httputil"
	"github.com/banshee-data/plank.report/internal/monitoring"
	"github.com/banshee-data/plank.report/internal/version"
)

var errStopped = errors.New("session stopped")

func (s *Server) ping(c *gin.Context) {
	httputil.OK(c, gin.H{"message": "pong", "version": version.Version})
}

func (s *Server) showStatus(c *gin.Context) {
	httputil.OK(c, newStatusView(s.session.Status()))
}

func (s *Server) resetDuration(c *gin.Context) {
	if s.session.Status().Stopped {
		httputil.ServiceUnavailable(c, errStopped.Error())
		return
	}
	s.session.ResetDuration()
	httputil.OK(c, newStatusView(s.session.Status()))
}

func (s *Server) postFrame(c *gin.Context) {
	if s.session.Status().Stopped {
		httputil.ServiceUnavailable(c, errStopped.Error())
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxFrameBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.JSONError(c, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		httputil.BadRequest(c, fmt.Sprintf("read frame: %v", err))
		return
	}
	f, err := frames.Decode(body)
	if err != nil {
		monitoring.S().Warnf("rejected frame: %v", err)
		httputil.BadRequest(c, fmt.Sprintf("invalid frame: %v", err))
		return
	}
	p := s.session.HandleWireFrame(f)
	httputil.OK(c, gin.H{"pose": NewPoseView(p)})
}
