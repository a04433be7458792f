package api

import (
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/banshee-data/plank.report/internal/frames"
	"github.com/banshee-data/plank.report/internal/monitoring"
)

// frameSocket accepts one frame per text message and replies with the
// classification of each.
func (s *Server) frameSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameBytes)

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				monitoring.Logf("frame socket closed: %v", err)
			}
			return
		}
		if err := conn.WriteJSON(s.socketReply(mt, msg)); err != nil {
			monitoring.Logf("frame socket write: %v", err)
			return
		}
	}
}

func (s *Server) socketReply(mt int, msg []byte) gin.H {
	if mt != websocket.TextMessage {
		return gin.H{"error": "unsupported message type"}
	}
	if s.session.Status().Stopped {
		return gin.H{"error": errStopped.Error()}
	}
	f, err := frames.Decode(msg)
	if err != nil {
		monitoring.S().Warnf("rejected frame: %v", err)
		return gin.H{"error": fmt.Sprintf("invalid frame: %v", err)}
	}
	return gin.H{"pose": NewPoseView(s.session.HandleWireFrame(f))}
}

// streamEvents sends the current status as a "status" event, then one
// "transition" event per tracker edge until the client leaves or the
// session stops.
func (s *Server) streamEvents(c *gin.Context) {
	tracker := s.session.Tracker()
	id, events := tracker.Subscribe()
	defer tracker.Unsubscribe(id)

	st := s.session.Status()
	c.SSEvent("status", newStatusView(st))
	c.Writer.Flush()
	if st.Stopped {
		return
	}

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("transition", newTransitionView(ev))
			return true
		}
	})
}
