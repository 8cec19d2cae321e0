package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mrlokans/catalog/internal/auth"
	"github.com/mrlokans/catalog/internal/comments"
	"github.com/mrlokans/catalog/internal/logger"
)

const (
	writeWait      = 10 * time.Second    // time allowed to write a message
	pongWait       = 60 * time.Second    // time allowed to read the next pong
	pingPeriod     = (pongWait * 9) / 10 // must be less than pongWait
	maxMessageSize = 512                 // clients only send control frames
	sendBuffer     = 8
)

// Live message types.
const (
	LiveCount    = "count"
	LiveComments = "comments"
	LiveError    = "error"
)

// LiveMessage is one frame pushed to a live stream.
type LiveMessage struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// LiveController streams wishlist counts and comment threads over
// websockets.
type LiveController struct {
	enrollment EnrollmentService
	comments   CommentService
	upgrader   websocket.Upgrader
	log        *logger.Logger
}

// NewLiveController creates a LiveController. With no allowed origins only
// same-origin upgrades are accepted.
func NewLiveController(enrollment EnrollmentService, comments CommentService, allowedOrigins []string, log *logger.Logger) *LiveController {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(allowedOrigins) > 0 {
		allowed := make(map[string]bool, len(allowedOrigins))
		for _, o := range allowedOrigins {
			allowed[o] = true
		}
		upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed[origin]
		}
	}
	return &LiveController{enrollment: enrollment, comments: comments, upgrader: upgrader, log: log}
}

// liveConn is one upgraded connection. Only writePump writes to conn.
type liveConn struct {
	conn *websocket.Conn
	send chan LiveMessage
	log  *logger.Logger
}

// push queues msg for the writer. It gives up once ctx is done.
func (lc *liveConn) push(ctx context.Context, msg LiveMessage) bool {
	select {
	case lc.send <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

// readPump discards client frames and keeps the read deadline fresh on
// pongs. It cancels the stream when the peer goes away.
func (lc *liveConn) readPump(cancel context.CancelFunc) {
	defer cancel()

	lc.conn.SetReadLimit(maxMessageSize)
	_ = lc.conn.SetReadDeadline(time.Now().Add(pongWait))
	lc.conn.SetPongHandler(func(string) error {
		return lc.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := lc.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				lc.log.Debug("live stream closed unexpectedly", "error", err)
			}
			return
		}
	}
}

// writePump sends queued messages and pings until ctx is done or a write
// fails.
func (lc *liveConn) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-lc.send:
			_ = lc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := lc.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = lc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := lc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			_ = lc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = lc.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// startFunc wires a source to the connection and returns its release.
type startFunc func(ctx context.Context, lc *liveConn) (stop func(), err error)

func (l *LiveController) serve(c *gin.Context, stream string, start startFunc) {
	conn, err := l.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response
		l.log.Debug("websocket upgrade failed", "stream", stream, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	lc := &liveConn{conn: conn, send: make(chan LiveMessage, sendBuffer), log: l.log.With("stream", stream)}
	go lc.readPump(cancel)

	stop, err := start(ctx, lc)
	if err != nil {
		l.log.Warn("failed to start live stream", "stream", stream, "error", err)
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteJSON(LiveMessage{Type: LiveError, Error: "stream unavailable"})
		return
	}
	defer stop()

	lc.writePump(ctx)
}

// WishlistCount pushes the caller's wishlist count, then every change.
// GET /api/wishlist/count/live
func (l *LiveController) WishlistCount(c *gin.Context) {
	userID := auth.GetUserID(c)
	if userID == "" {
		respondAuthRequired(c, MsgWishlistLogin)
		return
	}

	l.serve(c, "wishlist_count", func(ctx context.Context, lc *liveConn) (func(), error) {
		observer := l.enrollment.Observe(userID)
		count, err := l.enrollment.Count(ctx)
		if err != nil {
			observer.Close()
			return nil, err
		}
		lc.push(ctx, LiveMessage{Type: LiveCount, Data: count})

		go func() {
			for {
				select {
				case n, ok := <-observer.C():
					if !ok {
						return
					}
					lc.push(ctx, LiveMessage{Type: LiveCount, Data: n})
				case <-ctx.Done():
					return
				}
			}
		}()
		return observer.Close, nil
	})
}

// CommentThread pushes the thread of a course, then a fresh copy after
// every new comment.
// GET /api/courses/:id/comments/live
func (l *LiveController) CommentThread(c *gin.Context) {
	courseID, ok := requireParam(c, "id")
	if !ok {
		return
	}

	l.serve(c, "comments", func(ctx context.Context, lc *liveConn) (func(), error) {
		// Subscribe before the first fetch so no insert falls in between
		watch, err := l.comments.Watch(ctx, courseID, func(entries []comments.Entry, err error) {
			if err != nil {
				lc.push(ctx, LiveMessage{Type: LiveError, Error: "Failed to load comments."})
				return
			}
			lc.push(ctx, LiveMessage{Type: LiveComments, Data: entries})
		})
		if err != nil {
			return nil, err
		}

		entries, err := l.comments.Fetch(ctx, courseID)
		if err != nil {
			watch.Close()
			return nil, err
		}
		lc.push(ctx, LiveMessage{Type: LiveComments, Data: entries})
		return watch.Close, nil
	})
}
