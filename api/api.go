package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/intodakt/computer-networks-project/domain"
	"github.com/intodakt/computer-networks-project/session"
	"github.com/intodakt/computer-networks-project/transport"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server exposes health and room statistics over HTTP, plus a WebSocket
// entry point that speaks the same line protocol as the TCP listener.
type Server struct {
	registry  domain.Registry
	sessions  *session.Handler
	queueSize int
	logger    *slog.Logger
}

func New(registry domain.Registry, sessions *session.Handler, queueSize int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		registry:  registry,
		sessions:  sessions,
		queueSize: queueSize,
		logger:    logger,
	}
}

func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.health)
	r.GET("/stats", s.stats)
	r.GET("/rooms", s.rooms)
	r.GET("/ws", s.serveWS)
	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) stats(c *gin.Context) {
	rooms, clients := s.registry.Stats()
	c.JSON(http.StatusOK, gin.H{"rooms": rooms, "clients": clients})
}

func (s *Server) rooms(c *gin.Context) {
	c.JSON(http.StatusOK, s.registry.Rooms())
}

// serveWS blocks for the lifetime of the session. The request context
// derives from the server's base context, so shutdown ends the session.
func (s *Server) serveWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("upgrade error", "error", err)
		return
	}

	wsConn := transport.NewWSConn(conn, s.queueSize, s.logger)
	s.sessions.Serve(c.Request.Context(), wsConn)
}
