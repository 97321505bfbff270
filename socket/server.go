package socket

import (
	"context"
	"net/http"
	"sync"

	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog"

	"github.com/Kubolab-io/takkapp-v1-sub000/services"
)

const (
	namespace      = "/"
	updateEvent    = "matchesUpdated"
	errorEvent     = "matchesError"
	userRoomPrefix = "user:"
)

type joinRequest struct {
	UserID string `json:"userId"`
}

// Server runs one matching session per joined user and pushes its updates
// to the user's room. Connections of the same user share the session.
type Server struct {
	io       *socketio.Server
	matching *services.MatchingService
	ctx      context.Context
	log      zerolog.Logger

	mu        sync.Mutex
	users     map[string]*userSession
	connUsers map[string]string
}

type userSession struct {
	session *services.Session
	conns   int
}

// NewSocketServer registers the socket handlers. Sessions live until their
// connection drops, ctx is done or Close is called.
func NewSocketServer(ctx context.Context, matching *services.MatchingService, logger zerolog.Logger) *Server {
	s := &Server{
		io:       socketio.NewServer(nil),
		matching: matching,
		ctx:      ctx,
		log:      logger.With().Str("component", "socket").Logger(),

		users:     make(map[string]*userSession),
		connUsers: make(map[string]string),
	}

	s.io.OnConnect(namespace, func(c socketio.Conn) error {
		s.log.Debug().Str("conn", c.ID()).Msg("✅ Socket connected")
		return nil
	})

	s.io.OnEvent(namespace, "join", func(c socketio.Conn, req joinRequest) {
		if req.UserID == "" {
			s.log.Warn().Str("conn", c.ID()).Msg("❌ Invalid userId in join request")
			c.Emit(errorEvent, map[string]string{"error": "userId is required"})
			return
		}
		s.join(c, req.UserID)
	})

	s.io.OnEvent(namespace, "leave", func(c socketio.Conn) {
		s.stop(c)
		c.LeaveAll()
	})

	s.io.OnError(namespace, func(c socketio.Conn, err error) {
		s.log.Warn().Err(err).Msg("⚠️ Socket error")
	})

	s.io.OnDisconnect(namespace, func(c socketio.Conn, reason string) {
		s.stop(c)
		s.log.Debug().Str("conn", c.ID()).Str("reason", reason).Msg("❌ Socket disconnected")
	})

	return s
}

func (s *Server) join(c socketio.Conn, userID string) {
	s.stop(c)
	room := userRoomPrefix + userID
	c.Join(room)

	s.mu.Lock()
	s.connUsers[c.ID()] = userID
	if us, ok := s.users[userID]; ok {
		us.conns++
		conns := us.conns
		s.mu.Unlock()
		if update, ok := us.session.Last(); ok {
			c.Emit(updateEvent, update)
		}
		s.log.Info().Str("conn", c.ID()).Str("userId", userID).Int("conns", conns).Msg("👥 User joined existing session")
		return
	}
	// Held across StartSession so two first joins cannot both start one.
	us := &userSession{conns: 1}
	s.users[userID] = us
	us.session = s.matching.StartSession(s.ctx, userID, func(update services.SessionUpdate) {
		s.io.BroadcastToRoom(namespace, room, updateEvent, update)
	})
	s.mu.Unlock()
	s.log.Info().Str("conn", c.ID()).Str("userId", userID).Msg("👥 User joined")
}

// stop detaches c from its user and ends the session once no connection of
// that user is left.
func (s *Server) stop(c socketio.Conn) {
	s.mu.Lock()
	userID, ok := s.connUsers[c.ID()]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.connUsers, c.ID())
	us, ok := s.users[userID]
	if !ok {
		s.mu.Unlock()
		return
	}
	us.conns--
	if us.conns > 0 {
		s.mu.Unlock()
		c.Leave(userRoomPrefix + userID)
		return
	}
	delete(s.users, userID)
	s.mu.Unlock()
	c.Leave(userRoomPrefix + userID)
	us.session.Stop()
}

// Sessions returns the number of running sessions, one per joined user.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// Connections returns the number of joined connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.connUsers)
}

// Serve runs the socket.io event loop until Close.
func (s *Server) Serve() {
	if err := s.io.Serve(); err != nil {
		s.log.Error().Err(err).Msg("❌ Socket server stopped")
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHTTP(w, r)
}

// Close stops every session and the socket.io server.
func (s *Server) Close() error {
	s.mu.Lock()
	users := s.users
	s.users = make(map[string]*userSession)
	s.connUsers = make(map[string]string)
	s.mu.Unlock()
	for _, us := range users {
		us.session.Stop()
	}
	return s.io.Close()
}
