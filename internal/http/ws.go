package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/King47-code/safe-ride-backend/internal/auth"
	"github.com/King47-code/safe-ride-backend/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: restrict origins once the client domains are pinned down
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWS authenticates, upgrades and hands the connection to the hub.
// Browsers cannot set headers on websocket dials, so the token may arrive
// as ?token= instead of an Authorization header.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	token := auth.BearerFromHeader(r.Header.Get("Authorization"))
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		s.writeError(w, r, fmt.Errorf("%w: missing token", models.ErrUnauthorized))
		return
	}
	id, err := s.Gate.Verify(token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written its own error response
		s.Logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	s.Hub.Attach(conn, id.UserID, id.Role)
	s.Logger.Info("websocket connected", "user_id", id.UserID, "role", id.Role)
}
