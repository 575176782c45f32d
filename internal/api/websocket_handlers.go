package api

import (
	"drive-mirror/internal/auth"
	"drive-mirror/internal/websocket"
	"net/http"

	log "github.com/sirupsen/logrus"
)

func (s *Server) ServeWsHandler(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		log.Debug("WS connection attempt without token")
		http.Error(w, "Token required", http.StatusUnauthorized)
		return
	}

	claims, err := auth.VerifyJWT(tokenString, s.config.JWT.Secret)
	if err != nil {
		log.Debugf("WS connection attempt with invalid token: %v", err)
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("WebSocket upgrade error: %v", err)
		return
	}

	client := websocket.NewClient(s.wsHub, conn, claims.Operator)
	s.wsHub.Register <- client

	go client.ReadPump()
	go client.WritePump()
}
