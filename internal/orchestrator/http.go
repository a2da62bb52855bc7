package orchestrator

import (
	"net/http"
	"os"

	"github.com/gorilla/websocket"
)

const defaultAddr = "0.0.0.0:5000"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Collaborative canvas clients are expected to come from whatever
	// origin the static frontend is served from; this is not a
	// browser-facing auth boundary.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Addr returns the address to listen on: the SPACEPAINT_ADDR environment
// variable if set, otherwise 0.0.0.0:5000.
func Addr() string {
	if addr := os.Getenv("SPACEPAINT_ADDR"); addr != "" {
		return addr
	}
	return defaultAddr
}

// ServeMux builds the HTTP handler that upgrades incoming requests to
// WebSocket connections and hands each one to the connection handler.
func (o *Orchestrator) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", o.serveWS)
	return mux
}

func (o *Orchestrator) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		o.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	go o.handleConnection(conn)
}
