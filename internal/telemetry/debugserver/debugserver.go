// Package debugserver exposes a small chi-routed HTTP surface over a
// running actor system: a snapshot of live actors, dead letters, and a
// websocket endpoint streaming live event-stream events — generalizing
// the teacher's ws.WSHandler/lp.LPHandler long-lived-connection pump
// pattern away from chat-message delivery and onto runtime diagnostics.
package debugserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/webitel/fraktor-go/internal/actor"
	"github.com/webitel/fraktor-go/internal/eventstream"
)

const extensionID = "telemetry.debugserver"

// Server hosts the debug HTTP surface. It is itself an extension.Extension
// so it starts and stops alongside the rest of the runtime's add-ons.
type Server struct {
	addr   string
	system *actor.System
	logger *slog.Logger

	upgrader websocket.Upgrader
	http     *http.Server
}

func New(addr string, system *actor.System, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		addr:   addr,
		system: system,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.http = &http.Server{Addr: addr, Handler: s.router()}
	return s
}

func (s *Server) ID() string { return extensionID }

func (s *Server) Start() error {
	ln, err := newListener(s.addr)
	if err != nil {
		return err
	}
	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("debugserver closed unexpectedly", "error", err)
		}
	}()
	return nil
}

func (s *Server) Stop() error {
	return s.http.Close()
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Get("/debug/actors", s.listActors)
	r.Get("/debug/actors/{pid}", s.getActor)
	r.Get("/debug/deadletters", s.listDeadLetters)
	r.Get("/debug/events", s.streamEvents)
	return r
}

func (s *Server) listActors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.system.Cells())
}

func (s *Server) getActor(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "pid")
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		http.Error(w, "invalid pid", http.StatusBadRequest)
		return
	}
	info, ok := s.system.CellInfoFor(actor.Pid{Value: value})
	if !ok {
		http.Error(w, "no such actor", http.StatusNotFound)
		return
	}
	writeJSON(w, info)
}

func (s *Server) listDeadLetters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.system.DeadLetters().Entries())
}

// streamEvents upgrades to a websocket and pumps every subsequent
// eventstream.Event to the client as JSON, mirroring the teacher's
// WSHandler "upgrade, subscribe, pump until context.Done" loop.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("debugserver ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events := make(chan eventstream.Event, 64)
	sub := s.system.EventStream().Subscribe(eventstream.SubscriberFunc(func(e eventstream.Event) {
		select {
		case events <- e:
		default:
			// Slow reader: drop rather than block the publisher.
		}
	}))
	defer s.system.EventStream().Unsubscribe(sub)

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
