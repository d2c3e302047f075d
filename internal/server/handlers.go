package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"monkeysnype/internal/broadcast"
	"monkeysnype/internal/session"
	"monkeysnype/internal/settings"
	"monkeysnype/internal/stats"
	"monkeysnype/internal/targets"
	"monkeysnype/internal/wshub"
)

type Server struct {
	Session     *session.Session
	Broadcaster *broadcast.Broadcaster
	Hub         *wshub.Hub
	Registry    prometheus.Gatherer
}

const noSessionMsg = "No active session"

type clickResult struct {
	Hit   bool           `json:"hit"`
	Stats stats.Snapshot `json:"stats"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println(err)
	}
}

func formFloat(r *http.Request, key string) (float64, error) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return 0, fmt.Errorf("missing %s", key)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func formPoint(r *http.Request) (targets.Point, error) {
	x, err := formFloat(r, "x")
	if err != nil {
		return targets.Point{}, err
	}
	y, err := formFloat(r, "y")
	if err != nil {
		return targets.Point{}, err
	}
	return targets.Point{X: x, Y: y}, nil
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	fmt.Println("[Handle:Start] Request Received")
	sess := session.FromContext(r.Context())

	if _, err := sess.Start(); err != nil {
		if errors.Is(err, session.ErrActive) {
			http.Error(w, "Session already active", http.StatusConflict)
			return
		}
		log.Println(err)
		http.Error(w, "Failed to start session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	fmt.Println("[Handle:End] Request Received")
	sess := session.FromContext(r.Context())

	summary, ok := sess.End()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.Broadcaster.BroadcastJSON("summary", summary)
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	sess.Dismiss()
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if !sess.Active() {
		http.Error(w, noSessionMsg, http.StatusConflict)
		return
	}

	p, err := formPoint(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	hit := sess.Targets.Click(p)
	writeJSON(w, http.StatusOK, clickResult{Hit: hit, Stats: sess.Stats.Get()})
}

func (s *Server) handleTarget(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if !sess.Active() {
		http.Error(w, noSessionMsg, http.StatusConflict)
		return
	}

	targetID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		log.Println(err)
		http.Error(w, "Invalid target ID", http.StatusBadRequest)
		return
	}
	p, err := formPoint(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	hit := sess.Targets.ClickTarget(targetID, p)
	writeJSON(w, http.StatusOK, clickResult{Hit: hit, Stats: sess.Stats.Get()})
}

func (s *Server) handlePlayArea(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	width, err := formFloat(r, "width")
	if err != nil || width <= 0 {
		http.Error(w, "Invalid width", http.StatusBadRequest)
		return
	}
	height, err := formFloat(r, "height")
	if err != nil || height <= 0 {
		http.Error(w, "Invalid height", http.StatusBadRequest)
		return
	}
	sess.Targets.SetPlayArea(width, height)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	writeJSON(w, http.StatusOK, sess.Settings.Get())
}

func (s *Server) handleSetSettings(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	var patch settings.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid settings payload", http.StatusBadRequest)
		return
	}
	d, err := sess.Settings.Apply(patch)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.Broadcaster.BroadcastJSON("settings", d)
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	msgChan := s.Broadcaster.Subscribe()
	defer s.Broadcaster.Unsubscribe(msgChan)

	state, err := json.Marshal(sess.View())
	if err != nil {
		log.Println(err)
		return
	}
	writeEvent(w, broadcast.Message{Event: "state", Msg: string(state)})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-msgChan:
			writeEvent(w, msg)
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, msg broadcast.Message) {
	fmt.Fprintf(w, "event: %s\n", msg.Event)
	for _, line := range strings.Split(msg.Msg, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprint(w, "\n")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	fmt.Fprintf(w, `{"status":"ok","active":%t,"views":%d}`, sess.Active(), s.Hub.Count())
}
