package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"monkeysnype/internal/session"
	"monkeysnype/internal/targets"
	"monkeysnype/internal/wshub"
)

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Printf("[WS] Accept error: %v\n", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	client := &wshub.Client{
		ID:   uuid.NewString(),
		Conn: conn,
		Send: make(chan []byte, 16),
	}
	s.Hub.Register(client)
	defer s.Hub.Unregister(client.ID)
	go client.WritePump(ctx)

	log.Printf("[WS] View %s connected\n", client.ID)
	send(client, reply("state", sess.View()))

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure && !errors.Is(err, ctx.Err()) {
				log.Printf("[WS] Read error from %s: %v\n", client.ID, err)
			}
			break
		}

		var msg wshub.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			send(client, wshub.ServerMessage{Type: "error", Error: "invalid message"})
			continue
		}
		send(client, s.dispatch(sess, msg))
	}
	log.Printf("[WS] View %s disconnected\n", client.ID)
	conn.Close(websocket.StatusNormalClosure, "")
}

// dispatch applies one view command to the session and returns the reply.
func (s *Server) dispatch(sess *session.Session, msg wshub.ClientMessage) wshub.ServerMessage {
	switch msg.Type {
	case "state":
		return reply("state", sess.View())
	case "start":
		if _, err := sess.Start(); err != nil {
			return wshub.ServerMessage{Type: "error", Error: err.Error()}
		}
		return reply("state", sess.View())
	case "end":
		summary, ok := sess.End()
		if !ok {
			return wshub.ServerMessage{Type: "summary"}
		}
		s.Broadcaster.BroadcastJSON("summary", summary)
		return reply("summary", summary)
	case "dismiss":
		sess.Dismiss()
		return reply("state", sess.View())
	case "click", "hit":
		if !sess.Active() {
			return wshub.ServerMessage{Type: "error", Error: noSessionMsg}
		}
		p := targets.Point{X: msg.X, Y: msg.Y}
		var hit bool
		if msg.Type == "hit" {
			hit = sess.Targets.ClickTarget(msg.TargetID, p)
		} else {
			hit = sess.Targets.Click(p)
		}
		return reply("click", clickResult{Hit: hit, Stats: sess.Stats.Get()})
	case "resize":
		if msg.Width <= 0 || msg.Height <= 0 {
			return wshub.ServerMessage{Type: "error", Error: "invalid play area"}
		}
		sess.Targets.SetPlayArea(msg.Width, msg.Height)
		return reply("state", sess.View())
	default:
		return wshub.ServerMessage{Type: "error", Error: "unknown message type " + msg.Type}
	}
}

func reply(kind string, v any) wshub.ServerMessage {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[WS] Marshal %s error: %v\n", kind, err)
		return wshub.ServerMessage{Type: "error", Error: "internal error"}
	}
	return wshub.ServerMessage{Type: kind, Data: data}
}

func send(c *wshub.Client, msg wshub.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[WS] Marshal error: %v\n", err)
		return
	}
	select {
	case c.Send <- data:
	default:
		log.Printf("[WS] Send buffer full for %s, dropping %s\n", c.ID, msg.Type)
	}
}
