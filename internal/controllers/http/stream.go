package httpctrl

import (
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/Agrid-Dev/heatrecovery/internal/recovery"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

const (
	msgTrace  = "trace"
	msgResult = "result"
	msgError  = "error"
)

// streamMessage is one frame sent to a stream client.
type streamMessage struct {
	Type   string                 `json:"type"`
	Trace  *recovery.TraceEvent   `json:"trace,omitempty"`
	Result *recovery.SolverResult `json:"result,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

// handleStream solves every request the client sends over the socket and
// streams the solver trace followed by the result.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade")
		return
	}
	defer conn.Close()

	l := s.log.WithField("remote", r.RemoteAddr)
	l.Debug("stream opened")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				l.WithError(err).Warn("stream read")
			}
			l.Debug("stream closed")
			return
		}

		req := recovery.DefaultSolverRequest()
		if err := json.Unmarshal(data, &req); err != nil {
			if !writeFrame(conn, streamMessage{Type: msgError, Error: "invalid json: " + err.Error()}) {
				return
			}
			continue
		}

		ok := true
		tr := recovery.TraceFunc(func(e recovery.TraceEvent) {
			if ok {
				ok = writeFrame(conn, streamMessage{Type: msgTrace, Trace: &e})
			}
		})
		res, err := s.svc.SolveTraced(req, tr)
		if !ok {
			return
		}
		if err != nil {
			if !writeFrame(conn, streamMessage{Type: msgError, Error: err.Error()}) {
				return
			}
			continue
		}
		if !writeFrame(conn, streamMessage{Type: msgResult, Result: &res}) {
			return
		}
		l.WithFields(log.Fields{"status": res.Status, "iterations": res.Iterations}).Debug("stream solve")
	}
}

func writeFrame(conn *websocket.Conn, m streamMessage) bool {
	b, err := json.Marshal(m)
	if err != nil {
		return false
	}
	return conn.WriteMessage(websocket.TextMessage, b) == nil
}
