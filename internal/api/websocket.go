package api

import (
	"net/http"
	"time"

	"github.com/circuitlens/circuitlens/core/engine"
	"github.com/circuitlens/circuitlens/internal/logging"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for API usage
	},
}

const (
	wsMaxMessageBytes = 2 << 20
	wsReadTimeout     = 60 * time.Second
	wsWriteTimeout    = 10 * time.Second
)

// StreamMessage is a message sent over the analysis WebSocket.
type StreamMessage struct {
	Type      string         `json:"type"`  // "progress", "report", "error"
	Stage     string         `json:"stage"` // "received", "parsing", "analyzing", "done"
	Message   string         `json:"message,omitempty"`
	Code      string         `json:"code,omitempty"` // error code, set when Type is "error"
	Report    *engine.Report `json:"report,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// handleWebSocket upgrades the connection and runs an analyze loop.
// Each text message from the client is an analysis request; the server
// answers with progress messages followed by a report or error message.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	logging.WebSocketEvent("client_connected", "remote", r.RemoteAddr)
	defer logging.WebSocketEvent("client_disconnected", "remote", r.RemoteAddr)

	conn.SetReadLimit(wsMaxMessageBytes)

	for {
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var req engine.Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.Error("websocket unexpected close", "error", err)
			}
			return
		}

		if !s.streamAnalysis(conn, r, req) {
			return
		}
	}
}

// streamAnalysis runs one analysis and streams the result. It returns
// false when the connection is no longer writable.
func (s *Server) streamAnalysis(conn *websocket.Conn, r *http.Request, req engine.Request) bool {
	ctx := r.Context()
	logging.AnalysisStarted(ctx, req.Language, len(req.Code))

	if !writeStream(conn, StreamMessage{Type: "progress", Stage: "received"}) {
		return false
	}
	if !writeStream(conn, StreamMessage{Type: "progress", Stage: "parsing"}) {
		return false
	}

	start := time.Now()
	report, err := s.engine.Analyze(ctx, req)
	if err != nil {
		logging.AnalysisFailed(ctx, req.Language, err)
		_, code := statusForError(err)
		return writeStream(conn, StreamMessage{Type: "error", Stage: "done", Code: code, Message: err.Error()})
	}
	logging.AnalysisCompleted(ctx, req.Language, report.Classification, report.Confidence, time.Since(start))

	if !writeStream(conn, StreamMessage{Type: "progress", Stage: "analyzing"}) {
		return false
	}

	if s.store != nil {
		if _, err := s.store.Save(ctx, report); err != nil {
			logging.ErrorContext(ctx, "history save failed", "error", err)
		}
	}

	return writeStream(conn, StreamMessage{Type: "report", Stage: "done", Report: report})
}

func writeStream(conn *websocket.Conn, msg StreamMessage) bool {
	msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		logging.Error("websocket write failed", "error", err)
		return false
	}
	return true
}
