package voices

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/voxloop/vox/internal/httputil"
	"github.com/voxloop/vox/internal/logging"
	"github.com/voxloop/vox/internal/svc"
	"github.com/voxloop/vox/internal/voice"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type streamRequest struct {
	Text       string `json:"text"`
	Format     string `json:"format"`
	SampleRate int    `json:"sample_rate"`
}

type streamEvent struct {
	Type    string `json:"type"`
	Chunk   int    `json:"chunk,omitempty"`
	Chunks  int    `json:"chunks,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// StreamHandler upgrades to a WebSocket and renders text sentence by
// sentence. Each chunk arrives as one binary frame preceded by a JSON
// "chunk" event; a final "done" event closes the exchange.
func StreamHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		voiceID := httputil.PathVar(r, "voiceId")

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Warnf("websocket upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		for {
			var req streamRequest
			if err := conn.ReadJSON(&req); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logging.Warnf("websocket read: %v", err)
				}
				return
			}
			if req.Format == "" {
				req.Format = svcCtx.Config.DefaultFormat
			}

			chunks := splitSentences(req.Text)
			if len(chunks) == 0 {
				writeStreamError(conn, voice.NewError(voice.KindEmptyText, "stream", "text must not be empty"))
				continue
			}

			failed := false
			for i, sentence := range chunks {
				data, _, err := svcCtx.Pipeline.Synthesize(r.Context(), voiceID, sentence, req.Format, req.SampleRate)
				if err != nil {
					writeStreamError(conn, err)
					failed = true
					break
				}
				if err := conn.WriteJSON(streamEvent{Type: "chunk", Chunk: i + 1, Chunks: len(chunks)}); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
					return
				}
			}
			if failed {
				continue
			}
			if err := conn.WriteJSON(streamEvent{Type: "done", Chunks: len(chunks)}); err != nil {
				return
			}
		}
	}
}

func writeStreamError(conn *websocket.Conn, err error) {
	conn.WriteJSON(streamEvent{
		Type:    "error",
		Kind:    string(voice.KindOf(err)),
		Message: err.Error(),
	})
}

// splitSentences breaks text on sentence-final punctuation so long
// passages stream incrementally. Text with no terminator is one chunk.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(b.String()); s != "" {
				chunks = append(chunks, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}
