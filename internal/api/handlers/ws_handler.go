package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yoockh/screencopilot/internal/api/middleware"
	"github.com/yoockh/screencopilot/internal/utils"
)

const (
	wsReadTimeout   = 60 * time.Second
	wsWriteTimeout  = 10 * time.Second
	wsPingEvery     = 25 * time.Second
	wsMaxMessage    = 8 << 20
	defaultAudioSrc = "screen_share_audio"
)

// RoomBridge is the gateway side of a room: client control messages and
// audio go to the worker, worker messages come back.
type RoomBridge interface {
	PublishToWorker(ctx context.Context, payload []byte) error
	AppendAudio(ctx context.Context, source, name string, pcm []byte) error
	EndAudio(ctx context.Context, source, name string) error
	ClientMessages(ctx context.Context) (<-chan []byte, error)
}

type RoomOpener func(room string) RoomBridge

type WSHandler struct {
	open     RoomOpener
	limit    rate.Limit
	burst    int
	log      logrus.FieldLogger
	upgrader websocket.Upgrader
}

// NewWSHandler limits each connection to perSecond control messages with a
// burst of twice that. Audio frames are not limited. An empty origins list
// accepts any origin.
func NewWSHandler(open RoomOpener, perSecond float64, origins []string, log logrus.FieldLogger) *WSHandler {
	if perSecond <= 0 {
		perSecond = 20
	}
	allowed := map[string]struct{}{}
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return &WSHandler{
		open:  open,
		limit: rate.Limit(perSecond),
		burst: int(2 * perSecond),
		log:   log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) write(kind int, b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return w.c.WriteMessage(kind, b)
}

func (w *wsConn) writeError(code utils.Code, msg string) {
	b, _ := json.Marshal(gin.H{"type": "error", "code": code, "message": msg})
	_ = w.write(websocket.TextMessage, b)
}

// RoomWS bridges one browser connection to the room named in the path.
// Text frames are control messages for the worker, binary frames are PCM16LE
// mono audio.
func (h *WSHandler) RoomWS(c *gin.Context) {
	const op = "WSHandler.RoomWS"

	room := c.Param("room")
	if room == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing room", nil))
		return
	}
	audioSource := c.DefaultQuery("audio_source", defaultAudioSrc)
	audioName := c.Query("audio_track")
	log := h.log.WithFields(logrus.Fields{"room": room, "identity": c.GetString(middleware.CtxIdentity)})

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	bridge := h.open(room)
	outbound, err := bridge.ClientMessages(ctx)
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessage)

	wc := &wsConn{c: conn}
	limiter := rate.NewLimiter(h.limit, h.burst)

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		})

		sentAudio := false
		defer func() {
			if sentAudio {
				_ = bridge.EndAudio(context.WithoutCancel(ctx), audioSource, audioName)
			}
		}()

		for {
			kind, data, rerr := conn.ReadMessage()
			if rerr != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

			switch kind {
			case websocket.BinaryMessage:
				if err := bridge.AppendAudio(ctx, audioSource, audioName, data); err != nil {
					log.WithField("error", err).Warn("audio not forwarded")
					continue
				}
				sentAudio = true

			case websocket.TextMessage:
				if !json.Valid(data) {
					wc.writeError(utils.CodeInvalidArgument, "invalid json")
					continue
				}
				if !limiter.Allow() {
					wc.writeError(utils.CodeUnavailable, "rate limited")
					continue
				}
				if err := bridge.PublishToWorker(ctx, data); err != nil {
					wc.writeError(utils.CodeUnavailable, "failed to reach worker")
				}
			}
		}
	}()

	ping := time.NewTicker(wsPingEvery)
	defer ping.Stop()

	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			wc.mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
			wc.mu.Unlock()
			if err != nil {
				return
			}
		case payload, ok := <-outbound:
			if !ok {
				return
			}
			if err := wc.write(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}
