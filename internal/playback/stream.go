package playback

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/villagegen/internal/logger"
	"github.com/lawnchairsociety/villagegen/internal/render"
	"github.com/lawnchairsociety/villagegen/internal/wfc"
)

const (
	writeWait = 10 * time.Second
	maxDelay  = 2 * time.Second
)

// Message types sent on /ws/villages
const (
	MessageStart = "start"
	MessageTile  = "tile"
	MessageDone  = "done"
	MessageError = "error"
)

// StreamMessage is one WebSocket frame of a village stream
type StreamMessage struct {
	Type       string `json:"type"`
	RunID      string `json:"run_id,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	Seed       int64  `json:"seed,omitempty"`
	Complexity string `json:"complexity,omitempty"`
	Attempts   int    `json:"attempts,omitempty"`
	Cells      int    `json:"cells,omitempty"`
	Step       int    `json:"step"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	WorldX     int    `json:"world_x"`
	WorldY     int    `json:"world_y"`
	Tile       string `json:"tile,omitempty"`
	Error      string `json:"error,omitempty"`
}

// wsSurface is a render.Surface writing one JSON message per tile
type wsSurface struct {
	conn *websocket.Conn
	mu   sync.Mutex
	step int

	// width and height of the village being streamed, for centered coordinates
	width, height int
}

func newWSSurface(conn *websocket.Conn) *wsSurface {
	return &wsSurface{conn: conn}
}

// SetTile sends the tile as the next step of the stream
func (s *wsSurface) SetTile(x, y int, kind wfc.TileKind) error {
	wx, wy := wfc.Placement{X: x, Y: y}.Centered(s.width, s.height)
	err := s.send(StreamMessage{
		Type:   MessageTile,
		Step:   s.step,
		X:      x,
		Y:      y,
		WorldX: wx,
		WorldY: wy,
		Tile:   string(kind),
	})
	if err == nil {
		s.step++
	}
	return err
}

func (s *wsSurface) send(msg StreamMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(msg)
}

func (s *wsSurface) close(code int, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text),
		time.Now().Add(writeWait))
}

// handleStream handles GET /ws/villages
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	body, err := requestFromQuery(q)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req, err := s.resolveRequest(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	delay, err := s.stepDelay(q.Get("delay"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ip := extractIP(r.RemoteAddr)
	if !s.limiter.TryAcquire(ip) {
		logger.Warning("Village stream rejected - too many streams", "ip", ip)
		respondError(w, http.StatusTooManyRequests, "Too many open streams")
		return
	}
	defer s.limiter.Release(ip)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warning("WebSocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}
	defer conn.Close()
	if s.cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(s.cfg.MaxMessageSize)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchClose(conn, cancel)

	surface := newWSSurface(conn)

	result, err := s.service.Generate(req)
	if err != nil {
		surface.send(StreamMessage{Type: MessageError, Error: err.Error()})
		surface.close(websocket.CloseNormalClosure, "generation failed")
		return
	}

	h := result.Header()
	surface.width, surface.height = h.Width, h.Height
	if err := surface.send(StreamMessage{
		Type:       MessageStart,
		RunID:      h.RunID,
		Width:      h.Width,
		Height:     h.Height,
		Seed:       h.Seed,
		Complexity: h.Complexity,
		Attempts:   h.Attempts,
		Cells:      len(result.Tiles),
	}); err != nil {
		logger.Warning("WebSocket write failed", "error", err)
		return
	}

	n, err := render.Play(ctx, surface, render.Seq(result.Tiles), delay)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("Village stream closed by client", "run_id", h.RunID, "sent", n, "cells", len(result.Tiles))
			return
		}
		logger.Warning("Village stream failed", "run_id", h.RunID, "sent", n, "error", err)
		return
	}

	surface.send(StreamMessage{
		Type:     MessageDone,
		RunID:    h.RunID,
		Attempts: h.Attempts,
		Cells:    n,
	})
	surface.close(websocket.CloseNormalClosure, "done")
	logger.Debug("Village stream complete", "run_id", h.RunID, "cells", n)
}

// stepDelay parses the delay query parameter, defaulting to the configured delay
func (s *Server) stepDelay(v string) (time.Duration, error) {
	if v == "" {
		return s.cfg.StepDelay, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, errors.New("invalid delay")
	}
	return min(d, maxDelay), nil
}

// watchClose reads until the client goes away, then cancels the stream
func watchClose(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}
