package testclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/villagegen/internal/playback"
)

// TestClient talks to a running playback server over HTTP and WebSocket
type TestClient struct {
	Name    string
	baseURL string
	http    *http.Client
}

// StatusError is returned when the server answers with an unexpected status
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Stream is everything received on one /ws/villages connection
type Stream struct {
	Start StreamMessage
	Tiles []StreamMessage
	End   StreamMessage
}

// StreamMessage is one frame of a village stream
type StreamMessage = playback.StreamMessage

// NewTestClient creates a client for the server at baseURL, e.g. http://localhost:8080
func NewTestClient(name, baseURL string) *TestClient {
	return &TestClient{
		Name:    name,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Health checks /api/health
func (c *TestClient) Health() error {
	var out map[string]string
	if err := c.get("/api/health", &out); err != nil {
		return err
	}
	if out["status"] != "ok" {
		return fmt.Errorf("unexpected health status %q", out["status"])
	}
	return nil
}

// Generate posts a generate request
func (c *TestClient) Generate(req playback.GenerateRequest) (*playback.VillageResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Post(c.baseURL+"/api/villages", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	defer resp.Body.Close()

	var v playback.VillageResponse
	if err := decodeResponse(resp, http.StatusCreated, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Run fetches a journaled run
func (c *TestClient) Run(id string) (*playback.RunJSON, error) {
	var run playback.RunJSON
	if err := c.get("/api/runs/"+url.PathEscape(id), &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// Replay regenerates a journaled run
func (c *TestClient) Replay(id string) (*playback.VillageResponse, error) {
	var v playback.VillageResponse
	if err := c.get("/api/runs/"+url.PathEscape(id)+"/village", &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Stream opens /ws/villages with the given query and reads until the stream ends
func (c *TestClient) Stream(query url.Values, origin string) (*Stream, error) {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws/villages?" + query.Encode()

	var header http.Header
	if origin != "" {
		header = http.Header{"Origin": []string{origin}}
	}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, &StatusError{Status: resp.StatusCode, Message: err.Error()}
		}
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	s := &Stream{}
	for {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		var msg StreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return s, fmt.Errorf("stream ended early after %d tiles: %w", len(s.Tiles), err)
		}
		switch msg.Type {
		case playback.MessageStart:
			s.Start = msg
		case playback.MessageTile:
			s.Tiles = append(s.Tiles, msg)
		case playback.MessageDone, playback.MessageError:
			s.End = msg
			return s, nil
		default:
			return s, fmt.Errorf("unexpected message type %q", msg.Type)
		}
	}
}

// Close releases idle connections
func (c *TestClient) Close() {
	c.http.CloseIdleConnections()
}

func (c *TestClient) get(path string, out any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, http.StatusOK, out)
}

func decodeResponse(resp *http.Response, want int, out any) error {
	if resp.StatusCode != want {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		var e map[string]string
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil && e["error"] != "" {
			msg = e["error"]
		}
		return &StatusError{Status: resp.StatusCode, Message: msg}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
