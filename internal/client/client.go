package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/miniview-io/miniview/internal/config"
	"github.com/miniview-io/miniview/internal/constants"
)

const websocketHandshakeTimeout = 10 * time.Second

// StatusInfo mirrors the daemon's /status response.
type StatusInfo struct {
	Version           string `json:"version"`
	InPipMode         bool   `json:"in_pip_mode"`
	ListenerActive    bool   `json:"listener_active"`
	AudioOnly         bool   `json:"audio_only"`
	MaxSenders        *int   `json:"max_senders"`
	ReceivedQuality   string `json:"received_quality"`
	PinnedParticipant string `json:"pinned_participant"`
	HostsConnected    int    `json:"hosts_connected"`
}

// TransitionInfo mirrors one /transitions journal entry.
type TransitionInfo struct {
	ID           int64     `json:"id"`
	Enabled      bool      `json:"enabled"`
	WindowWidth  float64   `json:"window_width"`
	WindowHeight float64   `json:"window_height"`
	Cause        string    `json:"cause"`
	CreatedAt    time.Time `json:"created_at"`
}

// HostEvent is one event received over the host WebSocket stream.
type HostEvent struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled,omitempty"`
	Trigger string `json:"trigger,omitempty"`
}

// Client communicates with the daemon using HTTP and WebSocket transports.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	dialer     *websocket.Dialer

	mu        sync.Mutex
	wsConn    *websocket.Conn
	eventCh   chan HostEvent
	errCh     chan error
	wsWriteMu sync.Mutex
}

// NewInitialisedClient constructs a client from explicit parameters.
func NewInitialisedClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: constants.ClientRequestTimeout},
		token:      strings.TrimSpace(token),
		dialer: &websocket.Dialer{
			Proxy:             http.ProxyFromEnvironment,
			HandshakeTimeout:  websocketHandshakeTimeout,
			EnableCompression: true,
		},
	}
}

// New initialises a client bound to the given miniview instance. Environment
// variables MINIVIEW_BASE_URL and MINIVIEW_API_TOKEN override the instance
// configuration.
func New(instanceName string) (*Client, error) {
	baseURL := strings.TrimSpace(os.Getenv("MINIVIEW_BASE_URL"))
	token := strings.TrimSpace(os.Getenv("MINIVIEW_API_TOKEN"))

	if baseURL == "" {
		paths := config.GetInstancePaths(instanceName)
		cfg, err := config.Load(paths.Config)
		if err != nil {
			return nil, err
		}
		baseURL = "http://" + cfg.Listen
		if token == "" {
			token = cfg.AuthToken
		}
	} else if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}

	return NewInitialisedClient(baseURL, token), nil
}

// BaseURL returns the base HTTP URL the client is configured to use.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Status fetches the daemon state snapshot.
func (c *Client) Status() (*StatusInfo, error) {
	var status StatusInfo
	if err := c.getJSON("/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Transitions fetches up to limit journal entries, newest first.
// A non-positive limit uses the daemon default.
func (c *Client) Transitions(limit int) ([]TransitionInfo, error) {
	path := "/transitions"
	if limit > 0 {
		path = fmt.Sprintf("/transitions?limit=%d", limit)
	}
	var entries []TransitionInfo
	if err := c.getJSON(path, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Metrics fetches the raw metrics payload.
func (c *Client) Metrics() (string, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/metrics", nil)
	if err != nil {
		return "", err
	}
	c.addAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("metrics: %w", readAPIError(resp))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read metrics: %w", err)
	}
	return string(body), nil
}

// Connect opens the host WebSocket stream. Frames sent afterwards simulate
// a host application; events from the daemon arrive on Events.
func (c *Client) Connect(hostID string) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("parse base url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/host"
	query := u.Query()
	if hostID != "" {
		query.Set("host_id", hostID)
	}
	if c.token != "" {
		query.Set("token", c.token)
	}
	u.RawQuery = query.Encode()

	conn, _, err := c.dialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	eventCh := make(chan HostEvent, 32)
	errCh := make(chan error, 1)

	c.mu.Lock()
	if c.wsConn != nil {
		_ = c.wsConn.Close()
	}
	c.wsConn = conn
	c.eventCh = eventCh
	c.errCh = errCh
	c.mu.Unlock()

	go c.readLoop(conn, eventCh, errCh)
	return nil
}

// Events returns the stream of daemon events; nil before Connect.
func (c *Client) Events() <-chan HostEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eventCh
}

// Errors returns the stream error channel; nil before Connect.
func (c *Client) Errors() <-chan error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errCh
}

// Close terminates the active WebSocket stream, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.wsConn
	c.wsConn = nil
	c.eventCh = nil
	c.errCh = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	c.wsWriteMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
	c.wsWriteMu.Unlock()

	return conn.Close()
}

// SendLayout reports a window geometry change.
func (c *Client) SendLayout(windowWidth, windowHeight, screenWidth, screenHeight float64) error {
	return c.writeFrame(map[string]any{
		"type":   "layout",
		"window": map[string]float64{"width": windowWidth, "height": windowHeight},
		"screen": map[string]float64{"width": screenWidth, "height": screenHeight},
	})
}

// SendJoined reports that a conference session was established.
func (c *Client) SendJoined(conferenceID string) error {
	return c.writeFrame(map[string]any{
		"type":          "joined",
		"conference_id": conferenceID,
	})
}

// SendAudioOnly toggles audio-only conference mode.
func (c *Client) SendAudioOnly(enabled bool) error {
	return c.writeFrame(map[string]any{
		"type":    "audio_only",
		"enabled": enabled,
	})
}

// SendPin pins a participant; an empty ID clears the pin.
func (c *Client) SendPin(participantID string) error {
	return c.writeFrame(map[string]any{
		"type":           "pin",
		"participant_id": participantID,
	})
}

// RequestPip asks the daemon to forward an enter-PiP request to hosts.
func (c *Client) RequestPip() error {
	return c.writeFrame(map[string]any{"type": "request_pip"})
}

func (c *Client) writeFrame(payload map[string]any) error {
	c.mu.Lock()
	conn := c.wsConn
	c.mu.Unlock()

	if conn == nil {
		return errors.New("client: websocket connection not established")
	}

	c.wsWriteMu.Lock()
	defer c.wsWriteMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteJSON(payload)
}

func (c *Client) readLoop(conn *websocket.Conn, eventCh chan<- HostEvent, errCh chan<- error) {
	defer close(eventCh)
	defer close(errCh)

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if !isNormalClose(err) {
				errCh <- err
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var event HostEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			continue
		}
		select {
		case eventCh <- event:
		default:
		}
	}
}

func (c *Client) getJSON(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.addAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %w", strings.TrimPrefix(path, "/"), readAPIError(resp))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) addAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func readAPIError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(strings.TrimSpace(string(body))) == 0 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

func isNormalClose(err error) bool {
	if err == nil {
		return true
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return true
	}
	return errors.Is(err, io.EOF)
}
