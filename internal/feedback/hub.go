package feedback

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/obstacle-mcp/internal/detection"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultWriteTimeout = 5 * time.Second
	defaultPingInterval = 30 * time.Second

	// sendQueueSize is the number of cues buffered per client before the
	// client is considered stalled.
	sendQueueSize = 16
)

// Hub is a Sink that pushes cues as JSON text messages to every connected
// websocket client, typically a phone browser rendering speech and
// vibration.
//
// Broadcast never waits on the network: each client has a bounded queue
// drained by its own writer goroutine. Clients whose queue is full, or
// whose write fails, are dropped.
type Hub struct {
	upgrader     websocket.Upgrader
	prefs        Preferences
	log          logrus.FieldLogger
	writeTimeout time.Duration
	pingInterval time.Duration

	mu      sync.Mutex
	clients map[*hubClient]struct{}
	closed  bool
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
	mu   sync.Mutex // serialises writes
	done chan struct{}
	once sync.Once
}

func (c *hubClient) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *hubClient) write(messageType int, data []byte, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// NewHub returns a hub with no clients.
func NewHub(prefs Preferences, log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		prefs:        prefs,
		log:          log.WithField("component", "hub"),
		writeTimeout: defaultWriteTimeout,
		pingInterval: defaultPingInterval,
		clients:      make(map[*hubClient]struct{}),
	}
}

// ServeHTTP upgrades the request and keeps the client registered until it
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := &hubClient{conn: conn, send: make(chan []byte, sendQueueSize), done: make(chan struct{})}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		c.close()
		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{"remote": r.RemoteAddr, "clients": n}).Info("feedback client connected")

	go h.writeLoop(c)
	h.readLoop(c)

	h.remove(c)
	h.log.WithField("remote", r.RemoteAddr).Info("feedback client disconnected")
}

// readLoop discards client messages until the connection fails. Reading is
// required for gorilla to process control frames.
func (h *Hub) readLoop(c *hubClient) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop delivers queued cues and keeps the connection alive with pings.
func (h *Hub) writeLoop(c *hubClient) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			if err := c.write(websocket.TextMessage, data, h.writeTimeout); err != nil {
				h.log.WithError(err).Warn("write failed, dropping client")
				h.remove(c)
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil, h.writeTimeout); err != nil {
				h.log.WithError(err).Debug("ping failed, dropping client")
				h.remove(c)
				return
			}
		}
	}
}

func (h *Hub) remove(c *hubClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues cue for every client and returns without blocking.
func (h *Hub) Broadcast(cue Cue) {
	defer func() {
		if r := recover(); r != nil {
			h.log.WithField("panic", r).Error("broadcast panicked")
		}
	}()

	data, err := json.Marshal(cue)
	if err != nil {
		h.log.WithError(err).Error("failed to encode cue")
		return
	}

	h.mu.Lock()
	clients := make([]*hubClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		select {
		case c.send <- data:
		default:
			h.log.Warn("client is not keeping up, dropping client")
			h.remove(c)
		}
	}
}

// OnDetectionStarted implements Sink.
func (h *Hub) OnDetectionStarted() {
	h.Broadcast(BuildCue(EventStarted, detection.Verdict{}, h.prefs))
}

// OnVerdict implements Sink.
func (h *Hub) OnVerdict(v detection.Verdict) {
	h.Broadcast(BuildCue(EventVerdict, v, h.prefs))
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[*hubClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), h.writeTimeout)
		c.close()
	}
}
