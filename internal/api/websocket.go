package api

import (
	"log"
	"net/http"
	"sync"
	"time"

	"zutopia/internal/audio"
	"zutopia/internal/game"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 10

	// Inbound commands per second per connection; pointer moves arrive at display rate
	wsCommandRate  = 120
	wsCommandBurst = 30

	wsWriteWait      = 2 * time.Second
	wsMaxMessageSize = 512
)

// Broadcast event names
const (
	EventState        = "game:state"
	EventTick         = "game:event"
	EventStateChanged = "game:phase"
)

// wsClient tracks a WebSocket connection with its source IP and encoding
type wsClient struct {
	conn   *websocket.Conn
	ip     string
	binary bool // msgpack frames instead of JSON text
}

// outbound is one broadcast, pre-encoded for both client kinds
type outbound struct {
	text   []byte
	binary []byte
}

// WebSocketHub manages all WebSocket connections with DoS protection.
// Only the Run goroutine writes to connections.
type WebSocketHub struct {
	engine     EngineInterface
	clients    map[*websocket.Conn]*wsClient
	broadcast  chan outbound
	register   chan *wsClient
	unregister chan *websocket.Conn
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex

	upgrader websocket.Upgrader
	origins  []string

	// Connection limiting per IP
	wsLimiter *ConnSlots
}

// NewWebSocketHub creates a hub that forwards client commands to engine.
// A nil origins list uses AllowedOrigins.
func NewWebSocketHub(engine EngineInterface, origins []string) *WebSocketHub {
	if origins == nil {
		origins = AllowedOrigins
	}
	h := &WebSocketHub{
		engine:     engine,
		clients:    make(map[*websocket.Conn]*wsClient),
		broadcast:  make(chan outbound, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		origins:    origins,
		wsLimiter:  NewConnSlots(MaxWSConnectionsPerIP),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *WebSocketHub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if IsAllowedOrigin(origin, h.origins) {
		return true
	}

	// Log rejected origin for security monitoring
	log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
	RecordConnectionRejected("origin")
	return false
}

// Run owns every connection until Stop is called
func (h *WebSocketHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client connected from %s (%d total)", client.ip, count)
			UpdateWSConnections(count)

		case conn := <-h.unregister:
			h.remove(conn)

		case msg := <-h.broadcast:
			h.mu.RLock()
			var failed []*websocket.Conn
			for conn, client := range h.clients {
				frameType, payload := websocket.TextMessage, msg.text
				if client.binary {
					frameType, payload = websocket.BinaryMessage, msg.binary
				}
				conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(frameType, payload); err != nil {
					failed = append(failed, conn)
				}
			}
			h.mu.RUnlock()

			for _, conn := range failed {
				h.remove(conn)
			}
			IncrementWSMessages()

		case <-h.done:
			h.mu.Lock()
			for conn, client := range h.clients {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(wsWriteWait))
				conn.Close()
				h.wsLimiter.Release(client.ip)
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			UpdateWSConnections(0)
			return
		}
	}
}

// remove drops a connection and releases its IP slot
func (h *WebSocketHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	client, ok := h.clients[conn]
	if ok {
		h.wsLimiter.Release(client.ip)
		delete(h.clients, conn)
		conn.Close()
	}
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		log.Printf("📱 Client disconnected (%d remaining)", count)
		UpdateWSConnections(count)
	}
}

// Stop closes every connection and ends Run and the broadcast loop
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

// Broadcast sends an event to all connected clients
func (h *WebSocketHub) Broadcast(event string, data interface{}) {
	text, binary, err := encodeFrames(event, data)
	if err != nil {
		log.Printf("❌ Failed to encode %s: %v", event, err)
		return
	}

	select {
	case h.broadcast <- outbound{text: text, binary: binary}:
	default:
		// Channel full, skip (backpressure)
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StartBroadcastLoop pushes the latest snapshot hz times per second while
// anyone is listening
func (h *WebSocketHub) StartBroadcastLoop(hz int) {
	if hz <= 0 {
		hz = 20
	}
	ticker := time.NewTicker(time.Second / time.Duration(hz))

	go func() {
		defer ticker.Stop()
		var lastSeq uint64
		for {
			select {
			case <-h.done:
				return
			case <-ticker.C:
			}

			if h.ClientCount() == 0 {
				continue
			}
			snap := h.engine.GetSnapshot()
			if snap == nil || snap.Sequence == lastSeq {
				continue
			}
			lastSeq = snap.Sequence
			h.Broadcast(EventState, snap)
		}
	}()
}

// HandleWebSocket handles incoming WebSocket connections with DoS protection
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if total := h.ClientCount(); total >= MaxWSConnectionsTotal {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", total)
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.wsLimiter.Acquire(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip) // Release the slot we reserved
		return
	}
	conn.SetReadLimit(wsMaxMessageSize)

	client := &wsClient{conn: conn, ip: ip, binary: wantsMsgpack(r)}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		h.wsLimiter.Release(ip)
		return
	}

	go h.readLoop(client)
}

// readLoop applies client commands until the connection fails
func (h *WebSocketHub) readLoop(client *wsClient) {
	defer func() {
		select {
		case h.unregister <- client.conn:
		case <-h.done:
		}
	}()

	limiter := rate.NewLimiter(wsCommandRate, wsCommandBurst)
	for {
		frameType, payload, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		if !limiter.Allow() {
			RecordWSCommandDropped()
			continue
		}

		cmd, err := decodeCommand(payload, frameType == websocket.BinaryMessage)
		if err != nil {
			continue
		}

		switch cmd.Type {
		case "pointer":
			h.engine.PointerMoved(cmd.X, cmd.Y)
		case "start":
			if h.engine.RequestStart() {
				log.Printf("▶️ Session start requested by %s", client.ip)
			}
		}
	}
}

// TickEvent is the payload of game:event broadcasts
type TickEvent struct {
	Tick        uint64   `json:"tick" msgpack:"tick"`
	State       string   `json:"state" msgpack:"state"`
	PaddleHit   bool     `json:"paddleHit" msgpack:"paddleHit"`
	Destroyed   []uint32 `json:"destroyed,omitempty" msgpack:"destroyed,omitempty"`
	FloorMiss   bool     `json:"floorMiss" msgpack:"floorMiss"`
	Misses      int      `json:"misses" msgpack:"misses"`
	TargetsLeft int      `json:"targetsLeft" msgpack:"targetsLeft"`
	Cues        []string `json:"cues" msgpack:"cues"`
}

// PhaseEvent is the payload of game:phase broadcasts
type PhaseEvent struct {
	From string `json:"from" msgpack:"from"`
	To   string `json:"to" msgpack:"to"`
}

// hubRelay forwards notable simulation events to the hub.
// Broadcast never blocks, so it is safe inside the engine lock.
type hubRelay struct {
	game.NopListener
	hub *WebSocketHub
}

// Listener returns a game.Listener that broadcasts discrete game events
func (h *WebSocketHub) Listener() game.Listener {
	return &hubRelay{hub: h}
}

func (l *hubRelay) TickCompleted(r game.TickReport) {
	cues := audio.CuesFor(r)
	if len(cues) == 0 {
		return
	}
	names := make([]string, len(cues))
	for i, c := range cues {
		names[i] = c.String()
	}

	l.hub.Broadcast(EventTick, TickEvent{
		Tick:        r.Tick,
		State:       r.State.String(),
		PaddleHit:   r.PaddleHit,
		Destroyed:   append([]uint32(nil), r.Destroyed...),
		FloorMiss:   r.FloorMiss,
		Misses:      r.Misses,
		TargetsLeft: r.TargetsLeft,
		Cues:        names,
	})
}

func (l *hubRelay) StateChanged(from, to game.GameState) {
	l.hub.Broadcast(EventStateChanged, PhaseEvent{From: from.String(), To: to.String()})
}
