package admin

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mnohosten/laura-pool/pool"
)

// upgrader mirrors the teacher's handlers.upgrader: generous buffers,
// origin checking left to whatever reverse proxy sits in front of
// this in production.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Event is one lifecycle notification broadcast to every connected
// /events client.
type Event struct {
	Type    string `json:"type"` // "connect", "checkout", "checkin"
	Session string `json:"session"`
	Time    int64  `json:"time"`
}

// EventBroadcaster fans out a pool's connect/checkout/checkin
// lifecycle (spec §4.5) to any number of WebSocket subscribers. It
// satisfies pool.ConnectObserver[S], pool.CheckoutObserver[S], and
// pool.CheckinObserver[S] — register one with Pool.AddListener and
// mount it at /events.
type EventBroadcaster[S pool.Session] struct {
	mu    sync.RWMutex
	conns map[string]*websocket.Conn
	next  int
}

// NewEventBroadcaster returns an empty broadcaster ready to register
// against a pool and mount as an http.Handler.
func NewEventBroadcaster[S pool.Session]() *EventBroadcaster[S] {
	return &EventBroadcaster[S]{conns: make(map[string]*websocket.Conn)}
}

// OnConnect satisfies pool.ConnectObserver[S].
func (b *EventBroadcaster[S]) OnConnect(session S, record *pool.Record[S]) {
	b.broadcast(Event{Type: "connect", Session: describe(session), Time: time.Now().Unix()})
}

// OnCheckout satisfies pool.CheckoutObserver[S]. It never asks for a
// retry — it's an observer, not a gatekeeper.
func (b *EventBroadcaster[S]) OnCheckout(session S, record *pool.Record[S], handle *pool.Handle[S]) error {
	b.broadcast(Event{Type: "checkout", Session: describe(session), Time: time.Now().Unix()})
	return nil
}

// OnCheckin satisfies pool.CheckinObserver[S].
func (b *EventBroadcaster[S]) OnCheckin(session S, record *pool.Record[S]) {
	b.broadcast(Event{Type: "checkin", Session: describe(session), Time: time.Now().Unix()})
}

// ServeHTTP upgrades the request to a WebSocket and registers it as a
// subscriber until the client disconnects. Mirrors
// pkg/server/handlers/websocket.go's upgrade-then-register shape, with
// no inbound request to read: this is a broadcast-only feed.
func (b *EventBroadcaster[S]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("laura-pool admin: websocket upgrade: %v", err)
		return
	}

	id := b.register(conn)
	defer b.unregister(id)

	// Drain and discard inbound control frames so the read deadline
	// logic in gorilla/websocket notices a closed connection.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (b *EventBroadcaster[S]) register(conn *websocket.Conn) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	id := fmt.Sprintf("ws-%d", b.next)
	b.conns[id] = conn
	return id
}

func (b *EventBroadcaster[S]) unregister(id string) {
	b.mu.Lock()
	conn, ok := b.conns[id]
	delete(b.conns, id)
	b.mu.Unlock()
	if ok {
		_ = conn.Close()
	}
}

func (b *EventBroadcaster[S]) broadcast(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, conn := range b.conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("laura-pool admin: dropping subscriber %s: %v", id, err)
		}
	}
}

// describe renders a session for display without assuming any
// capability beyond pool.Session — a %v of a struct pointer such as
// *wireclient.Conn prints &{...} with its field values, which is good
// enough for "which connection" at a glance; backends that implement
// fmt.Stringer get a nicer line for free.
func describe(session any) string {
	return fmt.Sprintf("%v", session)
}
