// Package reload implements the optional live-reload supplement
// (SPEC_FULL.md §3): when enabled, it watches the serving root and
// pushes a reload notification to any directory-listing page holding
// a websocket connection open.
package reload

import (
	"sync"

	"github.com/fasthttp/websocket"
	"github.com/fsnotify/fsnotify"
	"github.com/valyala/fasthttp"
)

// Endpoint is the path the reload websocket is served on. It is only
// registered when the server is started with --watch.
const Endpoint = "/__blazefs_reload"

// Script is inlined into the listing template's <head> when --watch
// is enabled.
const Script = `<script>
(function(){
  var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "` + Endpoint + `");
  ws.onmessage = function(){ location.reload(); };
})();
</script>`

// Hub fans out filesystem change notifications to connected listing
// pages over websocket, adapted from the teacher's WebSocketHub.
type Hub struct {
	upgrader websocket.FastHTTPUpgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewHub builds an empty Hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.FastHTTPUpgrader{
			CheckOrigin: func(ctx *fasthttp.RequestCtx) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Handle upgrades ctx to a websocket and registers the connection
// until it closes.
func (h *Hub) Handle(ctx *fasthttp.RequestCtx) {
	_ = h.upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
		h.mu.Lock()
		h.clients[conn] = struct{}{}
		h.mu.Unlock()

		defer func() {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			conn.Close()
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
}

// Broadcast pushes a reload notification to every connected client.
func (h *Hub) Broadcast() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.WriteMessage(websocket.TextMessage, []byte("reload"))
	}
}

// Watcher watches root for changes and broadcasts on Hub whenever one
// is observed.
type Watcher struct {
	fsw *fsnotify.Watcher
	hub *Hub
}

// NewWatcher starts watching root (recursively is not attempted;
// fsnotify only watches the given directory, matching sfz's own
// shallow reload scope) and wiring events into hub.
func NewWatcher(root string, hub *Hub) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(root); err != nil {
		fsw.Close()
		return nil, err
	}
	w := &Watcher{fsw: fsw, hub: hub}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.hub.Broadcast()
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error { return w.fsw.Close() }
