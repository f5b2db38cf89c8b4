package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/fitplay/internal/auth"
	"github.com/desertthunder/fitplay/internal/sdk"
	"github.com/desertthunder/fitplay/internal/shared"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10

	defaultCallTimeout = 10 * time.Second
)

// offline is delivered to pending calls when their page goes away.
const offline = "offline"

// Opts configures a [Hub].
type Opts struct {
	// Origin is the exact origin the host page is served from. Upgrades from any other origin
	// are refused.
	Origin      string
	Channel     *auth.Channel
	Globals     *sdk.Globals
	CallTimeout time.Duration
	Logger      *log.Logger
}

// Hub owns the connection to the active host page.
type Hub struct {
	origin   string
	channel  *auth.Channel
	globals  *sdk.Globals
	timeout  time.Duration
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu           sync.Mutex
	conn         *conn
	pending      map[string]chan Frame
	scripts      map[string]bool
	objects      map[string]bool
	scriptErrors map[string]func(error)
	spotify      map[string]*spotifyPlayer
	youtube      map[string]*youtubePlayer

	hmu    sync.Mutex
	resets []func()
	hellos []func()

	qmu    sync.Mutex
	queue  []func()
	notify chan struct{}
	stop   chan struct{}
	once   sync.Once
}

type conn struct {
	id   string
	ws   *websocket.Conn
	wmu  sync.Mutex
	done chan struct{}
	once sync.Once
}

func (c *conn) write(f Frame) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteJSON(f)
}

func (c *conn) ping() error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *conn) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// NewHub creates a [Hub] and starts its event dispatcher. Call [Hub.Close] to stop it.
func NewHub(opts Opts) *Hub {
	if opts.Globals == nil {
		opts.Globals = sdk.DefaultGlobals
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	h := &Hub{
		origin:  opts.Origin,
		channel: opts.Channel,
		globals: opts.Globals,
		timeout: opts.CallTimeout,
		logger:  shared.WithLogger(opts.Logger, "component", "bridge"),
		notify:  make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	h.clearLocked()
	go h.dispatch()
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if h.origin == "" {
		return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
	}
	return origin == h.origin
}

// OnReset registers fn to run whenever the active page is replaced or disconnects.
func (h *Hub) OnReset(fn func()) {
	h.hmu.Lock()
	defer h.hmu.Unlock()
	h.resets = append(h.resets, fn)
}

// OnHello registers fn to run on the dispatcher each time a page has announced itself.
func (h *Hub) OnHello(fn func()) {
	h.hmu.Lock()
	defer h.hmu.Unlock()
	h.hellos = append(h.hellos, fn)
}

// Connected reports whether a host page is attached.
func (h *Hub) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn != nil
}

// Close disconnects the active page and stops the dispatcher.
func (h *Hub) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		c := h.conn
		h.conn = nil
		h.mu.Unlock()
		if c != nil {
			c.close()
			h.reset("hub closed")
		}
		close(h.stop)
	})
}

// ServeHTTP upgrades the request and serves the page until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err, "origin", r.Header.Get("Origin"))
		return
	}

	c := &conn{id: uuid.NewString(), ws: ws, done: make(chan struct{})}
	h.activate(c)
	go h.keepalive(c)
	h.read(c)
}

func (h *Hub) activate(c *conn) {
	h.mu.Lock()
	old := h.conn
	h.conn = c
	h.mu.Unlock()

	if old != nil {
		old.close()
		h.reset("replaced by newer page")
	}
	h.logger.Info("host page connected", "conn", c.id)
}

func (h *Hub) keepalive(c *conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.ping(); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (h *Hub) read(c *conn) {
	defer func() {
		c.close()
		h.mu.Lock()
		active := h.conn == c
		if active {
			h.conn = nil
		}
		h.mu.Unlock()
		if active {
			h.reset("page disconnected")
		}
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var f Frame
		if err := c.ws.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("bridge read failed", "error", err)
			}
			return
		}
		h.handle(f)
	}
}

// reset drops all state that belonged to the previous page, then runs the hooks.
func (h *Hub) reset(reason string) {
	h.logger.Info("resetting bridge state", "reason", reason)

	h.mu.Lock()
	pending := h.pending
	h.clearLocked()
	h.mu.Unlock()

	for _, ch := range pending {
		ch <- Frame{Type: EvtResult, Error: offline}
	}
	h.globals.Reset()

	h.hmu.Lock()
	hooks := append([]func(){}, h.resets...)
	h.hmu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// Caller holds h.mu.
func (h *Hub) clearLocked() {
	h.pending = map[string]chan Frame{}
	h.scripts = map[string]bool{}
	h.objects = map[string]bool{}
	h.scriptErrors = map[string]func(error){}
	h.spotify = map[string]*spotifyPlayer{}
	h.youtube = map[string]*youtubePlayer{}
}

// handle routes one inbound frame. Results are delivered inline so a blocked callback never holds
// up a reply; everything else runs on the dispatcher in arrival order.
func (h *Hub) handle(f Frame) {
	switch f.Type {
	case EvtResult:
		h.mu.Lock()
		ch, ok := h.pending[f.ID]
		delete(h.pending, f.ID)
		h.mu.Unlock()
		if ok {
			ch <- f
		}
	case EvtHello:
		var data helloData
		if err := json.Unmarshal(f.Data, &data); err != nil {
			h.logger.Warn("bad hello frame", "error", err)
			return
		}
		h.mu.Lock()
		for _, src := range data.Scripts {
			h.scripts[src] = true
		}
		for _, name := range data.Globals {
			h.objects[name] = true
		}
		h.mu.Unlock()

		h.hmu.Lock()
		hooks := append([]func(){}, h.hellos...)
		h.hmu.Unlock()
		for _, fn := range hooks {
			h.enqueue(fn)
		}
	case EvtGlobalReady:
		var data globalReadyData
		if err := json.Unmarshal(f.Data, &data); err != nil {
			h.logger.Warn("bad global_ready frame", "error", err)
			return
		}
		h.mu.Lock()
		if data.Object != "" {
			h.objects[data.Object] = true
		}
		h.mu.Unlock()
		h.enqueue(func() { h.globals.Fire(data.Callback) })
	case EvtScriptError:
		var data scriptData
		if err := json.Unmarshal(f.Data, &data); err != nil {
			h.logger.Warn("bad script_error frame", "error", err)
			return
		}
		h.mu.Lock()
		fn := h.scriptErrors[data.Src]
		delete(h.scriptErrors, data.Src)
		delete(h.scripts, data.Src)
		h.mu.Unlock()
		if fn != nil {
			h.enqueue(func() { fn(errors.New(data.Message)) })
		}
	case EvtOAuthMessage:
		h.enqueue(func() { h.relayOAuth(f) })
	case EvtTokenRequest:
		go h.answerToken(f)
	case EvtSpotify:
		h.enqueue(func() { h.spotifyEvent(f) })
	case EvtYouTube:
		h.enqueue(func() { h.youtubeEvent(f) })
	default:
		h.logger.Debug("ignoring frame", "type", f.Type)
	}
}

func (h *Hub) enqueue(fn func()) {
	h.qmu.Lock()
	h.queue = append(h.queue, fn)
	h.qmu.Unlock()

	select {
	case h.notify <- struct{}{}:
	default:
	}
}

func (h *Hub) dispatch() {
	for {
		select {
		case <-h.stop:
			return
		case <-h.notify:
		}

		for {
			h.qmu.Lock()
			batch := h.queue
			h.queue = nil
			h.qmu.Unlock()
			if len(batch) == 0 {
				break
			}
			for _, fn := range batch {
				fn()
			}
		}
	}
}

func (h *Hub) active() (*conn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn == nil {
		return nil, shared.ErrBridgeOffline
	}
	return h.conn, nil
}

// send writes f without waiting for a result.
func (h *Hub) send(f Frame) error {
	c, err := h.active()
	if err != nil {
		return err
	}
	return c.write(f)
}

// call writes f and waits for the page's result.
func (h *Hub) call(ctx context.Context, f Frame) (json.RawMessage, error) {
	f.ID = uuid.NewString()
	ch := make(chan Frame, 1)

	h.mu.Lock()
	c := h.conn
	if c == nil {
		h.mu.Unlock()
		return nil, shared.ErrBridgeOffline
	}
	h.pending[f.ID] = ch
	h.mu.Unlock()

	if err := c.write(f); err != nil {
		h.forget(f.ID)
		return nil, fmt.Errorf("%w: %w", shared.ErrBridgeOffline, err)
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	select {
	case reply := <-ch:
		switch reply.Error {
		case "":
			return reply.Data, nil
		case offline:
			return nil, shared.ErrBridgeOffline
		default:
			return nil, fmt.Errorf("%s %s: %s", f.Type, f.Method, reply.Error)
		}
	case <-ctx.Done():
		h.forget(f.ID)
		return nil, fmt.Errorf("%s %s: %w", f.Type, f.Method, ctx.Err())
	}
}

func (h *Hub) forget(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.pending, id)
}
