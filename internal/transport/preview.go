// SPDX-License-Identifier: MIT
package transport

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"waveviz/internal/draw"
	"waveviz/internal/options"
)

//go:embed preview.html
var previewPage []byte

// Client message types.
const (
	MsgResize  = "resize"
	MsgOptions = "options"
	MsgResume  = "resume"
)

// ClientMessage is what the preview page sends over the socket.
type ClientMessage struct {
	Type       string           `json:"type"`
	Width      float64          `json:"width,omitempty"`
	Height     float64          `json:"height,omitempty"`
	PixelRatio float64          `json:"dpr,omitempty"`
	Options    *options.Partial `json:"options,omitempty"`
}

type event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// PreviewHandlers receive client requests. They run on connection reader
// goroutines and must hand work to the frame loop rather than touch
// visualizer state directly.
type PreviewHandlers struct {
	OnOptions func(options.Partial)
	OnResume  func()
}

// Preview serves the browser preview page and streams frames to it over a
// WebSocket. It is the Surface the visualizer draws on: the most recently
// reported browser canvas size is the displayed size.
//
// Thread Safety:
//   - One broadcast goroutine writes to every connection
//   - Present and Send only hand buffers to it; a slow client drops frames
type Preview struct {
	addr     string
	handlers PreviewHandlers
	upgrader websocket.Upgrader
	server   *http.Server
	listener net.Listener

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]struct{}

	sizeMu       sync.Mutex
	width        float64
	height       float64
	pixelRatio   float64
	backW, backH int
	listeners    map[uint64]func()
	nextListener uint64

	frameMu sync.Mutex
	pending []byte // latest encoded frame, written by Present
	sending []byte // frame being written to clients
	notify  chan struct{}
	events  chan []byte
	done    chan struct{}
	wg      sync.WaitGroup
	closeMu sync.Mutex
	closed  bool
}

// NewPreview creates a preview server for addr ("host:port"). Call Start to
// listen.
func NewPreview(addr string, h PreviewHandlers) *Preview {
	return &Preview{
		addr:     addr,
		handlers: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // local preview tool
			},
		},
		clients:    make(map[*websocket.Conn]struct{}),
		pixelRatio: 1,
		listeners:  make(map[uint64]func()),
		notify:     make(chan struct{}, 1),
		events:     make(chan []byte, 32),
		done:       make(chan struct{}),
	}
}

// Start listens on the configured address and serves in the background.
func (p *Preview) Start() error {
	ln, err := net.Listen("tcp", p.addr)
	if err != nil {
		return fmt.Errorf("preview listen on %s: %w", p.addr, err)
	}
	p.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/", p.handleIndex)
	mux.HandleFunc("/ws", p.handleWebSocket)
	p.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	p.wg.Add(2)
	go func() {
		defer p.wg.Done()
		logger.Infof("preview listening on http://%s", ln.Addr())
		if err := p.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("preview server: %v", err)
		}
	}()
	go func() {
		defer p.wg.Done()
		p.handleBroadcasts()
	}()
	return nil
}

// Addr returns the listening address, or the configured one before Start.
func (p *Preview) Addr() string {
	if p.listener != nil {
		return p.listener.Addr().String()
	}
	return p.addr
}

func (p *Preview) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(previewPage)
}

func (p *Preview) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("upgrade: %v", err)
		return
	}

	p.clientsMu.Lock()
	p.clients[conn] = struct{}{}
	total := len(p.clients)
	p.clientsMu.Unlock()
	logger.Infof("client connected, total: %d", total)

	go p.readClient(conn)
}

func (p *Preview) readClient(conn *websocket.Conn) {
	defer p.dropClient(conn)
	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			var syntax *json.SyntaxError
			var typ *json.UnmarshalTypeError
			if errors.As(err, &syntax) || errors.As(err, &typ) {
				logger.Warnf("bad client message: %v", err)
				continue
			}
			return
		}
		p.dispatch(msg)
	}
}

func (p *Preview) dispatch(msg ClientMessage) {
	switch msg.Type {
	case MsgResize:
		p.setSize(msg.Width, msg.Height, msg.PixelRatio)
	case MsgOptions:
		if msg.Options != nil && p.handlers.OnOptions != nil {
			p.handlers.OnOptions(*msg.Options)
		}
	case MsgResume:
		if p.handlers.OnResume != nil {
			p.handlers.OnResume()
		}
	default:
		logger.Debugf("ignoring client message %q", msg.Type)
	}
}

func (p *Preview) dropClient(conn *websocket.Conn) {
	p.clientsMu.Lock()
	_, ok := p.clients[conn]
	delete(p.clients, conn)
	total := len(p.clients)
	p.clientsMu.Unlock()
	conn.Close()
	if ok {
		logger.Infof("client disconnected, total: %d", total)
	}
}

// Clients returns the number of connected clients.
func (p *Preview) Clients() int {
	p.clientsMu.Lock()
	defer p.clientsMu.Unlock()
	return len(p.clients)
}

func (p *Preview) setSize(w, h, dpr float64) {
	p.sizeMu.Lock()
	p.width, p.height = w, h
	if dpr > 0 {
		p.pixelRatio = dpr
	}
	fns := make([]func(), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.sizeMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Size reports the canvas size last sent by a client.
func (p *Preview) Size() (width, height, pixelRatio float64) {
	p.sizeMu.Lock()
	defer p.sizeMu.Unlock()
	return p.width, p.height, p.pixelRatio
}

// SetBackingSize records the resolution frames are drawn at. The page sizes
// its canvas from each frame.
func (p *Preview) SetBackingSize(width, height int) {
	p.sizeMu.Lock()
	p.backW, p.backH = width, height
	p.sizeMu.Unlock()
}

// BackingSize returns the size set by SetBackingSize.
func (p *Preview) BackingSize() (width, height int) {
	p.sizeMu.Lock()
	defer p.sizeMu.Unlock()
	return p.backW, p.backH
}

// OnResize registers fn for client size reports.
func (p *Preview) OnResize(fn func()) (detach func()) {
	p.sizeMu.Lock()
	p.nextListener++
	id := p.nextListener
	p.listeners[id] = fn
	p.sizeMu.Unlock()
	return func() {
		p.sizeMu.Lock()
		delete(p.listeners, id)
		p.sizeMu.Unlock()
	}
}

// Present encodes l and queues it for every client. Frames not yet written
// when the next one arrives are replaced.
func (p *Preview) Present(l *draw.List) error {
	p.frameMu.Lock()
	p.pending = l.AppendJSON(p.pending[:0])
	p.frameMu.Unlock()
	select {
	case p.notify <- struct{}{}:
	default:
	}
	return nil
}

// Send broadcasts data as a {"type":"event","data":...} message. Events are
// dropped when the queue is full.
func (p *Preview) Send(data any) error {
	msg, err := json.Marshal(event{Type: "event", Data: data})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	select {
	case p.events <- msg:
	default:
		logger.Debugf("event queue full, dropping %T", data)
	}
	return nil
}

// handleBroadcasts sends frames and events to all clients.
func (p *Preview) handleBroadcasts() {
	for {
		select {
		case <-p.done:
			return
		case msg := <-p.events:
			p.broadcast(msg)
		case <-p.notify:
			p.frameMu.Lock()
			p.pending, p.sending = p.sending[:0], p.pending
			p.frameMu.Unlock()
			p.broadcast(p.sending)
		}
	}
}

func (p *Preview) broadcast(msg []byte) {
	p.clientsMu.Lock()
	defer p.clientsMu.Unlock()
	for client := range p.clients {
		client.SetWriteDeadline(time.Now().Add(time.Second))
		if err := client.WriteMessage(websocket.TextMessage, msg); err != nil {
			logger.Warnf("error sending to client: %v", err)
			client.Close()
			delete(p.clients, client)
		}
	}
}

// Close shuts down the server and disconnects every client.
func (p *Preview) Close() error {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return nil
	}
	p.closed = true
	p.closeMu.Unlock()

	close(p.done)
	p.clientsMu.Lock()
	for client := range p.clients {
		client.Close()
	}
	clear(p.clients)
	p.clientsMu.Unlock()

	var err error
	if p.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err = p.server.Shutdown(ctx)
	}
	p.wg.Wait()
	logger.Infof("preview closed")
	return err
}

var _ Transport = (*Preview)(nil)
