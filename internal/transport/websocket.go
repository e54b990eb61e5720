// SPDX-License-Identifier: MIT
package transport

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io/fs"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"specview/internal/decode"
	applog "specview/internal/log"
	"specview/internal/render"
	"specview/internal/spectrogram"
)

const (
	// FrameHeaderSize is the length of the binary image header: width and
	// height as uint32, max frequency and duration as float32, big-endian.
	FrameHeaderSize = 16

	clientQueueSize = 16
	writeWait       = 10 * time.Second
)

// StatusMessage is the JSON text frame sent for every transition.
type StatusMessage struct {
	Type         string  `json:"type"`
	Generation   uint64  `json:"generation"`
	Width        int     `json:"width,omitempty"`
	Height       int     `json:"height,omitempty"`
	MaxFrequency float64 `json:"maxFrequency,omitempty"`
	SampleRate   float64 `json:"sampleRate,omitempty"`
	Duration     float64 `json:"duration,omitempty"`
	HopSize      int     `json:"hopSize,omitempty"`
	FFTSize      int     `json:"fftSize,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// ClientMessage is what browsers send. Only "select" is understood.
type ClientMessage struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

type outbound struct {
	kind int
	data []byte
}

type client struct {
	conn *websocket.Conn
	send chan outbound
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
		c.conn.Close()
	})
}

// writeLoop is the only goroutine that writes to the connection.
func (c *client) writeLoop() {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(msg.kind, msg.data); err != nil {
			applog.Debugf("WebSocketTransport: Write failed: %v", err)
			c.conn.Close()
			for range c.send {
				// drain until the client is unregistered
			}
			return
		}
	}
}

// WebSocketTransport serves spectrogram state to browser clients. Each
// transition is broadcast as a JSON StatusMessage; a delivered image is
// followed by one binary frame (see EncodeFrame). Clients that fall behind
// have messages dropped rather than stalling the scheduler. A client that
// connects late receives the latest state immediately.
type WebSocketTransport struct {
	addr     string
	root     string
	upgrader websocket.Upgrader
	server   *http.Server

	mu       sync.Mutex // guards clients, replay, latest
	clients  map[*client]bool
	replay   []outbound
	latest   *spectrogram.Image
	onSelect func(path string)
}

// NewWebSocketTransport creates a transport for addr. Files offered to
// clients are looked up under root. Call Start to begin listening, or
// mount Handler on an existing server.
func NewWebSocketTransport(addr, root string) *WebSocketTransport {
	return &WebSocketTransport{
		addr: addr,
		root: root,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // local tool, any origin
			},
		},
		clients: make(map[*client]bool),
	}
}

// SetSelectHandler registers fn to be called, on its own goroutine, with
// the absolute path of a file a client asked to analyse.
func (wst *WebSocketTransport) SetSelectHandler(fn func(path string)) {
	wst.mu.Lock()
	wst.onSelect = fn
	wst.mu.Unlock()
}

// Handler returns the HTTP routes: /ws for the socket, /files for the list
// of analysable files and /image.png for the latest delivered image.
func (wst *WebSocketTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wst.handleWebSocket)
	mux.HandleFunc("/files", wst.handleFiles)
	mux.HandleFunc("/image.png", wst.handleImage)
	return mux
}

// Start begins serving on the configured address.
func (wst *WebSocketTransport) Start() {
	wst.server = &http.Server{
		Addr:    wst.addr,
		Handler: wst.Handler(),
	}

	go func() {
		applog.Infof("WebSocketTransport: Starting WebSocket server on %s", wst.addr)
		if err := wst.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Errorf("WebSocketTransport: Server error: %v", err)
		}
	}()
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("WebSocketTransport: Upgrade error: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan outbound, clientQueueSize)}

	// Queue the current state before registering, under the same lock as
	// broadcasts, so the client sees it ahead of anything newer.
	wst.mu.Lock()
	for _, msg := range wst.replay {
		c.send <- msg
	}
	wst.clients[c] = true
	total := len(wst.clients)
	wst.mu.Unlock()
	applog.Infof("WebSocketTransport: Client connected, total: %d", total)

	go c.writeLoop()
	wst.readLoop(c)
}

// readLoop handles client requests until the connection drops.
func (wst *WebSocketTransport) readLoop(c *client) {
	defer func() {
		wst.mu.Lock()
		delete(wst.clients, c)
		total := len(wst.clients)
		wst.mu.Unlock()
		c.close()
		applog.Infof("WebSocketTransport: Client disconnected, total: %d", total)
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				applog.Warnf("WebSocketTransport: Ignoring malformed client message: %v", err)
				continue
			}
			return
		}

		if msg.Type != "select" {
			applog.Debugf("WebSocketTransport: Ignoring client message type %q", msg.Type)
			continue
		}

		path, err := wst.resolve(msg.Path)
		if err != nil {
			applog.Warnf("WebSocketTransport: Rejected selection %q: %v", msg.Path, err)
			continue
		}

		wst.mu.Lock()
		fn := wst.onSelect
		wst.mu.Unlock()
		if fn != nil {
			go fn(path)
		}
	}
}

// resolve maps a client-supplied relative path onto a supported file under
// root. Paths cannot climb out of root.
func (wst *WebSocketTransport) resolve(rel string) (string, error) {
	if rel == "" {
		return "", errors.New("empty path")
	}
	path := filepath.Join(wst.root, filepath.Clean(string(filepath.Separator)+rel))
	if !decode.Supported(path) {
		return "", decode.ErrUnsupportedFormat
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", errors.New("is a directory")
	}
	return path, nil
}

// Files lists analysable files under root as slash-separated relative
// paths.
func (wst *WebSocketTransport) Files() ([]string, error) {
	var files []string
	err := filepath.WalkDir(wst.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !decode.Supported(path) {
			return nil
		}
		rel, err := filepath.Rel(wst.root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	sort.Strings(files)
	return files, err
}

func (wst *WebSocketTransport) handleFiles(w http.ResponseWriter, r *http.Request) {
	files, err := wst.Files()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(files)
}

func (wst *WebSocketTransport) handleImage(w http.ResponseWriter, r *http.Request) {
	wst.mu.Lock()
	img := wst.latest
	wst.mu.Unlock()

	if img == nil {
		http.Error(w, "no spectrogram yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := render.WritePNG(w, img); err != nil {
		applog.Warnf("WebSocketTransport: PNG encode failed: %v", err)
	}
}

// broadcast queues msgs for every client and records them as the state
// replayed to new clients. Full client queues drop the message.
func (wst *WebSocketTransport) broadcast(img *spectrogram.Image, msgs ...outbound) {
	wst.mu.Lock()
	defer wst.mu.Unlock()

	wst.replay = msgs
	if img != nil {
		wst.latest = img
	}

	for c := range wst.clients {
		for _, msg := range msgs {
			select {
			case c.send <- msg:
			default:
				applog.Debugf("WebSocketTransport: Client queue full, message dropped")
			}
		}
	}
}

func textMessage(status StatusMessage) outbound {
	data, err := json.Marshal(status)
	if err != nil {
		// StatusMessage has only plain fields; this cannot fail.
		panic(err)
	}
	return outbound{kind: websocket.TextMessage, data: data}
}

func (wst *WebSocketTransport) Loading(generation uint64) {
	wst.broadcast(nil, textMessage(StatusMessage{Type: "loading", Generation: generation}))
}

func (wst *WebSocketTransport) Deliver(generation uint64, img *spectrogram.Image) {
	status := textMessage(StatusMessage{
		Type:         "delivered",
		Generation:   generation,
		Width:        img.Width,
		Height:       img.Height,
		MaxFrequency: img.MaxFrequency,
		SampleRate:   img.SampleRate,
		Duration:     img.Duration,
		HopSize:      img.HopSize,
		FFTSize:      img.FFTSize,
	})
	frame := outbound{kind: websocket.BinaryMessage, data: EncodeFrame(img)}
	wst.broadcast(img, status, frame)
}

func (wst *WebSocketTransport) Fail(generation uint64, err error) {
	wst.broadcast(nil, textMessage(StatusMessage{Type: "failed", Generation: generation, Error: err.Error()}))
}

// ClientCount returns the number of connected clients.
func (wst *WebSocketTransport) ClientCount() int {
	wst.mu.Lock()
	defer wst.mu.Unlock()
	return len(wst.clients)
}

// Close disconnects every client and stops the server if Start was called.
func (wst *WebSocketTransport) Close() error {
	applog.Infof("WebSocketTransport: Closing server")

	wst.mu.Lock()
	for c := range wst.clients {
		c.close()
	}
	wst.clients = make(map[*client]bool)
	wst.mu.Unlock()

	if wst.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return wst.server.Shutdown(ctx)
	}
	return nil
}

// EncodeFrame serialises img for the binary WebSocket frame: the
// FrameHeaderSize-byte header followed by the RGBA pixels.
func EncodeFrame(img *spectrogram.Image) []byte {
	buf := make([]byte, FrameHeaderSize+len(img.Pixels))
	binary.BigEndian.PutUint32(buf[0:4], uint32(img.Width))
	binary.BigEndian.PutUint32(buf[4:8], uint32(img.Height))
	binary.BigEndian.PutUint32(buf[8:12], math.Float32bits(float32(img.MaxFrequency)))
	binary.BigEndian.PutUint32(buf[12:16], math.Float32bits(float32(img.Duration)))
	copy(buf[FrameHeaderSize:], img.Pixels)
	return buf
}

// DecodeFrame is the inverse of EncodeFrame. The returned image shares
// data's pixel bytes.
func DecodeFrame(data []byte) (*spectrogram.Image, error) {
	if len(data) < FrameHeaderSize {
		return nil, errors.New("frame shorter than header")
	}
	img := &spectrogram.Image{
		Width:        int(binary.BigEndian.Uint32(data[0:4])),
		Height:       int(binary.BigEndian.Uint32(data[4:8])),
		MaxFrequency: float64(math.Float32frombits(binary.BigEndian.Uint32(data[8:12]))),
		Duration:     float64(math.Float32frombits(binary.BigEndian.Uint32(data[12:16]))),
		Pixels:       data[FrameHeaderSize:],
	}
	if len(img.Pixels) != img.Width*img.Height*4 {
		return nil, errors.New("frame pixel count does not match header")
	}
	img.SampleRate = img.MaxFrequency * 2
	return img, nil
}

// Ensure WebSocketTransport satisfies the interface
var _ Transport = (*WebSocketTransport)(nil)
