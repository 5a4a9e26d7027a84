// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tracevm

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	log "github.com/inconshreveable/log15"
)

const (
	hubWriteWait = 5 * time.Second

	FrameMessage     = "frame"
	HighlightMessage = "highlight"
)

var (
	_ View        = (*Hub)(nil)
	_ Highlighter = (*Hub)(nil)
)

// HubMessage is pushed to every websocket client.
type HubMessage struct {
	Type           string          `json:"type"`
	Frame          *TraceFrame     `json:"frame,omitempty"`
	StorageChanges []StorageChange `json:"storageChanges,omitempty"`
	Cursor         int             `json:"cursor"`
	TotalSteps     int             `json:"totalSteps"`
	Line           int             `json:"line,omitempty"`
}

// ControlCommand is sent by websocket clients to drive playback.
type ControlCommand struct {
	Type string `json:"type"`
	Step int    `json:"step,omitempty"`
}

// PlaybackControls is the subset of the controller the hub drives.
type PlaybackControls interface {
	Play() bool
	Pause() bool
	Stop() bool
	StepForward() bool
	StepBack() bool
	Seek(n int) bool
}

// pendingSlot holds the newest undelivered message of one type. [seq]
// orders the slots so a frame and a highlight go out in the order they were
// produced.
type pendingSlot struct {
	data []byte
	seq  uint64
}

// Hub forwards frame and highlight notifications to websocket clients. A
// client connecting late receives the latest frame first. Notifications
// produced faster than the clients are written to are coalesced: only the
// newest frame and the newest highlight are kept, so clients always end on
// the controller's current state.
type Hub struct {
	upgrader websocket.Upgrader
	log      log.Logger

	controlsLock sync.RWMutex
	controls     PlaybackControls

	register chan *websocket.Conn
	remove   chan *websocket.Conn
	quit     chan struct{}

	pendingLock sync.Mutex
	seq         uint64
	frame       pendingSlot
	highlight   pendingSlot
	// wake is signalled whenever a slot is filled
	wake chan struct{}

	closeOnce sync.Once
	done      chan struct{}
}

// NewHub starts a hub. Close stops it.
func NewHub(logger log.Logger) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:      logger,
		register: make(chan *websocket.Conn),
		remove:   make(chan *websocket.Conn),
		quit:     make(chan struct{}),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go h.run()
	return h
}

// Attach sets the controls client commands are dispatched to.
func (h *Hub) Attach(controls PlaybackControls) {
	h.controlsLock.Lock()
	defer h.controlsLock.Unlock()
	h.controls = controls
}

func (h *Hub) run() {
	defer close(h.done)

	clients := make(map[*websocket.Conn]struct{})
	var latest []byte
	broadcast := func(data []byte) {
		for conn := range clients {
			if !h.write(conn, data) {
				delete(clients, conn)
				conn.Close()
			}
		}
	}
	flush := func() {
		frame, highlight := h.takePending()
		if frame != nil {
			latest = frame.data
		}
		switch {
		case frame != nil && highlight != nil && highlight.seq < frame.seq:
			broadcast(highlight.data)
			broadcast(frame.data)
		default:
			if frame != nil {
				broadcast(frame.data)
			}
			if highlight != nil {
				broadcast(highlight.data)
			}
		}
	}
	for {
		select {
		case conn := <-h.register:
			// Flush pending notifications so the replayed frame is current.
			flush()
			clients[conn] = struct{}{}
			if latest != nil && !h.write(conn, latest) {
				delete(clients, conn)
				conn.Close()
			}
		case conn := <-h.remove:
			if _, ok := clients[conn]; ok {
				delete(clients, conn)
				conn.Close()
			}
		case <-h.wake:
			flush()
		case <-h.quit:
			for conn := range clients {
				conn.Close()
			}
			return
		}
	}
}

func (h *Hub) write(conn *websocket.Conn, data []byte) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(hubWriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.log.Warn("failed to send message to websocket client", "err", err)
		return false
	}
	return true
}

// ServeHTTP upgrades the request and reads control commands until the
// client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", "err", err)
		return
	}
	select {
	case h.register <- conn:
	case <-h.quit:
		conn.Close()
		return
	}

	go func() {
		defer func() {
			select {
			case h.remove <- conn:
			case <-h.quit:
			}
		}()
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.log.Warn("websocket error", "err", err)
				}
				return
			}
			var cmd ControlCommand
			if err := json.Unmarshal(message, &cmd); err != nil {
				h.log.Debug("dropping malformed control command", "err", err)
				continue
			}
			h.dispatch(cmd)
		}
	}()
}

func (h *Hub) dispatch(cmd ControlCommand) {
	h.controlsLock.RLock()
	controls := h.controls
	h.controlsLock.RUnlock()
	if controls == nil {
		return
	}

	switch cmd.Type {
	case "play":
		controls.Play()
	case "pause":
		controls.Pause()
	case "stop":
		controls.Stop()
	case "stepForward":
		controls.StepForward()
	case "stepBack":
		controls.StepBack()
	case "seek":
		controls.Seek(cmd.Step)
	default:
		h.log.Debug("unknown control command", "type", cmd.Type)
	}
}

// Render implements View.
func (h *Hub) Render(frame *TraceFrame, changes []StorageChange, cursor, total int) {
	h.send(HubMessage{
		Type:           FrameMessage,
		Frame:          frame,
		StorageChanges: changes,
		Cursor:         cursor,
		TotalSteps:     total,
	}, true)
}

// HighlightLine implements Highlighter.
func (h *Hub) HighlightLine(line int) {
	h.send(HubMessage{Type: HighlightMessage, Line: line}, false)
}

// send never blocks: it is called with the controller's lock held. A message
// replaces any undelivered message of the same type.
func (h *Hub) send(msg HubMessage, isFrame bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to marshal hub message", "err", err)
		return
	}

	h.pendingLock.Lock()
	h.seq++
	slot := pendingSlot{data: data, seq: h.seq}
	if isFrame {
		h.frame = slot
	} else {
		h.highlight = slot
	}
	h.pendingLock.Unlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// takePending empties both slots and returns what they held.
func (h *Hub) takePending() (frame, highlight *pendingSlot) {
	h.pendingLock.Lock()
	defer h.pendingLock.Unlock()

	if h.frame.data != nil {
		f := h.frame
		frame = &f
	}
	if h.highlight.data != nil {
		hl := h.highlight
		highlight = &hl
	}
	h.frame = pendingSlot{}
	h.highlight = pendingSlot{}
	return frame, highlight
}

// Close disconnects every client and stops the hub.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.quit)
		<-h.done
	})
}
