package observer

import (
	"encoding/json"
	"slices"
	"sync"

	"gaia.world/internal/observerproto"
	"gaia.world/internal/sim/encoding"
	"gaia.world/internal/sim/world"
)

// Hub holds the latest published world state. Publish runs on the simulation
// goroutine; HTTP and websocket handlers only ever read the hub.
type Hub struct {
	mu sync.Mutex

	worldID    string
	rows, cols int
	defaultBg  string

	seq         uint64
	bgRev       uint64
	backgrounds []string
	frame       []byte
	now         int64

	changed chan struct{}
}

func NewHub() *Hub {
	return &Hub{changed: make(chan struct{})}
}

// Publish captures w and wakes every waiting session.
func (h *Hub) Publish(w *world.World) {
	cfg := w.Config()
	bgs := w.Backgrounds()
	views := w.Entities()
	now := w.Now()
	pending := w.Pending()

	h.mu.Lock()
	defer h.mu.Unlock()

	h.worldID = cfg.ID
	h.rows, h.cols = w.Rows(), w.Cols()
	h.defaultBg = cfg.DefaultBackground
	if h.backgrounds == nil || !slices.Equal(h.backgrounds, bgs) {
		h.backgrounds = bgs
		h.bgRev++
	}
	h.seq++
	h.now = now

	b, err := json.Marshal(observerproto.FrameMsg{
		Type:            "FRAME",
		ProtocolVersion: observerproto.Version,
		Seq:             h.seq,
		Now:             now,
		Pending:         pending,
		BackgroundsRev:  h.bgRev,
		Entities:        views,
	})
	if err != nil {
		return
	}
	h.frame = b

	close(h.changed)
	h.changed = make(chan struct{})
}

// Latest returns the newest encoded frame, its sequence number and a channel
// closed on the next Publish.
func (h *Hub) Latest() ([]byte, uint64, <-chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frame, h.seq, h.changed
}

func (h *Hub) Bootstrap() (observerproto.BootstrapResponse, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.seq == 0 {
		return observerproto.BootstrapResponse{}, false
	}
	palette, ids, err := encoding.Palette(h.backgrounds)
	if err != nil {
		return observerproto.BootstrapResponse{}, false
	}
	return observerproto.BootstrapResponse{
		ProtocolVersion:   observerproto.Version,
		WorldID:           h.worldID,
		Rows:              h.rows,
		Cols:              h.cols,
		Now:               h.now,
		DefaultBackground: h.defaultBg,
		BackgroundsRev:    h.bgRev,
		BackgroundPalette: palette,
		BackgroundsRLE:    encoding.EncodeRLE(ids),
	}, true
}
