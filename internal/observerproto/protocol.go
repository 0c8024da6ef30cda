package observerproto

import "gaia.world/internal/sim/entity"

// Version is the observer protocol version.
const Version = "1"

// Client -> Server. First message on the observer WS connection; may be re-sent to change the rate.
type SubscribeMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	MaxHz           float64 `json:"max_hz,omitempty"`
}

// HTTP response for GET /v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion   string   `json:"protocol_version"`
	WorldID           string   `json:"world_id"`
	Rows              int      `json:"rows"`
	Cols              int      `json:"cols"`
	Now               int64    `json:"now"`
	DefaultBackground string   `json:"default_background"`
	BackgroundsRev    uint64   `json:"backgrounds_rev"`

	// Row-major cell tags: base64 varint (palette index, run length) pairs.
	BackgroundPalette []string `json:"background_palette"`
	BackgroundsRLE    string   `json:"backgrounds_rle"`
}

// Server -> Client. Latest world state, sent at most MaxHz times per second.
// Clients refetch the bootstrap when BackgroundsRev moves.
type FrameMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	Seq             uint64        `json:"seq"`
	Now             int64         `json:"now"`
	Pending         int           `json:"pending"`
	BackgroundsRev  uint64        `json:"backgrounds_rev"`
	Entities        []entity.View `json:"entities"`
}
