package world

type WorldConfig struct {
	ID   string
	Rows int
	Cols int

	// DefaultBackground is the tag reported for cells with no explicit background.
	DefaultBackground string

	// Epoch is the timestamp the initial entities were loaded at. It is only
	// recorded in journal entries so a replay can rebuild the same schedule.
	Epoch int64
}

func (c *WorldConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = "world_1"
	}
	// 640x480 viewport of 32px tiles, world twice as large in each direction.
	if c.Rows <= 0 {
		c.Rows = 30
	}
	if c.Cols <= 0 {
		c.Cols = 40
	}
	if c.DefaultBackground == "" {
		c.DefaultBackground = "background_default"
	}
}
