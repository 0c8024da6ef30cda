package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gaia.world/internal/persistence/indexdb"
	"gaia.world/internal/sim/world"
)

type runtimeIndex interface {
	world.TickLogger
	world.AuditLogger
	SetMeta(key, value string)
	Stats() indexdb.Stats
	Close() error
}

func openRuntimeIndex(runDir string, disableDB bool, logger *log.Logger) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("GAIA_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		logger.Printf("index backend disabled (GAIA_INDEX_BACKEND=%s)", backend)
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(runDir, "index", "world.sqlite"))
	default:
		return nil, fmt.Errorf("unsupported GAIA_INDEX_BACKEND: %s", backend)
	}
}
