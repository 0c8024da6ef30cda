package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"gaia.world/internal/persistence/indexdb"
	"gaia.world/internal/sim/entity"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required unless -db or -run)")
	runDir := fs.String("run", "", "run directory (default: latest run of -world)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	id := fs.String("id", "", "entity id for `entity` and actor filter for `audits`, e.g. E3")
	action := fs.String("action", "", "action filter for `audits`")
	_ = fs.Parse(args)

	q := "ticks"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		dir := strings.TrimSpace(*runDir)
		if dir == "" {
			if strings.TrimSpace(*worldID) == "" {
				fmt.Fprintln(os.Stderr, "missing -world, -run or -db")
				os.Exit(2)
			}
			dir = latestRun(filepath.Join(*dataDir, "worlds", *worldID, "runs"))
			if dir == "" {
				fmt.Fprintln(os.Stderr, "no runs found")
				os.Exit(2)
			}
		}
		path = filepath.Join(dir, "index", "world.sqlite")
	}
	if *limit <= 0 {
		*limit = 20
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := runQuery(context.Background(), db, q, *id, *action, *limit); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runQuery(ctx context.Context, db *sql.DB, q, id, action string, limit int) error {
	switch q {
	case "ticks":
		rows, err := indexdb.RecentTicks(ctx, db, limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		for _, r := range rows {
			printJSON(r)
		}

	case "audits":
		actor, err := normalizeID(id, false)
		if err != nil {
			return err
		}
		rows, err := indexdb.Audits(ctx, db, actor, strings.ToUpper(action), limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		for _, r := range rows {
			printJSON(r)
		}

	case "entity":
		eid, err := normalizeID(id, true)
		if err != nil {
			return err
		}
		evs, err := indexdb.EntityEvents(ctx, db, eid, limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		for _, r := range evs {
			printJSON(r)
		}
		audits, err := indexdb.Audits(ctx, db, eid, "", limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		for _, r := range audits {
			printJSON(r)
		}

	case "meta":
		for _, k := range []string{"world_id", "epoch", "scenario"} {
			v, err := indexdb.Meta(ctx, db, k)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			printJSON(map[string]string{"key": k, "value": v})
		}

	default:
		return fmt.Errorf("unknown query %q (ticks|audits|entity|meta)", q)
	}
	return nil
}

// normalizeID accepts "E3" or "3" and returns "E3".
func normalizeID(s string, required bool) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		if required {
			return "", fmt.Errorf("missing -id")
		}
		return "", nil
	}
	id, ok := entity.ParseID(s)
	if !ok {
		return "", fmt.Errorf("bad entity id %q", s)
	}
	return id.String(), nil
}
