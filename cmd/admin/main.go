package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	persistlog "gaia.world/internal/persistence/log"
	"gaia.world/internal/sim/world"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "audit":
			auditCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

// listCmd prints the recorded runs of a world, newest last.
func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (optional)")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "worlds")
	if *worldID != "" {
		base = filepath.Join(base, *worldID, "runs")
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

// auditCmd scans the compressed audit journal of a run.
func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	runDir := fs.String("run", "", "run directory (default: latest run of -world)")
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id")
	actor := fs.String("actor", "", "actor filter, e.g. E3")
	action := fs.String("action", "", "action filter, e.g. COLLECT")
	rect := fs.String("rect", "", "cell filter: c1,r1:c2,r2 (inclusive)")
	sinceNow := fs.Int64("since_now", 0, "only entries at or after this timestamp")
	_ = fs.Parse(args)

	dir := strings.TrimSpace(*runDir)
	if dir == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -run or -world")
			os.Exit(2)
		}
		dir = latestRun(filepath.Join(*dataDir, "worlds", *worldID, "runs"))
		if dir == "" {
			fmt.Fprintln(os.Stderr, "no runs found")
			os.Exit(2)
		}
	}

	var (
		min, max [2]int
		useRect  bool
	)
	if strings.TrimSpace(*rect) != "" {
		var err error
		min, max, err = parseRect(*rect)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bad -rect:", err)
			os.Exit(2)
		}
		useRect = true
	}

	f := auditFilter{Actor: *actor, Action: strings.ToUpper(*action), SinceNow: *sinceNow, UseRect: useRect, Min: min, Max: max}
	recs, err := readAudit(dir, f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read audit:", err)
		os.Exit(1)
	}
	for _, r := range recs {
		printJSON(r)
	}
}

type auditFilter struct {
	Actor    string
	Action   string
	SinceNow int64
	UseRect  bool
	Min, Max [2]int
}

func (f auditFilter) match(e world.AuditEntry) bool {
	if f.Actor != "" && e.Actor != f.Actor {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if e.Now < f.SinceNow {
		return false
	}
	if f.UseRect && !withinRect(e.Pos, f.Min, f.Max) {
		return false
	}
	return true
}

func readAudit(runDir string, f auditFilter) ([]world.AuditEntry, error) {
	files, err := persistlog.ListFiles(filepath.Join(runDir, "audit"), "audit")
	if err != nil {
		return nil, err
	}
	out := make([]world.AuditEntry, 0, 256)
	err = persistlog.ReadLines(files, func(line []byte) error {
		var e world.AuditEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if f.match(e) {
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

func withinRect(pos [2]int, min, max [2]int) bool {
	return pos[0] >= min[0] && pos[0] <= max[0] &&
		pos[1] >= min[1] && pos[1] <= max[1]
}

func parseRect(s string) (min, max [2]int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return min, max, fmt.Errorf("expected c1,r1:c2,r2")
	}
	a, err := parseCell(parts[0])
	if err != nil {
		return min, max, err
	}
	b, err := parseCell(parts[1])
	if err != nil {
		return min, max, err
	}
	for i := 0; i < 2; i++ {
		if a[i] <= b[i] {
			min[i], max[i] = a[i], b[i]
		} else {
			min[i], max[i] = b[i], a[i]
		}
	}
	return min, max, nil
}

func parseCell(s string) ([2]int, error) {
	var out [2]int
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return out, fmt.Errorf("expected c,r")
	}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return out, err
		}
		out[i] = n
	}
	return out, nil
}

// latestRun picks the run directory with the largest epoch.
func latestRun(runsDir string) string {
	ents, err := os.ReadDir(runsDir)
	if err != nil {
		return ""
	}
	var epochs []int64
	for _, e := range ents {
		if !e.IsDir() {
			continue
		}
		n, err := strconv.ParseInt(e.Name(), 10, 64)
		if err != nil {
			continue
		}
		epochs = append(epochs, n)
	}
	if len(epochs) == 0 {
		return ""
	}
	sort.Slice(epochs, func(i, j int) bool { return epochs[i] < epochs[j] })
	return filepath.Join(runsDir, strconv.FormatInt(epochs[len(epochs)-1], 10))
}

func printJSON(v any) {
	b, _ := json.Marshal(v)
	fmt.Println(string(b))
}
