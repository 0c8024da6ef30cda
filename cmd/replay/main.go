package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	persistlog "gaia.world/internal/persistence/log"
	"gaia.world/internal/sim/scenario"
	"gaia.world/internal/sim/tuning"
	"gaia.world/internal/sim/world"
)

type runInfo struct {
	WorldID  string `json:"world_id"`
	Epoch    int64  `json:"epoch"`
	Scenario string `json:"scenario"`
	Tuning   string `json:"tuning"`
}

type options struct {
	RunDir   string
	Scenario string
	Tuning   string
	FromNow  int64
	ToNow    int64
}

type result struct {
	WorldID  string
	Epoch    int64
	Ticks    int
	Verified int
	LastNow  int64
	Digest   string
}

func main() {
	var o options
	flag.StringVar(&o.RunDir, "run", "", "run directory (data/worlds/<id>/runs/<epoch>)")
	flag.StringVar(&o.Scenario, "scenario", "", "scenario yaml (default: from run.json)")
	flag.StringVar(&o.Tuning, "tuning", "", "tuning yaml (default: from run.json)")
	flag.Int64Var(&o.FromNow, "from_now", 0, "start verifying digests at this timestamp (inclusive, optional)")
	flag.Int64Var(&o.ToNow, "to_now", 0, "stop after this timestamp (inclusive, optional)")
	flag.Parse()

	if strings.TrimSpace(o.RunDir) == "" {
		fmt.Fprintln(os.Stderr, "missing -run")
		os.Exit(2)
	}

	res, err := replay(o)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: world=%s epoch=%d ticks=%d verified=%d last_now=%d digest=%s\n",
		res.WorldID, res.Epoch, res.Ticks, res.Verified, res.LastNow, res.Digest)
}

// replay rebuilds the world recorded in o.RunDir, advances it through every
// journaled timestamp and checks the digest after each one.
func replay(o options) (result, error) {
	var res result

	info, err := readRunInfo(o.RunDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return res, err
	}
	scPath := firstNonEmpty(o.Scenario, info.Scenario)
	if scPath == "" {
		return res, fmt.Errorf("no scenario: pass -scenario or keep run.json")
	}
	tune := tuning.Defaults()
	if tp := firstNonEmpty(o.Tuning, info.Tuning); tp != "" {
		if tune, err = tuning.Load(tp); err != nil {
			return res, fmt.Errorf("load tuning: %w", err)
		}
	}
	sc, err := scenario.Load(scPath)
	if err != nil {
		return res, fmt.Errorf("load scenario: %w", err)
	}

	ticks, err := persistlog.ReadTicks(o.RunDir)
	if err != nil {
		return res, fmt.Errorf("read journal: %w", err)
	}
	if len(ticks) == 0 {
		return res, fmt.Errorf("journal is empty")
	}

	epoch := ticks[0].Epoch
	if info.Epoch != 0 && info.Epoch != epoch {
		return res, fmt.Errorf("epoch mismatch: run.json=%d journal=%d", info.Epoch, epoch)
	}
	w, err := world.New(sc.WorldConfig(tune, epoch))
	if err != nil {
		return res, err
	}
	if ticks[0].WorldID != "" && ticks[0].WorldID != w.Config().ID {
		return res, fmt.Errorf("world id mismatch: scenario=%s journal=%s", w.Config().ID, ticks[0].WorldID)
	}
	if _, err := sc.Apply(w, tune, epoch); err != nil {
		return res, fmt.Errorf("apply scenario: %w", err)
	}

	res.WorldID = w.Config().ID
	res.Epoch = epoch
	for _, t := range ticks {
		if o.ToNow != 0 && t.Now > o.ToNow {
			break
		}
		if err := w.AdvanceTo(t.Now); err != nil {
			return res, fmt.Errorf("advance to %d: %w", t.Now, err)
		}
		res.Ticks++
		res.LastNow = t.Now
		if t.Now < o.FromNow {
			continue
		}
		if got := w.Digest(); got != t.Digest {
			return res, fmt.Errorf("digest mismatch at now=%d: got=%s want=%s", t.Now, got, t.Digest)
		}
		res.Verified++
	}
	res.Digest = w.Digest()
	return res, nil
}

func readRunInfo(runDir string) (runInfo, error) {
	var info runInfo
	b, err := os.ReadFile(filepath.Join(runDir, "run.json"))
	if err != nil {
		return info, err
	}
	err = json.Unmarshal(b, &info)
	return info, err
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
