package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// worldState mirrors the server's /admin/v1/state document.
type worldState struct {
	WorldID  string  `json:"world_id"`
	Now      int64   `json:"now"`
	Entities int     `json:"entities"`
	Pending  int     `json:"pending"`
	Digest   string  `json:"digest"`
	StepMS   float64 `json:"step_ms"`
}

// stateCmd prints the running gaia server's live world counters.
func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", envOr("GAIA_ADMIN_URL", "http://127.0.0.1:8080"), "gaia server base url (env GAIA_ADMIN_URL)")
	timeout := fs.Duration("timeout", 5*time.Second, "request timeout")
	asJSON := fs.Bool("json", false, "print the raw state document")
	_ = fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	st, err := fetchState(ctx, http.DefaultClient, *baseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "state:", err)
		os.Exit(1)
	}
	if *asJSON {
		printJSON(st)
		return
	}
	fmt.Print(formatState(st))
}

func fetchState(ctx context.Context, cl *http.Client, baseURL string) (worldState, error) {
	var st worldState
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return st, fmt.Errorf("empty server url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/admin/v1/state", nil)
	if err != nil {
		return st, err
	}
	resp, err := cl.Do(req)
	if err != nil {
		return st, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return st, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("decode: %w", err)
	}
	if st.WorldID == "" {
		return st, fmt.Errorf("state has no world_id")
	}
	return st, nil
}

func formatState(st worldState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "world     %s\n", st.WorldID)
	fmt.Fprintf(&b, "now_ms    %d\n", st.Now)
	fmt.Fprintf(&b, "entities  %d\n", st.Entities)
	fmt.Fprintf(&b, "pending   %d\n", st.Pending)
	fmt.Fprintf(&b, "digest    %s\n", st.Digest)
	fmt.Fprintf(&b, "step_ms   %.3f\n", st.StepMS)
	return b.String()
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
