package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetchState(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"ok", http.StatusOK, `{"world_id":"gaia","now":1500,"entities":7,"pending":4,"digest":"ab12","step_ms":0.25}`, ""},
		{"forbidden", http.StatusForbidden, "forbidden\n", "403"},
		{"not json", http.StatusOK, "<html>", "decode"},
		{"no world", http.StatusOK, `{"now":1}`, "world_id"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/admin/v1/state" || r.Method != http.MethodGet {
					t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
				}
				rw.WriteHeader(tc.status)
				_, _ = rw.Write([]byte(tc.body))
			}))
			defer srv.Close()

			st, err := fetchState(context.Background(), srv.Client(), srv.URL+"/")
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("err=%v want mention of %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("fetchState: %v", err)
			}
			want := worldState{WorldID: "gaia", Now: 1500, Entities: 7, Pending: 4, Digest: "ab12", StepMS: 0.25}
			if st != want {
				t.Fatalf("state=%+v want %+v", st, want)
			}
			if out := formatState(st); !strings.Contains(out, "world     gaia\n") || !strings.Contains(out, "pending   4\n") {
				t.Fatalf("formatState=%q", out)
			}
		})
	}
}

func TestFetchState_EmptyURL(t *testing.T) {
	if _, err := fetchState(context.Background(), http.DefaultClient, "  "); err == nil {
		t.Fatalf("empty url accepted")
	}
}
