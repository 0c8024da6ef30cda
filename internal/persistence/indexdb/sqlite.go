package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"gaia.world/internal/sim/world"
)

// SQLiteIndex is a queryable secondary index over the tick and audit streams.
// Writes are queued and applied by a single goroutine; the JSONL journal stays
// the source of truth, so a full queue drops entries instead of blocking.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick  atomic.Uint64
	dropAudit atomic.Uint64
	dropMeta  atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqAudit
	reqMeta
)

type req struct {
	kind reqKind

	tick  world.TickLogEntry
	audit world.AuditEntry
	key   string
	value string

	// Non-nil for Sync barriers.
	done chan struct{}
}

type Stats struct {
	QueueDepth     int    `json:"queue_depth"`
	QueueCapacity  int    `json:"queue_capacity"`
	DropTickTotal  uint64 `json:"drop_tick_total"`
	DropAuditTotal uint64 `json:"drop_audit_total"`
	DropMetaTotal  uint64 `json:"drop_meta_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 65536)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, queue),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			now INTEGER PRIMARY KEY,
			digest TEXT NOT NULL,
			events INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			now INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			entity TEXT NOT NULL,
			kind TEXT NOT NULL,
			at INTEGER NOT NULL,
			PRIMARY KEY (now, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_entity_now ON events(entity, now);`,
		`CREATE TABLE IF NOT EXISTS audits (
			now INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			kind TEXT,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			target TEXT,
			count INTEGER NOT NULL,
			reason TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (now, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_actor_now ON audits(actor, now);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_action_now ON audits(action, now);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) DB() *sql.DB { return s.db }

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:     len(s.ch),
		QueueCapacity:  cap(s.ch),
		DropTickTotal:  s.dropTick.Load(),
		DropAuditTotal: s.dropAudit.Load(),
		DropMetaTotal:  s.dropMeta.Load(),
	}
}

func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
		s.dropTick.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteAudit(entry world.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: entry}:
	default:
		s.dropAudit.Add(1)
	}
	return nil
}

// SetMeta records a key/value pair (world id, epoch, scenario path).
func (s *SQLiteIndex) SetMeta(key, value string) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqMeta, key: key, value: value}:
	default:
		s.dropMeta.Add(1)
	}
}

// Sync blocks until everything queued before the call is committed.
func (s *SQLiteIndex) Sync(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(now,digest,events,raw_json) VALUES(?,?,?,?)`)
	insertEvent, _ := s.db.Prepare(`INSERT OR REPLACE INTO events(now,seq,entity,kind,at) VALUES(?,?,?,?,?)`)
	insertAudit, _ := s.db.Prepare(`INSERT OR REPLACE INTO audits(now,seq,actor,action,kind,x,y,target,count,reason,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	insertMeta, _ := s.db.Prepare(`INSERT OR REPLACE INTO meta(key,value) VALUES(?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTick, insertEvent, insertAudit, insertMeta} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		lastAuditNow int64 = -1
		auditSeq     int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil {
			return false
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		if r.done != nil {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			b, _ := json.Marshal(r.tick)
			if !exec(insertTick, r.tick.Now, r.tick.Digest, len(r.tick.Events), string(b)) {
				continue
			}
			for _, ev := range r.tick.Events {
				if !exec(insertEvent, r.tick.Now, int64(ev.Seq), ev.Entity.String(), ev.Kind, ev.At) {
					break
				}
			}

		case reqAudit:
			a := r.audit
			if a.Now != lastAuditNow {
				lastAuditNow = a.Now
				auditSeq = 0
			}
			seq := auditSeq
			auditSeq++
			raw, _ := json.Marshal(a)
			exec(insertAudit, a.Now, seq, a.Actor, a.Action, a.Kind, a.Pos[0], a.Pos[1], a.Target, a.Count, a.Reason, string(raw))

		case reqMeta:
			exec(insertMeta, r.key, r.value)
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
