package indexdb

import (
	"context"
	"database/sql"
)

type TickRow struct {
	Now    int64  `json:"now"`
	Digest string `json:"digest"`
	Events int    `json:"events"`
}

type AuditRow struct {
	Now    int64  `json:"now"`
	Seq    int    `json:"seq"`
	Actor  string `json:"actor"`
	Action string `json:"action"`
	Kind   string `json:"kind,omitempty"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Target string `json:"target,omitempty"`
	Count  int    `json:"count,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type EventRow struct {
	Now    int64  `json:"now"`
	Seq    int64  `json:"seq"`
	Entity string `json:"entity"`
	Kind   string `json:"kind"`
	At     int64  `json:"at"`
}

// RecentTicks returns the newest ticks first.
func RecentTicks(ctx context.Context, db *sql.DB, limit int) ([]TickRow, error) {
	rows, err := db.QueryContext(ctx, `SELECT now,digest,events FROM ticks ORDER BY now DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TickRow
	for rows.Next() {
		var r TickRow
		if err := rows.Scan(&r.Now, &r.Digest, &r.Events); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Audits lists audit rows in order, filtered by actor and action when non-empty.
func Audits(ctx context.Context, db *sql.DB, actor, action string, limit int) ([]AuditRow, error) {
	rows, err := db.QueryContext(ctx, `SELECT now,seq,actor,action,COALESCE(kind,''),x,y,COALESCE(target,''),count,COALESCE(reason,'')
		FROM audits
		WHERE (?='' OR actor=?) AND (?='' OR action=?)
		ORDER BY now, seq LIMIT ?`, actor, actor, action, action, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AuditRow
	for rows.Next() {
		var r AuditRow
		if err := rows.Scan(&r.Now, &r.Seq, &r.Actor, &r.Action, &r.Kind, &r.X, &r.Y, &r.Target, &r.Count, &r.Reason); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// EntityEvents lists the fired events of one entity in firing order.
func EntityEvents(ctx context.Context, db *sql.DB, entity string, limit int) ([]EventRow, error) {
	rows, err := db.QueryContext(ctx, `SELECT now,seq,entity,kind,at FROM events WHERE entity=? ORDER BY now, seq LIMIT ?`, entity, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EventRow
	for rows.Next() {
		var r EventRow
		if err := rows.Scan(&r.Now, &r.Seq, &r.Entity, &r.Kind, &r.At); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func Meta(ctx context.Context, db *sql.DB, key string) (string, error) {
	var v string
	err := db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key=?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return v, err
}
