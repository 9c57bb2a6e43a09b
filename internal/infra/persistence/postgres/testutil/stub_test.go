package testutil

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"testing"
)

func TestStubDBUpsertsAndLoadsBuckets(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()

	if err := conn.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if _, err := conn.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS state (bucket TEXT PRIMARY KEY)", nil); err != nil {
		t.Fatalf("ddl: %v", err)
	}

	upsert := "INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload"
	for _, payload := range []string{`{"a":1}`, `{"b":2}`} {
		if _, err := conn.ExecContext(ctx, upsert, []driver.NamedValue{{Value: "teams"}, {Value: []byte(payload)}}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	if _, err := conn.ExecContext(ctx, upsert, []driver.NamedValue{{Value: "matches"}, {Value: []byte(`{}`)}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if len(conn.Execs) != 4 || len(conn.State) != 2 || string(conn.State["teams"]) != `{"b":2}` {
		t.Fatalf("upsert must replace the bucket payload: %v %q", conn.Execs, conn.State)
	}

	rows, err := conn.QueryContext(ctx, "SELECT bucket, payload FROM state", nil)
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	defer func() { _ = rows.Close() }()
	dest := make([]driver.Value, 2)
	var buckets []string
	for rows.Next(dest) == nil {
		buckets = append(buckets, dest[0].(string))
	}
	if len(buckets) != 2 || buckets[0] != "matches" || buckets[1] != "teams" {
		t.Fatalf("expected buckets in name order, got %v", buckets)
	}
}

func TestStubDBFailures(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()
	upsert := "INSERT INTO state(bucket,payload) VALUES($1,$2)"

	cases := []struct {
		name string
		args []driver.NamedValue
	}{
		{"arity", []driver.NamedValue{{Value: "teams"}}},
		{"bucket type", []driver.NamedValue{{Value: int64(1)}, {Value: []byte("{}")}}},
		{"payload type", []driver.NamedValue{{Value: "teams"}, {Value: "{}"}}},
	}
	for _, tc := range cases {
		if _, err := conn.ExecContext(ctx, upsert, tc.args); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}

	conn.FailBuckets = map[string]bool{"players": true}
	if _, err := conn.ExecContext(ctx, upsert, []driver.NamedValue{{Value: "players"}, {Value: []byte("{}")}}); err == nil {
		t.Fatalf("expected bucket failure")
	}
	if _, err := conn.QueryContext(ctx, "SELECT id FROM players", nil); err == nil {
		t.Fatalf("expected unexpected-query error")
	}

	conn.RowsErr = errors.New("reset")
	rows, err := conn.QueryContext(ctx, "SELECT bucket, payload FROM state", nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if err := rows.Next(make([]driver.Value, 2)); !errors.Is(err, conn.RowsErr) || errors.Is(err, io.EOF) {
		t.Fatalf("expected rows error, got %v", err)
	}

	conn.FailBegin = true
	if _, err := conn.Begin(); err == nil {
		t.Fatalf("expected begin failure")
	}
	conn.FailBegin, conn.FailCommit = false, true
	tx, err := conn.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := tx.Commit(); err == nil {
		t.Fatalf("expected commit failure")
	}
}
