package store

import (
	"context"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := OpenLedger(":memory:")
	if err != nil {
		t.Fatalf("OpenLedger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLedgerRecordAndList(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	base := time.UnixMilli(1_700_000_000_000)
	batches := []Batch{
		{ID: "a", StartedAt: base, Elapsed: 2 * time.Second, Width: 5, Height: 5,
			Agents: []string{"random", "random"}, Requested: 10, Completed: 10, Tally: []int{6, 4}},
		{ID: "b", StartedAt: base.Add(time.Minute), Elapsed: time.Second, Width: 6, Height: 4,
			Agents: []string{"random", "avoid-others"}, Requested: 10, Completed: 3, Tally: []int{1, 2}, Stopped: true},
	}
	for _, b := range batches {
		if err := l.RecordBatch(ctx, b); err != nil {
			t.Fatalf("RecordBatch(%s): %v", b.ID, err)
		}
	}

	got, err := l.Batches(ctx, 10)
	if err != nil {
		t.Fatalf("Batches: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d batches, want 2", len(got))
	}
	if got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("order = %s,%s, want b,a", got[0].ID, got[1].ID)
	}
	b := got[0]
	if !b.StartedAt.Equal(base.Add(time.Minute)) || b.Elapsed != time.Second {
		t.Fatalf("times = %v/%v", b.StartedAt, b.Elapsed)
	}
	if b.Width != 6 || b.Height != 4 || b.Requested != 10 || b.Completed != 3 || !b.Stopped {
		t.Fatalf("unexpected batch: %+v", b)
	}
	if !slices.Equal(b.Agents, []string{"random", "avoid-others"}) || !slices.Equal(b.Tally, []int{1, 2}) {
		t.Fatalf("agents/tally = %v/%v", b.Agents, b.Tally)
	}

	limited, err := l.Batches(ctx, 1)
	if err != nil {
		t.Fatalf("Batches: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "b" {
		t.Fatalf("limited = %+v", limited)
	}
}

func TestLedgerAgentTotals(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	if err := l.RecordBatch(ctx, Batch{ID: "a", StartedAt: time.Now(),
		Agents: []string{"random", "random"}, Requested: 10, Completed: 10, Tally: []int{6, 4}}); err != nil {
		t.Fatal(err)
	}
	if err := l.RecordBatch(ctx, Batch{ID: "b", StartedAt: time.Now(),
		Agents: []string{"random", "form-chains"}, Requested: 4, Completed: 4, Tally: []int{1, 3}}); err != nil {
		t.Fatal(err)
	}

	totals, err := l.AgentTotals(ctx)
	if err != nil {
		t.Fatalf("AgentTotals: %v", err)
	}
	want := []AgentTotal{
		{Agent: "random", Games: 24, Wins: 11},
		{Agent: "form-chains", Games: 4, Wins: 3},
	}
	if !slices.Equal(totals, want) {
		t.Fatalf("totals = %+v, want %+v", totals, want)
	}
}

func TestLedgerRejectsMismatchedTally(t *testing.T) {
	l := openTestLedger(t)
	err := l.RecordBatch(context.Background(), Batch{ID: "x", Agents: []string{"random"}, Tally: []int{1, 2}})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestLedgerDuplicateID(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)
	b := Batch{ID: "dup", StartedAt: time.Now(), Agents: []string{"random"}, Tally: []int{1}, Completed: 1}
	if err := l.RecordBatch(ctx, b); err != nil {
		t.Fatal(err)
	}
	if err := l.RecordBatch(ctx, b); err == nil {
		t.Fatal("expected duplicate batch id to fail")
	}
	got, err := l.Batches(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d batches after failed insert, want 1", len(got))
	}
}

func TestLedgerPersistsToFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	l, err := OpenLedger(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.RecordBatch(ctx, Batch{ID: "p", StartedAt: time.Now(), Agents: []string{"random"}, Tally: []int{2}, Completed: 2}); err != nil {
		t.Fatal(err)
	}
	l.Close()

	l, err = OpenLedger(path)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	got, err := l.Batches(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "p" {
		t.Fatalf("reopened ledger = %+v", got)
	}
}
