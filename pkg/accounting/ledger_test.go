package accounting

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(Config{
		Path:       filepath.Join(t.TempDir(), "usage.db"),
		BufferSize: 16,
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

// record writes synchronously so queries observe the row.
func record(t *testing.T, l *Ledger, rec Record) {
	t.Helper()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	l.insert(rec)
}

func TestLedger_RecentAndTotals(t *testing.T) {
	l := openTestLedger(t)

	record(t, l, Record{
		RequestID: "r1", Provider: "openai", Model: "gpt-4o-mini", Credential: "openai-0",
		PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15, Status: "success", LatencyMS: 120,
	})
	record(t, l, Record{
		RequestID: "r2", Provider: "vertex", Model: "gemini-2.5-flash", Credential: "vertex-0",
		PromptTokens: 7, CompletionTokens: 11, ReasoningTokens: 4, TotalTokens: 18, Status: "success", LatencyMS: 300,
	})

	recent, err := l.Recent(10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("recent = %d rows", len(recent))
	}
	// Newest first.
	if recent[0].RequestID != "r2" || recent[1].RequestID != "r1" {
		t.Errorf("order = %s, %s", recent[0].RequestID, recent[1].RequestID)
	}
	if recent[0].ReasoningTokens != 4 {
		t.Errorf("reasoning tokens = %d", recent[0].ReasoningTokens)
	}

	totals, err := l.Totals()
	if err != nil {
		t.Fatalf("Totals failed: %v", err)
	}
	if totals.Requests != 2 || totals.TotalTokens != 33 {
		t.Errorf("totals = %+v", totals)
	}
}

func TestLedger_AsyncRecordDoesNotBlock(t *testing.T) {
	l := openTestLedger(t)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			l.Record(Record{RequestID: "x", Provider: "openai", Model: "m", Credential: "c", Status: "success"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked")
	}
}

func TestLedger_Prune(t *testing.T) {
	l := openTestLedger(t)

	record(t, l, Record{
		RequestID: "old", Provider: "openai", Model: "m", Credential: "c",
		Status: "success", Timestamp: time.Now().AddDate(0, 0, -30),
	})
	record(t, l, Record{
		RequestID: "new", Provider: "openai", Model: "m", Credential: "c",
		Status: "success", Timestamp: time.Now(),
	})

	l.prune(7)

	recent, err := l.Recent(10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 1 || recent[0].RequestID != "new" {
		t.Errorf("prune kept wrong rows: %+v", recent)
	}
}
