package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/solvix/draftgate/internal/guardrail"
)

func newTestLog(t *testing.T) (*Log, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "verdicts.jsonl")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open verdict log: %v", err)
	}
	return l, path
}

func testVerdict(decision string) Entry {
	return Entry{
		Timestamp:       time.Now().UTC().Format(TimestampFormat),
		TraceID:         "t-test123",
		PartyCode:       "ACME-0042",
		Operation:       "validate",
		DraftSHA:        HashDraft("Dear Acme Trading Ltd,"),
		Decision:        decision,
		FactualAccuracy: 1.0,
		ConfigHash:      "sha256:abc123",
	}
}

func TestSequentialWritesProduceValidChain(t *testing.T) {
	l, path := newTestLog(t)

	for i := 0; i < 5; i++ {
		if err := l.Record(testVerdict(DecisionPass)); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	l.Close()

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("expected valid chain, got error at line %d: %s", result.ErrorLine, result.Error)
	}
	if result.Lines != 5 {
		t.Fatalf("expected 5 lines, got %d", result.Lines)
	}
}

func TestVerifyDetectsTamperedEntry(t *testing.T) {
	l, path := newTestLog(t)

	for i := 0; i < 3; i++ {
		if err := l.Record(testVerdict(DecisionPass)); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	l.Close()

	// Tamper: flip the decision on line 2.
	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	lines[1] = strings.Replace(lines[1], `"pass"`, `"block"`, 1)
	os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644)

	result := Verify(path)
	if result.Valid {
		t.Fatal("expected tampered chain to be invalid")
	}
	if result.ErrorLine != 3 {
		t.Fatalf("expected error at line 3, got line %d", result.ErrorLine)
	}
}

func TestVerifyDetectsDeletedEntry(t *testing.T) {
	l, path := newTestLog(t)

	for i := 0; i < 3; i++ {
		if err := l.Record(testVerdict(DecisionPass)); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	l.Close()

	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	remaining := []string{lines[0], lines[2]}
	os.WriteFile(path, []byte(strings.Join(remaining, "\n")+"\n"), 0644)

	result := Verify(path)
	if result.Valid {
		t.Fatal("expected chain with deleted entry to be invalid")
	}
	if result.ErrorLine != 2 {
		t.Fatalf("expected error at line 2, got line %d", result.ErrorLine)
	}
}

func TestVerifyDetectsInsertedEntry(t *testing.T) {
	l, path := newTestLog(t)

	for i := 0; i < 3; i++ {
		if err := l.Record(testVerdict(DecisionPass)); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	l.Close()

	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	fake := testVerdict(DecisionBlock)
	fake.PrevHash = "sha256:fake"
	fakeJSON, _ := json.Marshal(fake)
	inserted := []string{lines[0], string(fakeJSON), lines[1], lines[2]}
	os.WriteFile(path, []byte(strings.Join(inserted, "\n")+"\n"), 0644)

	result := Verify(path)
	if result.Valid {
		t.Fatal("expected chain with inserted entry to be invalid")
	}
}

func TestEmptyLogPassesVerification(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.jsonl")
	os.WriteFile(path, []byte{}, 0644)

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("expected empty log to be valid, got: %s", result.Error)
	}
	if result.Lines != 0 {
		t.Fatalf("expected 0 lines, got %d", result.Lines)
	}
}

func TestConcurrentWritesSerializeCorrectly(t *testing.T) {
	l, path := newTestLog(t)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Record(testVerdict(DecisionPass))
		}()
	}
	wg.Wait()
	l.Close()

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("expected valid chain after concurrent writes, got error at line %d: %s", result.ErrorLine, result.Error)
	}
	if result.Lines != 100 {
		t.Fatalf("expected 100 lines, got %d", result.Lines)
	}
}

func TestOpenExistingLogContinuesChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.jsonl")

	l1, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		l1.Record(testVerdict(DecisionPass))
	}
	l1.Close()

	l2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		l2.Record(testVerdict(DecisionBlock))
	}
	l2.Close()

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("expected valid chain after reopen, got error at line %d: %s", result.ErrorLine, result.Error)
	}
	if result.Lines != 5 {
		t.Fatalf("expected 5 lines, got %d", result.Lines)
	}
}

func TestDecisionMapping(t *testing.T) {
	tests := []struct {
		name   string
		result guardrail.PipelineResult
		want   string
	}{
		{"clean", guardrail.PipelineResult{AllPassed: true}, DecisionPass},
		{"advisory only", guardrail.PipelineResult{AllPassed: false}, DecisionWarn},
		{"blocked", guardrail.PipelineResult{AllPassed: false, ShouldBlock: true}, DecisionBlock},
	}
	for _, tt := range tests {
		if got := Decision(tt.result); got != tt.want {
			t.Errorf("%s: Decision = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestFromPipelineHashesDraft(t *testing.T) {
	result := guardrail.PipelineResult{AllPassed: true}
	e1 := FromPipeline("draft one", result)
	e2 := FromPipeline("draft two", result)
	if e1.DraftSHA == e2.DraftSHA {
		t.Error("different drafts must hash differently")
	}
	if !strings.HasPrefix(e1.DraftSHA, "sha256:") {
		t.Errorf("draft sha = %s", e1.DraftSHA)
	}
	if e1.FactualAccuracy != 1.0 {
		t.Errorf("accuracy = %v", e1.FactualAccuracy)
	}
}

func TestHistoryFiltersByParty(t *testing.T) {
	l, path := newTestLog(t)
	l.Record(testVerdict(DecisionPass))
	other := testVerdict(DecisionBlock)
	other.PartyCode = "ZORK-1234"
	l.Record(other)
	l.Record(testVerdict(DecisionWarn))
	l.Close()

	result, err := History(path, HistoryFilter{PartyCode: "ACME-0042"})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(result.Entries))
	}
	if result.Summary.PassCount != 1 || result.Summary.WarnCount != 1 || result.Summary.BlockCount != 0 {
		t.Errorf("summary = %+v", result.Summary)
	}
}

func TestFormatTimelineRendersEntries(t *testing.T) {
	l, path := newTestLog(t)
	blocked := testVerdict(DecisionBlock)
	blocked.Blocking = []string{"factual_grounding"}
	blocked.FactualAccuracy = 0.5
	l.Record(blocked)
	l.Close()

	result, err := History(path, HistoryFilter{PartyCode: "ACME-0042"})
	if err != nil {
		t.Fatal(err)
	}
	out := FormatTimeline(result)
	for _, want := range []string{"ACME-0042", "BLOCK", "factual_grounding", "Min accuracy: 0.50"} {
		if !strings.Contains(out, want) {
			t.Errorf("timeline missing %q:\n%s", want, out)
		}
	}
}
