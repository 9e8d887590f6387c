package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend is a simple in-memory Backend implementation for tests.
type fakeBackend struct {
	mu sync.Mutex

	callsCounters   []counterCall
	callsHistograms []histCall
	flushCount      int
}

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type histCall struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsCounters = append(f.callsCounters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsHistograms = append(f.callsHistograms, histCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushCount++
	return nil
}

func install(t *testing.T) *fakeBackend {
	t.Helper()
	orig := backend
	t.Cleanup(func() { backend = orig })
	fb := &fakeBackend{}
	backend = fb
	return fb
}

func TestRecordStep_SuccessAndFailure(t *testing.T) {
	fb := install(t)

	RecordStep("vendas", "load", nil, 2*time.Second)
	RecordStep("vendas", "export", errors.New("boom"), 1500*time.Millisecond)

	if len(fb.callsCounters) != 2 || len(fb.callsHistograms) != 2 {
		t.Fatalf("got %d counters, %d histograms; want 2, 2", len(fb.callsCounters), len(fb.callsHistograms))
	}

	cc0 := fb.callsCounters[0]
	if cc0.name != StepTotal || cc0.delta != 1 {
		t.Fatalf("counter[0] = %#v; want name=%s, delta=1", cc0, StepTotal)
	}
	if cc0.labels["dataset"] != "vendas" || cc0.labels["step"] != "load" || cc0.labels["status"] != "success" {
		t.Fatalf("counter[0] labels = %v", cc0.labels)
	}
	if h0 := fb.callsHistograms[0]; h0.name != StepDuration || h0.value < 1.999 || h0.value > 2.001 {
		t.Fatalf("hist[0] = %#v; want ~2.0 on %s", h0, StepDuration)
	}

	if got := fb.callsCounters[1].labels["status"]; got != "failure" {
		t.Fatalf("counter[1].labels[status]=%q; want failure", got)
	}
	if h1 := fb.callsHistograms[1]; h1.value < 1.499 || h1.value > 1.501 {
		t.Fatalf("hist[1].value=%v; want ~1.5", h1.value)
	}
}

func TestRecordRowsChecksAndBatches(t *testing.T) {
	fb := install(t)

	RecordRows("vendas", "filtered", 3)
	RecordRows("vendas", "filtered", 0) // ignored
	RecordCheck("vendas", "completeness", "PASS")
	RecordBatches("vendas", 2)
	RecordBatches("vendas", -1) // ignored

	if len(fb.callsCounters) != 3 {
		t.Fatalf("expected 3 counter calls, got %d", len(fb.callsCounters))
	}
	if c := fb.callsCounters[0]; c.name != RowsTotal || c.delta != 3 || c.labels["kind"] != "filtered" {
		t.Fatalf("counter[0] = %#v", c)
	}
	if c := fb.callsCounters[1]; c.name != ChecksTotal || c.labels["check"] != "completeness" || c.labels["status"] != "PASS" {
		t.Fatalf("counter[1] = %#v", c)
	}
	if c := fb.callsCounters[2]; c.name != BatchesTotal || c.delta != 2 || c.labels["dataset"] != "vendas" {
		t.Fatalf("counter[2] = %#v", c)
	}
}

func TestSetBackendAndFlush(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	SetBackend(fb)
	if backend != fb {
		t.Fatal("SetBackend did not replace global backend")
	}
	if err := Flush(); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if fb.flushCount != 1 {
		t.Fatalf("expected flushCount=1, got %d", fb.flushCount)
	}

	SetBackend(nil)
	if backend != fb {
		t.Fatal("SetBackend(nil) should not change backend")
	}
}
