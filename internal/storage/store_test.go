package storage

import (
	"testing"

	"github.com/arvi-k/physlab/internal/core"
)

func testResult() *core.Result {
	series := core.NewSeries([]string{"temperature", "fuel"})
	series.Append(0.0, []float64{20, 100})
	series.Append(0.5, []float64{180, 98})
	series.Append(1.0, []float64{410, 95})

	return &core.Result{
		Lab:     "fusion",
		Seed:    42,
		Ticks:   60,
		SimTime: 1.0,
		Final:   core.Snapshot{Phase: "reacting", Terminal: false},
		Series:  series,
		Events: []core.Event{
			{Tick: 30, Time: 0.5, Type: core.EventPhase, Name: "heating", Detail: "idle to heating"},
			{Tick: 55, Time: 0.92, Type: core.EventThreshold, Name: "ignition"},
		},
		Metrics: map[string]float64{"peak_temperature": 410},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(60, "none", testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Fatal("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Lab != "fusion" {
		t.Errorf("expected lab fusion, got %s", meta.Lab)
	}
	if meta.Seed != 42 {
		t.Errorf("expected seed 42, got %d", meta.Seed)
	}
	if meta.Phase != "reacting" {
		t.Errorf("expected phase reacting, got %s", meta.Phase)
	}
	if meta.Metrics["peak_temperature"] != 410 {
		t.Errorf("expected peak 410, got %f", meta.Metrics["peak_temperature"])
	}
}

func TestStoreLoadSeries(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}

	runID, err := st.Save(60, "none", testResult())
	if err != nil {
		t.Fatal(err)
	}

	series, err := st.LoadSeries(runID)
	if err != nil {
		t.Fatalf("load series failed: %v", err)
	}
	if series.Len() != 3 {
		t.Fatalf("expected 3 samples, got %d", series.Len())
	}
	if len(series.Names) != 2 || series.Names[0] != "temperature" {
		t.Errorf("bad column names: %v", series.Names)
	}
	if series.Last("temperature") != 410 {
		t.Errorf("expected final temperature 410, got %f", series.Last("temperature"))
	}
}

func TestStoreLoadEvents(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}

	runID, err := st.Save(60, "none", testResult())
	if err != nil {
		t.Fatal(err)
	}

	events, err := st.LoadEvents(runID)
	if err != nil {
		t.Fatalf("load events failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != core.EventPhase || events[0].Detail != "idle to heating" {
		t.Errorf("bad first event: %+v", events[0])
	}
	if events[1].Tick != 55 {
		t.Errorf("expected tick 55, got %d", events[1].Tick)
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list on empty store failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}

	if _, err := st.Save(60, "none", testResult()); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Save(120, "pid", testResult()); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
}

func TestStoreList_MissingDir(t *testing.T) {
	st := New("/nonexistent/physlab-test")
	runs, err := st.List()
	if err != nil {
		t.Fatalf("list should tolerate a missing dir: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}
