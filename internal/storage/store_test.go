package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/san-kum/armsim/internal/dynamo"
)

func sampleResult() *dynamo.Result {
	r := &dynamo.Result{Metrics: map[string]float64{"tracking_error": 0.25}}
	r.Append(0.0, dynamo.Vector{0.1, 0.2}, dynamo.Vector{1, 2})
	r.Append(0.008, dynamo.Vector{0.15, 0.25}, dynamo.Vector{1, 2})
	return r
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(RunMetadata{Robot: "j2n6s200", Timestep: 0.002, SubSteps: 4, Frames: 2}, sampleResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !regexp.MustCompile(`^j2n6s200_[0-9a-f]{8}$`).MatchString(runID) {
		t.Errorf("unexpected run id %q", runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Robot != "j2n6s200" || meta.SubSteps != 4 {
		t.Errorf("metadata round trip: %+v", meta)
	}
	if meta.Metrics["tracking_error"] != 0.25 {
		t.Errorf("expected tracking_error 0.25, got %f", meta.Metrics["tracking_error"])
	}
	if meta.Duration != 0.008 {
		t.Errorf("duration = %v", meta.Duration)
	}

	got, err := st.LoadStates(runID)
	if err != nil {
		t.Fatalf("load states failed: %v", err)
	}
	if diff := cmp.Diff(sampleResult(), got,
		cmpopts.EquateApprox(0, 1e-6),
		cmpopts.IgnoreFields(dynamo.Result{}, "Metrics"),
	); diff != "" {
		t.Errorf("states round trip (-want +got):\n%s", diff)
	}
}

func TestStoreList(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "runs"))

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := st.Save(RunMetadata{Robot: "arm"}, sampleResult()); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}
	// stray files are skipped
	if err := os.WriteFile(filepath.Join(st.baseDir, "notes.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID == runs[1].ID {
		t.Error("run ids collide")
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runID, err := st.Save(RunMetadata{Robot: "arm"}, sampleResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	csvPath := filepath.Join(tmpDir, runID, "states.csv")
	if _, err := os.Stat(filepath.Join(tmpDir, runID, "metadata.json")); os.IsNotExist(err) {
		t.Error("metadata.json not created")
	}
	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatal("states.csv not created")
	}
	header := strings.SplitN(string(data), "\n", 2)[0]
	if header != "time,q0,q1,target0,target1" {
		t.Errorf("header = %q", header)
	}
}

func TestStoreMissingRun(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Load: got %v", err)
	}
	if _, err := st.LoadStates("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("LoadStates: got %v", err)
	}
	if err := st.ExportCSV("nope", &bytes.Buffer{}); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("ExportCSV: got %v", err)
	}
}

func TestExport(t *testing.T) {
	st := New(t.TempDir())
	meta := RunMetadata{Robot: "arm", Joints: []string{"a", "b"}}
	runID, err := st.Save(meta, sampleResult())
	if err != nil {
		t.Fatal(err)
	}

	var csvOut bytes.Buffer
	if err := st.ExportCSV(runID, &csvOut); err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(csvOut.String(), "\n"); lines != 3 {
		t.Errorf("csv has %d lines, want 3", lines)
	}

	path := filepath.Join(t.TempDir(), "run.json")
	if err := ExportJSON(path, meta, sampleResult()); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var data ExportData
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatal(err)
	}
	if data.Steps != 2 || data.Robot != "arm" || len(data.Q[1]) != 2 {
		t.Errorf("export: %+v", data)
	}
}
