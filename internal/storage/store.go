package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/san-kum/armsim/internal/dynamo"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
)

var ErrRunNotFound = errors.New("run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0o755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Robot       string             `json:"robot"`
	Description string             `json:"description"`
	Timestamp   time.Time          `json:"timestamp"`
	Timestep    float64            `json:"timestep"`
	SubSteps    int                `json:"sub_steps"`
	Frames      int                `json:"frames"`
	Duration    float64            `json:"duration"`
	Integrator  string             `json:"integrator"`
	Target      string             `json:"target"`
	Joints      []string           `json:"joints"`
	Stiffness   float64            `json:"stiffness"`
	Damping     float64            `json:"damping"`
	Metrics     map[string]float64 `json:"metrics"`
}

// NewRunID returns "<robot>_<first 8 hex digits of a random UUID>".
func NewRunID(robot string) string {
	id := uuid.New().String()
	return fmt.Sprintf("%s_%s", robot, id[:8])
}

// Save writes metadata.json and states.csv under a fresh run directory. The
// ID, Timestamp and Metrics fields of meta are filled in.
func (s *Store) Save(meta RunMetadata, result *dynamo.Result) (string, error) {
	if meta.ID == "" {
		meta.ID = NewRunID(meta.Robot)
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if result.Metrics != nil {
		meta.Metrics = result.Metrics
	}
	if n := result.Len(); n > 0 {
		meta.Duration = result.Times[n-1] - result.Times[0]
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", errors.Wrap(err, "create run directory")
	}
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeStates(filepath.Join(runDir, statesFile), result); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return errors.Wrapf(enc.Encode(v), "encode %s", path)
}

func writeStates(path string, result *dynamo.Result) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(f)
	if result.Len() > 0 {
		n := len(result.Q[0])
		header := []string{"time"}
		for i := 0; i < n; i++ {
			header = append(header, fmt.Sprintf("q%d", i))
		}
		for i := 0; i < n; i++ {
			header = append(header, fmt.Sprintf("target%d", i))
		}
		if err := w.Write(header); err != nil {
			return err
		}
		for i, t := range result.Times {
			row := make([]string, 0, 1+2*n)
			row = append(row, formatFloat(t))
			for _, v := range result.Q[i] {
				row = append(row, formatFloat(v))
			}
			for _, v := range result.Target[i] {
				row = append(row, formatFloat(v))
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// List returns every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrapf(err, "decode metadata of %s", runID)
	}
	return &meta, nil
}

func (s *Store) statesPath(runID string) string {
	return filepath.Join(s.baseDir, runID, statesFile)
}

// LoadStates reads states.csv back into a Result.
func (s *Store) LoadStates(runID string) (*dynamo.Result, error) {
	f, err := os.Open(s.statesPath(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "read states of %s", runID)
	}

	result := &dynamo.Result{}
	if len(records) < 2 {
		return result, nil
	}
	n := 0
	for _, h := range records[0] {
		if strings.HasPrefix(h, "q") {
			n++
		}
	}
	for _, record := range records[1:] {
		if len(record) != 1+2*n {
			continue
		}
		vals := make([]float64, len(record))
		ok := true
		for j, field := range record {
			if vals[j], err = strconv.ParseFloat(field, 64); err != nil {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		result.Append(vals[0], dynamo.Vector(vals[1:1+n]), dynamo.Vector(vals[1+n:]))
	}
	return result, nil
}
