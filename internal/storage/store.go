// Package storage persists run reports: a metadata.json summary and a
// steps.csv timing table per run. Reports are diagnostics; they do not hold
// enough state to resume a simulation.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/nbodysim/internal/experiment"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunInfo is what the caller knows about a run besides its result.
type RunInfo struct {
	Seed    uint64
	Workers int
	Dt      float64
	Params  map[string]float64
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Strategy   string             `json:"strategy"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       uint64             `json:"seed"`
	Particles  int                `json:"particles"`
	Workers    int                `json:"workers"`
	Dt         float64            `json:"dt"`
	Steps      int                `json:"steps"`
	MeanStepMs float64            `json:"mean_step_ms"`
	ElapsedMs  float64            `json:"elapsed_ms"`
	Params     map[string]float64 `json:"params"`
	Metrics    map[string]float64 `json:"metrics"`
}

func newMetadata(id string, info RunInfo, result *experiment.Result) RunMetadata {
	return RunMetadata{
		ID:         id,
		Strategy:   result.Strategy,
		Timestamp:  time.Now(),
		Seed:       info.Seed,
		Particles:  result.Particles,
		Workers:    info.Workers,
		Dt:         info.Dt,
		Steps:      result.StepsTaken,
		MeanStepMs: ms(result.MeanStep()),
		ElapsedMs:  ms(result.Elapsed),
		Params:     info.Params,
		Metrics:    result.Metrics,
	}
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

var stepsHeader = []string{"step", "time", "duration_ms", "kinetic", "momentum"}

// Save writes a new run directory named <strategy>_<unix> and returns its ID.
func (s *Store) Save(info RunInfo, result *experiment.Result) (string, error) {
	runID, runDir, err := s.newRunDir(result.Strategy)
	if err != nil {
		return "", err
	}

	meta := newMetadata(runID, info, result)
	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "steps.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write(stepsHeader); err != nil {
		return "", err
	}
	for _, st := range result.Steps {
		row := []string{
			strconv.Itoa(st.Step),
			strconv.FormatFloat(st.Time, 'f', 6, 64),
			strconv.FormatFloat(ms(st.Duration), 'f', 4, 64),
			strconv.FormatFloat(st.Kinetic, 'g', 10, 64),
			strconv.FormatFloat(st.Momentum, 'g', 10, 64),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	return runID, nil
}

func (s *Store) newRunDir(strategy string) (string, string, error) {
	if err := s.Init(); err != nil {
		return "", "", err
	}
	base := fmt.Sprintf("%s_%d", strategy, time.Now().Unix())
	runID := base
	for n := 2; ; n++ {
		runDir := filepath.Join(s.baseDir, runID)
		err := os.Mkdir(runDir, 0755)
		if err == nil {
			return runID, runDir, nil
		}
		if !os.IsExist(err) {
			return "", "", err
		}
		runID = fmt.Sprintf("%s-%d", base, n)
	}
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

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadSteps reads back the per-step table. Malformed rows are skipped.
func (s *Store) LoadSteps(runID string) ([]experiment.StepStats, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "steps.csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []experiment.StepStats{}, nil
	}

	steps := make([]experiment.StepStats, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) < len(stepsHeader) {
			continue
		}
		var vals [4]float64
		ok := true
		for k := range vals {
			v, err := strconv.ParseFloat(record[k+1], 64)
			if err != nil {
				ok = false
				break
			}
			vals[k] = v
		}
		step, err := strconv.Atoi(record[0])
		if err != nil || !ok {
			continue
		}
		steps = append(steps, experiment.StepStats{
			Step:     step,
			Time:     vals[0],
			Duration: time.Duration(vals[1] * float64(time.Millisecond)),
			Kinetic:  vals[2],
			Momentum: vals[3],
		})
	}
	return steps, nil
}

// ExportJSON writes the run summary and its step table as one JSON document.
func ExportJSON(w io.Writer, info RunInfo, result *experiment.Result) error {
	doc := struct {
		RunMetadata
		StepTable []experiment.StepStats `json:"step_table"`
	}{
		RunMetadata: newMetadata("", info, result),
		StepTable:   result.Steps,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
