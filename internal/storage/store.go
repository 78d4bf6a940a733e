package storage

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/arvi-k/physlab/internal/core"
)

// Store archives finished runs under baseDir, one directory per run:
// metadata.json, series.csv and events.csv.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Lab       string             `json:"lab"`
	Timestamp time.Time          `json:"timestamp"`
	Seed      int64              `json:"seed"`
	Rate      float64            `json:"rate"`
	SimTime   float64            `json:"sim_time"`
	Ticks     uint64             `json:"ticks"`
	Driver    string             `json:"driver"`
	Phase     string             `json:"phase"`
	Terminal  bool               `json:"terminal"`
	Metrics   map[string]float64 `json:"metrics"`
}

func (s *Store) Save(rate float64, driver string, result *core.Result) (string, error) {
	runID := uuid.NewString()
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Lab:       result.Lab,
		Timestamp: time.Now(),
		Seed:      result.Seed,
		Rate:      rate,
		SimTime:   result.SimTime,
		Ticks:     result.Ticks,
		Driver:    driver,
		Phase:     result.Final.Phase,
		Terminal:  result.Final.Terminal,
		Metrics:   result.Metrics,
	}

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

	if err := writeSeries(filepath.Join(runDir, "series.csv"), result.Series); err != nil {
		return "", err
	}
	if err := writeEvents(filepath.Join(runDir, "events.csv"), result.Events); err != nil {
		return "", err
	}

	return runID, nil
}

func writeSeries(path string, series *core.Series) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if series == nil || series.Len() == 0 {
		return nil
	}

	header := append([]string{"time"}, series.Names...)
	if err := w.Write(header); err != nil {
		return err
	}

	for i, t := range series.Times {
		row := []string{strconv.FormatFloat(t, 'f', 6, 64)}
		for _, val := range series.Rows[i] {
			row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeEvents(path string, events []core.Event) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if err := w.Write([]string{"tick", "time", "type", "name", "detail"}); err != nil {
		return err
	}
	for _, e := range events {
		row := []string{
			strconv.FormatUint(e.Tick, 10),
			strconv.FormatFloat(e.Time, 'f', 6, 64),
			string(e.Type),
			e.Name,
			e.Detail,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// List returns the archived runs, newest first.
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

		metaPath := filepath.Join(s.baseDir, entry.Name(), "metadata.json")
		data, err := os.ReadFile(metaPath)
		if err != nil {
			continue
		}

		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}

		runs = append(runs, meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

func (s *Store) LoadSeries(runID string) (*core.Series, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "series.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return core.NewSeries(nil), nil
	}

	series := core.NewSeries(records[0][1:])
	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) == 0 {
			continue
		}

		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}

		vals := make([]float64, 0, len(record)-1)
		for j := 1; j < len(record); j++ {
			val, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				continue
			}
			vals = append(vals, val)
		}
		series.Append(t, vals)
	}

	return series, nil
}

func (s *Store) LoadEvents(runID string) ([]core.Event, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "events.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	events := make([]core.Event, 0, len(records))
	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) < 5 {
			continue
		}

		tick, err := strconv.ParseUint(record[0], 10, 64)
		if err != nil {
			continue
		}
		tm, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			continue
		}

		events = append(events, core.Event{
			Tick:   tick,
			Time:   tm,
			Type:   core.EventType(record[2]),
			Name:   record[3],
			Detail: record[4],
		})
	}

	return events, nil
}
