package export

import (
	"encoding/json"
	"io"
	"os"

	"github.com/arvi-k/physlab/internal/core"
)

type RunData struct {
	Lab      string             `json:"lab"`
	Seed     int64              `json:"seed"`
	Rate     float64            `json:"rate"`
	Driver   string             `json:"driver"`
	Ticks    uint64             `json:"ticks"`
	SimTime  float64            `json:"sim_time"`
	Phase    string             `json:"phase"`
	Terminal bool               `json:"terminal"`
	Names    []string           `json:"names"`
	Times    []float64          `json:"times"`
	Rows     [][]float64        `json:"rows"`
	Events   []core.Event       `json:"events"`
	Metrics  map[string]float64 `json:"metrics"`
}

func buildRunData(rate float64, driver string, result *core.Result) RunData {
	data := RunData{
		Lab:      result.Lab,
		Seed:     result.Seed,
		Rate:     rate,
		Driver:   driver,
		Ticks:    result.Ticks,
		SimTime:  result.SimTime,
		Phase:    result.Final.Phase,
		Terminal: result.Final.Terminal,
		Events:   result.Events,
		Metrics:  result.Metrics,
	}
	if result.Series != nil {
		data.Names = result.Series.Names
		data.Times = result.Series.Times
		data.Rows = result.Series.Rows
	}
	return data
}

// WriteJSON emits the full run, indented, to w.
func WriteJSON(w io.Writer, rate float64, driver string, result *core.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildRunData(rate, driver, result))
}

func ExportJSON(path string, rate float64, driver string, result *core.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, rate, driver, result)
}

func ExportJSONStdout(rate float64, driver string, result *core.Result) error {
	return WriteJSON(os.Stdout, rate, driver, result)
}
