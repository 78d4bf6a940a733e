package export

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/arvi-k/physlab/internal/core"
)

// WriteCSV emits the sampled series to w, one row per sample, time first.
func WriteCSV(w io.Writer, series *core.Series) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if series == nil || series.Len() == 0 {
		return nil
	}

	header := append([]string{"time"}, series.Names...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, t := range series.Times {
		row := []string{strconv.FormatFloat(t, 'f', 6, 64)}
		for _, val := range series.Rows[i] {
			row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func ExportCSV(path string, series *core.Series) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteCSV(file, series)
}

func ExportCSVStdout(series *core.Series) error {
	return WriteCSV(os.Stdout, series)
}
