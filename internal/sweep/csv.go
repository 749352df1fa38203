package sweep

import (
	"encoding/csv"
	"os"
	"strconv"
)

// WriteCSV persists the results table for downstream plotting.
func WriteCSV(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"scenario",
		"params",
		"location",
		"price_eur_mwh",
		"social_welfare_eur",
		"most_congested_line",
		"congestion_ratio",
		"status",
		"error",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range t.Rows {
		row := []string{
			r.Scenario,
			r.Params,
			r.Location,
			fmtFloat(r.Price),
			fmtFloat(r.Welfare),
			r.MostCongested,
			fmtFloat(r.CongestionRatio),
			string(r.Status),
			r.Error,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
