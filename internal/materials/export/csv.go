package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"materials-viewer/internal/materials/models"
)

// ============================================================
// CSV Export
// ============================================================

var header = []string{
	"MaterialGroup",
	"ElementCount",
	"TotalArea_m2",
	"TotalVolume_m3",
	"Density_kg_m3",
	"TotalWeight_kg",
	"Notes",
}

// WriteCSV renders the material summary as CSV. Unknown quantities stay
// empty rather than zero.
func WriteCSV(w io.Writer, groups []models.MaterialGroup) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, g := range groups {
		row := []string{
			g.GroupKey,
			fmt.Sprintf("%d", g.ElementCount),
			formatOpt(g.TotalArea, 2),
			formatOpt(g.TotalVolume, 2),
			fmt.Sprintf("%.0f", g.Density),
			formatOpt(g.TotalWeight, 2),
			notes(g),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Filename derives the download name from the original upload name.
func Filename(originalFilename, fileID string) string {
	base := fileID
	if originalFilename != "" {
		base = strings.TrimSuffix(originalFilename, ".bmm")
		base = strings.TrimSuffix(base, ".json")
	}
	return fmt.Sprintf("materials_%s.csv", base)
}

func formatOpt(v *float64, decimals int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.*f", decimals, *v)
}

func notes(g models.MaterialGroup) string {
	if !g.HasMissingQuantities {
		return ""
	}

	var missing []string
	if g.TotalArea == nil {
		missing = append(missing, "missing area")
	}
	if g.TotalVolume == nil {
		missing = append(missing, "missing volume")
	}
	if len(missing) == 0 {
		// Some members lack values but every axis still has a partial sum.
		return "Partial quantities"
	}
	return "Missing quantities: " + strings.Join(missing, ", ")
}
