package formatter

import (
	"path/filepath"

	"github.com/storage-analysis/internal/statistics"
	"github.com/storage-analysis/pkg/writer"
)

// Report is the JSON document written after a scan.
type Report struct {
	Network string `json:"network"`
	statistics.Totals
	NumValues uint64          `json:"num_values"`
	Pallets   []CategoryReport `json:"pallets"`
}

// CategoryReport is one category of a Report.
type CategoryReport struct {
	Name           string                `json:"name"`
	Size           uint64                `json:"size"`
	CompressedSize uint64                `json:"compressed_size"`
	Items          []statistics.ItemStat `json:"items"`
}

// NewReport builds a report with categories and items in size order.
func NewReport(network string, result statistics.Result) *Report {
	totals := result.Totals()
	rep := &Report{
		Network:   network,
		Totals:    totals,
		NumValues: totals.NumKeys,
		Pallets:   make([]CategoryReport, 0, len(result)),
	}
	for _, cat := range result.Sorted() {
		cr := CategoryReport{
			Name:           cat.Name,
			Size:           cat.RawSize,
			CompressedSize: cat.CompressedSize,
			Items:          make([]statistics.ItemStat, 0, len(cat.Items)),
		}
		for _, it := range cat.SortedItems() {
			cr.Items = append(cr.Items, *it)
		}
		rep.Pallets = append(rep.Pallets, cr)
	}
	return rep
}

// ReportFileName returns "<network>_storage<ext>".
func ReportFileName(network, ext string) string {
	return network + "_storage" + ext
}

// WriteReport writes rep into dir as pretty JSON, or gzipped JSON when
// compress is set, and returns the file path.
func WriteReport(dir string, compress bool, rep *Report) (string, error) {
	if dir == "" {
		dir = "."
	}
	w := writer.New[*Report](compress, true)
	path := filepath.Join(dir, ReportFileName(rep.Network, w.Ext()))
	if err := w.WriteToFile(rep, path); err != nil {
		return "", err
	}
	return path, nil
}
