package result

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Format names accepted by Write.
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatJSON  = "json"
)

// WriteCSV writes a header row and one line per record. Nulls are written as
// empty fields.
func (r *Result) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(r.Columns); err != nil {
		return err
	}
	for _, rec := range r.Records {
		row := make([]string, len(rec.Values))
		for i, v := range rec.Values {
			if !v.IsNull() {
				row[i] = v.Raw
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the records as an indented JSON array of objects.
func (r *Result) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	records := r.Records
	if records == nil {
		records = []Record{}
	}
	return enc.Encode(records)
}

// Write renders r in the named format. Table output is left to the caller.
func (r *Result) Write(w io.Writer, format string) error {
	switch format {
	case FormatCSV:
		return r.WriteCSV(w)
	case FormatJSON:
		return r.WriteJSON(w)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// ExportFile writes r to path in the named format.
func ExportFile(path, format string, r *Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.Write(f, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
