// Package result turns raw execution rows into records of tagged values
// with a one-line summary, and exports them as CSV or JSON.
package result

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/sadopc/askdb/internal/adapter"
	"github.com/sadopc/askdb/internal/graph"
)

// Kind tags a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindNumber:
		return "number"
	default:
		return "text"
	}
}

// Value is a single result cell.
type Value struct {
	Kind Kind
	// Raw is the literal text of a number or the content of a text value.
	Raw string
	Num float64
}

// Null is the null Value.
var Null = Value{Kind: KindNull}

// Text returns a text Value.
func Text(s string) Value { return Value{Kind: KindText, Raw: s} }

// Int returns a number Value.
func Int(n int64) Value {
	return Value{Kind: KindNumber, Raw: strconv.FormatInt(n, 10), Num: float64(n)}
}

// Float returns a number Value. NaN and infinities become text since they
// have no JSON number form.
func Float(f float64) Value {
	raw := strconv.FormatFloat(f, 'f', -1, 64)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Text(raw)
	}
	return Value{Kind: KindNumber, Raw: raw, Num: f}
}

// FromCell tags a normalized cell. Strings reported for a numeric declared
// type are parsed as numbers when they can be.
func FromCell(cell any, declaredType string) Value {
	switch v := cell.(type) {
	case nil:
		return Null
	case int64:
		return Int(v)
	case int:
		return Int(int64(v))
	case float64:
		return Float(v)
	case float32:
		return Float(float64(v))
	case bool:
		return Text(strconv.FormatBool(v))
	case []byte:
		return FromCell(string(v), declaredType)
	case string:
		if declaredType != "" && graph.IsNumericType(declaredType) {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return Int(n)
			}
			if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
				return Value{Kind: KindNumber, Raw: v, Num: f}
			}
		}
		return Text(v)
	default:
		return Text(fmt.Sprintf("%v", v))
	}
}

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// String renders v for display; null renders as NULL.
func (v Value) String() string {
	if v.Kind == KindNull {
		return "NULL"
	}
	return v.Raw
}

// MarshalJSON writes null, a JSON number or a JSON string.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindNumber:
		return []byte(v.Raw), nil
	default:
		return json.Marshal(v.Raw)
	}
}

// Record is one row keyed by column name, in column order.
type Record struct {
	Columns []string
	Values  []Value
}

// Get returns the value of column name.
func (r Record) Get(name string) (Value, bool) {
	for i, c := range r.Columns {
		if c == name {
			return r.Values[i], true
		}
	}
	return Null, false
}

// MarshalJSON writes the record as an object whose keys keep column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := r.Values[i].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Result is a formatted result set.
type Result struct {
	Columns  []string `json:"columns"`
	Records  []Record `json:"rows"`
	RowCount int      `json:"row_count"`
	Summary  string   `json:"summary"`
}

// Format converts raw rows into records. Repeated column names, as produced
// by joins projecting id from several tables, get a numeric suffix so each
// record keeps every cell.
func Format(qr *adapter.QueryResult) *Result {
	res := &Result{}
	if qr == nil {
		res.Summary = Summary(0)
		return res
	}

	res.Columns = uniqueNames(qr.ColumnNames())
	types := make([]string, len(qr.Columns))
	for i, c := range qr.Columns {
		types[i] = c.Type
	}

	res.Records = make([]Record, 0, len(qr.Rows))
	for _, row := range qr.Rows {
		rec := Record{Columns: res.Columns, Values: make([]Value, len(res.Columns))}
		for i := range res.Columns {
			if i < len(row) {
				rec.Values[i] = FromCell(row[i], types[i])
			} else {
				rec.Values[i] = Null
			}
		}
		res.Records = append(res.Records, rec)
	}
	res.RowCount = len(res.Records)
	res.Summary = Summary(res.RowCount)
	return res
}

func uniqueNames(names []string) []string {
	out := make([]string, len(names))
	seen := map[string]int{}
	for i, n := range names {
		seen[n]++
		if seen[n] == 1 {
			out[i] = n
			continue
		}
		candidate := fmt.Sprintf("%s_%d", n, seen[n])
		for seen[candidate] > 0 {
			seen[n]++
			candidate = fmt.Sprintf("%s_%d", n, seen[n])
		}
		seen[candidate]++
		out[i] = candidate
	}
	return out
}

// Summary returns the one-line description of a result of n rows.
func Summary(n int) string {
	switch n {
	case 0:
		return "No results found"
	case 1:
		return "Found 1 result"
	default:
		return fmt.Sprintf("Found %d results", n)
	}
}

// Strings returns every record rendered with Value.String, for tables.
func (r *Result) Strings() [][]string {
	out := make([][]string, len(r.Records))
	for i, rec := range r.Records {
		row := make([]string, len(rec.Values))
		for j, v := range rec.Values {
			row[j] = v.String()
		}
		out[i] = row
	}
	return out
}
