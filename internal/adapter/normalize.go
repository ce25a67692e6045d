package adapter

import (
	"fmt"
	"math/big"
	"time"
)

// NormalizeValue converts a driver-scanned cell into one of nil, int64,
// float64, bool or string. Types it does not recognize are rendered with
// fmt.
func NormalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		return val
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case int64:
		return val
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		if val > 1<<63-1 {
			return fmt.Sprintf("%d", val)
		}
		return int64(val)
	case float32:
		return float64(val)
	case float64:
		return val
	case *big.Int:
		if val.IsInt64() {
			return val.Int64()
		}
		return val.String()
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// NormalizeRow applies NormalizeValue to every cell of row in place and
// returns it.
func NormalizeRow(row []any) []any {
	for i, v := range row {
		row[i] = NormalizeValue(v)
	}
	return row
}
