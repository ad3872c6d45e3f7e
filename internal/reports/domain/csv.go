package domain

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// RenderUsageTrendCSV renders the daily usage trend with one row per day.
func RenderUsageTrendCSV(rows []UsageTrendRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"date", "total_events", "api_calls", "feature_usage", "unique_users"}); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := []string{
			row.Date,
			strconv.FormatInt(row.TotalEvents, 10),
			strconv.FormatInt(row.APICalls, 10),
			strconv.FormatInt(row.FeatureUsage, 10),
			strconv.FormatInt(row.UniqueUsers, 10),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// RenderFlatCSV renders any report shape as two-column key/value rows, with
// nested fields flattened into dotted keys and array elements indexed.
func RenderFlatCSV(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}

	flat := map[string]string{}
	flatten("", decoded, flat)

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"key", "value"}); err != nil {
		return nil, err
	}
	for _, k := range keys {
		if err := w.Write([]string{k, flat[k]}); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

func flatten(prefix string, v any, out map[string]string) {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flatten(key, child, out)
		}
	case []any:
		for i, child := range val {
			flatten(fmt.Sprintf("%s.%d", prefix, i), child, out)
		}
	case nil:
		out[prefix] = ""
	case json.Number:
		out[prefix] = val.String()
	case float64:
		out[prefix] = strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		out[prefix] = strconv.FormatBool(val)
	case string:
		out[prefix] = val
	default:
		out[prefix] = fmt.Sprint(val)
	}
}
