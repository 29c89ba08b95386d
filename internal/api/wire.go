package api

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/timestamppb"
)

// The service answers with positional JSON arrays. These helpers walk
// them without panicking on short or mistyped values.

func decodeArray(data json.RawMessage) ([]interface{}, error) {
	var v []interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse response JSON: %w", err)
	}
	return v, nil
}

func at(v []interface{}, i int) interface{} {
	if i < 0 || i >= len(v) {
		return nil
	}
	return v[i]
}

func arrayAt(v []interface{}, i int) []interface{} {
	a, _ := at(v, i).([]interface{})
	return a
}

func stringAt(v []interface{}, i int) string {
	s, _ := at(v, i).(string)
	return s
}

func intAt(v []interface{}, i int) (int, bool) {
	f, ok := at(v, i).(float64)
	return int(f), ok
}

// firstString digs through nested single-element arrays, as in
// [[["id"]]], and returns the first string found.
func firstString(v interface{}) string {
	for depth := 0; depth < 8; depth++ {
		switch x := v.(type) {
		case string:
			return x
		case []interface{}:
			if len(x) == 0 {
				return ""
			}
			v = x[0]
		default:
			return ""
		}
	}
	return ""
}

// timestampAt decodes a [seconds, nanos] pair.
func timestampAt(v []interface{}, i int) (time.Time, bool) {
	pair := arrayAt(v, i)
	secs, ok := intAt(pair, 0)
	if !ok {
		return time.Time{}, false
	}
	nanos, _ := intAt(pair, 1)
	ts := &timestamppb.Timestamp{Seconds: int64(secs), Nanos: int32(nanos)}
	if err := ts.CheckValid(); err != nil {
		return time.Time{}, false
	}
	return ts.AsTime(), true
}

// sourceRefs encodes source ids the way the service nests them: [[["id"]], ...].
func sourceRefs(ids []string) []interface{} {
	refs := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, []interface{}{[]interface{}{id}})
	}
	return refs
}
