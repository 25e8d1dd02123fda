package docstore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// wireValue is the typed-field encoding shared by the Firestore REST API and
// the jsonb column of the Postgres store. Integers travel as strings.
type wireValue struct {
	StringValue    *string         `json:"stringValue,omitempty"`
	IntegerValue   json.RawMessage `json:"integerValue,omitempty"`
	TimestampValue *string         `json:"timestampValue,omitempty"`
}

func encodeFields(doc Document) (map[string]wireValue, error) {
	out := make(map[string]wireValue, len(doc))
	for name, v := range doc {
		switch v.Kind {
		case KindString:
			s := v.Str
			out[name] = wireValue{StringValue: &s}
		case KindInteger:
			raw, _ := json.Marshal(strconv.FormatInt(v.Int, 10))
			out[name] = wireValue{IntegerValue: raw}
		case KindTimestamp:
			ts := v.Time.UTC().Format(time.RFC3339Nano)
			out[name] = wireValue{TimestampValue: &ts}
		default:
			return nil, fmt.Errorf("field %q: unsupported kind %q", name, v.Kind)
		}
	}
	return out, nil
}

// decodeFields keeps the fields it understands. A malformed integer decodes to 0,
// a malformed timestamp drops the field.
func decodeFields(in map[string]wireValue) Document {
	doc := make(Document, len(in))
	for name, w := range in {
		switch {
		case w.StringValue != nil:
			doc[name] = String(*w.StringValue)
		case len(w.IntegerValue) > 0:
			doc[name] = Integer(parseInteger(w.IntegerValue))
		case w.TimestampValue != nil:
			t, err := time.Parse(time.RFC3339Nano, *w.TimestampValue)
			if err != nil {
				continue
			}
			doc[name] = Timestamp(t)
		}
	}
	return doc
}

func parseInteger(raw json.RawMessage) int64 {
	s := strings.Trim(string(raw), `"`)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
