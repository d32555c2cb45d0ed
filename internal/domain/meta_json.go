package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// metaValueJSON is the wire form of a MetaValue: exactly one field set,
// keyed by kind.
type metaValueJSON struct {
	Str    *string              `json:"s,omitempty"`
	Num    *float64             `json:"n,omitempty"`
	Time   *string              `json:"t,omitempty"`
	Nested map[string]MetaValue `json:"m,omitempty"`
}

func (v MetaValue) MarshalJSON() ([]byte, error) {
	var wire metaValueJSON
	switch v.Kind {
	case MetaString:
		wire.Str = &v.Str
	case MetaNumber:
		wire.Num = &v.Num
	case MetaTime:
		s := v.Time.UTC().Format(time.RFC3339Nano)
		wire.Time = &s
	case MetaMap:
		if v.Nested == nil {
			wire.Nested = map[string]MetaValue{}
		} else {
			wire.Nested = v.Nested
		}
	default:
		return nil, fmt.Errorf("%w: unknown metadata kind %d", ErrInvalidArgument, v.Kind)
	}
	return json.Marshal(wire)
}

func (v *MetaValue) UnmarshalJSON(data []byte) error {
	var wire metaValueJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	switch {
	case wire.Str != nil:
		*v = String(*wire.Str)
	case wire.Num != nil:
		*v = Number(*wire.Num)
	case wire.Time != nil:
		t, err := time.Parse(time.RFC3339Nano, *wire.Time)
		if err != nil {
			return err
		}
		*v = Time(t)
	default:
		*v = Map(wire.Nested)
	}
	return nil
}
