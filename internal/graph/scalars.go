// internal/graph/scalars.go
package graph

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Date is the GraphQL Date scalar. It is written as epoch milliseconds and
// read from numbers or RFC 3339 strings.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date { return Date{Time: t} }

func newDatePtr(t *time.Time) *Date {
	if t == nil {
		return nil
	}
	return &Date{Time: *t}
}

func (Date) ImplementsGraphQLType(name string) bool {
	return name == "Date"
}

func (d *Date) UnmarshalGraphQL(input interface{}) error {
	switch v := input.(type) {
	case float64:
		d.Time = time.UnixMilli(int64(v))
	case int32:
		d.Time = time.UnixMilli(int64(v))
	case int64:
		d.Time = time.UnixMilli(v)
	case int:
		d.Time = time.UnixMilli(int64(v))
	case string:
		return d.parseString(v)
	default:
		return fmt.Errorf("wrong type for Date: %T", input)
	}
	return nil
}

func (d *Date) parseString(s string) error {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		d.Time = time.UnixMilli(ms)
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		d.Time = t
		return nil
	}
	return fmt.Errorf("invalid Date %q: want epoch milliseconds or RFC 3339", s)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.UnixMilli())
}

func timePtr(d *Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}
