// Package interval defines the fixed set of candle bucket widths.
package interval

import "fmt"

// Interval is a named, fixed-width time bucket.
type Interval struct {
	Name    string
	Seconds int64
}

// Bucket returns the bucket index containing ts (floor(ts / width)).
func (i Interval) Bucket(ts int64) int64 {
	return floorDiv(ts, i.Seconds)
}

// Start returns the left-aligned start of the bucket containing ts.
func (i Interval) Start(ts int64) int64 {
	return i.Bucket(ts) * i.Seconds
}

// End returns the exclusive end of the bucket containing ts.
func (i Interval) End(ts int64) int64 {
	return i.Start(ts) + i.Seconds
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

const (
	minute = int64(60)
	hour   = 60 * minute
	day    = 24 * hour
)

// table is never handed out directly; All returns a copy.
var table = [...]Interval{
	{Name: "1m", Seconds: minute},
	{Name: "5m", Seconds: 5 * minute},
	{Name: "15m", Seconds: 15 * minute},
	{Name: "30m", Seconds: 30 * minute},
	{Name: "1h", Seconds: hour},
	{Name: "4h", Seconds: 4 * hour},
	{Name: "1d", Seconds: day},
}

// All returns the intervals ordered from narrowest to widest.
func All() []Interval {
	out := make([]Interval, len(table))
	copy(out, table[:])
	return out
}

// Len returns the number of intervals.
func Len() int {
	return len(table)
}

// ByName looks up an interval by its name.
func ByName(name string) (Interval, error) {
	for _, iv := range table {
		if iv.Name == name {
			return iv, nil
		}
	}
	return Interval{}, fmt.Errorf("unknown interval %q", name)
}
