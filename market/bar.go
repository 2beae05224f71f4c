package market

import (
	"fmt"
	"time"
)

// Frequency selects daily session bars or intraday minute bars.
type Frequency string

const (
	Daily  Frequency = "daily"
	Minute Frequency = "minute"
)

// Field names a bar column.
type Field string

const (
	Open   Field = "open"
	High   Field = "high"
	Low    Field = "low"
	Close  Field = "close"
	Volume Field = "volume"
)

// Bar is one OHLCV observation.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Value returns the named column of the bar.
func (b Bar) Value(f Field) (float64, error) {
	switch f {
	case Open:
		return b.Open, nil
	case High:
		return b.High, nil
	case Low:
		return b.Low, nil
	case Close:
		return b.Close, nil
	case Volume:
		return b.Volume, nil
	}
	return 0, fmt.Errorf("unknown bar field %q", f)
}

// Mean averages field f over bars. An empty window is an error.
func Mean(bars []Bar, f Field) (float64, error) {
	if len(bars) == 0 {
		return 0, fmt.Errorf("mean %s: %w", f, ErrNoData)
	}
	sum := 0.0
	for _, b := range bars {
		v, err := b.Value(f)
		if err != nil {
			return 0, err
		}
		sum += v
	}
	return sum / float64(len(bars)), nil
}

// Day returns the calendar day of t as midnight UTC. Session keys are always
// built with Day so they compare equal with == and as map keys.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
