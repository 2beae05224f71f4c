package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadBarsCSV reads bar rows into a MemoryPortal:
//
//	time,asset,open,high,low,close,volume
//
// A date-only time (2006-01-02) is a daily bar; an RFC3339 time is a minute
// bar. A single header row ("time,...") is allowed and short rows are
// skipped.
func LoadBarsCSV(path string, into *MemoryPortal) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return ReadBarsCSV(f, into)
}

// ReadBarsCSV is LoadBarsCSV over an io.Reader.
func ReadBarsCSV(r io.Reader, into *MemoryPortal) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	n := 0
	first := true
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if first {
			first = false
			if len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}
		if len(row) < 7 {
			continue
		}

		asset, bar, minute, err := parseBarRow(row)
		if err != nil {
			return n, fmt.Errorf("bars csv row %d: %w", n+1, err)
		}
		if minute {
			into.AddMinutes(asset, bar)
		} else {
			into.AddDaily(asset, bar)
		}
		n++
	}
}

func parseBarRow(row []string) (Asset, Bar, bool, error) {
	ts := strings.TrimSpace(row[0])
	minute := true
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		t, err = time.Parse(time.DateOnly, ts)
		if err != nil {
			return "", Bar{}, false, fmt.Errorf("bad time %q: %w", ts, err)
		}
		minute = false
	}

	asset := Asset(strings.TrimSpace(row[1]))
	if asset == "" {
		return "", Bar{}, false, fmt.Errorf("empty asset")
	}

	vals := make([]float64, 5)
	for i := range vals {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[2+i]), 64)
		if err != nil {
			return "", Bar{}, false, fmt.Errorf("bad number %q: %w", row[2+i], err)
		}
		vals[i] = v
	}

	return asset, Bar{
		Time:   t.UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, minute, nil
}

// FinderFromPortal derives lifecycle metadata from the daily bars: an asset
// is listed from its first bar, and every calendar session without a bar
// inside its trading range counts as a suspension.
func FinderFromPortal(p *MemoryPortal, cal Calendar) *MemoryFinder {
	f := NewMemoryFinder()
	p.mu.RLock()
	defer p.mu.RUnlock()
	for a, bars := range p.daily {
		if len(bars) == 0 {
			continue
		}
		have := make(map[time.Time]struct{}, len(bars))
		for _, b := range bars {
			have[b.Time] = struct{}{}
		}
		info := AssetInfo{Asset: a, Listed: bars[0].Time}
		for _, s := range cal.Sessions(bars[0].Time, bars[len(bars)-1].Time) {
			if _, ok := have[s]; !ok {
				info.Suspended = append(info.Suspended, s)
			}
		}
		f.Add(info)
	}
	return f
}
