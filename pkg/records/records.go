// Package records loads and generates music stream records.
package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/genre-analyzer/pkg/types"
)

// ErrMissingGenreColumn is returned when a CSV header has no genre column.
var ErrMissingGenreColumn = errors.New("csv header has no genre column")

// Load reads records from a CSV file with a header row.
func Load(path string) ([]types.Record, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("opening records file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Debug("Failed to close records file", "error", err, "path", path)
		}
	}()
	return Read(f)
}

// Read parses CSV records. Columns are matched by header name; only genre is required.
// Recognized columns: user_id, song_id, artist, duration, timestamp, genre.
func Read(r io.Reader) ([]types.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []types.Record{}, nil
		}
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["genre"]; !ok {
		return nil, ErrMissingGenreColumn
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	out := []types.Record{}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv line %d: %w", line, err)
		}

		rec := types.Record{
			UserID: field(row, "user_id"),
			SongID: field(row, "song_id"),
			Artist: field(row, "artist"),
			Genre:  field(row, "genre"),
		}
		if s := field(row, "duration"); s != "" {
			d, err := strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid duration %q: %w", line, s, err)
			}
			rec.Duration = d
		}
		if s := field(row, "timestamp"); s != "" {
			ts, err := parseTimestamp(s)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid timestamp %q: %w", line, s, err)
			}
			rec.Timestamp = ts
		}
		out = append(out, rec)
	}

	return out, nil
}

// parseTimestamp accepts RFC 3339 and the zone-less ISO 8601 form.
func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02T15:04:05", s)
}

// Write encodes records as CSV with a header row.
func Write(w io.Writer, recs []types.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"user_id", "song_id", "artist", "duration", "timestamp", "genre"}); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, r := range recs {
		ts := ""
		if !r.Timestamp.IsZero() {
			ts = r.Timestamp.Format("2006-01-02T15:04:05")
		}
		row := []string{r.UserID, r.SongID, r.Artist, strconv.Itoa(r.Duration), ts, r.Genre}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

type song struct {
	id       string
	artist   string
	genre    string
	duration int
}

var catalog = []song{
	{"S001", "Coldplay", "Pop", 210},
	{"S002", "Imagine Dragons", "Rock", 200},
	{"S003", "Ed Sheeran", "Pop", 190},
	{"S004", "Taylor Swift", "Pop", 180},
	{"S005", "Adele", "Soul", 240},
	{"S006", "Drake", "Hip-Hop", 250},
	{"S007", "Billie Eilish", "Alternative", 220},
	{"S008", "Bruno Mars", "Funk", 210},
	{"S009", "The Weeknd", "R&B", 230},
	{"S010", "Drake", "Hip-Hop", 250},
}

var users = []string{"U001", "U002", "U003", "U004", "U005"}

// Generate builds n pseudo-random plays from a fixed catalog.
// The same seed always yields the same records.
func Generate(n int, seed uint64) []types.Record {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	base := time.Date(2025, 11, 5, 8, 0, 0, 0, time.UTC)

	out := make([]types.Record, n)
	for i := range out {
		s := catalog[rng.IntN(len(catalog))]
		out[i] = types.Record{
			UserID:    users[rng.IntN(len(users))],
			SongID:    s.id,
			Artist:    s.artist,
			Genre:     s.genre,
			Duration:  s.duration,
			Timestamp: base.Add(time.Duration(rng.IntN(601)) * time.Minute),
		}
	}
	return out
}
