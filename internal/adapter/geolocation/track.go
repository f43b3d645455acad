package geolocation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Temutjin2k/delivery-tracking/internal/service/sampler"
)

const DefaultInterval = time.Second

var ErrEmptyTrack = errors.New("track has no entries")

// Duration is a time.Duration written as "1.5s" in track files.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"2s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Track is a recorded drive. Entries are emitted one per Interval.
//
//	{
//	  "interval": "2s",
//	  "loop": false,
//	  "entries": [
//	    {"latitude": 43.238, "longitude": 76.889, "accuracy": 6},
//	    {"error": "POSITION_UNAVAILABLE"},
//	    {"latitude": 43.239, "longitude": 76.891, "accuracy": 9, "delay": "40s"}
//	  ]
//	}
type Track struct {
	Interval Duration `json:"interval"`
	Loop     bool     `json:"loop"`
	Entries  []Entry  `json:"entries"`
}

// Entry is either a fix or a watch error. A fix with a missing field is
// replayed as an incomplete reading.
type Entry struct {
	Latitude  *float64               `json:"latitude,omitempty"`
	Longitude *float64               `json:"longitude,omitempty"`
	Accuracy  *float64               `json:"accuracy,omitempty"`
	Error     sampler.WatchErrorCode `json:"error,omitempty"`
	// Delay is added to the interval before this entry, e.g. to provoke a timeout.
	Delay Duration `json:"delay,omitempty"`
}

func (e Entry) isError() bool {
	return e.Error != ""
}

// ParseTrack decodes and validates a track.
func ParseTrack(r io.Reader) (*Track, error) {
	var t Track
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("decode track: %w", err)
	}

	if len(t.Entries) == 0 {
		return nil, ErrEmptyTrack
	}
	if t.Interval <= 0 {
		t.Interval = Duration(DefaultInterval)
	}
	for i, e := range t.Entries {
		switch e.Error {
		case "", sampler.PermissionDenied, sampler.PositionUnavailable, sampler.Timeout:
		default:
			return nil, fmt.Errorf("entry %d: unknown error code %q", i, e.Error)
		}
		if e.Delay < 0 {
			return nil, fmt.Errorf("entry %d: negative delay", i)
		}
	}
	return &t, nil
}

// LoadTrack reads a track file from disk.
func LoadTrack(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open track: %w", err)
	}
	defer f.Close()

	return ParseTrack(f)
}
