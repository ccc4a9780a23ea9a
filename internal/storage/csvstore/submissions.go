// Package csvstore persists canvas submissions to a CSV file, the flat
// format the reporting tooling downstream consumes directly.
package csvstore

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/fauxi/consensus-backend/internal/models"
)

var header = []string{
	"Timestamp", "Latitude", "Longitude", "Image URL",
	"Main Subject", "Context", "Avoid",
	"Sunlight", "Movement", "Privacy", "Harmony",
}

// SubmissionStore appends and reads submissions.csv under one mutex; the
// file is shared by the HTTP handlers and the WebSocket hub.
type SubmissionStore struct {
	mu   sync.Mutex
	path string
	log  zerolog.Logger
}

// NewSubmissionStore stores submissions under dataDir, creating the
// directory if needed.
func NewSubmissionStore(dataDir string, log zerolog.Logger) (*SubmissionStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return &SubmissionStore{
		path: filepath.Join(dataDir, "submissions.csv"),
		log:  log,
	}, nil
}

// Path is the CSV file location.
func (s *SubmissionStore) Path() string { return s.path }

// ReadAll returns the raw CSV bytes under the store lock, so a download
// never observes a partially written row.
func (s *SubmissionStore) ReadAll() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.ReadFile(s.path)
}

// Append writes one submission row, bootstrapping the header on first use.
func (s *SubmissionStore) Append(sub models.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, statErr := os.Stat(s.path)
	newFile := os.IsNotExist(statErr)

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening submissions file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if newFile {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	row := []string{
		sub.Timestamp,
		strconv.FormatFloat(sub.Location.Lat, 'f', -1, 64),
		strconv.FormatFloat(sub.Location.Lng, 'f', -1, 64),
		sub.ImageURL,
		sub.Prompts.MainSubject,
		sub.Prompts.Context,
		sub.Prompts.Avoid,
		strconv.FormatFloat(sub.Prompts.SliderValues.Sunlight, 'f', -1, 64),
		strconv.FormatFloat(sub.Prompts.SliderValues.Movement, 'f', -1, 64),
		strconv.FormatFloat(sub.Prompts.SliderValues.Privacy, 'f', -1, 64),
		strconv.FormatFloat(sub.Prompts.SliderValues.Harmony, 'f', -1, 64),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("writing submission: %w", err)
	}
	w.Flush()
	return w.Error()
}

// List parses every stored submission. A missing file is an empty list,
// not an error. Rows that fail to parse are skipped and logged rather than
// failing the whole listing.
func (s *SubmissionStore) List() ([]models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.Submission{}, nil
		}
		return nil, fmt.Errorf("opening submissions file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading submissions: %w", err)
	}

	subs := make([]models.Submission, 0, len(records))
	for i, rec := range records {
		if i == 0 {
			continue // header
		}
		sub, err := parseRow(rec)
		if err != nil {
			s.log.Warn().Err(err).Int("row", i).Msg("skipping malformed submission row")
			continue
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func parseRow(rec []string) (models.Submission, error) {
	if len(rec) < len(header) {
		return models.Submission{}, fmt.Errorf("expected %d columns, got %d", len(header), len(rec))
	}
	lat, err := strconv.ParseFloat(rec[1], 64)
	if err != nil {
		return models.Submission{}, fmt.Errorf("latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(rec[2], 64)
	if err != nil {
		return models.Submission{}, fmt.Errorf("longitude: %w", err)
	}
	return models.Submission{
		Timestamp: rec[0],
		Location:  models.LatLng{Lat: lat, Lng: lng},
		ImageURL:  rec[3],
		Prompts: models.Prompts{
			MainSubject: rec[4],
			Context:     rec[5],
			Avoid:       rec[6],
			SliderValues: models.SliderValues{
				Sunlight: parseFloatOrZero(rec[7]),
				Movement: parseFloatOrZero(rec[8]),
				Privacy:  parseFloatOrZero(rec[9]),
				Harmony:  parseFloatOrZero(rec[10]),
			},
		},
	}, nil
}

func parseFloatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
