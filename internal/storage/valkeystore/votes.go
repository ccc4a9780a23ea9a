// Package valkeystore keeps the submission vote table in valkey, with a
// local JSON file standing in whenever valkey is unreachable or not
// configured. Votes survive a restart either way.
package valkeystore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"github.com/valkey-io/valkey-go"

	"github.com/fauxi/consensus-backend/internal/models"
)

const votesKey = "canvas:votes"

// VoteStore reads and writes the vote table. Writes always mirror to the
// fallback file so a later valkey outage never loses data.
type VoteStore struct {
	client valkey.Client
	mu     sync.Mutex
	path   string
	log    zerolog.Logger
}

// NewVoteStore connects to valkey at addr; an empty addr or a failed
// connection degrades to file-only operation rather than erroring.
func NewVoteStore(addr, dataDir string, log zerolog.Logger) *VoteStore {
	s := &VoteStore{
		path: filepath.Join(dataDir, "votes.json"),
		log:  log,
	}
	if addr == "" {
		log.Info().Msg("valkey not configured, votes stored on disk only")
		return s
	}

	client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{addr}})
	if err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("valkey unavailable, votes stored on disk only")
		return s
	}
	s.client = client
	return s
}

// Close releases the valkey connection.
func (s *VoteStore) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// Save writes the full vote table. A valkey failure is logged, not
// returned; the file write is the durability floor.
func (s *VoteStore) Save(ctx context.Context, votes models.Votes) error {
	data, err := json.Marshal(votes)
	if err != nil {
		return fmt.Errorf("encoding votes: %w", err)
	}

	if s.client != nil {
		cmd := s.client.B().Set().Key(votesKey).Value(string(data)).Build()
		if err := s.client.Do(ctx, cmd).Error(); err != nil {
			s.log.Error().Err(err).Msg("saving votes to valkey failed, file fallback only")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing votes fallback file: %w", err)
	}
	return nil
}

// Load reads the vote table, preferring valkey and falling back to the
// local file. An empty store yields an empty table, never an error.
func (s *VoteStore) Load(ctx context.Context) (models.Votes, error) {
	if s.client != nil {
		cmd := s.client.B().Get().Key(votesKey).Build()
		raw, err := s.client.Do(ctx, cmd).ToString()
		switch {
		case err == nil:
			var votes models.Votes
			if jerr := json.Unmarshal([]byte(raw), &votes); jerr == nil {
				return votes, nil
			}
			s.log.Warn().Msg("votes in valkey are malformed, trying file fallback")
		case valkey.IsValkeyNil(err):
			// No votes recorded yet in valkey; the file may still have some.
		default:
			s.log.Warn().Err(err).Msg("loading votes from valkey failed, trying file fallback")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.Votes{}, nil
		}
		return nil, fmt.Errorf("reading votes fallback file: %w", err)
	}
	var votes models.Votes
	if err := json.Unmarshal(data, &votes); err != nil {
		return nil, fmt.Errorf("decoding votes fallback file: %w", err)
	}
	return votes, nil
}
