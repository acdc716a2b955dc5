package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/newthinker/specforge/internal/core"
)

// Store layers spec-aware paths over a Backend. Accepted specs land at
// specs/<family>/<strategy_id>/<timestamp>.json.
type Store struct {
	backend Backend
	now     func() time.Time
}

// NewStore creates a spec archive over backend.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend, now: time.Now}
}

// SetClock overrides the timestamp source, for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// SaveAccepted persists one accepted generation envelope and returns
// its archive path.
func (s *Store) SaveAccepted(ctx context.Context, family string, envelope map[string]any) (string, error) {
	strategyID := "unknown"
	if spec, ok := envelope["strategy_spec"].(map[string]any); ok {
		if id, ok := spec["strategy_id"].(string); ok && id != "" {
			strategyID = id
		}
	}

	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return "", core.WrapError(core.ErrArchiveFailed, err)
	}

	path := fmt.Sprintf("specs/%s/%s/%d.json", family, strategyID, s.now().UnixMilli())
	if err := s.backend.Write(ctx, path, data); err != nil {
		return "", core.WrapError(core.ErrArchiveFailed, err)
	}
	return path, nil
}

// Load reads one archived envelope back.
func (s *Store) Load(ctx context.Context, path string) (map[string]any, error) {
	data, err := s.backend.Read(ctx, path)
	if err != nil {
		return nil, core.WrapError(core.ErrSpecNotFound, err)
	}
	var envelope map[string]any
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, core.WrapError(core.ErrArchiveFailed, err)
	}
	return envelope, nil
}

// ListVersions returns archived paths for one strategy, oldest first.
func (s *Store) ListVersions(ctx context.Context, family, strategyID string) ([]string, error) {
	paths, err := s.backend.List(ctx, fmt.Sprintf("specs/%s/%s", family, strategyID))
	if err != nil {
		return nil, core.WrapError(core.ErrArchiveFailed, err)
	}
	return paths, nil
}
