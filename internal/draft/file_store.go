package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// FileStore keeps one JSON document per attempt under a directory. Writes go
// through a temp file and rename so a crash mid-write never truncates an
// existing draft.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating draft directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(attemptID uint) string {
	return filepath.Join(s.dir, Key(attemptID)+".json")
}

func (s *FileStore) Load(_ context.Context, attemptID uint) (Answers, bool, error) {
	data, err := os.ReadFile(s.path(attemptID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading draft: %w", err)
	}
	var answers Answers
	if err := json.Unmarshal(data, &answers); err != nil {
		// A corrupt draft is treated as absent rather than blocking the attempt.
		log.Warn().Err(err).Uint("attemptID", attemptID).Msg("Discarding unreadable draft")
		return nil, false, nil
	}
	return answers, true, nil
}

func (s *FileStore) Save(_ context.Context, attemptID uint, answers Answers) error {
	data, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("encoding draft: %w", err)
	}
	target := s.path(attemptID)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing draft: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("replacing draft: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, attemptID uint) error {
	err := os.Remove(s.path(attemptID))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
