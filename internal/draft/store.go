package draft

import (
	"context"
	"encoding/json"
	"fmt"
)

// keyPrefix is the draft key namespace shared by clients of the quiz service,
// so drafts written by any of them are interchangeable on the same store.
const keyPrefix = "quiz_answers_draft_"

// Answers is the serialized draft document: question id mapped to the raw
// answer value (number, bool, string or null).
type Answers map[uint]json.RawMessage

// Store is a durable key-value cache for in-progress attempt drafts. A draft
// is written on every answer edit, read once when a session opens, and deleted
// after a successful submission.
type Store interface {
	// Load returns the draft for the attempt, or ok=false when none exists.
	Load(ctx context.Context, attemptID uint) (answers Answers, ok bool, err error)
	// Save overwrites the draft for the attempt.
	Save(ctx context.Context, attemptID uint, answers Answers) error
	// Delete removes the draft. Deleting a missing draft is not an error.
	Delete(ctx context.Context, attemptID uint) error
}

// Key returns the storage key for an attempt's draft.
func Key(attemptID uint) string {
	return fmt.Sprintf("%s%d", keyPrefix, attemptID)
}
