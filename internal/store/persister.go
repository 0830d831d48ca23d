package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/SwiftShowings/internal/flow"
	"github.com/BTreeMap/SwiftShowings/internal/models"
)

// RecordPersister appends completed flows and conversation exchanges to a
// RecordRepo.
type RecordPersister struct {
	repo RecordRepo
	now  func() time.Time
}

// Compile-time check that RecordPersister implements flow.Persister.
var _ flow.Persister = (*RecordPersister)(nil)

// NewRecordPersister creates a RecordPersister over repo.
func NewRecordPersister(repo RecordRepo) *RecordPersister {
	return &RecordPersister{repo: repo, now: time.Now}
}

// Persist stores fields as a record of the given kind. The user id is taken
// from the second column, matching the row layout every record family shares.
func (p *RecordPersister) Persist(ctx context.Context, kind models.EventKind, fields []string) error {
	if !models.IsValidEventKind(kind) {
		return fmt.Errorf("persist: %w: %q", models.ErrInvalidEventKind, kind)
	}
	r := models.Record{
		ID:        newRecordID(),
		Kind:      kind,
		Fields:    fields,
		CreatedAt: p.now().UTC(),
	}
	if len(fields) > 1 {
		r.UserID = fields[1]
	}
	if err := p.repo.AddRecord(ctx, r); err != nil {
		return fmt.Errorf("persist %s record: %w", kind, err)
	}
	slog.Debug("RecordPersister.Persist: record stored", "id", r.ID, "kind", kind, "userID", r.UserID)
	return nil
}

// LogConversation stores one exchange as a conversation record.
func (p *RecordPersister) LogConversation(ctx context.Context, entry models.ConversationEntry) error {
	if entry.Time.IsZero() {
		entry.Time = p.now()
	}
	return p.Persist(ctx, models.EventKindConversation, entry.Fields())
}
