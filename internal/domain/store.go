package domain

import "context"

// EntryJournal persists dispatched entries for post-hoc review. Journaling is
// optional: the engine works without a journal, and journal failures never
// block or undo an entry.
type EntryJournal interface {
	RecordEntry(ctx context.Context, rec EntryRecord) error
}

// SignalBus publishes trade decisions for external observers. Like the
// journal it is optional and write-only from the engine's perspective.
type SignalBus interface {
	PublishDecision(ctx context.Context, d TradeDecision) error
}
