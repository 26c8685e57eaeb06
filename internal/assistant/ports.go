package assistant

import (
	"context"
	"time"

	"github.com/alexanderramin/kalend/internal/domain"
	"github.com/alexanderramin/kalend/internal/repository"
)

// Calendar is the set of calendar operations the pipeline needs.
// *gcal.Client satisfies it.
type Calendar interface {
	List(ctx context.Context, userID string, start, end time.Time) ([]domain.Event, error)
	Create(ctx context.Context, userID string, e domain.Event) (*domain.Event, error)
	Update(ctx context.Context, userID, eventID string, p domain.EventPatch) (*domain.Event, error)
	Delete(ctx context.Context, userID, eventID string) (bool, error)
}

// WeekLister is implemented by calendars that list the current week
// themselves. *gcal.Client satisfies it.
type WeekLister interface {
	ListCurrentWeek(ctx context.Context, userID string, now time.Time) ([]domain.Event, error)
}

// ConversationStore persists session history.
// *repository.SQLiteConversationRepo satisfies it.
type ConversationStore interface {
	Ensure(ctx context.Context, sessionID, userID string) (*repository.ConversationSession, error)
	SetPersonality(ctx context.Context, sessionID, personality string) error
	Append(ctx context.Context, sessionID string, turns ...domain.Turn) error
	List(ctx context.Context, sessionID string) ([]domain.StoredTurn, error)
}
