package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexanderramin/kalend/internal/auth"
	"github.com/alexanderramin/kalend/internal/domain"
)

// Default look-ahead windows, in days from the user's today.
const (
	defaultViewDays   = 14
	defaultUpdateDays = 14
	defaultDeleteDays = 28
)

const errNoMatches = "no matching events found"

// Executor runs an Intent against the calendar, one call at a time.
type Executor struct {
	cal    Calendar
	logger *slog.Logger
}

// NewExecutor creates an Executor. A nil logger uses slog.Default().
func NewExecutor(cal Calendar, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{cal: cal, logger: logger}
}

// Execute runs the operations of intent in execution order and returns one
// result per operation. Item failures are recorded, not returned. The
// returned error is non-nil only for an *auth.AuthError or a cancelled ctx;
// results gathered before the abort are still returned.
func (x *Executor) Execute(ctx context.Context, intent *Intent, userID string, ti domain.TimeInfo) ([]OperationResult, error) {
	if intent == nil {
		return nil, nil
	}
	results := make([]OperationResult, 0, len(intent.Operations))
	for _, op := range Reorder(intent.Operations) {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		var (
			res OperationResult
			err error
		)
		switch o := op.(type) {
		case CreateOperation:
			res, err = x.create(ctx, userID, o)
		case ViewOperation:
			res, err = x.view(ctx, userID, o, ti)
		case UpdateOperation:
			res, err = x.update(ctx, userID, o, ti)
		case DeleteOperation:
			res, err = x.delete(ctx, userID, o, ti)
		default:
			err = fmt.Errorf("unsupported operation %T", op)
		}
		results = append(results, res)

		if err != nil {
			x.logger.WarnContext(ctx, "operation aborted turn",
				"user", userID, "operation", op.Type(), "error", err)
			return results, err
		}
		x.logger.DebugContext(ctx, "operation executed",
			"user", userID, "operation", op.Type(), "success", res.Success)
	}
	return results, nil
}

// fatal reports errors that must stop the whole turn.
func fatal(ctx context.Context, err error) bool {
	return auth.IsAuthError(err) || errors.Is(err, context.Canceled) || ctx.Err() != nil
}

func (x *Executor) create(ctx context.Context, userID string, op CreateOperation) (OperationResult, error) {
	res := OperationResult{Type: OpCreate}
	for i, e := range op.Events {
		created, err := x.cal.Create(ctx, userID, e)
		if err != nil {
			res.Events = append(res.Events, failed(e, err))
			if fatal(ctx, err) {
				// Items never attempted are still reported.
				for _, rest := range op.Events[i+1:] {
					res.Events = append(res.Events, failed(rest, errors.New("not attempted")))
				}
				res.Success = anySucceeded(res.Events)
				res.Error = err.Error()
				return res, err
			}
			continue
		}
		res.Events = append(res.Events, succeeded(*created))
	}
	res.Success = anySucceeded(res.Events)
	if !res.Success && len(res.Events) > 0 {
		res.Error = "no events were created"
	}
	return res, nil
}

func (x *Executor) view(ctx context.Context, userID string, op ViewOperation, ti domain.TimeInfo) (OperationResult, error) {
	res := OperationResult{Type: OpView}
	events, err := x.list(ctx, userID, op.Range, ti, defaultViewDays)
	if err != nil {
		res.Error = err.Error()
		if fatal(ctx, err) {
			return res, err
		}
		return res, nil
	}
	for _, e := range events {
		res.Events = append(res.Events, succeeded(e))
	}
	res.Success = true
	return res, nil
}

func (x *Executor) update(ctx context.Context, userID string, op UpdateOperation, ti domain.TimeInfo) (OperationResult, error) {
	res := OperationResult{Type: OpUpdate}
	events, err := x.list(ctx, userID, op.Range, ti, defaultUpdateDays)
	if err != nil {
		res.Error = err.Error()
		if fatal(ctx, err) {
			return res, err
		}
		return res, nil
	}
	matched := Match(events, op.Identifiers)
	if len(matched) == 0 {
		res.Error = errNoMatches
		return res, nil
	}
	for _, e := range matched {
		updated, err := x.cal.Update(ctx, userID, e.ID, keepDuration(e, op.Changes))
		if err != nil {
			res.Updates = append(res.Updates, failed(e, err))
			if fatal(ctx, err) {
				res.Success = anySucceeded(res.Updates)
				res.Error = err.Error()
				return res, err
			}
			continue
		}
		res.Updates = append(res.Updates, succeeded(*updated))
	}
	res.Success = anySucceeded(res.Updates)
	return res, nil
}

func (x *Executor) delete(ctx context.Context, userID string, op DeleteOperation, ti domain.TimeInfo) (OperationResult, error) {
	res := OperationResult{Type: OpDelete}
	events, err := x.list(ctx, userID, op.Range, ti, defaultDeleteDays)
	if err != nil {
		res.Error = err.Error()
		if fatal(ctx, err) {
			return res, err
		}
		return res, nil
	}
	matched := Match(events, op.Identifiers)
	if len(matched) == 0 {
		res.Error = errNoMatches
		return res, nil
	}
	for _, e := range matched {
		if _, err := x.cal.Delete(ctx, userID, e.ID); err != nil {
			res.Deletions = append(res.Deletions, failed(e, err))
			if fatal(ctx, err) {
				res.Success = anySucceeded(res.Deletions)
				res.Error = err.Error()
				return res, err
			}
			continue
		}
		res.Deletions = append(res.Deletions, succeeded(e))
	}
	res.Success = anySucceeded(res.Deletions)
	return res, nil
}

// list fetches events in rng, or in the default window of days when rng is nil.
func (x *Executor) list(ctx context.Context, userID string, rng *TimeRange, ti domain.TimeInfo, days int) ([]domain.Event, error) {
	var start, end time.Time
	if rng != nil {
		start, end = rng.Start, rng.End
	} else {
		var err error
		if start, end, err = ti.DayRange(days); err != nil {
			return nil, err
		}
	}
	return x.cal.List(ctx, userID, start, end)
}

// keepDuration fills in End when Start moves without one, so the event keeps
// its length and both endpoints stay the same kind. All-day events shift by
// their day span; a switch between timed and all-day gets a one-day or
// one-hour default end.
func keepDuration(e domain.Event, p domain.EventPatch) domain.EventPatch {
	if p.Start == nil || p.End != nil || p.Start.IsZero() {
		return p
	}
	newStart, err := p.Start.Time(nil)
	if err != nil {
		return p
	}
	oldStart, err1 := e.Start.Time(nil)
	oldEnd, err2 := e.End.Time(nil)
	sameKind := err1 == nil && err2 == nil && oldEnd.After(oldStart) && e.Start.IsDate() == p.Start.IsDate()

	var end domain.EventTime
	if p.Start.IsDate() {
		days := 1
		if sameKind {
			days = max(1, int(oldEnd.Sub(oldStart).Hours()/24+0.5))
		}
		end = domain.EventTime{Date: newStart.AddDate(0, 0, days).Format(domain.DateLayout)}
	} else {
		length := time.Hour
		if sameKind {
			length = oldEnd.Sub(oldStart)
		}
		end = domain.EventTime{
			DateTime: newStart.Add(length).In(newStart.Location()).Format(time.RFC3339),
			TimeZone: p.Start.TimeZone,
		}
	}
	p.End = &end
	return p
}
