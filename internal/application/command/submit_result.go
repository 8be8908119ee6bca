// Package command contains write operations (CQRS - Commands).
// Commands are responsible for changing the state of the system.
package command

import (
	"context"
	"time"

	"github.com/englishlessons/lessons-hub/internal/domain/ranking"
	"github.com/englishlessons/lessons-hub/internal/domain/result"
	"github.com/englishlessons/lessons-hub/internal/domain/shared"
	"github.com/englishlessons/lessons-hub/internal/domain/student"
	"github.com/englishlessons/lessons-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT RESULT COMMAND
// Records one lesson submission in the result ledger.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitResultCommand contains the data of a single submission.
type SubmitResultCommand struct {
	// Caller is the authenticated account submitting the result.
	Caller *student.Student

	// LessonNumber identifies the lesson, starting at 1.
	LessonNumber int

	// Score is the score achieved in this attempt.
	Score int
}

// SubmitResultHandler handles SubmitResultCommand.
type SubmitResultHandler struct {
	results result.Repository
	cache   ranking.StatsCache
	policy  result.Policy
	now     func() time.Time
	log     *logger.Logger
}

// NewSubmitResultHandler creates a new handler. cache may be nil.
func NewSubmitResultHandler(
	results result.Repository,
	cache ranking.StatsCache,
	policy result.Policy,
	log *logger.Logger,
) *SubmitResultHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &SubmitResultHandler{
		results: results,
		cache:   cache,
		policy:  policy,
		now:     func() time.Time { return time.Now().UTC() },
		log:     log.With(logger.Component("submit_result")),
	}
}

// WithClock overrides the submission clock. Used in tests.
func (h *SubmitResultHandler) WithClock(now func() time.Time) *SubmitResultHandler {
	h.now = now
	return h
}

// Handle executes the command and returns the updated ledger record.
//
// The upsert is not retried here: a retry after an ambiguous storage failure
// could count the same attempt twice.
func (h *SubmitResultHandler) Handle(ctx context.Context, cmd SubmitResultCommand) (result.Record, error) {
	if cmd.Caller == nil {
		return result.Record{}, shared.NewDomainError("result", "Submit", shared.ErrUnauthorized, "authentication required")
	}
	if !cmd.Caller.IsStudent() {
		return result.Record{}, shared.ErrSubmitNotAllowed
	}
	if err := h.policy.Validate(cmd.LessonNumber, cmd.Score); err != nil {
		return result.Record{}, err
	}

	rec, err := h.results.Upsert(ctx, result.Submission{
		StudentID:    cmd.Caller.ID,
		LessonNumber: cmd.LessonNumber,
		Score:        cmd.Score,
		SubmittedAt:  h.now(),
	})
	if err != nil {
		h.log.Error("submit failed",
			logger.StudentID(cmd.Caller.ID.String()),
			logger.LessonNumber(cmd.LessonNumber),
			logger.Err(err),
		)
		if shared.IsRetryable(err) {
			return result.Record{}, err
		}
		return result.Record{}, shared.Storage("result", "Submit", err)
	}

	if h.cache != nil {
		if class, ok := cmd.Caller.Class(); ok {
			if err := h.cache.InvalidateCohort(ctx, class); err != nil {
				h.log.Warn("stats cache invalidation failed",
					logger.Class(class.Display()),
					logger.Err(err),
				)
			}
		}
	}

	h.log.Info("result submitted",
		logger.StudentID(cmd.Caller.ID.String()),
		logger.LessonNumber(rec.LessonNumber),
		logger.Score(cmd.Score),
		logger.Int("best_score", rec.BestScore),
		logger.Attempts(rec.Attempts),
	)

	return rec, nil
}
