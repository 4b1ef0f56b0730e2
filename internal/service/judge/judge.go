// Package judge decides answers to clues and drives the attempt escalation ladder.
package judge

import (
	"context"
	"fmt"
	"strings"

	"github.com/trailquest/trailquest/internal/apperr"
	"github.com/trailquest/trailquest/internal/cache"
	"github.com/trailquest/trailquest/internal/config"
	prommetrics "github.com/trailquest/trailquest/internal/metrics"
	"github.com/trailquest/trailquest/internal/models"
	"github.com/trailquest/trailquest/internal/repository"
	"github.com/trailquest/trailquest/internal/service/attempts"
	"github.com/trailquest/trailquest/internal/service/progress"
	"github.com/trailquest/trailquest/pkg/logger"
)

// Outcome labels used for logging and metrics.
const (
	OutcomeCorrect   = "correct"
	OutcomeBypassed  = "bypassed"
	OutcomeIncorrect = "incorrect"
)

// AccessChecker rejects viewers that have not unlocked a hunt.
type AccessChecker interface {
	Check(ctx context.Context, viewer models.Viewer, hunt *models.Hunt) error
}

// Submission is either an answer or a bypass request.
type Submission struct {
	Answer string `json:"answer"`
	Bypass bool   `json:"bypass"`
}

// BadgeSummary is a newly earned badge as reported in a verdict.
type BadgeSummary struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Verdict is the judged result of a submission. Wrong answers are verdicts too, not errors.
type Verdict struct {
	Correct  bool `json:"correct"`
	Bypassed bool `json:"bypassed,omitempty"`

	CorrectAnswer         string         `json:"correctAnswer,omitempty"`
	Narrative             string         `json:"narrative,omitempty"`
	Points                *int           `json:"points,omitempty"`
	TotalPoints           *int           `json:"totalPoints,omitempty"`
	Completed             bool           `json:"completed"`
	CompletionTimeMinutes *int           `json:"completionTimeMinutes,omitempty"`
	NextClueID            *uint          `json:"nextClueId,omitempty"`
	Badges                []BadgeSummary `json:"badges,omitempty"`

	Attempts     int    `json:"attempts,omitempty"`
	ShowHint     bool   `json:"showHint,omitempty"`
	Hint         string `json:"hint,omitempty"`
	CanBypass    bool   `json:"canBypass,omitempty"`
	BypassPrompt string `json:"bypassPrompt,omitempty"`
}

func (v *Verdict) outcome() string {
	switch {
	case v.Bypassed:
		return OutcomeBypassed
	case v.Correct:
		return OutcomeCorrect
	default:
		return OutcomeIncorrect
	}
}

// Judge serializes submissions per (user, hunt) and judges them in one transaction.
type Judge struct {
	store   *repository.Store
	gate    AccessChecker
	tracker *attempts.Tracker
	engine  *progress.Engine
	locker  *cache.Locker
	policy  config.PlayConfig
	log     *logger.Logger
}

// NewJudge creates a judge.
func NewJudge(
	store *repository.Store,
	gate AccessChecker,
	tracker *attempts.Tracker,
	engine *progress.Engine,
	locker *cache.Locker,
	policy config.PlayConfig,
	log *logger.Logger,
) *Judge {
	return &Judge{
		store:   store,
		gate:    gate,
		tracker: tracker,
		engine:  engine,
		locker:  locker,
		policy:  policy,
		log:     log,
	}
}

// Judge evaluates a submission for clueID on behalf of viewer.
func (j *Judge) Judge(ctx context.Context, viewer models.Viewer, clueID uint, sub Submission) (*Verdict, error) {
	clue, err := j.store.Hunts.GetClue(clueID)
	if err != nil {
		return nil, err
	}
	hunt, err := j.store.Hunts.GetByID(clue.HuntID)
	if err != nil {
		return nil, err
	}

	if err := j.gate.Check(ctx, viewer, hunt); err != nil {
		return nil, err
	}
	if !sub.Bypass && !hunt.AutoAcceptAnswers && strings.TrimSpace(sub.Answer) == "" {
		return nil, fmt.Errorf("answer for clue %d is empty: %w", clueID, apperr.ErrInvalidInput)
	}

	release, err := j.locker.Acquire(ctx, cache.PlayKey(viewer.UserID, hunt.ID))
	if err != nil {
		return nil, err
	}
	defer release()

	var verdict *Verdict
	err = j.store.InTx(ctx, func(tx *repository.Store) error {
		engine := j.engine.Bind(tx)
		tracker := j.tracker.Bind(tx)

		current, err := engine.Lock(ctx, viewer.UserID, hunt.ID)
		if err != nil {
			return err
		}
		if err := engine.CheckSequence(current, clue); err != nil {
			return err
		}

		key := attempts.Key{UserID: viewer.UserID, HuntID: hunt.ID, ClueID: clue.ID}
		switch {
		case sub.Bypass:
			verdict, err = j.bypass(ctx, engine, tracker, key, hunt, clue, current)
		case hunt.AutoAcceptAnswers || clue.Matches(sub.Answer):
			verdict, err = j.accept(ctx, engine, viewer.UserID, hunt, clue, current)
		default:
			verdict, err = j.reject(ctx, tracker, key, clue)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	j.record(viewer.UserID, clue, verdict)
	return verdict, nil
}

func (j *Judge) bypass(
	ctx context.Context,
	engine *progress.Engine,
	tracker *attempts.Tracker,
	key attempts.Key,
	hunt *models.Hunt,
	clue *models.Clue,
	current *models.UserProgress,
) (*Verdict, error) {
	if _, err := tracker.MarkBypassed(ctx, key); err != nil {
		return nil, err
	}

	result, err := engine.Advance(ctx, key.UserID, hunt, clue, 0, current)
	if err != nil {
		return nil, err
	}

	verdict := fromResult(result, 0)
	verdict.Bypassed = true
	verdict.CorrectAnswer = clue.Answer
	verdict.Narrative = clue.Narrative
	return verdict, nil
}

func (j *Judge) accept(
	ctx context.Context,
	engine *progress.Engine,
	userID uint,
	hunt *models.Hunt,
	clue *models.Clue,
	current *models.UserProgress,
) (*Verdict, error) {
	result, err := engine.Advance(ctx, userID, hunt, clue, clue.Points, current)
	if err != nil {
		return nil, err
	}

	verdict := fromResult(result, clue.Points)
	verdict.Narrative = clue.Narrative
	return verdict, nil
}

// reject records the miss and climbs the escalation ladder. Thresholds are
// compared against the stored counter, so a crossed threshold stays crossed.
func (j *Judge) reject(ctx context.Context, tracker *attempts.Tracker, key attempts.Key, clue *models.Clue) (*Verdict, error) {
	attempt, err := tracker.RecordIncorrect(ctx, key)
	if err != nil {
		return nil, err
	}

	verdict := &Verdict{Attempts: attempt.IncorrectAttempts}

	if attempt.IncorrectAttempts >= j.policy.HintThreshold && clue.HasHint() {
		verdict.Hint = clue.Hint
		if !attempt.HintViewed {
			if _, err := tracker.MarkHintViewed(ctx, key); err != nil {
				return nil, err
			}
			verdict.ShowHint = true
		}
	}

	if attempt.IncorrectAttempts >= j.policy.BypassThreshold {
		verdict.CanBypass = true
		verdict.BypassPrompt = j.policy.BypassPrompt
	}

	return verdict, nil
}

func fromResult(result *progress.Result, points int) *Verdict {
	total := result.Progress.TotalPoints
	verdict := &Verdict{
		Correct:     true,
		Points:      &points,
		TotalPoints: &total,
		Completed:   result.Completed(),
	}

	if result.NextClue != nil {
		next := result.NextClue.ID
		verdict.NextClueID = &next
	}
	if result.Completed() {
		minutes := result.Completion.CompletionTimeMinutes
		verdict.CompletionTimeMinutes = &minutes
	}
	for _, b := range result.Badges {
		verdict.Badges = append(verdict.Badges, BadgeSummary{
			ID:          b.ID,
			Name:        b.Name,
			Description: b.Description,
			Icon:        b.Icon,
		})
	}

	return verdict
}

func (j *Judge) record(userID uint, clue *models.Clue, verdict *Verdict) {
	outcome := verdict.outcome()
	prommetrics.RecordAnswerJudged(outcome)
	if verdict.ShowHint {
		prommetrics.RecordHintRevealed()
	}
	if verdict.CanBypass {
		prommetrics.RecordBypassOffered()
	}

	j.log.Debug().
		Uint("user_id", userID).
		Uint("hunt_id", clue.HuntID).
		Uint("clue_id", clue.ID).
		Str("outcome", outcome).
		Int("attempts", verdict.Attempts).
		Bool("completed", verdict.Completed).
		Msg("Answer judged")
}
