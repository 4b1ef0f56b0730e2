package badges

import (
	"context"
	"fmt"

	"github.com/trailquest/trailquest/internal/models"
)

// checkCriteria evaluates badge criteria against the user's completion history,
// including the run that just finished.
func (s *Service) checkCriteria(ctx context.Context, criteria *models.BadgeCriteria, completion *models.HuntCompletion) (bool, error) {
	switch criteria.Operator {
	case models.OperatorRecord:
		return s.holdsRecord(ctx, criteria.Metric, completion)
	case models.OperatorLeader:
		return s.isLeader(ctx, criteria.Metric, completion.UserID)
	}

	metricValue, err := s.metricValue(criteria, completion)
	if err != nil {
		return false, err
	}

	return s.evaluateMetricCriteria(criteria.Operator, criteria.Value, metricValue)
}

// evaluateMetricCriteria compares a metric value against criteria using the specified operator.
func (s *Service) evaluateMetricCriteria(operator string, threshold, actualValue float64) (bool, error) {
	switch operator {
	case "<":
		return actualValue < threshold, nil
	case "<=":
		return actualValue <= threshold, nil
	case ">":
		return actualValue > threshold, nil
	case ">=":
		return actualValue >= threshold, nil
	case "==":
		return actualValue == threshold, nil
	default:
		return false, fmt.Errorf("unsupported operator: %s", operator)
	}
}

// metricValue reads one metric for the completing user.
func (s *Service) metricValue(criteria *models.BadgeCriteria, completion *models.HuntCompletion) (float64, error) {
	var (
		count int64
		err   error
	)

	switch criteria.Metric {
	case models.MetricCategoryCompletions:
		count, err = s.completionRepo.CountByUserAndCategory(completion.UserID, criteria.Filter)
	case models.MetricDifficultyCompletions:
		count, err = s.completionRepo.CountByUserAndDifficulty(completion.UserID, criteria.Filter)
	case models.MetricCompletedHunts:
		count, err = s.completionRepo.CountByUser(completion.UserID)
	case models.MetricCompletionTime:
		return float64(completion.CompletionTimeMinutes), nil
	default:
		return 0, fmt.Errorf("unsupported metric: %s", criteria.Metric)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", criteria.Metric, err)
	}

	return float64(count), nil
}

// holdsRecord reports whether completion is the global fastest run. The
// completion log resolves ties in favour of the earliest row, so a later run
// that only equals the record does not take it.
//
//nolint:revive // ctx reserved for future context-aware operations
func (s *Service) holdsRecord(ctx context.Context, metric string, completion *models.HuntCompletion) (bool, error) {
	if metric != models.MetricCompletionTime {
		return false, fmt.Errorf("record operator not supported for metric: %s", metric)
	}

	fastest, err := s.completionRepo.Fastest()
	if err != nil {
		return false, err
	}

	return fastest != nil && fastest.ID == completion.ID, nil
}

// isLeader reports whether the user's completion count is at least the highest
// count held by any user. Ties share the lead.
//
//nolint:revive // ctx reserved for future context-aware operations
func (s *Service) isLeader(ctx context.Context, metric string, userID uint) (bool, error) {
	if metric != models.MetricCompletedHunts {
		return false, fmt.Errorf("leader operator not supported for metric: %s", metric)
	}

	mine, err := s.completionRepo.CountByUser(userID)
	if err != nil {
		return false, err
	}
	if mine == 0 {
		return false, nil
	}

	best, err := s.completionRepo.MaxCompletionsPerUser()
	if err != nil {
		return false, err
	}

	return mine >= best, nil
}
