package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// roundQuota counts the rounds spent on one cyclic component.
//
// Every domain the processors use has finite height, so a component that
// keeps changing past the limit points at a non-monotone processor.
type roundQuota struct {
	limit   int
	current int
}

func newRoundQuota(limit int) *roundQuota {
	return &roundQuota{limit: limit}
}

// check counts one round and fails once the limit is exceeded.
func (q *roundQuota) check(processor string, members []string) error {
	q.current++
	if q.current > q.limit {
		return &IterationQuotaError{
			Processor: processor,
			Functions: members,
			Rounds:    q.current,
			Limit:     q.limit,
		}
	}
	return nil
}

// IterationQuotaError is returned when a cyclic component does not reach
// a fixed point within the configured number of rounds.
type IterationQuotaError struct {
	Processor string
	Functions []string
	Rounds    int
	Limit     int
}

func (e *IterationQuotaError) Error() string {
	return fmt.Sprintf("%s: component {%s} did not converge: %d rounds > %d limit",
		e.Processor, strings.Join(e.Functions, ", "), e.Rounds, e.Limit)
}

// IsIterationQuotaError reports whether err is or wraps an
// IterationQuotaError.
func IsIterationQuotaError(err error) bool {
	var qe *IterationQuotaError
	return errors.As(err, &qe)
}
