package metrics

import (
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// LoanCount reads the current value of one loan transition series.
func LoanCount(operation, result string) float64 {
	return testutil.ToFloat64(loanTransitions.WithLabelValues(operation, result))
}
