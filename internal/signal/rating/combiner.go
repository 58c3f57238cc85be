// Package rating fuses the structural and liveness gate outcomes into the
// final signal grade.
package rating

import (
	"fmt"

	"OptionWatch/internal/domain/models"
)

// Rate applies the decision table. A structural failure blocks outright; the
// option gate only differentiates A from C. Callers should not fetch option
// data at all when the stock gate fails.
func Rate(stock, option models.GateOutcome) (models.SignalGrade, string) {
	if !stock.Passed {
		return models.GradeBlock, stock.Reason
	}
	if option.Passed {
		return models.GradeA, fmt.Sprintf("qualified (stock ok + option ok: %s)", option.Reason)
	}
	return models.GradeC, fmt.Sprintf("option on watch (stock ok, but %s)", option.Reason)
}
