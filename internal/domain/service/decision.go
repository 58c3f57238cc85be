package service

import (
	"context"

	"OptionWatch/internal/domain/models"
)

// DecisionProvider supplies the externally computed structural verdict for a
// symbol. Implementations must map any failure to DecisionUnavailable rather
// than returning an error that would abort a scan.
type DecisionProvider interface {
	Decide(ctx context.Context, symbol string) models.Decision
}
