// Package decision supplies the external structural verdict consumed by the
// structural gate.
package decision

import (
	"context"
	"time"

	"OptionWatch/internal/domain/models"
	dsvc "OptionWatch/internal/domain/service"
	xhttp "OptionWatch/pkg/http"
	"OptionWatch/pkg/logger"
)

// Static always returns the configured verdict. It is the default provider
// when no adjudication service is wired.
type Static struct {
	verdict models.Decision
}

// NewStatic builds a static provider. Unknown verdict strings degrade to
// UNAVAILABLE rather than silently approving.
func NewStatic(verdict string) *Static {
	switch models.Decision(verdict) {
	case models.DecisionVeto:
		return &Static{verdict: models.DecisionVeto}
	case "", models.DecisionApprove:
		return &Static{verdict: models.DecisionApprove}
	default:
		return &Static{verdict: models.DecisionUnavailable}
	}
}

func (s *Static) Decide(_ context.Context, _ string) models.Decision {
	return s.verdict
}

// HTTP asks a remote adjudication service per symbol. Any transport or
// protocol failure yields UNAVAILABLE; a scan must never abort because the
// adjudicator is down.
type HTTP struct {
	baseURL  string
	client   *xhttp.Client
	attempts int
	log      *logger.Logger
}

// NewHTTP builds the remote provider.
func NewHTTP(baseURL string, timeout time.Duration, log *logger.Logger) *HTTP {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTP{
		baseURL:  baseURL,
		client:   xhttp.NewClient(xhttp.WithTimeout(timeout)),
		attempts: 3,
		log:      log,
	}
}

type decideRequest struct {
	Symbol string `json:"symbol"`
}

type decideResponse struct {
	Verdict string `json:"verdict"`
}

func (h *HTTP) Decide(ctx context.Context, symbol string) models.Decision {
	var resp decideResponse
	var err error
	for i := 1; i <= h.attempts; i++ {
		err = h.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:  xhttp.MethodPost,
			URL:     h.baseURL + "/decide",
			Headers: map[string]string{"Content-Type": "application/json"},
			Body:    decideRequest{Symbol: symbol},
		}, &resp)
		if err == nil {
			break
		}
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			err = ctx.Err()
			i = h.attempts
		}
	}
	if err != nil {
		h.log.Warn("decision service unavailable",
			logger.String("symbol", symbol),
			logger.Error(err))
		return models.DecisionUnavailable
	}

	switch models.Decision(resp.Verdict) {
	case models.DecisionApprove:
		return models.DecisionApprove
	case models.DecisionVeto:
		return models.DecisionVeto
	default:
		h.log.Warn("decision service returned unknown verdict",
			logger.String("symbol", symbol),
			logger.String("verdict", resp.Verdict))
		return models.DecisionUnavailable
	}
}

var (
	_ dsvc.DecisionProvider = (*Static)(nil)
	_ dsvc.DecisionProvider = (*HTTP)(nil)
)
