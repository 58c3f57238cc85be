package rating

import (
	"testing"

	"OptionWatch/internal/domain/models"
)

func TestRateTable(t *testing.T) {
	pass := models.GateOutcome{Passed: true, Reason: "structure holds (bullish)"}
	stockFail := models.GateOutcome{Passed: false, Reason: "Barb Wire (CV=0.0100)"}
	optionPass := models.GateOutcome{Passed: true, Reason: "quote active (spread 4.9%)"}
	optionFail := models.GateOutcome{Passed: false, Reason: "quote stalled"}

	cases := []struct {
		name   string
		stock  models.GateOutcome
		option models.GateOutcome
		want   models.SignalGrade
	}{
		{"both pass", pass, optionPass, models.GradeA},
		{"stock only", pass, optionFail, models.GradeC},
		{"option only", stockFail, optionPass, models.GradeBlock},
		{"both fail", stockFail, optionFail, models.GradeBlock},
	}
	for _, c := range cases {
		grade, reason := Rate(c.stock, c.option)
		if grade != c.want {
			t.Fatalf("%s: expected %s got %s", c.name, c.want, grade)
		}
		if reason == "" {
			t.Fatalf("%s: empty reason", c.name)
		}
	}
}

func TestRateBlockCarriesStockReason(t *testing.T) {
	stock := models.GateOutcome{Passed: false, Reason: "insufficient data"}
	_, reason := Rate(stock, models.GateOutcome{Passed: true})
	if reason != "insufficient data" {
		t.Fatalf("unexpected reason %q", reason)
	}
}
