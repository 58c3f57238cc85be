package models

// Requests for scanner HTTP endpoints. Defined in domain for consistency and reuse.

type EvaluateRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required,alphanum,uppercase,max=10"`
	Decision string `query:"decision" json:"decision" default:"approve" validate:"oneof=approve veto unavailable"`
}

type ScanRequest struct {
	Fresh bool `query:"fresh" json:"fresh"` // bypass the cached report
}

type ObservationsRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required,alphanum,uppercase,max=10"`
	Contract string `query:"contract" json:"contract"`
	From     string `query:"from" json:"from"`
	To       string `query:"to" json:"to"`
	Limit    int    `query:"limit" json:"limit" default:"500" validate:"gte=1,lte=10000"`
}
