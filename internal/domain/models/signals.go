package models

import "time"

// ScanReport is the consolidated view of one full watchlist scan.
type ScanReport struct {
	Timestamp  time.Time         `json:"timestamp"`
	Phase      MarketPhase       `json:"phase"`
	Thresholds Thresholds        `json:"thresholds"`
	Results    []Evaluation      `json:"results"`
	CountA     int               `json:"count_a"`
	CountC     int               `json:"count_c"`
	CountBlock int               `json:"count_block"`
	Errors     map[string]string `json:"errors,omitempty"`
}
