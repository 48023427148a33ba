package exports

import "time"

// Export is a persisted copy of an assembled analysis document.
type Export struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"sessionId"`
	AnalysisType   string    `json:"analysisType"`
	Provider       string    `json:"provider"`
	Status         string    `json:"status"`
	UnitsProcessed int       `json:"unitsProcessed"`
	UnitsTotal     int       `json:"unitsTotal"`
	StorageKey     string    `json:"-"`
	SizeBytes      int64     `json:"sizeBytes"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Complete reports whether every unit produced output.
func (e Export) Complete() bool {
	return e.UnitsTotal > 0 && e.UnitsProcessed == e.UnitsTotal
}
