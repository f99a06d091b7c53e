package analyses

import "time"

const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusComplete   = "COMPLETE"
	StatusFailed     = "FAILED"
)

// Analysis represents one feedback-translation job.
//
// The four output fields are all-or-nothing: they are only populated together
// when the job reaches COMPLETE, and stay empty in every other state.
type Analysis struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	FileName        string     `json:"fileName"`
	FileSize        int64      `json:"fileSize"`
	OriginalContent string     `json:"-"`
	Feedback        string     `json:"feedback"`
	Interpretation  string     `json:"interpretation,omitempty"`
	Suggestions     string     `json:"-"`
	Confidence      *int       `json:"confidence,omitempty"`
	Reasoning       string     `json:"reasoning,omitempty"`
	UserRating      *int       `json:"userRating,omitempty"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	IsDeleted       bool       `json:"-"`
	DeletedAt       *time.Time `json:"-"`
}

// IsTerminal reports whether the job is in a terminal state.
func (a Analysis) IsTerminal() bool {
	return a.Status == StatusComplete || a.Status == StatusFailed
}
