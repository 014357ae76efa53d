package models

import (
	"time"
)

// ExportStatus is the lifecycle state of an export
type ExportStatus string

const (
	StatusPending    ExportStatus = "pending"
	StatusProcessing ExportStatus = "processing"
	StatusCompleted  ExportStatus = "completed"
	StatusFailed     ExportStatus = "failed"
	StatusCanceled   ExportStatus = "canceled"
)

var transitions = map[ExportStatus][]ExportStatus{
	StatusPending:    {StatusProcessing, StatusFailed, StatusCanceled},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusCanceled},
}

// SourcesOf lists the statuses that may change to next.
func SourcesOf(next ExportStatus) []ExportStatus {
	var out []ExportStatus
	for _, from := range []ExportStatus{StatusPending, StatusProcessing} {
		if from.CanTransitionTo(next) {
			out = append(out, from)
		}
	}
	return out
}

// CanTransitionTo reports whether the status may change to next.
func (s ExportStatus) CanTransitionTo(next ExportStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Export represents one generated report file
type Export struct {
	ID          uint         `json:"id" gorm:"primarykey"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	RunID       string       `json:"run_id" gorm:"size:36;not null;uniqueIndex"`
	ReportName  string       `json:"report" gorm:"size:100;not null;index"`
	Format      string       `json:"format" gorm:"size:16;not null"`
	Status      ExportStatus `json:"status" gorm:"size:50;not null;default:'pending'"`
	FileKey     string       `json:"file_key,omitempty" gorm:"size:255"`
	RowCount    int          `json:"rows"`
	Error       string       `json:"error,omitempty" gorm:"size:1000"`
	GeneratedAt *time.Time   `json:"generated_at,omitempty"`
	Parameters  JSON         `json:"parameters,omitempty" gorm:"type:jsonb"`
	RequestedBy string       `json:"requested_by" gorm:"size:255"`
}

// TableName specifies the table name for the Export model
func (Export) TableName() string {
	return "exports"
}

// IsCompleted returns true if the export file is ready
func (e *Export) IsCompleted() bool {
	return e.Status == StatusCompleted
}

// IsPending returns true if the export is waiting for a worker
func (e *Export) IsPending() bool {
	return e.Status == StatusPending
}

// IsFailed returns true if the export failed
func (e *Export) IsFailed() bool {
	return e.Status == StatusFailed
}

// HasFile returns true if a file was stored for the export
func (e *Export) HasFile() bool {
	return e.FileKey != ""
}
