package model

// Status represents the lifecycle state of a download item
type Status string

const (
	// StatusIdle means the item has not been started or was reset
	StatusIdle Status = "idle"

	// StatusDownloading means metadata fetch or content transfer is in progress
	StatusDownloading Status = "downloading"

	// StatusCompleted means the transfer finished successfully
	StatusCompleted Status = "completed"

	// StatusExists means the expected output file was already on disk
	StatusExists Status = "exists"

	// StatusError means the run failed with a classified error
	StatusError Status = "error"

	// StatusCancelled means the run was stopped by the user
	StatusCancelled Status = "cancelled"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsActive returns true if a run is in progress
func (s Status) IsActive() bool {
	return s == StatusDownloading
}

// IsTerminal returns true if the status ends a run (completed, exists, error or cancelled)
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusExists, StatusError, StatusCancelled:
		return true
	}
	return false
}

// IsDone returns true if the item produced a file (completed or already present)
func (s Status) IsDone() bool {
	return s == StatusCompleted || s == StatusExists
}

// CanStart returns true if a new run may begin from this status
func (s Status) CanStart() bool {
	return s == StatusIdle || s == StatusCancelled || s == StatusError
}
