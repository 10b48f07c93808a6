package model

// EventKind identifies what happened to an item
type EventKind string

const (
	// EventAdded is published when a new row is registered
	EventAdded EventKind = "added"

	// EventUpdated is published after every change of status, progress, title, filename or error
	EventUpdated EventKind = "updated"

	// EventDuplicate is the one-shot notice that the expected output already exists
	EventDuplicate EventKind = "duplicate"

	// EventRemoved is published when a row is deleted
	EventRemoved EventKind = "removed"
)

// Event carries a snapshot of the item taken right after the change
type Event struct {
	Kind EventKind    `json:"kind"`
	Item DownloadItem `json:"item"`
}
