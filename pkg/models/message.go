package models

// Author identifies who produced a message.
type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
	AuthorSystem    Author = "system"
)

// Status is the lifecycle state of a message. It is a required field;
// "completed" is the normal resting state, not an implicit default.
type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusGenerating, StatusCompleted, StatusError:
		return true
	}
	return false
}

// Terminal reports whether s is a terminal state. A completed message is
// never overwritten by a late error write.
func (s Status) Terminal() bool { return s == StatusCompleted }

type Message struct {
	ID     string `json:"id"`
	Author Author `json:"author"`
	Text   string `json:"text"`
	// CreatedTS is the creation timestamp (ns).
	CreatedTS int64  `json:"created_ts"`
	Status    Status `json:"status"`
	// Error holds the human-readable failure text; meaningful only when
	// Status == StatusError.
	Error string `json:"error,omitempty"`
}
