package models

// Thread is one branch of the conversation tree with its own linear
// message sequence. Threads reference each other by id only; there are no
// embedded child copies.
type Thread struct {
	ID string `json:"id"`
	// ParentID is empty for root threads.
	ParentID string `json:"parent_id,omitempty"`
	// ForkPointMessageID is set when this thread was forked from a specific
	// message of its parent; it is never set without ParentID.
	ForkPointMessageID string    `json:"fork_point_message_id,omitempty"`
	Title              string    `json:"title"`
	Messages           []Message `json:"messages"`
	// Children holds the ids of threads branched or forked from this one.
	Children []string `json:"children,omitempty"`
	Summary  string   `json:"summary,omitempty"`
	// Created timestamp (ns)
	CreatedTS int64 `json:"created_ts,omitempty"`
	// Updated timestamp (ns) - last time metadata or thread activity changed
	UpdatedTS int64 `json:"updated_ts,omitempty"`
	// SummaryTS records when Summary was last regenerated (ns).
	SummaryTS int64 `json:"summary_ts,omitempty"`

	// Derived flags. Pure functions of Messages; recomputed by
	// RecomputeFlags and never trusted over a recomputation.
	HasUnread      bool `json:"has_unread,omitempty"`
	HasPendingWork bool `json:"has_pending_work,omitempty"`
	HasError       bool `json:"has_error,omitempty"`
}

// Root reports whether the thread is a conversation root.
func (t *Thread) Root() bool { return t.ParentID == "" }

// Message returns the message with the given id and its index, or nil and -1.
func (t *Thread) Message(id string) (*Message, int) {
	for i := range t.Messages {
		if t.Messages[i].ID == id {
			return &t.Messages[i], i
		}
	}
	return nil, -1
}

// CopyMessages returns a value copy of the thread's message sequence so the
// caller can mutate its copy without aliasing the original.
func (t *Thread) CopyMessages() []Message {
	out := make([]Message, len(t.Messages))
	copy(out, t.Messages)
	return out
}

// RecomputeFlags rederives HasPendingWork and HasError from the message
// list. HasUnread is owned by the viewer and left alone.
func (t *Thread) RecomputeFlags() {
	pending, errored := false, false
	for i := range t.Messages {
		switch t.Messages[i].Status {
		case StatusPending, StatusGenerating:
			pending = true
		case StatusError:
			errored = true
		}
	}
	t.HasPendingWork = pending
	t.HasError = errored
}

// Clone returns a deep copy of the thread.
func (t *Thread) Clone() *Thread {
	c := *t
	c.Messages = t.CopyMessages()
	c.Children = append([]string(nil), t.Children...)
	return &c
}
