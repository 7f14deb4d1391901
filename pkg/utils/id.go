package utils

import "github.com/google/uuid"

// GenMessageID returns a new unique message id.
func GenMessageID() string { return "msg-" + uuid.New().String() }

// GenThreadID returns a new unique thread id.
func GenThreadID() string { return "thread-" + uuid.New().String() }

// GenJobID returns a unique job id with a caller-chosen prefix, e.g.
// "chat-<threadID>-<rand>". Retries always get a fresh id.
func GenJobID(prefix, threadID string) string {
	return prefix + "-" + threadID + "-" + uuid.New().String()[:8]
}
