package kafka

import "time"

const (
	// MaxPollWait is the longest the reader waits for a batch to fill before returning.
	MaxPollWait = 500 * time.Millisecond
	// CommitInterval of zero makes CommitMessages synchronous, which the
	// commit-after-process loop relies on.
	CommitInterval = 0
	// WriteTimeout is the maximum time to wait for a Kafka write operation.
	WriteTimeout = 10 * time.Second
	// DialTimeout bounds broker connection setup.
	DialTimeout = 10 * time.Second
	// SessionTimeout is the consumer group session timeout (managed Kafka recommends 45s).
	SessionTimeout = 45 * time.Second
)
