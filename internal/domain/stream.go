package domain

import "time"

// StreamEntry is one raw-document notification read from the durable log.
// It is read-only to the consumer except for acknowledgement.
type StreamEntry struct {
	ID         string    `json:"entry_id"`
	ObjectKey  string    `json:"object_key"`
	Source     string    `json:"source"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// RawPayload is the JSON blob fetched from the object store for one entry.
// It is transient and exists only for the duration of one pipeline run.
type RawPayload struct {
	URL         string     `json:"url"`
	Title       string     `json:"title,omitempty"`
	Text        string     `json:"text"`
	Source      string     `json:"source,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}
