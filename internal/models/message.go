package models

import "time"

// BodyPart is one node of a (possibly multipart) message body tree. Data is
// the base64url-encoded payload as the mail provider returns it; leaf-only
// for text parts, empty for container parts.
type BodyPart struct {
	MimeType string
	Data     string
	Parts    []*BodyPart
}

// RawMessage is a candidate mail item as fetched from the mail provider.
// Read-only to the core.
type RawMessage struct {
	ID      string
	Subject string
	From    string
	Date    time.Time
	Body    *BodyPart
}

// MessageRef identifies a candidate message returned by the poll query.
type MessageRef struct {
	ID       string
	ThreadID string
}
