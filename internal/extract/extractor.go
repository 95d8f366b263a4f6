// Package extract turns raw multipart message bodies into a single
// plain-text string for the transaction parser.
package extract

import (
	"encoding/base64"
	"strings"

	"github.com/Wimboro/gmail-wa/internal/logging"
	"github.com/Wimboro/gmail-wa/internal/models"
)

const (
	mimeTextPlain = "text/plain"
	mimeTextHTML  = "text/html"
)

// Extractor resolves a message body tree to plain text. Multipart bodies
// prefer the first text/plain part found depth-first; text/html is the
// fallback and gets stripped to text.
type Extractor struct {
	stripper HTMLStripper
	logger   logging.Logger
}

// New creates an Extractor. A nil stripper defaults to RegexStripper.
func New(stripper HTMLStripper, logger logging.Logger) *Extractor {
	if stripper == nil {
		stripper = RegexStripper{}
	}
	if logger == nil {
		logger = logging.NewMockLogger()
	}
	return &Extractor{stripper: stripper, logger: logger}
}

// Text extracts the plain-text body of msg. The boolean is false when no
// text could be recovered; the caller treats that as a non-retryable
// extraction failure.
func (e *Extractor) Text(msg *models.RawMessage) (string, bool) {
	if msg == nil || msg.Body == nil {
		return "", false
	}

	if plain := e.firstPart(msg.Body, mimeTextPlain); plain != nil {
		if text := strings.TrimSpace(decodePayload(plain.Data)); text != "" {
			return text, true
		}
	}
	if htmlPart := e.firstPart(msg.Body, mimeTextHTML); htmlPart != nil {
		if text := strings.TrimSpace(e.stripper.Strip(decodePayload(htmlPart.Data))); text != "" {
			return text, true
		}
	}

	e.logger.WithField("email_id", msg.ID).Debug("No extractable text in message body")
	return "", false
}

// firstPart walks the part tree depth-first and returns the first node whose
// mime type matches. A leaf node with no sub-parts matches itself.
func (e *Extractor) firstPart(part *models.BodyPart, mimeType string) *models.BodyPart {
	if part == nil {
		return nil
	}
	if len(part.Parts) == 0 {
		if strings.HasPrefix(strings.ToLower(part.MimeType), mimeType) {
			return part
		}
		return nil
	}
	for _, sub := range part.Parts {
		if found := e.firstPart(sub, mimeType); found != nil {
			return found
		}
	}
	return nil
}

// decodePayload decodes a base64url body payload. Payloads that are not
// valid base64 are assumed to be already-decoded text.
func decodePayload(data string) string {
	if data == "" {
		return ""
	}
	if decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(strings.TrimRight(data, "=")); err == nil {
		return string(decoded)
	}
	if decoded, err := base64.StdEncoding.DecodeString(data); err == nil {
		return string(decoded)
	}
	return data
}
