package mailbox

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/Wimboro/gmail-wa/internal/logging"
	"github.com/Wimboro/gmail-wa/internal/models"
)

// Gmail API quota units per call, see
// https://developers.google.com/gmail/api/reference/quota
const (
	quotaUnitsList   = 5
	quotaUnitsGet    = 5
	quotaUnitsModify = 5
	quotaUnitsLabels = 1

	quotaUnitsPerSecond = 250
	rateLimitPerSecond  = quotaUnitsPerSecond * 0.8
	rateLimitBurst      = quotaUnitsPerSecond
)

// GmailMailbox implements Mailbox against the Gmail API for one account.
// MarkProcessed removes the UNREAD label and applies the configured
// processed label, creating the label on first use.
type GmailMailbox struct {
	svc       *gmail.Service
	account   string
	labelName string
	labelID   string
	limiter   *rate.Limiter
	log       logging.Logger
}

// NewGmailMailbox builds a mailbox from an OAuth credentials file and a
// cached token file. Token refresh is handled by the oauth2 transport.
func NewGmailMailbox(ctx context.Context, account, credentialsFile, tokenFile, labelName string, logger logging.Logger) (*GmailMailbox, error) {
	creds, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, errors.Wrap(err, "gmail: read credentials")
	}
	cfg, err := google.ConfigFromJSON(creds, gmail.GmailModifyScope)
	if err != nil {
		return nil, errors.Wrap(err, "gmail: parse credentials")
	}

	tokenBytes, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, errors.Wrapf(err, "gmail: read token for %s", account)
	}
	token := &oauth2.Token{}
	if err := json.Unmarshal(tokenBytes, token); err != nil {
		return nil, errors.Wrapf(err, "gmail: parse token for %s", account)
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, token)))
	if err != nil {
		return nil, errors.Wrap(err, "gmail: create service")
	}

	return &GmailMailbox{
		svc:       svc,
		account:   account,
		labelName: labelName,
		limiter:   rate.NewLimiter(rateLimitPerSecond, rateLimitBurst),
		log:       logger.WithField("account", account),
	}, nil
}

// ListCandidates runs the poll query and returns matching message refs in
// the order Gmail returns them.
func (g *GmailMailbox) ListCandidates(ctx context.Context, query string) ([]models.MessageRef, error) {
	if err := g.limiter.WaitN(ctx, quotaUnitsList); err != nil {
		return nil, err
	}

	var refs []models.MessageRef
	req := g.svc.Users.Messages.List("me").Q(query)
	err := req.Pages(ctx, func(page *gmail.ListMessagesResponse) error {
		for _, msg := range page.Messages {
			refs = append(refs, models.MessageRef{ID: msg.Id, ThreadID: msg.ThreadId})
		}
		if page.NextPageToken != "" {
			return g.limiter.WaitN(ctx, quotaUnitsList)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "gmail: list candidates")
	}

	g.log.WithFields(
		logging.Field{Key: "query", Value: query},
		logging.Field{Key: "count", Value: len(refs)},
	).Debug("Listed candidate messages")
	return refs, nil
}

// GetMessage fetches a full message and converts it to the provider-neutral
// form.
func (g *GmailMailbox) GetMessage(ctx context.Context, id string) (*models.RawMessage, error) {
	if err := g.limiter.WaitN(ctx, quotaUnitsGet); err != nil {
		return nil, err
	}

	msg, err := g.svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrapf(err, "gmail: get message %s", id)
	}
	return toRawMessage(msg), nil
}

// MarkProcessed removes UNREAD and applies the processed label so the poll
// query never matches this message again.
func (g *GmailMailbox) MarkProcessed(ctx context.Context, id string) error {
	labelID, err := g.ensureLabel(ctx)
	if err != nil {
		return err
	}
	if err := g.limiter.WaitN(ctx, quotaUnitsModify); err != nil {
		return err
	}

	_, err = g.svc.Users.Messages.Modify("me", id, &gmail.ModifyMessageRequest{
		AddLabelIds:    []string{labelID},
		RemoveLabelIds: []string{"UNREAD"},
	}).Context(ctx).Do()
	if err != nil {
		return errors.Wrapf(err, "gmail: mark %s processed", id)
	}
	return nil
}

// ensureLabel resolves the processed label id, creating the label when it
// does not exist yet. The id is cached for the lifetime of the mailbox.
func (g *GmailMailbox) ensureLabel(ctx context.Context) (string, error) {
	if g.labelID != "" {
		return g.labelID, nil
	}
	if err := g.limiter.WaitN(ctx, quotaUnitsLabels); err != nil {
		return "", err
	}

	list, err := g.svc.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return "", errors.Wrap(err, "gmail: list labels")
	}
	for _, label := range list.Labels {
		if label.Name == g.labelName {
			g.labelID = label.Id
			return g.labelID, nil
		}
	}

	created, err := g.svc.Users.Labels.Create("me", &gmail.Label{
		Name:                  g.labelName,
		LabelListVisibility:   "labelHide",
		MessageListVisibility: "hide",
	}).Context(ctx).Do()
	if err != nil {
		return "", errors.Wrapf(err, "gmail: create label %s", g.labelName)
	}
	g.labelID = created.Id
	g.log.WithField("label", g.labelName).Info("Created processed label")
	return g.labelID, nil
}

func toRawMessage(msg *gmail.Message) *models.RawMessage {
	raw := &models.RawMessage{
		ID:   msg.Id,
		Date: time.UnixMilli(msg.InternalDate),
	}
	if msg.Payload != nil {
		for _, header := range msg.Payload.Headers {
			switch header.Name {
			case "Subject":
				raw.Subject = header.Value
			case "From":
				raw.From = header.Value
			}
		}
		raw.Body = toBodyPart(msg.Payload)
	}
	return raw
}

func toBodyPart(part *gmail.MessagePart) *models.BodyPart {
	bp := &models.BodyPart{MimeType: part.MimeType}
	if part.Body != nil {
		bp.Data = part.Body.Data
	}
	for _, sub := range part.Parts {
		bp.Parts = append(bp.Parts, toBodyPart(sub))
	}
	return bp
}
