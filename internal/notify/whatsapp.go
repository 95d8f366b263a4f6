package notify

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"github.com/Wimboro/gmail-wa/internal/logging"
)

// WhatsAppSender implements Sender over a whatsmeow session. The session
// must already be paired; pairing is an operator action outside this
// service.
type WhatsAppSender struct {
	client *whatsmeow.Client
	log    logging.Logger
}

// NewWhatsAppSender opens the session store at dbPath, loads the first
// linked device and connects. It fails when no device has been paired yet.
func NewWhatsAppSender(dbPath string, logger logging.Logger) (*WhatsAppSender, error) {
	container, err := sqlstore.New("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on", dbPath), waLog.Noop)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: open session store: %w", err)
	}
	device, err := container.GetFirstDevice()
	if err != nil {
		return nil, fmt.Errorf("whatsapp: load device: %w", err)
	}

	client := whatsmeow.NewClient(device, waLog.Noop)
	if client.Store.ID == nil {
		return nil, fmt.Errorf("whatsapp: no paired device in %s, link a device first", dbPath)
	}
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("whatsapp: connect: %w", err)
	}

	return &WhatsAppSender{client: client, log: logger}, nil
}

// Send delivers text to a target. Targets are either full JIDs
// ("62812xxxx@s.whatsapp.net", "1234-5678@g.us" for groups) or bare phone
// numbers, which are treated as personal chats.
func (s *WhatsAppSender) Send(ctx context.Context, target, text string) error {
	jid, err := parseTarget(target)
	if err != nil {
		return err
	}
	_, err = s.client.SendMessage(ctx, jid, &waProto.Message{
		Conversation: proto.String(text),
	})
	if err != nil {
		return fmt.Errorf("whatsapp: send to %s: %w", target, err)
	}
	return nil
}

// Close disconnects the session. Safe to call once during shutdown.
func (s *WhatsAppSender) Close() {
	s.client.Disconnect()
}

func parseTarget(target string) (types.JID, error) {
	if strings.ContainsRune(target, '@') {
		jid, err := types.ParseJID(target)
		if err != nil {
			return types.EmptyJID, fmt.Errorf("whatsapp: invalid target %q: %w", target, err)
		}
		return jid, nil
	}
	if target == "" {
		return types.EmptyJID, fmt.Errorf("whatsapp: empty target")
	}
	return types.NewJID(target, types.DefaultUserServer), nil
}
