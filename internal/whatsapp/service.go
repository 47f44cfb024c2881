package whatsapp

import (
	"context"
	"fmt"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types/events"

	"wedding-site/internal/models"
)

type Config struct {
	DataDir string
	// NotifyNumber is the couple's phone number that receives RSVP updates
	NotifyNumber string
	BrideName    string
	GroomName    string
}

// Service sends RSVP notifications over a linked WhatsApp device
type Service struct {
	client *whatsmeow.Client
	cfg    *Config
	log    zerolog.Logger

	qrChannel func(context.Context) (<-chan whatsmeow.QRChannelItem, error)
}

// NewService creates a new WhatsApp service
func NewService(ctx context.Context, cfg *Config, logger zerolog.Logger) (*Service, error) {
	if _, err := NormalizePhoneNumber(cfg.NotifyNumber); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// Use nil logger - sqlstore will use a no-op logger by default
	container, err := sqlstore.New(ctx, "sqlite3", fmt.Sprintf("file:%s/whatsmeow.db?_foreign_keys=on", cfg.DataDir), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	// Use nil logger - whatsmeow will use a no-op logger by default
	client := whatsmeow.NewClient(deviceStore, nil)

	service := &Service{
		client:    client,
		cfg:       cfg,
		log:       logger.With().Str("component", "WhatsApp").Logger(),
		qrChannel: client.GetQRChannel,
	}

	client.AddEventHandler(func(evt interface{}) {
		service.eventHandler(evt)
	})

	return service, nil
}

// NormalizePhoneNumber turns an international number ("+351 912 345 678" or
// "00351912345678") into the digits WhatsApp expects. Local numbers are
// rejected since their country cannot be known.
func NormalizePhoneNumber(phoneNumber string) (string, error) {
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
	cleaned := replacer.Replace(strings.TrimSpace(phoneNumber))

	var digits string
	switch {
	case strings.HasPrefix(cleaned, "+"):
		digits = cleaned[1:]
	case strings.HasPrefix(cleaned, "00"):
		digits = cleaned[2:]
	default:
		return "", fmt.Errorf("phone number %q must be in international format, e.g. +351912345678", phoneNumber)
	}

	if len(digits) < 8 || len(digits) > 15 || digits[0] == '0' {
		return "", fmt.Errorf("phone number %q is not a valid international number", phoneNumber)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("phone number %q contains invalid characters", phoneNumber)
		}
	}
	return digits, nil
}

// Connect connects to WhatsApp, printing a pairing QR code on first use
func (s *Service) Connect(ctx context.Context) error {
	if s.client.Store.ID != nil {
		if err := s.client.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		return nil
	}

	qrChan, err := s.qrChannel(ctx)
	if err != nil {
		return fmt.Errorf("failed to get QR channel: %w", err)
	}
	if err := s.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	for evt := range qrChan {
		if evt.Event != "code" {
			s.log.Info().Str("event", evt.Event).Msg("Login event")
			continue
		}
		q, err := qrcode.New(evt.Code, qrcode.Medium)
		if err != nil {
			fmt.Printf("QR Code: %s\n", evt.Code)
			fmt.Println("Please scan this QR code with WhatsApp to connect.")
			continue
		}
		fmt.Println("\n" + q.ToSmallString(false))
		fmt.Println("📱 Scan the QR code above with WhatsApp (Settings > Linked Devices > Link a Device)")
	}
	return nil
}

// Disconnect disconnects from WhatsApp
func (s *Service) Disconnect() {
	s.client.Disconnect()
}

// RSVPSubmitted tells the couple about a new RSVP
func (s *Service) RSVPSubmitted(ctx context.Context, rsvp models.RSVP) error {
	return s.SendMessage(ctx, s.cfg.NotifyNumber, FormatSubmitted(rsvp, s.cfg.BrideName, s.cfg.GroomName))
}

// RSVPStatusChanged tells the couple an RSVP was approved or rejected
func (s *Service) RSVPStatusChanged(ctx context.Context, rsvp models.RSVP) error {
	return s.SendMessage(ctx, s.cfg.NotifyNumber, FormatStatusChanged(rsvp))
}

// FormatSubmitted builds the message for a new RSVP
func FormatSubmitted(rsvp models.RSVP, brideName, groomName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💌 *New RSVP* for the wedding of %s & %s\n\n", brideName, groomName)
	fmt.Fprintf(&b, "Name: %s\n", rsvp.Name)
	fmt.Fprintf(&b, "Guests: %d\n", rsvp.Guests)
	if rsvp.Dietary != "" {
		fmt.Fprintf(&b, "Dietary: %s\n", rsvp.Dietary)
	}
	if rsvp.Message != "" {
		fmt.Fprintf(&b, "\n“%s”\n", rsvp.Message)
	}
	b.WriteString("\nIt is waiting for your approval.")
	return b.String()
}

// FormatStatusChanged builds the message for a status change
func FormatStatusChanged(rsvp models.RSVP) string {
	icon := "⏳"
	switch rsvp.Status {
	case models.RSVPApproved:
		icon = "✅"
	case models.RSVPRejected:
		icon = "❌"
	}
	return fmt.Sprintf("%s RSVP from %s (%d guests) is now *%s*", icon, rsvp.Name, rsvp.Guests, rsvp.Status)
}

// SendMessage sends a simple text message
func (s *Service) SendMessage(ctx context.Context, phoneNumber, message string) error {
	phoneNumber, err := NormalizePhoneNumber(phoneNumber)
	if err != nil {
		return err
	}

	// Verify the number is on WhatsApp before sending
	resp, err := s.client.IsOnWhatsApp(ctx, []string{phoneNumber})
	if err != nil {
		return fmt.Errorf("failed to verify number on WhatsApp: %w", err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return fmt.Errorf("number %s is not registered on WhatsApp", phoneNumber)
	}

	// Use the verified JID from WhatsApp
	jid := resp[0].JID
	s.log.Debug().Str("jid", jid.String()).Str("phone", phoneNumber).Msg("Attempting to send message")

	sent, err := s.client.SendMessage(ctx, jid, &waE2E.Message{
		Conversation: &message,
	})
	if err != nil {
		return fmt.Errorf("failed to send message to %s: %w", jid.String(), err)
	}

	s.log.Debug().Str("id", string(sent.ID)).Time("timestamp", sent.Timestamp).Msg("Message sent")
	return nil
}

// eventHandler handles incoming WhatsApp events
func (s *Service) eventHandler(evt interface{}) {
	switch evt := evt.(type) {
	case *events.Connected:
		s.log.Info().Msg("Connected to WhatsApp")
	case *events.Disconnected:
		s.log.Info().Msg("Disconnected from WhatsApp")
	case *events.LoggedOut:
		s.log.Warn().Msg("Logged out from WhatsApp")
	case *events.Message:
		if !evt.Info.IsFromMe {
			s.log.Debug().Str("sender", evt.Info.Sender.String()).Msg("Ignoring incoming message")
		}
	}
}
