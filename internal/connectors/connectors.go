package connectors

import (
	"context"
	"fmt"

	"posimport/internal"
	"posimport/internal/config"
	"posimport/internal/connectors/gmail"
	"posimport/internal/connectors/imap"
)

// MailConnector returns up to max messages under label whose subject matches.
type MailConnector interface {
	FetchReports(ctx context.Context, label, subject string, max int) ([]internal.FetchedMailMessage, error)
}

// New builds the connector for provider ("gmail" or "imap").
func New(cfg config.Config, provider string) (MailConnector, error) {
	switch provider {
	case "gmail":
		c, err := gmail.NewConnector(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "imap":
		c, err := imap.NewConnector(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", provider)
	}
}
