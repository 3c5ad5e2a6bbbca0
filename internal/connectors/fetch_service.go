package connectors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"posimport/internal"
	"posimport/internal/storage"
)

type FetchService struct {
	db        *storage.DB
	connector MailConnector
	store     *ReportStore
	logger    *slog.Logger
}

type FetchResult struct {
	Messages    int
	Attachments int
	Saved       []internal.ReportFile
	Duplicates  int
	Unreadable  int
}

func NewFetchService(db *storage.DB, connector MailConnector, router Router, logger *slog.Logger) *FetchService {
	return &FetchService{
		db:        db,
		connector: connector,
		store:     NewReportStore(db, router),
		logger:    logger.With("component", "mail"),
	}
}

// FetchReports downloads matching messages and saves every new report attachment.
func (s *FetchService) FetchReports(ctx context.Context, label, subject string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchReports(ctx, label, subject, max)
	if err != nil {
		return FetchResult{}, err
	}

	res := FetchResult{Messages: len(messages)}
	for _, msg := range messages {
		atts, err := ReportAttachments(msg.Raw)
		if err != nil {
			s.logger.Warn("unreadable message", "message_id", msg.MessageID, "err", err)
			res.Unreadable++
			continue
		}
		for _, att := range atts {
			res.Attachments++
			rf, saved, err := s.store.Save(msg, att)
			if err != nil {
				return res, fmt.Errorf("save %s: %w", att.FileName, err)
			}
			if !saved {
				s.logger.Debug("attachment already saved", "file", att.FileName, "path", rf.Path)
				res.Duplicates++
				continue
			}
			s.logger.Info("attachment saved", "file", att.FileName, "path", rf.Path, "message_id", msg.MessageID)
			res.Saved = append(res.Saved, rf)
		}
	}

	if err := s.db.SetMetadata("mail:fetch-reports.last_run", time.Now().UTC().Format(time.RFC3339)); err != nil {
		s.logger.Warn("last run not recorded", "err", err)
	}
	return res, nil
}

func PrintFetch(w io.Writer, res FetchResult) {
	fmt.Fprintf(w, "messages %d, attachments %d, saved %d, duplicates %d, unreadable %d\n",
		res.Messages, res.Attachments, len(res.Saved), res.Duplicates, res.Unreadable)
	for _, rf := range res.Saved {
		fmt.Fprintf(w, "  %s\n", rf.Path)
	}
}
