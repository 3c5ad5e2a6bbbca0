package connectors

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/jhillyerd/enmime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"posimport/internal"
	"posimport/internal/config"
	"posimport/internal/connectors/gmail"
	"posimport/internal/connectors/imap"
	"posimport/internal/logging"
	"posimport/internal/storage"
)

type fakeConnector struct {
	messages []internal.FetchedMailMessage
	label    string
	subject  string
	max      int
}

func (f *fakeConnector) FetchReports(_ context.Context, label, subject string, max int) ([]internal.FetchedMailMessage, error) {
	f.label, f.subject, f.max = label, subject, max
	return f.messages, nil
}

type attachment struct {
	name, contentType string
	body              []byte
}

func mkMessage(t *testing.T, id string, atts ...attachment) internal.FetchedMailMessage {
	t.Helper()
	b := enmime.Builder().
		From("POS Reports", "reports@pos.example").
		To("Sales", "sales@shop.example").
		Subject("Daily sales report").
		Text([]byte("Reports attached."))
	for _, a := range atts {
		b = b.AddAttachment(a.body, a.contentType, a.name)
	}
	part, err := b.Build()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, part.Encode(&buf))
	return internal.FetchedMailMessage{
		Provider:   "imap",
		MessageID:  id,
		Subject:    "Daily sales report",
		ReceivedAt: "2024-05-02T06:00:00Z",
		Raw:        buf.Bytes(),
	}
}

func TestReportAttachmentsFiltersByExtension(t *testing.T) {
	msg := mkMessage(t, "m1",
		attachment{"Report_2024_05.csv", "text/csv", []byte("Outlet Name,Bill No\nA,B1\n")},
		attachment{"notes.pdf", "application/pdf", []byte("%PDF-1.4")},
		attachment{"Items.XLSX", "application/octet-stream", []byte("PK\x03\x04data")},
	)

	atts, err := ReportAttachments(msg.Raw)
	require.NoError(t, err)
	require.Len(t, atts, 2)
	assert.Equal(t, "Report_2024_05.csv", atts[0].FileName)
	assert.Equal(t, []byte("Outlet Name,Bill No\nA,B1\n"), atts[0].Content)
	assert.Equal(t, "Items.XLSX", atts[1].FileName)
}

func TestRouter(t *testing.T) {
	r := Router{SalesDir: "sales", SalesFilePrefix: "Report_", WorkbookDir: "workbooks", InboxDir: "inbox"}
	assert.Equal(t, "sales", r.Dir("Report_2024_05.csv"))
	assert.Equal(t, "workbooks", r.Dir("Item_Return_may.xls"))
	assert.Equal(t, "inbox", r.Dir("summary.csv"))

	r.Override = "manual"
	assert.Equal(t, "manual", r.Dir("Report_2024_05.csv"))
}

func TestFetchReportsSavesOncePerContent(t *testing.T) {
	root := t.TempDir()
	db, err := storage.Open("sqlite", filepath.Join(root, "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	report := []byte("Outlet Name,Bill No\nA,B1\n")
	fake := &fakeConnector{messages: []internal.FetchedMailMessage{
		mkMessage(t, "m1",
			attachment{"Report_2024_05.csv", "text/csv", report},
			attachment{"summary.csv", "text/csv", []byte("x,y\n")},
		),
		mkMessage(t, "m2", attachment{"Report_2024_05.csv", "text/csv", report}),
		mkMessage(t, "m3", attachment{"Report_2024_05.csv", "text/csv", []byte("Outlet Name,Bill No\nA,B2\n")}),
	}}
	router := Router{
		SalesDir:        filepath.Join(root, "sales"),
		SalesFilePrefix: "Report_",
		InboxDir:        filepath.Join(root, "inbox"),
	}

	svc := NewFetchService(db, fake, router, logging.Discard())
	res, err := svc.FetchReports(context.Background(), "INBOX", "sales report", 25)
	require.NoError(t, err)
	assert.Equal(t, "INBOX", fake.label)
	assert.Equal(t, "sales report", fake.subject)
	assert.Equal(t, 25, fake.max)

	assert.Equal(t, 3, res.Messages)
	assert.Equal(t, 4, res.Attachments)
	assert.Equal(t, 1, res.Duplicates)
	require.Len(t, res.Saved, 3)

	first := res.Saved[0]
	assert.Equal(t, filepath.Join(root, "sales", "Report_2024_05.csv"), first.Path)
	blob, err := os.ReadFile(first.Path)
	require.NoError(t, err)
	assert.Equal(t, report, blob)

	assert.Equal(t, filepath.Join(root, "inbox", "summary.csv"), res.Saved[1].Path)

	renamed := res.Saved[2]
	assert.Equal(t, filepath.Join(root, "sales", "Report_2024_05_"+renamed.Hash[:8]+".csv"), renamed.Path)
	assert.FileExists(t, renamed.Path)

	stored, err := db.GetReportFileByHash(first.Hash)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "m1", stored.MessageID)

	var buf bytes.Buffer
	PrintFetch(&buf, res)
	assert.Contains(t, buf.String(), "saved 3, duplicates 1")
}

func TestSaveFailureLeavesNoLedgerRow(t *testing.T) {
	root := t.TempDir()
	db, err := storage.Open("sqlite", filepath.Join(root, "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	salesDir := filepath.Join(root, "sales")
	content := []byte("Outlet Name,Bill No\nA,B7\n")
	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	// An older report takes the plain name and a directory sits on the fallback name.
	require.NoError(t, os.MkdirAll(salesDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(salesDir, "Report_2024_05.csv"), []byte("old"), 0o644))
	blocker := filepath.Join(salesDir, "Report_2024_05_"+hash[:8]+".csv")
	require.NoError(t, os.Mkdir(blocker, 0o755))

	store := NewReportStore(db, Router{SalesDir: salesDir, SalesFilePrefix: "Report_"})
	msg := internal.FetchedMailMessage{Provider: "imap", MessageID: "m9"}
	att := Attachment{FileName: "Report_2024_05.csv", Content: content}

	_, saved, err := store.Save(msg, att)
	require.Error(t, err)
	assert.False(t, saved)

	stored, err := db.GetReportFileByHash(hash)
	require.NoError(t, err)
	assert.Nil(t, stored)

	entries, err := os.ReadDir(salesDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	require.NoError(t, os.Remove(blocker))
	rf, saved, err := store.Save(msg, att)
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Equal(t, blocker, rf.Path)
	blob, err := os.ReadFile(rf.Path)
	require.NoError(t, err)
	assert.Equal(t, content, blob)
}

func TestFetchReportsWarnsWhenLastRunNotRecorded(t *testing.T) {
	db, err := storage.Open("sqlite", filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	var logs bytes.Buffer
	svc := NewFetchService(db, &fakeConnector{}, Router{InboxDir: t.TempDir()}, logging.NewWithWriter(&logs, "warn"))
	res, err := svc.FetchReports(context.Background(), "INBOX", "", 10)
	require.NoError(t, err)
	assert.Zero(t, res.Messages)
	assert.Contains(t, logs.String(), "last run not recorded")
}

func TestNewConnector(t *testing.T) {
	_, err := New(config.Config{}, "imap")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IMAP_HOST")

	_, err = New(config.Config{}, "gmail")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GMAIL_CLIENT_ID")

	_, err = New(config.Config{}, "pop3")
	require.Error(t, err)
}

func TestProviderQueries(t *testing.T) {
	assert.Equal(t, "has:attachment", gmail.SearchQuery(" "))
	assert.Equal(t, "subject:(Sales Report) has:attachment", gmail.SearchQuery("Sales Report"))

	criteria := imap.SearchCriteria("Sales Report")
	assert.Equal(t, "Sales Report", criteria.Header.Get("Subject"))
	assert.Equal(t, []string{`\Seen`}, criteria.WithoutFlags)
}
