package connectors

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/jhillyerd/enmime"

	"posimport/internal"
	"posimport/internal/pipeline"
	"posimport/internal/storage"
)

var reportExtensions = map[string]struct{}{".csv": {}, ".xls": {}, ".xlsx": {}}

// Attachment is one report file carried by a mail message.
type Attachment struct {
	FileName string
	Content  []byte
}

// ReportAttachments returns the csv/xls/xlsx parts of a raw RFC 822 message.
func ReportAttachments(raw []byte) ([]Attachment, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	var out []Attachment
	parts := append(append(append([]*enmime.Part{}, env.Attachments...), env.Inlines...), env.OtherParts...)
	for _, p := range parts {
		name := filepath.Base(strings.TrimSpace(p.FileName))
		if name == "" || name == "." {
			continue
		}
		if _, ok := reportExtensions[strings.ToLower(filepath.Ext(name))]; !ok {
			continue
		}
		if len(p.Content) == 0 {
			continue
		}
		out = append(out, Attachment{FileName: name, Content: p.Content})
	}
	return out, nil
}

// Router decides where an attachment is saved.
type Router struct {
	SalesDir        string
	SalesFilePrefix string
	WorkbookDir     string
	InboxDir        string
	// Override, when set, receives every attachment.
	Override string
}

func (r Router) Dir(fileName string) string {
	switch {
	case r.Override != "":
		return r.Override
	case r.SalesDir != "" && pipeline.SalesReport.Accepts(fileName, r.SalesFilePrefix):
		return r.SalesDir
	case r.WorkbookDir != "" && pipeline.ItemWorkbook.Accepts(fileName, ""):
		return r.WorkbookDir
	default:
		return r.InboxDir
	}
}

// ReportStore writes attachments to disk once per content hash.
type ReportStore struct {
	db     *storage.DB
	router Router
}

func NewReportStore(db *storage.DB, router Router) *ReportStore {
	return &ReportStore{db: db, router: router}
}

// Save returns the stored record and false when the same content was saved before.
func (s *ReportStore) Save(msg internal.FetchedMailMessage, att Attachment) (internal.ReportFile, bool, error) {
	sum := sha256.Sum256(att.Content)
	hash := hex.EncodeToString(sum[:])

	if existing, err := s.db.GetReportFileByHash(hash); err != nil {
		return internal.ReportFile{}, false, err
	} else if existing != nil {
		return *existing, false, nil
	}

	dir := s.router.Dir(att.FileName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return internal.ReportFile{}, false, err
	}
	path := filepath.Join(dir, att.FileName)
	if _, err := os.Stat(path); err == nil {
		ext := filepath.Ext(att.FileName)
		path = filepath.Join(dir, strings.TrimSuffix(att.FileName, ext)+"_"+hash[:8]+ext)
	}

	rf := internal.ReportFile{
		Hash:       hash,
		Provider:   msg.Provider,
		MessageID:  msg.MessageID,
		FileName:   att.FileName,
		Path:       path,
		ReceivedAt: msg.ReceivedAt,
	}
	if err := writeFileAtomic(path, att.Content); err != nil {
		return rf, false, err
	}
	// The ledger row goes in only once the file is on disk.
	inserted, err := s.db.RecordReportFile(rf)
	if err != nil || !inserted {
		_ = os.Remove(path)
		return rf, false, err
	}
	return rf, true, nil
}

func writeFileAtomic(path string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".fetch-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
