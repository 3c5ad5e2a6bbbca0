package storage

import (
	"database/sql"
	"errors"

	"posimport/internal"
)

// RecordReportFile stores a saved attachment. It returns false when the hash is already known.
func (d *DB) RecordReportFile(rf internal.ReportFile) (bool, error) {
	res, err := d.conn.Exec(d.dialect.Insert(TableReports,
		[]string{"hash", "provider", "message_id", "file_name", "path", "received_at"}, InsertIgnoreDuplicates),
		rf.Hash, rf.Provider, rf.MessageID, rf.FileName, rf.Path, rf.ReceivedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *DB) GetReportFileByHash(hash string) (*internal.ReportFile, error) {
	var rf internal.ReportFile
	var receivedAt sql.NullString
	err := d.conn.QueryRow(d.q(`
SELECT id, hash, provider, message_id, file_name, path, received_at
FROM report_files WHERE hash = ?`), hash).Scan(
		&rf.ID, &rf.Hash, &rf.Provider, &rf.MessageID, &rf.FileName, &rf.Path, &receivedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rf.ReceivedAt = receivedAt.String
	return &rf, nil
}
