package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"github.com/promoimperio/broadcast_backend/models"
	"github.com/sirupsen/logrus"
)

// FileStore keeps the ledger in a single JSON file: an ordered list of
// {"id": "<key>"} records, append-only and human-editable. The file is read
// in full on every call; nothing is cached across calls, so decisions always
// reflect the current on-disk state, including writes from prior crashed
// runs. Single-writer by design.
type FileStore struct {
	Path   string
	Logger *logrus.Logger
}

func (s *FileStore) IsSent(ctx context.Context, key string) (bool, error) {
	records, err := s.load()
	if err != nil {
		return false, err
	}
	for _, r := range records {
		if r.ID == key {
			return true, nil
		}
	}
	return false, nil
}

func (s *FileStore) Record(ctx context.Context, key string) error {
	records, err := s.load()
	if err != nil {
		return err
	}
	records = append(records, models.SentRecord{ID: key})

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path, data, 0o644)
}

// load reads the whole ledger. An absent file initializes to an empty list; a
// corrupt file is treated as empty (fail-open) so a damaged ledger never
// blocks sending, but the anomaly is logged.
func (s *FileStore) load() ([]models.SentRecord, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if err := os.WriteFile(s.Path, []byte("[]"), 0o644); err != nil {
				return nil, err
			}
			return nil, nil
		}
		return nil, err
	}

	var records []models.SentRecord
	if err := json.Unmarshal(data, &records); err != nil {
		if s.Logger != nil {
			s.Logger.WithFields(logrus.Fields{
				"module": "ledger",
				"path":   s.Path,
			}).Warn("ledger file is unparsable; treating as empty: " + err.Error())
		}
		return nil, nil
	}
	return records, nil
}
