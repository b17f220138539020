package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/disputeops/internal/dispute/domain"
	"go.uber.org/zap"
)

// Result describes the outcome of one file import.
type Result struct {
	Entry   Entry
	Skipped bool
}

// Importer loads CSV batch files into a category exactly once per content.
type Importer struct {
	ledger  *Ledger
	service domain.Service
	log     *zap.Logger
	now     func() time.Time
}

func NewImporter(ledger *Ledger, service domain.Service, log *zap.Logger) *Importer {
	return &Importer{
		ledger:  ledger,
		service: service,
		log:     log.Named("ingest"),
		now:     time.Now,
	}
}

// ImportFile imports the CSV file at path into category. A file whose
// content was imported before is skipped and its earlier entry returned.
func (i *Importer) ImportFile(ctx context.Context, category domain.Category, path string) (Result, error) {
	if !category.Valid() {
		return Result{}, domain.ErrInvalidCategory
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open batch file %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	if previous, ok, err := i.ledger.Lookup(hash); err != nil {
		return Result{}, err
	} else if ok {
		i.log.Info("batch file already imported",
			zap.String("file", path),
			zap.String("batch_id", previous.BatchID),
		)
		return Result{Entry: *previous, Skipped: true}, nil
	}

	records, err := ReadRecords(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", path, err)
	}

	batchID := ulid.Make().String()
	name := filepath.Base(path)
	for _, record := range records {
		if record.FileReference == "" {
			record.FileReference = name
		}
	}

	inserted, err := i.service.Ingest(ctx, category, records)
	if err != nil {
		return Result{}, err
	}

	entry, _, err := i.ledger.Put(Entry{
		BatchID:    batchID,
		Category:   string(category),
		File:       name,
		SHA256:     hash,
		Records:    inserted,
		ImportedAt: i.now().UTC(),
	})
	if err != nil {
		return Result{}, err
	}

	i.log.Info("batch file imported",
		zap.String("file", path),
		zap.String("category", string(category)),
		zap.String("batch_id", batchID),
		zap.Int("records", inserted),
	)
	return Result{Entry: *entry}, nil
}
