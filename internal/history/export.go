package history

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

var csvHeader = []string{"created_at", "direction", "counterparty", "asset", "amount", "source_asset", "source_amount", "hash"}

// WriteCSV writes records as CSV, header first.
func WriteCSV(w io.Writer, records []Record) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range records {
		row := []string{
			r.CreatedAt.Format(time.RFC3339),
			string(r.Direction),
			r.Counterparty,
			r.Asset.String(),
			r.Amount.String(),
			"",
			"",
			r.Hash,
		}
		if !r.SourceAmount.IsZero() {
			row[5] = r.SourceAsset.String()
			row[6] = r.SourceAmount.String()
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write record %s: %w", r.ID, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// ExportCSV writes records to path, creating parent directories as needed.
// An existing file is replaced, not appended to.
func ExportCSV(path string, records []Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := WriteCSV(file, records); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
