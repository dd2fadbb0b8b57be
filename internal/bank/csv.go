// Package bank loads, generates and caches labeled question banks.
package bank

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"routing-arena/internal/domain"
)

// Delimiters used by the two bank files.
const (
	CheckDelimiter = ';'
	TestDelimiter  = ','
)

var header = []string{"question", "classification"}

// Load reads a bank file. The header row is skipped and rows with fewer than
// two fields are ignored. A missing file is reported as ErrBankUnavailable
// wrapping fs.ErrNotExist so callers can decide whether to generate one.
func Load(path string, delimiter rune) (domain.QuestionBank, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.QuestionBank{}, fmt.Errorf("%w: %w", domain.ErrBankUnavailable, err)
	}
	defer f.Close()
	return Read(f, delimiter)
}

// Read parses bank rows from r.
func Read(r io.Reader, delimiter rune) (domain.QuestionBank, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var questions []domain.Question
	first := true
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.QuestionBank{}, fmt.Errorf("%w: %w", domain.ErrBankUnavailable, err)
		}
		if first {
			first = false
			continue
		}
		if len(row) < 2 {
			continue
		}
		questions = append(questions, domain.Question{Text: row[0], ExpectedLabel: domain.Label(row[1])})
	}
	return domain.NewQuestionBank(questions...), nil
}

// Save writes questions to path with the standard header, creating parent directories.
func Save(path string, delimiter rune, questions []domain.Question) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create bank dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create bank file: %w", err)
	}
	w := csv.NewWriter(f)
	w.Comma = delimiter
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	for _, q := range questions {
		if err := w.Write([]string{q.Text, string(q.ExpectedLabel)}); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
