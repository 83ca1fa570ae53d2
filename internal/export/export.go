// Package export writes ranked senders as CSV, JSON or YAML.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lu-zhengda/sendersweep/internal/domain"
	"github.com/lu-zhengda/sendersweep/internal/scoring"
)

// Format is an output encoding.
type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat accepts a format name case-insensitively; "yml" means YAML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return "", fmt.Errorf("unsupported export format %q (use csv, json or yaml)", s)
}

// Row is one exported sender.
type Row struct {
	Email          string   `json:"email" yaml:"email"`
	Name           string   `json:"name" yaml:"name"`
	MessageCount   int      `json:"message_count" yaml:"message_count"`
	Score          float64  `json:"score" yaml:"score"`
	Classification string   `json:"classification" yaml:"classification"`
	SampleSubjects []string `json:"sample_subjects" yaml:"sample_subjects"`
}

var csvHeader = []string{"email", "name", "message_count", "score", "classification", "sample_subjects"}

// Rows ranks the scan's senders and converts them to rows in rank order.
func Rows(engine *scoring.Engine, scan *domain.ScanResult, minScore float64) []Row {
	ranked := engine.RankScan(scan, minScore)
	rows := make([]Row, 0, len(ranked))
	for _, p := range ranked {
		subjects := p.SampleSubjects
		if subjects == nil {
			subjects = []string{}
		}
		rows = append(rows, Row{
			Email:          p.Email,
			Name:           p.Name,
			MessageCount:   p.MessageCount,
			Score:          p.Score,
			Classification: string(engine.Classify(p.Score)),
			SampleSubjects: subjects,
		})
	}
	return rows
}

// Write encodes rows to w in the given format.
func Write(w io.Writer, format Format, rows []Row) error {
	switch format {
	case CSV:
		return writeCSV(w, rows)
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rows); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to flush YAML: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unsupported export format %q", format)
}

func writeCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.Email,
			r.Name,
			strconv.Itoa(r.MessageCount),
			strconv.FormatFloat(r.Score, 'f', 2, 64),
			r.Classification,
			strings.Join(r.SampleSubjects, "; "),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}
