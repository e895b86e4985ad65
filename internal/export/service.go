package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/flowgrid/flowgrid/internal/dataflow"
	"github.com/flowgrid/flowgrid/internal/domain"
	"github.com/flowgrid/flowgrid/internal/repository"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var errUnknownFormat = errors.New("unknown export format")

// Service resolves the rows visible at a node and writes them to a
// file under the export directory.
type Service struct {
	pipelines repository.PipelineRepository

	exportDir string
	maxRows   int
	now       func() time.Time
}

type Option func(*Service)

func WithExportDirectory(dir string) Option {
	return func(s *Service) {
		if strings.TrimSpace(dir) != "" {
			s.exportDir = filepath.Clean(dir)
		}
	}
}

func WithMaxRows(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxRows = limit
		}
	}
}

func NewService(pipelines repository.PipelineRepository, opts ...Option) *Service {
	service := &Service{
		pipelines: pipelines,
		exportDir: filepath.Join(os.TempDir(), "flowgrid-exports"),
		maxRows:   100000,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Result describes a completed export.
type Result struct {
	FileName string `json:"fileName"`
	Path     string `json:"-"`
	RowCount int    `json:"rowCount"`
}

// Export materializes the rows at nodeID and writes them as format.
// Column order is the reserved metadata columns followed by the sorted
// union of field names across all rows; absent fields render empty.
func (s *Service) Export(ctx context.Context, pipelineID uuid.UUID, nodeID string, format Format) (Result, error) {
	pipeline, err := s.pipelines.GetByID(ctx, pipelineID)
	if err != nil {
		return Result{}, err
	}
	if _, ok := pipeline.NodeByID(nodeID); !ok {
		return Result{}, fmt.Errorf("node %s not found in pipeline", nodeID)
	}

	rows := dataflow.ResolveRows(nodeID, pipeline.Nodes, pipeline.Edges)
	if len(rows) > s.maxRows {
		rows = rows[:s.maxRows]
	}

	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create export directory: %w", err)
	}

	fileName := fmt.Sprintf("%s-%s-%d.%s", pipelineID, nodeID, s.now().Unix(), format)
	path := filepath.Join(s.exportDir, fileName)

	header, table := tabulate(rows)
	switch format {
	case FormatCSV:
		err = writeCSV(path, header, table)
	case FormatXLSX:
		err = writeXLSX(path, header, table)
	default:
		return Result{}, fmt.Errorf("%w: %q", errUnknownFormat, format)
	}
	if err != nil {
		return Result{}, err
	}

	log.Printf("[EXPORT] wrote %d rows to %s", len(rows), fileName)
	return Result{FileName: fileName, Path: path, RowCount: len(rows)}, nil
}

// FilePath maps an exported file name back to its on-disk path,
// refusing anything that escapes the export directory.
func (s *Service) FilePath(fileName string) (string, error) {
	cleaned := filepath.Base(filepath.Clean(fileName))
	if cleaned != fileName || cleaned == "." || cleaned == ".." {
		return "", fmt.Errorf("invalid export file name %q", fileName)
	}
	path := filepath.Join(s.exportDir, cleaned)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("export file not found: %w", err)
	}
	return path, nil
}

func tabulate(rows []domain.Row) ([]string, [][]string) {
	fieldSet := make(map[string]struct{})
	for _, row := range rows {
		for name := range row.Fields {
			fieldSet[name] = struct{}{}
		}
	}
	fields := make([]string, 0, len(fieldSet))
	for name := range fieldSet {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	header := append([]string{"id", "nodeId", "nodeLabel"}, fields...)
	table := make([][]string, 0, len(rows))
	for _, row := range rows {
		record := make([]string, 0, len(header))
		record = append(record, row.ID, row.NodeID, row.NodeLabel)
		for _, field := range fields {
			record = append(record, cellString(row.Fields[field]))
		}
		table = append(table, record)
	}
	return header, table
}

func cellString(value any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%v", value)
}

func writeCSV(path string, header []string, table [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, record := range table {
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func writeXLSX(path string, header []string, table [][]string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if err := setSheetRow(f, sheet, 1, header); err != nil {
		return err
	}
	for i, record := range table {
		if err := setSheetRow(f, sheet, i+2, record); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("write xlsx file: %w", err)
	}
	return nil
}

func setSheetRow(f *excelize.File, sheet string, rowNumber int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNumber)
	if err != nil {
		return fmt.Errorf("resolve cell coordinates: %w", err)
	}
	row := make([]any, len(values))
	for i, value := range values {
		row[i] = value
	}
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("write xlsx row: %w", err)
	}
	return nil
}
