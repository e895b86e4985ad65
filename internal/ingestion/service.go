package ingestion

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/flowgrid/flowgrid/internal/domain"
	"github.com/flowgrid/flowgrid/internal/repository"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// Service turns uploaded spreadsheets into the record list of a batch
// source node and persists the updated pipeline document.
type Service struct {
	pipelines repository.PipelineRepository
}

func NewService(pipelines repository.PipelineRepository) *Service {
	return &Service{pipelines: pipelines}
}

// Summary reports what an upload produced.
type Summary struct {
	RecordCount int      `json:"recordCount"`
	Fields      []string `json:"fields"`
}

type tableData struct {
	headers []string
	rows    [][]string
}

// IngestRecords parses fileName's payload (CSV or XLSX by extension)
// and replaces the target source node's records with one record per
// data row. Cell values are coerced best-effort to bool/int/float,
// falling back to the raw string.
func (s *Service) IngestRecords(ctx context.Context, pipelineID uuid.UUID, nodeID, fileName string, payload []byte) (Summary, error) {
	pipeline, err := s.pipelines.GetByID(ctx, pipelineID)
	if err != nil {
		return Summary{}, err
	}

	nodeIndex := -1
	for i, node := range pipeline.Nodes {
		if node.ID == nodeID {
			nodeIndex = i
			break
		}
	}
	if nodeIndex == -1 {
		return Summary{}, fmt.Errorf("node %s not found in pipeline", nodeID)
	}
	node := pipeline.Nodes[nodeIndex]
	if node.Kind != domain.NodeKindSource || node.Source == nil {
		return Summary{}, fmt.Errorf("node %s is not a source node", nodeID)
	}

	table, err := parseTable(fileName, payload)
	if err != nil {
		return Summary{}, err
	}

	records := make([]map[string]any, 0, len(table.rows))
	for _, row := range table.rows {
		record := make(map[string]any, len(table.headers))
		for i, header := range table.headers {
			raw := strings.TrimSpace(row[i])
			if raw == "" {
				continue
			}
			record[header] = coerceCell(raw)
		}
		records = append(records, record)
	}

	pipeline.Nodes[nodeIndex].Source.Records = records
	if _, err := s.pipelines.Update(ctx, pipeline); err != nil {
		return Summary{}, fmt.Errorf("persist ingested records: %w", err)
	}

	log.Printf("[INGEST] %d records from %s into node %s of pipeline %s", len(records), fileName, nodeID, pipelineID)
	return Summary{RecordCount: len(records), Fields: table.headers}, nil
}

func parseTable(fileName string, payload []byte) (tableData, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return parseCSV(payload)
	case ".xlsx", ".xlsm":
		return parseExcel(payload)
	default:
		return tableData{}, fmt.Errorf("unsupported file type %q", filepath.Ext(fileName))
	}
}

func parseCSV(payload []byte) (tableData, error) {
	csvReader := csv.NewReader(bytes.NewReader(payload))
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return tableData{}, fmt.Errorf("failed to read csv: %w", err)
	}
	return normalizeTable(records)
}

func parseExcel(payload []byte) (tableData, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return tableData{}, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return tableData{}, errors.New("excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return tableData{}, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}
	return normalizeTable(rows)
}

// normalizeTable treats the first non-empty row as the header and pads
// ragged data rows to the header width.
func normalizeTable(records [][]string) (tableData, error) {
	var headerRow []string
	var dataRows [][]string

	for _, row := range records {
		if len(cleanRow(row)) == 0 {
			continue
		}
		if headerRow == nil {
			headerRow = row
			continue
		}
		dataRows = append(dataRows, row)
	}

	if headerRow == nil {
		return tableData{}, errors.New("no header row found in file")
	}

	headers := sanitizeHeaders(headerRow)
	for i := range dataRows {
		dataRows[i] = padRow(dataRows[i], len(headers))
	}

	return tableData{headers: headers, rows: dataRows}, nil
}

func cleanRow(row []string) []string {
	var cleaned []string
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			cleaned = append(cleaned, cell)
		}
	}
	return cleaned
}

func sanitizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	seen := make(map[string]int)

	for idx, value := range raw {
		name := strings.TrimSpace(value)
		name = strings.ReplaceAll(name, " ", "_")
		name = strings.ReplaceAll(name, ".", "_")
		name = strings.ReplaceAll(name, "-", "_")
		name = strings.Trim(name, "_")
		if name == "" {
			name = fmt.Sprintf("column_%d", idx+1)
		}

		base := name
		count := seen[base]
		if count > 0 {
			name = fmt.Sprintf("%s_%d", base, count+1)
		}
		seen[base] = count + 1

		headers[idx] = name
	}

	return headers
}

func padRow(row []string, length int) []string {
	if len(row) >= length {
		return row[:length]
	}
	padded := make([]string, length)
	copy(padded, row)
	return padded
}

func coerceCell(raw string) any {
	lowered := strings.ToLower(raw)
	if lowered == "true" || lowered == "false" {
		value, _ := strconv.ParseBool(lowered)
		return value
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	return raw
}
