// Package seed loads study content from Excel or CSV files. Content authoring
// lives outside the engine; seeding is how item libraries get in.
package seed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/studyengine/pkg/models"
)

// TopicWriter is the slice of the topic store the importer needs
type TopicWriter interface {
	GetByTitle(ctx context.Context, title string) (*models.Topic, error)
	Create(ctx context.Context, topic *models.Topic) error
}

// ItemWriter is the slice of the item store the importer needs
type ItemWriter interface {
	Create(ctx context.Context, item *models.Item) error
}

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath    string // Path to the Excel or CSV file
	FrontColumn string // Column with the item front (prompt)
	BackColumn  string // Column with the item back (answer)
	TopicColumn string // Column with the topic title
	SheetName   string // Name of the sheet to import
	StartRow    int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		FrontColumn: "A",
		BackColumn:  "B",
		TopicColumn: "C",
		SheetName:   "Sheet1",
		StartRow:    2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	TopicsCreated  int
	ItemsCreated   int
	Errors         []string
}

// Importer loads topics and items from content files
type Importer struct {
	topics TopicWriter
	items  ItemWriter

	// topic title (lowercased) to id, filled lazily during the import
	topicCache map[string]int64
}

// NewImporter creates an importer writing through the given stores
func NewImporter(topics TopicWriter, items ItemWriter) *Importer {
	return &Importer{
		topics:     topics,
		items:      items,
		topicCache: make(map[string]int64),
	}
}

// Import loads items from an Excel or CSV file based on the extension
func (im *Importer) Import(ctx context.Context, config ImportConfig) (*ImportResult, error) {
	ext := strings.ToLower(filepath.Ext(config.FilePath))

	if ext == ".csv" {
		return im.importFromCSV(ctx, config)
	}

	return im.importFromExcel(ctx, config)
}

// importFromExcel loads items from an Excel file
func (im *Importer) importFromExcel(ctx context.Context, config ImportConfig) (*ImportResult, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(config.SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %v", err)
	}

	result := &ImportResult{Errors: make([]string, 0)}

	for i, row := range rows {
		// Skip header rows
		if i < config.StartRow-1 {
			continue
		}

		result.TotalProcessed++

		front := cellValue(row, config.FrontColumn)
		back := cellValue(row, config.BackColumn)
		topicTitle := cellValue(row, config.TopicColumn)

		if err := im.processItem(ctx, front, back, topicTitle, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
		}
	}

	return result, nil
}

// importFromCSV loads items from a CSV file
func (im *Importer) importFromCSV(ctx context.Context, config ImportConfig) (*ImportResult, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	result := &ImportResult{Errors: make([]string, 0)}

	rowNum := 0
	currentTopic := ""

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %v", err)
		}

		rowNum++

		// Skip header rows
		if rowNum < config.StartRow {
			continue
		}

		// A row with only the first field filled is a topic header; items that
		// follow belong to it until the next header
		if strings.TrimSpace(row[0]) != "" && (len(row) < 2 || strings.TrimSpace(row[1]) == "") {
			currentTopic = strings.Trim(strings.TrimSpace(row[0]), "\"")
			continue
		}

		result.TotalProcessed++

		front := fieldValue(row, 0)
		back := fieldValue(row, 1)
		topicTitle := fieldValue(row, 2)
		if topicTitle == "" {
			topicTitle = currentTopic
		}

		if err := im.processItem(ctx, front, back, topicTitle, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
		}
	}

	return result, nil
}

// processItem validates one row and writes the item under its topic
func (im *Importer) processItem(ctx context.Context, front, back, topicTitle string, result *ImportResult) error {
	front = strings.TrimSpace(front)
	back = strings.TrimSpace(back)
	topicTitle = strings.TrimSpace(topicTitle)

	if front == "" {
		return fmt.Errorf("front text cannot be empty")
	}
	if back == "" {
		return fmt.Errorf("back text cannot be empty")
	}
	if topicTitle == "" {
		return fmt.Errorf("topic cannot be empty")
	}

	topicID, err := im.getOrCreateTopic(ctx, topicTitle, result)
	if err != nil {
		return fmt.Errorf("failed to process topic: %w", err)
	}

	item := &models.Item{
		TopicID:   topicID,
		FrontText: front,
		BackText:  back,
	}
	if err := im.items.Create(ctx, item); err != nil {
		return fmt.Errorf("failed to create item: %v", err)
	}
	result.ItemsCreated++
	return nil
}

// getOrCreateTopic resolves a topic by title, creating it on first sight
func (im *Importer) getOrCreateTopic(ctx context.Context, title string, result *ImportResult) (int64, error) {
	key := strings.ToLower(title)
	if id, exists := im.topicCache[key]; exists {
		return id, nil
	}

	existing, err := im.topics.GetByTitle(ctx, title)
	if err != nil {
		return 0, fmt.Errorf("failed to look up topic: %v", err)
	}
	if existing != nil {
		im.topicCache[key] = existing.ID
		return existing.ID, nil
	}

	topic := &models.Topic{Title: title}
	if err := im.topics.Create(ctx, topic); err != nil {
		return 0, fmt.Errorf("failed to create topic: %v", err)
	}
	result.TopicsCreated++

	im.topicCache[key] = topic.ID
	return topic.ID, nil
}

// cellValue reads a row cell addressed by Excel column letter
func cellValue(row []string, column string) string {
	if idx := columnToIndex(column); idx >= 0 && idx < len(row) {
		return row[idx]
	}
	return ""
}

func fieldValue(row []string, idx int) string {
	if idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

// columnToIndex converts an Excel column letter to a zero-based index
func columnToIndex(column string) int {
	column = strings.ToUpper(column)
	index := 0
	for i := 0; i < len(column); i++ {
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
