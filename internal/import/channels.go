package importchannels

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"folio/reader/internal/crawler"
	"folio/reader/internal/models"
)

// ChannelCrawler crawls a channel descriptor, creating the channel on first use.
type ChannelCrawler interface {
	CrawlChannel(ctx context.Context, desc *models.Channel) (crawler.Result, error)
}

// Summary reports the outcome of an import.
type Summary struct {
	Total    int
	Imported int
	Errors   []string
}

// Importer handles the channel import process
type Importer struct {
	crawler ChannelCrawler
}

// NewImporter creates a new channel importer
func NewImporter(c ChannelCrawler) *Importer {
	return &Importer{crawler: c}
}

// ImportChannels crawls every channel listed in a CSV file. A row that
// fails is counted in the summary and never stops the import.
func (i *Importer) ImportChannels(ctx context.Context, csvPath string) (*Summary, error) {
	log.Info().Str("csv", csvPath).Msg("Starting channel import")

	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	summary, err := i.Import(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to import channels: %w", err)
	}

	log.Info().Msg("Import completed")
	return summary, nil
}

// Import reads channels from CSV data. The header must contain a link
// column; type, category, title, description and items_code are optional.
func (i *Importer) Import(ctx context.Context, csvData io.Reader) (*Summary, error) {
	reader := csv.NewReader(csvData)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, err
	}

	log.Debug().Strs("header", header).Msg("CSV header read")

	linkIdx := findColumnIndex(header, "link")
	if linkIdx < 0 {
		return nil, fmt.Errorf("required column 'link' not found in CSV header")
	}
	typeIdx := findColumnIndex(header, "type")
	categoryIdx := findColumnIndex(header, "category")
	titleIdx := findColumnIndex(header, "title")
	descriptionIdx := findColumnIndex(header, "description")
	itemsCodeIdx := findColumnIndex(header, "items_code")

	summary := &Summary{}
	lineCount := 1 // Header was already read

	for {
		lineCount++
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Warn().Err(err).Int("line", lineCount).Msg("Error reading CSV line")
			summary.Errors = append(summary.Errors, fmt.Sprintf("line %d: %v", lineCount, err))
			continue
		}

		if len(record) == 0 || (len(record) == 1 && strings.TrimSpace(record[0]) == "") {
			log.Debug().Int("line", lineCount).Msg("Skipping empty row")
			continue
		}
		summary.Total++

		desc := models.NewChannel(safeGetValue(record, typeIdx), safeGetValue(record, linkIdx))
		desc.Category = safeGetValue(record, categoryIdx)
		desc.Title = safeGetValue(record, titleIdx)
		desc.Description = safeGetValue(record, descriptionIdx)
		desc.ItemsCode = safeGetValue(record, itemsCodeIdx)

		if desc.Link == "" {
			log.Warn().Int("line", lineCount).Msg("Skipping row with empty link")
			summary.Errors = append(summary.Errors, fmt.Sprintf("line %d: empty link", lineCount))
			continue
		}

		logger := log.With().
			Int("line", lineCount).
			Str("link", desc.Link).
			Str("type", desc.Type).
			Logger()

		res, err := i.crawler.CrawlChannel(ctx, desc)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to import channel")
			summary.Errors = append(summary.Errors, fmt.Sprintf("line %d: %v", lineCount, err))
			continue
		}

		summary.Imported++
		logger.Debug().Int64("channel_id", res.ID).Int("inserted", res.Inserted).Msg("Channel imported")
	}

	log.Info().
		Int("total", summary.Total).
		Int("success", summary.Imported).
		Int("errors", len(summary.Errors)).
		Msg("Import summary")

	return summary, nil
}

func findColumnIndex(header []string, columnName string) int {
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), columnName) {
			return i
		}
	}
	return -1
}

// safeGetValue returns the trimmed value at index, or "" when the index is
// out of bounds.
func safeGetValue(record []string, index int) string {
	if index >= 0 && index < len(record) {
		return strings.TrimSpace(record[index])
	}
	return ""
}
