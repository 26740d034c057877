package corpus

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"strings"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/errors"
)

// Column names of the CORD-19 metadata.csv file.
const (
	colDocID       = "cord_uid"
	colTitle       = "title"
	colAbstract    = "abstract"
	colPublishTime = "publish_time"
	colURL         = "url"
	colPDFJSON     = "pdf_json_files"
	colPMCJSON     = "pmc_json_files"
)

// CSVOptions controls sampling and filtering of a metadata.csv file.
type CSVOptions struct {
	// SampleEvery keeps every n-th data row, starting with the first.
	SampleEvery int
	// RequireFullText drops rows with neither a PDF nor a PMC parse.
	RequireFullText bool
}

// CSVStats counts rows at each filtering stage of the last scan.
type CSVStats struct {
	Sampled      int
	WithAbstract int
	WithFullText int
	Malformed    int
}

// CSVSource streams documents and metadata from a metadata.csv file. Each
// call to Documents or Records re-opens the file.
type CSVSource struct {
	path   string
	opts   CSVOptions
	logger *slog.Logger

	mu    sync.Mutex
	stats CSVStats
}

func NewCSVSource(path string, opts CSVOptions) *CSVSource {
	if opts.SampleEvery < 1 {
		opts.SampleEvery = 1
	}
	return &CSVSource{
		path:   path,
		opts:   opts,
		logger: slog.Default().With("component", "csv-source", "path", path),
	}
}

// Stats returns the counters of the most recent completed Documents scan.
func (s *CSVSource) Stats() CSVStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Records yields every sampled row, before the abstract and full-text
// filters. It is the input of the Postgres import.
func (s *CSVSource) Records(ctx context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		f, err := os.Open(s.path)
		if err != nil {
			yield(Record{}, fmt.Errorf("opening corpus %s: %w", s.path, err))
			return
		}
		defer f.Close()
		for rec, err := range readRecords(ctx, f, s.opts.SampleEvery) {
			if !yield(rec, err) {
				return
			}
		}
	}
}

// Documents yields the abstracts of sampled rows that pass the filters.
func (s *CSVSource) Documents(ctx context.Context) iter.Seq2[Document, error] {
	return func(yield func(Document, error) bool) {
		var stats CSVStats
		defer func() {
			s.mu.Lock()
			s.stats = stats
			s.mu.Unlock()
			s.logger.Info("corpus rows filtered",
				"full_metadata", stats.Sampled,
				"after_removing_null_abstracts", stats.WithAbstract,
				"after_removing_null_full_texts", stats.WithFullText,
				"malformed", stats.Malformed,
			)
		}()
		for rec, err := range s.Records(ctx) {
			if err != nil {
				if _, ok := apperrors.AsDocumentError(err); ok {
					stats.Malformed++
				}
				if !yield(Document{}, err) {
					return
				}
				continue
			}
			stats.Sampled++
			if strings.TrimSpace(rec.Abstract) == "" {
				continue
			}
			stats.WithAbstract++
			if s.opts.RequireFullText && !rec.HasFullText {
				continue
			}
			stats.WithFullText++
			if !yield(Document{ID: rec.DocID, Text: rec.Abstract}, nil) {
				return
			}
		}
	}
}

// Lookup scans the file once more and returns metadata for ids. Sampling
// is not applied, so any row of the file can be resolved.
func (s *CSVSource) Lookup(ctx context.Context, ids []string) (map[string]Metadata, error) {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	out := make(map[string]Metadata, len(ids))
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus %s: %w", s.path, err)
	}
	defer f.Close()
	for rec, err := range readRecords(ctx, f, 1) {
		if err != nil {
			if _, ok := apperrors.AsDocumentError(err); ok {
				continue
			}
			return nil, err
		}
		if _, ok := wanted[rec.DocID]; !ok {
			continue
		}
		if _, seen := out[rec.DocID]; !seen {
			out[rec.DocID] = rec.Metadata
		}
		if len(out) == len(wanted) {
			break
		}
	}
	return out, nil
}

// readRecords parses a metadata.csv stream. Rows that fail to parse are
// yielded as DocumentErrors and reading continues; I/O errors end the scan.
func readRecords(ctx context.Context, r io.Reader, sampleEvery int) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		reader := csv.NewReader(r)
		reader.LazyQuotes = true
		header, err := reader.Read()
		if err != nil {
			yield(Record{}, fmt.Errorf("reading corpus header: %w", err))
			return
		}
		cols, err := indexColumns(header)
		if err != nil {
			yield(Record{}, err)
			return
		}
		for row := 0; ; row++ {
			if err := ctx.Err(); err != nil {
				yield(Record{}, err)
				return
			}
			fields, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			var parseErr *csv.ParseError
			if err != nil && !errors.As(err, &parseErr) {
				yield(Record{}, fmt.Errorf("reading corpus: %w", err))
				return
			}
			if row%sampleEvery != 0 {
				continue
			}
			if parseErr != nil {
				id := fmt.Sprintf("line %d", parseErr.Line)
				if len(fields) > cols[colDocID] && fields[cols[colDocID]] != "" {
					id = fields[cols[colDocID]]
				}
				if !yield(Record{}, apperrors.NewDocumentError(id, parseErr)) {
					return
				}
				continue
			}
			rec := Record{
				Metadata: Metadata{
					DocID:       fields[cols[colDocID]],
					Title:       field(fields, cols, colTitle),
					Abstract:    field(fields, cols, colAbstract),
					PublishTime: field(fields, cols, colPublishTime),
					URL:         field(fields, cols, colURL),
				},
				HasFullText: field(fields, cols, colPDFJSON) != "" || field(fields, cols, colPMCJSON) != "",
			}
			if rec.DocID == "" {
				if !yield(Record{}, apperrors.NewDocumentError(fmt.Sprintf("row %d", row), errors.New("missing cord_uid"))) {
					return
				}
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func indexColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, required := range []string{colDocID, colAbstract} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("corpus header is missing column %q", required)
		}
	}
	return cols, nil
}

func field(fields []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(fields) {
		return ""
	}
	return fields[i]
}
