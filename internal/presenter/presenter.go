// Package presenter joins ranked search rows with document metadata and
// renders them for people (an aligned table) or programs (JSON).
package presenter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/internal/searcher/ranker"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// Row is a ranked result with its metadata. Metadata fields are empty when
// the document is unknown to the lookup.
type Row struct {
	DocID       string `json:"doc_id"`
	Frequency   int    `json:"frequency"`
	Title       string `json:"title"`
	PublishTime string `json:"publish_time"`
	URL         string `json:"url"`
	Abstract    string `json:"abstract"`
}

// Join left-joins results with metadata, keeping rank order. A nil lookup
// yields rows with identifiers and frequencies only.
func Join(ctx context.Context, results []ranker.Result, lookup corpus.MetadataLookup) ([]Row, error) {
	rows := make([]Row, len(results))
	for i, r := range results {
		rows[i] = Row{DocID: r.DocID, Frequency: r.Frequency}
	}
	if lookup == nil || len(results) == 0 {
		return rows, nil
	}
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.DocID
	}
	meta, err := lookup.Lookup(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("looking up metadata: %w", err)
	}
	for i := range rows {
		md, ok := meta[rows[i].DocID]
		if !ok {
			continue
		}
		rows[i].Title = md.Title
		rows[i].PublishTime = md.PublishTime
		rows[i].URL = md.URL
		rows[i].Abstract = md.Abstract
	}
	return rows, nil
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteTable writes rows as tab-aligned columns. Titles and abstracts longer
// than width runes are shortened with an ellipsis; width <= 0 disables that.
func WriteTable(w io.Writer, rows []Row, width int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tDOC_ID\tFREQUENCY\tPUBLISHED\tTITLE\tURL\tABSTRACT")
	for i, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1,
			r.DocID,
			strconv.Itoa(r.Frequency),
			orDash(r.PublishTime),
			orDash(truncate(cell(r.Title), width)),
			orDash(r.URL),
			orDash(truncate(cell(r.Abstract), width)),
		)
	}
	return tw.Flush()
}

// Write renders rows as a table, or doc as JSON. doc is the full response
// the rows belong to.
func Write(w io.Writer, format string, doc any, rows []Row, width int) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, doc)
	case FormatTable, "":
		return WriteTable(w, rows, width)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// cell flattens whitespace so a value stays on one table line.
func cell(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, width int) string {
	if width <= 0 || utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	if width == 1 {
		return "…"
	}
	return string(runes[:width-1]) + "…"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
