// Package normalize converts user-supplied log input (pasted text or a
// tabular CSV/XLSX upload) into a single line-oriented text blob suitable
// for prompting.
package normalize

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// Typed errors for input failures, surfaced as user-visible messages.
var (
	// ErrEmptyInput indicates a blank text submission.
	ErrEmptyInput = errors.New("input is empty")
	// ErrParse indicates an upload that could not be decoded as tabular data.
	ErrParse = errors.New("failed to parse tabular data")
)

// noiseMessages are OCPP message types that dominate exports without
// carrying diagnostic value. Filtering is opt-in.
var noiseMessages = []string{"Heartbeat", "BootNotification"}

// Options configures a Normalizer.
type Options struct {
	MaxContentBytes int  // normalized content above this is truncated
	MaxRows         int  // tabular rows beyond this are dropped
	PreviewRows     int  // bounded preview returned for display only
	FilterNoise     bool // drop Heartbeat/BootNotification rows
}

// Result is a normalized log blob plus display-only metadata.
// Preview and Columns never travel downstream to the prompt.
type Result struct {
	Content   string   // the NormalizedLog
	Columns   []string // header row of a tabular upload, empty for text input
	Preview   []string // first PreviewRows lines, display only
	Rows      int      // data rows kept (0 for text input)
	Truncated bool     // content was cut to MaxContentBytes
}

// Normalizer converts raw input into NormalizedLog blobs.
type Normalizer struct {
	maxContentBytes int
	maxRows         int
	previewRows     int
	filterNoise     bool
}

// New creates a Normalizer. Zero option values fall back to permissive defaults.
func New(opts Options) *Normalizer {
	if opts.MaxContentBytes <= 0 {
		opts.MaxContentBytes = 500 * 1024
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = 50000
	}
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = 20
	}
	return &Normalizer{
		maxContentBytes: opts.MaxContentBytes,
		maxRows:         opts.MaxRows,
		previewRows:     opts.PreviewRows,
		filterNoise:     opts.FilterNoise,
	}
}

// Text normalizes pasted log text: trim, sanitize, bound.
// Fails with ErrEmptyInput when the input is blank.
func (n *Normalizer) Text(input string) (*Result, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, ErrEmptyInput
	}

	content, truncated := n.bound(SanitizeLogContent(trimmed))

	return &Result{
		Content:   content,
		Preview:   previewLines(content, n.previewRows),
		Truncated: truncated,
	}, nil
}

// CSV normalizes a tabular upload with a header row. Each data row becomes
// one line with the column values joined by ", ", preserving row order.
// Fails with ErrParse when the input is not decodable CSV or has zero data rows.
func (n *Normalizer) CSV(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		rows = append(rows, record)
		if len(rows) >= n.maxRows {
			break
		}
	}

	return n.fromRows(header, rows)
}

// XLSX normalizes the first sheet of an Excel upload, treating its first
// row as the header. Same row-to-line conversion as CSV.
func (n *Normalizer) XLSX(r io.Reader) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrParse)
	}

	all, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: sheet is empty", ErrParse)
	}

	header := all[0]
	rows := all[1:]
	if len(rows) > n.maxRows {
		rows = rows[:n.maxRows]
	}

	return n.fromRows(header, rows)
}

// fromRows converts header + data rows into a Result.
func (n *Normalizer) fromRows(header []string, rows [][]string) (*Result, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no data rows", ErrParse)
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		if n.filterNoise && isNoiseRow(row) {
			continue
		}
		lines = append(lines, strings.Join(row, ", "))
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: all rows were filtered out", ErrParse)
	}

	content, truncated := n.bound(SanitizeLogContent(strings.Join(lines, "\n")))

	return &Result{
		Content:   content,
		Columns:   header,
		Preview:   previewLines(content, n.previewRows),
		Rows:      len(lines),
		Truncated: truncated,
	}, nil
}

// isNoiseRow reports whether any field of the row mentions a noise message type.
func isNoiseRow(row []string) bool {
	for _, field := range row {
		for _, msg := range noiseMessages {
			if strings.Contains(strings.ToLower(field), strings.ToLower(msg)) {
				return true
			}
		}
	}
	return false
}

// truncationMarker is appended when content is cut to the configured bound.
const truncationMarker = "\n\n... (content truncated for processing)"

// bound truncates content to maxContentBytes, appending a visible marker.
func (n *Normalizer) bound(content string) (string, bool) {
	if len(content) <= n.maxContentBytes {
		return content, false
	}

	cut := content[:n.maxContentBytes]
	// Don't split a multi-byte rune at the boundary
	for len(cut) > 0 {
		r, size := utf8.DecodeLastRuneInString(cut)
		if r != utf8.RuneError || size != 1 {
			break
		}
		cut = cut[:len(cut)-1]
	}
	return cut + truncationMarker, true
}

// previewLines returns the first k lines of content for display.
func previewLines(content string, k int) []string {
	lines := strings.Split(content, "\n")
	if len(lines) > k {
		lines = lines[:k]
	}
	out := make([]string, len(lines))
	copy(out, lines)
	return out
}

// promptInjectionPatterns contains regex patterns for common prompt injection attempts
var promptInjectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)forget\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+a`),
	regexp.MustCompile(`(?i)new\s+instructions?:`),
	regexp.MustCompile(`(?i)system\s*prompt\s*:`),
	regexp.MustCompile(`(?i)\bASSISTANT\s*:`),
	regexp.MustCompile(`(?i)\bHUMAN\s*:`),
	regexp.MustCompile(`(?i)\bSYSTEM\s*:`),
}

// excessiveNewlines collapses runs of blank lines left after sanitization.
var excessiveNewlines = regexp.MustCompile(`\n{4,}`)

// SanitizeLogContent sanitizes log content before it enters a prompt.
// This removes:
// - Non-printable characters (except newlines, tabs, carriage returns)
// - Common prompt injection patterns
// - Excessive blank lines
func SanitizeLogContent(content string) string {
	var sanitized strings.Builder
	sanitized.Grow(len(content))

	for _, r := range content {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' || r == '\r' {
			sanitized.WriteRune(r)
		}
	}

	result := sanitized.String()

	for _, pattern := range promptInjectionPatterns {
		result = pattern.ReplaceAllString(result, "[FILTERED]")
	}

	return excessiveNewlines.ReplaceAllString(result, "\n\n\n")
}
