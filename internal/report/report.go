// Package report shapes the model's diagnostic text for display and download.
package report

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// FilenamePrefix is the stem of every downloaded report file.
const FilenamePrefix = "chargescope_report"

// Filename returns the timestamped download name for a report, e.g.
// chargescope_report_20240115_102301.txt.
func Filename(t time.Time) string {
	return fmt.Sprintf("%s_%s.txt", FilenamePrefix, t.Format("20060102_150405"))
}

// Patterns for elements worth visual emphasis in the rendered report.
var (
	// 2024-01-15, 10:23:01 and 10:23:01.250 forms
	datePattern      = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	timestampPattern = regexp.MustCompile(`\b\d{2}:\d{2}:\d{2}(?:\.\d+)?\b`)
	// transactionId=42, transaction_id: 42, transaction 42
	transactionPattern = regexp.MustCompile(`(?i)\btransaction[_ ]?(?:id)?\s*[=:#]?\s*\d+\b`)
	errorKeywords      = regexp.MustCompile(`(?i)\b(error|fault|failed|failure|rejected|timeout|critical|overcurrent|groundfailure)\b`)
)

// Highlight wraps key log elements in markdown emphasis: identifiers and
// timestamps as inline code, error keywords in bold. Fenced code blocks in
// the report are left untouched.
func Highlight(text string) string {
	parts := strings.Split(text, "```")
	for i := range parts {
		// Odd indexes are inside fences
		if i%2 == 0 {
			parts[i] = highlightSegment(parts[i])
		}
	}
	return strings.Join(parts, "```")
}

func highlightSegment(s string) string {
	s = transactionPattern.ReplaceAllString(s, "`$0`")
	s = datePattern.ReplaceAllString(s, "`$0`")
	s = timestampPattern.ReplaceAllString(s, "`$0`")
	s = errorKeywords.ReplaceAllString(s, "**$0**")
	return s
}
