package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chargescope/chargescope/internal/ai"
	"github.com/chargescope/chargescope/internal/normalize"
	"github.com/chargescope/chargescope/internal/prompt"
	"github.com/chargescope/chargescope/internal/report"
)

// analyzeTextRequest is the body of POST /api/analyze.
type analyzeTextRequest struct {
	Text string `json:"text"`
	// Filter toggles Heartbeat/BootNotification removal. Absent means
	// use the configured default.
	Filter *bool `json:"filter"`
}

// downloadRequest is the body of POST /api/report/download.
type downloadRequest struct {
	Report string `json:"report"`
}

// analysisStats is the token/cost block returned alongside a report.
type analysisStats struct {
	Provider        string  `json:"provider"`
	Model           string  `json:"model"`
	InputTokens     int     `json:"input_tokens"`
	OutputTokens    int     `json:"output_tokens"`
	CostUSD         float64 `json:"cost_usd"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// analyzeResponse is the success body of both analyze endpoints.
type analyzeResponse struct {
	Report      string        `json:"report"`
	Highlighted string        `json:"highlighted"`
	Filename    string        `json:"filename"`
	Truncated   bool          `json:"truncated"`
	Rows        int           `json:"rows,omitempty"`
	Columns     []string      `json:"columns,omitempty"`
	Preview     []string      `json:"preview,omitempty"`
	Stats       analysisStats `json:"stats"`
}

// User-visible messages. Provider and credential details stay in the logs.
const (
	msgEmptyInput  = "Please provide some log content before analyzing."
	msgParseFailed = "The uploaded file could not be read as tabular log data. Check the format and try again."
	msgTooLarge    = "The uploaded file is too large."
	msgBadType     = "Unsupported file type. Upload a .csv or .xlsx file."
	msgUnavailable = "The analysis service is not available right now. Please try again later."
	msgBusy        = "The analysis service is busy. Please wait a moment and try again."
	msgTimeout     = "The analysis timed out. Try again with a smaller log excerpt."
	msgUnreachable = "Could not reach the analysis service. Please try again."
	msgInternal    = "Analysis failed unexpectedly. Please try again."
	msgRateLimited = "Rate limit exceeded. Please wait before submitting another analysis."
)

// checkRateLimit consumes one request for the client. Writes the 429
// response itself and returns false when the client is over the limit.
func (s *Server) checkRateLimit(c *gin.Context) bool {
	allowed, remaining, retryAfter := s.limiter.Allow(c.ClientIP())
	if !allowed {
		seconds := int(math.Ceil(retryAfter.Seconds()))
		c.Header("Retry-After", fmt.Sprintf("%d", seconds))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":               msgRateLimited,
			"retry_after_seconds": seconds,
		})
		return false
	}
	c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
	return true
}

// handleAnalyzeText runs the pasted-text pipeline.
func (s *Server) handleAnalyzeText(c *gin.Context) {
	if !s.checkRateLimit(c) {
		return
	}

	var req analyzeTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgEmptyInput})
		return
	}

	result, err := s.newNormalizer(s.filterEnabled(req.Filter)).Text(req.Text)
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.analyze(c, result)
}

// handleAnalyzeFile runs the tabular-upload pipeline.
func (s *Server) handleAnalyzeFile(c *gin.Context) {
	if !s.checkRateLimit(c) {
		return
	}

	maxBytes := int64(s.cfg.MaxUploadSizeMB) * 1024 * 1024
	if c.Request.ContentLength > maxBytes+64*1024 {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": msgTooLarge})
		return
	}
	// Bound the whole multipart body, with headroom for the form framing.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+64*1024)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": msgTooLarge})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msgParseFailed})
		return
	}
	defer func() { _ = file.Close() }()

	if header.Size > maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": msgTooLarge})
		return
	}

	var filter *bool
	if v, ok := c.GetPostForm("filter"); ok {
		enabled := v == "true" || v == "1" || v == "on"
		filter = &enabled
	}
	normalizer := s.newNormalizer(s.filterEnabled(filter))

	var result *normalize.Result
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".csv":
		result, err = normalizer.CSV(file)
	case ".xlsx", ".xlsm":
		result, err = normalizer.XLSX(file)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": msgBadType})
		return
	}
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.analyze(c, result)
}

// analyze submits normalized content to the provider and writes the response.
func (s *Server) analyze(c *gin.Context, result *normalize.Result) {
	if s.provider == nil {
		s.log.Error().Err(s.providerErr).Msg("Analysis rejected, provider unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": msgUnavailable})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(s.cfg.AITimeoutSeconds)*time.Second)
	defer cancel()

	text, stats, err := s.provider.Analyze(ctx, prompt.Build(result.Content))
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.log.Info().
		Str("provider", stats.Provider).
		Str("model", stats.Model).
		Int("input_tokens", stats.InputTokens).
		Int("output_tokens", stats.OutputTokens).
		Float64("cost_usd", stats.CostUSD).
		Float64("duration_s", stats.DurationSeconds).
		Bool("truncated", result.Truncated).
		Msg("Analysis completed")

	c.JSON(http.StatusOK, analyzeResponse{
		Report:      text,
		Highlighted: report.Highlight(text),
		Filename:    report.Filename(time.Now()),
		Truncated:   result.Truncated,
		Rows:        result.Rows,
		Columns:     result.Columns,
		Preview:     result.Preview,
		Stats: analysisStats{
			Provider:        stats.Provider,
			Model:           stats.Model,
			InputTokens:     stats.InputTokens,
			OutputTokens:    stats.OutputTokens,
			CostUSD:         stats.CostUSD,
			DurationSeconds: stats.DurationSeconds,
		},
	})
}

// handleDownload returns the report text as a plain-text attachment with a
// timestamped filename.
func (s *Server) handleDownload(c *gin.Context) {
	var req downloadRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Report) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No report to download."})
		return
	}

	filename := report.Filename(time.Now())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(req.Report))
}

// handleExample serves the embedded sample session log.
func (s *Server) handleExample(c *gin.Context) {
	data, err := webFS.ReadFile("web/example_session.csv")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// filterEnabled resolves the per-request filter toggle against the default.
func (s *Server) filterEnabled(requested *bool) bool {
	if requested != nil {
		return *requested
	}
	return s.cfg.FilterOCPPNoise
}

// respondError maps a pipeline error to one user-visible message and status.
// Provider details are logged and never sent to the browser.
func (s *Server) respondError(c *gin.Context, err error) {
	status, message := mapError(err)

	event := s.log.Error()
	if status == http.StatusBadRequest {
		event = s.log.Warn()
	}
	event.Err(err).Int("status", status).Str("path", c.Request.URL.Path).Msg("Request failed")

	c.JSON(status, gin.H{"error": message})
}

func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, normalize.ErrEmptyInput):
		return http.StatusBadRequest, msgEmptyInput
	case errors.Is(err, normalize.ErrParse):
		return http.StatusBadRequest, msgParseFailed
	case errors.Is(err, ai.ErrAuth):
		// Hide credential problems behind a generic message
		return http.StatusServiceUnavailable, msgUnavailable
	case errors.Is(err, ai.ErrQuota):
		return http.StatusTooManyRequests, msgBusy
	case errors.Is(err, ai.ErrTimeout):
		return http.StatusGatewayTimeout, msgTimeout
	case errors.Is(err, ai.ErrNetwork):
		return http.StatusBadGateway, msgUnreachable
	default:
		return http.StatusInternalServerError, msgInternal
	}
}
