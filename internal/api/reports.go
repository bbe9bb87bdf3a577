package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/be4breach/reportd/internal/core"
	"github.com/be4breach/reportd/pkg/types"
)

// handleUploadReport accepts a multipart .docx upload, parses it, and returns
// the dashboard-ready report. Persistence and caching are best-effort: a
// parse that succeeds is returned to the client even if the store is down.
func (s *Server) handleUploadReport(c *gin.Context) {
	ctx := c.Request.Context()
	start := time.Now()

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded."})
		return
	}

	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".docx") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only .docx files are supported."})
		return
	}

	if s.cfg.Parser.MaxUploadBytes > 0 && fileHeader.Size > s.cfg.Parser.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("File exceeds the %d byte upload limit.", s.cfg.Parser.MaxUploadBytes),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file."})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file."})
		return
	}

	report, cached := s.cachedReport(c, data)
	if report == nil {
		report, err = s.parser.Parse(ctx, data)
		if s.telemetry != nil {
			s.telemetry.RecordParse(time.Since(start).Seconds(), err == nil)
		}
		if err != nil {
			s.logger.LogError(ctx, err, "api.handleUploadReport",
				"filename", fileHeader.Filename,
			)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": fmt.Sprintf("Failed to parse report: %v", err),
			})
			return
		}
	}

	if report.TotalFindings == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "No findings could be extracted from the report.",
		})
		return
	}

	if s.telemetry != nil {
		s.telemetry.RecordFindings(report)
	}
	if !cached {
		s.storeInCache(c, data, report)
	}
	s.persistReport(c, fileHeader.Filename, int64(len(data)), report)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"report":  report,
	})
}

// cachedReport returns a previously parsed report for identical bytes, or nil.
func (s *Server) cachedReport(c *gin.Context, data []byte) (*types.PentestReport, bool) {
	if s.cache == nil {
		return nil, false
	}
	report, err := s.cache.Get(c.Request.Context(), s.cache.Key(data))
	if err != nil {
		s.logger.Warnw("Cache lookup failed", "error", err)
		return nil, false
	}
	return report, report != nil
}

func (s *Server) storeInCache(c *gin.Context, data []byte, report *types.PentestReport) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(c.Request.Context(), s.cache.Key(data), report); err != nil {
		s.logger.Warnw("Cache store failed", "error", err)
	}
}

// persistReport saves the parsed report. Failures are logged, not surfaced:
// the upload already succeeded from the caller's point of view.
func (s *Server) persistReport(c *gin.Context, filename string, size int64, report *types.PentestReport) {
	if s.store == nil {
		return
	}

	meta := &types.StoredReport{
		ID:            uuid.New().String(),
		Filename:      filename,
		Client:        report.Engagement.Client,
		AuditType:     report.Engagement.AuditType,
		TotalFindings: report.TotalFindings,
		SizeBytes:     size,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.store.SaveReport(c.Request.Context(), meta, report); err != nil {
		s.logger.Warnw("Failed to persist report",
			"report_id", meta.ID,
			"filename", filename,
			"error", err,
		)
		return
	}
	c.Header("X-Report-ID", meta.ID)
}

func (s *Server) handleListReports(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Report storage is not configured."})
		return
	}

	filter := core.ReportFilter{
		Client:    c.Query("client"),
		AuditType: c.Query("audit_type"),
		Limit:     50,
	}
	if limit := c.Query("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 && n <= 500 {
			filter.Limit = n
		}
	}
	if offset := c.Query("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil && n >= 0 {
			filter.Offset = n
		}
	}

	reports, err := s.store.ListReports(c.Request.Context(), filter)
	if err != nil {
		s.logger.LogError(c.Request.Context(), err, "api.handleListReports")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list reports."})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"count":   len(reports),
	})
}

func (s *Server) handleGetReport(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Report storage is not configured."})
		return
	}

	id := c.Param("id")
	meta, report, err := s.store.GetReport(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrReportNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found."})
			return
		}
		s.logger.LogError(c.Request.Context(), err, "api.handleGetReport", "report_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load report."})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"meta":   meta,
		"report": report,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "reportd",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}
