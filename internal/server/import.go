package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/modabuild/fabline/internal/audit/domain"
	importdomain "github.com/modabuild/fabline/internal/moduleimport/domain"
)

type importRequest struct {
	CSV            string `json:"csv"`
	SequenceOnly   bool   `json:"sequence_only"`
	ForceOverwrite bool   `json:"force_overwrite"`
}

// @Summary      Analyze Import
// @Description  Dry-run a module CSV import and preview the changes
// @Tags         import
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string         true  "Project ID"
// @Param        request  body  importRequest  true  "Import Request"
// @Success      200  {object}  importdomain.ImportResponse
// @Router       /projects/{id}/import/analyze [post]
func (s *Server) AnalyzeImport(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.CSV) == "" {
		AbortWithError(c, newValidationError("csv", "required", "csv content is required"))
		return
	}

	resp, err := s.importSvc.Analyze(c.Request.Context(), importdomain.AnalyzeRequest{
		ProjectID: id,
		CSV:       req.CSV,
		Options: importdomain.Options{
			SequenceOnly: req.SequenceOnly,
		},
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Execute Import
// @Description  Apply a module CSV import
// @Tags         import
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string         true  "Project ID"
// @Param        request  body  importRequest  true  "Import Request"
// @Success      200  {object}  importdomain.ImportResponse
// @Router       /projects/{id}/import/execute [post]
func (s *Server) ExecuteImport(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.CSV) == "" {
		AbortWithError(c, newValidationError("csv", "required", "csv content is required"))
		return
	}

	resp, err := s.importSvc.Execute(c.Request.Context(), importdomain.ExecuteRequest{
		ProjectID: id,
		CSV:       req.CSV,
		Options: importdomain.Options{
			SequenceOnly:   req.SequenceOnly,
			ForceOverwrite: req.ForceOverwrite,
		},
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil && resp.Result.Applied {
		s.auditSvc.Record(c.Request.Context(), auditdomain.ActionImportExecute, "project", id, map[string]any{
			"rows":          resp.RowCount,
			"created":       resp.Result.Created,
			"updated":       resp.Result.Updated,
			"skipped":       resp.Result.Skipped,
			"sequence_only": req.SequenceOnly,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
