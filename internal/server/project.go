package server

import (
	"encoding/csv"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/modabuild/fabline/internal/audit/domain"
	projectdomain "github.com/modabuild/fabline/internal/project/domain"
)

type createProjectRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type editSequencesRequest struct {
	Edits []projectdomain.SequenceEdit `json:"edits"`
}

type reorderRequest struct {
	ModuleID      string `json:"module_id"`
	BuildSequence int    `json:"build_sequence"`
}

// @Summary      Create Project
// @Description  Create a new project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request body createProjectRequest true "Create Project Request"
// @Success      200  {object}  projectdomain.Project
// @Router       /projects [post]
func (s *Server) CreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.projectSvc.Create(c.Request.Context(), projectdomain.CreateRequest{
		Code: strings.TrimSpace(req.Code),
		Name: strings.TrimSpace(req.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), auditdomain.ActionProjectCreate, "project", resp.ID.String(), map[string]any{
			"code": resp.Code,
			"name": resp.Name,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      List Projects
// @Description  List projects with module counts
// @Tags         projects
// @Produce      json
// @Security     ApiKeyAuth
// @Param        code  query  string  false  "Code"
// @Param        name  query  string  false  "Name"
// @Success      200  {object}  []projectdomain.Summary
// @Router       /projects [get]
func (s *Server) ListProjects(c *gin.Context) {
	var query projectdomain.ListRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.projectSvc.List(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Get Project
// @Description  Get project by ID
// @Tags         projects
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  projectdomain.Project
// @Router       /projects/{id} [get]
func (s *Server) GetProjectByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.projectSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      List Modules
// @Description  List project modules in build order
// @Tags         modules
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  []projectdomain.Module
// @Router       /projects/{id}/modules [get]
func (s *Server) ListModules(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.projectSvc.Modules(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Export Modules
// @Description  Export project modules as CSV
// @Tags         modules
// @Produce      text/csv
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "Project ID"
// @Router       /projects/{id}/modules/export [get]
func (s *Server) ExportModulesCSV(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	modules, err := s.projectSvc.Modules(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	writeModulesCSV(c, "modules.csv", modules)
}

// @Summary      Edit Sequences
// @Description  Apply manual build-sequence edits
// @Tags         modules
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string                true  "Project ID"
// @Param        request  body  editSequencesRequest  true  "Sequence Edits"
// @Success      200  {object}  []projectdomain.Module
// @Router       /projects/{id}/modules/sequence [patch]
func (s *Server) EditSequences(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req editSequencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if len(req.Edits) == 0 {
		AbortWithError(c, newValidationError("edits", "required", "edits are required"))
		return
	}

	resp, err := s.projectSvc.EditSequences(c.Request.Context(), id, req.Edits)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), auditdomain.ActionSequenceEdit, "project", id, map[string]any{
			"edit_count": len(req.Edits),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Reorder Module
// @Description  Move one module to a new build sequence
// @Tags         modules
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string          true  "Project ID"
// @Param        request  body  reorderRequest  true  "Reorder Request"
// @Success      200  {object}  []projectdomain.Module
// @Router       /projects/{id}/modules/reorder [post]
func (s *Server) ReorderModule(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.projectSvc.Reorder(c.Request.Context(), id, strings.TrimSpace(req.ModuleID), req.BuildSequence)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), auditdomain.ActionSequenceReorder, "project", id, map[string]any{
			"module_id":      req.ModuleID,
			"build_sequence": req.BuildSequence,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Insert Prototype
// @Description  Insert a prototype module at a sequence position
// @Tags         modules
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string                                true  "Project ID"
// @Param        request  body  projectdomain.InsertPrototypeRequest  true  "Prototype Request"
// @Success      200  {object}  projectdomain.Module
// @Router       /projects/{id}/modules/prototype [post]
func (s *Server) InsertPrototype(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req projectdomain.InsertPrototypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ProjectID = id

	resp, err := s.projectSvc.InsertPrototype(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(c.Request.Context(), auditdomain.ActionPrototypeInsert, "project", id, map[string]any{
			"serial_number":  resp.SerialNumber,
			"build_sequence": resp.BuildSequence,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func writeModulesCSV(c *gin.Context, filename string, modules []projectdomain.Module) {
	// Collect the attribute columns actually present so exports round-trip
	// through the importer.
	attrKeys := map[string]bool{}
	for _, module := range modules {
		for key := range module.Attrs {
			attrKeys[key] = true
		}
	}
	extra := make([]string, 0, len(attrKeys))
	for key := range attrKeys {
		extra = append(extra, key)
	}
	sort.Strings(extra)

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	w := csv.NewWriter(c.Writer)
	header := append([]string{"Serial Number", "Build Sequence", "BLM ID", "Prototype"}, extra...)
	_ = w.Write(header)
	for _, module := range modules {
		record := []string{
			module.SerialNumber,
			strconv.Itoa(module.BuildSequence),
			module.BLMID,
			strconv.FormatBool(module.IsPrototype),
		}
		for _, key := range extra {
			record = append(record, module.Attrs[key])
		}
		_ = w.Write(record)
	}
	w.Flush()
}
