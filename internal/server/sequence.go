package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/modabuild/fabline/internal/audit/domain"
	"github.com/modabuild/fabline/internal/auditcontext"
	projectdomain "github.com/modabuild/fabline/internal/project/domain"
	"github.com/modabuild/fabline/internal/sequence/diff"
	sequencedomain "github.com/modabuild/fabline/internal/sequence/domain"
)

type restoreRequest struct {
	SnapshotID string `json:"snapshot_id"`
}

// @Summary      Sequence History
// @Description  List recent build-sequence snapshots, newest first
// @Tags         sequence
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id     path   string  true   "Project ID"
// @Param        limit  query  int     false  "Limit"
// @Success      200  {object}  []sequencedomain.Snapshot
// @Router       /projects/{id}/sequence/history [get]
func (s *Server) GetSequenceHistory(c *gin.Context) {
	projectID, err := projectdomain.ParseID(c.Param("id"))
	if err != nil || projectID == 0 {
		AbortWithError(c, projectdomain.ErrInvalidID)
		return
	}

	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
			return
		}
	}

	history := s.sequenceSvc.GetHistory(c.Request.Context(), projectID, limit)
	c.JSON(http.StatusOK, gin.H{"data": history})
}

// @Summary      Compare Snapshots
// @Description  Diff two snapshots, ordered by new sequence
// @Tags         sequence
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id    path   string  true  "Project ID"
// @Param        from  query  string  true  "Older snapshot ID"
// @Param        to    query  string  true  "Newer snapshot ID"
// @Success      200  {object}  []diff.Change
// @Router       /projects/{id}/sequence/compare [get]
func (s *Server) CompareSnapshots(c *gin.Context) {
	projectID, err := projectdomain.ParseID(c.Param("id"))
	if err != nil || projectID == 0 {
		AbortWithError(c, projectdomain.ErrInvalidID)
		return
	}

	fromID, err := projectdomain.ParseID(c.Query("from"))
	if err != nil || fromID == 0 {
		AbortWithError(c, newValidationError("from", "invalid_from", "invalid from snapshot id"))
		return
	}
	toID, err := projectdomain.ParseID(c.Query("to"))
	if err != nil || toID == 0 {
		AbortWithError(c, newValidationError("to", "invalid_to", "invalid to snapshot id"))
		return
	}

	ctx := c.Request.Context()
	from, err := s.sequenceSvc.GetSnapshot(ctx, projectID, fromID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	to, err := s.sequenceSvc.GetSnapshot(ctx, projectID, toID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	changes := diff.CompareSnapshots(from.EntryList(), to.EntryList())
	c.JSON(http.StatusOK, gin.H{"data": changes})
}

// @Summary      Restore Snapshot
// @Description  Overlay a snapshot's sequences onto the current modules
// @Tags         sequence
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string          true  "Project ID"
// @Param        request  body  restoreRequest  true  "Restore Request"
// @Success      200  {object}  map[string]bool
// @Router       /projects/{id}/sequence/restore [post]
func (s *Server) RestoreSnapshot(c *gin.Context) {
	projectID, err := projectdomain.ParseID(c.Param("id"))
	if err != nil || projectID == 0 {
		AbortWithError(c, projectdomain.ErrInvalidID)
		return
	}

	var req restoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	snapshotID, err := projectdomain.ParseID(req.SnapshotID)
	if err != nil || snapshotID == 0 {
		AbortWithError(c, newValidationError("snapshot_id", "invalid_snapshot_id", "invalid snapshot id"))
		return
	}

	ctx := c.Request.Context()
	actor := auditcontext.ActorFromContext(ctx)
	restored, err := s.sequenceSvc.RestoreSnapshot(ctx, projectID, snapshotID, actor)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !restored {
		AbortWithError(c, sequencedomain.ErrSnapshotNotFound)
		return
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(ctx, auditdomain.ActionSequenceRestore, "project", projectID.String(), map[string]any{
			"snapshot_id": snapshotID.String(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"restored": true}})
}
