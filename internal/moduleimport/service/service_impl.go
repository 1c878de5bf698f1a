// Package service runs imports end to end: parse, reconcile, persist,
// snapshot.
package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/modabuild/fabline/internal/auditcontext"
	importdomain "github.com/modabuild/fabline/internal/moduleimport/domain"
	"github.com/modabuild/fabline/internal/moduleimport/parser"
	"github.com/modabuild/fabline/internal/moduleimport/reconcile"
	"github.com/modabuild/fabline/internal/observability/metrics"
	projectdomain "github.com/modabuild/fabline/internal/project/domain"
	sequencedomain "github.com/modabuild/fabline/internal/sequence/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	ProjectRepo projectdomain.Repository
	SequenceSvc sequencedomain.Service
	Metrics     *metrics.SequenceMetrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	projectRepo projectdomain.Repository
	sequenceSvc sequencedomain.Service
	metrics     *metrics.SequenceMetrics
}

func NewService(p ServiceParam) importdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("moduleimport.service"),
		genID:       p.GenID,
		projectRepo: p.ProjectRepo,
		sequenceSvc: p.SequenceSvc,
		metrics:     p.Metrics,
	}
}

func (s *Service) Analyze(ctx context.Context, req importdomain.AnalyzeRequest) (*importdomain.ImportResponse, error) {
	mode := "default"
	if req.Options.SequenceOnly {
		mode = "sequence_only"
	}

	project, parsed, err := s.loadInputs(ctx, req.ProjectID, req.CSV)
	if err != nil {
		s.metrics.IncImportRun("analyze", mode, "failed")
		return nil, err
	}

	// The dry run classifies under the same mode the execute will use, so
	// the preview matches what an execute would apply.
	result := reconcile.Analyze(project.ModuleList(), parsed.Rows, req.Options)
	s.metrics.IncImportRun("analyze", mode, "success")
	s.recordRowMetrics(result, parsed)

	return &importdomain.ImportResponse{
		Result:      result,
		ParseErrors: parsed.Errors,
		RowCount:    len(parsed.Rows),
	}, nil
}

func (s *Service) Execute(ctx context.Context, req importdomain.ExecuteRequest) (*importdomain.ImportResponse, error) {
	mode := "default"
	if req.Options.SequenceOnly {
		mode = "sequence_only"
	}

	project, parsed, err := s.loadInputs(ctx, req.ProjectID, req.CSV)
	if err != nil {
		s.metrics.IncImportRun("execute", mode, "failed")
		return nil, err
	}

	modules, result := reconcile.Apply(project.ModuleList(), parsed.Rows, req.Options, s.genID.Generate)
	response := &importdomain.ImportResponse{
		Result:      result,
		ParseErrors: parsed.Errors,
		RowCount:    len(parsed.Rows),
	}

	if !result.Applied {
		// Changed rows are withheld pending explicit force_overwrite; the
		// caller gets the same classification analyze would produce.
		s.metrics.IncImportRun("execute", mode, "withheld")
		return response, nil
	}

	if err := s.projectRepo.UpdateModules(ctx, s.db, project.ID, modules, project.Version); err != nil {
		s.metrics.IncImportRun("execute", mode, "failed")
		return nil, err
	}

	actor := auditcontext.ActorFromContext(ctx)
	description := fmt.Sprintf("Imported %d rows (%d new, %d updated, %d skipped)",
		len(parsed.Rows), result.Created, result.Updated, result.Skipped)
	if req.Options.SequenceOnly {
		description = fmt.Sprintf("Sequence import: %d rows (%d updated, %d skipped)",
			len(parsed.Rows), result.Updated, result.Skipped)
	}
	if _, err := s.sequenceSvc.SaveSnapshot(ctx, project.ID, modules, sequencedomain.ChangeImport, description, actor); err != nil {
		// Snapshot failure does not revert the applied import.
		s.log.Warn("import snapshot failed",
			zap.String("project_id", project.ID.String()),
			zap.Error(err),
		)
	}

	s.metrics.IncImportRun("execute", mode, "success")
	s.recordRowMetrics(result, parsed)

	if len(result.Conflicts) > 0 {
		s.log.Warn("import produced duplicate build sequences",
			zap.String("project_id", project.ID.String()),
			zap.Int("conflicts", len(result.Conflicts)),
		)
	}

	return response, nil
}

func (s *Service) loadInputs(ctx context.Context, projectID, csv string) (*projectdomain.Project, *importdomain.ParseResult, error) {
	id, err := projectdomain.ParseID(projectID)
	if err != nil || id == 0 {
		return nil, nil, importdomain.ErrInvalidProject
	}

	project, err := s.projectRepo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, nil, err
	}
	if project == nil {
		return nil, nil, projectdomain.ErrNotFound
	}

	parsed, err := parser.Parse(csv)
	if err != nil {
		return nil, nil, err
	}
	if len(parsed.Rows) == 0 && len(parsed.Errors) == 0 {
		return nil, nil, importdomain.ErrEmptyImport
	}
	return project, parsed, nil
}

func (s *Service) recordRowMetrics(result importdomain.Result, parsed *importdomain.ParseResult) {
	s.metrics.AddImportRows("new", result.Created)
	s.metrics.AddImportRows("changed", result.Updated)
	s.metrics.AddImportRows("unchanged", result.Unchanged)
	s.metrics.AddImportRows("skipped", result.Skipped)
	s.metrics.AddImportRows("error", len(parsed.Errors))
}
