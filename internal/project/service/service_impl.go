// Package service implements project and module-sequence operations.
package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/modabuild/fabline/internal/auditcontext"
	"github.com/modabuild/fabline/internal/cache"
	projectdomain "github.com/modabuild/fabline/internal/project/domain"
	sequencedomain "github.com/modabuild/fabline/internal/sequence/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// moduleCacheTTL bounds how stale the module list served to overview
// widgets may be. Writes invalidate eagerly.
const moduleCacheTTL = 30 * time.Second

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        projectdomain.Repository
	SequenceSvc sequencedomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        projectdomain.Repository
	sequenceSvc sequencedomain.Service
	moduleCache *cache.TTLCache[snowflake.ID, []projectdomain.Module]
}

func NewService(p ServiceParam) projectdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("project.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		sequenceSvc: p.SequenceSvc,
		moduleCache: cache.NewTTLCache[snowflake.ID, []projectdomain.Module](),
	}
}

func (s *Service) Create(ctx context.Context, req projectdomain.CreateRequest) (*projectdomain.Project, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, projectdomain.ErrInvalidCode
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, projectdomain.ErrInvalidName
	}

	existing, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, projectdomain.ErrDuplicateCode
	}

	project := &projectdomain.Project{
		ID:   s.genID.Generate(),
		Code: code,
		Name: name,
	}
	project.SetModules(nil)
	if err := s.repo.Insert(ctx, s.db, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *Service) Get(ctx context.Context, id string) (*projectdomain.Project, error) {
	return s.loadProject(ctx, id)
}

func (s *Service) List(ctx context.Context, req projectdomain.ListRequest) ([]projectdomain.Summary, error) {
	projects, err := s.repo.List(ctx, s.db, req)
	if err != nil {
		return nil, err
	}

	summaries := make([]projectdomain.Summary, 0, len(projects))
	for _, project := range projects {
		modules := project.ModuleList()
		prototypes := 0
		for _, module := range modules {
			if module.IsPrototype {
				prototypes++
			}
		}
		summaries = append(summaries, projectdomain.Summary{
			ID:          project.ID,
			Code:        project.Code,
			Name:        project.Name,
			ModuleCount: len(modules),
			Prototypes:  prototypes,
			Version:     project.Version,
		})
	}
	return summaries, nil
}

func (s *Service) Modules(ctx context.Context, id string) ([]projectdomain.Module, error) {
	projectID, err := projectdomain.ParseID(id)
	if err != nil || projectID == 0 {
		return nil, projectdomain.ErrInvalidID
	}

	if modules, ok := s.moduleCache.Get(projectID); ok {
		return modules, nil
	}

	project, err := s.repo.FindByID(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, projectdomain.ErrNotFound
	}

	modules := sortModules(project.ModuleList())
	s.moduleCache.Set(projectID, modules, moduleCacheTTL)
	return modules, nil
}

func (s *Service) EditSequences(ctx context.Context, id string, edits []projectdomain.SequenceEdit) ([]projectdomain.Module, error) {
	if len(edits) == 0 {
		return nil, projectdomain.ErrInvalidSequence
	}
	project, err := s.loadProject(ctx, id)
	if err != nil {
		return nil, err
	}

	modules := project.ModuleList()
	byID := make(map[snowflake.ID]int, len(modules))
	for i, module := range modules {
		byID[module.ID] = i
	}

	for _, edit := range edits {
		if edit.BuildSequence < 0 {
			return nil, projectdomain.ErrInvalidSequence
		}
		idx, ok := byID[edit.ModuleID]
		if !ok {
			return nil, projectdomain.ErrModuleNotFound
		}
		modules[idx].BuildSequence = edit.BuildSequence
	}

	if err := s.writeModules(ctx, project, modules); err != nil {
		return nil, err
	}
	s.snapshot(ctx, project.ID, modules, sequencedomain.ChangeManualEdit,
		fmt.Sprintf("Manually edited %d module sequence(s)", len(edits)))
	return sortModules(modules), nil
}

func (s *Service) Reorder(ctx context.Context, id string, moduleID string, buildSequence int) ([]projectdomain.Module, error) {
	if buildSequence < 1 {
		return nil, projectdomain.ErrInvalidSequence
	}
	targetID, err := projectdomain.ParseID(moduleID)
	if err != nil || targetID == 0 {
		return nil, projectdomain.ErrModuleNotFound
	}

	project, err := s.loadProject(ctx, id)
	if err != nil {
		return nil, err
	}

	modules := project.ModuleList()
	targetIdx := -1
	for i, module := range modules {
		if module.ID == targetID {
			targetIdx = i
			break
		}
	}
	if targetIdx < 0 {
		return nil, projectdomain.ErrModuleNotFound
	}

	oldSequence := modules[targetIdx].BuildSequence
	if oldSequence == buildSequence {
		return sortModules(modules), nil
	}

	// Shift the modules between the old and new position by one so the
	// remaining order is preserved.
	for i := range modules {
		if i == targetIdx {
			continue
		}
		seq := modules[i].BuildSequence
		switch {
		case oldSequence > 0 && seq > oldSequence && seq <= buildSequence:
			modules[i].BuildSequence = seq - 1
		case seq >= buildSequence && (oldSequence == 0 || seq < oldSequence):
			modules[i].BuildSequence = seq + 1
		}
	}
	modules[targetIdx].BuildSequence = buildSequence

	if err := s.writeModules(ctx, project, modules); err != nil {
		return nil, err
	}
	s.snapshot(ctx, project.ID, modules, sequencedomain.ChangeReorder,
		fmt.Sprintf("Moved %s from sequence %d to %d",
			modules[targetIdx].SerialNumber, oldSequence, buildSequence))
	return sortModules(modules), nil
}

func (s *Service) InsertPrototype(ctx context.Context, req projectdomain.InsertPrototypeRequest) (*projectdomain.Module, error) {
	serial := strings.TrimSpace(req.SerialNumber)
	if serial == "" {
		return nil, projectdomain.ErrInvalidSerial
	}
	if req.BuildSequence < 1 {
		return nil, projectdomain.ErrInvalidSequence
	}

	project, err := s.loadProject(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}

	modules := project.ModuleList()
	for _, module := range modules {
		if module.SerialNumber == serial {
			return nil, projectdomain.ErrDuplicateSerial
		}
	}

	// Make room: everything at or after the insertion point moves up one.
	for i := range modules {
		if modules[i].BuildSequence >= req.BuildSequence {
			modules[i].BuildSequence++
		}
	}

	prototype := projectdomain.Module{
		ID:            s.genID.Generate(),
		SerialNumber:  serial,
		BuildSequence: req.BuildSequence,
		BLMID:         strings.TrimSpace(req.BLMID),
		IsPrototype:   true,
		Attrs:         req.Attrs,
	}
	modules = append(modules, prototype)

	if err := s.writeModules(ctx, project, modules); err != nil {
		return nil, err
	}
	s.snapshot(ctx, project.ID, modules, sequencedomain.ChangePrototypeInsert,
		fmt.Sprintf("Inserted prototype %s at sequence %d", serial, req.BuildSequence))
	return &prototype, nil
}

func (s *Service) loadProject(ctx context.Context, id string) (*projectdomain.Project, error) {
	projectID, err := projectdomain.ParseID(id)
	if err != nil || projectID == 0 {
		return nil, projectdomain.ErrInvalidID
	}
	project, err := s.repo.FindByID(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, projectdomain.ErrNotFound
	}
	return project, nil
}

func (s *Service) writeModules(ctx context.Context, project *projectdomain.Project, modules []projectdomain.Module) error {
	if err := s.repo.UpdateModules(ctx, s.db, project.ID, modules, project.Version); err != nil {
		return err
	}
	s.moduleCache.Delete(project.ID)
	return nil
}

func (s *Service) snapshot(ctx context.Context, projectID snowflake.ID, modules []projectdomain.Module, changeType sequencedomain.ChangeType, description string) {
	actor := auditcontext.ActorFromContext(ctx)
	if _, err := s.sequenceSvc.SaveSnapshot(ctx, projectID, modules, changeType, description, actor); err != nil {
		// The edit already applied; only the history entry is missing.
		s.log.Warn("sequence snapshot failed",
			zap.String("project_id", projectID.String()),
			zap.String("change_type", string(changeType)),
			zap.Error(err),
		)
	}
}

// sortModules orders by build sequence ascending with unsequenced modules
// last, matching the dashboard's build-order view.
func sortModules(modules []projectdomain.Module) []projectdomain.Module {
	sorted := make([]projectdomain.Module, len(modules))
	copy(sorted, modules)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].BuildSequence, sorted[j].BuildSequence
		if a > 0 && b > 0 {
			return a < b
		}
		if a > 0 {
			return true
		}
		if b > 0 {
			return false
		}
		return sorted[i].SerialNumber < sorted[j].SerialNumber
	})
	return sorted
}
