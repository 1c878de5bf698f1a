// Package service implements the build-sequence snapshot store.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/modabuild/fabline/internal/auditcontext"
	"github.com/modabuild/fabline/internal/clock"
	"github.com/modabuild/fabline/internal/observability/metrics"
	projectdomain "github.com/modabuild/fabline/internal/project/domain"
	sequencedomain "github.com/modabuild/fabline/internal/sequence/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        sequencedomain.Repository
	ProjectRepo projectdomain.Repository
	Metrics     *metrics.SequenceMetrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        sequencedomain.Repository
	projectRepo projectdomain.Repository
	metrics     *metrics.SequenceMetrics
}

func NewService(p ServiceParam) sequencedomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("sequence.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		projectRepo: p.ProjectRepo,
		metrics:     p.Metrics,
	}
}

func (s *Service) SaveSnapshot(
	ctx context.Context,
	projectID snowflake.ID,
	modules []projectdomain.Module,
	changeType sequencedomain.ChangeType,
	description string,
	actor auditcontext.Actor,
) (snowflake.ID, error) {
	if !changeType.Valid() {
		return 0, sequencedomain.ErrInvalidChangeType
	}
	if actor.IsZero() {
		actor = auditcontext.System
	}

	snapshot := &sequencedomain.Snapshot{
		ID:          s.genID.Generate(),
		ProjectID:   projectID,
		Entries:     datatypes.NewJSONType(sequencedomain.ProjectEntries(modules)),
		ChangeType:  changeType,
		Description: description,
		ActorID:     actor.ID,
		ActorName:   actor.Name,
		CreatedAt:   s.clock.Now(),
	}

	if err := s.repo.Insert(ctx, s.db, snapshot); err != nil {
		s.log.Warn("snapshot write failed",
			zap.String("project_id", projectID.String()),
			zap.String("change_type", string(changeType)),
			zap.Error(err),
		)
		s.metrics.IncSnapshotWrite(string(changeType), "failed")
		return 0, err
	}

	s.metrics.IncSnapshotWrite(string(changeType), "success")
	return snapshot.ID, nil
}

func (s *Service) GetHistory(ctx context.Context, projectID snowflake.ID, limit int) []sequencedomain.Snapshot {
	if limit <= 0 {
		limit = sequencedomain.DefaultHistoryLimit
	}
	if limit > sequencedomain.MaxHistoryLimit {
		limit = sequencedomain.MaxHistoryLimit
	}
	snapshots, err := s.repo.ListRecent(ctx, s.db, projectID, limit)
	if err != nil {
		// History is a read surface the dashboard keeps rendering; an
		// unavailable store degrades to an empty timeline.
		s.log.Warn("history read failed",
			zap.String("project_id", projectID.String()),
			zap.Error(err),
		)
		return []sequencedomain.Snapshot{}
	}
	if snapshots == nil {
		snapshots = []sequencedomain.Snapshot{}
	}
	return snapshots
}

func (s *Service) GetSnapshot(ctx context.Context, projectID, snapshotID snowflake.ID) (*sequencedomain.Snapshot, error) {
	snapshot, err := s.repo.FindByID(ctx, s.db, projectID, snapshotID)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, sequencedomain.ErrSnapshotNotFound
	}
	return snapshot, nil
}

func (s *Service) RestoreSnapshot(ctx context.Context, projectID, snapshotID snowflake.ID, actor auditcontext.Actor) (bool, error) {
	snapshot, err := s.repo.FindByID(ctx, s.db, projectID, snapshotID)
	if err != nil {
		s.metrics.IncRestore("failed")
		return false, err
	}
	if snapshot == nil {
		s.metrics.IncRestore("not_found")
		return false, nil
	}

	project, err := s.projectRepo.FindByID(ctx, s.db, projectID)
	if err != nil {
		s.metrics.IncRestore("failed")
		return false, err
	}
	if project == nil {
		s.metrics.IncRestore("failed")
		return false, sequencedomain.ErrProjectNotFound
	}

	sequences := make(map[snowflake.ID]int)
	for _, entry := range snapshot.EntryList() {
		sequences[entry.ModuleID] = entry.BuildSequence
	}

	// Partial overlay: modules missing from the snapshot keep their
	// current sequence.
	modules := project.ModuleList()
	for i := range modules {
		if seq, ok := sequences[modules[i].ID]; ok {
			modules[i].BuildSequence = seq
		}
	}

	if err := s.projectRepo.UpdateModules(ctx, s.db, projectID, modules, project.Version); err != nil {
		s.metrics.IncRestore("failed")
		return false, err
	}

	description := fmt.Sprintf("Restored from snapshot taken at %s",
		snapshot.CreatedAt.UTC().Format(time.RFC3339))
	if _, err := s.SaveSnapshot(ctx, projectID, modules, sequencedomain.ChangeRestore, description, actor); err != nil {
		// The restore already applied; only the audit entry is missing.
		s.log.Warn("restore snapshot audit write failed",
			zap.String("project_id", projectID.String()),
			zap.Error(err),
		)
	}

	s.metrics.IncRestore("success")
	return true, nil
}
