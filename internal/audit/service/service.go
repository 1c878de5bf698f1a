// Package service records audit log entries for write endpoints.
package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/modabuild/fabline/internal/audit/domain"
	"github.com/modabuild/fabline/internal/auditcontext"
	"github.com/modabuild/fabline/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p ServiceParam) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Record appends one audit row. Actor, IP and user agent come from the
// request context. Failures are logged, never propagated: audit writes
// must not fail the action they describe.
func (s *Service) Record(ctx context.Context, action, targetType, targetID string, metadata map[string]any) {
	if s == nil {
		return
	}

	actor := auditcontext.ActorFromContext(ctx)
	entry := &domain.AuditLog{
		ID:         s.genID.Generate(),
		Action:     action,
		TargetType: targetType,
		Metadata:   datatypes.JSONMap(metadata),
		CreatedAt:  s.clock.Now(),
	}
	if actor.ID != "" {
		entry.ActorID = &actor.ID
	}
	if actor.Name != "" {
		entry.ActorName = &actor.Name
	}
	if targetID != "" {
		entry.TargetID = &targetID
	}
	if ip := auditcontext.IPAddressFromContext(ctx); ip != "" {
		entry.IPAddress = &ip
	}
	if ua := auditcontext.UserAgentFromContext(ctx); ua != "" {
		entry.UserAgent = &ua
	}
	if entry.Metadata == nil {
		entry.Metadata = datatypes.JSONMap{}
	}

	if err := s.repo.Insert(ctx, s.db, entry); err != nil {
		s.log.Warn("audit write failed",
			zap.String("action", action),
			zap.Error(err),
		)
	}
}
