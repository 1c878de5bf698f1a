package audit

import (
	"github.com/modabuild/fabline/internal/audit/repository"
	"github.com/modabuild/fabline/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
