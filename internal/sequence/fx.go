package sequence

import (
	"github.com/modabuild/fabline/internal/sequence/repository"
	"github.com/modabuild/fabline/internal/sequence/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sequence.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
