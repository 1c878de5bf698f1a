package project

import (
	"github.com/modabuild/fabline/internal/project/repository"
	"github.com/modabuild/fabline/internal/project/service"
	"go.uber.org/fx"
)

var Module = fx.Module("project.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
