package moduleimport

import (
	"github.com/modabuild/fabline/internal/moduleimport/service"
	"go.uber.org/fx"
)

var Module = fx.Module("moduleimport.service",
	fx.Provide(service.NewService),
)
