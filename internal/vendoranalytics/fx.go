package vendoranalytics

import (
	"github.com/smallbiznis/vendorscope/internal/vendoranalytics/repository"
	"github.com/smallbiznis/vendorscope/internal/vendoranalytics/service"
	"go.uber.org/fx"
)

var Module = fx.Module("vendoranalytics.service",
	fx.Provide(repository.ProvideGuarded),
	fx.Provide(service.NewService),
)
