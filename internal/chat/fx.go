package chat

import (
	"github.com/smallbiznis/vendorscope/internal/chat/client"
	"github.com/smallbiznis/vendorscope/internal/chat/repository"
	"github.com/smallbiznis/vendorscope/internal/chat/service"
	"go.uber.org/fx"
)

var Module = fx.Module("chat.service",
	fx.Provide(repository.Provide),
	fx.Provide(client.Provide),
	fx.Provide(service.NewService),
)
