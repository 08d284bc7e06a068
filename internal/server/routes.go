package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/orbitkit/missionctl/internal/agent"
	v1 "github.com/orbitkit/missionctl/internal/api/v1"
	"github.com/orbitkit/missionctl/internal/api/ws"
	"github.com/orbitkit/missionctl/internal/domain"
	"github.com/orbitkit/missionctl/internal/store/postgres"
	"github.com/orbitkit/missionctl/internal/workflow"
)

func registerAPIRoutes(api huma.API, store *postgres.Store, registry *ws.Registry, runner *workflow.Runner, pool *agent.Pool, info *v1.SystemInfo) {
	v1.RegisterProjectRoutes(api, store, registry)
	v1.RegisterWorkflowRoutes(api, runner)
	v1.RegisterCatalogRoutes(api, workflow.DefaultDefinitions(), domain.DefaultTemplates())
	v1.RegisterAgentRoutes(api, pool)
	v1.RegisterSystemRoutes(api, info)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/", hub.ServeRealtime)
}
