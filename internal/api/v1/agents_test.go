package v1_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitkit/missionctl/internal/agent"
	v1 "github.com/orbitkit/missionctl/internal/api/v1"
)

func TestListAgents(t *testing.T) {
	t.Parallel()

	t.Run("full_roster", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		pool := agent.NewPool()
		v1.RegisterAgentRoutes(api, pool)

		resp := api.Get("/agents")

		require.Equal(t, http.StatusOK, resp.Code)

		var body []agent.Status
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body, 6)

		for _, a := range body {
			assert.Equal(t, "available", a.Status)
			assert.Empty(t, a.ProjectID)
		}
		assert.Equal(t, "architect", body[0].ID)
		assert.Equal(t, "ux-expert", body[5].ID)
	})

	t.Run("reflects_deployment", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		pool := agent.NewPool()
		require.NoError(t, pool.Deploy("proj-7", []string{"pm", "dev"}, "build"))
		v1.RegisterAgentRoutes(api, pool)

		resp := api.Get("/agents")

		require.Equal(t, http.StatusOK, resp.Code)

		var body []agent.Status
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

		deployed := 0
		for _, a := range body {
			if a.Status == "deployed" {
				deployed++
				assert.Equal(t, "proj-7", a.ProjectID)
			}
		}
		assert.Equal(t, 2, deployed)
	})
}
