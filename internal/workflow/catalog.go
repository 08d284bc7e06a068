package workflow

// StepSpec pairs a workflow step with the agent that owns it.
type StepSpec struct {
	Name  string
	Agent string
}

// DefaultCatalog is the fixed mission sequence the dashboard visualizes.
// Step definitions for real runs come from the external agent ecosystem;
// this catalog backs the simulated source and the initial view projection.
func DefaultCatalog() []StepSpec {
	return []StepSpec{
		{Name: "planning", Agent: "pm"},
		{Name: "architecture", Agent: "architect"},
		{Name: "development", Agent: "dev"},
		{Name: "quality-assurance", Agent: "qa"},
		{Name: "ux-review", Agent: "ux-expert"},
		{Name: "acceptance", Agent: "po"},
	}
}

// Definition describes one selectable workflow preset.
type Definition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Steps       int    `json:"steps"`
}

// DefaultDefinitions lists the workflow presets a project can be created
// with. Each preset walks the same step sequence; the preset determines
// which parts of the stack the agents focus on.
func DefaultDefinitions() []Definition {
	steps := len(DefaultCatalog())
	return []Definition{
		{ID: "greenfield-fullstack", Name: "Greenfield Full-Stack", Type: "new_project", Description: "Build a new application across the whole stack", Steps: steps},
		{ID: "brownfield-fullstack", Name: "Brownfield Full-Stack", Type: "existing_project", Description: "Extend an existing application across the whole stack", Steps: steps},
		{ID: "greenfield-ui", Name: "Greenfield UI", Type: "frontend", Description: "Build a new frontend", Steps: steps},
		{ID: "brownfield-ui", Name: "Brownfield UI", Type: "frontend", Description: "Extend an existing frontend", Steps: steps},
	}
}
