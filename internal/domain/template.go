package domain

// Template is a document preset the agents fill in while a workflow runs.
type Template struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// DefaultTemplates lists the document presets available to new projects.
func DefaultTemplates() []Template {
	return []Template{
		{ID: "prd-tmpl", Name: "Product Requirements Document", Category: "requirements", Description: "Captures goals, scope, and success criteria"},
		{ID: "architecture-tmpl", Name: "Architecture Overview", Category: "architecture", Description: "System components, boundaries, and technology choices"},
		{ID: "story-tmpl", Name: "User Story", Category: "user_stories", Description: "One slice of user-facing behavior with acceptance criteria"},
		{ID: "qa-gate-tmpl", Name: "QA Gate Checklist", Category: "quality", Description: "Release readiness checks per workflow step"},
	}
}
