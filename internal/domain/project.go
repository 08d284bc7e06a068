package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type ProjectStatus string

const (
	ProjectStatusCreated  ProjectStatus = "created"
	ProjectStatusRunning  ProjectStatus = "running"
	ProjectStatusComplete ProjectStatus = "completed"
	ProjectStatusError    ProjectStatus = "error"
)

type Project struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Type        string            `json:"type"` // e.g. "greenfield-fullstack"
	TechStack   map[string]string `json:"tech_stack"`
	AgentTeam   string            `json:"agent_team"`
	Objectives  []string          `json:"objectives"`
	Status      ProjectStatus     `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewProject creates a Project with validated required fields and defaults.
func NewProject(name, description, projectType, agentTeam string, techStack map[string]string, objectives []string) (*Project, error) {
	if name == "" {
		return nil, errors.New("project: name is required")
	}
	if projectType == "" {
		projectType = "greenfield-fullstack"
	}
	if agentTeam == "" {
		agentTeam = "team-fullstack"
	}
	if techStack == nil {
		techStack = map[string]string{}
	}
	now := time.Now()
	return &Project{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		Type:        projectType,
		TechStack:   techStack,
		AgentTeam:   agentTeam,
		Objectives:  objectives,
		Status:      ProjectStatusCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

type ProjectRepository interface {
	Create(ctx context.Context, p *Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*Project, error)
	List(ctx context.Context) ([]*Project, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status ProjectStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}
