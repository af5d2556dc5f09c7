package crm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dwizi/bizops-assistant/internal/agent/tools"
	"github.com/dwizi/bizops-assistant/internal/agenterr"
	"github.com/dwizi/bizops-assistant/internal/authz"
	"github.com/dwizi/bizops-assistant/internal/dates"
	"github.com/dwizi/bizops-assistant/internal/notify"
	"github.com/dwizi/bizops-assistant/internal/resolve"
	"github.com/dwizi/bizops-assistant/internal/store"
)

// CreateProjectTool opens a project, reusing an open project with the same
// name for the same client.
type CreateProjectTool struct {
	svc *Service
}

func (t *CreateProjectTool) Name() string { return "createProject" }

func (t *CreateProjectTool) Description() string {
	return "Creates a project for a client. The client is matched by name or created; the director is matched by id, email or name. Dates accept expressions like 'mañana', '15/11/2026' or '3 de diciembre'."
}

func (t *CreateProjectTool) ParametersSchema() string {
	return `{
		"type": "object",
		"properties": {
			"name": {"type": "string", "minLength": 2},
			"clientId": {"type": "string"},
			"clientName": {"type": "string"},
			"directorId": {"type": "string"},
			"directorEmail": {"type": "string", "format": "email"},
			"directorName": {"type": "string"},
			"budget": {"type": "number", "minimum": 0},
			"serviceType": {"type": "string"},
			"status": {"type": "string", "enum": ["PLANNING", "ACTIVE", "REVIEW", "ON_HOLD"]},
			"startDate": {"type": "string"},
			"endDate": {"type": "string"}
		},
		"required": ["name"],
		"additionalProperties": false
	}`
}

func (t *CreateProjectTool) Direction() tools.Direction { return tools.DirectionWrite }

func (t *CreateProjectTool) Execute(ctx context.Context, actor authz.Actor, args json.RawMessage) (any, error) {
	var input struct {
		Name          string  `json:"name"`
		ClientID      string  `json:"clientId"`
		ClientName    string  `json:"clientName"`
		DirectorID    string  `json:"directorId"`
		DirectorEmail string  `json:"directorEmail"`
		DirectorName  string  `json:"directorName"`
		Budget        float64 `json:"budget"`
		ServiceType   string  `json:"serviceType"`
		Status        string  `json:"status"`
		StartDate     string  `json:"startDate"`
		EndDate       string  `json:"endDate"`
	}
	if err := strictDecodeArgs(args, &input); err != nil {
		return nil, fmt.Errorf("%w: %v", agenterr.ErrInvalidArgs, err)
	}

	client, err := t.svc.resolver.Client(ctx, resolve.ClientInput{ID: input.ClientID, Name: input.ClientName})
	if err != nil {
		return nil, err
	}
	director, err := t.svc.resolver.Director(ctx, resolve.UserInput{
		ID:    input.DirectorID,
		Email: input.DirectorEmail,
		Name:  input.DirectorName,
	}, actor)
	if err != nil {
		return nil, err
	}
	startDate := t.svc.parseDate("startDate", input.StartDate)
	endDate := t.svc.parseDate("endDate", input.EndDate)

	ref, err := t.svc.resolver.EnsureProject(ctx, store.CreateProjectInput{
		Name:        input.Name,
		ClientID:    client.ID,
		DirectorID:  director.ID,
		Budget:      input.Budget,
		ServiceType: input.ServiceType,
		Status:      input.Status,
		StartDate:   startDate,
		EndDate:     endDate,
	})
	if err != nil {
		return nil, err
	}
	project, err := t.svc.store.GetProject(ctx, ref.ID)
	if err != nil {
		return nil, err
	}
	t.svc.logger.Info("project resolved", "project_id", project.ID, "created", ref.Created, "user_id", actor.ID)

	return map[string]any{
		"success": true,
		"created": ref.Created,
		"project": map[string]any{
			"id":        project.ID,
			"name":      project.Name,
			"status":    project.Status,
			"client":    project.ClientName,
			"director":  project.DirectorName,
			"budget":    project.Budget,
			"startDate": dates.Format(project.StartDate),
			"endDate":   dates.Format(project.EndDate),
		},
		"url":      projectURL(project.ID),
		"client":   refPayload(client),
		"director": refPayload(director),
	}, nil
}

// CreateTaskTool adds a task to an open project.
type CreateTaskTool struct {
	svc *Service
}

func (t *CreateTaskTool) Name() string { return "createTask" }

func (t *CreateTaskTool) Description() string {
	return "Creates a task inside a project. Give projectId or projectName (Debes indicar projectId o projectName). Without an assignee the task is assigned to the requesting user."
}

func (t *CreateTaskTool) ParametersSchema() string {
	return `{
		"type": "object",
		"properties": {
			"title": {"type": "string", "minLength": 2},
			"description": {"type": "string"},
			"projectId": {"type": "string", "minLength": 1},
			"projectName": {"type": "string", "minLength": 1},
			"assigneeId": {"type": "string"},
			"assigneeEmail": {"type": "string", "format": "email"},
			"assigneeName": {"type": "string"},
			"priority": {"type": "string", "enum": ["HIGH", "MEDIUM", "LOW"]},
			"dueDate": {"type": "string"},
			"startDate": {"type": "string"}
		},
		"required": ["title"],
		"anyOf": [{"required": ["projectId"]}, {"required": ["projectName"]}],
		"additionalProperties": false
	}`
}

func (t *CreateTaskTool) Direction() tools.Direction { return tools.DirectionWrite }

func (t *CreateTaskTool) Execute(ctx context.Context, actor authz.Actor, args json.RawMessage) (any, error) {
	var input struct {
		Title         string `json:"title"`
		Description   string `json:"description"`
		ProjectID     string `json:"projectId"`
		ProjectName   string `json:"projectName"`
		AssigneeID    string `json:"assigneeId"`
		AssigneeEmail string `json:"assigneeEmail"`
		AssigneeName  string `json:"assigneeName"`
		Priority      string `json:"priority"`
		DueDate       string `json:"dueDate"`
		StartDate     string `json:"startDate"`
	}
	if err := strictDecodeArgs(args, &input); err != nil {
		return nil, fmt.Errorf("%w: %v", agenterr.ErrInvalidArgs, err)
	}
	if trimmed(input.ProjectID) == "" && trimmed(input.ProjectName) == "" {
		return nil, fmt.Errorf("%w: Debes indicar projectId o projectName", agenterr.ErrInvalidArgs)
	}

	projectRef, err := t.svc.resolver.Project(ctx, resolve.ProjectInput{ID: input.ProjectID, Name: input.ProjectName})
	if err != nil {
		return nil, err
	}
	project, err := t.svc.store.GetProject(ctx, projectRef.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: project %s", agenterr.ErrNotFound, projectRef.ID)
	}
	if err != nil {
		return nil, err
	}
	assignee, err := t.svc.resolver.Assignee(ctx, resolve.UserInput{
		ID:    input.AssigneeID,
		Email: input.AssigneeEmail,
		Name:  input.AssigneeName,
	}, actor)
	if err != nil {
		return nil, err
	}

	created, err := t.svc.store.CreateTask(ctx, store.CreateTaskInput{
		ProjectID:   project.ID,
		Title:       input.Title,
		Description: input.Description,
		AssigneeID:  assignee.ID,
		CreatorID:   actor.ID,
		Priority:    input.Priority,
		StartDate:   t.svc.parseDate("startDate", input.StartDate),
		DueDate:     t.svc.parseDate("dueDate", input.DueDate),
	})
	if err != nil {
		return nil, err
	}
	task, err := t.svc.store.GetTask(ctx, created.ID)
	if err != nil {
		return nil, err
	}

	notified := false
	if task.AssigneeID != "" && task.AssigneeID != actor.ID {
		notified = t.svc.notifier.NotifyUser(ctx, task.AssigneeID, notify.Message{
			Type:    notify.TypeTaskAssigned,
			Message: fmt.Sprintf("Nueva tarea asignada: %s (%s)", task.Title, project.Name),
			Link:    projectURL(project.ID),
		})
	}

	return map[string]any{
		"success": true,
		"task": map[string]any{
			"id":          task.ID,
			"title":       task.Title,
			"priority":    task.Priority,
			"status":      task.Status,
			"projectId":   task.ProjectID,
			"projectName": task.ProjectName,
			"assigneeId":  task.AssigneeID,
			"assignee":    task.AssigneeName,
			"startDate":   dates.Format(task.StartDate),
			"dueDate":     dates.Format(task.DueDate),
		},
		"projectUrl":       projectURL(project.ID),
		"assigneeFallback": assignee.Fallback,
		"notified":         notified,
	}, nil
}

// parseDate normalizes a loose date expression to a UTC calendar date.
// Unrecognized text is logged and stored as no date.
func (s *Service) parseDate(field, text string) time.Time {
	if trimmed(text) == "" {
		return time.Time{}
	}
	parsed, ok := dates.Parse(text, s.today())
	if !ok {
		s.logger.Warn("unrecognized date ignored", "field", field, "value", text)
		return time.Time{}
	}
	year, month, day := parsed.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
