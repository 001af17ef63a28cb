package mcp

import "github.com/rcliao/timeline/internal/domain"

// Tool maps an MCP tool name onto a direct method.
type Tool struct {
	Name        string
	Method      string
	Description string
	InputSchema map[string]interface{}
}

func object(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func str(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func integer(description string) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": description}
}

func stringList(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string"},
		"description": description,
	}
}

func categoryNames() []string {
	names := make([]string, len(domain.Categories))
	for i, c := range domain.Categories {
		names[i] = string(c)
	}
	return names
}

var (
	projectIDProp = str("Project ID, ID prefix or name (optional if a current project is set)")
	taskProp      = str("Task ID (task-3), number (3) or name")
	statusProp    = map[string]interface{}{
		"type":        "string",
		"enum":        []string{string(domain.StatusNotStarted), string(domain.StatusInProgress), string(domain.StatusCompleted)},
		"description": "Task status",
	}
	categoryProp = map[string]interface{}{
		"type":        "string",
		"enum":        categoryNames(),
		"description": "Trade the task belongs to",
	}
)

var tools = []Tool{
	// Project tools
	{
		Name:        "timeline_project_create",
		Method:      "timeline.project.create",
		Description: "Create a new project timeline, optionally seeded from a template",
		InputSchema: object(map[string]interface{}{
			"name":        str("Timeline title"),
			"description": str("Project description"),
			"template":    map[string]interface{}{"type": "string", "enum": domain.TemplateNames(), "description": "Seed tasks from a template"},
		}, "name"),
	},
	{
		Name:        "timeline_project_list",
		Method:      "timeline.project.list",
		Description: "List all projects",
		InputSchema: object(map[string]interface{}{}),
	},
	{
		Name:        "timeline_project_current",
		Method:      "timeline.project.current",
		Description: "Get the current project",
		InputSchema: object(map[string]interface{}{}),
	},
	{
		Name:        "timeline_project_set_current",
		Method:      "timeline.project.set_current",
		Description: "Set the current project",
		InputSchema: object(map[string]interface{}{
			"id": str("Project ID, ID prefix or name"),
		}, "id"),
	},
	{
		Name:        "timeline_project_rename",
		Method:      "timeline.project.rename",
		Description: "Change a project's timeline title",
		InputSchema: object(map[string]interface{}{
			"projectId": projectIDProp,
			"name":      str("New title"),
		}, "name"),
	},

	// Task tools
	{
		Name:        "timeline_task_add",
		Method:      "timeline.task.add",
		Description: "Add a task. It starts when all of its dependencies have finished.",
		InputSchema: object(map[string]interface{}{
			"projectId":    projectIDProp,
			"name":         str("Task name"),
			"duration":     integer("Duration in whole days, at least 1"),
			"dependencies": stringList("IDs of tasks that must finish first"),
			"category":     categoryProp,
			"status":       statusProp,
		}, "name", "duration"),
	},
	{
		Name:        "timeline_task_list",
		Method:      "timeline.task.list",
		Description: "List tasks in display order",
		InputSchema: object(map[string]interface{}{
			"projectId":  projectIDProp,
			"status":     statusProp,
			"category":   categoryProp,
			"byCategory": map[string]interface{}{"type": "boolean", "description": "Group the tasks by category"},
		}),
	},
	{
		Name:        "timeline_task_get",
		Method:      "timeline.task.get",
		Description: "Get one task",
		InputSchema: object(map[string]interface{}{
			"projectId": projectIDProp,
			"task":      taskProp,
		}, "task"),
	},
	{
		Name:        "timeline_task_update",
		Method:      "timeline.task.update",
		Description: "Edit a task. Edits that would create a dependency cycle are rejected.",
		InputSchema: object(map[string]interface{}{
			"projectId":    projectIDProp,
			"task":         taskProp,
			"name":         str("New name"),
			"duration":     integer("New duration in days"),
			"dependencies": stringList("Replacement dependency IDs"),
			"category":     categoryProp,
			"status":       statusProp,
		}, "task"),
	},
	{
		Name:        "timeline_task_remove",
		Method:      "timeline.task.remove",
		Description: "Remove a task; dependents are handled by the configured removal policy",
		InputSchema: object(map[string]interface{}{
			"projectId": projectIDProp,
			"task":      taskProp,
		}, "task"),
	},
	{
		Name:        "timeline_task_move",
		Method:      "timeline.task.move",
		Description: "Move a task to a position in display order",
		InputSchema: object(map[string]interface{}{
			"projectId": projectIDProp,
			"task":      taskProp,
			"index":     integer("Zero-based target position"),
		}, "task", "index"),
	},
	{
		Name:        "timeline_task_search",
		Method:      "timeline.task.search",
		Description: "Search tasks by name, ID or category",
		InputSchema: object(map[string]interface{}{
			"projectId": projectIDProp,
			"query":     str("Search query"),
			"limit":     integer("Limit results"),
		}, "query"),
	},
	{
		Name:        "timeline_task_apply_template",
		Method:      "timeline.task.apply_template",
		Description: "Append a template's tasks to a project",
		InputSchema: object(map[string]interface{}{
			"projectId": projectIDProp,
			"template":  map[string]interface{}{"type": "string", "enum": domain.TemplateNames()},
		}, "template"),
	},

	// Schedule and simulation tools
	{
		Name:        "timeline_schedule",
		Method:      "timeline.schedule",
		Description: "Project the tasks onto days: start, finish, slack, total duration and critical path",
		InputSchema: object(map[string]interface{}{"projectId": projectIDProp}),
	},
	{
		Name:        "timeline_sim_status",
		Method:      "timeline.sim.status",
		Description: "Show the simulated current day and per-task progress",
		InputSchema: object(map[string]interface{}{"projectId": projectIDProp}),
	},
	{
		Name:        "timeline_sim_start",
		Method:      "timeline.sim.start",
		Description: "Start or resume the timeline simulation",
		InputSchema: object(map[string]interface{}{"projectId": projectIDProp}),
	},
	{
		Name:        "timeline_sim_stop",
		Method:      "timeline.sim.stop",
		Description: "Pause the timeline simulation",
		InputSchema: object(map[string]interface{}{"projectId": projectIDProp}),
	},
	{
		Name:        "timeline_sim_reset",
		Method:      "timeline.sim.reset",
		Description: "Stop the simulation and rewind to day 0",
		InputSchema: object(map[string]interface{}{"projectId": projectIDProp}),
	},
	{
		Name:        "timeline_sim_seek",
		Method:      "timeline.sim.seek",
		Description: "Move the simulated day",
		InputSchema: object(map[string]interface{}{
			"projectId": projectIDProp,
			"day":       map[string]interface{}{"type": "number", "description": "Target day, clamped to the project length"},
		}, "day"),
	},
	{
		Name:        "timeline_summary",
		Method:      "timeline.summary",
		Description: "Summarize a project: counts, schedule, progress and recommendations",
		InputSchema: object(map[string]interface{}{"projectId": projectIDProp}),
	},
}

func lookupTool(name string) (Tool, bool) {
	for _, t := range tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}
