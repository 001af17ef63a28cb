package mcp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rcliao/timeline/internal/domain"
	"github.com/rcliao/timeline/internal/search"
	"github.com/rcliao/timeline/internal/service"
	"github.com/rcliao/timeline/internal/timeline"
)

// FormatMarkdown renders known results for tool output. The second return is
// false for results that are better sent as JSON.
func FormatMarkdown(result interface{}) (string, bool) {
	switch r := result.(type) {
	case []*domain.Project:
		return FormatProjectsAsMarkdown(r), true
	case []*domain.Task:
		return FormatTasksAsMarkdown(r), true
	case *domain.Task:
		return FormatTaskAsMarkdown(r), true
	case []domain.CategoryGroup:
		return FormatCategoryGroupsAsMarkdown(r), true
	case []*search.Result:
		return FormatSearchResultsAsMarkdown(r), true
	case service.TimelineView:
		return FormatScheduleAsMarkdown(r), true
	case timeline.Frame:
		return FormatFrameAsMarkdown(r), true
	case *service.ProjectSummary:
		return FormatSummaryAsMarkdown(r), true
	}
	return "", false
}

// FormatTasksAsMarkdown formats a list of tasks as markdown
func FormatTasksAsMarkdown(tasks []*domain.Task) string {
	if len(tasks) == 0 {
		return "📋 **No tasks found**\n\nAdd one with `timeline.task.add` or apply the `renovation` template"
	}

	var sb strings.Builder
	sb.WriteString("# 📋 Tasks\n\n")
	for _, task := range tasks {
		sb.WriteString(formatSingleTask(task))
	}
	return strings.TrimSpace(sb.String())
}

// FormatTaskAsMarkdown formats a single task as markdown
func FormatTaskAsMarkdown(task *domain.Task) string {
	var sb strings.Builder
	sb.WriteString("# 📋 Task Details\n\n")
	sb.WriteString(formatSingleTask(task))

	if len(task.Dependencies) > 0 {
		sb.WriteString(fmt.Sprintf("\n### After\n- %s\n", strings.Join(task.Dependencies, "\n- ")))
	}
	sb.WriteString(fmt.Sprintf("\n**Created:** %s\n", task.CreatedAt.Format("Jan 2, 2006")))
	return strings.TrimSpace(sb.String())
}

func formatSingleTask(task *domain.Task) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("- %s **%s** `%s` %s", statusCheckbox(task.Status), task.Name, task.ID, formatDays(task.Duration)))
	if task.Category != "" {
		sb.WriteString(fmt.Sprintf(" 🏷️ %s", task.Category))
	}
	if len(task.Dependencies) > 0 {
		sb.WriteString(fmt.Sprintf(" (after %s)", strings.Join(task.Dependencies, ", ")))
	}
	sb.WriteString("\n")
	return sb.String()
}

func statusCheckbox(status domain.TaskStatus) string {
	switch status {
	case domain.StatusCompleted:
		return "[x]"
	case domain.StatusInProgress:
		return "[>]"
	default:
		return "[ ]"
	}
}

func formatDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

// FormatCategoryGroupsAsMarkdown formats tasks grouped by category as markdown
func FormatCategoryGroupsAsMarkdown(groups []domain.CategoryGroup) string {
	if len(groups) == 0 {
		return "📋 **No tasks found**"
	}

	var sb strings.Builder
	sb.WriteString("# 📋 Tasks by Category\n\n")
	for _, g := range groups {
		name := string(g.Category)
		if name == "" {
			name = "Uncategorized"
		}
		sb.WriteString(fmt.Sprintf("## %s (%d)\n\n", name, len(g.Tasks)))
		for _, task := range g.Tasks {
			sb.WriteString(formatSingleTask(task))
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

// FormatSearchResultsAsMarkdown formats ranked search hits as markdown
func FormatSearchResultsAsMarkdown(results []*search.Result) string {
	if len(results) == 0 {
		return "🔍 **No matching tasks**"
	}

	var sb strings.Builder
	sb.WriteString("# 🔍 Search Results\n\n")
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("%d. **%s** `%s` (%s, score %.0f)\n", i+1, r.Task.Name, r.Task.ID, r.MatchType, r.Score))
		if r.Snippet != "" {
			sb.WriteString(fmt.Sprintf("   %s\n", r.Snippet))
		}
	}
	return strings.TrimSpace(sb.String())
}

// FormatProjectsAsMarkdown formats a list of projects as markdown
func FormatProjectsAsMarkdown(projects []*domain.Project) string {
	if len(projects) == 0 {
		return "📁 **No projects found**\n\nCreate a new project with `timeline.project.create`"
	}

	var sb strings.Builder
	sb.WriteString("# 📁 Projects\n\n")

	for i, project := range projects {
		sb.WriteString(fmt.Sprintf("## %d. %s", i+1, project.Name))
		if len(project.ID) > 8 {
			sb.WriteString(fmt.Sprintf(" `[%s]`", project.ID[:8]))
		}
		sb.WriteString("\n\n")

		if project.Description != "" {
			sb.WriteString(fmt.Sprintf("**Description:** %s\n\n", project.Description))
		}

		sb.WriteString(fmt.Sprintf("**Created:** %s\n\n", project.CreatedAt.Format("Jan 2, 2006")))
		sb.WriteString("---\n\n")
	}

	return strings.TrimSpace(sb.String())
}

// FormatScheduleAsMarkdown renders the projected schedule as a table in
// display order.
func FormatScheduleAsMarkdown(view service.TimelineView) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# 🗓️ %s\n\n", view.Project.Name))
	if len(view.Tasks) == 0 {
		sb.WriteString("No tasks yet.")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("**Total duration:** %s\n\n", formatDays(view.TotalDuration)))
	sb.WriteString("| Task | Days | Start | Finish | Slack | After |\n")
	sb.WriteString("|---|---|---|---|---|---|\n")
	for _, st := range view.Tasks {
		name := st.Name
		if st.Critical {
			name = "**" + name + "** 🔥"
		}
		sb.WriteString(fmt.Sprintf("| %s `%s` | %d | %s | %s | %s | %s |\n",
			name, st.ID, st.Duration, optionalDay(st.Start), optionalDay(st.Finish), optionalDay(st.Slack),
			strings.Join(st.Dependencies, ", ")))
	}

	if len(view.CriticalPath) > 0 {
		sb.WriteString(fmt.Sprintf("\n**Critical path:** %s\n", strings.Join(view.CriticalPath, " → ")))
	}
	if len(view.Unresolved) > 0 {
		sb.WriteString("\n### ⚠️ Unresolved\n")
		for _, u := range view.Unresolved {
			sb.WriteString(fmt.Sprintf("- %s\n", u.Err()))
		}
	}
	return strings.TrimSpace(sb.String())
}

func optionalDay(d *int) string {
	if d == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *d)
}

// FormatFrameAsMarkdown renders the simulated day and per-task progress.
func FormatFrameAsMarkdown(frame timeline.Frame) string {
	var sb strings.Builder
	icon := "⏸️"
	if frame.State == timeline.Running {
		icon = "▶️"
	}
	sb.WriteString(fmt.Sprintf("# %s Day %.1f of %d\n\n", icon, frame.Day, frame.Total))
	sb.WriteString(fmt.Sprintf("**Overall:** %s %.0f%%\n\n", progressBar(frame.Overall, 20), frame.Overall*100))

	for _, tf := range frame.Tasks {
		if !tf.Resolved {
			sb.WriteString(fmt.Sprintf("- %s `%s`: unresolved\n", tf.Name, tf.ID))
			continue
		}
		sb.WriteString(fmt.Sprintf("- %s `%s` %s %.0f%%\n", tf.Name, tf.ID, progressBar(tf.Progress, 10), tf.Progress*100))
	}
	return strings.TrimSpace(sb.String())
}

func progressBar(fraction float64, width int) string {
	filled := int(fraction*float64(width) + 0.5)
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// FormatSummaryAsMarkdown formats a project summary as markdown
func FormatSummaryAsMarkdown(summary *service.ProjectSummary) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# 📊 %s\n\n", summary.Project.Name))

	ts := summary.TaskSummary
	sb.WriteString(fmt.Sprintf("**Tasks:** %d (%d completed, %d in progress, %d not started)\n",
		ts.Total,
		ts.ByStatus[domain.StatusCompleted],
		ts.ByStatus[domain.StatusInProgress],
		ts.ByStatus[domain.StatusNotStarted]))

	sched := summary.Schedule
	sb.WriteString(fmt.Sprintf("**Total duration:** %s\n", formatDays(sched.TotalDuration)))
	sb.WriteString(fmt.Sprintf("**Simulated day:** %.1f (%s), %.0f%% done, %d task(s) finished\n",
		sched.CurrentDay, sched.State, sched.Overall*100, sched.Finished))
	if len(sched.CriticalPath) > 0 {
		sb.WriteString(fmt.Sprintf("**Critical path:** %s\n", strings.Join(sched.CriticalPath, " → ")))
	}

	if len(ts.ByCategory) > 0 {
		sb.WriteString("\n### Categories\n")
		categories := make([]string, 0, len(ts.ByCategory))
		for c := range ts.ByCategory {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		for _, c := range categories {
			sb.WriteString(fmt.Sprintf("- %s: %d\n", c, ts.ByCategory[c]))
		}
	}

	if len(summary.Insights.Recommendations) > 0 {
		sb.WriteString("\n### 💡 Recommendations\n")
		for _, r := range summary.Insights.Recommendations {
			sb.WriteString(fmt.Sprintf("- %s\n", r))
		}
	}
	return strings.TrimSpace(sb.String())
}
