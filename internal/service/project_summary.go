package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/rcliao/timeline/internal/domain"
	"github.com/rcliao/timeline/internal/schedule"
	"github.com/rcliao/timeline/internal/timeline"
)

type ProjectSummaryService struct {
	simulations *SimulationService
}

func NewProjectSummaryService(simulations *SimulationService) *ProjectSummaryService {
	return &ProjectSummaryService{
		simulations: simulations,
	}
}

type ProjectSummary struct {
	Project     *domain.Project  `json:"project"`
	TaskSummary *TaskSummary     `json:"taskSummary"`
	Schedule    *ScheduleSummary `json:"schedule"`
	Insights    *ProjectInsights `json:"insights"`
	GeneratedAt time.Time        `json:"generatedAt"`
}

type TaskSummary struct {
	Total      int                       `json:"total"`
	ByStatus   map[domain.TaskStatus]int `json:"byStatus"`
	ByCategory map[string]int            `json:"byCategory"`
	Recent     []*domain.Task            `json:"recent"`
	Completed  []*domain.Task            `json:"completed"`
}

type ScheduleSummary struct {
	TotalDuration int                   `json:"totalDuration"`
	CriticalPath  []string              `json:"criticalPath"`
	Unresolved    []schedule.Unresolved `json:"unresolved"`
	CurrentDay    float64               `json:"currentDay"`
	State         timeline.State        `json:"state"`
	Overall       float64               `json:"overall"`
	// Finished counts resolved tasks whose progress reached 1 at the current day
	Finished int `json:"finished"`
	// Behind lists tasks the clock has reached that are still marked not started
	Behind []string `json:"behind"`
}

type ProjectInsights struct {
	Recommendations []string `json:"recommendations"`
}

func (pss *ProjectSummaryService) GenerateProjectSummary(projectID string) (*ProjectSummary, error) {
	pb, err := pss.simulations.Load(projectID)
	if err != nil {
		return nil, err
	}
	frame := pb.Frame()

	scheduleSummary := &ScheduleSummary{
		TotalDuration: frame.Total,
		CriticalPath:  pb.Timeline.Schedule.CriticalPath(),
		Unresolved:    pb.Timeline.Schedule.Unresolved(),
		CurrentDay:    frame.Day,
		State:         frame.State,
		Overall:       frame.Overall,
	}
	tasks := pb.Timeline.Tasks
	for i, tf := range frame.Tasks {
		if tf.Resolved && tf.Progress >= 1 {
			scheduleSummary.Finished++
		}
		if tf.Progress > 0 && tasks[i].Status == domain.StatusNotStarted {
			scheduleSummary.Behind = append(scheduleSummary.Behind, tf.ID)
		}
	}

	return &ProjectSummary{
		Project:     pb.Timeline.Project,
		TaskSummary: pss.generateTaskSummary(tasks),
		Schedule:    scheduleSummary,
		Insights:    pss.generateInsights(tasks, scheduleSummary),
		GeneratedAt: time.Now(),
	}, nil
}

func (pss *ProjectSummaryService) generateTaskSummary(tasks []*domain.Task) *TaskSummary {
	summary := &TaskSummary{
		Total:      len(tasks),
		ByStatus:   make(map[domain.TaskStatus]int),
		ByCategory: make(map[string]int),
		Recent:     make([]*domain.Task, 0),
		Completed:  make([]*domain.Task, 0),
	}

	// Sort tasks by creation date for recent analysis
	sortedTasks := make([]*domain.Task, len(tasks))
	copy(sortedTasks, tasks)
	sort.SliceStable(sortedTasks, func(i, j int) bool {
		return sortedTasks[i].CreatedAt.After(sortedTasks[j].CreatedAt)
	})

	for _, task := range tasks {
		summary.ByStatus[task.Status]++

		category := string(task.Category)
		if category == "" {
			category = "Uncategorized"
		}
		summary.ByCategory[category]++

		if task.Status == domain.StatusCompleted {
			summary.Completed = append(summary.Completed, task)
		}
	}

	// Get recent tasks (last 5)
	recentCount := 5
	if len(sortedTasks) < recentCount {
		recentCount = len(sortedTasks)
	}
	summary.Recent = sortedTasks[:recentCount]

	return summary
}

func (pss *ProjectSummaryService) generateInsights(tasks []*domain.Task, sched *ScheduleSummary) *ProjectInsights {
	insights := &ProjectInsights{
		Recommendations: make([]string, 0),
	}

	if len(tasks) == 0 {
		insights.Recommendations = append(insights.Recommendations,
			"Add tasks or apply the renovation template to start planning")
		return insights
	}

	if n := len(sched.Unresolved); n > 0 {
		insights.Recommendations = append(insights.Recommendations,
			fmt.Sprintf("%d task(s) have no start day; fix their dependencies", n))
	}

	if len(sched.CriticalPath) > 0 {
		insights.Recommendations = append(insights.Recommendations,
			fmt.Sprintf("Critical path has %d task(s); any delay there moves the end date (day %d)",
				len(sched.CriticalPath), sched.TotalDuration))
	}

	if len(sched.Behind) > 0 {
		insights.Recommendations = append(insights.Recommendations,
			fmt.Sprintf("%d task(s) should have started by day %.1f but are still marked not started",
				len(sched.Behind), sched.CurrentDay))
	}

	return insights
}
