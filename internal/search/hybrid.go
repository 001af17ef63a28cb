// Package search finds tasks from loose user input: an id, a bare task
// number, or part of a name or category.
package search

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rcliao/timeline/internal/domain"
)

var ErrAmbiguous = errors.New("ambiguous task reference")

type Options struct {
	ProjectID *string
	Limit     int
	Offset    int
}

type Result struct {
	Task      *domain.Task `json:"task"`
	Score     float64      `json:"score"`
	MatchType string       `json:"matchType"`
	Snippet   string       `json:"snippet"`
}

type HybridSearch struct {
	storage TaskStorage
}

type TaskStorage interface {
	ListTasks(filter domain.TaskFilter) ([]*domain.Task, error)
}

func NewHybridSearch(storage TaskStorage) *HybridSearch {
	return &HybridSearch{
		storage: storage,
	}
}

func (hs *HybridSearch) Search(query string, opts Options) ([]*Result, error) {
	filter := domain.TaskFilter{}
	if opts.ProjectID != nil {
		filter.ProjectID = opts.ProjectID
	}

	tasks, err := hs.storage.ListTasks(filter)
	if err != nil {
		return nil, err
	}

	return paginate(rank(tasks, query), opts), nil
}

// Resolve turns ref into exactly one task of the project. An exact id wins,
// then a bare number ("3" for task-3), then an exact name, then the single
// best scoring match.
func (hs *HybridSearch) Resolve(projectID, ref string) (*domain.Task, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("empty task reference: %w", domain.ErrNotFound)
	}

	tasks, err := hs.storage.ListTasks(domain.TaskFilter{ProjectID: &projectID})
	if err != nil {
		return nil, err
	}

	for _, task := range tasks {
		if task.ID == ref {
			return task, nil
		}
	}
	if n, err := strconv.Atoi(strings.TrimPrefix(ref, "#")); err == nil {
		id := fmt.Sprintf("task-%d", n)
		for _, task := range tasks {
			if task.ID == id {
				return task, nil
			}
		}
	}

	var named []*domain.Task
	for _, task := range tasks {
		if strings.EqualFold(task.Name, ref) {
			named = append(named, task)
		}
	}
	if len(named) == 1 {
		return named[0], nil
	}
	if len(named) > 1 {
		return nil, ambiguous(ref, named)
	}

	results := rank(tasks, ref)
	switch {
	case len(results) == 0:
		return nil, fmt.Errorf("task %q %w", ref, domain.ErrNotFound)
	case len(results) == 1 || results[0].Score > results[1].Score:
		return results[0].Task, nil
	}

	var tied []*domain.Task
	for _, r := range results {
		if r.Score == results[0].Score {
			tied = append(tied, r.Task)
		}
	}
	return nil, ambiguous(ref, tied)
}

func ambiguous(ref string, tasks []*domain.Task) error {
	candidates := make([]string, len(tasks))
	for i, t := range tasks {
		candidates[i] = fmt.Sprintf("%s (%s)", t.ID, t.Name)
	}
	return fmt.Errorf("%w %q matches %s", ErrAmbiguous, ref, strings.Join(candidates, ", "))
}

func rank(tasks []*domain.Task, query string) []*Result {
	queryLower := strings.ToLower(strings.TrimSpace(query))
	if queryLower == "" {
		return nil
	}
	byID := make(map[string]*domain.Task, len(tasks))
	for _, task := range tasks {
		byID[task.ID] = task
	}

	var results []*Result
	for _, task := range tasks {
		// Strategy 1: Keyword search in names and ids
		if score := keywordScore(task, queryLower); score > 0 {
			results = append(results, &Result{
				Task:      task,
				Score:     score,
				MatchType: "keyword",
				Snippet:   highlightText(task.Name, queryLower),
			})
		}

		// Strategy 2: Category search
		if task.Category != "" && strings.Contains(strings.ToLower(string(task.Category)), queryLower) {
			results = append(results, &Result{
				Task:      task,
				Score:     4.0,
				MatchType: "category",
				Snippet:   "Category: " + highlightText(string(task.Category), queryLower),
			})
		}

		// Strategy 3: Structural search through dependency names
		if score, snippet := structuralScore(task, byID, queryLower); score > 0 {
			results = append(results, &Result{
				Task:      task,
				Score:     score,
				MatchType: "structural",
				Snippet:   snippet,
			})
		}
	}

	return mergeAndRank(results)
}

func keywordScore(task *domain.Task, query string) float64 {
	score := 0.0

	nameLower := strings.ToLower(task.Name)
	if strings.Contains(nameLower, query) {
		score += 10.0
		if nameLower == query {
			score += 5.0 // Exact match bonus
		} else if strings.HasPrefix(nameLower, query) {
			score += 2.0
		}
	}

	if strings.Contains(strings.ToLower(task.ID), query) {
		score += 3.0
	}

	return score
}

func structuralScore(task *domain.Task, byID map[string]*domain.Task, query string) (float64, string) {
	for _, dep := range task.Dependencies {
		if d, ok := byID[dep]; ok && strings.Contains(strings.ToLower(d.Name), query) {
			return 1.0, "After: " + highlightText(d.Name, query)
		}
	}
	return 0, ""
}

func highlightText(text, query string) string {
	textLower := strings.ToLower(text)
	queryLower := strings.ToLower(query)

	index := strings.Index(textLower, queryLower)
	if index == -1 || len(textLower) != len(text) {
		return text
	}

	before := text[:index]
	match := text[index : index+len(query)]
	after := text[index+len(query):]

	return before + "**" + match + "**" + after
}

func mergeAndRank(results []*Result) []*Result {
	// Group by task ID and sum scores, keeping the snippet of the best strategy
	taskScores := make(map[string]*Result)
	best := make(map[string]float64)
	var order []string

	for _, result := range results {
		id := result.Task.ID
		existing, exists := taskScores[id]
		if !exists {
			taskScores[id] = result
			best[id] = result.Score
			order = append(order, id)
			continue
		}
		existing.Score += result.Score
		if result.Score > best[id] {
			best[id] = result.Score
			existing.MatchType = result.MatchType
			existing.Snippet = result.Snippet
		}
	}

	merged := make([]*Result, 0, len(order))
	for _, id := range order {
		merged = append(merged, taskScores[id])
	}

	// Sort by score descending; ties keep task order
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	return merged
}

func paginate(results []*Result, opts Options) []*Result {
	if opts.Limit <= 0 {
		return results
	}
	if opts.Offset >= len(results) {
		return []*Result{}
	}
	end := opts.Offset + opts.Limit
	if end > len(results) {
		end = len(results)
	}
	return results[opts.Offset:end]
}
