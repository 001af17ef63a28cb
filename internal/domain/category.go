package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Category is the trade a task belongs to.
type Category string

const (
	CategoryElectrical  Category = "Electrical"
	CategoryPlumbing    Category = "Plumbing"
	CategoryTiling      Category = "Tiling"
	CategoryPainting    Category = "Painting"
	CategoryAluminium   Category = "Aluminium"
	CategoryPlaster     Category = "Plaster"
	CategoryConcrete    Category = "Concrete"
	CategoryAccessories Category = "Accessories"
	CategoryParquet     Category = "Parquet"
	CategoryWoodwork    Category = "Woodwork"
	CategoryCleaning    Category = "Cleaning"
	CategoryCarpentry   Category = "Carpentry"
	CategoryFinishing   Category = "Finishing"
)

var Categories = []Category{
	CategoryElectrical,
	CategoryPlumbing,
	CategoryTiling,
	CategoryPainting,
	CategoryAluminium,
	CategoryPlaster,
	CategoryConcrete,
	CategoryAccessories,
	CategoryParquet,
	CategoryWoodwork,
	CategoryCleaning,
	CategoryCarpentry,
	CategoryFinishing,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory matches case-insensitively. An empty string means "no category".
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	for _, known := range Categories {
		if strings.EqualFold(s, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown category %q: %w", s, ErrInvalidTask)
}

// CategoryGroup is one bucket produced by GroupByCategory.
type CategoryGroup struct {
	Category Category `json:"category"`
	Tasks    []*Task  `json:"tasks"`
}

// GroupByCategory buckets tasks by category, keeping task order inside each
// bucket. Groups follow the order of Categories; uncategorized tasks come last.
func GroupByCategory(tasks []*Task) []CategoryGroup {
	buckets := make(map[Category][]*Task)
	for _, t := range tasks {
		buckets[t.Category] = append(buckets[t.Category], t)
	}

	rank := make(map[Category]int, len(Categories))
	for i, c := range Categories {
		rank[c] = i
	}
	keys := make([]Category, 0, len(buckets))
	for c := range buckets {
		keys = append(keys, c)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, iok := rank[keys[i]]
		rj, jok := rank[keys[j]]
		if iok != jok {
			return iok
		}
		if !iok {
			return keys[i] < keys[j]
		}
		return ri < rj
	})

	groups := make([]CategoryGroup, 0, len(keys))
	for _, c := range keys {
		groups = append(groups, CategoryGroup{Category: c, Tasks: buckets[c]})
	}
	return groups
}
