package domain

import (
	"fmt"
	"sort"
)

// TemplateTask describes a seeded task. After refers to other entries of the
// same template by Key, not by task id; ids are allocated when seeding.
type TemplateTask struct {
	Key      string
	Name     string
	Duration int
	Category Category
	After    []string
}

var templates = map[string][]TemplateTask{
	"renovation": {
		{Key: "elec", Name: "Electricity", Duration: 1, Category: CategoryElectrical},
		{Key: "plumb", Name: "Plumbing", Duration: 1, Category: CategoryPlumbing},
		{Key: "tile", Name: "Tiles", Duration: 2, Category: CategoryTiling, After: []string{"elec", "plumb"}},
		{Key: "alum", Name: "Aluminium", Duration: 1, Category: CategoryAluminium},
		{Key: "plaster", Name: "Plaster", Duration: 2, Category: CategoryPlaster, After: []string{"elec", "plumb"}},
		{Key: "concrete", Name: "Ponçage", Duration: 2, Category: CategoryConcrete, After: []string{"plaster"}},
		{Key: "paint", Name: "Painting", Duration: 20, Category: CategoryPainting, After: []string{"concrete", "tile", "alum"}},
		{Key: "accessories", Name: "Accessories", Duration: 1, Category: CategoryAccessories, After: []string{"paint"}},
		{Key: "parquet", Name: "Parquet", Duration: 1, Category: CategoryParquet, After: []string{"paint"}},
		{Key: "woodwork", Name: "Woodwork", Duration: 1, Category: CategoryWoodwork, After: []string{"paint"}},
		{Key: "cleaning", Name: "Cleaning", Duration: 1, Category: CategoryCleaning, After: []string{"accessories", "parquet", "woodwork"}},
	},
}

// Template returns a copy of the named seed task list.
func Template(name string) ([]TemplateTask, error) {
	tasks, ok := templates[name]
	if !ok {
		return nil, fmt.Errorf("template %q %w", name, ErrNotFound)
	}
	out := make([]TemplateTask, len(tasks))
	for i, t := range tasks {
		t.After = append([]string(nil), t.After...)
		out[i] = t
	}
	return out, nil
}

func TemplateNames() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
