package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProject(t *testing.T) {
	project := NewProject("Kitchen", "Full kitchen renovation")

	assert.NotEmpty(t, project.ID)
	assert.Equal(t, "Kitchen", project.Name)
	assert.Equal(t, 1, project.NextTaskSeq)
	assert.NotZero(t, project.CreatedAt)

	unnamed := NewProject("", "")
	assert.Equal(t, DefaultProjectName, unnamed.Name)
	assert.NotEqual(t, project.ID, unnamed.ID)
}

func TestProject_AllocateTaskID(t *testing.T) {
	project := NewProject("Kitchen", "")

	assert.Equal(t, "task-1", project.AllocateTaskID())
	assert.Equal(t, "task-2", project.AllocateTaskID())
	assert.Equal(t, 3, project.NextTaskSeq)

	project.NextTaskSeq = 0
	assert.Equal(t, "task-1", project.AllocateTaskID())
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("painting")
	require.NoError(t, err)
	assert.Equal(t, CategoryPainting, c)

	c, err = ParseCategory("")
	require.NoError(t, err)
	assert.Equal(t, Category(""), c)

	_, err = ParseCategory("Roofing")
	assert.ErrorIs(t, err, ErrInvalidTask)
}

func TestGroupByCategory(t *testing.T) {
	paint := NewTask("p", "task-1", "Walls", 3)
	paint.Category = CategoryPainting
	elec := NewTask("p", "task-2", "Wiring", 1)
	elec.Category = CategoryElectrical
	misc := NewTask("p", "task-3", "Misc", 1)
	ceiling := NewTask("p", "task-4", "Ceiling", 2)
	ceiling.Category = CategoryPainting

	groups := GroupByCategory([]*Task{paint, elec, misc, ceiling})

	require.Len(t, groups, 3)
	assert.Equal(t, CategoryElectrical, groups[0].Category)
	assert.Equal(t, CategoryPainting, groups[1].Category)
	assert.Equal(t, []*Task{paint, ceiling}, groups[1].Tasks)
	assert.Equal(t, Category(""), groups[2].Category)
	assert.Equal(t, []*Task{misc}, groups[2].Tasks)

	assert.Empty(t, GroupByCategory(nil))
}

func TestTemplate(t *testing.T) {
	tasks, err := Template("renovation")
	require.NoError(t, err)
	assert.Len(t, tasks, 11)

	keys := make(map[string]bool)
	for _, task := range tasks {
		keys[task.Key] = true
		assert.True(t, task.Category.Valid(), task.Name)
		assert.Positive(t, task.Duration)
	}
	for _, task := range tasks {
		for _, after := range task.After {
			assert.True(t, keys[after], "%s depends on unknown key %s", task.Key, after)
		}
	}

	tasks[0].After = append(tasks[0].After, "x")
	again, _ := Template("renovation")
	assert.Empty(t, again[0].After)

	_, err = Template("boat")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, TemplateNames(), "renovation")
}
