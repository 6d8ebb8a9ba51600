package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndi_desktop/internal/domain"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Empty(t, c.Unreachable())
}

func TestDefaultCatalogKeepsAlwaysFailingTasks(t *testing.T) {
	c := Default()
	for _, id := range []string{"prepare-meeting-word", "make-coffee-fail", "share-meeting-notes"} {
		task, ok := c.Task(id)
		require.True(t, ok, id)
		assert.Equal(t, domain.VerdictFailure, task.Evaluate(domain.Unknown{Name: task.TriggerEventType}), id)
	}
}

func TestValidateRejectsBrokenReferences(t *testing.T) {
	c := New(
		[]domain.AppDefinition{{ID: "mail"}},
		[]domain.TaskDefinition{
			{ID: "a", TriggerEventType: "x:y", OnSuccess: domain.Unlocks{Tasks: []string{"ghost"}, Apps: []string{"nope"}}},
			{ID: "a", TriggerEventType: "x:y", FixesTask: "missing"},
		},
		nil,
	)
	c.InitialMails = []string{"unknown-mail"}

	err := c.Validate()
	require.ErrorIs(t, err, ErrInvalidCatalog)
	assert.Contains(t, err.Error(), `duplicate task id "a"`)
	assert.Contains(t, err.Error(), `unknown task "ghost"`)
	assert.Contains(t, err.Error(), `unknown app "nope"`)
	assert.Contains(t, err.Error(), `fixes unknown task "missing"`)
	assert.Contains(t, err.Error(), `unknown mail "unknown-mail"`)
}

func TestValidateRejectsCycles(t *testing.T) {
	c := New(
		[]domain.AppDefinition{{ID: "mail"}},
		[]domain.TaskDefinition{
			{ID: "a", TriggerEventType: "e:a", OnSuccess: domain.Unlocks{Tasks: []string{"b"}}},
			{ID: "b", TriggerEventType: "e:b", OnFailure: domain.Unlocks{Tasks: []string{"a"}}},
		},
		nil,
	)
	err := c.Validate()
	require.ErrorIs(t, err, ErrInvalidCatalog)
	assert.Contains(t, err.Error(), "a -> b -> a")
}

func TestValidateRejectsConcurrentBlockingTasks(t *testing.T) {
	blocking := func(id string) domain.TaskDefinition {
		return domain.TaskDefinition{
			ID:                       id,
			TriggerEventType:         "e:" + id,
			IsBlocking:               true,
			AllowedAppsWhileBlocking: []string{"mail"},
		}
	}
	c := New(
		[]domain.AppDefinition{{ID: "mail"}},
		[]domain.TaskDefinition{
			{ID: "root", TriggerEventType: "e:root", OnSuccess: domain.Unlocks{Tasks: []string{"b1", "b2"}}},
			blocking("b1"),
			blocking("b2"),
		},
		nil,
	)
	c.InitialTasks = []string{"b1", "b2"}

	err := c.Validate()
	require.ErrorIs(t, err, ErrInvalidCatalog)
	assert.Contains(t, err.Error(), "initial tasks contain 2 blocking tasks")
	assert.Contains(t, err.Error(), `success of task "root" unlocks 2 blocking tasks`)
}

func TestValidateRequiresAllowListOnBlockingTasks(t *testing.T) {
	c := New(
		[]domain.AppDefinition{{ID: "mail"}},
		[]domain.TaskDefinition{{ID: "gate", TriggerEventType: "e:gate", IsBlocking: true}},
		nil,
	)
	err := c.Validate()
	require.ErrorIs(t, err, ErrInvalidCatalog)
	assert.Contains(t, err.Error(), "declares no allowed apps")
}

func TestUnreachable(t *testing.T) {
	c := New(
		[]domain.AppDefinition{{ID: "mail"}},
		[]domain.TaskDefinition{
			{ID: "start", TriggerEventType: "e:s", OnFailure: domain.Unlocks{Tasks: []string{"next"}}},
			{ID: "next", TriggerEventType: "e:n"},
			{ID: "orphan", TriggerEventType: "e:o"},
		},
		nil,
	)
	c.InitialTasks = []string{"start"}
	assert.Equal(t, []string{"orphan"}, c.Unreachable())
}

func TestValidators(t *testing.T) {
	assert.Equal(t, domain.VerdictSuccess, AppIs("snake")(domain.AppOpened{AppID: "snake"}))
	assert.Equal(t, domain.VerdictIrrelevant, AppIs("snake")(domain.AppOpened{AppID: "typing"}))

	assert.Equal(t, domain.VerdictSuccess, ScoreAtLeast(30)(domain.GameOver{App: "snake", Score: 30}))
	assert.Equal(t, domain.VerdictFailure, ScoreAtLeast(30)(domain.GameOver{App: "snake", Score: 25}))
	assert.Equal(t, domain.VerdictIrrelevant, ScoreAtLeast(30)(domain.AppOpened{AppID: "snake"}))

	assert.Equal(t, domain.VerdictSuccess, WPMAtLeast(25)(domain.Finished{App: "typing", WPM: 25}))
	assert.Equal(t, domain.VerdictFailure, WPMAtLeast(25)(domain.Finished{App: "typing", WPM: 12}))
}

func TestFixersAndContentKeys(t *testing.T) {
	c := Default()
	assert.Equal(t, []string{"repair-cloud-services"}, c.Fixers("share-meeting-notes"))
	assert.Empty(t, c.Fixers("score-snake-30"))

	keys := c.ContentKeys()
	assert.Contains(t, keys, "open-snake.json")
	assert.Contains(t, keys, "mail-welcome.json")
	assert.Len(t, keys, len(c.Tasks)+len(c.Mails))
}
