// Package catalog holds the static quest definitions: the apps of the
// simulated desktop, the tasks chained through them and the passive mails
// their outcomes reveal.
package catalog

import (
	"ndi_desktop/internal/domain"
)

const MailboxApp = "mail"

type Catalog struct {
	Apps  []domain.AppDefinition
	Tasks []domain.TaskDefinition
	Mails []domain.MailDefinition

	InitialTasks []string
	InitialApps  []string
	InitialMails []string

	// Mailbox is exempt from blocking restrictions and receives every view push.
	Mailbox string

	taskIndex map[string]int
	appIndex  map[string]int
	mailIndex map[string]int
}

// New indexes the given definitions. Task order is significant: it is the
// order events are matched in, so the first declared task wins a tie.
func New(apps []domain.AppDefinition, tasks []domain.TaskDefinition, mails []domain.MailDefinition) *Catalog {
	c := &Catalog{
		Apps:    apps,
		Tasks:   tasks,
		Mails:   mails,
		Mailbox: MailboxApp,
	}
	c.reindex()
	return c
}

func (c *Catalog) reindex() {
	c.taskIndex = make(map[string]int, len(c.Tasks))
	for i, t := range c.Tasks {
		if _, dup := c.taskIndex[t.ID]; !dup {
			c.taskIndex[t.ID] = i
		}
	}
	c.appIndex = make(map[string]int, len(c.Apps))
	for i, a := range c.Apps {
		if _, dup := c.appIndex[a.ID]; !dup {
			c.appIndex[a.ID] = i
		}
	}
	c.mailIndex = make(map[string]int, len(c.Mails))
	for i, m := range c.Mails {
		if _, dup := c.mailIndex[m.ID]; !dup {
			c.mailIndex[m.ID] = i
		}
	}
}

func (c *Catalog) Task(id string) (domain.TaskDefinition, bool) {
	i, ok := c.taskIndex[id]
	if !ok {
		return domain.TaskDefinition{}, false
	}
	return c.Tasks[i], true
}

func (c *Catalog) App(id string) (domain.AppDefinition, bool) {
	i, ok := c.appIndex[id]
	if !ok {
		return domain.AppDefinition{}, false
	}
	return c.Apps[i], true
}

func (c *Catalog) Mail(id string) (domain.MailDefinition, bool) {
	i, ok := c.mailIndex[id]
	if !ok {
		return domain.MailDefinition{}, false
	}
	return c.Mails[i], true
}

// Fixers returns the ids of tasks whose success repairs taskID.
func (c *Catalog) Fixers(taskID string) []string {
	var out []string
	for _, t := range c.Tasks {
		if t.FixesTask == taskID {
			out = append(out, t.ID)
		}
	}
	return out
}

// ContentKeys lists every content document the catalog references, tasks
// first, in declaration order.
func (c *Catalog) ContentKeys() []string {
	seen := make(map[string]bool)
	var keys []string
	add := func(k string) {
		if k == "" || seen[k] {
			return
		}
		seen[k] = true
		keys = append(keys, k)
	}
	for _, t := range c.Tasks {
		add(t.ContentKey)
	}
	for _, m := range c.Mails {
		add(m.ContentKey)
	}
	return keys
}

// AppIs succeeds when the opened app matches and ignores every other app.
func AppIs(appID string) domain.Validator {
	return func(ev domain.Event) domain.Verdict {
		opened, ok := ev.(domain.AppOpened)
		if !ok || opened.AppID != appID {
			return domain.VerdictIrrelevant
		}
		return domain.VerdictSuccess
	}
}

func ScoreAtLeast(threshold int) domain.Validator {
	return func(ev domain.Event) domain.Verdict {
		var score int
		switch e := ev.(type) {
		case domain.GameOver:
			score = e.Score
		case domain.Victory:
			score = e.Score
		default:
			return domain.VerdictIrrelevant
		}
		if score >= threshold {
			return domain.VerdictSuccess
		}
		return domain.VerdictFailure
	}
}

func WPMAtLeast(threshold float64) domain.Validator {
	return func(ev domain.Event) domain.Verdict {
		finished, ok := ev.(domain.Finished)
		if !ok {
			return domain.VerdictIrrelevant
		}
		if finished.WPM >= threshold {
			return domain.VerdictSuccess
		}
		return domain.VerdictFailure
	}
}

// Always returns the same verdict for every trigger occurrence. Always(Failure)
// is how the story forces a failure branch.
func Always(v domain.Verdict) domain.Validator {
	return func(domain.Event) domain.Verdict { return v }
}
