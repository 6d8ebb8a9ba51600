package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidCatalog = errors.New("invalid catalog")

// Validate checks the invariants the engine relies on without checking them
// at runtime: unique ids, resolvable references, an acyclic unlock graph and
// at most one blocking task becoming pending at a time.
func (c *Catalog) Validate() error {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	seenTasks := make(map[string]bool, len(c.Tasks))
	for _, t := range c.Tasks {
		if t.ID == "" {
			addf("task with empty id")
			continue
		}
		if seenTasks[t.ID] {
			addf("duplicate task id %q", t.ID)
		}
		seenTasks[t.ID] = true
		if t.TriggerEventType == "" {
			addf("task %q has no trigger event type", t.ID)
		}
	}
	seenApps := make(map[string]bool, len(c.Apps))
	for _, a := range c.Apps {
		if seenApps[a.ID] {
			addf("duplicate app id %q", a.ID)
		}
		seenApps[a.ID] = true
	}
	seenMails := make(map[string]bool, len(c.Mails))
	for _, m := range c.Mails {
		if seenMails[m.ID] {
			addf("duplicate mail id %q", m.ID)
		}
		seenMails[m.ID] = true
	}

	checkRefs := func(owner, kind string, ids []string, known map[string]bool) {
		for _, id := range ids {
			if !known[id] {
				addf("%s references unknown %s %q", owner, kind, id)
			}
		}
	}

	if !seenApps[c.Mailbox] {
		addf("mailbox app %q is not declared", c.Mailbox)
	}
	checkRefs("initial tasks", "task", c.InitialTasks, seenTasks)
	checkRefs("initial apps", "app", c.InitialApps, seenApps)
	checkRefs("initial mails", "mail", c.InitialMails, seenMails)

	for _, a := range c.Apps {
		if a.FailureTask != "" && !seenTasks[a.FailureTask] {
			addf("app %q references unknown failure task %q", a.ID, a.FailureTask)
		}
	}

	for _, t := range c.Tasks {
		owner := "task " + t.ID
		checkRefs(owner, "task", t.OnSuccess.Tasks, seenTasks)
		checkRefs(owner, "task", t.OnFailure.Tasks, seenTasks)
		checkRefs(owner, "app", t.OnSuccess.Apps, seenApps)
		checkRefs(owner, "app", t.OnFailure.Apps, seenApps)
		checkRefs(owner, "mail", t.OnSuccess.Mails, seenMails)
		checkRefs(owner, "mail", t.OnFailure.Mails, seenMails)
		checkRefs(owner+" allow-list", "app", t.AllowedAppsWhileBlocking, seenApps)
		if t.FixesTask != "" {
			if !seenTasks[t.FixesTask] {
				addf("%s fixes unknown task %q", owner, t.FixesTask)
			} else if t.FixesTask == t.ID {
				addf("%s fixes itself", owner)
			}
		}
		if t.IsBlocking && len(t.AllowedAppsWhileBlocking) == 0 {
			addf("blocking %s declares no allowed apps", owner)
		}
	}

	if n := c.countBlocking(c.InitialTasks); n > 1 {
		addf("initial tasks contain %d blocking tasks", n)
	}
	for _, t := range c.Tasks {
		if n := c.countBlocking(t.OnSuccess.Tasks); n > 1 {
			addf("success of task %q unlocks %d blocking tasks", t.ID, n)
		}
		if n := c.countBlocking(t.OnFailure.Tasks); n > 1 {
			addf("failure of task %q unlocks %d blocking tasks", t.ID, n)
		}
	}

	if cycle := c.findCycle(); len(cycle) > 0 {
		addf("task unlock cycle: %s", strings.Join(cycle, " -> "))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(problems, "; "))
	}
	return nil
}

func (c *Catalog) countBlocking(ids []string) int {
	n := 0
	for _, id := range ids {
		if t, ok := c.Task(id); ok && t.IsBlocking {
			n++
		}
	}
	return n
}

func (c *Catalog) successors(id string) []string {
	t, ok := c.Task(id)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(t.OnSuccess.Tasks)+len(t.OnFailure.Tasks))
	out = append(out, t.OnSuccess.Tasks...)
	out = append(out, t.OnFailure.Tasks...)
	return out
}

func (c *Catalog) findCycle() []string {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(c.Tasks))
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		switch state[id] {
		case visiting:
			for i, s := range stack {
				if s == id {
					cycle = append(append([]string{}, stack[i:]...), id)
					break
				}
			}
			return true
		case done:
			return false
		}
		state[id] = visiting
		stack = append(stack, id)
		for _, next := range c.successors(id) {
			if visit(next) {
				return true
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
		return false
	}

	for _, t := range c.Tasks {
		if state[t.ID] == unvisited && visit(t.ID) {
			return cycle
		}
	}
	return nil
}

// Unreachable lists tasks that no chain of outcomes starting at the initial
// tasks can unlock.
func (c *Catalog) Unreachable() []string {
	reached := make(map[string]bool, len(c.Tasks))
	queue := append([]string{}, c.InitialTasks...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if reached[id] {
			continue
		}
		reached[id] = true
		queue = append(queue, c.successors(id)...)
	}
	var out []string
	for _, t := range c.Tasks {
		if !reached[t.ID] {
			out = append(out, t.ID)
		}
	}
	return out
}
