package domain

import "time"

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusCompleted, TaskStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further evaluation happens for the task.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Verdict is the tri-state result of a task validator.
type Verdict int

const (
	VerdictIrrelevant Verdict = iota
	VerdictSuccess
	VerdictFailure
)

func (v Verdict) String() string {
	switch v {
	case VerdictSuccess:
		return "success"
	case VerdictFailure:
		return "failure"
	default:
		return "irrelevant"
	}
}

// Validator inspects a trigger event. A nil Validator means any occurrence
// of the trigger succeeds.
type Validator func(Event) Verdict

// Unlocks is the set of identifiers activated by one task outcome.
type Unlocks struct {
	Tasks []string
	Apps  []string
	Mails []string
}

func (u Unlocks) Empty() bool {
	return len(u.Tasks) == 0 && len(u.Apps) == 0 && len(u.Mails) == 0
}

type TaskDefinition struct {
	ID                       string
	TriggerEventType         string
	ContentKey               string
	Validate                 Validator
	IsBlocking               bool
	AllowedAppsWhileBlocking []string
	OnSuccess                Unlocks
	OnFailure                Unlocks
	FixesTask                string
}

// Evaluate applies the validator, defaulting to success.
func (t TaskDefinition) Evaluate(ev Event) Verdict {
	if t.Validate == nil {
		return VerdictSuccess
	}
	return t.Validate(ev)
}

func (t TaskDefinition) UnlocksFor(status TaskStatus) Unlocks {
	switch status {
	case TaskStatusCompleted:
		return t.OnSuccess
	case TaskStatusFailed:
		return t.OnFailure
	}
	return Unlocks{}
}

type Sender struct {
	Name    string
	Address string
}

type MailDefinition struct {
	ID         string
	ContentKey string
	From       Sender
}

type AppDefinition struct {
	ID       string
	Name     string
	Icon     string
	Category string
	Route    string
	// Secret apps are openable without being unlocked.
	Secret bool
	// FailureTask, when set, turns the app's in-app failure branch on while
	// that task is unlocked and not completed.
	FailureTask string
}

type Text struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
}

func (t Text) Empty() bool {
	return t.Title == "" && t.Description == ""
}

// Content holds the three display variants of a task. Passive mail content
// only uses Pending.
type Content struct {
	Pending Text `json:"pending" yaml:"pending"`
	Success Text `json:"success" yaml:"success"`
	Failure Text `json:"failure" yaml:"failure"`
}

func (c Content) Select(status TaskStatus) Text {
	switch status {
	case TaskStatusCompleted:
		return c.Success
	case TaskStatusFailed:
		return c.Failure
	default:
		return c.Pending
	}
}

type TaskState struct {
	Status  TaskStatus
	Content *Content
}

type MailState struct {
	Read    bool
	Content *Content
}

type TaskSnapshot struct {
	Status TaskStatus `json:"status"`
}

type MailSnapshot struct {
	Read bool `json:"read"`
}

// Snapshot is the persisted subset of engine state. Loaded content is not
// part of it.
type Snapshot struct {
	TaskStates    map[string]TaskSnapshot `json:"taskStates"`
	UnlockedTasks []string                `json:"unlockedTasks"`
	UnlockedApps  []string                `json:"unlockedApps"`
	MailStates    map[string]MailSnapshot `json:"mailStates"`
	UnlockedMails []string                `json:"unlockedMails"`
}

type TaskItem struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	Failed      bool       `json:"failed"`
	Blocked     bool       `json:"blocked"`
	Status      TaskStatus `json:"status"`
	UnlocksApps []string   `json:"unlocksApps"`
}

type MailItem struct {
	ID          string `json:"id"`
	From        string `json:"from"`
	Address     string `json:"address"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Read        bool   `json:"read"`
}

type MailboxUpdate struct {
	Mails []MailItem `json:"mails"`
	Tasks []TaskItem `json:"tasks"`
}

type FailureMode struct {
	Value bool `json:"value"`
}

type AppItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Icon     string `json:"icon"`
	Category string `json:"category"`
	URL      string `json:"url"`
	Secret   bool   `json:"secret,omitempty"`
	Unlocked bool   `json:"unlocked"`
	Openable bool   `json:"openable"`
}

type Toast struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// DesktopState is the read model served to the shell and the monitor.
type DesktopState struct {
	Apps          []AppItem  `json:"apps"`
	Tasks         []TaskItem `json:"tasks"`
	Mails         []MailItem `json:"mails"`
	BlockingTask  string     `json:"blocking_task,omitempty"`
	Notifications []string   `json:"notifications"`
	Toasts        []Toast    `json:"toasts"`
}
