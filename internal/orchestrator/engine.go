package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ndi_desktop/internal/catalog"
	"ndi_desktop/internal/domain"
	"ndi_desktop/internal/policy"
)

type ContentStore interface {
	Fetch(ctx context.Context, key string) (domain.Content, error)
}

// SnapshotStore is the durable home of the progress snapshot. Any Get error,
// including a missing key, means no usable snapshot.
type SnapshotStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Transport pushes a typed payload to one child context.
type Transport interface {
	Send(handle, eventType string, payload any) error
}

// WindowDirectory resolves the open instances of an app.
type WindowDirectory interface {
	HandlesFor(appID string) []string
}

type Config struct {
	BasePath   string
	StorageKey string
	MaxToasts  int
	ToastTTL   time.Duration
}

func (c Config) withDefaults() Config {
	if c.BasePath == "/" {
		c.BasePath = ""
	}
	if c.StorageKey == "" {
		c.StorageKey = "ndi-progress"
	}
	if c.MaxToasts <= 0 {
		c.MaxToasts = 4
	}
	if c.ToastTTL <= 0 {
		c.ToastTTL = 5 * time.Second
	}
	return c
}

const (
	toastNewMessage = "Nouveau message reçu"
	toastSuccess    = "Mission accomplie"
	toastFailure    = "Mission échouée"
)

// Engine owns every piece of quest state. All mutation goes through its
// methods; children only see what it pushes over the transport.
type Engine struct {
	catalog   *catalog.Catalog
	content   ContentStore
	snapshots SnapshotStore
	transport Transport
	cfg       Config
	logger    zerolog.Logger
	now       func() time.Time

	fetches sync.WaitGroup

	mu            sync.Mutex
	windows       WindowDirectory
	fetchCtx      context.Context
	gen           uint64
	inflight      map[string]bool
	tasks         map[string]*domain.TaskState
	mails         map[string]*domain.MailState
	unlockedTasks *idSet
	unlockedApps  *idSet
	unlockedMails *idSet
	notifications *idSet
	toasts        []domain.Toast
}

func New(
	cat *catalog.Catalog,
	content ContentStore,
	snapshots SnapshotStore,
	transport Transport,
	cfg Config,
	logger zerolog.Logger,
) *Engine {
	e := &Engine{
		catalog:   cat,
		content:   content,
		snapshots: snapshots,
		transport: transport,
		cfg:       cfg.withDefaults(),
		logger:    logger,
		now:       time.Now,
		fetchCtx:  context.Background(),
	}
	e.resetLocked()
	return e
}

// AttachWindows connects the shell that knows which windows are open.
func (e *Engine) AttachWindows(w WindowDirectory) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.windows = w
}

// Init restores saved progress and starts loading content for everything
// already unlocked. Content loads run in the background.
func (e *Engine) Init(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.fetchCtx = context.WithoutCancel(ctx)
	e.resetLocked()
	e.restoreLocked(ctx)
	e.loadContentLocked(e.unlockedTasks.list(), e.unlockedMails.list())
	e.logger.Info().
		Int("tasks", len(e.unlockedTasks.order)).
		Int("apps", len(e.unlockedApps.order)).
		Int("mails", len(e.unlockedMails.order)).
		Msg("quest state initialized")
}

// Reset returns to the initial unlock sets and erases saved progress.
func (e *Engine) Reset(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.resetLocked()
	if err := e.snapshots.Delete(ctx, e.cfg.StorageKey); err != nil {
		e.logger.Error().Err(err).Msg("erase saved progress")
	}
	e.loadContentLocked(e.unlockedTasks.list(), e.unlockedMails.list())
	e.publishLocked()
	e.logger.Info().Msg("quest progress reset")
}

// resetLocked starts a new generation. Fetches begun before it are dropped
// when they land.
func (e *Engine) resetLocked() {
	e.gen++
	e.inflight = make(map[string]bool)
	e.tasks = make(map[string]*domain.TaskState)
	e.mails = make(map[string]*domain.MailState)
	e.unlockedTasks = newIDSet(e.catalog.InitialTasks)
	e.unlockedApps = newIDSet(e.catalog.InitialApps)
	e.unlockedMails = newIDSet(e.catalog.InitialMails)
	e.notifications = newIDSet([]string{e.catalog.Mailbox})
	e.toasts = nil
}

// HandleEvent is the single entry point for child events. It never waits on
// content fetches.
func (e *Engine) HandleEvent(ctx context.Context, ev domain.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch ev := ev.(type) {
	case domain.MailRequestData:
		e.publishMailboxLocked()
		return
	case domain.MailMarkRead:
		e.markReadLocked(ctx, ev.MailID)
		return
	case domain.StateRequest:
		e.pushFailureModeLocked(ev.App)
		return
	case domain.Unknown:
		e.logger.Debug().Str("event", ev.Name).Msg("ignoring unknown event")
		return
	}

	gate := e.gatingTaskLocked()

	// Matching follows catalog order and the first task with a verdict wins.
	// Tasks unlocked by that resolution wait for the next event.
	for _, def := range e.catalog.Tasks {
		if !e.unlockedTasks.contains(def.ID) {
			continue
		}
		if e.statusLocked(def.ID).Terminal() {
			continue
		}
		if gate != "" && def.ID != gate {
			continue
		}
		if def.TriggerEventType != ev.Type() {
			continue
		}
		switch def.Evaluate(ev) {
		case domain.VerdictSuccess:
			e.resolveLocked(ctx, def.ID, domain.TaskStatusCompleted)
			return
		case domain.VerdictFailure:
			e.resolveLocked(ctx, def.ID, domain.TaskStatusFailed)
			return
		}
	}
	e.logger.Debug().Str("event", ev.Type()).Str("gate", gate).Msg("event matched no task")
}

// CompleteTask resolves a task as succeeded. It reports false when the task
// is unknown or already terminal.
func (e *Engine) CompleteTask(ctx context.Context, taskID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolveLocked(ctx, taskID, domain.TaskStatusCompleted)
}

// FailTask resolves a task as failed. Failure is a story outcome with its own
// unlocks, not an error.
func (e *Engine) FailTask(ctx context.Context, taskID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolveLocked(ctx, taskID, domain.TaskStatusFailed)
}

func (e *Engine) resolveLocked(ctx context.Context, taskID string, outcome domain.TaskStatus) bool {
	def, ok := e.catalog.Task(taskID)
	if !ok {
		e.logger.Warn().Str("task", taskID).Msg("resolve unknown task")
		return false
	}
	state := e.taskStateLocked(taskID)
	if state.Status.Terminal() {
		return false
	}
	state.Status = outcome

	unlocks := def.UnlocksFor(outcome)
	var newTasks, newMails []string
	for _, id := range unlocks.Tasks {
		if e.unlockedTasks.add(id) {
			newTasks = append(newTasks, id)
		}
	}
	for _, id := range unlocks.Apps {
		e.unlockedApps.add(id)
	}
	for _, id := range unlocks.Mails {
		if e.unlockedMails.add(id) {
			newMails = append(newMails, id)
		}
	}

	if outcome == domain.TaskStatusCompleted && def.FixesTask != "" {
		fixed := e.taskStateLocked(def.FixesTask)
		if fixed.Status != domain.TaskStatusCompleted {
			e.logger.Info().Str("task", def.FixesTask).Str("fixed_by", taskID).Msg("task repaired")
			fixed.Status = domain.TaskStatusCompleted
		}
	}

	e.notifications.add(e.catalog.Mailbox)
	if state.Content != nil {
		text := state.Content.Select(outcome)
		message := toastSuccess
		if outcome == domain.TaskStatusFailed {
			message = toastFailure
		}
		if !text.Empty() {
			e.toastLocked(text.Title, message)
		}
	}

	e.logger.Info().
		Str("task", taskID).
		Str("outcome", string(outcome)).
		Strs("unlocked_tasks", newTasks).
		Strs("unlocked_apps", unlocks.Apps).
		Strs("unlocked_mails", newMails).
		Msg("task resolved")

	e.persistLocked(ctx)
	e.publishLocked()
	e.loadContentLocked(newTasks, newMails)
	return true
}

func (e *Engine) markReadLocked(ctx context.Context, mailID string) {
	if !e.unlockedMails.contains(mailID) {
		e.logger.Debug().Str("mail", mailID).Msg("mark read on locked mail ignored")
		return
	}
	state := e.mailStateLocked(mailID)
	if state.Read {
		return
	}
	state.Read = true
	e.persistLocked(ctx)
	e.publishMailboxLocked()
}

func (e *Engine) taskStateLocked(taskID string) *domain.TaskState {
	state, ok := e.tasks[taskID]
	if !ok {
		state = &domain.TaskState{Status: domain.TaskStatusPending}
		e.tasks[taskID] = state
	}
	return state
}

func (e *Engine) mailStateLocked(mailID string) *domain.MailState {
	state, ok := e.mails[mailID]
	if !ok {
		state = &domain.MailState{}
		e.mails[mailID] = state
	}
	return state
}

func (e *Engine) statusLocked(taskID string) domain.TaskStatus {
	if state, ok := e.tasks[taskID]; ok {
		return state.Status
	}
	return domain.TaskStatusPending
}

// gatingTaskLocked returns the unlocked blocking task still pending. While it
// exists no other task may resolve. Catalog validation keeps it unique; the
// first in catalog order wins otherwise.
func (e *Engine) gatingTaskLocked() string {
	gate := ""
	for _, def := range e.catalog.Tasks {
		if !def.IsBlocking || !e.unlockedTasks.contains(def.ID) {
			continue
		}
		if e.statusLocked(def.ID) != domain.TaskStatusPending {
			continue
		}
		if gate != "" {
			e.logger.Warn().Str("gate", gate).Str("other", def.ID).Msg("several blocking tasks pending")
			break
		}
		gate = def.ID
	}
	return gate
}

// restrictingTaskLocked returns the blocking task restricting which apps may
// be opened. A failed blocking task keeps restricting until one of its
// fixers completes it; without a fixer its failure lifts the restriction.
func (e *Engine) restrictingTaskLocked() (domain.TaskDefinition, bool) {
	for _, def := range e.catalog.Tasks {
		if !def.IsBlocking || !e.unlockedTasks.contains(def.ID) {
			continue
		}
		switch e.statusLocked(def.ID) {
		case domain.TaskStatusPending:
			return def, true
		case domain.TaskStatusFailed:
			if len(e.catalog.Fixers(def.ID)) > 0 {
				return def, true
			}
		}
	}
	return domain.TaskDefinition{}, false
}

func (e *Engine) admissionLocked() policy.Admission {
	secret := make(map[string]bool)
	for _, app := range e.catalog.Apps {
		if app.Secret {
			secret[app.ID] = true
		}
	}
	a := policy.Admission{
		Unlocked: e.unlockedApps.lookup(),
		Secret:   secret,
		Mailbox:  e.catalog.Mailbox,
	}
	if def, ok := e.restrictingTaskLocked(); ok {
		a.Restricting = def.ID
		a.AllowList = def.AllowedAppsWhileBlocking
	}
	return a
}

// IsAppUnlocked reports whether the app is unlocked or secret. It ignores
// blocking restrictions; see CanOpenApp.
func (e *Engine) IsAppUnlocked(appID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.admissionLocked().IsUnlocked(appID)
}

// CanOpenApp is the effective openability check used by the shell.
func (e *Engine) CanOpenApp(appID string) (bool, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.admissionLocked().CanOpen(appID)
}

// BlockingTask returns the pending blocking task gating event resolution.
func (e *Engine) BlockingTask() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gatingTaskLocked()
}

// RestrictingTask returns the blocking task restricting app admission.
func (e *Engine) RestrictingTask() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	def, _ := e.restrictingTaskLocked()
	return def.ID
}

func (e *Engine) TaskStatus(taskID string) domain.TaskStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusLocked(taskID)
}

func (e *Engine) UnlockedTasks() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unlockedTasks.list()
}

func (e *Engine) UnlockedApps() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unlockedApps.list()
}

func (e *Engine) UnlockedMails() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unlockedMails.list()
}

// Run feeds transport frames to HandleEvent in arrival order until ctx ends
// or the inbox closes.
func (e *Engine) Run(ctx context.Context, inbox <-chan domain.Envelope) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-inbox:
			if !ok {
				return
			}
			ev, err := domain.DecodeEvent(env.Type, env.Data)
			if err != nil {
				e.logger.Warn().Err(err).Str("event", env.Type).Str("handle", env.Handle).Msg("malformed event payload")
				continue
			}
			e.HandleEvent(ctx, ev)
		}
	}
}
