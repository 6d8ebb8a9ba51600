package orchestrator

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"ndi_desktop/internal/domain"
)

var loadingText = domain.Text{Title: "Chargement...", Description: "..."}

func statusRank(s domain.TaskStatus) int {
	switch s {
	case domain.TaskStatusFailed:
		return 1
	case domain.TaskStatusCompleted:
		return 2
	default:
		return 0
	}
}

// taskItemsLocked renders unlocked tasks in catalog order, then moves failed
// and completed ones after the pending ones.
func (e *Engine) taskItemsLocked() []domain.TaskItem {
	gate := e.gatingTaskLocked()
	items := make([]domain.TaskItem, 0, len(e.unlockedTasks.order))
	for _, def := range e.catalog.Tasks {
		if !e.unlockedTasks.contains(def.ID) {
			continue
		}
		status := e.statusLocked(def.ID)
		text := loadingText
		if st, ok := e.tasks[def.ID]; ok && st.Content != nil {
			if t := st.Content.Select(status); !t.Empty() {
				text = t
			}
		}
		items = append(items, domain.TaskItem{
			ID:          def.ID,
			Title:       text.Title,
			Description: text.Description,
			Completed:   status == domain.TaskStatusCompleted,
			Failed:      status == domain.TaskStatusFailed,
			Blocked:     gate != "" && def.ID != gate && status != domain.TaskStatusCompleted,
			Status:      status,
			UnlocksApps: append([]string{}, def.OnSuccess.Apps...),
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return statusRank(items[i].Status) < statusRank(items[j].Status)
	})
	return items
}

func (e *Engine) mailItemsLocked() []domain.MailItem {
	items := make([]domain.MailItem, 0, len(e.unlockedMails.order))
	for _, def := range e.catalog.Mails {
		if !e.unlockedMails.contains(def.ID) {
			continue
		}
		text := loadingText
		read := false
		if st, ok := e.mails[def.ID]; ok {
			read = st.Read
			if st.Content != nil && !st.Content.Pending.Empty() {
				text = st.Content.Pending
			}
		}
		items = append(items, domain.MailItem{
			ID:          def.ID,
			From:        def.From.Name,
			Address:     def.From.Address,
			Title:       text.Title,
			Description: text.Description,
			Read:        read,
		})
	}
	return items
}

// MailboxView is the payload pushed to every open mailbox window.
func (e *Engine) MailboxView() domain.MailboxUpdate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mailboxLocked()
}

func (e *Engine) mailboxLocked() domain.MailboxUpdate {
	return domain.MailboxUpdate{Mails: e.mailItemsLocked(), Tasks: e.taskItemsLocked()}
}

// publishLocked republishes everything derived from quest state: the
// mailbox view and the failure-mode flag of every app that has one.
func (e *Engine) publishLocked() {
	e.publishMailboxLocked()
	for _, app := range e.catalog.Apps {
		if app.FailureTask != "" {
			e.pushFailureModeLocked(app.ID)
		}
	}
}

func (e *Engine) publishMailboxLocked() {
	if e.windows == nil || e.transport == nil {
		return
	}
	handles := e.windows.HandlesFor(e.catalog.Mailbox)
	if len(handles) == 0 {
		return
	}
	view := e.mailboxLocked()
	for _, h := range handles {
		if err := e.transport.Send(h, domain.EventMailUpdateData, view); err != nil {
			e.logger.Warn().Err(err).Str("handle", h).Msg("push mailbox view")
		}
	}
}

// failureModeLocked is on while the app's failure task is unlocked and not
// yet completed.
func (e *Engine) failureModeLocked(appID string) bool {
	app, ok := e.catalog.App(appID)
	if !ok || app.FailureTask == "" {
		return false
	}
	return e.unlockedTasks.contains(app.FailureTask) && e.statusLocked(app.FailureTask) != domain.TaskStatusCompleted
}

// FailureMode reports the failure-branch flag for an app.
func (e *Engine) FailureMode(appID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failureModeLocked(appID)
}

func (e *Engine) pushFailureModeLocked(appID string) {
	if e.windows == nil || e.transport == nil {
		return
	}
	payload := domain.FailureMode{Value: e.failureModeLocked(appID)}
	for _, h := range e.windows.HandlesFor(appID) {
		if err := e.transport.Send(h, domain.FailureModeEvent(appID), payload); err != nil {
			e.logger.Warn().Err(err).Str("handle", h).Str("app", appID).Msg("push failure mode")
		}
	}
}

// State is the read model of the whole desktop.
func (e *Engine) State() domain.DesktopState {
	e.mu.Lock()
	defer e.mu.Unlock()

	admission := e.admissionLocked()
	apps := make([]domain.AppItem, 0, len(e.catalog.Apps))
	for _, app := range e.catalog.Apps {
		openable, _ := admission.CanOpen(app.ID)
		apps = append(apps, domain.AppItem{
			ID:       app.ID,
			Name:     app.Name,
			Icon:     app.Icon,
			Category: app.Category,
			URL:      e.appURL(app.Route),
			Secret:   app.Secret,
			Unlocked: admission.IsUnlocked(app.ID),
			Openable: openable,
		})
	}

	e.pruneToastsLocked()
	return domain.DesktopState{
		Apps:          apps,
		Tasks:         e.taskItemsLocked(),
		Mails:         e.mailItemsLocked(),
		BlockingTask:  e.gatingTaskLocked(),
		Notifications: e.notifications.list(),
		Toasts:        append([]domain.Toast{}, e.toasts...),
	}
}

func (e *Engine) appURL(route string) string {
	if route == "" {
		return ""
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return e.cfg.BasePath + route
}

func (e *Engine) toastLocked(title, message string) {
	e.pruneToastsLocked()
	e.toasts = append(e.toasts, domain.Toast{
		ID:        uuid.NewString(),
		Title:     title,
		Message:   message,
		CreatedAt: e.now(),
	})
	if over := len(e.toasts) - e.cfg.MaxToasts; over > 0 {
		e.toasts = append([]domain.Toast{}, e.toasts[over:]...)
	}
}

func (e *Engine) pruneToastsLocked() {
	now := e.now()
	kept := e.toasts[:0]
	for _, t := range e.toasts {
		if now.Sub(t.CreatedAt) < e.cfg.ToastTTL {
			kept = append(kept, t)
		}
	}
	e.toasts = kept
}

// Toasts returns the live toasts, oldest first.
func (e *Engine) Toasts() []domain.Toast {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pruneToastsLocked()
	return append([]domain.Toast{}, e.toasts...)
}

func (e *Engine) DismissToast(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, t := range e.toasts {
		if t.ID == id {
			e.toasts = append(e.toasts[:i], e.toasts[i+1:]...)
			return true
		}
	}
	return false
}

func (e *Engine) Notifications() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.notifications.list()
}

// ClearNotification drops the badge of an app once the user opened it.
func (e *Engine) ClearNotification(appID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifications.remove(appID)
}
