package orchestrator

import (
	"context"
	"encoding/json"
	"sort"

	"ndi_desktop/internal/domain"
)

// Snapshot returns the persisted subset of the current state.
func (e *Engine) Snapshot() domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		TaskStates:    make(map[string]domain.TaskSnapshot, len(e.tasks)),
		UnlockedTasks: e.unlockedTasks.list(),
		UnlockedApps:  e.unlockedApps.list(),
		MailStates:    make(map[string]domain.MailSnapshot, len(e.mails)),
		UnlockedMails: e.unlockedMails.list(),
	}
	for id, st := range e.tasks {
		snap.TaskStates[id] = domain.TaskSnapshot{Status: st.Status}
	}
	for id, st := range e.mails {
		snap.MailStates[id] = domain.MailSnapshot{Read: st.Read}
	}
	return snap
}

func (e *Engine) persistLocked(ctx context.Context) {
	data, err := json.Marshal(e.snapshotLocked())
	if err != nil {
		e.logger.Error().Err(err).Msg("encode progress snapshot")
		return
	}
	if err := e.snapshots.Put(ctx, e.cfg.StorageKey, data); err != nil {
		e.logger.Error().Err(err).Msg("save progress snapshot")
	}
}

// rawSnapshot decodes each field on its own so one bad field does not void
// the others.
type rawSnapshot struct {
	TaskStates    json.RawMessage `json:"taskStates"`
	UnlockedTasks json.RawMessage `json:"unlockedTasks"`
	UnlockedApps  json.RawMessage `json:"unlockedApps"`
	MailStates    json.RawMessage `json:"mailStates"`
	UnlockedMails json.RawMessage `json:"unlockedMails"`
}

func (e *Engine) restoreLocked(ctx context.Context) {
	data, err := e.snapshots.Get(ctx, e.cfg.StorageKey)
	if err != nil {
		e.logger.Info().Err(err).Msg("no saved progress, starting fresh")
		return
	}

	var raw rawSnapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		e.logger.Warn().Err(err).Msg("saved progress is malformed, starting fresh")
		return
	}

	if ids, ok := e.decodeIDs("unlockedTasks", raw.UnlockedTasks); ok {
		e.unlockedTasks = newIDSet(e.knownIDs(ids, func(id string) bool {
			_, ok := e.catalog.Task(id)
			return ok
		}))
	}
	if ids, ok := e.decodeIDs("unlockedApps", raw.UnlockedApps); ok {
		e.unlockedApps = newIDSet(e.knownIDs(ids, func(id string) bool {
			_, ok := e.catalog.App(id)
			return ok
		}))
	}
	if ids, ok := e.decodeIDs("unlockedMails", raw.UnlockedMails); ok {
		e.unlockedMails = newIDSet(e.knownIDs(ids, func(id string) bool {
			_, ok := e.catalog.Mail(id)
			return ok
		}))
	}

	if len(raw.TaskStates) > 0 {
		var states map[string]domain.TaskSnapshot
		if err := json.Unmarshal(raw.TaskStates, &states); err != nil {
			e.logger.Warn().Err(err).Str("field", "taskStates").Msg("ignoring malformed snapshot field")
		} else {
			for _, id := range sortedKeys(states) {
				st := states[id]
				if _, ok := e.catalog.Task(id); !ok || !st.Status.Valid() {
					e.logger.Debug().Str("task", id).Str("status", string(st.Status)).Msg("dropping snapshot task state")
					continue
				}
				e.taskStateLocked(id).Status = st.Status
			}
		}
	}

	if len(raw.MailStates) > 0 {
		var states map[string]domain.MailSnapshot
		if err := json.Unmarshal(raw.MailStates, &states); err != nil {
			e.logger.Warn().Err(err).Str("field", "mailStates").Msg("ignoring malformed snapshot field")
		} else {
			for id, st := range states {
				if _, ok := e.catalog.Mail(id); !ok {
					continue
				}
				e.mailStateLocked(id).Read = st.Read
			}
		}
	}
}

func (e *Engine) decodeIDs(field string, raw json.RawMessage) ([]string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, false
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		e.logger.Warn().Err(err).Str("field", field).Msg("ignoring malformed snapshot field")
		return nil, false
	}
	return ids, true
}

func (e *Engine) knownIDs(ids []string, known func(string) bool) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !known(id) {
			e.logger.Debug().Str("id", id).Msg("dropping unknown snapshot id")
			continue
		}
		out = append(out, id)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
