package orchestrator

import "ndi_desktop/internal/domain"

type contentKind string

const (
	kindTask contentKind = "task"
	kindMail contentKind = "mail"
)

// loadContentLocked starts one background fetch per id still lacking
// content. A fetch already in flight for the same id is not repeated.
func (e *Engine) loadContentLocked(taskIDs, mailIDs []string) {
	if e.content == nil {
		return
	}
	for _, id := range taskIDs {
		def, ok := e.catalog.Task(id)
		if !ok || def.ContentKey == "" {
			continue
		}
		if st, ok := e.tasks[id]; ok && st.Content != nil {
			continue
		}
		e.startFetchLocked(kindTask, id, def.ContentKey)
	}
	for _, id := range mailIDs {
		def, ok := e.catalog.Mail(id)
		if !ok || def.ContentKey == "" {
			continue
		}
		if st, ok := e.mails[id]; ok && st.Content != nil {
			continue
		}
		e.startFetchLocked(kindMail, id, def.ContentKey)
	}
}

func (e *Engine) startFetchLocked(kind contentKind, id, key string) {
	flight := string(kind) + ":" + id
	if e.inflight[flight] {
		return
	}
	e.inflight[flight] = true

	ctx, gen := e.fetchCtx, e.gen
	e.fetches.Add(1)
	go func() {
		defer e.fetches.Done()
		c, err := e.content.Fetch(ctx, key)
		e.applyContent(gen, kind, id, key, c, err)
	}()
}

func (e *Engine) applyContent(gen uint64, kind contentKind, id, key string, c domain.Content, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.gen {
		e.logger.Debug().Str(string(kind), id).Str("key", key).Msg("drop content from before reset")
		return
	}
	delete(e.inflight, string(kind)+":"+id)
	if err != nil {
		e.logger.Warn().Err(err).Str(string(kind), id).Str("key", key).Msg("load content")
		return
	}

	switch kind {
	case kindTask:
		state := e.taskStateLocked(id)
		state.Content = &c
		if state.Status == domain.TaskStatusPending && e.unlockedTasks.contains(id) && !c.Pending.Empty() {
			e.toastLocked(c.Pending.Title, toastNewMessage)
		}
	case kindMail:
		e.mailStateLocked(id).Content = &c
	}
	e.logger.Debug().Str(string(kind), id).Str("key", key).Msg("content loaded")
	e.publishMailboxLocked()
}

// WaitContent blocks until every content fetch started so far has settled.
func (e *Engine) WaitContent() {
	e.fetches.Wait()
}

// ContentLoaded reports whether display content is present for a task.
func (e *Engine) ContentLoaded(taskID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.tasks[taskID]
	return ok && st.Content != nil
}
