package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndi_desktop/internal/catalog"
	"ndi_desktop/internal/domain"
)

type fakeContent struct {
	mu      sync.Mutex
	docs    map[string]domain.Content
	calls   map[string]int
	release chan struct{}
}

func newFakeContent(keys ...string) *fakeContent {
	f := &fakeContent{docs: make(map[string]domain.Content), calls: make(map[string]int)}
	for _, k := range keys {
		f.docs[k] = domain.Content{
			Pending: domain.Text{Title: k + " pending", Description: "à faire"},
			Success: domain.Text{Title: k + " success", Description: "réussi"},
			Failure: domain.Text{Title: k + " failure", Description: "raté"},
		}
	}
	return f
}

func (f *fakeContent) Fetch(ctx context.Context, key string) (domain.Content, error) {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[key]++
	c, ok := f.docs[key]
	if !ok {
		return domain.Content{}, fmt.Errorf("fetch %s: not found", key)
	}
	return c, nil
}

func (f *fakeContent) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

type memSnapshots struct {
	mu   sync.Mutex
	data map[string][]byte
	puts int
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{data: make(map[string][]byte)}
}

func (m *memSnapshots) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return v, nil
}

func (m *memSnapshots) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	m.puts++
	return nil
}

func (m *memSnapshots) putCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

func (m *memSnapshots) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type sent struct {
	Handle  string
	Type    string
	Payload any
}

type recordingTransport struct {
	mu   sync.Mutex
	sent []sent
}

func (r *recordingTransport) Send(handle, eventType string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{Handle: handle, Type: eventType, Payload: payload})
	return nil
}

func (r *recordingTransport) ofType(eventType string) []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sent
	for _, s := range r.sent {
		if s.Type == eventType {
			out = append(out, s)
		}
	}
	return out
}

type staticWindows map[string][]string

func (w staticWindows) HandlesFor(appID string) []string { return w[appID] }

type harness struct {
	engine    *Engine
	content   *fakeContent
	snapshots *memSnapshots
	transport *recordingTransport
}

func newHarness(t *testing.T, cat *catalog.Catalog, snapshots *memSnapshots) *harness {
	t.Helper()
	if snapshots == nil {
		snapshots = newMemSnapshots()
	}
	h := &harness{
		content:   newFakeContent(cat.ContentKeys()...),
		snapshots: snapshots,
		transport: &recordingTransport{},
	}
	h.engine = New(cat, h.content, h.snapshots, h.transport, Config{BasePath: "/ndi"}, zerolog.Nop())
	h.engine.AttachWindows(staticWindows{
		"mail":   {"win-mail"},
		"coffee": {"win-coffee"},
	})
	h.engine.Init(context.Background())
	h.engine.WaitContent()
	return h
}

func (h *harness) send(events ...domain.Event) {
	for _, ev := range events {
		h.engine.HandleEvent(context.Background(), ev)
	}
	h.engine.WaitContent()
}

// storyToSharing drives the default story up to the blocking cloud task.
var storyToSharing = []domain.Event{
	domain.AppOpened{AppID: "snake"},
	domain.GameOver{App: "snake", Score: 10},
	domain.AppOpened{AppID: "typing"},
	domain.Finished{App: "typing", WPM: 30},
	domain.Finished{App: "word"},
	domain.Interaction{App: "chatbot", Question: "réunion ?"},
	domain.WaterShortage{App: "coffee"},
	domain.Finished{App: "libreoffice"},
}

func TestInitStartsFromInitialSets(t *testing.T) {
	h := newHarness(t, catalog.Default(), nil)

	assert.Equal(t, []string{"open-snake"}, h.engine.UnlockedTasks())
	assert.Equal(t, []string{"mail", "snake", "typing"}, h.engine.UnlockedApps())
	assert.Equal(t, []string{"welcome"}, h.engine.UnlockedMails())
	assert.Equal(t, []string{"mail"}, h.engine.Notifications())
	assert.True(t, h.engine.ContentLoaded("open-snake"))
	assert.Equal(t, 1, h.content.callCount("mail-welcome.json"))
}

func TestResolutionIsIdempotent(t *testing.T) {
	h := newHarness(t, catalog.Default(), nil)
	ctx := context.Background()

	require.True(t, h.engine.CompleteTask(ctx, "open-snake"))
	tasks := h.engine.UnlockedTasks()
	puts := h.snapshots.putCount()

	for range 3 {
		assert.False(t, h.engine.CompleteTask(ctx, "open-snake"))
		assert.False(t, h.engine.FailTask(ctx, "open-snake"))
	}
	h.send(domain.AppOpened{AppID: "snake"}, domain.AppOpened{AppID: "snake"})

	assert.Equal(t, domain.TaskStatusCompleted, h.engine.TaskStatus("open-snake"))
	assert.Equal(t, tasks, h.engine.UnlockedTasks())
	assert.Equal(t, puts, h.snapshots.putCount())
	assert.False(t, h.engine.CompleteTask(ctx, "no-such-task"))
}

func TestUnlocksGrowUntilReset(t *testing.T) {
	h := newHarness(t, catalog.Default(), nil)

	prevTasks := h.engine.UnlockedTasks()
	prevApps := h.engine.UnlockedApps()
	prevMails := h.engine.UnlockedMails()
	for _, ev := range storyToSharing {
		h.send(ev)
		assert.Subset(t, h.engine.UnlockedTasks(), prevTasks)
		assert.Subset(t, h.engine.UnlockedApps(), prevApps)
		assert.Subset(t, h.engine.UnlockedMails(), prevMails)
		prevTasks = h.engine.UnlockedTasks()
		prevApps = h.engine.UnlockedApps()
		prevMails = h.engine.UnlockedMails()
	}
	require.Contains(t, prevTasks, "share-meeting-notes")

	h.engine.Reset(context.Background())
	h.engine.WaitContent()

	assert.Equal(t, []string{"open-snake"}, h.engine.UnlockedTasks())
	assert.Equal(t, []string{"mail", "snake", "typing"}, h.engine.UnlockedApps())
	assert.Equal(t, []string{"welcome"}, h.engine.UnlockedMails())
	assert.Equal(t, domain.TaskStatusPending, h.engine.TaskStatus("score-snake-30"))
	_, err := h.snapshots.Get(context.Background(), "ndi-progress")
	assert.Error(t, err)
}

// gateCatalog has two free tasks triggered by A and B and a blocking task
// triggered by C, all unlocked from the start.
func gateCatalog() *catalog.Catalog {
	c := catalog.New(
		[]domain.AppDefinition{{ID: "mail"}, {ID: "x"}},
		[]domain.TaskDefinition{
			{ID: "task-a", TriggerEventType: "x:a"},
			{ID: "task-b", TriggerEventType: "x:b"},
			{ID: "task-c", TriggerEventType: "x:c", IsBlocking: true, AllowedAppsWhileBlocking: []string{"x"}},
		},
		nil,
	)
	c.InitialTasks = []string{"task-a", "task-b", "task-c"}
	c.InitialApps = []string{"mail", "x"}
	return c
}

func TestBlockingTaskGatesOtherTasks(t *testing.T) {
	h := newHarness(t, gateCatalog(), nil)

	require.Equal(t, "task-c", h.engine.BlockingTask())

	h.send(domain.Interaction{App: "x"}, eventOf("x:a"), eventOf("x:b"))
	assert.Equal(t, domain.TaskStatusPending, h.engine.TaskStatus("task-a"))
	assert.Equal(t, domain.TaskStatusPending, h.engine.TaskStatus("task-b"))

	h.send(eventOf("x:c"))
	assert.Equal(t, domain.TaskStatusCompleted, h.engine.TaskStatus("task-c"))
	assert.Empty(t, h.engine.BlockingTask())

	h.send(eventOf("x:a"))
	assert.Equal(t, domain.TaskStatusCompleted, h.engine.TaskStatus("task-a"))
	assert.Equal(t, domain.TaskStatusPending, h.engine.TaskStatus("task-b"))
}

// triggerEvent is a decoded event with an arbitrary wire name.
type triggerEvent string

func (e triggerEvent) Type() string { return string(e) }

func eventOf(name string) domain.Event { return triggerEvent(name) }

func TestIrrelevantVerdictLeavesTaskPending(t *testing.T) {
	h := newHarness(t, catalog.Default(), nil)

	h.send(domain.AppOpened{AppID: "typing"}, domain.AppOpened{AppID: "mail"})

	assert.Equal(t, domain.TaskStatusPending, h.engine.TaskStatus("open-snake"))
	assert.Equal(t, []string{"open-snake"}, h.engine.UnlockedTasks())
}

func TestScoreBelowThresholdFailsOnce(t *testing.T) {
	h := newHarness(t, catalog.Default(), nil)

	h.send(domain.AppOpened{AppID: "snake"})
	require.Equal(t, "score-snake-30", h.engine.BlockingTask())

	h.send(domain.GameOver{App: "snake", Score: 25})
	assert.Equal(t, domain.TaskStatusFailed, h.engine.TaskStatus("score-snake-30"))
	assert.Contains(t, h.engine.UnlockedMails(), "snake-tips")
	assert.Contains(t, h.engine.UnlockedTasks(), "open-typing")

	h.send(domain.GameOver{App: "snake", Score: 35})
	assert.Equal(t, domain.TaskStatusFailed, h.engine.TaskStatus("score-snake-30"))
}

func TestFirstDeclaredTaskWinsTie(t *testing.T) {
	c := catalog.New(
		[]domain.AppDefinition{{ID: "mail"}},
		[]domain.TaskDefinition{
			{ID: "first", TriggerEventType: "x:a"},
			{ID: "second", TriggerEventType: "x:a"},
		},
		nil,
	)
	c.InitialTasks = []string{"second", "first"}
	c.InitialApps = []string{"mail"}
	h := newHarness(t, c, nil)

	h.send(eventOf("x:a"))
	assert.Equal(t, domain.TaskStatusCompleted, h.engine.TaskStatus("first"))
	assert.Equal(t, domain.TaskStatusPending, h.engine.TaskStatus("second"))

	h.send(eventOf("x:a"))
	assert.Equal(t, domain.TaskStatusCompleted, h.engine.TaskStatus("second"))
}

func TestCoffeeRefusedUnderAllowList(t *testing.T) {
	h := newHarness(t, catalog.Default(), nil)
	h.send(storyToSharing...)

	require.Equal(t, "share-meeting-notes", h.engine.BlockingTask())
	assert.True(t, h.engine.IsAppUnlocked("coffee"))

	ok, reason := h.engine.CanOpenApp("coffee")
	assert.False(t, ok)
	assert.Contains(t, reason, "share-meeting-notes")

	ok, _ = h.engine.CanOpenApp("cloud")
	assert.True(t, ok)
	ok, _ = h.engine.CanOpenApp("mail")
	assert.True(t, ok)
	ok, _ = h.engine.CanOpenApp("bun")
	assert.False(t, ok)
	assert.True(t, h.engine.IsAppUnlocked("secret-snake"))
}

func TestFixTaskLiftsRestriction(t *testing.T) {
	h := newHarness(t, catalog.Default(), nil)
	h.send(storyToSharing...)

	h.send(domain.DownloadAttempt{App: "cloud", FileName: "notes.docx"})
	require.Equal(t, domain.TaskStatusFailed, h.engine.TaskStatus("share-meeting-notes"))
	assert.Empty(t, h.engine.BlockingTask())
	assert.Equal(t, "share-meeting-notes", h.engine.RestrictingTask())
	ok, _ := h.engine.CanOpenApp("server-shield")
	assert.True(t, ok)
	ok, _ = h.engine.CanOpenApp("coffee")
	assert.False(t, ok)

	h.send(domain.Victory{App: "server-shield", Score: 100})
	assert.Equal(t, domain.TaskStatusCompleted, h.engine.TaskStatus("repair-cloud-services"))
	assert.Equal(t, domain.TaskStatusCompleted, h.engine.TaskStatus("share-meeting-notes"))
	assert.Empty(t, h.engine.RestrictingTask())
	ok, _ = h.engine.CanOpenApp("coffee")
	assert.True(t, ok)
	assert.Contains(t, h.engine.UnlockedTasks(), "register-nird")
}

func TestPersistenceRoundTrip(t *testing.T) {
	snapshots := newMemSnapshots()
	first := newHarness(t, catalog.Default(), snapshots)
	first.send(storyToSharing[:4]...)
	first.send(domain.MailMarkRead{MailID: "welcome"})
	want := first.engine.Snapshot()

	second := newHarness(t, catalog.Default(), snapshots)
	assert.Equal(t, want, second.engine.Snapshot())
	assert.True(t, second.engine.ContentLoaded("prepare-meeting-word"))
}

func TestRestoreRecoversFieldByField(t *testing.T) {
	snapshots := newMemSnapshots()
	raw := `{
		"taskStates": {"open-snake": {"status": "completed"}, "ghost": {"status": "completed"}, "score-snake-30": {"status": "weird"}},
		"unlockedTasks": ["open-snake", "score-snake-30", "ghost"],
		"unlockedApps": "not a list",
		"mailStates": {"welcome": {"read": true}}
	}`
	require.NoError(t, snapshots.Put(context.Background(), "ndi-progress", []byte(raw)))

	h := newHarness(t, catalog.Default(), snapshots)

	assert.Equal(t, []string{"open-snake", "score-snake-30"}, h.engine.UnlockedTasks())
	assert.Equal(t, []string{"mail", "snake", "typing"}, h.engine.UnlockedApps())
	assert.Equal(t, []string{"welcome"}, h.engine.UnlockedMails())
	assert.Equal(t, domain.TaskStatusCompleted, h.engine.TaskStatus("open-snake"))
	assert.Equal(t, domain.TaskStatusPending, h.engine.TaskStatus("score-snake-30"))
	assert.True(t, h.engine.Snapshot().MailStates["welcome"].Read)
}

func TestRestoreIgnoresMalformedSnapshot(t *testing.T) {
	snapshots := newMemSnapshots()
	require.NoError(t, snapshots.Put(context.Background(), "ndi-progress", []byte(`{not json`)))

	h := newHarness(t, catalog.Default(), snapshots)
	assert.Equal(t, []string{"open-snake"}, h.engine.UnlockedTasks())
}

func TestHandleEventDoesNotWaitForContent(t *testing.T) {
	cat := catalog.Default()
	content := newFakeContent(cat.ContentKeys()...)
	content.release = make(chan struct{})
	e := New(cat, content, newMemSnapshots(), &recordingTransport{}, Config{}, zerolog.Nop())
	e.Init(context.Background())

	e.HandleEvent(context.Background(), domain.AppOpened{AppID: "snake"})
	assert.Equal(t, domain.TaskStatusCompleted, e.TaskStatus("open-snake"))

	view := e.MailboxView()
	require.Len(t, view.Tasks, 2)
	assert.Equal(t, "score-snake-30", view.Tasks[0].ID)
	assert.Equal(t, "Chargement...", view.Tasks[0].Title)
	assert.Equal(t, "...", view.Tasks[0].Description)

	close(content.release)
	e.WaitContent()
	view = e.MailboxView()
	assert.Equal(t, "score-snake-30.json pending", view.Tasks[0].Title)
	assert.Equal(t, "open-snake.json success", view.Tasks[1].Title)
}

func TestFailureWithoutContentStillUnlocks(t *testing.T) {
	h := newHarness(t, catalog.Default(), nil)
	h.content.mu.Lock()
	delete(h.content.docs, "score-snake-30.json")
	h.content.mu.Unlock()

	h.send(domain.AppOpened{AppID: "snake"})
	require.Equal(t, 1, h.content.callCount("score-snake-30.json"))
	require.False(t, h.engine.ContentLoaded("score-snake-30"))

	h.send(domain.GameOver{App: "snake", Score: 25})
	assert.Equal(t, domain.TaskStatusFailed, h.engine.TaskStatus("score-snake-30"))
	assert.Contains(t, h.engine.UnlockedTasks(), "open-typing")
	assert.Contains(t, h.engine.UnlockedMails(), "snake-tips")

	raw, err := h.snapshots.Get(context.Background(), "ndi-progress")
	require.NoError(t, err)
	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))
	assert.Equal(t, domain.TaskStatusFailed, snap.TaskStates["score-snake-30"].Status)

	var item *domain.TaskItem
	for _, it := range h.engine.MailboxView().Tasks {
		if it.ID == "score-snake-30" {
			item = &it
		}
	}
	require.NotNil(t, item)
	assert.True(t, item.Failed)
	assert.Equal(t, "Chargement...", item.Title)
	assert.Equal(t, "...", item.Description)

	for _, toast := range h.engine.Toasts() {
		assert.NotEqual(t, "Mission échouée", toast.Message)
	}
}

func TestResetDropsContentFetchedBefore(t *testing.T) {
	h := newHarness(t, catalog.Default(), nil)
	release := make(chan struct{})
	h.content.release = release

	h.engine.HandleEvent(context.Background(), domain.AppOpened{AppID: "snake"})
	require.Contains(t, h.engine.UnlockedTasks(), "score-snake-30")

	h.engine.Reset(context.Background())
	close(release)
	h.engine.WaitContent()

	assert.Equal(t, []string{"open-snake"}, h.engine.UnlockedTasks())
	assert.False(t, h.engine.ContentLoaded("score-snake-30"))
	assert.NotContains(t, h.engine.Snapshot().TaskStates, "score-snake-30")
	assert.True(t, h.engine.ContentLoaded("open-snake"))
	assert.Equal(t, 1, h.content.callCount("score-snake-30.json"))
	for _, toast := range h.engine.Toasts() {
		assert.NotEqual(t, "score-snake-30.json pending", toast.Title)
	}
}

func TestMailboxViewOrderAndFlags(t *testing.T) {
	h := newHarness(t, catalog.Default(), nil)
	h.send(domain.AppOpened{AppID: "snake"})

	view := h.engine.MailboxView()
	require.Len(t, view.Tasks, 2)
	assert.Equal(t, "score-snake-30", view.Tasks[0].ID)
	assert.False(t, view.Tasks[0].Blocked)
	assert.Equal(t, "open-snake", view.Tasks[1].ID)
	assert.True(t, view.Tasks[1].Completed)
	assert.False(t, view.Tasks[1].Blocked)

	h.send(domain.GameOver{App: "snake", Score: 3})
	view = h.engine.MailboxView()
	ids := make([]string, 0, len(view.Tasks))
	for _, item := range view.Tasks {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []string{"open-typing", "score-snake-30", "open-snake"}, ids)
	assert.Equal(t, "score-snake-30.json failure", view.Tasks[1].Title)

	require.Len(t, view.Mails, 2)
	assert.Equal(t, "welcome", view.Mails[0].ID)
	assert.Equal(t, "Direction", view.Mails[0].From)
	assert.Equal(t, "mail-snake-tips.json pending", view.Mails[1].Title)
}

func TestMailboxPushes(t *testing.T) {
	h := newHarness(t, catalog.Default(), nil)

	h.send(domain.MailRequestData{})
	pushes := h.transport.ofType(domain.EventMailUpdateData)
	require.NotEmpty(t, pushes)
	last := pushes[len(pushes)-1]
	assert.Equal(t, "win-mail", last.Handle)
	update, ok := last.Payload.(domain.MailboxUpdate)
	require.True(t, ok)
	assert.False(t, update.Mails[0].Read)

	h.send(domain.MailMarkRead{MailID: "welcome"})
	pushes = h.transport.ofType(domain.EventMailUpdateData)
	update = pushes[len(pushes)-1].Payload.(domain.MailboxUpdate)
	assert.True(t, update.Mails[0].Read)

	before := len(h.transport.ofType(domain.EventMailUpdateData))
	h.send(domain.MailMarkRead{MailID: "thanks"})
	assert.Len(t, h.transport.ofType(domain.EventMailUpdateData), before)
}

func TestFailureModePushes(t *testing.T) {
	h := newHarness(t, catalog.Default(), nil)

	h.send(domain.StateRequest{App: "coffee"})
	pushes := h.transport.ofType("coffee:setFailureMode")
	require.NotEmpty(t, pushes)
	assert.Equal(t, domain.FailureMode{Value: false}, pushes[len(pushes)-1].Payload)

	h.send(storyToSharing[:6]...)
	assert.True(t, h.engine.FailureMode("coffee"))
	pushes = h.transport.ofType("coffee:setFailureMode")
	assert.Equal(t, "win-coffee", pushes[len(pushes)-1].Handle)
	assert.Equal(t, domain.FailureMode{Value: true}, pushes[len(pushes)-1].Payload)

	h.send(domain.WaterShortage{App: "coffee"})
	assert.Equal(t, domain.TaskStatusFailed, h.engine.TaskStatus("make-coffee-fail"))
	assert.True(t, h.engine.FailureMode("coffee"))
}

func TestToasts(t *testing.T) {
	h := newHarness(t, catalog.Default(), nil)
	clock := time.Date(2025, 12, 4, 20, 0, 0, 0, time.UTC)
	h.engine.mu.Lock()
	h.engine.now = func() time.Time { return clock }
	h.engine.toasts = nil
	h.engine.mu.Unlock()

	h.send(domain.AppOpened{AppID: "snake"})
	toasts := h.engine.Toasts()
	require.Len(t, toasts, 2)
	assert.Equal(t, "open-snake.json success", toasts[0].Title)
	assert.Equal(t, "Mission accomplie", toasts[0].Message)
	assert.Equal(t, "score-snake-30.json pending", toasts[1].Title)
	assert.Equal(t, "Nouveau message reçu", toasts[1].Message)

	h.send(domain.GameOver{App: "snake", Score: 1})
	toasts = h.engine.Toasts()
	assert.Contains(t, toasts, domain.Toast{ID: toasts[2].ID, Title: "score-snake-30.json failure", Message: "Mission échouée", CreatedAt: clock})

	h.send(domain.AppOpened{AppID: "typing"})
	toasts = h.engine.Toasts()
	require.Len(t, toasts, 4)
	assert.Equal(t, "score-snake-30.json failure", toasts[0].Title)

	require.True(t, h.engine.DismissToast(toasts[0].ID))
	assert.False(t, h.engine.DismissToast(toasts[0].ID))
	assert.Len(t, h.engine.Toasts(), 3)

	clock = clock.Add(6 * time.Second)
	assert.Empty(t, h.engine.Toasts())
}

func TestNotifications(t *testing.T) {
	h := newHarness(t, catalog.Default(), nil)
	h.engine.ClearNotification("mail")
	assert.Empty(t, h.engine.Notifications())

	h.send(domain.AppOpened{AppID: "snake"})
	assert.Equal(t, []string{"mail"}, h.engine.Notifications())
}

func TestStateReadModel(t *testing.T) {
	h := newHarness(t, catalog.Default(), nil)
	h.send(domain.AppOpened{AppID: "snake"})

	state := h.engine.State()
	assert.Equal(t, "score-snake-30", state.BlockingTask)
	apps := make(map[string]domain.AppItem)
	for _, app := range state.Apps {
		apps[app.ID] = app
	}
	assert.Equal(t, "/ndi/apps/snake", apps["snake"].URL)
	assert.True(t, apps["snake"].Openable)
	assert.True(t, apps["typing"].Unlocked)
	assert.False(t, apps["typing"].Openable)
	assert.True(t, apps["mail"].Openable)
	assert.False(t, apps["word"].Unlocked)
	assert.True(t, apps["secret-snake"].Secret)
}

func TestRunDecodesEnvelopes(t *testing.T) {
	h := newHarness(t, catalog.Default(), nil)
	inbox := make(chan domain.Envelope, 4)

	data, err := json.Marshal(domain.AppOpened{AppID: "snake"})
	require.NoError(t, err)
	inbox <- domain.Envelope{Source: domain.SourceID, Type: "app:opened", Data: []byte(`{"appId": 7}`)}
	inbox <- domain.Envelope{Source: domain.SourceID, Type: "app:opened", Data: data}
	inbox <- domain.Envelope{Source: domain.SourceID, Type: "snake:gameover", Data: []byte(`{"score": 31}`)}
	close(inbox)

	h.engine.Run(context.Background(), inbox)
	h.engine.WaitContent()

	assert.Equal(t, domain.TaskStatusCompleted, h.engine.TaskStatus("open-snake"))
	assert.Equal(t, domain.TaskStatusCompleted, h.engine.TaskStatus("score-snake-30"))
}
