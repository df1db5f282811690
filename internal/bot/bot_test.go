package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	"daily-tracker/internal/config"
	"daily-tracker/internal/logger"
	"daily-tracker/internal/model"
	"daily-tracker/internal/repository"
	"daily-tracker/internal/service"
)

const chatID int64 = 100

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.MessageConfig
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	close(f.updates)
}

func (f *fakeAPI) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1].Text
}

func (f *fakeAPI) allText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var parts []string
	for _, m := range f.sent {
		parts = append(parts, m.Text)
	}
	return strings.Join(parts, "\n---\n")
}

func (f *fakeAPI) sentTo(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.sent {
		if m.ChatID == id {
			n++
		}
	}
	return n
}

type fixture struct {
	bot       *Bot
	api       *fakeAPI
	users     *repository.UserRepository
	kv        *repository.KVRepository
	registry  *service.SessionRegistry
	scheduler *service.SchedulerService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.Discard()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.NewDB(fmt.Sprintf("file:bot_%s?mode=memory&cache=shared", name), log)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	users := repository.NewUserRepository(db)
	kv := repository.NewKVRepository(db)
	scheduler := service.NewSchedulerService(time.UTC)
	notifications := service.NewNotificationService(scheduler, users, log)
	registry := service.NewSessionRegistry(kv, "sessions", notifications, time.UTC, log)
	digests := service.NewDigestService(registry, time.UTC)
	cfg := &config.Config{Location: time.UTC, ReminderHours: 0, ReminderMinutes: 5}

	api := &fakeAPI{updates: make(chan tgbotapi.Update, 16)}
	b := newBot(api, users, registry, digests, cfg, log)
	notifications.Attach(b)

	return &fixture{bot: b, api: api, users: users, kv: kv, registry: registry, scheduler: scheduler}
}

func privateChat() *tgbotapi.Chat {
	return &tgbotapi.Chat{ID: chatID, Type: "private"}
}

func sender() *tgbotapi.User {
	return &tgbotapi.User{ID: chatID, FirstName: "Ana"}
}

func (f *fixture) say(t *testing.T, text string) {
	t.Helper()
	msg := &tgbotapi.Message{Chat: privateChat(), From: sender(), Text: text}
	if strings.HasPrefix(text, "/") {
		end := strings.IndexByte(text, ' ')
		if end < 0 {
			end = len(text)
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: end}}
	}
	require.NoError(t, f.bot.handleMessage(context.Background(), msg))
}

func (f *fixture) press(t *testing.T, data string) {
	t.Helper()
	cb := &tgbotapi.CallbackQuery{ID: "cb", From: sender(), Message: &tgbotapi.Message{Chat: privateChat()}, Data: data}
	require.NoError(t, f.bot.handleCallback(context.Background(), cb))
}

func (f *fixture) activities(t *testing.T) []model.Activity {
	t.Helper()
	m, err := f.registry.For(context.Background(), chatID)
	require.NoError(t, err)
	return m.Activities()
}

func (f *fixture) seed(t *testing.T, task, minutes string) model.Activity {
	t.Helper()
	m, err := f.registry.For(context.Background(), chatID)
	require.NoError(t, err)
	res, err := m.Add(context.Background(), service.AddInput{Task: task, Minutes: minutes, Date: time.Now(), Clock: time.Now()})
	require.NoError(t, err)
	return res.Activity
}

func (f *fixture) addThroughForm(t *testing.T, task string) {
	t.Helper()
	for _, step := range []string{"/new", task, btnStudy, "1", "30", "tomorrow", "15:45", btnSkip, btnSkip} {
		f.say(t, step)
	}
}

func TestNewConversationAddsActivity(t *testing.T) {
	f := newFixture(t)
	f.say(t, "/start")
	require.Contains(t, f.api.lastText(), "Reminders are on")
	f.addThroughForm(t, "Read")

	acts := f.activities(t)
	require.Len(t, acts, 1)
	require.Equal(t, "Read", acts[0].Task)
	require.Equal(t, model.CategoryStudy, acts[0].Category)
	require.Equal(t, model.Minutes(90), acts[0].Duration)
	require.True(t, strings.HasSuffix(acts[0].Time, "15:45"))
	require.False(t, acts[0].Done)

	require.Contains(t, f.api.allText(), "Activity saved")
	require.Contains(t, f.api.allText(), "Reminder scheduled")
	require.Equal(t, 1, f.scheduler.Pending())

	stored, ok, err := f.kv.Get(context.Background(), "sessions:100")
	require.NoError(t, err)
	require.True(t, ok)
	require.Contains(t, stored, `"task":"Read"`)
}

func TestNewConversationValidation(t *testing.T) {
	f := newFixture(t)
	f.say(t, "/start")
	for _, step := range []string{"/new", "Read", btnSkip, btnSkip, btnSkip, "tomorrow", "10:00", btnSkip, btnSkip} {
		f.say(t, step)
	}

	require.Contains(t, f.api.lastText(), "fill in the task and a valid duration")
	require.Empty(t, f.activities(t))
	require.Zero(t, f.scheduler.Pending())
}

func TestNewConversationRepromptsBadDate(t *testing.T) {
	f := newFixture(t)
	f.say(t, "/start")
	for _, step := range []string{"/new", "Read", btnTraining, "0", "45", "31/02/2025"} {
		f.say(t, step)
	}
	require.Contains(t, f.api.lastText(), "invalid date")

	for _, step := range []string{"tomorrow", "25:00"} {
		f.say(t, step)
	}
	require.Contains(t, f.api.lastText(), "hour must be between 0 and 23")

	for _, step := range []string{"07:00", "0", "0"} {
		f.say(t, step)
	}
	acts := f.activities(t)
	require.Len(t, acts, 1)
	require.Equal(t, model.CategoryTraining, acts[0].Category)
	require.Zero(t, f.scheduler.Pending())
}

func TestMutedUserGetsNoReminder(t *testing.T) {
	f := newFixture(t)
	f.say(t, "/start")
	f.say(t, "/notify off")
	require.Contains(t, f.api.lastText(), "Reminders are off")
	f.say(t, "/start")
	require.Contains(t, f.api.lastText(), "Reminders are off, so nothing will be scheduled")

	f.addThroughForm(t, "Read")
	require.Len(t, f.activities(t), 1)
	require.Zero(t, f.scheduler.Pending())
	require.Contains(t, f.api.allText(), "no reminder was scheduled")

	f.say(t, "/notify on")
	f.addThroughForm(t, "Run")
	require.Equal(t, 1, f.scheduler.Pending())
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	f := newFixture(t)
	f.say(t, "/start")
	a := f.seed(t, "Read", "30")

	f.say(t, "/delete "+a.ID)
	require.Contains(t, f.api.lastText(), "Delete «Read»")
	require.Len(t, f.activities(t), 1)

	f.say(t, btnCancel)
	require.Contains(t, f.api.lastText(), "Nothing was deleted")
	require.Len(t, f.activities(t), 1)

	f.press(t, cbDeletePrefix+a.ID)
	f.say(t, "maybe")
	require.Len(t, f.activities(t), 1)
	f.say(t, btnConfirm)
	require.Empty(t, f.activities(t))
	require.Contains(t, f.api.allText(), "«Read» deleted")
}

func TestDeleteUnknownID(t *testing.T) {
	f := newFixture(t)
	f.say(t, "/start")
	f.say(t, "/delete 42")
	require.Contains(t, f.api.lastText(), "Activity not found")
}

func TestToggleAndFilterCallbacks(t *testing.T) {
	f := newFixture(t)
	f.say(t, "/start")
	a := f.seed(t, "Read", "30")
	f.seed(t, "Run", "20")

	f.press(t, cbTogglePrefix+a.ID)
	require.True(t, f.activities(t)[0].Done)
	require.False(t, f.activities(t)[1].Done)

	f.press(t, cbFilterPrefix+"done")
	require.Contains(t, f.api.lastText(), "Read")
	require.NotContains(t, f.api.lastText(), "Run")

	f.say(t, "/done "+a.ID)
	require.False(t, f.activities(t)[0].Done)
	require.Contains(t, f.api.lastText(), "No activities match this filter")

	f.say(t, "/filter bogus")
	require.Contains(t, f.api.lastText(), "unknown filter")
}

func TestSortCycles(t *testing.T) {
	f := newFixture(t)
	f.say(t, "/start")
	f.seed(t, "beta", "10")
	f.seed(t, "Alpha", "10")

	f.say(t, "/sort")
	text := f.api.lastText()
	require.Contains(t, text, "A→Z")
	require.Less(t, strings.Index(text, "Alpha"), strings.Index(text, "beta"))

	f.press(t, cbSort)
	text = f.api.lastText()
	require.Contains(t, text, "Z→A")
	require.Less(t, strings.Index(text, "beta"), strings.Index(text, "Alpha"))

	f.say(t, "/sort")
	require.Contains(t, f.api.lastText(), "as added")
}

func TestEditConversation(t *testing.T) {
	f := newFixture(t)
	f.say(t, "/start")
	a := f.seed(t, "Read", "30")

	f.say(t, "/edit "+a.ID)
	f.say(t, "Swim")
	f.say(t, "2")
	f.say(t, btnSkip)

	acts := f.activities(t)
	require.Len(t, acts, 1)
	require.Equal(t, "Swim", acts[0].Task)
	require.Equal(t, model.Minutes(150), acts[0].Duration)
	require.Equal(t, a.Time, acts[0].Time)
	require.Contains(t, f.api.allText(), "Saved «Swim», 2h 30 min")
}

func TestEditValidationKeepsActivity(t *testing.T) {
	f := newFixture(t)
	f.say(t, "/start")
	a := f.seed(t, "Read", "30")

	f.press(t, cbEditPrefix+a.ID)
	f.say(t, btnSkip)
	f.say(t, "0")
	f.say(t, "0")

	require.Contains(t, f.api.lastText(), "Nothing was changed")
	require.Equal(t, model.Minutes(30), f.activities(t)[0].Duration)
}

func TestCancelDialog(t *testing.T) {
	f := newFixture(t)
	f.say(t, "/start")
	f.say(t, "/new")
	f.say(t, btnCancelDialog)
	require.Contains(t, f.api.lastText(), "Input cancelled")
	require.False(t, f.bot.hasConversation(chatID))
}

func TestCorruptCollectionIsReported(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.kv.Set(context.Background(), "sessions:100", "{broken"))

	f.say(t, "/list")
	require.Contains(t, f.api.lastText(), "could not be read")

	raw, _, err := f.kv.Get(context.Background(), "sessions:100")
	require.NoError(t, err)
	require.Equal(t, "{broken", raw)
}

func TestSendDailyReportsSkipsMutedUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.users.UpsertFromTelegram(ctx, 1, "A", "", "")
	require.NoError(t, err)
	_, err = f.users.UpsertFromTelegram(ctx, 2, "B", "", "")
	require.NoError(t, err)
	require.NoError(t, f.users.SetRemindersMuted(ctx, 2, true))

	require.NoError(t, f.bot.SendDailyReports(ctx))
	require.Equal(t, 1, f.api.sentTo(1))
	require.Zero(t, f.api.sentTo(2))
	require.Contains(t, f.api.lastText(), "Activity report")
}

func TestSendReminderEscapes(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.bot.SendReminder(chatID, service.ReminderTitle, "<Read> starts soon"))
	require.Equal(t, "🔔 <b>Activity reminder</b>\n&lt;Read&gt; starts soon", f.api.lastText())
}

func TestStartIgnoresGroupChats(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	f.api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: -5, Type: "group"}, From: sender(), Text: "hello",
	}}
	f.api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{Chat: privateChat(), From: sender(), Text: "hello"}}

	done := make(chan error, 1)
	go func() { done <- f.bot.Start(ctx) }()

	require.Eventually(t, func() bool { return f.api.sentTo(chatID) == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	require.Zero(t, f.api.sentTo(-5))
}
