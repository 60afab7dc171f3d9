package notify

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanielHaim/PanicDeck/app/models"
)

func strPtr(s string) *string {
	return &s
}

func newTestNotification(project models.Project) Notification {
	return Notification{
		Status:  StatusNew,
		Project: project,
		Report: models.Report{
			ID:       7,
			Title:    "called unwrap on an empty value in main:10",
			LastSeen: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		Event: models.ReportEvent{
			Backtrace: "0: main::run",
			Log:       `[{"ts":1,"lvl":2,"msg":"boot"}]`,
		},
	}
}

func TestSendWebhook(t *testing.T) {
	t.Parallel()

	t.Run("posts the generic payload", func(t *testing.T) {
		t.Parallel()

		var got map[string]interface{}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, &got))
		}))
		defer server.Close()

		d := NewDispatcher(nil, Config{BaseURL: "https://panicdeck.example"})
		n := newTestNotification(models.Project{ID: 3, Name: "Roadster", WebhookURL: strPtr(server.URL)})
		env := models.Environment{Name: "production"}
		n.Environment = &env

		require.NoError(t, d.sendWebhook(&n, d.reportURL(&n)))

		assert.Equal(t, "new", got["status"])
		assert.Equal(t, "called unwrap on an empty value in main:10", got["title"])
		assert.Equal(t, "Roadster", got["project"])
		assert.Equal(t, "production", got["environment"])
		assert.Equal(t, "0: main::run", got["backtrace"])
		assert.Equal(t, "https://panicdeck.example/view-report/7", got["url"])

		logEntries, ok := got["log"].([]interface{})
		require.True(t, ok)
		require.Len(t, logEntries, 1)
	})

	t.Run("empty log is sent as empty array", func(t *testing.T) {
		t.Parallel()

		var got map[string]interface{}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, &got))
		}))
		defer server.Close()

		d := NewDispatcher(nil, Config{})
		n := newTestNotification(models.Project{Name: "Roadster", WebhookURL: strPtr(server.URL)})
		n.Event.Log = ""

		require.NoError(t, d.sendWebhook(&n, "url"))
		assert.Equal(t, []interface{}{}, got["log"])
		assert.Nil(t, got["environment"])
	})

	t.Run("no webhook configured is a no-op", func(t *testing.T) {
		t.Parallel()

		d := NewDispatcher(nil, Config{})
		n := newTestNotification(models.Project{Name: "Roadster"})
		assert.NoError(t, d.sendWebhook(&n, "url"))
	})

	t.Run("non-2xx response is an error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		d := NewDispatcher(nil, Config{})
		n := newTestNotification(models.Project{Name: "Roadster", WebhookURL: strPtr(server.URL)})
		assert.Error(t, d.sendWebhook(&n, "url"))
	})
}

func TestSendSlackWebhook(t *testing.T) {
	t.Parallel()

	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
	}))
	defer server.Close()

	d := NewDispatcher(nil, Config{BaseURL: "https://panicdeck.example"})
	n := newTestNotification(models.Project{Name: "Roadster", SlackWebhookURL: strPtr(server.URL)})

	require.NoError(t, d.sendSlackWebhook(&n, d.reportURL(&n)))

	assert.Equal(t, "PanicDeck", got["username"])
	assert.Equal(t, n.Headline(), got["text"])

	blocks, ok := got["blocks"].([]interface{})
	require.True(t, ok)
	require.Len(t, blocks, 2)

	section := blocks[0].(map[string]interface{})
	assert.Equal(t, "section", section["type"])
	text := section["text"].(map[string]interface{})
	assert.Contains(t, text["text"], "New report on *Roadster*")
}

func TestSendTeamsWebhook(t *testing.T) {
	t.Parallel()

	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
	}))
	defer server.Close()

	d := NewDispatcher(nil, Config{BaseURL: "https://panicdeck.example"})
	n := newTestNotification(models.Project{Name: "Roadster", TeamsWebhookURL: strPtr(server.URL)})

	require.NoError(t, d.sendTeamsWebhook(&n, d.reportURL(&n)))

	assert.Equal(t, "message", got["type"])
	attachments := got["attachments"].([]interface{})
	require.Len(t, attachments, 1)

	content := attachments[0].(map[string]interface{})["content"].(map[string]interface{})
	assert.Equal(t, "AdaptiveCard", content["type"])

	actions := content["actions"].([]interface{})
	require.Len(t, actions, 1)
	assert.Equal(t, "https://panicdeck.example/view-report/7", actions[0].(map[string]interface{})["url"])
}

func TestSendPushover(t *testing.T) {
	var gotForm map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
	}))
	defer server.Close()

	original := pushoverAPIURL
	pushoverAPIURL = server.URL
	defer func() { pushoverAPIURL = original }()

	d := NewDispatcher(nil, Config{BaseURL: "https://panicdeck.example", PushoverAppToken: "app-token"})
	n := newTestNotification(models.Project{Name: "Roadster"})
	user := models.User{Email: "alice@example.com", PushoverUserKey: strPtr("user-key")}

	require.NoError(t, d.sendPushover(&n, &user, d.reportURL(&n)))

	assert.Equal(t, "app-token", gotForm["token"][0])
	assert.Equal(t, "user-key", gotForm["user"][0])
	assert.Equal(t, n.Headline(), gotForm["message"][0])
	assert.Equal(t, "https://panicdeck.example/view-report/7", gotForm["url"][0])
}

func TestSendPushoverSkipsWithoutKey(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(nil, Config{PushoverAppToken: "app-token"})
	n := newTestNotification(models.Project{Name: "Roadster"})
	user := models.User{Email: "alice@example.com"}

	assert.NoError(t, d.sendPushover(&n, &user, "url"))
}

func TestSendSlackBot(t *testing.T) {
	var gotForm map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
	}))
	defer server.Close()

	original := slackPostMessageURL
	slackPostMessageURL = server.URL
	defer func() { slackPostMessageURL = original }()

	d := NewDispatcher(nil, Config{BaseURL: "https://panicdeck.example"})
	n := newTestNotification(models.Project{
		Name:          "Roadster",
		SlackBotToken: strPtr("xoxb-token"),
		SlackChannel:  strPtr("#errors"),
	})

	require.NoError(t, d.sendSlackBot(&n, d.reportURL(&n)))

	assert.Equal(t, "xoxb-token", gotForm["token"][0])
	assert.Equal(t, "#errors", gotForm["channel"][0])
	assert.Equal(t, n.Headline(), gotForm["text"][0])

	var blocks []interface{}
	require.NoError(t, json.Unmarshal([]byte(gotForm["blocks"][0]), &blocks))
	assert.Len(t, blocks, 2)
}

func TestSendSlackBotSkipsWhenUnconfigured(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(nil, Config{})
	n := newTestNotification(models.Project{Name: "Roadster", SlackBotToken: strPtr("xoxb-token")})

	// a token without a channel is not a usable bot setup
	assert.NoError(t, d.sendSlackBot(&n, "url"))
}

func TestDispatcherDeliversQueuedInOrder(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var titles []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &payload))

		mu.Lock()
		titles = append(titles, payload["title"].(string))
		mu.Unlock()
	}))
	defer server.Close()

	d := NewDispatcher(nil, Config{BaseURL: "https://panicdeck.example"})
	d.subscribers = func(projectID uint) ([]models.ProjectSubscriber, error) {
		return nil, nil
	}
	d.Start()

	project := models.Project{ID: 3, Name: "Roadster", WebhookURL: strPtr(server.URL)}

	first := newTestNotification(project)
	first.Report.Title = "first report"
	second := newTestNotification(project)
	second.Report.Title = "second report"

	d.Enqueue(first)
	d.Enqueue(second)
	d.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, titles, 2)
	assert.Equal(t, "first report", titles[0])
	assert.Equal(t, "second report", titles[1])
}

func TestDispatcherFailingChannelDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	delivered := make(chan struct{}, 1)
	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered <- struct{}{}
	}))
	defer okServer.Close()

	failServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failServer.Close()

	d := NewDispatcher(nil, Config{BaseURL: "https://panicdeck.example"})
	d.subscribers = func(projectID uint) ([]models.ProjectSubscriber, error) {
		return nil, nil
	}
	d.Start()

	n := newTestNotification(models.Project{
		ID:              3,
		Name:            "Roadster",
		SlackWebhookURL: strPtr(failServer.URL),
		WebhookURL:      strPtr(okServer.URL),
	})

	d.Enqueue(n)
	d.Stop()

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("healthy channel was not delivered")
	}
}

func TestDispatcherDropsWhenStopped(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(nil, Config{})
	d.Enqueue(newTestNotification(models.Project{Name: "Roadster"}))

	assert.Equal(t, 0, d.Pending())
}
