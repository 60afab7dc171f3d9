package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/DanielHaim/PanicDeck/app/models"
	"github.com/DanielHaim/PanicDeck/internal/pkg/mail"
)

// endpoint targets, vars so tests can point them at a local server
var (
	pushoverAPIURL      = "https://api.pushover.net/1/messages.json"
	slackPostMessageURL = "https://slack.com/api/chat.postMessage"
)

// sendEmail delivers the transactional mail for one subscriber
func (d *Dispatcher) sendEmail(n *Notification, user *models.User, reportURL string) error {
	return mail.SendReportAlert(
		user.Email, n.Headline(),
		n.Project.Name, n.EnvironmentName(),
		n.Report.LastSeen, reportURL,
	)
}

// sendPushover posts the push message for one subscriber with a registered
// push identity
func (d *Dispatcher) sendPushover(n *Notification, user *models.User, reportURL string) error {
	if d.cfg.PushoverAppToken == "" || !user.HasPushoverKey() {
		return nil
	}

	form := url.Values{}
	form.Set("token", d.cfg.PushoverAppToken)
	form.Set("user", *user.PushoverUserKey)
	form.Set("message", n.Headline())
	form.Set("url", reportURL)

	return d.postForm(pushoverAPIURL, form)
}

// sendSlackBot posts through the Slack chat.postMessage API when the
// project has a bot token and channel configured
func (d *Dispatcher) sendSlackBot(n *Notification, reportURL string) error {
	if !n.Project.HasSlackBot() {
		return nil
	}

	blocks, err := json.Marshal(slackBlocks(n, reportURL))
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("token", *n.Project.SlackBotToken)
	form.Set("channel", *n.Project.SlackChannel)
	form.Set("text", n.Headline())
	form.Set("blocks", string(blocks))

	return d.postForm(slackPostMessageURL, form)
}

// sendSlackWebhook posts to the project's incoming webhook when configured
func (d *Dispatcher) sendSlackWebhook(n *Notification, reportURL string) error {
	if n.Project.SlackWebhookURL == nil || *n.Project.SlackWebhookURL == "" {
		return nil
	}

	payload := map[string]interface{}{
		"username": "PanicDeck",
		"text":     n.Headline(),
		"blocks":   slackBlocks(n, reportURL),
	}

	return d.postJSON(*n.Project.SlackWebhookURL, payload)
}

// slackBlocks renders the shared Block Kit body: a markdown section plus a
// button linking to the report
func slackBlocks(n *Notification, reportURL string) []interface{} {
	var markdown string
	if n.Status == StatusNew {
		markdown = fmt.Sprintf(":boom: New report on *%s* received %s", n.Project.Name, n.Report.Title)
	} else {
		markdown = fmt.Sprintf("Resolved report on *%s* reappeared: %s", n.Project.Name, n.Report.Title)
	}
	if n.Environment != nil {
		markdown += fmt.Sprintf(" in *%s*", n.Environment.Name)
	}

	return []interface{}{
		map[string]interface{}{
			"type": "section",
			"text": map[string]interface{}{
				"type": "mrkdwn",
				"text": markdown,
			},
		},
		map[string]interface{}{
			"type": "actions",
			"elements": []interface{}{
				map[string]interface{}{
					"type": "button",
					"text": map[string]interface{}{
						"type": "plain_text",
						"text": "View in PanicDeck",
					},
					"url": reportURL,
				},
			},
		},
	}
}

// sendTeamsWebhook posts an adaptive card to the MS Teams webhook when
// configured
func (d *Dispatcher) sendTeamsWebhook(n *Notification, reportURL string) error {
	if n.Project.TeamsWebhookURL == nil || *n.Project.TeamsWebhookURL == "" {
		return nil
	}

	var title string
	if n.Status == StatusNew {
		title = fmt.Sprintf("New report on %s received", n.Project.Name)
	} else {
		title = fmt.Sprintf("Resolved report on %s reappeared", n.Project.Name)
	}

	payload := map[string]interface{}{
		"type": "message",
		"attachments": []interface{}{
			map[string]interface{}{
				"contentType": "application/vnd.microsoft.card.adaptive",
				"content": map[string]interface{}{
					"$schema": "http://adaptivecards.io/schemas/adaptive-card.json",
					"type":    "AdaptiveCard",
					"version": "1.0",
					"body": []interface{}{
						map[string]interface{}{
							"type":   "TextBlock",
							"text":   title,
							"size":   "medium",
							"weight": "bolder",
							"style":  "heading",
						},
						map[string]interface{}{
							"type": "TextBlock",
							"text": n.Report.Title,
							"wrap": true,
						},
						map[string]interface{}{
							"type": "FactSet",
							"facts": []interface{}{
								map[string]interface{}{
									"title": "Environment",
									"value": n.EnvironmentName(),
								},
							},
						},
					},
					"actions": []interface{}{
						map[string]interface{}{
							"type":  "Action.OpenUrl",
							"title": "View in PanicDeck",
							"url":   reportURL,
							"style": "positive",
						},
					},
				},
			},
		},
	}

	return d.postJSON(*n.Project.TeamsWebhookURL, payload)
}

// sendWebhook posts the generic JSON payload to the project's outbound
// webhook when configured
func (d *Dispatcher) sendWebhook(n *Notification, reportURL string) error {
	if n.Project.WebhookURL == nil || *n.Project.WebhookURL == "" {
		return nil
	}

	var environment *string
	if n.Environment != nil {
		environment = &n.Environment.Name
	}

	payload := map[string]interface{}{
		"status":      string(n.Status),
		"title":       n.Report.Title,
		"project":     n.Project.Name,
		"environment": environment,
		"backtrace":   n.Event.Backtrace,
		"log":         json.RawMessage(logOrEmptyArray(n.Event.Log)),
		"url":         reportURL,
	}

	return d.postJSON(*n.Project.WebhookURL, payload)
}

func logOrEmptyArray(logData string) string {
	if strings.TrimSpace(logData) == "" {
		return "[]"
	}
	return logData
}

func (d *Dispatcher) postJSON(target string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := d.client.Post(target, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, target)
	}

	return nil
}

func (d *Dispatcher) postForm(target string, form url.Values) error {
	resp, err := d.client.PostForm(target, form)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, target)
	}

	return nil
}
