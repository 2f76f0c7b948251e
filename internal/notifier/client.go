// Package notifier provides a webhook client for sending notifications to
// Microsoft Teams.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/intinc/interact-engine/internal/config"
	"github.com/intinc/interact-engine/pkg/logger"
)

// Client handles Teams webhook notifications. With Enabled false every send
// is a logged no-op, so callers never need to branch on configuration.
type Client struct {
	webhookURL string
	enabled    bool
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates a new Teams client.
func NewClient(cfg *config.TeamsConfig, log *logger.Logger) *Client {
	return &Client{
		webhookURL: cfg.WebhookURL,
		enabled:    cfg.Enabled,
		httpClient: http.DefaultClient,
		log:        log,
	}
}

// MessageCard is the legacy Teams connector card payload.
type MessageCard struct {
	Type       string    `json:"@type"`
	Context    string    `json:"@context"`
	ThemeColor string    `json:"themeColor,omitempty"`
	Summary    string    `json:"summary"`
	Title      string    `json:"title,omitempty"`
	Text       string    `json:"text,omitempty"`
	Sections   []Section `json:"sections,omitempty"`
}

// Section is one section of a message card.
type Section struct {
	ActivityTitle string `json:"activityTitle,omitempty"`
	Text          string `json:"text,omitempty"`
	Facts         []Fact `json:"facts,omitempty"`
}

// Fact is a name/value pair rendered as a table row.
type Fact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

const (
	colorInfo    = "0076D7"
	colorSuccess = "2EB886"
)

// SendCard posts a message card to the webhook.
func (c *Client) SendCard(ctx context.Context, card *MessageCard) error {
	if !c.enabled {
		c.log.Debug().Msg("Teams notifications disabled, skipping message")
		return nil
	}

	card.Type = "MessageCard"
	card.Context = "http://schema.org/extensions"

	payload, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("failed to marshal message card: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", c.webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message to Teams: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("teams returned status %d", resp.StatusCode)
	}

	c.log.Debug().Str("summary", card.Summary).Msg("Sent message to Teams")
	return nil
}

// SendText sends a plain text notification.
func (c *Client) SendText(ctx context.Context, text string) error {
	return c.SendCard(ctx, &MessageCard{
		Summary: text,
		Text:    text,
	})
}

// SendRuleTriggered announces a fired rule and what it awarded.
func (c *Client) SendRuleTriggered(ctx context.Context, userEmail, ruleName string, points int, badgeName string) error {
	facts := []Fact{
		{Name: "User", Value: userEmail},
		{Name: "Rule", Value: ruleName},
	}
	if points > 0 {
		facts = append(facts, Fact{Name: "Points", Value: fmt.Sprintf("%d", points)})
	}
	if badgeName != "" {
		facts = append(facts, Fact{Name: "Badge", Value: badgeName})
	}

	return c.SendCard(ctx, &MessageCard{
		ThemeColor: colorInfo,
		Summary:    fmt.Sprintf("Rule %q triggered", ruleName),
		Title:      "🎯 Rule triggered",
		Sections:   []Section{{Facts: facts}},
	})
}

// SendLevelUp congratulates a user on reaching a new level.
func (c *Client) SendLevelUp(ctx context.Context, userEmail string, level int) error {
	return c.SendCard(ctx, &MessageCard{
		ThemeColor: colorSuccess,
		Summary:    fmt.Sprintf("%s reached level %d", userEmail, level),
		Title:      "🎉 Level up!",
		Text:       fmt.Sprintf("**%s** just reached **level %d**.", userEmail, level),
	})
}

// SendBadgeAwarded announces a new badge holder.
func (c *Client) SendBadgeAwarded(ctx context.Context, userEmail, badgeName, icon string) error {
	title := "🏅 Badge awarded"
	if icon != "" {
		title = icon + " Badge awarded"
	}
	return c.SendCard(ctx, &MessageCard{
		ThemeColor: colorSuccess,
		Summary:    fmt.Sprintf("%s earned %s", userEmail, badgeName),
		Title:      title,
		Text:       fmt.Sprintf("**%s** earned the **%s** badge.", userEmail, badgeName),
	})
}

// DigestEntry is one leaderboard row in the monthly digest.
type DigestEntry struct {
	UserEmail string
	Points    int
}

// SendMonthlyDigest posts the top earners for the month that just closed.
func (c *Client) SendMonthlyDigest(ctx context.Context, month string, entries []DigestEntry) error {
	if len(entries) == 0 {
		c.log.Debug().Msg("No digest entries, skipping monthly digest")
		return nil
	}

	facts := make([]Fact, 0, len(entries))
	for i, e := range entries {
		facts = append(facts, Fact{
			Name:  fmt.Sprintf("#%d %s", i+1, e.UserEmail),
			Value: fmt.Sprintf("%d points", e.Points),
		})
	}

	return c.SendCard(ctx, &MessageCard{
		ThemeColor: colorInfo,
		Summary:    fmt.Sprintf("Top earners for %s", month),
		Title:      "📊 Monthly engagement digest",
		Sections: []Section{{
			ActivityTitle: fmt.Sprintf("Top earners for %s", month),
			Facts:         facts,
		}},
	})
}
