package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/cryptoview/pricewatch/config"
)

// Page is one feedback entry written to the database
type Page struct {
	Title     string
	Content   string
	Published time.Time
}

// NotionClient creates pages in a Notion database
type NotionClient struct {
	client *http.Client
	cfg    config.FeedbackConfig
	logger *zap.Logger
}

func NewNotionClient(cfg config.FeedbackConfig, logger *zap.Logger) *NotionClient {
	return &NotionClient{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		logger: logger.With(zap.String("component", "notion")),
	}
}

type richText struct {
	Text struct {
		Content string `json:"content"`
	} `json:"text"`
}

func newRichText(content string) []richText {
	var rt richText
	rt.Text.Content = content
	return []richText{rt}
}

type pageRequest struct {
	Parent struct {
		DatabaseID string `json:"database_id"`
	} `json:"parent"`
	Properties struct {
		Title struct {
			Title []richText `json:"title"`
		} `json:"Title"`
		Content struct {
			RichText []richText `json:"rich_text"`
		} `json:"Content"`
		Published struct {
			Date struct {
				Start string  `json:"start"`
				End   *string `json:"end"`
			} `json:"date"`
		} `json:"Published"`
	} `json:"properties"`
}

// CreatePage posts p and returns the id of the created page
func (c *NotionClient) CreatePage(ctx context.Context, p Page) (string, error) {
	var body pageRequest
	body.Parent.DatabaseID = c.cfg.DatabaseID
	body.Properties.Title.Title = newRichText(p.Title)
	body.Properties.Content.RichText = newRichText(p.Content)
	body.Properties.Published.Date.Start = p.Published.UTC().Format(time.RFC3339)

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode page: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Notion-Version", c.cfg.NotionVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("notion request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read notion response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := gjson.GetBytes(respBody, "message").String()
		c.logger.Error("notion rejected page",
			zap.Int("status", resp.StatusCode),
			zap.String("code", gjson.GetBytes(respBody, "code").String()),
			zap.String("message", message))
		return "", fmt.Errorf("notion returned status %d: %s", resp.StatusCode, message)
	}

	id := gjson.GetBytes(respBody, "id").String()
	c.logger.Info("feedback page created", zap.String("page", id))
	return id, nil
}
