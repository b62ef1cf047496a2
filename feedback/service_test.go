package feedback

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/cryptoview/pricewatch/config"
	"github.com/cryptoview/pricewatch/storage"
)

type fakeCreator struct {
	pages []Page
	err   error
}

func (f *fakeCreator) CreatePage(ctx context.Context, p Page) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.pages = append(f.pages, p)
	return "page-1", nil
}

func testConfig() config.FeedbackConfig {
	return config.FeedbackConfig{
		APIURL:        "https://api.notion.com/v1/pages",
		Token:         "secret",
		DatabaseID:    "db-1",
		NotionVersion: "2022-06-28",
		MinInterval:   60 * time.Second,
		Timeout:       5 * time.Second,
	}
}

func newTestService(cfg config.FeedbackConfig, creator PageCreator) (*Service, *clock.Mock, *storage.Store) {
	clk := clock.NewMock()
	clk.Set(time.UnixMilli(1_700_000_000_000))
	store := storage.New(storage.NewMemoryBackend(), zap.NewNop())
	return NewService(cfg, creator, store, clk, zap.NewNop()), clk, store
}

func TestSubmit_Success(t *testing.T) {
	creator := &fakeCreator{}
	service, clk, store := newTestService(testConfig(), creator)
	ctx := context.Background()

	receipt, err := service.Submit(ctx, "  The chart is slow to load\nsecond line  ")
	require.NoError(t, err)
	assert.Equal(t, "page-1", receipt.PageID)
	assert.Equal(t, clk.Now(), receipt.SubmittedAt)

	require.Len(t, creator.pages, 1)
	assert.Equal(t, "The chart is slow to load", creator.pages[0].Title)
	assert.Equal(t, "The chart is slow to load\nsecond line", creator.pages[0].Content)

	var last int64
	found, err := store.Get(ctx, LastSubmissionKey, &last)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, clk.Now().UnixMilli(), last)
}

func TestSubmit_Validation(t *testing.T) {
	service, _, _ := newTestService(testConfig(), &fakeCreator{})
	_, err := service.Submit(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyFeedback)

	cfg := testConfig()
	cfg.Token = ""
	service, _, _ = newTestService(cfg, &fakeCreator{})
	_, err = service.Submit(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSubmit_Throttle(t *testing.T) {
	creator := &fakeCreator{}
	service, clk, _ := newTestService(testConfig(), creator)
	ctx := context.Background()

	_, err := service.Submit(ctx, "first")
	require.NoError(t, err)

	clk.Add(20500 * time.Millisecond)
	_, err = service.Submit(ctx, "second")
	require.ErrorIs(t, err, ErrTooFrequent)

	var tooFrequent *TooFrequentError
	require.True(t, errors.As(err, &tooFrequent))
	assert.Equal(t, 40, tooFrequent.RemainingSeconds)

	clk.Add(39500 * time.Millisecond)
	_, err = service.Submit(ctx, "third")
	require.NoError(t, err)
	assert.Len(t, creator.pages, 2)
}

func TestSubmit_FailureDoesNotThrottle(t *testing.T) {
	creator := &fakeCreator{err: errors.New("notion down")}
	service, _, store := newTestService(testConfig(), creator)
	ctx := context.Background()

	_, err := service.Submit(ctx, "hello")
	assert.Error(t, err)

	found, err := store.Get(ctx, LastSubmissionKey, new(int64))
	require.NoError(t, err)
	assert.False(t, found)

	creator.err = nil
	_, err = service.Submit(ctx, "hello again")
	assert.NoError(t, err)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "short", title("short"))
	long := strings.Repeat("é", 60)
	assert.Equal(t, strings.Repeat("é", 50)+"...", title(long))
}

func TestNotionClient_CreatePage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "2022-06-28", r.Header.Get("Notion-Version"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, "db-1", gjson.GetBytes(body, "parent.database_id").String())
		assert.Equal(t, "Bug", gjson.GetBytes(body, "properties.Title.title.0.text.content").String())
		assert.Equal(t, "Bug report", gjson.GetBytes(body, "properties.Content.rich_text.0.text.content").String())
		assert.Equal(t, "2023-11-14T22:13:20Z", gjson.GetBytes(body, "properties.Published.date.start").String())
		assert.Equal(t, gjson.Null, gjson.GetBytes(body, "properties.Published.date.end").Type)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"page","id":"abc-123"}`))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.APIURL = server.URL
	client := NewNotionClient(cfg, zap.NewNop())

	id, err := client.CreatePage(context.Background(), Page{
		Title:     "Bug",
		Content:   "Bug report",
		Published: time.UnixMilli(1_700_000_000_000),
	})
	require.NoError(t, err)
	assert.Equal(t, "abc-123", id)
}

func TestNotionClient_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"object":"error","status":401,"code":"unauthorized","message":"API token is invalid."}`))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.APIURL = server.URL
	_, err := NewNotionClient(cfg, zap.NewNop()).CreatePage(context.Background(), Page{Title: "t", Content: "c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API token is invalid.")
}
