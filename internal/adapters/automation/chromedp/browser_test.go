package chromedp

import (
	"context"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/fundcrawl/internal/domain"
)

func bareBrowser(cfg Config) *Browser {
	return &Browser{
		cfg:       cfg,
		methods:   map[network.RequestID]string{},
		pending:   map[network.RequestID]pendingResponse{},
		observers: map[int]func(domain.CapturedResponse){},
	}
}

func TestExecuteInteractionWithoutSelector(t *testing.T) {
	t.Parallel()

	b := bareBrowser(Config{Selectors: map[domain.StepKind]string{"open_fees": " "}})

	ok, err := b.ExecuteInteraction(context.Background(), "open_fees")
	require.ErrorIs(t, err, ErrNoSelector)
	assert.False(t, ok)

	_, err = b.ExecuteInteraction(context.Background(), "expand_holdings")
	require.ErrorIs(t, err, ErrNoSelector)
}

func TestLoadBatchRequiresListing(t *testing.T) {
	t.Parallel()

	_, err := bareBrowser(Config{}).LoadBatch(context.Background(), 1)
	require.Error(t, err)

	_, err = bareBrowser(Config{ListURL: "https://x.test/list", ListItemSelector: "li"}).LoadBatch(context.Background(), 2)
	require.ErrorContains(t, err, "load-more selector")
}

func TestWantedMatchesCapturePrefixes(t *testing.T) {
	t.Parallel()

	assert.True(t, bareBrowser(Config{}).wanted("https://x.test/anything"))

	b := bareBrowser(Config{CapturePrefixes: []string{"/_api/fund-guide/"}})
	assert.True(t, b.wanted("https://x.test/_api/fund-guide/chart/1"))
	assert.False(t, b.wanted("https://x.test/_api/other"))
}

func TestOnEventTracksXHRResponses(t *testing.T) {
	t.Parallel()

	b := bareBrowser(Config{CapturePrefixes: []string{"/_api/"}})

	b.onEvent(&network.EventRequestWillBeSent{RequestID: "1", Request: &network.Request{Method: "GET"}})
	b.onEvent(&network.EventResponseReceived{
		RequestID: "1",
		Type:      network.ResourceTypeXHR,
		Response:  &network.Response{URL: "https://x.test/_api/guide/1", Status: 200},
	})
	b.onEvent(&network.EventResponseReceived{
		RequestID: "2",
		Type:      network.ResourceTypeDocument,
		Response:  &network.Response{URL: "https://x.test/_api/page", Status: 200},
	})
	b.onEvent(&network.EventResponseReceived{
		RequestID: "3",
		Type:      network.ResourceTypeFetch,
		Response:  &network.Response{URL: "https://x.test/static/app.js", Status: 200},
	})

	require.Len(t, b.pending, 1)
	assert.Equal(t, pendingResponse{method: "GET", url: "https://x.test/_api/guide/1", status: 200}, b.pending["1"])

	b.onEvent(&network.EventLoadingFailed{RequestID: "1"})
	assert.Empty(t, b.pending)
	assert.Empty(t, b.methods)
}

func TestResolveMinimumDelay(t *testing.T) {
	t.Parallel()

	b := bareBrowser(Config{MinDelays: map[domain.StepKind]time.Duration{"open_fees": time.Second}})
	assert.Equal(t, time.Second, b.ResolveMinimumDelay("open_fees"))
	assert.Zero(t, b.ResolveMinimumDelay("select_chart_period"))
}

func TestClipFlagsTruncatedBodies(t *testing.T) {
	t.Parallel()

	body := []byte(`{"dataSerie":[1,2,3]}`)

	got, truncated := clip(body, len(body))
	assert.False(t, truncated)
	assert.Equal(t, body, got)

	got, truncated = clip(body, 8)
	assert.True(t, truncated)
	assert.Equal(t, `{"dataSe`, string(got))

	_, truncated = clip(body, 0)
	assert.False(t, truncated)
}
