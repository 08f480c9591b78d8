package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/robo-trader/internal/domain"
)

// RemoteClient talks to a networked judge service. Requests carry the API
// key and are bounded by the configured timeout; any transport or payload
// failure surfaces as DATA_UNAVAILABLE.
type RemoteClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
}

// ServiceResponse is the standard judge response envelope
type ServiceResponse struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *string         `json:"error"`
	Timestamp string          `json:"timestamp"`
}

// NewRemoteClient creates a networked judge client
func NewRemoteClient(baseURL, apiKey string, timeout time.Duration, log zerolog.Logger) *RemoteClient {
	return &RemoteClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
		},
		log: log.With().Str("adapter", "judge_remote").Logger(),
	}
}

// Name returns the adapter identifier
func (c *RemoteClient) Name() string {
	return "remote"
}

// get makes a GET request and unwraps the response envelope
func (c *RemoteClient) get(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return domain.WrapError(domain.KindDataUnavailable, err, "failed to build request")
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.WrapError(domain.KindDataUnavailable, err, "judge request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.WrapError(domain.KindDataUnavailable, err, "failed to read judge response")
	}

	if resp.StatusCode != http.StatusOK {
		return domain.NewError(domain.KindDataUnavailable, "judge returned status %d", resp.StatusCode)
	}

	var envelope ServiceResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return domain.WrapError(domain.KindDataUnavailable, err, "failed to parse judge response")
	}

	if !envelope.Success {
		errMsg := "unknown error"
		if envelope.Error != nil {
			errMsg = *envelope.Error
		}
		return domain.NewError(domain.KindDataUnavailable, "judge error: %s", errMsg)
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return domain.WrapError(domain.KindDataUnavailable, err, "failed to parse judge payload")
	}

	return nil
}

type securityPayload struct {
	Ticker string  `json:"ticker"`
	Sector string  `json:"sector"`
	Close  float64 `json:"close"`
	ADV    float64 `json:"adv"`
}

// Securities fetches the advisory universe
func (c *RemoteClient) Securities(ctx context.Context) ([]domain.Security, error) {
	var payload struct {
		Items []securityPayload `json:"items"`
	}
	if err := c.get(ctx, "/judge/index", &payload); err != nil {
		return nil, err
	}

	securities := make([]domain.Security, 0, len(payload.Items))
	for _, item := range payload.Items {
		securities = append(securities, domain.Security{
			ID:     item.Ticker,
			Sector: item.Sector,
			Price:  item.Close,
			ADV:    item.ADV,
		})
	}

	sort.Slice(securities, func(i, j int) bool { return securities[i].ID < securities[j].ID })
	return securities, nil
}

type accountPayload struct {
	AccountID string  `json:"account_id"`
	Cash      float64 `json:"cash"`
	Holdings  []struct {
		Ticker      string  `json:"ticker"`
		Quantity    float64 `json:"quantity"`
		MarketValue float64 `json:"market_value"`
	} `json:"holdings"`
}

// Accounts fetches account snapshots
func (c *RemoteClient) Accounts(ctx context.Context, accountIDs []string) ([]domain.Account, error) {
	endpoint := "/judge/accounts"
	if len(accountIDs) > 0 {
		endpoint += "?accountIds=" + url.QueryEscape(strings.Join(accountIDs, ","))
	}

	var payload struct {
		Items []accountPayload `json:"items"`
	}
	if err := c.get(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(payload.Items))
	for _, item := range payload.Items {
		account := domain.Account{ID: item.AccountID, Cash: item.Cash}
		for _, h := range item.Holdings {
			account.Positions = append(account.Positions, domain.Position{
				AccountID:   item.AccountID,
				SecurityID:  h.Ticker,
				Quantity:    h.Quantity,
				MarketValue: h.MarketValue,
			})
		}
		accounts = append(accounts, account)
	}

	return accounts, nil
}

type sentimentPayload struct {
	Date   string  `json:"date"`
	Ticker string  `json:"ticker"`
	Label  string  `json:"label"`
	Score  float64 `json:"score"`
	Source string  `json:"source"`
}

// Signals fetches sentiment scores for the given securities and date
func (c *RemoteClient) Signals(ctx context.Context, asOf string, securityIDs []string) (map[string]domain.SentimentScore, error) {
	asOfDate, err := parseAsOf(asOf)
	if err != nil {
		return nil, domain.WrapError(domain.KindDataUnavailable, err, "invalid as-of date %q", asOf)
	}

	endpoint := fmt.Sprintf("/judge/sentiment?to=%s&tickers=%s",
		url.QueryEscape(asOf),
		url.QueryEscape(strings.Join(securityIDs, ",")),
	)

	var payload struct {
		Items []sentimentPayload `json:"items"`
	}
	if err := c.get(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	// Keep the most recent record per ticker
	best := make(map[string]sentimentPayload)
	for _, item := range payload.Items {
		if prev, ok := best[item.Ticker]; !ok || item.Date > prev.Date {
			best[item.Ticker] = item
		}
	}

	scores := make(map[string]domain.SentimentScore, len(best))
	for ticker, item := range best {
		scores[ticker] = domain.SentimentScore{
			SecurityID: ticker,
			Score:      scoreToSigned(item.Score),
			Label:      item.Label,
			Source:     item.Source,
			AsOf:       asOfDate,
		}
	}

	return scores, nil
}

// Ping checks collaborator reachability
func (c *RemoteClient) Ping(ctx context.Context) error {
	var payload struct {
		Status string `json:"status"`
	}
	return c.get(ctx, "/judge/health", &payload)
}
