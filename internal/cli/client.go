package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dynastra/internal/auth"
)

// Client is a thin JSON client for the dynastra API. Read endpoints return
// raw maps so the render layer can stay decoupled from server struct changes.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Signup(ctx context.Context, email, password string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/signup", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out)
	return out, err
}

func (c *Client) FoundDynasty(ctx context.Context, accessToken, name, motto, founderName string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/dynasties", accessToken, map[string]any{
		"name":         name,
		"motto":        motto,
		"founder_name": founderName,
	}, &out)
	return out, err
}

func (c *Client) MyDynasty(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/dynasties/me", accessToken, nil, &out)
	return out, err
}

func (c *Client) Dynasty(ctx context.Context, accessToken, dynastyID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/dynasties/"+url.PathEscape(dynastyID), accessToken, nil, &out)
	return out, err
}

func (c *Client) SetMotto(ctx context.Context, accessToken, dynastyID, motto string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPatch, "/v1/dynasties/"+url.PathEscape(dynastyID)+"/motto", accessToken, map[string]any{
		"motto": motto,
	}, &out)
	return out, err
}

func (c *Client) DynastyCharacters(ctx context.Context, accessToken, dynastyID string, aliveOnly bool) (map[string]any, error) {
	path := "/v1/dynasties/" + url.PathEscape(dynastyID) + "/characters"
	if aliveOnly {
		path += "?alive=1"
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, accessToken, nil, &out)
	return out, err
}

func (c *Client) CreateCharacter(ctx context.Context, accessToken, dynastyID, name, parentID string) (map[string]any, error) {
	body := map[string]any{
		"dynasty_id": dynastyID,
		"name":       name,
	}
	if strings.TrimSpace(parentID) != "" {
		body["parent_character_id"] = parentID
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/characters", accessToken, body, &out)
	return out, err
}

func (c *Client) Character(ctx context.Context, accessToken, characterID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/characters/"+url.PathEscape(characterID), accessToken, nil, &out)
	return out, err
}

func (c *Client) Inventory(ctx context.Context, accessToken, characterID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/characters/"+url.PathEscape(characterID)+"/inventory", accessToken, nil, &out)
	return out, err
}

func (c *Client) MoveCharacter(ctx context.Context, accessToken, characterID, regionID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/characters/"+url.PathEscape(characterID)+"/move", accessToken, map[string]any{
		"region_id": regionID,
	}, &out)
	return out, err
}

func (c *Client) Regions(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/regions", accessToken, nil, &out)
	return out, err
}

func (c *Client) RegionMarket(ctx context.Context, accessToken, regionID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/regions/"+url.PathEscape(regionID)+"/market", accessToken, nil, &out)
	return out, err
}

func (c *Client) Listings(ctx context.Context, accessToken, regionID string, query url.Values) (map[string]any, error) {
	path := "/v1/regions/" + url.PathEscape(regionID) + "/listings"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, accessToken, nil, &out)
	return out, err
}

func (c *Client) Sell(ctx context.Context, accessToken, characterID, regionID, itemID, price string, quantity int32) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/listings", accessToken, map[string]any{
		"character_id": characterID,
		"region_id":    regionID,
		"item_id":      itemID,
		"price":        price,
		"quantity":     quantity,
	}, &out)
	return out, err
}

func (c *Client) CancelListing(ctx context.Context, accessToken, listingID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodDelete, "/v1/listings/"+url.PathEscape(listingID), accessToken, nil, &out)
	return out, err
}

func (c *Client) Buy(ctx context.Context, accessToken, listingID, characterID string, quantity int32) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/listings/"+url.PathEscape(listingID)+"/purchase", accessToken, map[string]any{
		"character_id": characterID,
		"quantity":     quantity,
	}, &out)
	return out, err
}

func (c *Client) MarketEvents(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/market/events", accessToken, nil, &out)
	return out, err
}

func (c *Client) Arbitrage(ctx context.Context, accessToken string, limit int32) (map[string]any, error) {
	path := "/v1/market/arbitrage"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, accessToken, nil, &out)
	return out, err
}

func (c *Client) PriceHistory(ctx context.Context, accessToken, regionID, itemID string, days int32) (map[string]any, error) {
	path := fmt.Sprintf("/v1/regions/%s/items/%s/prices?days=%d", url.PathEscape(regionID), url.PathEscape(itemID), days)
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, accessToken, nil, &out)
	return out, err
}

func (c *Client) PriceAnalytics(ctx context.Context, accessToken, regionID, itemID string, days int32) (map[string]any, error) {
	path := fmt.Sprintf("/v1/regions/%s/items/%s/analytics?days=%d", url.PathEscape(regionID), url.PathEscape(itemID), days)
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, accessToken, nil, &out)
	return out, err
}

func (c *Client) Leaderboard(ctx context.Context, accessToken, metric string, limit int32) (map[string]any, error) {
	q := url.Values{}
	if metric != "" {
		q.Set("metric", metric)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	path := "/v1/leaderboard"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, accessToken, nil, &out)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path, accessToken string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
