package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cimillas/ticket-rush/internal/domain"
)

// InventoryClient talks to the inventory HTTP surface when the store runs
// as a separate service. It satisfies the orchestrator's InventoryStore
// interface, so deployments can swap it for the local repository without
// touching the state machine.
type InventoryClient struct {
	baseURL string
	client  *http.Client
}

func NewInventoryClient(baseURL string) *InventoryClient {
	return &InventoryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type eventPayload struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Location         string  `json:"location"`
	Price            float64 `json:"price"`
	TotalTickets     int     `json:"total_tickets"`
	AvailableTickets int     `json:"available_tickets"`
}

type errorPayload struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (c *InventoryClient) Get(ctx context.Context, eventID string) (domain.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.eventURL(eventID, ""), nil)
	if err != nil {
		return domain.Event{}, fmt.Errorf("build inventory request: %w", err)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return domain.Event{}, fmt.Errorf("get inventory: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusNotFound {
		return domain.Event{}, domain.ErrEventNotFound
	}
	if res.StatusCode != http.StatusOK {
		return domain.Event{}, fmt.Errorf("get inventory: unexpected status %d", res.StatusCode)
	}

	var payload eventPayload
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return domain.Event{}, fmt.Errorf("decode inventory response: %w", err)
	}
	return domain.Event{
		ID:               payload.ID,
		Name:             payload.Name,
		Location:         payload.Location,
		Price:            payload.Price,
		TotalTickets:     payload.TotalTickets,
		AvailableTickets: payload.AvailableTickets,
	}, nil
}

func (c *InventoryClient) Reserve(ctx context.Context, eventID string, quantity int) error {
	return c.mutate(ctx, eventID, "reserve", quantity)
}

func (c *InventoryClient) Release(ctx context.Context, eventID string, quantity int) error {
	return c.mutate(ctx, eventID, "release", quantity)
}

func (c *InventoryClient) mutate(ctx context.Context, eventID, op string, quantity int) error {
	u := c.eventURL(eventID, op) + "?quantity=" + strconv.Itoa(quantity)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return fmt.Errorf("build inventory request: %w", err)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s inventory: %w", op, err)
	}
	defer func() { _ = res.Body.Close() }()

	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return domain.ErrEventNotFound
	case http.StatusBadRequest:
		return domain.ErrInvalidQuantity
	case http.StatusConflict:
		var payload errorPayload
		if err := json.NewDecoder(res.Body).Decode(&payload); err == nil && payload.Code == "version_conflict" {
			return domain.ErrVersionConflict
		}
		return domain.ErrInsufficientTickets
	default:
		return fmt.Errorf("%s inventory: unexpected status %d", op, res.StatusCode)
	}
}

func (c *InventoryClient) eventURL(eventID, op string) string {
	u := c.baseURL + "/inventory/" + url.PathEscape(eventID)
	if op != "" {
		u += "/" + op
	}
	return u
}
