package untappd

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

type PageRequest struct {
	Path       string
	Params     url.Values
	Collection string
	Delay      time.Duration
}

type PageSummary struct {
	Pages      int
	Items      int
	Count      int
	TotalCount int
}

// ItemHandler receives each item of a collection in page order. Returning an
// error stops the pagination.
type ItemHandler func(ctx context.Context, item json.RawMessage) error

type page struct {
	Pagination struct {
		NextURL string `json:"next_url"`
	} `json:"pagination"`
	TotalCount *int `json:"total_count"`
}

type collection struct {
	Count int               `json:"count"`
	Items []json.RawMessage `json:"items"`
}

// Paginate walks an offset-paginated collection until the API stops handing
// out a next_url.
func (c *Client) Paginate(ctx context.Context, request PageRequest, handle ItemHandler) (*PageSummary, error) {
	logger := c.logger.With(zap.String("path", request.Path), zap.String("collection", request.Collection))
	summary := &PageSummary{}
	seen := map[string]bool{}
	offset := "0"

	for {
		if summary.Pages >= c.maxPages {
			return summary, fmt.Errorf("%w: %s exceeded %d pages", ErrPaginationLimit, request.Path, c.maxPages)
		}

		seen[offset] = true

		params := url.Values{}
		for key, values := range request.Params {
			params[key] = values
		}

		params.Set("offset", offset)

		response, err := c.Call(ctx, Request{Path: request.Path, Params: params, Delay: request.Delay})
		if err != nil {
			return summary, err
		}

		current, items, err := decodePage(response, request.Collection)
		if err != nil {
			return summary, fmt.Errorf("%s offset %s: %w", request.Path, offset, err)
		}

		summary.Pages++
		summary.Count = items.Count

		if summary.Pages == 1 && current.TotalCount != nil {
			summary.TotalCount = *current.TotalCount
		}

		for _, item := range items.Items {
			if err = handle(ctx, item); err != nil {
				return summary, err
			}

			summary.Items++
		}

		logger.Debug("Page done", zap.String("offset", offset), zap.Int("items", len(items.Items)))

		if current.Pagination.NextURL == "" {
			return summary, nil
		}

		if offset, err = nextOffset(current.Pagination.NextURL); err != nil {
			return summary, err
		}

		if seen[offset] {
			return summary, fmt.Errorf("%w: %s offset %s did not advance", ErrProtocol, request.Path, offset)
		}
	}
}

func decodePage(response json.RawMessage, name string) (*page, *collection, error) {
	var current page
	if err := json.Unmarshal(response, &current); err != nil {
		return nil, nil, fmt.Errorf("%w: page: %w", ErrProtocol, err)
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(response, &members); err != nil {
		return nil, nil, fmt.Errorf("%w: page: %w", ErrProtocol, err)
	}

	raw, ok := members[name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: page has no %s collection", ErrProtocol, name)
	}

	var items collection
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, nil, fmt.Errorf("%w: %s collection: %w", ErrProtocol, name, err)
	}

	return &current, &items, nil
}

// nextOffset extracts the offset query parameter of a next_url cursor.
func nextOffset(nextURL string) (string, error) {
	parsed, err := url.Parse(nextURL)
	if err != nil {
		return "", fmt.Errorf("%w: next_url %q: %w", ErrProtocol, nextURL, err)
	}

	offset := parsed.Query().Get("offset")
	if _, err = strconv.Atoi(offset); err != nil {
		return "", fmt.Errorf("%w: next_url %q has no numeric offset", ErrProtocol, nextURL)
	}

	return offset, nil
}
