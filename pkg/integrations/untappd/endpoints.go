package untappd

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

const dateLayout = "2006-01-02"

// UserBeers pages through the distinct beers username checked in between
// start and end, both inclusive days.
func (c *Client) UserBeers(ctx context.Context, username string, start time.Time, end time.Time, handle ItemHandler) (*PageSummary, error) {
	params := url.Values{}
	for _, empty := range []string{"q", "rating_score", "brewery_id", "type_id", "container_id", "country_id", "region_id"} {
		params.Set(empty, "")
	}

	params.Set("sort", "highest_rated_you")
	params.Set("start_date", start.Format(dateLayout))
	params.Set("end_date", end.Format(dateLayout))
	params.Set("timezoneOffset", strconv.Itoa(c.timezoneOffset))

	return c.Paginate(ctx, PageRequest{
		Path:       "/user/beers/" + url.PathEscape(username),
		Params:     params,
		Collection: "beers",
		Delay:      c.pageDelay,
	}, handle)
}

// BeerCheckins pages through the check-ins of a beer. The window of the
// crawl asking for them is sent along, so each run keys its own cache
// entries instead of replaying an earlier run's listing.
func (c *Client) BeerCheckins(ctx context.Context, bid uint64, start time.Time, end time.Time, handle ItemHandler) (*PageSummary, error) {
	params := url.Values{}
	params.Set("type", "filter")
	params.Set("start_date", start.Format(dateLayout))
	params.Set("end_date", end.Format(dateLayout))

	return c.Paginate(ctx, PageRequest{
		Path:       fmt.Sprintf("/beer/checkins/%d", bid),
		Params:     params,
		Collection: "checkins",
	}, handle)
}

// BeerInfo returns the raw /beer/info payload, brewery included.
func (c *Client) BeerInfo(ctx context.Context, bid uint64) (json.RawMessage, error) {
	return c.Call(ctx, Request{Path: fmt.Sprintf("/beer/info/%d", bid)})
}
