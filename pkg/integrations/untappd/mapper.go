package untappd

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"gorm.io/datatypes"

	"droscher.com/BeerLedger/pkg/model"
)

const pageURLPrefix = "https://untappd.com"

var timestampLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 -07:00",
}

var emptyObject = datatypes.JSON("{}")

func MapBrewery(raw json.RawMessage) (*model.Brewery, error) {
	inner, _ := unwrap(raw, "brewery")

	var payload breweryPayload
	if err := json.Unmarshal(inner, &payload); err != nil {
		return nil, fmt.Errorf("%w: brewery: %w", ErrMapping, err)
	}

	if err := checkRequired("brewery", payload); err != nil {
		return nil, err
	}

	brewery := &model.Brewery{
		ID:          payload.BreweryID,
		Name:        payload.BreweryName,
		Type:        payload.BreweryType,
		CountryName: payload.CountryName,
		Slug:        payload.BrewerySlug,
	}

	if payload.BreweryPageURL != "" {
		brewery.PageURL = pageURLPrefix + payload.BreweryPageURL
	}

	if contact, ok := canonicalJSON(payload.Contact); ok {
		brewery.ContactJSON = contact
	}

	if location, ok := canonicalJSON(payload.Location); ok {
		brewery.LocationJSON = location
	}

	return brewery, nil
}

// MapBeer accepts a bare beer, a {"beer": ...} wrapper or a /user/beers item
// where the brewery sits next to the wrapped beer.
func MapBeer(raw json.RawMessage) (*model.Beer, error) {
	inner, siblings := unwrap(raw, "beer")

	var payload beerPayload
	if err := json.Unmarshal(inner, &payload); err != nil {
		return nil, fmt.Errorf("%w: beer: %w", ErrMapping, err)
	}

	if err := checkRequired("beer", payload); err != nil {
		return nil, err
	}

	beer := &model.Beer{
		ID:          payload.BID,
		Name:        payload.BeerName,
		LabelURL:    payload.BeerLabel,
		ABV:         payload.BeerABV,
		IBU:         int64(payload.BeerIBU),
		Style:       payload.BeerStyle,
		Description: payload.BeerDescription,
		RatingScore: payload.RatingScore,
		RatingCount: payload.RatingCount,
		Slug:        payload.BeerSlug,
	}

	breweryRaw := payload.Brewery
	if isEmptyJSON(breweryRaw) {
		breweryRaw = siblings["brewery"]
	}

	if !isEmptyJSON(breweryRaw) {
		brewery, err := MapBrewery(breweryRaw)
		if err != nil {
			return nil, fmt.Errorf("beer %d: %w", beer.ID, err)
		}

		beer.Brewery = brewery
	}

	return beer, nil
}

// MapVenue returns nil without error for an absent or empty venue.
func MapVenue(raw json.RawMessage) (*model.Venue, error) {
	if isEmptyJSON(raw) {
		return nil, nil //nolint:nilnil // no venue is a valid outcome
	}

	inner, _ := unwrap(raw, "venue")
	if isEmptyJSON(inner) {
		return nil, nil //nolint:nilnil // no venue is a valid outcome
	}

	var payload venuePayload
	if err := json.Unmarshal(inner, &payload); err != nil {
		return nil, fmt.Errorf("%w: venue: %w", ErrMapping, err)
	}

	if err := checkRequired("venue", payload); err != nil {
		return nil, err
	}

	venue := &model.Venue{
		Name:         payload.VenueName,
		LocationJSON: emptyObject,
		IconURL:      payload.VenueIcon.best(),
	}

	if location, ok := canonicalJSON(payload.Location); ok {
		venue.LocationJSON = location
	}

	if contact, ok := canonicalJSON(payload.Contact); ok {
		venue.ContactJSON = contact
	}

	return venue, nil
}

func MapBadge(raw json.RawMessage, checkinID uint64) (*model.Badge, error) {
	inner, _ := unwrap(raw, "badge")

	var payload badgePayload
	if err := json.Unmarshal(inner, &payload); err != nil {
		return nil, fmt.Errorf("%w: badge: %w", ErrMapping, err)
	}

	if err := checkRequired("badge", payload); err != nil {
		return nil, err
	}

	createdAt, err := ParseTimestamp(payload.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("badge %d: %w", payload.BadgeID, err)
	}

	return &model.Badge{
		ID:          payload.BadgeID,
		Name:        payload.BadgeName,
		Description: payload.BadgeDescription,
		CreatedAt:   createdAt,
		CheckinID:   checkinID,
		ImageURL:    payload.BadgeImage.best(),
	}, nil
}

func MapCheckin(raw json.RawMessage) (*model.Checkin, error) {
	inner, _ := unwrap(raw, "checkin")

	var payload checkinPayload
	if err := json.Unmarshal(inner, &payload); err != nil {
		return nil, fmt.Errorf("%w: checkin: %w", ErrMapping, err)
	}

	if isEmptyJSON(payload.Beer) {
		payload.Beer = nil
	}

	if err := checkRequired("checkin", payload); err != nil {
		return nil, err
	}

	createdAt, err := ParseTimestamp(payload.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("checkin %d: %w", payload.CheckinID, err)
	}

	beer, err := MapBeer(payload.Beer)
	if err != nil {
		return nil, fmt.Errorf("checkin %d: %w", payload.CheckinID, err)
	}

	if beer.Brewery == nil && !isEmptyJSON(payload.Brewery) {
		if beer.Brewery, err = MapBrewery(payload.Brewery); err != nil {
			return nil, fmt.Errorf("checkin %d: %w", payload.CheckinID, err)
		}
	}

	venue, err := MapVenue(payload.Venue)
	if err != nil {
		return nil, fmt.Errorf("checkin %d: %w", payload.CheckinID, err)
	}

	checkin := &model.Checkin{
		ID:          payload.CheckinID,
		CreatedAt:   createdAt,
		RatingScore: checkinRating(payload.RatingScore),
		Comment:     payload.CheckinComment,
		UserID:      payload.User.UID,
		UserName:    payload.User.UserName,
		Beer:        beer,
		Venue:       venue,
	}

	if payload.Badges != nil {
		for _, item := range payload.Badges.Items {
			badge, err := MapBadge(item, checkin.ID)
			if err != nil {
				return nil, fmt.Errorf("checkin %d: %w", checkin.ID, err)
			}

			checkin.Badges = append(checkin.Badges, *badge)
		}
	}

	return checkin, nil
}

// checkinRating maps the 0 Untappd sends for an unrated check-in to no
// rating. Real ratings start at 0.25.
func checkinRating(score *float64) *float64 {
	if score == nil || *score == 0 {
		return nil
	}

	return score
}

// CheckinAuthor reads the author's user name without validating the rest of
// the check-in.
func CheckinAuthor(raw json.RawMessage) (string, error) {
	inner, _ := unwrap(raw, "checkin")

	var payload struct {
		User *struct {
			UserName string `json:"user_name"`
		} `json:"user"`
	}

	if err := json.Unmarshal(inner, &payload); err != nil {
		return "", fmt.Errorf("%w: checkin: %w", ErrMapping, err)
	}

	if payload.User == nil || payload.User.UserName == "" {
		return "", fmt.Errorf("%w: checkin has no user.user_name", ErrMapping)
	}

	return payload.User.UserName, nil
}

// ParseTimestamp accepts the absolute timestamp formats the API emits and
// returns the instant in UTC.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)

	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: unparseable timestamp %q", ErrMapping, value)
}

func (i imagePayload) best() string {
	switch {
	case i.LG != "":
		return i.LG
	case i.MD != "":
		return i.MD
	default:
		return i.SM
	}
}

// unwrap returns the object stored under key when raw is a wrapper, along with
// the wrapper's other members. Anything else is returned unchanged.
func unwrap(raw json.RawMessage, key string) (json.RawMessage, map[string]json.RawMessage) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		return raw, nil
	}

	inner, ok := members[key]
	if !ok || !isObject(inner) {
		return raw, nil
	}

	return inner, members
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)

	return len(trimmed) > 0 && trimmed[0] == '{'
}

func isEmptyJSON(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", "{}", "[]", `""`:
		return true
	default:
		return false
	}
}

// canonicalJSON re-encodes an object with sorted keys. Non-objects and empty
// values are reported as absent.
func canonicalJSON(raw json.RawMessage) (datatypes.JSON, bool) {
	if isEmptyJSON(raw) || !isObject(raw) {
		return nil, false
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var value map[string]any
	if err := decoder.Decode(&value); err != nil {
		return nil, false
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, false
	}

	return datatypes.JSON(encoded), true
}
