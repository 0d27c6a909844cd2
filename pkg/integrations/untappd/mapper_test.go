package untappd_test

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "droscher.com/BeerLedger/pkg/integrations/untappd"
)

const breweryFixture = `{
	"brewery_id": 256500,
	"brewery_name": "Paronomastic Brewing",
	"brewery_page_url": "/ParonomasticBrewing",
	"brewery_type": "Micro Brewery",
	"country_name": "Canada",
	"contact": {"url": "https://paronomastic.test", "twitter": ""},
	"location": {"lng": -123.1, "brewery_city": "Vancouver", "lat": 49.2},
	"brewery_slug": "paronomastic-brewing"
}`

const checkinFixture = `{
	"checkin_id": 1200,
	"created_at": "Sat, 06 May 2023 20:15:00 -0700",
	"checkin_comment": "Peachy",
	"rating_score": 4.25,
	"user": {"uid": 4242, "user_name": "hophead"},
	"beer": {"bid": 4557393, "beer_name": "Precious Bet", "beer_abv": 8.2, "beer_ibu": 18, "beer_style": "Farmhouse Ale - Saison"},
	"brewery": ` + breweryFixture + `,
	"venue": {
		"venue_id": 99,
		"venue_name": "The Tap Room",
		"location": {"venue_city": "Vancouver", "lat": 49.2},
		"contact": {"venue_url": ""},
		"venue_icon": {"sm": "sm.png", "md": "md.png", "lg": "lg.png"}
	},
	"badges": {"count": 1, "items": [
		{"badge_id": 77, "badge_name": "Saison Says", "badge_description": "Farmhouse fan", "created_at": "Sat, 06 May 2023 20:15:00 -0700", "badge_image": {"sm": "b.png"}}
	]}
}`

func TestMapBrewery_MapsAllFields(t *testing.T) {
	brewery, err := MapBrewery(json.RawMessage(breweryFixture))
	require.NoError(t, err)

	assert.Equal(t, uint64(256500), brewery.ID)
	assert.Equal(t, "Paronomastic Brewing", brewery.Name)
	assert.Equal(t, "https://untappd.com/ParonomasticBrewing", brewery.PageURL)
	assert.Equal(t, "Micro Brewery", brewery.Type)
	assert.Equal(t, "Canada", brewery.CountryName)
	assert.Equal(t, "paronomastic-brewing", brewery.Slug)
	assert.JSONEq(t, `{"brewery_city":"Vancouver","lat":49.2,"lng":-123.1}`, string(brewery.LocationJSON))
	assert.Equal(t, `{"brewery_city":"Vancouver","lat":49.2,"lng":-123.1}`, string(brewery.LocationJSON))
}

func TestMapBrewery_WrappedAndFlatShapesAgree(t *testing.T) {
	flat, err := MapBrewery(json.RawMessage(breweryFixture))
	require.NoError(t, err)

	wrapped, err := MapBrewery(json.RawMessage(`{"brewery": ` + breweryFixture + `}`))
	require.NoError(t, err)

	assert.Equal(t, flat, wrapped)
}

func TestMapBrewery_MalformedBlobsAreOmitted(t *testing.T) {
	brewery, err := MapBrewery(json.RawMessage(`{"brewery_id": 1, "contact": "n/a", "location": []}`))
	require.NoError(t, err)

	assert.Nil(t, brewery.ContactJSON)
	assert.Nil(t, brewery.LocationJSON)
}

func TestMapBrewery_MissingIDIsMappingError(t *testing.T) {
	_, err := MapBrewery(json.RawMessage(`{"brewery_name": "Nameless"}`))
	require.ErrorIs(t, err, ErrMapping)
	assert.Contains(t, err.Error(), "brewery_id")
}

func TestMapBeer_AttachesSiblingBrewery(t *testing.T) {
	item := `{"first_checkin_id": 1, "beer": {"bid": 12, "beer_name": "Lights Out", "beer_ibu": 35.7}, "brewery": ` + breweryFixture + `}`

	beer, err := MapBeer(json.RawMessage(item))
	require.NoError(t, err)

	assert.Equal(t, uint64(12), beer.ID)
	assert.Equal(t, "Lights Out", beer.Name)
	assert.Equal(t, int64(35), beer.IBU)
	require.NotNil(t, beer.Brewery)
	assert.Equal(t, uint64(256500), beer.Brewery.ID)
}

func TestMapBeer_NestedBreweryWins(t *testing.T) {
	item := `{"beer": {"bid": 12, "brewery": {"brewery_id": 5}}, "brewery": ` + breweryFixture + `}`

	beer, err := MapBeer(json.RawMessage(item))
	require.NoError(t, err)
	require.NotNil(t, beer.Brewery)
	assert.Equal(t, uint64(5), beer.Brewery.ID)
}

func TestMapBeer_MissingBidIsMappingError(t *testing.T) {
	_, err := MapBeer(json.RawMessage(`{"beer": {"beer_name": "Mystery"}}`))
	require.ErrorIs(t, err, ErrMapping)
	assert.Contains(t, err.Error(), "bid")
}

func TestMapVenue_EmptyShapesProduceNoVenue(t *testing.T) {
	for _, raw := range []string{``, `null`, `{}`, `[]`, `{"venue": {}}`} {
		venue, err := MapVenue(json.RawMessage(raw))
		require.NoError(t, err, raw)
		assert.Nil(t, venue, raw)
	}
}

func TestMapVenue_MissingLocationIsEmptyObject(t *testing.T) {
	venue, err := MapVenue(json.RawMessage(`{"venue_name": "Backyard", "location": "somewhere"}`))
	require.NoError(t, err)

	assert.Equal(t, "Backyard", venue.Name)
	assert.Equal(t, "{}", string(venue.LocationJSON))
}

func TestMapVenue_LocationIsCanonical(t *testing.T) {
	first, err := MapVenue(json.RawMessage(`{"venue_name": "Pub", "location": {"b": 1, "a": 2}}`))
	require.NoError(t, err)

	second, err := MapVenue(json.RawMessage(`{"venue": {"venue_name": "Pub", "location": {"a": 2, "b": 1}}}`))
	require.NoError(t, err)

	assert.Equal(t, string(first.LocationJSON), string(second.LocationJSON))
}

func TestMapCheckin_MapsNestedEntities(t *testing.T) {
	checkin, err := MapCheckin(json.RawMessage(checkinFixture))
	require.NoError(t, err)

	assert.Equal(t, uint64(1200), checkin.ID)
	assert.True(t, checkin.CreatedAt.Equal(time.Date(2023, 5, 7, 3, 15, 0, 0, time.UTC)))
	assert.Equal(t, time.UTC, checkin.CreatedAt.Location())
	require.NotNil(t, checkin.RatingScore)
	assert.InDelta(t, 4.25, *checkin.RatingScore, 0.001)
	require.NotNil(t, checkin.Comment)
	assert.Equal(t, "Peachy", *checkin.Comment)
	assert.Equal(t, uint64(4242), checkin.UserID)
	assert.Equal(t, "hophead", checkin.UserName)

	require.NotNil(t, checkin.Beer)
	assert.Equal(t, uint64(4557393), checkin.Beer.ID)
	require.NotNil(t, checkin.Beer.Brewery)
	assert.Equal(t, uint64(256500), checkin.Beer.Brewery.ID)

	require.NotNil(t, checkin.Venue)
	assert.Equal(t, "The Tap Room", checkin.Venue.Name)
	assert.Equal(t, "lg.png", checkin.Venue.IconURL)

	require.Len(t, checkin.Badges, 1)
	assert.Equal(t, uint64(77), checkin.Badges[0].ID)
	assert.Equal(t, uint64(1200), checkin.Badges[0].CheckinID)
	assert.Equal(t, "b.png", checkin.Badges[0].ImageURL)
}

func TestMapCheckin_EmptyVenueLeavesVenueUnset(t *testing.T) {
	checkin, err := MapCheckin(json.RawMessage(`{"checkin_id": 1, "created_at": "2023-05-06T20:15:00Z", "user": {"uid": 1}, "beer": {"bid": 2}, "venue": []}`))
	require.NoError(t, err)

	assert.Nil(t, checkin.Venue)
	assert.Nil(t, checkin.VenueID)
	assert.Empty(t, checkin.Badges)
}

func TestMapCheckin_ZeroRatingMeansUnrated(t *testing.T) {
	checkin, err := MapCheckin(json.RawMessage(`{"checkin_id": 1, "created_at": "2023-05-06T20:15:00Z", "rating_score": 0, "user": {"uid": 1}, "beer": {"bid": 2}}`))
	require.NoError(t, err)
	assert.Nil(t, checkin.RatingScore)

	checkin, err = MapCheckin(json.RawMessage(`{"checkin_id": 1, "created_at": "2023-05-06T20:15:00Z", "rating_score": 0.25, "user": {"uid": 1}, "beer": {"bid": 2}}`))
	require.NoError(t, err)
	require.NotNil(t, checkin.RatingScore)
	assert.InDelta(t, 0.25, *checkin.RatingScore, 0.001)
}

func TestMapCheckin_ReportsEveryMissingField(t *testing.T) {
	_, err := MapCheckin(json.RawMessage(`{"rating_score": 3, "beer": null}`))
	require.ErrorIs(t, err, ErrMapping)

	for _, field := range []string{"checkin_id", "created_at", "user", "beer"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestMapCheckin_UnparseableTimestampFails(t *testing.T) {
	_, err := MapCheckin(json.RawMessage(`{"checkin_id": 1, "created_at": "last tuesday", "user": {"uid": 1}, "beer": {"bid": 2}}`))
	require.ErrorIs(t, err, ErrMapping)
	assert.Contains(t, err.Error(), "last tuesday")
}

func TestCheckinAuthor(t *testing.T) {
	author, err := CheckinAuthor(json.RawMessage(checkinFixture))
	require.NoError(t, err)
	assert.Equal(t, "hophead", author)

	_, err = CheckinAuthor(json.RawMessage(`{"checkin_id": 1}`))
	assert.ErrorIs(t, err, ErrMapping)
}

func TestParseTimestamp_AcceptsKnownLayouts(t *testing.T) {
	want := time.Date(2023, 5, 7, 3, 15, 0, 0, time.UTC)

	for _, value := range []string{
		"Sat, 06 May 2023 20:15:00 -0700",
		"Sun, 07 May 2023 03:15:00 UTC",
		"2023-05-06T20:15:00-07:00",
		"2023-05-06 20:15:00 -0700",
		"2023-05-06 20:15:00 -07:00",
	} {
		parsed, err := ParseTimestamp(value)
		require.NoError(t, err, value)
		assert.True(t, want.Equal(parsed), value)
	}
}
