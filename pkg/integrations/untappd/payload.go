package untappd

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"go.uber.org/multierr"
)

var validate = newValidator()

type imagePayload struct {
	SM string `json:"sm"`
	MD string `json:"md"`
	LG string `json:"lg"`
}

type breweryPayload struct {
	BreweryID      uint64          `json:"brewery_id"       validate:"required"`
	BreweryName    string          `json:"brewery_name"`
	BreweryPageURL string          `json:"brewery_page_url"`
	BreweryType    string          `json:"brewery_type"`
	CountryName    string          `json:"country_name"`
	Contact        json.RawMessage `json:"contact"`
	Location       json.RawMessage `json:"location"`
	BrewerySlug    string          `json:"brewery_slug"`
}

type beerPayload struct {
	BID             uint64          `json:"bid"              validate:"required"`
	BeerName        string          `json:"beer_name"`
	BeerLabel       string          `json:"beer_label"`
	BeerABV         float64         `json:"beer_abv"`
	BeerIBU         float64         `json:"beer_ibu"`
	BeerStyle       string          `json:"beer_style"`
	BeerDescription string          `json:"beer_description"`
	RatingScore     float64         `json:"rating_score"`
	RatingCount     int64           `json:"rating_count"`
	BeerSlug        string          `json:"beer_slug"`
	Brewery         json.RawMessage `json:"brewery"`
}

type venuePayload struct {
	VenueName string          `json:"venue_name" validate:"required"`
	Location  json.RawMessage `json:"location"`
	Contact   json.RawMessage `json:"contact"`
	VenueIcon imagePayload    `json:"venue_icon"`
}

type badgePayload struct {
	BadgeID          uint64       `json:"badge_id"          validate:"required"`
	BadgeName        string       `json:"badge_name"`
	BadgeDescription string       `json:"badge_description"`
	CreatedAt        string       `json:"created_at"        validate:"required"`
	BadgeImage       imagePayload `json:"badge_image"`
}

type userPayload struct {
	UID      uint64 `json:"uid"       validate:"required"`
	UserName string `json:"user_name"`
}

type badgeListPayload struct {
	Count int               `json:"count"`
	Items []json.RawMessage `json:"items"`
}

type checkinPayload struct {
	CheckinID      uint64            `json:"checkin_id"      validate:"required"`
	CreatedAt      string            `json:"created_at"      validate:"required"`
	CheckinComment *string           `json:"checkin_comment"`
	RatingScore    *float64          `json:"rating_score"`
	User           *userPayload      `json:"user"            validate:"required"`
	Beer           json.RawMessage   `json:"beer"            validate:"required"`
	Brewery        json.RawMessage   `json:"brewery"`
	Venue          json.RawMessage   `json:"venue"`
	Badges         *badgeListPayload `json:"badges"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	return v
}

// checkRequired reports every missing mandatory field of a payload at once.
func checkRequired(kind string, payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return fmt.Errorf("%w: %s: %w", ErrMapping, kind, err)
	}

	var errs error
	for _, fieldError := range fieldErrors {
		_, field, _ := strings.Cut(fieldError.Namespace(), ".")
		errs = multierr.Append(errs, fmt.Errorf("missing %s", field))
	}

	return fmt.Errorf("%w: %s: %w", ErrMapping, kind, errs)
}
