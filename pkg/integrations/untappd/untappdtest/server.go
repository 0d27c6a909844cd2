// Package untappdtest provides an in-process fake of the Untappd v4 API for
// tests of the crawler.
package untappdtest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"droscher.com/BeerLedger/configs"
	"droscher.com/BeerLedger/pkg/cache"
)

const (
	ClientID     = "test-client"
	ClientSecret = "test-secret"
	Token        = "0123456789ABCDEF0123456789ABCDEF01234567"
)

type Checkin struct {
	ID        uint64
	BeerID    uint64
	BreweryID uint64
	UserName  string
	UID       uint64
	CreatedAt time.Time
	Rating    float64
	Comment   string
	Venue     string
	Badges    []uint64
}

// Server serves a fixed set of check-ins through the xauth, appInit,
// user/beers, beer/checkins and beer/info endpoints.
type Server struct {
	*httptest.Server

	Username   string
	Password   string
	UID        uint64
	DateJoined time.Time
	PageSize   int

	// CountOverride replaces the count reported for a beer's check-ins.
	CountOverride map[uint64]int
	// ListedBeers are listed for the user on top of the beers they checked
	// in, whatever the dates asked for.
	ListedBeers []uint64

	mu       sync.Mutex
	checkins []Checkin
	requests map[string]int
}

func NewServer(t *testing.T) *Server {
	t.Helper()

	server := &Server{
		Username:      "hophead",
		Password:      "s3cret",
		UID:           4242,
		DateJoined:    time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC),
		PageSize:      2,
		CountOverride: map[uint64]int{},
		requests:      map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v4/xauth/validate_username", server.validateUsername)
	mux.HandleFunc("POST /v4/xauth", server.xauth)
	mux.HandleFunc("GET /v4/helpers/appInit", server.authorized(server.appInit))
	mux.HandleFunc("GET /v4/user/beers/{username}", server.authorized(server.userBeers))
	mux.HandleFunc("GET /v4/beer/checkins/{bid}", server.authorized(server.beerCheckins))
	mux.HandleFunc("GET /v4/beer/info/{bid}", server.beerInfo)

	server.Server = httptest.NewServer(server.counting(mux))
	t.Cleanup(server.Close)

	return server
}

// Config returns a configuration pointing at the fake with its own cache and
// credentials locations under dir.
func (s *Server) Config(dir string) *configs.Config {
	conf := &configs.Config{}
	conf.API.BaseURL = s.URL + "/v4"
	conf.API.ClientID = ClientID
	conf.API.ClientSecret = ClientSecret
	conf.API.UserAgent = "okhttp/4.9.3"
	conf.API.AppVersion = "4.5.10"
	conf.API.MaxPages = 100
	conf.Cache.Backend = cache.BackendDir
	conf.Cache.Dir = dir + "/cache"
	conf.Auth.CredentialsFile = dir + "/creds.json"

	return conf
}

// AddCheckins registers check-ins. A zero UID or BreweryID is filled in from
// the user name and beer id.
func (s *Server) AddCheckins(checkins ...Checkin) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, checkin := range checkins {
		if checkin.UID == 0 {
			checkin.UID = 1
			if strings.EqualFold(checkin.UserName, s.Username) {
				checkin.UID = s.UID
			}
		}

		if checkin.BreweryID == 0 {
			checkin.BreweryID = checkin.BeerID * 10
		}

		s.checkins = append(s.checkins, checkin)
	}
}

// Requests reports how many requests hit a path since the server started.
func (s *Server) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.requests[path]
}

func (s *Server) TotalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, count := range s.requests {
		total += count
	}

	return total
}

func (s *Server) counting(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[strings.TrimPrefix(r.URL.Path, "/v4")]++
		s.mu.Unlock()

		if r.URL.Query().Get("client_id") != ClientID || r.URL.Query().Get("client_secret") != ClientSecret {
			writeError(w, http.StatusUnauthorized, "invalid client credentials")

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+Token {
			writeError(w, http.StatusUnauthorized, "invalid token")

			return
		}

		next(w, r)
	}
}

func (s *Server) validateUsername(w http.ResponseWriter, r *http.Request) {
	if r.PostFormValue("user_data") != s.Username {
		writeError(w, http.StatusNotFound, "unknown user")

		return
	}

	writeResponse(w, map[string]any{"uid": strconv.FormatUint(s.UID, 10)})
}

func (s *Server) xauth(w http.ResponseWriter, r *http.Request) {
	if r.PostFormValue("user_name") != s.Username || r.PostFormValue("user_password") != s.Password {
		writeError(w, http.StatusUnauthorized, "invalid credentials")

		return
	}

	writeResponse(w, map[string]any{"access_token": Token})
}

func (s *Server) appInit(w http.ResponseWriter, _ *http.Request) {
	user := map[string]any{"uid": s.UID, "user_name": s.Username}
	if !s.DateJoined.IsZero() {
		user["date_joined"] = s.DateJoined.Format(time.RFC1123Z)
	}

	writeResponse(w, map[string]any{"settings": map[string]any{"user": user}})
}

func (s *Server) userBeers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	username := r.PathValue("username")

	start, err := time.Parse("2006-01-02", query.Get("start_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad start_date")

		return
	}

	end, err := time.Parse("2006-01-02", query.Get("end_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad end_date")

		return
	}

	s.mu.Lock()
	seen := map[uint64]bool{}

	var beers []Checkin

	for _, checkin := range s.checkins {
		day := checkin.CreatedAt.UTC().Truncate(24 * time.Hour)
		if !strings.EqualFold(checkin.UserName, username) || day.Before(start) || day.After(end) || seen[checkin.BeerID] {
			continue
		}

		seen[checkin.BeerID] = true
		beers = append(beers, checkin)
	}

	for _, bid := range s.ListedBeers {
		if !seen[bid] {
			seen[bid] = true
			beers = append(beers, Checkin{BeerID: bid, BreweryID: bid * 10, CreatedAt: start})
		}
	}
	s.mu.Unlock()

	sort.Slice(beers, func(i, j int) bool { return beers[i].BeerID < beers[j].BeerID })

	items := make([]any, 0, len(beers))
	for _, checkin := range beers {
		items = append(items, map[string]any{
			"first_checkin_id":  checkin.ID,
			"recent_created_at": checkin.CreatedAt.Format(time.RFC1123Z),
			"beer":              beerJSON(checkin.BeerID),
			"brewery":           breweryJSON(checkin.BreweryID),
		})
	}

	page, next := s.slice(items, query.Get("offset"))
	response := map[string]any{
		"total_count": len(items),
		"pagination":  map[string]any{"next_url": s.nextURL(r, next)},
		"beers":       map[string]any{"count": len(page), "items": page},
	}

	writeResponse(w, response)
}

func (s *Server) beerCheckins(w http.ResponseWriter, r *http.Request) {
	bid, err := strconv.ParseUint(r.PathValue("bid"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown beer")

		return
	}

	s.mu.Lock()

	var (
		matching []Checkin
		own      int
	)

	for _, checkin := range s.checkins {
		if checkin.BeerID != bid {
			continue
		}

		matching = append(matching, checkin)

		if strings.EqualFold(checkin.UserName, s.Username) {
			own++
		}
	}

	if override, ok := s.CountOverride[bid]; ok {
		own = override
	}
	s.mu.Unlock()

	sort.Slice(matching, func(i, j int) bool { return matching[i].ID > matching[j].ID })

	items := make([]any, 0, len(matching))
	for _, checkin := range matching {
		items = append(items, checkinJSON(checkin))
	}

	page, next := s.slice(items, r.URL.Query().Get("offset"))
	writeResponse(w, map[string]any{
		"pagination": map[string]any{"next_url": s.nextURL(r, next)},
		"checkins":   map[string]any{"count": own, "items": page},
	})
}

func (s *Server) beerInfo(w http.ResponseWriter, r *http.Request) {
	bid, err := strconv.ParseUint(r.PathValue("bid"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown beer")

		return
	}

	beer := beerJSON(bid)
	beer["brewery"] = breweryJSON(bid * 10)

	writeResponse(w, map[string]any{"beer": beer})
}

func (s *Server) slice(items []any, offset string) ([]any, int) {
	start, _ := strconv.Atoi(offset)
	if start > len(items) {
		start = len(items)
	}

	end := start + s.PageSize
	if end >= len(items) {
		return items[start:], -1
	}

	return items[start:end], end
}

func (s *Server) nextURL(r *http.Request, next int) string {
	if next < 0 {
		return ""
	}

	return fmt.Sprintf("%s%s?offset=%d", s.URL, r.URL.Path, next)
}

func beerJSON(bid uint64) map[string]any {
	return map[string]any{
		"bid":              bid,
		"beer_name":        fmt.Sprintf("Beer %d", bid),
		"beer_label":       fmt.Sprintf("https://labels.untappd.test/%d.png", bid),
		"beer_abv":         6.5,
		"beer_ibu":         40,
		"beer_style":       "IPA - American",
		"beer_description": "Hazy and bright",
		"rating_score":     3.9,
		"rating_count":     120,
		"beer_slug":        fmt.Sprintf("beer-%d", bid),
	}
}

func breweryJSON(id uint64) map[string]any {
	return map[string]any{
		"brewery_id":       id,
		"brewery_name":     fmt.Sprintf("Brewery %d", id),
		"brewery_page_url": fmt.Sprintf("/brewery-%d", id),
		"brewery_type":     "Micro Brewery",
		"country_name":     "Canada",
		"contact":          map[string]any{"url": "https://brewery.test", "twitter": ""},
		"location":         map[string]any{"lng": -123.1, "lat": 49.2, "brewery_city": "Vancouver"},
		"brewery_slug":     fmt.Sprintf("brewery-%d", id),
	}
}

func checkinJSON(checkin Checkin) map[string]any {
	badges := make([]any, 0, len(checkin.Badges))
	for _, id := range checkin.Badges {
		badges = append(badges, map[string]any{
			"badge_id":          id,
			"badge_name":        fmt.Sprintf("Badge %d", id),
			"badge_description": "Earned it",
			"created_at":        checkin.CreatedAt.Format(time.RFC1123Z),
			"badge_image":       map[string]any{"sm": "sm.png", "md": "md.png", "lg": "lg.png"},
		})
	}

	var venue any = []any{}
	if checkin.Venue != "" {
		venue = map[string]any{
			"venue_id":   checkin.ID,
			"venue_name": checkin.Venue,
			"location":   map[string]any{"venue_city": "Vancouver", "lat": 49.2, "lng": -123.1},
			"contact":    map[string]any{"venue_url": ""},
			"venue_icon": map[string]any{"sm": "icon-sm.png", "md": "icon-md.png", "lg": "icon-lg.png"},
		}
	}

	return map[string]any{
		"checkin_id":      checkin.ID,
		"created_at":      checkin.CreatedAt.Format(time.RFC1123Z),
		"checkin_comment": checkin.Comment,
		"rating_score":    checkin.Rating,
		"user":            map[string]any{"uid": checkin.UID, "user_name": checkin.UserName},
		"beer":            beerJSON(checkin.BeerID),
		"brewery":         breweryJSON(checkin.BreweryID),
		"venue":           venue,
		"badges":          map[string]any{"count": len(badges), "items": badges},
	}
}

func writeResponse(w http.ResponseWriter, response any) {
	writeEnvelope(w, http.StatusOK, map[string]any{"meta": map[string]any{"code": http.StatusOK}, "response": response})
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeEnvelope(w, status, map[string]any{
		"meta":     map[string]any{"code": status, "error_detail": detail},
		"response": []any{},
	})
}

func writeEnvelope(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
