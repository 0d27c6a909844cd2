// Package ingest drives a crawl: log in, walk the user's beers, walk each
// beer's check-ins and hand everything to the store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"droscher.com/BeerLedger/pkg/integrations/untappd"
	"droscher.com/BeerLedger/pkg/metrics"
	"droscher.com/BeerLedger/pkg/model"
)

const (
	progressEvery = 20
	resumeOverlap = 24 * time.Hour
)

var ErrNoStartDate = errors.New("no checkpoint, start date or join date to start from")

// ConsistencyError reports a beer whose stored check-ins do not add up to the
// count the API reported for it.
type ConsistencyError struct {
	BeerID   uint64
	Expected int
	Actual   int
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("beer %d: stored %d checkins, API reported %d", e.BeerID, e.Actual, e.Expected)
}

type Store interface {
	UpsertBeer(ctx context.Context, beer model.Beer) error
	UpsertCheckin(ctx context.Context, checkin model.Checkin) error
	LatestCheckinTimestamp(ctx context.Context) (*time.Time, error)
}

type Options struct {
	Username string
	Password string
	// Update resumes from the newest stored check-in instead of crawling
	// everything. Listings are always fetched from the network.
	Update bool
	Since  *time.Time
}

type Report struct {
	RunID      uuid.UUID
	Start      time.Time
	Beers      int
	Checkins   int
	TotalBeers int
	Pages      int
	Duration   time.Duration
}

type Syncer struct {
	client   *untappd.Client
	store    Store
	logger   *zap.Logger
	textfile string
	state    State
}

// NewSyncer wires a crawl. When textfile is set the run's metrics are written
// there once the run ends.
func NewSyncer(client *untappd.Client, store Store, textfile string, logger *zap.Logger) *Syncer {
	return &Syncer{
		client:   client,
		store:    store,
		logger:   logger.Named("ingest"),
		textfile: textfile,
		state:    StateUnauthenticated,
	}
}

func (s *Syncer) State() State {
	return s.state
}

func (s *Syncer) Run(ctx context.Context, opts Options) (report *Report, err error) {
	report = &Report{RunID: uuid.New(), Start: time.Now()}
	logger := s.logger.With(zap.String("run", report.RunID.String()), zap.String("username", opts.Username))

	s.state = StateUnauthenticated

	defer func() {
		report.Duration = time.Since(report.Start)

		if err != nil {
			s.transition(logger, StateError, zap.Error(err))
		} else {
			metrics.LastSuccess.SetToCurrentTime()
		}

		if s.textfile != "" {
			err = multierr.Append(err, metrics.WriteTextfile(s.textfile))
		}
	}()

	session, err := s.client.Login(ctx, opts.Username, opts.Password)
	if err != nil {
		return report, err
	}

	s.transition(logger, StateAuthenticated, zap.Uint64("uid", session.UserID))

	start, err := s.startDate(ctx, opts, session)
	if err != nil {
		return report, err
	}

	end := time.Now().UTC()

	client := s.client.Authenticated(session)
	if opts.Update {
		client = client.Refreshing()
	}

	s.transition(logger, StateEnumeratingBeers,
		zap.String("start", start.Format(time.DateOnly)), zap.String("end", end.Format(time.DateOnly)))

	summary, err := client.UserBeers(ctx, opts.Username, start, end, func(ctx context.Context, item json.RawMessage) error {
		beer, err := untappd.MapBeer(item)
		if err != nil {
			return err
		}

		if err = s.store.UpsertBeer(ctx, *beer); err != nil {
			return err
		}

		metrics.Ingested.WithLabelValues(metrics.EntityBeer).Inc()

		report.Beers++
		if report.Beers%progressEvery == 1 {
			logger.Info("Progress", zap.Int("beers", report.Beers), zap.Int("checkins", report.Checkins))
		}

		s.transition(logger, StateEnumeratingCheckins, zap.Uint64("beer", beer.ID))

		checkins, err := s.syncCheckins(ctx, client, logger, opts.Username, beer.ID, start, end)
		report.Checkins += checkins

		if err != nil {
			return err
		}

		s.transition(logger, StateEnumeratingBeers)

		return nil
	})
	if summary != nil {
		report.TotalBeers = summary.TotalCount
		report.Pages = summary.Pages
	}

	if err != nil {
		return report, err
	}

	s.transition(logger, StateDone,
		zap.Int("beers", report.Beers), zap.Int("total_beers", report.TotalBeers), zap.Int("checkins", report.Checkins))

	return report, nil
}

// syncCheckins stores the user's check-ins of one beer and checks them
// against the count the API reports.
func (s *Syncer) syncCheckins(
	ctx context.Context, client *untappd.Client, logger *zap.Logger, username string, beerID uint64, start time.Time, end time.Time,
) (int, error) {
	stored := 0

	summary, err := client.BeerCheckins(ctx, beerID, start, end, func(ctx context.Context, item json.RawMessage) error {
		author, err := untappd.CheckinAuthor(item)
		if err != nil {
			return err
		}

		if !strings.EqualFold(author, username) {
			return nil
		}

		checkin, err := untappd.MapCheckin(item)
		if err != nil {
			return err
		}

		if err = s.store.UpsertCheckin(ctx, *checkin); err != nil {
			return err
		}

		metrics.Ingested.WithLabelValues(metrics.EntityCheckin).Inc()
		metrics.Ingested.WithLabelValues(metrics.EntityBadge).Add(float64(len(checkin.Badges)))

		stored++

		return nil
	})
	if err != nil {
		return stored, err
	}

	if stored != summary.Count {
		return stored, &ConsistencyError{BeerID: beerID, Expected: summary.Count, Actual: stored}
	}

	logger.Debug("Beer done", zap.Uint64("beer", beerID), zap.Int("checkins", stored), zap.Int("pages", summary.Pages))

	return stored, nil
}

func (s *Syncer) startDate(ctx context.Context, opts Options, session *untappd.Session) (time.Time, error) {
	if opts.Update {
		checkpoint, err := s.store.LatestCheckinTimestamp(ctx)
		if err != nil {
			return time.Time{}, err
		}

		if checkpoint != nil {
			return checkpoint.Add(-resumeOverlap), nil
		}
	}

	if opts.Since != nil {
		return *opts.Since, nil
	}

	if !session.DateJoined.IsZero() {
		return session.DateJoined, nil
	}

	return time.Time{}, ErrNoStartDate
}

func (s *Syncer) transition(logger *zap.Logger, next State, fields ...zap.Field) {
	fields = append(fields, zap.Stringer("from", s.state), zap.Stringer("to", next))

	if next == StateEnumeratingCheckins || (next == StateEnumeratingBeers && s.state == StateEnumeratingCheckins) {
		logger.Debug("State change", fields...)
	} else {
		logger.Info("State change", fields...)
	}

	s.state = next
}
