package ingest_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"droscher.com/BeerLedger/configs"
	"droscher.com/BeerLedger/pkg/cache"
	. "droscher.com/BeerLedger/pkg/ingest"
	"droscher.com/BeerLedger/pkg/integrations/untappd"
	"droscher.com/BeerLedger/pkg/integrations/untappd/untappdtest"
	"droscher.com/BeerLedger/pkg/model"
	"droscher.com/BeerLedger/pkg/repository"
)

var (
	day1 = time.Date(2023, 5, 1, 20, 0, 0, 0, time.UTC)
	day2 = time.Date(2023, 5, 2, 20, 0, 0, 0, time.UTC)
	day3 = time.Date(2023, 5, 3, 20, 0, 0, 0, time.UTC)
)

type SyncTestSuite struct {
	suite.Suite
	api    *untappdtest.Server
	dir    string
	conf   *configs.Config
	repo   *repository.Repository
	logger *zap.Logger
}

func TestSyncTestSuite(t *testing.T) {
	suite.Run(t, new(SyncTestSuite))
}

func (suite *SyncTestSuite) SetupTest() {
	suite.logger = zaptest.NewLogger(suite.T())
	suite.api = untappdtest.NewServer(suite.T())
	suite.dir = suite.T().TempDir()
	suite.conf = suite.api.Config(suite.dir)
	suite.conf.DB.Path = filepath.Join(suite.dir, "ledger.db")

	repo, err := repository.Open(suite.conf, suite.logger)
	suite.Require().NoError(err)
	suite.Require().NoError(repo.Migrate(context.Background()))
	suite.repo = repo
}

func (suite *SyncTestSuite) TearDownTest() {
	suite.NoError(suite.repo.Close())
}

func (suite *SyncTestSuite) syncer(cacheDir string) *Syncer {
	store, err := cache.NewDirStore(cacheDir, suite.logger)
	suite.Require().NoError(err)

	return NewSyncer(untappd.NewClient(suite.conf, store, suite.logger), suite.repo, suite.conf.Metrics.Textfile, suite.logger)
}

func (suite *SyncTestSuite) counts() *repository.Counts {
	counts, err := suite.repo.Counts(context.Background())
	suite.Require().NoError(err)

	return counts
}

func (suite *SyncTestSuite) options() Options {
	return Options{Username: suite.api.Username, Password: suite.api.Password}
}

func (suite *SyncTestSuite) addHistory() {
	suite.api.AddCheckins(
		untappdtest.Checkin{ID: 1, BeerID: 1, UserName: "hophead", CreatedAt: day1, Rating: 4, Venue: "Tap Room"},
		untappdtest.Checkin{ID: 2, BeerID: 1, UserName: "hophead", CreatedAt: day2, Rating: 3.5, Venue: "Tap Room"},
		untappdtest.Checkin{ID: 3, BeerID: 1, UserName: "HopHead", CreatedAt: day3},
		untappdtest.Checkin{ID: 4, BeerID: 1, UserName: "someone", CreatedAt: day2},
		untappdtest.Checkin{ID: 5, BeerID: 2, UserName: "hophead", CreatedAt: day3, Badges: []uint64{100, 101}},
		untappdtest.Checkin{ID: 6, BeerID: 3, UserName: "someone", CreatedAt: day3},
	)
}

func (suite *SyncTestSuite) TestRun_StoresOnlyTheUsersHistory() {
	suite.addHistory()

	syncer := suite.syncer(suite.conf.Cache.Dir)
	report, err := syncer.Run(context.Background(), suite.options())
	suite.Require().NoError(err)

	suite.Equal(StateDone, syncer.State())
	suite.Equal(2, report.Beers)
	suite.Equal(2, report.TotalBeers)
	suite.Equal(4, report.Checkins)
	suite.Equal(1, report.Pages)
	suite.NotEmpty(report.RunID.String())

	counts := suite.counts()
	suite.Equal(int64(4), counts.Checkins)
	suite.Equal(int64(2), counts.Beers)
	suite.Equal(int64(2), counts.Breweries)
	suite.Equal(int64(1), counts.Venues)
	suite.Equal(int64(2), counts.Badges)

	var foreign int64
	suite.Require().NoError(suite.repo.DB.Model(&model.Checkin{}).Where("id IN ?", []uint64{4, 6}).Count(&foreign).Error)
	suite.Zero(foreign)

	var beer model.Beer
	suite.Require().NoError(suite.repo.DB.First(&beer, 2).Error)
	suite.Require().NotNil(beer.BreweryID)
	suite.Equal(uint64(20), *beer.BreweryID)
}

func (suite *SyncTestSuite) TestRun_SecondRunIsIdempotentAndServedFromCache() {
	suite.addHistory()

	_, err := suite.syncer(suite.conf.Cache.Dir).Run(context.Background(), suite.options())
	suite.Require().NoError(err)

	first := suite.counts()
	requests := suite.api.TotalRequests()

	report, err := suite.syncer(suite.conf.Cache.Dir).Run(context.Background(), suite.options())
	suite.Require().NoError(err)

	suite.Equal(4, report.Checkins)
	suite.Equal(first, suite.counts())
	suite.Equal(requests, suite.api.TotalRequests())
}

func (suite *SyncTestSuite) TestRun_ResumesOneDayBeforeCheckpoint() {
	suite.api.AddCheckins(
		untappdtest.Checkin{ID: 1, BeerID: 1, UserName: "hophead", CreatedAt: day1},
		untappdtest.Checkin{ID: 3, BeerID: 3, UserName: "hophead", CreatedAt: day3},
	)
	suite.Require().NoError(suite.repo.UpsertCheckin(context.Background(), model.Checkin{ID: 2, CreatedAt: day2, UserID: 4242}))

	opts := suite.options()
	opts.Update = true

	report, err := suite.syncer(suite.conf.Cache.Dir).Run(context.Background(), opts)
	suite.Require().NoError(err)

	suite.Equal(2, report.Beers, "day 1 is re-observed because the run starts a day before the checkpoint")
	suite.Equal(int64(3), suite.counts().Checkins)

	checkpoint, err := suite.repo.LatestCheckinTimestamp(context.Background())
	suite.Require().NoError(err)
	suite.True(day3.Equal(*checkpoint))

	report, err = suite.syncer(suite.conf.Cache.Dir).Run(context.Background(), opts)
	suite.Require().NoError(err)
	suite.Equal(1, report.Beers)
	suite.Equal(int64(3), suite.counts().Checkins)
}

func (suite *SyncTestSuite) TestRun_UpdatePicksUpNewCheckinsOfCrawledBeers() {
	suite.addHistory()

	_, err := suite.syncer(suite.conf.Cache.Dir).Run(context.Background(), suite.options())
	suite.Require().NoError(err)
	suite.Require().Equal(int64(4), suite.counts().Checkins)

	suite.api.AddCheckins(untappdtest.Checkin{ID: 7, BeerID: 1, UserName: "hophead", CreatedAt: day3.AddDate(0, 0, 1)})

	opts := suite.options()
	opts.Update = true

	report, err := suite.syncer(suite.conf.Cache.Dir).Run(context.Background(), opts)
	suite.Require().NoError(err)

	suite.Equal(5, report.Checkins)
	suite.Equal(int64(5), suite.counts().Checkins)

	checkpoint, err := suite.repo.LatestCheckinTimestamp(context.Background())
	suite.Require().NoError(err)
	suite.True(day3.AddDate(0, 0, 1).Equal(*checkpoint))

	suite.api.AddCheckins(untappdtest.Checkin{ID: 8, BeerID: 2, UserName: "hophead", CreatedAt: day3.AddDate(0, 0, 1)})

	report, err = suite.syncer(suite.conf.Cache.Dir).Run(context.Background(), opts)
	suite.Require().NoError(err)
	suite.Equal(int64(6), suite.counts().Checkins, "a second update on the same day still sees new check-ins")
	suite.Equal(2, report.Beers)
}

func (suite *SyncTestSuite) TestRun_UpdateWithoutCheckpointUsesSince() {
	suite.addHistory()

	since := day3
	opts := suite.options()
	opts.Update = true
	opts.Since = &since

	report, err := suite.syncer(suite.conf.Cache.Dir).Run(context.Background(), opts)
	suite.Require().NoError(err)
	suite.Equal(2, report.Beers)
}

func (suite *SyncTestSuite) TestRun_CountMismatchIsFatal() {
	suite.addHistory()
	suite.api.CountOverride[1] = 5

	syncer := suite.syncer(suite.conf.Cache.Dir)
	_, err := syncer.Run(context.Background(), suite.options())

	var consistency *ConsistencyError
	suite.Require().ErrorAs(err, &consistency)
	suite.Equal(uint64(1), consistency.BeerID)
	suite.Equal(5, consistency.Expected)
	suite.Equal(3, consistency.Actual)
	suite.Equal(StateError, syncer.State())
}

func (suite *SyncTestSuite) TestRun_BeerWithoutCheckinsIsFine() {
	suite.addHistory()
	suite.api.ListedBeers = []uint64{99}

	report, err := suite.syncer(suite.conf.Cache.Dir).Run(context.Background(), suite.options())
	suite.Require().NoError(err)

	suite.Equal(3, report.Beers)
	suite.Equal(4, report.Checkins)
	suite.Equal(2, report.Pages)
	suite.Equal(int64(3), suite.counts().Beers)
}

func (suite *SyncTestSuite) TestRun_NeedsAStartDate() {
	suite.api.DateJoined = time.Time{}

	syncer := suite.syncer(suite.conf.Cache.Dir)
	_, err := syncer.Run(context.Background(), suite.options())
	suite.Require().ErrorIs(err, ErrNoStartDate)
	suite.Equal(StateError, syncer.State())
}

func (suite *SyncTestSuite) TestRun_WritesMetricsTextfile() {
	suite.addHistory()
	suite.conf.Metrics.Textfile = filepath.Join(suite.dir, "beerledger.prom")

	_, err := suite.syncer(suite.conf.Cache.Dir).Run(context.Background(), suite.options())
	suite.Require().NoError(err)

	content, err := os.ReadFile(suite.conf.Metrics.Textfile)
	suite.Require().NoError(err)
	suite.Contains(string(content), `beerledger_ingested_total{entity="checkin"}`)
	suite.Contains(string(content), "beerledger_last_success_timestamp_seconds")
}

func (suite *SyncTestSuite) TestRun_StopsWhenCancelled() {
	suite.addHistory()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := suite.syncer(suite.conf.Cache.Dir).Run(ctx, suite.options())
	suite.Require().ErrorIs(err, context.Canceled)
	suite.Zero(suite.counts().Checkins)
}
