package cmd

type Context struct {
	Debug bool
}

var CLI struct {
	Debug bool `help:"Enable debug mode"`

	Sync    SyncCmd    `cmd:"" default:"withargs" help:"Crawl the user's check-ins into the database"`
	Migrate MigrateCmd `cmd:"" help:"Create missing database tables"`
	Beer    BeerCmd    `cmd:"" help:"Fetch a single beer and store it"`
}
