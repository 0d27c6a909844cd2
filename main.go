package main

import (
	"github.com/alecthomas/kong"

	"droscher.com/BeerLedger/cmd"
)

func main() {
	ctx := kong.Parse(&cmd.CLI, kong.Name("beerledger"), kong.Description("BeerLedger keeps a local copy of your Untappd check-ins."))
	err := ctx.Run(&cmd.Context{Debug: cmd.CLI.Debug})
	ctx.FatalIfErrorf(err)
}
