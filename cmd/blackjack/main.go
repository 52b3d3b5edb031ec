package main

import (
	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version  kong.VersionFlag `short:"v" help:"Show version"`
	LogLevel string           `short:"l" default:"info" enum:"debug,info,warn,error" help:"Log level (${enum})"`

	Serve       ServeCmd    `cmd:"" help:"Run the HTTP and WebSocket server"`
	Train       TrainCmd    `cmd:"" help:"Train the Q-learning agent by self-play"`
	Odds        OddsCmd     `cmd:"" help:"Estimate hit and stand win rates for a hand"`
	Strategy    StrategyCmd `cmd:"" help:"Show the learned strategy and compare it with basic strategy"`
	Play        PlayCmd     `cmd:"" help:"Play at a terminal table against computer seats"`
	VersionInfo VersionCmd  `cmd:"" name:"version" help:"Print the version"`
}

func main() {
	// A missing .env is fine; env tags fall back to the real environment.
	_ = godotenv.Load()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("blackjack"),
		kong.Description("Multi-seat blackjack with counting, Monte Carlo and Q-learning players"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
		kong.Bind(&cli),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
