package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

// Globals are flags shared by every command.
type Globals struct {
	Config  string `short:"c" default:"pokerrooms.hcl" env:"POKERROOMS_CONFIG" help:"Path to HCL configuration file"`
	Debug   bool   `env:"POKERROOMS_DEBUG" help:"Enable debug logging"`
	NoColor bool   `name:"no-color" help:"Disable coloured log output"`
}

type CLI struct {
	Globals

	Version kong.VersionFlag `short:"v" help:"Show version"`
	Serve   ServeCmd         `cmd:"" help:"Run the room server and inactivity sweeper"`
	Sweep   SweepCmd         `cmd:"" help:"Close inactive rooms once and exit"`
	Rooms   RoomsCmd         `cmd:"" help:"List active rooms"`
	Token   TokenCmd         `cmd:"" help:"Issue a signed access token (auth mode jwt)"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("pokerrooms"),
		kong.Description("Multiplayer Texas Hold'em rooms over websockets"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
