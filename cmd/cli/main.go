package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/hrms/cmd/cli/internal/commands"
	"github.com/wolfeidau/hrms/internal/logger"
	"github.com/wolfeidau/hrms/internal/telemetry"
)

var (
	version = "dev"
	cli     struct {
		Login      commands.LoginCmd      `cmd:"" help:"Sign in"`
		Logout     commands.LogoutCmd     `cmd:"" help:"Sign out"`
		Whoami     commands.WhoamiCmd     `cmd:"" help:"Show the signed-in user"`
		Register   commands.RegisterCmd   `cmd:"" help:"Create an account"`
		Dashboard  commands.DashboardCmd  `cmd:"" help:"Show record totals"`
		Candidates commands.CandidatesCmd `cmd:"" help:"Manage candidates"`
		Employees  commands.EmployeesCmd  `cmd:"" help:"List employees"`
		Attendance commands.AttendanceCmd `cmd:"" help:"Track attendance"`
		Leaves     commands.LeavesCmd     `cmd:"" help:"Manage leave requests"`

		APIURL   string `name:"api-url" help:"API base URL (overrides config and HRMS_API_URL)"`
		StateDir string `help:"Directory for the session and cookies" type:"path"`
		CacheDir string `help:"Directory for the HTTP cache, in memory when empty" type:"path"`
		Config   string `help:"Config file, defaults to ~/.hrms/config.yaml" type:"path"`
		Debug    bool   `help:"Enable debug mode."`
		Version  kong.VersionFlag
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("hrms-cli"),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	log.Logger = logger.Setup(cli.Debug)

	shutdown, err := telemetry.InitTelemetry(ctx, "hrms-cli", version)
	cmd.FatalIfErrorf(err)

	err = cmd.Run(&commands.Globals{
		Debug:    cli.Debug,
		Version:  version,
		APIURL:   cli.APIURL,
		StateDir: cli.StateDir,
		CacheDir: cli.CacheDir,
		Config:   cli.Config,
	})

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if serr := shutdown(flushCtx); serr != nil {
		log.Warn().Err(serr).Msg("failed to flush telemetry")
	}
	cancel()

	cmd.FatalIfErrorf(err)
}
