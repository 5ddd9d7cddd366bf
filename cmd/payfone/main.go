package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harunnryd/payfone/pkg/payfone"
	"github.com/harunnryd/payfone/pkg/runner"
	"github.com/harunnryd/payfone/pkg/tui"
)

func main() {
	configPath := flag.String("config", "", "path to config yaml (optional)")
	serve := flag.Bool("serve", false, "run the headless HTTP server instead of the terminal front-end")
	flag.Parse()

	cfg := payfone.DefaultConfig()
	if *configPath != "" {
		loaded, err := payfone.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "config error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	app, err := payfone.NewApp(cfg, payfone.Options{QuietLogs: !*serve})
	if err != nil {
		fmt.Fprintln(os.Stderr, "startup error:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lr := runner.NewLifecycleRunner(app, runner.Hooks{
		OnStart: func() {
			go func() {
				if err := app.ServeHTTP(ctx); err != nil {
					app.Logger().Error("server stopped", "error", err.Error())
				}
			}()
		},
	}, 10*time.Second)

	if *serve {
		if err := lr.Run(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "shutdown error:", err)
			os.Exit(1)
		}
		return
	}

	// Terminal front-end. The banner would tear up the alternate screen, and
	// the HTTP surface still runs in the background so the routes and
	// settings can be edited during a session.
	lr.SuppressBanner()
	go func() {
		_ = lr.Run(ctx)
	}()

	front := tui.New(tui.Options{
		Orchestrator: app.Orchestrator(),
		Directory:    app.Directory(),
		DialAnim:     app.DialAnim(),
		BookAnim:     app.BookAnim(),
	})
	runErr := front.Run(ctx)
	if err := lr.Stop(); err != nil {
		fmt.Fprintln(os.Stderr, "shutdown error:", err)
	}
	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
		os.Exit(1)
	}
}
