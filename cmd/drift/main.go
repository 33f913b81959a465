package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/perivale/drift/internal/config"
	"github.com/perivale/drift/internal/content"
	"github.com/perivale/drift/internal/logging"
	"github.com/perivale/drift/internal/ui"
)

func main() {
	if err := logging.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.Close()

	cfg, err := config.Load()
	if err != nil {
		logging.Warn("config load failed, using defaults", "err", err)
	}
	// Persist backfilled defaults on first run
	if err := cfg.Save(); err != nil {
		logging.Warn("config save failed", "err", err)
	}

	sessionID := uuid.NewString()
	logging.Info("starting feed session", "session", sessionID, "server", cfg.ServerURL)

	source := content.NewHTTPSource(cfg.ServerURL, 15*time.Second)
	// Reports dispatch from a background goroutine so engagement flushes
	// never stall the event loop.
	reports := content.NewAsyncReporter(content.NewReportClient(cfg.ServerURL, sessionID, 5*time.Second), 0)
	defer reports.Close()

	model := ui.New(cfg, source, reports)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())

	if _, err := p.Run(); err != nil {
		logging.Error("program failed", "err", err)
		fmt.Fprintf(os.Stderr, "drift: %v\n", err)
		os.Exit(1)
	}
}
