// vchat - a terminal client for streaming chat backends.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/term"

	"github.com/jeranaias/vchat-tui/internal/chatapi"
	"github.com/jeranaias/vchat-tui/internal/commands"
	"github.com/jeranaias/vchat-tui/internal/config"
	"github.com/jeranaias/vchat-tui/internal/index"
	"github.com/jeranaias/vchat-tui/internal/orchestrator"
	"github.com/jeranaias/vchat-tui/internal/repl"
	"github.com/jeranaias/vchat-tui/internal/store"
	"github.com/jeranaias/vchat-tui/internal/titles"
	"github.com/jeranaias/vchat-tui/internal/ui"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

func main() {
	var (
		plainFlag   = flag.Bool("plain", false, "use the line-oriented interface")
		configFlag  = flag.String("config", "", "path to config file")
		convFlag    = flag.String("conversation", "", "conversation id to resume")
		versionFlag = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *versionFlag {
		fmt.Printf("vchat %s (%s)\n", Version, GitCommit)
		return
	}

	if err := run(*plainFlag, *configFlag, *convFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(plain bool, configPath, conversationID string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.RequireBackend(); err != nil {
		return err
	}

	kv, err := store.OpenBolt(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open conversation store: %w", err)
	}
	defer kv.Close()
	convStore := store.New(kv)

	searchIndex, err := index.Open(cfg.Storage.IndexPath)
	if err != nil {
		// Search is derived data; the client still works without it.
		log.Printf("search index unavailable: %v", err)
		searchIndex = nil
	} else {
		defer searchIndex.Close()
	}

	client := chatapi.NewClient(cfg.API.BaseURL, cfg.API.Model,
		chatapi.WithMaxRetries(cfg.API.MaxRetries))

	var resolver orchestrator.TitleResolver
	if cfg.Titles.Enabled {
		var opts []titles.Option
		if cfg.Titles.OEmbedURL != "" {
			opts = append(opts, titles.WithEndpoint(cfg.Titles.OEmbedURL))
		}
		opts = append(opts, titles.WithRateLimit(cfg.Titles.RatePerSec, 5))
		resolver = titles.NewResolver(opts...)
	}

	sess := orchestrator.NewSession(conversationID)
	cmdCtx := &commands.Context{
		Store:   convStore,
		Index:   searchIndex,
		Session: sess,
	}
	cmdCtx.SwitchSession = func(s *orchestrator.Session) { cmdCtx.Session = s }

	registry := commands.NewRegistry()

	// Live-reload the config file so language and delay edits apply to
	// subsequent requests without a restart. The orchestrator re-reads
	// the handle at the start of each request.
	live := config.NewLive(cfg)
	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	if path, err := config.ConfigPath(); err == nil && configPath == "" {
		if w, err := config.NewWatcher(path, live.Replace); err == nil {
			go w.Run(watchCtx)
		}
	}

	build := func(renderer orchestrator.Renderer) *orchestrator.Orchestrator {
		orchCfg := orchestrator.Config{
			Backend:  client,
			Store:    convStore,
			Titles:   resolver,
			Renderer: renderer,
			Settings: live,
		}
		if searchIndex != nil {
			orchCfg.Index = searchIndex
		}
		return orchestrator.New(orchCfg)
	}

	if plain || cfg.UI.Plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		renderer := repl.NewPlainRenderer(os.Stdout)
		loop := repl.New(build(renderer), registry, cmdCtx, renderer)
		return loop.Run(context.Background())
	}
	return ui.Run(registry, cmdCtx, build)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}
