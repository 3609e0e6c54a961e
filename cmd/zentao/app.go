package main

import (
	"os"
	"strings"

	"golang.org/x/term"

	"zentaohelper/internal/automation"
	"zentaohelper/internal/config"
	"zentaohelper/internal/logging"
	"zentaohelper/internal/perception"
	"zentaohelper/internal/prompt"
	"zentaohelper/internal/session"
	"zentaohelper/internal/skill"
	"zentaohelper/internal/store"
	"zentaohelper/internal/ux"
	"zentaohelper/internal/zentao"
)

// app is the wired dispatcher plus everything that needs closing.
type app struct {
	cfg     *config.Config
	skill   *skill.Skill
	history *store.History
	closers []func() error
}

// newApp validates cfg and wires the dispatcher.
func newApp(cfg *config.Config, p prompt.Prompter) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}

	clientCfg := cfg.ClientConfig()
	if cfg.Directory.RedisURL != "" {
		cache, err := zentao.NewRedisCache(cfg.Directory.RedisURL, cfg.Directory.Namespace, cfg.GetDirectoryTTL())
		if err != nil {
			logging.BootWarn("redis directory cache disabled: %v", err)
		} else {
			clientCfg.Cache = cache
			a.closers = append(a.closers, cache.Close)
		}
	}
	if clientCfg.Cache == nil {
		clientCfg.Cache = zentao.NewMemoryCache(cfg.GetDirectoryTTL())
	}
	client, err := zentao.NewClient(clientCfg)
	if err != nil {
		return nil, err
	}

	sessions, err := session.New(session.Options{
		Path:    cfg.Session.File,
		KeyFile: cfg.Session.KeyFile,
		Secret:  cfg.Session.Secret,
		TTL:     cfg.GetSessionTTL(),
	})
	if err != nil {
		return nil, err
	}

	opts := skill.Options{
		Parser:   newParser(cfg),
		Tracker:  client,
		Sessions: sessions,
		Prompter: p,
		Policy:   automation.AmbiguityPolicy(cfg.Automation.AmbiguityPolicy),
		Account:  cfg.Zentao.Account,
		Password: cfg.Zentao.Password,
	}
	if cfg.History.Enabled {
		h, err := store.OpenHistory(cfg.History.Path, cfg.History.MaxRows)
		if err != nil {
			logging.StoreWarn("history disabled: %v", err)
		} else {
			a.history = h
			opts.History = h
			a.closers = append(a.closers, h.Close)
		}
	}

	a.skill, err = skill.New(opts)
	if err != nil {
		a.Close()
		return nil, err
	}
	logging.Boot("ready: %s (classifier=%s)", cfg.Zentao.BaseURL, cfg.NLP.Provider)
	return a, nil
}

func newParser(cfg *config.Config) *perception.CommandParser {
	return perception.NewCommandParser(perception.NewClassifier(cfg.ClassifierConfig(), cfg.IntentTable()))
}

// Close releases the history database and cache connections.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logging.BootWarn("close: %v", err)
		}
	}
	a.closers = nil
}

// renderer picks colored output only for terminals.
func renderer() *ux.Renderer {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return ux.NewRenderer(false, 0)
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		width = 80
	}
	return ux.NewRenderer(true, width)
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
