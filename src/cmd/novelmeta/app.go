package main

import (
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"novelmeta/src/internal/booksearch"
	"novelmeta/src/internal/config"
	"novelmeta/src/internal/cover"
	"novelmeta/src/internal/httpx"
	"novelmeta/src/internal/logging"
)

// indirections for testability
var (
	newHTTPClient = func(log *zap.Logger) *resty.Client { return httpx.NewClient(log) }
	newLogger     = logging.New
)

// app holds what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string

	cfg  config.Config
	log  *zap.Logger
	http *resty.Client
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	log, err := newLogger(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	a.http = newHTTPClient(log)
	return nil
}

func (a *app) searcher(opts ...booksearch.Option) *booksearch.Searcher {
	return booksearch.New(a.cfg, a.http, a.log, opts...)
}

func (a *app) covers() *cover.Downloader { return cover.New(a.cfg, a.http, a.log) }

func (a *app) close() {
	if a.log != nil {
		_ = a.log.Sync()
	}
}
