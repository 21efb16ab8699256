package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/debemdeboas/roteiro/internal/api"
	"github.com/debemdeboas/roteiro/internal/auth"
	"github.com/debemdeboas/roteiro/internal/catalog"
	"github.com/debemdeboas/roteiro/internal/composer"
	"github.com/debemdeboas/roteiro/internal/config"
	"github.com/debemdeboas/roteiro/internal/db"
	"github.com/debemdeboas/roteiro/internal/draft"
	"github.com/debemdeboas/roteiro/internal/engagement"
	"github.com/debemdeboas/roteiro/internal/logger"
	"github.com/debemdeboas/roteiro/internal/model"
	"github.com/debemdeboas/roteiro/internal/publish"
	"github.com/debemdeboas/roteiro/internal/render"
	"github.com/debemdeboas/roteiro/internal/repository"
	"github.com/debemdeboas/roteiro/internal/repository/scratch"
	"github.com/debemdeboas/roteiro/internal/upload"
	"github.com/debemdeboas/roteiro/internal/util/compression"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// runtime holds everything a command needs. It is opened lazily so that commands like
// `config example` never touch the database.
type runtime struct {
	configPath string
	service    logger.Service

	cfg      *config.Config
	log      zerolog.Logger
	database db.DB
	repo     repository.Store
	drafts   *draft.Store
	storage  upload.Storage
	mediaDir string
	author   model.UserID
	ready    bool
}

func main() {
	if err := godotenv.Load(); err != nil {
		// Not fatal, .env is optional.
		fmt.Fprintln(os.Stderr, "No .env file loaded")
	}

	rt := &runtime{service: logger.ServiceCLI}
	app := newCLIApp(rt)

	err := app.Run(os.Args)
	if cerr := rt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		code := 1
		if exit, ok := err.(cli.ExitCoder); ok {
			code = exit.ExitCode()
		}
		os.Exit(code)
	}
}

// setLoggers hands l to every package that logs.
func setLoggers(l zerolog.Logger) {
	config.SetLogger(l)
	db.SetLogger(l)
	repository.SetLogger(l)
	draft.SetLogger(l)
	upload.SetLogger(l)
	render.SetLogger(l)
	composer.SetLogger(l)
	catalog.SetLogger(l)
	publish.SetLogger(l)
	engagement.SetLogger(l)
	auth.SetLogger(l)
	api.SetLogger(l)
}

// open loads the configuration and connects the stores, once.
func (rt *runtime) open(ctx context.Context) error {
	if rt.ready {
		return nil
	}

	// Config loading logs through the level from the environment until the file is read.
	level := os.Getenv(config.EnvLogLevel)
	if level == "" {
		level = "info"
	}
	setLoggers(logger.New(level, rt.service))

	cfg, err := config.LoadConfig(rt.configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	rt.cfg = cfg
	rt.log = logger.New(cfg.Logging.Level, rt.service)
	setLoggers(rt.log)

	if err := rt.openRepository(); err != nil {
		return err
	}
	if err := rt.openStorage(ctx); err != nil {
		return err
	}
	if err := rt.openDrafts(); err != nil {
		return err
	}

	rt.author = model.UserID(cfg.Identity.UserID)
	rt.ready = true
	return nil
}

func (rt *runtime) openRepository() error {
	if rt.cfg.Database.Driver == config.DriverMemory {
		rt.log.Warn().Msg("Using the in-memory repository, content is lost on exit")
		rt.repo = repository.NewMemoryRepository()
		return nil
	}

	d, err := db.Open(rt.cfg.Database.Driver, rt.cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	rt.database = d
	rt.repo = repository.NewDBRepository(d)
	return nil
}

func (rt *runtime) openStorage(ctx context.Context) error {
	sc := rt.cfg.Storage
	switch sc.Driver {
	case config.StorageMemory:
		rt.storage = upload.NewMemoryStorage()
	case config.StorageS3:
		s, err := upload.NewS3Storage(ctx, upload.S3Options{
			Bucket:          sc.S3.Bucket,
			Endpoint:        sc.S3.Endpoint,
			Region:          sc.S3.Region,
			UsePathStyle:    sc.S3.UsePathStyle,
			AccessKeyID:     sc.S3.AccessKeyID,
			SecretAccessKey: sc.S3.SecretAccessKey,
			PublicBaseURL:   sc.PublicBaseURL,
		})
		if err != nil {
			return err
		}
		rt.storage = s
	default:
		s, err := upload.NewFSStorage(sc.Dir, sc.PublicBaseURL)
		if err != nil {
			return err
		}
		rt.storage = s
		rt.mediaDir = s.Dir()
	}
	return nil
}

func (rt *runtime) openDrafts() error {
	compressor, err := compression.ByName(rt.cfg.Drafts.Compression)
	if err != nil {
		return err
	}
	medium, err := scratch.NewFS(rt.cfg.Drafts.Dir, compressor)
	if err != nil {
		return fmt.Errorf("error opening draft dir: %w", err)
	}
	rt.drafts = draft.NewStore(medium, draft.Options{
		Debounce:     rt.cfg.Drafts.Debounce(),
		MaxSelection: rt.cfg.Content.MaxGuideTips,
	})
	return nil
}

// Close flushes pending draft writes and closes the database.
func (rt *runtime) Close() error {
	if !rt.ready {
		return nil
	}
	rt.ready = false

	var err error
	if rt.drafts != nil {
		err = rt.drafts.Close()
	}
	if rt.database != nil {
		if cerr := rt.database.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (rt *runtime) serverDeps() api.Deps {
	return api.Deps{
		Repo:     rt.repo,
		Drafts:   rt.drafts,
		Storage:  rt.storage,
		Auth:     auth.NewFixedAuthProvider(rt.author),
		Author:   rt.author,
		Content:  rt.cfg.Content,
		Publish:  rt.cfg.Publish,
		MediaDir: rt.mediaDir,
	}
}
