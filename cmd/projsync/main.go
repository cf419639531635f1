package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"projsync/internal/admin"
	"projsync/internal/auth"
	"projsync/internal/cache"
	"projsync/internal/config"
	"projsync/internal/db"
	httpx "projsync/internal/http"
	"projsync/internal/jobs"
	"projsync/internal/llm"
	"projsync/internal/logging"
	"projsync/internal/mail"
	"projsync/internal/notion"
	"projsync/internal/report"
	"projsync/internal/scheduler"
	"projsync/internal/store"
	syncpkg "projsync/internal/sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("database connect failed")
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		log.WithError(err).Fatal("migration failed")
	}

	st := store.New(gdb)
	jwtSvc := auth.NewJWT(cfg.JWTSecret)
	gate := &syncpkg.Gate{}

	jobsRepo := &jobs.Repo{DB: gdb}

	reconciler := &syncpkg.Reconciler{
		Store:      st,
		Notion:     notion.NewClient(cfg.NotionAPIKey),
		DatabaseID: cfg.NotionDatabaseID,
		Cache:      cache.New[[]notion.Page](),
		CacheTTL:   cfg.CacheTTL,
		Queue:      jobsRepo,
		Gate:       gate,
		Log:        log,
	}

	var narrator report.Narrator
	if cfg.OpenAIAPIKey != "" {
		narrator = llm.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	} else {
		log.Info("no llm api key configured, reports will have no narrative")
	}

	generator := &report.Generator{Store: st, Narrator: narrator, Log: log}

	mailer := &mail.Mailer{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	}

	maintenance := &admin.Service{DB: gdb, Gate: gate, Log: log}

	worker := &jobs.Worker{
		ID:        "worker-1",
		Repo:      jobsRepo,
		Reports:   generator,
		Store:     st,
		Mailer:    mailer,
		Recipient: cfg.ReportRecipient,
		Log:       log,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)

	sched := scheduler.New(log)
	syncJob := func(force bool) func(context.Context) error {
		return func(ctx context.Context) error {
			_, err := reconciler.ReconcileAll(ctx, syncpkg.Options{ForceRefresh: force})
			if err == syncpkg.ErrSyncInProgress {
				log.Info("sync skipped, previous run still active")
				return nil
			}
			return err
		}
	}
	weeklyReport := func(ctx context.Context) error {
		return jobsRepo.Enqueue(jobs.TypeReportGenerate, map[string]any{"window_days": 7, "email": true})
	}
	for _, job := range []struct {
		spec string
		name string
		fn   func(context.Context) error
	}{
		{"0 * * * *", "hourly-sync", syncJob(false)},
		{fmt.Sprintf("0 %d * * *", cfg.DailySyncHour), "daily-sync", syncJob(true)},
		{fmt.Sprintf("0 %d * * %s", cfg.WeeklyReportHour, cfg.WeeklyReportDay), "weekly-report", weeklyReport},
	} {
		if err := sched.AddJob(job.spec, job.name, job.fn); err != nil {
			log.WithError(err).Fatal("scheduler setup failed")
		}
	}
	sched.Start()

	r := httpx.NewRouter(httpx.Deps{
		Config:      cfg,
		DB:          gdb,
		JWT:         jwtSvc,
		Store:       st,
		Reconciler:  reconciler,
		Generator:   generator,
		Maintenance: maintenance,
		Log:         log,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	cancel()
	sched.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
