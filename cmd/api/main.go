package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/minutesapp/minutes-pipeline/config"
	"github.com/minutesapp/minutes-pipeline/events"
	chihandlers "github.com/minutesapp/minutes-pipeline/internal/http/chi"
	"github.com/minutesapp/minutes-pipeline/lark"
	"github.com/minutesapp/minutes-pipeline/llm"
	"github.com/minutesapp/minutes-pipeline/metrics"
	"github.com/minutesapp/minutes-pipeline/minutes"
	minutesredis "github.com/minutesapp/minutes-pipeline/minutes/redis"
	"github.com/minutesapp/minutes-pipeline/pipeline"
	"github.com/minutesapp/minutes-pipeline/webhook"
)

const TIMEOUT = 30 * time.Second

/* main wires the dependency graph explicitly: config -> storage ->
 * platform clients -> pipeline service -> HTTP handlers. Collaborators
 * are constructed once and injected, never reached through globals.
 */

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Println(err)
		return
	}
	if err := cfg.Validate(); err != nil {
		fmt.Println(err)
		return
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	repo, err := minutesredis.NewRepository(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer repo.Close(ctx)

	larkOpts := []lark.Option{}
	if cfg.LarkBaseURL != "" {
		larkOpts = append(larkOpts, lark.WithBaseURL(cfg.LarkBaseURL))
	}
	larkClient := lark.NewClient(cfg.LarkAppID, cfg.LarkAppSecret, larkOpts...)

	llmOpts := []llm.Option{}
	if cfg.LLMBaseURL != "" {
		llmOpts = append(llmOpts, llm.WithBaseURL(cfg.LLMBaseURL))
	}
	if cfg.LLMModel != "" {
		llmOpts = append(llmOpts, llm.WithModel(cfg.LLMModel))
	}
	llmClient := llm.NewClient(cfg.LLMAPIKey, llmOpts...)

	collector := metrics.NewPipelineMetrics()
	exporter, err := metrics.NewOTelExporter(collector)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer exporter.Shutdown(ctx)

	pipe := pipeline.NewService(larkClient, larkClient, llmClient, cfg.PipelineConfig(),
		pipeline.WithDeduper(repo),
		pipeline.WithRecorder(collector),
		pipeline.WithLogger(logger),
	)
	registerSideEffects(pipe, larkClient, repo, logger)

	registry := events.NewLoader()
	if cfg.EventsFile != "" {
		if err := registry.Load(cfg.EventsFile); err != nil {
			fmt.Println(err)
			return
		}
	}

	processor := webhook.NewProcessor(cfg.WebhookEncryptKey, cfg.WebhookVerificationToken)

	r := chihandlers.Handlers(ctx, processor, pipe, registry, exporter.Handler())
	srv := &http.Server{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Addr:         ":" + cfg.Port,
		Handler:      r,
	}

	errShutdown := make(chan error, 1)
	go shutdown(srv, ctx, errShutdown)
	fmt.Printf("Listening on port %s\n", cfg.Port)
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		fmt.Println(err)
		return
	}
	err = <-errShutdown
	if err != nil {
		fmt.Println(err)
		return
	}
}

// registerSideEffects wires the fan-out callbacks: notify the host,
// persist the minutes, and on failure send a best-effort review notice.
// Each callback is isolated by the pipeline service.
func registerSideEffects(pipe *pipeline.Service, larkClient *lark.Client, repo minutes.Repository, logger *slog.Logger) {
	pipe.OnMinutesGenerated(func(ctx context.Context, mc pipeline.MeetingContext, res *minutes.GenerationResult) error {
		receipt, err := larkClient.SendMinutesNotification(ctx, lark.Notification{
			ReceiverID: mc.HostUserID,
			MeetingID:  mc.MeetingID,
			Topic:      mc.Topic,
			Summary:    res.Minutes.Summary,
		})
		if err != nil {
			return err
		}
		logger.Info("host notified", "meeting_id", mc.MeetingID, "message_id", receipt.MessageID)
		return nil
	})

	pipe.OnMinutesGenerated(func(ctx context.Context, mc pipeline.MeetingContext, res *minutes.GenerationResult) error {
		receipt, err := repo.Save(ctx, res.Minutes, mc.MeetingID)
		if err != nil {
			return err
		}
		logger.Info("minutes persisted",
			"meeting_id", mc.MeetingID, "record_id", receipt.RecordID, "version", receipt.Version)
		return nil
	})

	pipe.OnProcessingFailed(func(ctx context.Context, mc pipeline.MeetingContext, cause error) error {
		return larkClient.SendFailureNotice(ctx, mc.HostUserID, mc.MeetingID, cause.Error())
	})
}

func shutdown(server *http.Server, ctxShutdown context.Context, errShutdown chan error) {
	<-ctxShutdown.Done()

	ctxTimeout, stop := context.WithTimeout(context.Background(), TIMEOUT)
	defer stop()

	err := server.Shutdown(ctxTimeout)
	switch err {
	case nil:
		fmt.Printf("\nShutting down server...\n")
		errShutdown <- nil
	case context.DeadlineExceeded:
		errShutdown <- fmt.Errorf("Forcing closing the server")
	default:
		errShutdown <- fmt.Errorf("Forcing closing the server")
	}
}
