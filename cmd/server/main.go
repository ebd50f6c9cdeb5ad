package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/programme-lv/scorer/conf"
	"github.com/programme-lv/scorer/logger"
	"github.com/programme-lv/scorer/reportarchive"
	"github.com/programme-lv/scorer/scorehttp"
	"github.com/programme-lv/scorer/scorequeue"
	"github.com/programme-lv/scorer/scorerepo"
	"github.com/programme-lv/scorer/scoresrvc"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	serverConf, err := conf.LoadServerConf()
	if err != nil {
		return err
	}

	level := logger.ParseLevel(serverConf.LogLevel)
	log := logger.NewJSON(os.Stdout, level)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connStr, err := conf.GetPgConnStrFromEnv()
	if err != nil {
		return err
	}
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return err
	}
	defer pool.Close()

	opts := []scoresrvc.Option{
		scoresrvc.WithLogger(log),
		scoresrvc.WithRescoreParallelism(serverConf.RescoreParallelism),
	}
	if serverConf.ReportBucket != "" {
		archive, err := reportarchive.NewS3Archive(ctx, serverConf.AwsRegion, serverConf.ReportBucket)
		if err != nil {
			return err
		}
		opts = append(opts, scoresrvc.WithArchive(archive))
		log.Info("archiving score reports", "bucket", serverConf.ReportBucket)
	}
	scoreSrvc := scoresrvc.NewScoreSrvc(scorerepo.NewPgRepo(pool), opts...)

	handleFinished := func(ctx context.Context, submUUID uuid.UUID) error {
		_, err := scoreSrvc.ScoreSubm(ctx, submUUID)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if serverConf.EvalResSqsUrl != "" {
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(serverConf.AwsRegion))
		if err != nil {
			return err
		}
		consumer := scorequeue.NewConsumer(sqs.NewFromConfig(awsCfg),
			serverConf.EvalResSqsUrl, handleFinished, log)
		g.Go(func() error { return consumer.Run(gctx) })
		log.Info("consuming evaluation results", "queue", serverConf.EvalResSqsUrl)
	}

	if serverConf.NatsUrl != "" {
		nc, err := nats.Connect(serverConf.NatsUrl)
		if err != nil {
			return err
		}
		defer nc.Close()
		subscriber := scorequeue.NewNatsSubscriber(nc, serverConf.NatsSubject, handleFinished, log)
		g.Go(func() error { return subscriber.Run(gctx) })
		log.Info("subscribed to evaluation results", "subject", serverConf.NatsSubject)
	}

	httpServer := &http.Server{
		Addr: serverConf.ListenAddr,
		Handler: scorehttp.NewHttpServer(scoreSrvc, scorehttp.Options{
			JwtKey:      serverConf.JwtKey,
			CorsOrigins: serverConf.CorsOrigins,
			LogLevel:    level,
			JSONLogs:    true,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		log.Info("starting server", "address", serverConf.ListenAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
