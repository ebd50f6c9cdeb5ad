package conf

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// ServerConf is read from the environment, optionally populated from a
// .env file in the working directory.
type ServerConf struct {
	ListenAddr string
	JwtKey     []byte
	LogLevel   string

	AwsRegion string
	// ReportBucket enables archiving of score reports when set.
	ReportBucket string
	// EvalResSqsUrl enables scoring on finished_evaluation messages when set.
	EvalResSqsUrl string
	// NatsUrl enables scoring on results published over NATS when set.
	NatsUrl     string
	NatsSubject string

	RescoreParallelism int
	CorsOrigins        []string
}

func LoadServerConf() (ServerConf, error) {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		return ServerConf{}, fmt.Errorf("failed to load .env file: %w", err)
	}
	if os.IsNotExist(err) {
		slog.Debug("no .env file found, using process environment")
	}

	jwtKey := os.Getenv("JWT_KEY")
	if jwtKey == "" {
		return ServerConf{}, fmt.Errorf("JWT_KEY is not set")
	}

	parallelism := 8
	if v := os.Getenv("RESCORE_PARALLELISM"); v != "" {
		parallelism, err = strconv.Atoi(v)
		if err != nil || parallelism < 1 {
			return ServerConf{}, fmt.Errorf("RESCORE_PARALLELISM must be a positive integer, got %q", v)
		}
	}

	return ServerConf{
		ListenAddr:         orDefault(os.Getenv("LISTEN_ADDR"), ":8080"),
		JwtKey:             []byte(jwtKey),
		LogLevel:           orDefault(os.Getenv("LOG_LEVEL"), "info"),
		AwsRegion:          orDefault(os.Getenv("AWS_REGION"), "eu-central-1"),
		ReportBucket:       os.Getenv("REPORT_S3_BUCKET"),
		EvalResSqsUrl:      os.Getenv("EVAL_RES_SQS_URL"),
		NatsUrl:            os.Getenv("NATS_URL"),
		NatsSubject:        orDefault(os.Getenv("NATS_SUBJECT"), "eval.results"),
		RescoreParallelism: parallelism,
		CorsOrigins: []string{
			"http://localhost:3000",
			"https://programme.lv",
			"https://www.programme.lv",
		},
	}, nil
}
