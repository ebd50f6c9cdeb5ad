package scorehttp

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/programme-lv/scorer/auth"
	"github.com/programme-lv/scorer/logger"
	"github.com/programme-lv/scorer/scoresrvc"
)

type Options struct {
	JwtKey      []byte
	CorsOrigins []string
	LogLevel    slog.Level
	JSONLogs    bool
}

type HttpServer struct {
	scoreSrvc *scoresrvc.ScoreSrvc
	router    *chi.Mux
}

func NewHttpServer(scoreSrvc *scoresrvc.ScoreSrvc, opts Options) *HttpServer {
	router := chi.NewRouter()

	httpLogger := httplog.NewLogger("scorer", httplog.Options{
		LogLevel:         opts.LogLevel,
		JSON:             opts.JSONLogs,
		Concise:          true,
		RequestHeaders:   false,
		MessageFieldName: "message",
	})
	router.Use(httplog.RequestLogger(httpLogger))
	router.Use(ctxLogger)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           3000,
	}))

	router.Use(auth.GetJwtAuthMiddleware(opts.JwtKey))

	server := &HttpServer{
		scoreSrvc: scoreSrvc,
		router:    router,
	}
	server.routes()
	return server
}

func (httpserver *HttpServer) routes() {
	r := httpserver.router
	r.Get("/score-types", httpserver.listScoreTypes)
	r.Post("/score", httpserver.computeScore)
	r.Get("/submissions/{submUuid}/score", httpserver.getSubmScore)
	r.Post("/submissions/{submUuid}/score", httpserver.rescoreSubm)
	r.Get("/tasks/{taskId}/max-scores", httpserver.getTaskMaxScores)
	r.Post("/tasks/{taskId}/rescore", httpserver.rescoreTask)
	r.Get("/users/{userUuid}/scoreboard", httpserver.getUserScoreboard)
}

// ctxLogger hands the request logger to the service layer.
func ctxLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.WithLogger(r.Context(), httplog.LogEntry(r.Context()))
		ctx = logger.WithRequestID(ctx, middleware.GetReqID(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (httpserver *HttpServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	httpserver.router.ServeHTTP(w, r)
}

func (httpserver *HttpServer) Start(address string) error {
	return http.ListenAndServe(address, httpserver.router)
}
