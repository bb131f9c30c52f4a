package httpserver

import (
	"log"
	"net/http"

	"github.com/dkovalev/novel-translate-back/internal/http/handlers"
	"github.com/dkovalev/novel-translate-back/internal/http/middleware"
)

type RouterDependencies struct {
	API            *handlers.API
	Logger         *log.Logger
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(deps RouterDependencies) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", deps.API.Health)
	mux.HandleFunc("/upload", deps.API.Upload)
	mux.HandleFunc("/translate/", deps.API.Translate)
	mux.HandleFunc("/check_progress/", deps.API.CheckProgress)
	mux.HandleFunc("/download/", deps.API.Download)
	mux.HandleFunc("/jobs/", deps.API.RemoveJob)

	handler := http.Handler(mux)
	handler = middleware.RateLimit(deps.RateLimitRPS, deps.RateLimitBurst)(handler)
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: deps.CORSOrigins,
	})(handler)
	handler = middleware.Trace(deps.Logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}
