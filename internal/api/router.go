package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"video-recipe-go/internal/logger"
	"video-recipe-go/internal/processor"
	"video-recipe-go/internal/types"
)

// Processor runs the pipeline for one URL.
type Processor interface {
	Process(ctx context.Context, videoURL string, opts processor.Options) *types.ProcessingResult
}

func NewRouter(p Processor, base processor.Options, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.Discard()
	}
	h := &Handler{proc: p, base: base, log: log.Component("api")}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.HandleFunc("/platforms", h.platforms).Methods(http.MethodGet)
	r.HandleFunc("/detect", h.detect).Methods(http.MethodPost)
	r.HandleFunc("/extract", h.extract).Methods(http.MethodPost)
	return r
}
