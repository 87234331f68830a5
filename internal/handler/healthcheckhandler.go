package handler

import (
	"net/http"
	"time"

	"github.com/voxloop/vox/internal/httputil"
	"github.com/voxloop/vox/internal/svc"
)

const version = "1.0.0"

type healthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	Engine         string `json:"engine"`
	EmbeddingModel string `json:"embedding_model"`
	Timestamp      string `json:"timestamp"`
}

// HealthCheckHandler reports liveness plus the active embedding version
// so operators can spot incompatible-embedding situations early.
func HealthCheckHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.OkJSON(w, &healthResponse{
			Status:         "healthy",
			Version:        version,
			Engine:         svcCtx.Config.Engine,
			EmbeddingModel: svcCtx.Pipeline.ExtractorVersion(),
			Timestamp:      time.Now().UTC().Format(time.RFC3339),
		})
	}
}
