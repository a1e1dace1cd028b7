package server

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/whisperd/internal/apperrors"
	"github.com/skillsenselab/whisperd/internal/observability"
	"github.com/skillsenselab/whisperd/internal/server/endpoint"
	"github.com/skillsenselab/whisperd/internal/transcribe"
	"github.com/skillsenselab/whisperd/internal/util"
)

// Deps are the collaborators the API routes need. Metrics may be nil, in
// which case metric recording is skipped.
type Deps struct {
	Transcriber *transcribe.Service
	ModelState  endpoint.ModelState
	Metrics     *observability.Metrics
	Version     string
}

// RegisterRoutes mounts the transcription API and the probe endpoints.
func (s *Server) RegisterRoutes(deps Deps) {
	s.engine.GET("/health", endpoint.Health(deps.Version))
	s.engine.GET("/ready", endpoint.Readiness(deps.ModelState))
	s.engine.GET("/metrics", endpoint.Metrics())
	s.engine.POST("/transcribe", transcribeHandler(deps))
}

// transcribeHandler accepts a multipart audio upload and returns its
// transcript. The quick and any_lang query parameters both default to true.
func transcribeHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		opts := transcribe.Options{
			Quick:   util.ParseBool(c.Query("quick"), true),
			AnyLang: util.ParseBool(c.Query("any_lang"), true),
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			RespondWithError(c, apperrors.InvalidInput("file", "a multipart field named \"file\" is required").WithCause(err))
			return
		}

		upload, err := fileHeader.Open()
		if err != nil {
			RespondWithError(c, apperrors.InvalidInput("file", "the uploaded file could not be read").WithCause(err))
			return
		}
		defer upload.Close()

		ctx := c.Request.Context()
		start := time.Now()
		if deps.Metrics != nil {
			deps.Metrics.RecordRequestStart(ctx)
			deps.Metrics.RecordStagedBytes(ctx, fileHeader.Size)
		}

		res, err := deps.Transcriber.Transcribe(ctx, fileHeader.Filename, upload, opts)

		if deps.Metrics != nil {
			status := "ok"
			if err != nil {
				status = "error"
			}
			deps.Metrics.RecordRequestEnd(ctx, status, opts.Quick, time.Since(start))
		}

		if err != nil {
			RespondWithError(c, err)
			return
		}
		RespondOK(c, res)
	}
}
