// Package api exposes the content pipeline over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/debemdeboas/roteiro/internal/auth"
	"github.com/debemdeboas/roteiro/internal/composer"
	"github.com/debemdeboas/roteiro/internal/config"
	"github.com/debemdeboas/roteiro/internal/draft"
	"github.com/debemdeboas/roteiro/internal/engagement"
	"github.com/debemdeboas/roteiro/internal/model"
	"github.com/debemdeboas/roteiro/internal/publish"
	"github.com/debemdeboas/roteiro/internal/repository"
	"github.com/debemdeboas/roteiro/internal/routes"
	"github.com/debemdeboas/roteiro/internal/sse"
	"github.com/debemdeboas/roteiro/internal/upload"
	"github.com/rs/zerolog"
)

var apiLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	apiLogger = l
}

// Progress topics, one per composer.
const (
	TopicTip   = "tip"
	TopicGuide = "guide"
)

const maxUploadBytes = 32 << 20

type Deps struct {
	Repo     repository.Store
	Drafts   *draft.Store
	Storage  upload.Storage
	Auth     auth.AuthProvider
	Author   model.UserID
	Content  config.ContentConfig
	Publish  config.PublishConfig
	MediaDir string // served at /media/ when set
}

// Server holds the composers for the single configured identity. Their drafts live in the
// draft store, so a restarted server resumes where the last one stopped.
type Server struct {
	deps Deps

	tip        *composer.TipComposer
	guide      *composer.GuideComposer
	publisher  *publish.Publisher
	engagement *engagement.Service
	clients    *sse.SSEClients

	stop []func()
	wg   sync.WaitGroup
}

func NewServer(deps Deps) *Server {
	tipUploader := upload.New(deps.Storage)
	guideUploader := upload.New(deps.Storage)

	s := &Server{
		deps: deps,
		tip: composer.NewTipComposer(deps.Drafts, deps.Repo, tipUploader, composer.TipOptions{
			Author:    deps.Author,
			MaxImages: deps.Content.MaxTipImages,
		}),
		guide:      composer.NewGuideComposer(deps.Drafts, deps.Repo, guideUploader, composer.GuideOptions{Author: deps.Author}),
		publisher:  publish.New(deps.Repo, deps.Drafts, deps.Author, publish.Options{Transactional: deps.Publish.Transactional}),
		engagement: engagement.NewService(deps.Repo),
		clients:    sse.NewSSEClients(),
	}

	s.relay(TopicTip, tipUploader.Progress())
	s.relay(TopicGuide, guideUploader.Progress())
	return s
}

// relay forwards progress updates to the SSE clients of topic.
func (s *Server) relay(topic string, p *upload.Progress) {
	updates, cancel := p.Subscribe()
	s.stop = append(s.stop, cancel)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for v := range updates {
			s.clients.Broadcast(topic, strconv.Itoa(v))
		}
	}()
}

// Close stops the progress relays and waits for pending engagement writes.
func (s *Server) Close() {
	for _, cancel := range s.stop {
		cancel()
	}
	s.wg.Wait()
	s.engagement.Wait()
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+routes.HealthPath, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET "+routes.APIDraft, s.getDraft)
	mux.HandleFunc("PUT "+routes.APIDraft, s.putDraft)
	mux.HandleFunc("DELETE "+routes.APIDraft, s.deleteDraft)

	mux.HandleFunc("POST "+routes.APITipImages, s.addTipImages)
	mux.HandleFunc("DELETE "+routes.APITipImage, s.removeTipImage)
	mux.HandleFunc("POST "+routes.APITipSubmit, s.submitTip)
	mux.HandleFunc("POST "+routes.APITipBack, s.backTip)
	mux.HandleFunc("GET "+routes.APITipPreview, s.previewTip)
	mux.HandleFunc("POST "+routes.APITipPublish, s.publishTip)
	mux.HandleFunc("POST "+routes.APITipSaveDraft, s.saveTipDraft)

	mux.HandleFunc("POST "+routes.APIGuideCover, s.setGuideCover)
	mux.HandleFunc("DELETE "+routes.APIGuideCover, s.removeGuideCover)
	mux.HandleFunc("POST "+routes.APIGuideAdvance, s.advanceGuide)
	mux.HandleFunc("POST "+routes.APIGuideSaveDraft, s.saveGuideDraft)
	mux.HandleFunc("POST "+routes.APIGuidePublish, s.publishGuide)

	mux.HandleFunc("GET "+routes.APISelection, s.getSelection)
	mux.HandleFunc("DELETE "+routes.APISelection, s.abandonSelection)
	mux.HandleFunc("POST "+routes.APISelectionToggle, s.toggleSelection)
	mux.HandleFunc("POST "+routes.APISelectionReorder, s.reorderSelection)
	mux.HandleFunc("POST "+routes.APISelectionContinue, s.continueSelection)

	mux.HandleFunc("GET "+routes.APIEngagement, s.mountEngagement)
	mux.HandleFunc("POST "+routes.APIEngagement, s.toggleEngagement)
	mux.HandleFunc("GET "+routes.APITipComment, s.listComments)
	mux.HandleFunc("POST "+routes.APITipComment, s.addComment)

	mux.HandleFunc("GET "+routes.APITips, s.listTips)
	mux.HandleFunc("GET "+routes.APITip, s.getTip)
	mux.HandleFunc("GET "+routes.APIGuide, s.getGuide)
	mux.HandleFunc("GET "+routes.APIGuideTip, s.listGuideTips)

	mux.HandleFunc("GET "+routes.SSEProgress, s.progressEvents)

	if s.deps.MediaDir != "" {
		mux.Handle(routes.Media, http.StripPrefix(routes.Media, http.FileServer(http.Dir(s.deps.MediaDir))))
	}

	var h http.Handler = secureHeaders(mux)
	h = s.deps.Auth.WithHeaderAuthorization()(h)
	h = noCache(h)
	return withLogger(h)
}

func withLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := apiLogger.With().Str("method", r.Method).Str("path", r.URL.Path).Logger()
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(l.WithContext(r.Context())))

		l.Debug().Int("status", rec.status).Dur("took", time.Since(start)).Msg("Request handled")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HCacheControl, "no-cache")
		next.ServeHTTP(w, r)
	})
}

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-XSS-Protection", "1; mode=block")

		next.ServeHTTP(w, r)
	})
}

// ListenAndServe runs the server until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		apiLogger.Info().Str("addr", addr).Msg("Listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}
