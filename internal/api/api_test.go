package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/debemdeboas/roteiro/internal/auth"
	"github.com/debemdeboas/roteiro/internal/catalog"
	"github.com/debemdeboas/roteiro/internal/config"
	"github.com/debemdeboas/roteiro/internal/draft"
	"github.com/debemdeboas/roteiro/internal/engagement"
	"github.com/debemdeboas/roteiro/internal/errors"
	"github.com/debemdeboas/roteiro/internal/model"
	"github.com/debemdeboas/roteiro/internal/repository"
	"github.com/debemdeboas/roteiro/internal/repository/scratch"
	"github.com/debemdeboas/roteiro/internal/upload"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const author model.UserID = "u-1"

func TestMain(m *testing.M) {
	SetLogger(zerolog.New(os.Stdout).Level(zerolog.Disabled))
	os.Exit(m.Run())
}

type testEnv struct {
	server  *Server
	handler http.Handler
	repo    *repository.MemoryRepository
	drafts  *draft.Store
	storage *upload.MemoryStorage
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		repo:    repository.NewMemoryRepository(),
		drafts:  draft.NewStore(scratch.NewMemory(), draft.Options{}),
		storage: upload.NewMemoryStorage(),
	}
	env.server = NewServer(Deps{
		Repo:    env.repo,
		Drafts:  env.drafts,
		Storage: env.storage,
		Auth:    auth.NewFixedAuthProvider(author),
		Author:  author,
		Content: config.ContentConfig{MaxTipImages: 10, MaxGuideTips: 20},
		Publish: config.PublishConfig{Transactional: true},
	})
	env.handler = env.server.Handler()
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(data))
		req.Header.Set(config.HCType, config.CTypeJSON)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) upload(t *testing.T, path, field string, names ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range names {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write([]byte{0xff, 0xd8, 0xff, 0xe0})
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(config.HCType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func ptr(s string) *string { return &s }

var validTip = fieldsRequest{
	Title:       ptr("Melhor café da região"),
	Description: ptr("Café especial e pão de queijo"),
	Location:    ptr("Savassi"),
	Category:    ptr("Restaurantes"),
}

func TestTipFlow(t *testing.T) {
	env := newEnv(t)

	rec := env.do(t, http.MethodPut, "/api/drafts/tip", validTip)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "deny", rec.Header().Get("X-Frame-Options"))

	rec = env.upload(t, "/api/tip/images", "image", "cafe.jpg")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	d := decode[draft.Draft](t, rec)
	require.Len(t, d.Tip.Media, 1)

	rec = env.do(t, http.MethodGet, "/api/tip/preview", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/tip/submit", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "preview", decode[stateResponse](t, rec).State)

	rec = env.do(t, http.MethodGet, "/api/tip/preview?format=html", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Melhor café da região")

	rec = env.do(t, http.MethodPost, "/api/tip/publish", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tip := decode[model.Tip](t, rec)
	assert.Len(t, tip.Images, 1)
	assert.Equal(t, 1, env.storage.Puts())

	rec = env.do(t, http.MethodGet, "/api/tips/"+string(tip.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[model.Tip](t, rec)
	assert.Equal(t, model.StatusPublished, got.Status)
	assert.Equal(t, 0, got.Likes)
	assert.Equal(t, 0, got.Comments)

	rec = env.do(t, http.MethodGet, "/api/drafts/tip", nil)
	assert.Empty(t, decode[draft.Draft](t, rec).Tip.Title)
}

func TestTipValidationError(t *testing.T) {
	env := newEnv(t)

	invalid := validTip
	invalid.Title = ptr("abc")
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, "/api/drafts/tip", invalid).Code)
	require.Equal(t, http.StatusOK, env.upload(t, "/api/tip/images", "image", "cafe.jpg").Code)

	rec := env.do(t, http.MethodPost, "/api/tip/submit", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, errors.ErrValidation, body.Code)
	assert.Contains(t, body.Fields, "title")

	assert.Equal(t, 0, env.storage.Puts())
	assert.Equal(t, 0, env.repo.Calls(repository.OpCreateTip))
}

func TestDraftRequests(t *testing.T) {
	env := newEnv(t)

	rec := env.do(t, http.MethodGet, "/api/drafts/poem", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/drafts/tip", map[string]string{"city": "BH"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/drafts/tip", map[string]string{"unknown": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/drafts/guide", map[string]string{"title": "BH"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BH", decode[draft.Draft](t, rec).Guide.Title)

	rec = env.do(t, http.MethodDelete, "/api/drafts/guide", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, ok := env.drafts.Load(draft.KindGuide)
	assert.False(t, ok)
}

func seedTips(t *testing.T, repo *repository.MemoryRepository, n int) []model.TipID {
	t.Helper()
	ids := make([]model.TipID, n)
	for i := range ids {
		tip := repository.NewTip(author, model.StatusPublished)
		tip.Title = "Dica"
		require.NoError(t, repo.CreateTip(context.Background(), tip))
		ids[i] = tip.ID
	}
	return ids
}

func TestGuideFlow(t *testing.T) {
	env := newEnv(t)
	tips := seedTips(t, env.repo, 3)

	rec := env.do(t, http.MethodPut, "/api/drafts/guide", fieldsRequest{
		Title:       ptr("Roteiro 3 dias"),
		Description: ptr("Três dias comendo bem em Belo Horizonte"),
		City:        ptr("Belo Horizonte"),
		Category:    ptr("Roteiro"),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.upload(t, "/api/guide/cover", "cover", "capa.png")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/guide/advance", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "advancing", decode[stateResponse](t, rec).State)

	rec = env.do(t, http.MethodPost, "/api/selection/continue", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	for _, id := range tips {
		rec = env.do(t, http.MethodPost, "/api/selection/toggle", toggleRequest{TipID: id})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, catalog.Added, decode[selectionResponse](t, rec).Outcome)
	}

	rec = env.do(t, http.MethodPost, "/api/selection/reorder", reorderRequest{Index: 2, Direction: "up"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sel := decode[selectionResponse](t, rec)
	assert.Equal(t, []model.TipID{tips[0], tips[2], tips[1]}, sel.Selection)
	require.NotNil(t, sel.Moved)
	assert.True(t, *sel.Moved)

	rec = env.do(t, http.MethodGet, "/api/selection", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decode[selectionResponse](t, rec)
	assert.Len(t, listed.Candidates, 3)
	assert.Equal(t, 20, listed.Max)

	rec = env.do(t, http.MethodPost, "/api/selection/continue", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/guide/publish", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	guide := decode[model.Guide](t, rec)
	assert.Contains(t, guide.CoverURL, "memory://guides/")

	rec = env.do(t, http.MethodGet, "/api/guides/"+string(guide.ID)+"/tips", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ordered := decode[[]model.Tip](t, rec)
	require.Len(t, ordered, 3)
	assert.Equal(t, tips[0], ordered[0].ID)
	assert.Equal(t, tips[2], ordered[1].ID)
	assert.Equal(t, tips[1], ordered[2].ID)

	assert.Empty(t, env.drafts.LoadSelection())
	rec = env.do(t, http.MethodGet, "/api/drafts/guide", nil)
	assert.Empty(t, decode[draft.Draft](t, rec).Guide.Title)

	rec = env.do(t, http.MethodPost, "/api/guide/publish", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSelectionCap(t *testing.T) {
	env := newEnv(t)
	ids := make([]model.TipID, 20)
	for i := range ids {
		ids[i] = model.TipID("t" + string(rune('a'+i)))
	}
	require.NoError(t, env.drafts.SaveSelection(ids))

	rec := env.do(t, http.MethodPost, "/api/selection/toggle", toggleRequest{TipID: "extra"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[selectionResponse](t, rec)
	assert.Equal(t, catalog.Full, resp.Outcome)
	assert.Len(t, resp.Selection, 20)
	assert.NotEmpty(t, resp.Notice)

	rec = env.do(t, http.MethodDelete, "/api/selection", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, env.drafts.LoadSelection())
}

func TestEngagement(t *testing.T) {
	env := newEnv(t)
	tips := seedTips(t, env.repo, 1)
	path := "/api/engagement/like/" + string(tips[0])

	rec := env.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, engagement.State{}, decode[engagement.State](t, rec))

	rec = env.do(t, http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, engagement.State{Active: true, Count: 1}, decode[engagement.State](t, rec))
	env.server.engagement.Wait()

	rec = env.do(t, http.MethodGet, "/api/tips/"+string(tips[0]), nil)
	assert.Equal(t, 1, decode[model.Tip](t, rec).Likes)

	rec = env.do(t, http.MethodPost, "/api/engagement/poke/"+string(tips[0]), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/engagement/follow/"+string(author), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[engagement.State](t, rec).Inert)
}

func TestComments(t *testing.T) {
	env := newEnv(t)
	tips := seedTips(t, env.repo, 1)
	path := "/api/tips/" + string(tips[0]) + "/comments"

	rec := env.do(t, http.MethodPost, "/api/tips/missing/comments", commentRequest{Text: "Ótimo"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, path, commentRequest{Text: "  "})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, http.MethodPost, path, commentRequest{Text: "Ótimo lugar"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Comment](t, rec), 1)

	rec = env.do(t, http.MethodGet, "/api/tips/"+string(tips[0]), nil)
	assert.Equal(t, 1, decode[model.Tip](t, rec).Comments)
}

func TestNotFound(t *testing.T) {
	env := newEnv(t)
	rec := env.do(t, http.MethodGet, "/api/guides/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, errors.ErrNotFound, decode[errorBody](t, rec).Code)
}

func TestGuideCoverURL(t *testing.T) {
	env := newEnv(t)
	form := url.Values{"url": {"https://cdn/capa.jpg"}}
	req := httptest.NewRequest(http.MethodPost, "/api/guide/cover", strings.NewReader(form.Encode()))
	req.Header.Set(config.HCType, "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "https://cdn/capa.jpg", decode[draft.Draft](t, rec).Guide.Cover.URL)
	assert.Equal(t, 0, env.storage.Puts())
}

func TestProgressEvents(t *testing.T) {
	env := newEnv(t)
	srv := httptest.NewServer(env.handler)
	t.Cleanup(srv.Close)

	rec := env.do(t, http.MethodGet, "/sse/progress?kind=avatar", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sse/progress?kind=tip", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, config.CTypeEventStream, resp.Header.Get(config.HCType))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: connected", lines.Text())

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, "/api/drafts/tip", validTip).Code)
	require.Equal(t, http.StatusOK, env.upload(t, "/api/tip/images", "image", "cafe.jpg").Code)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/tip/submit", nil).Code)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/tip/publish", nil).Code)

	for lines.Scan() {
		if lines.Text() == "data: 100" {
			return
		}
	}
	t.Fatalf("Expected a completed progress event, scanner stopped: %v", lines.Err())
}
