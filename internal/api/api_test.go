package api_test

import (
	"strings"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/kmnkit/vietnamese-word-cards/internal/api"
	"github.com/kmnkit/vietnamese-word-cards/internal/logger"
	"github.com/kmnkit/vietnamese-word-cards/internal/models"
	"github.com/kmnkit/vietnamese-word-cards/internal/progress"
	"github.com/kmnkit/vietnamese-word-cards/internal/remote"
	"github.com/kmnkit/vietnamese-word-cards/internal/repository/sqlstore"
	"github.com/kmnkit/vietnamese-word-cards/internal/services"
	"github.com/kmnkit/vietnamese-word-cards/internal/syncer"
	"github.com/kmnkit/vietnamese-word-cards/internal/testutil"
	"github.com/kmnkit/vietnamese-word-cards/internal/worker"
)

type APISuite struct {
	suite.Suite
	srv *httptest.Server
}

func (s *APISuite) SetupTest() {
	d := testutil.NewTestDB(s.T())
	sessions := sqlstore.NewSessionRepository(d)
	server := &api.Server{
		DB:              d,
		ProgressService: services.NewProgressService(sqlstore.NewProgressRepository(d), sessions),
		SessionService:  services.NewSessionService(sessions),
	}
	s.srv = httptest.NewServer(server.Routes())
}

func (s *APISuite) TearDownTest() {
	s.srv.Close()
}

func (s *APISuite) do(method, path, user string, body any) (*http.Response, map[string]any) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.srv.URL+path, &buf)
	s.Require().NoError(err)
	if user != "" {
		req.Header.Set(remote.UserHeader, user)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (s *APISuite) TestHealth() {
	resp, err := http.Get(s.srv.URL + "/healthz")
	s.Require().NoError(err)
	resp.Body.Close()
	s.Assert().Equal(http.StatusOK, resp.StatusCode)

	resp, err = http.Get(s.srv.URL + "/readyz")
	s.Require().NoError(err)
	resp.Body.Close()
	s.Assert().Equal(http.StatusOK, resp.StatusCode)
	s.Assert().NotEmpty(resp.Header.Get("X-Request-ID"))
}

func (s *APISuite) TestRequiresUser() {
	resp, body := s.do(http.MethodGet, "/api/progress/sync", "", nil)
	s.Assert().Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Assert().Equal("UNAUTHORIZED", body["error"].(map[string]any)["code"])
}

func (s *APISuite) TestGetSync_CreatesDefault() {
	resp, body := s.do(http.MethodGet, "/api/progress/sync", "u1", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	p := body["progress"].(map[string]any)
	s.Assert().Equal("u1", p["userId"])
	s.Assert().Equal(float64(1), p["currentLevel"])
	s.Assert().Equal([]any{}, p["learnedWords"])
	s.Assert().Equal([]any{}, body["sessions"])
}

func (s *APISuite) TestPostSync_IsIdempotent() {
	upload := map[string]any{
		"progress": map[string]any{
			"learned_words":     []string{"a", "b"},
			"current_level":     2,
			"experience_points": 150,
			"streak_days":       2,
			"last_study_date":   "2026-03-10",
		},
		"sessions": []map[string]any{
			{"date": "2026-03-10T09:00:00Z", "duration_minutes": 3, "words_practiced": 10, "activity_type": "flashcard", "xp_earned": 50, "words_learned": 2},
		},
	}
	for i := 0; i < 2; i++ {
		resp, body := s.do(http.MethodPost, "/api/progress/sync", "u1", upload)
		s.Require().Equal(http.StatusOK, resp.StatusCode)
		s.Assert().Equal(true, body["success"])
	}

	_, body := s.do(http.MethodGet, "/api/progress/sync", "u1", nil)
	p := body["progress"].(map[string]any)
	s.Assert().Equal(float64(150), p["experiencePoints"])
	s.Assert().Equal([]any{"a", "b"}, p["learnedWords"])
	s.Assert().Len(body["sessions"], 1)
	sess := body["sessions"].([]any)[0].(map[string]any)
	s.Assert().Equal("flashcard", sess["activityType"])
	s.Assert().Equal(float64(3), sess["durationMinutes"])
}

func (s *APISuite) TestPatchWords() {
	resp, _ := s.do(http.MethodPatch, "/api/progress/words", "u1", map[string]any{"wordId": "a", "action": "add"})
	s.Assert().Equal(http.StatusNotFound, resp.StatusCode, "no progress row yet")

	s.do(http.MethodGet, "/api/progress/sync", "u1", nil)

	resp, body := s.do(http.MethodPatch, "/api/progress/words", "u1", map[string]any{"wordId": "a", "action": "add"})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Assert().Equal([]any{"a"}, body["learnedWords"])

	resp, _ = s.do(http.MethodPatch, "/api/progress/words", "u1", map[string]any{"wordId": "a", "action": "flip"})
	s.Assert().Equal(http.StatusBadRequest, resp.StatusCode)

	resp, body = s.do(http.MethodPatch, "/api/progress/words", "u1", map[string]any{"wordId": "a", "action": "remove"})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Assert().Equal([]any{}, body["learnedWords"])
}

func (s *APISuite) TestPatchXP() {
	s.do(http.MethodGet, "/api/progress/sync", "u1", nil)

	resp, body := s.do(http.MethodPatch, "/api/progress/xp", "u1", map[string]any{"points": 120})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Assert().Equal(float64(120), body["experiencePoints"])
	s.Assert().Equal(float64(2), body["currentLevel"])

	for _, bad := range []any{map[string]any{"points": 0}, map[string]any{"points": "ten"}, map[string]any{}} {
		resp, _ = s.do(http.MethodPatch, "/api/progress/xp", "u1", bad)
		s.Assert().Equal(http.StatusBadRequest, resp.StatusCode, "%v", bad)
	}

	resp, _ = s.do(http.MethodPatch, "/api/progress/xp", "u2", map[string]any{"points": 5})
	s.Assert().Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *APISuite) TestSessions() {
	session := map[string]any{"date": "2026-03-10T09:00:00Z", "duration_minutes": 2, "words_practiced": 5, "activity_type": "quiz", "quiz_score": 4, "xp_earned": 40, "words_learned": 0}

	resp, body := s.do(http.MethodPost, "/api/sessions", "u1", session)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	s.Assert().Equal(true, body["created"])

	resp, body = s.do(http.MethodPost, "/api/sessions", "u1", session)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Assert().Equal(false, body["created"])

	session2 := map[string]any{"duration_minutes": 1, "words_practiced": 5, "activity_type": "learning", "xp_earned": 0, "words_learned": 3}
	resp, _ = s.do(http.MethodPost, "/api/sessions", "u1", session2)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	resp, body = s.do(http.MethodPost, "/api/sessions", "u1", map[string]any{"duration_minutes": 1, "activity_type": "quiz"})
	s.Assert().Equal(http.StatusBadRequest, resp.StatusCode)
	s.Assert().Contains(body["error"].(map[string]any)["message"], "words_practiced")

	resp, _ = s.do(http.MethodPost, "/api/sessions", "u1", map[string]any{"duration_minutes": 1, "words_practiced": 1, "activity_type": "game", "xp_earned": 0, "words_learned": 0})
	s.Assert().Equal(http.StatusBadRequest, resp.StatusCode)

	resp, body = s.do(http.MethodGet, "/api/sessions?limit=1", "u1", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Assert().Equal(true, body["hasMore"])
	s.Require().Len(body["sessions"], 1)
	s.Assert().Equal("learning", body["sessions"].([]any)[0].(map[string]any)["activityType"], "newest first")

	resp, _ = s.do(http.MethodGet, "/api/sessions?limit=abc", "u1", nil)
	s.Assert().Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *APISuite) preflight(requestHeaders string) *http.Response {
	req, err := http.NewRequest(http.MethodOptions, s.srv.URL+"/api/progress/xp", nil)
	s.Require().NoError(err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	req.Header.Set("Access-Control-Request-Headers", requestHeaders)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	resp.Body.Close()
	return resp
}

func (s *APISuite) TestCORSPreflight() {
	// browsers send the requested header names lowercased
	resp := s.preflight(strings.ToLower(remote.UserHeader))
	s.Assert().Equal("*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func (s *APISuite) TestCORSPreflight_MixedCaseHeaderRejected() {
	resp := s.preflight(remote.UserHeader)
	s.Assert().Empty(resp.Header.Get("Access-Control-Allow-Origin"))
}

// TestEngineAgainstCollaborator drives the real engine through the HTTP client.
func (s *APISuite) TestEngineAgainstCollaborator() {
	t := s.T()
	ctx := context.Background()
	client := remote.New(s.srv.URL, remote.WithUserID("u1"))

	pool := worker.NewPool(1, 16)
	pool.Start(ctx)

	store, err := progress.Open(ctx, "u1",
		progress.WithLocalStore(sqlstore.NewProgressStateRepository(testutil.NewTestDB(t))),
		progress.WithPusher(client, pool),
		progress.WithLogger(logger.Discard()))
	require.NoError(t, err)
	coord := syncer.New(store, client, syncer.WithLogger(logger.Discard()))

	// the collaborator has no row yet, so the first pushes fail and are only logged
	require.NoError(t, store.AddLearnedWord(ctx, "xin_chao"))
	require.NoError(t, coord.SyncWithBackend(ctx))

	require.NoError(t, store.AddExperiencePoints(ctx, 60))
	require.NoError(t, store.AddLearnedWord(ctx, "tam_biet"))
	_, err = store.AddStudySession(ctx, models.NewStudySession{DurationMinutes: 2, WordsPracticed: 4, ActivityType: models.ActivityFlashcard, XPEarned: 60, WordsLearned: 1})
	require.NoError(t, err)
	pool.Stop()

	page, err := client.ListSessions(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, page.Sessions, 1)

	require.NoError(t, coord.SyncWithBackend(ctx))
	snap := store.Snapshot()
	assert.Equal(t, []string{"xin_chao", "tam_biet"}, snap.LearnedWords)
	assert.Equal(t, 60, snap.ExperiencePoints)
	assert.Len(t, snap.StudySessions, 1, "the pushed session and the synced copy are one row")
	assert.Equal(t, models.SyncIdle, snap.SyncStatus)
	assert.WithinDuration(t, time.Now(), *snap.LastSyncTime, time.Minute)
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}
