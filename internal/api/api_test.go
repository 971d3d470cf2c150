package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/generate"
	"github.com/starford/ansuz/internal/mochi"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/noteservice"
	"github.com/starford/ansuz/internal/proposal"
	"github.com/starford/ansuz/internal/reconcile"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/testutil"
)

type stubProposer struct {
	result generate.Result
}

func (s *stubProposer) Propose(context.Context, generate.Request) generate.Result {
	return s.result
}

// memMochi is an in-memory reconcile.Client.
type memMochi struct {
	mu     sync.Mutex
	cards  map[string]mochi.Card
	decks  map[string]mochi.Deck
	nextID int
}

func newMemMochi(deckIDs ...string) *memMochi {
	m := &memMochi{cards: map[string]mochi.Card{}, decks: map[string]mochi.Deck{}}
	for _, id := range deckIDs {
		m.decks[id] = mochi.Deck{ID: id, Name: "deck " + id}
	}
	return m
}

func (m *memMochi) CreateCard(_ context.Context, in mochi.CardInput) (mochi.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c := mochi.Card{ID: fmt.Sprintf("card-%d", m.nextID), Content: in.Content, DeckID: in.DeckID,
		Tags: mochi.TagList(in.ManualTags), ManualTags: mochi.TagList(in.ManualTags)}
	m.cards[c.ID] = c
	return c, nil
}

func (m *memMochi) GetCard(_ context.Context, id string) (mochi.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return mochi.Card{}, mochi.ErrNotFound
	}
	return c, nil
}

func (m *memMochi) DeleteCard(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.cards[id]
	delete(m.cards, id)
	return ok, nil
}

func (m *memMochi) ListCards(_ context.Context, deckID string, _ int, _ string) (mochi.Page[mochi.Card], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var page mochi.Page[mochi.Card]
	for _, c := range m.cards {
		if c.DeckID == deckID {
			page.Docs = append(page.Docs, c)
		}
	}
	return page, nil
}

func (m *memMochi) ListDecks(context.Context) ([]mochi.Deck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []mochi.Deck{}
	for _, d := range m.decks {
		out = append(out, d)
	}
	return out, nil
}

func (m *memMochi) GetDeck(_ context.Context, id string) (mochi.Deck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.decks[id]
	if !ok {
		return mochi.Deck{}, mochi.ErrNotFound
	}
	return d, nil
}

func (m *memMochi) FindSimpleTemplateID(context.Context) string { return "tpl-simple" }

func (m *memMochi) CreateDeck(_ context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := fmt.Sprintf("deck-%d", len(m.decks)+1)
	m.decks[id] = mochi.Deck{ID: id, Name: name}
	return id, nil
}

type testEnv struct {
	router    http.Handler
	db        *store.DB
	remote    *memMochi
	broker    *sse.Broker
	backupDir string
}

func newTestEnv(t *testing.T, authEnabled bool, token string) *testEnv {
	t.Helper()
	db := testutil.TestDB(t)
	_, files := testutil.TestSources(t)
	logger := testutil.Logger()

	broker := sse.NewBroker(10 * time.Millisecond)
	t.Cleanup(broker.Close)

	prop := &stubProposer{result: generate.Result{Engine: "stub", Candidates: []models.CardFields{
		{Type: models.NoteBasic, Front: "Capital of Poland?", Back: "Warsaw", Tags: []string{"geo"}},
	}}}
	remote := newMemMochi("deck-1")
	env := &testEnv{db: db, remote: remote, broker: broker, backupDir: t.TempDir()}

	deps := Deps{
		Notes:     noteservice.NewService(db, files, broker, noteservice.Options{Backend: "stub", Logger: logger}),
		Proposals: proposal.NewService(db, prop, broker, proposal.Config{MaxNotes: 3}, logger),
		Sync: reconcile.NewService(db, db, func(string) reconcile.Client { return remote },
			reconcile.Config{PageSize: 50, BackupDir: env.backupDir}, logger),
		Events:    broker,
		Backups:   db,
		BackupDir: env.backupDir,
		Logger:    logger,
	}
	env.router = NewRouter(deps, authEnabled, token, broker)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestCreateAndListSources(t *testing.T) {
	env := newTestEnv(t, false, "")

	w := env.do(t, http.MethodPost, "/users/1/sources", map[string]string{"text": "Warsaw is the capital of Poland."})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	src := decode[models.Source](t, w)
	if src.Kind != models.SourceKindText || src.Status != models.SourcePending {
		t.Errorf("source = %+v", src)
	}

	w = env.do(t, http.MethodGet, "/users/1/sources?status=pending", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	list := decode[SourceListResponse](t, w)
	if list.Total != 1 || list.Sources[0].ID != src.ID {
		t.Errorf("list = %+v", list)
	}

	// Other users do not see it.
	w = env.do(t, http.MethodGet, "/users/2/sources", nil)
	if other := decode[SourceListResponse](t, w); other.Total != 0 {
		t.Errorf("user 2 sources = %d, want 0", other.Total)
	}
}

func TestCreateSourceValidation(t *testing.T) {
	env := newTestEnv(t, false, "")

	if w := env.do(t, http.MethodPost, "/users/1/sources", map[string]string{"text": ""}); w.Code != http.StatusBadRequest {
		t.Errorf("empty text = %d, want 400", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/users/1/sources", map[string]string{"text": "  "}); w.Code != http.StatusBadRequest {
		t.Errorf("blank text = %d, want 400", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/users/abc/sources", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad user = %d, want 400", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/users/1/sources?status=archived", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad status filter = %d, want 400", w.Code)
	}
}

func TestUploadSource(t *testing.T) {
	env := newTestEnv(t, false, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "facts.md")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.Copy(part, strings.NewReader("# Facts\nThe **Nile** is long."))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/users/3/sources", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body = %s", w.Code, w.Body.String())
	}
	src := decode[models.Source](t, w)
	if src.Kind != models.SourceKindFile || src.Text != "Facts\nThe Nile is long." {
		t.Errorf("source = %+v", src)
	}
}

func TestUploadSourceMissingFileField(t *testing.T) {
	env := newTestEnv(t, false, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("caption", "no file here")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/users/3/sources", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing file = %d, want 400", w.Code)
	}
}

func TestSourceStatus(t *testing.T) {
	env := newTestEnv(t, false, "")
	src := decode[models.Source](t, env.do(t, http.MethodPost, "/users/1/sources", map[string]string{"text": "some text"}))

	w := env.do(t, http.MethodPost, fmt.Sprintf("/users/1/sources/%d/status", src.ID), map[string]string{"status": "done"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	w = env.do(t, http.MethodPost, "/users/1/sources/999/status", map[string]string{"status": "ignored"})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing source = %d, want 404", w.Code)
	}
	w = env.do(t, http.MethodPost, fmt.Sprintf("/users/1/sources/%d/status", src.ID), map[string]string{"status": "archived"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad status = %d, want 400", w.Code)
	}
}

func proposeOne(t *testing.T, env *testEnv, userID int64) proposal.Outcome {
	t.Helper()
	w := env.do(t, http.MethodPost, fmt.Sprintf("/users/%d/proposals", userID),
		map[string]string{"text": "Warsaw is the capital of Poland."})
	if w.Code != http.StatusOK {
		t.Fatalf("propose status = %d, body = %s", w.Code, w.Body.String())
	}
	out := decode[proposal.Outcome](t, w)
	if len(out.ProposalIDs) != 1 || out.Delivered != 1 || out.Engine != "stub" {
		t.Fatalf("outcome = %+v", out)
	}
	return out
}

func TestProposeAndList(t *testing.T) {
	env := newTestEnv(t, false, "")
	out := proposeOne(t, env, 1)

	w := env.do(t, http.MethodGet, "/users/1/proposals?status=pending", nil)
	list := decode[ProposalListResponse](t, w)
	if list.Total != 1 || list.Proposals[0].ID != out.ProposalIDs[0] {
		t.Errorf("pending = %+v", list)
	}
	if w := env.do(t, http.MethodGet, "/users/1/proposals?status=bogus", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad status = %d, want 400", w.Code)
	}
}

func TestProposeEmptyText(t *testing.T) {
	env := newTestEnv(t, false, "")
	w := env.do(t, http.MethodPost, "/users/1/proposals", map[string]string{"text": "   "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty text = %d, want 400", w.Code)
	}
}

func TestProposeSourceAndPending(t *testing.T) {
	env := newTestEnv(t, false, "")
	src := decode[models.Source](t, env.do(t, http.MethodPost, "/users/1/sources", map[string]string{"text": "Rivers of Europe"}))

	w := env.do(t, http.MethodPost, fmt.Sprintf("/users/1/sources/%d/proposals", src.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("propose source = %d, body = %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodPost, "/users/1/sources/999/proposals", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing source = %d, want 404", w.Code)
	}

	env.do(t, http.MethodPost, "/users/1/sources", map[string]string{"text": "Mountains of Asia"})
	w = env.do(t, http.MethodPost, "/users/1/proposals/pending", map[string]int{"limit": 5})
	if w.Code != http.StatusOK {
		t.Fatalf("pending = %d, body = %s", w.Code, w.Body.String())
	}
	sum := decode[proposal.BatchSummary](t, w)
	if sum.Scanned == 0 || sum.ProposalsPosted == 0 {
		t.Errorf("summary = %+v", sum)
	}
	if w := env.do(t, http.MethodPost, "/users/1/proposals/pending", map[string]int{"limit": 50}); w.Code != http.StatusBadRequest {
		t.Errorf("limit 50 = %d, want 400", w.Code)
	}
}

func TestReactApprovePushesToMochi(t *testing.T) {
	env := newTestEnv(t, false, "")
	w := env.do(t, http.MethodPut, "/users/1/mochi/settings", map[string]string{"api_key": "key-123", "deck_id": "deck-1"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("settings = %d, body = %s", w.Code, w.Body.String())
	}
	out := proposeOne(t, env, 1)

	w = env.do(t, http.MethodPost, "/users/1/reactions", map[string]any{"handle": out.ProposalIDs[0], "emojis": []string{"👍"}})
	if w.Code != http.StatusOK {
		t.Fatalf("react = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[ReactionResponse](t, w)
	if !resp.Applied || resp.Note == nil {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Push == nil || resp.Push.Created != 1 || resp.PushError != "" {
		t.Errorf("push = %+v, error = %q", resp.Push, resp.PushError)
	}
	if len(env.remote.cards) != 1 {
		t.Errorf("remote cards = %d, want 1", len(env.remote.cards))
	}

	// A second reaction on the same handle is a no-op.
	w = env.do(t, http.MethodPost, "/users/1/reactions", map[string]any{"handle": out.ProposalIDs[0], "decision": "approve"})
	if again := decode[ReactionResponse](t, w); again.Applied {
		t.Errorf("second approval applied")
	}
}

func TestReactApproveWithoutCredentials(t *testing.T) {
	env := newTestEnv(t, false, "")
	out := proposeOne(t, env, 1)

	w := env.do(t, http.MethodPost, "/users/1/reactions", map[string]any{"handle": out.ProposalIDs[0], "decision": "approved"})
	if w.Code != http.StatusOK {
		t.Fatalf("react = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[ReactionResponse](t, w)
	if !resp.Applied || resp.Note == nil {
		t.Fatalf("response = %+v", resp)
	}
	if !strings.Contains(resp.PushError, "credentials") {
		t.Errorf("push_error = %q", resp.PushError)
	}
}

func TestReactReject(t *testing.T) {
	env := newTestEnv(t, false, "")
	out := proposeOne(t, env, 1)

	w := env.do(t, http.MethodPost, "/users/1/reactions", map[string]any{"handle": out.ProposalIDs[0], "emojis": []string{"👎"}})
	resp := decode[ReactionResponse](t, w)
	if !resp.Applied || resp.Note != nil || resp.Proposal.Status != models.ProposalRejected {
		t.Errorf("response = %+v", resp)
	}
}

func TestReplyFeedbackAndPlainText(t *testing.T) {
	env := newTestEnv(t, false, "")
	out := proposeOne(t, env, 1)

	w := env.do(t, http.MethodPost, "/users/1/replies", map[string]any{"handle": out.ProposalIDs[0], "text": "feedback: make it a cloze"})
	if w.Code != http.StatusOK {
		t.Fatalf("reply = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[ReplyResponse](t, w)
	if !resp.Feedback || resp.Outcome == nil || resp.Outcome.FeedbackID == 0 {
		t.Errorf("feedback reply = %+v", resp)
	}

	w = env.do(t, http.MethodPost, "/users/1/replies", map[string]any{"handle": out.ProposalIDs[0], "text": "Berlin is the capital of Germany."})
	resp = decode[ReplyResponse](t, w)
	if resp.Feedback || resp.Source == nil || resp.Source.Kind != models.SourceKindText {
		t.Errorf("plain reply = %+v", resp)
	}
}

func TestReplyBareFeedbackRejected(t *testing.T) {
	env := newTestEnv(t, false, "")
	out := proposeOne(t, env, 1)

	w := env.do(t, http.MethodPost, "/users/1/replies", map[string]any{"handle": out.ProposalIDs[0], "text": "feedback"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bare feedback = %d, want 400, body = %s", w.Code, w.Body.String())
	}

	ctx := context.Background()
	fbs, err := env.db.ListFeedback(ctx, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(fbs) != 0 {
		t.Errorf("feedback rows = %d, want 0", len(fbs))
	}
	p, err := env.db.GetProposal(ctx, 1, out.ProposalIDs[0])
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != models.ProposalPending {
		t.Errorf("status = %q, want pending", p.Status)
	}
	all, err := env.db.ListProposals(ctx, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("proposals = %d, want 1", len(all))
	}
}

func TestFeedbackUnknownHandle(t *testing.T) {
	env := newTestEnv(t, false, "")
	w := env.do(t, http.MethodPost, "/users/1/feedback", map[string]any{"handle": 404, "text": "shorter please"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown handle = %d, want 400", w.Code)
	}
}

func TestNotesEndpoints(t *testing.T) {
	env := newTestEnv(t, false, "")

	w := env.do(t, http.MethodPost, "/users/1/notes", map[string]any{"type": "basic", "front": "Q", "back": "A"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d, body = %s", w.Code, w.Body.String())
	}
	w = env.do(t, http.MethodPost, "/users/1/notes", map[string]any{"type": "cloze", "cloze": "{{c1::Go}} is compiled"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create cloze = %d, body = %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodPost, "/users/1/notes", map[string]any{"type": "basic", "front": "Q"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing back = %d, want 400", w.Code)
	}
	if w := env.do(t, http.MethodPut, "/users/1/deck", map[string]string{"name": "Geography"}); w.Code != http.StatusNoContent {
		t.Errorf("deck name = %d", w.Code)
	}

	st := decode[noteservice.Status](t, env.do(t, http.MethodGet, "/users/1/status", nil))
	if st.Notes != 2 || st.DeckName != "Geography" || st.Backend != "stub" {
		t.Errorf("status = %+v", st)
	}

	list := decode[NoteListResponse](t, env.do(t, http.MethodGet, "/users/1/notes", nil))
	if list.Total != 2 {
		t.Errorf("notes = %d, want 2", list.Total)
	}
	cleared := decode[map[string]int64](t, env.do(t, http.MethodDelete, "/users/1/notes", nil))
	if cleared["deleted"] != 2 {
		t.Errorf("cleared = %v", cleared)
	}
}

func TestSyncEndpoints(t *testing.T) {
	env := newTestEnv(t, false, "")

	if w := env.do(t, http.MethodPost, "/users/1/sync/push", nil); w.Code != http.StatusPreconditionFailed {
		t.Errorf("sync without credentials = %d, want 412", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/users/1/sync/sideways", nil); w.Code != http.StatusBadRequest {
		t.Errorf("unknown action = %d, want 400", w.Code)
	}

	env.do(t, http.MethodPut, "/users/1/mochi/settings", map[string]string{"api_key": "key-123", "deck_id": "deck-1"})
	env.do(t, http.MethodPost, "/users/1/notes", map[string]any{"type": "basic", "front": "Q", "back": "A"})

	w := env.do(t, http.MethodPost, "/users/1/sync/push", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("sync push = %d, body = %s", w.Code, w.Body.String())
	}
	rep := decode[reconcile.Report](t, w)
	if rep.Push == nil || rep.Push.Created != 1 || rep.Backup == "" {
		t.Errorf("report = %+v", rep)
	}
	if _, err := os.Stat(rep.Backup); err != nil {
		t.Errorf("backup file: %v", err)
	}

	st := decode[reconcile.Status](t, env.do(t, http.MethodGet, "/users/1/mochi/status", nil))
	if st.KeySource != "user" || st.DeckID != "deck-1" || st.LinkedCards != 1 || st.TemplateID != "tpl-simple" {
		t.Errorf("mochi status = %+v", st)
	}
}

func TestDeckEndpoints(t *testing.T) {
	env := newTestEnv(t, false, "")

	if w := env.do(t, http.MethodGet, "/users/1/mochi/decks", nil); w.Code != http.StatusPreconditionFailed {
		t.Errorf("decks without key = %d, want 412", w.Code)
	}
	if w := env.do(t, http.MethodPut, "/users/1/mochi/settings", map[string]string{}); w.Code != http.StatusBadRequest {
		t.Errorf("empty settings = %d, want 400", w.Code)
	}
	env.do(t, http.MethodPut, "/users/1/mochi/settings", map[string]string{"api_key": "key-123"})

	w := env.do(t, http.MethodPost, "/users/1/mochi/decks", map[string]string{"name": "Capitals"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create deck = %d, body = %s", w.Code, w.Body.String())
	}
	created := decode[map[string]string](t, w)
	if created["deck_id"] == "" {
		t.Errorf("created = %v", created)
	}
	decks := decode[[]mochi.Deck](t, env.do(t, http.MethodGet, "/users/1/mochi/decks", nil))
	if len(decks) != 2 {
		t.Errorf("decks = %d, want 2", len(decks))
	}
}

func TestBackupEndpoint(t *testing.T) {
	env := newTestEnv(t, false, "")
	w := env.do(t, http.MethodPost, "/users/1/backup", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("backup = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[BackupResponse](t, w)
	if !strings.Contains(resp.Path, "db_backup_u1_manual_") {
		t.Errorf("path = %q", resp.Path)
	}
	if _, err := os.Stat(resp.Path); err != nil {
		t.Errorf("backup file: %v", err)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	env := newTestEnv(t, true, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/users/1/notes", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed list = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	env := newTestEnv(t, true, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/users/1/notes", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	env := newTestEnv(t, true, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/users/1/notes", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	env := newTestEnv(t, false, "")

	w := env.do(t, http.MethodGet, "/users/1/notes", nil)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

func TestSSEEvents_AuthProtected(t *testing.T) {
	env := newTestEnv(t, true, "secret")

	req := httptest.NewRequest(http.MethodGet, "/users/1/events", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	env := newTestEnv(t, true, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/users/1/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
}
