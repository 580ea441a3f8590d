package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/suPer8Hu/mirror/internal/ai"
	"github.com/suPer8Hu/mirror/internal/memory"
	"github.com/suPer8Hu/mirror/internal/observability"
	"github.com/suPer8Hu/mirror/internal/prompt"
)

type recordingProvider struct {
	last  []ai.Message
	calls int
	reply string
	err   error
}

func (p *recordingProvider) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	_ = ctx
	p.calls++
	// copy to avoid mutations
	p.last = append([]ai.Message(nil), messages...)
	if p.err != nil {
		return "", p.err
	}
	if p.reply == "" {
		return "ok", nil
	}
	return p.reply, nil
}

type failingMemories struct {
	recallErr error
	writeErr  error
}

func (f failingMemories) RecentMemories(context.Context, uint64, int) ([]string, error) {
	return nil, f.recallErr
}

func (f failingMemories) Remember(context.Context, uint64, string) error { return f.writeErr }

// failingAppend breaks AppendExchange but keeps reads working.
type failingAppend struct {
	*Repo
}

func (failingAppend) AppendExchange(context.Context, uint64, string, string, string) (Exchange, error) {
	return Exchange{}, errors.New("disk full")
}

// failingHistory breaks History but keeps writes working.
type failingHistory struct {
	*Repo
}

func (failingHistory) History(context.Context, uint64, string, int) ([]Turn, error) {
	return nil, errors.New("connection reset")
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Session{}, &Message{}, &memory.Memory{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func fakeRegistry(prov ai.Provider) *ai.Registry {
	reg := ai.NewRegistry()
	reg.Register("fake", func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		_ = model
		return prov, nil
	})
	reg.SetDefault("fake", "default")
	return reg
}

type fixture struct {
	db       *gorm.DB
	repo     *Repo
	memories *memory.Repo
	prov     *recordingProvider
	svc      *Service
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db := openTestDB(t)
	f := &fixture{
		db:       db,
		repo:     NewRepo(db),
		memories: memory.NewRepo(db),
		prov:     &recordingProvider{},
	}
	f.svc = NewService(f.repo, f.memories, fakeRegistry(f.prov), opts...)
	return f
}

func TestReflect_WritesUserAndAssistant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ex, err := f.svc.Reflect(ctx, 1, "01TESTSESSIONID00000000000", "hello")
	if err != nil {
		t.Fatalf("reflect: %v", err)
	}
	if ex.User.Role != ai.RoleUser || ex.User.Content != "hello" {
		t.Fatalf("unexpected user turn: %+v", ex.User)
	}
	if ex.Assistant.Role != ai.RoleAssistant || ex.Assistant.Content != "ok" {
		t.Fatalf("unexpected assistant turn: %+v", ex.Assistant)
	}

	turns, err := f.repo.History(ctx, 1, "01TESTSESSIONID00000000000", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != ai.RoleUser || turns[1].Role != ai.RoleAssistant {
		t.Fatalf("unexpected order: %q then %q", turns[0].Role, turns[1].Role)
	}

	// "hello" is below the memory threshold
	if n, _ := f.memories.Count(ctx, 1); n != 0 {
		t.Fatalf("expected no memories, got %d", n)
	}
}

func TestReflect_ContextOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := "01TESTSESSIONID00000000001"

	if err := f.memories.Remember(ctx, 2, "has a dog called Miso"); err != nil {
		t.Fatalf("seed memory: %v", err)
	}
	if _, err := f.svc.Reflect(ctx, 2, sid, "first"); err != nil {
		t.Fatalf("first reflect: %v", err)
	}
	if _, err := f.svc.Reflect(ctx, 2, sid, "second"); err != nil {
		t.Fatalf("second reflect: %v", err)
	}

	got := f.prov.last
	if len(got) != 4 {
		t.Fatalf("expected system + 2 history + user, got %d messages", len(got))
	}
	if got[0].Role != ai.RoleSystem {
		t.Fatalf("expected system first, got %q", got[0].Role)
	}
	if !strings.Contains(got[0].Content, prompt.MemoriesHeader) || !strings.Contains(got[0].Content, "- has a dog called Miso") {
		t.Fatalf("expected recalled memory in system prompt")
	}
	if got[1].Role != ai.RoleUser || got[1].Content != "first" {
		t.Fatalf("unexpected history[0]: %+v", got[1])
	}
	if got[2].Role != ai.RoleAssistant || got[2].Content != "ok" {
		t.Fatalf("unexpected history[1]: %+v", got[2])
	}
	if got[3].Role != ai.RoleUser || got[3].Content != "second" {
		t.Fatalf("unexpected new user turn: %+v", got[3])
	}
	for _, m := range got[1:] {
		if m.Role == ai.RoleSystem {
			t.Fatalf("system prompt injected twice")
		}
	}
}

func TestReflect_StoresLongPromptAsMemory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	long := strings.Repeat("I keep thinking about leaving my job. ", 4)[:150]
	if _, err := f.svc.Reflect(ctx, 3, "01TESTSESSIONID00000000002", long); err != nil {
		t.Fatalf("reflect: %v", err)
	}

	got, err := f.memories.RecentMemories(ctx, 3, 5)
	if err != nil {
		t.Fatalf("recent memories: %v", err)
	}
	if len(got) != 1 || got[0] != long {
		t.Fatalf("expected the full 150-character prompt as memory, got %q", got)
	}

	// repeating the same prompt does not add a second memory
	if _, err := f.svc.Reflect(ctx, 3, "01TESTSESSIONID00000000002", long); err != nil {
		t.Fatalf("second reflect: %v", err)
	}
	if n, _ := f.memories.Count(ctx, 3); n != 1 {
		t.Fatalf("expected one memory after duplicate, got %d", n)
	}
}

func TestReflect_ModelErrorPersistsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := "01TESTSESSIONID00000000003"

	if _, err := f.svc.Reflect(ctx, 4, sid, "warm up"); err != nil {
		t.Fatalf("warm up: %v", err)
	}
	before, _ := f.repo.CountMessages(ctx, 4, sid)

	boom := errors.New("backend down")
	f.prov.err = boom
	_, err := f.svc.Reflect(ctx, 4, sid, strings.Repeat("z", 200))

	var me *ModelError
	if !errors.As(err, &me) {
		t.Fatalf("expected ModelError, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped backend error, got %v", err)
	}
	after, _ := f.repo.CountMessages(ctx, 4, sid)
	if after != before {
		t.Fatalf("expected %d messages after failure, got %d", before, after)
	}
	if n, _ := f.memories.Count(ctx, 4); n != 0 {
		t.Fatalf("memory must not be written when the model fails, got %d", n)
	}
}

func TestReflect_EmptyReplyIsModelError(t *testing.T) {
	f := newFixture(t)
	f.prov.reply = "   "

	_, err := f.svc.Reflect(context.Background(), 5, "01TESTSESSIONID00000000004", "hi")
	if !errors.Is(err, ErrEmptyReply) {
		t.Fatalf("expected ErrEmptyReply, got %v", err)
	}
}

func TestReflect_EmptyPrompt(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Reflect(context.Background(), 5, "s", "  \n"); !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
	if f.prov.calls != 0 {
		t.Fatalf("model must not be called for an empty prompt")
	}
}

func TestReflect_MemoryRecallFailureDegrades(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	prov := &recordingProvider{}
	svc := NewService(repo, failingMemories{recallErr: errors.New("timeout"), writeErr: errors.New("timeout")}, fakeRegistry(prov))

	ex, err := svc.Reflect(context.Background(), 6, "01TESTSESSIONID00000000005", strings.Repeat("m", 120))
	if err != nil {
		t.Fatalf("reflect must succeed without memories: %v", err)
	}
	if ex.Assistant.Content != "ok" {
		t.Fatalf("unexpected reply %q", ex.Assistant.Content)
	}
	if strings.Contains(prov.last[0].Content, prompt.MemoriesHeader) {
		t.Fatalf("system prompt must not carry a memory block")
	}
	if n, _ := repo.CountMessages(context.Background(), 6, "01TESTSESSIONID00000000005"); n != 2 {
		t.Fatalf("expected exchange to be stored, got %d messages", n)
	}
}

func TestReflect_AppendFailureIsStorageError(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	prov := &recordingProvider{}
	mem := memory.NewRepo(db)
	svc := NewService(failingAppend{repo}, mem, fakeRegistry(prov))

	_, err := svc.Reflect(context.Background(), 7, "01TESTSESSIONID00000000006", strings.Repeat("q", 130))
	var se *StorageError
	if !errors.As(err, &se) || se.Op != "append exchange" {
		t.Fatalf("expected append StorageError, got %v", err)
	}
	if n, _ := mem.Count(context.Background(), 7); n != 0 {
		t.Fatalf("memory must not be written when the exchange is not stored, got %d", n)
	}
}

func TestReflect_HistoryFailureIsStorageError(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	prov := &recordingProvider{}
	mem := memory.NewRepo(db)
	svc := NewService(failingHistory{repo}, mem, fakeRegistry(prov))
	sid := "01TESTSESSIONID00000000010"

	_, err := svc.Reflect(context.Background(), 8, sid, strings.Repeat("h", 130))
	var se *StorageError
	if !errors.As(err, &se) || se.Op != "history" {
		t.Fatalf("expected history StorageError, got %v", err)
	}
	if prov.calls != 0 {
		t.Fatalf("model must not be called, got %d calls", prov.calls)
	}
	if n, _ := repo.CountMessages(context.Background(), 8, sid); n != 0 {
		t.Fatalf("expected no stored turns, got %d", n)
	}
	if n, _ := mem.Count(context.Background(), 8); n != 0 {
		t.Fatalf("expected no memories, got %d", n)
	}
}

func TestCreateSession_RejectsUnknownProvider(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.CreateSession(ctx, 1, "t", "nope", ""); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
	sess, err := f.svc.CreateSession(ctx, 1, "", " Fake ", "m")
	if err != nil {
		t.Fatalf("known provider: %v", err)
	}
	if sess.Title != DefaultSessionTitle {
		t.Fatalf("unexpected title %q", sess.Title)
	}
	if _, err := f.svc.CreateSession(ctx, 1, "t", "", ""); err != nil {
		t.Fatalf("empty provider uses the default: %v", err)
	}
	list, err := f.repo.ListSessions(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("rejected session must not be stored, got %d sessions", len(list))
	}
}

func TestReflect_UsesHistoryLimit(t *testing.T) {
	window := 3
	f := newFixture(t, WithHistoryLimit(window))
	ctx := context.Background()
	sid := "01TESTSESSIONID00000000007"

	for i := 0; i < 3; i++ {
		if _, err := f.svc.Reflect(ctx, 8, sid, fmt.Sprintf("msg %d", i)); err != nil {
			t.Fatalf("seed reflect %d: %v", i, err)
		}
	}
	if _, err := f.svc.Reflect(ctx, 8, sid, "new"); err != nil {
		t.Fatalf("reflect: %v", err)
	}

	// system + window + new user turn
	if len(f.prov.last) != window+2 {
		t.Fatalf("expected %d messages, got %d", window+2, len(f.prov.last))
	}
	if f.prov.last[1].Content != "ok" || f.prov.last[2].Content != "msg 2" {
		t.Fatalf("expected the most recent turns, got %+v", f.prov.last[1:3])
	}
}

func TestReflect_RoutesBySessionProvider(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	def := &recordingProvider{reply: "default"}
	other := &recordingProvider{reply: "other"}

	reg := fakeRegistry(def)
	var gotModel string
	reg.Register("other", func(_ context.Context, model string) (ai.Provider, error) {
		gotModel = model
		return other, nil
	})
	svc := NewService(repo, memory.NewRepo(db), reg)

	sess, err := svc.CreateSession(context.Background(), 9, "", "other", "big-model")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if sess.Title != DefaultSessionTitle || len(sess.SessionID) != 26 {
		t.Fatalf("unexpected session: %+v", sess)
	}

	ex, err := svc.Reflect(context.Background(), 9, sess.SessionID, "hi")
	if err != nil {
		t.Fatalf("reflect: %v", err)
	}
	if ex.Assistant.Content != "other" || gotModel != "big-model" {
		t.Fatalf("expected routing to other/big-model, got %q via %q", ex.Assistant.Content, gotModel)
	}
	if def.calls != 0 {
		t.Fatalf("default provider must not be called")
	}
}

func TestReflect_Metrics(t *testing.T) {
	m := observability.NewMetrics("test", prometheus.NewRegistry())
	f := newFixture(t, WithMetrics(m))
	ctx := context.Background()

	if _, err := f.svc.Reflect(ctx, 10, "01TESTSESSIONID00000000008", strings.Repeat("w", 101)); err != nil {
		t.Fatalf("reflect: %v", err)
	}
	f.prov.err = errors.New("nope")
	_, _ = f.svc.Reflect(ctx, 10, "01TESTSESSIONID00000000008", "again")

	if got := testutil.ToFloat64(m.ReflectTotal.WithLabelValues("ok")); got != 1 {
		t.Fatalf("expected 1 ok, got %v", got)
	}
	if got := testutil.ToFloat64(m.ReflectTotal.WithLabelValues("model_error")); got != 1 {
		t.Fatalf("expected 1 model_error, got %v", got)
	}
	if got := testutil.ToFloat64(m.MemoryEvents.WithLabelValues("write", "stored")); got != 1 {
		t.Fatalf("expected 1 stored memory, got %v", got)
	}
}
