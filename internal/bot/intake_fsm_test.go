package bot

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ad/telegram-contest-bot/internal/config"
	"github.com/ad/telegram-contest-bot/internal/domain"
	"github.com/ad/telegram-contest-bot/internal/locale"
	"github.com/ad/telegram-contest-bot/internal/logger"
	"github.com/ad/telegram-contest-bot/internal/session"
	"github.com/ad/telegram-contest-bot/internal/storage"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	_ "modernc.org/sqlite"
)

// mockGateway records outgoing Telegram calls for assertions
type mockGateway struct {
	mu            sync.Mutex
	messages      []*bot.SendMessageParams
	albums        []*bot.SendMediaGroupParams
	deleted       []int
	edits         []*bot.EditMessageTextParams
	answers       []*bot.AnswerCallbackQueryParams
	memberType    models.ChatMemberType
	sendErr       error
	nextMessageID int
}

func newMockGateway() *mockGateway {
	return &mockGateway{memberType: models.ChatMemberTypeMember}
}

func (m *mockGateway) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.messages = append(m.messages, params)
	m.nextMessageID++
	return &models.Message{ID: m.nextMessageID}, nil
}

func (m *mockGateway) SendMediaGroup(ctx context.Context, params *bot.SendMediaGroupParams) ([]*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.albums = append(m.albums, params)
	m.nextMessageID++
	return []*models.Message{{ID: m.nextMessageID}}, nil
}

func (m *mockGateway) DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, params.MessageID)
	return true, nil
}

func (m *mockGateway) EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits = append(m.edits, params)
	return &models.Message{ID: params.MessageID}, nil
}

func (m *mockGateway) AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers = append(m.answers, params)
	return true, nil
}

func (m *mockGateway) GetChatMember(ctx context.Context, params *bot.GetChatMemberParams) (*models.ChatMember, error) {
	return &models.ChatMember{Type: m.memberType}, nil
}

// lastMessageTo returns the most recent message sent to the chat
func (m *mockGateway) lastMessageTo(chatID int64) *bot.SendMessageParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].ChatID == any(chatID) {
			return m.messages[i]
		}
	}
	return nil
}

func (m *mockGateway) albumsTo(chatID int64) []*bot.SendMediaGroupParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*bot.SendMediaGroupParams
	for _, album := range m.albums {
		if album.ChatID == any(chatID) {
			result = append(result, album)
		}
	}
	return result
}

func testConfig() *config.Config {
	return &config.Config{
		BotToken:        "test_token",
		AdminUserIDs:    []int64{1},
		ContestChatID:   -100200,
		AdminChatID:     -100300,
		NewsChatID:      -100400,
		MainChatID:      -100500,
		DraftTimeout:    10 * time.Minute,
		LockIdleTimeout: 5 * time.Minute,
		SweepInterval:   time.Minute,
	}
}

func testLocalizer(t *testing.T) locale.Localizer {
	t.Helper()
	localizer, err := locale.NewLocalizer(locale.NewLocale(locale.Ru))
	if err != nil {
		t.Fatalf("Failed to create localizer: %v", err)
	}
	return localizer
}

func testLogger() domain.Logger {
	return logger.NewWithWriter(logger.ERROR, io.Discard)
}

type intakeEnv struct {
	gw     *mockGateway
	fsm    *IntakeFSM
	drafts *session.DraftStore
	subs   *storage.SubmissionRepository
	judges *storage.JudgeRepository
}

func newIntakeEnv(t *testing.T) *intakeEnv {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	queue := storage.NewDBQueue(db)
	t.Cleanup(queue.Close)

	if err := storage.InitSchema(queue); err != nil {
		t.Fatalf("Failed to initialize schema: %v", err)
	}

	gw := newMockGateway()
	drafts := session.NewDraftStore()
	subs := storage.NewSubmissionRepository(queue)
	judges := storage.NewJudgeRepository(queue)

	fsm := NewIntakeFSM(gw, drafts, subs, judges, testConfig(), testLogger(), testLocalizer(t))

	return &intakeEnv{gw: gw, fsm: fsm, drafts: drafts, subs: subs, judges: judges}
}

func previewCallback(userID, chatID int64, data string) *models.CallbackQuery {
	return &models.CallbackQuery{
		ID:   "cb_1",
		From: models.User{ID: userID, Username: "alice", FirstName: "Alice"},
		Message: models.MaybeInaccessibleMessage{
			Message: &models.Message{ID: 10, Chat: models.Chat{ID: chatID}},
		},
		Data: data,
	}
}

func TestIntakeHappyPath(t *testing.T) {
	env := newIntakeEnv(t)
	ctx := context.Background()
	const userID, chatID = int64(100), int64(100)

	if err := env.fsm.Start(ctx, userID, chatID, "alice", "Alice A"); err != nil {
		t.Fatalf("Failed to start intake: %v", err)
	}
	if !env.drafts.Exists(userID) {
		t.Fatal("Expected a draft after start")
	}

	for i := 0; i < 2; i++ {
		photo := domain.PhotoRef{FileID: fmt.Sprintf("file_%d", i), UniqueID: fmt.Sprintf("unique_%d", i)}
		if err := env.fsm.HandlePhoto(ctx, userID, chatID, photo, ""); err != nil {
			t.Fatalf("Failed to handle photo %d: %v", i, err)
		}
	}

	if err := env.fsm.HandleDone(ctx, userID, chatID); err != nil {
		t.Fatalf("Failed to handle /done: %v", err)
	}
	if env.drafts.Get(userID).State != domain.StateWaitingCaption {
		t.Fatalf("Expected waiting_caption, got %s", env.drafts.Get(userID).State)
	}

	if err := env.fsm.HandleText(ctx, userID, chatID, "my lovely island"); err != nil {
		t.Fatalf("Failed to handle caption: %v", err)
	}
	if env.drafts.Get(userID).State != domain.StatePreview {
		t.Fatalf("Expected preview, got %s", env.drafts.Get(userID).State)
	}

	// preview album went back to the submitter
	if len(env.gw.albumsTo(chatID)) != 1 {
		t.Fatalf("Expected 1 preview album, got %d", len(env.gw.albumsTo(chatID)))
	}

	if err := env.fsm.HandleCallback(ctx, previewCallback(userID, chatID, cbIntakeSendBot)); err != nil {
		t.Fatalf("Failed to handle dispatch callback: %v", err)
	}

	if env.drafts.Exists(userID) {
		t.Error("Expected draft removed after dispatch")
	}

	pending, err := env.subs.ListByStatus(ctx, domain.StatusPending)
	if err != nil {
		t.Fatalf("Failed to list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("Expected 1 pending submission, got %d", len(pending))
	}
	if pending[0].UserID != userID || len(pending[0].Photos) != 2 || pending[0].Caption != "my lovely island" {
		t.Errorf("Unexpected persisted submission: %+v", pending[0])
	}

	forwarded := env.gw.albumsTo(testConfig().ContestChatID)
	if len(forwarded) != 1 {
		t.Fatalf("Expected 1 forwarded album, got %d", len(forwarded))
	}
	caption := forwarded[0].Media[0].(*models.InputMediaPhoto).Caption
	if !strings.Contains(caption, "my lovely island") || !strings.Contains(caption, "@alice") {
		t.Errorf("Forwarded caption missing parts: %q", caption)
	}
	if !strings.Contains(caption, "ботом") {
		t.Errorf("Expected bot attribution tag, got %q", caption)
	}
}

func TestIntakeSelfDispatchTag(t *testing.T) {
	env := newIntakeEnv(t)
	ctx := context.Background()
	const userID, chatID = int64(100), int64(100)

	_ = env.fsm.Start(ctx, userID, chatID, "alice", "Alice A")
	_ = env.fsm.HandlePhoto(ctx, userID, chatID, domain.PhotoRef{FileID: "f", UniqueID: "u"}, "")
	_ = env.fsm.HandleDone(ctx, userID, chatID)
	_ = env.fsm.HandleText(ctx, userID, chatID, "caption")

	if err := env.fsm.HandleCallback(ctx, previewCallback(userID, chatID, cbIntakeSendSelf)); err != nil {
		t.Fatalf("Failed to dispatch: %v", err)
	}

	// the entry is forwarded either way; only the attribution differs
	forwarded := env.gw.albumsTo(testConfig().ContestChatID)
	if len(forwarded) != 1 {
		t.Fatalf("Expected 1 forwarded album, got %d", len(forwarded))
	}
	caption := forwarded[0].Media[0].(*models.InputMediaPhoto).Caption
	if !strings.Contains(caption, "сам") {
		t.Errorf("Expected self attribution tag, got %q", caption)
	}
}

func TestIntakeAutoCloseAtCeiling(t *testing.T) {
	env := newIntakeEnv(t)
	ctx := context.Background()
	const userID, chatID = int64(100), int64(100)

	_ = env.fsm.Start(ctx, userID, chatID, "alice", "Alice A")

	for i := 0; i < domain.MaxPhotosPerSubmission; i++ {
		photo := domain.PhotoRef{FileID: fmt.Sprintf("file_%d", i), UniqueID: fmt.Sprintf("unique_%d", i)}
		if err := env.fsm.HandlePhoto(ctx, userID, chatID, photo, "album_1"); err != nil {
			t.Fatalf("Failed to handle photo %d: %v", i, err)
		}
	}

	draft := env.drafts.Get(userID)
	if draft.State != domain.StateWaitingCaption {
		t.Errorf("Expected auto-close at the ceiling, got %s", draft.State)
	}

	// an 11th photo is ignored in the caption state
	if err := env.fsm.HandlePhoto(ctx, userID, chatID, domain.PhotoRef{FileID: "x", UniqueID: "x"}, ""); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(draft.Photos) != domain.MaxPhotosPerSubmission {
		t.Errorf("Expected %d photos, got %d", domain.MaxPhotosPerSubmission, len(draft.Photos))
	}
}

func TestIntakeDuplicatePhotoNotice(t *testing.T) {
	env := newIntakeEnv(t)
	ctx := context.Background()
	const userID, chatID = int64(100), int64(100)

	_ = env.fsm.Start(ctx, userID, chatID, "alice", "Alice A")
	_ = env.fsm.HandlePhoto(ctx, userID, chatID, domain.PhotoRef{FileID: "f1", UniqueID: "u1"}, "")

	if err := env.fsm.HandlePhoto(ctx, userID, chatID, domain.PhotoRef{FileID: "f2", UniqueID: "u1"}, ""); err != nil {
		t.Fatalf("Duplicate photo must not be an error: %v", err)
	}

	draft := env.drafts.Get(userID)
	if len(draft.Photos) != 1 {
		t.Errorf("Expected duplicate to leave 1 photo, got %d", len(draft.Photos))
	}

	last := env.gw.lastMessageTo(chatID)
	if last == nil || !strings.Contains(last.Text, "уже добавлено") {
		t.Errorf("Expected duplicate notice, got %+v", last)
	}
}

func TestIntakeDoneWithoutPhotos(t *testing.T) {
	env := newIntakeEnv(t)
	ctx := context.Background()
	const userID, chatID = int64(100), int64(100)

	_ = env.fsm.Start(ctx, userID, chatID, "alice", "Alice A")

	if err := env.fsm.HandleDone(ctx, userID, chatID); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	draft := env.drafts.Get(userID)
	if draft == nil || draft.State != domain.StateCollectingPhotos {
		t.Error("Expected draft to stay in collecting_photos")
	}
}

func TestIntakeSkipCaption(t *testing.T) {
	env := newIntakeEnv(t)
	ctx := context.Background()
	const userID, chatID = int64(100), int64(100)

	_ = env.fsm.Start(ctx, userID, chatID, "alice", "Alice A")

	// /skip during photo collection changes nothing
	if err := env.fsm.HandleSkip(ctx, userID, chatID); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if env.drafts.Get(userID).State != domain.StateCollectingPhotos {
		t.Fatal("Expected draft to stay in collecting_photos")
	}

	_ = env.fsm.HandlePhoto(ctx, userID, chatID, domain.PhotoRef{FileID: "f1", UniqueID: "u1"}, "")
	_ = env.fsm.HandleDone(ctx, userID, chatID)

	// /skip at the caption step goes straight to preview without a caption
	if err := env.fsm.HandleSkip(ctx, userID, chatID); err != nil {
		t.Fatalf("Failed to skip caption: %v", err)
	}
	draft := env.drafts.Get(userID)
	if draft == nil || draft.State != domain.StatePreview {
		t.Fatalf("Expected preview state, got %+v", draft)
	}
	if draft.Caption != "" {
		t.Errorf("Expected empty caption, got %q", draft.Caption)
	}

	if err := env.fsm.HandleCallback(ctx, previewCallback(userID, chatID, cbIntakeSendBot)); err != nil {
		t.Fatalf("Failed to dispatch: %v", err)
	}

	// the forwarded album carries only the attribution tag
	albums := env.gw.albumsTo(testConfig().ContestChatID)
	if len(albums) != 1 {
		t.Fatalf("Expected 1 forwarded album, got %d", len(albums))
	}
	caption := albums[0].Media[0].(*models.InputMediaPhoto).Caption
	if strings.HasPrefix(caption, "\n") {
		t.Errorf("Expected no leading blank lines in %q", caption)
	}
	if !strings.Contains(caption, "@alice") {
		t.Errorf("Expected attribution tag in %q", caption)
	}
}

func TestIntakeStartPreconditions(t *testing.T) {
	t.Run("second draft rejected", func(t *testing.T) {
		env := newIntakeEnv(t)
		ctx := context.Background()

		_ = env.fsm.Start(ctx, 100, 100, "alice", "Alice A")
		before := env.drafts.Get(100)

		if err := env.fsm.Start(ctx, 100, 100, "alice", "Alice A"); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if env.drafts.Get(100) != before {
			t.Error("Second start must not replace the draft")
		}
	})

	t.Run("approved user rejected", func(t *testing.T) {
		env := newIntakeEnv(t)
		ctx := context.Background()

		sub := &domain.Submission{
			UserID: 100, Photos: []domain.PhotoRef{{FileID: "f", UniqueID: "u"}},
			Status: domain.StatusPending, CreatedAt: time.Now(),
		}
		if err := env.subs.Create(ctx, sub); err != nil {
			t.Fatalf("Failed to create submission: %v", err)
		}
		if _, err := env.subs.Approve(ctx, sub.ID); err != nil {
			t.Fatalf("Failed to approve: %v", err)
		}

		if err := env.fsm.Start(ctx, 100, 100, "alice", "Alice A"); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if env.drafts.Exists(100) {
			t.Error("Approved user must not open a draft")
		}
	})

	t.Run("non-member rejected", func(t *testing.T) {
		env := newIntakeEnv(t)
		env.gw.memberType = models.ChatMemberTypeLeft
		ctx := context.Background()

		if err := env.fsm.Start(ctx, 100, 100, "alice", "Alice A"); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if env.drafts.Exists(100) {
			t.Error("Non-member must not open a draft")
		}
	})

	t.Run("judge signup revoked on entry", func(t *testing.T) {
		env := newIntakeEnv(t)
		ctx := context.Background()

		if _, err := env.judges.Add(ctx, &domain.Judge{UserID: 100, Username: "alice"}); err != nil {
			t.Fatalf("Failed to add judge: %v", err)
		}

		if err := env.fsm.Start(ctx, 100, 100, "alice", "Alice A"); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !env.drafts.Exists(100) {
			t.Fatal("Expected draft to open")
		}

		isJudge, err := env.judges.IsJudge(ctx, 100)
		if err != nil {
			t.Fatalf("Failed to check judge: %v", err)
		}
		if isJudge {
			t.Error("Expected judge record revoked on contest entry")
		}
	})
}

func TestIntakeCancelCallback(t *testing.T) {
	env := newIntakeEnv(t)
	ctx := context.Background()

	_ = env.fsm.Start(ctx, 100, 100, "alice", "Alice A")
	_ = env.fsm.HandlePhoto(ctx, 100, 100, domain.PhotoRef{FileID: "f", UniqueID: "u"}, "")

	if err := env.fsm.HandleCallback(ctx, previewCallback(100, 100, cbIntakeCancel)); err != nil {
		t.Fatalf("Failed to cancel: %v", err)
	}
	if env.drafts.Exists(100) {
		t.Error("Expected draft removed on cancel")
	}

	// no submission was persisted
	pending, err := env.subs.ListByStatus(ctx, domain.StatusPending)
	if err != nil {
		t.Fatalf("Failed to list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("Cancel must not persist anything, got %d rows", len(pending))
	}
}

func TestIntakeCallbackAfterExpiry(t *testing.T) {
	env := newIntakeEnv(t)
	ctx := context.Background()

	// no draft at all: the callback is answered with a session notice
	if err := env.fsm.HandleCallback(ctx, previewCallback(100, 100, cbIntakeSendBot)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	last := env.gw.lastMessageTo(100)
	if last == nil || !strings.Contains(last.Text, "истекла") {
		t.Errorf("Expected session expiry notice, got %+v", last)
	}
}

func TestIntakeProgressRedraw(t *testing.T) {
	env := newIntakeEnv(t)
	ctx := context.Background()

	_ = env.fsm.Start(ctx, 100, 100, "alice", "Alice A")
	_ = env.fsm.HandlePhoto(ctx, 100, 100, domain.PhotoRef{FileID: "f1", UniqueID: "u1"}, "")

	firstProgress := env.drafts.Get(100).ProgressMessageID
	if firstProgress == 0 {
		t.Fatal("Expected a progress message after the first photo")
	}

	_ = env.fsm.HandlePhoto(ctx, 100, 100, domain.PhotoRef{FileID: "f2", UniqueID: "u2"}, "")

	if len(env.gw.deleted) != 1 || env.gw.deleted[0] != firstProgress {
		t.Errorf("Expected previous progress message deleted, got %v", env.gw.deleted)
	}
	if env.drafts.Get(100).ProgressMessageID == firstProgress {
		t.Error("Expected a fresh progress message ID")
	}
}
