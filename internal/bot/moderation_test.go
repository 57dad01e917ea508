package bot

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/ad/telegram-contest-bot/internal/domain"
	"github.com/ad/telegram-contest-bot/internal/session"
	"github.com/ad/telegram-contest-bot/internal/storage"

	"github.com/go-telegram/bot/models"
	_ "modernc.org/sqlite"
)

type handlerEnv struct {
	gw        *mockGateway
	handler   *Handler
	subs      *storage.SubmissionRepository
	judges    *storage.JudgeRepository
	blocklist *storage.BlocklistRepository
	contests  *storage.ContestRepository
	locker    *session.Locker
}

func newHandlerEnv(t *testing.T) *handlerEnv {
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
	cfg := testConfig()
	log := testLogger()
	localizer := testLocalizer(t)

	contests := storage.NewContestRepository(queue)
	subs := storage.NewSubmissionRepository(queue)
	judges := storage.NewJudgeRepository(queue)
	blocklist := storage.NewBlocklistRepository(queue)

	drafts := session.NewDraftStore()
	contents := session.NewContentStore()
	locker := session.NewLocker()

	intake := NewIntakeFSM(gw, drafts, subs, judges, cfg, log, localizer)
	content := NewContentFSM(gw, contents, cfg, log, localizer)

	handler := NewHandler(gw, cfg, log, localizer,
		contests, subs, judges, blocklist,
		drafts, contents, locker, intake, content)

	return &handlerEnv{
		gw:        gw,
		handler:   handler,
		subs:      subs,
		judges:    judges,
		blocklist: blocklist,
		contests:  contests,
		locker:    locker,
	}
}

func createPendingSubmission(t *testing.T, env *handlerEnv, userID int64) *domain.Submission {
	t.Helper()
	sub := &domain.Submission{
		UserID:    userID,
		Username:  "alice",
		FullName:  "Alice A",
		Photos:    []domain.PhotoRef{{FileID: "f", UniqueID: "u"}},
		Caption:   "entry",
		Status:    domain.StatusPending,
		CreatedAt: time.Now().Truncate(time.Second),
	}
	if err := env.subs.Create(context.Background(), sub); err != nil {
		t.Fatalf("Failed to create submission: %v", err)
	}
	return sub
}

const adminChat = int64(1)

func TestApproveNotifiesSubmitter(t *testing.T) {
	env := newHandlerEnv(t)
	ctx := context.Background()
	sub := createPendingSubmission(t, env, 100)

	if err := env.handler.approveSubmission(ctx, adminChat, sub.ID); err != nil {
		t.Fatalf("Failed to approve: %v", err)
	}

	loaded, _ := env.subs.Get(ctx, sub.ID)
	if loaded.Status != domain.StatusApproved || loaded.Number == nil || *loaded.Number != 1 {
		t.Errorf("Unexpected submission state: %+v", loaded)
	}

	userMsg := env.gw.lastMessageTo(100)
	if userMsg == nil || !strings.Contains(userMsg.Text, "1") || !strings.Contains(userMsg.Text, "одобрена") {
		t.Errorf("Expected approval notification with number, got %+v", userMsg)
	}

	adminMsg := env.gw.lastMessageTo(adminChat)
	if adminMsg == nil || !strings.Contains(adminMsg.Text, "1") {
		t.Errorf("Expected admin confirmation with number, got %+v", adminMsg)
	}
}

func TestApproveNotificationFailureWarnsAdmin(t *testing.T) {
	env := newHandlerEnv(t)
	ctx := context.Background()
	sub := createPendingSubmission(t, env, 100)

	// user blocked the bot: every send fails, then sends recover
	env.gw.sendErr = context.DeadlineExceeded
	err := env.handler.approveSubmission(ctx, adminChat, sub.ID)
	env.gw.sendErr = nil

	// the approval itself must have been committed despite the failures
	if err == nil {
		t.Log("send failures are reported via the returned error")
	}
	loaded, _ := env.subs.Get(ctx, sub.ID)
	if loaded.Status != domain.StatusApproved {
		t.Errorf("Approval must survive notification failure, got %s", loaded.Status)
	}
}

func TestRejectFlowStoresReasonAndNotifies(t *testing.T) {
	env := newHandlerEnv(t)
	ctx := context.Background()
	sub := createPendingSubmission(t, env, 100)

	if err := env.handler.startReject(ctx, adminChat, adminChat, sub.ID); err != nil {
		t.Fatalf("Failed to start reject: %v", err)
	}

	// the admin's next message is the reason
	handled, err := env.handler.handleAdminText(ctx, adminChat, adminChat, "blurry photos")
	if err != nil {
		t.Fatalf("Failed to finish reject: %v", err)
	}
	if !handled {
		t.Fatal("Expected the reason message to be consumed")
	}

	loaded, _ := env.subs.Get(ctx, sub.ID)
	if loaded.Status != domain.StatusRejected || loaded.Reason != "blurry photos" {
		t.Errorf("Unexpected submission state: %+v", loaded)
	}

	userMsg := env.gw.lastMessageTo(100)
	if userMsg == nil || !strings.Contains(userMsg.Text, "blurry photos") {
		t.Errorf("Expected rejection notification with reason, got %+v", userMsg)
	}

	// a later message is no longer consumed
	handled, err = env.handler.handleAdminText(ctx, adminChat, adminChat, "hello")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if handled {
		t.Error("Expected no pending dialog after the reason was taken")
	}
}

func TestRollbackReturnsToPending(t *testing.T) {
	env := newHandlerEnv(t)
	ctx := context.Background()
	sub := createPendingSubmission(t, env, 100)

	if _, err := env.subs.Approve(ctx, sub.ID); err != nil {
		t.Fatalf("Failed to approve: %v", err)
	}

	if err := env.handler.rollbackSubmission(ctx, adminChat, sub.ID); err != nil {
		t.Fatalf("Failed to rollback: %v", err)
	}

	loaded, _ := env.subs.Get(ctx, sub.ID)
	if loaded.Status != domain.StatusPending || loaded.Number != nil {
		t.Errorf("Unexpected submission state after rollback: %+v", loaded)
	}
}

func TestContestUpdateDialog(t *testing.T) {
	env := newHandlerEnv(t)
	ctx := context.Background()

	if err := env.handler.startContestUpdate(ctx, adminChat, adminChat); err != nil {
		t.Fatalf("Failed to start contest update: %v", err)
	}

	steps := []string{"Summer island", "Show your beach"}
	for _, text := range steps {
		handled, err := env.handler.handleAdminText(ctx, adminChat, adminChat, text)
		if err != nil {
			t.Fatalf("Failed on step %q: %v", text, err)
		}
		if !handled {
			t.Fatalf("Expected step %q to be consumed", text)
		}
	}

	// a malformed date re-prompts without losing the dialog
	handled, err := env.handler.handleAdminText(ctx, adminChat, adminChat, "2026-09-01")
	if err != nil {
		t.Fatalf("Failed on bad date: %v", err)
	}
	if !handled {
		t.Fatal("Expected bad date to be consumed")
	}
	last := env.gw.lastMessageTo(adminChat)
	if last == nil || !strings.Contains(last.Text, "формат даты") {
		t.Errorf("Expected date format complaint, got %+v", last)
	}

	for _, text := range []string{"01.09.2026", "28.08.2026"} {
		handled, err := env.handler.handleAdminText(ctx, adminChat, adminChat, text)
		if err != nil {
			t.Fatalf("Failed on date %q: %v", text, err)
		}
		if !handled {
			t.Fatalf("Expected date %q to be consumed", text)
		}
	}

	contest, err := env.contests.Current(ctx)
	if err != nil {
		t.Fatalf("Failed to load contest: %v", err)
	}
	if contest == nil || contest.Theme != "Summer island" || contest.AdmissionDeadline != "28.08.2026" {
		t.Errorf("Unexpected stored contest: %+v", contest)
	}

	// dialog is closed
	handled, err = env.handler.handleAdminText(ctx, adminChat, adminChat, "hello")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if handled {
		t.Error("Expected the dialog to be finished")
	}
}

func TestJudgeSignupFlow(t *testing.T) {
	env := newHandlerEnv(t)
	ctx := context.Background()
	from := &models.User{ID: 100, Username: "alice", FirstName: "Alice"}

	if err := env.handler.registerJudge(ctx, from, 100); err != nil {
		t.Fatalf("Failed to register judge: %v", err)
	}
	isJudge, _ := env.judges.IsJudge(ctx, 100)
	if !isJudge {
		t.Fatal("Expected user registered as judge")
	}

	// repeat signup is answered, not duplicated
	if err := env.handler.registerJudge(ctx, from, 100); err != nil {
		t.Fatalf("Failed on repeat signup: %v", err)
	}
	count, _ := env.judges.Count(ctx)
	if count != 1 {
		t.Errorf("Expected 1 judge, got %d", count)
	}

	// a user with an approved entry cannot judge
	sub := createPendingSubmission(t, env, 200)
	if _, err := env.subs.Approve(ctx, sub.ID); err != nil {
		t.Fatalf("Failed to approve: %v", err)
	}
	approvedUser := &models.User{ID: 200, Username: "bob"}
	if err := env.handler.registerJudge(ctx, approvedUser, 200); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	isJudge, _ = env.judges.IsJudge(ctx, 200)
	if isJudge {
		t.Error("Approved participant must not become a judge")
	}
}

func TestCallbackBusyUser(t *testing.T) {
	env := newHandlerEnv(t)
	ctx := context.Background()

	// another event for the user is mid-flight
	env.locker.TryAcquire(100)

	update := &models.Update{
		CallbackQuery: &models.CallbackQuery{
			ID:   "cb_busy",
			From: models.User{ID: 100},
			Message: models.MaybeInaccessibleMessage{
				Message: &models.Message{ID: 5, Chat: models.Chat{ID: 100}},
			},
			Data: cbUserContest,
		},
	}
	env.handler.HandleCallback(ctx, nil, update)

	if len(env.gw.answers) != 1 {
		t.Fatalf("Expected a single callback answer, got %d", len(env.gw.answers))
	}
	if !strings.Contains(env.gw.answers[0].Text, "Подождите") {
		t.Errorf("Expected busy toast, got %q", env.gw.answers[0].Text)
	}
	if len(env.gw.edits) != 0 {
		t.Error("Busy event must not reach the menu handler")
	}
}

func TestBlockedUserIsIgnored(t *testing.T) {
	env := newHandlerEnv(t)
	ctx := context.Background()

	if err := env.blocklist.Block(ctx, &domain.BlockedUser{UserID: 100}); err != nil {
		t.Fatalf("Failed to block user: %v", err)
	}

	update := &models.Update{
		Message: &models.Message{
			ID:   5,
			From: &models.User{ID: 100, Username: "spammer"},
			Chat: models.Chat{ID: 100, Type: "private"},
			Text: "/start",
		},
	}
	env.handler.HandleStart(ctx, nil, update)

	if len(env.gw.messages) != 0 {
		t.Errorf("Blocked user must get no reply, got %d messages", len(env.gw.messages))
	}
}

func TestStatsSummary(t *testing.T) {
	env := newHandlerEnv(t)
	ctx := context.Background()

	first := createPendingSubmission(t, env, 100)
	createPendingSubmission(t, env, 200)
	if _, err := env.subs.Approve(ctx, first.ID); err != nil {
		t.Fatalf("Failed to approve: %v", err)
	}
	if _, err := env.judges.Add(ctx, &domain.Judge{UserID: 300}); err != nil {
		t.Fatalf("Failed to add judge: %v", err)
	}

	if err := env.handler.showStats(ctx, adminChat); err != nil {
		t.Fatalf("Failed to show stats: %v", err)
	}

	last := env.gw.lastMessageTo(adminChat)
	if last == nil {
		t.Fatal("Expected a stats message")
	}
	for _, want := range []string{"модерации: 1", "Одобрено: 1", "Отклонено: 0", "Судей: 1", "Выдано номеров: 1"} {
		if !strings.Contains(last.Text, want) {
			t.Errorf("Stats missing %q in %q", want, last.Text)
		}
	}
}

func TestGuidesMenuNavigation(t *testing.T) {
	env := newHandlerEnv(t)
	ctx := context.Background()

	callback := func(data string) *models.Update {
		return &models.Update{
			CallbackQuery: &models.CallbackQuery{
				ID:   "cb_guides",
				From: models.User{ID: 100},
				Message: models.MaybeInaccessibleMessage{
					Message: &models.Message{ID: 5, Chat: models.Chat{ID: 100}},
				},
				Data: data,
			},
		}
	}

	env.handler.HandleCallback(ctx, nil, callback(cbUserGuides))
	if len(env.gw.edits) != 1 {
		t.Fatalf("Expected the guides menu edit, got %d edits", len(env.gw.edits))
	}

	markup, ok := env.gw.edits[0].ReplyMarkup.(*models.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("Expected an inline keyboard, got %T", env.gw.edits[0].ReplyMarkup)
	}
	if markup.InlineKeyboard[0][0].URL != guidesSiteURL {
		t.Errorf("Expected the guide site link, got %q", markup.InlineKeyboard[0][0].URL)
	}
	if markup.InlineKeyboard[1][0].CallbackData != cbFindGuide {
		t.Errorf("Expected the keyword search entry, got %q", markup.InlineKeyboard[1][0].CallbackData)
	}

	env.handler.HandleCallback(ctx, nil, callback(cbFindGuide))
	if len(env.gw.edits) != 2 {
		t.Fatalf("Expected the search hint edit, got %d edits", len(env.gw.edits))
	}
	if !strings.Contains(env.gw.edits[1].Text, "ключевые слова") {
		t.Errorf("Expected the keyword search hint, got %q", env.gw.edits[1].Text)
	}
}

func TestContestInfoAdmissionClosed(t *testing.T) {
	env := newHandlerEnv(t)
	ctx := context.Background()

	past := time.Now().AddDate(0, 0, -7).Format(domain.DateLayout)
	if err := env.contests.Replace(ctx, &domain.Contest{
		Theme:             "Old contest",
		Description:       "Already over",
		ContestDate:       past,
		AdmissionDeadline: past,
	}); err != nil {
		t.Fatalf("Failed to create contest: %v", err)
	}

	if err := env.handler.showContestInfo(ctx, 100, 5); err != nil {
		t.Fatalf("Failed to show contest info: %v", err)
	}

	if len(env.gw.edits) != 1 {
		t.Fatalf("Expected one edited message, got %d", len(env.gw.edits))
	}
	text := env.gw.edits[0].Text
	if !strings.Contains(text, "Old contest") || !strings.Contains(text, "завершён") {
		t.Errorf("Expected contest info with closed-admission note, got %q", text)
	}
}
