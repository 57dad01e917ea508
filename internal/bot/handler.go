package bot

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ad/telegram-contest-bot/internal/config"
	"github.com/ad/telegram-contest-bot/internal/domain"
	"github.com/ad/telegram-contest-bot/internal/locale"
	"github.com/ad/telegram-contest-bot/internal/session"
	"github.com/ad/telegram-contest-bot/internal/storage"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// mediaGroupDebounce is how long after the first photo of an album the
// group admission is held open before the user's slot is released
const mediaGroupDebounce = 2 * time.Second

// Handler routes Telegram updates to the intake and content state
// machines and to the moderation workflow. Every handler body runs under
// the per-user lock; a second concurrent event for the same user gets a
// busy notice and is dropped.
type Handler struct {
	gw        Gateway
	cfg       *config.Config
	logger    domain.Logger
	localizer locale.Localizer

	contests  *storage.ContestRepository
	subs      *storage.SubmissionRepository
	judges    *storage.JudgeRepository
	blocklist *storage.BlocklistRepository

	drafts   *session.DraftStore
	contents *session.ContentStore
	locker   *session.Locker

	intake  *IntakeFSM
	content *ContentFSM

	mu            sync.Mutex
	rejectPending map[int64]int64 // admin user ID -> submission awaiting a reason
	contestEdit   map[int64]*contestEditState
}

// NewHandler creates a Handler with all dependencies
func NewHandler(
	gw Gateway,
	cfg *config.Config,
	logger domain.Logger,
	localizer locale.Localizer,
	contests *storage.ContestRepository,
	subs *storage.SubmissionRepository,
	judges *storage.JudgeRepository,
	blocklist *storage.BlocklistRepository,
	drafts *session.DraftStore,
	contents *session.ContentStore,
	locker *session.Locker,
	intake *IntakeFSM,
	content *ContentFSM,
) *Handler {
	return &Handler{
		gw:            gw,
		cfg:           cfg,
		logger:        logger,
		localizer:     localizer,
		contests:      contests,
		subs:          subs,
		judges:        judges,
		blocklist:     blocklist,
		drafts:        drafts,
		contents:      contents,
		locker:        locker,
		intake:        intake,
		content:       content,
		rejectPending: make(map[int64]int64),
		contestEdit:   make(map[int64]*contestEditState),
	}
}

// HandleStart handles the /start command
func (h *Handler) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || !h.admit(ctx, msg) {
		return
	}
	defer h.locker.Release(msg.From.ID)

	if h.cfg.IsAdmin(msg.From.ID) {
		_ = h.send(ctx, msg.Chat.ID, h.localizer.MustLocalize(locale.WelcomeAdmin), h.adminMainMenu())
		return
	}
	_ = h.send(ctx, msg.Chat.ID, h.localizer.MustLocalize(locale.WelcomeUser), h.userMainMenu())
}

// HandleCancel handles the /cancel command, discarding any in-flight
// draft or content session
func (h *Handler) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || !h.admit(ctx, msg) {
		return
	}
	userID := msg.From.ID
	defer h.locker.Release(userID)

	h.recovering(ctx, msg.Chat.ID, func() error {
		if h.intake.HasSession(userID) {
			return h.intake.Cancel(ctx, userID, msg.Chat.ID)
		}
		if h.content.HasSession(userID) {
			return h.content.Cancel(ctx, userID, msg.Chat.ID)
		}
		return nil
	})
}

// HandleDone handles the /done command closing a photo collection step
func (h *Handler) HandleDone(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || !h.admit(ctx, msg) {
		return
	}
	userID := msg.From.ID
	defer h.locker.Release(userID)

	h.recovering(ctx, msg.Chat.ID, func() error {
		if h.intake.HasSession(userID) {
			return h.intake.HandleDone(ctx, userID, msg.Chat.ID)
		}
		if h.content.HasSession(userID) {
			return h.content.HandleDone(ctx, userID, msg.Chat.ID)
		}
		return nil
	})
}

// HandleSkip handles the /skip command, passing over an optional step of
// the flow in progress
func (h *Handler) HandleSkip(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || !h.admit(ctx, msg) {
		return
	}
	userID := msg.From.ID
	defer h.locker.Release(userID)

	h.recovering(ctx, msg.Chat.ID, func() error {
		if h.intake.HasSession(userID) {
			return h.intake.HandleSkip(ctx, userID, msg.Chat.ID)
		}
		return nil
	})
}

// HandleMessage handles plain text messages for conversation flows
func (h *Handler) HandleMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || strings.HasPrefix(msg.Text, "/") {
		return
	}
	if !h.admit(ctx, msg) {
		return
	}
	userID := msg.From.ID
	defer h.locker.Release(userID)

	h.recovering(ctx, msg.Chat.ID, func() error {
		if h.cfg.IsAdmin(userID) {
			handled, err := h.handleAdminText(ctx, userID, msg.Chat.ID, msg.Text)
			if err != nil || handled {
				return err
			}
		}
		if h.intake.HasSession(userID) {
			return h.intake.HandleText(ctx, userID, msg.Chat.ID, msg.Text)
		}
		if h.content.HasSession(userID) {
			return h.content.HandleText(ctx, userID, msg.Chat.ID, msg.Text)
		}
		return nil
	})
}

// HandleDefault handles updates no registered handler matched; photo
// messages (including media-group bursts) arrive here
func (h *Handler) HandleDefault(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || len(msg.Photo) == 0 {
		return
	}
	if msg.Chat.Type != "private" || h.isBlocked(ctx, msg.From.ID) {
		return
	}
	userID := msg.From.ID

	// highest resolution variant carries the file reference; the unique ID
	// is shared by all variants of the same source image
	best := msg.Photo[len(msg.Photo)-1]
	photo := domain.PhotoRef{FileID: best.FileID, UniqueID: best.FileUniqueID}

	if msg.MediaGroupID != "" {
		admitted, first := h.locker.TryAcquireMediaGroup(userID, msg.MediaGroupID)
		if !admitted {
			h.busyNotice(ctx, msg.Chat.ID)
			return
		}
		if first {
			groupID := msg.MediaGroupID
			time.AfterFunc(mediaGroupDebounce, func() {
				h.locker.ReleaseMediaGroup(userID, groupID)
			})
		}
		h.handlePhoto(ctx, userID, msg.Chat.ID, photo, msg.MediaGroupID)
		return
	}

	if !h.locker.TryAcquire(userID) {
		h.busyNotice(ctx, msg.Chat.ID)
		return
	}
	defer h.locker.Release(userID)
	h.handlePhoto(ctx, userID, msg.Chat.ID, photo, "")
}

func (h *Handler) handlePhoto(ctx context.Context, userID, chatID int64, photo domain.PhotoRef, mediaGroupID string) {
	h.recovering(ctx, chatID, func() error {
		if h.intake.HasSession(userID) {
			return h.intake.HandlePhoto(ctx, userID, chatID, photo, mediaGroupID)
		}
		if h.content.HasSession(userID) {
			return h.content.HandlePhoto(ctx, userID, chatID, photo)
		}
		return nil
	})
}

// HandleCallback routes button presses
func (h *Handler) HandleCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil || cb.Message.Message == nil {
		return
	}
	userID := cb.From.ID
	chatID := cb.Message.Message.Chat.ID

	if h.isBlocked(ctx, userID) {
		_, _ = h.gw.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cb.ID})
		return
	}

	if !h.locker.TryAcquire(userID) {
		_, _ = h.gw.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: cb.ID,
			Text:            h.localizer.MustLocalize(locale.BusyTryAgain),
		})
		return
	}
	defer h.locker.Release(userID)

	h.recovering(ctx, chatID, func() error {
		return h.routeCallback(ctx, cb, userID, chatID)
	})
}

func (h *Handler) routeCallback(ctx context.Context, cb *models.CallbackQuery, userID, chatID int64) error {
	data := cb.Data

	if strings.HasPrefix(data, "intake:") {
		return h.intake.HandleCallback(ctx, cb)
	}

	if strings.HasPrefix(data, "mod:") || strings.HasPrefix(data, "adm_") {
		if !h.requireAdmin(ctx, cb) {
			return nil
		}
		return h.routeModerationCallback(ctx, cb, userID, chatID)
	}

	h.answer(ctx, cb, "")

	switch data {
	case cbMainMenu:
		if h.cfg.IsAdmin(userID) {
			return h.edit(ctx, chatID, cb.Message.Message.ID, h.localizer.MustLocalize(locale.ChooseAction), h.adminMainMenu())
		}
		return h.edit(ctx, chatID, cb.Message.Message.ID, h.localizer.MustLocalize(locale.ChooseAction), h.userMainMenu())
	case cbUserGuides:
		return h.edit(ctx, chatID, cb.Message.Message.ID, h.localizer.MustLocalize(locale.ChooseAction), h.guidesMenu())
	case cbFindGuide:
		return h.edit(ctx, chatID, cb.Message.Message.ID, h.localizer.MustLocalize(locale.GuideSearchHint), h.guidesMenu())
	case cbUserContest:
		return h.edit(ctx, chatID, cb.Message.Message.ID, h.localizer.MustLocalize(locale.ChooseAction), h.contestMenu())
	case cbContestInfo:
		return h.showContestInfo(ctx, chatID, cb.Message.Message.ID)
	case cbContestSend:
		return h.intake.Start(ctx, userID, chatID, cb.From.Username, userFullName(&cb.From))
	case cbContestJudge:
		return h.registerJudge(ctx, &cb.From, chatID)
	case cbUserToAdmin:
		return h.content.Start(ctx, userID, chatID, domain.KindAdminMessage)
	case cbUserToNews:
		return h.edit(ctx, chatID, cb.Message.Message.ID, h.localizer.MustLocalize(locale.ChooseAction), h.newsKindMenu())
	case cbNewsItem:
		return h.content.Start(ctx, userID, chatID, domain.KindNews)
	case cbNewsCode:
		return h.content.Start(ctx, userID, chatID, domain.KindCode)
	case cbNewsPocket:
		return h.content.Start(ctx, userID, chatID, domain.KindPocket)
	case cbNewsDesign:
		return h.content.Start(ctx, userID, chatID, domain.KindDesign)
	default:
		h.logger.Debug("unhandled callback", "user_id", userID, "data", data)
		return nil
	}
}

// showContestInfo renders the current contest, or the "no contest" note
func (h *Handler) showContestInfo(ctx context.Context, chatID int64, messageID int) error {
	contest, err := h.contests.Current(ctx)
	if err != nil {
		return err
	}
	if contest == nil {
		return h.edit(ctx, chatID, messageID, h.localizer.MustLocalize(locale.ContestNone), h.contestInfoMenu())
	}

	text := h.localizer.MustLocalizeWithTemplate(locale.ContestInfo,
		contest.Theme, contest.Description, contest.ContestDate, contest.AdmissionDeadline)

	if deadline, err := time.Parse(domain.DateLayout, contest.AdmissionDeadline); err == nil {
		if deadline.Before(time.Now().Truncate(24 * time.Hour)) {
			text += "\n\n" + h.localizer.MustLocalize(locale.ContestAdmissionClosed)
		}
	}

	return h.edit(ctx, chatID, messageID, text, h.contestInfoMenu())
}

// registerJudge signs a user up for judging. A user with an approved
// entry cannot judge; a second signup is rejected as already registered.
func (h *Handler) registerJudge(ctx context.Context, from *models.User, chatID int64) error {
	already, err := h.judges.IsJudge(ctx, from.ID)
	if err != nil {
		return err
	}
	if already {
		return h.send(ctx, chatID, h.localizer.MustLocalize(locale.JudgeAlreadySignedUp), nil)
	}

	approved, err := h.subs.HasApproved(ctx, from.ID)
	if err != nil {
		return err
	}
	if approved {
		return h.send(ctx, chatID, h.localizer.MustLocalize(locale.JudgeHasApproved), nil)
	}

	added, err := h.judges.Add(ctx, &domain.Judge{
		UserID:   from.ID,
		Username: from.Username,
		FullName: userFullName(from),
	})
	if err != nil {
		return err
	}
	if !added {
		return h.send(ctx, chatID, h.localizer.MustLocalize(locale.JudgeAlreadySignedUp), nil)
	}
	h.logger.Info("judge registered", "user_id", from.ID)
	return h.send(ctx, chatID, h.localizer.MustLocalize(locale.JudgeRegistered), nil)
}

// admit applies the common message preconditions: private chat, not
// blocked, and the per-user lock. The caller must Release on true.
func (h *Handler) admit(ctx context.Context, msg *models.Message) bool {
	if msg.Chat.Type != "private" {
		return false
	}
	if h.isBlocked(ctx, msg.From.ID) {
		return false
	}
	if !h.locker.TryAcquire(msg.From.ID) {
		h.busyNotice(ctx, msg.Chat.ID)
		return false
	}
	return true
}

func (h *Handler) isBlocked(ctx context.Context, userID int64) bool {
	blocked, err := h.blocklist.IsBlocked(ctx, userID)
	if err != nil {
		h.logger.Error("blocklist check failed", "user_id", userID, "error", err)
		return false
	}
	return blocked
}

// requireAdmin checks callback authorization and answers with a refusal
// when the user is not an admin
func (h *Handler) requireAdmin(ctx context.Context, cb *models.CallbackQuery) bool {
	if h.cfg.IsAdmin(cb.From.ID) {
		return true
	}
	h.logger.Warn("unauthorized admin callback", "user_id", cb.From.ID, "data", cb.Data)
	_, _ = h.gw.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: cb.ID,
		Text:            h.localizer.MustLocalize(locale.ErrorUnauthorized),
		ShowAlert:       true,
	})
	return false
}

// recovering runs a handler body and converts any returned error into a
// logged generic failure message, so one failing handler cannot take
// down the poll loop
func (h *Handler) recovering(ctx context.Context, chatID int64, fn func() error) {
	if err := fn(); err != nil {
		h.logger.Error("handler failed", "chat_id", chatID, "error", err)
		_ = h.send(ctx, chatID, h.localizer.MustLocalize(locale.ErrorGeneric), nil)
	}
}

func (h *Handler) busyNotice(ctx context.Context, chatID int64) {
	_ = h.send(ctx, chatID, h.localizer.MustLocalize(locale.BusyTryAgain), nil)
}

func (h *Handler) send(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) error {
	_, err := h.gw.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: markup,
	})
	if err != nil {
		h.logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
	return err
}

func (h *Handler) edit(ctx context.Context, chatID int64, messageID int, text string, markup models.ReplyMarkup) error {
	_, err := h.gw.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ReplyMarkup: markup,
	})
	if err != nil {
		// editing can fail when the content did not change; fall back to a
		// fresh message
		h.logger.Debug("edit failed, sending new message", "chat_id", chatID, "error", err)
		return h.send(ctx, chatID, text, markup)
	}
	return nil
}

func (h *Handler) answer(ctx context.Context, cb *models.CallbackQuery, text string) {
	_, _ = h.gw.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: cb.ID,
		Text:            text,
	})
}

func userFullName(u *models.User) string {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	return name
}
