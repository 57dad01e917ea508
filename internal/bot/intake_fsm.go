package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ad/telegram-contest-bot/internal/config"
	"github.com/ad/telegram-contest-bot/internal/domain"
	"github.com/ad/telegram-contest-bot/internal/locale"
	"github.com/ad/telegram-contest-bot/internal/session"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// submissionStore is the slice of the submission repository the intake
// flow needs
type submissionStore interface {
	Create(ctx context.Context, sub *domain.Submission) error
	HasApproved(ctx context.Context, userID int64) (bool, error)
}

// judgeStore is the slice of the judge repository the intake flow needs
type judgeStore interface {
	Remove(ctx context.Context, userID int64) (bool, error)
}

// IntakeFSM drives the submission intake state machine:
// collecting_photos → waiting_caption → preview → dispatched, with cancel
// reachable from any non-terminal state and expiry handled by the sweeper.
type IntakeFSM struct {
	gw        Gateway
	drafts    *session.DraftStore
	subs      submissionStore
	judges    judgeStore
	cfg       *config.Config
	logger    domain.Logger
	localizer locale.Localizer
	now       func() time.Time
}

// NewIntakeFSM creates the intake state machine
func NewIntakeFSM(
	gw Gateway,
	drafts *session.DraftStore,
	subs submissionStore,
	judges judgeStore,
	cfg *config.Config,
	logger domain.Logger,
	localizer locale.Localizer,
) *IntakeFSM {
	return &IntakeFSM{
		gw:        gw,
		drafts:    drafts,
		subs:      subs,
		judges:    judges,
		cfg:       cfg,
		logger:    logger,
		localizer: localizer,
		now:       time.Now,
	}
}

// SetClock replaces the wall clock, for tests
func (f *IntakeFSM) SetClock(now func() time.Time) {
	f.now = now
}

// HasSession reports whether the user has an intake draft in progress
func (f *IntakeFSM) HasSession(userID int64) bool {
	return f.drafts.Exists(userID)
}

// Start opens a new submission draft after checking the preconditions:
// no draft already in progress, no approved entry, and current membership
// in the community chat. A judge record for the same user is revoked on
// entry, since the roles are mutually exclusive.
func (f *IntakeFSM) Start(ctx context.Context, userID, chatID int64, username, fullName string) error {
	if f.drafts.Exists(userID) {
		return f.send(ctx, chatID, f.localizer.MustLocalize(locale.IntakeAlreadyDraft), nil)
	}

	approved, err := f.subs.HasApproved(ctx, userID)
	if err != nil {
		return fmt.Errorf("check approved entry: %w", err)
	}
	if approved {
		return f.send(ctx, chatID, f.localizer.MustLocalize(locale.IntakeAlreadyApproved), nil)
	}

	if !f.isChatMember(ctx, userID) {
		return f.send(ctx, chatID, f.localizer.MustLocalize(locale.IntakeNotMember), nil)
	}

	revoked, err := f.judges.Remove(ctx, userID)
	if err != nil {
		return fmt.Errorf("revoke judge record: %w", err)
	}
	if revoked {
		f.logger.Info("judge record revoked on contest entry", "user_id", userID)
		_ = f.send(ctx, chatID, f.localizer.MustLocalize(locale.IntakeJudgeRevoked), nil)
	}

	draft := domain.NewSubmissionDraft(userID, username, fullName, f.now())
	f.drafts.Put(userID, draft)

	f.logger.Info("submission draft started", "user_id", userID)
	return f.send(ctx, chatID, f.localizer.MustLocalize(locale.IntakeStart), nil)
}

// HandlePhoto accepts one photo event for the user's draft. Duplicates
// (by stable unique reference) and the 11th photo are rejected with a
// notice and leave the draft unchanged.
func (f *IntakeFSM) HandlePhoto(ctx context.Context, userID, chatID int64, photo domain.PhotoRef, mediaGroupID string) error {
	draft := f.drafts.Get(userID)
	if draft == nil {
		return nil
	}
	draft.Touch(f.now())

	if draft.State != domain.StateCollectingPhotos {
		return nil
	}

	if mediaGroupID != "" {
		draft.MediaGroupID = mediaGroupID
	}

	switch err := draft.AddPhoto(photo); err {
	case nil:
	case domain.ErrDuplicatePhoto:
		return f.send(ctx, chatID, f.localizer.MustLocalize(locale.IntakeDuplicatePhoto), nil)
	case domain.ErrTooManyPhotos:
		return f.send(ctx, chatID, f.localizer.MustLocalize(locale.IntakeTooManyPhotos), nil)
	default:
		return err
	}

	f.redrawProgress(ctx, chatID, draft)

	if draft.Full() {
		if err := draft.ClosePhotos(); err != nil {
			return err
		}
		return f.send(ctx, chatID, f.localizer.MustLocalize(locale.IntakeAskCaption), nil)
	}
	return nil
}

// HandleDone processes the explicit close of the photo collection step
func (f *IntakeFSM) HandleDone(ctx context.Context, userID, chatID int64) error {
	draft := f.drafts.Get(userID)
	if draft == nil {
		return f.send(ctx, chatID, f.localizer.MustLocalize(locale.SessionExpired), nil)
	}
	draft.Touch(f.now())

	switch err := draft.ClosePhotos(); err {
	case nil:
		return f.send(ctx, chatID, f.localizer.MustLocalize(locale.IntakeAskCaption), nil)
	case domain.ErrNoPhotos:
		return f.send(ctx, chatID, f.localizer.MustLocalize(locale.IntakeNoPhotos), nil)
	case domain.ErrInvalidStatus:
		// /done outside collecting_photos changes nothing
		return nil
	default:
		return err
	}
}

// HandleSkip passes over the caption step, sending the entry to preview
// without a caption. Outside the caption step /skip changes nothing.
func (f *IntakeFSM) HandleSkip(ctx context.Context, userID, chatID int64) error {
	draft := f.drafts.Get(userID)
	if draft == nil {
		return nil
	}
	draft.Touch(f.now())

	if draft.State != domain.StateWaitingCaption {
		return nil
	}
	if err := draft.SetCaption(""); err != nil {
		return err
	}
	return f.sendPreview(ctx, chatID, draft)
}

// HandleText accepts the caption when the draft is waiting for one
func (f *IntakeFSM) HandleText(ctx context.Context, userID, chatID int64, text string) error {
	draft := f.drafts.Get(userID)
	if draft == nil {
		return nil
	}
	draft.Touch(f.now())

	switch draft.State {
	case domain.StateWaitingCaption:
		if err := draft.SetCaption(text); err != nil {
			return err
		}
		return f.sendPreview(ctx, chatID, draft)
	case domain.StateCollectingPhotos:
		// stray text during photo collection: repeat the instructions
		return f.send(ctx, chatID, f.localizer.MustLocalize(locale.IntakeStart), nil)
	default:
		return nil
	}
}

// HandleCallback processes the preview choice buttons
func (f *IntakeFSM) HandleCallback(ctx context.Context, callback *models.CallbackQuery) error {
	userID := callback.From.ID
	if callback.Message.Message == nil {
		return nil
	}
	chatID := callback.Message.Message.Chat.ID

	_, _ = f.gw.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callback.ID,
	})

	draft := f.drafts.Get(userID)
	if draft == nil {
		return f.send(ctx, chatID, f.localizer.MustLocalize(locale.SessionExpired), nil)
	}
	draft.Touch(f.now())

	switch callback.Data {
	case cbIntakeCancel:
		f.drafts.Remove(userID)
		f.logger.Info("submission draft cancelled", "user_id", userID)
		return f.send(ctx, chatID, f.localizer.MustLocalize(locale.IntakeCancelled), nil)
	case cbIntakeSendBot, cbIntakeSendSelf:
		if draft.State != domain.StatePreview {
			return nil
		}
		draft.SendByBot = callback.Data == cbIntakeSendBot
		return f.dispatch(ctx, chatID, draft)
	default:
		return nil
	}
}

// Cancel discards the user's draft from any state
func (f *IntakeFSM) Cancel(ctx context.Context, userID, chatID int64) error {
	if !f.drafts.Exists(userID) {
		return nil
	}
	f.drafts.Remove(userID)
	f.logger.Info("submission draft cancelled", "user_id", userID)
	return f.send(ctx, chatID, f.localizer.MustLocalize(locale.IntakeCancelled), nil)
}

// NotifyExpired tells a user their draft was force-cancelled by the sweep
func (f *IntakeFSM) NotifyExpired(ctx context.Context, userID int64) {
	if err := f.send(ctx, userID, f.localizer.MustLocalize(locale.IntakeExpired), nil); err != nil {
		f.logger.Warn("failed to notify user of draft expiry", "user_id", userID, "error", err)
	}
}

// dispatch persists the draft as a pending submission and forwards the
// album to the contest channel. The "I will post it myself" choice only
// changes the attribution tag; the bot forwards either way.
func (f *IntakeFSM) dispatch(ctx context.Context, chatID int64, draft *domain.SubmissionDraft) error {
	sub := draft.ToSubmission(f.now())
	if err := sub.Validate(); err != nil {
		return err
	}
	if err := f.subs.Create(ctx, sub); err != nil {
		return fmt.Errorf("persist submission: %w", err)
	}

	tagKey := locale.ForwardTagSelf
	if draft.SendByBot {
		tagKey = locale.ForwardTagByBot
	}
	tag := f.localizer.MustLocalizeWithTemplate(tagKey, displayName(draft.Username, draft.FullName, draft.UserID))
	forwardCaption := tag
	if draft.Caption != "" {
		forwardCaption = draft.Caption + "\n\n" + tag
	}

	if _, err := f.gw.SendMediaGroup(ctx, &bot.SendMediaGroupParams{
		ChatID: f.cfg.ContestChatID,
		Media:  mediaGroup(draft.Photos, forwardCaption),
	}); err != nil {
		// the submission is already committed; a forwarding failure is a
		// soft warning, not a rollback
		f.logger.Error("failed to forward entry to contest channel",
			"user_id", draft.UserID,
			"submission_id", sub.ID,
			"error", err)
	}

	f.drafts.Remove(draft.UserID)
	f.logger.Info("submission dispatched",
		"user_id", draft.UserID,
		"submission_id", sub.ID,
		"photos", len(sub.Photos),
		"send_by_bot", draft.SendByBot)

	return f.send(ctx, chatID, f.localizer.MustLocalize(locale.IntakeDispatched), nil)
}

// sendPreview renders the collected photos and caption back to the
// submitter with the three dispatch choices
func (f *IntakeFSM) sendPreview(ctx context.Context, chatID int64, draft *domain.SubmissionDraft) error {
	if _, err := f.gw.SendMediaGroup(ctx, &bot.SendMediaGroupParams{
		ChatID: chatID,
		Media:  mediaGroup(draft.Photos, draft.Caption),
	}); err != nil {
		f.logger.Warn("failed to send preview album", "user_id", draft.UserID, "error", err)
	}

	return f.send(ctx, chatID,
		f.localizer.MustLocalizeWithTemplate(locale.IntakePreview, draft.Caption),
		f.previewKeyboard())
}

// redrawProgress deletes the previous progress message and posts a fresh
// one so the chat shows a single running count instead of a trail
func (f *IntakeFSM) redrawProgress(ctx context.Context, chatID int64, draft *domain.SubmissionDraft) {
	if draft.ProgressMessageID != 0 {
		deleteMessages(ctx, f.gw, f.logger, chatID, draft.ProgressMessageID)
		draft.ProgressMessageID = 0
	}

	msg, err := f.gw.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   f.localizer.MustLocalizeWithTemplate(locale.IntakeProgress, strconv.Itoa(len(draft.Photos))),
	})
	if err != nil {
		f.logger.Warn("failed to send progress message", "chat_id", chatID, "error", err)
		return
	}
	draft.ProgressMessageID = msg.ID
}

func (f *IntakeFSM) previewKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: f.localizer.MustLocalize(locale.ButtonSendForMe), CallbackData: cbIntakeSendBot}},
			{{Text: f.localizer.MustLocalize(locale.ButtonSendMyself), CallbackData: cbIntakeSendSelf}},
			{{Text: f.localizer.MustLocalize(locale.ButtonCancel), CallbackData: cbIntakeCancel}},
		},
	}
}

func (f *IntakeFSM) isChatMember(ctx context.Context, userID int64) bool {
	member, err := f.gw.GetChatMember(ctx, &bot.GetChatMemberParams{
		ChatID: f.cfg.MainChatID,
		UserID: userID,
	})
	if err != nil {
		f.logger.Warn("chat membership check failed", "user_id", userID, "error", err)
		return false
	}
	switch member.Type {
	case models.ChatMemberTypeLeft, models.ChatMemberTypeBanned:
		return false
	default:
		return true
	}
}

func (f *IntakeFSM) send(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) error {
	_, err := f.gw.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: markup,
	})
	if err != nil {
		f.logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
	return err
}

// mediaGroup builds an album from photo refs, attaching the caption to
// the first item as Telegram requires
func mediaGroup(photos []domain.PhotoRef, caption string) []models.InputMedia {
	media := make([]models.InputMedia, 0, len(photos))
	for i, p := range photos {
		item := &models.InputMediaPhoto{Media: p.FileID}
		if i == 0 {
			item.Caption = caption
		}
		media = append(media, item)
	}
	return media
}

// displayName formats a user reference for forwarded and admin-facing text
func displayName(username, fullName string, userID int64) string {
	if username != "" {
		if username[0] == '@' {
			return username
		}
		return "@" + username
	}
	if fullName != "" {
		return fullName
	}
	return fmt.Sprintf("User id%d", userID)
}
