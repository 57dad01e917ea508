package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ad/telegram-contest-bot/internal/domain"
	"github.com/ad/telegram-contest-bot/internal/locale"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// contestEditState tracks an admin walking through the contest update
// dialog: theme, description, contest date, admission deadline
type contestEditState struct {
	step    int
	contest domain.Contest
}

func (h *Handler) routeModerationCallback(ctx context.Context, cb *models.CallbackQuery, userID, chatID int64) error {
	data := cb.Data
	messageID := cb.Message.Message.ID
	h.answer(ctx, cb, "")

	switch {
	case strings.HasPrefix(data, cbModViewPrefix):
		id, err := parseCallbackID(data, cbModViewPrefix)
		if err != nil {
			return err
		}
		return h.viewSubmission(ctx, chatID, id)
	case strings.HasPrefix(data, cbModApprovePrefix):
		id, err := parseCallbackID(data, cbModApprovePrefix)
		if err != nil {
			return err
		}
		return h.approveSubmission(ctx, chatID, id)
	case strings.HasPrefix(data, cbModRejectPrefix):
		id, err := parseCallbackID(data, cbModRejectPrefix)
		if err != nil {
			return err
		}
		return h.startReject(ctx, userID, chatID, id)
	case strings.HasPrefix(data, cbModRollbackPrefix):
		id, err := parseCallbackID(data, cbModRollbackPrefix)
		if err != nil {
			return err
		}
		return h.rollbackSubmission(ctx, chatID, id)
	}

	switch data {
	case cbAdmContest:
		return h.edit(ctx, chatID, messageID, h.localizer.MustLocalize(locale.ChooseAction), h.adminContestMenu())
	case cbAdmPending:
		return h.showPending(ctx, chatID, messageID)
	case cbAdmStats:
		return h.showStats(ctx, chatID)
	case cbAdmJudges:
		return h.showJudges(ctx, chatID)
	case cbAdmUpdate:
		return h.startContestUpdate(ctx, userID, chatID)
	case cbAdmReset:
		return h.resetContest(ctx, chatID)
	case cbAdmBlocklist:
		return h.showBlocklist(ctx, chatID)
	default:
		h.logger.Debug("unhandled admin callback", "user_id", userID, "data", data)
		return nil
	}
}

// showPending lists pending submissions, one button per entry
func (h *Handler) showPending(ctx context.Context, chatID int64, messageID int) error {
	pending, err := h.subs.ListByStatus(ctx, domain.StatusPending)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return h.edit(ctx, chatID, messageID, h.localizer.MustLocalize(locale.ModNoPending), h.adminContestMenu())
	}

	rows := make([][]models.InlineKeyboardButton, 0, len(pending)+1)
	for _, sub := range pending {
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         fmt.Sprintf("#%d %s", sub.ID, displayName(sub.Username, sub.FullName, sub.UserID)),
			CallbackData: fmt.Sprintf("%s%d", cbModViewPrefix, sub.ID),
		}})
	}
	rows = append(rows, h.backRow(cbAdmContest))

	return h.edit(ctx, chatID, messageID, h.localizer.MustLocalize(locale.ModPendingListTitle),
		&models.InlineKeyboardMarkup{InlineKeyboard: rows})
}

// viewSubmission sends the entry's album followed by the moderation
// actions
func (h *Handler) viewSubmission(ctx context.Context, chatID, submissionID int64) error {
	sub, err := h.subs.Get(ctx, submissionID)
	if err != nil {
		return err
	}
	if sub == nil {
		return h.send(ctx, chatID, h.localizer.MustLocalize(locale.ModNoPending), nil)
	}

	header := h.localizer.MustLocalizeWithTemplate(locale.ModSubmissionHeader,
		strconv.FormatInt(sub.ID, 10),
		displayName(sub.Username, sub.FullName, sub.UserID),
		sub.CreatedAt.Format("02.01.2006 15:04"))

	if _, err := h.gw.SendMediaGroup(ctx, &bot.SendMediaGroupParams{
		ChatID: chatID,
		Media:  mediaGroup(sub.Photos, sub.Caption),
	}); err != nil {
		h.logger.Warn("failed to send submission album", "submission_id", sub.ID, "error", err)
	}

	return h.send(ctx, chatID, header, h.moderationMenu(sub.ID))
}

// approveSubmission stamps the next participant number on the entry and
// notifies the submitter. A notification failure does not undo the
// approval; the admin gets a warning instead.
func (h *Handler) approveSubmission(ctx context.Context, chatID, submissionID int64) error {
	sub, err := h.subs.Get(ctx, submissionID)
	if err != nil {
		return err
	}
	if sub == nil {
		return domain.ErrSubmissionMissing
	}

	number, err := h.subs.Approve(ctx, submissionID)
	if err != nil {
		return err
	}
	h.logger.Info("submission approved", "submission_id", submissionID, "number", number)

	if err := h.send(ctx, sub.UserID,
		h.localizer.MustLocalizeWithTemplate(locale.NotifyApproved, strconv.Itoa(number)), nil); err != nil {
		_ = h.send(ctx, chatID, h.localizer.MustLocalize(locale.ModNotifyFailed), nil)
	}

	return h.send(ctx, chatID,
		h.localizer.MustLocalizeWithTemplate(locale.ModApproved, strconv.Itoa(number)), nil)
}

// startReject records which submission the admin's next message is the
// rejection reason for
func (h *Handler) startReject(ctx context.Context, adminID, chatID, submissionID int64) error {
	h.mu.Lock()
	h.rejectPending[adminID] = submissionID
	h.mu.Unlock()
	return h.send(ctx, chatID, h.localizer.MustLocalize(locale.ModAskRejectReason), nil)
}

// rollbackSubmission returns an approved entry to pending. The burned
// participant number is not restored; the counter only moves forward.
func (h *Handler) rollbackSubmission(ctx context.Context, chatID, submissionID int64) error {
	if err := h.subs.Rollback(ctx, submissionID); err != nil {
		return err
	}
	h.logger.Info("submission rolled back", "submission_id", submissionID)
	return h.send(ctx, chatID, h.localizer.MustLocalize(locale.ModRolledBack), nil)
}

func (h *Handler) showStats(ctx context.Context, chatID int64) error {
	pending, err := h.subs.CountByStatus(ctx, domain.StatusPending)
	if err != nil {
		return err
	}
	approved, err := h.subs.CountByStatus(ctx, domain.StatusApproved)
	if err != nil {
		return err
	}
	rejected, err := h.subs.CountByStatus(ctx, domain.StatusRejected)
	if err != nil {
		return err
	}
	judges, err := h.judges.Count(ctx)
	if err != nil {
		return err
	}
	counter, err := h.subs.CurrentNumber(ctx)
	if err != nil {
		return err
	}

	return h.send(ctx, chatID, h.localizer.MustLocalizeWithTemplate(locale.ModStats,
		strconv.Itoa(pending), strconv.Itoa(approved), strconv.Itoa(rejected),
		strconv.Itoa(judges), strconv.Itoa(counter)), nil)
}

func (h *Handler) showJudges(ctx context.Context, chatID int64) error {
	judges, err := h.judges.List(ctx)
	if err != nil {
		return err
	}
	if len(judges) == 0 {
		return h.send(ctx, chatID, h.localizer.MustLocalize(locale.JudgeListEmpty), nil)
	}

	var b strings.Builder
	b.WriteString(h.localizer.MustLocalize(locale.JudgeListTitle))
	for i, j := range judges {
		fmt.Fprintf(&b, "\n%d. %s", i+1, displayName(j.Username, j.FullName, j.UserID))
	}
	return h.send(ctx, chatID, b.String(), nil)
}

// resetContest wipes submissions, approvals, judges and the participant
// counter. The contest metadata and the blocklist survive a reset.
func (h *Handler) resetContest(ctx context.Context, chatID int64) error {
	if err := h.subs.Reset(ctx); err != nil {
		return err
	}
	h.logger.Info("contest data reset")
	return h.send(ctx, chatID, h.localizer.MustLocalize(locale.ModResetDone), nil)
}

// startContestUpdate begins the contest metadata dialog
func (h *Handler) startContestUpdate(ctx context.Context, adminID, chatID int64) error {
	h.mu.Lock()
	h.contestEdit[adminID] = &contestEditState{}
	h.mu.Unlock()
	return h.send(ctx, chatID, h.localizer.MustLocalize(locale.AdminAskTheme), nil)
}

// handleAdminText consumes admin dialog input: a pending rejection reason
// or a contest update step. Returns true when the message was consumed.
func (h *Handler) handleAdminText(ctx context.Context, adminID, chatID int64, text string) (bool, error) {
	h.mu.Lock()
	submissionID, rejecting := h.rejectPending[adminID]
	if rejecting {
		delete(h.rejectPending, adminID)
	}
	edit := h.contestEdit[adminID]
	h.mu.Unlock()

	if rejecting {
		return true, h.finishReject(ctx, chatID, submissionID, text)
	}
	if edit != nil {
		return true, h.contestEditStep(ctx, adminID, chatID, edit, text)
	}
	return false, nil
}

func (h *Handler) finishReject(ctx context.Context, chatID, submissionID int64, reason string) error {
	sub, err := h.subs.Get(ctx, submissionID)
	if err != nil {
		return err
	}
	if sub == nil {
		return domain.ErrSubmissionMissing
	}

	if err := h.subs.Reject(ctx, submissionID, reason); err != nil {
		return err
	}
	h.logger.Info("submission rejected", "submission_id", submissionID)

	if err := h.send(ctx, sub.UserID,
		h.localizer.MustLocalizeWithTemplate(locale.NotifyRejected, reason), nil); err != nil {
		_ = h.send(ctx, chatID, h.localizer.MustLocalize(locale.ModNotifyFailed), nil)
	}

	return h.send(ctx, chatID, h.localizer.MustLocalize(locale.ModRejected), nil)
}

func (h *Handler) contestEditStep(ctx context.Context, adminID, chatID int64, edit *contestEditState, text string) error {
	switch edit.step {
	case 0:
		edit.contest.Theme = text
		edit.step = 1
		return h.send(ctx, chatID, h.localizer.MustLocalize(locale.AdminAskDescription), nil)
	case 1:
		edit.contest.Description = text
		edit.step = 2
		return h.send(ctx, chatID, h.localizer.MustLocalize(locale.AdminAskDate), nil)
	case 2:
		if _, err := time.Parse(domain.DateLayout, text); err != nil {
			return h.send(ctx, chatID, h.localizer.MustLocalize(locale.AdminBadDate), nil)
		}
		edit.contest.ContestDate = text
		edit.step = 3
		return h.send(ctx, chatID, h.localizer.MustLocalize(locale.AdminAskDeadline), nil)
	case 3:
		if _, err := time.Parse(domain.DateLayout, text); err != nil {
			return h.send(ctx, chatID, h.localizer.MustLocalize(locale.AdminBadDate), nil)
		}
		edit.contest.AdmissionDeadline = text

		if err := edit.contest.Validate(); err != nil {
			return err
		}
		if err := h.contests.Replace(ctx, &edit.contest); err != nil {
			return err
		}

		h.mu.Lock()
		delete(h.contestEdit, adminID)
		h.mu.Unlock()

		h.logger.Info("contest updated", "theme", edit.contest.Theme)
		return h.send(ctx, chatID, h.localizer.MustLocalize(locale.AdminContestUpdated), nil)
	default:
		return nil
	}
}

func (h *Handler) showBlocklist(ctx context.Context, chatID int64) error {
	blocked, err := h.blocklist.List(ctx)
	if err != nil {
		return err
	}
	if len(blocked) == 0 {
		return h.send(ctx, chatID, h.localizer.MustLocalize(locale.BlockListEmpty), nil)
	}

	var b strings.Builder
	b.WriteString(h.localizer.MustLocalize(locale.BlockListTitle))
	for _, u := range blocked {
		fmt.Fprintf(&b, "\n%s (%s)", displayName(u.Username, u.FullName, u.UserID), u.BlockedAt.Format("02.01.2006"))
	}
	return h.send(ctx, chatID, b.String(), nil)
}

// HandleBlock handles the /block <user_id> [username] [full name] command
func (h *Handler) HandleBlock(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || !h.cfg.IsAdmin(msg.From.ID) {
		return
	}

	fields := strings.Fields(msg.Text)
	if len(fields) < 2 {
		_ = h.send(ctx, msg.Chat.ID, "/block <user_id> [username] [name]", nil)
		return
	}
	userID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		_ = h.send(ctx, msg.Chat.ID, "/block <user_id> [username] [name]", nil)
		return
	}

	user := &domain.BlockedUser{UserID: userID}
	if len(fields) > 2 {
		user.Username = strings.TrimPrefix(fields[2], "@")
	}
	if len(fields) > 3 {
		user.FullName = strings.Join(fields[3:], " ")
	}

	h.recovering(ctx, msg.Chat.ID, func() error {
		if err := h.blocklist.Block(ctx, user); err != nil {
			return err
		}
		h.logger.Info("user blocked", "user_id", userID)
		return h.send(ctx, msg.Chat.ID, h.localizer.MustLocalize(locale.BlockDone), nil)
	})
}

// HandleUnblock handles the /unblock <user_id> command
func (h *Handler) HandleUnblock(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || !h.cfg.IsAdmin(msg.From.ID) {
		return
	}

	fields := strings.Fields(msg.Text)
	if len(fields) != 2 {
		_ = h.send(ctx, msg.Chat.ID, "/unblock <user_id>", nil)
		return
	}
	userID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		_ = h.send(ctx, msg.Chat.ID, "/unblock <user_id>", nil)
		return
	}

	h.recovering(ctx, msg.Chat.ID, func() error {
		removed, err := h.blocklist.Unblock(ctx, userID)
		if err != nil {
			return err
		}
		if removed {
			h.logger.Info("user unblocked", "user_id", userID)
		}
		return h.send(ctx, msg.Chat.ID, h.localizer.MustLocalize(locale.UnblockDone), nil)
	})
}

func parseCallbackID(data, prefix string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed callback data %q: %w", data, err)
	}
	return id, nil
}
