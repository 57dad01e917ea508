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
)

// ContentFSM drives the per-kind content collection flows: a plain
// message to the admins, a news item, a code share, a PocketCamp
// friend-code pair and a custom-design code. Each kind walks its own
// sequence of steps and dispatches to the staff chat for its kind once
// the draft variant is complete.
type ContentFSM struct {
	gw        Gateway
	contents  *session.ContentStore
	cfg       *config.Config
	logger    domain.Logger
	localizer locale.Localizer
	now       func() time.Time
}

// NewContentFSM creates the content collection state machine
func NewContentFSM(
	gw Gateway,
	contents *session.ContentStore,
	cfg *config.Config,
	logger domain.Logger,
	localizer locale.Localizer,
) *ContentFSM {
	return &ContentFSM{
		gw:        gw,
		contents:  contents,
		cfg:       cfg,
		logger:    logger,
		localizer: localizer,
		now:       time.Now,
	}
}

// SetClock replaces the wall clock, for tests
func (f *ContentFSM) SetClock(now func() time.Time) {
	f.now = now
}

// HasSession reports whether the user has a content flow in progress
func (f *ContentFSM) HasSession(userID int64) bool {
	return f.contents.Get(userID) != nil
}

// Start opens a content session of the given kind and sends the first
// prompt
func (f *ContentFSM) Start(ctx context.Context, userID, chatID int64, kind domain.ContentKind) error {
	var draft domain.ContentDraft
	var prompt string

	switch kind {
	case domain.KindAdminMessage:
		draft = &domain.AdminMessageDraft{}
		prompt = locale.ContentAskMessage
	case domain.KindNews:
		draft = &domain.NewsDraft{}
		prompt = locale.NewsAskScreens
	case domain.KindCode:
		draft = &domain.CodeDraft{}
		prompt = locale.CodeAskValue
	case domain.KindPocket:
		draft = &domain.PocketDraft{}
		prompt = locale.PocketAskScreens
	case domain.KindDesign:
		draft = &domain.DesignDraft{}
		prompt = locale.DesignAskCode
	default:
		return fmt.Errorf("unknown content kind %q", kind)
	}

	f.contents.Put(userID, domain.NewContentSession(userID, draft, f.now()))
	f.logger.Info("content session started", "user_id", userID, "kind", kind)
	return f.send(ctx, chatID, f.localizer.MustLocalize(prompt))
}

// HandlePhoto accepts one photo event for the user's content session
func (f *ContentFSM) HandlePhoto(ctx context.Context, userID, chatID int64, photo domain.PhotoRef) error {
	sess := f.contents.Get(userID)
	if sess == nil {
		return nil
	}
	sess.Touch(f.now())

	switch draft := sess.Draft.(type) {
	case *domain.AdminMessageDraft:
		draft.Photos = append(draft.Photos, photo)
	case *domain.NewsDraft:
		if sess.Step != 0 {
			return nil
		}
		draft.Photos = append(draft.Photos, photo)
	case *domain.CodeDraft:
		if sess.Step != 1 {
			return nil
		}
		draft.Photos = append(draft.Photos, photo)
	case *domain.PocketDraft:
		if len(draft.Screens) >= 2 {
			return nil
		}
		draft.Screens = append(draft.Screens, photo)
		if len(draft.Screens) == 2 {
			return f.dispatch(ctx, userID, chatID, sess)
		}
	case *domain.DesignDraft:
		switch sess.Step {
		case 1:
			draft.DesignScreen = &photo
			sess.Step = 2
			return f.send(ctx, chatID, f.localizer.MustLocalize(locale.DesignAskGameScreens))
		case 2:
			draft.GameScreens = append(draft.GameScreens, photo)
		default:
			return nil
		}
	}
	return nil
}

// HandleText accepts one text message for the user's content session
func (f *ContentFSM) HandleText(ctx context.Context, userID, chatID int64, text string) error {
	sess := f.contents.Get(userID)
	if sess == nil {
		return nil
	}
	sess.Touch(f.now())

	switch draft := sess.Draft.(type) {
	case *domain.AdminMessageDraft:
		draft.Text = text
		return f.dispatch(ctx, userID, chatID, sess)
	case *domain.NewsDraft:
		switch sess.Step {
		case 1:
			draft.Description = text
			sess.Step = 2
			return f.send(ctx, chatID, f.localizer.MustLocalize(locale.NewsAskSpeaker))
		case 2:
			draft.Speaker = text
			sess.Step = 3
			return f.send(ctx, chatID, f.localizer.MustLocalize(locale.NewsAskIsland))
		case 3:
			draft.Island = text
			return f.dispatch(ctx, userID, chatID, sess)
		}
	case *domain.CodeDraft:
		switch sess.Step {
		case 0:
			draft.Value = text
			sess.Step = 1
			return f.send(ctx, chatID, f.localizer.MustLocalize(locale.NewsAskScreens))
		case 2:
			draft.Speaker = text
			sess.Step = 3
			return f.send(ctx, chatID, f.localizer.MustLocalize(locale.NewsAskIsland))
		case 3:
			draft.Island = text
			return f.dispatch(ctx, userID, chatID, sess)
		}
	case *domain.DesignDraft:
		if sess.Step == 0 {
			draft.Code = text
			sess.Step = 1
			return f.send(ctx, chatID, f.localizer.MustLocalize(locale.DesignAskDesignScreen))
		}
	}
	return nil
}

// HandleDone closes an open-ended photo collection step
func (f *ContentFSM) HandleDone(ctx context.Context, userID, chatID int64) error {
	sess := f.contents.Get(userID)
	if sess == nil {
		return nil
	}
	sess.Touch(f.now())

	switch draft := sess.Draft.(type) {
	case *domain.NewsDraft:
		if sess.Step == 0 {
			if len(draft.Photos) == 0 {
				return f.send(ctx, chatID, f.localizer.MustLocalize(locale.IntakeNoPhotos))
			}
			sess.Step = 1
			return f.send(ctx, chatID, f.localizer.MustLocalize(locale.NewsAskDescription))
		}
	case *domain.CodeDraft:
		if sess.Step == 1 {
			if len(draft.Photos) == 0 {
				return f.send(ctx, chatID, f.localizer.MustLocalize(locale.IntakeNoPhotos))
			}
			sess.Step = 2
			return f.send(ctx, chatID, f.localizer.MustLocalize(locale.NewsAskSpeaker))
		}
	case *domain.DesignDraft:
		if sess.Step == 2 {
			if len(draft.GameScreens) == 0 {
				return f.send(ctx, chatID, f.localizer.MustLocalize(locale.IntakeNoPhotos))
			}
			return f.dispatch(ctx, userID, chatID, sess)
		}
	case *domain.AdminMessageDraft:
		if draft.Complete() {
			return f.dispatch(ctx, userID, chatID, sess)
		}
		return f.send(ctx, chatID, f.localizer.MustLocalize(locale.ContentIncomplete))
	}
	return nil
}

// Cancel discards the user's content session
func (f *ContentFSM) Cancel(ctx context.Context, userID, chatID int64) error {
	if f.contents.Get(userID) == nil {
		return nil
	}
	f.contents.Remove(userID)
	f.logger.Info("content session cancelled", "user_id", userID)
	return f.send(ctx, chatID, f.localizer.MustLocalize(locale.IntakeCancelled))
}

// dispatch forwards the completed draft to the staff chat for its kind
func (f *ContentFSM) dispatch(ctx context.Context, userID, chatID int64, sess *domain.ContentSession) error {
	if !sess.Draft.Complete() {
		return f.send(ctx, chatID, f.localizer.MustLocalize(locale.ContentIncomplete))
	}

	target := f.cfg.NewsChatID
	if sess.Draft.Kind() == domain.KindAdminMessage {
		target = f.cfg.AdminChatID
	}

	text, photos := f.renderContent(sess.Draft, userID)

	if len(photos) > 0 {
		if _, err := f.gw.SendMediaGroup(ctx, &bot.SendMediaGroupParams{
			ChatID: target,
			Media:  mediaGroup(photos, text),
		}); err != nil {
			f.logger.Error("failed to forward content", "user_id", userID, "kind", sess.Draft.Kind(), "error", err)
			return f.send(ctx, chatID, f.localizer.MustLocalize(locale.ErrorGeneric))
		}
	} else {
		if err := f.send(ctx, target, text); err != nil {
			return f.send(ctx, chatID, f.localizer.MustLocalize(locale.ErrorGeneric))
		}
	}

	f.contents.Remove(userID)
	f.logger.Info("content dispatched", "user_id", userID, "kind", sess.Draft.Kind())
	return f.send(ctx, chatID, f.localizer.MustLocalize(locale.ContentSent))
}

// renderContent flattens a draft variant into forwarded text plus photos
func (f *ContentFSM) renderContent(draft domain.ContentDraft, userID int64) (string, []domain.PhotoRef) {
	from := strconv.FormatInt(userID, 10)

	switch d := draft.(type) {
	case *domain.AdminMessageDraft:
		return f.localizer.MustLocalizeWithTemplate(locale.ForwardAdminMessage, from, d.Text), d.Photos
	case *domain.NewsDraft:
		return f.localizer.MustLocalizeWithTemplate(locale.ForwardNews, d.Description, d.Speaker, d.Island, from), d.Photos
	case *domain.CodeDraft:
		return f.localizer.MustLocalizeWithTemplate(locale.ForwardCode, d.Value, d.Speaker, d.Island, from), d.Photos
	case *domain.PocketDraft:
		return f.localizer.MustLocalizeWithTemplate(locale.ForwardPocket, from), d.Screens
	case *domain.DesignDraft:
		photos := append([]domain.PhotoRef{*d.DesignScreen}, d.GameScreens...)
		return f.localizer.MustLocalizeWithTemplate(locale.ForwardDesign, d.Code, from), photos
	default:
		return "", nil
	}
}

func (f *ContentFSM) send(ctx context.Context, chatID int64, text string) error {
	_, err := f.gw.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		f.logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
	return err
}
