package bot

import (
	"fmt"

	"github.com/ad/telegram-contest-bot/internal/locale"

	"github.com/go-telegram/bot/models"
)

// Callback data constants
const (
	cbMainMenu = "main_menu"

	// user menus
	cbUserGuides   = "user_guides"
	cbFindGuide    = "find_guide"
	cbUserContest  = "user_contest"
	cbContestInfo  = "user_contest_info"
	cbContestSend  = "user_contest_send"
	cbContestJudge = "user_contest_judge"
	cbUserToAdmin  = "user_to_admin"
	cbUserToNews   = "user_to_news"

	// content kinds under the news menu
	cbNewsItem   = "news_item"
	cbNewsCode   = "news_code"
	cbNewsPocket = "news_pocket"
	cbNewsDesign = "news_design"

	// admin menus
	cbAdmContest   = "adm_contest"
	cbAdmPending   = "adm_pending"
	cbAdmStats     = "adm_stats"
	cbAdmUpdate    = "adm_contest_info"
	cbAdmReset     = "adm_contest_reset"
	cbAdmJudges    = "adm_judges"
	cbAdmBlocklist = "adm_blocklist"

	// intake preview choices
	cbIntakeSendBot  = "intake:send_bot"
	cbIntakeSendSelf = "intake:send_self"
	cbIntakeCancel   = "intake:cancel"

	// moderation actions, parameterized with a submission ID
	cbModViewPrefix     = "mod:view:"
	cbModApprovePrefix  = "mod:approve:"
	cbModRejectPrefix   = "mod:reject:"
	cbModRollbackPrefix = "mod:rollback:"
)

// contestRulesURL is the public page with contest rules and past contests
const contestRulesURL = "https://teletype.in/@isabelle_acnh/acnhchatru-contests"

// guidesSiteURL is the community guide site
const guidesSiteURL = "https://acnh.tilda.ws"

func (h *Handler) userMainMenu() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: h.localizer.MustLocalize(locale.MenuGuides), CallbackData: cbUserGuides}},
			{{Text: h.localizer.MustLocalize(locale.MenuContest), CallbackData: cbUserContest}},
			{{Text: h.localizer.MustLocalize(locale.MenuMessageAdmins), CallbackData: cbUserToAdmin}},
			{{Text: h.localizer.MustLocalize(locale.MenuNews), CallbackData: cbUserToNews}},
		},
	}
}

func (h *Handler) adminMainMenu() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: h.localizer.MustLocalize(locale.AdminMenuContest), CallbackData: cbAdmContest}},
			{{Text: h.localizer.MustLocalize(locale.AdminMenuBlocklist), CallbackData: cbAdmBlocklist}},
		},
	}
}

func (h *Handler) guidesMenu() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: h.localizer.MustLocalize(locale.GuideSiteButton), URL: guidesSiteURL}},
			{{Text: h.localizer.MustLocalize(locale.GuideFindButton), CallbackData: cbFindGuide}},
			h.backRow(cbMainMenu),
		},
	}
}

func (h *Handler) contestMenu() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: h.localizer.MustLocalize(locale.ContestMenuInfo), CallbackData: cbContestInfo}},
			{{Text: h.localizer.MustLocalize(locale.ContestMenuSend), CallbackData: cbContestSend}},
			{{Text: h.localizer.MustLocalize(locale.ContestMenuJudge), CallbackData: cbContestJudge}},
			h.backRow(cbMainMenu),
		},
	}
}

func (h *Handler) contestInfoMenu() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: h.localizer.MustLocalize(locale.ContestMenuRules), URL: contestRulesURL}},
			h.backRow(cbUserContest),
		},
	}
}

func (h *Handler) newsKindMenu() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "📰", CallbackData: cbNewsItem}, {Text: "🔑", CallbackData: cbNewsCode}},
			{{Text: "📱", CallbackData: cbNewsPocket}, {Text: "🎨", CallbackData: cbNewsDesign}},
			h.backRow(cbMainMenu),
		},
	}
}

func (h *Handler) adminContestMenu() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: h.localizer.MustLocalize(locale.AdminMenuPending), CallbackData: cbAdmPending}},
			{{Text: h.localizer.MustLocalize(locale.AdminMenuStats), CallbackData: cbAdmStats}},
			{{Text: h.localizer.MustLocalize(locale.AdminMenuJudges), CallbackData: cbAdmJudges}},
			{{Text: h.localizer.MustLocalize(locale.AdminMenuUpdate), CallbackData: cbAdmUpdate}},
			{{Text: h.localizer.MustLocalize(locale.AdminMenuReset), CallbackData: cbAdmReset}},
			h.backRow(cbMainMenu),
		},
	}
}

func (h *Handler) moderationMenu(submissionID int64) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: h.localizer.MustLocalize(locale.ButtonApprove), CallbackData: fmt.Sprintf("%s%d", cbModApprovePrefix, submissionID)},
				{Text: h.localizer.MustLocalize(locale.ButtonReject), CallbackData: fmt.Sprintf("%s%d", cbModRejectPrefix, submissionID)},
			},
			{{Text: h.localizer.MustLocalize(locale.ButtonRollback), CallbackData: fmt.Sprintf("%s%d", cbModRollbackPrefix, submissionID)}},
			h.backRow(cbAdmPending),
		},
	}
}

func (h *Handler) backRow(target string) []models.InlineKeyboardButton {
	return []models.InlineKeyboardButton{
		{Text: h.localizer.MustLocalize(locale.ButtonBack), CallbackData: target},
		{Text: h.localizer.MustLocalize(locale.ButtonMainMenu), CallbackData: cbMainMenu},
	}
}
