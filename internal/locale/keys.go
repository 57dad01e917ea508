package locale

// Message key constants for localization
// All user-facing messages should use these constants to ensure consistency

const (
	// ============================================================================
	// START AND MENUS
	// ============================================================================

	WelcomeAdmin = "WelcomeAdmin"
	WelcomeUser  = "WelcomeUser"
	ChooseAction = "ChooseAction"

	ButtonBack     = "ButtonBack"
	ButtonMainMenu = "ButtonMainMenu"

	MenuGuides        = "MenuGuides"
	MenuContest       = "MenuContest"
	MenuMessageAdmins = "MenuMessageAdmins"
	MenuNews          = "MenuNews"

	GuideSiteButton = "GuideSiteButton"
	GuideFindButton = "GuideFindButton"
	GuideSearchHint = "GuideSearchHint"

	ContestMenuInfo  = "ContestMenuInfo"
	ContestMenuSend  = "ContestMenuSend"
	ContestMenuJudge = "ContestMenuJudge"
	ContestMenuRules = "ContestMenuRules"

	AdminMenuContest   = "AdminMenuContest"
	AdminMenuPending   = "AdminMenuPending"
	AdminMenuStats     = "AdminMenuStats"
	AdminMenuUpdate    = "AdminMenuUpdate"
	AdminMenuReset     = "AdminMenuReset"
	AdminMenuJudges    = "AdminMenuJudges"
	AdminMenuBlocklist = "AdminMenuBlocklist"

	// ============================================================================
	// CONTEST INFO
	// ============================================================================

	ContestNone            = "ContestNone"
	ContestInfo            = "ContestInfo"
	ContestAdmissionClosed = "ContestAdmissionClosed"

	// ============================================================================
	// SUBMISSION INTAKE FSM
	// ============================================================================

	IntakeStart           = "IntakeStart"
	IntakeProgress        = "IntakeProgress"
	IntakeDuplicatePhoto  = "IntakeDuplicatePhoto"
	IntakeTooManyPhotos   = "IntakeTooManyPhotos"
	IntakeNoPhotos        = "IntakeNoPhotos"
	IntakeAskCaption      = "IntakeAskCaption"
	IntakePreview         = "IntakePreview"
	IntakeDispatched      = "IntakeDispatched"
	IntakeCancelled       = "IntakeCancelled"
	IntakeExpired         = "IntakeExpired"
	IntakeAlreadyDraft    = "IntakeAlreadyDraft"
	IntakeAlreadyApproved = "IntakeAlreadyApproved"
	IntakeNotMember       = "IntakeNotMember"
	IntakeJudgeRevoked    = "IntakeJudgeRevoked"

	ButtonSendForMe  = "ButtonSendForMe"
	ButtonSendMyself = "ButtonSendMyself"
	ButtonCancel     = "ButtonCancel"
	ButtonDone       = "ButtonDone"

	ForwardTagByBot = "ForwardTagByBot"
	ForwardTagSelf  = "ForwardTagSelf"

	// ============================================================================
	// MODERATION
	// ============================================================================

	ModNoPending        = "ModNoPending"
	ModPendingListTitle = "ModPendingListTitle"
	ModSubmissionHeader = "ModSubmissionHeader"
	ModApproved         = "ModApproved"
	ModRejected         = "ModRejected"
	ModRolledBack       = "ModRolledBack"
	ModAskRejectReason  = "ModAskRejectReason"
	ModNotifyFailed     = "ModNotifyFailed"
	ModResetDone        = "ModResetDone"
	ModStats            = "ModStats"

	ButtonApprove  = "ButtonApprove"
	ButtonReject   = "ButtonReject"
	ButtonRollback = "ButtonRollback"

	NotifyApproved = "NotifyApproved"
	NotifyRejected = "NotifyRejected"

	AdminAskTheme       = "AdminAskTheme"
	AdminAskDescription = "AdminAskDescription"
	AdminAskDate        = "AdminAskDate"
	AdminAskDeadline    = "AdminAskDeadline"
	AdminBadDate        = "AdminBadDate"
	AdminContestUpdated = "AdminContestUpdated"

	// ============================================================================
	// JUDGES AND BLOCKLIST
	// ============================================================================

	JudgeRegistered      = "JudgeRegistered"
	JudgeAlreadySignedUp = "JudgeAlreadySignedUp"
	JudgeHasApproved     = "JudgeHasApproved"
	JudgeListTitle       = "JudgeListTitle"
	JudgeListEmpty       = "JudgeListEmpty"

	BlockDone      = "BlockDone"
	UnblockDone    = "UnblockDone"
	BlockListTitle = "BlockListTitle"
	BlockListEmpty = "BlockListEmpty"

	// ============================================================================
	// CONTENT FLOWS
	// ============================================================================

	ContentAskMessage     = "ContentAskMessage"
	NewsAskScreens        = "NewsAskScreens"
	NewsAskDescription    = "NewsAskDescription"
	NewsAskSpeaker        = "NewsAskSpeaker"
	NewsAskIsland         = "NewsAskIsland"
	CodeAskValue          = "CodeAskValue"
	PocketAskScreens      = "PocketAskScreens"
	DesignAskCode         = "DesignAskCode"
	DesignAskDesignScreen = "DesignAskDesignScreen"
	DesignAskGameScreens  = "DesignAskGameScreens"
	ContentSent           = "ContentSent"
	ContentIncomplete     = "ContentIncomplete"

	ForwardAdminMessage = "ForwardAdminMessage"
	ForwardNews         = "ForwardNews"
	ForwardCode         = "ForwardCode"
	ForwardPocket       = "ForwardPocket"
	ForwardDesign       = "ForwardDesign"

	// ============================================================================
	// ERRORS AND STATUS
	// ============================================================================

	BusyTryAgain      = "BusyTryAgain"
	SessionExpired    = "SessionExpired"
	ErrorGeneric      = "ErrorGeneric"
	ErrorUnauthorized = "ErrorUnauthorized"
	PrivateChatOnly   = "PrivateChatOnly"
)
