package keyboard

// Callback actions. The payload after the separator selects the variant.
const (
	ActionProfile = "profile"
	ActionTop     = "top"
	ActionAdmin   = "admin"
	ActionUsers   = "users"
	ActionApprove = "app_ok"
	ActionReject  = "app_no"
	ActionManage  = "manage"
	ActionRank    = "rank"
	ActionPost    = "post"
	ActionCancel  = "cancel"
)

// Profile screen payloads.
const (
	ProfileEditName   = "edit_name"
	ProfileEditWallet = "edit_wallet"
	ProfileTop        = "top"
	ProfileToday      = "today"
	ProfileHistory    = "history"
	ProfileApply      = "apply"
)

// Admin panel payloads.
const (
	AdminApplications = "apps"
	AdminUsers        = "users"
	AdminManage       = "manage"
	AdminPosts        = "posts"
	AdminStats        = "stats"
	AdminPanel        = "panel"
)

// Manage menu payloads.
const (
	ManageAssign    = "assign"
	ManageRevoke    = "revoke"
	ManageRank      = "rank"
	ManagePayoutAdd = "pay_add"
	ManagePayoutSub = "pay_sub"
	ManageBan       = "ban"
	ManageUnban     = "unban"
)

// Posts menu payloads.
const (
	PostUsers   = "users"
	PostChannel = "channel"
	PostPublish = "publish"
)
