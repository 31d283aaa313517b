package bot

// Command constants for Telegram bot commands.
const (
	CommandStart   = "/start"
	CommandCancel  = "/cancel"
	CommandProfile = "/profile"
	CommandApply   = "/apply"
	CommandAdmin   = "/admin"
)

// commandName extracts "/cmd" from "/cmd@bot_name args".
func commandName(text string) string {
	if len(text) == 0 || text[0] != '/' {
		return ""
	}
	for i, r := range text {
		if r == ' ' || r == '@' || r == '\n' {
			return text[:i]
		}
	}
	return text
}
