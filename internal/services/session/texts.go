package session

// User-facing texts. Terrain symbols double as button labels, so the
// emoji vocabulary is part of the game's wire format.
const (
	textSubscribePrompt = "Subscribe to the bot's official channel\n%s to begin."
	textSubscribeDenied = "You shall not pass! ☝️"

	textNicknamePrompt = "Greetings! 👋🏻\n" +
		"Enter your game name to begin your journey ✍🏻"
	textNicknameInvalid = "❌ The name must be 2-15 characters long.\n\n" +
		"Please enter a name (2-15 characters):"
	textAlreadyRegistered = "❌ You are already registered!"
	textRegistrationRetry = "❌ Registration failed. Please try again."

	textRegistered = "Success! ✨\n\n" +
		"Your name: %s\n" +
		"Your number: %s\n\n" +
		"Starting resource kit:\n" +
		"20 stones 🪨\n" +
		"50 coins 💰\n" +
		"20 wood 🪵\n" +
		"1 diamond 💎"

	textWelcomeBack = "👋 Welcome back, %s! (%s)"

	textMapIntro = "This is the map 🗺️\n" +
		"Tap a cell to open the local map. " +
		"This is where you must build your castle 🏰"
	textMapResume = "This is the map 🗺️\n" +
		"Tap a cell to continue:"
	textRetrySuffix = "\n\n✨ Try again:"

	textAdminPanel      = "Admin panel 💻"
	textPermissionError = "❌ Insufficient permissions!"
	textExportDone      = "✅ Database exported!"
	textExportFailed    = "❌ Export failed. Please try again later."
	textUserStats       = "Total players: %d👤\nActive today: %d👨‍💻"

	textAccountMissing = "❌ Error: player not found"
	textNoActiveMap    = "❌ Error: no active map"
)

const (
	labelConfirm   = "Confirm ✅"
	labelNext      = "Next ▶️"
	labelAdmin     = "Admin panel 💻"
	labelDownload  = "Download DB 📥"
	labelUsers     = "Users 👤"
	labelBack      = "Back ◀️"
	labelAdminBack = "Back ◀️"
)
