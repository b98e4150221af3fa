package i18n

// EnMessages English message catalog
var EnMessages = map[string]string{
	// Notice titles
	"notice.error":   "Error",
	"notice.info":    "Notice",
	"notice.success": "Success",

	// Connection
	"conn.missing_credentials": "Please enter the API Key and Secret",
	"conn.ok":                  "API connection test succeeded!",
	"conn.failed":              "Connection failed: %s",

	// Generic failures
	"fallback.unknown":    "Unknown error",
	"request.failed":      "Request failed",
	"request.failed_with": "Request failed: %s",
	"busy":                "%s is already in progress",

	// Session
	"session.created":       "New session created",
	"session.create_failed": "Failed to create session: %s",
	"session.none":          "No active session",
	"session.cleared":       "Session cleared",
	"session.clear_failed":  "Failed to clear session: %s",
	"session.clear_confirm": "Clear all data of the current session?",
	"session.copied":        "Session ID copied to clipboard",
	"session.synced":        "Graph synchronized with the server",
	"session.sync_failed":   "Synchronization failed: %s",

	// Ask
	"ask.empty": "Please enter a question",

	// Export
	"export.nothing":     "No data to export",
	"export.done":        "Data exported: %s",
	"export.failed":      "Export failed",
	"export.failed_with": "Export failed: %s",
	"export.format":      "Unsupported export format: %s (supported: json, csv)",

	// Graph image
	"image.none":  "No graph image available",
	"image.saved": "Graph image saved: %s",

	// Placeholders
	"placeholder.history":  "No conversation yet",
	"placeholder.entities": "No entities",
	"placeholder.triples":  "No relations",
	"placeholder.stats":    "No data",
	"placeholder.graph":    "No graph",
	"placeholder.examples": "No example questions",

	// Labels
	"label.you":      "You",
	"label.ai":       "AI",
	"label.session":  "Session",
	"label.none":     "(none)",
	"stats.entities": "Total entities",
	"stats.triples":  "Total relations",
	"stats.history":  "Turns",
	"image.ready":    "%s image, %s",

	// Panels
	"panel.chat":     "Chat",
	"panel.entities": "Entities",
	"panel.triples":  "Relations",
	"panel.stats":    "Statistics",
	"panel.graph":    "Graph",
	"panel.examples": "Example questions",

	// Status bar
	"status.ready": "Ready",
	"status.busy":  "Working: %s",

	// Input
	"input.placeholder": "Ask a question... (Enter to send, /help for commands)",
	"confirm.hint":      "[y/N]",

	// Commands
	"cmd.ask":      "Ask a question (plain text also asks)",
	"cmd.test":     "Test API credentials: /test <key> <secret>",
	"cmd.new":      "Create a new session",
	"cmd.clear":    "Clear the current session",
	"cmd.export":   "Export the graph: /export json|csv",
	"cmd.examples": "Show example questions",
	"cmd.sync":     "Reload the full graph from the server",
	"cmd.copy":     "Copy the session ID to the clipboard",
	"cmd.image":    "Save the current graph image",
	"cmd.help":     "Show available commands",
	"cmd.quit":     "Exit",
	"cmd.unknown":  "Unknown command: /%s (try /help)",

	// Startup
	"startup.welcome": "kgchat connected to %s",
}
