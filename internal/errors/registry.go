package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (E100-E199)
	// ============================================

	"E100": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No weblisk.json was found in the project directory or any parent directory.",
		DocURL:   "https://weblisk.dev/docs/errors/E100",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Configuration file could not be read",
		Detail:   "weblisk.json exists but reading it failed. Check file permissions.",
		DocURL:   "https://weblisk.dev/docs/errors/E101",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Configuration file is not valid JSON",
		Detail:   "weblisk.json could not be parsed. Common causes are trailing commas and unquoted keys.",
		DocURL:   "https://weblisk.dev/docs/errors/E102",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Invalid server port",
		Detail:   "The server port must be between 1 and 65535.",
		DocURL:   "https://weblisk.dev/docs/errors/E103",
	},
	"E104": {
		Category: CategoryConfig,
		Message:  "Invalid session cookie max age",
		Detail:   "The session cookie max age must be a positive duration.",
		DocURL:   "https://weblisk.dev/docs/errors/E104",
	},
	"E105": {
		Category: CategoryConfig,
		Message:  "Invalid SameSite value",
		Detail:   "The session cookie SameSite policy must be one of \"lax\", \"strict\", or \"none\".",
		DocURL:   "https://weblisk.dev/docs/errors/E105",
	},
	"E106": {
		Category: CategoryConfig,
		Message:  "Invalid rate limit settings",
		Detail:   "Rate limit capacity and fill rate must both be positive when rate limiting is enabled.",
		DocURL:   "https://weblisk.dev/docs/errors/E106",
	},
	"E107": {
		Category: CategoryConfig,
		Message:  "Invalid reconnect policy",
		Detail:   "The client reconnect interval must be positive, and max attempts must be zero (unbounded) or positive.",
		DocURL:   "https://weblisk.dev/docs/errors/E107",
	},
	"E108": {
		Category: CategoryConfig,
		Message:  "Invalid WebSocket endpoint",
		Detail:   "The WebSocket endpoint must be an absolute path starting with \"/\".",
		DocURL:   "https://weblisk.dev/docs/errors/E108",
	},
	"E109": {
		Category: CategoryConfig,
		Message:  "Invalid trusted proxy entry",
		Detail:   "Trusted proxies must be IP addresses or CIDR blocks.",
		DocURL:   "https://weblisk.dev/docs/errors/E109",
	},

	// ============================================
	// Protocol Errors (E200-E299)
	// ============================================

	"E200": {
		Category: CategoryProtocol,
		Message:  "Malformed message frame",
		Detail:   "The incoming frame was not valid JSON. The connection stays open; the frame is answered with a failure result.",
		DocURL:   "https://weblisk.dev/docs/errors/E200",
	},
	"E201": {
		Category: CategoryProtocol,
		Message:  "Unknown message type",
		Detail:   "The message's \"type\" field did not name a known inbound message type.",
		DocURL:   "https://weblisk.dev/docs/errors/E201",
	},
	"E202": {
		Category: CategoryProtocol,
		Message:  "Missing event name",
		Detail:   "A server-event message must carry a non-empty \"event\" field.",
		DocURL:   "https://weblisk.dev/docs/errors/E202",
	},
	"E203": {
		Category: CategoryProtocol,
		Message:  "Binary frame on text protocol",
		Detail:   "The wire protocol is JSON text frames. Binary payloads are fed to the same parser; content that is not JSON is answered with a failure result.",
		DocURL:   "https://weblisk.dev/docs/errors/E203",
	},

	// ============================================
	// Runtime Errors (E400-E499)
	// ============================================

	"E400": {
		Category: CategoryRuntime,
		Message:  "Event handler panicked",
		Detail:   "A server-side event handler panicked. The panic was recovered and returned to the client as a failure result.",
		DocURL:   "https://weblisk.dev/docs/errors/E400",
	},
	"E401": {
		Category: CategoryRuntime,
		Message:  "Event handler timed out",
		Detail:   "The handler did not complete within the configured dispatch timeout. The connection stays registered.",
		DocURL:   "https://weblisk.dev/docs/errors/E401",
	},
	"E402": {
		Category: CategoryRuntime,
		Message:  "No handler for event",
		Detail:   "Neither a component handler nor the route fallback resolved the event name.",
		DocURL:   "https://weblisk.dev/docs/errors/E402",
	},

	// ============================================
	// CLI Errors (E500-E599)
	// ============================================

	"E500": {
		Category: CategoryCLI,
		Message:  "Project directory already exists",
		Detail:   "The target directory for the new project already exists and is not empty.",
		DocURL:   "https://weblisk.dev/docs/errors/E500",
	},
	"E501": {
		Category: CategoryCLI,
		Message:  "Not a weblisk project",
		Detail:   "No weblisk.json was found here. Run this command from a project directory, or create one with \"weblisk new\".",
		DocURL:   "https://weblisk.dev/docs/errors/E501",
	},
	"E502": {
		Category: CategoryCLI,
		Message:  "Unknown project template",
		Detail:   "The requested template is not one of the built-in scaffolds.",
		DocURL:   "https://weblisk.dev/docs/errors/E502",
	},
	"E503": {
		Category: CategoryCLI,
		Message:  "Invalid project name",
		Detail:   "Project names become directory and module names, so they must not contain spaces, slashes, or a leading digit.",
		DocURL:   "https://weblisk.dev/docs/errors/E503",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
