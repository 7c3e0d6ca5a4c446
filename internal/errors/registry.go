package errors

import "net/http"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	Status   int
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Storage Errors (E100-E119)
	// ============================================

	"E100": {
		Category: CategoryStorage,
		Message:  "Store unavailable",
		Detail:   "The persistent store could not be opened. Check the storage driver and DSN in senhas.json.",
		Status:   http.StatusServiceUnavailable,
	},
	"E101": {
		Category: CategoryStorage,
		Message:  "Store write failed",
		Detail:   "The new value could not be persisted. Other contexts were not notified.",
		Status:   http.StatusInternalServerError,
	},
	"E102": {
		Category: CategoryStorage,
		Message:  "Unsupported storage driver",
		Detail:   "Supported drivers are memory, sqlite, mysql and redis.",
		Status:   http.StatusInternalServerError,
	},

	// ============================================
	// Sync Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategorySync,
		Message:  "Stale ticket update",
		Detail:   "The update's lastUpdate stamp is not newer than the current one. Receivers would silently drop it.",
		Status:   http.StatusConflict,
	},
	"E121": {
		Category: CategorySync,
		Message:  "Broadcast bridge failed",
		Detail:   "The Redis relay for the broadcast channel could not be started.",
		Status:   http.StatusServiceUnavailable,
	},

	// ============================================
	// Validation Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategoryValidation,
		Message:  "Unknown ticket type",
		Detail:   "Ticket types are common and priority.",
		Status:   http.StatusBadRequest,
	},
	"E141": {
		Category: CategoryValidation,
		Message:  "Invalid direction",
		Detail:   "Counters move by +1 or -1.",
		Status:   http.StatusBadRequest,
	},
	"E142": {
		Category: CategoryValidation,
		Message:  "Reset not confirmed",
		Detail:   "Resetting every counter is destructive and needs explicit confirmation.",
		Status:   http.StatusPreconditionFailed,
	},
	"E143": {
		Category: CategoryValidation,
		Message:  "Invalid alert profile",
		Detail:   "Alert profiles are numbered 0 to 4.",
		Status:   http.StatusBadRequest,
	},
	"E144": {
		Category: CategoryValidation,
		Message:  "Invalid payload",
		Detail:   "The request body could not be decoded.",
		Status:   http.StatusBadRequest,
	},
	"E145": {
		Category: CategoryValidation,
		Message:  "Logo too large",
		Detail:   "The uploaded image exceeds the configured logo size limit.",
		Status:   http.StatusRequestEntityTooLarge,
	},
	"E146": {
		Category: CategoryValidation,
		Message:  "Logo upload failed",
		Detail:   "The image could not be stored by the logo backend.",
		Status:   http.StatusBadGateway,
	},

	// ============================================
	// Config Errors (E160-E179)
	// ============================================

	"E160": {
		Category: CategoryConfig,
		Message:  "Config file not found",
		Detail:   "No senhas.json was found.",
	},
	"E161": {
		Category: CategoryConfig,
		Message:  "Config parse error",
		Detail:   "senhas.json could not be parsed.",
	},
	"E162": {
		Category: CategoryConfig,
		Message:  "Invalid config value",
		Detail:   "A value in senhas.json is out of range.",
	},

	// ============================================
	// CLI Errors (E180-E199)
	// ============================================

	"E180": {
		Category: CategoryCLI,
		Message:  "Command failed",
	},
	"E181": {
		Category: CategoryCLI,
		Message:  "Server failed",
		Detail:   "The panel server stopped with an error.",
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
