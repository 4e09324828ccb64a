package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldBackend      = "backend"
	FieldMode         = "mode"
	FieldPrevMode     = "previous_mode"
	FieldTransactions = "transactions"
	FieldCategories   = "categories"
	FieldCurrency     = "currency"
	FieldFormat       = "format"
	FieldSource       = "source"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentReconciler = "reconciler"
	ComponentStorage    = "storage"
	ComponentGateway    = "gateway"
	ComponentBackend    = "backend"
	ComponentSecurity   = "security"
	ComponentCLI        = "cli"
)

// Operations defines standard operation names
const (
	OpAddTransaction    = "add_transaction"
	OpUpdateTransaction = "update_transaction"
	OpDeleteTransaction = "delete_transaction"
	OpAddCategory       = "add_category"
	OpUpdateCategory    = "update_category"
	OpDeleteCategory    = "delete_category"
	OpSetCurrency       = "set_currency"
	OpPush              = "push"
	OpPull              = "pull"
	OpImport            = "import"
	OpExport            = "export"
	OpRemoteUpdate      = "remote_update"
	OpLogin             = "login"
	OpLogout            = "logout"
	OpConnectivity      = "connectivity"
	OpShutdown          = "shutdown"
	OpStartup           = "startup"
)
