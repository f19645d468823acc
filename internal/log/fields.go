package log

// Field names shared by every log line.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldRoute      = "route"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldExpenseID  = "expense_id"
	FieldDate       = "date"
	FieldCategory   = "category"
	FieldAmountYen  = "amount_yen"
	FieldChartID    = "chart_id"
	FieldSurface    = "surface"
	FieldPoints     = "points"
)

const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentExpense   = "expense"
	ComponentAnalytics = "analytics"
	ComponentChart     = "chart"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentRateLimit = "rate_limit"
	ComponentBackend   = "backend"
)

const (
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpRender   = "render"
	OpPublish  = "publish"
	OpSync     = "sync"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// Fields collects structured attributes for a single log call.
type Fields map[string]any

func NewFields() Fields {
	return make(Fields)
}

func (f Fields) WithComponent(component string) Fields {
	f[FieldComponent] = component
	return f
}

func (f Fields) WithOperation(op string) Fields {
	f[FieldOperation] = op
	return f
}

func (f Fields) WithError(err error) Fields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithExpense adds the identifying fields of an expense. Descriptions are
// free text and stay out of the logs.
func (f Fields) WithExpense(id int64, date, category string, amountYen int64) Fields {
	f[FieldExpenseID] = id
	f[FieldDate] = date
	f[FieldCategory] = category
	f[FieldAmountYen] = amountYen
	return f
}

func (f Fields) WithExpenseID(id int64) Fields {
	f[FieldExpenseID] = id
	return f
}

func (f Fields) WithChart(id, surface string, points int) Fields {
	f[FieldChartID] = id
	f[FieldSurface] = surface
	f[FieldPoints] = points
	return f
}

func (f Fields) WithHTTPRequest(method, path, route, userAgent string) Fields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if route != "" {
		f[FieldRoute] = route
	}
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f Fields) WithHTTPResponse(statusCode int, durationMs int64) Fields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	return f
}

// ToSlice flattens the fields into slog key/value pairs.
func (f Fields) ToSlice() []any {
	out := make([]any, 0, len(f)*2)
	for k, v := range f {
		out = append(out, k, v)
	}
	return out
}
