package log

// Common field names for structured logging
const (
	FieldComponent      = "component"
	FieldError          = "error"
	FieldErrorClass     = "error_class"
	FieldOperation      = "operation"
	FieldDuration       = "duration_ms"
	FieldTransactionID  = "transaction_id"
	FieldTransactionKnd = "transaction_kind"
	FieldAccountID      = "account_id"
	FieldCounterpartyID = "counterparty_id"
	FieldAmountCents    = "amount_cents"
	FieldBalanceCents   = "balance_cents"
	FieldCategory       = "category"
	FieldTemplateID     = "template_id"
	FieldFrequency      = "frequency"
	FieldOccurrence     = "occurrence"
	FieldEventType      = "event_type"
	FieldSheetsRef      = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentLedger    = "ledger"
	ComponentRecurring = "recurring"
	ComponentPayoff    = "payoff"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentMetrics   = "metrics"
	ComponentCLI       = "cli"
)

// Operations defines standard operation names
const (
	OpApply    = "apply"
	OpReverse  = "reverse"
	OpFire     = "fire"
	OpAdvance  = "advance"
	OpForecast = "forecast"
	OpPayoff   = "payoff"
	OpPublish  = "publish"
	OpExport   = "export"
	OpMigrate  = "migrate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithTransaction adds transaction-related fields
func (f LogFields) WithTransaction(id, kind, accountID, counterpartyID string, amountCents int64) LogFields {
	f[FieldTransactionID] = id
	f[FieldTransactionKnd] = kind
	f[FieldAccountID] = accountID
	if counterpartyID != "" {
		f[FieldCounterpartyID] = counterpartyID
	}
	f[FieldAmountCents] = amountCents
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
