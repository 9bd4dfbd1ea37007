package constants

import "time"

// Context keys
const (
	ContextKeyIdentity  = "identity"
	ContextKeyRequestID = "request_id"
)

// Auth cookie
const (
	AuthCookieName   = "auth_token"
	AuthCookieMaxAge = 86400
	DefaultTokenTTL  = 24 * time.Hour
)

const RequestIDHeader = "X-Request-ID"

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

const MinPasswordLength = 8

// Invoice numbering
const (
	InvoiceNumberPrefix      = "INV"
	MaxInvoiceNumberAttempts = 5
)

const MaxAISuggestedSubtasks = 10
