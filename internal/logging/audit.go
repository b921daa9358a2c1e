package logging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditEventType represents the type of audit event
type AuditEventType string

const (
	// OAuth lifecycle events
	OAuthAuthorize     AuditEventType = "OAUTH_AUTHORIZE"
	OAuthExchange      AuditEventType = "OAUTH_EXCHANGE"
	OAuthStateMismatch AuditEventType = "OAUTH_STATE_MISMATCH"
	OAuthLogout        AuditEventType = "OAUTH_LOGOUT"

	// Provider events
	ProviderFallback AuditEventType = "PROVIDER_FALLBACK"

	// Mapping events
	MappingRefresh AuditEventType = "MAPPING_REFRESH"
)

// AuditSeverity represents the severity level of an audit event
type AuditSeverity string

const (
	SeverityInfo     AuditSeverity = "info"
	SeverityWarning  AuditSeverity = "warning"
	SeverityError    AuditSeverity = "error"
	SeverityCritical AuditSeverity = "critical"
)

// AuditStatus represents the status of an audited action
type AuditStatus string

const (
	StatusSuccess AuditStatus = "success"
	StatusFailure AuditStatus = "failure"
)

// AuditEvent represents a security/operational audit event
type AuditEvent struct {
	ID           string                 `json:"id"`
	Timestamp    time.Time              `json:"timestamp"`
	EventType    AuditEventType         `json:"event_type"`
	Severity     AuditSeverity          `json:"severity"`
	SessionID    string                 `json:"session_id,omitempty"`
	Provider     string                 `json:"provider,omitempty"`
	Action       string                 `json:"action"`
	Status       AuditStatus            `json:"status"`
	Details      map[string]interface{} `json:"details,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
}

// NewAuditEvent creates a new audit event with a generated ID and timestamp
func NewAuditEvent(eventType AuditEventType, action string, status AuditStatus) *AuditEvent {
	return &AuditEvent{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Action:    action,
		Status:    status,
		Severity:  SeverityInfo,
	}
}

// WithSession sets the session ID for the audit event
func (e *AuditEvent) WithSession(sessionID string) *AuditEvent {
	e.SessionID = sessionID
	return e
}

// WithProvider sets the provider for the audit event
func (e *AuditEvent) WithProvider(provider string) *AuditEvent {
	e.Provider = provider
	return e
}

// WithSeverity sets the severity for the audit event
func (e *AuditEvent) WithSeverity(severity AuditSeverity) *AuditEvent {
	e.Severity = severity
	return e
}

// WithDetails sets the details map for the audit event
func (e *AuditEvent) WithDetails(details map[string]interface{}) *AuditEvent {
	e.Details = details
	return e
}

// WithError sets the error message for the audit event
func (e *AuditEvent) WithError(errorMessage string) *AuditEvent {
	e.ErrorMessage = errorMessage
	e.Status = StatusFailure
	if e.Severity == SeverityInfo {
		e.Severity = SeverityError
	}
	return e
}

// ToJSON converts the audit event to a JSON string
func (e *AuditEvent) ToJSON() string {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"error": "failed to marshal audit event: %v"}`, err)
	}
	return string(data)
}

// ParseAuditEvent parses a JSON string into an AuditEvent
func ParseAuditEvent(data string) (*AuditEvent, error) {
	var event AuditEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return nil, fmt.Errorf("failed to parse audit event: %w", err)
	}
	return &event, nil
}
