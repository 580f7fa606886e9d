package logging

import "log/slog"

// Common field names for consistent logging across services.
const (
	FieldService  = "service"
	FieldSiteID   = "site_id"
	FieldScriptID = "script_id"
	FieldEventID  = "event_id"
	FieldIP       = "ip"
	FieldMethod   = "method"
	FieldPath     = "path"
	FieldStatus   = "status"
	FieldDuration = "duration_ms"
	FieldError    = "error"
	FieldReason   = "reason"
	FieldRound    = "round"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// SiteID returns a slog attribute for a site identifier.
func SiteID(id int64) slog.Attr {
	return slog.Int64(FieldSiteID, id)
}

// ScriptID returns a slog attribute for a site's script identifier.
func ScriptID(id string) slog.Attr {
	return slog.String(FieldScriptID, id)
}

// EventID returns a slog attribute for a client event ID.
func EventID(id string) slog.Attr {
	return slog.String(FieldEventID, id)
}

// IP returns a slog attribute for the IP address.
func IP(ip string) slog.Attr {
	return slog.String(FieldIP, ip)
}

// Method returns a slog attribute for the HTTP method.
func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

// Path returns a slog attribute for the HTTP path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}

// Reason returns a slog attribute for a drop or rejection reason.
func Reason(reason string) slog.Attr {
	return slog.String(FieldReason, reason)
}

// Round returns a slog attribute for a worker round number.
func Round(n int) slog.Attr {
	return slog.Int(FieldRound, n)
}
