// Package audit keeps a durable trail of auth operations in the audit_logs
// table of the shared database.
//
// Each entry records an action (register, login, logout, seed) and its
// outcome, never the email, name or password involved. Recorder adapts a
// Repository to auth.EventRecorder so the auth service writes the trail
// as it works; admins read it back through GET /api/v1/admin/audit.
package audit
