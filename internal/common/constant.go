// Package common contains shared constants and sentinel errors used across
// duplofs components.
package common

// ServiceName identifies the process in logs, traces and metrics.
const ServiceName = "duplofs"

// SessionCookieName is the browser cookie carrying the signed session token.
const SessionCookieName = "duplofs_session"

// FlashCookieName is the browser cookie carrying pending one-shot notices.
const FlashCookieName = "duplofs_flash"
