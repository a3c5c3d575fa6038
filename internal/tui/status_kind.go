package tui

// StatusKind indicates severity for status bar messages and toasts.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusSuccess
	StatusWarn
	StatusError
)
