package tui

import "fmt"

// Canonical short status messages used across the app.
const (
	MsgRefreshing    = "Refreshing catalog…"
	MsgDownloading   = "Downloading…"
	MsgSubmitting    = "Submitting…"
	MsgMarking       = "Updating progress…"
	MsgNoResults     = "No results"
	MsgBackOnline    = "Back online"
	MsgWentOffline   = "Offline - work is saved locally"
	MsgQueuedOffline = "Saved offline - will sync when you reconnect"
)

func MsgResultsCount(n int) string {
	if n == 1 {
		return "1 result"
	}
	return fmt.Sprintf("%d results", n)
}

func MsgCatalogRefreshed(count int) string {
	if count == 1 {
		return "Catalog refreshed: 1 lesson"
	}
	return fmt.Sprintf("Catalog refreshed: %d lessons", count)
}

func MsgSyncSummary(delivered, remaining int) string {
	if remaining > 0 {
		return fmt.Sprintf("Synced %d submissions, %d still queued", delivered, remaining)
	}
	if delivered == 1 {
		return "Synced 1 submission"
	}
	return fmt.Sprintf("Synced %d submissions", delivered)
}

func MsgDownloadDone(title string) string {
	return fmt.Sprintf("Downloaded '%s' for offline use", title)
}
