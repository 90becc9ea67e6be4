package clientdata

import "time"

// TTLs for persisted upstream data.
const (
	TTLFundDirectory = 24 * time.Hour // fund code/name list changes a few times a month
	TTLNAVHistory    = 6 * time.Hour  // confirmed NAVs are published once per evening

	// CleanupGrace keeps expired rows around as last-known fallback data.
	CleanupGrace = 7 * 24 * time.Hour
)
