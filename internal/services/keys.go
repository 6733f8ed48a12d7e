package services

// Cache keys shared by readers, the ledger, and invalidation consumers.
const (
	KeySettings    = "settings:credit_check"
	KeyPotBalance  = "settings:community_pot_balance"
	KeyStatsPrefix = "stats:"

	KeyStatsDonations        = KeyStatsPrefix + "donations"
	KeyStatsListingsFinanced = KeyStatsPrefix + "listings_financed"

	// PatternStats matches every statistics key.
	PatternStats = "^stats:"
)

// KeyUserCredits is the cache key of a user's credit state.
func KeyUserCredits(userID string) string { return "profile:" + userID + ":credits" }

// KeyUserStats is the cache key of a user's donation totals.
func KeyUserStats(userID string) string { return KeyStatsPrefix + "user:" + userID }
