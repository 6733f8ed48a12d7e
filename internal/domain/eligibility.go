package domain

// Source names what funds a listing.
type Source string

const (
	SourceCommunityPot    Source = "community_pot"
	SourcePersonalCredits Source = "personal_credits"
)

// Valid reports whether s is a known funding source.
func (s Source) Valid() bool {
	return s == SourceCommunityPot || s == SourcePersonalCredits
}

// DenyReason is the machine-readable cause of a negative eligibility result.
type DenyReason string

const (
	ReasonNotAuthenticated  DenyReason = "not_authenticated"
	ReasonCommunityPotEmpty DenyReason = "community_pot_empty"
	ReasonNoCredits         DenyReason = "no_credits"
	ReasonUnknown           DenyReason = "unknown"
	ReasonError             DenyReason = "error"
)

// EligibilityResult is the advisory answer to "may this user create a listing
// now, and who pays?". Balances are for display only; the ledger re-validates
// them at consumption time.
type EligibilityResult struct {
	CanCreate           bool       `json:"can_create"`
	Source              Source     `json:"source,omitempty"`
	Reason              DenyReason `json:"reason,omitempty"`
	Message             string     `json:"message"`
	RemainingFreeToday  int        `json:"remaining_free_today"`
	PersonalCredits     *int64     `json:"personal_credits,omitempty"`
	CommunityPotBalance *int64     `json:"community_pot_balance,omitempty"`
}
