package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Policy is the on-disk credit policy document. Every field is optional;
// omitted fields keep their defaults. Example:
//
//	[credits]
//	daily_free_listings = 5
//	community_pot_seed  = 100
//	timezone            = "Europe/Paris"
//
//	[cache]
//	settings_ttl = "30s"
//	profile_ttl  = "10s"
type Policy struct {
	Credits PolicyCredits `toml:"credits"`
	Cache   PolicyCache   `toml:"cache"`
}

// PolicyCredits mirrors CreditsConfig in the policy file.
type PolicyCredits struct {
	DailyFreeListings int    `toml:"daily_free_listings"`
	CommunityPotSeed  int64  `toml:"community_pot_seed"`
	Timezone          string `toml:"timezone"`
}

// PolicyCache mirrors CacheConfig in the policy file.
type PolicyCache struct {
	SettingsTTL  Duration `toml:"settings_ttl"`
	ProfileTTL   Duration `toml:"profile_ttl"`
	PotTTL       Duration `toml:"pot_ttl"`
	StatsTTL     Duration `toml:"stats_ttl"`
	UserStatsTTL Duration `toml:"user_stats_ttl"`
	FetchTimeout Duration `toml:"fetch_timeout"`
}

// Duration decodes Go duration strings ("30s", "2m") from TOML.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// D returns d as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// LoadPolicyFile decodes the TOML policy file at path. Unknown keys are
// rejected so typos do not silently fall back to defaults.
func LoadPolicyFile(path string) (Policy, error) {
	var p Policy
	md, err := toml.DecodeFile(path, &p)
	if err != nil {
		return Policy{}, fmt.Errorf("policy file %s: %w", path, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return Policy{}, fmt.Errorf("policy file %s: unknown keys %v", path, undec)
	}
	// Zero means "not set" for counters; remember which were present.
	if !md.IsDefined("credits", "daily_free_listings") {
		p.Credits.DailyFreeListings = -1
	}
	if !md.IsDefined("credits", "community_pot_seed") {
		p.Credits.CommunityPotSeed = -1
	}
	return p, nil
}

func defaultPolicy() Policy {
	return Policy{
		Credits: PolicyCredits{
			DailyFreeListings: 5,
			CommunityPotSeed:  0,
			Timezone:          "UTC",
		},
		Cache: PolicyCache{
			SettingsTTL:  Duration(30 * time.Second),
			ProfileTTL:   Duration(10 * time.Second),
			PotTTL:       Duration(30 * time.Second),
			StatsTTL:     Duration(60 * time.Second),
			UserStatsTTL: Duration(120 * time.Second),
			FetchTimeout: Duration(3 * time.Second),
		},
	}
}

// merge overlays the fields set in o onto p.
func (p Policy) merge(o Policy) Policy {
	if o.Credits.DailyFreeListings >= 0 {
		p.Credits.DailyFreeListings = o.Credits.DailyFreeListings
	}
	if o.Credits.CommunityPotSeed >= 0 {
		p.Credits.CommunityPotSeed = o.Credits.CommunityPotSeed
	}
	if o.Credits.Timezone != "" {
		p.Credits.Timezone = o.Credits.Timezone
	}
	overlay := func(dst *Duration, src Duration) {
		if src > 0 {
			*dst = src
		}
	}
	overlay(&p.Cache.SettingsTTL, o.Cache.SettingsTTL)
	overlay(&p.Cache.ProfileTTL, o.Cache.ProfileTTL)
	overlay(&p.Cache.PotTTL, o.Cache.PotTTL)
	overlay(&p.Cache.StatsTTL, o.Cache.StatsTTL)
	overlay(&p.Cache.UserStatsTTL, o.Cache.UserStatsTTL)
	overlay(&p.Cache.FetchTimeout, o.Cache.FetchTimeout)
	return p
}
