package core

import (
	"mamarr/internal/config"
	"mamarr/internal/models"
)

// SeedConfiguration is the effective seeding requirement for one torrent,
// combining the operator's target with the tracker's per-release minimum.
type SeedConfiguration struct {
	RequiredSeedSeconds int      `json:"required_seed_seconds"`
	RatioLimit          *float64 `json:"ratio_limit,omitempty"`
	SeedingTimeLimit    *int     `json:"seeding_time_limit,omitempty"`
}

// ComputeSeedPolicy derives the seeding requirement for a release. The
// required duration is whichever is longer, the configured target or the
// tracker's minimum seed time; the client-side minute limit is widened so
// the client never stops a torrent before the requirement is met.
func ComputeSeedPolicy(release models.Release, seeding config.SeedingConfig) SeedConfiguration {
	required := int(seeding.TargetHours * 3600)
	if release.MinimumSeedTime > required {
		required = release.MinimumSeedTime
	}

	policy := SeedConfiguration{
		RequiredSeedSeconds: required,
		RatioLimit:          seeding.RatioLimit,
	}

	requiredMinutes := (required + 59) / 60
	if seeding.TimeLimitMinutes != nil {
		minutes := *seeding.TimeLimitMinutes
		if requiredMinutes > minutes {
			minutes = requiredMinutes
		}
		policy.SeedingTimeLimit = &minutes
	} else if requiredMinutes > 0 {
		policy.SeedingTimeLimit = &requiredMinutes
	}

	return policy
}

// ToRecord flattens the policy for storage in a job's source map.
func (c SeedConfiguration) ToRecord() map[string]interface{} {
	record := map[string]interface{}{
		"required_seed_seconds": c.RequiredSeedSeconds,
	}
	if c.RatioLimit != nil {
		record["ratio_limit"] = *c.RatioLimit
	}
	if c.SeedingTimeLimit != nil {
		record["seeding_time_limit"] = *c.SeedingTimeLimit
	}
	return record
}

// SeedConfigurationFromRecord is the inverse of ToRecord. Missing or
// malformed keys fall back to zero values.
func SeedConfigurationFromRecord(record map[string]interface{}) SeedConfiguration {
	policy := SeedConfiguration{}
	if v, ok := toFloat(record["required_seed_seconds"]); ok {
		policy.RequiredSeedSeconds = int(v)
	}
	if v, ok := toFloat(record["ratio_limit"]); ok {
		policy.RatioLimit = &v
	}
	if v, ok := toFloat(record["seeding_time_limit"]); ok {
		minutes := int(v)
		policy.SeedingTimeLimit = &minutes
	}
	return policy
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
