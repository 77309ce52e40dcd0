package profile

import "encoding/json"

// Fragment is a partial profile extracted from one conversation pass. The
// model output it comes from is untrusted: fields may be missing, null, or
// of the wrong shape, so decoding is lenient: a scalar where a list is
// expected becomes a single-item list, anything unrecognizable is dropped.
type Fragment struct {
	Name        string
	Education   string
	CareerGoals string
	Skills      []string
	Interests   []string
}

// UnmarshalJSON decodes a fragment from model output, keeping only the
// recognized profile keys and coercing values defensively.
func (f *Fragment) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	f.Name = decodeString(fields["name"])
	f.Education = decodeString(fields["education"])
	f.CareerGoals = decodeString(fields["career_goals"])
	f.Skills = decodeStringList(fields["skills"])
	f.Interests = decodeStringList(fields["interests"])
	return nil
}

func decodeString(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func decodeStringList(raw json.RawMessage) []string {
	if raw == nil {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	// A bare string is treated as a single-item list.
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return []string{s}
	}
	return nil
}

// IsZero reports whether the fragment carries no information.
func (f Fragment) IsZero() bool {
	return f.Name == "" && f.Education == "" && f.CareerGoals == "" &&
		len(f.Skills) == 0 && len(f.Interests) == 0
}

// Reconcile merges a fragment into an existing profile without destroying
// known facts: list fields grow by union (case-sensitive dedupe, existing
// order first), scalars are overwritten only by non-empty incoming values.
// The result always has the complete field set. Pure function.
func Reconcile(existing Profile, frag Fragment) Profile {
	merged := existing
	if merged.Skills == nil {
		merged.Skills = []string{}
	}
	if merged.Interests == nil {
		merged.Interests = []string{}
	}

	if frag.Name != "" {
		merged.Name = frag.Name
	}
	if frag.Education != "" {
		merged.Education = frag.Education
	}
	if frag.CareerGoals != "" {
		merged.CareerGoals = frag.CareerGoals
	}
	merged.Skills = unionStrings(merged.Skills, frag.Skills)
	merged.Interests = unionStrings(merged.Interests, frag.Interests)
	return merged
}

// unionStrings appends items from incoming not already present in existing,
// preserving order and deduplicating case-sensitively.
func unionStrings(existing, incoming []string) []string {
	out := make([]string, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, s := range existing {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, s := range incoming {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// IsReady reports whether the profile carries enough signal to generate
// career recommendations: education, skills, interests, and career goals
// must all be present. Partial profiles never trigger generation.
func IsReady(p Profile) bool {
	return p.Education != "" &&
		len(p.Skills) > 0 &&
		len(p.Interests) > 0 &&
		p.CareerGoals != ""
}
