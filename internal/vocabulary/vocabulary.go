// Package vocabulary provides the versioned symptom synonym and body-region
// alias tables used by routine and exercise matching. Every table is an
// explicit, enumerable mapping so tests can cover each group; nothing here
// performs free-text parsing beyond case-insensitive substring checks.
package vocabulary

import (
	"sort"
	"strings"
)

// Version identifies the mapping tables in effect. Bump when any group or
// alias set changes so persisted match decisions can be traced to the
// vocabulary that produced them.
const Version = "2026.1"

var (
	// synonymGroups maps a group key to the phrases considered equivalent
	// for symptom matching. Two terms match when both fall under the same
	// group key.
	synonymGroups = map[string][]string{
		"stiffness":   {"stiff", "stiffness", "tight", "tightness", "limited mobility", "restricted", "restricted movement"},
		"aching":      {"ach", "ache", "aching", "dull pain", "dull", "sore", "soreness"},
		"sharp":       {"sharp", "stabbing", "shooting", "sharp pain"},
		"burning":     {"burn", "burning", "tingling", "pins and needles"},
		"radiating":   {"radiating", "radiates", "travels down", "down the leg", "down the arm", "sciatica"},
		"weakness":    {"weak", "weakness", "muscle weakness", "giving way", "gives out", "buckling"},
		"swelling":    {"swelling", "swollen", "inflammation", "puffy"},
		"numbness":    {"numb", "numbness", "tingling", "loss of sensation"},
		"gradual":     {"gradual", "builds gradually", "wax and wane", "comes and goes", "intermittent"},
		"morning":     {"morning stiffness", "stiffness in the morning", "worse in the morning", "worse after rest"},
		"activity":    {"worse with activity", "worse with movement", "pain with exercise", "activity related"},
		"instability": {"instability", "unstable", "wobbly", "gives way"},
	}

	// regionAliases expands a lowercase pain-location phrase into the
	// catalog terms used for that body region.
	regionAliases = map[string][]string{
		"lower back": {"lumbar", "low back", "back pain", "lumbar spine"},
		"low back":   {"lumbar", "lower back", "back pain", "lumbar spine"},
		"upper back": {"thoracic", "mid back", "back pain"},
		"neck":       {"cervical", "cervical spine", "neck pain"},
		"shoulder":   {"rotator cuff", "deltoid", "shoulder pain", "glenohumeral"},
		"knee":       {"patella", "patellofemoral", "knee pain", "quadriceps"},
		"hip":        {"hip flexor", "glute", "gluteal", "hip pain"},
		"ankle":      {"ankle pain", "achilles", "calf"},
		"foot":       {"plantar", "arch", "heel", "foot pain"},
		"elbow":      {"elbow pain", "forearm", "epicondyle"},
		"wrist":      {"wrist pain", "carpal", "forearm"},
		"hand":       {"hand pain", "grip", "finger"},
	}

	// painTypeTriggers adds descriptive phrases when the reported pain type
	// contains the trigger substring.
	painTypeTriggers = map[string][]string{
		"ach":    {"dull pain", "aching"},
		"dull":   {"dull pain", "aching"},
		"sharp":  {"sharp pain", "stabbing"},
		"burn":   {"burning", "tingling"},
		"throb":  {"throbbing", "aching"},
		"radiat": {"radiating", "travels down"},
	}

	// durationTriggers adds onset phrases when the bucketed duration
	// contains the trigger substring.
	durationTriggers = map[string][]string{
		"week":    {"builds gradually", "recent onset"},
		"month":   {"builds gradually", "wax and wane"},
		"gradual": {"builds gradually", "wax and wane"},
		"year":    {"chronic", "wax and wane"},
	}
)

// Assessment is the subset of an intake submission the vocabulary needs to
// derive search terms. Declared here so the package depends on nothing.
type Assessment struct {
	PainLocation       string
	PainType           string
	PainDuration       string
	AdditionalSymptoms []string
}

// Vocabulary exposes the mapping tables behind match operations. The zero
// value is not usable; construct with New.
type Vocabulary struct {
	groups   map[string][]string
	regions  map[string][]string
	types    map[string][]string
	duration map[string][]string
}

// New returns a Vocabulary backed by the built-in versioned tables.
func New() *Vocabulary {
	return &Vocabulary{
		groups:   synonymGroups,
		regions:  regionAliases,
		types:    painTypeTriggers,
		duration: durationTriggers,
	}
}

// SearchTerms derives the lowercase search-term set for an assessment:
// the pain location plus its region aliases, the pain type plus its
// descriptive synonyms, every additional symptom, and duration-derived
// onset phrases. Order is deterministic; duplicates are removed.
func (v *Vocabulary) SearchTerms(a Assessment) []string {
	seen := make(map[string]bool)
	var terms []string
	add := func(t string) {
		t = strings.TrimSpace(strings.ToLower(t))
		if t == "" || seen[t] {
			return
		}
		seen[t] = true
		terms = append(terms, t)
	}

	location := strings.ToLower(a.PainLocation)
	add(location)
	for region, aliases := range v.regions {
		if location == "" {
			break
		}
		if strings.Contains(location, region) || strings.Contains(region, location) {
			for _, alias := range aliases {
				add(alias)
			}
		}
	}

	painType := strings.ToLower(a.PainType)
	add(painType)
	for trigger, phrases := range v.types {
		if painType != "" && strings.Contains(painType, trigger) {
			for _, p := range phrases {
				add(p)
			}
		}
	}

	for _, s := range a.AdditionalSymptoms {
		add(s)
	}

	duration := strings.ToLower(a.PainDuration)
	for trigger, phrases := range v.duration {
		if duration != "" && strings.Contains(duration, trigger) {
			for _, p := range phrases {
				add(p)
			}
		}
	}

	return terms
}

// SymptomMatch reports whether two phrases refer to the same symptom:
// either string contains the other, or both fall under a shared synonym
// group. Comparison is case-insensitive.
func (v *Vocabulary) SymptomMatch(a, b string) bool {
	a = strings.TrimSpace(strings.ToLower(a))
	b = strings.TrimSpace(strings.ToLower(b))
	if a == "" || b == "" {
		return false
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	return v.SharedGroup(a, b) != ""
}

// SharedGroup returns the key of the first synonym group containing both
// phrases, or "" when no group covers both. Group keys are scanned in
// sorted order so the result is deterministic.
func (v *Vocabulary) SharedGroup(a, b string) string {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	for _, key := range v.GroupKeys() {
		if v.inGroup(key, a) && v.inGroup(key, b) {
			return key
		}
	}
	return ""
}

// GroupKeys returns every synonym-group key in sorted order.
func (v *Vocabulary) GroupKeys() []string {
	keys := make([]string, 0, len(v.groups))
	for k := range v.groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GroupPhrases returns the phrases registered under a group key.
func (v *Vocabulary) GroupPhrases(key string) []string {
	return v.groups[key]
}

// RegionAliases returns the alias set for a region key, or nil when the
// region has no registered aliases.
func (v *Vocabulary) RegionAliases(region string) []string {
	return v.regions[strings.ToLower(region)]
}

func (v *Vocabulary) inGroup(key, term string) bool {
	for _, phrase := range v.groups[key] {
		if strings.Contains(term, phrase) || strings.Contains(phrase, term) {
			return true
		}
	}
	return false
}
