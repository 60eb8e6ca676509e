package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// TargetEntity identifies which backend entity a field update applies to.
type TargetEntity string

const (
	EntityAccount           TargetEntity = "account"
	EntityFreelancerProfile TargetEntity = "freelancer_profile"
	EntityClientProfile     TargetEntity = "client_profile"
)

// FieldUpdate is a single parsed field assignment, consumed immediately by
// the dispatcher. Value holds the coerced value; Raw the original text.
type FieldUpdate struct {
	Entity TargetEntity
	Field  string
	Raw    string
	Value  interface{}
}

// fieldTable maps human field phrases to backend field names for one entity.
type fieldTable struct {
	entity  TargetEntity
	phrases map[string]string
}

// Table priority: account first, then freelancer profile, then client
// profile. The first table with a matching phrase wins for that phrase; one
// line may still produce updates across tables when distinct phrases match.
var fieldTables = []fieldTable{
	{
		entity: EntityAccount,
		phrases: map[string]string{
			"first name":   "first_name",
			"last name":    "last_name",
			"display name": "display_name",
			"phone":        "phone",
			"email":        "email",
			"country":      "country",
			"city":         "city",
			"language":     "language",
			"bio":          "bio",
		},
	},
	{
		entity: EntityFreelancerProfile,
		phrases: map[string]string{
			"hourly rate":      "hourly_rate",
			"rate":             "hourly_rate",
			"experience":       "experience_years",
			"experience years": "experience_years",
			"skills":           "skills",
			"specialty":        "specialty",
			"title":            "title",
			"portfolio":        "portfolio_url",
			"availability":     "availability",
		},
	},
	{
		entity: EntityClientProfile,
		phrases: map[string]string{
			"company":      "company_name",
			"company name": "company_name",
			"industry":     "industry",
			"website":      "website",
			"budget":       "default_budget",
		},
	},
}

// numericFields are coerced to numbers; everything else passes through as
// text. Business-rule validation (rate ranges and the like) belongs to the
// backend.
var numericFields = map[string]bool{
	"hourly_rate":      true,
	"experience_years": true,
	"default_budget":   true,
}

// setToPattern matches "set/update/change <field-phrase> to <value>".
var setToPattern = regexp.MustCompile(`(?i)(?:set|update|change)\s+(?:my\s+)?(.+?)\s+to\s+(.+)`)

// colonPattern matches "<field>: <value>".
var colonPattern = regexp.MustCompile(`^([^:]{1,40}):\s*(.+)$`)

// MapFields parses field-assignment phrases out of one input line. It
// returns at most one update per entity table, so a single request batch
// can carry up to three updates.
func MapFields(line string) []FieldUpdate {
	phrase, value, ok := splitAssignment(line)
	if !ok {
		return nil
	}

	phrase = strings.ToLower(strings.TrimSpace(phrase))
	value = strings.TrimSpace(value)
	if phrase == "" || value == "" {
		return nil
	}

	var updates []FieldUpdate
	for _, table := range fieldTables {
		field, ok := matchPhrase(table, phrase)
		if !ok {
			continue
		}
		updates = append(updates, FieldUpdate{
			Entity: table.entity,
			Field:  field,
			Raw:    value,
			Value:  coerceValue(field, value),
		})
	}
	return updates
}

// LooksLikeFieldUpdate reports whether a line has the assignment shape even
// if no table phrase matched, so the classifier can ask for clarification.
func LooksLikeFieldUpdate(line string) bool {
	_, _, ok := splitAssignment(line)
	return ok
}

func splitAssignment(line string) (phrase, value string, ok bool) {
	if m := setToPattern.FindStringSubmatch(line); m != nil {
		return m[1], m[2], true
	}
	if m := colonPattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
		return m[1], m[2], true
	}
	return "", "", false
}

// matchPhrase finds the table entry whose phrase occurs in the input
// phrase. Longer phrases are preferred so "hourly rate" beats "rate".
func matchPhrase(table fieldTable, phrase string) (string, bool) {
	best := ""
	bestLen := 0
	for candidate, field := range table.phrases {
		if strings.Contains(phrase, candidate) && len(candidate) > bestLen {
			best = field
			bestLen = len(candidate)
		}
	}
	return best, best != ""
}

func coerceValue(field, raw string) interface{} {
	if !numericFields[field] {
		return raw
	}
	cleaned := strings.TrimFunc(raw, func(r rune) bool {
		return !(r >= '0' && r <= '9') && r != '.' && r != '-'
	})
	if cleaned == "" {
		return raw
	}
	if !strings.Contains(cleaned, ".") {
		if n, err := strconv.Atoi(cleaned); err == nil {
			return n
		}
	}
	if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return f
	}
	return raw
}
