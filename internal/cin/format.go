package cin

import (
	"fmt"
	"strconv"
	"strings"

	dErrors "cinregistry/pkg/domain-errors"
)

const (
	// SequenceWidth is the zero-padded width of every sequence.
	SequenceWidth = 3
	// MaxSequence is the last sequence a prefix can hold.
	MaxSequence = 999

	dependantMarker = "-D"
)

var planAbbreviations = map[string]string{
	"bronze":   "BR",
	"silver":   "SL",
	"formal":   "FM",
	"enhanced": "EH",
	"equity":   "EQ",
}

// Edo State local government areas.
var lgaAbbreviations = map[string]string{
	"akoko-edo":       "AKE",
	"egor":            "EG",
	"esan-central":    "ESC",
	"esan-north-east": "ESNE",
	"esan-south-east": "ESSE",
	"esan-west":       "ESW",
	"etsako-central":  "ETC",
	"etsako-east":     "ETE",
	"etsako-west":     "ETW",
	"igueben":         "IG",
	"ikpoba-okha":     "IKO",
	"oredo":           "OR",
	"orhionmwon":      "ORH",
	"ovia-north-east": "OVNE",
	"ovia-south-west": "OVSW",
	"owan-east":       "OWE",
	"owan-west":       "OWW",
	"uhunmwonde":      "UH",
}

var (
	knownPlanAbbr = invert(planAbbreviations)
	knownLGAAbbr  = invert(lgaAbbreviations)
)

func invert(m map[string]string) map[string]struct{} {
	out := make(map[string]struct{}, len(m))
	for _, v := range m {
		out[v] = struct{}{}
	}
	return out
}

// NormalizeLGA lowercases name and treats spaces and underscores as hyphens.
func NormalizeLGA(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.NewReplacer(" ", "-", "_", "-").Replace(name)
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}
	return name
}

// IsKnownPlan reports whether plan has an abbreviation.
func IsKnownPlan(plan string) bool {
	_, ok := planAbbreviations[strings.ToLower(strings.TrimSpace(plan))]
	return ok
}

// IsKnownLGA reports whether lga names a known local government area.
func IsKnownLGA(lga string) bool {
	_, ok := lgaAbbreviations[NormalizeLGA(lga)]
	return ok
}

// PlanAbbreviation returns the two-letter code of a plan, case-insensitively.
func PlanAbbreviation(plan string) (string, error) {
	abbr, ok := planAbbreviations[strings.ToLower(strings.TrimSpace(plan))]
	if !ok {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown plan %q", plan)
	}
	return abbr, nil
}

// LGAAbbreviation returns the short code of an LGA after NormalizeLGA.
func LGAAbbreviation(lga string) (string, error) {
	abbr, ok := lgaAbbreviations[NormalizeLGA(lga)]
	if !ok {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown LGA %q", lga)
	}
	return abbr, nil
}

// PrimaryPrefix is the plan abbreviation followed by the LGA abbreviation.
func PrimaryPrefix(plan, lga string) (string, error) {
	p, err := PlanAbbreviation(plan)
	if err != nil {
		return "", err
	}
	l, err := LGAAbbreviation(lga)
	if err != nil {
		return "", err
	}
	return p + l, nil
}

// DependantPrefix is parentCIN followed by the dependant marker.
func DependantPrefix(parentCIN string) (string, error) {
	if err := ValidatePrimary(parentCIN); err != nil {
		return "", err
	}
	return parentCIN + dependantMarker, nil
}

// Format renders prefix and seq as a code.
func Format(prefix string, seq int) (string, error) {
	if seq < 1 {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "sequence must be positive, got %d", seq)
	}
	if seq > MaxSequence {
		return "", dErrors.Newf(dErrors.CodeInvalidState, "sequence space exhausted for prefix %s", prefix)
	}
	return fmt.Sprintf("%s%0*d", prefix, SequenceWidth, seq), nil
}

// ValidatePrimary checks that code is a well-formed primary CIN such as SLOR001.
func ValidatePrimary(code string) error {
	if code == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "parent CIN is required")
	}
	malformed := dErrors.Newf(dErrors.CodeInvalidInput, "malformed CIN %q", code)
	if len(code) < 4+SequenceWidth {
		return malformed
	}

	seqPart := code[len(code)-SequenceWidth:]
	if _, err := strconv.ParseUint(seqPart, 10, 16); err != nil || seqPart == "000" {
		return malformed
	}
	letters := code[:len(code)-SequenceWidth]
	if _, ok := knownPlanAbbr[letters[:2]]; !ok {
		return malformed
	}
	if _, ok := knownLGAAbbr[letters[2:]]; !ok {
		return malformed
	}
	return nil
}

// IsDependant reports whether code carries the dependant marker.
func IsDependant(code string) bool {
	return strings.Contains(code, dependantMarker)
}

// ParentOf returns the primary CIN a dependant code derives from.
func ParentOf(code string) (string, bool) {
	i := strings.LastIndex(code, dependantMarker)
	if i <= 0 {
		return "", false
	}
	return code[:i], true
}
