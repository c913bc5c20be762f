package folders

import (
	"strings"
	"unicode"
)

var patentNumberStripper = strings.NewReplacer(" ", "", "\t", "", "-", "", "/", "", ",", "", ".", "")

// StandardizePatentNumber canonicalizes a patent or publication number. Separators are removed,
// letters are upper-cased and a leading "No." marker is dropped; the country prefix and kind code
// are kept. The result must contain a digit and only letters and digits.
func StandardizePatentNumber(s string) (string, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = trimNumberMarker(s)
	s = patentNumberStripper.Replace(s)

	hasDigit := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r >= 'A' && r <= 'Z':
		default:
			return "", ErrInvalidPatentNumber
		}
	}
	if !hasDigit {
		return "", ErrInvalidPatentNumber
	}
	return s, nil
}

// trimNumberMarker removes "NO." or "NO " ahead of a number
func trimNumberMarker(s string) string {
	rest, ok := strings.CutPrefix(s, "NO")
	if !ok {
		return s
	}
	if after, dotted := strings.CutPrefix(rest, "."); dotted {
		return strings.TrimSpace(after)
	}
	trimmed := strings.TrimLeftFunc(rest, unicode.IsSpace)
	if len(trimmed) < len(rest) && trimmed != "" && trimmed[0] >= '0' && trimmed[0] <= '9' {
		return trimmed
	}
	return s
}

// normalizePatentIDs standardizes ids and drops duplicates, keeping first-seen order
func normalizePatentIDs(ids []string) (valid, invalid []string) {
	seen := make(map[string]struct{}, len(ids))
	valid = []string{}
	for _, id := range ids {
		std, err := StandardizePatentNumber(id)
		if err != nil {
			if strings.TrimSpace(id) != "" {
				invalid = append(invalid, id)
			}
			continue
		}
		if _, ok := seen[std]; ok {
			continue
		}
		seen[std] = struct{}{}
		valid = append(valid, std)
	}
	return valid, invalid
}

// unionPatentIDs concatenates normalized lists, keeping the first occurrence of each id
func unionPatentIDs(lists ...[]string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, list := range lists {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
