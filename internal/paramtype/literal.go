package paramtype

import (
	"fmt"
	"strings"
)

// ParseLiteral parses a recipe parameter literal of the form
// "name[:type][=default]". The default, if present, is split off before the
// type is inspected since a default value may itself legally contain a
// colon (e.g. a datetime or URL default).
func ParseLiteral(literal string) (name, typeTag string, def *string, err error) {
	rest := literal
	if idx := strings.IndexByte(rest, '='); idx >= 0 {
		d := rest[idx+1:]
		def = &d
		rest = rest[:idx]
	}

	name = rest
	if idx := strings.IndexByte(rest, ':'); idx >= 0 {
		name = rest[:idx]
		typeTag = rest[idx+1:]
	}

	name = strings.TrimSpace(name)
	typeTag = strings.TrimSpace(typeTag)

	if name == "" || !isIdentifier(name) {
		return "", "", nil, fmt.Errorf("invalid parameter name in %q", literal)
	}
	if typeTag != "" && !IsKnown(typeTag) {
		return "", "", nil, fmt.Errorf("unknown parameter type %q in %q", typeTag, literal)
	}
	if def != nil && strings.TrimSpace(*def) == "" {
		return "", "", nil, fmt.Errorf("empty default value in %q", literal)
	}
	return name, typeTag, def, nil
}

func isIdentifier(s string) bool {
	for i, r := range s {
		alpha := r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '_'
		digit := r >= '0' && r <= '9'
		if i == 0 && !alpha {
			return false
		}
		if !alpha && !digit {
			return false
		}
	}
	return len(s) > 0
}
