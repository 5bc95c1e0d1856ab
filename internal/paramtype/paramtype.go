// Package paramtype implements the closed set of parameter type tags and
// the coercion semantics each one requires.
//
// The validation registry for surface types such as email/url/ip* is
// deliberately a pluggable collaborator: Registry is a plain map from type
// tag to Validator, and the engine only ever depends on the Validator
// interface. DefaultRegistry ships a standard-library-backed implementation
// so the CLI works out of the box; callers may substitute stricter
// validators without touching the engine.
package paramtype

import (
	"fmt"
	"net"
	"net/mail"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Tag is one member of the closed set of parameter type tags.
type Tag string

const (
	TagString   Tag = "str"
	TagInt      Tag = "int"
	TagFloat    Tag = "float"
	TagBool     Tag = "bool"
	TagPath     Tag = "path"
	TagDatetime Tag = "datetime"
	TagURL      Tag = "url"
	TagHostname Tag = "hostname"
	TagEmail    Tag = "email"
	TagIP       Tag = "ip"
	TagIPv4     Tag = "ipv4"
	TagIPv6     Tag = "ipv6"
)

// KnownTags is the closed set of type tags recognised by the engine.
var KnownTags = map[Tag]bool{
	TagString: true, TagInt: true, TagFloat: true, TagBool: true,
	TagPath: true, TagDatetime: true, TagURL: true, TagHostname: true,
	TagEmail: true, TagIP: true, TagIPv4: true, TagIPv6: true,
}

// IsKnown reports whether tag belongs to the closed set. An empty tag
// defaults to str.
func IsKnown(tag string) bool {
	if tag == "" {
		return true
	}
	return KnownTags[Tag(tag)]
}

// Validator coerces a raw string argument into its canonical Go value and
// canonical string form (used by the fingerprinter's args_hash).
type Validator interface {
	// Coerce validates and converts raw into a value of the appropriate Go
	// type, resolved against workingDir where relevant (the "path" tag).
	Coerce(raw string, workingDir string) (any, error)

	// Canonical renders a coerced value back into the canonical textual
	// encoding used for fingerprinting an args_hash.
	Canonical(value any) string
}

// Registry maps a type tag to the Validator responsible for it.
type Registry map[Tag]Validator

// DefaultRegistry returns the standard-library-backed validator set that
// implements every tag in the closed set.
func DefaultRegistry() Registry {
	return Registry{
		TagString:   stringValidator{},
		TagInt:      intValidator{},
		TagFloat:    floatValidator{},
		TagBool:     boolValidator{},
		TagPath:     pathValidator{},
		TagDatetime: datetimeValidator{},
		TagURL:      urlValidator{},
		TagHostname: hostnameValidator{},
		TagEmail:    emailValidator{},
		TagIP:       ipValidator{},
		TagIPv4:     ipv4Validator{},
		TagIPv6:     ipv6Validator{},
	}
}

// Coerce resolves tag (defaulting to str) against reg and coerces raw.
func (reg Registry) Coerce(tag, raw, workingDir string) (any, error) {
	if tag == "" {
		tag = string(TagString)
	}
	v, ok := reg[Tag(tag)]
	if !ok {
		return nil, fmt.Errorf("unknown parameter type %q", tag)
	}
	return v.Coerce(raw, workingDir)
}

// Canonical renders value using tag's validator (defaulting to str).
func (reg Registry) Canonical(tag string, value any) string {
	if tag == "" {
		tag = string(TagString)
	}
	v, ok := reg[Tag(tag)]
	if !ok {
		return fmt.Sprintf("%v", value)
	}
	return v.Canonical(value)
}

type stringValidator struct{}

func (stringValidator) Coerce(raw, _ string) (any, error) { return raw, nil }
func (stringValidator) Canonical(v any) string            { return v.(string) }

type intValidator struct{}

func (intValidator) Coerce(raw, _ string) (any, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("not a valid int: %q", raw)
	}
	return n, nil
}
func (intValidator) Canonical(v any) string { return strconv.FormatInt(v.(int64), 10) }

type floatValidator struct{}

func (floatValidator) Coerce(raw, _ string) (any, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil, fmt.Errorf("not a valid float: %q", raw)
	}
	return f, nil
}
func (floatValidator) Canonical(v any) string {
	return strconv.FormatFloat(v.(float64), 'g', -1, 64)
}

type boolValidator struct{}

func (boolValidator) Coerce(raw, _ string) (any, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "1":
		return true, nil
	case "false", "no", "0":
		return false, nil
	default:
		return nil, fmt.Errorf("not a valid bool: %q", raw)
	}
}
func (boolValidator) Canonical(v any) string {
	if v.(bool) {
		return "1"
	}
	return "0"
}

type pathValidator struct{}

func (pathValidator) Coerce(raw, workingDir string) (any, error) {
	if raw == "" {
		return "", fmt.Errorf("path argument must not be empty")
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw), nil
	}
	return filepath.Clean(filepath.Join(workingDir, raw)), nil
}
func (pathValidator) Canonical(v any) string { return v.(string) }

type datetimeValidator struct{}

func (datetimeValidator) Coerce(raw, _ string) (any, error) {
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("not a valid ISO-8601 datetime: %q", raw)
}
func (datetimeValidator) Canonical(v any) string { return v.(time.Time).UTC().Format(time.RFC3339Nano) }

type urlValidator struct{}

func (urlValidator) Coerce(raw, _ string) (any, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("not a valid URL: %q", raw)
	}
	return u, nil
}
func (urlValidator) Canonical(v any) string { return v.(*url.URL).String() }

type hostnameValidator struct{}

func (hostnameValidator) Coerce(raw, _ string) (any, error) {
	if raw == "" || len(raw) > 253 {
		return nil, fmt.Errorf("not a valid hostname: %q", raw)
	}
	for _, label := range strings.Split(raw, ".") {
		if !isValidRFC1123Label(label) {
			return nil, fmt.Errorf("not a valid hostname: %q", raw)
		}
	}
	return raw, nil
}
func (hostnameValidator) Canonical(v any) string { return strings.ToLower(v.(string)) }

func isValidRFC1123Label(label string) bool {
	if label == "" || len(label) > 63 {
		return false
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for _, r := range label {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-') {
			return false
		}
	}
	return true
}

type emailValidator struct{}

func (emailValidator) Coerce(raw, _ string) (any, error) {
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return nil, fmt.Errorf("not a valid email address: %q", raw)
	}
	return addr.Address, nil
}
func (emailValidator) Canonical(v any) string { return v.(string) }

type ipValidator struct{}

func (ipValidator) Coerce(raw, _ string) (any, error) {
	ip := net.ParseIP(raw)
	if ip == nil {
		return nil, fmt.Errorf("not a valid IP address: %q", raw)
	}
	return ip, nil
}
func (ipValidator) Canonical(v any) string { return v.(net.IP).String() }

type ipv4Validator struct{}

func (ipv4Validator) Coerce(raw, _ string) (any, error) {
	ip := net.ParseIP(raw)
	if ip == nil || ip.To4() == nil {
		return nil, fmt.Errorf("not a valid IPv4 address: %q", raw)
	}
	return ip.To4(), nil
}
func (ipv4Validator) Canonical(v any) string { return v.(net.IP).String() }

type ipv6Validator struct{}

func (ipv6Validator) Coerce(raw, _ string) (any, error) {
	ip := net.ParseIP(raw)
	if ip == nil || ip.To4() != nil {
		return nil, fmt.Errorf("not a valid IPv6 address: %q", raw)
	}
	return ip, nil
}
func (ipv6Validator) Canonical(v any) string { return v.(net.IP).String() }
