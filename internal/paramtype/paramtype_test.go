package paramtype

import "testing"

func TestRegistry_CoerceKnownTypes(t *testing.T) {
	reg := DefaultRegistry()

	tests := []struct {
		tag  string
		raw  string
		want string // canonical form, or "" to skip the canonical check
	}{
		{"str", "hello", "hello"},
		{"int", "42", "42"},
		{"int", "-7", "-7"},
		{"float", "3.5", "3.5"},
		{"bool", "true", "1"},
		{"bool", "no", "0"},
		{"hostname", "Example.COM", "example.com"},
		{"email", "user@example.com", "user@example.com"},
		{"ip", "127.0.0.1", "127.0.0.1"},
		{"ipv4", "10.0.0.1", "10.0.0.1"},
		{"ipv6", "::1", "::1"},
		{"url", "https://example.com/path", "https://example.com/path"},
	}

	for _, tc := range tests {
		v, err := reg.Coerce(tc.tag, tc.raw, "/work")
		if err != nil {
			t.Errorf("Coerce(%q, %q) returned error: %v", tc.tag, tc.raw, err)
			continue
		}
		if got := reg.Canonical(tc.tag, v); got != tc.want {
			t.Errorf("Canonical(%q, Coerce(%q)) = %q, want %q", tc.tag, tc.raw, got, tc.want)
		}
	}
}

func TestRegistry_CoerceRejectsInvalid(t *testing.T) {
	reg := DefaultRegistry()

	tests := []struct {
		tag string
		raw string
	}{
		{"int", "not-a-number"},
		{"float", "abc"},
		{"bool", "maybe"},
		{"email", "not an email"},
		{"url", "not a url"},
		{"hostname", "-bad-.com"},
		{"ip", "999.999.999.999"},
		{"ipv4", "::1"},
		{"ipv6", "10.0.0.1"},
	}

	for _, tc := range tests {
		if _, err := reg.Coerce(tc.tag, tc.raw, "/work"); err == nil {
			t.Errorf("Coerce(%q, %q) did not return an error", tc.tag, tc.raw)
		}
	}
}

func TestRegistry_CoerceEmptyTagDefaultsToString(t *testing.T) {
	reg := DefaultRegistry()
	v, err := reg.Coerce("", "anything goes", "/work")
	if err != nil {
		t.Fatalf("Coerce with empty tag returned error: %v", err)
	}
	if v != "anything goes" {
		t.Errorf("Coerce with empty tag = %v, want %q", v, "anything goes")
	}
}

func TestPathValidator_ResolvesRelativeAgainstWorkingDir(t *testing.T) {
	reg := DefaultRegistry()
	v, err := reg.Coerce("path", "sub/file.txt", "/work")
	if err != nil {
		t.Fatalf("Coerce returned error: %v", err)
	}
	if v != "/work/sub/file.txt" {
		t.Errorf("Coerce(path) = %v, want %q", v, "/work/sub/file.txt")
	}
}

func TestPathValidator_KeepsAbsolutePathAsIs(t *testing.T) {
	reg := DefaultRegistry()
	v, err := reg.Coerce("path", "/etc/hosts", "/work")
	if err != nil {
		t.Fatalf("Coerce returned error: %v", err)
	}
	if v != "/etc/hosts" {
		t.Errorf("Coerce(path) = %v, want %q", v, "/etc/hosts")
	}
}

func TestIsKnown(t *testing.T) {
	if !IsKnown("") {
		t.Error("IsKnown(\"\") = false, want true (defaults to str)")
	}
	if !IsKnown("int") {
		t.Error("IsKnown(\"int\") = false, want true")
	}
	if IsKnown("not-a-real-type") {
		t.Error("IsKnown(\"not-a-real-type\") = true, want false")
	}
}
