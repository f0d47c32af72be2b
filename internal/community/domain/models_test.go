package domain

import "testing"

func TestEmailAllowed(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		email    string
		want     bool
	}{
		{"empty allow-list accepts anything", nil, "jane@anywhere.example", true},
		{"suffix pattern matches", []string{"@org.example"}, "jane@org.example", true},
		{"suffix pattern matches subdomain tail", []string{"@org.example"}, "jane@mail.org.example", true},
		{"suffix pattern rejects other domain", []string{"@org.example"}, "jane@other.example", false},
		{"bare domain matches exactly", []string{"org.example"}, "jane@org.example", true},
		{"bare domain rejects subdomain", []string{"org.example"}, "jane@mail.org.example", false},
		{"matching is case-insensitive", []string{"@Org.Example"}, "Jane@ORG.EXAMPLE", true},
		{"address without domain rejected", []string{"@org.example"}, "jane", false},
		{"second pattern can match", []string{"@a.example", "b.example"}, "jane@b.example", true},
		{"blank patterns are skipped", []string{"", "@org.example"}, "jane@org.example", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Community{AllowedEmailPatterns: tt.patterns}
			if got := c.EmailAllowed(tt.email); got != tt.want {
				t.Fatalf("EmailAllowed(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestCategoryEmailRestricted(t *testing.T) {
	for _, category := range []string{"company", "university"} {
		if !CategoryEmailRestricted(category) {
			t.Fatalf("expected %q to be domain-bound", category)
		}
	}
	for _, category := range []string{"", "hobby", "neighborhood"} {
		if CategoryEmailRestricted(category) {
			t.Fatalf("expected %q to be open", category)
		}
	}
}

func TestEmailRestricted(t *testing.T) {
	if (&Community{}).EmailRestricted() {
		t.Fatal("expected unrestricted community")
	}
	if !(&Community{AllowedEmailPatterns: []string{"@x.example"}}).EmailRestricted() {
		t.Fatal("expected restricted community")
	}
	var nilCommunity *Community
	if nilCommunity.EmailRestricted() {
		t.Fatal("expected nil community to be unrestricted")
	}
}
