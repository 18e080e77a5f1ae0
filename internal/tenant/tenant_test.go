package tenant

import "testing"

func TestValidSubdomain(t *testing.T) {
	tests := []struct {
		subdomain string
		valid     bool
	}{
		{"marios-bistro", true},
		{"abc", true},
		{"a1b", true},
		{"123", true},
		{"twenty-chars-max-abc", true},
		{"ab", false},
		{"twenty-one-chars-abcd", false},
		{"Marios", false},
		{"-marios", false},
		{"marios-", false},
		{"mario_s", false},
		{"mario.s", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.subdomain, func(t *testing.T) {
			if got := ValidSubdomain(tt.subdomain); got != tt.valid {
				t.Errorf("ValidSubdomain(%q) = %v, want %v", tt.subdomain, got, tt.valid)
			}
		})
	}
}

func TestDatabaseName(t *testing.T) {
	tests := []struct {
		subdomain string
		want      string
	}{
		{"marios-bistro", "bistrokit_tenant_marios_bistro"},
		{"abc", "bistrokit_tenant_abc"},
		{"a-b-c", "bistrokit_tenant_a_b_c"},
	}

	for _, tt := range tests {
		if got := DatabaseName("bistrokit_tenant_", tt.subdomain); got != tt.want {
			t.Errorf("DatabaseName(%q) = %q, want %q", tt.subdomain, got, tt.want)
		}
	}
}
