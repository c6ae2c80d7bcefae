package naming

import (
	"regexp"
	"strings"
	"testing"
)

func TestRandomSuffix(t *testing.T) {
	re := regexp.MustCompile(`^[0-9a-f]{6}$`)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		s := RandomSuffix()
		if !re.MatchString(s) {
			t.Fatalf("suffix %q does not match %s", s, re)
		}
		seen[s] = true
	}
	if len(seen) < 2 {
		t.Error("suffixes are not random")
	}
}

func TestNames(t *testing.T) {
	if got := ClusterName("", "abc123"); got != "kprotect-abc123" {
		t.Errorf("ClusterName = %q", got)
	}
	if got := ClusterName("demo", "abc123"); got != "demo-abc123" {
		t.Errorf("ClusterName = %q", got)
	}
	if got := ResourceGroupName("c1"); got != "c1-rg" {
		t.Errorf("ResourceGroupName = %q", got)
	}
	if got := NodegroupName("c1"); got != "c1-ng" {
		t.Errorf("NodegroupName = %q", got)
	}
	a := ContextName("aws", "us-east-1", "c1")
	b := ContextName("aws", "us-west-2", "c1")
	if a == b || !strings.HasPrefix(a, "kprotect-aws-c1-") {
		t.Errorf("ContextName: %q, %q", a, b)
	}
}

func TestShortHash(t *testing.T) {
	if got := ShortHash("x", 100); len(got) != 40 {
		t.Errorf("len = %d, want 40", len(got))
	}
	if ShortHash("x", 6) != ShortHash("x", 6) {
		t.Error("hash is not deterministic")
	}
}

func TestValidateClusterName(t *testing.T) {
	cases := []struct {
		provider string
		value    string
		wantErr  bool
	}{
		{"aws", "kprotect-abc123", false},
		{"aws", "My_Cluster", false},
		{"aws", "-bad", true},
		{"aws", strings.Repeat("a", 101), true},
		{"azure", "kprotect-abc123", false},
		{"azure", "Upper", true},
		{"gcp", "kprotect-abc123", false},
		{"gcp", "1cluster", true},
		{"gcp", strings.Repeat("a", 41), true},
		{"aws", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.provider+"/"+tc.value, func(t *testing.T) {
			err := ValidateClusterName(tc.provider, tc.value)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error but got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
