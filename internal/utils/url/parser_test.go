package urlutil

import "testing"

func TestValidate(t *testing.T) {
	valid := []string{
		"http://example.com",
		"https://example.com/path",
	}
	for _, u := range valid {
		if err := ValidateURL(u); err != nil {
			t.Fatalf("expected valid, got error: %v", err)
		}
	}

	invalid := []string{"ftp://example.com", "//example.com", "http:///"}
	for _, u := range invalid {
		if err := ValidateURL(u); err == nil {
			t.Fatalf("expected invalid for %s", u)
		}
	}
}

func TestEncodeQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com/a b/c", "https://example.com/a b/c"},
		{"https://example.com/search?q=go lang&page=2", "https://example.com/search?q=go+lang&page=2"},
		{"https://example.com/path with space?k=v/w", "https://example.com/path with space?k=v%2Fw"},
		{"https://example.com/?flag", "https://example.com/?flag="},
		{"https://example.com/?q=a=b", "https://example.com/?q=a%3Db"},
		{"https://example.com/?名=值", "https://example.com/?%E5%90%8D=%E5%80%BC"},
	}
	for _, tt := range tests {
		if got := EncodeQuery(tt.in); got != tt.want {
			t.Errorf("EncodeQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSameHost(t *testing.T) {
	if !SameHost("https://Example.com/a", "http://example.com/b") {
		t.Error("expected same host")
	}
	if SameHost("https://example.com", "https://example.org") {
		t.Error("expected different hosts")
	}
}
