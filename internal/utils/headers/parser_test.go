package headers

import (
	"net/http"
	"reflect"
	"testing"
)

func TestParseHeaders(t *testing.T) {
	in := []string{"User-Agent: Bot", "Accept: text/html", "BadHeader", ": empty", "X-Token: a:b"}
	out := ParseHeaders(in)
	expected := map[string]string{"User-Agent": "Bot", "Accept": "text/html", "X-Token": "a:b"}
	if !reflect.DeepEqual(out, expected) {
		t.Fatalf("unexpected parse result: %#v", out)
	}
}

func TestApply(t *testing.T) {
	h := http.Header{}
	h.Set("Accept", "*/*")
	Apply(h, map[string]string{"accept": "application/json", "X-Api-Key": "k"})

	if got := h.Get("Accept"); got != "application/json" {
		t.Errorf("Accept = %q", got)
	}
	if got := h.Get("X-Api-Key"); got != "k" {
		t.Errorf("X-Api-Key = %q", got)
	}
}
