package auth

import (
	"errors"
	"os/exec"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const goodCookies = "HSID=ALqRa_fZCerZVJzYF; SSID=Asj5yorYk-Zr-smiU; SID=g.a000; SAPISID=ehxTF4-jACAOIp6k/Ax2l7oysalHiZneAB; OTHER=value"

func TestCookieValue(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"SAPISID", "ehxTF4-jACAOIp6k/Ax2l7oysalHiZneAB"},
		{"HSID", "ALqRa_fZCerZVJzYF"},
		{"SID", "g.a000"},
		{"NOTFOUND", ""},
	}
	for _, tt := range tests {
		if got := CookieValue(goodCookies, tt.name); got != tt.want {
			t.Errorf("CookieValue(%s) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := (Credentials{Token: "tok", Cookies: goodCookies}).Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	err := Credentials{Cookies: "SID=x; OTHER=y"}.Validate()
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("Validate() = %v, want ErrMissingCredentials", err)
	}
	var ce *CredentialsError
	if !errors.As(err, &ce) {
		t.Fatalf("Validate() = %T", err)
	}
	want := []string{"auth token", "HSID cookie", "SSID cookie"}
	if diff := cmp.Diff(want, ce.Missing); diff != "" {
		t.Errorf("missing mismatch (-want +got):\n%s", diff)
	}
}

func TestIsSignInURL(t *testing.T) {
	tests := map[string]bool{
		"https://accounts.google.com/v3/signin/identifier": true,
		"https://notebooklm.google.com/":                   false,
		"https://notebooklm.google.com/notebook/abc":       false,
		"https://www.google.com/ServiceLogin?continue=x":   true,
	}
	for u, want := range tests {
		if got := IsSignInURL(u); got != want {
			t.Errorf("IsSignInURL(%q) = %v, want %v", u, got, want)
		}
	}
}

func TestFindBrowser(t *testing.T) {
	onPath := map[string]string{"chromium": "/usr/bin/chromium"}
	lookPath := func(name string) (string, error) {
		if p, ok := onPath[name]; ok {
			return p, nil
		}
		return "", exec.ErrNotFound
	}
	onDisk := map[string]bool{"/opt/brave/brave": true}
	exists := func(p string) bool { return onDisk[p] }

	tests := []struct {
		candidates []string
		want       string
	}{
		{[]string{"google-chrome", "chromium"}, "/usr/bin/chromium"},
		{[]string{"/missing/chrome", "/opt/brave/brave", "chromium"}, "/opt/brave/brave"},
		{[]string{"google-chrome"}, ""},
	}
	for _, tt := range tests {
		if got := findBrowser(tt.candidates, lookPath, exists); got != tt.want {
			t.Errorf("findBrowser(%v) = %q, want %q", tt.candidates, got, tt.want)
		}
	}
}

func TestBrowserCandidates(t *testing.T) {
	for _, goos := range []string{"darwin", "linux", "windows"} {
		if len(browserCandidates(goos)) == 0 {
			t.Errorf("no candidates for %s", goos)
		}
	}
}
