// Package auth checks and captures NotebookLM session credentials.
package auth

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingCredentials reports that no usable session is available.
var ErrMissingCredentials = errors.New("missing credentials")

// RequiredCookies must all be present in an authenticated cookie header.
var RequiredCookies = []string{"SID", "HSID", "SSID"}

// Credentials is a browser session usable for batchexecute calls.
type Credentials struct {
	Token   string // WIZ_global_data.SNlM0e
	Cookies string // cookie header for notebooklm.google.com
}

// CredentialsError explains why stored credentials are unusable.
type CredentialsError struct {
	Missing []string
}

func (e *CredentialsError) Error() string {
	return fmt.Sprintf("missing credentials: %s (run 'nlmflow auth')", strings.Join(e.Missing, ", "))
}

func (e *CredentialsError) Unwrap() error { return ErrMissingCredentials }

// Validate reports whether c looks like an authenticated session. It does
// not contact the service.
func (c Credentials) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Token) == "" {
		missing = append(missing, "auth token")
	}
	for _, name := range RequiredCookies {
		if CookieValue(c.Cookies, name) == "" {
			missing = append(missing, name+" cookie")
		}
	}
	if len(missing) > 0 {
		return &CredentialsError{Missing: missing}
	}
	return nil
}

// CookieValue returns the value of the named cookie in a cookie header.
func CookieValue(cookies, name string) string {
	for _, part := range strings.Split(cookies, ";") {
		part = strings.TrimSpace(part)
		if v, ok := strings.CutPrefix(part, name+"="); ok {
			return v
		}
	}
	return ""
}
