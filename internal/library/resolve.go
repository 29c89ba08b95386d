package library

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
)

const notebookPath = "notebooklm.google.com/notebook/"

// Resolve maps a user-supplied notebook reference to a notebook id.
//
// A notebook URL is reduced to its id. A complete id is returned as is.
// Anything else is a prefix of the cached ids: a unique match returns
// the full id, several matches fail with *AmbiguousReferenceError, and
// no match returns ref unchanged so the remote service can judge it.
//
// Resolve performs no I/O.
func Resolve(ref string, lib *Library) (string, error) {
	ref = strings.TrimSpace(ref)
	if id, ok := idFromURL(ref); ok {
		ref = id
	}
	if IsCanonicalID(ref) {
		return ref, nil
	}
	var match string
	n := 0
	for id := range lib.Notebooks {
		if strings.HasPrefix(id, ref) {
			match = id
			n++
		}
	}
	switch n {
	case 0:
		return ref, nil
	case 1:
		return match, nil
	default:
		return "", &AmbiguousReferenceError{Ref: ref, Matches: n}
	}
}

// ResolveOrActive is Resolve, except that an empty reference or the word
// "active" selects the active notebook.
func ResolveOrActive(ref string, lib *Library) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || ref == "active" {
		e, ok := lib.Active()
		if !ok {
			return "", &NotFoundError{}
		}
		return e.ID, nil
	}
	return Resolve(ref, lib)
}

// IsCanonicalID reports whether s has the shape of a full notebook id.
func IsCanonicalID(s string) bool {
	if len(s) != 36 || strings.Count(s, "-") != 4 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func idFromURL(s string) (string, bool) {
	i := strings.Index(s, notebookPath)
	if i < 0 {
		return "", false
	}
	raw := s
	if !strings.Contains(s, "://") {
		raw = "https://" + s[i:]
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	_, id, ok := strings.Cut(strings.Trim(u.Path, "/"), "notebook/")
	if !ok {
		return "", false
	}
	id, _, _ = strings.Cut(id, "/")
	if id == "" {
		return "", false
	}
	return id, true
}
