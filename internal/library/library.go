// Package library maintains the local cache of notebook metadata and
// reconciles it against the remote notebook listing.
package library

import (
	"slices"
	"time"
)

// Library is the persisted notebook cache.
type Library struct {
	Notebooks map[string]*Entry `json:"notebooks"`
	ActiveID  string            `json:"active_notebook_id,omitempty"`
	LastSync  *time.Time        `json:"last_sync"`
}

// New returns an empty library.
func New() *Library {
	return &Library{Notebooks: make(map[string]*Entry)}
}

// Diff counts the changes made by a reconciliation.
type Diff struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Removed int `json:"removed"`
}

// Changed reports whether any entry was touched.
func (d Diff) Changed() bool {
	return d.Added+d.Updated+d.Removed > 0
}

// Lookup returns the entry for id.
func (l *Library) Lookup(id string) (*Entry, bool) {
	e, ok := l.Notebooks[id]
	return e, ok
}

// IDs returns the cached notebook ids in sorted order.
func (l *Library) IDs() []string {
	ids := make([]string, 0, len(l.Notebooks))
	for id := range l.Notebooks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Entries returns the cached entries ordered by name, then id.
func (l *Library) Entries() []*Entry {
	out := make([]*Entry, 0, len(l.Notebooks))
	for _, id := range l.IDs() {
		out = append(out, l.Notebooks[id])
	}
	slices.SortStableFunc(out, func(a, b *Entry) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out
}

// Upsert inserts e, or refreshes the name and source count of an
// existing entry with the same id. It reports whether e was new.
func (l *Library) Upsert(e Entry) bool {
	if cur, ok := l.Notebooks[e.ID]; ok {
		if cur.Name != e.Name {
			cur.rename(e.Name)
		}
		cur.SourcesCount = e.SourcesCount
		return false
	}
	l.Notebooks[e.ID] = &e
	return true
}

// Remove deletes id and clears the active notebook if it was id.
func (l *Library) Remove(id string) bool {
	if _, ok := l.Notebooks[id]; !ok {
		return false
	}
	delete(l.Notebooks, id)
	if l.ActiveID == id {
		l.ActiveID = ""
	}
	return true
}

// Activate marks id as the active notebook and records the use.
func (l *Library) Activate(id string, now time.Time) error {
	e, ok := l.Notebooks[id]
	if !ok {
		return &NotFoundError{Ref: id}
	}
	l.ActiveID = id
	e.UseCount++
	d := DateOf(now)
	e.LastUsed = &d
	return nil
}

// Active returns the active notebook, if any.
func (l *Library) Active() (*Entry, bool) {
	if l.ActiveID == "" {
		return nil, false
	}
	return l.Lookup(l.ActiveID)
}

// Stale reports whether the library has not been synced within window.
func (l *Library) Stale(now time.Time, window time.Duration) bool {
	return l.LastSync == nil || now.Sub(*l.LastSync) >= window
}

// Reconcile makes the cached set of notebooks match remote.
//
// Entries missing locally are added, entries whose name changed are
// refreshed, and local entries absent from remote are removed. Local
// metadata such as tags and use counts survive. Running Reconcile again
// with the same listing reports no changes.
func (l *Library) Reconcile(remote []Entry) Diff {
	var d Diff
	seen := make(map[string]bool, len(remote))
	for _, r := range remote {
		if r.ID == "" || seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		cur, ok := l.Notebooks[r.ID]
		if !ok {
			e := r
			l.Notebooks[r.ID] = &e
			d.Added++
			continue
		}
		if cur.Name != r.Name {
			cur.rename(r.Name)
			d.Updated++
		}
		cur.SourcesCount = r.SourcesCount
	}
	for _, id := range l.IDs() {
		if !seen[id] {
			l.Remove(id)
			d.Removed++
		}
	}
	if l.ActiveID != "" && l.Notebooks[l.ActiveID] == nil {
		l.ActiveID = ""
	}
	return d
}
