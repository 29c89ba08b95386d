package library

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// BaseURL is the prefix every notebook URL is derived from.
const BaseURL = "https://notebooklm.google.com/notebook"

const dateLayout = "2006-01-02"

// Date is a calendar day, encoded as YYYY-MM-DD.
type Date struct {
	time.Time
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string { return d.Format(dateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		// older files stored full timestamps
		if t, err = time.Parse(time.RFC3339, s); err != nil {
			return fmt.Errorf("parse date %q: %w", s, err)
		}
	}
	*d = DateOf(t)
	return nil
}

// Entry is one cached notebook.
type Entry struct {
	ID           string
	Name         string
	Description  string
	Topics       []string
	UseCases     []string
	Tags         []string
	SourcesCount int
	UseCount     int
	AddedAt      Date
	LastUsed     *Date
}

// NewEntry returns an entry for a notebook first observed on now.
func NewEntry(id, name string, sourcesCount int, now time.Time) Entry {
	return Entry{
		ID:           id,
		Name:         name,
		Description:  describe(name),
		Topics:       []string{"general"},
		UseCases:     []string{"reference"},
		Tags:         []string{},
		SourcesCount: sourcesCount,
		AddedAt:      DateOf(now),
	}
}

// URL returns the notebook's web address.
func (e Entry) URL() string {
	return BaseURL + "/" + e.ID
}

func describe(name string) string {
	return "Notebook: " + name
}

// rename refreshes the name and the fields derived from it.
func (e *Entry) rename(name string) {
	e.Name = name
	e.Description = describe(name)
}

type entryJSON struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	URL          string   `json:"url"`
	Description  string   `json:"description"`
	Topics       []string `json:"topics"`
	UseCases     []string `json:"use_cases"`
	Tags         []string `json:"tags"`
	SourcesCount int      `json:"sources_count"`
	UseCount     int      `json:"use_count"`
	AddedAt      Date     `json:"added_at"`
	LastUsed     *Date    `json:"last_used"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryJSON{
		ID:           e.ID,
		Name:         e.Name,
		URL:          e.URL(),
		Description:  e.Description,
		Topics:       normalizeSet(e.Topics),
		UseCases:     normalizeSet(e.UseCases),
		Tags:         normalizeSet(e.Tags),
		SourcesCount: e.SourcesCount,
		UseCount:     e.UseCount,
		AddedAt:      e.AddedAt,
		LastUsed:     e.LastUsed,
	})
}

// UnmarshalJSON ignores the stored url; it is always derived from the id.
func (e *Entry) UnmarshalJSON(b []byte) error {
	var raw entryJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*e = Entry{
		ID:           raw.ID,
		Name:         raw.Name,
		Description:  raw.Description,
		Topics:       normalizeSet(raw.Topics),
		UseCases:     normalizeSet(raw.UseCases),
		Tags:         normalizeSet(raw.Tags),
		SourcesCount: raw.SourcesCount,
		UseCount:     raw.UseCount,
		AddedAt:      raw.AddedAt,
		LastUsed:     raw.LastUsed,
	}
	return nil
}

func normalizeSet(s []string) []string {
	out := make([]string, 0, len(s))
	for _, v := range s {
		if v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
