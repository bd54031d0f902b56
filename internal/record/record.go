package record

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultTitle is stored when a paper is submitted without a title.
	DefaultTitle = "N/A"

	placeholderTitle = "Classified Paper"
	anonymous        = "anonymous"
)

type Record struct {
	ID          string     `json:"id"`
	Title       string     `json:"title,omitempty"`
	Discipline  string     `json:"discipline,omitempty"`
	Methodology string     `json:"methodology,omitempty"`
	Categories  Categories `json:"categories"`
	Abstract    string     `json:"abstract,omitempty"`
	SubmittedBy string     `json:"submittedBy,omitempty"`
	Link        string     `json:"link,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// DisplayTitle returns the title, or a placeholder when the record has none.
func (r Record) DisplayTitle() string {
	if strings.TrimSpace(r.Title) == "" {
		return placeholderTitle
	}
	return r.Title
}

func (r Record) Submitter() string {
	if r.SubmittedBy == "" {
		return anonymous
	}
	return r.SubmittedBy
}

// UnmarshalJSON also accepts the legacy document shape, where categories were
// written twice: as an array under "categoriesArr" and as a comma-separated
// "subfield" string, and the contributor under "userId".
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	aux := struct {
		*plain
		CategoriesArr []string `json:"categoriesArr"`
		Subfield      string   `json:"subfield"`
		UserID        string   `json:"userId"`
	}{plain: (*plain)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("decoding record: %w", err)
	}

	if len(r.Categories) == 0 {
		r.Categories = FromSources(aux.CategoriesArr, aux.Subfield)
	}
	if r.SubmittedBy == "" {
		r.SubmittedBy = aux.UserID
	}
	return nil
}
