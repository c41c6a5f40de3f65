// Package roster resolves classes, sections and students, and adds students.
package roster

import (
	"context"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"rollcall/internal/model"
)

// Source is the read side of the attendance API used by the provider.
type Source interface {
	ListClasses(ctx context.Context) ([]string, error)
	ListSections(ctx context.Context, class string) ([]string, error)
	ListStudents(ctx context.Context, class, section string) ([]model.Student, error)
}

// Provider lists roster data. Results are never cached and failures are not retried.
type Provider struct {
	src  Source
	lang language.Tag
}

// NewProvider creates a provider ordering roll numbers by the collation of lang.
func NewProvider(src Source, lang language.Tag) *Provider {
	return &Provider{src: src, lang: lang}
}

// ListClasses returns every class known to the store.
func (p *Provider) ListClasses(ctx context.Context) ([]string, error) {
	return p.src.ListClasses(ctx)
}

// ListSections returns the sections of class. An empty class yields nothing.
func (p *Provider) ListSections(ctx context.Context, class string) ([]string, error) {
	if class == "" {
		return nil, nil
	}
	return p.src.ListSections(ctx, class)
}

// ListStudents returns the roster of class/section ordered by roll number.
func (p *Provider) ListStudents(ctx context.Context, class, section string) ([]model.Student, error) {
	if class == "" || section == "" {
		return nil, nil
	}
	students, err := p.src.ListStudents(ctx, class, section)
	if err != nil {
		return nil, err
	}
	SortByRollNumber(students, p.lang)
	return students, nil
}

// SortByRollNumber orders students by roll number with locale-aware string
// comparison; empty roll numbers sort first. Equal roll numbers keep their order.
func SortByRollNumber(students []model.Student, lang language.Tag) {
	// Collators are not safe for concurrent use.
	c := collate.New(lang)
	sort.SliceStable(students, func(i, j int) bool {
		return c.CompareString(students[i].RollNumber, students[j].RollNumber) < 0
	})
}
