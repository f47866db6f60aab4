package curation

import (
	"sort"
	"strings"

	"github.com/alphadose/haxmap"
)

// Entry is a stored contribution together with its score and version
// history.
type Entry struct {
	Contribution Contribution `json:"contribution"`
	Score        QualityScore `json:"score"`
	// Versions lists every version seen for this module, oldest first.
	Versions []string `json:"versions"`
}

// Repository is a concurrent store of accepted skill modules, keyed by
// module name.
type Repository struct {
	entries *haxmap.Map[string, Entry]
}

func NewRepository() *Repository {
	return &Repository{entries: haxmap.New[string, Entry]()}
}

// Put stores or updates a module, tracking the version history.
func (r *Repository) Put(c Contribution, score QualityScore) Entry {
	entry := Entry{Contribution: c, Score: score, Versions: []string{c.Version}}
	if prev, ok := r.entries.Get(c.Name); ok {
		versions := prev.Versions
		if len(versions) == 0 || versions[len(versions)-1] != c.Version {
			versions = append(versions, c.Version)
		}
		entry.Versions = versions
	}
	r.entries.Set(c.Name, entry)
	return entry
}

// Get returns the current entry for a module name.
func (r *Repository) Get(name string) (Entry, bool) {
	return r.entries.Get(name)
}

// Len reports the number of stored modules.
func (r *Repository) Len() int {
	return int(r.entries.Len())
}

// Search matches modules by tag or by a case-insensitive substring of the
// name or description. Results are sorted by quality score, best first.
func (r *Repository) Search(query string) []Entry {
	query = strings.ToLower(strings.TrimSpace(query))

	var results []Entry
	r.entries.ForEach(func(_ string, e Entry) bool {
		if query == "" || matches(e.Contribution, query) {
			results = append(results, e)
		}
		return true
	})

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score.Score != results[j].Score.Score {
			return results[i].Score.Score > results[j].Score.Score
		}
		return results[i].Contribution.Name < results[j].Contribution.Name
	})
	return results
}

func matches(c Contribution, query string) bool {
	for _, tag := range c.Tags {
		if strings.ToLower(tag) == query {
			return true
		}
	}
	return strings.Contains(strings.ToLower(c.Name), query) ||
		strings.Contains(strings.ToLower(c.Description), query)
}
