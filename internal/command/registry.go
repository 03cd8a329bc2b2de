package command

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// maxSuggestDistance bounds how far an unknown id may be from a known
// one before no suggestion is offered.
const maxSuggestDistance = 3

// Registry holds the command table and answers palette queries.
type Registry struct {
	commands []*Command
	byID     map[string]*Command
	ids      []string
}

// NewRegistry indexes the given table. Duplicate ids keep the first
// occurrence.
func NewRegistry(table []*Command) *Registry {
	r := &Registry{
		byID: make(map[string]*Command, len(table)),
	}
	for _, cmd := range table {
		if _, exists := r.byID[cmd.ID]; exists {
			continue
		}
		r.byID[cmd.ID] = cmd
		r.commands = append(r.commands, cmd)
		r.ids = append(r.ids, cmd.ID)
	}
	sort.Strings(r.ids)
	return r
}

// Get returns the command registered under id.
func (r *Registry) Get(id string) (*Command, bool) {
	cmd, ok := r.byID[id]
	return cmd, ok
}

// IDs returns all registered ids in lexical order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Search returns the commands executable in ectx that match query,
// ranked for the palette. Matching is a case-insensitive substring
// test over label, description, category, shortcut and id. Commands
// whose label matches come first; within each group ordering is
// category, then label, then id. An empty query returns every
// executable command in that same ordering.
func (r *Registry) Search(query string, ectx *Context) []Descriptor {
	query = strings.ToLower(strings.TrimSpace(query))

	var labelHits, otherHits []*Command
	for _, cmd := range r.commands {
		if !r.canExecute(cmd, ectx) {
			continue
		}
		if query == "" {
			labelHits = append(labelHits, cmd)
			continue
		}
		switch {
		case strings.Contains(strings.ToLower(cmd.Label), query):
			labelHits = append(labelHits, cmd)
		case r.matchesRest(cmd, query):
			otherHits = append(otherHits, cmd)
		}
	}

	sortCommands(labelHits)
	sortCommands(otherHits)

	out := make([]Descriptor, 0, len(labelHits)+len(otherHits))
	for _, cmd := range labelHits {
		out = append(out, cmd.Descriptor)
	}
	for _, cmd := range otherHits {
		out = append(out, cmd.Descriptor)
	}
	return out
}

func (r *Registry) canExecute(cmd *Command, ectx *Context) bool {
	if cmd.CanExecute == nil {
		return true
	}
	return cmd.CanExecute(ectx) == nil
}

func (r *Registry) matchesRest(cmd *Command, query string) bool {
	for _, field := range []string{cmd.Description, string(cmd.Category), cmd.Shortcut, cmd.ID} {
		if field == "" {
			continue
		}
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// Suggest returns the registered id closest to the given unknown id,
// or "" when nothing is within editing distance. Ties go to the
// lexically smaller id.
func (r *Registry) Suggest(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return ""
	}
	best := ""
	bestDist := maxSuggestDistance + 1
	for _, known := range r.ids {
		d := levenshtein.ComputeDistance(id, known)
		if d < bestDist {
			best = known
			bestDist = d
		}
	}
	return best
}

func sortCommands(cmds []*Command) {
	sort.Slice(cmds, func(i, j int) bool {
		a, b := cmds[i], cmds[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		la, lb := strings.ToLower(a.Label), strings.ToLower(b.Label)
		if la != lb {
			return la < lb
		}
		return a.ID < b.ID
	})
}
