package btlighthouse

// Filter tracks which base station names still await a match. An empty name
// list yields an unrestricted filter that matches every name and never
// completes.
type Filter struct {
	pending map[string]struct{}
}

// NewFilter instantiates a filter from the operator-supplied names, dropping
// duplicates
func NewFilter(names []string) *Filter {
	if len(names) == 0 {
		return &Filter{}
	}

	pending := make(map[string]struct{}, len(names))
	for _, name := range names {
		pending[name] = struct{}{}
	}

	return &Filter{pending: pending}
}

// Completed reports whether every requested name has been matched. An
// unrestricted filter never completes.
func (f *Filter) Completed() bool {
	return f.pending != nil && len(f.pending) == 0
}

// Match consumes name from the pending set and reports whether it was still
// outstanding. An unrestricted filter matches everything without keeping
// state.
func (f *Filter) Match(name string) bool {
	if f.pending == nil {
		return true
	}

	if _, ok := f.pending[name]; !ok {
		return false
	}
	delete(f.pending, name)

	return true
}

// Restore puts a previously consumed name back into the pending set so that a
// later advertisement of the same base station can match again. No-op on an
// unrestricted filter.
func (f *Filter) Restore(name string) {
	if f.pending != nil {
		f.pending[name] = struct{}{}
	}
}
