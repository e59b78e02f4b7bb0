package expr

// QuerySource identifies one from-clause of a query: the item variable
// bound while iterating one sequence.
//
// Query sources are compared by pointer identity. Create them with
// NewQuerySource; the zero value is not useful.
type QuerySource struct {
	name     string
	itemType string
}

// NewQuerySource creates a new query source identity.
// Every call returns a distinct identity, even for equal names.
func NewQuerySource(name, itemType string) *QuerySource {
	return &QuerySource{name: name, itemType: itemType}
}

// Name returns the item name (e.g. "p" in "from Product p in ...").
func (s *QuerySource) Name() string { return s.name }

// ItemType returns the item type name, or "" when unknown.
func (s *QuerySource) ItemType() string { return s.itemType }

func (s *QuerySource) String() string {
	if s == nil {
		return "<nil source>"
	}
	return s.name
}
