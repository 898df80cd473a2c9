package model

// Category describes one tracked crime type.
type Category struct {
	Key         string `json:"key" yaml:"key" mapstructure:"key"`
	Title       string `json:"title" yaml:"title" mapstructure:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
}

// CategorySet is an ordered, read-only set of categories keyed by Category.Key.
// The zero value is an empty set.
type CategorySet struct {
	list  []Category
	index map[string]int
}

// NewCategorySet copies cats into a new set. Blank keys are dropped and the
// first occurrence of a duplicated key wins.
func NewCategorySet(cats []Category) CategorySet {
	s := CategorySet{index: make(map[string]int, len(cats))}
	for _, c := range cats {
		if c.Key == "" {
			continue
		}
		if _, ok := s.index[c.Key]; ok {
			continue
		}
		s.index[c.Key] = len(s.list)
		s.list = append(s.list, c)
	}
	return s
}

// Len returns the number of categories.
func (s CategorySet) Len() int { return len(s.list) }

// Has reports whether key is a known category.
func (s CategorySet) Has(key string) bool {
	_, ok := s.index[key]
	return ok
}

// Get returns the category for key.
func (s CategorySet) Get(key string) (Category, bool) {
	i, ok := s.index[key]
	if !ok {
		return Category{}, false
	}
	return s.list[i], true
}

// Keys returns category keys in registration order.
func (s CategorySet) Keys() []string {
	out := make([]string, len(s.list))
	for i, c := range s.list {
		out[i] = c.Key
	}
	return out
}

// All returns a copy of the categories in registration order.
func (s CategorySet) All() []Category {
	out := make([]Category, len(s.list))
	copy(out, s.list)
	return out
}
