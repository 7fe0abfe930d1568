package raster

// Categorical is a per-event categorical assignment.
//
// Values holds one label per event. Categories optionally declares the
// category set up front; declared categories keep their declared position
// even when no event uses them.
type Categorical struct {
	Values     []Label
	Categories []string
}

// NewCategorical builds a Categorical from names, treating "" as Undefined.
func NewCategorical(names ...string) Categorical {
	values := make([]Label, len(names))
	for i, n := range names {
		if n != "" {
			values[i] = Defined(n)
		}
	}
	return Categorical{Values: values}
}

// Len returns the number of per-event values.
func (c Categorical) Len() int { return len(c.Values) }

// IsEmpty reports whether the assignment has no values.
func (c Categorical) IsEmpty() bool { return len(c.Values) == 0 }

// HasUndefined reports whether any value is Undefined.
func (c Categorical) HasUndefined() bool {
	for _, v := range c.Values {
		if !v.IsDefined() {
			return true
		}
	}
	return false
}

// CategorySet is an ordered set of distinct defined labels with an index
// lookup table. It is computed once per call and shared by alignment and
// layout.
type CategorySet struct {
	labels []Label
	index  map[string]int
}

// NewCategorySet collects the distinct categories of c: declared categories
// first, then undeclared values in first-seen order.
func NewCategorySet(c Categorical) CategorySet {
	s := CategorySet{index: make(map[string]int, len(c.Categories))}
	for _, name := range c.Categories {
		s.add(name)
	}
	for _, v := range c.Values {
		if v.IsDefined() {
			s.add(v.Name())
		}
	}
	return s
}

func (s *CategorySet) add(name string) {
	if _, ok := s.index[name]; ok {
		return
	}
	s.index[name] = len(s.labels)
	s.labels = append(s.labels, Defined(name))
}

// Len returns the number of distinct categories.
func (s CategorySet) Len() int { return len(s.labels) }

// Labels returns a copy of the ordered categories.
func (s CategorySet) Labels() []Label {
	out := make([]Label, len(s.labels))
	copy(out, s.labels)
	return out
}

// Position returns the 1-based position of l, or 0 if l is Undefined or
// not part of the set.
func (s CategorySet) Position(l Label) int {
	if !l.IsDefined() {
		return 0
	}
	i, ok := s.index[l.Name()]
	if !ok {
		return 0
	}
	return i + 1
}

// Codes maps every value to its 1-based position (0 for Undefined).
func (s CategorySet) Codes(values []Label) []int {
	codes := make([]int, len(values))
	for i, v := range values {
		codes[i] = s.Position(v)
	}
	return codes
}

// trialIndex is the row lookup shared by Align and BuildLayout.
type trialIndex struct {
	set   CategorySet
	codes []int // 1-based row per event, 0 for undefined
	count int   // number of rows used for reference-length checks
	empty bool  // trials were not supplied
}

func newTrialIndex(trials Categorical, n int) trialIndex {
	if trials.IsEmpty() {
		codes := make([]int, n)
		for i := range codes {
			codes[i] = 1
		}
		return trialIndex{codes: codes, count: 1, empty: true}
	}
	set := NewCategorySet(trials)
	return trialIndex{set: set, codes: set.Codes(trials.Values), count: set.Len()}
}

// rows returns the y-axis category order, synthesizing a placeholder row
// when there are no categories.
func (t trialIndex) rows() []Label {
	if t.empty || t.set.Len() == 0 {
		return []Label{Undefined}
	}
	return t.set.Labels()
}
