package raster

// UndefinedText is the display text of the [Undefined] label.
const UndefinedText = "<undefined>"

// Label is a category value: either a defined name or Undefined.
type Label struct {
	name    string
	defined bool
}

// Undefined is the label of a missing category value.
var Undefined = Label{}

// Defined returns the label for a named category.
func Defined(name string) Label {
	return Label{name: name, defined: true}
}

// IsDefined reports whether l names a category.
func (l Label) IsDefined() bool { return l.defined }

// Name returns the category name, or "" for Undefined.
func (l Label) Name() string { return l.name }

// String returns the display text used on axes and legends.
func (l Label) String() string {
	if !l.defined {
		return UndefinedText
	}
	return l.name
}

// Labels converts names to defined labels.
func Labels(names ...string) []Label {
	out := make([]Label, len(names))
	for i, n := range names {
		out[i] = Defined(n)
	}
	return out
}

// Optional converts a possibly-nil name pointer to a label.
func Optional(name *string) Label {
	if name == nil {
		return Undefined
	}
	return Defined(*name)
}

// displayTexts returns the String form of every label.
func displayTexts(labels []Label) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = l.String()
	}
	return out
}
