package raster

// DrawableOp is what a renderer does with one drawable line object.
type DrawableOp int

const (
	// OpReuse keeps the existing drawable at Index and updates its data.
	OpReuse DrawableOp = iota
	// OpCreate adds a new drawable at Index.
	OpCreate
	// OpDelete removes the drawable at Index.
	OpDelete
)

func (op DrawableOp) String() string {
	switch op {
	case OpReuse:
		return "reuse"
	case OpCreate:
		return "create"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

// DrawableAction is one step of a reconciliation plan.
type DrawableAction struct {
	Op    DrawableOp
	Index int
	// Label is the group the drawable shows after the action. It is the
	// previous label for OpDelete.
	Label Label
}

// Reconcile plans how a renderer holding one drawable per entry of prev
// reaches one drawable per entry of next.
//
// Drawables are matched by position: the first min(len(prev), len(next))
// are reused, missing ones are created and surplus ones are deleted from the
// end backwards so earlier indexes stay valid.
func Reconcile(prev, next []Label) []DrawableAction {
	actions := make([]DrawableAction, 0, max(len(prev), len(next)))
	shared := min(len(prev), len(next))

	for i := 0; i < shared; i++ {
		actions = append(actions, DrawableAction{Op: OpReuse, Index: i, Label: next[i]})
	}
	for i := shared; i < len(next); i++ {
		actions = append(actions, DrawableAction{Op: OpCreate, Index: i, Label: next[i]})
	}
	for i := len(prev) - 1; i >= shared; i-- {
		actions = append(actions, DrawableAction{Op: OpDelete, Index: i, Label: prev[i]})
	}
	return actions
}
