package quad

import "context"

// ChangeType defines whether a change is an addition or deletion.
type ChangeType bool

const (
	Addition ChangeType = true
	Deletion ChangeType = false
)

func (t ChangeType) String() string {
	if t == Addition {
		return "ADD"
	}
	return "DELETE"
}

// Change represents a single quad addition or deletion. Additions and
// deletions of the same quad are each other's inverse.
type Change struct {
	Quad Quad       `json:"quad"`
	Type ChangeType `json:"type"`
}

func Add(q Quad) Change { return Change{Quad: q, Type: Addition} }

func Delete(q Quad) Change { return Change{Quad: q, Type: Deletion} }

func (c Change) String() string {
	return c.Type.String() + " " + c.Quad.String()
}

// Mutable is anything a Change can act on.
type Mutable interface {
	Add(ctx context.Context, q Quad) error
	Delete(ctx context.Context, q Quad) error
}

// Invert returns the change that undoes c.
func Invert(c Change) Change {
	return Change{Quad: c.Quad, Type: !c.Type}
}

// Apply performs c against m.
func Apply(ctx context.Context, c Change, m Mutable) error {
	if c.Type == Addition {
		return m.Add(ctx, c.Quad)
	}
	return m.Delete(ctx, c.Quad)
}
