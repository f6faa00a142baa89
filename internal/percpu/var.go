package percpu

import "eonixcore/internal/diag"

// Var is a `#[percpu] static NAME: T` of spec.md §4.6: one independently
// mutable copy of T per hart, addressed by the accessing hart's
// identity rather than a linker-placed offset. Get/Set/AsRef/AsMut all
// assert preemption is disabled on h, matching the safety contract: "a
// percpu access is valid only while preemption is disabled on the
// accessing CPU."
type Var[T any] struct {
	slots []T
}

// NewVar constructs a percpu variable with nharts independent copies,
// each initialized to init().
func NewVar[T any](nharts int, init func() T) *Var[T] {
	v := &Var[T]{slots: make([]T, nharts)}
	if init != nil {
		for i := range v.slots {
			v.slots[i] = init()
		}
	}
	return v
}

func (v *Var[T]) assert(h *Hart) {
	diag.Assert(h != nil, "percpu: access with nil hart")
	diag.Assert(!h.Preemptible(), "percpu: access on hart %d with preemption enabled", h.ID)
	diag.Assert(h.ID >= 0 && h.ID < len(v.slots), "percpu: hart %d out of range", h.ID)
}

// Get returns a copy of h's slot.
func (v *Var[T]) Get(h *Hart) T {
	v.assert(h)
	return v.slots[h.ID]
}

// Set overwrites h's slot.
func (v *Var[T]) Set(h *Hart, val T) {
	v.assert(h)
	v.slots[h.ID] = val
}

// AsRef returns a pointer to h's slot, for in-place reads of large
// values without copying.
func (v *Var[T]) AsRef(h *Hart) *T {
	v.assert(h)
	return &v.slots[h.ID]
}

// AsMut is AsRef's mutable-intent spelling; identical in Go, kept
// distinct to mirror the teacher-generation's get/set/as_ref/as_mut
// accessor quartet from spec.md §6.
func (v *Var[T]) AsMut(h *Hart) *T { return v.AsRef(h) }
