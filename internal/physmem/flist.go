package physmem

// flist is an intrusive doubly-linked list of frames, threaded through
// Frame.Next/Frame.Prev. The buddy free lists are its only users; the slab
// package links its pages through its own slabPage records and the
// per-CPU magazines keep plain PFN slices.
type flist struct {
	head, tail PFN
	count      int
}

func newFlist() flist { return flist{head: NoPFN, tail: NoPFN} }

func (l *flist) empty() bool { return l.head == NoPFN }

func (l *flist) pushTail(a *Arena, pfn PFN) {
	f := a.Frame(pfn)
	f.Prev = l.tail
	f.Next = NoPFN
	if l.tail != NoPFN {
		a.Frame(l.tail).Next = pfn
	} else {
		l.head = pfn
	}
	l.tail = pfn
	l.count++
}

func (l *flist) popHead(a *Arena) (PFN, bool) {
	if l.head == NoPFN {
		return NoPFN, false
	}
	pfn := l.head
	l.remove(a, pfn)
	return pfn, true
}

func (l *flist) remove(a *Arena, pfn PFN) {
	f := a.Frame(pfn)
	if f.Prev != NoPFN {
		a.Frame(f.Prev).Next = f.Next
	} else {
		l.head = f.Next
	}
	if f.Next != NoPFN {
		a.Frame(f.Next).Prev = f.Prev
	} else {
		l.tail = f.Prev
	}
	f.Next, f.Prev = NoPFN, NoPFN
	l.count--
}
