package sched

import "gaia.world/internal/sim/entity"

type event[E any] struct {
	seq    uint64
	at     int64
	entity entity.ID
	kind   string
	action Action[E]

	index int // heap slot, -1 once removed
}

// queue orders events by (at, seq): earliest first, FIFO among equal times.
type queue[E any] []*event[E]

func (q queue[E]) Len() int { return len(q) }

func (q queue[E]) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q queue[E]) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *queue[E]) Push(x any) {
	ev := x.(*event[E])
	ev.index = len(*q)
	*q = append(*q, ev)
}

func (q *queue[E]) Pop() any {
	old := *q
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	ev.index = -1
	*q = old[:n-1]
	return ev
}
