// usage:
//
// import (
//
//	"log/slog"
//
//	"github.com/unkn0wn-root/partstore"
//	asynchook "github.com/unkn0wn-root/partstore/hooks/async"
//	"github.com/unkn0wn-root/partstore/hooks/sloghook"
//
// )
//
//	raw := sloghook.New(slog.Default(), sloghook.Options{
//	    ReadBackEvery:   1,  // log every cache readback miss
//	    StoreFaultEvery: 10, // sample store faults: ~every 10th
//	})
//
// hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
// defer hooks.Close()
//
//	store, _ := partstore.New[Token](partstore.Options[Token]{
//	    Backends: factory,
//	    Hooks:    hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"

	"github.com/unkn0wn-root/partstore"
)

type Hooks struct {
	inner partstore.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ partstore.Hooks = (*Hooks)(nil)

func New(inner partstore.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) ReadBackMiss(kind, partition string) {
	h.try(func() { h.inner.ReadBackMiss(kind, partition) })
}
func (h *Hooks) PoisonedHandle(op, partition string) {
	h.try(func() { h.inner.PoisonedHandle(op, partition) })
}
func (h *Hooks) StoreFault(partition, op string, err error) {
	h.try(func() { h.inner.StoreFault(partition, op, err) })
}
func (h *Hooks) BlockSetRejected(partition string) {
	h.try(func() { h.inner.BlockSetRejected(partition) })
}
