// Package sloghook routes partstore hook events into a slog.Logger, with
// optional sampling to keep noisy faults from flooding the log.
package sloghook

import (
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/partstore"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	ReadBackEvery    uint64
	StoreFaultEvery  uint64
	BlockRejectEvery uint64
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	readBackCtr    atomic.Uint64
	storeFaultCtr  atomic.Uint64
	blockRejectCtr atomic.Uint64
}

var _ partstore.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) ReadBackMiss(kind, partition string) {
	if h.l == nil || !sample(h.opts.ReadBackEvery, &h.readBackCtr) {
		return
	}
	h.l.Error("partstore.readback_miss",
		"kind", kind,
		"partition", partition)
}

func (h *Hooks) PoisonedHandle(op, partition string) {
	if h.l == nil {
		return
	}
	h.l.Warn("partstore.poisoned_handle",
		"op", op,
		"partition", partition)
}

func (h *Hooks) StoreFault(partition, op string, err error) {
	if h.l == nil || !sample(h.opts.StoreFaultEvery, &h.storeFaultCtr) {
		return
	}
	h.l.Warn("partstore.store_fault",
		"partition", partition,
		"op", op,
		"err", err)
}

func (h *Hooks) BlockSetRejected(partition string) {
	if h.l == nil || !sample(h.opts.BlockRejectEvery, &h.blockRejectCtr) {
		return
	}
	h.l.Debug("partstore.block_set_rejected",
		"partition", partition)
}
