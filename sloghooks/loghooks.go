// Package sloghooks reports asyncdata hook events through log/slog.
// Keys can carry user identifiers (fetch keys hash query strings, cookie
// routes carry paths), so they are redacted by default.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/asyncdata"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SupersededEvery uint64
	ReusedEvery     uint64
	SelfHealEvery   uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	supersededCtr atomic.Uint64
	reusedCtr     atomic.Uint64
	selfHealCtr   atomic.Uint64
}

var _ asyncdata.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) ExecutionSuperseded(key string) {
	if h.l == nil || !sample(h.opts.SupersededEvery, &h.supersededCtr) {
		return
	}
	h.l.Debug("asyncdata.execution_superseded", "key", h.redact(key))
}

func (h *Hooks) ExecutionFailed(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("asyncdata.execution_failed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) HydrationReused(key string) {
	if h.l == nil || !sample(h.opts.ReusedEvery, &h.reusedCtr) {
		return
	}
	h.l.Debug("asyncdata.hydration_reused", "key", h.redact(key))
}

func (h *Hooks) GenError(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("asyncdata.gen_error",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) PayloadSelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("asyncdata.payload_self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) ProviderSetRejected(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("asyncdata.provider_set_rejected", "key", h.redact(storageKey))
}
