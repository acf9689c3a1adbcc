package auth

import (
	"log/slog"
	"strings"
	"sync"
)

// sentinels are values that deployment tooling leaves behind in place of a
// real key; they are treated the same as an absent key.
var sentinels = []string{"", "undefined", "null"}

// KeyRing holds the configured API keys and tracks which one is active.
// Resolve is consulted at the point of use; a rotation only advances the
// ring, the next request observes whether the new key actually works.
type KeyRing struct {
	mu     sync.Mutex
	keys   []string
	active int
}

func NewKeyRing(keys []string) *KeyRing {
	usable := make([]string, 0, len(keys))
	for _, k := range keys {
		if isUsable(k) {
			usable = append(usable, strings.TrimSpace(k))
		}
	}

	slog.Info("API key ring initialized", "configured", len(keys), "usable", len(usable))

	return &KeyRing{keys: usable}
}

// Resolve returns the active key, or ok=false when no usable key is
// configured.
func (r *KeyRing) Resolve() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.keys) == 0 {
		return "", false
	}
	return r.keys[r.active], true
}

// Rotate advances to the next configured key and returns its position,
// 1-based, for user feedback.
func (r *KeyRing) Rotate() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.keys) == 0 {
		return 0
	}
	r.active = (r.active + 1) % len(r.keys)

	slog.Info("switched active API key", "position", r.active+1, "of", len(r.keys))

	return r.active + 1
}

// Len reports how many usable keys the ring holds.
func (r *KeyRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.keys)
}

func isUsable(key string) bool {
	trimmed := strings.TrimSpace(key)
	for _, s := range sentinels {
		if trimmed == s {
			return false
		}
	}
	return true
}
