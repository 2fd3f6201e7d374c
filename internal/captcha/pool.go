package captcha

import (
	"errors"
	"strings"
	"sync"
)

var ErrNoKeys = errors.New("captcha: no usable API keys configured")

// KeyPool hands out API credentials round-robin. It replaces the ambient
// rotation index the original scripts shared through module globals.
type KeyPool struct {
	mu   sync.Mutex
	keys []string
	idx  int
}

// NewKeyPool filters out empty and placeholder entries up front so a bad
// key never reaches the wire.
func NewKeyPool(keys []string) (*KeyPool, error) {
	var valid []string
	for _, k := range keys {
		if k == "" || strings.HasPrefix(k, "YOUR_GEMINI_API_KEY") {
			continue
		}
		valid = append(valid, k)
	}
	if len(valid) == 0 {
		return nil, ErrNoKeys
	}
	return &KeyPool{keys: valid}, nil
}

// Next returns the next key, wrapping at the pool length.
func (p *KeyPool) Next() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := p.keys[p.idx]
	p.idx = (p.idx + 1) % len(p.keys)
	return key
}

func (p *KeyPool) Size() int {
	return len(p.keys)
}
