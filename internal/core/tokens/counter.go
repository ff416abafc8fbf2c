// Package tokens counts model tokens for chunk sizing and reporting.
package tokens

import (
	"log"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens with the cl100k_base encoding. When the encoding
// cannot be loaded (no network, no cache) it falls back to the ~4 chars per
// token estimate; the switch is logged once so the degradation is visible.
type Counter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

func NewCounter() *Counter {
	return &Counter{}
}

func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			log.Printf("tokens: cl100k_base unavailable, using character estimate: %v", err)
			return
		}
		c.enc = enc
	})
	if c.enc != nil {
		return len(c.enc.Encode(text, nil, nil))
	}
	return Approx(text)
}

// Approx is a cheap token estimator (~4 chars per token).
func Approx(s string) int {
	n := len([]rune(s))
	if n <= 0 {
		return 0
	}
	return (n + 3) / 4
}
