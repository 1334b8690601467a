package llm

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
	"github.com/rs/zerolog/log"
)

// Load BPE ranks from the embedded offline loader instead of the network.
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// TokenCounter estimates the token count of a text.
type TokenCounter interface {
	CountTokens(text string) int
}

// tiktokenCounter counts with the cl100k_base encoding.
type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (t *tiktokenCounter) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

// runeCounter is the fallback when the encoding cannot be loaded: roughly
// one token per two Cyrillic characters.
type runeCounter struct{}

func (runeCounter) CountTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + 1) / 2
}

var (
	counterOnce sync.Once
	counter     TokenCounter
)

// DefaultTokenCounter returns the shared tiktoken counter, loaded once.
func DefaultTokenCounter() TokenCounter {
	counterOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			log.Warn().Err(err).Msg("llm: tiktoken unavailable, using rune estimate")
			counter = runeCounter{}
			return
		}
		counter = &tiktokenCounter{enc: enc}
	})
	return counter
}
