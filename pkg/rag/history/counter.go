package history

import (
	"strings"
	"unicode/utf8"

	"github.com/tiktoken-go/tokenizer"
)

type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts tokens with the BPE codec of the configured model.
type TiktokenCounter struct {
	codec tokenizer.Codec
}

// NewTiktokenCounter falls back to cl100k_base for models the codec registry does not know.
func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	codec, err := tokenizer.ForModel(tokenizer.Model(model))
	if err != nil {
		codec, err = tokenizer.Get(tokenizer.Cl100kBase)
		if err != nil {
			return nil, err
		}
	}
	return &TiktokenCounter{codec: codec}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	ids, _, err := c.codec.Encode(text)
	if err != nil {
		return ApproxCounter{}.Count(text)
	}
	return len(ids)
}

// ApproxCounter estimates roughly four characters per token.
type ApproxCounter struct{}

func (ApproxCounter) Count(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

// WordCounter counts whitespace separated words; tests use it for predictable budgets.
type WordCounter struct{}

func (WordCounter) Count(text string) int {
	return len(strings.Fields(text))
}
