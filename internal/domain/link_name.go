package domain

import (
	"math/rand/v2"

	"github.com/ad/telegram-linker-bot/internal/encoding"
)

const (
	LinkNamePrefix         = "#"
	LinkNameLength         = 7
	LinkNameFallbackLength = 10

	linkNameAttempts = 5
)

// LinkNameGenerator produces short human-facing link identifiers like "#aB3xQ9z".
// Identifiers are random, not guaranteed unique on their own.
type LinkNameGenerator struct {
	short *encoding.BaseNEncoder
	long  *encoding.BaseNEncoder
	intN  func(n int64) int64
}

// NewLinkNameGenerator creates a generator over the base-62 alphabet
func NewLinkNameGenerator() *LinkNameGenerator {
	short, err := encoding.NewBaseNEncoder(encoding.Base62Alphabet, LinkNameLength)
	if err != nil {
		panic(err)
	}
	long, err := encoding.NewBaseNEncoder(encoding.Base62Alphabet, LinkNameFallbackLength)
	if err != nil {
		panic(err)
	}

	return &LinkNameGenerator{
		short: short,
		long:  long,
		intN:  rand.Int64N,
	}
}

// Generate returns "#" followed by seven base-62 characters
func (g *LinkNameGenerator) Generate() string {
	return g.generate(g.short, LinkNameLength)
}

// GenerateUnique draws identifiers until taken reports false. After a few
// collisions it switches to a longer identifier.
func (g *LinkNameGenerator) GenerateUnique(taken func(name string) bool) string {
	for i := 0; i < linkNameAttempts; i++ {
		name := g.Generate()
		if !taken(name) {
			return name
		}
	}

	for {
		name := g.generate(g.long, LinkNameFallbackLength)
		if !taken(name) {
			return name
		}
	}
}

func (g *LinkNameGenerator) generate(encoder *encoding.BaseNEncoder, length int) string {
	encoded, err := encoder.Encode(g.intN(encoder.Capacity(length)))
	if err != nil {
		panic(err)
	}
	return LinkNamePrefix + encoded
}
