package encoding

import (
	"errors"
	"math"
	"strings"
)

// Base62Alphabet is the alphabet used for invite link identifiers
const Base62Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var (
	ErrInvalidAlphabet = errors.New("alphabet must contain at least 2 unique characters")
	ErrInvalidLength   = errors.New("length must be positive")
	ErrInvalidInput    = errors.New("input contains invalid characters")
	ErrNegativeNumber  = errors.New("cannot encode negative numbers")
	ErrOverflow        = errors.New("value does not fit into int64")
)

// BaseNEncoder handles encoding and decoding of integers using a custom alphabet
type BaseNEncoder struct {
	alphabet  string
	base      int64
	charMap   map[byte]int64
	minLength int
}

// NewBaseNEncoder creates a new encoder with the specified single-byte alphabet.
// Encoded strings are left-padded with the first alphabet character up to minLength.
func NewBaseNEncoder(alphabet string, minLength int) (*BaseNEncoder, error) {
	if len(alphabet) < 2 {
		return nil, ErrInvalidAlphabet
	}
	if minLength <= 0 {
		return nil, ErrInvalidLength
	}

	charMap := make(map[byte]int64, len(alphabet))
	for i := 0; i < len(alphabet); i++ {
		c := alphabet[i]
		if c >= 0x80 {
			return nil, ErrInvalidAlphabet
		}
		if _, dup := charMap[c]; dup {
			return nil, ErrInvalidAlphabet
		}
		charMap[c] = int64(i)
	}

	return &BaseNEncoder{
		alphabet:  alphabet,
		base:      int64(len(alphabet)),
		charMap:   charMap,
		minLength: minLength,
	}, nil
}

// Base returns the number of symbols in the alphabet
func (e *BaseNEncoder) Base() int {
	return int(e.base)
}

// Capacity returns how many distinct values fit into length symbols,
// capped at math.MaxInt64
func (e *BaseNEncoder) Capacity(length int) int64 {
	capacity := int64(1)
	for i := 0; i < length; i++ {
		if capacity > math.MaxInt64/e.base {
			return math.MaxInt64
		}
		capacity *= e.base
	}
	return capacity
}

// Encode converts an integer to a base-N string using the alphabet
func (e *BaseNEncoder) Encode(num int64) (string, error) {
	if num < 0 {
		return "", ErrNegativeNumber
	}

	buf := make([]byte, 0, e.minLength)
	for num > 0 {
		buf = append(buf, e.alphabet[num%e.base])
		num /= e.base
	}

	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}

	encoded := string(buf)
	if len(encoded) < e.minLength {
		encoded = strings.Repeat(string(e.alphabet[0]), e.minLength-len(encoded)) + encoded
	}

	return encoded, nil
}

// Decode converts a base-N string back to an integer.
// Leading padding characters are ignored.
func (e *BaseNEncoder) Decode(encoded string) (int64, error) {
	if encoded == "" {
		return 0, ErrInvalidInput
	}

	var result int64
	for i := 0; i < len(encoded); i++ {
		value, ok := e.charMap[encoded[i]]
		if !ok {
			return 0, ErrInvalidInput
		}
		if result > (math.MaxInt64-value)/e.base {
			return 0, ErrOverflow
		}
		result = result*e.base + value
	}

	return result, nil
}
