package grid

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Wildcard is the pattern character that accepts any value in an input and
// leaves a cell untouched in an output.
const Wildcard = '*'

// MaxValues is the largest alphabet a grid can carry. Waves are 32-bit.
const MaxValues = 32

// NoValue is returned by tolerant reads that fall outside the grid.
const NoValue byte = 0xff

// Alphabet maps characters to values (their index) and waves (one-hot bits).
//
// Unions are extra symbols whose wave is the OR of several member waves.
// They are valid in rule inputs but have no value of their own.
//
// An Alphabet is owned by one grid; it is never shared as global state.
type Alphabet struct {
	chars  []rune
	values map[rune]byte
	waves  map[rune]uint32
}

// NewAlphabet builds an alphabet from an ordered string of unique characters.
// The string is NFC-normalized first so composed and decomposed forms of the
// same glyph map to the same value.
func NewAlphabet(values string) (*Alphabet, error) {
	values = norm.NFC.String(values)
	chars := []rune(values)
	if len(chars) == 0 {
		return nil, &AlphabetError{Message: "alphabet is empty"}
	}
	if len(chars) > MaxValues {
		return nil, &AlphabetError{Message: fmt.Sprintf("alphabet has %d characters, at most %d allowed", len(chars), MaxValues)}
	}

	a := &Alphabet{
		chars:  chars,
		values: make(map[rune]byte, len(chars)),
		waves:  make(map[rune]uint32, len(chars)+1),
	}
	for i, ch := range chars {
		if ch == Wildcard {
			return nil, &AlphabetError{Char: ch, Message: "wildcard cannot be an alphabet value"}
		}
		if _, dup := a.values[ch]; dup {
			return nil, &AlphabetError{Char: ch, Message: "duplicate character"}
		}
		a.values[ch] = byte(i)
		a.waves[ch] = 1 << uint(i)
	}
	a.waves[Wildcard] = a.AllWave()
	return a, nil
}

// AddUnion registers symbol as shorthand for the set of characters in members.
func (a *Alphabet) AddUnion(symbol rune, members string) error {
	if _, exists := a.waves[symbol]; exists {
		return &AlphabetError{Char: symbol, Message: "union symbol already defined"}
	}
	w, err := a.WaveOf(members)
	if err != nil {
		return err
	}
	a.waves[symbol] = w
	return nil
}

// NumValues returns the number of concrete values.
func (a *Alphabet) NumValues() int {
	return len(a.chars)
}

// AllWave is the wave admitting every value.
func (a *Alphabet) AllWave() uint32 {
	if len(a.chars) == MaxValues {
		return ^uint32(0)
	}
	return (uint32(1) << uint(len(a.chars))) - 1
}

// Value returns the value for ch.
func (a *Alphabet) Value(ch rune) (byte, bool) {
	v, ok := a.values[ch]
	return v, ok
}

// Char returns the character for value v.
func (a *Alphabet) Char(v byte) (rune, bool) {
	if int(v) >= len(a.chars) {
		return 0, false
	}
	return a.chars[v], true
}

// Wave returns the wave for ch. Unions and the wildcard are included.
func (a *Alphabet) Wave(ch rune) (uint32, bool) {
	w, ok := a.waves[ch]
	return w, ok
}

// WaveOf ORs the waves of every character in chars.
func (a *Alphabet) WaveOf(chars string) (uint32, error) {
	var w uint32
	for _, ch := range norm.NFC.String(chars) {
		cw, ok := a.waves[ch]
		if !ok {
			return 0, &AlphabetError{Char: ch, Message: "unknown character"}
		}
		w |= cw
	}
	return w, nil
}

// String returns the alphabet in value order.
func (a *Alphabet) String() string {
	return string(a.chars)
}

// Chars returns a copy of the characters in value order.
func (a *Alphabet) Chars() []rune {
	out := make([]rune, len(a.chars))
	copy(out, a.chars)
	return out
}

// AlphabetError reports an invalid alphabet or an unknown character.
type AlphabetError struct {
	Char    rune
	Message string
}

func (e *AlphabetError) Error() string {
	if e.Char != 0 {
		return fmt.Sprintf("alphabet: %s: %q", e.Message, e.Char)
	}
	return "alphabet: " + e.Message
}

func renderRow(a *Alphabet, row []byte) string {
	var b strings.Builder
	for _, v := range row {
		ch, ok := a.Char(v)
		if !ok {
			ch = '?'
		}
		b.WriteRune(ch)
	}
	return b.String()
}
