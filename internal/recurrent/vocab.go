package recurrent

// Vocab maps characters to model indices. Index 0 is the start/end token,
// so letters occupy 1..Len()-1 in order of first appearance.
type Vocab struct {
	letters []rune
	index   map[rune]int
}

// NewVocab collects every character of sentences.
func NewVocab(sentences []string) *Vocab {
	v := &Vocab{letters: []rune{0}, index: make(map[rune]int)}
	for _, s := range sentences {
		for _, r := range s {
			if _, ok := v.index[r]; !ok {
				v.index[r] = len(v.letters)
				v.letters = append(v.letters, r)
			}
		}
	}
	return v
}

func vocabFromLetters(letters string) *Vocab {
	return NewVocab([]string{letters})
}

// Len returns the number of indices including the start/end token.
func (v *Vocab) Len() int { return len(v.letters) }

// Letters returns the characters in index order, without the token.
func (v *Vocab) Letters() string { return string(v.letters[1:]) }

// Index returns the index of r, or false if r is not in the vocabulary.
func (v *Vocab) Index(r rune) (int, bool) {
	i, ok := v.index[r]
	return i, ok
}

// Letter returns the character at index i. It panics for the token or an
// index out of range.
func (v *Vocab) Letter(i int) rune {
	if i <= 0 {
		panic("Vocab.Letter: start/end token has no letter")
	}
	return v.letters[i]
}

// Encode maps s to indices, dropping unknown characters.
func (v *Vocab) Encode(s string) []int {
	out := make([]int, 0, len(s))
	for _, r := range s {
		if i, ok := v.index[r]; ok {
			out = append(out, i)
		}
	}
	return out
}
