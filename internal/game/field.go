package game

import "strings"

// Field is the set of in-flight words. The zero value is an empty field.
// Removal is by identity and idempotent.
type Field struct {
	words  []FallingWord
	nextID uint64
}

// Insert adds a new word at the top of the field and returns it.
func (f *Field) Insert(text string, isTarget bool, x, speed float64) FallingWord {
	f.nextID++
	w := FallingWord{ID: f.nextID, Text: text, IsTarget: isTarget, X: x, Y: 0, Speed: speed}
	f.words = append(f.words, w)
	return w
}

// Remove deletes the word with id. The second result is false when the word
// is no longer (or never was) in the field.
func (f *Field) Remove(id uint64) (FallingWord, bool) {
	for i, w := range f.words {
		if w.ID == id {
			f.words = append(f.words[:i], f.words[i+1:]...)
			return w, true
		}
	}
	return FallingWord{}, false
}

// Advance moves every word down by speed*dt and removes those past height.
// Removed words are returned in field order.
func (f *Field) Advance(dt, height float64) []FallingWord {
	if dt <= 0 {
		return nil
	}
	var fallen []FallingWord
	kept := f.words[:0]
	for _, w := range f.words {
		w.Y += w.Speed * dt
		if w.Y > height {
			fallen = append(fallen, w)
			continue
		}
		kept = append(kept, w)
	}
	f.words = kept
	return fallen
}

// Clear discards every in-flight word and reports how many were dropped.
func (f *Field) Clear() int {
	n := len(f.words)
	f.words = nil
	return n
}

// FindByText returns the lowest (largest Y) word whose text matches text
// case-insensitively.
func (f *Field) FindByText(text string) (FallingWord, bool) {
	text = strings.TrimSpace(text)
	var best FallingWord
	found := false
	for _, w := range f.words {
		if !strings.EqualFold(w.Text, text) {
			continue
		}
		if !found || w.Y > best.Y {
			best, found = w, true
		}
	}
	return best, found
}

// Words returns a copy of the in-flight words.
func (f *Field) Words() []FallingWord {
	out := make([]FallingWord, len(f.words))
	copy(out, f.words)
	return out
}

// Len reports the number of in-flight words.
func (f *Field) Len() int { return len(f.words) }

// clone returns an independent copy so Step never mutates its input.
func (f Field) clone() Field {
	return Field{words: f.Words(), nextID: f.nextID}
}
