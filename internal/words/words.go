// internal/words/words.go
//
// Vocabulary bank used as the fallback distractor pool.
//
// Responsibilities:
//   - Load the vocabulary from an environment-provided file or fall back to the embedded default.
//   - Provide lookups (Bank, Contains) and Stats for the debug endpoint.
//
// Initialization behavior (Init):
//   1. If WORDS_BANK_FILE is set, load one word or phrase per line from it.
//   2. Otherwise use the embedded `default_vocabulary.txt`.
//
// Constraints:
//   • Blank lines and lines starting with '#' are ignored.
//   • Entries are trimmed; case is preserved (the sampler compares case-insensitively).
//   • Duplicates (case-insensitive) are dropped, first spelling wins.
//   • Initialization runs once (sync.Once).

package words

import (
	"bufio"
	_ "embed"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
)

//go:embed default_vocabulary.txt
var embeddedVocabulary string

var (
	initOnce   sync.Once
	bank       []string
	bankSet    map[string]struct{} // lowercased entries
	initialErr error
)

// Init loads the vocabulary exactly once.
// Returns an error if the configured file cannot be read or yields no words.
func Init() error {
	initOnce.Do(func() {
		var list []string
		if path := os.Getenv("WORDS_BANK_FILE"); path != "" {
			f, err := os.Open(path)
			if err != nil {
				initialErr = err
				return
			}
			defer f.Close()
			list, err = ReadList(f)
			if err != nil {
				initialErr = err
				return
			}
		} else {
			list, _ = ReadList(strings.NewReader(embeddedVocabulary))
		}

		bank = list
		bankSet = make(map[string]struct{}, len(list))
		for _, w := range list {
			bankSet[strings.ToLower(w)] = struct{}{}
		}
		if len(bank) == 0 {
			initialErr = errors.New("words: vocabulary is empty")
		}
	})
	return initialErr
}

// ReadList parses one entry per line, skipping blanks, comments and
// case-insensitive duplicates.
func ReadList(r io.Reader) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		w := strings.TrimSpace(sc.Text())
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		key := strings.ToLower(w)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, w)
	}
	return out, sc.Err()
}

// Bank returns the loaded vocabulary. Callers must not modify the slice.
func Bank() []string {
	return bank
}

// Contains reports whether w is in the vocabulary (case-insensitive).
func Contains(w string) bool {
	_, ok := bankSet[strings.ToLower(strings.TrimSpace(w))]
	return ok
}

// Stats returns the number of loaded vocabulary entries.
func Stats() int {
	return len(bank)
}
