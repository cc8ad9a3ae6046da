package keywords

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

const (
	// DefaultMinLength and DefaultMaxLength bound CJK ideograph runs.
	// Katakana runs must be at least DefaultMinLength+1 long.
	DefaultMinLength = 2
	DefaultMaxLength = 6
)

// stopWords are domain-generic parliamentary words that carry no topic.
var stopWords = map[string]struct{}{
	"委員会": {}, "本会議": {}, "政府": {}, "総理": {}, "大臣": {}, "答弁": {}, "質疑": {},
	"報告": {}, "資料": {}, "法律": {}, "制度": {}, "今回": {}, "我が国": {}, "国会": {},
	"議員": {}, "先生": {}, "委員": {}, "議論": {}, "問題": {}, "課題": {}, "対応": {},
	"検討": {}, "実施": {}, "推進": {}, "確認": {}, "説明": {}, "質問": {},
}

// IsStopWord reports whether term is excluded from extraction.
func IsStopWord(term string) bool {
	_, ok := stopWords[term]
	return ok
}

// StopWords returns a copy of the stop-word set as a slice.
func StopWords() []string {
	out := make([]string, 0, len(stopWords))
	for w := range stopWords {
		out = append(out, w)
	}
	return out
}

// patterns holds the two compiled term families for one pair of bounds.
type patterns struct {
	kanji *regexp.Regexp
	kata  *regexp.Regexp
}

var (
	patternMu    sync.Mutex
	patternCache = map[[2]int]*patterns{}
)

func patternsFor(min, max int) *patterns {
	key := [2]int{min, max}
	patternMu.Lock()
	defer patternMu.Unlock()
	if p, ok := patternCache[key]; ok {
		return p
	}
	p := &patterns{
		kanji: regexp.MustCompile(fmt.Sprintf(`[\x{4E00}-\x{9FFF}]{%d,%d}`, min, max)),
		kata:  regexp.MustCompile(fmt.Sprintf(`[ァ-ヴー]{%d,}`, min+1)),
	}
	patternCache[key] = p
	return p
}

// Extract returns candidate terms from text using the default bounds.
func Extract(text string) []string {
	return ExtractBounds(text, DefaultMinLength, DefaultMaxLength)
}

// ExtractBounds returns the CJK ideograph runs of length [min, max] followed by
// the katakana runs of length >= min+1 found in text, minus stop words.
// Each family keeps its own left-to-right order; the two are concatenated,
// not merged by position. Duplicates are kept.
func ExtractBounds(text string, min, max int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	// RE2 caps repetition counts at 1000.
	if min < 1 || max < min || max > 1000 {
		return nil
	}
	p := patternsFor(min, max)

	kanji := p.kanji.FindAllString(text, -1)
	kata := p.kata.FindAllString(text, -1)

	result := make([]string, 0, len(kanji)+len(kata))
	for _, families := range [][]string{kanji, kata} {
		for _, term := range families {
			if IsStopWord(term) {
				continue
			}
			result = append(result, term)
		}
	}
	return result
}
