package keywords

import (
	"reflect"
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "Stop words dropped",
			input:    "消費税について大臣に質問します",
			expected: []string{"消費税"},
		},
		{
			name:     "Long kanji run is chunked by max length",
			input:    "国会議事堂衆議院本会議場",
			expected: []string{"国会議事堂衆", "議院本会議場"},
		},
		{
			name:     "Katakana with long vowel mark",
			input:    "マイナンバーカードの件",
			expected: []string{"マイナンバーカード"},
		},
		{
			name:     "Short katakana and single kanji skipped",
			input:    "ガスと税",
			expected: []string{},
		},
		{
			name:     "Kanji family precedes katakana family",
			input:    "インボイスと消費税",
			expected: []string{"消費税", "インボイス"},
		},
		{
			name:     "Duplicates kept",
			input:    "外国人、外国籍、外国人",
			expected: []string{"外国人", "外国籍", "外国人"},
		},
		{
			name:     "Whitespace only",
			input:    " \n\t　",
			expected: []string{},
		},
		{
			name:     "Empty",
			input:    "",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.input)
			if len(got) == 0 && len(tt.expected) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestExtractBoundsInvalid(t *testing.T) {
	if got := ExtractBounds("消費税", 0, 6); len(got) != 0 {
		t.Fatalf("expected no terms for min=0, got %q", got)
	}
	if got := ExtractBounds("消費税", 4, 3); len(got) != 0 {
		t.Fatalf("expected no terms for max<min, got %q", got)
	}
}

func TestExtractBoundsCustom(t *testing.T) {
	// min=3 raises the katakana floor to 4.
	got := ExtractBounds("防衛費とガソリンとデフレ", 3, 4)
	want := []string{"防衛費", "ガソリン"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestExtractedTermsMatchPatterns(t *testing.T) {
	kanji := regexp.MustCompile(`^[\x{4E00}-\x{9FFF}]{2,6}$`)
	kata := regexp.MustCompile(`^[ァ-ヴー]{3,}$`)
	texts := []string{
		"本日は、政府のエネルギー政策と原子力発電所の再稼働について伺います。",
		"デジタル庁のマイナンバーカード普及策は、委員会でも議論がありました。",
		"地方創生臨時交付金の配分基準を説明してください。ガソリン税のトリガー条項も。",
	}
	for _, text := range texts {
		for _, term := range Extract(text) {
			if !strings.Contains(text, term) {
				t.Errorf("term %q is not a substring of %q", term, text)
			}
			if !kanji.MatchString(term) && !kata.MatchString(term) {
				t.Errorf("term %q matches neither pattern", term)
			}
			if IsStopWord(term) {
				t.Errorf("stop word %q leaked", term)
			}
			if utf8.RuneCountInString(term) < DefaultMinLength {
				t.Errorf("term %q shorter than minimum", term)
			}
		}
	}
}

func TestStopWordsCopy(t *testing.T) {
	words := StopWords()
	if len(words) != len(stopWords) {
		t.Fatalf("expected %d stop words, got %d", len(stopWords), len(words))
	}
	words[0] = "改変"
	if IsStopWord("改変") {
		t.Fatal("StopWords must return a copy")
	}
}
