package vision

import "strings"

const (
	minTokenLen    = 4
	maxTokenLen    = 24
	maxCaptionTags = 60
)

var stopWords = map[string]map[string]bool{
	"fr": wordSet("cette", "dans", "avec", "pour", "sont", "très", "plus",
		"comme", "peut", "être", "fait", "tous", "tout"),
	"en": wordSet("this", "that", "with", "from", "have", "been", "were",
		"they", "their", "what", "when", "where", "which", "there", "these",
		"those", "about", "would", "could", "should", "being", "very", "more",
		"some", "into", "also"),
	"es": wordSet("esta", "este", "esto", "esos", "esas", "para", "como",
		"pero", "más", "todo", "todos", "toda", "todas", "puede", "sido",
		"están", "tiene", "tienen", "desde", "donde", "cuando", "sobre",
		"entre", "también", "aunque", "porque", "mientras"),
}

func wordSet(words ...string) map[string]bool {
	s := make(map[string]bool, len(words))
	for _, w := range words {
		s[w] = true
	}
	return s
}

var punctReplacer = strings.NewReplacer(
	".", " ", ",", " ", ";", " ", ":", " ",
	"!", " ", "?", " ", "(", " ", ")", " ",
)

// ExtractTags derives tags from a free-text caption: lowercase, punctuation
// stripped, tokens of 4 to 24 runes kept, language stop words removed,
// duplicates dropped keeping first occurrence, capped at 60 tags.
func ExtractTags(caption, lang string) []string {
	stop, ok := stopWords[lang]
	if !ok {
		stop = stopWords["fr"]
	}

	text := punctReplacer.Replace(strings.ToLower(caption))

	seen := make(map[string]bool)
	tags := make([]string, 0, maxCaptionTags)
	for _, word := range strings.Fields(text) {
		n := len([]rune(word))
		if n < minTokenLen || n > maxTokenLen {
			continue
		}
		if stop[word] || seen[word] {
			continue
		}
		seen[word] = true
		tags = append(tags, word)
		if len(tags) == maxCaptionTags {
			break
		}
	}
	return tags
}
