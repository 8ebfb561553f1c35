// Package wordcloud extracts weighted keywords from search-result text.
// Extraction is a pure function of its input: the same results always
// yield the same terms in the same order.
package wordcloud

import (
	"embed"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/maxwelfreitas/schwordcloud/internal/annotation"
	"github.com/maxwelfreitas/schwordcloud/internal/websearch"
)

// DefaultTermCount is how many terms a word cloud keeps.
const DefaultTermCount = 25

//go:embed stopwords_en.txt stopwords_pt.txt
var stopwordFS embed.FS

// tokenPattern matches word-like runs of at least two characters.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

var stopwords = loadStopwords()

func loadStopwords() map[string]struct{} {
	words := make(map[string]struct{})
	for _, name := range []string{"stopwords_en.txt", "stopwords_pt.txt"} {
		data, err := stopwordFS.ReadFile(name)
		if err != nil {
			// Embedded at build time; absence is a programming error.
			panic("wordcloud: missing embedded stopword list " + name)
		}
		for _, line := range strings.Split(string(data), "\n") {
			word := strings.TrimSpace(line)
			if word != "" {
				words[word] = struct{}{}
			}
		}
	}
	return words
}

// ExtractTerms joins the titles and snippets of the results, tokenizes the
// text, drops stopwords and non-alphabetic tokens, and returns the n most
// frequent terms. Ties are broken alphabetically so the output is stable.
func ExtractTerms(results []websearch.Result, n int) []annotation.Term {
	if n <= 0 {
		n = DefaultTermCount
	}

	var sb strings.Builder
	for _, r := range results {
		sb.WriteString(r.Title)
		sb.WriteByte(' ')
		sb.WriteString(r.Snippet)
		sb.WriteByte(' ')
	}

	counts := make(map[string]int)
	for _, token := range tokenPattern.FindAllString(strings.ToLower(sb.String()), -1) {
		if !alphabetic(token) {
			continue
		}
		if _, stop := stopwords[token]; stop {
			continue
		}
		counts[token]++
	}

	terms := make([]annotation.Term, 0, len(counts))
	for text, weight := range counts {
		terms = append(terms, annotation.Term{Text: text, Weight: weight})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Weight != terms[j].Weight {
			return terms[i].Weight > terms[j].Weight
		}
		return terms[i].Text < terms[j].Text
	})
	if len(terms) > n {
		terms = terms[:n]
	}
	if len(terms) == 0 {
		return nil
	}
	return terms
}

func alphabetic(token string) bool {
	for _, r := range token {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
