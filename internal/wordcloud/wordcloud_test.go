package wordcloud_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxwelfreitas/schwordcloud/internal/annotation"
	"github.com/maxwelfreitas/schwordcloud/internal/websearch"
	"github.com/maxwelfreitas/schwordcloud/internal/wordcloud"
)

func TestExtractTermsCountsAndOrders(t *testing.T) {
	t.Parallel()

	results := []websearch.Result{
		{Title: "Modem router modem", Snippet: "wireless modem antenna"},
		{Title: "Router review", Snippet: "antenna and the router"},
	}

	terms := wordcloud.ExtractTerms(results, 10)
	require.NotEmpty(t, terms)
	assert.Equal(t, annotation.Term{Text: "modem", Weight: 3}, terms[0])
	assert.Equal(t, annotation.Term{Text: "router", Weight: 3}, terms[1], "ties break alphabetically")
	assert.Contains(t, terms, annotation.Term{Text: "antenna", Weight: 2})
}

func TestExtractTermsDropsStopwordsAndNoise(t *testing.T) {
	t.Parallel()

	results := []websearch.Result{
		{Title: "o modem de teste", Snippet: "the modem is certified b2 x1 12345"},
	}

	terms := wordcloud.ExtractTerms(results, 10)
	for _, term := range terms {
		assert.NotContains(t, []string{"o", "de", "the", "is", "b2", "x1", "12345"}, term.Text)
	}
	assert.Contains(t, terms, annotation.Term{Text: "modem", Weight: 2})
}

func TestExtractTermsTruncatesToN(t *testing.T) {
	t.Parallel()

	results := []websearch.Result{
		{Title: "alpha beta gamma delta epsilon", Snippet: "zeta eta theta iota kappa"},
	}

	terms := wordcloud.ExtractTerms(results, 3)
	assert.Len(t, terms, 3)
}

func TestExtractTermsEmptyInput(t *testing.T) {
	t.Parallel()

	assert.Nil(t, wordcloud.ExtractTerms(nil, 10))
	assert.Nil(t, wordcloud.ExtractTerms([]websearch.Result{{Title: "o", Snippet: "de"}}, 10))
}

func TestExtractTermsDeterministic(t *testing.T) {
	t.Parallel()

	results := []websearch.Result{
		{Title: "homologação anatel equipamento", Snippet: "equipamento radio transmissor"},
	}

	first := wordcloud.ExtractTerms(results, 25)
	for range 20 {
		assert.Equal(t, first, wordcloud.ExtractTerms(results, 25))
	}
}
