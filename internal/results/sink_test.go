package results_test

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxwelfreitas/schwordcloud/internal/results"
	"github.com/maxwelfreitas/schwordcloud/internal/websearch"
)

func TestAppendWritesOneLinePerPayload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sink, err := results.NewSink(dir)
	require.NoError(t, err)

	first := results.Payload{
		Query:      "123450712345",
		SearchedAt: time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
		Results:    []websearch.Result{{Title: "Modem", Snippet: "certified"}},
	}
	second := results.Payload{
		Query:      "999990100001",
		SearchedAt: time.Date(2025, 5, 1, 10, 1, 0, 0, time.UTC),
	}

	digestFirst, err := sink.Append(first)
	require.NoError(t, err)
	digestSecond, err := sink.Append(second)
	require.NoError(t, err)
	assert.NotEqual(t, digestFirst, digestSecond)
	assert.Len(t, digestFirst, 64)

	f, err := os.Open(filepath.Join(dir, results.FileName))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	var lines []results.Payload
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var p results.Payload
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &p))
		lines = append(lines, p)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, lines, 2)
	assert.Equal(t, "123450712345", lines[0].Query)
	assert.Equal(t, "Modem", lines[0].Results[0].Title)
}

func TestAppendDigestIsStable(t *testing.T) {
	t.Parallel()

	sink, err := results.NewSink(t.TempDir())
	require.NoError(t, err)

	payload := results.Payload{
		Query:      "123450712345",
		SearchedAt: time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	a, err := sink.Append(payload)
	require.NoError(t, err)
	b, err := sink.Append(payload)
	require.NoError(t, err)
	assert.Equal(t, a, b, "same payload bytes hash identically")
}
