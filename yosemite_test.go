package yosemite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T, dir string) *Database {
	t.Helper()
	db, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenIngestQuery(t *testing.T) {
	db := openTestDB(t, t.TempDir())
	ctx := context.Background()

	foxID, err := db.Ingest(ctx, Source{
		URI:  "mem://fox",
		Text: "The quick brown fox jumps over the lazy dog.",
		Metadata: map[string]MetaValue{
			"topic": String("animals"),
			"year":  Number(2021),
		},
	})
	require.NoError(t, err)

	_, err = db.Ingest(ctx, Source{
		URI:  "mem://weather",
		Text: "Rain fell steadily across the northern valley all week.",
	})
	require.NoError(t, err)

	res, err := db.Query(ctx, "quick fox", QueryOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, res.Results)
	require.Empty(t, res.Degraded)
	require.Equal(t, foxID, res.Results[0].Chunk.DocID)

	doc, err := db.Get(foxID)
	require.NoError(t, err)
	require.Equal(t, "mem://fox", doc.URI)
	require.Equal(t, String("animals"), doc.Metadata["topic"])
}

func TestQueryZeroOptionsUseDefaults(t *testing.T) {
	db := openTestDB(t, t.TempDir())
	ctx := context.Background()

	_, err := db.Ingest(ctx, Source{URI: "mem://a", Text: "Plain boring text about nothing in particular."})
	require.NoError(t, err)

	// The zero value is usable; explicit invalid values are not.
	_, err = db.Query(ctx, "boring text", QueryOptions{})
	require.NoError(t, err)

	_, err = db.Query(ctx, "boring text", QueryOptions{TopK: -1})
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = db.Query(ctx, "boring text", QueryOptions{LexicalWeight: -0.5})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDeleteRemovesFromResults(t *testing.T) {
	db := openTestDB(t, t.TempDir())
	ctx := context.Background()

	id, err := db.Ingest(ctx, Source{URI: "mem://victim", Text: "Unique pangolin facts live here."})
	require.NoError(t, err)

	res, err := db.Query(ctx, "pangolin facts", QueryOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, res.Results)

	require.NoError(t, db.Delete(id))

	res, err = db.Query(ctx, "pangolin facts", QueryOptions{})
	require.NoError(t, err)
	require.Empty(t, res.Results)

	_, err = db.Get(id)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, db.Delete(id), ErrNotFound)
}

func TestUpdateMetadata(t *testing.T) {
	db := openTestDB(t, t.TempDir())
	ctx := context.Background()

	id, err := db.Ingest(ctx, Source{URI: "mem://doc", Text: "Some document text."})
	require.NoError(t, err)

	meta := map[string]MetaValue{
		"reviewed": Time(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
		"labels":   Map(map[string]MetaValue{"lang": String("en")}),
	}
	require.NoError(t, db.UpdateMetadata(id, meta))

	doc, err := db.Get(id)
	require.NoError(t, err)
	require.Equal(t, meta, doc.Metadata)
}

func TestListChunksSequenceOrder(t *testing.T) {
	db := openTestDB(t, t.TempDir())
	ctx := context.Background()

	text := "First sentence here. Second sentence follows. Third sentence ends."
	id, err := db.Ingest(ctx, Source{URI: "mem://seq", Text: text})
	require.NoError(t, err)

	chunks, err := db.ListChunks(id)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		require.Equal(t, i, c.Seq)
		require.Equal(t, id, c.DocID)
	}
}

func TestReopenReproducesResults(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := Open(dir)
	require.NoError(t, err)
	_, err = db.Ingest(ctx, Source{URI: "mem://a", Text: "The quick brown fox jumps over the lazy dog."})
	require.NoError(t, err)
	_, err = db.Ingest(ctx, Source{URI: "mem://b", Text: "Dogs sleep through most of the afternoon."})
	require.NoError(t, err)
	_, err = db.Ingest(ctx, Source{URI: "mem://c", Text: "Rain fell steadily across the northern valley."})
	require.NoError(t, err)

	want, err := db.Query(ctx, "lazy dog", QueryOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, want.Results)
	require.NoError(t, db.Close())

	db = openTestDB(t, dir)
	got, err := db.Query(ctx, "lazy dog", QueryOptions{})
	require.NoError(t, err)
	require.Equal(t, want.Results, got.Results)

	st, err := db.Stats()
	require.NoError(t, err)
	require.Equal(t, 3, st.TotalDocs)
}

func TestIngestRollbackLeavesCleanState(t *testing.T) {
	db := openTestDB(t, t.TempDir())
	ctx := context.Background()

	_, err := db.Ingest(ctx, Source{
		URI:      "mem://bad",
		Text:     "text",
		Metadata: map[string]MetaValue{"": String("empty key")},
	})
	require.ErrorIs(t, err, ErrInvalidArgument)

	docs, err := db.ListDocuments()
	require.NoError(t, err)
	require.Empty(t, docs)
}

func TestStats(t *testing.T) {
	db := openTestDB(t, t.TempDir())
	ctx := context.Background()

	st, err := db.Stats()
	require.NoError(t, err)
	require.Zero(t, st.TotalDocs)

	_, err = db.Ingest(ctx, Source{URI: "mem://a", Text: "Counting words in a chunk."})
	require.NoError(t, err)

	st, err = db.Stats()
	require.NoError(t, err)
	require.Equal(t, 1, st.TotalDocs)
	require.Equal(t, 1, st.TotalChunks)
	require.Greater(t, st.AvgChunkLen, 0.0)
}
