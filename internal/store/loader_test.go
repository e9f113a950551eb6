package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

func TestExportImportRoundTrip(t *testing.T) {
	src := setupBackend(t)
	ctx := context.Background()
	building(t, src)
	_, err := src.CreateObject(ctx, types.ObjectSpec{
		Class: "Host", Name: "h3", Scope: "ops", Data: map[string]any{"rack": "A7"},
	})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "export")
	require.NoError(t, src.Export(ctx, dir))
	for _, m := range jsonlTableMapping {
		_, err := os.Stat(filepath.Join(dir, m.file))
		require.NoError(t, err, m.file)
	}
	records, err := readJSONL(filepath.Join(dir, "link_types.jsonl"))
	require.NoError(t, err)
	assert.Len(t, records, 4)

	dst := setupBackend(t)
	require.NoError(t, dst.Import(ctx, dir))

	lt, err := dst.GetLinkType(ctx, "Room", "Host")
	require.NoError(t, err)
	assert.True(t, lt.Reverse)
	assert.Equal(t, 1, lt.MaxLinks)

	h3, err := dst.GetObject(ctx, key("Host", "h3"))
	require.NoError(t, err)
	assert.Equal(t, "A7", h3.Data["rack"])

	res, err := dst.FindReachable(ctx, key("Host", "h1"), types.ReachQuery{TargetClass: "Building", MaxDepth: types.Unbounded})
	require.NoError(t, err)
	assert.Equal(t, []string{"Building/b1"}, terminalNames(res))

	// Capacity still applies after import.
	mustObject(t, dst, "Room", "r2")
	_, err = dst.CreateLink(ctx, types.LinkSpec{Source: key("Host", "h1"), Target: key("Room", "r2"), Scope: "ops"})
	assert.ErrorIs(t, err, types.ErrCapacityExceeded)

	// Importing the same files again adds nothing.
	require.NoError(t, dst.Import(ctx, dir))
	assert.Equal(t, 6, linkRowCount(t, dst))
}

func TestImportRejectsUnpairedLinks(t *testing.T) {
	src := setupBackend(t)
	ctx := context.Background()
	building(t, src)
	dir := t.TempDir()
	require.NoError(t, src.Export(ctx, dir))

	// Drop one link record so its mirror is left unpaired.
	path := filepath.Join(dir, "links.jsonl")
	records, err := readJSONL(path)
	require.NoError(t, err)
	require.NoError(t, writeJSONL(path, records[1:]))

	dst := setupBackend(t)
	err = dst.Import(ctx, dir)
	assert.ErrorIs(t, err, types.ErrInvariantViolation)

	classes, err := dst.ListClasses(ctx)
	require.NoError(t, err)
	assert.Empty(t, classes, "a rejected import is rolled back")
}

func TestImportSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	lines := []string{
		`{"class_id":"c1","name":"Host","scope":"ops","description":"","created_at":"2026-01-02T03:04:05Z","updated_at":"2026-01-02T03:04:05Z","future_field":true}`,
		`{not json`,
		``,
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "classes.jsonl"), []byte(strings.Join(lines, "\n")), 0o644))

	b := setupBackend(t)
	require.NoError(t, b.Import(context.Background(), dir))

	c, err := b.GetClass(context.Background(), "Host")
	require.NoError(t, err)
	assert.Equal(t, "c1", c.ClassID)
}

func TestWriteJSONLAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "links.jsonl")
	recs := []json.RawMessage{json.RawMessage(`{"a":1}`), json.RawMessage(`{"b":2}`)}

	require.NoError(t, writeJSONL(path, recs))
	got, err := readJSONL(path)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")

	missing, err := readJSONL(filepath.Join(dir, "absent.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestColumnValue(t *testing.T) {
	assert.Equal(t, int64(3), columnValue(json.Number("3")))
	assert.Equal(t, 1.5, columnValue(json.Number("1.5")))
	assert.Equal(t, 1, columnValue(true))
	assert.Equal(t, `{"k":"v"}`, columnValue(map[string]any{"k": "v"}))
	assert.Equal(t, "x", columnValue("x"))
	assert.Nil(t, columnValue(nil))
}

func TestImportRejectsLinkUnderForeignType(t *testing.T) {
	src := setupBackend(t)
	ctx := context.Background()
	building(t, src)

	forward, err := src.GetLink(ctx, key("Host", "h1"), key("Room", "r1"))
	require.NoError(t, err)
	roomBuilding, err := src.GetLinkType(ctx, "Room", "Building")
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, src.Export(ctx, dir))

	// Point h1→r1 at the Room→Building type in the exported file.
	path := filepath.Join(dir, "links.jsonl")
	records, err := readJSONL(path)
	require.NoError(t, err)
	for i, rec := range records {
		var row map[string]any
		require.NoError(t, json.Unmarshal(rec, &row))
		if row["link_id"] != forward.LinkID {
			continue
		}
		row["link_type_id"] = roomBuilding.LinkTypeID
		records[i], err = json.Marshal(row)
		require.NoError(t, err)
	}
	require.NoError(t, writeJSONL(path, records))

	dst := setupBackend(t)
	err = dst.Import(ctx, dir)
	assert.ErrorIs(t, err, types.ErrInvariantViolation)
	assert.Zero(t, linkRowCount(t, dst), "a rejected import is rolled back")
}

func TestImportRejectsPairRegisteredBothWays(t *testing.T) {
	src := setupBackend(t)
	ctx := context.Background()
	building(t, src)
	dir := t.TempDir()
	require.NoError(t, src.Export(ctx, dir))

	// Append Room→Host as a second registration of the Host/Room pair.
	path := filepath.Join(dir, "link_types.jsonl")
	records, err := readJSONL(path)
	require.NoError(t, err)
	var extra []json.RawMessage
	for _, rec := range records {
		var row map[string]any
		require.NoError(t, json.Unmarshal(rec, &row))
		row["link_type_id"] = row["link_type_id"].(string) + "-dup"
		row["source_class_id"], row["target_class_id"] = row["target_class_id"], row["source_class_id"]
		dup, err := json.Marshal(row)
		require.NoError(t, err)
		extra = append(extra, dup)
	}
	require.NoError(t, writeJSONL(path, append(records, extra...)))

	dst := setupBackend(t)
	err = dst.Import(ctx, dir)
	assert.ErrorIs(t, err, types.ErrInvariantViolation)
	assert.Zero(t, linkTypeRowCount(t, dst))
}
