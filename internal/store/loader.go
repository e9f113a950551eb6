package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

// jsonlTableMapping maps JSONL files to tables. Tables load in this order so
// foreign keys always point at rows that already exist.
var jsonlTableMapping = []struct {
	file    string
	table   string
	key     string
	columns []string
}{
	{"classes.jsonl", "classes", "class_id", []string{"class_id", "name", "scope", "description", "created_at", "updated_at"}},
	{"objects.jsonl", "objects", "object_id", []string{"object_id", "class_id", "name", "scope", "data", "created_at", "updated_at"}},
	{"link_types.jsonl", "link_types", "link_type_id", []string{"link_type_id", "source_class_id", "target_class_id", "reverse", "max_links", "scope", "created_at", "updated_at"}},
	{"links.jsonl", "links", "link_id", []string{"link_id", "source_id", "target_id", "link_type_id", "scope", "created_at"}},
}

// Export writes one JSONL file per table into dir from a single snapshot.
func (b *Backend) Export(ctx context.Context, dir string) (err error) {
	ctx, done := b.observe(ctx, "export")
	defer func() { done(err) }()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}

	counts := make(map[string]int, len(jsonlTableMapping))
	err = b.read(ctx, func(q *querier) error {
		for _, m := range jsonlTableMapping {
			records, err := dumpTable(ctx, q, m.table, m.key, m.columns)
			if err != nil {
				return err
			}
			if err := writeJSONL(filepath.Join(dir, m.file), records); err != nil {
				return fmt.Errorf("writing %s: %w", m.file, err)
			}
			counts[m.table] = len(records)
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.logger.Info("export finished", zap.String("dir", dir), zap.Any("rows", counts))
	return nil
}

// Import loads JSONL files from dir in one transaction. Malformed lines are
// skipped and rows whose key already exists are left untouched. The load is
// rolled back with ErrInvariantViolation if the resulting graph fails the
// consistency check.
func (b *Backend) Import(ctx context.Context, dir string) (err error) {
	ctx, done := b.observe(ctx, "import")
	defer func() { done(err) }()

	counts := make(map[string]int, len(jsonlTableMapping))
	err = b.write(ctx, func(q *querier) error {
		for _, m := range jsonlTableMapping {
			records, err := readJSONL(filepath.Join(dir, m.file))
			if err != nil {
				return fmt.Errorf("reading %s: %w", m.file, err)
			}
			n, err := insertRecords(ctx, q, m.table, m.columns, records)
			if err != nil {
				return fmt.Errorf("loading %s into %s: %w", m.file, m.table, err)
			}
			counts[m.table] = n
		}

		report, err := b.checkTx(ctx, q, false)
		if err != nil {
			return err
		}
		if !report.OK() {
			return fmt.Errorf("import of %s leaves %d inconsistent link or link type rows: %w",
				dir, len(report.Violations), types.ErrInvariantViolation)
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.logger.Info("import finished", zap.String("dir", dir), zap.Any("rows", counts))
	return nil
}

func dumpTable(ctx context.Context, q *querier, table, key string, columns []string) ([]json.RawMessage, error) {
	rows, err := q.query(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", strings.Join(columns, ", "), table, key))
	if err != nil {
		return nil, fmt.Errorf("querying %s for export: %w", table, err)
	}
	defer rows.Close()

	records := []json.RawMessage{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table, err)
		}
		rec := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				rec[col] = string(b)
				continue
			}
			rec[col] = values[i]
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("marshaling %s row: %w", table, err)
		}
		records = append(records, data)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s for export: %w", table, err)
	}
	return records, nil
}

// insertRecords inserts records into table and returns how many rows were
// added. Fields outside columns are ignored.
func insertRecords(ctx context.Context, q *querier, table string, columns []string, records []json.RawMessage) (int, error) {
	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
		table, strings.Join(columns, ", "), placeholders(len(columns)))

	added := 0
	for _, rec := range records {
		dec := json.NewDecoder(bytes.NewReader(rec))
		dec.UseNumber()
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			continue
		}

		args := make([]any, len(columns))
		for i, col := range columns {
			args[i] = columnValue(obj[col])
		}
		res, err := q.exec(ctx, insertSQL, args...)
		if err != nil {
			return added, err
		}
		n, _ := res.RowsAffected()
		added += int(n)
	}
	return added, nil
}

// columnValue converts a decoded JSON value into a database argument.
func columnValue(v any) any {
	switch v := v.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		f, _ := v.Float64()
		return f
	case bool:
		return boolToInt(v)
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return string(b)
	}
	return v
}
