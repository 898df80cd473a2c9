package db

import (
	"context"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Merge describes a keyed bulk write into one table.
type Merge struct {
	Table   string   // target table, optionally schema-qualified
	Columns []string // columns of every row, in order
	Keys    []string // columns of the table's unique constraint
	// Update lists the columns overwritten on conflict. Nil means every
	// non-key column; an empty non-nil slice keeps existing rows.
	Update []string
}

func (m Merge) validate() error {
	if len(m.Columns) == 0 {
		return eris.New("db: merge: no columns specified")
	}
	if len(m.Keys) == 0 {
		return eris.New("db: merge: no conflict keys specified")
	}
	return nil
}

// StageTable returns the temp table name Apply stages rows in.
func (m Merge) StageTable() string {
	return "_stage_" + strings.ReplaceAll(m.Table, ".", "_")
}

func (m Merge) updateColumns() []string {
	if m.Update != nil {
		return m.Update
	}
	var cols []string
	for _, c := range m.Columns {
		if !slices.Contains(m.Keys, c) {
			cols = append(cols, c)
		}
	}
	return cols
}

func (m Merge) createStageSQL() string {
	return "CREATE TEMP TABLE " + ident(m.StageTable()) +
		" (LIKE " + qualified(m.Table) + " INCLUDING DEFAULTS) ON COMMIT DROP"
}

// dedupStageSQL keeps the last staged copy of each key.
func (m Merge) dedupStageSQL() string {
	stage := ident(m.StageTable())
	var b strings.Builder
	b.WriteString("DELETE FROM " + stage + " a USING " + stage + " b WHERE a.ctid < b.ctid")
	for _, k := range m.Keys {
		col := ident(k)
		b.WriteString(" AND a." + col + " = b." + col)
	}
	return b.String()
}

func (m Merge) mergeSQL() string {
	cols := identList(m.Columns)
	var b strings.Builder
	b.WriteString("INSERT INTO " + qualified(m.Table) + " (" + cols + ")")
	b.WriteString(" SELECT " + cols + " FROM " + ident(m.StageTable()))
	b.WriteString(" ON CONFLICT (" + identList(m.Keys) + ")")

	update := m.updateColumns()
	if len(update) == 0 {
		b.WriteString(" DO NOTHING")
		return b.String()
	}
	b.WriteString(" DO UPDATE SET ")
	for i, c := range update {
		if i > 0 {
			b.WriteString(", ")
		}
		col := ident(c)
		b.WriteString(col + " = EXCLUDED." + col)
	}
	return b.String()
}

// Apply writes rows in one transaction: COPY into a staging table, drop
// duplicate keys, then INSERT ... ON CONFLICT into the target. It returns
// the rows inserted or updated.
func (m Merge) Apply(ctx context.Context, pool Pool, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := m.validate(); err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: merge: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, m.createStageSQL()); err != nil {
		return 0, eris.Wrapf(err, "db: merge: create staging table for %s", m.Table)
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{m.StageTable()}, m.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: merge: copy into staging table for %s", m.Table)
	}
	if _, err := tx.Exec(ctx, m.dedupStageSQL()); err != nil {
		return 0, eris.Wrapf(err, "db: merge: dedup staging table for %s", m.Table)
	}
	tag, err := tx.Exec(ctx, m.mergeSQL())
	if err != nil {
		return 0, eris.Wrapf(err, "db: merge: insert into %s", m.Table)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: merge: commit tx")
	}
	return tag.RowsAffected(), nil
}

func ident(name string) string { return pgx.Identifier{name}.Sanitize() }

// qualified quotes a table name that may carry a schema prefix.
func qualified(table string) string {
	return pgx.Identifier(strings.SplitN(table, ".", 2)).Sanitize()
}

func identList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = ident(c)
	}
	return strings.Join(quoted, ", ")
}
