// Package sqlite provides a layout gateway backed by a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/incari/dashgrid/pkg/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS items (
	id        TEXT PRIMARY KEY,
	container TEXT NOT NULL DEFAULT '',
	position  INTEGER NOT NULL,
	name      TEXT NOT NULL DEFAULT '',
	url       TEXT NOT NULL DEFAULT '',
	icon      TEXT NOT NULL DEFAULT '',
	favorite  INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS sections (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL DEFAULT '',
	position  INTEGER NOT NULL,
	collapsed INTEGER NOT NULL DEFAULT 0
);
`

// Gateway implements ports.Gateway over a SQLite database. Every mutation
// runs in one transaction, so a rejected batch leaves no partial state.
type Gateway struct {
	db *sql.DB
}

// Open creates (or opens) the database at path and ensures the schema.
// The modernc.org/sqlite driver name is "sqlite".
func Open(ctx context.Context, path string) (*Gateway, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return &Gateway{db: db}, nil
}

// Close releases the database handle.
func (g *Gateway) Close() error {
	return g.db.Close()
}

// SeedLayout replaces the stored layout wholesale.
func (g *Gateway) SeedLayout(ctx context.Context, layout *domain.Layout) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"items", "sections"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return err
		}
	}
	for _, it := range layout.Items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO items(id, container, position, name, url, icon, favorite) VALUES(?, ?, ?, ?, ?, ?, ?)`,
			it.ID, it.Container, it.Position, it.Name, it.URL, it.Icon, boolInt(it.Favorite)); err != nil {
			return err
		}
	}
	for _, sec := range layout.Sections {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sections(id, name, position, collapsed) VALUES(?, ?, ?, ?)`,
			sec.ID, sec.Name, sec.Position, boolInt(sec.Collapsed)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// BatchReposition applies the triples in one transaction and re-densifies
// every touched container.
func (g *Gateway) BatchReposition(ctx context.Context, placements []domain.ItemPlacement) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if empty, err := tableEmpty(ctx, tx, "items"); err != nil {
		return err
	} else if empty {
		return domain.ErrLayoutNotFound
	}

	touched := map[string]bool{}
	for _, p := range placements {
		var from string
		err := tx.QueryRowContext(ctx, `SELECT container FROM items WHERE id = ?`, p.ItemID).Scan(&from)
		if err == sql.ErrNoRows {
			return fmt.Errorf("reposition %s: %w", p.ItemID, domain.ErrUnknownItem)
		}
		if err != nil {
			return err
		}
		touched[from] = true
		touched[p.Container] = true
	}
	for _, p := range placements {
		if _, err := tx.ExecContext(ctx,
			`UPDATE items SET container = ?, position = ? WHERE id = ?`,
			p.Container, p.Position, p.ItemID); err != nil {
			return err
		}
	}
	for container := range touched {
		if err := densifyContainer(ctx, tx, container); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ReorderSections applies the section positions in one transaction.
func (g *Gateway) ReorderSections(ctx context.Context, placements []domain.SectionPlacement) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range placements {
		res, err := tx.ExecContext(ctx,
			`UPDATE sections SET position = ? WHERE id = ?`, p.Position, p.SectionID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("reorder %s: %w", p.SectionID, domain.ErrUnknownSection)
		}
	}
	return tx.Commit()
}

// FetchCanonicalLayout reads the full layout.
func (g *Gateway) FetchCanonicalLayout(ctx context.Context) (*domain.Layout, error) {
	layout := &domain.Layout{}

	rows, err := g.db.QueryContext(ctx,
		`SELECT id, container, position, name, url, icon, favorite FROM items ORDER BY container, position, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it domain.Item
		var fav int
		if err := rows.Scan(&it.ID, &it.Container, &it.Position, &it.Name, &it.URL, &it.Icon, &fav); err != nil {
			return nil, err
		}
		it.Favorite = fav != 0
		layout.Items = append(layout.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	secRows, err := g.db.QueryContext(ctx,
		`SELECT id, name, position, collapsed FROM sections ORDER BY position, id`)
	if err != nil {
		return nil, err
	}
	defer secRows.Close()
	for secRows.Next() {
		var sec domain.Section
		var collapsed int
		if err := secRows.Scan(&sec.ID, &sec.Name, &sec.Position, &collapsed); err != nil {
			return nil, err
		}
		sec.Collapsed = collapsed != 0
		layout.Sections = append(layout.Sections, sec)
	}
	if err := secRows.Err(); err != nil {
		return nil, err
	}

	if len(layout.Items) == 0 && len(layout.Sections) == 0 {
		return nil, domain.ErrLayoutNotFound
	}
	return layout, nil
}

func densifyContainer(ctx context.Context, tx *sql.Tx, container string) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM items WHERE container = ? ORDER BY position, id`, container)
	if err != nil {
		return err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for i, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`UPDATE items SET position = ? WHERE id = ?`, i, id); err != nil {
			return err
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func tableEmpty(ctx context.Context, tx *sql.Tx, table string) (bool, error) {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return false, err
	}
	return n == 0, nil
}
