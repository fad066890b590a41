// Package mbtiles reads tiles and metadata out of a single MBTiles (SQLite)
// archive per the MBTiles 1.3 spec. It is read-only; writing or editing
// MBTiles archives is out of scope for this service.
package mbtiles

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB is a handle to one .mbtiles archive, opened read-only.
type DB struct {
	path string
	conn *sql.DB
}

// Open opens the archive at path and verifies it carries a `tiles` table.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("mbtiles: open %s: %w", path, err)
	}

	var count int
	err = conn.QueryRow("SELECT count(*) FROM sqlite_master WHERE type IN ('table','view') AND name='tiles'").Scan(&count)
	if err != nil || count == 0 {
		conn.Close()
		return nil, fmt.Errorf("mbtiles: %s is not a valid MBTiles archive", path)
	}

	return &DB{path: path, conn: conn}, nil
}

// Path returns the filesystem path this handle was opened from.
func (d *DB) Path() string {
	return d.path
}

// Close releases the underlying SQLite connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Tile fetches the raw tile bytes at the given XYZ coordinate. ok is false
// when the archive has no row for that coordinate (maps to a 204, §7).
func (d *DB) Tile(z, x, y int) (data []byte, ok bool, err error) {
	// MBTiles rows are addressed TMS-style (y grows north); requests arrive XYZ.
	tmsY := (1 << uint(z)) - 1 - y

	err = d.conn.QueryRow(
		"SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?",
		z, x, tmsY,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("mbtiles: tile z=%d x=%d y=%d: %w", z, x, y, err)
	}
	return data, true, nil
}

// Metadata returns the raw name/value rows of the `metadata` table.
func (d *DB) Metadata() (map[string]string, error) {
	rows, err := d.conn.Query("SELECT name, value FROM metadata")
	if err != nil {
		return nil, fmt.Errorf("mbtiles: metadata: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			continue
		}
		meta[key] = value
	}
	return meta, rows.Err()
}
