// Package store persists model bundles and training reports in SQLite. The
// schema is managed with embedded golang-migrate migrations, applied on
// open.
package store

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/travelogy-data/tripsense/internal/ml"
	"github.com/travelogy-data/tripsense/internal/mode"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a SQLite-backed bundle and report store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path and applies any
// pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrateUp() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	// Note: m is not closed here because that would close the underlying DB
	// connection.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// SaveBundle stores a bundle's encoded artifact, inactive. Activation is a
// separate step so a freshly trained bundle can be persisted before it is
// published.
func (s *Store) SaveBundle(b *ml.Bundle) error {
	artifact, err := b.Encode()
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`INSERT INTO model_bundles (id, created_at, active, artifact) VALUES (?, ?, 0, ?)`,
		b.Version, b.CreatedAt.UTC().Format(time.RFC3339), artifact,
	)
	if err != nil {
		return fmt.Errorf("save bundle %s: %w", b.Version, err)
	}
	return nil
}

// ActivateBundle marks the given bundle as the single active one.
func (s *Store) ActivateBundle(version string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("activate bundle %s: %w", version, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE model_bundles SET active = 0 WHERE active = 1`); err != nil {
		return fmt.Errorf("deactivate previous bundle: %w", err)
	}

	res, err := tx.Exec(`UPDATE model_bundles SET active = 1 WHERE id = ?`, version)
	if err != nil {
		return fmt.Errorf("activate bundle %s: %w", version, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("activate bundle %s: %w", version, err)
	}
	if n == 0 {
		return fmt.Errorf("activate bundle %s: no such bundle", version)
	}

	return tx.Commit()
}

// LoadActiveBundle returns the active bundle, or (nil, nil) when none has
// been activated yet. A stored artifact that fails its consistency check is
// an error, not a silent nil.
func (s *Store) LoadActiveBundle() (*ml.Bundle, error) {
	var artifact []byte
	err := s.db.QueryRow(
		`SELECT artifact FROM model_bundles WHERE active = 1 LIMIT 1`,
	).Scan(&artifact)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load active bundle: %w", err)
	}

	b, err := ml.DecodeBundle(artifact)
	if err != nil {
		return nil, fmt.Errorf("load active bundle: %w", err)
	}
	return b, nil
}

// SaveReport stores a training report.
func (s *Store) SaveReport(report *mode.TrainingReport, at time.Time) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode training report: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO training_reports (bundle_id, status, created_at, report) VALUES (?, ?, ?, ?)`,
		report.BundleVersion, report.Status, at.UTC().Format(time.RFC3339), payload,
	)
	if err != nil {
		return fmt.Errorf("save training report: %w", err)
	}
	return nil
}

// StoredReport is a persisted training report with its storage metadata.
type StoredReport struct {
	ID        int64
	BundleID  string
	Status    string
	CreatedAt time.Time
	Report    *mode.TrainingReport
}

// RecentReports returns up to limit training reports, newest first.
func (s *Store) RecentReports(limit int) ([]StoredReport, error) {
	rows, err := s.db.Query(
		`SELECT id, bundle_id, status, created_at, report
		 FROM training_reports ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list training reports: %w", err)
	}
	defer rows.Close()

	var out []StoredReport
	for rows.Next() {
		var r StoredReport
		var createdAt string
		var payload []byte
		if err := rows.Scan(&r.ID, &r.BundleID, &r.Status, &createdAt, &payload); err != nil {
			return nil, fmt.Errorf("scan training report: %w", err)
		}
		r.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			log.Printf("warning: unparseable report timestamp %q: %v", createdAt, err)
		}
		r.Report = &mode.TrainingReport{}
		if err := json.Unmarshal(payload, r.Report); err != nil {
			return nil, fmt.Errorf("decode training report %d: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
