package results

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

// Header is the CSV header row.
var Header = []string{"branch_id", "skeleton_id", "branch_type", "euclidean_length", "coordinates"}

// Sink persists the full accumulated table on every Write.
type Sink interface {
	Write(table Table) error
	Close() error
}

// NewSink returns a SQLite sink for .db, .sqlite and .sqlite3 destinations
// and a CSV sink for everything else.
func NewSink(destination string) Sink {
	switch strings.ToLower(filepath.Ext(destination)) {
	case ".db", ".sqlite", ".sqlite3":
		return &SQLiteSink{path: destination}
	default:
		return &CSVSink{path: destination}
	}
}

// CSVSink rewrites the whole table on every Write. The file is replaced by
// rename, so a failed write leaves the previous content intact.
type CSVSink struct {
	path string
}

func (s *CSVSink) Write(table Table) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := WriteCSV(tmp, table); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	// CreateTemp uses 0600; the table should stay readable like a plain file.
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

func (s *CSVSink) Close() error { return nil }

// WriteCSV encodes table with a header row.
func WriteCSV(w io.Writer, table Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range table {
		row := []string{
			strconv.Itoa(r.BranchID),
			strconv.Itoa(r.SkeletonID),
			r.Type.String(),
			strconv.FormatFloat(r.Length, 'f', 6, 64),
			FormatCoordinates(r.Coordinates),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV decodes a table written by WriteCSV.
func ReadCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, name := range Header {
		if header[i] != name {
			return nil, fmt.Errorf("column %d is %q, want %q", i, header[i], name)
		}
	}

	var table Table
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			return table, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		table = append(table, rec)
	}
}

func parseRow(row []string) (BranchRecord, error) {
	var rec BranchRecord
	var err error
	if rec.BranchID, err = strconv.Atoi(row[0]); err != nil {
		return rec, fmt.Errorf("branch_id: %w", err)
	}
	if rec.SkeletonID, err = strconv.Atoi(row[1]); err != nil {
		return rec, fmt.Errorf("skeleton_id: %w", err)
	}
	if rec.Type, err = ParseBranchType(row[2]); err != nil {
		return rec, err
	}
	if rec.Length, err = strconv.ParseFloat(row[3], 64); err != nil {
		return rec, fmt.Errorf("euclidean_length: %w", err)
	}
	if rec.Coordinates, err = ParseCoordinates(row[4]); err != nil {
		return rec, err
	}
	return rec, nil
}

// ReadCSVFile opens path and decodes it with ReadCSV.
func ReadCSVFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

const (
	createBranchesTable = `CREATE TABLE branches (
	row_id           INTEGER PRIMARY KEY,
	branch_id        INTEGER NOT NULL,
	skeleton_id      INTEGER NOT NULL,
	branch_type      TEXT    NOT NULL,
	euclidean_length REAL    NOT NULL,
	coordinates      TEXT    NOT NULL
)`
	insertBranch = `INSERT INTO branches
	(row_id, branch_id, skeleton_id, branch_type, euclidean_length, coordinates)
	VALUES (?, ?, ?, ?, ?, ?)`
)

// SQLiteSink persists append-only: the first Write recreates the branches
// table, later writes insert only rows not yet committed. The watermark moves
// only after a successful commit.
type SQLiteSink struct {
	path        string
	db          *sql.DB
	written     int
	initialized bool
}

func (s *SQLiteSink) Write(table Table) error {
	if s.db == nil {
		db, err := sql.Open("sqlite", s.path)
		if err != nil {
			return fmt.Errorf("open %s: %w", s.path, err)
		}
		s.db = db
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if !s.initialized {
		if _, err := tx.Exec(`DROP TABLE IF EXISTS branches`); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
		if _, err := tx.Exec(createBranchesTable); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	stmt, err := tx.Prepare(insertBranch)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := s.written; i < len(table); i++ {
		r := table[i]
		if _, err := stmt.Exec(i+1, r.BranchID, r.SkeletonID, r.Type.String(), r.Length, FormatCoordinates(r.Coordinates)); err != nil {
			return fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.initialized = true
	s.written = len(table)
	return nil
}

func (s *SQLiteSink) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// ReadSQLite loads every row of a table written by SQLiteSink, in insertion order.
func ReadSQLite(path string) (Table, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(`SELECT branch_id, skeleton_id, branch_type, euclidean_length, coordinates
		FROM branches ORDER BY row_id`)
	if err != nil {
		return nil, fmt.Errorf("query branches: %w", err)
	}
	defer rows.Close()

	var table Table
	for rows.Next() {
		var (
			rec    BranchRecord
			kind   string
			coords string
		)
		if err := rows.Scan(&rec.BranchID, &rec.SkeletonID, &kind, &rec.Length, &coords); err != nil {
			return nil, err
		}
		if rec.Type, err = ParseBranchType(kind); err != nil {
			return nil, err
		}
		if rec.Coordinates, err = ParseCoordinates(coords); err != nil {
			return nil, err
		}
		table = append(table, rec)
	}
	return table, rows.Err()
}

// ReadTable loads a persisted table, choosing the format like NewSink.
func ReadTable(path string) (Table, error) {
	switch NewSink(path).(type) {
	case *SQLiteSink:
		return ReadSQLite(path)
	default:
		return ReadCSVFile(path)
	}
}
