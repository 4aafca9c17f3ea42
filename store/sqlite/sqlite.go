/*
Package sqlite provides the SQLite-backed implementation of the tontine
storage interfaces.

PURPOSE:
  Implements tontine.TxStore on SQLite. In production the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

UNIQUENESS ENFORCEMENT:
  The schema carries the constraints the engines rely on (see
  tontine/store.go):
    - memberships: PRIMARY KEY (member_id, tontine_id)
    - tours:       UNIQUE (tontine_id, member_id), UNIQUE (tontine_id, number)
    - members:     UNIQUE (email)
  Constraint violations are translated to tontine.ErrConflict, so a race
  between two pre-checked writes still fails loudly.

VALUE ENCODING:
  Money is stored as decimal strings (never floats), dates as
  "2006-01-02" text. Optional references are nullable columns.

WAL MODE:
  The database is opened with WAL (Write-Ahead Logging) for better
  concurrency and with foreign_keys=on so referential integrity is the
  store's job, not the engines'.

TRANSACTIONS:
  WithTx runs the callback against a store view bound to one sql.Tx;
  either every write commits or the whole transaction rolls back. Nested
  WithTx is not supported.

USAGE:
  store, err := sqlite.New("./data/tontine.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - tontine/store.go: Interface definitions and uniqueness contract
  - tontine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/tontine-engine/tontine"
)

// dbtx is the subset of *sql.DB / *sql.Tx the queries need.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements tontine.TxStore using SQLite.
type Store struct {
	db *sql.DB
	q  dbtx
}

var _ tontine.TxStore = (*Store)(nil)

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &Store{db: db, q: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Reset wipes all data. Used by the demo scenario loaders.
func (s *Store) Reset(ctx context.Context) error {
	tables := []string{
		"project_participants", "projects", "tours", "credits",
		"penalties", "contributions", "sessions", "memberships",
		"tontines", "members",
	}
	return s.WithTx(ctx, func(tx tontine.Store) error {
		view := tx.(*Store)
		for _, table := range tables {
			if _, err := view.q.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("reset %s: %w", table, err)
			}
		}
		return nil
	})
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS members (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		email TEXT UNIQUE,
		address TEXT NOT NULL DEFAULT '',
		commune TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		enrolled_on TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tontines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		contribution_amount TEXT NOT NULL,
		period TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		start_date TEXT NOT NULL,
		end_date TEXT,
		status TEXT NOT NULL DEFAULT 'active'
	);

	CREATE TABLE IF NOT EXISTS memberships (
		member_id INTEGER NOT NULL REFERENCES members(id) ON DELETE CASCADE,
		tontine_id INTEGER NOT NULL REFERENCES tontines(id) ON DELETE CASCADE,
		parts INTEGER NOT NULL CHECK (parts >= 1),
		PRIMARY KEY (member_id, tontine_id)
	);

	CREATE INDEX IF NOT EXISTS idx_memberships_tontine
		ON memberships(tontine_id);

	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tontine_id INTEGER NOT NULL REFERENCES tontines(id) ON DELETE CASCADE,
		date TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'scheduled',
		notes TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_tontine
		ON sessions(tontine_id);

	CREATE TABLE IF NOT EXISTS contributions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		member_id INTEGER NOT NULL REFERENCES members(id),
		session_id INTEGER NOT NULL REFERENCES sessions(id),
		amount TEXT NOT NULL,
		paid_on TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_contributions_session
		ON contributions(session_id);
	CREATE INDEX IF NOT EXISTS idx_contributions_member
		ON contributions(member_id);

	CREATE TABLE IF NOT EXISTS penalties (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		member_id INTEGER NOT NULL REFERENCES members(id),
		session_id INTEGER REFERENCES sessions(id),
		tontine_id INTEGER REFERENCES tontines(id),
		amount TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'unpaid',
		kind TEXT NOT NULL DEFAULT 'other'
	);

	CREATE INDEX IF NOT EXISTS idx_penalties_member
		ON penalties(member_id);
	CREATE INDEX IF NOT EXISTS idx_penalties_session
		ON penalties(session_id);
	CREATE INDEX IF NOT EXISTS idx_penalties_status
		ON penalties(status);

	CREATE TABLE IF NOT EXISTS credits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		member_id INTEGER NOT NULL REFERENCES members(id),
		principal TEXT NOT NULL,
		rate TEXT NOT NULL,
		balance TEXT NOT NULL,
		purpose TEXT NOT NULL DEFAULT '',
		requested_on TEXT NOT NULL,
		due_on TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active'
	);

	CREATE INDEX IF NOT EXISTS idx_credits_member_status
		ON credits(member_id, status);

	CREATE TABLE IF NOT EXISTS tours (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tontine_id INTEGER NOT NULL REFERENCES tontines(id),
		member_id INTEGER NOT NULL REFERENCES members(id),
		number INTEGER NOT NULL,
		date TEXT NOT NULL,
		amount TEXT NOT NULL,
		session_id INTEGER REFERENCES sessions(id),
		UNIQUE (tontine_id, member_id),
		UNIQUE (tontine_id, number)
	);

	CREATE TABLE IF NOT EXISTS projects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tontine_id INTEGER NOT NULL REFERENCES tontines(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		budget TEXT NOT NULL,
		allocated TEXT NOT NULL DEFAULT '0',
		start_date TEXT NOT NULL,
		end_date TEXT,
		status TEXT NOT NULL DEFAULT 'in_progress',
		responsible_id INTEGER REFERENCES members(id)
	);

	CREATE INDEX IF NOT EXISTS idx_projects_tontine
		ON projects(tontine_id);

	CREATE TABLE IF NOT EXISTS project_participants (
		project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		member_id INTEGER NOT NULL REFERENCES members(id) ON DELETE CASCADE,
		PRIMARY KEY (project_id, member_id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within one database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tontine.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	view := &Store{db: s.db, q: tx}
	if err := fn(view); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// =============================================================================
// ENCODING HELPERS
// =============================================================================

func translateErr(err error, conflictReason string) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return &tontine.ConflictError{Reason: conflictReason}
	}
	return err
}

func encodeDate(d tontine.Date) string { return d.String() }

func decodeDate(s string) (tontine.Date, error) {
	if s == "" {
		return tontine.Date{}, nil
	}
	return tontine.ParseDate(s)
}

func encodeDatePtr(d *tontine.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func decodeDatePtr(ns sql.NullString) (*tontine.Date, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := decodeDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func decodeDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func encodeID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func decodeID(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

// Empty emails are stored as NULL so the UNIQUE constraint only applies
// to real addresses.
func encodeEmail(email string) any {
	if email == "" {
		return nil
	}
	return email
}

type rowScanner interface {
	Scan(dest ...any) error
}

// =============================================================================
// MEMBERS
// =============================================================================

const memberCols = "id, name, first_name, phone, COALESCE(email, ''), address, commune, status, enrolled_on"

func scanMember(row rowScanner) (tontine.Member, error) {
	var m tontine.Member
	var status, enrolledOn string
	if err := row.Scan(&m.ID, &m.Name, &m.FirstName, &m.Phone, &m.Email, &m.Address, &m.Commune, &status, &enrolledOn); err != nil {
		return tontine.Member{}, err
	}
	m.Status = tontine.MemberStatus(status)
	var err error
	m.EnrolledOn, err = decodeDate(enrolledOn)
	return m, err
}

func (s *Store) CreateMember(ctx context.Context, m *tontine.Member) error {
	if m.Status == "" {
		m.Status = tontine.MemberActive
	}
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO members (name, first_name, phone, email, address, commune, status, enrolled_on)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Name, m.FirstName, m.Phone, encodeEmail(m.Email), m.Address, m.Commune, string(m.Status), encodeDate(m.EnrolledOn))
	if err != nil {
		return translateErr(err, "member email already exists")
	}
	m.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetMember(ctx context.Context, id int64) (tontine.Member, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+memberCols+" FROM members WHERE id = ?", id)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tontine.Member{}, &tontine.NotFoundError{Entity: "member", ID: id}
	}
	return m, err
}

func (s *Store) ListMembers(ctx context.Context) ([]tontine.Member, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT "+memberCols+" FROM members ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []tontine.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (s *Store) UpdateMember(ctx context.Context, id int64, upd tontine.MemberUpdate) (tontine.Member, error) {
	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if upd.Name != nil {
		set("name", *upd.Name)
	}
	if upd.FirstName != nil {
		set("first_name", *upd.FirstName)
	}
	if upd.Phone != nil {
		set("phone", *upd.Phone)
	}
	if upd.Email != nil {
		set("email", encodeEmail(*upd.Email))
	}
	if upd.Address != nil {
		set("address", *upd.Address)
	}
	if upd.Commune != nil {
		set("commune", *upd.Commune)
	}
	if upd.Status != nil {
		set("status", string(*upd.Status))
	}
	if err := s.applyUpdate(ctx, "members", "member", id, sets, args, "member email already exists"); err != nil {
		return tontine.Member{}, err
	}
	return s.GetMember(ctx, id)
}

func (s *Store) DeleteMember(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "members", "member", id)
}

// =============================================================================
// TONTINES
// =============================================================================

const tontineCols = "id, kind, contribution_amount, period, description, start_date, end_date, status"

func scanTontine(row rowScanner) (tontine.Tontine, error) {
	var t tontine.Tontine
	var kind, amount, startDate, status string
	var endDate sql.NullString
	if err := row.Scan(&t.ID, &kind, &amount, &t.Period, &t.Description, &startDate, &endDate, &status); err != nil {
		return tontine.Tontine{}, err
	}
	t.Kind = tontine.TontineKind(kind)
	t.Status = tontine.TontineStatus(status)

	var err error
	if t.ContributionAmount, err = decodeDecimal(amount); err != nil {
		return tontine.Tontine{}, err
	}
	if t.StartDate, err = decodeDate(startDate); err != nil {
		return tontine.Tontine{}, err
	}
	if t.EndDate, err = decodeDatePtr(endDate); err != nil {
		return tontine.Tontine{}, err
	}
	return t, nil
}

func (s *Store) CreateTontine(ctx context.Context, t *tontine.Tontine) error {
	if t.Status == "" {
		t.Status = tontine.TontineActive
	}
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO tontines (kind, contribution_amount, period, description, start_date, end_date, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(t.Kind), t.ContributionAmount.String(), t.Period, t.Description,
		encodeDate(t.StartDate), encodeDatePtr(t.EndDate), string(t.Status))
	if err != nil {
		return err
	}
	t.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetTontine(ctx context.Context, id int64) (tontine.Tontine, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+tontineCols+" FROM tontines WHERE id = ?", id)
	t, err := scanTontine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tontine.Tontine{}, &tontine.NotFoundError{Entity: "tontine", ID: id}
	}
	return t, err
}

func (s *Store) ListTontines(ctx context.Context) ([]tontine.Tontine, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT "+tontineCols+" FROM tontines ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []tontine.Tontine
	for rows.Next() {
		t, err := scanTontine(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *Store) UpdateTontine(ctx context.Context, id int64, upd tontine.TontineUpdate) (tontine.Tontine, error) {
	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if upd.ContributionAmount != nil {
		set("contribution_amount", upd.ContributionAmount.String())
	}
	if upd.Period != nil {
		set("period", *upd.Period)
	}
	if upd.Description != nil {
		set("description", *upd.Description)
	}
	if upd.EndDate != nil {
		set("end_date", upd.EndDate.String())
	}
	if upd.Status != nil {
		set("status", string(*upd.Status))
	}
	if err := s.applyUpdate(ctx, "tontines", "tontine", id, sets, args, "tontine conflict"); err != nil {
		return tontine.Tontine{}, err
	}
	return s.GetTontine(ctx, id)
}

func (s *Store) DeleteTontine(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "tontines", "tontine", id)
}

// =============================================================================
// MEMBERSHIPS
// =============================================================================

func (s *Store) CreateMembership(ctx context.Context, ms tontine.Membership) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO memberships (member_id, tontine_id, parts) VALUES (?, ?, ?)",
		ms.MemberID, ms.TontineID, ms.Parts)
	return translateErr(err, "membership already exists")
}

func (s *Store) GetMembership(ctx context.Context, memberID, tontineID int64) (tontine.Membership, error) {
	var ms tontine.Membership
	err := s.q.QueryRowContext(ctx,
		"SELECT member_id, tontine_id, parts FROM memberships WHERE member_id = ? AND tontine_id = ?",
		memberID, tontineID).Scan(&ms.MemberID, &ms.TontineID, &ms.Parts)
	if errors.Is(err, sql.ErrNoRows) {
		return tontine.Membership{}, &tontine.NotFoundError{Entity: "membership", ID: memberID}
	}
	return ms, err
}

func (s *Store) ListMembershipsByTontine(ctx context.Context, tontineID int64) ([]tontine.Membership, error) {
	return s.listMemberships(ctx,
		"SELECT member_id, tontine_id, parts FROM memberships WHERE tontine_id = ? ORDER BY member_id", tontineID)
}

func (s *Store) ListMembershipsByMember(ctx context.Context, memberID int64) ([]tontine.Membership, error) {
	return s.listMemberships(ctx,
		"SELECT member_id, tontine_id, parts FROM memberships WHERE member_id = ? ORDER BY tontine_id", memberID)
}

func (s *Store) listMemberships(ctx context.Context, query string, arg int64) ([]tontine.Membership, error) {
	rows, err := s.q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []tontine.Membership
	for rows.Next() {
		var ms tontine.Membership
		if err := rows.Scan(&ms.MemberID, &ms.TontineID, &ms.Parts); err != nil {
			return nil, err
		}
		result = append(result, ms)
	}
	return result, rows.Err()
}

// =============================================================================
// SESSIONS
// =============================================================================

const sessionCols = "id, tontine_id, date, location, status, notes"

func scanSession(row rowScanner) (tontine.Session, error) {
	var sess tontine.Session
	var date, status string
	if err := row.Scan(&sess.ID, &sess.TontineID, &date, &sess.Location, &status, &sess.Notes); err != nil {
		return tontine.Session{}, err
	}
	sess.Status = tontine.SessionStatus(status)
	var err error
	sess.Date, err = decodeDate(date)
	return sess, err
}

func (s *Store) CreateSession(ctx context.Context, sess *tontine.Session) error {
	if sess.Status == "" {
		sess.Status = tontine.SessionScheduled
	}
	res, err := s.q.ExecContext(ctx,
		"INSERT INTO sessions (tontine_id, date, location, status, notes) VALUES (?, ?, ?, ?, ?)",
		sess.TontineID, encodeDate(sess.Date), sess.Location, string(sess.Status), sess.Notes)
	if err != nil {
		return translateErr(err, "session references a missing tontine")
	}
	sess.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetSession(ctx context.Context, id int64) (tontine.Session, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+sessionCols+" FROM sessions WHERE id = ?", id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tontine.Session{}, &tontine.NotFoundError{Entity: "session", ID: id}
	}
	return sess, err
}

func (s *Store) ListSessions(ctx context.Context, f tontine.SessionFilter) ([]tontine.Session, error) {
	query := "SELECT " + sessionCols + " FROM sessions"
	var args []any
	if f.TontineID != nil {
		query += " WHERE tontine_id = ?"
		args = append(args, *f.TontineID)
	}
	query += " ORDER BY date, id"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []tontine.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sess)
	}
	return result, rows.Err()
}

func (s *Store) UpdateSession(ctx context.Context, id int64, upd tontine.SessionUpdate) (tontine.Session, error) {
	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if upd.Date != nil {
		set("date", upd.Date.String())
	}
	if upd.Location != nil {
		set("location", *upd.Location)
	}
	if upd.Status != nil {
		set("status", string(*upd.Status))
	}
	if upd.Notes != nil {
		set("notes", *upd.Notes)
	}
	if err := s.applyUpdate(ctx, "sessions", "session", id, sets, args, "session conflict"); err != nil {
		return tontine.Session{}, err
	}
	return s.GetSession(ctx, id)
}

func (s *Store) DeleteSession(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "sessions", "session", id)
}

// =============================================================================
// CONTRIBUTIONS
// =============================================================================

func (s *Store) CreateContribution(ctx context.Context, c *tontine.Contribution) error {
	res, err := s.q.ExecContext(ctx,
		"INSERT INTO contributions (member_id, session_id, amount, paid_on) VALUES (?, ?, ?, ?)",
		c.MemberID, c.SessionID, c.Amount.String(), encodeDate(c.PaidOn))
	if err != nil {
		return translateErr(err, "contribution references a missing row")
	}
	c.ID, err = res.LastInsertId()
	return err
}

func (s *Store) ListContributions(ctx context.Context, f tontine.ContributionFilter) ([]tontine.Contribution, error) {
	query := "SELECT id, member_id, session_id, amount, paid_on FROM contributions"
	var where []string
	var args []any
	if f.MemberID != nil {
		where = append(where, "member_id = ?")
		args = append(args, *f.MemberID)
	}
	if f.SessionID != nil {
		where = append(where, "session_id = ?")
		args = append(args, *f.SessionID)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []tontine.Contribution
	for rows.Next() {
		var c tontine.Contribution
		var amount, paidOn string
		if err := rows.Scan(&c.ID, &c.MemberID, &c.SessionID, &amount, &paidOn); err != nil {
			return nil, err
		}
		if c.Amount, err = decodeDecimal(amount); err != nil {
			return nil, err
		}
		if c.PaidOn, err = decodeDate(paidOn); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// =============================================================================
// PENALTIES
// =============================================================================

const penaltyCols = "id, member_id, session_id, tontine_id, amount, reason, date, status, kind"

func scanPenalty(row rowScanner) (tontine.Penalty, error) {
	var p tontine.Penalty
	var sessionID, tontineID sql.NullInt64
	var amount, date, status, kind string
	if err := row.Scan(&p.ID, &p.MemberID, &sessionID, &tontineID, &amount, &p.Reason, &date, &status, &kind); err != nil {
		return tontine.Penalty{}, err
	}
	p.SessionID = decodeID(sessionID)
	p.TontineID = decodeID(tontineID)
	p.Status = tontine.PenaltyStatus(status)
	p.Kind = tontine.PenaltyKind(kind)

	var err error
	if p.Amount, err = decodeDecimal(amount); err != nil {
		return tontine.Penalty{}, err
	}
	p.Date, err = decodeDate(date)
	return p, err
}

func (s *Store) CreatePenalty(ctx context.Context, p *tontine.Penalty) error {
	if p.Status == "" {
		p.Status = tontine.PenaltyUnpaid
	}
	if p.Kind == "" {
		p.Kind = tontine.PenaltyOther
	}
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO penalties (member_id, session_id, tontine_id, amount, reason, date, status, kind)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.MemberID, encodeID(p.SessionID), encodeID(p.TontineID), p.Amount.String(),
		p.Reason, encodeDate(p.Date), string(p.Status), string(p.Kind))
	if err != nil {
		return translateErr(err, "penalty references a missing row")
	}
	p.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetPenalty(ctx context.Context, id int64) (tontine.Penalty, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+penaltyCols+" FROM penalties WHERE id = ?", id)
	p, err := scanPenalty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tontine.Penalty{}, &tontine.NotFoundError{Entity: "penalty", ID: id}
	}
	return p, err
}

func (s *Store) ListPenalties(ctx context.Context, f tontine.PenaltyFilter) ([]tontine.Penalty, error) {
	query := "SELECT " + penaltyCols + " FROM penalties"
	var where []string
	var args []any
	if f.MemberID != nil {
		where = append(where, "member_id = ?")
		args = append(args, *f.MemberID)
	}
	if f.SessionID != nil {
		where = append(where, "session_id = ?")
		args = append(args, *f.SessionID)
	}
	if f.TontineID != nil {
		where = append(where, "tontine_id = ?")
		args = append(args, *f.TontineID)
	}
	if f.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*f.Status))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []tontine.Penalty
	for rows.Next() {
		p, err := scanPenalty(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) UpdatePenalty(ctx context.Context, id int64, upd tontine.PenaltyUpdate) (tontine.Penalty, error) {
	var sets []string
	var args []any
	if upd.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*upd.Status))
	}
	if upd.Amount != nil {
		sets = append(sets, "amount = ?")
		args = append(args, upd.Amount.String())
	}
	if err := s.applyUpdate(ctx, "penalties", "penalty", id, sets, args, "penalty conflict"); err != nil {
		return tontine.Penalty{}, err
	}
	return s.GetPenalty(ctx, id)
}

func (s *Store) DeletePenalty(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "penalties", "penalty", id)
}

// =============================================================================
// CREDITS
// =============================================================================

const creditCols = "id, member_id, principal, rate, balance, purpose, requested_on, due_on, status"

func scanCredit(row rowScanner) (tontine.Credit, error) {
	var c tontine.Credit
	var principal, rate, balance, requestedOn, dueOn, status string
	if err := row.Scan(&c.ID, &c.MemberID, &principal, &rate, &balance, &c.Purpose, &requestedOn, &dueOn, &status); err != nil {
		return tontine.Credit{}, err
	}
	c.Status = tontine.CreditStatus(status)

	var err error
	if c.Principal, err = decodeDecimal(principal); err != nil {
		return tontine.Credit{}, err
	}
	if c.Rate, err = decodeDecimal(rate); err != nil {
		return tontine.Credit{}, err
	}
	if c.Balance, err = decodeDecimal(balance); err != nil {
		return tontine.Credit{}, err
	}
	if c.RequestedOn, err = decodeDate(requestedOn); err != nil {
		return tontine.Credit{}, err
	}
	c.DueOn, err = decodeDate(dueOn)
	return c, err
}

func (s *Store) CreateCredit(ctx context.Context, c *tontine.Credit) error {
	if c.Status == "" {
		c.Status = tontine.CreditActive
	}
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO credits (member_id, principal, rate, balance, purpose, requested_on, due_on, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.MemberID, c.Principal.String(), c.Rate.String(), c.Balance.String(),
		c.Purpose, encodeDate(c.RequestedOn), encodeDate(c.DueOn), string(c.Status))
	if err != nil {
		return translateErr(err, "credit references a missing member")
	}
	c.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetCredit(ctx context.Context, id int64) (tontine.Credit, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+creditCols+" FROM credits WHERE id = ?", id)
	c, err := scanCredit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tontine.Credit{}, &tontine.NotFoundError{Entity: "credit", ID: id}
	}
	return c, err
}

func (s *Store) ListCredits(ctx context.Context, f tontine.CreditFilter) ([]tontine.Credit, error) {
	query := "SELECT " + creditCols + " FROM credits"
	var where []string
	var args []any
	if f.MemberID != nil {
		where = append(where, "member_id = ?")
		args = append(args, *f.MemberID)
	}
	if len(f.Statuses) > 0 {
		placeholders := make([]string, len(f.Statuses))
		for i, status := range f.Statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		where = append(where, "status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []tontine.Credit
	for rows.Next() {
		c, err := scanCredit(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *Store) UpdateCredit(ctx context.Context, id int64, upd tontine.CreditUpdate) (tontine.Credit, error) {
	var sets []string
	var args []any
	if upd.Balance != nil {
		sets = append(sets, "balance = ?")
		args = append(args, upd.Balance.String())
	}
	if upd.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*upd.Status))
	}
	if err := s.applyUpdate(ctx, "credits", "credit", id, sets, args, "credit conflict"); err != nil {
		return tontine.Credit{}, err
	}
	return s.GetCredit(ctx, id)
}

// =============================================================================
// TOURS
// =============================================================================

const tourCols = "id, tontine_id, member_id, number, date, amount, session_id"

func scanTour(row rowScanner) (tontine.Tour, error) {
	var t tontine.Tour
	var date, amount string
	var sessionID sql.NullInt64
	if err := row.Scan(&t.ID, &t.TontineID, &t.MemberID, &t.Number, &date, &amount, &sessionID); err != nil {
		return tontine.Tour{}, err
	}
	t.SessionID = decodeID(sessionID)

	var err error
	if t.Amount, err = decodeDecimal(amount); err != nil {
		return tontine.Tour{}, err
	}
	t.Date, err = decodeDate(date)
	return t, err
}

func (s *Store) CreateTour(ctx context.Context, t *tontine.Tour) error {
	res, err := s.q.ExecContext(ctx,
		"INSERT INTO tours (tontine_id, member_id, number, date, amount, session_id) VALUES (?, ?, ?, ?, ?, ?)",
		t.TontineID, t.MemberID, t.Number, encodeDate(t.Date), t.Amount.String(), encodeID(t.SessionID))
	if err != nil {
		return translateErr(err, "tour beneficiary or number already exists for this tontine")
	}
	t.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetTour(ctx context.Context, id int64) (tontine.Tour, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+tourCols+" FROM tours WHERE id = ?", id)
	t, err := scanTour(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tontine.Tour{}, &tontine.NotFoundError{Entity: "tour", ID: id}
	}
	return t, err
}

func (s *Store) ListTours(ctx context.Context, f tontine.TourFilter) ([]tontine.Tour, error) {
	query := "SELECT " + tourCols + " FROM tours"
	var where []string
	var args []any
	if f.TontineID != nil {
		where = append(where, "tontine_id = ?")
		args = append(args, *f.TontineID)
	}
	if f.MemberID != nil {
		where = append(where, "member_id = ?")
		args = append(args, *f.MemberID)
	}
	if f.SessionID != nil {
		where = append(where, "session_id = ?")
		args = append(args, *f.SessionID)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY number, id"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []tontine.Tour
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *Store) DeleteTour(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "tours", "tour", id)
}

// =============================================================================
// PROJECTS
// =============================================================================

const projectCols = "id, tontine_id, name, description, budget, allocated, start_date, end_date, status, responsible_id"

func scanProject(row rowScanner) (tontine.Project, error) {
	var p tontine.Project
	var budget, allocated, startDate, status string
	var endDate sql.NullString
	var responsibleID sql.NullInt64
	if err := row.Scan(&p.ID, &p.TontineID, &p.Name, &p.Description, &budget, &allocated, &startDate, &endDate, &status, &responsibleID); err != nil {
		return tontine.Project{}, err
	}
	p.Status = tontine.ProjectStatus(status)
	p.ResponsibleID = decodeID(responsibleID)

	var err error
	if p.Budget, err = decodeDecimal(budget); err != nil {
		return tontine.Project{}, err
	}
	if p.Allocated, err = decodeDecimal(allocated); err != nil {
		return tontine.Project{}, err
	}
	if p.StartDate, err = decodeDate(startDate); err != nil {
		return tontine.Project{}, err
	}
	p.EndDate, err = decodeDatePtr(endDate)
	return p, err
}

func (s *Store) CreateProject(ctx context.Context, p *tontine.Project) error {
	if p.Status == "" {
		p.Status = tontine.ProjectInProgress
	}
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO projects (tontine_id, name, description, budget, allocated, start_date, end_date, status, responsible_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.TontineID, p.Name, p.Description, p.Budget.String(), p.Allocated.String(),
		encodeDate(p.StartDate), encodeDatePtr(p.EndDate), string(p.Status), encodeID(p.ResponsibleID))
	if err != nil {
		return translateErr(err, "project references a missing row")
	}
	p.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetProject(ctx context.Context, id int64) (tontine.Project, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+projectCols+" FROM projects WHERE id = ?", id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tontine.Project{}, &tontine.NotFoundError{Entity: "project", ID: id}
	}
	return p, err
}

func (s *Store) ListProjects(ctx context.Context, f tontine.ProjectFilter) ([]tontine.Project, error) {
	query := "SELECT " + projectCols + " FROM projects"
	var where []string
	var args []any
	if f.TontineID != nil {
		where = append(where, "tontine_id = ?")
		args = append(args, *f.TontineID)
	}
	if f.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*f.Status))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []tontine.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) UpdateProject(ctx context.Context, id int64, upd tontine.ProjectUpdate) (tontine.Project, error) {
	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if upd.Name != nil {
		set("name", *upd.Name)
	}
	if upd.Description != nil {
		set("description", *upd.Description)
	}
	if upd.Budget != nil {
		set("budget", upd.Budget.String())
	}
	if upd.Allocated != nil {
		set("allocated", upd.Allocated.String())
	}
	if upd.EndDate != nil {
		set("end_date", upd.EndDate.String())
	}
	if upd.Status != nil {
		set("status", string(*upd.Status))
	}
	if err := s.applyUpdate(ctx, "projects", "project", id, sets, args, "project conflict"); err != nil {
		return tontine.Project{}, err
	}
	return s.GetProject(ctx, id)
}

func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "projects", "project", id)
}

func (s *Store) AddProjectParticipant(ctx context.Context, projectID, memberID int64) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO project_participants (project_id, member_id) VALUES (?, ?)",
		projectID, memberID)
	return translateErr(err, "member already participates in this project")
}

func (s *Store) ListProjectParticipants(ctx context.Context, projectID int64) ([]int64, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT member_id FROM project_participants WHERE project_id = ? ORDER BY member_id", projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	return result, rows.Err()
}

// =============================================================================
// SHARED UPDATE/DELETE HELPERS
// =============================================================================

func (s *Store) applyUpdate(ctx context.Context, table, entity string, id int64, sets []string, args []any, conflictReason string) error {
	if len(sets) == 0 {
		// Nothing to change; existence is verified by the follow-up Get.
		return nil
	}
	args = append(args, id)
	res, err := s.q.ExecContext(ctx,
		"UPDATE "+table+" SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return translateErr(err, conflictReason)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &tontine.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}

func (s *Store) deleteByID(ctx context.Context, table, entity string, id int64) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &tontine.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}
