package booking

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Database provides account helpers around a SQLite connection.
type Database struct {
	db *sql.DB

	addUserStmt *sql.Stmt
	getUserStmt *sql.Stmt
}

// NewDatabase opens (or creates) the SQLite database at dbPath, applies schema
// migrations, and prepares common statements.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	database := &Database{db: db}
	if err := database.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return database, nil
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	if d.addUserStmt != nil {
		d.addUserStmt.Close()
	}
	if d.getUserStmt != nil {
		d.getUserStmt.Close()
	}
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            username TEXT PRIMARY KEY,
            password_hash TEXT NOT NULL,
            salt TEXT NOT NULL,
            email TEXT NOT NULL,
            created_time DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		// Expiry and use are unix seconds so comparisons stay numeric.
		`CREATE TABLE IF NOT EXISTS password_resets (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            username TEXT NOT NULL REFERENCES users(username) ON DELETE CASCADE,
            code_hash TEXT NOT NULL,
            expires_at INTEGER NOT NULL,
            used_at INTEGER
        );`,
		`CREATE INDEX IF NOT EXISTS idx_password_resets_username ON password_resets(username);`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements() error {
	var err error
	if d.addUserStmt, err = d.db.Prepare(`INSERT INTO users(username,password_hash,salt,email) VALUES(?,?,?,?)`); err != nil {
		return err
	}
	if d.getUserStmt, err = d.db.Prepare(`SELECT username,password_hash,salt,email FROM users WHERE username=?`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// AddUser inserts a new account. A taken username yields ErrUserExists.
func (d *Database) AddUser(u User) error {
	if _, err := d.addUserStmt.Exec(u.Username, u.PasswordHash, u.Salt, u.Email); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%s: %w", u.Username, ErrUserExists)
		}
		return err
	}
	return nil
}

// GetUser fetches a single account.
func (d *Database) GetUser(username string) (*User, error) {
	var u User
	err := d.getUserStmt.QueryRow(username).Scan(&u.Username, &u.PasswordHash, &u.Salt, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", username, ErrUserNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetAllUsers returns all accounts ordered by username.
func (d *Database) GetAllUsers() ([]*User, error) {
	rows, err := d.db.Query(`SELECT username,password_hash,salt,email FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.Username, &u.PasswordHash, &u.Salt, &u.Email); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// UpdatePassword replaces the stored hash and salt.
func (d *Database) UpdatePassword(username, hash, salt string) error {
	result, err := d.db.Exec(`UPDATE users SET password_hash=?, salt=? WHERE username=?`, hash, salt, username)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", username, ErrUserNotFound)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Password resets
// ---------------------------------------------------------------------------

// AddPasswordReset stores a hashed one-time code for username. Earlier unused
// codes are retired in the same transaction, so only the newest can be redeemed.
func (d *Database) AddPasswordReset(username, codeHash string, expires, now time.Time) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE password_resets SET used_at=? WHERE username=? AND used_at IS NULL`, now.Unix(), username); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO password_resets(username,code_hash,expires_at) VALUES(?,?,?)`, username, codeHash, expires.Unix()); err != nil {
		return err
	}
	return tx.Commit()
}

// ConsumePasswordReset redeems the active code of username. match is called with
// the stored hash. The code is spent whatever the outcome: one guess per code.
// A missing, expired, used or mismatched code yields ErrInvalidOTP.
func (d *Database) ConsumePasswordReset(username string, match func(codeHash string) bool, now time.Time) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var (
		id       int64
		codeHash string
	)
	err = tx.QueryRow(`SELECT id, code_hash FROM password_resets
        WHERE username=? AND used_at IS NULL AND expires_at > ?
        ORDER BY id DESC LIMIT 1`, username, now.Unix()).Scan(&id, &codeHash)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrInvalidOTP
	}
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE password_resets SET used_at=? WHERE id=?`, now.Unix(), id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if !match(codeHash) {
		return ErrInvalidOTP
	}
	return nil
}
