package booking

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempDB(t *testing.T) *Database {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDatabase(filepath.Join(dir, "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDatabase_Users(t *testing.T) {
	db := tempDB(t)

	u := User{Username: "alice", PasswordHash: "$2a$10$hash", Salt: "$2a$10$salt", Email: "alice@example.com"}
	require.NoError(t, db.AddUser(u))

	err := db.AddUser(u)
	assert.ErrorIs(t, err, ErrUserExists)

	got, err := db.GetUser("alice")
	require.NoError(t, err)
	assert.Equal(t, u, *got)

	_, err = db.GetUser("bob")
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, db.AddUser(User{Username: "aaron", PasswordHash: "x", Salt: "y", Email: "a@example.com"}))
	all, err := db.GetAllUsers()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "aaron", all[0].Username)
	assert.Equal(t, "alice", all[1].Username)
}

func TestDatabase_UpdatePassword(t *testing.T) {
	db := tempDB(t)
	require.NoError(t, db.AddUser(User{Username: "alice", PasswordHash: "old", Salt: "s", Email: "alice@example.com"}))

	require.NoError(t, db.UpdatePassword("alice", "new", "s2"))
	got, err := db.GetUser("alice")
	require.NoError(t, err)
	assert.Equal(t, "new", got.PasswordHash)
	assert.Equal(t, "s2", got.Salt)

	assert.ErrorIs(t, db.UpdatePassword("ghost", "h", "s"), ErrUserNotFound)
}

func TestDatabase_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	db, err := NewDatabase(path)
	require.NoError(t, err)
	require.NoError(t, db.AddUser(User{Username: "alice", PasswordHash: "h", Salt: "s", Email: "alice@example.com"}))
	require.NoError(t, db.Close())

	db, err = NewDatabase(path)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.GetUser("alice")
	assert.NoError(t, err)
}

func TestDatabase_PasswordResets(t *testing.T) {
	db := tempDB(t)
	require.NoError(t, db.AddUser(User{Username: "alice", PasswordHash: "h", Salt: "s", Email: "alice@example.com"}))

	now := time.Date(2030, 1, 1, 8, 0, 0, 0, time.Local)
	matches := func(want string) func(string) bool {
		return func(got string) bool { return got == want }
	}

	tests := []struct {
		name    string
		setup   func()
		consume string
		at      time.Time
		wantErr error
	}{
		{
			name:    "no code",
			setup:   func() {},
			consume: "c0",
			at:      now,
			wantErr: ErrInvalidOTP,
		},
		{
			name:    "valid",
			setup:   func() { require.NoError(t, db.AddPasswordReset("alice", "c1", now.Add(time.Minute), now)) },
			consume: "c1",
			at:      now,
		},
		{
			name:    "already used",
			setup:   func() {},
			consume: "c1",
			at:      now,
			wantErr: ErrInvalidOTP,
		},
		{
			name:    "expired",
			setup:   func() { require.NoError(t, db.AddPasswordReset("alice", "c2", now.Add(time.Minute), now)) },
			consume: "c2",
			at:      now.Add(2 * time.Minute),
			wantErr: ErrInvalidOTP,
		},
		{
			name: "superseded",
			setup: func() {
				require.NoError(t, db.AddPasswordReset("alice", "c3", now.Add(time.Minute), now))
				require.NoError(t, db.AddPasswordReset("alice", "c4", now.Add(time.Minute), now))
			},
			consume: "c3",
			at:      now,
			wantErr: ErrInvalidOTP,
		},
		{
			name:    "wrong guess burns code",
			setup:   func() { require.NoError(t, db.AddPasswordReset("alice", "c5", now.Add(time.Minute), now)) },
			consume: "nope",
			at:      now,
			wantErr: ErrInvalidOTP,
		},
		{
			name:    "right guess after burn",
			setup:   func() {},
			consume: "c5",
			at:      now,
			wantErr: ErrInvalidOTP,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			err := db.ConsumePasswordReset("alice", matches(tt.consume), tt.at)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}
