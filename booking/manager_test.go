package booking

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meeting-rooms/internal/lib/password"
)

type sentMessage struct {
	to, subject, body string
}

// captureNotifier records every message instead of delivering it.
type captureNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (c *captureNotifier) Notify(_ context.Context, user User, subject, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, sentMessage{to: user.Email, subject: subject, body: body})
	return nil
}

func (c *captureNotifier) last() sentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return sentMessage{}
	}
	return c.sent[len(c.sent)-1]
}

var otpRe = regexp.MustCompile(`password reset is: (\d+)`)

func (c *captureNotifier) otp(t *testing.T) string {
	t.Helper()
	m := otpRe.FindStringSubmatch(c.last().body)
	require.Len(t, m, 2, "no otp in %q", c.last().body)
	return m[1]
}

func newManager(t *testing.T, opts Options) (*Manager, *captureNotifier) {
	t.Helper()
	dir := t.TempDir()
	if opts.DatabasePath == "" {
		opts.DatabasePath = filepath.Join(dir, "rooms.db")
	}
	if opts.DataDir == "" {
		opts.DataDir = filepath.Join(dir, "data")
	}
	n := &captureNotifier{}
	mgr, err := NewManager(opts, n, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	mgr.now = fixedClock(t)
	return mgr, n
}

func TestNewManager_NilNotifier(t *testing.T) {
	_, err := NewManager(Options{DatabasePath: filepath.Join(t.TempDir(), "x.db")}, nil, discardLogger())
	assert.Error(t, err)
}

func TestManager_SignUp(t *testing.T) {
	mgr, _ := newManager(t, Options{})

	require.NoError(t, mgr.SignUp(" alice ", "s3cret", "alice@example.com"))

	u, err := mgr.GetUser("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotEqual(t, "s3cret", u.PasswordHash)
	assert.Equal(t, password.Salt(u.PasswordHash), u.Salt)

	assert.ErrorIs(t, mgr.SignUp("alice", "other", "alice2@example.com"), ErrUserExists)
	assert.ErrorIs(t, mgr.SignUp("", "pw", "x@example.com"), ErrEmptyUsername)
	assert.ErrorIs(t, mgr.SignUp("bob", " ", "bob@example.com"), ErrEmptyPassword)
	assert.ErrorIs(t, mgr.SignUp("bob", "pw", "not-an-email"), ErrInvalidEmail)
	assert.Error(t, mgr.SignUp("../etc", "pw", "bob@example.com"))

	users, err := mgr.GetAllUsers()
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestManager_Login(t *testing.T) {
	mgr, _ := newManager(t, Options{RoomCount: 4})
	require.NoError(t, mgr.SignUp("alice", "s3cret", "alice@example.com"))

	_, err := mgr.Login("alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = mgr.Login("ghost", "s3cret")
	assert.ErrorIs(t, err, ErrUserNotFound)

	s, err := mgr.Login("alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "alice", s.User().Username)
	assert.Equal(t, []string{"Room1", "Room2", "Room3", "Room4"}, s.Rooms())
	assert.Zero(t, s.Count())
}

func TestManager_BookingsPersistAcrossLogins(t *testing.T) {
	mgr, n := newManager(t, Options{})
	require.NoError(t, mgr.SignUp("alice", "s3cret", "alice@example.com"))
	ctx := context.Background()

	s, err := mgr.Login("alice", "s3cret")
	require.NoError(t, err)
	_, err = s.Create(ctx, 1, "2030-01-01 10:00:00", "2030-01-01 11:00:00")
	require.NoError(t, err)
	assert.Equal(t, "Meeting Room Booking Confirmation", n.last().subject)
	assert.Equal(t, "alice@example.com", n.last().to)

	_, err = s.Create(ctx, 1, "2030-01-01 10:30:00", "2030-01-01 11:30:00")
	require.ErrorIs(t, err, ErrConflict)
	require.Len(t, s.Rooms(), 9)

	// A new session starts with the full pool and the saved bookings.
	s2, err := mgr.Login("alice", "s3cret")
	require.NoError(t, err)
	assert.Len(t, s2.Rooms(), 10)
	require.Equal(t, 1, s2.Count())
	for _, b := range s2.Bookings() {
		assert.Equal(t, "Room1", b.Room)
	}

	_, err = os.Stat(filepath.Join(mgr.opts.DataDir, "alice_bookings.json"))
	assert.NoError(t, err)
}

func TestManager_KeepRoomOnConflict(t *testing.T) {
	mgr, _ := newManager(t, Options{KeepRoomOnConflict: true})
	require.NoError(t, mgr.SignUp("alice", "s3cret", "alice@example.com"))

	s, err := mgr.Login("alice", "s3cret")
	require.NoError(t, err)
	ctx := context.Background()
	_, err = s.Create(ctx, 1, "2030-01-01 10:00:00", "2030-01-01 11:00:00")
	require.NoError(t, err)
	_, err = s.Create(ctx, 1, "2030-01-01 10:00:00", "2030-01-01 11:00:00")
	require.ErrorIs(t, err, ErrConflict)
	assert.True(t, s.HasRoom("Room1"))
}

func TestManager_LoginMalformedBookings(t *testing.T) {
	mgr, _ := newManager(t, Options{})
	require.NoError(t, mgr.SignUp("alice", "s3cret", "alice@example.com"))
	path := filepath.Join(mgr.opts.DataDir, "alice_bookings.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	_, err := mgr.Login("alice", "s3cret")
	assert.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "garbage", string(data), "file must be left alone")
}

func TestManager_PasswordReset(t *testing.T) {
	mgr, n := newManager(t, Options{OTPLength: 8})
	require.NoError(t, mgr.SignUp("alice", "old", "alice@example.com"))
	ctx := context.Background()

	assert.ErrorIs(t, mgr.RequestPasswordReset(ctx, "ghost", "alice@example.com"), ErrUserNotFound)
	assert.ErrorIs(t, mgr.RequestPasswordReset(ctx, "alice", "other@example.com"), ErrInvalidEmail)
	assert.Empty(t, n.sent)

	require.NoError(t, mgr.RequestPasswordReset(ctx, "alice", "alice@example.com"))
	assert.Equal(t, "Password Reset OTP", n.last().subject)
	code := n.otp(t)
	assert.Len(t, code, 8)

	assert.ErrorIs(t, mgr.ResetPassword("alice", code, ""), ErrEmptyPassword)
	require.NoError(t, mgr.ResetPassword("alice", code, "new"))

	_, err := mgr.Login("alice", "old")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = mgr.Login("alice", "new")
	assert.NoError(t, err)

	// Single use.
	assert.ErrorIs(t, mgr.ResetPassword("alice", code, "newer"), ErrInvalidOTP)
}

func TestManager_PasswordResetWrongGuess(t *testing.T) {
	mgr, n := newManager(t, Options{})
	require.NoError(t, mgr.SignUp("alice", "old", "alice@example.com"))
	require.NoError(t, mgr.RequestPasswordReset(context.Background(), "alice", "alice@example.com"))
	code := n.otp(t)

	wrong := "0000000"
	assert.ErrorIs(t, mgr.ResetPassword("alice", wrong, "new"), ErrInvalidOTP)
	assert.ErrorIs(t, mgr.ResetPassword("alice", code, "new"), ErrInvalidOTP)

	_, err := mgr.Login("alice", "old")
	assert.NoError(t, err)
}

func TestManager_PasswordResetExpired(t *testing.T) {
	mgr, n := newManager(t, Options{OTPTTL: time.Minute})
	require.NoError(t, mgr.SignUp("alice", "old", "alice@example.com"))
	require.NoError(t, mgr.RequestPasswordReset(context.Background(), "alice", "alice@example.com"))
	code := n.otp(t)

	later := mgr.now().Add(2 * time.Minute)
	mgr.now = func() time.Time { return later }
	assert.ErrorIs(t, mgr.ResetPassword("alice", code, "new"), ErrInvalidOTP)
}

func TestManager_PasswordResetSendFailure(t *testing.T) {
	mgr, n := newManager(t, Options{})
	require.NoError(t, mgr.SignUp("alice", "old", "alice@example.com"))
	n.err = errors.New("smtp down")

	err := mgr.RequestPasswordReset(context.Background(), "alice", "alice@example.com")
	assert.ErrorContains(t, err, "smtp down")
}

func TestManager_ImportUser(t *testing.T) {
	mgr, _ := newManager(t, Options{})
	hash, err := password.Hash("legacy")
	require.NoError(t, err)

	require.NoError(t, mgr.ImportUser(User{Username: "carol", PasswordHash: hash, Email: "carol@example.com"}))
	u, err := mgr.GetUser("carol")
	require.NoError(t, err)
	assert.Equal(t, password.Salt(hash), u.Salt)

	_, err = mgr.Login("carol", "legacy")
	assert.NoError(t, err)

	assert.ErrorIs(t, mgr.ImportUser(User{Username: "carol", PasswordHash: hash, Email: "carol@example.com"}), ErrUserExists)
	assert.Error(t, mgr.ImportUser(User{Username: "dave", PasswordHash: "plain", Email: "dave@example.com"}))
	assert.Error(t, mgr.ImportUser(User{Username: "erin", PasswordHash: hash, Email: "bad"}))
}

func TestGenerateOTP(t *testing.T) {
	code, err := generateOTP(6)
	require.NoError(t, err)
	assert.Regexp(t, `^\d{6}$`, code)
}

func TestPrettyBooking(t *testing.T) {
	b := Booking{Room: "Room2", Start: at(t, "2030-01-01 10:00:00"), End: at(t, "2030-01-01 11:00:00")}
	assert.Equal(t, "3. Room: Room2, Start Time: 2030-01-01 10:00:00, End Time: 2030-01-01 11:00:00", PrettyBooking(3, b))
}
