package booking

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"meeting-rooms/internal/lib/password"
	"meeting-rooms/internal/lib/sl"
)

var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// Options configures a Manager.
type Options struct {
	DatabasePath string
	DataDir      string

	RoomCount int
	// KeepRoomOnConflict leaves a room on offer after a rejected booking.
	KeepRoomOnConflict bool

	OTPLength int
	OTPTTL    time.Duration
}

// Manager is a thin façade over the account database and the booking files,
// keeping CLI code simple.
type Manager struct {
	db       *Database
	repo     Repository
	notifier Notifier
	validate *validator.Validate
	log      *slog.Logger
	opts     Options
	now      func() time.Time
}

// NewManager opens (or creates) the account database and the bookings directory.
func NewManager(opts Options, notifier Notifier, log *slog.Logger) (*Manager, error) {
	if notifier == nil {
		return nil, errors.New("booking: nil notifier")
	}
	if opts.RoomCount <= 0 {
		opts.RoomCount = 10
	}
	if opts.OTPLength <= 0 {
		opts.OTPLength = 6
	}
	if opts.OTPTTL <= 0 {
		opts.OTPTTL = 10 * time.Minute
	}

	db, err := NewDatabase(opts.DatabasePath)
	if err != nil {
		return nil, err
	}
	repo, err := NewFileRepository(opts.DataDir)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Manager{
		db:       db,
		repo:     repo,
		notifier: notifier,
		validate: validator.New(),
		log:      log,
		opts:     opts,
		now:      time.Now,
	}, nil
}

// Close closes the underlying database.
func (m *Manager) Close() error { return m.db.Close() }

// ------------------ Accounts ------------------

// SignUp registers a new user.
func (m *Manager) SignUp(username, secret, email string) error {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" {
		return ErrEmptyUsername
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username %q may only contain letters, digits, '.', '_' and '-'", username)
	}
	if strings.TrimSpace(secret) == "" {
		return ErrEmptyPassword
	}
	if !m.validEmail(email) {
		return ErrInvalidEmail
	}

	hash, err := password.Hash(secret)
	if err != nil {
		return err
	}
	u := User{Username: username, PasswordHash: hash, Salt: password.Salt(hash), Email: email}
	if err := m.db.AddUser(u); err != nil {
		return err
	}

	m.log.Info("user signed up", slog.String("user", username))
	return nil
}

// Login checks the credentials and opens a booking session with the user's
// persisted bookings.
func (m *Manager) Login(username, secret string) (*Session, error) {
	u, err := m.db.GetUser(strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if err := password.Compare(u.PasswordHash, secret); err != nil {
		m.log.Warn("failed login", slog.String("user", u.Username))
		return nil, ErrInvalidCredentials
	}

	rooms := NewRoomPool(m.opts.RoomCount)
	store, err := OpenStore(u.Username, rooms, m.repo, m.now)
	if err != nil {
		m.log.Error("failed to load bookings", slog.String("user", u.Username), sl.Err(err))
		return nil, err
	}
	if m.opts.KeepRoomOnConflict {
		store.OnConflict = nil
	}

	m.log.Info("user logged in", slog.String("user", u.Username), slog.Int("bookings", store.Len()))
	return NewSession(*u, store, rooms, m.notifier, m.log), nil
}

// RequestPasswordReset mails a one-time code to the user when email matches the
// registered address.
func (m *Manager) RequestPasswordReset(ctx context.Context, username, email string) error {
	u, err := m.db.GetUser(strings.TrimSpace(username))
	if err != nil {
		return err
	}
	email = strings.TrimSpace(email)
	if email != u.Email || !m.validEmail(email) {
		return ErrInvalidEmail
	}

	code, err := generateOTP(m.opts.OTPLength)
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	codeHash, err := password.Hash(code)
	if err != nil {
		return err
	}
	now := m.now()
	if err := m.db.AddPasswordReset(u.Username, codeHash, now.Add(m.opts.OTPTTL), now); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	if err := m.notifier.Notify(ctx, *u, subjectPasswordOTP, otpBody(u.Username, code)); err != nil {
		m.log.Error("failed to send otp", slog.String("user", u.Username), sl.Err(err))
		return fmt.Errorf("send otp: %w", err)
	}
	m.log.Info("password reset requested", slog.String("user", u.Username))
	return nil
}

// ResetPassword redeems code and sets a new password.
func (m *Manager) ResetPassword(username, code, newSecret string) error {
	username = strings.TrimSpace(username)
	if strings.TrimSpace(newSecret) == "" {
		return ErrEmptyPassword
	}

	code = strings.TrimSpace(code)
	err := m.db.ConsumePasswordReset(username, func(codeHash string) bool {
		return password.Compare(codeHash, code) == nil
	}, m.now())
	if err != nil {
		if errors.Is(err, ErrInvalidOTP) {
			m.log.Warn("invalid otp", slog.String("user", username))
		}
		return err
	}

	hash, err := password.Hash(newSecret)
	if err != nil {
		return err
	}
	if err := m.db.UpdatePassword(username, hash, password.Salt(hash)); err != nil {
		return err
	}
	m.log.Info("password reset", slog.String("user", username))
	return nil
}

// GetUser fetches one account.
func (m *Manager) GetUser(username string) (*User, error) { return m.db.GetUser(username) }

// ImportUser stores an account whose password was hashed elsewhere, such as a
// legacy users file. The hash must be bcrypt.
func (m *Manager) ImportUser(u User) error {
	if err := m.validate.Struct(u); err != nil {
		return fmt.Errorf("%s: %w", u.Username, err)
	}
	if !usernameRegex.MatchString(u.Username) {
		return fmt.Errorf("username %q is not valid", u.Username)
	}
	if password.Salt(u.PasswordHash) == "" {
		return fmt.Errorf("%s: password is not a bcrypt hash", u.Username)
	}
	if u.Salt == "" {
		u.Salt = password.Salt(u.PasswordHash)
	}
	return m.db.AddUser(u)
}

func (m *Manager) GetAllUsers() ([]*User, error) { return m.db.GetAllUsers() }

func (m *Manager) validEmail(email string) bool {
	return m.validate.Var(email, "required,email") == nil
}

// ------------------ Utilities ------------------

// generateOTP returns n random decimal digits.
func generateOTP(n int) (string, error) {
	var sb strings.Builder
	ten := big.NewInt(10)
	for range n {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		sb.WriteByte(byte('0' + d.Int64()))
	}
	return sb.String(), nil
}

// PrettyBooking formats a booking for lists.
func PrettyBooking(position int, b Booking) string {
	return fmt.Sprintf("%d. Room: %s, Start Time: %s, End Time: %s", position, b.Room, FormatTime(b.Start), FormatTime(b.End))
}
