// Package console implements the interactive menus of the booking tool.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"meeting-rooms/booking"
)

// PasswordReader prompts for a secret without echoing it.
type PasswordReader func(prompt string) (string, error)

// Accounts is the account side of booking.Manager used by the shell.
type Accounts interface {
	SignUp(username, password, email string) error
	Login(username, password string) (*booking.Session, error)
	RequestPasswordReset(ctx context.Context, username, email string) error
	ResetPassword(username, code, newPassword string) error
}

// Shell runs the authentication menu and, once logged in, the booking menu.
type Shell struct {
	accounts     Accounts
	sc           *bufio.Scanner
	out          io.Writer
	readPassword PasswordReader

	red, green, yellow, blue, cyan *color.Color
}

// New builds a shell reading commands from in. When readPassword is nil,
// passwords are read as ordinary lines from in.
func New(accounts Accounts, in io.Reader, out io.Writer, readPassword PasswordReader) *Shell {
	s := &Shell{
		accounts: accounts,
		sc:       bufio.NewScanner(in),
		out:      out,
		red:      color.New(color.FgHiRed),
		green:    color.New(color.FgHiGreen),
		yellow:   color.New(color.FgHiYellow),
		blue:     color.New(color.FgHiBlue),
		cyan:     color.New(color.FgHiCyan),
	}
	s.readPassword = readPassword
	if s.readPassword == nil {
		s.readPassword = func(prompt string) (string, error) {
			line, ok := s.prompt(prompt)
			if !ok {
				return "", io.EOF
			}
			return line, nil
		}
	}
	return s
}

// Run loops over the authentication menu until the user exits or input ends.
func (s *Shell) Run(ctx context.Context) error {
	for {
		s.red.Fprintln(s.out, "\n\t\t\t==========Menu:==========")
		s.cyan.Fprintln(s.out, "\t\t\t1. Sign Up")
		s.cyan.Fprintln(s.out, "\t\t\t2. Log In")
		s.cyan.Fprintln(s.out, "\t\t\t3. Forgot Password")
		s.cyan.Fprintln(s.out, "\t\t\t4. Exit")

		choice, ok := s.prompt("Enter your choice: ")
		if !ok {
			return nil
		}

		switch choice {
		case "1":
			s.handleSignUp()
		case "2":
			session := s.handleLogin()
			if session == nil {
				continue
			}
			if exit := s.bookingMenu(ctx, session); exit {
				s.green.Fprintln(s.out, "Exiting the meeting room booking system")
				return nil
			}
		case "3":
			s.handleForgotPassword(ctx)
		case "4":
			s.green.Fprintln(s.out, "Exiting the meeting room booking system")
			return nil
		default:
			s.red.Fprintln(s.out, "Invalid choice. Please enter a number from 1 to 4.")
		}
	}
}

// bookingMenu serves one session. It reports whether the user asked to exit the
// program rather than log out.
func (s *Shell) bookingMenu(ctx context.Context, session *booking.Session) bool {
	for {
		s.blue.Fprintln(s.out, "\n\t\t\t==========Booking Menu:=========")
		s.blue.Fprintln(s.out, "\t\t\t1. Create Booking")
		s.blue.Fprintln(s.out, "\t\t\t2. Read Bookings")
		s.blue.Fprintln(s.out, "\t\t\t3. Update Booking")
		s.blue.Fprintln(s.out, "\t\t\t4. Delete Booking")
		s.blue.Fprintln(s.out, "\t\t\t5. Log Out")
		s.blue.Fprintln(s.out, "\t\t\t6. Exit")

		choice, ok := s.prompt("Enter your choice: ")
		if !ok {
			return true
		}

		switch choice {
		case "1":
			s.handleCreate(ctx, session)
		case "2":
			s.handleRead(session)
		case "3":
			s.handleUpdate(ctx, session)
		case "4":
			s.handleDelete(session)
		case "5":
			s.yellow.Fprintln(s.out, "You have been logged out.")
			return false
		case "6":
			return true
		default:
			s.red.Fprintln(s.out, "Invalid choice. Please enter a number from 1 to 6.")
		}
	}
}

// ---------------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------------

func (s *Shell) handleSignUp() {
	username, ok := s.prompt("Enter your username: ")
	if !ok {
		return
	}
	pw, err := s.readPassword("Enter your password: ")
	if err != nil {
		s.red.Fprintf(s.out, "Error reading password: %v\n", err)
		return
	}
	email, ok := s.prompt("Enter your email: ")
	if !ok {
		return
	}

	if err := s.accounts.SignUp(username, pw, email); err != nil {
		switch {
		case errors.Is(err, booking.ErrInvalidEmail):
			s.red.Fprintln(s.out, "Invalid email format. Please enter a valid email.")
		default:
			s.red.Fprintf(s.out, "Sign up failed: %v\n", err)
		}
		return
	}
	s.green.Fprintln(s.out, "Sign up successful!")
}

func (s *Shell) handleLogin() *booking.Session {
	username, ok := s.prompt("Enter your username: ")
	if !ok {
		return nil
	}
	pw, err := s.readPassword("Enter your password: ")
	if err != nil {
		s.red.Fprintf(s.out, "Error reading password: %v\n", err)
		return nil
	}

	session, err := s.accounts.Login(username, pw)
	switch {
	case err == nil:
		s.green.Fprintln(s.out, "Login successful!")
		return session
	case errors.Is(err, booking.ErrUserNotFound):
		s.red.Fprintln(s.out, "User not found.")
	case errors.Is(err, booking.ErrInvalidCredentials):
		s.red.Fprintln(s.out, "Incorrect password.")
	default:
		s.red.Fprintf(s.out, "Login failed: %v\n", err)
	}
	return nil
}

func (s *Shell) handleForgotPassword(ctx context.Context) {
	username, ok := s.prompt("Enter your username: ")
	if !ok {
		return
	}
	email, ok := s.prompt("Enter your email: ")
	if !ok {
		return
	}

	if err := s.accounts.RequestPasswordReset(ctx, username, email); err != nil {
		switch {
		case errors.Is(err, booking.ErrUserNotFound):
			s.red.Fprintln(s.out, "User not found.")
		case errors.Is(err, booking.ErrInvalidEmail):
			s.red.Fprintln(s.out, "Invalid email or email format.")
		default:
			s.red.Fprintf(s.out, "Error sending OTP email: %v\n", err)
		}
		return
	}
	s.green.Fprintln(s.out, "OTP sent successfully. Check your email.")

	code, ok := s.prompt("Enter the OTP sent to your email: ")
	if !ok {
		return
	}
	pw, err := s.readPassword("Enter your new password: ")
	if err != nil {
		s.red.Fprintf(s.out, "Error reading password: %v\n", err)
		return
	}

	if err := s.accounts.ResetPassword(username, code, pw); err != nil {
		if errors.Is(err, booking.ErrInvalidOTP) {
			s.red.Fprintln(s.out, "Invalid OTP. Password reset failed.")
			return
		}
		s.red.Fprintf(s.out, "Password reset failed: %v\n", err)
		return
	}
	s.green.Fprintln(s.out, "Password reset successful. You can now log in with your new password.")
}

// ---------------------------------------------------------------------------
// Bookings
// ---------------------------------------------------------------------------

func (s *Shell) handleCreate(ctx context.Context, session *booking.Session) {
	roomIndex, ok := s.chooseRoom(session)
	if !ok {
		return
	}
	start, ok := s.prompt("Enter start time (YYYY-MM-DD HH:MM:SS): ")
	if !ok {
		return
	}
	end, ok := s.prompt("Enter end time (YYYY-MM-DD HH:MM:SS): ")
	if !ok {
		return
	}

	res, err := session.Create(ctx, roomIndex, start, end)
	if err != nil {
		s.reportBookingError(session, err)
		return
	}
	fmt.Fprintln(s.out, "Booking created successfully.")
	s.reportSideEffects(res, "confirmation")
}

func (s *Shell) handleRead(session *booking.Session) {
	if session.Count() == 0 {
		fmt.Fprintln(s.out, "No bookings found.")
		return
	}
	for pos, b := range session.Bookings() {
		fmt.Fprintln(s.out, booking.PrettyBooking(pos, b))
	}
}

func (s *Shell) handleUpdate(ctx context.Context, session *booking.Session) {
	position, ok := s.promptInt("Enter the index of the booking to update: ")
	if !ok {
		return
	}
	if position < 1 || position > session.Count() {
		s.red.Fprintln(s.out, "Error: Invalid booking index.")
		return
	}
	roomIndex, ok := s.chooseRoom(session)
	if !ok {
		return
	}
	start, ok := s.prompt("Enter new start time (YYYY-MM-DD HH:MM:SS): ")
	if !ok {
		return
	}
	end, ok := s.prompt("Enter new end time (YYYY-MM-DD HH:MM:SS): ")
	if !ok {
		return
	}

	res, err := session.Update(ctx, position, roomIndex, start, end)
	if err != nil {
		s.reportBookingError(session, err)
		return
	}
	fmt.Fprintln(s.out, "Booking updated successfully.")
	s.reportSideEffects(res, "update")
}

func (s *Shell) handleDelete(session *booking.Session) {
	position, ok := s.promptInt("Enter the index of the booking to delete: ")
	if !ok {
		return
	}

	res, err := session.Delete(position)
	if err != nil {
		s.reportBookingError(session, err)
		return
	}
	fmt.Fprintf(s.out, "Booking deleted successfully. Room %s added back to available rooms.\n", res.Booking.Room)
	fmt.Fprintf(s.out, "Available rooms: %s\n", strings.Join(session.Rooms(), ", "))
	if res.SaveErr != nil {
		s.red.Fprintf(s.out, "Warning: bookings could not be saved: %v\n", res.SaveErr)
	}
}

// chooseRoom shows the current pool and re-prompts until a listed number is
// entered. It fails only when the pool is empty or input ends.
func (s *Shell) chooseRoom(session *booking.Session) (int, bool) {
	rooms := session.Rooms()
	if len(rooms) == 0 {
		s.red.Fprintln(s.out, "No rooms available.")
		return 0, false
	}

	fmt.Fprintln(s.out, "Room Options:")
	for i, room := range rooms {
		s.yellow.Fprintf(s.out, "%d. %s\n", i+1, room)
	}
	for {
		line, ok := s.prompt("Enter the room number: ")
		if !ok {
			return 0, false
		}
		n, err := strconv.Atoi(line)
		if err == nil && n >= 1 && n <= len(rooms) {
			return n, true
		}
		fmt.Fprintln(s.out, "Invalid input. Please try again.")
	}
}

func (s *Shell) reportBookingError(session *booking.Session, err error) {
	var conflict *booking.ConflictError
	switch {
	case errors.As(err, &conflict):
		s.red.Fprintf(s.out, "Error: Room %s already booked for the given time slot.\n", conflict.Room)
		if !session.HasRoom(conflict.Room) {
			s.red.Fprintf(s.out, "Room %s removed from available rooms.\n", conflict.Room)
		}
		fmt.Fprintf(s.out, "Available rooms: %s\n", strings.Join(conflict.Available, ", "))
	case errors.Is(err, booking.ErrInvalidFormat):
		s.red.Fprintln(s.out, "Error: Invalid date-time format. Please use 'YYYY-MM-DD HH:MM:SS'.")
	case errors.Is(err, booking.ErrPastStartTime):
		s.red.Fprintln(s.out, "Error: Booking time must be in the future.")
	case errors.Is(err, booking.ErrInvalidRange):
		s.red.Fprintln(s.out, "Error: End time must be after start time.")
	case errors.Is(err, booking.ErrOutOfRange):
		s.red.Fprintln(s.out, "Error: Invalid booking index.")
	default:
		s.red.Fprintf(s.out, "Error: %v\n", err)
	}
}

func (s *Shell) reportSideEffects(res booking.Result, kind string) {
	if res.SaveErr != nil {
		s.red.Fprintf(s.out, "Warning: bookings could not be saved: %v\n", res.SaveErr)
	}
	switch {
	case res.NotifyErr == nil:
		s.green.Fprintf(s.out, "Booking %s email sent successfully.\n", kind)
	case errors.Is(res.NotifyErr, booking.ErrNoEmail):
		s.red.Fprintf(s.out, "Error: User email address is empty. Unable to send %s email.\n", kind)
	default:
		s.red.Fprintf(s.out, "Error sending booking %s email: %v\n", kind, res.NotifyErr)
	}
}

// ---------------------------------------------------------------------------
// Input helpers
// ---------------------------------------------------------------------------

func (s *Shell) prompt(label string) (string, bool) {
	fmt.Fprint(s.out, label)
	if !s.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.sc.Text()), true
}

func (s *Shell) promptInt(label string) (int, bool) {
	line, ok := s.prompt(label)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		s.red.Fprintf(s.out, "Invalid number: %s\n", line)
		return 0, false
	}
	return n, true
}
