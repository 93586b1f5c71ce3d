package booking

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// record is the on-disk shape of a booking.
type record struct {
	RoomName  string `json:"room_name"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// FileRepository keeps each user's bookings in <dir>/<username>_bookings.json.
type FileRepository struct {
	dir string
}

func NewFileRepository(dir string) (*FileRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileRepository{dir: dir}, nil
}

// Path returns the bookings file of owner.
func (r *FileRepository) Path(owner string) string {
	return filepath.Join(r.dir, owner+"_bookings.json")
}

// Load reads the owner's bookings. A missing or blank file is an empty list;
// a malformed one is an error so that it is never silently overwritten.
func (r *FileRepository) Load(owner string) ([]Booking, error) {
	data, err := os.ReadFile(r.Path(owner))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.Path(owner), err)
	}

	bookings := make([]Booking, 0, len(records))
	for i, rec := range records {
		start, end, err := parseRange(rec.StartTime, rec.EndTime)
		if err != nil {
			return nil, fmt.Errorf("record %d of %s: %w", i+1, r.Path(owner), err)
		}
		if !start.Before(end) {
			return nil, fmt.Errorf("record %d of %s: %w", i+1, r.Path(owner), ErrInvalidRange)
		}
		bookings = append(bookings, Booking{Room: rec.RoomName, Start: start, End: end})
	}
	return bookings, nil
}

// Save overwrites the owner's file with the full list. The data is written to a
// temporary file in the same directory and renamed into place.
func (r *FileRepository) Save(owner string, bookings []Booking) error {
	records := make([]record, 0, len(bookings))
	for _, b := range bookings {
		records = append(records, record{
			RoomName:  b.Room,
			StartTime: FormatTime(b.Start),
			EndTime:   FormatTime(b.End),
		})
	}
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(r.dir, owner+"_bookings-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), r.Path(owner))
}
