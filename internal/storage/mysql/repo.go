package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"hotel_booking/internal/domain"
)

const dateLayout = "2006-01-02"

// Repo implements the booking, room, reference and payment ports over MySQL.
// Availability is enforced inside CreateBooking: the room row is locked FOR
// UPDATE, the overlap re-check and the insert commit together, so two
// overlapping requests for the same room serialize on the row lock and at
// most one of them commits.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func day(t time.Time) string { return t.UTC().Format(dateLayout) }

// ---- BookingRepository ----

func (r *Repo) CreateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Booking{}, err
	}
	defer func() { _ = tx.Rollback() }()

	// Lock the room row; this also confirms the room still exists.
	var roomID int64
	if err := tx.QueryRowContext(ctx, lockRoomSQL, b.RoomID).Scan(&roomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Booking{}, domain.ErrNotFound
		}
		return domain.Booking{}, err
	}

	var overlapping int
	if err := tx.QueryRowContext(ctx, overlapCountSQL, b.RoomID, day(b.CheckOut), day(b.CheckIn)).Scan(&overlapping); err != nil {
		return domain.Booking{}, err
	}
	if overlapping > 0 {
		return domain.Booking{}, domain.ErrConflict
	}

	res, err := tx.ExecContext(ctx, insertBookingSQL,
		b.UserID,
		b.RoomID,
		day(b.CheckIn),
		day(b.CheckOut),
		b.TotalPrice,
		b.Reference,
		string(b.Status),
		string(b.PaymentStatus),
		b.CreatedAt.UTC(),
	)
	if err != nil {
		if isDuplicateKey(err) {
			return domain.Booking{}, domain.ErrConflict
		}
		return domain.Booking{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Booking{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Booking{}, err
	}
	b.ID = id
	return b, nil
}

func scanBooking(row interface{ Scan(...any) error }) (domain.Booking, error) {
	var b domain.Booking
	var status, payStatus string
	if err := row.Scan(
		&b.ID, &b.UserID, &b.RoomID,
		&b.CheckIn, &b.CheckOut,
		&b.TotalPrice,
		&b.Reference, &status, &payStatus,
		&b.CreatedAt,
	); err != nil {
		return domain.Booking{}, err
	}
	b.Status = domain.BookingStatus(status)
	b.PaymentStatus = domain.PaymentStatus(payStatus)
	return b, nil
}

func (r *Repo) UpdateBooking(ctx context.Context, id int64, p domain.BookingPatch) (domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Booking{}, err
	}
	defer func() { _ = tx.Rollback() }()

	b, err := scanBooking(tx.QueryRowContext(ctx, getBookingByIDSQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Booking{}, domain.ErrNotFound
		}
		return domain.Booking{}, err
	}

	if p.Status != nil {
		b.Status = *p.Status
	}
	if p.PaymentStatus != nil {
		b.PaymentStatus = *p.PaymentStatus
	}

	if _, err := tx.ExecContext(ctx, updateBookingStatusSQL, string(b.Status), string(b.PaymentStatus), id); err != nil {
		return domain.Booking{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Booking{}, err
	}
	return b, nil
}

func (r *Repo) GetBookingByReference(ctx context.Context, reference string) (domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, getBookingByReferenceSQL, reference))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, err
}

func (r *Repo) ListBookings(ctx context.Context) ([]domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, listBookingsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repo) IsRoomAvailable(ctx context.Context, roomID int64, checkIn, checkOut time.Time) (bool, error) {
	var overlapping int
	if err := r.db.QueryRowContext(ctx, overlapCountSQL, roomID, day(checkOut), day(checkIn)).Scan(&overlapping); err != nil {
		return false, err
	}
	return overlapping == 0, nil
}

// ---- ReferenceStore ----

func (r *Repo) SaveReference(ctx context.Context, code string) error {
	if _, err := r.db.ExecContext(ctx, insertReferenceSQL, code); err != nil {
		if isDuplicateKey(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

// ---- PaymentRepository ----

func (r *Repo) ApplyOutcome(ctx context.Context, rec domain.PaymentRecord) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	// Lock the booking row for the duration so the record insert and the
	// status flip commit together.
	var bookingID int64
	var currentStatus string
	err = tx.QueryRowContext(ctx, `SELECT id, payment_status FROM bookings WHERE booking_reference = ? FOR UPDATE`, rec.BookingReference).Scan(&bookingID, &currentStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, domain.ErrNotFound
		}
		return false, err
	}

	_, err = tx.ExecContext(ctx, insertPaymentSQL,
		rec.BookingReference,
		rec.Amount,
		rec.TransactionID,
		string(rec.Status),
		rec.PaymentDate.UTC(),
		valStr(rec.FailureReason),
		rec.UserID,
	)
	if err != nil {
		// Unique (booking_reference, transaction_id): this outcome was
		// already applied by an earlier webhook delivery.
		if isDuplicateKey(err) {
			return false, nil
		}
		return false, err
	}

	// COMPLETED is terminal: a late outcome under a new transaction id still
	// lands in the audit trail but never downgrades a settled booking.
	if currentStatus != string(domain.PaymentCompleted) {
		if _, err := tx.ExecContext(ctx, updatePaymentStatusByReferenceSQL, string(rec.Status), rec.BookingReference); err != nil {
			return false, err
		}
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repo) ListPaymentsByReference(ctx context.Context, reference string) ([]domain.PaymentRecord, error) {
	rows, err := r.db.QueryContext(ctx, listPaymentsByReferenceSQL, reference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PaymentRecord
	for rows.Next() {
		var rec domain.PaymentRecord
		var status string
		var reason sql.NullString
		if err := rows.Scan(
			&rec.ID, &rec.BookingReference, &rec.Amount, &rec.TransactionID,
			&status, &rec.PaymentDate, &reason, &rec.UserID,
		); err != nil {
			return nil, err
		}
		rec.Status = domain.PaymentStatus(status)
		if reason.Valid {
			s := reason.String
			rec.FailureReason = &s
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ---- RoomRepository ----

func (r *Repo) CreateRoom(ctx context.Context, room domain.Room) (domain.Room, error) {
	res, err := r.db.ExecContext(ctx, insertRoomSQL,
		room.Number,
		string(room.Type),
		room.PricePerNight,
		room.Capacity,
		valStr(room.Description),
		valStr(room.ImageURL),
	)
	if err != nil {
		if isDuplicateKey(err) {
			return domain.Room{}, fmt.Errorf("room number %d: %w", room.Number, domain.ErrConflict)
		}
		return domain.Room{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Room{}, err
	}
	room.ID = id
	return room, nil
}

func scanRoom(row interface{ Scan(...any) error }) (domain.Room, error) {
	var room domain.Room
	var typ string
	var price decimal.Decimal
	var desc, img sql.NullString
	if err := row.Scan(&room.ID, &room.Number, &typ, &price, &room.Capacity, &desc, &img); err != nil {
		return domain.Room{}, err
	}
	room.Type = domain.RoomType(typ)
	room.PricePerNight = price
	if desc.Valid {
		s := desc.String
		room.Description = &s
	}
	if img.Valid {
		s := img.String
		room.ImageURL = &s
	}
	return room, nil
}

func (r *Repo) UpdateRoom(ctx context.Context, id int64, p domain.RoomPatch) (domain.Room, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Room{}, err
	}
	defer func() { _ = tx.Rollback() }()

	room, err := scanRoom(tx.QueryRowContext(ctx, getRoomForUpdateSQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Room{}, domain.ErrNotFound
		}
		return domain.Room{}, err
	}

	if p.Number != nil {
		room.Number = *p.Number
	}
	if p.Type != nil {
		room.Type = *p.Type
	}
	if p.PricePerNight != nil {
		room.PricePerNight = *p.PricePerNight
	}
	if p.Capacity != nil {
		room.Capacity = *p.Capacity
	}
	if p.Description != nil {
		room.Description = p.Description
	}
	if p.ImageURL != nil {
		room.ImageURL = p.ImageURL
	}

	_, err = tx.ExecContext(ctx, updateRoomSQL,
		room.Number,
		string(room.Type),
		room.PricePerNight,
		room.Capacity,
		valStr(room.Description),
		valStr(room.ImageURL),
		id,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return domain.Room{}, fmt.Errorf("room number %d: %w", room.Number, domain.ErrConflict)
		}
		return domain.Room{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

func (r *Repo) DeleteRoom(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, deleteRoomSQL, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	room, err := scanRoom(r.db.QueryRowContext(ctx, getRoomSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Room{}, domain.ErrNotFound
	}
	return room, err
}

func (r *Repo) ListRooms(ctx context.Context) ([]domain.Room, error) {
	return r.queryRooms(ctx, listRoomsSQL)
}

func (r *Repo) SearchRooms(ctx context.Context, input string) ([]domain.Room, error) {
	pattern := "%" + input + "%"
	return r.queryRooms(ctx, searchRoomsSQL, pattern, pattern, pattern)
}

func (r *Repo) AvailableRooms(ctx context.Context, checkIn, checkOut time.Time, roomType *domain.RoomType) ([]domain.Room, error) {
	query := availableRoomsSQL
	args := []any{day(checkOut), day(checkIn)}
	if roomType != nil {
		query += availableRoomsTypeFilter
		args = append(args, string(*roomType))
	}
	query += availableRoomsOrder
	return r.queryRooms(ctx, query, args...)
}

func (r *Repo) queryRooms(ctx context.Context, query string, args ...any) ([]domain.Room, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	return out, rows.Err()
}
