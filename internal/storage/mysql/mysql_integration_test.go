//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/shopspring/decimal"

	"hotel_booking/internal/domain"
	mysqlrepo "hotel_booking/internal/storage/mysql"
)

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/sql)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}

	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=hotel",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "hotel")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRepo_MySQL_BookingLifecycle(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	room, err := repo.CreateRoom(ctx, domain.Room{
		Number:        101,
		Type:          domain.RoomDouble,
		PricePerNight: decimal.RequireFromString("100.00"),
		Capacity:      2,
	})
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	if err := repo.SaveReference(ctx, "REFAAA0001"); err != nil {
		t.Fatalf("SaveReference: %v", err)
	}
	if err := repo.SaveReference(ctx, "REFAAA0001"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate reference, got %v", err)
	}

	b, err := repo.CreateBooking(ctx, domain.Booking{
		UserID:        1,
		RoomID:        room.ID,
		CheckIn:       date(2030, 6, 10),
		CheckOut:      date(2030, 6, 12),
		TotalPrice:    decimal.RequireFromString("200.00"),
		Reference:     "REFAAA0001",
		Status:        domain.BookingBooked,
		PaymentStatus: domain.PaymentPending,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if b.ID == 0 {
		t.Fatalf("expected booking id to be assigned")
	}

	// Overlapping range on the same room must conflict.
	if err := repo.SaveReference(ctx, "REFAAA0002"); err != nil {
		t.Fatalf("SaveReference: %v", err)
	}
	_, err = repo.CreateBooking(ctx, domain.Booking{
		UserID:        2,
		RoomID:        room.ID,
		CheckIn:       date(2030, 6, 11),
		CheckOut:      date(2030, 6, 13),
		TotalPrice:    decimal.RequireFromString("200.00"),
		Reference:     "REFAAA0002",
		Status:        domain.BookingBooked,
		PaymentStatus: domain.PaymentPending,
		CreatedAt:     time.Now().UTC(),
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict for overlap, got %v", err)
	}

	// A back-to-back stay starting on the check-out day is fine.
	if _, err := repo.CreateBooking(ctx, domain.Booking{
		UserID:        2,
		RoomID:        room.ID,
		CheckIn:       date(2030, 6, 12),
		CheckOut:      date(2030, 6, 14),
		TotalPrice:    decimal.RequireFromString("200.00"),
		Reference:     "REFAAA0002",
		Status:        domain.BookingBooked,
		PaymentStatus: domain.PaymentPending,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		t.Fatalf("boundary booking: %v", err)
	}

	got, err := repo.GetBookingByReference(ctx, "REFAAA0001")
	if err != nil {
		t.Fatalf("GetBookingByReference: %v", err)
	}
	if got.ID != b.ID || !got.TotalPrice.Equal(decimal.RequireFromString("200.00")) {
		t.Fatalf("unexpected booking: %+v", got)
	}

	ok, err := repo.IsRoomAvailable(ctx, room.ID, date(2030, 6, 10), date(2030, 6, 12))
	if err != nil {
		t.Fatalf("IsRoomAvailable: %v", err)
	}
	if ok {
		t.Fatalf("expected room to be unavailable for booked range")
	}
}

func TestRepo_MySQL_ApplyOutcomeIdempotent(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	room, err := repo.CreateRoom(ctx, domain.Room{
		Number:        201,
		Type:          domain.RoomSingle,
		PricePerNight: decimal.RequireFromString("80.00"),
		Capacity:      1,
	})
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if err := repo.SaveReference(ctx, "REFBBB0001"); err != nil {
		t.Fatalf("SaveReference: %v", err)
	}
	if _, err := repo.CreateBooking(ctx, domain.Booking{
		UserID:        5,
		RoomID:        room.ID,
		CheckIn:       date(2030, 7, 1),
		CheckOut:      date(2030, 7, 3),
		TotalPrice:    decimal.RequireFromString("160.00"),
		Reference:     "REFBBB0001",
		Status:        domain.BookingBooked,
		PaymentStatus: domain.PaymentPending,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	rec := domain.PaymentRecord{
		BookingReference: "REFBBB0001",
		Amount:           decimal.RequireFromString("160.00"),
		TransactionID:    "tx-1",
		Status:           domain.PaymentCompleted,
		PaymentDate:      time.Now().UTC(),
		UserID:           5,
	}
	applied, err := repo.ApplyOutcome(ctx, rec)
	if err != nil {
		t.Fatalf("ApplyOutcome: %v", err)
	}
	if !applied {
		t.Fatalf("expected first outcome to apply")
	}

	// Redelivery of the same transaction is a no-op.
	applied, err = repo.ApplyOutcome(ctx, rec)
	if err != nil {
		t.Fatalf("ApplyOutcome redelivery: %v", err)
	}
	if applied {
		t.Fatalf("expected duplicate outcome not to apply")
	}

	b, err := repo.GetBookingByReference(ctx, "REFBBB0001")
	if err != nil {
		t.Fatalf("GetBookingByReference: %v", err)
	}
	if b.PaymentStatus != domain.PaymentCompleted {
		t.Fatalf("expected COMPLETED, got %s", b.PaymentStatus)
	}

	recs, err := repo.ListPaymentsByReference(ctx, "REFBBB0001")
	if err != nil {
		t.Fatalf("ListPaymentsByReference: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected exactly one payment record, got %d", len(recs))
	}

	// A late failure under a new transaction id is recorded but must not
	// downgrade the settled booking.
	lateReason := "late capture failure"
	late := domain.PaymentRecord{
		BookingReference: "REFBBB0001",
		Amount:           decimal.RequireFromString("160.00"),
		TransactionID:    "tx-2",
		Status:           domain.PaymentFailed,
		PaymentDate:      time.Now().UTC(),
		FailureReason:    &lateReason,
		UserID:           5,
	}
	applied, err = repo.ApplyOutcome(ctx, late)
	if err != nil {
		t.Fatalf("ApplyOutcome late failure: %v", err)
	}
	if !applied {
		t.Fatalf("expected late outcome to append to the audit trail")
	}

	b, err = repo.GetBookingByReference(ctx, "REFBBB0001")
	if err != nil {
		t.Fatalf("GetBookingByReference: %v", err)
	}
	if b.PaymentStatus != domain.PaymentCompleted {
		t.Fatalf("late failure downgraded booking to %s", b.PaymentStatus)
	}
	recs, err = repo.ListPaymentsByReference(ctx, "REFBBB0001")
	if err != nil {
		t.Fatalf("ListPaymentsByReference: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected two payment records, got %d", len(recs))
	}
}
