package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hotel_booking/internal/domain"
)

// RoomService is the catalog surface: CRUD plus search and date-range
// availability queries. Reads are cache-aside; every write invalidates the
// affected keys.
type RoomService struct {
	repo     domain.RoomRepository
	cache    domain.Cache
	cacheTTL time.Duration
	now      func() time.Time
}

func NewRoomService(repo domain.RoomRepository, cache domain.Cache, ttl time.Duration) *RoomService {
	return &RoomService{repo: repo, cache: cache, cacheTTL: ttl, now: time.Now}
}

func roomKey(id int64) string { return fmt.Sprintf("room:%d", id) }

const roomListKey = "rooms:all"

func validateRoom(r domain.Room) error {
	if r.Number <= 0 {
		return fmt.Errorf("%w: room number must be positive", domain.ErrInvalidRoom)
	}
	if r.Type == "" {
		return fmt.Errorf("%w: room type is required", domain.ErrInvalidRoom)
	}
	if !r.PricePerNight.IsPositive() {
		return fmt.Errorf("%w: price per night must be positive", domain.ErrInvalidRoom)
	}
	if r.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive", domain.ErrInvalidRoom)
	}
	return nil
}

func (s *RoomService) Add(ctx context.Context, r domain.Room) (domain.Room, error) {
	if err := validateRoom(r); err != nil {
		return domain.Room{}, err
	}
	saved, err := s.repo.CreateRoom(ctx, r)
	if err != nil {
		return domain.Room{}, err
	}
	_ = s.cache.Del(ctx, roomListKey)
	return saved, nil
}

func (s *RoomService) Update(ctx context.Context, id int64, p domain.RoomPatch) (domain.Room, error) {
	updated, err := s.repo.UpdateRoom(ctx, id, p)
	if err != nil {
		return domain.Room{}, err
	}
	_ = s.cache.Del(ctx, roomKey(id))
	_ = s.cache.Del(ctx, roomListKey)
	return updated, nil
}

func (s *RoomService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteRoom(ctx, id); err != nil {
		return err
	}
	_ = s.cache.Del(ctx, roomKey(id))
	_ = s.cache.Del(ctx, roomListKey)
	return nil
}

func (s *RoomService) Get(ctx context.Context, id int64) (domain.Room, error) {
	key := roomKey(id)
	var r domain.Room
	if ok, _ := s.cache.Get(ctx, key, &r); ok {
		return r, nil
	}
	r, err := s.repo.GetRoom(ctx, id)
	if err != nil {
		return domain.Room{}, err
	}
	_ = s.cache.Set(ctx, key, r, s.cacheTTL)
	return r, nil
}

func (s *RoomService) List(ctx context.Context) ([]domain.Room, error) {
	var out []domain.Room
	if ok, _ := s.cache.Get(ctx, roomListKey, &out); ok {
		return out, nil
	}
	out, err := s.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, roomListKey, out, s.cacheTTL)
	return out, nil
}

func (s *RoomService) Search(ctx context.Context, input string) ([]domain.Room, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return s.List(ctx)
	}
	return s.repo.SearchRooms(ctx, input)
}

// Available lists rooms free for the whole [checkIn, checkOut) range,
// optionally narrowed to one room type. Same date rules as booking creation.
func (s *RoomService) Available(ctx context.Context, checkIn, checkOut time.Time, roomType *domain.RoomType) ([]domain.Room, error) {
	checkIn, checkOut = dateOnly(checkIn), dateOnly(checkOut)
	if checkIn.Before(dateOnly(s.now())) {
		return nil, fmt.Errorf("%w: check-in date is in the past", domain.ErrInvalidBookingState)
	}
	if !checkOut.After(checkIn) {
		return nil, fmt.Errorf("%w: check-out date must be after check-in date", domain.ErrInvalidBookingState)
	}
	return s.repo.AvailableRooms(ctx, checkIn, checkOut, roomType)
}

func (s *RoomService) Types() []domain.RoomType { return domain.RoomTypes() }
