package mysql

// Booking dates use the half-open convention throughout:
// [check_in, check_out) overlaps [?, ?) iff check_in < checkOut AND check_out > checkIn.

const lockRoomSQL = `SELECT id FROM rooms WHERE id = ? FOR UPDATE`

const overlapCountSQL = `
SELECT COUNT(*)
FROM bookings
WHERE room_id = ?
  AND booking_status = 'BOOKED'
  AND check_in < ?
  AND check_out > ?
`

const insertBookingSQL = `
INSERT INTO bookings
  (user_id, room_id, check_in, check_out, total_price, booking_reference, booking_status, payment_status, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectBookingCols = `
SELECT id, user_id, room_id, check_in, check_out, total_price,
       booking_reference, booking_status, payment_status, created_at
FROM bookings
`

const getBookingByIDSQL = selectBookingCols + `WHERE id = ? FOR UPDATE`

const getBookingByReferenceSQL = selectBookingCols + `WHERE booking_reference = ?`

const listBookingsSQL = selectBookingCols + `ORDER BY id DESC`

const updateBookingStatusSQL = `
UPDATE bookings SET booking_status = ?, payment_status = ? WHERE id = ?
`

const updatePaymentStatusByReferenceSQL = `
UPDATE bookings SET payment_status = ? WHERE booking_reference = ?
`

const insertReferenceSQL = `
INSERT INTO booking_references (code) VALUES (?)
`

const insertPaymentSQL = `
INSERT INTO payments
  (booking_reference, amount, transaction_id, payment_status, payment_date, failure_reason, user_id)
VALUES
  (?, ?, ?, ?, ?, ?, ?)
`

const listPaymentsByReferenceSQL = `
SELECT id, booking_reference, amount, transaction_id, payment_status, payment_date, failure_reason, user_id
FROM payments
WHERE booking_reference = ?
ORDER BY payment_date DESC, id DESC
`

const insertRoomSQL = `
INSERT INTO rooms (room_number, room_type, price_per_night, capacity, description, image_url)
VALUES (?, ?, ?, ?, ?, ?)
`

const selectRoomCols = `
SELECT id, room_number, room_type, price_per_night, capacity, description, image_url
FROM rooms
`

const getRoomSQL = selectRoomCols + `WHERE id = ?`

const getRoomForUpdateSQL = getRoomSQL + ` FOR UPDATE`

const listRoomsSQL = selectRoomCols + `ORDER BY room_number`

const deleteRoomSQL = `DELETE FROM rooms WHERE id = ?`

const updateRoomSQL = `
UPDATE rooms
SET room_number = ?, room_type = ?, price_per_night = ?, capacity = ?, description = ?, image_url = ?
WHERE id = ?
`

const searchRoomsSQL = selectRoomCols + `
WHERE room_type LIKE ?
   OR description LIKE ?
   OR CAST(room_number AS CHAR) LIKE ?
ORDER BY room_number
`

// Rooms free for the whole half-open range, optionally narrowed by type.
const availableRoomsSQL = selectRoomCols + `
WHERE NOT EXISTS (
  SELECT 1 FROM bookings b
  WHERE b.room_id = rooms.id
    AND b.booking_status = 'BOOKED'
    AND b.check_in < ?
    AND b.check_out > ?
)
`

const availableRoomsTypeFilter = ` AND room_type = ?`

const availableRoomsOrder = ` ORDER BY room_number`
