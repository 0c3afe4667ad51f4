package mysql

const insertReservationSQL = `
INSERT INTO reservations
  (room, checkin, checkout, beds, guest_name, phone, email, source, status)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const deleteForSourceSQL = `DELETE FROM reservations WHERE room = ? AND source = ?`

// Batch insert for imports; rows are appended as (?,...) tuples.
const insertBatchPrefix = `
INSERT INTO reservations
  (room, checkin, checkout, beds, guest_name, phone, email, source, status)
VALUES `

const reservationColumns = `id, room, checkin, checkout, beds, guest_name, phone, email, source, status`

// Overlap by datetime: a reservation touches [from, to) iff it ends after
// `from` and starts before `to`.
const listOverlappingSQL = `
SELECT ` + reservationColumns + `
FROM reservations
WHERE room = ? AND checkout > ? AND checkin < ?
ORDER BY checkin ASC
`

const insertSyncRunSQL = `INSERT INTO sync_runs (ran_at, ok, summary) VALUES (?, ?, ?)`

const lastSyncRunSQL = `
SELECT id, ran_at, ok, summary
FROM sync_runs
ORDER BY id DESC
LIMIT 1
`
