package mysql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"vila_mar/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Insert(ctx context.Context, res domain.Reservation) (int64, error) {
	out, err := r.db.ExecContext(ctx, insertReservationSQL,
		string(res.Room),
		res.Checkin,
		res.Checkout,
		res.Beds,
		res.GuestName,
		valStr(res.Phone),
		valStr(res.Email),
		string(res.Source),
		string(res.Status),
	)
	if err != nil {
		return 0, err
	}
	return out.LastInsertId()
}

// ReplaceForSource wipes and rewrites every reservation of one (room, source)
// pair inside a single transaction, so readers never observe a half-replaced
// state. Returns the number of rows inserted.
func (r *Repo) ReplaceForSource(ctx context.Context, room domain.Room, source domain.Source, batch []domain.Reservation) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, deleteForSourceSQL, string(room), string(source)); err != nil {
		return 0, err
	}

	if len(batch) > 0 {
		values := make([]string, 0, len(batch))
		args := make([]any, 0, len(batch)*9)
		for _, res := range batch {
			values = append(values, "(?,?,?,?,?,?,?,?,?)")
			args = append(args,
				string(room),
				res.Checkin,
				res.Checkout,
				res.Beds,
				res.GuestName,
				valStr(res.Phone),
				valStr(res.Email),
				string(source),
				string(res.Status),
			)
		}
		sqlStr := insertBatchPrefix + strings.Join(values, ",")
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(batch), nil
}

func (r *Repo) List(ctx context.Context, q domain.ReservationsQuery) ([]domain.Reservation, error) {
	where := make([]string, 0, 3)
	args := make([]any, 0, 4)

	if q.Room != nil {
		where = append(where, "room = ?")
		args = append(args, string(*q.Room))
	}
	if q.Source != nil {
		where = append(where, "source = ?")
		args = append(args, string(*q.Source))
	}
	if q.Day != nil {
		// Occupied on the day iff the stay overlaps [day 00:00, next day 00:00).
		start := domain.StartOfDay(*q.Day)
		where = append(where, "checkout > ? AND checkin < ?")
		args = append(args, start, start.AddDate(0, 0, 1))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 300
	}
	sqlStr := "SELECT " + reservationColumns + " FROM reservations"
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}
	sqlStr += " ORDER BY checkin ASC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReservations(rows)
}

func (r *Repo) ListOverlapping(ctx context.Context, room domain.Room, from, to time.Time) ([]domain.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, listOverlappingSQL, string(room), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReservations(rows)
}

func scanReservations(rows *sql.Rows) ([]domain.Reservation, error) {
	var out []domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		var room, source, status string
		var phone, email sql.NullString
		if err := rows.Scan(
			&res.ID,
			&room,
			&res.Checkin,
			&res.Checkout,
			&res.Beds,
			&res.GuestName,
			&phone,
			&email,
			&source,
			&status,
		); err != nil {
			return nil, err
		}
		res.Room = domain.Room(room)
		res.Source = domain.Source(source)
		res.Status = domain.Status(status)
		if phone.Valid {
			p := phone.String
			res.Phone = &p
		}
		if email.Valid {
			e := email.String
			res.Email = &e
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) InsertSyncRun(ctx context.Context, run domain.SyncRun) error {
	_, err := r.db.ExecContext(ctx, insertSyncRunSQL, run.RanAt, run.OK, string(run.Summary))
	return err
}

func (r *Repo) LastSyncRun(ctx context.Context) (domain.SyncRun, error) {
	row := r.db.QueryRowContext(ctx, lastSyncRunSQL)

	var run domain.SyncRun
	var summary sql.NullString
	if err := row.Scan(&run.ID, &run.RanAt, &run.OK, &summary); err != nil {
		if err == sql.ErrNoRows {
			return domain.SyncRun{}, domain.ErrNotFound
		}
		return domain.SyncRun{}, err
	}
	if summary.Valid {
		run.Summary = []byte(summary.String)
	}
	return run, nil
}
