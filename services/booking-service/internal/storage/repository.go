package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/reserva/libs/db"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/reserva/services/booking-service/internal/outbox"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewRepository(pool *db.Pool, outboxRepo *outbox.Repository) *Repository {
	return &Repository{pool: pool, outbox: outboxRepo}
}

var _ booking.Store = (*Repository)(nil)

func (r *Repository) GetProvider(ctx context.Context, id string) (model.Provider, error) {
	return getProvider(ctx, r.pool, id)
}

func (r *Repository) GetService(ctx context.Context, id string) (model.Service, error) {
	return getService(ctx, r.pool, id)
}

func (r *Repository) SaveProvider(ctx context.Context, p model.Provider) error {
	days := make([]int16, 0, len(p.WorkingDays))
	for _, wd := range p.WorkingDays {
		days = append(days, int16(wd))
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO providers (id, name, working_days, start_minute, end_minute, break_minutes, slot_step_minutes, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			working_days = EXCLUDED.working_days,
			start_minute = EXCLUDED.start_minute,
			end_minute = EXCLUDED.end_minute,
			break_minutes = EXCLUDED.break_minutes,
			slot_step_minutes = EXCLUDED.slot_step_minutes,
			active = EXCLUDED.active,
			updated_at = now()
	`, p.ID, p.Name, days, p.StartMinute, p.EndMinute, p.BreakMinutes, p.SlotStepMinutes, p.Active)
	return mapErr("save provider", err)
}

func (r *Repository) SaveService(ctx context.Context, s model.Service) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO services (id, name, duration_minutes, price_cents, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			duration_minutes = EXCLUDED.duration_minutes,
			price_cents = EXCLUDED.price_cents,
			active = EXCLUDED.active,
			updated_at = now()
	`, s.ID, s.Name, s.DurationMinutes, s.PriceCents, s.Active)
	return mapErr("save service", err)
}

func (r *Repository) ServiceReferenced(ctx context.Context, serviceID string) (bool, error) {
	var used bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reservations WHERE $1 = ANY (service_ids))`, serviceID).Scan(&used)
	return used, mapErr("service referenced", err)
}

func (r *Repository) GetReservation(ctx context.Context, id string) (model.Reservation, error) {
	res, err := scanReservation(r.pool.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id))
	return res, mapErr("get reservation", err)
}

func (r *Repository) ActiveReservations(ctx context.Context, providerID string, day model.Day) ([]model.Reservation, error) {
	return listReservations(ctx, r.pool, providerID, day, true)
}

func (r *Repository) ListReservations(ctx context.Context, providerID string, day model.Day) ([]model.Reservation, error) {
	return listReservations(ctx, r.pool, providerID, day, false)
}

func (r *Repository) BlocksCovering(ctx context.Context, providerID string, day model.Day) ([]model.Block, error) {
	return blocksCovering(ctx, r.pool, providerID, day)
}

func (r *Repository) InsertBlock(ctx context.Context, b model.Block) error {
	var providerID *string
	if b.ProviderID != "" {
		providerID = &b.ProviderID
	}
	var startMinute, endMinute *int
	if b.Hours != nil {
		startMinute, endMinute = &b.Hours.Start, &b.Hours.End
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO blocks (id, provider_id, start_date, end_date, start_minute, end_minute, kind, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, b.ID, providerID, b.StartDate.Time(time.UTC), b.EndDate.Time(time.UTC), startMinute, endMinute, string(b.Kind), b.Reason, b.CreatedAt)
	return mapErr("insert block", err)
}

func (r *Repository) DeleteBlock(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM blocks WHERE id = $1`, id)
	if err != nil {
		return mapErr("delete block", err)
	}
	if tag.RowsAffected() == 0 {
		return mapErr("delete block", pgx.ErrNoRows)
	}
	return nil
}

// InProviderTx serialises writers per provider with a row lock on the
// provider. The exclusion constraint on reservations backs it up.
func (r *Repository) InProviderTx(ctx context.Context, providerID string, fn func(ctx context.Context, tx booking.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return mapErr("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT id FROM providers WHERE id = $1 FOR UPDATE`, providerID); err != nil {
		return mapErr("lock provider", err)
	}
	if err := fn(ctx, &pgTx{tx: tx, outbox: r.outbox}); err != nil {
		return err
	}
	return mapErr("commit", tx.Commit(ctx))
}

type pgTx struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

var _ booking.Tx = (*pgTx)(nil)

func (t *pgTx) GetProvider(ctx context.Context, id string) (model.Provider, error) {
	return getProvider(ctx, t.tx, id)
}

func (t *pgTx) GetService(ctx context.Context, id string) (model.Service, error) {
	return getService(ctx, t.tx, id)
}

func (t *pgTx) ActiveReservations(ctx context.Context, providerID string, day model.Day) ([]model.Reservation, error) {
	return listReservations(ctx, t.tx, providerID, day, true)
}

func (t *pgTx) BlocksCovering(ctx context.Context, providerID string, day model.Day) ([]model.Block, error) {
	return blocksCovering(ctx, t.tx, providerID, day)
}

func (t *pgTx) ReservationByIdempotencyKey(ctx context.Context, clientID, key string) (model.Reservation, error) {
	res, err := scanReservation(t.tx.QueryRow(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE client_id = $1 AND idempotency_key = $2
	`, clientID, key))
	return res, mapErr("lookup idempotency key", err)
}

func (t *pgTx) ReservationForUpdate(ctx context.Context, id string) (model.Reservation, error) {
	res, err := scanReservation(t.tx.QueryRow(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE id = $1
		FOR UPDATE
	`, id))
	return res, mapErr("lock reservation", err)
}

func (t *pgTx) InsertReservation(ctx context.Context, r model.Reservation) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO reservations
			(id, client_id, provider_id, service_id, service_ids, day, start_minute, end_minute,
			 duration_minutes, price_cents, state, client_notes, internal_notes, cancel_reason,
			 idempotency_key, created_at, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, r.ID, r.ClientID, r.ProviderID, r.ServiceID, r.ServiceIDs, r.Day.Time(time.UTC), r.StartMinute, r.EndMinute,
		r.DurationMinutes, r.PriceCents, string(r.State), r.ClientNotes, r.InternalNotes, r.CancelReason,
		nullable(r.IdempotencyKey), r.CreatedAt, r.ConfirmedAt)
	return mapErr("insert reservation", err)
}

func (t *pgTx) UpdateReservation(ctx context.Context, r model.Reservation) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE reservations
		SET state = $2,
			cancel_reason = $3,
			internal_notes = $4,
			confirmed_at = $5,
			started_at = $6,
			completed_at = $7,
			cancelled_at = $8,
			no_show_at = $9
		WHERE id = $1
	`, r.ID, string(r.State), r.CancelReason, r.InternalNotes, r.ConfirmedAt, r.StartedAt, r.CompletedAt, r.CancelledAt, r.NoShowAt)
	if err != nil {
		return mapErr("update reservation", err)
	}
	if tag.RowsAffected() == 0 {
		return mapErr("update reservation", pgx.ErrNoRows)
	}
	return nil
}

func (t *pgTx) AppendEvent(ctx context.Context, evt outbox.Event) error {
	return mapErr("append outbox event", t.outbox.Insert(ctx, t.tx, evt))
}

func getProvider(ctx context.Context, q querier, id string) (model.Provider, error) {
	var p model.Provider
	var days []int16
	err := q.QueryRow(ctx, `
		SELECT id, name, working_days, start_minute, end_minute, break_minutes, slot_step_minutes, active
		FROM providers
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &days, &p.StartMinute, &p.EndMinute, &p.BreakMinutes, &p.SlotStepMinutes, &p.Active)
	if err != nil {
		return model.Provider{}, mapErr("get provider", err)
	}
	for _, d := range days {
		p.WorkingDays = append(p.WorkingDays, time.Weekday(d))
	}
	return p, nil
}

func getService(ctx context.Context, q querier, id string) (model.Service, error) {
	var s model.Service
	err := q.QueryRow(ctx, `
		SELECT id, name, duration_minutes, price_cents, active
		FROM services
		WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.PriceCents, &s.Active)
	if err != nil {
		return model.Service{}, mapErr("get service", err)
	}
	return s, nil
}

func blocksCovering(ctx context.Context, q querier, providerID string, day model.Day) ([]model.Block, error) {
	rows, err := q.Query(ctx, `
		SELECT id::text, COALESCE(provider_id, ''), start_date, end_date, start_minute, end_minute, kind, reason, created_at
		FROM blocks
		WHERE (provider_id IS NULL OR provider_id = $1)
			AND start_date <= $2
			AND end_date >= $2
		ORDER BY created_at, id
	`, providerID, day.Time(time.UTC))
	if err != nil {
		return nil, mapErr("list blocks", err)
	}
	defer rows.Close()

	var out []model.Block
	for rows.Next() {
		var b model.Block
		var start, end time.Time
		var startMinute, endMinute *int
		var kind string
		if err := rows.Scan(&b.ID, &b.ProviderID, &start, &end, &startMinute, &endMinute, &kind, &b.Reason, &b.CreatedAt); err != nil {
			return nil, mapErr("scan block", err)
		}
		b.StartDate, b.EndDate, b.Kind = model.DayOf(start), model.DayOf(end), model.BlockKind(kind)
		if startMinute != nil && endMinute != nil {
			b.Hours = &model.TimeRange{Start: *startMinute, End: *endMinute}
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, mapErr("list blocks", rows.Err())
	}
	return out, nil
}

const reservationColumns = `id::text, client_id, provider_id, service_id, service_ids, day, start_minute, end_minute,
	duration_minutes, price_cents, state, client_notes, internal_notes, cancel_reason,
	COALESCE(idempotency_key, ''), created_at, confirmed_at, started_at, completed_at, cancelled_at, no_show_at`

func scanReservation(row pgx.Row) (model.Reservation, error) {
	var r model.Reservation
	var day time.Time
	var state string
	err := row.Scan(
		&r.ID,
		&r.ClientID,
		&r.ProviderID,
		&r.ServiceID,
		&r.ServiceIDs,
		&day,
		&r.StartMinute,
		&r.EndMinute,
		&r.DurationMinutes,
		&r.PriceCents,
		&state,
		&r.ClientNotes,
		&r.InternalNotes,
		&r.CancelReason,
		&r.IdempotencyKey,
		&r.CreatedAt,
		&r.ConfirmedAt,
		&r.StartedAt,
		&r.CompletedAt,
		&r.CancelledAt,
		&r.NoShowAt,
	)
	if err != nil {
		return model.Reservation{}, err
	}
	r.Day = model.DayOf(day)
	r.State = model.State(state)
	return r, nil
}

func listReservations(ctx context.Context, q querier, providerID string, day model.Day, activeOnly bool) ([]model.Reservation, error) {
	rows, err := q.Query(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE provider_id = $1
			AND day = $2
			AND ($3 = false OR state <> 'cancelled')
		ORDER BY start_minute ASC, id
	`, providerID, day.Time(time.UTC), activeOnly)
	if err != nil {
		return nil, mapErr("list reservations", err)
	}
	defer rows.Close()

	out := []model.Reservation{}
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, mapErr("scan reservation", err)
		}
		out = append(out, r)
	}
	if rows.Err() != nil {
		return nil, mapErr("list reservations", rows.Err())
	}
	return out, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
