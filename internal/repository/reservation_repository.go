package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/CanAhmet12/nazliyavuz-platform-sub000/internal/models"
)

// ErrSlotTaken is returned when the conflict gate finds an overlapping
// pending or accepted reservation for the same teacher.
var ErrSlotTaken = errors.New("requested time slot is already reserved")

// ErrStaleStatus is returned when an update's status predicate matches no
// row: a concurrent request moved the reservation out of the status the
// caller read before the lock was taken.
var ErrStaleStatus = errors.New("reservation status changed concurrently")

// ReservationRepository persists lesson reservations. The check-then-write
// sequence runs inside one transaction under a per-teacher advisory lock, so
// two concurrent requests for the same free slot cannot both commit.
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository constructs a reservation repository.
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

const reservationColumns = `id, student_id, teacher_id, category_id, subject, proposed_datetime, duration_minutes, price, status, notes, teacher_notes, admin_notes, created_at, updated_at`

const lockTeacherQuery = `SELECT pg_advisory_xact_lock(hashtext($1))`

const countOverlapsQuery = `SELECT COUNT(*) FROM reservations
WHERE teacher_id = $1
  AND status IN ('pending', 'accepted')
  AND id <> $2
  AND proposed_datetime < $3
  AND proposed_datetime + make_interval(mins => duration_minutes) > $4`

// FindByID fetches a reservation by id.
func (r *ReservationRepository) FindByID(ctx context.Context, id string) (*models.Reservation, error) {
	query := fmt.Sprintf(`SELECT %s FROM reservations WHERE id = $1`, reservationColumns)
	var reservation models.Reservation
	if err := r.db.GetContext(ctx, &reservation, query, id); err != nil {
		return nil, err
	}
	return &reservation, nil
}

// List returns reservations matching the filter with a total count.
func (r *ReservationRepository) List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		where = append(where, fmt.Sprintf("teacher_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("proposed_datetime >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("proposed_datetime < $%d", len(args)))
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM reservations WHERE %s ORDER BY proposed_datetime ASC LIMIT %d OFFSET %d`,
		reservationColumns, whereClause, size, offset)
	var reservations []models.Reservation
	if err := r.db.SelectContext(ctx, &reservations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reservations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM reservations WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reservations: %w", err)
	}
	return reservations, total, nil
}

// ListBlockingBetween returns the pending/accepted reservations of a teacher
// whose occupied interval intersects [from, to).
func (r *ReservationRepository) ListBlockingBetween(ctx context.Context, teacherID string, from, to time.Time) ([]models.Reservation, error) {
	query := fmt.Sprintf(`SELECT %s FROM reservations
WHERE teacher_id = $1
  AND status IN ('pending', 'accepted')
  AND proposed_datetime < $2
  AND proposed_datetime + make_interval(mins => duration_minutes) > $3
ORDER BY proposed_datetime ASC`, reservationColumns)

	var reservations []models.Reservation
	if err := r.db.SelectContext(ctx, &reservations, query, teacherID, to, from); err != nil {
		return nil, fmt.Errorf("list blocking reservations: %w", err)
	}
	return reservations, nil
}

// CreateInSlot inserts a new reservation after re-checking the teacher's
// schedule for overlaps inside a serialized critical section. Returns
// ErrSlotTaken without writing anything when the slot is contested.
func (r *ReservationRepository) CreateInSlot(ctx context.Context, reservation *models.Reservation) error {
	if reservation.ID == "" {
		reservation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = now
	}
	reservation.UpdatedAt = now

	return r.withTeacherLock(ctx, reservation.TeacherID, func(tx *sqlx.Tx) error {
		if err := r.ensureSlotFree(ctx, tx, reservation, reservation.ID); err != nil {
			return err
		}
		const query = `INSERT INTO reservations (id, student_id, teacher_id, category_id, subject, proposed_datetime, duration_minutes, price, status, notes, teacher_notes, admin_notes, created_at, updated_at)
VALUES (:id, :student_id, :teacher_id, :category_id, :subject, :proposed_datetime, :duration_minutes, :price, :status, :notes, :teacher_notes, :admin_notes, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, reservation); err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
		return nil
	})
}

// UpdateInSlot rewrites a pending reservation's details after re-running the
// overlap check against every other blocking reservation of the teacher. The
// status predicate on the UPDATE guards against a concurrent transition that
// committed between the caller's read and the lock acquisition.
func (r *ReservationRepository) UpdateInSlot(ctx context.Context, reservation *models.Reservation) error {
	reservation.UpdatedAt = time.Now().UTC()

	return r.withTeacherLock(ctx, reservation.TeacherID, func(tx *sqlx.Tx) error {
		if err := r.ensureSlotFree(ctx, tx, reservation, reservation.ID); err != nil {
			return err
		}
		const query = `UPDATE reservations
SET category_id = :category_id, subject = :subject, proposed_datetime = :proposed_datetime,
    duration_minutes = :duration_minutes, price = :price, notes = :notes, updated_at = :updated_at
WHERE id = :id AND status = 'pending'`
		result, err := tx.NamedExecContext(ctx, query, reservation)
		if err != nil {
			return fmt.Errorf("update reservation: %w", err)
		}
		return requireRowMatched(result)
	})
}

// UpdateStatus transitions a reservation, optionally attaching teacher or
// admin notes. When the target status blocks the slot again (admin forcing a
// reservation back to pending/accepted) the overlap gate runs first. The
// UPDATE only matches the status the caller read, so a transition that raced
// ahead surfaces as ErrStaleStatus instead of being silently overwritten.
func (r *ReservationRepository) UpdateStatus(ctx context.Context, reservation *models.Reservation, status models.ReservationStatus, teacherNotes, adminNotes *string) error {
	apply := func(tx sqlx.ExtContext) error {
		now := time.Now().UTC()
		const query = `UPDATE reservations
SET status = $2, teacher_notes = COALESCE($3, teacher_notes), admin_notes = COALESCE($4, admin_notes), updated_at = $5
WHERE id = $1 AND status = $6`
		result, err := tx.ExecContext(ctx, query, reservation.ID, status, teacherNotes, adminNotes, now, reservation.Status)
		if err != nil {
			return fmt.Errorf("update reservation status: %w", err)
		}
		if err := requireRowMatched(result); err != nil {
			return err
		}
		reservation.Status = status
		reservation.UpdatedAt = now
		return nil
	}

	if status.Blocking() && !reservation.Status.Blocking() {
		return r.withTeacherLock(ctx, reservation.TeacherID, func(tx *sqlx.Tx) error {
			if err := r.ensureSlotFree(ctx, tx, reservation, reservation.ID); err != nil {
				return err
			}
			return apply(tx)
		})
	}
	return apply(r.db)
}

func (r *ReservationRepository) withTeacherLock(ctx context.Context, teacherID string, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reservation tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, lockTeacherQuery, teacherID); err != nil {
		return fmt.Errorf("acquire teacher lock: %w", err)
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reservation tx: %w", err)
	}
	return nil
}

func requireRowMatched(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrStaleStatus
	}
	return nil
}

func (r *ReservationRepository) ensureSlotFree(ctx context.Context, tx *sqlx.Tx, reservation *models.Reservation, excludeID string) error {
	span := reservation.Span()
	var overlapping int
	if err := tx.GetContext(ctx, &overlapping, countOverlapsQuery, reservation.TeacherID, excludeID, span.End, span.Start); err != nil {
		return fmt.Errorf("check reservation overlap: %w", err)
	}
	if overlapping > 0 {
		return ErrSlotTaken
	}
	return nil
}
