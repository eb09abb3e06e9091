package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/ifarias/examsched/internal/model"
	"github.com/ifarias/examsched/internal/notify"
	"github.com/ifarias/examsched/internal/repository"
	"github.com/ifarias/examsched/internal/repository/base"
	"github.com/ifarias/examsched/internal/schedule"
)

// Store interfaces are satisfied by the pgx repositories; tests substitute
// hand-written mocks.
type (
	ReservationStore interface {
		Create(ctx context.Context, db base.Querier, res *model.Reservation) error
		InsertModules(ctx context.Context, db base.Querier, reservationID int64, moduleIDs []int64) error
		DeleteModules(ctx context.Context, db base.Querier, reservationID int64) error
		Delete(ctx context.Context, db base.Querier, id int64) (int64, error)
		UpdateStatus(ctx context.Context, db base.Querier, id, statusID int64, notes string) error
		UpdatePlacement(ctx context.Context, db base.Querier, id, roomID int64, date time.Time, startOrder int) error
		GetByID(ctx context.Context, id int64) (*model.Reservation, error)
		GetActiveByExam(ctx context.Context, examID int64) (*model.Reservation, error)
		List(ctx context.Context, filter repository.ReservationFilter) ([]*model.Reservation, error)
		OccupiedOrders(ctx context.Context, db base.Querier, roomID int64, date time.Time, excludeReservationID, excludeExamID *int64) ([]int, error)
	}

	ExamStore interface {
		GetByID(ctx context.Context, id int64) (*model.Exam, error)
		ListPending(ctx context.Context) ([]model.Exam, error)
		SetState(ctx context.Context, db base.Querier, id int64, state model.ExamState) error
		UpdateModuleCount(ctx context.Context, db base.Querier, id int64, moduleCount int) error
	}

	ModuleStore interface {
		GetAll(ctx context.Context) ([]model.Module, error)
	}

	RoomStore interface {
		GetByID(ctx context.Context, id int64) (*model.Room, error)
		GetAll(ctx context.Context) ([]model.Room, error)
	}

	StatusStore interface {
		GetByCode(ctx context.Context, code model.StatusCode) (*model.ReservationStatus, error)
	}

	// TxRunner executes fn inside one transaction.
	TxRunner interface {
		WithTx(ctx context.Context, fn func(db base.Querier) error) error
	}

	// Broadcaster fans a change event out to every connected viewer.
	Broadcaster interface {
		Publish(evt model.ChangeEvent)
	}
)

const (
	statusCachePrefix = "status:"
	moduleCacheKey    = "modules"
)

// errAlreadyRemoved aborts a removal transaction when another session beat
// us to the delete; the caller turns it into a no-op.
var errAlreadyRemoved = errors.New("already removed")

type CreateRequest struct {
	ExamID     int64
	RoomID     int64
	Date       time.Time
	StartOrder int
	ModuleIDs  []int64 // alternative to StartOrder; must be contiguous
	TeacherID  *int64
}

type UpdateRequest struct {
	RoomID      *int64
	Date        *time.Time
	StartOrder  *int
	ModuleCount *int
	ModuleIDs   []int64
}

// ReservationService is the allocation transaction: every mutation of the
// reservation/module/exam rows goes through it, conflict-checked inside the
// same transaction that writes.
type ReservationService struct {
	tx          TxRunner
	reservRepo  ReservationStore
	examRepo    ExamStore
	moduleRepo  ModuleStore
	roomRepo    RoomStore
	statusRepo  StatusStore
	refCache    *cache.Cache
	broadcaster Broadcaster
	notifier    notify.Notifier
	logger      *zap.Logger
}

func NewReservationService(
	tx TxRunner,
	reservRepo ReservationStore,
	examRepo ExamStore,
	moduleRepo ModuleStore,
	roomRepo RoomStore,
	statusRepo StatusStore,
	broadcaster Broadcaster,
	notifier notify.Notifier,
	logger *zap.Logger,
) *ReservationService {
	return &ReservationService{
		tx:          tx,
		reservRepo:  reservRepo,
		examRepo:    examRepo,
		moduleRepo:  moduleRepo,
		roomRepo:    roomRepo,
		statusRepo:  statusRepo,
		refCache:    cache.New(time.Minute, 5*time.Minute),
		broadcaster: broadcaster,
		notifier:    notifier,
		logger:      logger,
	}
}

// Create places an exam into a room and span for a date. The conflict check
// runs inside the write transaction, under an advisory lock on (room, date),
// so two sessions racing for the same cells cannot both commit.
func (s *ReservationService) Create(ctx context.Context, req CreateRequest) (*model.Reservation, error) {
	if req.ExamID < 1 || req.RoomID < 1 {
		return nil, validationf("exam_id and room_id are required")
	}
	if req.Date.IsZero() {
		return nil, validationf("date is required")
	}
	if req.StartOrder < 1 && len(req.ModuleIDs) == 0 {
		return nil, validationf("either start_order or module_ids is required")
	}

	exam, err := s.examRepo.GetByID(ctx, req.ExamID)
	if err != nil {
		return nil, err
	}
	if exam == nil {
		return nil, validationf("unknown exam %d", req.ExamID)
	}
	if exam.State != model.ExamStatePending {
		if active, err := s.reservRepo.GetActiveByExam(ctx, exam.ID); err == nil && active != nil {
			return nil, conflictf("exam %d already reserved in room %d on %s", exam.ID, active.RoomID, active.DateKey())
		}
		return nil, conflictf("exam %d already has an active reservation", exam.ID)
	}

	room, err := s.roomRepo.GetByID(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, validationf("unknown room %d", req.RoomID)
	}

	ix, err := s.moduleIndex(ctx)
	if err != nil {
		return nil, err
	}

	span := schedule.Span{Start: req.StartOrder, Length: exam.ModuleCount}
	if len(req.ModuleIDs) > 0 {
		span, err = ix.SpanFromModuleIDs(req.ModuleIDs)
		if err != nil {
			return nil, validationf("module_ids: %v", err)
		}
	}
	if span.Length != exam.ModuleCount {
		return nil, validationf("span of %d modules does not match exam duration of %d", span.Length, exam.ModuleCount)
	}

	moduleIDs, err := ix.Resolve(span)
	if err != nil {
		return nil, classifyCheck(err)
	}

	status, err := s.statusByCode(ctx, model.StatusProgramado)
	if err != nil {
		return nil, err
	}

	date := dateOnly(req.Date)
	res := &model.Reservation{
		ExamID:     exam.ID,
		RoomID:     room.ID,
		StatusID:   status.ID,
		Status:     status.Code,
		Date:       date,
		StartOrder: span.Start,
		TeacherID:  req.TeacherID,
	}

	err = s.tx.WithTx(ctx, func(db base.Querier) error {
		if err := lockRoomDate(ctx, db, room.ID, date); err != nil {
			return err
		}

		occupied, err := s.reservRepo.OccupiedOrders(ctx, db, room.ID, date, nil, &exam.ID)
		if err != nil {
			return err
		}
		if err := schedule.CheckSpan(ix, occupied, span); err != nil {
			return classifyCheck(err)
		}

		if err := s.reservRepo.Create(ctx, db, res); err != nil {
			return translateDBError(err)
		}
		if err := s.reservRepo.InsertModules(ctx, db, res.ID, moduleIDs); err != nil {
			return translateDBError(err)
		}
		return s.examRepo.SetState(ctx, db, exam.ID, model.ExamStateReserved)
	})
	if err != nil {
		return nil, err
	}

	full := s.reload(ctx, res)
	exam.State = model.ExamStateReserved
	full.Exam = exam

	s.logger.Info("reservation created",
		zap.Int64("reservation_id", full.ID),
		zap.Int64("exam_id", exam.ID),
		zap.Int64("room_id", room.ID),
		zap.String("date", full.DateKey()),
		zap.Int("start_order", span.Start),
		zap.Int("module_count", span.Length),
	)

	s.publishUpsert(full)
	s.notifier.ReservationScheduled(ctx, full, exam)

	return full, nil
}

// Update changes a reservation's placement: a new span in place (resize), a
// new room and/or date (move), or both. The whole change is one atomic
// unit, so a rejected target leaves the old placement intact. The recorded
// start order only shifts when the caller asks for it. A resize also rewrites
// the exam's duration, keeping span length and module_count equal.
func (s *ReservationService) Update(ctx context.Context, id int64, req UpdateRequest) (*model.Reservation, error) {
	res, err := s.reservRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrNotFound
	}

	current, err := schedule.SpanOf(res)
	if err != nil {
		return nil, conflictf("%v", err)
	}

	exam, err := s.examRepo.GetByID(ctx, res.ExamID)
	if err != nil {
		return nil, err
	}
	if exam == nil {
		return nil, fmt.Errorf("reservation %d references missing exam %d", id, res.ExamID)
	}

	roomID := res.RoomID
	if req.RoomID != nil {
		roomID = *req.RoomID
		room, err := s.roomRepo.GetByID(ctx, roomID)
		if err != nil {
			return nil, err
		}
		if room == nil {
			return nil, validationf("unknown room %d", roomID)
		}
	}

	date := dateOnly(res.Date)
	if req.Date != nil {
		date = dateOnly(*req.Date)
	}

	ix, err := s.moduleIndex(ctx)
	if err != nil {
		return nil, err
	}

	target := current
	if len(req.ModuleIDs) > 0 {
		target, err = ix.SpanFromModuleIDs(req.ModuleIDs)
		if err != nil {
			return nil, validationf("module_ids: %v", err)
		}
	} else {
		if req.StartOrder != nil {
			target.Start = *req.StartOrder
		}
		if req.ModuleCount != nil {
			target.Length = *req.ModuleCount
		}
	}
	if target.Length < 1 {
		return nil, validationf("module_count must be positive")
	}

	moduleIDs, err := ix.Resolve(target)
	if err != nil {
		return nil, classifyCheck(err)
	}

	err = s.tx.WithTx(ctx, func(db base.Querier) error {
		if err := lockRoomDate(ctx, db, roomID, date); err != nil {
			return err
		}

		// the reservation must not conflict with itself
		occupied, err := s.reservRepo.OccupiedOrders(ctx, db, roomID, date, &res.ID, nil)
		if err != nil {
			return err
		}
		if err := schedule.CheckSpan(ix, occupied, target); err != nil {
			return classifyCheck(err)
		}

		if err := s.reservRepo.DeleteModules(ctx, db, res.ID); err != nil {
			return translateDBError(err)
		}
		if err := s.reservRepo.InsertModules(ctx, db, res.ID, moduleIDs); err != nil {
			return translateDBError(err)
		}
		if err := s.reservRepo.UpdatePlacement(ctx, db, res.ID, roomID, date, target.Start); err != nil {
			return err
		}

		// span length and exam duration stay equal across a resize
		if target.Length != exam.ModuleCount {
			return s.examRepo.UpdateModuleCount(ctx, db, exam.ID, target.Length)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	full := s.reload(ctx, res)

	s.logger.Info("reservation updated",
		zap.Int64("reservation_id", res.ID),
		zap.Int64("room_id", roomID),
		zap.String("date", full.DateKey()),
		zap.Int("start_order", target.Start),
		zap.Int("module_count", target.Length),
	)

	s.publishUpsert(full)

	return full, nil
}

// Discard withdraws a placement: the reservation and its module rows are
// deleted and the exam returns to PENDING. A missing reservation is a
// no-op, so retries are safe.
func (s *ReservationService) Discard(ctx context.Context, id int64) (bool, error) {
	return s.remove(ctx, id, "discarded")
}

// Cancel removes a reservation entirely. Same effect as Discard; it exists
// as a separate action for the admin-side cancellation flow.
func (s *ReservationService) Cancel(ctx context.Context, id int64) (bool, error) {
	return s.remove(ctx, id, "cancelled")
}

func (s *ReservationService) remove(ctx context.Context, id int64, action string) (bool, error) {
	res, err := s.reservRepo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if res == nil {
		return false, nil
	}
	if !schedule.CanRemove(res.Status) {
		return false, conflictf("reservation %d is already %s", id, res.Status)
	}

	exam, err := s.examRepo.GetByID(ctx, res.ExamID)
	if err != nil {
		return false, err
	}
	if exam == nil {
		return false, fmt.Errorf("reservation %d references missing exam %d", id, res.ExamID)
	}

	err = s.tx.WithTx(ctx, func(db base.Querier) error {
		if err := s.reservRepo.DeleteModules(ctx, db, id); err != nil {
			return translateDBError(err)
		}

		affected, err := s.reservRepo.Delete(ctx, db, id)
		if err != nil {
			return translateDBError(err)
		}
		if affected == 0 {
			// another session removed it first; it already reactivated the exam
			return errAlreadyRemoved
		}

		return s.examRepo.SetState(ctx, db, exam.ID, model.ExamStatePending)
	})
	if errors.Is(err, errAlreadyRemoved) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	exam.State = model.ExamStatePending

	s.logger.Info("reservation "+action,
		zap.Int64("reservation_id", id),
		zap.Int64("exam_id", exam.ID),
	)

	s.broadcaster.Publish(model.ChangeEvent{
		ID:            uuid.NewString(),
		Kind:          model.EventReservationRemoved,
		ReservationID: id,
		ExamID:        exam.ID,
	})
	s.notifier.ReservationRemoved(ctx, res, exam)

	return true, nil
}

// SetConfirmationStatus applies a teacher/admin response to the
// confirmation workflow. Module associations are untouched; only the status
// and notes change.
func (s *ReservationService) SetConfirmationStatus(ctx context.Context, id int64, code model.StatusCode, notes string) (*model.Reservation, error) {
	if code == model.StatusDescartado {
		return nil, validationf("use discard to withdraw a reservation")
	}

	res, err := s.reservRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrNotFound
	}

	if err := schedule.ValidateTransition(res.Status, code); err != nil {
		return nil, conflictf("%v", err)
	}

	status, err := s.statusByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(db base.Querier) error {
		return s.reservRepo.UpdateStatus(ctx, db, id, status.ID, notes)
	})
	if err != nil {
		return nil, err
	}

	full := s.reload(ctx, res)
	full.Status = status.Code
	full.StatusID = status.ID

	s.logger.Info("reservation status changed",
		zap.Int64("reservation_id", id),
		zap.String("from", string(res.Status)),
		zap.String("to", string(code)),
	)

	s.publishUpsert(full)

	return full, nil
}

// Get returns one reservation with its modules.
func (s *ReservationService) Get(ctx context.Context, id int64) (*model.Reservation, error) {
	res, err := s.reservRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrNotFound
	}
	return res, nil
}

// List returns reservations matching the filter.
func (s *ReservationService) List(ctx context.Context, filter repository.ReservationFilter) ([]*model.Reservation, error) {
	return s.reservRepo.List(ctx, filter)
}

// moduleIndex returns the day's module catalog as an index, briefly cached
// since the catalog is immutable reference data.
func (s *ReservationService) moduleIndex(ctx context.Context) (*schedule.ModuleIndex, error) {
	if cached, ok := s.refCache.Get(moduleCacheKey); ok {
		return cached.(*schedule.ModuleIndex), nil
	}

	modules, err := s.moduleRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(modules) == 0 {
		return nil, fmt.Errorf("%w: module catalog is empty", ErrMissingConfig)
	}

	ix := schedule.NewModuleIndex(modules)
	s.refCache.Set(moduleCacheKey, ix, cache.DefaultExpiration)
	return ix, nil
}

// statusByCode resolves a reservation status from reference data, cached
// indefinitely since status rows are seeded once by migrations.
func (s *ReservationService) statusByCode(ctx context.Context, code model.StatusCode) (*model.ReservationStatus, error) {
	key := statusCachePrefix + string(code)
	if cached, ok := s.refCache.Get(key); ok {
		return cached.(*model.ReservationStatus), nil
	}

	status, err := s.statusRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if status == nil {
		return nil, fmt.Errorf("%w: reservation status %q is not seeded", ErrMissingConfig, code)
	}

	s.refCache.Set(key, status, cache.NoExpiration)
	return status, nil
}

// reload fetches the committed row for broadcasting; on failure it falls
// back to the in-memory copy so the commit is still announced.
func (s *ReservationService) reload(ctx context.Context, res *model.Reservation) *model.Reservation {
	full, err := s.reservRepo.GetByID(ctx, res.ID)
	if err != nil || full == nil {
		s.logger.Warn("could not reload reservation after commit",
			zap.Int64("reservation_id", res.ID),
			zap.Error(err))
		return res
	}
	return full
}

func (s *ReservationService) publishUpsert(res *model.Reservation) {
	s.broadcaster.Publish(model.ChangeEvent{
		ID:          uuid.NewString(),
		Kind:        model.EventReservationUpserted,
		Reservation: res,
	})
}

// lockRoomDate serializes placements for one room and day for the duration
// of the transaction, closing the check-then-act window.
func lockRoomDate(ctx context.Context, db base.Querier, roomID int64, date time.Time) error {
	day := int32(date.Unix() / 86400)
	if _, err := db.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, int32(roomID), day); err != nil {
		return fmt.Errorf("lock room/date: %w", err)
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
