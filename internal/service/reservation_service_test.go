package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/ifarias/examsched/internal/model"
	"github.com/ifarias/examsched/internal/repository"
	"github.com/ifarias/examsched/internal/repository/base"
)

// stubQuerier satisfies base.Querier inside the fake transaction; the mock
// stores mutate in-memory maps, so the advisory-lock Exec is the only call
// that reaches it.
type stubQuerier struct{}

func (stubQuerier) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (stubQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (stubQuerier) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(db base.Querier) error) error {
	return fn(stubQuerier{})
}

// fixture backs every store interface with in-memory maps.
type fixture struct {
	catalog      []model.Module
	exams        map[int64]*model.Exam
	rooms        map[int64]*model.Room
	statuses     map[model.StatusCode]*model.ReservationStatus
	reservations map[int64]*model.Reservation
	resModules   map[int64][]int64
	nextID       int64
}

func newFixture() *fixture {
	f := &fixture{
		exams:        make(map[int64]*model.Exam),
		rooms:        make(map[int64]*model.Room),
		statuses:     make(map[model.StatusCode]*model.ReservationStatus),
		reservations: make(map[int64]*model.Reservation),
		resModules:   make(map[int64][]int64),
	}

	for i := 1; i <= 6; i++ {
		f.catalog = append(f.catalog, model.Module{ID: int64(i * 10), Order: i})
	}
	f.rooms[1] = &model.Room{ID: 1, Name: "Sala 301"}

	for i, code := range []model.StatusCode{
		model.StatusProgramado,
		model.StatusConfirmado,
		model.StatusRechazado,
		model.StatusRequiereRevision,
		model.StatusDescartado,
	} {
		f.statuses[code] = &model.ReservationStatus{ID: int64(i + 1), Code: code}
	}

	return f
}

func (f *fixture) addExam(id int64, moduleCount int) {
	f.exams[id] = &model.Exam{ID: id, Subject: "Cálculo I", Section: "01", ModuleCount: moduleCount, State: model.ExamStatePending}
}

func (f *fixture) moduleByID(id int64) model.Module {
	for _, m := range f.catalog {
		if m.ID == id {
			return m
		}
	}
	return model.Module{}
}

// ReservationStore

func (f *fixture) Create(_ context.Context, _ base.Querier, res *model.Reservation) error {
	f.nextID++
	res.ID = f.nextID
	stored := *res
	f.reservations[res.ID] = &stored
	return nil
}

func (f *fixture) InsertModules(_ context.Context, _ base.Querier, reservationID int64, moduleIDs []int64) error {
	f.resModules[reservationID] = append(f.resModules[reservationID], moduleIDs...)
	return nil
}

func (f *fixture) DeleteModules(_ context.Context, _ base.Querier, reservationID int64) error {
	delete(f.resModules, reservationID)
	return nil
}

func (f *fixture) Delete(_ context.Context, _ base.Querier, id int64) (int64, error) {
	if _, ok := f.reservations[id]; !ok {
		return 0, nil
	}
	delete(f.reservations, id)
	delete(f.resModules, id)
	return 1, nil
}

func (f *fixture) UpdateStatus(_ context.Context, _ base.Querier, id, statusID int64, notes string) error {
	res, ok := f.reservations[id]
	if !ok {
		return errors.New("no such reservation")
	}
	res.StatusID = statusID
	for _, st := range f.statuses {
		if st.ID == statusID {
			res.Status = st.Code
		}
	}
	res.Notes = notes
	return nil
}

func (f *fixture) UpdatePlacement(_ context.Context, _ base.Querier, id, roomID int64, date time.Time, startOrder int) error {
	res, ok := f.reservations[id]
	if !ok {
		return errors.New("no such reservation")
	}
	res.RoomID = roomID
	res.Date = date
	res.StartOrder = startOrder
	return nil
}

func (f *fixture) GetByID(_ context.Context, id int64) (*model.Reservation, error) {
	res, ok := f.reservations[id]
	if !ok {
		return nil, nil
	}
	out := *res
	out.Modules = nil
	for _, moduleID := range f.resModules[id] {
		out.Modules = append(out.Modules, f.moduleByID(moduleID))
	}
	return &out, nil
}

func (f *fixture) GetActiveByExam(_ context.Context, examID int64) (*model.Reservation, error) {
	for id, res := range f.reservations {
		if res.ExamID == examID && res.IsActive() {
			return f.GetByID(context.Background(), id)
		}
	}
	return nil, nil
}

func (f *fixture) List(_ context.Context, filter repository.ReservationFilter) ([]*model.Reservation, error) {
	var out []*model.Reservation
	for id, res := range f.reservations {
		if filter.RoomID != nil && res.RoomID != *filter.RoomID {
			continue
		}
		if filter.ExamID != nil && res.ExamID != *filter.ExamID {
			continue
		}
		if filter.Date != nil && res.Date.Format("2006-01-02") != filter.Date.Format("2006-01-02") {
			continue
		}
		if filter.Status != nil && res.Status != *filter.Status {
			continue
		}
		full, _ := f.GetByID(context.Background(), id)
		out = append(out, full)
	}
	return out, nil
}

func (f *fixture) OccupiedOrders(_ context.Context, _ base.Querier, roomID int64, date time.Time, excludeReservationID, excludeExamID *int64) ([]int, error) {
	var orders []int
	for id, res := range f.reservations {
		if res.RoomID != roomID || res.Date.Format("2006-01-02") != date.Format("2006-01-02") {
			continue
		}
		if excludeReservationID != nil && id == *excludeReservationID {
			continue
		}
		if excludeExamID != nil && res.ExamID == *excludeExamID {
			continue
		}
		for _, moduleID := range f.resModules[id] {
			orders = append(orders, f.moduleByID(moduleID).Order)
		}
	}
	return orders, nil
}

// ExamStore

func (f *fixture) GetExamByID(ctx context.Context, id int64) (*model.Exam, error) {
	exam, ok := f.exams[id]
	if !ok {
		return nil, nil
	}
	out := *exam
	return &out, nil
}

func (f *fixture) ListPending(_ context.Context) ([]model.Exam, error) {
	var out []model.Exam
	for _, exam := range f.exams {
		if exam.State == model.ExamStatePending {
			out = append(out, *exam)
		}
	}
	return out, nil
}

func (f *fixture) SetState(_ context.Context, _ base.Querier, id int64, state model.ExamState) error {
	exam, ok := f.exams[id]
	if !ok {
		return errors.New("no such exam")
	}
	exam.State = state
	return nil
}

func (f *fixture) UpdateModuleCount(_ context.Context, _ base.Querier, id int64, moduleCount int) error {
	exam, ok := f.exams[id]
	if !ok {
		return errors.New("no such exam")
	}
	exam.ModuleCount = moduleCount
	return nil
}

// ModuleStore / RoomStore / StatusStore

func (f *fixture) GetAll(_ context.Context) ([]model.Module, error) {
	return f.catalog, nil
}

func (f *fixture) GetRoomByID(_ context.Context, id int64) (*model.Room, error) {
	room, ok := f.rooms[id]
	if !ok {
		return nil, nil
	}
	out := *room
	return &out, nil
}

func (f *fixture) GetAllRooms(_ context.Context) ([]model.Room, error) {
	var out []model.Room
	for _, room := range f.rooms {
		out = append(out, *room)
	}
	return out, nil
}

func (f *fixture) GetByCode(_ context.Context, code model.StatusCode) (*model.ReservationStatus, error) {
	status, ok := f.statuses[code]
	if !ok {
		return nil, nil
	}
	out := *status
	return &out, nil
}

// adapters renaming the fixture methods onto the store interfaces

type examStoreAdapter struct{ f *fixture }

func (a examStoreAdapter) GetByID(ctx context.Context, id int64) (*model.Exam, error) {
	return a.f.GetExamByID(ctx, id)
}

func (a examStoreAdapter) ListPending(ctx context.Context) ([]model.Exam, error) {
	return a.f.ListPending(ctx)
}

func (a examStoreAdapter) SetState(ctx context.Context, db base.Querier, id int64, state model.ExamState) error {
	return a.f.SetState(ctx, db, id, state)
}

func (a examStoreAdapter) UpdateModuleCount(ctx context.Context, db base.Querier, id int64, moduleCount int) error {
	return a.f.UpdateModuleCount(ctx, db, id, moduleCount)
}

type roomStoreAdapter struct{ f *fixture }

func (a roomStoreAdapter) GetByID(ctx context.Context, id int64) (*model.Room, error) {
	return a.f.GetRoomByID(ctx, id)
}

func (a roomStoreAdapter) GetAll(ctx context.Context) ([]model.Room, error) {
	return a.f.GetAllRooms(ctx)
}

type captureBroadcaster struct {
	events []model.ChangeEvent
}

func (b *captureBroadcaster) Publish(evt model.ChangeEvent) {
	b.events = append(b.events, evt)
}

func (b *captureBroadcaster) last() model.ChangeEvent {
	return b.events[len(b.events)-1]
}

type captureNotifier struct {
	scheduled int
	removed   int
}

func (n *captureNotifier) ReservationScheduled(context.Context, *model.Reservation, *model.Exam) {
	n.scheduled++
}

func (n *captureNotifier) ReservationRemoved(context.Context, *model.Reservation, *model.Exam) {
	n.removed++
}

func newTestService(f *fixture) (*ReservationService, *captureBroadcaster, *captureNotifier) {
	broadcaster := &captureBroadcaster{}
	notifier := &captureNotifier{}
	svc := NewReservationService(
		fakeTx{}, f, examStoreAdapter{f}, f, roomStoreAdapter{f}, f,
		broadcaster, notifier, zap.NewNop(),
	)
	return svc, broadcaster, notifier
}

var testDay = time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)

func mustCreate(t *testing.T, svc *ReservationService, examID int64, start int) *model.Reservation {
	t.Helper()
	res, err := svc.Create(context.Background(), CreateRequest{
		ExamID:     examID,
		RoomID:     1,
		Date:       testDay,
		StartOrder: start,
	})
	if err != nil {
		t.Fatalf("create reservation for exam %d: %v", examID, err)
	}
	return res
}

func TestCreateReservation(t *testing.T) {
	f := newFixture()
	f.addExam(1, 2)
	svc, broadcaster, notifier := newTestService(f)

	res := mustCreate(t, svc, 1, 2)

	if res.StartOrder != 2 || len(res.Modules) != 2 {
		t.Fatalf("unexpected placement %+v", res)
	}
	if res.Status != model.StatusProgramado {
		t.Fatalf("new reservation should be scheduled, got %s", res.Status)
	}
	if f.exams[1].State != model.ExamStateReserved {
		t.Fatalf("exam should be reserved, got %s", f.exams[1].State)
	}
	if len(broadcaster.events) != 1 || broadcaster.last().Kind != model.EventReservationUpserted {
		t.Fatalf("expected one upsert event, got %+v", broadcaster.events)
	}
	if notifier.scheduled != 1 {
		t.Fatalf("teacher should be notified once, got %d", notifier.scheduled)
	}
}

func TestCreateRejectsOverlap(t *testing.T) {
	f := newFixture()
	f.addExam(1, 2)
	f.addExam(2, 2)
	svc, broadcaster, _ := newTestService(f)

	// exam 1 holds modules {2,3}
	mustCreate(t, svc, 1, 2)

	// exam 2 wants {2,3}: full overlap
	_, err := svc.Create(context.Background(), CreateRequest{ExamID: 2, RoomID: 1, Date: testDay, StartOrder: 2})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("full overlap should conflict, got %v", err)
	}

	// exam 2 wants {3,4}: partial overlap is still rejected whole
	_, err = svc.Create(context.Background(), CreateRequest{ExamID: 2, RoomID: 1, Date: testDay, StartOrder: 3})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("partial overlap should conflict, got %v", err)
	}

	if f.exams[2].State != model.ExamStatePending {
		t.Fatal("rejected placement must leave the exam pending")
	}
	if len(f.reservations) != 1 {
		t.Fatalf("rejected placement must write nothing, got %d reservations", len(f.reservations))
	}
	if len(broadcaster.events) != 1 {
		t.Fatalf("rejected placement must not broadcast, got %+v", broadcaster.events)
	}
}

func TestCreateAcceptsAdjacentSpan(t *testing.T) {
	f := newFixture()
	f.addExam(1, 2)
	f.addExam(2, 2)
	svc, _, _ := newTestService(f)

	mustCreate(t, svc, 1, 2)

	// {4,5} touches the occupied span without overlapping it
	res := mustCreate(t, svc, 2, 4)
	if res.StartOrder != 4 {
		t.Fatalf("unexpected start order %d", res.StartOrder)
	}
}

func TestCreateFromModuleIDs(t *testing.T) {
	f := newFixture()
	f.addExam(1, 2)
	svc, _, _ := newTestService(f)

	res, err := svc.Create(context.Background(), CreateRequest{
		ExamID:    1,
		RoomID:    1,
		Date:      testDay,
		ModuleIDs: []int64{40, 50},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.StartOrder != 4 {
		t.Fatalf("start order should derive from the module set, got %d", res.StartOrder)
	}
}

func TestCreateValidations(t *testing.T) {
	f := newFixture()
	f.addExam(1, 2)
	f.addExam(2, 3)
	svc, _, _ := newTestService(f)

	tests := []struct {
		name    string
		req     CreateRequest
		wantErr error
	}{
		{name: "missing ids", req: CreateRequest{Date: testDay, StartOrder: 1}, wantErr: ErrValidation},
		{name: "missing date", req: CreateRequest{ExamID: 1, RoomID: 1, StartOrder: 1}, wantErr: ErrValidation},
		{name: "missing placement", req: CreateRequest{ExamID: 1, RoomID: 1, Date: testDay}, wantErr: ErrValidation},
		{name: "unknown exam", req: CreateRequest{ExamID: 99, RoomID: 1, Date: testDay, StartOrder: 1}, wantErr: ErrValidation},
		{name: "unknown room", req: CreateRequest{ExamID: 1, RoomID: 99, Date: testDay, StartOrder: 1}, wantErr: ErrValidation},
		{name: "span shorter than exam", req: CreateRequest{ExamID: 2, RoomID: 1, Date: testDay, ModuleIDs: []int64{10, 20}}, wantErr: ErrValidation},
		{name: "gap in module set", req: CreateRequest{ExamID: 1, RoomID: 1, Date: testDay, ModuleIDs: []int64{10, 30}}, wantErr: ErrValidation},
		{name: "span past catalog", req: CreateRequest{ExamID: 1, RoomID: 1, Date: testDay, StartOrder: 6}, wantErr: ErrConflict},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.req)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestCreateRejectsAlreadyReservedExam(t *testing.T) {
	f := newFixture()
	f.addExam(1, 2)
	svc, _, _ := newTestService(f)

	mustCreate(t, svc, 1, 2)

	_, err := svc.Create(context.Background(), CreateRequest{ExamID: 1, RoomID: 1, Date: testDay, StartOrder: 4})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("second reservation for the same exam should conflict, got %v", err)
	}
	// the conflict names the existing placement
	if !strings.Contains(err.Error(), "2026-09-14") {
		t.Fatalf("conflict should name the existing placement, got %q", err.Error())
	}
}

func TestUpdateResizeExcludesSelf(t *testing.T) {
	f := newFixture()
	f.addExam(1, 2)
	f.addExam(2, 1)
	svc, _, _ := newTestService(f)

	res := mustCreate(t, svc, 1, 2) // {2,3}
	mustCreate(t, svc, 2, 5)        // {5}

	// growing into {2,3,4} only has to clear cells beyond its own
	three := 3
	updated, err := svc.Update(context.Background(), res.ID, UpdateRequest{ModuleCount: &three})
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	if updated.StartOrder != 2 || len(updated.Modules) != 3 {
		t.Fatalf("unexpected placement after resize %+v", updated)
	}

	// growing to {2..5} hits the neighbour at 5 and must change nothing
	four := 4
	_, err = svc.Update(context.Background(), res.ID, UpdateRequest{ModuleCount: &four})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("overlap with neighbour should conflict, got %v", err)
	}

	intact, _ := f.GetByID(context.Background(), res.ID)
	if len(intact.Modules) != 3 || intact.StartOrder != 2 {
		t.Fatalf("rejected resize must leave placement intact, got %+v", intact)
	}
}

func TestUpdateResizeKeepsExamDurationInSync(t *testing.T) {
	f := newFixture()
	f.addExam(1, 3)
	svc, _, _ := newTestService(f)

	res := mustCreate(t, svc, 1, 2) // {2,3,4}

	four := 4
	updated, err := svc.Update(context.Background(), res.ID, UpdateRequest{ModuleCount: &four})
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	if len(updated.Modules) != 4 {
		t.Fatalf("unexpected span after resize %+v", updated)
	}
	if f.exams[1].ModuleCount != 4 {
		t.Fatalf("exam duration must follow the resize: span=%d, module_count=%d",
			len(updated.Modules), f.exams[1].ModuleCount)
	}

	// shrinking tracks the duration too
	two := 2
	updated, err = svc.Update(context.Background(), res.ID, UpdateRequest{ModuleCount: &two})
	if err != nil {
		t.Fatalf("shrink: %v", err)
	}
	if len(updated.Modules) != 2 || f.exams[1].ModuleCount != 2 {
		t.Fatalf("exam duration must follow the shrink: span=%d, module_count=%d",
			len(updated.Modules), f.exams[1].ModuleCount)
	}

	// a re-placement after discard uses the resized duration
	if removed, err := svc.Discard(context.Background(), res.ID); err != nil || !removed {
		t.Fatalf("discard: removed=%v err=%v", removed, err)
	}
	replaced := mustCreate(t, svc, 1, 5) // {5,6} under the new duration
	if len(replaced.Modules) != 2 {
		t.Fatalf("re-placement should span the resized duration, got %+v", replaced)
	}
}

func TestUpdateMove(t *testing.T) {
	f := newFixture()
	f.addExam(1, 2)
	svc, broadcaster, _ := newTestService(f)

	res := mustCreate(t, svc, 1, 2)

	otherDay := testDay.AddDate(0, 0, 1)
	start := 4
	updated, err := svc.Update(context.Background(), res.ID, UpdateRequest{Date: &otherDay, StartOrder: &start})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if updated.DateKey() != "2026-09-15" || updated.StartOrder != 4 {
		t.Fatalf("unexpected placement after move %+v", updated)
	}
	if broadcaster.last().Kind != model.EventReservationUpserted {
		t.Fatalf("move should broadcast an upsert, got %+v", broadcaster.last())
	}
}

func TestUpdateMissingReservation(t *testing.T) {
	f := newFixture()
	svc, _, _ := newTestService(f)

	count := 2
	_, err := svc.Update(context.Background(), 42, UpdateRequest{ModuleCount: &count})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestDiscardReactivatesExam(t *testing.T) {
	f := newFixture()
	f.addExam(1, 2)
	svc, broadcaster, notifier := newTestService(f)

	res := mustCreate(t, svc, 1, 2)

	removed, err := svc.Discard(context.Background(), res.ID)
	if err != nil || !removed {
		t.Fatalf("discard: removed=%v err=%v", removed, err)
	}

	if f.exams[1].State != model.ExamStatePending {
		t.Fatalf("exam should return to pending, got %s", f.exams[1].State)
	}
	if len(f.reservations) != 0 || len(f.resModules) != 0 {
		t.Fatal("discard must delete the reservation and its module rows")
	}

	evt := broadcaster.last()
	if evt.Kind != model.EventReservationRemoved || evt.ReservationID != res.ID || evt.ExamID != 1 {
		t.Fatalf("unexpected removal event %+v", evt)
	}
	if notifier.removed != 1 {
		t.Fatalf("removal should be notified once, got %d", notifier.removed)
	}

	// repeating the discard is a no-op
	removed, err = svc.Discard(context.Background(), res.ID)
	if err != nil || removed {
		t.Fatalf("second discard should be a no-op, removed=%v err=%v", removed, err)
	}
	if notifier.removed != 1 {
		t.Fatal("a no-op discard must not notify again")
	}
}

func TestSetConfirmationStatus(t *testing.T) {
	f := newFixture()
	f.addExam(1, 2)
	svc, broadcaster, _ := newTestService(f)

	res := mustCreate(t, svc, 1, 2)

	confirmed, err := svc.SetConfirmationStatus(context.Background(), res.ID, model.StatusConfirmado, "ok")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != model.StatusConfirmado {
		t.Fatalf("got status %s", confirmed.Status)
	}
	if broadcaster.last().Kind != model.EventReservationUpserted {
		t.Fatalf("status change should broadcast an upsert, got %+v", broadcaster.last())
	}

	// the workflow forbids returning to scheduled
	_, err = svc.SetConfirmationStatus(context.Background(), res.ID, model.StatusProgramado, "")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}

	// discarding goes through Discard, not the status endpoint
	_, err = svc.SetConfirmationStatus(context.Background(), res.ID, model.StatusDescartado, "")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}

	// a repeated teacher response is idempotent
	again, err := svc.SetConfirmationStatus(context.Background(), res.ID, model.StatusConfirmado, "ok")
	if err != nil || again.Status != model.StatusConfirmado {
		t.Fatalf("repeat confirm should succeed, got %+v err=%v", again, err)
	}
}

func TestGetMissing(t *testing.T) {
	f := newFixture()
	svc, _, _ := newTestService(f)

	if _, err := svc.Get(context.Background(), 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
