package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v3"

	"github.com/sandpiper/backend/domain"
)

var todoColumnNames = []string{
	"entity_id", "version", "previous_version", "active", "changed_by_id", "changed_on",
	"person_id", "title", "description", "is_completed", "due_date",
}

func text(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: true}
}

func todoRow(id, personID, title string, completed bool, changedOn time.Time) []interface{} {
	return []interface{}{
		id,
		"v-" + id,
		text(domain.ZeroVersion),
		pgtype.Bool{Bool: true, Valid: true},
		text(personID),
		pgtype.Timestamp{Time: changedOn, Valid: true},
		text(personID),
		text(title),
		pgtype.Text{},
		pgtype.Bool{Bool: completed, Valid: true},
		pgtype.Timestamp{},
	}
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

// anyArgs matches n bound values of a row write. Todo rows bind eleven.
func anyArgs(n int) []interface{} {
	args := make([]interface{}, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestTodoListByOwner(t *testing.T) {
	mock := newMock(t)
	repo := NewTodoRepository(mock, nil)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	rows := pgxmock.NewRows(todoColumnNames).
		AddRow(todoRow("t2", "p1", "Walk dog", false, now)...).
		AddRow(todoRow("t1", "p1", "Buy milk", true, now.Add(-time.Hour))...)
	mock.ExpectQuery(`FROM todo\s+WHERE person_id = \$1 AND active = true\s+ORDER BY changed_on DESC`).
		WithArgs("p1").
		WillReturnRows(rows)

	todos, err := repo.ListByOwner(context.Background(), "p1")
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(todos) != 2 {
		t.Fatalf("ListByOwner: got %d todos, want 2", len(todos))
	}
	if todos[0].EntityID != "t2" || todos[1].EntityID != "t1" {
		t.Errorf("order: got %s,%s want t2,t1", todos[0].EntityID, todos[1].EntityID)
	}
	if todos[0].Description != nil {
		t.Errorf("Description: got %v, want nil", *todos[0].Description)
	}
	if !todos[1].IsCompleted {
		t.Error("IsCompleted: got false, want true")
	}
	if !todos[0].ChangedOn.Equal(now) {
		t.Errorf("ChangedOn: got %v, want %v", todos[0].ChangedOn, now)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestTodoListByOwnerEmptyOwner(t *testing.T) {
	mock := newMock(t)
	repo := NewTodoRepository(mock, nil)

	todos, err := repo.ListByOwner(context.Background(), "")
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(todos) != 0 {
		t.Errorf("ListByOwner: got %d todos, want 0", len(todos))
	}

	todos, err = repo.ListByOwnerAndStatus(context.Background(), "", true)
	if err != nil || len(todos) != 0 {
		t.Errorf("ListByOwnerAndStatus: got %d, %v want empty", len(todos), err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("no query should run: %v", err)
	}
}

func TestTodoListByOwnerAndStatus(t *testing.T) {
	mock := newMock(t)
	repo := NewTodoRepository(mock, nil)

	mock.ExpectQuery(`AND is_completed = \$2`).
		WithArgs("p1", true).
		WillReturnRows(pgxmock.NewRows(todoColumnNames).
			AddRow(todoRow("t1", "p1", "Buy milk", true, time.Now().UTC())...))

	todos, err := repo.ListByOwnerAndStatus(context.Background(), "p1", true)
	if err != nil {
		t.Fatalf("ListByOwnerAndStatus: %v", err)
	}
	if len(todos) != 1 || todos[0].Title != "Buy milk" {
		t.Errorf("ListByOwnerAndStatus: got %+v", todos)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestTodoGetByIDNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewTodoRepository(mock, nil)

	mock.ExpectQuery(`WHERE entity_id = \$1 AND active = true`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	todo, err := repo.GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if todo != nil {
		t.Errorf("GetByID: got %+v, want nil", todo)
	}
}

func TestTodoGetByIDStoreError(t *testing.T) {
	mock := newMock(t)
	repo := NewTodoRepository(mock, nil)
	boom := errors.New("connection reset")

	mock.ExpectQuery(`WHERE entity_id = \$1`).WithArgs("t1").WillReturnError(boom)

	if _, err := repo.GetByID(context.Background(), "t1"); !errors.Is(err, boom) {
		t.Errorf("GetByID: got %v, want %v", err, boom)
	}
}

func TestTodoSaveWritesAuditAndPrimary(t *testing.T) {
	mock := newMock(t)
	repo := NewTodoRepository(mock, nil)
	todo := domain.NewTodo("p1", "Buy milk", nil, nil)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO todo_audit \(entity_id, version, previous_version`).
		WithArgs(todo.EntityID, pgxmock.AnyArg(), domain.ZeroVersion, true, "p1", pgxmock.AnyArg(),
			"p1", "Buy milk", nil, false, nil).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO todo \(.*ON CONFLICT \(entity_id\) DO UPDATE SET .*WHERE todo.version = EXCLUDED.previous_version`).
		WithArgs(todo.EntityID, pgxmock.AnyArg(), domain.ZeroVersion, true, "p1", pgxmock.AnyArg(),
			"p1", "Buy milk", nil, false, nil).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	saved, err := repo.Save(context.Background(), todo)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.Version == "" || saved.PreviousVersion != domain.ZeroVersion {
		t.Errorf("version chain: got version=%q previous=%q", saved.Version, saved.PreviousVersion)
	}
	if saved.ChangedByID != "p1" {
		t.Errorf("ChangedByID: got %q, want p1", saved.ChangedByID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestTodoSaveConflictRollsBack(t *testing.T) {
	mock := newMock(t)
	repo := NewTodoRepository(mock, nil)
	todo := domain.NewTodo("p1", "Buy milk", nil, nil)
	todo.Version = "stale"

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO todo_audit`).WithArgs(anyArgs(11)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`ON CONFLICT`).WithArgs(anyArgs(11)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectRollback()

	_, err := repo.Save(context.Background(), todo)
	if !domain.IsDomainError(err, domain.ErrCodeConflict) {
		t.Fatalf("Save: got %v, want CONFLICT", err)
	}
	if todo.Version != "stale" {
		t.Errorf("Version: got %q, want restored stale", todo.Version)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestTodoSaveAuditFailureRollsBack(t *testing.T) {
	mock := newMock(t)
	repo := NewTodoRepository(mock, nil)
	todo := domain.NewTodo("p1", "Buy milk", nil, nil)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO todo_audit`).WithArgs(anyArgs(11)...).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	if _, err := repo.Save(context.Background(), todo); err == nil {
		t.Fatal("Save: got nil error, want audit failure")
	}
	if !todo.IsNew() {
		t.Error("Version: failed save must not leave a version behind")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestTodoSaveUpsertFailureRollsBack(t *testing.T) {
	mock := newMock(t)
	repo := NewTodoRepository(mock, nil)
	todo := domain.NewTodo("p1", "Buy milk", nil, nil)
	boom := errors.New("connection reset")

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO todo_audit`).WithArgs(anyArgs(11)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`ON CONFLICT`).WithArgs(anyArgs(11)...).
		WillReturnError(boom)
	mock.ExpectRollback()

	if _, err := repo.Save(context.Background(), todo); !errors.Is(err, boom) {
		t.Fatalf("Save: got %v, want %v", err, boom)
	}
	if !todo.IsNew() || todo.PreviousVersion != "" {
		t.Errorf("version chain: got version=%q previous=%q, want both empty", todo.Version, todo.PreviousVersion)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestTodoSaveValidatesBeforeWriting(t *testing.T) {
	mock := newMock(t)
	repo := NewTodoRepository(mock, nil)

	if _, err := repo.Save(context.Background(), nil); !domain.IsDomainError(err, domain.ErrCodeInvalid) {
		t.Errorf("Save(nil): got %v, want INVALID", err)
	}
	if _, err := repo.Save(context.Background(), domain.NewTodo("p1", "", nil, nil)); !domain.IsDomainError(err, domain.ErrCodeInvalid) {
		t.Errorf("Save(empty title): got %v, want INVALID", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("no statement should run: %v", err)
	}
}
