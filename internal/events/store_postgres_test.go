package events

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPostgresStore_Record_MasksPII(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO events").
		WithArgs(sqlmock.AnyArg(), "UserRegistered", "user-1", []byte(`{"email":"al***"}`), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewPostgresStore(db)
	id, err := store.Record(context.Background(), "UserRegistered", "user-1", map[string]interface{}{
		"email": "alice@example.com",
	}, nil)
	if err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty event id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresStore_Record_RequiresTypeAndActor(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	store := NewPostgresStore(db)
	if _, err := store.Record(context.Background(), "", "user-1", nil, nil); err == nil {
		t.Fatal("expected error for missing event type")
	}
	if _, err := store.Record(context.Background(), "Foo", "", nil, nil); err == nil {
		t.Fatal("expected error for missing actor")
	}
}

func TestPostgresStore_UserEvents_OrdersAscending(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"event_id", "type", "actor_user_id", "payload", "metadata", "created_at"}).
		AddRow("e1", "EnergyConsumed", "user-1", []byte(`{}`), []byte(`{}`), now.Add(-time.Hour)).
		AddRow("e2", "EnergyConsumed", "user-1", []byte(`{}`), []byte(`{}`), now)

	mock.ExpectQuery("SELECT event_id, type, actor_user_id, payload, metadata, created_at FROM events").
		WillReturnRows(rows)

	store := NewPostgresStore(db)
	got, err := store.UserEvents(context.Background(), "user-1", time.Time{}, time.Time{}, nil)
	if err != nil {
		t.Fatalf("UserEvents() error: %v", err)
	}
	if len(got) != 2 || got[0].EventID != "e1" || got[1].EventID != "e2" {
		t.Fatalf("UserEvents() = %+v, want e1 then e2", got)
	}
}
