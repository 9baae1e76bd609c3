package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPostgresStore_ApplyConsume_LocksAndDebits(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	rows := sqlmock.NewRows([]string{
		"user_id", "current_energy", "max_energy", "total_purchased", "total_consumed",
		"last_recharge_at", "subscription_type", "updated_at",
	}).AddRow("user-1", 80, 100, 0, 20, nil, "standard", time.Now())
	mock.ExpectQuery("SELECT user_id, current_energy, max_energy, total_purchased, total_consumed").
		WillReturnRows(rows)
	mock.ExpectExec("UPDATE user_energy").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO energy_transactions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := NewPostgresStore(db)
	row, tx, err := store.ApplyConsume(context.Background(), "user-1", 15, Transaction{
		TxID:       "tx-1",
		UserID:     "user-1",
		ActionType: ActionConsume,
		Action:     "resume_optimization",
	})
	if err != nil {
		t.Fatalf("ApplyConsume() error: %v", err)
	}
	if row.CurrentEnergy != 65 {
		t.Fatalf("CurrentEnergy = %d, want 65", row.CurrentEnergy)
	}
	if tx.EnergyBefore != 80 || tx.EnergyAfter != 65 {
		t.Fatalf("tx before/after = %d/%d, want 80/65", tx.EnergyBefore, tx.EnergyAfter)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresStore_ApplyConsume_InsufficientRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	rows := sqlmock.NewRows([]string{
		"user_id", "current_energy", "max_energy", "total_purchased", "total_consumed",
		"last_recharge_at", "subscription_type", "updated_at",
	}).AddRow("user-1", 5, 100, 0, 0, nil, "standard", time.Now())
	mock.ExpectQuery("SELECT user_id, current_energy, max_energy, total_purchased, total_consumed").
		WillReturnRows(rows)
	mock.ExpectRollback()

	store := NewPostgresStore(db)
	_, _, err = store.ApplyConsume(context.Background(), "user-1", 25, Transaction{
		TxID: "tx-1", UserID: "user-1", ActionType: ActionConsume, Action: "full_resume_analysis",
	})
	if err == nil {
		t.Fatal("expected InsufficientEnergyError")
	}
	if _, ok := err.(*InsufficientEnergyError); !ok {
		t.Fatalf("error type = %T, want *InsufficientEnergyError", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
