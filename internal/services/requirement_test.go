package services

import (
	"context"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/tbourn/go-diary-bot/internal/domain"
	"github.com/tbourn/go-diary-bot/internal/repo"
)

func TestRequirementResolver_CreatesOnceThenReuses(t *testing.T) {
	db := newServiceDB(t)
	r := NewRequirementResolver()
	ctx := context.Background()

	first, err := r.Resolve(ctx, db, "выпить", "кофе")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(first.RequiredFields) != 0 || len(first.Questions.Data()) != 0 {
		t.Fatalf("new requirement must be empty: %+v", first)
	}
	second, err := r.Resolve(ctx, db, "выпить", "кофе")
	if err != nil {
		t.Fatalf("Resolve again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("ids differ: %d vs %d", first.ID, second.ID)
	}
	if n := countRows(t, db, &domain.Requirement{}); n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}

	// Absent object is its own pair.
	onlyAction, err := r.Resolve(ctx, db, "спать", "")
	if err != nil || onlyAction.ID == first.ID {
		t.Fatalf("action-only pair: %+v, %v", onlyAction, err)
	}
}

func TestRequirementResolver_RecoversFromLostRace(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()

	// Another writer already committed the pair...
	winner, err := repo.CreateRequirement(ctx, db, "курить", "сигарета")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	// ...but this resolver's lookup ran before that commit.
	r := &RequirementResolver{
		find: func(context.Context, *gorm.DB, string, string) (*domain.Requirement, error) {
			return nil, repo.ErrNotFound
		},
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		got, err := r.Resolve(ctx, tx, "курить", "сигарета")
		if err != nil {
			return err
		}
		if got.ID != winner.ID {
			t.Fatalf("got id %d, want winner %d", got.ID, winner.ID)
		}
		// The outer transaction must still be usable after the conflict.
		_, err = repo.CreateUser(ctx, tx, 77, "after-conflict")
		return err
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if n := countRows(t, db, &domain.Requirement{}); n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
	if n := countRows(t, db, &domain.User{}); n != 1 {
		t.Fatalf("outer write lost")
	}
}

func TestRequirementResolver_ConcurrentCallers(t *testing.T) {
	db := newServiceDB(t)
	// Shared-cache SQLite reports lock conflicts instead of waiting, so
	// transactions queue on a single connection here.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	r := NewRequirementResolver()

	const workers = 6
	ids := make([]uint, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = db.Transaction(func(tx *gorm.DB) error {
				req, err := r.Resolve(context.Background(), tx, "съесть", "торт")
				if err != nil {
					return err
				}
				ids[i] = req.ID
				return nil
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("worker %d got id %d, want %d", i, ids[i], ids[0])
		}
	}
	if n := countRows(t, db, &domain.Requirement{}); n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
}
