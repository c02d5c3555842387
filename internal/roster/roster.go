// Package roster manages who stands behind the counter.
package roster

import (
	"context"
	"errors"
	"fmt"

	"github.com/RAHULYADAV122/Coffee/internal/model"
	"github.com/RAHULYADAV122/Coffee/internal/store"
)

type Roster interface {
	// Init заводит size барист, если их ещё нет
	Init(ctx context.Context, size int) ([]model.Worker, error)
	// InitManager заводит учётку менеджера, если её ещё нет
	InitManager(ctx context.Context, login string, password string) error
	Get(ctx context.Context) ([]model.Worker, error)
}

type roster struct {
	store store.Store
}

func NewRoster(store store.Store) Roster {
	return &roster{store: store}
}

func (roster *roster) Init(ctx context.Context, size int) ([]model.Worker, error) {
	var workers []model.Worker
	err := roster.store.Tx(ctx, func(tx store.Store) error {
		var err error
		workers, err = tx.WorkerGetAll(ctx)
		if err != nil {
			return err
		}
		for i := len(workers) + 1; i <= size; i++ {
			worker, err := tx.WorkerPost(ctx, model.Worker{Data: model.WorkerData{
				Name: fmt.Sprintf("Barista %d", i),
			}})
			if err != nil {
				return err
			}
			workers = append(workers, worker)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return workers, nil
}

func (roster *roster) InitManager(ctx context.Context, login string, password string) error {
	if login == "" {
		return nil
	}
	_, err := roster.store.AuthRegister(ctx, model.Staff{Data: model.StaffData{
		Login:    login,
		Password: password,
		Role:     model.StaffRoleManager,
	}})
	if errors.Is(err, store.ErrAlreadyExists) {
		return nil
	}
	return err
}

func (roster *roster) Get(ctx context.Context) ([]model.Worker, error) {
	return roster.store.WorkerGetAll(ctx)
}
