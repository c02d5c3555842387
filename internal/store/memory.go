package store

import (
	"context"
	"sort"
	"sync"

	"github.com/RAHULYADAV122/Coffee/internal/model"
)

// memData holds the tables of the in-memory store. It is not safe for
// concurrent use; memStore guards it.
type memData struct {
	staff     map[int64]model.Staff
	customers map[int64]model.Customer
	orders    map[int64]model.Order
	workers   map[int64]model.Worker
	lastID    int64
}

func newMemData() *memData {
	return &memData{
		staff:     make(map[int64]model.Staff),
		customers: make(map[int64]model.Customer),
		orders:    make(map[int64]model.Order),
		workers:   make(map[int64]model.Worker),
	}
}

func (d *memData) clone() *memData {
	c := &memData{
		staff:     make(map[int64]model.Staff, len(d.staff)),
		customers: make(map[int64]model.Customer, len(d.customers)),
		orders:    make(map[int64]model.Order, len(d.orders)),
		workers:   make(map[int64]model.Worker, len(d.workers)),
		lastID:    d.lastID,
	}
	for k, v := range d.staff {
		c.staff[k] = v
	}
	for k, v := range d.customers {
		c.customers[k] = v
	}
	for k, v := range d.orders {
		c.orders[k] = v
	}
	for k, v := range d.workers {
		c.workers[k] = v
	}
	return c
}

func (d *memData) nextID() int64 {
	d.lastID++
	return d.lastID
}

// memStore keeps everything in process memory. Transactions work on a copy
// of the tables that replaces the live one only on success.
type memStore struct {
	mu   sync.Mutex
	data *memData
}

func NewMemStore() Store {
	return &memStore{data: newMemData()}
}

func (m *memStore) Tx(ctx context.Context, fn func(tx Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.clone()
	if err := fn(&memTx{data: snapshot}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.data = snapshot
	return nil
}

func (m *memStore) with(fn func(tx Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memTx{data: m.data})
}

func (m *memStore) AuthRegister(ctx context.Context, staff model.Staff) (res model.Staff, err error) {
	err = m.with(func(tx Store) error {
		res, err = tx.AuthRegister(ctx, staff)
		return err
	})
	return res, err
}

func (m *memStore) AuthLogin(ctx context.Context, login string, password string) (res model.Staff, err error) {
	err = m.with(func(tx Store) error {
		res, err = tx.AuthLogin(ctx, login, password)
		return err
	})
	return res, err
}

func (m *memStore) CustomerPost(ctx context.Context, customer model.Customer) (res model.Customer, err error) {
	err = m.with(func(tx Store) error {
		res, err = tx.CustomerPost(ctx, customer)
		return err
	})
	return res, err
}

func (m *memStore) CustomerGet(ctx context.Context, id int64) (res model.Customer, err error) {
	err = m.with(func(tx Store) error {
		res, err = tx.CustomerGet(ctx, id)
		return err
	})
	return res, err
}

func (m *memStore) CustomerGetByEmail(ctx context.Context, email string) (res model.Customer, err error) {
	err = m.with(func(tx Store) error {
		res, err = tx.CustomerGetByEmail(ctx, email)
		return err
	})
	return res, err
}

func (m *memStore) OrderPost(ctx context.Context, order model.Order) (res model.Order, err error) {
	err = m.with(func(tx Store) error {
		res, err = tx.OrderPost(ctx, order)
		return err
	})
	return res, err
}

func (m *memStore) OrderPut(ctx context.Context, order model.Order) error {
	return m.with(func(tx Store) error {
		return tx.OrderPut(ctx, order)
	})
}

func (m *memStore) OrderPutAll(ctx context.Context, orders []model.Order) error {
	// все или ничего, как и в PostgreSQL
	return m.Tx(ctx, func(tx Store) error {
		return tx.OrderPutAll(ctx, orders)
	})
}

func (m *memStore) OrderGetByStatus(ctx context.Context, status string) (res []model.Order, err error) {
	err = m.with(func(tx Store) error {
		res, err = tx.OrderGetByStatus(ctx, status)
		return err
	})
	return res, err
}

func (m *memStore) OrderGetAll(ctx context.Context) (res []model.Order, err error) {
	err = m.with(func(tx Store) error {
		res, err = tx.OrderGetAll(ctx)
		return err
	})
	return res, err
}

func (m *memStore) WorkerPost(ctx context.Context, worker model.Worker) (res model.Worker, err error) {
	err = m.with(func(tx Store) error {
		res, err = tx.WorkerPost(ctx, worker)
		return err
	})
	return res, err
}

func (m *memStore) WorkerPut(ctx context.Context, worker model.Worker) error {
	return m.with(func(tx Store) error {
		return tx.WorkerPut(ctx, worker)
	})
}

func (m *memStore) WorkerGetAll(ctx context.Context) (res []model.Worker, err error) {
	err = m.with(func(tx Store) error {
		res, err = tx.WorkerGetAll(ctx)
		return err
	})
	return res, err
}

// memTx works on memData directly, the caller holds the lock.
type memTx struct {
	data *memData
}

func (t *memTx) Tx(_ context.Context, fn func(tx Store) error) error {
	return fn(t)
}

func (t *memTx) AuthRegister(_ context.Context, staff model.Staff) (model.Staff, error) {
	for _, s := range t.data.staff {
		if s.Data.Login == staff.Data.Login {
			return model.Staff{}, ErrAlreadyExists
		}
	}
	staff.ID = t.data.nextID()
	t.data.staff[staff.ID] = staff
	return staff, nil
}

func (t *memTx) AuthLogin(_ context.Context, login string, password string) (model.Staff, error) {
	for _, s := range t.data.staff {
		if s.Data.Login != login {
			continue
		}
		if s.Data.Password != password {
			return model.Staff{}, ErrWrongPassword
		}
		return s, nil
	}
	return model.Staff{}, ErrNoRows
}

func (t *memTx) CustomerPost(_ context.Context, customer model.Customer) (model.Customer, error) {
	for _, c := range t.data.customers {
		if c.Data.Email == customer.Data.Email {
			return model.Customer{}, ErrAlreadyExists
		}
	}
	customer.ID = t.data.nextID()
	t.data.customers[customer.ID] = customer
	return customer, nil
}

func (t *memTx) CustomerGet(_ context.Context, id int64) (model.Customer, error) {
	c, ok := t.data.customers[id]
	if !ok {
		return model.Customer{}, ErrNoRows
	}
	return c, nil
}

func (t *memTx) CustomerGetByEmail(_ context.Context, email string) (model.Customer, error) {
	for _, c := range t.data.customers {
		if c.Data.Email == email {
			return c, nil
		}
	}
	return model.Customer{}, ErrNoRows
}

func (t *memTx) OrderPost(_ context.Context, order model.Order) (model.Order, error) {
	order.ID = t.data.nextID()
	t.data.orders[order.ID] = order
	return order, nil
}

func (t *memTx) OrderPut(_ context.Context, order model.Order) error {
	stored, ok := t.data.orders[order.ID]
	if !ok {
		return ErrNoRows
	}
	// как и UPDATE в PostgreSQL: неизменяемые поля не трогаем
	stored.Data.StartedAt = order.Data.StartedAt
	stored.Data.CompletedAt = order.Data.CompletedAt
	stored.Data.Status = order.Data.Status
	stored.Data.Priority = order.Data.Priority
	stored.Data.Skipped = order.Data.Skipped
	stored.Data.Worker = order.Data.Worker
	t.data.orders[order.ID] = stored
	return nil
}

func (t *memTx) OrderPutAll(ctx context.Context, orders []model.Order) error {
	for _, order := range orders {
		if err := t.OrderPut(ctx, order); err != nil {
			return err
		}
	}
	return nil
}

func (t *memTx) OrderGetByStatus(_ context.Context, status string) ([]model.Order, error) {
	var orders []model.Order
	for _, o := range t.data.orders {
		if o.Data.Status == status {
			orders = append(orders, o)
		}
	}
	sortOrders(orders)
	return orders, nil
}

func (t *memTx) OrderGetAll(_ context.Context) ([]model.Order, error) {
	orders := make([]model.Order, 0, len(t.data.orders))
	for _, o := range t.data.orders {
		orders = append(orders, o)
	}
	sortOrders(orders)
	return orders, nil
}

func (t *memTx) WorkerPost(_ context.Context, worker model.Worker) (model.Worker, error) {
	worker.ID = t.data.nextID()
	t.data.workers[worker.ID] = worker
	return worker, nil
}

func (t *memTx) WorkerPut(_ context.Context, worker model.Worker) error {
	if _, ok := t.data.workers[worker.ID]; !ok {
		return ErrNoRows
	}
	t.data.workers[worker.ID] = worker
	return nil
}

func (t *memTx) WorkerGetAll(_ context.Context) ([]model.Worker, error) {
	workers := make([]model.Worker, 0, len(t.data.workers))
	for _, w := range t.data.workers {
		workers = append(workers, w)
	}
	sort.Slice(workers, func(i, j int) bool { return workers[i].ID < workers[j].ID })
	return workers, nil
}

func sortOrders(orders []model.Order) {
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
}
