package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/RAHULYADAV122/Coffee/internal/model"
	"github.com/RAHULYADAV122/Coffee/internal/store/config"
)

type Store interface {
	// Tx runs fn against a store bound to one transaction. Any error from fn
	// rolls the whole transaction back.
	Tx(ctx context.Context, fn func(tx Store) error) error

	AuthRegister(ctx context.Context, staff model.Staff) (model.Staff, error)
	AuthLogin(ctx context.Context, login string, password string) (model.Staff, error)

	CustomerPost(ctx context.Context, customer model.Customer) (model.Customer, error)
	CustomerGet(ctx context.Context, id int64) (model.Customer, error)
	CustomerGetByEmail(ctx context.Context, email string) (model.Customer, error)

	OrderPost(ctx context.Context, order model.Order) (model.Order, error)
	OrderPut(ctx context.Context, order model.Order) error
	OrderPutAll(ctx context.Context, orders []model.Order) error
	OrderGetByStatus(ctx context.Context, status string) ([]model.Order, error)
	OrderGetAll(ctx context.Context) ([]model.Order, error)

	WorkerPost(ctx context.Context, worker model.Worker) (model.Worker, error)
	WorkerPut(ctx context.Context, worker model.Worker) error
	WorkerGetAll(ctx context.Context) ([]model.Worker, error)
}

var (
	ErrNoRows        = errors.New("no rows")
	ErrAlreadyExists = errors.New("already exists")
	ErrWrongPassword = errors.New("wrong password")
)

// NewStore opens PostgreSQL when a DSN is configured and falls back to the
// in-memory store otherwise.
func NewStore(cfg config.Config) (Store, error) {
	if cfg.Memory || cfg.DBDsn == "" {
		return NewMemStore(), nil
	}
	return NewPGStore(cfg.DBDsn)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// timeColumn хранит момент с зоной. Обычный TIMESTAMP pgx читает как UTC,
// и время прихода заказа съезжает на смещение зоны сервера.
const timeColumn = "TIMESTAMPTZ"

type store struct {
	db       *sql.DB
	database querier
}

func NewPGStore(dsn string) (Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	// Персонал
	_, err = db.Exec(
		"CREATE TABLE IF NOT EXISTS staff (" +
			" id BIGSERIAL PRIMARY KEY," +
			" login VARCHAR (30) UNIQUE NOT NULL," +
			" password VARCHAR (60) NOT NULL," +
			" role VARCHAR (10) NOT NULL" +
			" );")
	if err != nil {
		return nil, err
	}

	// Клиенты
	_, err = db.Exec(
		"CREATE TABLE IF NOT EXISTS customer (" +
			" id BIGSERIAL PRIMARY KEY," +
			" name VARCHAR (100) NOT NULL," +
			" email VARCHAR (100) UNIQUE NOT NULL," +
			" card VARCHAR (20) NOT NULL DEFAULT ''," +
			" loyalty BOOLEAN NOT NULL DEFAULT FALSE" +
			" );")
	if err != nil {
		return nil, err
	}

	// Бариста. Счетчики только растут, меняются при назначении заказа
	_, err = db.Exec(
		"CREATE TABLE IF NOT EXISTS worker (" +
			" id BIGSERIAL PRIMARY KEY," +
			" name VARCHAR (50) NOT NULL," +
			" busy_until "+timeColumn+"," +
			" orders_completed INTEGER NOT NULL DEFAULT 0," +
			" minutes_assigned INTEGER NOT NULL DEFAULT 0" +
			" );")
	if err != nil {
		return nil, err
	}

	// Заказы. Одна строка на заказ, дальше меняется статус
	_, err = db.Exec(
		"CREATE TABLE IF NOT EXISTS coffee_order (" +
			" id BIGSERIAL PRIMARY KEY," +
			" customer BIGINT NOT NULL DEFAULT 0," +
			" drink VARCHAR (30) NOT NULL," +
			" prep_minutes INTEGER NOT NULL," +
			" arrived_at "+timeColumn+" NOT NULL," +
			" started_at "+timeColumn+"," +
			" completed_at "+timeColumn+"," +
			" status VARCHAR (12) NOT NULL," +
			" priority DOUBLE PRECISION NOT NULL DEFAULT 0," +
			" loyalty BOOLEAN NOT NULL DEFAULT FALSE," +
			" skipped INTEGER NOT NULL DEFAULT 0," +
			" worker BIGINT NOT NULL DEFAULT 0" +
			" );")
	if err != nil {
		return nil, err
	}
	_, err = db.Exec("CREATE INDEX IF NOT EXISTS coffee_order_status ON coffee_order (status);")
	if err != nil {
		return nil, err
	}

	return &store{
		db:       db,
		database: db,
	}, nil
}

func (s *store) Tx(ctx context.Context, fn func(tx Store) error) error {
	if s.db == nil {
		// уже внутри транзакции
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&store{database: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func (store *store) AuthRegister(ctx context.Context, staff model.Staff) (model.Staff, error) {
	row := store.database.QueryRowContext(ctx,
		"INSERT INTO staff (login, password, role)"+
			" VALUES ($1, $2, $3)"+
			" RETURNING id",
		staff.Data.Login,
		staff.Data.Password,
		staff.Data.Role)
	err := row.Scan(&staff.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Staff{}, ErrAlreadyExists
		}
		return model.Staff{}, err
	}
	return staff, nil
}

func (store *store) AuthLogin(ctx context.Context, login string, password string) (model.Staff, error) {
	var staff model.Staff
	row := store.database.QueryRowContext(ctx,
		"SELECT id, login, password, role FROM staff"+
			" WHERE login = $1",
		login)
	err := row.Scan(&staff.ID,
		&staff.Data.Login,
		&staff.Data.Password,
		&staff.Data.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Staff{}, ErrNoRows
		}
		return model.Staff{}, err
	}
	if staff.Data.Password != password {
		return model.Staff{}, ErrWrongPassword
	}
	return staff, nil
}

func (store *store) CustomerPost(ctx context.Context, customer model.Customer) (model.Customer, error) {
	row := store.database.QueryRowContext(ctx,
		"INSERT INTO customer (name, email, card, loyalty)"+
			" VALUES ($1, $2, $3, $4)"+
			" RETURNING id",
		customer.Data.Name,
		customer.Data.Email,
		customer.Data.Card,
		customer.Data.Loyalty)
	err := row.Scan(&customer.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Customer{}, ErrAlreadyExists
		}
		return model.Customer{}, err
	}
	return customer, nil
}

func (store *store) CustomerGet(ctx context.Context, id int64) (model.Customer, error) {
	row := store.database.QueryRowContext(ctx,
		"SELECT id, name, email, card, loyalty FROM customer"+
			" WHERE id = $1",
		id)
	return scanCustomer(row)
}

func (store *store) CustomerGetByEmail(ctx context.Context, email string) (model.Customer, error) {
	row := store.database.QueryRowContext(ctx,
		"SELECT id, name, email, card, loyalty FROM customer"+
			" WHERE email = $1",
		email)
	return scanCustomer(row)
}

func scanCustomer(row *sql.Row) (model.Customer, error) {
	var customer model.Customer
	err := row.Scan(&customer.ID,
		&customer.Data.Name,
		&customer.Data.Email,
		&customer.Data.Card,
		&customer.Data.Loyalty)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Customer{}, ErrNoRows
		}
		return model.Customer{}, err
	}
	return customer, nil
}

const orderColumns = "id, customer, drink, prep_minutes, arrived_at, started_at, completed_at," +
	" status, priority, loyalty, skipped, worker"

func (store *store) OrderPost(ctx context.Context, order model.Order) (model.Order, error) {
	row := store.database.QueryRowContext(ctx,
		"INSERT INTO coffee_order (customer, drink, prep_minutes, arrived_at, started_at, completed_at,"+
			" status, priority, loyalty, skipped, worker)"+
			" VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)"+
			" RETURNING id",
		order.Data.Customer,
		order.Data.Drink,
		order.Data.PrepMinutes,
		order.Data.ArrivedAt.UTC(),
		nullTime(order.Data.StartedAt),
		nullTime(order.Data.CompletedAt),
		order.Data.Status,
		order.Data.Priority,
		order.Data.Loyalty,
		order.Data.Skipped,
		order.Data.Worker)
	err := row.Scan(&order.ID)
	if err != nil {
		return model.Order{}, err
	}
	return order, nil
}

func (store *store) OrderPut(ctx context.Context, order model.Order) error {
	res, err := store.database.ExecContext(ctx,
		"UPDATE coffee_order"+
			" SET started_at = $1, completed_at = $2, status = $3, priority = $4, skipped = $5, worker = $6"+
			" WHERE id = $7",
		nullTime(order.Data.StartedAt),
		nullTime(order.Data.CompletedAt),
		order.Data.Status,
		order.Data.Priority,
		order.Data.Skipped,
		order.Data.Worker,
		order.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoRows
	}
	return nil
}

func (store *store) OrderPutAll(ctx context.Context, orders []model.Order) error {
	for _, order := range orders {
		if err := store.OrderPut(ctx, order); err != nil {
			return err
		}
	}
	return nil
}

func (store *store) OrderGetByStatus(ctx context.Context, status string) ([]model.Order, error) {
	rows, err := store.database.QueryContext(ctx,
		"SELECT "+orderColumns+
			" FROM coffee_order"+
			" WHERE status = $1"+
			" ORDER BY id",
		status)
	if err != nil {
		return nil, err
	}
	return scanOrders(rows)
}

func (store *store) OrderGetAll(ctx context.Context) ([]model.Order, error) {
	rows, err := store.database.QueryContext(ctx,
		"SELECT "+orderColumns+
			" FROM coffee_order"+
			" ORDER BY id")
	if err != nil {
		return nil, err
	}
	return scanOrders(rows)
}

func scanOrders(rows *sql.Rows) ([]model.Order, error) {
	defer rows.Close()
	var orders []model.Order
	for rows.Next() {
		var orderRow model.Order
		var startedAt, completedAt sql.NullTime
		err := rows.Scan(&orderRow.ID,
			&orderRow.Data.Customer,
			&orderRow.Data.Drink,
			&orderRow.Data.PrepMinutes,
			&orderRow.Data.ArrivedAt,
			&startedAt,
			&completedAt,
			&orderRow.Data.Status,
			&orderRow.Data.Priority,
			&orderRow.Data.Loyalty,
			&orderRow.Data.Skipped,
			&orderRow.Data.Worker)
		if err != nil {
			return nil, err
		}
		orderRow.Data.ArrivedAt = orderRow.Data.ArrivedAt.UTC()
		orderRow.Data.StartedAt = utcTime(startedAt)
		orderRow.Data.CompletedAt = utcTime(completedAt)
		orders = append(orders, orderRow)
	}
	return orders, rows.Err()
}

func (store *store) WorkerPost(ctx context.Context, worker model.Worker) (model.Worker, error) {
	row := store.database.QueryRowContext(ctx,
		"INSERT INTO worker (name, busy_until, orders_completed, minutes_assigned)"+
			" VALUES ($1, $2, $3, $4)"+
			" RETURNING id",
		worker.Data.Name,
		nullTime(worker.Data.BusyUntil),
		worker.Data.OrdersCompleted,
		worker.Data.MinutesAssigned)
	err := row.Scan(&worker.ID)
	if err != nil {
		return model.Worker{}, err
	}
	return worker, nil
}

func (store *store) WorkerPut(ctx context.Context, worker model.Worker) error {
	res, err := store.database.ExecContext(ctx,
		"UPDATE worker"+
			" SET name = $1, busy_until = $2, orders_completed = $3, minutes_assigned = $4"+
			" WHERE id = $5",
		worker.Data.Name,
		nullTime(worker.Data.BusyUntil),
		worker.Data.OrdersCompleted,
		worker.Data.MinutesAssigned,
		worker.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoRows
	}
	return nil
}

func (store *store) WorkerGetAll(ctx context.Context) ([]model.Worker, error) {
	rows, err := store.database.QueryContext(ctx,
		"SELECT id, name, busy_until, orders_completed, minutes_assigned"+
			" FROM worker"+
			" ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var workers []model.Worker
	for rows.Next() {
		var workerRow model.Worker
		var busyUntil sql.NullTime
		err := rows.Scan(&workerRow.ID,
			&workerRow.Data.Name,
			&busyUntil,
			&workerRow.Data.OrdersCompleted,
			&workerRow.Data.MinutesAssigned)
		if err != nil {
			return nil, err
		}
		workerRow.Data.BusyUntil = utcTime(busyUntil)
		workers = append(workers, workerRow)
	}
	return workers, rows.Err()
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func utcTime(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
