package model

import "time"

// Заказы

type Order struct {
	ID   int64
	Data OrderData
}
type OrderData struct {
	Customer    int64 // 0 - без клиента
	Drink       string
	PrepMinutes int
	ArrivedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
	Status      string
	Priority    float64
	Loyalty     bool
	Skipped     int   // зарезервировано под справедливость очереди
	Worker      int64 // кто взял заказ, 0 - никто
}

const (
	OrderStatusPending    = "PENDING"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusCompleted  = "COMPLETED"
	OrderStatusAbandoned  = "ABANDONED"
)

// ExpectedEnd is the moment the assigned worker is due to finish the order.
func (o Order) ExpectedEnd() time.Time {
	return o.Data.StartedAt.Add(time.Duration(o.Data.PrepMinutes) * time.Minute)
}

// Бариста

type Worker struct {
	ID   int64
	Data WorkerData
}
type WorkerData struct {
	Name            string
	BusyUntil       time.Time // нулевое значение - свободен
	OrdersCompleted int
	MinutesAssigned int
}

// Busy reports whether the worker is still occupied at now.
func (w Worker) Busy(now time.Time) bool {
	return !w.Data.BusyUntil.IsZero() && w.Data.BusyUntil.After(now)
}

// Клиенты

type Customer struct {
	ID   int64
	Data CustomerData
}
type CustomerData struct {
	Name    string
	Email   string
	Card    string // номер карты лояльности
	Loyalty bool
}

// Персонал (вход в систему)

type Staff struct {
	ID   int64
	Data StaffData
}
type StaffData struct {
	Login    string
	Password string
	Role     string
}

const (
	StaffRoleManager = "MANAGER"
	StaffRoleBarista = "BARISTA"
)
