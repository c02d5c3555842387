package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/RAHULYADAV122/Coffee/internal/auth"
	"github.com/RAHULYADAV122/Coffee/internal/gzip"
	"github.com/RAHULYADAV122/Coffee/internal/handler/config"
	"github.com/RAHULYADAV122/Coffee/internal/logger"
	"github.com/RAHULYADAV122/Coffee/internal/model"
	"github.com/RAHULYADAV122/Coffee/internal/service"
)

// Ticker запускает такты диспетчера вне расписания
type Ticker interface {
	AssignTick(ctx context.Context) error
	CompleteTick(ctx context.Context) error
}

// Serve блокируется до отмены ctx, затем плавно гасит сервер.
func Serve(ctx context.Context, cfg config.Config, auth auth.Auth, service service.Service, ticker Ticker, metrics http.Handler, zaplog *zap.Logger) error {
	h := newHandler(auth, service, ticker, metrics, zaplog)
	router := h.newRouter()

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zaplog.Info("http server started", zap.String("addr", cfg.ServerAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type handler struct {
	auth    auth.Auth
	service service.Service
	ticker  Ticker
	metrics http.Handler
	zaplog  *zap.Logger
}

func newHandler(auth auth.Auth, service service.Service, ticker Ticker, metrics http.Handler, zaplog *zap.Logger) *handler {
	return &handler{
		auth:    auth,
		service: service,
		ticker:  ticker,
		metrics: metrics,
		zaplog:  zaplog,
	}
}

func (h *handler) newRouter() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", gzip.GzipMiddleware(logger.RequestLogMdlw(h.auth.Login, h.zaplog)))
	mux.HandleFunc("POST /api/auth/register", gzip.GzipMiddleware(logger.RequestLogMdlw(h.auth.Middleware(h.auth.Register), h.zaplog)))
	mux.HandleFunc("POST /api/orders", gzip.GzipMiddleware(logger.RequestLogMdlw(h.PostOrder, h.zaplog)))
	mux.HandleFunc("GET /api/orders", gzip.GzipMiddleware(logger.RequestLogMdlw(h.auth.Middleware(h.GetOrders), h.zaplog)))
	mux.HandleFunc("GET /api/workers", gzip.GzipMiddleware(logger.RequestLogMdlw(h.auth.Middleware(h.GetWorkers), h.zaplog)))
	mux.HandleFunc("POST /api/customers", gzip.GzipMiddleware(logger.RequestLogMdlw(h.auth.Middleware(h.PostCustomer), h.zaplog)))
	mux.HandleFunc("GET /api/customers/search", gzip.GzipMiddleware(logger.RequestLogMdlw(h.auth.Middleware(h.GetCustomer), h.zaplog)))
	mux.HandleFunc("POST /api/simulation/run", gzip.GzipMiddleware(logger.RequestLogMdlw(h.auth.Middleware(h.RunSimulation), h.zaplog)))
	mux.HandleFunc("POST /api/dispatch/{tick}", logger.RequestLogMdlw(h.auth.Middleware(h.RunTick), h.zaplog))
	mux.Handle("GET /metrics", h.metrics)

	return mux
}

type PostOrderJSONRequest struct {
	Drink    string `json:"drink"`
	Customer int64  `json:"customer,omitempty"`
}

type OrderJSONResponse struct {
	ID          int64      `json:"id"`
	Drink       string     `json:"drink"`
	PrepMinutes int        `json:"prepMinutes"`
	Status      string     `json:"status"`
	Priority    float64    `json:"priorityScore"`
	Loyalty     bool       `json:"loyaltyMember"`
	Customer    int64      `json:"customer,omitempty"`
	Worker      int64      `json:"worker,omitempty"`
	ArrivedAt   time.Time  `json:"arrivalTime"`
	StartedAt   *time.Time `json:"startTime,omitempty"`
	CompletedAt *time.Time `json:"endTime,omitempty"`
}

func orderJSON(order model.Order) OrderJSONResponse {
	return OrderJSONResponse{
		ID:          order.ID,
		Drink:       order.Data.Drink,
		PrepMinutes: order.Data.PrepMinutes,
		Status:      order.Data.Status,
		Priority:    order.Data.Priority,
		Loyalty:     order.Data.Loyalty,
		Customer:    order.Data.Customer,
		Worker:      order.Data.Worker,
		ArrivedAt:   order.Data.ArrivedAt,
		StartedAt:   optionalTime(order.Data.StartedAt),
		CompletedAt: optionalTime(order.Data.CompletedAt),
	}
}

func (h *handler) PostOrder(w http.ResponseWriter, r *http.Request) {
	var req PostOrderJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	order, err := h.service.PostOrder(r.Context(), model.Order{Data: model.OrderData{
		Drink:    req.Drink,
		Customer: req.Customer,
	}})
	if err != nil {
		switch err {
		case service.ErrInsufficientData:
			http.Error(w, err.Error(), http.StatusBadRequest)
		case service.ErrUnprocessableEntity:
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	h.writeJSON(w, http.StatusCreated, orderJSON(order))
}

func (h *handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.GetOrders(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	ordersJSON := make([]OrderJSONResponse, 0, len(orders))
	for _, order := range orders {
		ordersJSON = append(ordersJSON, orderJSON(order))
	}
	h.writeJSON(w, http.StatusOK, ordersJSON)
}

type WorkerJSONResponse struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	BusyUntil       *time.Time `json:"busyUntil,omitempty"`
	OrdersCompleted int        `json:"totalOrdersCompleted"`
	MinutesAssigned int        `json:"totalMinutesWorked"`
}

func (h *handler) GetWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.service.GetWorkers(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	workersJSON := make([]WorkerJSONResponse, 0, len(workers))
	for _, worker := range workers {
		workersJSON = append(workersJSON, WorkerJSONResponse{
			ID:              worker.ID,
			Name:            worker.Data.Name,
			BusyUntil:       optionalTime(worker.Data.BusyUntil),
			OrdersCompleted: worker.Data.OrdersCompleted,
			MinutesAssigned: worker.Data.MinutesAssigned,
		})
	}
	h.writeJSON(w, http.StatusOK, workersJSON)
}

type CustomerJSON struct {
	ID      int64  `json:"id,omitempty"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Card    string `json:"loyaltyCard,omitempty"`
	Loyalty bool   `json:"loyaltyMember"`
}

func (h *handler) PostCustomer(w http.ResponseWriter, r *http.Request) {
	var req CustomerJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	customer, err := h.service.PostCustomer(r.Context(), model.Customer{Data: model.CustomerData{
		Name:  req.Name,
		Email: req.Email,
		Card:  req.Card,
	}})
	if err != nil {
		switch err {
		case service.ErrInsufficientData:
			http.Error(w, err.Error(), http.StatusBadRequest)
		case service.ErrUnprocessableEntity:
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		case service.ErrAlreadyExists:
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	h.writeJSON(w, http.StatusCreated, customerJSON(customer))
}

func (h *handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := h.service.GetCustomer(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		switch err {
		case service.ErrInsufficientData:
			http.Error(w, err.Error(), http.StatusBadRequest)
		case service.ErrNotFound:
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	h.writeJSON(w, http.StatusOK, customerJSON(customer))
}

func customerJSON(customer model.Customer) CustomerJSON {
	return CustomerJSON{
		ID:      customer.ID,
		Name:    customer.Data.Name,
		Email:   customer.Data.Email,
		Card:    customer.Data.Card,
		Loyalty: customer.Data.Loyalty,
	}
}

func (h *handler) RunSimulation(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var trials int
	if v := query.Get("trials"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "trials: "+err.Error(), http.StatusBadRequest)
			return
		}
		trials = n
	}
	// seed=0 допустим, без параметра берётся seed из настроек
	var seed *int64
	if query.Has("seed") {
		n, err := strconv.ParseInt(query.Get("seed"), 10, 64)
		if err != nil {
			http.Error(w, "seed: "+err.Error(), http.StatusBadRequest)
			return
		}
		seed = &n
	}

	reports, err := h.service.RunSimulation(r.Context(), trials, seed)
	if err != nil {
		switch err {
		case service.ErrUnprocessableEntity:
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	h.writeJSON(w, http.StatusOK, reports)
}

// RunTick запускает такт назначения или завершения. Только для менеджера.
func (h *handler) RunTick(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(auth.HeaderStaffRoleKey) != model.StaffRoleManager {
		http.Error(w, auth.ErrForbidden.Error(), http.StatusForbidden)
		return
	}

	var err error
	switch r.PathValue("tick") {
	case "assign":
		err = h.ticker.AssignTick(r.Context())
	case "complete":
		err = h.ticker.CompleteTick(r.Context())
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) writeJSON(w http.ResponseWriter, code int, v any) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(responseJSON)
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
