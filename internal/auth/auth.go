package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/RAHULYADAV122/Coffee/internal/model"
	"github.com/RAHULYADAV122/Coffee/internal/store"
	"github.com/RAHULYADAV122/Coffee/internal/token"
)

type Auth interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	Middleware(h http.HandlerFunc) http.HandlerFunc
}

const (
	HeaderStaffIDKey   = "X-Staff-Id"
	HeaderStaffRoleKey = "X-Staff-Role"
	cookieStaffToken   = "coffeeStaffToken"
)

var ErrForbidden = errors.New("forbidden")

type auth struct {
	store store.Store
	token token.Token
}

func NewAuth(store store.Store, token token.Token) Auth {
	return &auth{store: store, token: token}
}

type credentialsJSONRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Register заводит нового сотрудника. Доступно только менеджеру.
func (a *auth) Register(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(HeaderStaffRoleKey) != model.StaffRoleManager {
		http.Error(w, ErrForbidden.Error(), http.StatusForbidden)
		return
	}

	var req credentialsJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Login == "" || req.Password == "" {
		http.Error(w, "login and password required", http.StatusBadRequest)
		return
	}
	switch req.Role {
	case "":
		req.Role = model.StaffRoleBarista
	case model.StaffRoleBarista, model.StaffRoleManager:
	default:
		http.Error(w, "unknown role", http.StatusBadRequest)
		return
	}

	staff, err := a.store.AuthRegister(r.Context(), model.Staff{Data: model.StaffData{
		Login:    req.Login,
		Password: req.Password,
		Role:     req.Role,
	}})
	if err != nil {
		switch err {
		case store.ErrAlreadyExists:
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Location", "/api/staff/"+strconv.FormatInt(staff.ID, 10))
	w.WriteHeader(http.StatusCreated)
}

// Login проверяет пару логин/пароль и выдаёт токен в куки.
func (a *auth) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Login == "" || req.Password == "" {
		http.Error(w, "login and password required", http.StatusBadRequest)
		return
	}

	staff, err := a.store.AuthLogin(r.Context(), req.Login, req.Password)
	if err != nil {
		switch err {
		case store.ErrNoRows, store.ErrWrongPassword:
			http.Error(w, "wrong login or password", http.StatusUnauthorized)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	tokenString, err := a.token.BuildJWTString(staff.ID, staff.Data.Role)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieStaffToken,
		Value:    tokenString,
		Path:     "/",
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusOK)
}

func (a *auth) Middleware(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// получение сотрудника из токена
		staffID, role, err := a.getStaff(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		// записываем
		r.Header.Set(HeaderStaffIDKey, strconv.FormatInt(staffID, 10))
		r.Header.Set(HeaderStaffRoleKey, role)

		// передаём управление хендлеру
		h.ServeHTTP(w, r)
	}
}

func (a *auth) getStaff(r *http.Request) (int64, string, error) {
	tokenCookie, err := r.Cookie(cookieStaffToken)
	if err != nil {
		return 0, "", err
	}
	return a.token.GetStaff(tokenCookie.Value)
}
