package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/honeynil/TrustPay/internal/handler/respond"
	"github.com/honeynil/TrustPay/internal/infrastructure/auth"
	"github.com/honeynil/TrustPay/internal/models"
	service "github.com/honeynil/TrustPay/internal/services"
	pkgerrors "github.com/honeynil/TrustPay/pkg/errors"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	users        service.UserService
	transactions service.TransactionService
	stores       service.StoreService
	validate     *validator.Validate
}

func NewHandler(users service.UserService, transactions service.TransactionService, stores service.StoreService) *Handler {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{
		users:        users,
		transactions: transactions,
		stores:       stores,
		validate:     validate,
	}
}

func (h *Handler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	r.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/public/stores/{uniqueID}", h.GetPublicStore).Methods(http.MethodGet)
}

func (h *Handler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)

	r.HandleFunc("/user", h.LookupUser).Methods(http.MethodGet).Queries("trustpayLink", "{trustpayLink}")
	r.HandleFunc("/user", h.GetProfile).Methods(http.MethodGet)
	r.HandleFunc("/user", h.UpdateProfile).Methods(http.MethodPost)
	r.HandleFunc("/user/link", h.GetPayLink).Methods(http.MethodGet)

	r.HandleFunc("/transaction/initiate", h.InitiateTransaction).Methods(http.MethodPost)
	r.HandleFunc("/transactions", h.ListTransactions).Methods(http.MethodGet)
	r.HandleFunc("/transactions/{id:[0-9]+}", h.GetTransaction).Methods(http.MethodGet)
	r.HandleFunc("/transactions/{id:[0-9]+}/status", h.UpdateTransactionStatus).Methods(http.MethodPatch)
	r.HandleFunc("/transactions/{id:[0-9]+}", h.DeleteTransaction).Methods(http.MethodDelete)

	// The query form mirrors the path form for older clients.
	r.HandleFunc("/stores", h.GetStore).Methods(http.MethodGet).Queries("id", "{id}")
	r.HandleFunc("/stores", h.UpdateStore).Methods(http.MethodPut).Queries("id", "{id}")
	r.HandleFunc("/stores", h.DeleteStore).Methods(http.MethodDelete).Queries("id", "{id}")
	r.HandleFunc("/stores", h.ListStores).Methods(http.MethodGet)
	r.HandleFunc("/stores", h.CreateStore).Methods(http.MethodPost)
	r.HandleFunc("/stores/{id:[0-9]+}", h.GetStore).Methods(http.MethodGet)
	r.HandleFunc("/stores/{id:[0-9]+}", h.UpdateStore).Methods(http.MethodPut)
	r.HandleFunc("/stores/{id:[0-9]+}", h.DeleteStore).Methods(http.MethodDelete)
	r.HandleFunc("/stores/{id:[0-9]+}/items", h.AddStoreItem).Methods(http.MethodPost)
	r.HandleFunc("/stores/{id:[0-9]+}/items/{itemID:[0-9]+}", h.UpdateStoreItem).Methods(http.MethodPut)
	r.HandleFunc("/stores/{id:[0-9]+}/items/{itemID:[0-9]+}", h.DeleteStoreItem).Methods(http.MethodDelete)
}

// decode reads a JSON body into dst and runs struct validation on it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return pkgerrors.NewValidationError("", "invalid request body")
	}
	if err := h.validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fieldError(fieldErrs[0])
		}
		return pkgerrors.NewValidationError("", err.Error())
	}
	return nil
}

func fieldError(fe validator.FieldError) error {
	switch fe.Tag() {
	case "required":
		return pkgerrors.NewValidationError(fe.Field(), "is required")
	case "email":
		return pkgerrors.NewValidationError(fe.Field(), "must be a valid email address")
	case "min":
		return pkgerrors.NewValidationError(fe.Field(), fmt.Sprintf("must be at least %s", fe.Param()))
	case "oneof":
		return pkgerrors.NewValidationError(fe.Field(), fmt.Sprintf("must be one of: %s", fe.Param()))
	default:
		return pkgerrors.NewValidationError(fe.Field(), fmt.Sprintf("failed %s validation", fe.Tag()))
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.NewValidationError(name, "must be a positive integer")
	}
	return id, nil
}

// caller returns the authenticated identity. Routes reaching it without one
// are a wiring error and answered as unauthorized.
func caller(w http.ResponseWriter, r *http.Request) (*models.Claims, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respond.Error(w, pkgerrors.ErrMissingToken)
		return nil, false
	}
	return claims, true
}
