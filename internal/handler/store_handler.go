package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/honeynil/TrustPay/internal/handler/respond"
	"github.com/honeynil/TrustPay/internal/models"
	service "github.com/honeynil/TrustPay/internal/services"
	"github.com/shopspring/decimal"
)

type itemRequest struct {
	Name        string          `json:"name" validate:"required"`
	Price       decimal.Decimal `json:"price"`
	Quantity    *int64          `json:"quantity" validate:"omitempty,min=0"`
	Type        string          `json:"type" validate:"omitempty,oneof=product service"`
	Description string          `json:"description"`
}

type storeRequest struct {
	Name    string        `json:"name" validate:"required"`
	Items   []itemRequest `json:"items" validate:"required,dive"`
	Version *int64        `json:"version"`
}

func (req itemRequest) toModel() models.StoreItem {
	return models.StoreItem{
		Name:        req.Name,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Type:        models.ItemType(req.Type),
		Description: req.Description,
	}
}

func (req storeRequest) toInput() service.StoreInput {
	items := make([]models.StoreItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, item.toModel())
	}
	return service.StoreInput{Name: req.Name, Items: items, Version: req.Version}
}

func (h *Handler) CreateStore(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	var req storeRequest
	if err := h.decode(w, r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	store, err := h.stores.Create(r.Context(), claims.UserID, req.toInput())
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, store)
}

func (h *Handler) ListStores(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	stores, err := h.stores.List(r.Context(), claims.UserID)
	if err != nil {
		respond.Error(w, err)
		return
	}
	if stores == nil {
		stores = []models.Store{}
	}
	respond.JSON(w, http.StatusOK, stores)
}

func (h *Handler) GetStore(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, err)
		return
	}
	store, err := h.stores.Get(r.Context(), claims.UserID, id)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, store)
}

func (h *Handler) UpdateStore(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, err)
		return
	}
	var req storeRequest
	if err := h.decode(w, r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	store, err := h.stores.Update(r.Context(), claims.UserID, id, req.toInput())
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, store)
}

func (h *Handler) DeleteStore(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, err)
		return
	}
	if err := h.stores.Delete(r.Context(), claims.UserID, id); err != nil {
		respond.Error(w, err)
		return
	}
	respond.Message(w, http.StatusOK, "Store deleted successfully")
}

func (h *Handler) GetPublicStore(w http.ResponseWriter, r *http.Request) {
	store, err := h.stores.GetPublic(r.Context(), mux.Vars(r)["uniqueID"])
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, store)
}

func (h *Handler) AddStoreItem(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	storeID, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, err)
		return
	}
	var req itemRequest
	if err := h.decode(w, r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	item, err := h.stores.AddItem(r.Context(), claims.UserID, storeID, req.toModel())
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, item)
}

func (h *Handler) UpdateStoreItem(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	storeID, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, err)
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		respond.Error(w, err)
		return
	}
	var req itemRequest
	if err := h.decode(w, r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	item, err := h.stores.UpdateItem(r.Context(), claims.UserID, storeID, itemID, req.toModel())
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, item)
}

func (h *Handler) DeleteStoreItem(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	storeID, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, err)
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		respond.Error(w, err)
		return
	}
	if err := h.stores.DeleteItem(r.Context(), claims.UserID, storeID, itemID); err != nil {
		respond.Error(w, err)
		return
	}
	respond.Message(w, http.StatusOK, "Store item deleted successfully")
}
