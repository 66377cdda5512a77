package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/honeynil/TrustPay/internal/api"
	"github.com/honeynil/TrustPay/internal/handler"
	"github.com/honeynil/TrustPay/internal/infrastructure/auth"
	"github.com/honeynil/TrustPay/internal/infrastructure/kafka"
	"github.com/honeynil/TrustPay/internal/infrastructure/redis"
	"github.com/honeynil/TrustPay/internal/repository/sqlstore"
	service "github.com/honeynil/TrustPay/internal/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryCache is an in-process RedisClient so logout revocation can be
// exercised without a Redis server.
type memoryCache struct {
	mu   sync.Mutex
	data map[string]string
}

func (c *memoryCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return "", redis.ErrKeyNotFound
	}
	return v, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = fmt.Sprint(value)
	return nil
}

func (c *memoryCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memoryCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok, nil
}

func (c *memoryCache) Close() error { return nil }

type testServer struct {
	t      *testing.T
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	db, err := sqlstore.Open(ctx, sqlstore.DriverSQLite, filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cache := &memoryCache{data: make(map[string]string)}
	publisher := kafka.NopPublisher{}
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	userRepo := sqlstore.NewUserRepository(db)
	h := handler.NewHandler(
		service.NewUserService(userRepo, tokens, cache, publisher),
		service.NewTransactionService(userRepo, sqlstore.NewTransactionRepository(db), publisher),
		service.NewStoreService(sqlstore.NewStoreRepository(db), publisher),
	)
	router := api.SetupRouter(h, tokens, cache, db, api.Options{
		CORSOrigins:    []string{"*"},
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	})
	return &testServer{t: t, router: router}
}

func (s *testServer) do(method, path, token string, body interface{}) (int, []byte) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec.Code, rec.Body.Bytes()
}

func (s *testServer) object(method, path, token string, body interface{}, wantStatus int) map[string]interface{} {
	s.t.Helper()
	status, raw := s.do(method, path, token, body)
	require.Equal(s.t, wantStatus, status, "%s %s: %s", method, path, raw)
	var out map[string]interface{}
	require.NoError(s.t, json.Unmarshal(raw, &out))
	return out
}

func (s *testServer) list(path, token string) []interface{} {
	s.t.Helper()
	status, raw := s.do(http.MethodGet, path, token, nil)
	require.Equal(s.t, http.StatusOK, status, "GET %s: %s", path, raw)
	var out []interface{}
	require.NoError(s.t, json.Unmarshal(raw, &out))
	return out
}

// signup registers a user and returns a bearer token for them.
func (s *testServer) signup(name string) string {
	s.t.Helper()
	email := name + "@example.com"
	s.object(http.MethodPost, "/register", "", map[string]string{
		"username": name,
		"email":    email,
		"password": "secret123",
	}, http.StatusCreated)

	out := s.object(http.MethodPost, "/login", "", map[string]string{
		"email":    email,
		"password": "secret123",
	}, http.StatusOK)
	assert.Equal(s.t, "Login successful", out["message"])
	token, _ := out["token"].(string)
	require.NotEmpty(s.t, token)
	return token
}

func idOf(m map[string]interface{}, key string) int64 {
	v, _ := m[key].(float64)
	return int64(v)
}

func decimalOf(t *testing.T, v interface{}) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(fmt.Sprint(v))
	require.NoError(t, err)
	return d
}

func TestAPI_RegisterLoginProfile(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("alice")

	profile := s.object(http.MethodGet, "/user", token, nil, http.StatusOK)
	assert.Equal(t, "alice", profile["username"])
	assert.Equal(t, "alice@example.com", profile["email"])
	assert.NotContains(t, profile, "password_hash")
	assert.NotEmpty(t, profile["unique_link"])

	link := s.object(http.MethodGet, "/user/link", token, nil, http.StatusOK)
	assert.Equal(t, profile["unique_link"], link["trustpayLink"])

	updated := s.object(http.MethodPost, "/user", token, map[string]string{"phone_number": "+100"}, http.StatusOK)
	assert.Equal(t, "+100", updated["phone_number"])

	t.Run("duplicate email", func(t *testing.T) {
		status, _ := s.do(http.MethodPost, "/register", "", map[string]string{
			"username": "other", "email": "ALICE@example.com", "password": "secret123",
		})
		assert.Equal(t, http.StatusConflict, status)
	})

	t.Run("invalid registration", func(t *testing.T) {
		status, _ := s.do(http.MethodPost, "/register", "", map[string]string{
			"username": "bob", "email": "not-an-email", "password": "secret123",
		})
		assert.Equal(t, http.StatusBadRequest, status)
		status, _ = s.do(http.MethodPost, "/register", "", map[string]string{
			"username": "bob", "email": "bob@example.com", "password": "123",
		})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("wrong password", func(t *testing.T) {
		status, _ := s.do(http.MethodPost, "/login", "", map[string]string{
			"email": "alice@example.com", "password": "wrong-password",
		})
		assert.Equal(t, http.StatusUnauthorized, status)
	})
}

func TestAPI_AuthGuard(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/user", "/transactions", "/stores"} {
		status, _ := s.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
		status, _ = s.do(http.MethodGet, path, "garbage", nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
	}

	token := s.signup("carol")
	s.object(http.MethodPost, "/logout", token, nil, http.StatusOK)

	status, _ := s.do(http.MethodGet, "/user", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAPI_Stores(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup("alice")
	bob := s.signup("bob")

	created := s.object(http.MethodPost, "/stores", alice, map[string]interface{}{
		"name": "Shop",
		"items": []map[string]interface{}{
			{"name": "Mug", "price": "9.50", "quantity": 3},
			{"name": "Repair", "price": "40", "type": "service"},
		},
	}, http.StatusCreated)
	storeID := idOf(created, "id")
	require.NotZero(t, storeID)
	uniqueID, _ := created["unique_id"].(string)
	require.NotEmpty(t, uniqueID)
	assert.Len(t, created["items"], 2)

	storePath := fmt.Sprintf("/stores/%d", storeID)

	t.Run("other users cannot see it", func(t *testing.T) {
		status, _ := s.do(http.MethodGet, storePath, bob, nil)
		assert.Equal(t, http.StatusNotFound, status)
		status, _ = s.do(http.MethodDelete, storePath, bob, nil)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Empty(t, s.list("/stores", bob))
	})

	t.Run("other users cannot change it", func(t *testing.T) {
		item := map[string]interface{}{"name": "Hijack", "price": "1", "quantity": 1}
		existingItem := idOf(created["items"].([]interface{})[0].(map[string]interface{}), "id")
		itemPath := fmt.Sprintf("%s/items/%d", storePath, existingItem)

		status, _ := s.do(http.MethodPut, storePath, bob, map[string]interface{}{
			"name": "Stolen", "items": []interface{}{item},
		})
		assert.Equal(t, http.StatusNotFound, status)
		status, _ = s.do(http.MethodPost, storePath+"/items", bob, item)
		assert.Equal(t, http.StatusNotFound, status)
		status, _ = s.do(http.MethodPut, itemPath, bob, item)
		assert.Equal(t, http.StatusNotFound, status)
		status, _ = s.do(http.MethodDelete, itemPath, bob, nil)
		assert.Equal(t, http.StatusNotFound, status)

		got := s.object(http.MethodGet, storePath, alice, nil, http.StatusOK)
		assert.Equal(t, "Shop", got["name"])
		assert.Len(t, got["items"], 2)
		assert.Equal(t, int64(1), idOf(got, "version"))
	})

	t.Run("public lookup by unique id", func(t *testing.T) {
		public := s.object(http.MethodGet, "/public/stores/"+uniqueID, "", nil, http.StatusOK)
		assert.Equal(t, "Shop", public["name"])
	})

	t.Run("query form", func(t *testing.T) {
		got := s.object(http.MethodGet, fmt.Sprintf("/stores?id=%d", storeID), alice, nil, http.StatusOK)
		assert.Equal(t, "Shop", got["name"])
	})

	t.Run("update replaces item set", func(t *testing.T) {
		updated := s.object(http.MethodPut, storePath, alice, map[string]interface{}{
			"name":  "Shop 2",
			"items": []map[string]interface{}{{"name": "Tea", "price": "3", "quantity": 10}},
		}, http.StatusOK)
		assert.Equal(t, "Shop 2", updated["name"])
		items, _ := updated["items"].([]interface{})
		require.Len(t, items, 1)
		assert.Equal(t, "Tea", items[0].(map[string]interface{})["name"])

		version := idOf(updated, "version")
		status, _ := s.do(http.MethodPut, storePath, alice, map[string]interface{}{
			"name": "Shop 3", "items": []interface{}{}, "version": version - 1,
		})
		assert.Equal(t, http.StatusConflict, status)
	})

	t.Run("item operations", func(t *testing.T) {
		item := s.object(http.MethodPost, storePath+"/items", alice, map[string]interface{}{
			"name": "Plate", "price": "5", "quantity": 2,
		}, http.StatusCreated)
		itemPath := fmt.Sprintf("%s/items/%d", storePath, idOf(item, "id"))

		s.object(http.MethodPut, itemPath, alice, map[string]interface{}{
			"name": "Plate", "price": "6", "quantity": 1,
		}, http.StatusOK)
		s.object(http.MethodDelete, itemPath, alice, nil, http.StatusOK)

		status, _ := s.do(http.MethodDelete, itemPath, alice, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("validation", func(t *testing.T) {
		status, _ := s.do(http.MethodPost, "/stores", alice, map[string]interface{}{
			"name": "Bad", "items": []map[string]interface{}{{"name": "Mug", "price": "1"}},
		})
		assert.Equal(t, http.StatusBadRequest, status)
		status, _ = s.do(http.MethodPost, "/stores", alice, map[string]interface{}{"name": "NoItems"})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("delete", func(t *testing.T) {
		deleted := s.object(http.MethodDelete, storePath, alice, nil, http.StatusOK)
		assert.Equal(t, "Store deleted successfully", deleted["message"])
		assert.Empty(t, s.list("/stores", alice))
		status, _ := s.do(http.MethodGet, storePath, alice, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestAPI_ConcurrentStoreUpdates(t *testing.T) {
	const writers = 20

	s := newTestServer(t)
	token := s.signup("alice")
	created := s.object(http.MethodPost, "/stores", token, map[string]interface{}{
		"name": "Shop", "items": []interface{}{},
	}, http.StatusCreated)
	storePath := fmt.Sprintf("/stores/%d", idOf(created, "id"))

	submitted := make([][]string, writers)
	bodies := make([][]byte, writers)
	for i := range bodies {
		items := make([]map[string]interface{}, 3)
		for j := range items {
			name := fmt.Sprintf("writer%d-item%d", i, j)
			submitted[i] = append(submitted[i], name)
			items[j] = map[string]interface{}{"name": name, "price": "1", "quantity": j}
		}
		raw, err := json.Marshal(map[string]interface{}{"name": fmt.Sprintf("Shop %d", i), "items": items})
		require.NoError(t, err)
		bodies[i] = raw
	}

	codes := make([]int, writers)
	var wg sync.WaitGroup
	for i := range bodies {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPut, storePath, bytes.NewReader(bodies[i]))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			s.router.ServeHTTP(rec, req)
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	for i, code := range codes {
		assert.Equal(t, http.StatusOK, code, "writer %d", i)
	}

	final := s.object(http.MethodGet, storePath, token, nil, http.StatusOK)
	assert.Equal(t, int64(writers+1), idOf(final, "version"))

	var names []string
	for _, item := range final["items"].([]interface{}) {
		names = append(names, item.(map[string]interface{})["name"].(string))
	}
	assert.Contains(t, submitted, names, "item set must be exactly one writer's list")

	var winner int
	_, err := fmt.Sscanf(final["name"].(string), "Shop %d", &winner)
	require.NoError(t, err)
	assert.Equal(t, submitted[winner], names, "name and items must come from the same writer")
}

func TestAPI_Transactions(t *testing.T) {
	s := newTestServer(t)
	buyer := s.signup("buyer")
	seller := s.signup("seller")
	outsider := s.signup("outsider")

	sellerLink := s.object(http.MethodGet, "/user/link", seller, nil, http.StatusOK)["trustpayLink"]

	t.Run("refundable above amount", func(t *testing.T) {
		status, _ := s.do(http.MethodPost, "/transaction/initiate", buyer, map[string]interface{}{
			"sellerLink": sellerLink, "amount": "10", "refundableAmount": "11",
		})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("amount beyond storable range", func(t *testing.T) {
		status, _ := s.do(http.MethodPost, "/transaction/initiate", buyer, map[string]interface{}{
			"sellerLink": sellerLink, "amount": "100000000000000000000000.00", "refundableAmount": "0",
		})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("self transaction", func(t *testing.T) {
		status, _ := s.do(http.MethodPost, "/transaction/initiate", seller, map[string]interface{}{
			"sellerLink": sellerLink, "amount": "10", "refundableAmount": "0",
		})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	initiated := s.object(http.MethodPost, "/transaction/initiate", buyer, map[string]interface{}{
		"sellerLink": sellerLink, "amount": "100", "refundableAmount": "25",
	}, http.StatusCreated)
	assert.Equal(t, "Transaction initiated successfully", initiated["message"])
	txID := idOf(initiated, "transactionId")
	require.NotZero(t, txID)
	txPath := fmt.Sprintf("/transactions/%d", txID)

	got := s.object(http.MethodGet, txPath, seller, nil, http.StatusOK)
	assert.Equal(t, "pending", got["status"])
	assert.IsType(t, float64(0), got["amount"], "amounts are JSON numbers")
	assert.IsType(t, float64(0), got["refundable_amount"], "amounts are JSON numbers")
	assert.True(t, decimalOf(t, got["amount"]).Equal(decimal.NewFromInt(100)))

	status, _ := s.do(http.MethodGet, txPath, outsider, nil)
	assert.Equal(t, http.StatusNotFound, status)

	buyerView := s.list("/transactions", buyer)
	require.Len(t, buyerView, 1)
	assert.Equal(t, "sent", buyerView[0].(map[string]interface{})["type"])
	sellerView := s.list("/transactions", seller)
	require.Len(t, sellerView, 1)
	assert.Equal(t, "received", sellerView[0].(map[string]interface{})["type"])
	assert.Empty(t, s.list("/transactions", outsider))

	status, _ = s.do(http.MethodPatch, txPath+"/status", buyer, map[string]string{"status": "refunded"})
	assert.Equal(t, http.StatusConflict, status)

	completed := s.object(http.MethodPatch, txPath+"/status", seller, map[string]string{"status": "completed"}, http.StatusOK)
	assert.Equal(t, "completed", completed["status"])

	status, _ = s.do(http.MethodDelete, txPath, buyer, nil)
	assert.Equal(t, http.StatusConflict, status)

	refunded := s.object(http.MethodPatch, txPath+"/status", buyer, map[string]string{"status": "refunded"}, http.StatusOK)
	assert.Equal(t, "refunded", refunded["status"])

	t.Run("delete pending", func(t *testing.T) {
		second := s.object(http.MethodPost, "/transaction/initiate", buyer, map[string]interface{}{
			"sellerLink": sellerLink, "amount": "5", "refundableAmount": "0",
		}, http.StatusCreated)
		path := fmt.Sprintf("/transactions/%d", idOf(second, "transactionId"))

		status, _ := s.do(http.MethodDelete, path, seller, nil)
		assert.Equal(t, http.StatusNotFound, status)
		s.object(http.MethodDelete, path, buyer, nil, http.StatusOK)
		status, _ = s.do(http.MethodGet, path, buyer, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestAPI_HealthAndUnknownRoutes(t *testing.T) {
	s := newTestServer(t)

	health := s.object(http.MethodGet, "/healthz", "", nil, http.StatusOK)
	assert.Equal(t, "ok", health["status"])

	status, _ := s.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	req := httptest.NewRequest(http.MethodOptions, "/stores", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
