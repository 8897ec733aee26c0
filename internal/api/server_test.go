package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tomb "gopkg.in/tomb.v2"

	"skoll/internal/account"
	"skoll/internal/engine"
)

// --- Setup & Helpers --------------------------------------------------------

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	eng := engine.New()
	tb := &tomb.Tomb{}
	tb.Go(func() error {
		return eng.Run(tb)
	})
	t.Cleanup(func() {
		tb.Kill(nil)
		_ = tb.Wait()
	})

	return New("127.0.0.1", 0, eng, account.NewStore())
}

func doJSON(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, req)
	return recorder
}

func signupAndSignin(t *testing.T, s *Server, username string) string {
	t.Helper()
	creds := map[string]string{"username": username, "password": "hunter2"}

	recorder := doJSON(t, s, http.MethodPost, "/signup", "", creds)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = doJSON(t, s, http.MethodPost, "/signin", "", creds)
	require.Equal(t, http.StatusOK, recorder.Code)

	var response struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	require.NotEmpty(t, response.Token)
	return response.Token
}

// --- Tests ------------------------------------------------------------------

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	token := signupAndSignin(t, s, "alice")

	recorder := doJSON(t, s, http.MethodGet, "/whoami", token, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"username":"alice"}`, recorder.Body.String())
}

func TestSignup_Rejections(t *testing.T) {
	s := newTestServer(t)

	recorder := doJSON(t, s, http.MethodPost, "/signup", "", map[string]string{"username": "", "password": ""})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	creds := map[string]string{"username": "alice", "password": "hunter2"}
	assert.Equal(t, http.StatusOK, doJSON(t, s, http.MethodPost, "/signup", "", creds).Code)
	assert.Equal(t, http.StatusConflict, doJSON(t, s, http.MethodPost, "/signup", "", creds).Code)
}

func TestSignin_WrongCredentials(t *testing.T) {
	s := newTestServer(t)

	recorder := doJSON(t, s, http.MethodPost, "/signin", "", map[string]string{"username": "ghost", "password": "pw"})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestAuthorized_MissingOrBadToken(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, doJSON(t, s, http.MethodGet, "/whoami", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, doJSON(t, s, http.MethodGet, "/whoami", "bogus", nil).Code)
}

func TestOnramp(t *testing.T) {
	s := newTestServer(t)
	token := signupAndSignin(t, s, "alice")

	recorder := doJSON(t, s, http.MethodPost, "/onramp", token, map[string]any{"amount": "100.5"})
	require.Equal(t, http.StatusOK, recorder.Code)

	var response struct {
		Success    bool   `json:"success"`
		NewBalance string `json:"new_balance"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.True(t, response.Success)
	assert.Equal(t, "100.5", response.NewBalance)

	recorder = doJSON(t, s, http.MethodPost, "/onramp", token, map[string]any{"amount": "-1"})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestPlaceOrder_LimitThenMarket(t *testing.T) {
	s := newTestServer(t)
	token := signupAndSignin(t, s, "alice")

	recorder := doJSON(t, s, http.MethodPost, "/orders", token, map[string]any{
		"side": "sell", "type": "limit", "price": "101", "quantity": "10",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	var placed struct {
		Status  string `json:"status"`
		OrderID string `json:"order_id"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &placed))
	assert.Equal(t, "placed", placed.Status)
	assert.NotEmpty(t, placed.OrderID)

	recorder = doJSON(t, s, http.MethodPost, "/orders", token, map[string]any{
		"side": "buy", "type": "market", "quantity": "10",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	var filled struct {
		Status         string `json:"status"`
		FilledQuantity string `json:"filled_quantity"`
		Trades         []struct {
			Price    string `json:"price"`
			Quantity string `json:"quantity"`
		} `json:"trades"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &filled))
	assert.Equal(t, "filled", filled.Status)
	assert.Equal(t, "10", filled.FilledQuantity)
	require.Len(t, filled.Trades, 1)
	assert.Equal(t, "101", filled.Trades[0].Price)
}

func TestPlaceOrder_EngineRejection(t *testing.T) {
	s := newTestServer(t)
	token := signupAndSignin(t, s, "alice")

	// Market order into an empty book surfaces the engine error.
	recorder := doJSON(t, s, http.MethodPost, "/orders", token, map[string]any{
		"side": "buy", "type": "market", "quantity": "5",
	})
	require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)

	var response struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "error", response.Status)
	assert.Equal(t, "No matching orders available", response.Message)
}

func TestPlaceOrder_BadRequest(t *testing.T) {
	s := newTestServer(t)
	token := signupAndSignin(t, s, "alice")

	recorder := doJSON(t, s, http.MethodPost, "/orders", token, map[string]any{
		"side": "sideways", "type": "limit", "price": "1", "quantity": "1",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = doJSON(t, s, http.MethodPost, "/orders", token, map[string]any{
		"side": "buy", "type": "stop", "price": "1", "quantity": "1",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestOrderbookDepth(t *testing.T) {
	s := newTestServer(t)
	token := signupAndSignin(t, s, "alice")

	for _, order := range []map[string]any{
		{"side": "buy", "type": "limit", "price": "99", "quantity": "3"},
		{"side": "buy", "type": "limit", "price": "100", "quantity": "2"},
		{"side": "sell", "type": "limit", "price": "101", "quantity": "4"},
	} {
		require.Equal(t, http.StatusOK, doJSON(t, s, http.MethodPost, "/orders", token, order).Code)
	}

	recorder := doJSON(t, s, http.MethodGet, "/orderbook", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var snapshot struct {
		Bids []struct {
			Price    string `json:"price"`
			Quantity string `json:"quantity"`
		} `json:"bids"`
		Asks []struct {
			Price    string `json:"price"`
			Quantity string `json:"quantity"`
		} `json:"asks"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &snapshot))

	require.Len(t, snapshot.Bids, 2)
	assert.Equal(t, "100", snapshot.Bids[0].Price, "best bid first")
	assert.Equal(t, "99", snapshot.Bids[1].Price)
	require.Len(t, snapshot.Asks, 1)
	assert.Equal(t, "101", snapshot.Asks[0].Price)
	assert.Equal(t, "4", snapshot.Asks[0].Quantity)
}
