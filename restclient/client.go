// Package restclient mengonsumsi backend persistence lewat REST dengan
// request ber-kredensial (cookie sesi + bearer staff). Intent keranjang
// TIDAK lewat sini; itu urusan push channel.
package restclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/yeremiapane/restaurant-sync/models"
)

var (
	// ErrTableNotFound -> nomor meja tidak dikenal (404).
	ErrTableNotFound = errors.New("table not found")
	// ErrSessionPending -> meja ada tapi sesi belum dibuka staff (409).
	ErrSessionPending = errors.New("session not opened yet")
)

type Client struct {
	BaseURL string

	http  *http.Client
	token string
}

func New(baseURL string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		BaseURL: baseURL,
		http: &http.Client{
			Jar:     jar,
			Timeout: 15 * time.Second,
		},
	}
}

// SetToken memasang bearer token staff untuk endpoint private dapur.
func (c *Client) SetToken(token string) {
	c.token = token
}

// envelope mengikuti bentuk utils.JSONResponse di server.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(method, path string, body interface{}, out interface{}) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return res.StatusCode, fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return res.StatusCode, fmt.Errorf("%s %s: decode data: %w", method, path, err)
		}
	}
	if res.StatusCode >= 400 {
		return res.StatusCode, fmt.Errorf("%s %s: %s", method, path, env.Message)
	}
	return res.StatusCode, nil
}

// Me mengembalikan sesi meja yang sedang melekat di cookie, atau nil kalau
// belum ada (401 bukan error di sini).
func (c *Client) Me() (*models.SessionInfo, error) {
	var info models.SessionInfo
	code, err := c.do(http.MethodGet, "/auth/me", nil, &info)
	if code == http.StatusUnauthorized {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// LoginTable menempel ke sesi aktif sebuah meja. 409 diperlakukan sebagai
// "seseorang/staff yang memegang meja" -> resync lewat Me(), jangan
// retry-create.
func (c *Client) LoginTable(tableNumber int) (*models.SessionInfo, error) {
	if existing, err := c.Me(); err == nil && existing != nil {
		return existing, nil
	}

	var info models.SessionInfo
	code, err := c.do(http.MethodPost, fmt.Sprintf("/auth/login-table/%d", tableNumber), nil, &info)
	switch code {
	case http.StatusNotFound:
		return nil, ErrTableNotFound
	case http.StatusConflict:
		existing, meErr := c.Me()
		if meErr != nil {
			return nil, meErr
		}
		if existing == nil {
			return nil, ErrSessionPending
		}
		return existing, nil
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// Products mengambil katalog produk (dipakai reconciler untuk total portate).
func (c *Client) Products() ([]models.Product, error) {
	var products []models.Product
	if _, err := c.do(http.MethodGet, "/api/products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// OrderHistory -> storico ordini satu sesi.
func (c *Client) OrderHistory(sessionID uint) ([]models.Order, error) {
	var orders []models.Order
	path := fmt.Sprintf("/api/orders/history/%d", sessionID)
	if _, err := c.do(http.MethodGet, path, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// KitchenOrders mengambil daftar comanda dengan filter yang diterapkan
// server lewat query param.
func (c *Client) KitchenOrders(onlyAssigned, hideDelivered bool) ([]models.Order, error) {
	var orders []models.Order
	path := fmt.Sprintf("/api/private/kitchen/orders?only_assigned=%t&hide_delivered=%t",
		onlyAssigned, hideDelivered)
	if _, err := c.do(http.MethodGet, path, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// SetDelivered menulis flag consegnato satu baris pesanan.
func (c *Client) SetDelivered(orderID uint, delivered bool) error {
	path := fmt.Sprintf("/api/private/kitchen/orders/%d/delivered", orderID)
	body := map[string]interface{}{"delivered": delivered}
	_, err := c.do(http.MethodPut, path, body, nil)
	return err
}
