package backend

import (
	"context"
	"fmt"
	"log"
	"net/http"
)

func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var res struct {
		Status  bool   `json:"status"`
		Token   string `json:"token"`
		User    *User  `json:"user"`
		Message string `json:"message"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.postJSON(ctx, "/api/auth/login", body, &res); err != nil {
		return LoginResult{}, err
	}
	if !res.Status || res.Token == "" || res.User == nil {
		msg := res.Message
		if msg == "" {
			msg = "login failed"
		}
		return LoginResult{}, fmt.Errorf("login: %w: %s", ErrRejected, msg)
	}
	return LoginResult{Token: res.Token, User: *res.User}, nil
}

// Logout tells the backend the token is done with. Best effort: failures are
// logged and swallowed, the local session is dropped regardless.
func (c *Client) Logout(ctx context.Context) {
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/logout", nil, nil); err != nil {
		log.Printf("backend: logout notify failed: %v", err)
	}
}

// StockIn records incoming stock for a product (tipe "masuk").
func (c *Client) StockIn(ctx context.Context, productID, qty int) error {
	body := map[string]any{"id_product": productID, "tipe": "masuk", "quantity": qty}
	return c.postJSON(ctx, "/api/riwayat_stock", body, nil)
}
