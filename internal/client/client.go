// Package client is a typed client for the promo HTTP API: the account
// service (register/login), the withdrawal service and the admin service.
//
// Application errors (the server answered with success:false) are
// returned as *APIError carrying the server's message verbatim, so the
// caller can surface it to the user unchanged. Anything else is a
// transport error.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

// User is the account snapshot the server returns. The client never
// computes balance or referral_count itself, it only replaces the whole
// snapshot after a server round trip.
type User struct {
	ID            int64   `json:"id"`
	Email         string  `json:"email"`
	FullName      string  `json:"full_name"`
	Balance       float64 `json:"balance"`
	ReferralCount int     `json:"referral_count"`
	ReferralCode  string  `json:"referral_code"`
	CreatedAt     string  `json:"created_at,omitempty"`
}

// APIError is an application-level failure: the server responded with
// success:false and a human-readable message.
type APIError struct {
	Message string
}

func (e *APIError) Error() string { return e.Message }

// IsAPIError reports whether err is an application error from the server.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// Config points the client at the three service endpoints.
type Config struct {
	AccountURL    string       // Account service (register/login)
	WithdrawalURL string       // Withdrawal service
	AdminURL      string       // Admin service
	HTTPClient    *http.Client // Optional, http.DefaultClient when nil
}

// Client calls the promo services.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a client for the given endpoints.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, http: httpClient}
}

// Account requests are tagged variants: each operation kind is its own
// struct carrying a fixed action value, so an impossible action cannot
// be constructed.
type registerRequest struct {
	Action       string `json:"action"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	FullName     string `json:"full_name"`
	ReferralCode string `json:"referral_code,omitempty"`
}

type loginRequest struct {
	Action   string `json:"action"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type withdrawalRequest struct {
	UserID         int64   `json:"user_id"`
	Amount         float64 `json:"amount"`
	PaymentMethod  string  `json:"payment_method"`
	PaymentDetails string  `json:"payment_details"`
}

type adminUpdateBalanceRequest struct {
	Action   string  `json:"action"`
	Password string  `json:"password"`
	UserID   int64   `json:"user_id"`
	Amount   float64 `json:"amount"`
}

type adminSetBalanceRequest struct {
	Action   string  `json:"action"`
	Password string  `json:"password"`
	UserID   int64   `json:"user_id"`
	Balance  float64 `json:"balance"`
}

// envelope is the common response shape of all three services.
type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	User    *User  `json:"user"`
	Users   []User `json:"users"`
}

// Register creates an account and returns the server's snapshot.
func (c *Client) Register(ctx context.Context, email, password, fullName, referralCode string) (*User, error) {
	env, err := c.post(ctx, c.cfg.AccountURL, registerRequest{
		Action:       "register",
		Email:        email,
		Password:     password,
		FullName:     fullName,
		ReferralCode: referralCode,
	})
	if err != nil {
		return nil, err
	}
	if env.User == nil {
		return nil, errors.New("account service returned no user")
	}
	return env.User, nil
}

// Login authenticates and returns the server's snapshot.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	env, err := c.post(ctx, c.cfg.AccountURL, loginRequest{
		Action:   "login",
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, err
	}
	if env.User == nil {
		return nil, errors.New("account service returned no user")
	}
	return env.User, nil
}

// RequestWithdrawal files a card withdrawal request. Fire-and-forget:
// the server settles it asynchronously, no snapshot comes back.
func (c *Client) RequestWithdrawal(ctx context.Context, userID int64, amount float64, paymentDetails string) error {
	_, err := c.post(ctx, c.cfg.WithdrawalURL, withdrawalRequest{
		UserID:         userID,
		Amount:         amount,
		PaymentMethod:  "card",
		PaymentDetails: paymentDetails,
	})
	return err
}

// AdminListUsers fetches the full user list. The password travels as a
// query parameter, matching the admin service contract.
func (c *Client) AdminListUsers(ctx context.Context, password string) ([]User, error) {
	u, err := url.Parse(c.cfg.AdminURL)
	if err != nil {
		return nil, errors.Wrap(err, "admin url")
	}
	q := u.Query()
	q.Set("password", password)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	env, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return env.Users, nil
}

// AdminUpdateBalance applies a signed delta to a user's balance.
// The server does the arithmetic.
func (c *Client) AdminUpdateBalance(ctx context.Context, password string, userID int64, amount float64) error {
	_, err := c.post(ctx, c.cfg.AdminURL, adminUpdateBalanceRequest{
		Action:   "update_balance",
		Password: password,
		UserID:   userID,
		Amount:   amount,
	})
	return err
}

// AdminSetBalance overwrites a user's balance with an absolute value.
func (c *Client) AdminSetBalance(ctx context.Context, password string, userID int64, balance float64) error {
	_, err := c.post(ctx, c.cfg.AdminURL, adminSetBalanceRequest{
		Action:   "set_balance",
		Password: password,
		UserID:   userID,
		Balance:  balance,
	})
	return err
}

// post sends a JSON body and decodes the common envelope.
func (c *Client) post(ctx context.Context, endpoint string, body any) (*envelope, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

// do executes a request and maps success:false onto *APIError.
func (c *Client) do(req *http.Request) (*envelope, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send request")
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, errors.Wrap(err, "decode response, status "+strconv.Itoa(resp.StatusCode))
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = "request failed, status " + strconv.Itoa(resp.StatusCode)
		}
		return nil, &APIError{Message: msg}
	}
	return &env, nil
}
