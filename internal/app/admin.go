package app

import (
	"context"
	"crypto/subtle"

	"referral_system/internal/client"
)

// adminAuthKey is the ephemeral-storage key holding the admin auth flag.
// It disappears with the session, matching the original panel's
// sessionStorage behavior.
const adminAuthKey = "admin_auth"

// AdminSession drives the admin panel state: a two-state machine
// (unauthenticated, authenticated) plus the loaded user list.
//
// Authentication is a client-side string compare against a configured
// password that then travels with every admin API call. That is
// insecure demo auth preserved for compatibility with the existing
// admin service; the session adds nothing on top of it.
type AdminSession struct {
	api      *client.Client
	store    *EphemeralStore
	notify   Notifier
	expected string // Configured admin password

	authenticated bool
	password      string // Accepted password, re-sent on every call
	users         []client.User
}

// NewAdminSession creates an unauthenticated admin session.
func NewAdminSession(api *client.Client, store *EphemeralStore, expected string, notify Notifier) *AdminSession {
	if notify == nil {
		notify = func(string, string) {}
	}
	return &AdminSession{api: api, store: store, notify: notify, expected: expected}
}

// Authenticated reports the current auth state.
func (a *AdminSession) Authenticated() bool { return a.authenticated }

// Users returns the last loaded user list.
func (a *AdminSession) Users() []client.User { return a.users }

// Restore re-adopts the ephemeral auth flag and reloads the list. A new
// session starts unauthenticated.
func (a *AdminSession) Restore(ctx context.Context) {
	if a.store == nil {
		return
	}
	if v, ok := a.store.Get(adminAuthKey); ok && v == "true" {
		a.authenticated = true
		a.password = a.expected
		a.LoadUsers(ctx)
	}
}

// Login compares the password locally. On mismatch the auth flag stays
// false and no API call is made. On match the flag is persisted
// ephemerally and the user list is loaded.
func (a *AdminSession) Login(ctx context.Context, password string) {
	if subtle.ConstantTimeCompare([]byte(password), []byte(a.expected)) != 1 {
		a.notify("Ошибка", "Неверный пароль")
		return
	}
	a.authenticated = true
	a.password = password
	if a.store != nil {
		a.store.Set(adminAuthKey, "true")
	}
	a.notify("Вход выполнен", "Добро пожаловать в админ-панель!")
	a.LoadUsers(ctx)
}

// Logout clears the auth flag and the loaded list.
func (a *AdminSession) Logout() {
	a.authenticated = false
	a.password = ""
	a.users = nil
	if a.store != nil {
		a.store.Delete(adminAuthKey)
	}
}

// LoadUsers fetches the full user list from the admin service.
func (a *AdminSession) LoadUsers(ctx context.Context) {
	if !a.authenticated {
		return
	}
	users, err := a.api.AdminListUsers(ctx, a.password)
	if err != nil {
		if client.IsAPIError(err) {
			a.notify("Ошибка", err.Error())
		} else {
			a.notify("Ошибка", "Не удалось загрузить пользователей")
		}
		return
	}
	a.users = users
}

// UpdateBalance applies a signed delta to a user's balance. The server
// does the arithmetic; on success the whole list is re-fetched, never
// patched locally.
func (a *AdminSession) UpdateBalance(ctx context.Context, userID int64, amount float64) {
	if !a.authenticated {
		return
	}
	if err := a.api.AdminUpdateBalance(ctx, a.password, userID, amount); err != nil {
		if client.IsAPIError(err) {
			a.notify("Ошибка", err.Error())
		} else {
			a.notify("Ошибка", "Не удалось изменить баланс")
		}
		return
	}
	a.notify("Успешно", "Баланс изменен")
	a.LoadUsers(ctx)
}

// SetBalance overwrites a user's balance with an absolute value, with
// the same refresh semantics as UpdateBalance.
func (a *AdminSession) SetBalance(ctx context.Context, userID int64, balance float64) {
	if !a.authenticated {
		return
	}
	if err := a.api.AdminSetBalance(ctx, a.password, userID, balance); err != nil {
		if client.IsAPIError(err) {
			a.notify("Ошибка", err.Error())
		} else {
			a.notify("Ошибка", "Не удалось изменить баланс")
		}
		return
	}
	a.notify("Успешно", "Баланс установлен")
	a.LoadUsers(ctx)
}
