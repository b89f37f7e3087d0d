// Package app holds the client-side application state of the promo
// front-end: the current view, the adopted user snapshot and the
// in-flight form values. All state lives in one explicit struct and is
// mutated only through Session methods; the view is derived from state,
// never set independently of it.
package app

import (
	"context"
	"strconv"
	"strings"

	"referral_system/internal/client"
)

// View is one of the four public screens.
type View string

const (
	ViewHome      View = "home"
	ViewRegister  View = "register"
	ViewLogin     View = "login"
	ViewDashboard View = "dashboard"
)

// MinWithdrawal is the policy minimum checked locally before any
// network call is made.
const MinWithdrawal = 100

// RegisterForm holds the registration form values.
type RegisterForm struct {
	FullName     string
	Email        string
	Password     string
	ReferralCode string // Pre-filled from a ?ref= link when present
}

// LoginForm holds the login form values.
type LoginForm struct {
	Email    string
	Password string
}

// WithdrawForm holds the withdrawal form values.
type WithdrawForm struct {
	Amount         string // Raw user input, parsed on submit
	PaymentDetails string
}

// State is the whole public-app state.
type State struct {
	View         View
	User         *client.User // Last snapshot received from the server, nil when logged out
	Busy         bool         // An operation is in flight, further submits are dropped
	RegisterForm RegisterForm
	LoginForm    LoginForm
	WithdrawForm WithdrawForm
}

// Notifier receives user-facing notifications, the toast analogue.
type Notifier func(title, detail string)

// Session drives the public-app state machine.
type Session struct {
	api    *client.Client
	store  *DurableStore
	notify Notifier
	state  State
}

// NewSession creates a session on the home view.
func NewSession(api *client.Client, store *DurableStore, notify Notifier) *Session {
	if notify == nil {
		notify = func(string, string) {}
	}
	return &Session{
		api:    api,
		store:  store,
		notify: notify,
		state:  State{View: ViewHome},
	}
}

// State returns a copy of the current state.
func (s *Session) State() State {
	return s.state
}

// Restore adopts the durable-storage snapshot, if any, and routes
// straight to the dashboard. No server round trip, no freshness check:
// the snapshot is trusted until the next mutating call.
func (s *Session) Restore() {
	if s.store == nil {
		return
	}
	u, err := s.store.LoadUser()
	if err != nil || u == nil {
		return
	}
	s.state.User = u
	s.state.View = ViewDashboard
}

// GoTo switches between the public views without touching the rest of
// the state. The dashboard is only reachable with an adopted user.
func (s *Session) GoTo(v View) {
	if v == ViewDashboard && s.state.User == nil {
		return
	}
	s.state.View = v
}

// SubmitRegister sends the registration form. On success the returned
// snapshot is adopted verbatim, persisted and the dashboard is shown.
// On any failure the view and the form values stay as they are. A
// submit while another operation is in flight is dropped.
func (s *Session) SubmitRegister(ctx context.Context) {
	if s.state.Busy {
		return
	}
	f := s.state.RegisterForm
	if f.FullName == "" || f.Email == "" || f.Password == "" {
		s.notify("Ошибка", "Все поля обязательны")
		return
	}
	s.state.Busy = true
	defer func() { s.state.Busy = false }()

	u, err := s.api.Register(ctx, f.Email, f.Password, f.FullName, f.ReferralCode)
	if err != nil {
		if client.IsAPIError(err) {
			s.notify("Ошибка", err.Error())
		} else {
			s.notify("Ошибка", "Не удалось зарегистрироваться")
		}
		return
	}
	s.adopt(u)
	s.notify("Регистрация успешна!", "Добро пожаловать в программу!")
}

// SubmitLogin sends the login form, with the same success/failure
// semantics as SubmitRegister.
func (s *Session) SubmitLogin(ctx context.Context) {
	if s.state.Busy {
		return
	}
	f := s.state.LoginForm
	if f.Email == "" || f.Password == "" {
		s.notify("Ошибка", "Email и пароль обязательны")
		return
	}
	s.state.Busy = true
	defer func() { s.state.Busy = false }()

	u, err := s.api.Login(ctx, f.Email, f.Password)
	if err != nil {
		if client.IsAPIError(err) {
			s.notify("Ошибка", err.Error())
		} else {
			s.notify("Ошибка", "Не удалось войти")
		}
		return
	}
	s.adopt(u)
	s.notify("Вход выполнен!", "С возвращением, "+u.FullName+"!")
}

// adopt replaces the whole snapshot after a server round trip and
// mirrors it into durable storage.
func (s *Session) adopt(u *client.User) {
	s.state.User = u
	s.state.View = ViewDashboard
	if s.store != nil {
		_ = s.store.SaveUser(u)
	}
}

// Logout clears the adopted user and the durable snapshot.
func (s *Session) Logout() {
	s.state.User = nil
	s.state.View = ViewHome
	if s.store != nil {
		_ = s.store.DeleteUser()
	}
	s.notify("До встречи!", "Вы вышли из аккаунта")
}

// SubmitWithdrawal validates the withdrawal form locally and files the
// request. Violations never reach the network. The cached balance is
// not decremented: the server settles withdrawals asynchronously and
// stays authoritative.
func (s *Session) SubmitWithdrawal(ctx context.Context) {
	if s.state.Busy || s.state.User == nil {
		return
	}
	f := s.state.WithdrawForm
	amount, err := strconv.ParseFloat(strings.TrimSpace(f.Amount), 64)
	if err != nil || amount < MinWithdrawal {
		s.notify("Ошибка", "Минимальная сумма вывода — "+strconv.Itoa(MinWithdrawal)+" ₽")
		return
	}
	if strings.TrimSpace(f.PaymentDetails) == "" {
		s.notify("Ошибка", "Укажите реквизиты для выплаты")
		return
	}
	s.state.Busy = true
	defer func() { s.state.Busy = false }()

	if err := s.api.RequestWithdrawal(ctx, s.state.User.ID, amount, f.PaymentDetails); err != nil {
		if client.IsAPIError(err) {
			s.notify("Ошибка", err.Error())
		} else {
			s.notify("Ошибка", "Не удалось отправить заявку")
		}
		return
	}
	s.state.WithdrawForm = WithdrawForm{}
	s.notify("Заявка отправлена", "Вывод будет обработан в течение 24 часов")
}

// ReferralLink derives the shareable link from the adopted snapshot.
// With an absent referral code the link is malformed, matching the
// behavior of the original front-end.
func (s *Session) ReferralLink(origin string) string {
	if s.state.User == nil {
		return ""
	}
	return origin + "?ref=" + s.state.User.ReferralCode
}

// SetRegisterForm replaces the registration form values.
func (s *Session) SetRegisterForm(f RegisterForm) { s.state.RegisterForm = f }

// SetLoginForm replaces the login form values.
func (s *Session) SetLoginForm(f LoginForm) { s.state.LoginForm = f }

// SetWithdrawForm replaces the withdrawal form values.
func (s *Session) SetWithdrawForm(f WithdrawForm) { s.state.WithdrawForm = f }
