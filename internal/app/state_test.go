package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"referral_system/internal/client"
)

// testBackend fakes the promo services and counts the requests it sees.
type testBackend struct {
	srv      *httptest.Server
	requests atomic.Int64
	respond  func(w http.ResponseWriter, r *http.Request)
}

func newTestBackend(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) *testBackend {
	t.Helper()
	b := &testBackend{respond: respond}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		b.respond(w, r)
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *testBackend) client() *client.Client {
	return client.New(client.Config{
		AccountURL:    b.srv.URL + "/account",
		WithdrawalURL: b.srv.URL + "/withdrawals",
		AdminURL:      b.srv.URL + "/admin",
	})
}

// notices captures notifications in order.
type notices struct {
	titles  []string
	details []string
}

func (n *notices) notify(title, detail string) {
	n.titles = append(n.titles, title)
	n.details = append(n.details, detail)
}

func (n *notices) last() string {
	if len(n.details) == 0 {
		return ""
	}
	return n.details[len(n.details)-1]
}

const ivanSnapshot = `{"success":true,"user":{"id":1,"email":"ivan@example.com","full_name":"Ivan Ivanov","balance":0,"referral_count":0,"referral_code":"ABC123"}}`

func newDurableStore(t *testing.T) *DurableStore {
	t.Helper()
	store, err := NewDurableStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDurableStore: %v", err)
	}
	return store
}

func TestRegisterSuccessAdoptsSnapshotAndShowsDashboard(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(ivanSnapshot))
	})
	store := newDurableStore(t)
	var n notices
	s := NewSession(backend.client(), store, n.notify)

	s.GoTo(ViewRegister)
	s.SetRegisterForm(RegisterForm{FullName: "Ivan Ivanov", Email: "ivan@example.com", Password: "secret"})
	s.SubmitRegister(context.Background())

	st := s.State()
	if st.View != ViewDashboard {
		t.Fatalf("expected dashboard view, got %s", st.View)
	}
	u := st.User
	if u == nil {
		t.Fatal("expected an adopted user")
	}
	// Field-for-field the server's snapshot
	if u.ID != 1 || u.Email != "ivan@example.com" || u.FullName != "Ivan Ivanov" ||
		u.Balance != 0 || u.ReferralCount != 0 || u.ReferralCode != "ABC123" {
		t.Errorf("unexpected snapshot: %+v", u)
	}
	// Mirrored into durable storage
	saved, err := store.LoadUser()
	if err != nil || saved == nil {
		t.Fatalf("expected a durable snapshot, got %+v, %v", saved, err)
	}
	if *saved != *u {
		t.Errorf("durable snapshot differs: %+v vs %+v", saved, u)
	}
}

func TestRegisterFailureKeepsViewAndFormValues(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success":false,"error":"Email уже зарегистрирован"}`))
	})
	var n notices
	s := NewSession(backend.client(), newDurableStore(t), n.notify)

	form := RegisterForm{FullName: "Ivan Ivanov", Email: "ivan@example.com", Password: "secret"}
	s.GoTo(ViewRegister)
	s.SetRegisterForm(form)
	s.SubmitRegister(context.Background())

	st := s.State()
	if st.View != ViewRegister {
		t.Errorf("view must not change on failure, got %s", st.View)
	}
	if st.RegisterForm != form {
		t.Errorf("form values must be preserved, got %+v", st.RegisterForm)
	}
	if st.User != nil {
		t.Errorf("no user must be adopted on failure")
	}
	if n.last() != "Email уже зарегистрирован" {
		t.Errorf("server message must be surfaced verbatim, got %q", n.last())
	}
}

func TestLoginTransportFailureShowsGenericMessage(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {})
	backend.srv.Close() // Network is unreachable
	var n notices
	s := NewSession(backend.client(), newDurableStore(t), n.notify)

	s.GoTo(ViewLogin)
	s.SetLoginForm(LoginForm{Email: "ivan@example.com", Password: "secret"})
	s.SubmitLogin(context.Background())

	if s.State().View != ViewLogin {
		t.Errorf("view must not change on transport failure")
	}
	if n.last() != "Не удалось войти" {
		t.Errorf("expected the generic failure message, got %q", n.last())
	}
}

func TestSubmitWhileBusyIsDropped(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(ivanSnapshot))
	})
	var s *Session
	// The notification fires while the first submit is still in flight,
	// so the re-submit from inside it must be dropped.
	notify := func(title, detail string) {
		s.SubmitRegister(context.Background())
	}
	s = NewSession(backend.client(), newDurableStore(t), notify)
	s.SetRegisterForm(RegisterForm{FullName: "Ivan Ivanov", Email: "ivan@example.com", Password: "secret"})
	s.SubmitRegister(context.Background())

	if got := backend.requests.Load(); got != 1 {
		t.Errorf("expected exactly one request, got %d", got)
	}
	if s.State().Busy {
		t.Error("busy must clear once the operation finishes")
	}
}

func TestWithdrawalBelowMinimumMakesNoRequest(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	})
	var n notices
	s := NewSession(backend.client(), newDurableStore(t), n.notify)
	s.state.User = &client.User{ID: 1, Balance: 500}
	s.state.View = ViewDashboard

	for _, amount := range []string{"99", "50", "0", "-10", "abc", ""} {
		s.SetWithdrawForm(WithdrawForm{Amount: amount, PaymentDetails: "4111 1111 1111 1111"})
		s.SubmitWithdrawal(context.Background())
	}

	if got := backend.requests.Load(); got != 0 {
		t.Errorf("local validation failures must not reach the network, got %d requests", got)
	}
}

func TestWithdrawalEmptyDetailsMakesNoRequest(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	})
	var n notices
	s := NewSession(backend.client(), newDurableStore(t), n.notify)
	s.state.User = &client.User{ID: 1, Balance: 500}

	s.SetWithdrawForm(WithdrawForm{Amount: "150", PaymentDetails: "   "})
	s.SubmitWithdrawal(context.Background())

	if got := backend.requests.Load(); got != 0 {
		t.Errorf("empty details must not reach the network, got %d requests", got)
	}
}

func TestWithdrawalSuccessClearsFormAndKeepsBalance(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	})
	var n notices
	s := NewSession(backend.client(), newDurableStore(t), n.notify)
	s.state.User = &client.User{ID: 1, Balance: 500}

	s.SetWithdrawForm(WithdrawForm{Amount: "150", PaymentDetails: "4111 1111 1111 1111"})
	s.SubmitWithdrawal(context.Background())

	st := s.State()
	if st.WithdrawForm != (WithdrawForm{}) {
		t.Errorf("form must be cleared on success, got %+v", st.WithdrawForm)
	}
	// The snapshot is server-authoritative, the client never decrements it
	if st.User.Balance != 500 {
		t.Errorf("cached balance must not change, got %v", st.User.Balance)
	}
	if got := backend.requests.Load(); got != 1 {
		t.Errorf("expected exactly one request, got %d", got)
	}
}

func TestDurableSnapshotRoundTripRestoresDashboardWithoutNetwork(t *testing.T) {
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(ivanSnapshot))
	})
	store := newDurableStore(t)

	// First run: register and adopt
	first := NewSession(backend.client(), store, nil)
	first.SetRegisterForm(RegisterForm{FullName: "Ivan Ivanov", Email: "ivan@example.com", Password: "secret"})
	first.SubmitRegister(context.Background())
	adopted := *first.State().User
	requestsAfterRegister := backend.requests.Load()

	// Next startup: restore from durable storage
	second := NewSession(backend.client(), store, nil)
	second.Restore()

	st := second.State()
	if st.View != ViewDashboard {
		t.Fatalf("expected dashboard after restore, got %s", st.View)
	}
	if st.User == nil || *st.User != adopted {
		t.Errorf("restored snapshot differs: %+v vs %+v", st.User, adopted)
	}
	if got := backend.requests.Load(); got != requestsAfterRegister {
		t.Errorf("restore must not hit the network, saw %d extra requests", got-requestsAfterRegister)
	}
}

func TestRestoreWithoutSnapshotStaysHome(t *testing.T) {
	s := NewSession(nil, newDurableStore(t), nil)
	s.Restore()
	if s.State().View != ViewHome {
		t.Errorf("expected home view, got %s", s.State().View)
	}
}

func TestLogoutClearsUserAndDurableSnapshot(t *testing.T) {
	store := newDurableStore(t)
	var n notices
	s := NewSession(nil, store, n.notify)
	s.adopt(&client.User{ID: 1, Email: "ivan@example.com", ReferralCode: "ABC123"})

	s.Logout()

	if s.State().User != nil || s.State().View != ViewHome {
		t.Errorf("logout must clear the user and return home, got %+v", s.State())
	}
	if saved, _ := store.LoadUser(); saved != nil {
		t.Errorf("durable snapshot must be removed on logout, got %+v", saved)
	}
}

func TestReferralLinkDerivation(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{name: "with code", code: "ABC123", want: "https://promo.example.com/?ref=ABC123"},
		// Absent code produces a malformed link, matching the original front-end
		{name: "without code", code: "", want: "https://promo.example.com/?ref="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(nil, nil, nil)
			s.state.User = &client.User{ID: 1, ReferralCode: tt.code}
			if got := s.ReferralLink("https://promo.example.com/"); got != tt.want {
				t.Errorf("ReferralLink = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDashboardUnreachableWithoutUser(t *testing.T) {
	s := NewSession(nil, nil, nil)
	s.GoTo(ViewDashboard)
	if s.State().View == ViewDashboard {
		t.Error("dashboard must not be reachable without an adopted user")
	}
}
