package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/mbndr/figlet4go"

	"referral_system/internal/app"
	"referral_system/internal/client"
)

// promocli is a terminal front-end for the promo: it drives the same
// application state the web client does, against the same three
// endpoints.

const usage = `usage: promocli <command> [flags]

commands:
  register   -name -email -password [-ref]   create an account
  login      -email -password                log in
  status                                     show the cached dashboard
  link       [-origin]                       print the referral link
  withdraw   -amount -details                request a card withdrawal
  logout                                     log out
  admin      -password [-list | -user -add N | -user -set N]
`

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		banner()
		fmt.Print(usage)
		os.Exit(2)
	}

	api := client.New(client.Config{
		AccountURL:    envDefault("ACCOUNT_URL", "http://localhost:8080/api/account"),
		WithdrawalURL: envDefault("WITHDRAWAL_URL", "http://localhost:8080/api/withdrawals"),
		AdminURL:      envDefault("ADMIN_URL", "http://localhost:8080/api/admin"),
		HTTPClient:    &http.Client{Timeout: 15 * time.Second},
	})

	store, err := newStore()
	if err != nil {
		color.Red("storage error: %v", err)
		os.Exit(1)
	}

	session := app.NewSession(api, store, printNotice)
	session.Restore()

	ctx := context.Background()

	switch os.Args[1] {
	case "register":
		fs := flag.NewFlagSet("register", flag.ExitOnError)
		name := fs.String("name", "", "full name")
		email := fs.String("email", "", "email")
		password := fs.String("password", "", "password")
		ref := fs.String("ref", "", "referral code of the inviter")
		_ = fs.Parse(os.Args[2:])
		session.GoTo(app.ViewRegister)
		session.SetRegisterForm(app.RegisterForm{FullName: *name, Email: *email, Password: *password, ReferralCode: *ref})
		session.SubmitRegister(ctx)
		printDashboard(session)
	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		email := fs.String("email", "", "email")
		password := fs.String("password", "", "password")
		_ = fs.Parse(os.Args[2:])
		session.GoTo(app.ViewLogin)
		session.SetLoginForm(app.LoginForm{Email: *email, Password: *password})
		session.SubmitLogin(ctx)
		printDashboard(session)
	case "status":
		printDashboard(session)
	case "link":
		fs := flag.NewFlagSet("link", flag.ExitOnError)
		origin := fs.String("origin", envDefault("PROMO_ORIGIN", "https://promo.example.com/"), "site origin")
		_ = fs.Parse(os.Args[2:])
		if link := session.ReferralLink(*origin); link != "" {
			fmt.Println(link)
		} else {
			color.Red("not logged in")
		}
	case "withdraw":
		fs := flag.NewFlagSet("withdraw", flag.ExitOnError)
		amount := fs.String("amount", "", "amount in roubles")
		details := fs.String("details", "", "card number for the payout")
		_ = fs.Parse(os.Args[2:])
		session.SetWithdrawForm(app.WithdrawForm{Amount: *amount, PaymentDetails: *details})
		session.SubmitWithdrawal(ctx)
	case "logout":
		session.Logout()
	case "admin":
		runAdmin(ctx, api, os.Args[2:])
	default:
		fmt.Print(usage)
		os.Exit(2)
	}
}

// runAdmin drives the admin panel state machine for one command.
func runAdmin(ctx context.Context, api *client.Client, args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	password := fs.String("password", "", "admin password")
	list := fs.Bool("list", false, "list users")
	user := fs.Int64("user", 0, "target user id")
	add := fs.Float64("add", 0, "delta to add to the balance, may be negative")
	set := fs.Float64("set", -1, "absolute balance to set")
	_ = fs.Parse(args)

	expected := envDefault("ADMIN_PASSWORD", "")
	if expected == "" {
		color.Red("ADMIN_PASSWORD is not set")
		os.Exit(1)
	}

	admin := app.NewAdminSession(api, app.NewEphemeralStore(), expected, printNotice)
	admin.Login(ctx, *password)
	if !admin.Authenticated() {
		os.Exit(1)
	}

	switch {
	case *user != 0 && *add != 0:
		admin.UpdateBalance(ctx, *user, *add)
	case *user != 0 && *set >= 0:
		admin.SetBalance(ctx, *user, *set)
	case *list:
		// List already loaded on login
	}

	for _, u := range admin.Users() {
		fmt.Printf("%4d  %-30s %-25s %10.2f ₽  рефералов: %d\n", u.ID, u.Email, u.FullName, u.Balance, u.ReferralCount)
	}
}

// printDashboard renders the dashboard view of the current state.
func printDashboard(s *app.Session) {
	st := s.State()
	if st.View != app.ViewDashboard || st.User == nil {
		return
	}
	color.Cyan("%s <%s>", st.User.FullName, st.User.Email)
	fmt.Printf("Баланс:    %.2f ₽\n", st.User.Balance)
	fmt.Printf("Рефералы:  %d\n", st.User.ReferralCount)
	fmt.Printf("Код:       %s\n", st.User.ReferralCode)
}

// printNotice is the toast analogue for a terminal.
func printNotice(title, detail string) {
	color.New(color.FgGreen, color.Bold).Fprint(os.Stderr, title)
	fmt.Fprintln(os.Stderr, " — "+detail)
}

// banner renders the launch banner.
func banner() {
	render := figlet4go.NewAsciiRender()
	text, err := render.Render("promo")
	if err == nil {
		color.Yellow(text)
	}
}

// newStore opens the durable snapshot store under the user config dir.
func newStore() (*app.DurableStore, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return app.NewDurableStore(filepath.Join(base, "promocli"))
}

// envDefault reads an environment variable with a fallback.
func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
