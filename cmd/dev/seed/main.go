package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"taskwhisker/internal/auth"
	"taskwhisker/internal/money"
	"taskwhisker/internal/user"
	"taskwhisker/pkg/config"
	"taskwhisker/pkg/db"
)

func main() {
	var (
		apiURL      = flag.String("api-url", "", "running API base url (defaults to http://localhost<HTTP_ADDR>)")
		testBooking = flag.Bool("test-booking", false, "log in as the operator through the API and create a test booking")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	seed := cfg.Seed
	if seed.OperatorEmail == "" || seed.OperatorPassword == "" {
		fmt.Fprintln(os.Stderr, "missing SEED_OPERATOR_EMAIL or SEED_OPERATOR_PASSWORD (env or .env)")
		os.Exit(2)
	}

	ctx := context.Background()

	pool, err := db.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db open: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.MigrationsPath != "" {
		if err := db.Migrate(cfg.MigrationsPath, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}
	}

	users := user.NewRepository(pool)

	op, err := upsertUser(ctx, users, seed.OperatorEmail, seed.OperatorName, user.RoleOperator, seed.OperatorPassword)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed operator: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("operator id=%s email=%s\n", op.ID, op.Email)

	if seed.SitterEmail != "" && seed.SitterPassword != "" {
		s, err := upsertUser(ctx, users, seed.SitterEmail, seed.SitterName, user.RoleSitter, seed.SitterPassword)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed sitter: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("sitter   id=%s email=%s\n", s.ID, s.Email)
	}

	if !*testBooking {
		fmt.Println("Seed complete.")
		return
	}

	if *apiURL == "" {
		*apiURL = defaultAPIURL(cfg.HTTPAddr)
	}
	client := &http.Client{Timeout: 10 * time.Second}

	var login auth.LoginResponse
	if err := postJSON(client, *apiURL+"/v1/auth/login", "", auth.LoginRequest{
		Email:    seed.OperatorEmail,
		Password: seed.OperatorPassword,
	}, &login); err != nil {
		fmt.Fprintf(os.Stderr, "login: %v\n", err)
		fmt.Fprintf(os.Stderr, "tip: is the API running, and is HTTP_ADDR set correctly? api_url=%s\n", *apiURL)
		os.Exit(1)
	}

	var created struct {
		Booking struct {
			ID               string `json:"id"`
			Status           string `json:"status"`
			ClientTotalCents int64  `json:"clientTotalCents"`
		} `json:"booking"`
	}
	if err := postJSON(client, *apiURL+"/v1/bookings/test", login.Token, nil, &created); err != nil {
		fmt.Fprintf(os.Stderr, "create test booking: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Seed complete.\n")
	fmt.Printf("test booking id=%s status=%s total=%s\n", created.Booking.ID, created.Booking.Status, money.FormatUSD(created.Booking.ClientTotalCents))
	fmt.Printf("\nNext steps:\n")
	fmt.Printf("  POST %s/v1/bookings/%s/confirm (Authorization: Bearer <token>)\n", *apiURL, created.Booking.ID)
}

func upsertUser(ctx context.Context, users *user.Repository, email, name string, role user.Role, password string) (*user.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	return users.Upsert(ctx, strings.ToLower(strings.TrimSpace(email)), name, role, hash)
}

func postJSON(client *http.Client, url, token string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(http.MethodPost, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(b))
	}
	return json.Unmarshal(b, out)
}

func defaultAPIURL(httpAddr string) string {
	// httpAddr is typically ":8081" or "0.0.0.0:8081".
	addr := strings.TrimSpace(httpAddr)
	if addr == "" {
		addr = ":8081"
	}
	switch {
	case strings.HasPrefix(addr, ":"):
		return "http://localhost" + addr
	case strings.HasPrefix(addr, "0.0.0.0:"):
		return "http://localhost" + strings.TrimPrefix(addr, "0.0.0.0")
	default:
		return "http://" + addr
	}
}
