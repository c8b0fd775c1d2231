package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gorilla/websocket"

	"pricewatch/internal/notify"
	"pricewatch/pkg/models"
)

const defaultBaseURL = "http://localhost:8080"

type tokenData struct {
	Token string `json:"token"`
}

type authResponse struct {
	Token string `json:"token"`
}

type searchResponse struct {
	ID       string           `json:"search_id"`
	Query    string           `json:"query"`
	Listings []models.Listing `json:"listings"`
}

type subscriptionsResponse struct {
	Total int                   `json:"total"`
	Items []models.Subscription `json:"items"`
}

type monitorResponse struct {
	Alerts  []models.Alert `json:"alerts"`
	Summary struct {
		RunID          string `json:"run_id"`
		Checked        int    `json:"checked"`
		Alerts         int    `json:"alerts"`
		LookupFailures int    `json:"lookup_failures"`
	} `json:"summary"`
}

func main() {
	global := flag.NewFlagSet("pricewatch", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := args[0]
	sub := ""
	rest := []string{}
	if len(args) > 1 {
		sub = args[1]
		rest = args[2:]
	}

	// Searches fan out to several storefronts and can take a while.
	client := &http.Client{Timeout: 3 * time.Minute}

	switch cmd {
	case "auth":
		handleAuth(ctx, client, *baseURL, *tokenPath, sub, rest)
	case "search":
		handleSearch(ctx, client, *baseURL, args[1:])
	case "subscribe":
		handleSubscribe(ctx, client, *baseURL, *tokenPath, args[1:])
	case "subscriptions":
		handleSubscriptions(ctx, client, *baseURL, *tokenPath, args[1:])
	case "monitor":
		handleMonitor(ctx, client, *baseURL, *tokenPath, sub, rest)
	case "feed":
		handleFeed(ctx, *baseURL, *tokenPath, sub, rest)
	case "notify":
		handleNotify(ctx, *tokenPath, sub, rest)
	case "export":
		handleExport(ctx, client, *baseURL, sub, rest)
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *email == "" || *password == "" {
			log.Fatal("email and password are required")
		}

		payload := map[string]string{"email": *email, "password": *password}
		var resp authResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/login", "", payload, &resp); err != nil {
			log.Fatalf("login failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("logged in")
	case "register":
		fs := flag.NewFlagSet("auth register", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *email == "" || *password == "" {
			log.Fatal("email and password are required")
		}

		payload := map[string]string{"email": *email, "password": *password}
		var resp authResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/register", "", payload, &resp); err != nil {
			log.Fatalf("register failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("registered and logged in")
	case "logout":
		token := mustToken(tokenPath)
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/logout", token, nil, nil); err != nil {
			log.Printf("server logout failed: %v", err)
		}
		if err := clearToken(tokenPath); err != nil {
			log.Fatalf("clear token: %v", err)
		}
		fmt.Println("logged out")
	default:
		log.Fatal("usage: pricewatch auth login|register|logout")
	}
}

func handleSearch(ctx context.Context, client *http.Client, baseURL string, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "print raw JSON")
	limit := fs.Int("limit", 20, "rows to print (0 = all)")
	_ = fs.Parse(args)

	query := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(query) == "" {
		log.Fatal("usage: pricewatch search [-json] [-limit n] <query>")
	}

	resp, err := runSearch(ctx, client, baseURL, query)
	if err != nil {
		log.Fatalf("search failed: %v", err)
	}
	if *asJSON {
		printJSON(resp)
		return
	}
	printListings(os.Stdout, resp.Listings, *limit)
	fmt.Printf("\n%d results, search id %s\n", len(resp.Listings), resp.ID)
	fmt.Printf("subscribe with: pricewatch subscribe -search-id %s\n", resp.ID)
}

func handleSubscribe(ctx context.Context, client *http.Client, baseURL, tokenPath string, args []string) {
	fs := flag.NewFlagSet("subscribe", flag.ExitOnError)
	searchID := fs.String("search-id", "", "id returned by a previous search")
	query := fs.String("query", "", "search again and subscribe to the results")
	_ = fs.Parse(args)

	if *searchID == "" && *query == "" {
		log.Fatal("usage: pricewatch subscribe -search-id <id> | -query <text>")
	}

	token := mustToken(tokenPath)
	payload := map[string]string{"search_id": *searchID, "query": *query}
	var resp struct {
		Subscribed int `json:"subscribed"`
	}
	if err := doJSON(ctx, client, http.MethodPost, baseURL+"/subscriptions", token, payload, &resp); err != nil {
		log.Fatalf("subscribe failed: %v", err)
	}
	fmt.Printf("subscribed to %d products\n", resp.Subscribed)
}

func handleSubscriptions(ctx context.Context, client *http.Client, baseURL, tokenPath string, args []string) {
	fs := flag.NewFlagSet("subscriptions", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "print raw JSON")
	_ = fs.Parse(args)

	token := mustToken(tokenPath)
	var resp subscriptionsResponse
	if err := doJSON(ctx, client, http.MethodGet, baseURL+"/subscriptions", token, nil, &resp); err != nil {
		log.Fatalf("list subscriptions failed: %v", err)
	}
	if *asJSON {
		printJSON(resp)
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBASELINE\tPRODUCT")
	for _, s := range resp.Items {
		fmt.Fprintf(tw, "%d\t%.2f\t%s\n", s.ID, s.BaselinePrice, s.ProductURL)
	}
	_ = tw.Flush()
	fmt.Printf("\n%d subscriptions\n", resp.Total)
}

func handleMonitor(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "run":
		token := mustToken(tokenPath)
		var resp monitorResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/monitor/run", token, nil, &resp); err != nil {
			log.Fatalf("monitor run failed: %v", err)
		}
		for _, a := range resp.Alerts {
			fmt.Printf("price drop: %s %.2f -> %.2f (%s)\n", a.ProductURL, a.PreviousPrice, a.CurrentPrice, a.Email)
		}
		s := resp.Summary
		fmt.Printf("run %s: %d checked, %d alerts, %d lookup failures\n", s.RunID, s.Checked, s.Alerts, s.LookupFailures)
	default:
		log.Fatal("usage: pricewatch monitor run")
	}
}

func handleFeed(ctx context.Context, baseURL, tokenPath, sub string, args []string) {
	token := mustToken(tokenPath)
	switch sub {
	case "tcp":
		fs := flag.NewFlagSet("feed tcp", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:7070", "live feed TCP address")
		pretty := fs.Bool("pretty", true, "pretty print JSON events")
		_ = fs.Parse(args)
		for ctx.Err() == nil {
			if err := runFeedTCP(ctx, *addr, token, *pretty); err != nil && ctx.Err() == nil {
				log.Printf("[live] disconnected: %v", err)
				time.Sleep(time.Second)
			}
		}
	case "ws":
		fs := flag.NewFlagSet("feed ws", flag.ExitOnError)
		wsURL := fs.String("ws", "", "WebSocket URL (defaults to /ws on API host)")
		_ = fs.Parse(args)

		endpoint := *wsURL
		if endpoint == "" {
			var err error
			endpoint, err = websocketURL(baseURL, "/ws")
			if err != nil {
				log.Fatalf("ws url: %v", err)
			}
		}
		if err := runWebSocket(ctx, endpoint, token); err != nil && ctx.Err() == nil {
			log.Fatalf("feed failed: %v", err)
		}
	default:
		log.Fatal("usage: pricewatch feed tcp|ws")
	}
}

func handleNotify(ctx context.Context, tokenPath, sub string, args []string) {
	switch sub {
	case "listen":
		fs := flag.NewFlagSet("notify listen", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:9091", "UDP notify server address")
		_ = fs.Parse(args)

		log.Printf("[notify] listening for price drops via %s", *addr)
		err := notify.Listen(ctx, *addr, mustToken(tokenPath), func(m notify.PriceDropMessage) {
			fmt.Printf("price drop: %s %s -> %s\n", m.ProductURL, m.PreviousPrice, m.CurrentPrice)
		})
		if err != nil {
			log.Fatalf("notify listen failed: %v", err)
		}
	default:
		log.Fatal("usage: pricewatch notify listen")
	}
}

func handleExport(ctx context.Context, client *http.Client, baseURL, sub string, args []string) {
	fs := flag.NewFlagSet("export "+sub, flag.ExitOnError)
	query := fs.String("query", "", "search query to export")
	out := fs.String("out", "", "output path")
	_ = fs.Parse(args)

	if *query == "" {
		log.Fatal("usage: pricewatch export json|csv -query <text> [-out path]")
	}
	resp, err := runSearch(ctx, client, baseURL, *query)
	if err != nil {
		log.Fatalf("search failed: %v", err)
	}

	switch sub {
	case "json":
		path := orDefault(*out, "data/results.json")
		if err := writeJSON(path, resp.Listings); err != nil {
			log.Fatalf("write json failed: %v", err)
		}
		log.Printf("exported %d listings to %s", len(resp.Listings), path)
	case "csv":
		path := orDefault(*out, "data/results.csv")
		if err := writeCSV(path, resp.Listings); err != nil {
			log.Fatalf("write csv failed: %v", err)
		}
		log.Printf("exported %d listings to %s", len(resp.Listings), path)
	default:
		log.Fatal("usage: pricewatch export json|csv -query <text>")
	}
}

func runSearch(ctx context.Context, client *http.Client, baseURL, query string) (*searchResponse, error) {
	q := url.Values{}
	q.Set("query", query)
	var resp searchResponse
	if err := doJSON(ctx, client, http.MethodGet, baseURL+"/search?"+q.Encode(), "", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func printListings(w io.Writer, listings []models.Listing, limit int) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PRICE\tSOURCE\tRATING\tDESCRIPTION")
	for i, l := range listings {
		if limit > 0 && i >= limit {
			break
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", l.DisplayPrice, l.Source, l.Rating, truncate(l.Description, 60))
	}
	_ = tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func runFeedTCP(ctx context.Context, addr, token string, pretty bool) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	if _, err := conn.Write([]byte(token + "\n")); err != nil {
		return fmt.Errorf("send token: %w", err)
	}

	log.Printf("[live] connected to %s", addr)
	reader := bufio.NewScanner(conn)
	for reader.Scan() {
		line := reader.Bytes()
		if !pretty {
			fmt.Println(string(line))
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			fmt.Println(string(line))
			continue
		}
		b, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Println(string(b))
	}
	if err := reader.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

func runWebSocket(ctx context.Context, wsURL, token string) error {
	hdr := http.Header{}
	hdr.Set("Authorization", "Bearer "+token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, hdr)
	if err != nil {
		return err
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	log.Printf("[live] connected to %s", wsURL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Print(string(msg))
	}
}

func writeJSON(path string, items []models.Listing) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func writeCSV(path string, items []models.Listing) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"price", "old_price", "hidden_fees", "source", "rating", "description", "product_url", "image_url"}); err != nil {
		return err
	}
	for _, l := range items {
		if err := w.Write([]string{
			l.DisplayPrice,
			l.OldPrice,
			l.HiddenFees,
			l.Source,
			l.Rating,
			l.Description,
			l.ProductURL,
			l.ImageURL,
		}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func doJSON(ctx context.Context, client *http.Client, method, endpoint, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("json: %v", err)
	}
	fmt.Println(string(b))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.pricewatch-token.json"
	}
	return filepath.Join(home, ".pricewatch", "token.json")
}

func saveToken(path, token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tokenData{Token: token}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var td tokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return "", err
	}
	return strings.TrimSpace(td.Token), nil
}

func mustToken(path string) string {
	token, err := readToken(path)
	if err != nil {
		log.Fatalf("token not found, please login: %v", err)
	}
	if token == "" {
		log.Fatal("token empty, please login")
	}
	return token
}

func clearToken(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}

func printUsage() {
	fmt.Println("pricewatch <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  auth login|register|logout")
	fmt.Println("  search <query>")
	fmt.Println("  subscribe -search-id <id> | -query <text>")
	fmt.Println("  subscriptions")
	fmt.Println("  monitor run")
	fmt.Println("  feed tcp|ws")
	fmt.Println("  notify listen")
	fmt.Println("  export json|csv -query <text>")
}
