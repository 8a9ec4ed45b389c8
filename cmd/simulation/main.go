package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/templeobijnr/payjaro-backend/internal/auth"
	"github.com/templeobijnr/payjaro-backend/internal/database"
	"github.com/templeobijnr/payjaro-backend/internal/orders"
	"github.com/templeobijnr/payjaro-backend/internal/payments"
	"github.com/templeobijnr/payjaro-backend/internal/types"
	"github.com/templeobijnr/payjaro-backend/internal/wallet"
	"github.com/templeobijnr/payjaro-backend/pkg/middleware"
)

const (
	minOrders     = 10
	maxOrders     = 60
	numWorkers    = 4
	serverAddress = "http://localhost:8080"
	gatewayAddr   = ":8089"

	jwtSecret      = "simulation-secret-key"
	internalKey    = "simulation-internal-key"
	paystackSecret = "sk_test_simulation"

	customerAPIKey        = "customer-api-key"
	customerAPISecret     = "customer-api-secret"
	entrepreneurAPIKey    = "entrepreneur-api-key"
	entrepreneurAPISecret = "entrepreneur-api-secret"

	// Fraction of payments the fake gateway declines
	failureRate = 0.1
)

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	// Configure pretty logging
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	// Sort durations for percentile calculations
	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	// Calculate mean
	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))

	// Calculate median
	median = rs.durations[len(rs.durations)/2]

	// Calculate percentiles
	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// simulationClient handles HTTP communication with the commerce API
type simulationClient struct {
	baseURL           string
	customerToken     string
	entrepreneurToken string
	client            *http.Client
	stats             map[string]*routeStats
}

// newSimulationClient creates and initializes a new simulation client
// It authenticates both parties and prepares performance tracking
func newSimulationClient() (*simulationClient, error) {
	// Create HTTP client with timeout
	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	sc := &simulationClient{
		baseURL: serverAddress,
		client:  client,
		stats: map[string]*routeStats{
			"auth":     {name: "Authentication"},
			"create":   {name: "Create Order"},
			"initiate": {name: "Initiate Payment"},
			"webhook":  {name: "Payment Webhook"},
			"get":      {name: "Get Order"},
			"withdraw": {name: "Request Withdrawal"},
			"finalize": {name: "Finalize Payout"},
			"summary":  {name: "Wallet Summary"},
		},
	}

	customerToken, err := sc.authenticate(customerAPIKey, customerAPISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate customer: %w", err)
	}
	sc.customerToken = customerToken

	entrepreneurToken, err := sc.authenticate(entrepreneurAPIKey, entrepreneurAPISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate entrepreneur: %w", err)
	}
	sc.entrepreneurToken = entrepreneurToken

	return sc, nil
}

// authenticate performs API authentication and returns a JWT token
func (sc *simulationClient) authenticate(apiKey, apiSecret string) (string, error) {
	start := time.Now()
	defer func() {
		sc.stats["auth"].addDuration(time.Since(start))
	}()

	credentials := map[string]string{
		"api_key":    apiKey,
		"api_secret": apiSecret,
	}

	body, err := json.Marshal(credentials)
	if err != nil {
		return "", err
	}

	resp, err := sc.client.Post(
		fmt.Sprintf("%s/api/v1/auth/token", sc.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("authentication failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Token string `json:"jwt_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	return result.Data.Token, nil
}

// doJSON sends a JSON request with the given token and decodes the
// standard response envelope into out.
func (sc *simulationClient) doJSON(method, path, token string, payload, out any) error {
	var body *bytes.Buffer
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(encoded)
	} else {
		body = &bytes.Buffer{}
	}

	req, err := http.NewRequest(method, sc.baseURL+path, body)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := sc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug().Str("path", path).Str("response", string(respBody)).Msg("API response")

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%s %s failed with status %d: %s", method, path, resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
		}
	}
	return nil
}

// createOrder submits a new order to the API
// Returns the created order on success
func (sc *simulationClient) createOrder(body map[string]any) (*types.Order, error) {
	start := time.Now()
	defer func() {
		sc.stats["create"].addDuration(time.Since(start))
	}()

	var result struct {
		Data types.Order `json:"data"`
	}
	if err := sc.doJSON("POST", "/api/v1/orders", sc.customerToken, body, &result); err != nil {
		sc.stats["create"].failures++
		return nil, err
	}
	if result.Data.OrderID == "" {
		sc.stats["create"].failures++
		return nil, fmt.Errorf("no order ID in response")
	}
	return &result.Data, nil
}

// initiatePayment opens a Paystack payment for the order and returns the
// provider reference used later by the webhook
func (sc *simulationClient) initiatePayment(orderID, email string) (string, error) {
	start := time.Now()
	defer func() {
		sc.stats["initiate"].addDuration(time.Since(start))
	}()

	payload := map[string]any{
		"order_id":     orderID,
		"provider":     "paystack",
		"email":        email,
		"callback_url": "http://localhost/callback",
	}

	var result struct {
		Data struct {
			Reference string `json:"reference"`
		} `json:"data"`
	}
	if err := sc.doJSON("POST", "/api/v1/payments/initiate", sc.customerToken, payload, &result); err != nil {
		sc.stats["initiate"].failures++
		return "", err
	}
	if result.Data.Reference == "" {
		sc.stats["initiate"].failures++
		return "", fmt.Errorf("no payment reference in response")
	}
	return result.Data.Reference, nil
}

// sendPaystackWebhook delivers a signed charge event for the reference,
// the way the real gateway would
func (sc *simulationClient) sendPaystackWebhook(reference string, amount decimal.Decimal, success bool) error {
	start := time.Now()
	defer func() {
		sc.stats["webhook"].addDuration(time.Since(start))
	}()

	event := "charge.success"
	gatewayResponse := "Successful"
	if !success {
		event = "charge.failed"
		gatewayResponse = "Declined by issuer"
	}

	payload, err := json.Marshal(map[string]any{
		"event": event,
		"data": map[string]any{
			"reference":        reference,
			"amount":           amount.Mul(decimal.NewFromInt(100)).IntPart(),
			"currency":         "NGN",
			"gateway_response": gatewayResponse,
		},
	})
	if err != nil {
		return err
	}

	mac := hmac.New(sha512.New, []byte(paystackSecret))
	mac.Write(payload)
	signature := hex.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequest("POST", sc.baseURL+"/api/v1/webhooks/paystack", bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-paystack-signature", signature)

	resp, err := sc.client.Do(req)
	if err != nil {
		sc.stats["webhook"].failures++
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		sc.stats["webhook"].failures++
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook delivery failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// getOrder retrieves the current state of an order as the customer
func (sc *simulationClient) getOrder(orderID string) (*types.Order, error) {
	start := time.Now()
	defer func() {
		sc.stats["get"].addDuration(time.Since(start))
	}()

	var result struct {
		Data types.Order `json:"data"`
	}
	if err := sc.doJSON("GET", "/api/v1/orders/"+orderID, sc.customerToken, nil, &result); err != nil {
		sc.stats["get"].failures++
		return nil, err
	}
	return &result.Data, nil
}

// requestWithdrawal asks for a payout from the entrepreneur's wallet
func (sc *simulationClient) requestWithdrawal(amount decimal.Decimal) (*types.WithdrawalRequest, error) {
	start := time.Now()
	defer func() {
		sc.stats["withdraw"].addDuration(time.Since(start))
	}()

	payload := map[string]any{
		"amount":            amount,
		"withdrawal_method": "bank_transfer",
		"destination_details": map[string]any{
			"bank_code":      "058",
			"account_number": "0123456789",
		},
	}

	var result struct {
		Data types.WithdrawalRequest `json:"data"`
	}
	if err := sc.doJSON("POST", "/api/v1/wallet/withdrawals", sc.entrepreneurToken, payload, &result); err != nil {
		sc.stats["withdraw"].failures++
		return nil, err
	}
	return &result.Data, nil
}

// finalizePayout reports the payout outcome through the internal API,
// standing in for the payout rail's callback
func (sc *simulationClient) finalizePayout(referenceID string, success bool) error {
	start := time.Now()
	defer func() {
		sc.stats["finalize"].addDuration(time.Since(start))
	}()

	payload, err := json.Marshal(map[string]any{"success": success})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(
		"POST",
		fmt.Sprintf("%s/api/v1/internal/withdrawals/%s/finalize", sc.baseURL, referenceID),
		bytes.NewBuffer(payload),
	)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Internal-Key", internalKey)

	resp, err := sc.client.Do(req)
	if err != nil {
		sc.stats["finalize"].failures++
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		sc.stats["finalize"].failures++
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("finalize failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// walletSummary retrieves the entrepreneur's wallet and earnings rollup
func (sc *simulationClient) walletSummary() (map[string]any, error) {
	start := time.Now()
	defer func() {
		sc.stats["summary"].addDuration(time.Since(start))
	}()

	var result struct {
		Data map[string]any `json:"data"`
	}
	if err := sc.doJSON("GET", "/api/v1/wallet/summary", sc.entrepreneurToken, nil, &result); err != nil {
		sc.stats["summary"].failures++
		return nil, err
	}
	return result.Data, nil
}

// printPerformanceStats outputs formatted performance statistics for all API endpoints
func (sc *simulationClient) printPerformanceStats() {
	fmt.Println("\nAPI Performance Statistics")
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 100))

	for _, stats := range sc.stats {
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			stats.totalCalls,
			stats.failures,
			min.Round(time.Millisecond),
			max.Round(time.Millisecond),
			mean.Round(time.Millisecond),
			median.Round(time.Millisecond),
			p95.Round(time.Millisecond),
			p99.Round(time.Millisecond))
	}
	fmt.Println(strings.Repeat("-", 100))
}

type seedData struct {
	entrepreneurSlug string
	productIDs       []uint
	unitPrices       map[uint]decimal.Decimal
}

// main runs the commerce simulation: customers place orders, the fake
// gateway confirms or declines them over signed webhooks, and the
// entrepreneur withdraws the proceeds
func main() {
	seed, err := startServer()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}

	// Wait for server to start
	time.Sleep(2 * time.Second)

	// Initialize simulation client
	simClient, err := newSimulationClient()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize simulation client")
	}

	// Generate random number of orders to process
	targetOrders := rand.Intn(maxOrders-minOrders) + minOrders
	log.Info().Int("target_orders", targetOrders).Msg("Starting simulation")

	// Channel to collect created orders
	ordersChan := make(chan *types.Order, targetOrders)
	var wg sync.WaitGroup

	// Start worker goroutines
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			createOrdersHTTP(workerID, targetOrders/numWorkers, seed, simClient, ordersChan)
		}(i)
	}

	// Wait for all orders to be created
	wg.Wait()
	close(ordersChan)

	var createdOrders []*types.Order
	for order := range ordersChan {
		createdOrders = append(createdOrders, order)
	}

	log.Info().Int("orders_created", len(createdOrders)).Msg("All orders created")

	stats := struct {
		TotalOrders    int
		PaidOrders     int
		FailedPayments int
		FailedOrders   int
		TotalValue     decimal.Decimal
		Withdrawals    int
		StartTime      time.Time
	}{
		StartTime:  time.Now(),
		TotalValue: decimal.Zero,
	}
	stats.TotalOrders = len(createdOrders)

	// Pay for each order: initiate, then deliver the gateway's webhook
	for _, order := range createdOrders {
		reference, err := simClient.initiatePayment(order.OrderID, "customer@example.com")
		if err != nil {
			log.Error().Err(err).Str("order_id", order.OrderID).Msg("Failed to initiate payment")
			stats.FailedOrders++
			continue
		}

		success := rand.Float64() >= failureRate
		if err := simClient.sendPaystackWebhook(reference, order.TotalAmount, success); err != nil {
			log.Error().Err(err).Str("order_id", order.OrderID).Msg("Failed to deliver webhook")
			stats.FailedOrders++
			continue
		}

		// Every webhook is delivered twice to exercise idempotent
		// reconciliation. The duplicate must be acknowledged and ignored.
		if err := simClient.sendPaystackWebhook(reference, order.TotalAmount, success); err != nil {
			log.Error().Err(err).Str("order_id", order.OrderID).Msg("Failed to redeliver webhook")
		}

		if !success {
			stats.FailedPayments++
			continue
		}

		paid, err := simClient.getOrder(order.OrderID)
		if err != nil {
			log.Error().Err(err).Str("order_id", order.OrderID).Msg("Failed to fetch paid order")
			continue
		}
		if paid.Status != types.OrderStatusPaid {
			log.Error().
				Str("order_id", order.OrderID).
				Str("status", paid.Status).
				Msg("Order not marked paid after successful webhook")
			continue
		}

		stats.PaidOrders++
		stats.TotalValue = stats.TotalValue.Add(paid.TotalAmount)
		log.Info().
			Str("order_id", order.OrderID).
			Str("total", paid.TotalAmount.String()).
			Msg("Order paid")
	}

	// Withdraw the credited earnings in chunks until the wallet runs dry
	summary, err := simClient.walletSummary()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch wallet summary")
	}
	log.Info().Interface("summary", summary).Msg("Wallet before withdrawals")

	for i := 0; i < 5; i++ {
		request, err := simClient.requestWithdrawal(decimal.NewFromInt(int64(rand.Intn(4000) + 1000)))
		if err != nil {
			// Expected once the balance drops below the minimum
			log.Info().Err(err).Msg("Withdrawal rejected")
			break
		}
		stats.Withdrawals++
		log.Info().
			Str("reference_id", request.ReferenceID).
			Str("amount", request.Amount.String()).
			Msg("Withdrawal requested")

		if err := simClient.finalizePayout(request.ReferenceID, true); err != nil {
			log.Error().Err(err).Str("reference_id", request.ReferenceID).Msg("Failed to finalize payout")
		}
	}

	summary, err = simClient.walletSummary()
	if err == nil {
		log.Info().Interface("summary", summary).Msg("Wallet after withdrawals")
	}

	// Print summary
	duration := time.Since(stats.StartTime)
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("COMMERCE SIMULATION SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Printf(`
Order Statistics
----------------
Total Orders:     %d
Paid:             %d
Declined:         %d
Failed:           %d
Withdrawals:      %d
Total Value:      NGN %s
Duration:         %v
`, stats.TotalOrders, stats.PaidOrders, stats.FailedPayments, stats.FailedOrders,
		stats.Withdrawals, stats.TotalValue.StringFixed(2), duration.Round(time.Millisecond))

	fmt.Println("\n" + strings.Repeat("=", 80))

	successRate := float64(stats.PaidOrders) / float64(stats.TotalOrders) * 100
	log.Info().
		Float64("paid_rate", successRate).
		Int("total_orders", stats.TotalOrders).
		Int("paid_orders", stats.PaidOrders).
		Str("total_value", stats.TotalValue.StringFixed(2)).
		Dur("duration", duration).
		Msg("Simulation completed")

	simClient.printPerformanceStats()
}

// createOrdersHTTP generates and submits random orders to the API
// Runs as a worker goroutine, sending created orders to ordersChan
func createOrdersHTTP(workerID, numOrders int, seed *seedData, simClient *simulationClient, ordersChan chan<- *types.Order) {
	for i := 0; i < numOrders; i++ {
		productID := seed.productIDs[rand.Intn(len(seed.productIDs))]
		quantity := rand.Intn(3) + 1

		body := map[string]any{
			"entrepreneur_custom_url": seed.entrepreneurSlug,
			"items": []map[string]any{
				{
					"product_id": productID,
					"quantity":   quantity,
					"unit_price": seed.unitPrices[productID],
				},
			},
			"shipping_address": map[string]any{
				"full_name": fmt.Sprintf("Customer %d", workerID),
				"phone":     "+2348012345678",
				"street":    "1 Marina Road",
				"city":      "Lagos",
				"state":     "Lagos",
			},
		}

		order, err := simClient.createOrder(body)
		if err != nil {
			log.Error().Err(err).
				Int("worker_id", workerID).
				Uint("product_id", productID).
				Msg("Failed to create order")
			continue
		}

		ordersChan <- order
		log.Info().
			Int("worker_id", workerID).
			Str("order_id", order.OrderID).
			Uint("product_id", productID).
			Int("quantity", quantity).
			Str("total", order.TotalAmount.String()).
			Msg("Order created")

		// Random sleep between orders
		time.Sleep(time.Duration(rand.Intn(200)) * time.Millisecond)
	}
}

// startFakeGateway runs a minimal Paystack stand-in so payment
// initiation has something to talk to
func startFakeGateway() {
	gin.SetMode(gin.ReleaseMode)
	gateway := gin.New()
	gateway.POST("/transaction/initialize", func(c *gin.Context) {
		var body struct {
			Reference string `json:"reference"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": false, "message": "invalid payload"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  true,
			"message": "Authorization URL created",
			"data": gin.H{
				"authorization_url": "http://localhost" + gatewayAddr + "/pay/" + body.Reference,
				"reference":         body.Reference,
			},
		})
	})

	go func() {
		if err := gateway.Run(gatewayAddr); err != nil {
			log.Fatal().Err(err).Msg("Fake gateway exited")
		}
	}()
}

// startServer initializes and starts the commerce API server with seeded
// catalog data, returning what the simulation needs to place orders
func startServer() (*seedData, error) {
	// Initialize database
	db, err := database.NewDatabase("file:simulation?mode=memory&cache=shared")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Seed one entrepreneur, one supplier's catalog
	entrepreneur := &types.EntrepreneurProfile{
		UserID:         2001,
		BusinessName:   "Ada's Store",
		CustomURL:      "adas-store",
		CommissionRate: decimal.NewFromFloat(2.5),
		IsActive:       true,
	}
	if err := db.Create(entrepreneur).Error; err != nil {
		return nil, fmt.Errorf("failed to seed entrepreneur: %w", err)
	}

	seed := &seedData{
		entrepreneurSlug: entrepreneur.CustomURL,
		unitPrices:       make(map[uint]decimal.Decimal),
	}

	catalogItems := []struct {
		name      string
		sku       string
		basePrice int64
		unitPrice int64
	}{
		{"Ankara Tote Bag", "SIM-TOTE-001", 2000, 2500},
		{"Beaded Necklace", "SIM-NECK-002", 1500, 2100},
		{"Leather Sandals", "SIM-SAND-003", 4500, 5200},
	}
	for _, item := range catalogItems {
		product := &types.Product{
			Name:          item.name,
			SKU:           item.sku,
			SupplierID:    3001,
			BasePrice:     decimal.NewFromInt(item.basePrice),
			StockQuantity: 500,
			IsActive:      true,
		}
		if err := db.Create(product).Error; err != nil {
			return nil, fmt.Errorf("failed to seed product: %w", err)
		}
		seed.productIDs = append(seed.productIDs, product.ID)
		seed.unitPrices[product.ID] = decimal.NewFromInt(item.unitPrice)
	}

	startFakeGateway()

	// Initialize services
	authService := auth.NewService(jwtSecret)
	authService.RegisterAccount(customerAPIKey, auth.Account{
		APISecret: customerAPISecret,
		UserID:    1001,
		UserType:  auth.RoleCustomer,
	})
	authService.RegisterAccount(entrepreneurAPIKey, auth.Account{
		APISecret:      entrepreneurAPISecret,
		UserID:         entrepreneur.UserID,
		UserType:       auth.RoleEntrepreneur,
		EntrepreneurID: entrepreneur.ID,
	})

	ordersService := orders.NewService(db, decimal.NewFromInt(500))

	paystack := payments.NewPaystackWithBaseURL(paystackSecret, "http://localhost"+gatewayAddr)
	flutterwave := payments.NewFlutterwave("sim-flw-secret", "sim-flw-hash")
	paymentsService := payments.NewService(db, paystack, flutterwave)

	walletService := wallet.NewService(db, wallet.DefaultPolicy())

	// Initialize router
	router := gin.Default()
	authHandlers := auth.NewGinHandlers(authService)
	ordersHandlers := orders.NewGinHandlers(ordersService)
	paymentsHandlers := payments.NewGinHandlers(paymentsService, paystack, flutterwave)
	walletHandlers := wallet.NewGinHandlers(walletService)

	// Setup routes
	setupRoutes(router, authHandlers, ordersHandlers, paymentsHandlers, walletHandlers)

	// Start the server
	go func() {
		if err := router.Run(":8080"); err != nil {
			log.Fatal().Err(err).Msg("Server exited")
		}
	}()

	return seed, nil
}

// setupRoutes configures all API endpoints and their handlers
// Groups routes by functionality and applies appropriate middleware
func setupRoutes(
	router *gin.Engine,
	authHandlers *auth.GinHandlers,
	ordersHandlers *orders.GinHandlers,
	paymentsHandlers *payments.GinHandlers,
	walletHandlers *wallet.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Webhook routes
		webhooks := v1.Group("/webhooks")
		{
			webhooks.POST("/paystack", paymentsHandlers.PaystackWebhookHandler())
			webhooks.POST("/flutterwave", paymentsHandlers.FlutterwaveWebhookHandler())
		}

		// Order routes
		orderGroup := v1.Group("/orders")
		orderGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			orderGroup.POST("", ordersHandlers.CreateOrderHandler())
			orderGroup.GET("/:order_id", ordersHandlers.GetOrderHandler())
			orderGroup.GET("/:order_id/history", ordersHandlers.GetOrderHistoryHandler())
		}

		// Payment routes
		paymentGroup := v1.Group("/payments")
		paymentGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			paymentGroup.POST("/initiate", paymentsHandlers.InitiatePaymentHandler())
			paymentGroup.GET("/:transaction_id", paymentsHandlers.GetTransactionHandler())
		}

		// Wallet routes
		walletGroup := v1.Group("/wallet")
		walletGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			walletGroup.GET("/summary", walletHandlers.SummaryHandler())
			walletGroup.POST("/withdrawals", walletHandlers.RequestWithdrawalHandler())
			walletGroup.GET("/withdrawals", walletHandlers.ListWithdrawalsHandler())
		}

		// Internal routes
		internal := v1.Group("/internal")
		internal.Use(middleware.InternalAuth(internalKey))
		{
			internal.POST("/orders/:order_id/status", ordersHandlers.UpdateStatusHandler())
			internal.POST("/withdrawals/:reference_id/finalize", walletHandlers.FinalizePayoutHandler())
		}
	}
}
