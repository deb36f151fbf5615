// Package main is vendorctl, the operator CLI for settlement accounts:
// onboarding, review actions, COD pincode seeding and service-token
// minting for local development.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"bazaar/internal/config"
	"bazaar/internal/models"
	"bazaar/internal/repositories"
	"bazaar/internal/repositories/cache"
	"bazaar/internal/services/vendor"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	config.LoadEnv()

	if len(os.Args) < 2 {
		usage()
	}

	switch os.Args[1] {
	case "onboard":
		runOnboard(os.Args[2:])
	case "approve":
		runReview(os.Args[2:], "approve")
	case "reject":
		runReview(os.Args[2:], "reject")
	case "suspend":
		runReview(os.Args[2:], "suspend")
	case "list":
		runList(os.Args[2:])
	case "pincodes":
		runPincodes(os.Args[2:])
	case "token":
		runToken(os.Args[2:])
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: vendorctl <command> [flags]

commands:
  onboard   create a vendor settlement account
  approve   verify a vendor account
  reject    reject a vendor account
  suspend   suspend a verified vendor account
  list      list vendor accounts by status
  pincodes  add COD serviceable pincodes
  token     mint a service token for local development`)
	os.Exit(2)
}

func vendorService() vendor.Service {
	db, err := repositories.InitDB()
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}
	return vendor.NewService(repositories.NewVendorRepository(db))
}

func runOnboard(args []string) {
	fs := flag.NewFlagSet("onboard", flag.ExitOnError)
	vendorID := fs.String("vendor", "", "vendor id (required)")
	name := fs.String("name", "", "business name")
	fundAccount := fs.String("fund-account", "", "gateway fund account id (required)")
	commission := fs.Float64("commission", 10, "commission percentage")
	taxID := fs.String("tax-id", "", "legal tax identifier")
	autoPayout := fs.Bool("auto-payout", true, "enable automatic payouts")
	fs.Parse(args)
	if *vendorID == "" || *fundAccount == "" {
		log.Fatal("-vendor and -fund-account are required")
	}

	account, err := vendorService().CreateAccount(context.Background(), vendor.CreateAccountInput{
		VendorID:              *vendorID,
		BusinessName:          *name,
		FundAccountID:         *fundAccount,
		CommissionPercentage:  *commission,
		AutoPayoutEnabled:     *autoPayout,
		WithholdingApplicable: true,
		TaxID:                 *taxID,
	})
	if err != nil {
		log.Fatalf("onboarding failed: %v", err)
	}
	fmt.Printf("created account for %s, status=%s\n", account.VendorID, account.Status)
}

func runReview(args []string, action string) {
	fs := flag.NewFlagSet(action, flag.ExitOnError)
	vendorID := fs.String("vendor", "", "vendor id (required)")
	operator := fs.String("operator", "vendorctl", "acting operator name")
	reason := fs.String("reason", "", "rejection reason")
	fs.Parse(args)
	if *vendorID == "" {
		log.Fatal("-vendor is required")
	}

	svc := vendorService()
	ctx := context.Background()

	var (
		account *models.VendorSettlementAccount
		err     error
	)
	switch action {
	case "approve":
		account, err = svc.Approve(ctx, *vendorID, *operator)
	case "reject":
		if *reason == "" {
			log.Fatal("-reason is required for reject")
		}
		account, err = svc.Reject(ctx, *vendorID, *operator, *reason)
	case "suspend":
		account, err = svc.Suspend(ctx, *vendorID, *operator)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", action, err)
	}
	fmt.Printf("vendor %s is now %s\n", account.VendorID, account.Status)
}

func runList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	status := fs.String("status", "", "filter by status")
	limit := fs.Int("limit", 50, "page size")
	fs.Parse(args)

	accounts, total, err := vendorService().ListByStatus(context.Background(), *status, *limit, 0)
	if err != nil {
		log.Fatalf("list failed: %v", err)
	}
	fmt.Printf("%d account(s)\n", total)
	for _, a := range accounts {
		fmt.Printf("  %-20s %-12s commission=%.2f%% fund_account=%s\n",
			a.VendorID, a.Status, a.CommissionPercentage, a.FundAccountID)
	}
}

func runPincodes(args []string) {
	fs := flag.NewFlagSet("pincodes", flag.ExitOnError)
	fs.Parse(args)
	pincodes := fs.Args()
	if len(pincodes) == 0 {
		log.Fatal("usage: vendorctl pincodes <pincode>...")
	}

	client := cache.NewRedisClient(&cache.RedisConfig{
		Host:     config.GetEnv("REDIS_HOST", "localhost"),
		Port:     config.GetEnv("REDIS_PORT", "6379"),
		Password: config.GetEnv("REDIS_PASSWORD", ""),
		DB:       config.GetIntEnv("REDIS_DB", 0),
	})
	store := cache.NewRedisStore(client)
	defer store.Close()

	if err := store.SAdd(context.Background(), cache.CODPincodeSetKey, pincodes...); err != nil {
		log.Fatalf("failed to add pincodes: %v", err)
	}
	fmt.Printf("added %d pincode(s)\n", len(pincodes))
}

func runToken(args []string) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	subject := fs.String("subject", "dev", "token subject")
	role := fs.String("role", models.RoleOperator, "operator or service")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	fs.Parse(args)

	claims := models.ServiceClaims{
		Subject: *subject,
		Role:    *role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(*ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(config.GetEnv("SERVICE_TOKEN_SECRET", "bazaar-dev-secret")))
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}
	fmt.Println(signed)
}
