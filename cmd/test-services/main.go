package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cotuzatours/booking-backend/internal/config"
	"github.com/cotuzatours/booking-backend/internal/database"
	"github.com/cotuzatours/booking-backend/internal/models"
	"github.com/cotuzatours/booking-backend/internal/services"
	"github.com/cotuzatours/booking-backend/pkg/reference"
)

func main() {
	var createLink bool
	var transactionID string
	flag.BoolVar(&createLink, "create-link", false, "create a real payment link for the first tour")
	flag.StringVar(&transactionID, "transaction", "", "look up a provider transaction")
	flag.Parse()

	fmt.Println("🧪 Cotuza Tours Services Integration Test")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// Connect to database
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("❌ Failed to ping database: %v", err)
	}

	fmt.Println("✅ Database connected")
	fmt.Println("✅ Configuration loaded")
	fmt.Println()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	// Test 1: Catalog and pricing
	tour := testCatalog(cfg)

	// Test 2: Reference codec
	testReference(cfg, tour)

	// Test 3: Wompi gateway
	wompi := services.NewWompiService(&cfg.Wompi, nil, logger)
	testGateway(ctx, wompi, cfg, tour, createLink, transactionID)

	fmt.Println()
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("✅ All integration tests completed")
}

func samplePriced(cfg *config.Config, tour *models.Tour) *models.PricedIntent {
	intent := models.BookingIntent{
		TourID: tour.ID,
		Date:   time.Now().AddDate(0, 0, 14).Format("2006-01-02"),
		People: 2,
		Name:   "Prueba Integración",
		Email:  "pruebas@example.com",
	}
	amount := services.NewPricingService(cfg.Pricing).Quote(tour, &intent)
	return &models.PricedIntent{Intent: intent, Amount: amount}
}

func testCatalog(cfg *config.Config) *models.Tour {
	fmt.Println("🗺️  Testing Tour Catalog")
	fmt.Println("----------------------------")

	catalog, err := database.NewTourCatalog(cfg.Catalog.Path)
	if err != nil {
		log.Fatalf("❌ Failed to load catalog %s: %v", cfg.Catalog.Path, err)
	}

	tours := catalog.ListTours()
	if len(tours) == 0 {
		log.Fatalf("❌ Catalog %s has no tours", cfg.Catalog.Path)
	}

	pricing := services.NewPricingService(cfg.Pricing)
	for _, t := range tours {
		tour := t
		fmt.Printf("  #%d %-30s single %s, group %s\n",
			tour.ID, tour.Name, tour.Price.StringFixed(2), pricing.GroupRate(&tour).StringFixed(2))
	}

	fmt.Printf("✅ %d tours loaded (pricing mode %s)\n\n", len(tours), cfg.Pricing.Mode)
	return &tours[0]
}

func testReference(cfg *config.Config, tour *models.Tour) {
	fmt.Println("🔏 Testing Payment Reference")
	fmt.Println("----------------------------")

	codec, err := reference.NewCodec(cfg.Checkout.ReferenceSecret)
	if err != nil {
		log.Fatalf("❌ Failed to create codec: %v", err)
	}

	priced := samplePriced(cfg, tour)
	ref, err := codec.Encode(priced, cfg.Wompi.Currency)
	if err != nil {
		log.Fatalf("❌ Failed to encode reference: %v", err)
	}

	decoded, currency, err := codec.Decode(ref)
	if err != nil {
		log.Fatalf("❌ Failed to decode reference: %v", err)
	}

	if decoded.Intent != priced.Intent || !decoded.Amount.Equal(priced.Amount) || currency != cfg.Wompi.Currency {
		log.Fatalf("❌ Reference round trip changed the intent")
	}

	fmt.Printf("✅ Reference round trip OK (%d characters)\n\n", len(ref))
}

func testGateway(ctx context.Context, wompi *services.WompiService, cfg *config.Config, tour *models.Tour, createLink bool, transactionID string) {
	fmt.Println("💳 Testing Wompi Gateway")
	fmt.Println("----------------------------")

	if _, err := wompi.Authenticate(ctx); err != nil {
		fmt.Printf("❌ Authentication failed: %v\n", err)
		return
	}
	fmt.Println("✅ Access token obtained")

	if createLink {
		codec, err := reference.NewCodec(cfg.Checkout.ReferenceSecret)
		if err != nil {
			log.Fatalf("❌ Failed to create codec: %v", err)
		}
		priced := samplePriced(cfg, tour)
		ref, err := codec.Encode(priced, cfg.Wompi.Currency)
		if err != nil {
			log.Fatalf("❌ Failed to encode reference: %v", err)
		}

		link, err := wompi.CreateLink(ctx, &services.CreateLinkParams{
			ProductName: cfg.Checkout.ProductName,
			Amount:      priced.Amount,
			Currency:    cfg.Wompi.Currency,
			Reference:   ref,
			Description: fmt.Sprintf("Prueba - %s", tour.Name),
			Expiry:      30 * time.Minute,
			RedirectURL: cfg.Wompi.RedirectURL,
		})
		if err != nil {
			fmt.Printf("❌ Link creation failed: %v\n", err)
		} else {
			fmt.Printf("✅ Link %s created: %s\n", link.ID, link.URL)
		}
	}

	if transactionID != "" {
		tx, err := wompi.GetTransaction(ctx, transactionID)
		if err != nil {
			fmt.Printf("❌ Transaction lookup failed: %v\n", err)
			return
		}
		fmt.Printf("✅ Transaction %s: %s\n", tx.ID, tx.Status)
	}
}
