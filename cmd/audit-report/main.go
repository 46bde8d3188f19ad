package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/cotuzatours/booking-backend/internal/config"
	"github.com/cotuzatours/booking-backend/internal/database"
	"github.com/cotuzatours/booking-backend/internal/models"
)

func main() {
	var transactionID string
	var limit int
	flag.StringVar(&transactionID, "transaction", "", "show the payment trail of one provider transaction")
	flag.IntVar(&limit, "mismatches", 20, "number of recent amount mismatches to list")
	flag.Parse()

	fmt.Println("=== Payment Audit Report ===")
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	fmt.Println("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	fmt.Println("✅ Database connected")
	fmt.Println()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	repo := database.NewPaymentAuditRepository(db, logger)

	if transactionID != "" {
		audits, err := repo.GetByTransactionID(ctx, transactionID)
		if err != nil {
			log.Fatalf("❌ FAILED: %v", err)
		}
		fmt.Printf("Transaction %s: %d events\n", transactionID, len(audits))
		printAudits(audits)
		fmt.Println()

		bookings := database.NewBookingRepository(db)
		booking, err := bookings.GetByTransactionID(ctx, transactionID)
		switch {
		case err != nil:
			fmt.Printf("❌ FAILED to look up booking: %v\n", err)
		case booking == nil:
			fmt.Println("No booking stored for this transaction")
		default:
			fmt.Printf("✅ Booking #%d: tour %d on %s, %d people, %s\n",
				booking.ID, booking.TourID, booking.Date, booking.People, booking.Amount.StringFixed(2))
		}
		fmt.Println()
	}

	mismatches, err := repo.GetAmountMismatches(ctx, limit)
	if err != nil {
		log.Fatalf("❌ FAILED to query mismatches: %v", err)
	}
	fmt.Printf("Recent amount mismatches: %d\n", len(mismatches))
	printAudits(mismatches)

	fmt.Println()
	fmt.Println("=== Report Complete ===")
}

func printAudits(audits []*models.PaymentAudit) {
	if len(audits) == 0 {
		return
	}
	fmt.Println("----------------------------------------------")
	for _, a := range audits {
		fmt.Printf("- %s | %s | %s | tx=%s expected=%s received=%s\n",
			a.CreatedAt.Format(time.RFC3339),
			a.EventType,
			a.EventSource,
			deref(a.TransactionID),
			amount(a.ExpectedAmount),
			amount(a.ReceivedAmount),
		)
		if a.ErrorMessage != nil {
			fmt.Printf("    error: %s\n", *a.ErrorMessage)
		}
	}
	fmt.Println("----------------------------------------------")
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func amount(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.StringFixed(2)
}
