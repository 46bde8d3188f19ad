package main

import (
	"fmt"
	"log"

	"github.com/cotuzatours/booking-backend/internal/utils"
)

func main() {
	fmt.Println("===========================================")
	fmt.Println("Reference Secret Generator for Cotuza Tours")
	fmt.Println("===========================================")
	fmt.Println()

	referenceSecret, err := utils.GenerateReferenceSecret()
	if err != nil {
		log.Fatalf("Failed to generate secrets: %v", err)
	}

	fmt.Println("✅ Secret generated successfully!")
	fmt.Println()
	fmt.Println("Add this to your .env file or deployment secrets:")
	fmt.Println()
	fmt.Printf("REFERENCE_SECRET=%s\n", referenceSecret)
	fmt.Println()
	fmt.Println("⚠️  IMPORTANT: Rotating this secret invalidates every payment link still open.")
	fmt.Println("⚠️  Keep it safe and never commit it to version control!")
	fmt.Println("===========================================")
}
