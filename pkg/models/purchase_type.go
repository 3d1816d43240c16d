package models

import (
	"fmt"
	"strings"
)

type PurchaseType string

const (
	PurchaseTypePurchase PurchaseType = "purchase"
	PurchaseTypeLeased   PurchaseType = "leased"
)

// PurchaseTypes lists every value the purchase_type column accepts.
var PurchaseTypes = []PurchaseType{PurchaseTypePurchase, PurchaseTypeLeased}

func (p PurchaseType) IsValid() bool {
	switch p {
	case PurchaseTypePurchase, PurchaseTypeLeased:
		return true
	default:
		return false
	}
}

func NewPurchaseType(value string) (PurchaseType, error) {
	purchaseType := PurchaseType(strings.ToLower(strings.TrimSpace(value)))
	if !purchaseType.IsValid() {
		return "", fmt.Errorf("invalid purchase type: %q", value)
	}

	return purchaseType, nil
}
