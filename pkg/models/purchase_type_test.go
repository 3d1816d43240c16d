package models

import "testing"

func TestPurchaseTypeIsValid(t *testing.T) {
	tests := []struct {
		name     string
		value    PurchaseType
		expected bool
	}{
		{"purchase", PurchaseTypePurchase, true},
		{"leased", PurchaseTypeLeased, true},
		{"rented", PurchaseType("rented"), false},
		{"empty", PurchaseType(""), false},
		{"uppercase is not canonical", PurchaseType("LEASED"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.IsValid(); got != tt.expected {
				t.Errorf("IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestNewPurchaseType(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    PurchaseType
		wantErr bool
	}{
		{"exact", "purchase", PurchaseTypePurchase, false},
		{"mixed case with spaces", "  Leased ", PurchaseTypeLeased, false},
		{"unknown", "loan", "", true},
		{"blank", "   ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewPurchaseType(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewPurchaseType() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("NewPurchaseType() = %v, want %v", got, tt.want)
			}
		})
	}
}
