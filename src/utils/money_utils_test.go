package utils

import "testing"

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"plain integer", "500", 500},
		{"grouped thousands", "1.234", 1234},
		{"grouped with decimals", "1.234,56", 1234.56},
		{"decimals only", "0,75", 0.75},
		{"large amount", "2.450.000", 2450000},
		{"negative", "-1.000,50", -1000.50},
		{"surrounding whitespace", " 150,00 ", 150},
		{"empty", "", 0},
		{"garbage", "abc", 0},
		{"mixed garbage", "12x4", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseMoney(tt.input); got != tt.want {
				t.Errorf("ParseMoney(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestToMoney(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  string
	}{
		{"zero", 0, "0,00"},
		{"small", 5, "5,00"},
		{"thousands", 1234.56, "1.234,56"},
		{"millions", 2450000, "2.450.000,00"},
		{"rounding up", 10.005, "10,01"},
		{"negative", -1000.5, "-1.000,50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToMoney(tt.input); got != tt.want {
				t.Errorf("ToMoney(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMoneyRoundTrip(t *testing.T) {
	for _, n := range []float64{0, 1, 999.99, 1234.56, 2450000, -42.5} {
		if got := ParseMoney(ToMoney(n)); got != n {
			t.Errorf("ParseMoney(ToMoney(%v)) = %v", n, got)
		}
	}
}
