package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestResolveCurrencyEquivalence(t *testing.T) {
	// the same currency arriving as a code, a ref, or a map must resolve
	// identically
	want := CurrencyInfo{DisplaySymbol: "€", ConversionKey: "EUR"}

	cases := []struct {
		name      string
		candidate any
	}{
		{"iso code", "EUR"},
		{"lowercase iso code", "eur"},
		{"symbol", "€"},
		{"ref with iso", CurrencyRef{IsoCode: "EUR"}},
		{"ref with symbol only", CurrencyRef{Symbol: "€"}},
		{"ref with name only", CurrencyRef{Name: "euro"}},
		{"map shape", map[string]any{"iso_code": "EUR"}},
		{"numeric id", 3},
		{"numeric id string", "3"},
	}
	for _, tc := range cases {
		got := ResolveCurrency(tc.candidate)
		if got != want {
			t.Fatalf("%s: got %+v, want %+v", tc.name, got, want)
		}
	}
}

func TestResolveCurrencyPriorityAndFallback(t *testing.T) {
	// first resolvable candidate wins
	got := ResolveCurrency(nil, "", "---", "USD", "EUR")
	if got.ConversionKey != "USD" {
		t.Fatalf("expected USD to win, got %+v", got)
	}

	// nothing resolvable defaults to the base currency
	got = ResolveCurrency("", "---", "no-such-currency")
	if got.ConversionKey != BaseCurrencyKey || got.DisplaySymbol != BaseCurrencySymbol {
		t.Fatalf("expected NIS default, got %+v", got)
	}

	// empty call defaults too
	got = ResolveCurrency()
	if got.ConversionKey != BaseCurrencyKey {
		t.Fatalf("expected NIS default for empty call, got %+v", got)
	}
}

func TestResolveCurrencyNumericStringIsIdFirst(t *testing.T) {
	// "1" is currency id 1 (NIS), never a code
	got := ResolveCurrency("1")
	if got.ConversionKey != "NIS" {
		t.Fatalf("numeric string should resolve as id: got %+v", got)
	}

	// unknown ids fall through to later candidates
	got = ResolveCurrency("99", "GBP")
	if got.ConversionKey != "GBP" {
		t.Fatalf("unknown id should fall through: got %+v", got)
	}
}

func TestResolveCurrencyIlsAliasesToNis(t *testing.T) {
	got := ResolveCurrency("ILS")
	if got.ConversionKey != "NIS" || got.DisplaySymbol != "₪" {
		t.Fatalf("ILS should normalize to NIS: got %+v", got)
	}
}

func TestConvertToBase(t *testing.T) {
	rates := map[string]decimal.Decimal{
		"USD": decimal.NewFromFloat(3.7),
	}

	amount := decimal.NewFromInt(100)

	got := ConvertToBase(amount, "USD", rates)
	if !got.Equal(decimal.NewFromInt(370)) {
		t.Fatalf("USD conversion: got %s", got)
	}

	// base currency passes through
	got = ConvertToBase(amount, "NIS", rates)
	if !got.Equal(amount) {
		t.Fatalf("NIS should pass through: got %s", got)
	}

	// missing key never errors, amount unchanged
	got = ConvertToBase(amount, "EUR", rates)
	if !got.Equal(amount) {
		t.Fatalf("missing rate should pass through: got %s", got)
	}

	// zero rate treated as missing
	got = ConvertToBase(amount, "GBP", map[string]decimal.Decimal{"GBP": decimal.Zero})
	if !got.Equal(amount) {
		t.Fatalf("zero rate should pass through: got %s", got)
	}
}
