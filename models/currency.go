package models

import (
	"context"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/lawdesk/crm_backend/config"
	"bitbucket.org/lawdesk/crm_backend/utils"
	"github.com/shopspring/decimal"
)

// BaseCurrencyKey is the firm's reporting currency. All report totals are
// converted into it.
const BaseCurrencyKey = "NIS"
const BaseCurrencySymbol = "₪"

type Currency struct {
	ID        int       `gorm:"primary_key" json:"id"`
	IsoCode   string    `gorm:"index;size:3;not null" json:"iso_code" binding:"required"`
	Symbol    string    `gorm:"size:3;not null" json:"symbol" binding:"required"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCurrency struct {
	IsoCode string `json:"iso_code" binding:"required"`
	Symbol  string `json:"symbol" binding:"required"`
	Name    string `json:"name" binding:"required"`
}

// CurrencyInfo is the normalized result of resolving whatever currency
// representation a lead row happens to carry.
type CurrencyInfo struct {
	DisplaySymbol string `json:"display_symbol"`
	ConversionKey string `json:"conversion_key"`
}

// CurrencyRef is the nested shape some joined queries return.
type CurrencyRef struct {
	IsoCode string `json:"iso_code"`
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
}

// The lead tables reference currencies by the ids below; the registry is
// part of the backend schema contract, same as the stage codes. Rows created
// through the currency admin endpoints are registry metadata (display names,
// FX-table FKs) — extending what lead rows may carry means extending these
// maps together with the schema.
var currencyIsoById = map[int]string{
	1: "NIS",
	2: "USD",
	3: "EUR",
	4: "GBP",
}

var currencySymbolByIso = map[string]string{
	"NIS": "₪",
	"ILS": "₪",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

var currencyIsoBySymbol = map[string]string{
	"₪": "NIS",
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
}

var currencyIsoByName = map[string]string{
	"shekel":     "NIS",
	"new shekel": "NIS",
	"dollar":     "USD",
	"euro":       "EUR",
	"pound":      "GBP",
}

func nisInfo() CurrencyInfo {
	return CurrencyInfo{DisplaySymbol: BaseCurrencySymbol, ConversionKey: BaseCurrencyKey}
}

func infoForIso(iso string) (CurrencyInfo, bool) {
	symbol, ok := currencySymbolByIso[iso]
	if !ok {
		return CurrencyInfo{}, false
	}
	key := iso
	if key == "ILS" {
		key = "NIS"
	}
	return CurrencyInfo{DisplaySymbol: symbol, ConversionKey: key}, true
}

func infoForId(id int) (CurrencyInfo, bool) {
	iso, ok := currencyIsoById[id]
	if !ok {
		return CurrencyInfo{}, false
	}
	return infoForIso(iso)
}

// ResolveCurrency walks a prioritized list of raw currency representations
// (numeric id, ISO-3 code, single-character symbol, or a joined CurrencyRef)
// and returns the first one that resolves. Numeric strings are treated as
// currency ids before codes: the legacy table stores ids as text in places.
// Defaults to NIS when nothing resolves.
func ResolveCurrency(candidates ...any) CurrencyInfo {
	for _, candidate := range candidates {
		if info, ok := resolveOneCurrency(candidate); ok {
			return info
		}
	}
	return nisInfo()
}

func resolveOneCurrency(candidate any) (CurrencyInfo, bool) {
	switch v := candidate.(type) {
	case nil:
		return CurrencyInfo{}, false
	case int:
		return infoForId(v)
	case int64:
		return infoForId(int(v))
	case float64:
		return infoForId(int(v))
	case *int:
		if v == nil {
			return CurrencyInfo{}, false
		}
		return infoForId(*v)
	case string:
		return resolveCurrencyString(v)
	case *string:
		if v == nil {
			return CurrencyInfo{}, false
		}
		return resolveCurrencyString(*v)
	case CurrencyRef:
		return resolveCurrencyRef(v)
	case *CurrencyRef:
		if v == nil {
			return CurrencyInfo{}, false
		}
		return resolveCurrencyRef(*v)
	case map[string]any:
		return resolveCurrencyRef(CurrencyRef{
			IsoCode: stringField(v, "iso_code"),
			Symbol:  stringField(v, "symbol"),
			Name:    stringField(v, "name"),
		})
	}
	return CurrencyInfo{}, false
}

func resolveCurrencyString(raw string) (CurrencyInfo, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "---" {
		// the legacy form's "no currency" sentinel
		return CurrencyInfo{}, false
	}
	// numeric strings are currency ids first
	if id, err := strconv.Atoi(s); err == nil {
		return infoForId(id)
	}
	if len([]rune(s)) == 1 {
		if iso, ok := currencyIsoBySymbol[s]; ok {
			return infoForIso(iso)
		}
		return CurrencyInfo{}, false
	}
	if info, ok := infoForIso(strings.ToUpper(s)); ok {
		return info, true
	}
	if iso, ok := currencyIsoByName[strings.ToLower(s)]; ok {
		return infoForIso(iso)
	}
	return CurrencyInfo{}, false
}

func resolveCurrencyRef(ref CurrencyRef) (CurrencyInfo, bool) {
	if info, ok := resolveCurrencyString(ref.IsoCode); ok {
		return info, true
	}
	if info, ok := resolveCurrencyString(ref.Symbol); ok {
		return info, true
	}
	return resolveCurrencyString(ref.Name)
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// ConvertToBase converts an amount to the reporting currency using the given
// rate table (conversion key -> units of NIS per unit). An unresolvable key
// must never abort a report: the amount is returned unchanged and a warning
// is logged.
func ConvertToBase(amount decimal.Decimal, conversionKey string, rates map[string]decimal.Decimal) decimal.Decimal {
	if conversionKey == BaseCurrencyKey || conversionKey == "" {
		return amount
	}
	rate, ok := rates[conversionKey]
	if !ok || rate.IsZero() {
		config.LogWarn(config.GetLogger(), "currency.go", "ConvertToBase",
			"no exchange rate; amount left unconverted", conversionKey)
		return amount
	}
	return amount.Mul(rate)
}

func CreateCurrency(ctx context.Context, input *NewCurrency) (*Currency, error) {

	if err := utils.ValidateUnique[Currency](ctx, "iso_code", input.IsoCode, 0); err != nil {
		return nil, err
	}

	currency := Currency{
		IsoCode:  strings.ToUpper(input.IsoCode),
		Symbol:   input.Symbol,
		Name:     input.Name,
		IsActive: utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&currency).Error
	if err != nil {
		return nil, err
	}
	return &currency, nil
}

func GetCurrency(ctx context.Context, id int) (*Currency, error) {
	return utils.FetchSingleModel[Currency](ctx, id)
}

func GetCurrencies(ctx context.Context) ([]*Currency, error) {
	return utils.FetchAllModels[Currency](ctx, "id")
}
