package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/lawdesk/crm_backend/config"
	"bitbucket.org/lawdesk/crm_backend/utils"
	"github.com/shopspring/decimal"
)

// CurrencyExchange stores daily FX rates into NIS, one row per currency per
// posting. The latest row per currency wins for report conversion.
type CurrencyExchange struct {
	ID                int             `gorm:"primary_key" json:"id"`
	ForeignCurrencyId int             `gorm:"index;not null" json:"foreign_currency_id" binding:"required"`
	ExchangeDate      time.Time       `gorm:"index;not null" json:"exchange_date" binding:"required"`
	ExchangeRate      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"exchange_rate"`
	Notes             string          `gorm:"size:255" json:"notes"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCurrencyExchange struct {
	ForeignCurrencyId int             `json:"foreign_currency_id" binding:"required"`
	ExchangeDate      time.Time       `json:"exchange_date" binding:"required"`
	ExchangeRate      decimal.Decimal `json:"exchange_rate" binding:"required"`
	Notes             string          `json:"notes"`
}

func (input *NewCurrencyExchange) validate(ctx context.Context) error {
	if err := utils.ValidateResourceId[Currency](ctx, input.ForeignCurrencyId); err != nil {
		return errors.New("ForeignCurrencyId not found")
	}
	if input.ExchangeRate.LessThanOrEqual(decimal.Zero) {
		return errors.New("exchange rate must be positive")
	}
	return nil
}

func CreateCurrencyExchange(ctx context.Context, input *NewCurrencyExchange) (*CurrencyExchange, error) {

	db := config.GetDB()

	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	exchange := CurrencyExchange{
		ExchangeDate:      input.ExchangeDate,
		ForeignCurrencyId: input.ForeignCurrencyId,
		ExchangeRate:      input.ExchangeRate,
		Notes:             input.Notes,
	}

	err := db.WithContext(ctx).Create(&exchange).Error
	if err != nil {
		return nil, err
	}
	return &exchange, nil
}

func GetCurrencyExchanges(ctx context.Context, foreignCurrencyId *int) ([]*CurrencyExchange, error) {

	db := config.GetDB()

	hasCurrencyFilter := foreignCurrencyId != nil && *foreignCurrencyId > 0
	sql, err := utils.ExecTemplate(`
SELECT *
FROM currency_exchanges
{{if .hasCurrencyFilter}}WHERE foreign_currency_id = @currencyId{{end}}
ORDER BY exchange_date desc, foreign_currency_id
`, map[string]interface{}{
		"hasCurrencyFilter": hasCurrencyFilter,
	})
	if err != nil {
		return nil, err
	}

	var results []*CurrencyExchange
	dbCtx := db.WithContext(ctx)
	if hasCurrencyFilter {
		err = dbCtx.Raw(sql, map[string]interface{}{"currencyId": *foreignCurrencyId}).Scan(&results).Error
	} else {
		err = dbCtx.Raw(sql).Scan(&results).Error
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

// FetchLatestRates loads the most recent rate per currency, keyed by the
// currency's ISO code from the currencies table (so an admin-created currency
// gets its rates keyed without a code change). Loaded once per report build
// and passed down explicitly.
func FetchLatestRates(ctx context.Context) (map[string]decimal.Decimal, error) {

	sql := `
SELECT c.iso_code, ce.exchange_rate
FROM currency_exchanges ce
INNER JOIN currencies c ON c.id = ce.foreign_currency_id
INNER JOIN (
    SELECT foreign_currency_id, MAX(exchange_date) AS latest_date
    FROM currency_exchanges
    GROUP BY foreign_currency_id
) latest ON latest.foreign_currency_id = ce.foreign_currency_id
        AND latest.latest_date = ce.exchange_date
`

	type rateRow struct {
		IsoCode      string
		ExchangeRate decimal.Decimal
	}
	var rows []rateRow
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql).Scan(&rows).Error; err != nil {
		return nil, err
	}

	rates := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		iso := strings.ToUpper(strings.TrimSpace(row.IsoCode))
		if iso == "" {
			continue
		}
		if iso == "ILS" {
			iso = "NIS"
		}
		rates[iso] = row.ExchangeRate
	}
	return rates, nil
}
