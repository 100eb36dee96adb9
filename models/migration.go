package models

import (
	"log"

	"bitbucket.org/lawdesk/crm_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Currency{}, &CurrencyExchange{},
		&MainCategory{}, &Category{}, &Language{},
		&Employee{},
		&LegacyLead{}, &Lead{}, &StageTransition{},
		&PaymentPlan{}, &PaymentPlanRow{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
