package models

import (
	"time"

	"bitbucket.org/lawdesk/crm_backend/utils"
)

type Identifier interface {
	GetId() int
}

// interface for dataloader result
type Data interface {
	Identifier
	GetDefault(int) Data
}

// key
func (e Employee) GetId() int {
	return e.ID
}

// placeholder for a dangling FK so one bad row never fails the whole batch
func (e Employee) GetDefault(id int) Data {
	return Employee{
		ID:        id,
		IsActive:  utils.NewFalse(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func (c Category) GetId() int {
	return c.ID
}

func (c Category) GetDefault(id int) Data {
	return Category{
		ID:        id,
		IsActive:  utils.NewFalse(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func (m MainCategory) GetId() int {
	return m.ID
}

func (m MainCategory) GetDefault(id int) Data {
	return MainCategory{
		ID:        id,
		IsActive:  utils.NewFalse(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func (c Currency) GetId() int {
	return c.ID
}

func (c Currency) GetDefault(id int) Data {
	return Currency{
		ID:        id,
		IsoCode:   BaseCurrencyKey,
		Symbol:    BaseCurrencySymbol,
		IsActive:  utils.NewFalse(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func (l Language) GetId() int {
	return l.ID
}

func (l Language) GetDefault(id int) Data {
	return Language{
		ID:        id,
		IsActive:  utils.NewFalse(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}
