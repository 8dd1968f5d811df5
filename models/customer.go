package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/retail_ledger/config"
	"bitbucket.org/mmdatafocus/retail_ledger/utils"
)

type Customer struct {
	ID             int       `gorm:"primary_key" json:"id"`
	Name           string    `gorm:"size:191;not null;uniqueIndex" json:"name"`
	PrimaryPhone   *string   `gorm:"size:25" json:"primary_phone"`
	SecondaryPhone *string   `gorm:"size:25" json:"secondary_phone"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created"`
}

type NewCustomer struct {
	Name           string  `json:"name" binding:"required,max=191"`
	PrimaryPhone   *string `json:"primary_phone"`
	SecondaryPhone *string `json:"secondary_phone"`
}

func (input *NewCustomer) validate() error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidField)
	}
	var err error
	if input.PrimaryPhone, err = normalizePhone(input.PrimaryPhone); err != nil {
		return err
	}
	if input.SecondaryPhone, err = normalizePhone(input.SecondaryPhone); err != nil {
		return err
	}
	return nil
}

func CreateCustomer(ctx context.Context, input *NewCustomer) (*Customer, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	customer := Customer{
		Name:           input.Name,
		PrimaryPhone:   input.PrimaryPhone,
		SecondaryPhone: input.SecondaryPhone,
	}
	if err := config.GetDB().WithContext(ctx).Create(&customer).Error; err != nil {
		return nil, translateDbError(err, nil)
	}
	return &customer, nil
}

func UpdateCustomer(ctx context.Context, id int, input *NewCustomer) (*Customer, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	db := config.GetDB()
	customer, err := utils.FetchSingleModel[Customer](ctx, db, id)
	if err != nil {
		return nil, translateDbError(err, ErrCustomerNotFound)
	}
	customer.Name = input.Name
	customer.PrimaryPhone = input.PrimaryPhone
	customer.SecondaryPhone = input.SecondaryPhone
	if err := db.WithContext(ctx).Save(customer).Error; err != nil {
		return nil, translateDbError(err, nil)
	}
	invalidateReports(ctx)
	return customer, nil
}

func DeleteCustomer(ctx context.Context, id int) (*Customer, error) {
	db := config.GetDB()
	customer, err := utils.FetchSingleModel[Customer](ctx, db, id)
	if err != nil {
		return nil, translateDbError(err, ErrCustomerNotFound)
	}
	// don't delete if customer has invoices
	count, err := utils.ResourceCountWhere[Invoice](ctx, db, "customer_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: customer has invoices", ErrReferenceProtected)
	}
	if err := db.WithContext(ctx).Delete(customer).Error; err != nil {
		return nil, err
	}
	return customer, nil
}

func GetCustomer(ctx context.Context, id int) (*Customer, error) {
	customer, err := utils.FetchSingleModel[Customer](ctx, config.GetDB(), id)
	if err != nil {
		return nil, translateDbError(err, ErrCustomerNotFound)
	}
	return customer, nil
}

func ListCustomers(ctx context.Context, name *string) ([]*Customer, error) {
	var results []*Customer
	dbCtx := config.GetDB().WithContext(ctx)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("LOWER(name) LIKE ?", likePrefix(*name))
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
