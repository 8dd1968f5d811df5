package models

import (
	"context"
	"fmt"
	"strings"

	"bitbucket.org/mmdatafocus/retail_ledger/config"
	"bitbucket.org/mmdatafocus/retail_ledger/utils"
)

// Supplier is unique on (company, agent).
type Supplier struct {
	ID      int     `gorm:"primary_key" json:"id"`
	Company string  `gorm:"size:191;not null;uniqueIndex:idx_supplier_company_agent" json:"company"`
	Agent   *string `gorm:"size:191;uniqueIndex:idx_supplier_company_agent" json:"agent"`
	Email   *string `gorm:"size:191" json:"email"`
	Phone   *string `gorm:"size:25" json:"phone"`
	Address *string `gorm:"type:text" json:"address"`
}

type NewSupplier struct {
	Company string  `json:"company" binding:"required,max=191"`
	Agent   *string `json:"agent"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

func (input *NewSupplier) validate(ctx context.Context, id int) error {
	input.Company = strings.TrimSpace(input.Company)
	if input.Company == "" {
		return fmt.Errorf("%w: company is required", ErrInvalidField)
	}
	input.Agent = blankToNil(input.Agent)
	input.Email = blankToNil(input.Email)
	if input.Email != nil && !utils.IsValidEmail(*input.Email) {
		return fmt.Errorf("%w: email %q", ErrInvalidField, *input.Email)
	}
	phone, err := normalizePhone(input.Phone)
	if err != nil {
		return err
	}
	input.Phone = phone

	q := config.GetDB().WithContext(ctx).Model(&Supplier{}).Where("company = ?", input.Company)
	q = whereNullable(q, "agent", input.Agent)
	if id > 0 {
		q = q.Where("id <> ?", id)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: supplier %q", ErrConflict, input.Company)
	}
	return nil
}

// normalizePhone validates an optional phone number; blank becomes nil.
func normalizePhone(phone *string) (*string, error) {
	if phone == nil || strings.TrimSpace(*phone) == "" {
		return nil, nil
	}
	e164, err := utils.ValidatePhoneNumber(strings.TrimSpace(*phone), config.PhoneCountryCode())
	if err != nil {
		return nil, fmt.Errorf("%w: phone %q: %v", ErrInvalidField, *phone, err)
	}
	return &e164, nil
}

func CreateSupplier(ctx context.Context, input *NewSupplier) (*Supplier, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}
	supplier := Supplier{
		Company: input.Company,
		Agent:   input.Agent,
		Email:   input.Email,
		Phone:   input.Phone,
		Address: input.Address,
	}
	if err := config.GetDB().WithContext(ctx).Create(&supplier).Error; err != nil {
		return nil, translateDbError(err, nil)
	}
	return &supplier, nil
}

func UpdateSupplier(ctx context.Context, id int, input *NewSupplier) (*Supplier, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}
	db := config.GetDB()
	supplier, err := utils.FetchSingleModel[Supplier](ctx, db, id)
	if err != nil {
		return nil, translateDbError(err, ErrSupplierNotFound)
	}
	supplier.Company = input.Company
	supplier.Agent = input.Agent
	supplier.Email = input.Email
	supplier.Phone = input.Phone
	supplier.Address = input.Address
	if err := db.WithContext(ctx).Save(supplier).Error; err != nil {
		return nil, translateDbError(err, nil)
	}
	invalidateReports(ctx)
	return supplier, nil
}

func DeleteSupplier(ctx context.Context, id int) (*Supplier, error) {
	db := config.GetDB()
	supplier, err := utils.FetchSingleModel[Supplier](ctx, db, id)
	if err != nil {
		return nil, translateDbError(err, ErrSupplierNotFound)
	}
	count, err := utils.ResourceCountWhere[Product](ctx, db, "supplier_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: used by product", ErrReferenceProtected)
	}
	if err := db.WithContext(ctx).Delete(supplier).Error; err != nil {
		return nil, err
	}
	return supplier, nil
}

func GetSupplier(ctx context.Context, id int) (*Supplier, error) {
	supplier, err := utils.FetchSingleModel[Supplier](ctx, config.GetDB(), id)
	if err != nil {
		return nil, translateDbError(err, ErrSupplierNotFound)
	}
	return supplier, nil
}

func ListSuppliers(ctx context.Context, company *string) ([]*Supplier, error) {
	var results []*Supplier
	dbCtx := config.GetDB().WithContext(ctx)
	if company != nil && len(*company) > 0 {
		dbCtx = dbCtx.Where("LOWER(company) LIKE ?", likePrefix(*company))
	}
	if err := dbCtx.Order("company").Order("id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
