package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Company is a registered company, either side of a lead.
type Company struct {
	ID           int64
	Name         string
	BusinessType string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Lead pairs a prospective buyer with a seller.
type Lead struct {
	ID              int64
	BuyerCompanyID  int64
	SellerCompanyID int64
	CreatedAt       time.Time
}

// CreateCompany inserts a company and returns it with its assigned ID.
func (s *Store) CreateCompany(ctx context.Context, name, businessType string) (*Company, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO companies (name, business_type, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, name, businessType, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read company id: %w", err)
	}
	return &Company{ID: id, Name: name, BusinessType: businessType, CreatedAt: now, UpdatedAt: now}, nil
}

// GetCompany retrieves a company by ID. Returns ErrNotFound when absent.
func (s *Store) GetCompany(ctx context.Context, id int64) (*Company, error) {
	var c Company
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, business_type, created_at, updated_at
		FROM companies WHERE id = ?
	`, id).Scan(&c.ID, &c.Name, &c.BusinessType, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("company %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &c, nil
}

// CreateCompanyFile records an uploaded profile document with its extracted
// summary.
func (s *Store) CreateCompanyFile(ctx context.Context, companyID int64, fileName, summary string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO company_files (company_id, file_name, summary, created_at)
		VALUES (?, ?, ?, ?)
	`, companyID, fileName, summary, time.Now())
	if err != nil {
		return fmt.Errorf("failed to create company file: %w", err)
	}
	return nil
}

// GetLatestProfileSummary returns the newest non-empty profile summary for a
// company. The second return value is false when the company has no profile
// document; that is an expected state, not an error.
func (s *Store) GetLatestProfileSummary(ctx context.Context, companyID int64) (string, bool, error) {
	var summary string
	err := s.db.QueryRowContext(ctx, `
		SELECT summary FROM company_files
		WHERE company_id = ? AND summary != ''
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, companyID).Scan(&summary)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get profile summary: %w", err)
	}
	return summary, true, nil
}

// CreateLead inserts a lead pairing the given buyer and seller.
func (s *Store) CreateLead(ctx context.Context, buyerCompanyID, sellerCompanyID int64) (*Lead, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO leads (buyer_company_id, seller_company_id, created_at)
		VALUES (?, ?, ?)
	`, buyerCompanyID, sellerCompanyID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read lead id: %w", err)
	}
	return &Lead{ID: id, BuyerCompanyID: buyerCompanyID, SellerCompanyID: sellerCompanyID, CreatedAt: now}, nil
}

// GetLead retrieves a lead by ID. Returns ErrNotFound when absent.
func (s *Store) GetLead(ctx context.Context, id int64) (*Lead, error) {
	var l Lead
	err := s.db.QueryRowContext(ctx, `
		SELECT id, buyer_company_id, seller_company_id, created_at
		FROM leads WHERE id = ?
	`, id).Scan(&l.ID, &l.BuyerCompanyID, &l.SellerCompanyID, &l.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("lead %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return &l, nil
}
