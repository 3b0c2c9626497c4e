package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/dhelbig/korrespondenz/internal/model"
	"github.com/dhelbig/korrespondenz/internal/repository"
)

type ContactService struct {
	repo *repository.ContactRepository
	log  zerolog.Logger
}

func NewContactService(repo *repository.ContactRepository, log zerolog.Logger) *ContactService {
	return &ContactService{repo: repo, log: log}
}

// UpdateContactInput carries a partial update. Nil fields stay untouched;
// clearing a text field takes an explicit empty string.
type UpdateContactInput struct {
	ContactType    *model.ContactType
	CompanyName    *string
	Salutation     *string
	FirstName      *string
	LastName       *string
	Street         *string
	ZipCode        *string
	City           *string
	Country        *string
	Email          *string
	Phone          *string
	CustomerNumber *string
	Notes          *string
}

func (s *ContactService) Get(ctx context.Context, id uint) (*model.Contact, error) {
	contact, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: contact %d", ErrNotFound, id)
		}
		return nil, err
	}
	return contact, nil
}

func (s *ContactService) List(ctx context.Context, offset, limit int) ([]model.Contact, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, offset, limit)
}

func (s *ContactService) Create(ctx context.Context, contact model.Contact) (*model.Contact, error) {
	if contact.ContactType == "" {
		contact.ContactType = model.ContactTypeCompany
	}
	if err := validateContact(contact); err != nil {
		return nil, err
	}
	if contact.Country == "" {
		contact.Country = "Deutschland"
	}
	if err := s.repo.Create(ctx, &contact); err != nil {
		return nil, err
	}
	return &contact, nil
}

func (s *ContactService) Update(ctx context.Context, id uint, in UpdateContactInput) (*model.Contact, error) {
	contact, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	applyString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	if in.ContactType != nil {
		contact.ContactType = *in.ContactType
	}
	applyString(&contact.CompanyName, in.CompanyName)
	applyString(&contact.Salutation, in.Salutation)
	applyString(&contact.FirstName, in.FirstName)
	applyString(&contact.LastName, in.LastName)
	applyString(&contact.Street, in.Street)
	applyString(&contact.ZipCode, in.ZipCode)
	applyString(&contact.City, in.City)
	applyString(&contact.Email, in.Email)
	applyString(&contact.Phone, in.Phone)
	applyString(&contact.CustomerNumber, in.CustomerNumber)
	applyString(&contact.Notes, in.Notes)
	if in.Country != nil && *in.Country != "" {
		contact.Country = *in.Country
	}

	if err := validateContact(*contact); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

// Delete refuses to remove a contact that documents still reference. The
// guard is an explicit count; a constraint violation racing past it maps to
// the same conflict.
func (s *ContactService) Delete(ctx context.Context, id uint) error {
	contact, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	count, err := s.repo.CountDocuments(ctx, contact.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: contact %d is still referenced by %d document(s)", ErrConflict, id, count)
	}

	if err := s.repo.Delete(ctx, contact.ID); err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: contact %d is still referenced by documents", ErrConflict, id)
		}
		return err
	}
	return nil
}

func validateContact(contact model.Contact) error {
	if !contact.ContactType.Valid() {
		return fmt.Errorf("%w: invalid contact_type %q", ErrValidation, contact.ContactType)
	}
	switch contact.ContactType {
	case model.ContactTypeCompany:
		if strings.TrimSpace(contact.CompanyName) == "" {
			return fmt.Errorf("%w: company contacts need a company_name", ErrValidation)
		}
	case model.ContactTypePerson:
		if strings.TrimSpace(contact.LastName) == "" {
			return fmt.Errorf("%w: person contacts need a last_name", ErrValidation)
		}
	}
	if contact.Email != "" && !strings.Contains(contact.Email, "@") {
		return fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	return nil
}
