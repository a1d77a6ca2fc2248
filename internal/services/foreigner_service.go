package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/registry/internal/models"
	"github.com/example/registry/internal/utils"
)

// ForeignerService registers foreign residents and their documents.
type ForeignerService struct {
	wf  *Workflow
	now func() time.Time
}

// NewForeignerService constructs a ForeignerService.
func NewForeignerService(wf *Workflow) *ForeignerService {
	return &ForeignerService{wf: wf, now: time.Now}
}

type ForeignerInput struct {
	ID        uint                     `json:"id"`
	Personal  ForeignerPersonal        `json:"personalInfo"`
	Contact   ForeignerContact         `json:"contactInfo"`
	Entry     ForeignerEntry           `json:"entryInfo"`
	Image     string                   `json:"image" validate:"max=500"`
	Documents []ForeignerDocumentInput `json:"documents" validate:"dive"`
}

type ForeignerPersonal struct {
	FirstName       string `json:"firstName" validate:"required,max=100"`
	LastName        string `json:"lastName" validate:"required,max=100"`
	MotherFullName  string `json:"motherFullName" validate:"max=200"`
	DateOfBirth     string `json:"dateOfBirth"`
	Gender          string `json:"gender" validate:"max=20"`
	Nationality     string `json:"nationality"`
	CountryOfOrigin uint   `json:"countryOfOrigin"`
	MaritalStatus   string `json:"maritalStatus" validate:"max=50"`
	Occupation      string `json:"occupation"`
}

type ForeignerContact struct {
	CountryCode    string           `json:"countryCode" validate:"max=8"`
	Phone          string           `json:"phone" validate:"max=30"`
	Email          string           `json:"email" validate:"omitempty,email"`
	Address        string           `json:"address" validate:"max=500"`
	SponsorID      uint             `json:"sponsorId"`
	EmergencyLocal EmergencyContact `json:"emergencyContactSomaliland"`
	EmergencyOther EmergencyContact `json:"emergencyContactEthiopia"`
}

type EmergencyContact struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	CountryCode  string `json:"countryCode"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
}

type ForeignerEntry struct {
	EntryDate      string `json:"entryDate"`
	EntryPoint     string `json:"entryPoint"`
	PurposeOfEntry string `json:"purposeOfEntry"`
	TypeOfStay     string `json:"typeOfStay"`
	SponsorID      uint   `json:"sponsorId"`
}

type ForeignerDocumentInput struct {
	TypeID   uint   `json:"type" validate:"required"`
	FileName string `json:"file_name" validate:"required,max=500"`
}

// Save registers a new foreigner or updates an existing one. Documents are
// replaced only when the input carries a documents list; an empty list clears them.
func (s *ForeignerService) Save(ctx context.Context, in ForeignerInput, actorID uint) (*models.Foreigner, error) {
	dob, err := parseDate(in.Personal.DateOfBirth, s.now())
	if err != nil {
		return nil, invalid("dateOfBirth: %v", err)
	}
	entryDate, err := parseDate(in.Entry.EntryDate, s.now())
	if err != nil {
		return nil, invalid("entryDate: %v", err)
	}

	var foreigner models.Foreigner
	err = s.wf.Run(ctx, "foreigner.save", func(tx *gorm.DB) error {
		if in.ID != 0 {
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&foreigner, in.ID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return notFound("Foreigner not found")
				}
				return err
			}
		}

		occupationID, err := resolveSetting(tx, in.Personal.Occupation, models.DropdownOccupation)
		if err != nil {
			return err
		}
		nationalityID, err := resolveSetting(tx, in.Personal.Nationality, models.DropdownNationality)
		if err != nil {
			return err
		}

		sponsorID := in.Contact.SponsorID
		if sponsorID == 0 {
			sponsorID = in.Entry.SponsorID
		}
		if sponsorID != 0 {
			var n int64
			if err := tx.Model(&models.Sponsor{}).Where("id = ?", sponsorID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return invalid("Selected sponsor does not exist")
			}
		}

		applyForeignerInput(&foreigner, in, dob, entryDate)
		foreigner.OccupationID = occupationID
		foreigner.NationalityID = optionalID(nationalityID)
		foreigner.SponsorID = optionalID(sponsorID)

		if foreigner.ID == 0 {
			seq, err := nextSequence(tx, &models.Foreigner{})
			if err != nil {
				return err
			}
			foreigner.RegistrationID = fmt.Sprintf("FRN-%s-%d", s.now().Format("20060102"), seq)
			foreigner.Status = "Registered"
			foreigner.CreatedBy = actorID
		}

		if err := tx.Omit(clause.Associations).Save(&foreigner).Error; err != nil {
			return sequenceTaken(err)
		}

		if in.Documents == nil {
			return nil
		}
		rows := make([]models.ForeignerDocument, 0, len(in.Documents))
		for _, d := range in.Documents {
			rows = append(rows, models.ForeignerDocument{
				ForeignerID: foreigner.ID,
				TypeID:      d.TypeID,
				FileName:    strings.TrimSpace(d.FileName),
			})
		}
		return replaceChildren(tx, "foreigner_id", foreigner.ID, rows)
	})
	if err != nil {
		return nil, err
	}
	return &foreigner, nil
}

// applyForeignerInput copies request fields onto f. Insert and update share it
// so both paths derive the same values.
func applyForeignerInput(f *models.Foreigner, in ForeignerInput, dob, entryDate time.Time) {
	f.FirstName = strings.TrimSpace(in.Personal.FirstName)
	f.LastName = strings.TrimSpace(in.Personal.LastName)
	f.MotherName = strings.TrimSpace(in.Personal.MotherFullName)
	f.DOB = dob
	f.Gender = in.Personal.Gender
	f.CountryOfOrigin = in.Personal.CountryOfOrigin
	f.MaritalStatus = in.Personal.MaritalStatus
	f.Number = joinPhone(in.Contact.CountryCode, in.Contact.Phone)
	f.Email = NormalizeEmail(in.Contact.Email)
	f.CurrentAddress = in.Contact.Address

	f.EmergencyLocalName = in.Contact.EmergencyLocal.Name
	f.EmergencyLocalRelationship = in.Contact.EmergencyLocal.Relationship
	f.EmergencyLocalNumber = joinPhone(in.Contact.EmergencyLocal.CountryCode, in.Contact.EmergencyLocal.Phone)
	f.EmergencyLocalAddress = in.Contact.EmergencyLocal.Address
	f.EmergencyOtherName = in.Contact.EmergencyOther.Name
	f.EmergencyOtherRelationship = in.Contact.EmergencyOther.Relationship
	f.EmergencyOtherNumber = joinPhone(in.Contact.EmergencyOther.CountryCode, in.Contact.EmergencyOther.Phone)
	f.EmergencyOtherAddress = in.Contact.EmergencyOther.Address

	f.EntryDate = entryDate
	f.EntryPoint = in.Entry.EntryPoint
	f.Purpose = in.Entry.PurposeOfEntry
	f.TypeStatus = in.Entry.TypeOfStay
	if in.Image != "" {
		f.Image = in.Image
	}
}

// List returns a page of foreigners, newest first.
func (s *ForeignerService) List(ctx context.Context, page utils.Pagination) ([]models.Foreigner, int64, error) {
	var total int64
	if err := s.wf.DB(ctx).Model(&models.Foreigner{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var foreigners []models.Foreigner
	err := s.wf.DB(ctx).Preload("Nationality").Scopes(page.Scope).Order("id desc").Find(&foreigners).Error
	return foreigners, total, err
}

// Search matches term against registration ids and full names.
func (s *ForeignerService) Search(ctx context.Context, term string) ([]models.Foreigner, error) {
	like := "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
	var foreigners []models.Foreigner
	err := s.wf.DB(ctx).
		Preload("Nationality").
		Preload("Applications", func(db *gorm.DB) *gorm.DB { return db.Order("created_at desc") }).
		Where("LOWER(registration_id) LIKE ? OR LOWER(first_name || ' ' || last_name) LIKE ?", like, like).
		Order("id desc").
		Limit(100).
		Find(&foreigners).Error
	return foreigners, err
}

// Get loads one foreigner with documents, nationality and sponsor.
func (s *ForeignerService) Get(ctx context.Context, id uint) (*models.Foreigner, error) {
	var foreigner models.Foreigner
	err := s.wf.DB(ctx).Preload("Documents").Preload("Nationality").Preload("Sponsor").First(&foreigner, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Foreigner not found")
		}
		return nil, err
	}
	return &foreigner, nil
}

// Sponsors returns the sponsor linked to a foreigner, as a list.
func (s *ForeignerService) Sponsors(ctx context.Context, foreignerID uint) ([]models.Sponsor, error) {
	sponsors := []models.Sponsor{}
	err := s.wf.DB(ctx).
		Joins("JOIN foreigners ON foreigners.sponsor_id = sponsors.id").
		Where("foreigners.id = ?", foreignerID).
		Find(&sponsors).Error
	return sponsors, err
}

// resolveSetting accepts a numeric id, or a name or label of an active setting
// of the given dropdown type. Unknown values resolve to 0.
func resolveSetting(tx *gorm.DB, value, dropdownType string) (uint, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	if id, err := strconv.ParseUint(value, 10, 64); err == nil {
		return uint(id), nil
	}

	var setting models.Setting
	err := tx.Where("(name = ? OR label = ?) AND dropdown_type = ? AND status = ?", value, value, dropdownType, "active").
		First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return setting.ID, nil
}

func parseDate(value string, fallback time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}

func joinPhone(countryCode, phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	return strings.TrimSpace(countryCode) + phone
}

func optionalID(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}
