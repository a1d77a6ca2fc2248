package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/registry/internal/models"
)

// SponsorService manages sponsors and their supporting documents.
type SponsorService struct {
	wf *Workflow
}

// NewSponsorService constructs a SponsorService.
func NewSponsorService(wf *Workflow) *SponsorService {
	return &SponsorService{wf: wf}
}

type SponsorInput struct {
	ID                  uint                   `json:"id"`
	SponsorName         string                 `json:"sponsorName" validate:"required,min=3,max=255"`
	CompanyName         string                 `json:"companyName" validate:"max=255"`
	Type                string                 `json:"type" validate:"required"`
	Email               string                 `json:"email" validate:"required,email"`
	Phone               string                 `json:"phone" validate:"required,min=5,max=50"`
	EmergencyPhone      string                 `json:"emergencyPhone" validate:"required,min=5,max=50"`
	NationalID          string                 `json:"nationalId" validate:"required,min=2,max=100"`
	LicenseNumber       string                 `json:"licenseNumber" validate:"max=255"`
	LicenseType         string                 `json:"licenseType" validate:"max=255"`
	LicenseMinistry     string                 `json:"licenseMinistry" validate:"max=255"`
	Address             string                 `json:"address" validate:"required,max=2000"`
	Region              string                 `json:"region" validate:"required,max=100"`
	MaxCapacity         int                    `json:"maxCapacity" validate:"required,min=1,max=1000"`
	ResponsibilityScore int                    `json:"responsibilityScore" validate:"min=0,max=100"`
	RegistrationDate    *time.Time             `json:"registrationDate"`
	Status              string                 `json:"status" validate:"max=50"`
	Documents           []SponsorDocumentInput `json:"documents" validate:"dive"`
}

type SponsorDocumentInput struct {
	FileName   string `json:"fileName" validate:"required"`
	FilePath   string `json:"filePath" validate:"required"`
	FileSizeKB int    `json:"fileSizeKb" validate:"required,gt=0"`
	FileType   string `json:"fileType" validate:"required"`
	Fieldname  string `json:"fieldname" validate:"required"`
}

// SponsorSummary is a sponsor with the number of foreigners it sponsors.
type SponsorSummary struct {
	models.Sponsor
	SponsoredCount int64 `json:"sponsored_count"`
}

// Save creates or updates a sponsor. Documents follow the same rule as foreigners:
// omitted keeps, present replaces.
func (s *SponsorService) Save(ctx context.Context, in SponsorInput) (*models.Sponsor, error) {
	var sponsor models.Sponsor
	err := s.wf.Run(ctx, "sponsor.save", func(tx *gorm.DB) error {
		if in.ID != 0 {
			if err := tx.First(&sponsor, in.ID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return notFound("Sponsor not found")
				}
				return err
			}
		}

		sponsor.SponsorName = strings.TrimSpace(in.SponsorName)
		sponsor.CompanyName = in.CompanyName
		sponsor.SponsorType = in.Type
		sponsor.EmailAddress = NormalizeEmail(in.Email)
		sponsor.PrimaryPhoneNumber = strings.TrimSpace(in.Phone)
		sponsor.EmergencyContactNumber = strings.TrimSpace(in.EmergencyPhone)
		sponsor.NationalIDNumber = strings.TrimSpace(in.NationalID)
		sponsor.LicenseNumber = in.LicenseNumber
		sponsor.LicenseType = in.LicenseType
		sponsor.LicenseMinistry = in.LicenseMinistry
		sponsor.CompleteAddress = strings.TrimSpace(in.Address)
		sponsor.Region = strings.TrimSpace(in.Region)
		sponsor.MaxCapacity = in.MaxCapacity
		sponsor.ResponsibilityScore = in.ResponsibilityScore
		sponsor.RegistrationDate = in.RegistrationDate
		if in.Status != "" {
			sponsor.Status = in.Status
		} else if sponsor.Status == "" {
			sponsor.Status = "Pending"
		}

		if err := tx.Omit(clause.Associations).Save(&sponsor).Error; err != nil {
			return err
		}

		if in.Documents == nil {
			return nil
		}
		rows := make([]models.SponsorDocument, 0, len(in.Documents))
		for _, d := range in.Documents {
			rows = append(rows, models.SponsorDocument{
				SponsorID:  sponsor.ID,
				FileName:   d.FileName,
				FilePath:   d.FilePath,
				FileSizeKB: d.FileSizeKB,
				FileType:   d.FileType,
				Type:       d.Fieldname,
			})
		}
		return replaceChildren(tx, "sponsor_id", sponsor.ID, rows)
	})
	if err != nil {
		return nil, err
	}
	return &sponsor, nil
}

// List returns every sponsor with its sponsored count.
func (s *SponsorService) List(ctx context.Context) ([]SponsorSummary, error) {
	var sponsors []models.Sponsor
	if err := s.wf.DB(ctx).Order("id desc").Find(&sponsors).Error; err != nil {
		return nil, err
	}

	type countRow struct {
		SponsorID uint
		Total     int64
	}
	var counts []countRow
	err := s.wf.DB(ctx).Model(&models.Foreigner{}).
		Select("sponsor_id, COUNT(*) AS total").
		Where("sponsor_id IS NOT NULL").
		Group("sponsor_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	bySponsor := make(map[uint]int64, len(counts))
	for _, c := range counts {
		bySponsor[c.SponsorID] = c.Total
	}

	out := make([]SponsorSummary, 0, len(sponsors))
	for _, sp := range sponsors {
		out = append(out, SponsorSummary{Sponsor: sp, SponsoredCount: bySponsor[sp.ID]})
	}
	return out, nil
}

// Get loads one sponsor with its documents.
func (s *SponsorService) Get(ctx context.Context, id uint) (*models.Sponsor, error) {
	var sponsor models.Sponsor
	if err := s.wf.DB(ctx).Preload("Documents").First(&sponsor, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Sponsor not found")
		}
		return nil, err
	}
	return &sponsor, nil
}

// UpdateStatus changes a sponsor's status.
func (s *SponsorService) UpdateStatus(ctx context.Context, id uint, status string) error {
	res := s.wf.DB(ctx).Model(&models.Sponsor{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("Sponsor not found")
	}
	return nil
}

// Delete removes a sponsor that no foreigner references.
func (s *SponsorService) Delete(ctx context.Context, id uint) error {
	return s.wf.Run(ctx, "sponsor.delete", func(tx *gorm.DB) error {
		var sponsor models.Sponsor
		if err := tx.First(&sponsor, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("Sponsor not found")
			}
			return err
		}

		var sponsored int64
		if err := tx.Model(&models.Foreigner{}).Where("sponsor_id = ?", id).Count(&sponsored).Error; err != nil {
			return err
		}
		if sponsored > 0 {
			return conflict("Sponsor still has registered foreigners")
		}

		if err := tx.Where("sponsor_id = ?", id).Delete(&models.SponsorDocument{}).Error; err != nil {
			return err
		}
		return tx.Delete(&sponsor).Error
	})
}
