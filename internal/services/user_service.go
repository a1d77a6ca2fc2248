package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/example/registry/internal/models"
	"github.com/example/registry/internal/utils"
)

// UserService manages operator accounts and their roles.
type UserService struct {
	wf       *Workflow
	sessions *SessionStore
}

// NewUserService constructs a UserService.
func NewUserService(wf *Workflow, sessions *SessionStore) *UserService {
	return &UserService{wf: wf, sessions: sessions}
}

// UserInput is the payload for creating or updating a user.
type UserInput struct {
	ID         uint   `json:"id"`
	Name       string `json:"name" validate:"required,min=2,max=100"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"omitempty,min=8,max=72"`
	Phone      string `json:"phone" validate:"omitempty,max=30"`
	Department string `json:"department" validate:"omitempty,max=100"`
	Region     string `json:"region" validate:"omitempty,max=100"`
	Status     string `json:"status" validate:"omitempty,oneof=active inactive"`
	RoleIDs    []uint `json:"role_id"`
}

// UserView is a user together with the ids of its roles.
type UserView struct {
	models.User
	RoleIDs []uint `json:"role_id"`
}

// Save inserts or updates a user and replaces its role set in one transaction.
func (s *UserService) Save(ctx context.Context, in UserInput) (*UserView, error) {
	if in.ID == 0 && in.Password == "" {
		return nil, invalid("password is required")
	}

	var hashed string
	if in.Password != "" {
		h, err := utils.HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		hashed = h
	}

	roleIDs := dedupe(in.RoleIDs)
	var user models.User
	err := s.wf.Run(ctx, "user.save", func(tx *gorm.DB) error {
		if in.ID != 0 {
			if err := tx.First(&user, in.ID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return notFound("User not found")
				}
				return err
			}
		}

		user.Name = strings.TrimSpace(in.Name)
		user.Email = NormalizeEmail(in.Email)
		user.Phone = strings.TrimSpace(in.Phone)
		user.Department = in.Department
		user.Region = in.Region
		user.Status = in.Status
		if user.Status == "" {
			user.Status = "active"
		}
		passwordChanged := hashed != "" && user.ID != 0
		if hashed != "" {
			user.Password = hashed
		}

		if err := tx.Save(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return conflict("A user with this email already exists")
			}
			return err
		}

		if passwordChanged {
			if err := s.sessions.WithTx(tx).InvalidateUser(ctx, user.ID); err != nil {
				return err
			}
		}

		if len(roleIDs) > 0 {
			var known int64
			if err := tx.Model(&models.Role{}).Where("id IN ?", roleIDs).Count(&known).Error; err != nil {
				return err
			}
			if known != int64(len(roleIDs)) {
				return invalid("One or more roles do not exist")
			}
		}

		rows := make([]models.UserRole, 0, len(roleIDs))
		for _, rid := range roleIDs {
			rows = append(rows, models.UserRole{UserID: user.ID, RoleID: rid})
		}
		return replaceChildren(tx, "user_id", user.ID, rows)
	})
	if err != nil {
		return nil, err
	}

	return &UserView{User: user, RoleIDs: roleIDs}, nil
}

// List returns a page of users, optionally filtered by name or email.
func (s *UserService) List(ctx context.Context, search string, page utils.Pagination) ([]UserView, int64, error) {
	query := s.wf.DB(ctx).Model(&models.User{})
	if term := strings.TrimSpace(search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	if err := query.Scopes(page.Scope).Order("id desc").Find(&users).Error; err != nil {
		return nil, 0, err
	}

	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	roles, err := s.roleIDsByUser(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, UserView{User: u, RoleIDs: roles[u.ID]})
	}
	return views, total, nil
}

// Get loads one user with its role ids.
func (s *UserService) Get(ctx context.Context, id uint) (*UserView, error) {
	var user models.User
	if err := s.wf.DB(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("User not found")
		}
		return nil, err
	}
	roleIDs, err := s.RoleIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	return &UserView{User: user, RoleIDs: roleIDs}, nil
}

// Delete removes a user along with its sessions and role links.
func (s *UserService) Delete(ctx context.Context, id, actorID uint) error {
	if id == actorID {
		return conflict("You cannot delete your own account")
	}
	return s.wf.Run(ctx, "user.delete", func(tx *gorm.DB) error {
		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound("User not found")
		}
		if err := s.sessions.WithTx(tx).InvalidateUser(ctx, id); err != nil {
			return err
		}
		return tx.Where("user_id = ?", id).Delete(&models.UserRole{}).Error
	})
}

// RoleIDs returns the ids of every role assigned to userID.
func (s *UserService) RoleIDs(ctx context.Context, userID uint) ([]uint, error) {
	ids := []uint{}
	err := s.wf.DB(ctx).Model(&models.UserRole{}).Where("user_id = ?", userID).Order("role_id").Pluck("role_id", &ids).Error
	return ids, err
}

// Permissions returns the distinct, non-empty permission names granted by all of the user's roles.
func (s *UserService) Permissions(ctx context.Context, userID uint) ([]string, error) {
	var names []string
	err := s.wf.DB(ctx).Model(&models.Permission{}).
		Distinct("permissions.name").
		Joins("JOIN role_has_permissions ON role_has_permissions.permission_id = permissions.id").
		Joins("JOIN user_has_roles ON user_has_roles.role_id = role_has_permissions.role_id").
		Where("user_has_roles.user_id = ?", userID).
		Where("permissions.name IS NOT NULL AND permissions.name <> ''").
		Order("permissions.name").
		Pluck("permissions.name", &names).Error
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (s *UserService) roleIDsByUser(ctx context.Context, userIDs []uint) (map[uint][]uint, error) {
	out := make(map[uint][]uint, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var links []models.UserRole
	if err := s.wf.DB(ctx).Where("user_id IN ?", userIDs).Order("role_id").Find(&links).Error; err != nil {
		return nil, err
	}
	for _, l := range links {
		out[l.UserID] = append(out[l.UserID], l.RoleID)
	}
	return out, nil
}
