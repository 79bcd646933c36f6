package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rosec/backend/internal/models"
	"gorm.io/gorm"
)

var (
	ErrClassNotFound   = errors.New("class not found")
	ErrTeacherNotFound = errors.New("teacher not found")
)

// UserUpdate holds the optional fields an admin may change on an account.
type UserUpdate struct {
	Email    string
	FullName string
	Role     string
	IsActive *bool
}

// UserService manages portal accounts and keeps the role cache in step with
// every change that can alter a user's access.
type UserService struct {
	db    *gorm.DB
	auth  *AuthService
	roles *RoleCache
}

func NewUserService(db *gorm.DB, auth *AuthService, roles *RoleCache) *UserService {
	return &UserService{db: db, auth: auth, roles: roles}
}

func (s *UserService) List(ctx context.Context, role string) ([]models.User, error) {
	var users []models.User
	q := s.db.WithContext(ctx).Order("full_name")
	if role != "" {
		q = q.Where("role = ?", role)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *UserService) Create(ctx context.Context, email, fullName, role, password string) (*models.User, error) {
	user := &models.User{
		Email:    email,
		FullName: fullName,
		Role:     role,
		IsActive: true,
	}
	if err := s.auth.CreateUser(ctx, user, password); err != nil {
		return nil, err
	}
	return user, nil
}

// Update applies the non-empty fields of u and drops the cached role.
func (s *UserService) Update(ctx context.Context, id uuid.UUID, u UserUpdate) (*models.User, error) {
	if u.Role != "" && !ValidRole(u.Role) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRole, u.Role)
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if u.Email != "" {
		user.Email = u.Email
	}
	if u.FullName != "" {
		user.FullName = u.FullName
	}
	if u.Role != "" {
		user.Role = u.Role
	}
	if u.IsActive != nil {
		user.IsActive = *u.IsActive
	}

	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	s.roles.Invalidate(id)
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Delete(user).Error; err != nil {
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}
	s.roles.Invalidate(id)
	return user, nil
}

// AssignTeacherToClass makes teacherID the lead teacher of classID.
func (s *UserService) AssignTeacherToClass(ctx context.Context, teacherID, classID uuid.UUID) (*models.Class, error) {
	var teacher models.User
	if err := s.db.WithContext(ctx).First(&teacher, "id = ? AND role = ?", teacherID, models.RoleTeacher).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeacherNotFound
		}
		return nil, err
	}

	var class models.Class
	if err := s.db.WithContext(ctx).First(&class, "id = ?", classID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		return nil, err
	}

	class.TeacherID = &teacherID
	if err := s.db.WithContext(ctx).Save(&class).Error; err != nil {
		return nil, fmt.Errorf("failed to assign teacher to class: %w", err)
	}
	class.Teacher = &teacher
	return &class, nil
}
