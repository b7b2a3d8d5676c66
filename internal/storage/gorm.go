package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/EngCalc/calc-backend/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists every entity in postgres through gorm.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

var _ Store = (*GormStore)(nil)

func NewGormStore(d *gorm.DB, opts ...Option) *GormStore {
	o := buildOptions(opts)
	return &GormStore{db: d, now: o.now}
}

// Migrate creates the schema and tables. It is idempotent.
func Migrate(d *gorm.DB) error {
	if err := db.EnsureSchema(d, Schema); err != nil {
		return fmt.Errorf("ensure schema %s: %w", Schema, err)
	}
	if err := d.AutoMigrate(&User{}, &Session{}, &Calculation{}, &Project{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

func (s *GormStore) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Session(&gorm.Session{NowFunc: s.now})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *GormStore) firstUser(ctx context.Context, query string, arg string) (*User, error) {
	var u User
	if err := s.conn(ctx).First(&u, query, arg).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *GormStore) GetUser(ctx context.Context, id string) (*User, error) {
	return s.firstUser(ctx, "id = ?", id)
}

func (s *GormStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return s.firstUser(ctx, "username = ?", username)
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.firstUser(ctx, "email = ?", email)
}

func (s *GormStore) CreateUser(ctx context.Context, nu NewUser) (*User, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}
	role := nu.Role
	if role == "" {
		role = RoleStudent
	}
	u := User{
		ID:             id,
		Username:       nu.Username,
		Email:          nu.Email,
		HashedPassword: nu.HashedPassword,
		FirstName:      nu.FirstName,
		LastName:       nu.LastName,
		Role:           role,
		CreatedAt:      s.now(),
	}
	// The unique indexes on username and email are the real guard.
	if err := s.conn(ctx).Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

func (s *GormStore) GetCalculation(ctx context.Context, id string) (*Calculation, error) {
	var c Calculation
	if err := s.conn(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *GormStore) ListCalculationsByUser(ctx context.Context, userID string) ([]Calculation, error) {
	out := make([]Calculation, 0)
	if err := s.conn(ctx).Where("user_id = ?", userID).Order("created_at").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list calculations: %w", err)
	}
	return out, nil
}

func (s *GormStore) CreateCalculation(ctx context.Context, nc NewCalculation) (*Calculation, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}
	now := s.now()
	c := Calculation{
		ID:          id,
		UserID:      nc.UserID,
		Type:        nc.Type,
		Name:        nc.Name,
		Description: nc.Description,
		Inputs:      nc.Inputs,
		Results:     nc.Results,
		Material:    nc.Material,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.conn(ctx).Create(&c).Error; err != nil {
		return nil, fmt.Errorf("create calculation: %w", err)
	}
	return &c, nil
}

// UpdateCalculation locks the row, merges the patch in Go and saves the whole
// record so the read-modify-write is one transaction.
func (s *GormStore) UpdateCalculation(ctx context.Context, id string, p CalculationPatch) (*Calculation, error) {
	var c Calculation
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&c, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		p.apply(&c)
		c.UpdatedAt = s.now()
		return tx.Save(&c).Error
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *GormStore) DeleteCalculation(ctx context.Context, id string) (bool, error) {
	res := s.conn(ctx).Delete(&Calculation{}, "id = ?", id)
	if res.Error != nil {
		return false, fmt.Errorf("delete calculation: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) GetProject(ctx context.Context, id string) (*Project, error) {
	var p Project
	if err := s.conn(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *GormStore) ListProjectsByUser(ctx context.Context, userID string) ([]Project, error) {
	out := make([]Project, 0)
	if err := s.conn(ctx).Where("user_id = ?", userID).Order("created_at").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return out, nil
}

func (s *GormStore) CreateProject(ctx context.Context, np NewProject) (*Project, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}
	status := np.Status
	if status == "" {
		status = StatusInProgress
	}
	now := s.now()
	p := Project{
		ID:           id,
		UserID:       np.UserID,
		Name:         np.Name,
		Description:  np.Description,
		Calculations: cloneIDs(np.Calculations),
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.conn(ctx).Create(&p).Error; err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return &p, nil
}

func (s *GormStore) UpdateProject(ctx context.Context, id string, patch ProjectPatch) (*Project, error) {
	var p Project
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		patch.apply(&p)
		p.UpdatedAt = s.now()
		return tx.Save(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *GormStore) DeleteProject(ctx context.Context, id string) (bool, error) {
	res := s.conn(ctx).Delete(&Project{}, "id = ?", id)
	if res.Error != nil {
		return false, fmt.Errorf("delete project: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) CreateSession(ctx context.Context, userID string) (*Session, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}
	sess := Session{ID: id, UserID: userID, ExpiresAt: s.now().Add(SessionTTL)}
	if err := s.conn(ctx).Create(&sess).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &sess, nil
}

func (s *GormStore) GetSession(ctx context.Context, id string) (*Session, error) {
	var sess Session
	if err := s.conn(ctx).First(&sess, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	if sess.Expired(s.now()) {
		if err := s.conn(ctx).Delete(&Session{}, "id = ?", id).Error; err != nil {
			return nil, fmt.Errorf("delete expired session: %w", err)
		}
		return nil, ErrNotFound
	}
	return &sess, nil
}

func (s *GormStore) DeleteSession(ctx context.Context, id string) (bool, error) {
	res := s.conn(ctx).Delete(&Session{}, "id = ?", id)
	if res.Error != nil {
		return false, fmt.Errorf("delete session: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
