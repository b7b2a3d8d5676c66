package storage

import (
	"time"

	"github.com/lib/pq"
)

// Schema is the postgres schema holding every table of this service.
const Schema = "engcalc"

type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleAdmin   Role = "admin"
)

type ProjectStatus string

const (
	StatusInProgress ProjectStatus = "in_progress"
	StatusComplete   ProjectStatus = "complete"
	StatusArchived   ProjectStatus = "archived"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case StatusInProgress, StatusComplete, StatusArchived:
		return true
	}
	return false
}

type User struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"uniqueIndex;not null" json:"username"`
	Email          string    `gorm:"uniqueIndex;not null" json:"email"`
	HashedPassword string    `gorm:"column:password;not null" json:"-"`
	FirstName      *string   `json:"firstName"`
	LastName       *string   `json:"lastName"`
	Role           Role      `gorm:"not null;default:'student'" json:"role"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Session is the server side half of a login. Its ID is the cookie value.
type Session struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"not null;index" json:"userId"`
	ExpiresAt time.Time `gorm:"not null" json:"expiresAt"`
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type Calculation struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	UserID      *string   `gorm:"index" json:"userId"`
	Type        string    `gorm:"not null" json:"type"` // stress_analysis, beam_deflection, ...
	Name        string    `gorm:"not null" json:"name"`
	Description *string   `json:"description"`
	Inputs      JSON      `gorm:"type:jsonb;not null" json:"inputs"`
	Results     JSON      `gorm:"type:jsonb;not null" json:"results"`
	Material    *string   `json:"material"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Project struct {
	ID           string         `gorm:"primaryKey" json:"id"`
	UserID       *string        `gorm:"index" json:"userId"`
	Name         string         `gorm:"not null" json:"name"`
	Description  *string        `json:"description"`
	Calculations pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"calculations"`
	Status       ProjectStatus  `gorm:"not null;default:'in_progress'" json:"status"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

func (User) TableName() string        { return Schema + ".users" }
func (Session) TableName() string     { return Schema + ".sessions" }
func (Calculation) TableName() string { return Schema + ".calculations" }
func (Project) TableName() string     { return Schema + ".projects" }

// NewUser carries the fields a caller supplies on registration. The password
// must already be hashed.
type NewUser struct {
	Username       string
	Email          string
	HashedPassword string
	FirstName      *string
	LastName       *string
	Role           Role
}

type NewCalculation struct {
	UserID      *string
	Type        string
	Name        string
	Description *string
	Inputs      JSON
	Results     JSON
	Material    *string
}

type NewProject struct {
	UserID       *string
	Name         string
	Description  *string
	Calculations []string
	Status       ProjectStatus
}

// CalculationPatch is a shallow merge: nil fields are left untouched. The
// nullable columns take an Optional so they can be cleared.
type CalculationPatch struct {
	Type        *string
	Name        *string
	Description Optional[string]
	Inputs      *JSON
	Results     *JSON
	Material    Optional[string]
}

func (p CalculationPatch) apply(c *Calculation) {
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Description.Set {
		c.Description = cloneString(p.Description.Value)
	}
	if p.Inputs != nil {
		c.Inputs = p.Inputs.clone()
	}
	if p.Results != nil {
		c.Results = p.Results.clone()
	}
	if p.Material.Set {
		c.Material = cloneString(p.Material.Value)
	}
}

type ProjectPatch struct {
	Name         *string
	Description  Optional[string]
	Calculations *[]string
	Status       *ProjectStatus
}

func (p ProjectPatch) apply(pr *Project) {
	if p.Name != nil {
		pr.Name = *p.Name
	}
	if p.Description.Set {
		pr.Description = cloneString(p.Description.Value)
	}
	if p.Calculations != nil {
		pr.Calculations = cloneIDs(*p.Calculations)
	}
	if p.Status != nil {
		pr.Status = *p.Status
	}
}

func (u User) clone() User {
	u.FirstName = cloneString(u.FirstName)
	u.LastName = cloneString(u.LastName)
	return u
}

func (c Calculation) clone() Calculation {
	c.UserID = cloneString(c.UserID)
	c.Description = cloneString(c.Description)
	c.Material = cloneString(c.Material)
	c.Inputs = c.Inputs.clone()
	c.Results = c.Results.clone()
	return c
}

func (p Project) clone() Project {
	p.UserID = cloneString(p.UserID)
	p.Description = cloneString(p.Description)
	p.Calculations = cloneIDs(p.Calculations)
	return p
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// cloneIDs never returns nil so an empty list serializes as [].
func cloneIDs(ids []string) pq.StringArray {
	out := make(pq.StringArray, len(ids))
	copy(out, ids)
	return out
}
