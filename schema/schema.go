package schema

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RolePublisher = "publisher"
	RoleAdmin     = "admin"
)

func CheckValidRole(role string) error {
	switch role {
	case RoleUser, RolePublisher, RoleAdmin:
		return nil
	default:
		return fmt.Errorf("invalid role '%v', must be one of 'user', 'publisher', or 'admin'", role)
	}
}

type User struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Name     string `gorm:"size:50;not null"`
	Email    string `gorm:"unique;size:254;not null"`
	Password []byte

	Role string `gorm:"size:20;not null;default:'user'"`

	CreatedAt time.Time

	Bootcamps []Bootcamp
	Reviews   []Review `gorm:"constraint:OnDelete:CASCADE"`
}

// IsAdmin reports whether the user holds the admin role. Ownership checks
// must always allow admins through regardless of the recorded owner.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type Bootcamp struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Name        string `gorm:"unique;size:100;not null"`
	Description string `gorm:"size:1000;not null"`
	Website     string `gorm:"size:200"`
	Phone       string `gorm:"size:20"`
	Email       string `gorm:"size:254"`
	Address     string `gorm:"size:200"`

	Careers []string `gorm:"serializer:json"`

	// Denormalized geolocation resolved from the address at creation time.
	Latitude  float64
	Longitude float64

	Photo string `gorm:"size:200"`

	Housing       bool `gorm:"not null;default:false"`
	JobAssistance bool `gorm:"not null;default:false"`
	JobGuarantee  bool `gorm:"not null;default:false"`
	AcceptGiBill  bool `gorm:"not null;default:false"`

	AverageRating *float64
	AverageCost   *float64

	CreatedAt time.Time

	// Set once at creation, never reassigned.
	UserId uuid.UUID `gorm:"type:uuid;not null;index"`
	User   *User

	Courses []Course `gorm:"constraint:OnDelete:CASCADE"`
	Reviews []Review `gorm:"constraint:OnDelete:CASCADE"`
}

const (
	SkillBeginner     = "beginner"
	SkillIntermediate = "intermediate"
	SkillAdvanced     = "advanced"
)

func CheckValidMinimumSkill(skill string) error {
	switch skill {
	case SkillBeginner, SkillIntermediate, SkillAdvanced:
		return nil
	default:
		return fmt.Errorf("invalid minimum skill '%v', must be one of 'beginner', 'intermediate', or 'advanced'", skill)
	}
}

type Course struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Title       string `gorm:"size:100;not null"`
	Description string `gorm:"size:1000;not null"`

	Weeks   int     `gorm:"not null"`
	Tuition float64 `gorm:"not null"`

	MinimumSkill         string `gorm:"size:20;not null"`
	ScholarshipAvailable bool   `gorm:"not null;default:false"`

	CreatedAt time.Time

	BootcampId uuid.UUID `gorm:"type:uuid;not null;index"`
	Bootcamp   *Bootcamp

	UserId uuid.UUID `gorm:"type:uuid;not null"`
	User   *User
}

type Review struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Title  string `gorm:"size:100;not null"`
	Text   string `gorm:"size:1000;not null"`
	Rating int    `gorm:"not null"`

	CreatedAt time.Time

	BootcampId uuid.UUID `gorm:"type:uuid;not null;index:idx_review_bootcamp_user,unique"`
	Bootcamp   *Bootcamp

	UserId uuid.UUID `gorm:"type:uuid;not null;index:idx_review_bootcamp_user,unique"`
	User   *User
}
