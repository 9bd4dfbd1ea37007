package models

import (
	"time"
)

// Role is the closed set of principal roles.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleFinance    Role = "finance"
	RoleDirector   Role = "director"
	RoleTeamLeader Role = "team_leader"
	RoleTeamMember Role = "team_member"
)

// Roles lists every role in a stable order.
var Roles = []Role{RoleAdmin, RoleFinance, RoleDirector, RoleTeamLeader, RoleTeamMember}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleFinance, RoleDirector, RoleTeamLeader, RoleTeamMember:
		return true
	}
	return false
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

func (s UserStatus) Valid() bool {
	return s == UserStatusActive || s == UserStatusInactive
}

type User struct {
	ID           uint64     `gorm:"primarykey" json:"id"`
	Name         string     `gorm:"type:varchar(255);not null" json:"name"`
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"-"`
	Role         Role       `gorm:"type:varchar(20);not null;index" json:"role"`
	Status       UserStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	TeamLeaderID *uint64    `gorm:"index" json:"team_leader_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Relations
	TeamLeader *User `gorm:"foreignKey:TeamLeaderID" json:"-"`
}

func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
