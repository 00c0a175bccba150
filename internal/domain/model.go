package domain

import (
	"time"
)

// UserModel is the GORM model for users table.
type UserModel struct {
	ID           string    `gorm:"type:varchar(36);primaryKey"`
	Name         string    `gorm:"type:varchar(50);not null"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for UserModel.
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts UserModel to domain User.
func (m *UserModel) ToDomain() *User {
	return &User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// UserToModel converts domain User to UserModel.
func UserToModel(u *User) *UserModel {
	return &UserModel{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// TaskModel is the GORM model for tasks table.
type TaskModel struct {
	ID           string    `gorm:"type:varchar(36);primaryKey"`
	Title        string    `gorm:"type:varchar(100);not null"`
	Description  string    `gorm:"type:text;not null"`
	DueDate      time.Time `gorm:"not null;index"`
	Priority     string    `gorm:"type:varchar(16);not null;default:'Medium'"`
	PriorityRank int       `gorm:"not null;default:2"`
	Status       string    `gorm:"type:varchar(16);not null;default:'To Do';index"`
	CreatorID    string    `gorm:"type:varchar(36);not null;index"`
	AssignedToID *string   `gorm:"type:varchar(36);index"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for TaskModel.
func (TaskModel) TableName() string {
	return "tasks"
}

// ToDomain converts TaskModel to domain Task.
func (m *TaskModel) ToDomain() *Task {
	return &Task{
		ID:           m.ID,
		Title:        m.Title,
		Description:  m.Description,
		DueDate:      m.DueDate,
		Priority:     TaskPriority(m.Priority),
		Status:       TaskStatus(m.Status),
		CreatorID:    m.CreatorID,
		AssignedToID: m.AssignedToID,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// TaskToModel converts domain Task to TaskModel. PriorityRank is derived
// so listings can sort by priority in the database.
func TaskToModel(t *Task) *TaskModel {
	return &TaskModel{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		DueDate:      t.DueDate,
		Priority:     string(t.Priority),
		PriorityRank: t.Priority.Rank(),
		Status:       string(t.Status),
		CreatorID:    t.CreatorID,
		AssignedToID: t.AssignedToID,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}
