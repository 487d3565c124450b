package docstore

import "time"

// GORM models used for persistence.
type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (UserModel) TableName() string { return "users" }

// ShelfEntryModel rows are keyed by the composite userID_bookID string so the
// database enforces the one-entry-per-pair invariant.
type ShelfEntryModel struct {
	ID      string `gorm:"primaryKey"`
	UserID  string `gorm:"not null;index"`
	BookID  string `gorm:"not null"`
	Shelf   string
	AddedAt time.Time `gorm:"not null"`
}

func (ShelfEntryModel) TableName() string { return "user_books" }

type ReviewModel struct {
	ID        string    `gorm:"primaryKey"`
	UserID    string    `gorm:"not null;index"`
	BookID    string    `gorm:"not null;index"`
	Review    string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}

func (ReviewModel) TableName() string { return "reviews" }
