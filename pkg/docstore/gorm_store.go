package docstore

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bookshelf/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&UserModel{}, &ShelfEntryModel{}, &ReviewModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "password_hash", "updated_at"}),
	}).Create(&model).Error
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// UpsertShelfEntry writes the user_books document for the pair. Repeated
// calls merge: they refresh added_at and leave the shelf untouched, so a
// double-tap or retried add never duplicates an entry.
func (s *GormStore) UpsertShelfEntry(userID, bookID string) error {
	model := ShelfEntryModel{
		ID:      EntryKey(userID, bookID),
		UserID:  userID,
		BookID:  bookID,
		AddedAt: time.Now().UTC(),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"added_at"}),
	}).Create(&model).Error
}

// SetEntryShelf updates the per-user shelf status on an existing entry,
// creating the entry when the user shelves a book straight from the catalog.
func (s *GormStore) SetEntryShelf(userID, bookID string, shelf domain.Shelf) error {
	model := ShelfEntryModel{
		ID:      EntryKey(userID, bookID),
		UserID:  userID,
		BookID:  bookID,
		Shelf:   string(shelf),
		AddedAt: time.Now().UTC(),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"shelf"}),
	}).Create(&model).Error
}

// ShelfEntries returns all entries for a user, oldest added first.
func (s *GormStore) ShelfEntries(userID string) ([]domain.ShelfEntry, error) {
	var models []ShelfEntryModel
	if err := s.db.Where("user_id = ?", userID).Order("added_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ShelfEntry, 0, len(models))
	for _, m := range models {
		res = append(res, entryFromModel(m))
	}
	return res, nil
}

// AddReview records a review document.
func (s *GormStore) AddReview(r domain.Review) error {
	model := ReviewModel{
		ID:        r.ID,
		UserID:    r.UserID,
		BookID:    r.BookID,
		Review:    r.Text,
		CreatedAt: r.CreatedAt,
	}
	return s.db.Create(&model).Error
}

// ReviewsNewestFirst returns all reviews ordered by created_at descending.
func (s *GormStore) ReviewsNewestFirst() ([]domain.Review, error) {
	var models []ReviewModel
	if err := s.db.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Review, 0, len(models))
	for _, m := range models {
		res = append(res, reviewFromModel(m))
	}
	return res, nil
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func entryFromModel(m ShelfEntryModel) domain.ShelfEntry {
	return domain.ShelfEntry{
		UserID:  m.UserID,
		BookID:  m.BookID,
		Shelf:   domain.Shelf(m.Shelf),
		AddedAt: m.AddedAt,
	}
}

func reviewFromModel(m ReviewModel) domain.Review {
	return domain.Review{
		ID:        m.ID,
		UserID:    m.UserID,
		BookID:    m.BookID,
		Text:      m.Review,
		CreatedAt: m.CreatedAt,
	}
}
