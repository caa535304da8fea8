package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Cherishclears/library-backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BookInput is the editable part of a catalog entry
type BookInput struct {
	ISBN        string       `json:"isbn"`
	Title       string       `json:"title"`
	Author      string       `json:"author"`
	Publisher   string       `json:"publisher"`
	PublishDate *models.Date `json:"publishDate"`
	Category    string       `json:"category"`
	Description string       `json:"description"`
	Cover       string       `json:"cover"`
	Location    string       `json:"location"`
	TotalCopies int          `json:"totalCopies"`
}

func (in *BookInput) validate() error {
	in.ISBN = strings.TrimSpace(in.ISBN)
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.Category = strings.TrimSpace(in.Category)

	switch {
	case in.ISBN == "":
		return validation("isbn is required")
	case in.Title == "":
		return validation("title is required")
	case in.Author == "":
		return validation("author is required")
	case in.TotalCopies < 1:
		return validation("totalCopies must be at least 1, got %d", in.TotalCopies)
	}
	return nil
}

// BookQuery filters a catalog listing. Empty fields do not filter.
type BookQuery struct {
	Keyword       string
	Category      string
	Author        string
	AvailableOnly bool
}

var bookSortColumns = map[string]string{
	"id":              "id",
	"title":           "title",
	"author":          "author",
	"createdAt":       "created_at",
	"availableCopies": "available_copies",
}

// BookService manages the catalog
type BookService struct {
	db *gorm.DB
}

// NewBookService creates a book service
func NewBookService(db *gorm.DB) *BookService {
	return &BookService{db: db}
}

// Create adds a title with all of its copies on the shelf
func (s *BookService) Create(ctx context.Context, in BookInput) (*models.Book, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	book := models.Book{}
	applyBookInput(&book, in)
	book.AvailableCopies = in.TotalCopies
	book.Status = models.StatusFor(book.AvailableCopies)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureISBNFree(tx, in.ISBN, 0); err != nil {
			return err
		}
		if err := tx.Create(&book).Error; err != nil {
			return fmt.Errorf("failed to create book: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// Update replaces the editable fields. A change in total copies moves the
// available count by the same delta, kept within [0, totalCopies]. The copy
// arithmetic runs inside the UPDATE so a concurrent approval or return is not
// overwritten.
func (s *BookService) Update(ctx context.Context, id uint, in BookInput) (*models.Book, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var book models.Book
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&book, id).Error; err != nil {
			return notFound(err, "book", id)
		}
		if in.ISBN != book.ISBN {
			if err := ensureISBNFree(tx, in.ISBN, id); err != nil {
				return err
			}
		}

		available := clampedAvailableSQL(in.TotalCopies)
		result := tx.Model(&models.Book{}).Where("id = ?", id).Updates(map[string]interface{}{
			"isbn":             in.ISBN,
			"title":            in.Title,
			"author":           in.Author,
			"publisher":        in.Publisher,
			"publish_date":     in.PublishDate,
			"category":         in.Category,
			"description":      in.Description,
			"cover":            in.Cover,
			"location":         in.Location,
			"total_copies":     in.TotalCopies,
			"available_copies": gorm.Expr(available.SQL, available.Vars...),
			"status": gorm.Expr("CASE WHEN "+available.SQL+" > 0 THEN ? ELSE ? END",
				append(available.Vars, models.BookAvailable, models.BookBorrowed)...),
		})
		if result.Error != nil {
			return fmt.Errorf("failed to update book %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("book %d: %w", id, ErrNotFound)
		}
		return tx.First(&book, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// Delete removes a book and its borrow history. Books with active borrows stay.
func (s *BookService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book models.Book
		if err := tx.First(&book, id).Error; err != nil {
			return notFound(err, "book", id)
		}

		var active int64
		if err := tx.Model(&models.Borrow{}).
			Where("book_id = ? AND status IN ?", id, models.ActiveBorrowStatuses).
			Count(&active).Error; err != nil {
			return fmt.Errorf("failed to count borrows of book %d: %w", id, err)
		}
		if active > 0 {
			return fmt.Errorf("book %d has %d active borrows: %w", id, active, ErrHasActiveBorrows)
		}

		if err := tx.Where("book_id = ?", id).Delete(&models.Borrow{}).Error; err != nil {
			return fmt.Errorf("failed to delete borrow history of book %d: %w", id, err)
		}
		if err := tx.Delete(&book).Error; err != nil {
			return fmt.Errorf("failed to delete book %d: %w", id, err)
		}
		return nil
	})
}

// Get returns a book by ID
func (s *BookService) Get(ctx context.Context, id uint) (*models.Book, error) {
	var book models.Book
	if err := s.db.WithContext(ctx).First(&book, id).Error; err != nil {
		return nil, notFound(err, "book", id)
	}
	return &book, nil
}

// GetByISBN returns a book by ISBN
func (s *BookService) GetByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	var book models.Book
	if err := s.db.WithContext(ctx).Where("isbn = ?", isbn).First(&book).Error; err != nil {
		return nil, notFound(err, "book with isbn", isbn)
	}
	return &book, nil
}

// List searches the catalog
func (s *BookService) List(ctx context.Context, q BookQuery, page PageRequest) (*Page[models.Book], error) {
	page = page.normalize()

	query := s.db.WithContext(ctx).Model(&models.Book{})
	if kw := strings.ToLower(strings.TrimSpace(q.Keyword)); kw != "" {
		like := "%" + kw + "%"
		query = query.Where(
			"LOWER(title) LIKE ? OR LOWER(author) LIKE ? OR LOWER(isbn) LIKE ? OR LOWER(category) LIKE ?",
			like, like, like, like,
		)
	}
	if q.Category != "" {
		query = query.Where("LOWER(category) = ?", strings.ToLower(q.Category))
	}
	if q.Author != "" {
		query = query.Where("LOWER(author) LIKE ?", "%"+strings.ToLower(q.Author)+"%")
	}
	if q.AvailableOnly {
		query = query.Where("available_copies > 0")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count books: %w", err)
	}

	books := []models.Book{}
	if err := query.
		Order(page.orderClause(bookSortColumns, "id")).
		Offset(page.offset()).
		Limit(page.Size).
		Find(&books).Error; err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}

	return &Page[models.Book]{Items: books, Total: total, Page: page.Page, Size: page.Size}, nil
}

// ListAvailable returns every book with at least one copy on the shelf
func (s *BookService) ListAvailable(ctx context.Context) ([]models.Book, error) {
	books := []models.Book{}
	if err := s.db.WithContext(ctx).
		Where("available_copies > 0").
		Order("title asc").
		Find(&books).Error; err != nil {
		return nil, fmt.Errorf("failed to list available books: %w", err)
	}
	return books, nil
}

// SetCover points a book at an uploaded cover image
func (s *BookService) SetCover(ctx context.Context, id uint, url string) (*models.Book, error) {
	book, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(book).Update("cover", url).Error; err != nil {
		return nil, fmt.Errorf("failed to set cover of book %d: %w", id, err)
	}
	book.Cover = url
	return book, nil
}

func ensureISBNFree(tx *gorm.DB, isbn string, exceptID uint) error {
	var existing models.Book
	err := tx.Where("isbn = ? AND id <> ?", isbn, exceptID).First(&existing).Error
	if err == nil {
		return fmt.Errorf("isbn %s: %w", isbn, ErrDuplicateISBN)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check isbn %s: %w", isbn, err)
	}
	return nil
}

func applyBookInput(book *models.Book, in BookInput) {
	book.ISBN = in.ISBN
	book.Title = in.Title
	book.Author = in.Author
	book.Publisher = in.Publisher
	book.PublishDate = in.PublishDate
	book.Category = in.Category
	book.Description = in.Description
	book.Cover = in.Cover
	book.Location = in.Location
	book.TotalCopies = in.TotalCopies
}

// clampedAvailableSQL moves available_copies by the change in total copies,
// reading both columns from the row being updated, and keeps the result in [0, total].
func clampedAvailableSQL(total int) clause.Expr {
	moved := "available_copies + (? - total_copies)"
	return clause.Expr{
		SQL:  "CASE WHEN " + moved + " < 0 THEN 0 WHEN " + moved + " > ? THEN ? ELSE " + moved + " END",
		Vars: []interface{}{total, total, total, total, total},
	}
}
