package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Cherishclears/library-backend/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// DefaultLoanPeriodDays is used when no due date is requested
const DefaultLoanPeriodDays = 30

// BorrowRequest is a reader asking for a book. Missing dates get defaults.
type BorrowRequest struct {
	BookID     uint         `json:"bookId"`
	BorrowDate *models.Date `json:"borrowDate"`
	DueDate    *models.Date `json:"dueDate"`
}

// BorrowFilter narrows a borrow listing. Nil fields do not filter.
type BorrowFilter struct {
	UserID *uint
	BookID *uint
	Status *models.BorrowStatus
}

var borrowSortColumns = map[string]string{
	"id":         "id",
	"createdAt":  "created_at",
	"borrowDate": "borrow_date",
	"dueDate":    "due_date",
	"status":     "status",
}

// returnableStatuses are the states a borrow can be returned from
var returnableStatuses = []models.BorrowStatus{models.BorrowApproved, models.BorrowOverdue}

// BorrowService runs the borrow workflow:
// PENDING -> APPROVED | REJECTED, APPROVED | OVERDUE -> RETURNED, APPROVED -> OVERDUE.
// Copies leave the shelf on approval and come back on return.
type BorrowService struct {
	db       *gorm.DB
	events   *EventBus
	loanDays int
	now      func() time.Time
}

// NewBorrowService creates a borrow service. events may be nil.
func NewBorrowService(db *gorm.DB, events *EventBus, loanDays int) *BorrowService {
	if loanDays <= 0 {
		loanDays = DefaultLoanPeriodDays
	}
	return &BorrowService{
		db:       db,
		events:   events,
		loanDays: loanDays,
		now:      time.Now,
	}
}

func (s *BorrowService) today() models.Date {
	return models.NewDate(s.now())
}

// Borrow files a PENDING request. Copies are only checked here, not reserved.
func (s *BorrowService) Borrow(ctx context.Context, userID uint, req BorrowRequest) (*models.Borrow, error) {
	borrowDate := s.today()
	if req.BorrowDate != nil && !req.BorrowDate.IsZero() {
		borrowDate = *req.BorrowDate
	}
	dueDate := borrowDate.AddDays(s.loanDays)
	if req.DueDate != nil && !req.DueDate.IsZero() {
		dueDate = *req.DueDate
	}
	if dueDate.Before(borrowDate) {
		return nil, validation("due date %s is before borrow date %s", dueDate, borrowDate)
	}

	borrow := models.Borrow{
		UserID:     userID,
		BookID:     req.BookID,
		BorrowDate: borrowDate,
		DueDate:    dueDate,
		Status:     models.BorrowPending,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return notFound(err, "user", userID)
		}
		if user.Status != models.UserStatusActive {
			return fmt.Errorf("user %d: %w", userID, ErrAccountDisabled)
		}

		var book models.Book
		if err := tx.First(&book, req.BookID).Error; err != nil {
			return notFound(err, "book", req.BookID)
		}
		if book.AvailableCopies <= 0 {
			return fmt.Errorf("book %d: %w", book.ID, ErrNoCopiesAvailable)
		}

		if err := tx.Create(&borrow).Error; err != nil {
			return fmt.Errorf("failed to create borrow: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Uint("borrow_id", borrow.ID).Uint("user_id", userID).Uint("book_id", req.BookID).Msg("📚 Borrow requested")
	return s.afterCommit(ctx, borrow.ID, EventBorrowRequested)
}

// Approve moves a PENDING borrow to APPROVED and takes one copy off the shelf
func (s *BorrowService) Approve(ctx context.Context, id uint) (*models.Borrow, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		borrow, err := s.transition(tx, id, []models.BorrowStatus{models.BorrowPending}, map[string]interface{}{
			"status": models.BorrowApproved,
		})
		if err != nil {
			return err
		}

		// available_copies on the right-hand side is the pre-update value
		res := tx.Model(&models.Book{}).
			Where("id = ? AND available_copies > 0", borrow.BookID).
			Updates(map[string]interface{}{
				"available_copies": gorm.Expr("available_copies - 1"),
				"status": gorm.Expr("CASE WHEN available_copies - 1 > 0 THEN ? ELSE ? END",
					models.BookAvailable, models.BookBorrowed),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to take copy of book %d: %w", borrow.BookID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("book %d: %w", borrow.BookID, ErrNoCopiesAvailable)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Uint("borrow_id", id).Msg("✅ Borrow approved")
	return s.afterCommit(ctx, id, EventBorrowApproved)
}

// Reject moves a PENDING borrow to REJECTED. Copies are untouched.
func (s *BorrowService) Reject(ctx context.Context, id uint) (*models.Borrow, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := s.transition(tx, id, []models.BorrowStatus{models.BorrowPending}, map[string]interface{}{
			"status": models.BorrowRejected,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().Uint("borrow_id", id).Msg("🚫 Borrow rejected")
	return s.afterCommit(ctx, id, EventBorrowRejected)
}

// Return closes an APPROVED or OVERDUE borrow and puts its copy back.
// The shelf never holds more than totalCopies.
func (s *BorrowService) Return(ctx context.Context, id uint) (*models.Borrow, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		borrow, err := s.transition(tx, id, returnableStatuses, map[string]interface{}{
			"status":      models.BorrowReturned,
			"return_date": s.today(),
		})
		if err != nil {
			return err
		}

		res := tx.Model(&models.Book{}).
			Where("id = ? AND available_copies < total_copies", borrow.BookID).
			Updates(map[string]interface{}{
				"available_copies": gorm.Expr("available_copies + 1"),
				"status":           models.BookAvailable,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to return copy of book %d: %w", borrow.BookID, res.Error)
		}
		if res.RowsAffected == 0 {
			log.Warn().Uint("borrow_id", id).Uint("book_id", borrow.BookID).
				Msg("⚠️ Book already has all copies on the shelf, not incrementing")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Uint("borrow_id", id).Msg("📗 Borrow returned")
	return s.afterCommit(ctx, id, EventBorrowReturned)
}

// MarkOverdue moves every APPROVED borrow past its due date to OVERDUE and
// returns how many moved. Nothing calls this on a timer.
func (s *BorrowService) MarkOverdue(ctx context.Context) (int64, error) {
	today := s.today()

	var ids []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Borrow{}).
			Where("status = ? AND due_date < ? AND return_date IS NULL", models.BorrowApproved, today).
			Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("failed to find overdue borrows: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Model(&models.Borrow{}).
			Where("id IN ? AND status = ?", ids, models.BorrowApproved).
			Update("status", models.BorrowOverdue).Error; err != nil {
			return fmt.Errorf("failed to mark borrows overdue: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		if _, err := s.afterCommit(ctx, id, EventBorrowOverdue); err != nil {
			log.Warn().Err(err).Uint("borrow_id", id).Msg("⚠️ Failed to reload overdue borrow")
		}
	}
	if len(ids) > 0 {
		log.Info().Int("count", len(ids)).Msg("⏰ Borrows marked overdue")
	}
	return int64(len(ids)), nil
}

// Get returns a borrow with its user and book
func (s *BorrowService) Get(ctx context.Context, id uint) (*models.Borrow, error) {
	var borrow models.Borrow
	if err := s.withRelations(s.db.WithContext(ctx)).First(&borrow, id).Error; err != nil {
		return nil, notFound(err, "borrow", id)
	}
	return &borrow, nil
}

// List pages through borrows matching the filter
func (s *BorrowService) List(ctx context.Context, filter BorrowFilter, page PageRequest) (*Page[models.Borrow], error) {
	page = page.normalize()

	query := s.db.WithContext(ctx).Model(&models.Borrow{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.BookID != nil {
		query = query.Where("book_id = ?", *filter.BookID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count borrows: %w", err)
	}

	borrows := []models.Borrow{}
	if err := s.withRelations(query).
		Order(page.orderClause(borrowSortColumns, "id")).
		Offset(page.offset()).
		Limit(page.Size).
		Find(&borrows).Error; err != nil {
		return nil, fmt.Errorf("failed to list borrows: %w", err)
	}

	return &Page[models.Borrow]{Items: borrows, Total: total, Page: page.Page, Size: page.Size}, nil
}

// ListCurrentByUser returns the books a user holds right now
func (s *BorrowService) ListCurrentByUser(ctx context.Context, userID uint) ([]models.Borrow, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, notFound(err, "user", userID)
	}

	borrows := []models.Borrow{}
	if err := s.withRelations(s.db.WithContext(ctx)).
		Where("user_id = ? AND status IN ?", userID, returnableStatuses).
		Order("due_date asc").
		Find(&borrows).Error; err != nil {
		return nil, fmt.Errorf("failed to list current borrows of user %d: %w", userID, err)
	}
	return borrows, nil
}

// ListRecent returns the newest n borrows
func (s *BorrowService) ListRecent(ctx context.Context, n int) ([]models.Borrow, error) {
	if n <= 0 {
		n = DefaultPageSize
	}
	if n > MaxPageSize {
		n = MaxPageSize
	}

	borrows := []models.Borrow{}
	if err := s.withRelations(s.db.WithContext(ctx)).
		Order("created_at desc").
		Order("id desc").
		Limit(n).
		Find(&borrows).Error; err != nil {
		return nil, fmt.Errorf("failed to list recent borrows: %w", err)
	}
	return borrows, nil
}

// ListOverdue returns unreturned borrows whose due date has passed,
// whether or not MarkOverdue has flagged them yet
func (s *BorrowService) ListOverdue(ctx context.Context) ([]models.Borrow, error) {
	borrows := []models.Borrow{}
	if err := s.withRelations(s.db.WithContext(ctx)).
		Where("status IN ? AND due_date < ? AND return_date IS NULL", returnableStatuses, s.today()).
		Order("due_date asc").
		Find(&borrows).Error; err != nil {
		return nil, fmt.Errorf("failed to list overdue borrows: %w", err)
	}
	return borrows, nil
}

// transition applies updates to borrow id only while it is in one of from.
// The status guard is part of the UPDATE so a concurrent transition loses cleanly.
func (s *BorrowService) transition(tx *gorm.DB, id uint, from []models.BorrowStatus, updates map[string]interface{}) (*models.Borrow, error) {
	var borrow models.Borrow
	if err := tx.First(&borrow, id).Error; err != nil {
		return nil, notFound(err, "borrow", id)
	}
	if !statusIn(borrow.Status, from) {
		return nil, fmt.Errorf("borrow %d is %s, want one of %v: %w", id, borrow.Status, from, ErrInvalidState)
	}

	res := tx.Model(&models.Borrow{}).Where("id = ? AND status IN ?", id, from).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update borrow %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("borrow %d changed concurrently: %w", id, ErrInvalidState)
	}
	return &borrow, nil
}

// afterCommit reloads the borrow for the response and publishes its event
func (s *BorrowService) afterCommit(ctx context.Context, id uint, eventType BorrowEventType) (*models.Borrow, error) {
	borrow, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.events.PublishBorrow(eventType, borrow)
	return borrow, nil
}

func (s *BorrowService) withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("User").Preload("Book")
}

func statusIn(st models.BorrowStatus, set []models.BorrowStatus) bool {
	for _, s := range set {
		if s == st {
			return true
		}
	}
	return false
}
