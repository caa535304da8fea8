package models

import (
	"time"
)

// Borrow model - a reader's request to take a book, subject to admin approval
type Borrow struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	UserID     uint         `gorm:"column:user_id;not null;index" json:"userId"`
	User       *User        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	BookID     uint         `gorm:"column:book_id;not null;index" json:"bookId"`
	Book       *Book        `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE" json:"book,omitempty"`
	BorrowDate Date         `gorm:"column:borrow_date;not null" json:"borrowDate"`
	DueDate    Date         `gorm:"column:due_date;not null;index" json:"dueDate"`
	ReturnDate *Date        `gorm:"column:return_date" json:"returnDate"`
	Status     BorrowStatus `gorm:"column:status;default:PENDING;index" json:"status"`
	CreatedAt  time.Time    `gorm:"index" json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

func (Borrow) TableName() string {
	return "borrows"
}
