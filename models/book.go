package models

import (
	"time"
)

// Book model - a catalog title with its copy counters
type Book struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	ISBN            string     `gorm:"column:isbn;uniqueIndex;not null" json:"isbn"`
	Title           string     `gorm:"column:title;not null;index" json:"title"`
	Author          string     `gorm:"column:author;not null;index" json:"author"`
	Publisher       string     `gorm:"column:publisher" json:"publisher"`
	PublishDate     *Date      `gorm:"column:publish_date" json:"publishDate,omitempty"`
	Category        string     `gorm:"column:category;not null;index" json:"category"`
	Description     string     `gorm:"column:description;size:2000" json:"description"`
	Cover           string     `gorm:"column:cover" json:"cover"`
	Location        string     `gorm:"column:location" json:"location"`
	Status          BookStatus `gorm:"column:status;not null;index" json:"status"`
	TotalCopies     int        `gorm:"column:total_copies;not null" json:"totalCopies"`
	AvailableCopies int        `gorm:"column:available_copies;not null" json:"availableCopies"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func (Book) TableName() string {
	return "books"
}

// StatusFor derives the catalog status from an available-copy count
func StatusFor(available int) BookStatus {
	if available > 0 {
		return BookAvailable
	}
	return BookBorrowed
}
