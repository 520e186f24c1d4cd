package model

import (
	"time"

	"github.com/google/uuid"
)

type ShelfStatus string

const (
	ShelfActive    ShelfStatus = "ACTIVE"
	ShelfWithdrawn ShelfStatus = "WITHDRAWN"
)

type Book struct {
	BookID      string      `json:"bookId" db:"book_id"`
	Title       string      `json:"title" db:"title"`
	Category    string      `json:"category,omitempty" db:"category"`
	Stock       int         `json:"stock" db:"stock"`
	ShelfStatus ShelfStatus `json:"shelfStatus" db:"shelf_status"`
}

func (b Book) Borrowable() bool {
	return b.ShelfStatus == ShelfActive && b.Stock > 0
}

// BookUpdate carries the fields to overwrite; nil fields are left untouched.
type BookUpdate struct {
	Title    *string `json:"title,omitempty" validate:"omitempty,min=1"`
	Category *string `json:"category,omitempty"`
	Stock    *int    `json:"stock,omitempty" validate:"omitempty,gte=0"`
}

func (u BookUpdate) Empty() bool {
	return u.Title == nil && u.Category == nil && u.Stock == nil
}

type BookSort string

const (
	SortByStock BookSort = "stock"
	SortByTitle BookSort = "title"
	SortByID    BookSort = "id"
)

func (s BookSort) Valid() bool {
	switch s {
	case SortByStock, SortByTitle, SortByID:
		return true
	}
	return false
}

type DueStatus string

const (
	DueStatusReturned DueStatus = "RETURNED"
	DueStatusOverdue  DueStatus = "OVERDUE"
	DueStatusDueSoon  DueStatus = "DUE_SOON"
	DueStatusOnLoan   DueStatus = "ON_LOAN"
)

type LoanRecord struct {
	ID           int64      `json:"id" db:"id"`
	StudentID    string     `json:"studentId" db:"student_id"`
	BookID       string     `json:"bookId" db:"book_id"`
	Title        string     `json:"title,omitempty" db:"title"`
	BorrowDate   time.Time  `json:"borrowDate" db:"borrow_date"`
	DueDate      time.Time  `json:"dueDate" db:"due_date"`
	ReturnedDate *time.Time `json:"returnedDate" db:"returned_date"`

	OverdueDays int       `json:"overdueDays" db:"-"`
	DueStatus   DueStatus `json:"dueStatus,omitempty" db:"-"`
}

func (l LoanRecord) Outstanding() bool {
	return l.ReturnedDate == nil
}

type LoanFilter struct {
	StudentID string
	BookID    string
	// OutstandingOnly restricts the result to loans without a returned date.
	OutstandingOnly bool
	// Keyword matches case-insensitively anywhere in the student id, book id
	// or title.
	Keyword string
}

type DashboardStats struct {
	TotalStock       int `json:"totalStock" db:"total_stock"`
	OutstandingCount int `json:"outstandingCount" db:"outstanding_count"`
	OverdueCount     int `json:"overdueCount" db:"overdue_count"`
}

type EventType string

const (
	EventBorrowed EventType = "BORROWED"
	EventReturned EventType = "RETURNED"
	EventRenewed  EventType = "RENEWED"
	EventOverdue  EventType = "OVERDUE"
)

type CirculationEvent struct {
	ID          uuid.UUID `json:"id"`
	Type        EventType `json:"type"`
	LoanID      int64     `json:"loanId"`
	StudentID   string    `json:"studentId"`
	BookID      string    `json:"bookId"`
	DueDate     time.Time `json:"dueDate"`
	OverdueDays int       `json:"overdueDays,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

func NewEvent(typ EventType, loan LoanRecord, at time.Time) CirculationEvent {
	return CirculationEvent{
		ID:          uuid.New(),
		Type:        typ,
		LoanID:      loan.ID,
		StudentID:   loan.StudentID,
		BookID:      loan.BookID,
		DueDate:     loan.DueDate,
		OverdueDays: loan.OverdueDays,
		OccurredAt:  at,
	}
}

// ReturnRequest is the drop-box message consumed from kafka.
type ReturnRequest struct {
	BookID    string `json:"bookId" validate:"required"`
	StudentID string `json:"studentId" validate:"required"`
}
