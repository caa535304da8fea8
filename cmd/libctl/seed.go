package main

import (
	"context"
	"errors"

	"github.com/Cherishclears/library-backend/models"
	"github.com/Cherishclears/library-backend/services"
	"github.com/spf13/cobra"
)

var sampleBooks = []services.BookInput{
	{ISBN: "9780451524935", Title: "1984", Author: "George Orwell", Publisher: "Signet Classic", Category: "Fiction", Location: "A-01", TotalCopies: 3},
	{ISBN: "9780451526342", Title: "Animal Farm", Author: "George Orwell", Publisher: "Signet Classic", Category: "Fiction", Location: "A-01", TotalCopies: 2},
	{ISBN: "9780547928210", Title: "The Fellowship of the Ring", Author: "J.R.R. Tolkien", Publisher: "Mariner Books", Category: "Fantasy", Location: "B-03", TotalCopies: 2},
	{ISBN: "9780547928203", Title: "The Two Towers", Author: "J.R.R. Tolkien", Publisher: "Mariner Books", Category: "Fantasy", Location: "B-03", TotalCopies: 1},
	{ISBN: "9781599869773", Title: "The Art of War", Author: "Sun Tzu", Publisher: "Filiquarian", Category: "History", Location: "C-02", TotalCopies: 1},
	{ISBN: "9780743477116", Title: "Romeo and Juliet", Author: "William Shakespeare", Publisher: "Simon & Schuster", Category: "Drama", Location: "D-05", TotalCopies: 2},
	{ISBN: "9780140449266", Title: "The Three Musketeers", Author: "Alexandre Dumas", Publisher: "Penguin Classics", Category: "Fiction", Location: "A-04", TotalCopies: 1},
	{ISBN: "9780262033848", Title: "Introduction to Algorithms", Author: "Thomas H. Cormen", Publisher: "MIT Press", Category: "Computer Science", Location: "E-01", TotalCopies: 4},
}

var sampleReaders = []services.RegisterInput{
	{Username: "alice", Password: "reader123", Name: "Alice Martin", Email: "alice@library.local"},
	{Username: "bob", Password: "reader123", Name: "Bob Chen", Email: "bob@library.local"},
	{Username: "carol", Password: "reader123", Name: "Carol Diaz", Email: "carol@library.local"},
}

func newSeedCmd(a *app) *cobra.Command {
	var withBorrows bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert sample books, readers and borrows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.seed(cmd.Context(), withBorrows)
		},
	}
	cmd.Flags().BoolVar(&withBorrows, "borrows", true, "also create sample borrow requests")
	return cmd
}

func (a *app) seed(ctx context.Context, withBorrows bool) error {
	a.printf("🌱 Starting library seed...\n")

	bookSvc := services.NewBookService(a.db)
	userSvc := services.NewUserService(a.db)

	var books []*models.Book
	for _, in := range sampleBooks {
		book, err := bookSvc.Create(ctx, in)
		if errors.Is(err, services.ErrDuplicateISBN) {
			a.printf("⏭️  Book %s already exists, skipping\n", in.ISBN)
			continue
		}
		if err != nil {
			return err
		}
		books = append(books, book)
	}
	a.printf("✅ Created %d books\n", len(books))

	var readers []*models.User
	for _, in := range sampleReaders {
		user, err := userSvc.Register(ctx, in)
		if errors.Is(err, services.ErrUsernameTaken) {
			a.printf("⏭️  Reader %s already exists, skipping\n", in.Username)
			continue
		}
		if err != nil {
			return err
		}
		readers = append(readers, user)
	}
	a.printf("✅ Created %d readers\n", len(readers))

	if !withBorrows || len(books) == 0 || len(readers) == 0 {
		return nil
	}

	// One pending, one approved and one returned request per reader
	borrowSvc := services.NewBorrowService(a.db, nil, a.loanDays())
	created := 0
	for i, reader := range readers {
		for step := 0; step < 3; step++ {
			book := books[(i*3+step)%len(books)]
			borrow, err := borrowSvc.Borrow(ctx, reader.ID, services.BorrowRequest{BookID: book.ID})
			if err != nil {
				a.printf("⚠️  Skipping borrow of %q by %s: %v\n", book.Title, reader.Username, err)
				continue
			}
			created++
			if step == 0 {
				continue
			}
			if _, err := borrowSvc.Approve(ctx, borrow.ID); err != nil {
				a.printf("⚠️  Could not approve borrow %d: %v\n", borrow.ID, err)
				continue
			}
			if step == 2 {
				if _, err := borrowSvc.Return(ctx, borrow.ID); err != nil {
					a.printf("⚠️  Could not return borrow %d: %v\n", borrow.ID, err)
				}
			}
		}
	}
	a.printf("✅ Created %d borrows\n", created)
	a.printf("🎉 Seed complete\n")
	return nil
}

func (a *app) loanDays() int {
	if a.cfg.LoanPeriodDays > 0 {
		return a.cfg.LoanPeriodDays
	}
	return services.DefaultLoanPeriodDays
}
