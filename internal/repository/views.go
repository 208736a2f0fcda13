package repository

import "time"

// Read-model rows. These are derived views over the ledger and its
// neighbours; nothing here is ever written back.

type UserStats struct {
	Total        int `db:"total" json:"total"`
	Active       int `db:"active" json:"active"`
	Inactive     int `db:"inactive" json:"inactive"`
	NewThisMonth int `db:"new_this_month" json:"newThisMonth"`
}

type StatusCount struct {
	Status string `db:"status"`
	Count  int    `db:"count"`
}

type MonthRevenue struct {
	Month   string `db:"month" json:"month"`
	Revenue int64  `db:"revenue" json:"revenue"`
}

// OrderReportRow is an order enriched with the denormalized product and
// customer names, as consumed by the reporting view.
type OrderReportRow struct {
	ID             string    `db:"id" json:"id"`
	ProductName    string    `db:"product_name" json:"productName"`
	CustomerName   string    `db:"customer_name" json:"customerName"`
	RentDate       time.Time `db:"rent_date" json:"rentDate"`
	ReturnDate     time.Time `db:"return_date" json:"returnDate"`
	Quantity       int       `db:"quantity" json:"quantity"`
	EstimatedPrice int       `db:"estimated_price" json:"estimatedPrice"`
	Status         string    `db:"status" json:"status"`
	CreatedAt      time.Time `db:"created_at" json:"date"`
}

type ProductRating struct {
	ProductID     string  `db:"product_id"`
	AverageRating float64 `db:"average_rating"`
	ReviewCount   int     `db:"review_count"`
}

type ReviewWithAuthor struct {
	ID         string    `db:"id" json:"id"`
	ProductID  string    `db:"product_id" json:"productId"`
	UserID     string    `db:"user_id" json:"userId"`
	AuthorName string    `db:"author_name" json:"authorName"`
	Rating     int       `db:"rating" json:"rating"`
	Comment    string    `db:"comment" json:"comment"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

type ReportWithNames struct {
	ID           string    `db:"id" json:"id"`
	ReporterName string    `db:"reporter_name" json:"reporterName"`
	ReportedName string    `db:"reported_name" json:"reportedName"`
	Reason       string    `db:"reason" json:"reason"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}
