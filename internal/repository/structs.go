package repository

import (
	"errors"
	"time"
)

var (
	ErrObjectNotFound = errors.New("not found")

	// ErrDuplicate surfaces unique-constraint violations (e.g. one review per
	// product and author) without leaking driver errors upward.
	ErrDuplicate = errors.New("already exists")
)

type User struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

type Profile struct {
	ID        int64      `db:"id"`
	UserID    string     `db:"user_id"`
	Phone     *string    `db:"phone"`
	Gender    *string    `db:"gender"`
	Address   *string    `db:"address"`
	Birthdate *time.Time `db:"birthdate"`
	Photo     *string    `db:"photo"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

// Session is a revocable credential issued at login. Revocation is deletion;
// identity stays on the user row, session state lives here.
type Session struct {
	Token     string    `db:"token"`
	UserID    string    `db:"user_id"`
	Role      string    `db:"role"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

type Category struct {
	ID   string `db:"id"`
	Name string `db:"name"`
}

type Product struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Price       int       `db:"price"`
	Description string    `db:"description"`
	Stock       int       `db:"stock"`
	CategoryID  string    `db:"category_id"`
	Image       *string   `db:"image"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type Order struct {
	ID                  string     `db:"id"`
	UserID              string     `db:"user_id"`
	ProductID           string     `db:"product_id"`
	FullName            string     `db:"full_name"`
	Email               string     `db:"email"`
	Phone               string     `db:"phone"`
	RentDate            time.Time  `db:"rent_date"`
	ReturnDate          time.Time  `db:"return_date"`
	Quantity            int        `db:"quantity"`
	PickupMethod        string     `db:"pickup_method"`
	ReturnMethod        string     `db:"return_method"`
	PaymentMethod       string     `db:"payment_method"`
	IDCardRef           string     `db:"id_card_ref"`
	SelfieRef           string     `db:"selfie_ref"`
	Note                string     `db:"note"`
	EstimatedPrice      int        `db:"estimated_price"`
	Status              string     `db:"status"`
	PaymentDate         *time.Time `db:"payment_date"`
	ActualPaymentAmount *int       `db:"actual_payment_amount"`
	AdminNotes          *string    `db:"admin_notes"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
	DeletedAt           *time.Time `db:"deleted_at"`
}

type HistoryEntry struct {
	ID        int64     `db:"id"`
	OrderID   string    `db:"order_id"`
	Status    string    `db:"status"`
	ChangedAt time.Time `db:"changed_at"`
}

type Review struct {
	ID        string    `db:"id"`
	ProductID string    `db:"product_id"`
	UserID    string    `db:"user_id"`
	Rating    int       `db:"rating"`
	Comment   string    `db:"comment"`
	CreatedAt time.Time `db:"created_at"`
}

type Report struct {
	ID             string    `db:"id"`
	ReporterID     string    `db:"reporter_id"`
	ReportedUserID string    `db:"reported_user_id"`
	Reason         string    `db:"reason"`
	CreatedAt      time.Time `db:"created_at"`
}
