package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/sewain/backend/internal/attachment"
	"github.com/sewain/backend/internal/auth"
	"github.com/sewain/backend/internal/rental"
	"github.com/sewain/backend/internal/repository"
)

const maxOrderFormSize = 8 << 20

// handleCreateOrder accepts the multipart rental request: text fields plus
// the two mandatory identity attachments.
func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxOrderFormSize)
	if err := r.ParseMultipartForm(maxOrderFormSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	rentDate, err := time.Parse("2006-01-02", r.FormValue("rent_date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid rent_date, use YYYY-MM-DD")
		return
	}
	returnDate, err := time.Parse("2006-01-02", r.FormValue("return_date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid return_date, use YYYY-MM-DD")
		return
	}
	quantity, err := strconv.Atoi(r.FormValue("quantity"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid quantity")
		return
	}
	estimatedPrice := 0
	if v := r.FormValue("estimated_price"); v != "" {
		estimatedPrice, err = strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid estimated_price")
			return
		}
	}

	idCardRef, err := s.storeUpload(r, "id_card", attachment.KindDocument)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	selfieRef, err := s.storeUpload(r, "selfie", attachment.KindImage)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	order, err := s.orders.Create(r.Context(), p, rental.CreateOrderInput{
		ProductID:      r.FormValue("product_id"),
		FullName:       r.FormValue("full_name"),
		Email:          r.FormValue("email"),
		Phone:          r.FormValue("phone"),
		RentDate:       rentDate.UTC(),
		ReturnDate:     returnDate.UTC(),
		Quantity:       quantity,
		PickupMethod:   r.FormValue("pickup_method"),
		ReturnMethod:   r.FormValue("return_method"),
		PaymentMethod:  r.FormValue("payment_method"),
		Note:           r.FormValue("note"),
		IDCardRef:      idCardRef,
		SelfieRef:      selfieRef,
		EstimatedPrice: estimatedPrice,
	})
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

// storeUpload moves one named multipart file into the attachment store.
// Missing files return an empty ref; the engine decides whether that is
// acceptable.
func (s *Server) storeUpload(r *http.Request, field string, kind attachment.Kind) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return "", nil
		}
		return "", rental.Invalidf("invalid %s upload", field)
	}
	defer file.Close()
	return s.attachments.Save(file, header.Filename, kind)
}

func (s *Server) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	orders, err := s.orders.ListMine(r.Context(), p)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	if orders == nil {
		orders = []*repository.Order{}
	}
	respondJSON(w, http.StatusOK, orders)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	order, err := s.orders.Get(r.Context(), p, mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (s *Server) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	history, err := s.orders.History(r.Context(), p, mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	if history == nil {
		history = []*repository.HistoryEntry{}
	}
	respondJSON(w, http.StatusOK, history)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	order, err := s.orders.Cancel(r.Context(), p, mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (s *Server) handleAdminListOrders(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	orders, err := s.orders.ListAll(r.Context(), p, r.URL.Query().Get("status"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	if orders == nil {
		orders = []*repository.Order{}
	}
	respondJSON(w, http.StatusOK, orders)
}

func (s *Server) handleConfirmOrder(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.orders.Confirm)
}

func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.orders.MarkPaid)
}

func (s *Server) handleStartOrder(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.orders.Start)
}

func (s *Server) handleCompleteOrder(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.orders.Complete)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request, fn func(context.Context, auth.Principal, string) (*repository.Order, error)) {
	p, _ := principalFrom(r.Context())
	order, err := fn(r.Context(), p, mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// handleOverrideStatus is the escape hatch: it applies any valid status
// without transition checks.
func (s *Server) handleOverrideStatus(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	var req struct {
		Status     string `json:"status"`
		AdminNotes string `json:"admin_notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := s.orders.OverrideStatus(r.Context(), p, mux.Vars(r)["id"], req.Status, req.AdminNotes)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	var req struct {
		ProductID string `json:"product_id"`
		Rating    int    `json:"rating"`
		Comment   string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	review, err := s.orders.SubmitReview(r.Context(), p, req.ProductID, req.Rating, req.Comment)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, review)
}

func (s *Server) handleListProductReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.orders.ListProductReviews(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	if reviews == nil {
		reviews = []*repository.ReviewWithAuthor{}
	}
	respondJSON(w, http.StatusOK, reviews)
}
