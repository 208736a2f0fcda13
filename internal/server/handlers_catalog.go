package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/sewain/backend/internal/attachment"
	"github.com/sewain/backend/internal/rental"
	"github.com/sewain/backend/internal/repository"
)

type productResponse struct {
	*repository.Product
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.categories.GetAll(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	if categories == nil {
		categories = []*repository.Category{}
	}
	respondJSON(w, http.StatusOK, categories)
}

// handleListProducts serves the catalog with rating aggregates joined in.
// One aggregate query covers the whole list instead of a query per product.
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.products.GetAll(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	ratings, err := s.ratings.RatingAggregates(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	byProduct := make(map[string]*repository.ProductRating, len(ratings))
	for _, rating := range ratings {
		byProduct[rating.ProductID] = rating
	}

	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		item := productResponse{Product: p}
		if rating, ok := byProduct[p.ID]; ok {
			item.AverageRating = rating.AverageRating
			item.ReviewCount = rating.ReviewCount
		}
		resp = append(resp, item)
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	product, cached := s.productCache.Get(id)
	if !cached {
		var err error
		product, err = s.products.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, repository.ErrObjectNotFound) {
				s.respondServiceError(w, r, rental.NotFoundf("product not found"))
				return
			}
			s.respondServiceError(w, r, err)
			return
		}
		s.productCache.Set(product)
	}

	resp := productResponse{Product: product}
	if rating, err := s.ratings.RatingForProduct(r.Context(), id); err == nil && rating != nil {
		resp.AverageRating = rating.AverageRating
		resp.ReviewCount = rating.ReviewCount
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		respondError(w, http.StatusBadRequest, "category name is required")
		return
	}

	category := &repository.Category{ID: uuid.NewString(), Name: req.Name}
	if err := s.categories.Create(r.Context(), category); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, category)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		respondError(w, http.StatusBadRequest, "category name is required")
		return
	}

	category := &repository.Category{ID: mux.Vars(r)["id"], Name: req.Name}
	if err := s.categories.Update(r.Context(), category); err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			s.respondServiceError(w, r, rental.NotFoundf("category not found"))
			return
		}
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, category)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.categories.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			s.respondServiceError(w, r, rental.NotFoundf("category not found"))
			return
		}
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "category deleted"})
}

// handleCreateProduct accepts multipart: product fields plus an optional
// image file.
func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxOrderFormSize)
	if err := r.ParseMultipartForm(maxOrderFormSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	product, err := s.productFromForm(r, &repository.Product{ID: uuid.NewString(), CreatedAt: time.Now().UTC()})
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	if err := s.products.Create(r.Context(), product); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.productCache.Set(product)
	respondJSON(w, http.StatusCreated, product)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxOrderFormSize)
	if err := r.ParseMultipartForm(maxOrderFormSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	id := mux.Vars(r)["id"]
	existing, err := s.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			s.respondServiceError(w, r, rental.NotFoundf("product not found"))
			return
		}
		s.respondServiceError(w, r, err)
		return
	}

	product, err := s.productFromForm(r, existing)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	if err := s.products.Update(r.Context(), product); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.productCache.Set(product)
	respondJSON(w, http.StatusOK, product)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.products.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			s.respondServiceError(w, r, rental.NotFoundf("product not found"))
			return
		}
		s.respondServiceError(w, r, err)
		return
	}
	s.productCache.Delete(id)
	respondJSON(w, http.StatusOK, map[string]string{"message": "product deleted"})
}

// productFromForm fills a product from multipart fields, keeping existing
// values for fields the request omits. The category must exist before the
// product can point at it.
func (s *Server) productFromForm(r *http.Request, product *repository.Product) (*repository.Product, error) {
	if v := r.FormValue("name"); v != "" {
		product.Name = v
	}
	if v := r.FormValue("description"); v != "" {
		product.Description = v
	}
	if v := r.FormValue("price"); v != "" {
		price, err := strconv.Atoi(v)
		if err != nil || price < 0 {
			return nil, rental.Invalidf("invalid price")
		}
		product.Price = price
	}
	if v := r.FormValue("stock"); v != "" {
		stock, err := strconv.Atoi(v)
		if err != nil || stock < 0 {
			return nil, rental.Invalidf("invalid stock")
		}
		product.Stock = stock
	}
	if v := r.FormValue("category_id"); v != "" {
		if _, err := s.categories.GetByID(r.Context(), v); err != nil {
			if errors.Is(err, repository.ErrObjectNotFound) {
				return nil, rental.Invalidf("category does not exist")
			}
			return nil, err
		}
		product.CategoryID = v
	}

	if product.Name == "" {
		return nil, rental.Invalidf("product name is required")
	}
	if product.CategoryID == "" {
		return nil, rental.Invalidf("category_id is required")
	}

	if ref, err := s.storeUpload(r, "image", attachment.KindImage); err != nil {
		return nil, err
	} else if ref != "" {
		product.Image = &ref
	}

	product.UpdatedAt = time.Now().UTC()
	return product, nil
}
