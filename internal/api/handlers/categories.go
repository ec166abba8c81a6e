package handlers

import (
	"net/http"

	"github.com/cpenarrieta/personal-finance-backend/internal/api/dto"
	"github.com/cpenarrieta/personal-finance-backend/internal/infrastructure/storage"
)

// CategoriesHandler handles taxonomy-related HTTP requests.
type CategoriesHandler struct {
	*Base
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(repo storage.Repository) *CategoriesHandler {
	return &CategoriesHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/categories - returns the full category taxonomy.
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.repo.ListCategories()
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.CategoryListResponse{
		Categories: make([]dto.CategoryResponse, 0, len(categories)),
	}
	for _, cat := range categories {
		catResp := dto.CategoryResponse{
			ID:            cat.ID,
			Name:          cat.Name,
			Subcategories: make([]dto.SubcategoryResponse, 0, len(cat.Subcategories)),
		}
		for _, sub := range cat.Subcategories {
			catResp.Subcategories = append(catResp.Subcategories, dto.SubcategoryResponse{
				ID:   sub.ID,
				Name: sub.Name,
			})
		}
		response.Categories = append(response.Categories, catResp)
	}

	h.WriteJSON(w, http.StatusOK, response)
}
