package pkg

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
)

// PaginationParams represents pagination parameters
type PaginationParams struct {
	Page   int    `json:"page" form:"page"`
	Limit  int    `json:"limit" form:"limit"`
	Search string `json:"search" form:"search"`
}

// PaginationResult represents pagination result
type PaginationResult struct {
	Data       interface{}    `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}

// PaginationMeta represents pagination metadata
type PaginationMeta struct {
	CurrentPage  int   `json:"current_page"`
	TotalPages   int   `json:"total_pages"`
	TotalItems   int64 `json:"total_items"`
	ItemsPerPage int   `json:"items_per_page"`
	HasNext      bool  `json:"has_next"`
	HasPrev      bool  `json:"has_prev"`
}

// Default pagination values
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// NewPaginationParams creates pagination parameters from Gin context
func NewPaginationParams(c *gin.Context) *PaginationParams {
	params := &PaginationParams{
		Page:  DefaultPage,
		Limit: DefaultLimit,
	}

	if pageStr := c.Query("page"); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil && page > 0 {
			params.Page = page
		}
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			if limit > MaxLimit {
				params.Limit = MaxLimit
			} else {
				params.Limit = limit
			}
		}
	}

	params.Search = c.Query("search")

	return params
}

// GetOffset calculates the offset for database queries
func (p *PaginationParams) GetOffset() int {
	return (p.Page - 1) * p.Limit
}

// Validate validates pagination parameters
func (p *PaginationParams) Validate() error {
	if p.Page <= 0 {
		p.Page = DefaultPage
	}

	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}

	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	return nil
}

// NewPaginationResult creates a pagination result
func NewPaginationResult(data interface{}, totalItems int64, params *PaginationParams) *PaginationResult {
	totalPages := int(math.Ceil(float64(totalItems) / float64(params.Limit)))

	return &PaginationResult{
		Data: data,
		Pagination: PaginationMeta{
			CurrentPage:  params.Page,
			TotalPages:   totalPages,
			TotalItems:   totalItems,
			ItemsPerPage: params.Limit,
			HasNext:      params.Page < totalPages,
			HasPrev:      params.Page > 1,
		},
	}
}
