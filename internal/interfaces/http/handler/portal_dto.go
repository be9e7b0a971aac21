package handler

import (
	"github.com/erp/portal/internal/application/identity"
	"github.com/erp/portal/internal/application/portal"
)

// SearchRequest sets the search term of a list tab
type SearchRequest struct {
	Term string `json:"term" binding:"max=200"`
}

// SortRequest sorts a list tab by field; repeating the field flips direction
type SortRequest struct {
	Field string `json:"field" binding:"required,max=64"`
}

// PageSizeRequest changes the page size of a list tab
type PageSizeRequest struct {
	Size int `json:"size" binding:"required"`
}

// PageRequest jumps a list tab to a page
type PageRequest struct {
	Page int `json:"page" binding:"required"`
}

// FilterRequest sets a named filter; an empty value or "all" clears it
type FilterRequest struct {
	Name  string `json:"name" binding:"required,max=64"`
	Value string `json:"value" binding:"max=64"`
}

// ProfileResponse is the customer profile shown in the portal header
type ProfileResponse struct {
	identity.UserInfo
	Tabs []portal.TabStatus `json:"tabs"`
}
