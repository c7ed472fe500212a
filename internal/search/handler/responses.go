package handler

import (
	"blurifier/internal/search/index"
	"blurifier/internal/search/service"
)

// SearchResponse is the body of GET /api/search.
type SearchResponse struct {
	Results []index.Document `json:"results"`
	Total   int              `json:"total"`
}

func FromPage(p *service.Page) SearchResponse {
	results := p.Results
	if results == nil {
		results = []index.Document{}
	}
	return SearchResponse{Results: results, Total: p.Total}
}
