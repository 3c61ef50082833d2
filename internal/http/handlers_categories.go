package http

import (
	"context"
	"net/http"

	"bankrecon/internal/log"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.deps.Categories.List(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpCategory, err)
		return
	}
	s.writeCategories(w, cats)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	s.mutateCategories(w, r, s.deps.Categories.Add)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	s.mutateCategories(w, r, s.deps.Categories.Delete)
}

func (s *Server) mutateCategories(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, name string) ([]string, error)) {
	var req CategoryRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCategory, err)
		return
	}
	cats, err := apply(r.Context(), sanitizeInput(req.Category))
	if err != nil {
		s.writeError(w, r, log.OpCategory, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Categories updated",
		log.FieldOperation, log.OpCategory,
		log.FieldMethod, r.Method,
		log.FieldCategory, req.Category)
	s.writeCategories(w, cats)
}

func (s *Server) writeCategories(w http.ResponseWriter, cats []string) {
	if cats == nil {
		cats = []string{}
	}
	NewJSONResponse().Body(cats).Write(w)
}
