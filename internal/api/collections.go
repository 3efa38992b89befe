package api

import (
	"context"
	"net/http"

	"github.com/Kerhoff/ShelfBoT/internal/models"
)

// collection binds one system list to its service operations.
type collection struct {
	name    string
	items   func(ctx context.Context, ownerID int64) ([]*models.ListItem, error)
	add     func(ctx context.Context, ownerID int64, raw string) (*models.ListItem, error)
	remove  func(ctx context.Context, ownerID int64, identifier string) error
	reorder func(ctx context.Context, ownerID int64, identifiers []string) ([]*models.ListItem, error)
}

func (s *Server) collections() []collection {
	return []collection{
		{
			name:    string(models.SystemKeyOwned),
			items:   s.svc.Owned,
			add:     s.svc.AddToOwned,
			remove:  s.svc.RemoveFromOwned,
			reorder: s.svc.ReorderOwned,
		},
		{
			name:    string(models.SystemKeyWishlist),
			items:   s.svc.Wishlist,
			add:     s.svc.AddToWishlist,
			remove:  s.svc.RemoveFromWishlist,
			reorder: s.svc.ReorderWishlist,
		},
	}
}

func (s *Server) handleGetCollection(c collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := s.requireOwner(w, r)
		if !ok {
			return
		}

		items, err := c.items(r.Context(), ownerID)
		if err != nil {
			s.respondDomainError(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, nonNil(items))
	}
}

func (s *Server) handleAddToCollection(c collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := s.requireOwner(w, r)
		if !ok {
			return
		}

		var req addItemRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}

		item, err := c.add(r.Context(), ownerID, req.SetNum)
		if err != nil {
			s.respondDomainError(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusCreated, item)
	}
}

func (s *Server) handleRemoveFromCollection(c collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := s.requireOwner(w, r)
		if !ok {
			return
		}

		if err := c.remove(r.Context(), ownerID, r.PathValue("setNum")); err != nil {
			s.respondDomainError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleReorderCollection(c collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := s.requireOwner(w, r)
		if !ok {
			return
		}

		var req reorderItemsRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}

		items, err := c.reorder(r.Context(), ownerID, req.SetNums)
		if err != nil {
			s.respondDomainError(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, nonNil(items))
	}
}
