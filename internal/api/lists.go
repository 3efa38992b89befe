package api

import (
	"net/http"

	"github.com/Kerhoff/ShelfBoT/internal/models"
)

func (s *Server) handlePublicLists(w http.ResponseWriter, r *http.Request) {
	lists, err := s.svc.PublicLists(r.Context())
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, nonNil(lists))
}

func (s *Server) handleMyLists(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	lists, err := s.svc.ListsForOwner(r.Context(), ownerID)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, nonNil(lists))
}

func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	var req createListRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	list, err := s.svc.CreateList(r.Context(), ownerID, req.Title, req.Description, isPublic)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, list)
}

func (s *Server) handleGetList(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := s.viewer(w, r)
	if !ok {
		return
	}
	listID, ok := s.requireListID(w, r)
	if !ok {
		return
	}

	list, err := s.svc.GetList(r.Context(), viewerID, listID)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	if list.Items == nil {
		list.Items = []models.ListItem{}
	}
	s.respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleUpdateList(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.requireOwner(w, r)
	if !ok {
		return
	}
	listID, ok := s.requireListID(w, r)
	if !ok {
		return
	}

	var req updateListRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	list, err := s.svc.UpdateList(r.Context(), ownerID, listID, models.ListUpdate{
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.requireOwner(w, r)
	if !ok {
		return
	}
	listID, ok := s.requireListID(w, r)
	if !ok {
		return
	}

	if err := s.svc.DeleteList(r.Context(), ownerID, listID); err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReorderLists(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	var req reorderListsRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	lists, err := s.svc.ReorderLists(r.Context(), ownerID, req.ListIDs)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, nonNil(lists))
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.requireOwner(w, r)
	if !ok {
		return
	}
	listID, ok := s.requireListID(w, r)
	if !ok {
		return
	}

	var req addItemRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	item, err := s.svc.AddItem(r.Context(), ownerID, listID, req.SetNum)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, item)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.requireOwner(w, r)
	if !ok {
		return
	}
	listID, ok := s.requireListID(w, r)
	if !ok {
		return
	}

	removed, err := s.svc.RemoveItem(r.Context(), ownerID, listID, r.PathValue("setNum"))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string][]string{"removed": removed})
}

func (s *Server) handleReorderItems(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.requireOwner(w, r)
	if !ok {
		return
	}
	listID, ok := s.requireListID(w, r)
	if !ok {
		return
	}

	var req reorderItemsRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	items, err := s.svc.ReorderItems(r.Context(), ownerID, listID, req.SetNums)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, nonNil(items))
}

// nonNil makes empty results encode as [] rather than null.
func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
