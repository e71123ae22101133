package http

import (
	"net/http"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

type transferResponse struct {
	TransferID uuid.UUID `json:"transfer_id"`
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	st, _, err := s.userStore(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in core.TransferInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := st.Transfer(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, transferResponse{TransferID: id})
}

func (s *Server) handleDeleteTransfer(w http.ResponseWriter, r *http.Request) {
	st, _, err := s.userStore(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "transferID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := st.DeleteTransfer(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListDPSTransfers(w http.ResponseWriter, r *http.Request) {
	st, _, err := s.userStore(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := st.FetchDPSTransfers(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	rows := st.Snapshot().DPSTransfers
	if rows == nil {
		rows = []core.DPSTransfer{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleDPSTransfer(w http.ResponseWriter, r *http.Request) {
	st, _, err := s.userStore(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in core.DPSTransferInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	tr, err := st.TransferDPS(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tr)
}

func (s *Server) handleSyncPurchaseCategories(w http.ResponseWriter, r *http.Request) {
	st, _, err := s.userStore(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := st.SyncPurchaseCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if created == nil {
		created = []core.PurchaseCategory{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"created": created})
}
