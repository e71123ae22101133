package http

import (
	"net/http"

	"fintrack/internal/core"
)

func (s *Server) handleListReturns(w http.ResponseWriter, r *http.Request) {
	st, _, err := s.userStore(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := st.FetchLendBorrowReturns(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	returns := []core.LendBorrowReturn{}
	for _, ret := range st.Snapshot().LendBorrowReturns {
		if ret.LendBorrowID == id {
			returns = append(returns, ret)
		}
	}
	writeJSON(w, http.StatusOK, returns)
}

func (s *Server) handleRecordReturn(w http.ResponseWriter, r *http.Request) {
	st, _, err := s.userStore(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in core.ReturnInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	ret, err := st.RecordLendBorrowReturn(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ret)
}

func (s *Server) handleSettleLendBorrow(w http.ResponseWriter, r *http.Request) {
	st, _, err := s.userStore(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	lb, err := st.SettleLendBorrow(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (s *Server) handleRefreshLendBorrow(w http.ResponseWriter, r *http.Request) {
	st, _, err := s.userStore(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := st.RefreshLendBorrowStatuses(r.Context(), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}
