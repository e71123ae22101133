package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/export"
	"fintrack/internal/log"
)

func (s *Server) handleExportTransactions(w http.ResponseWriter, r *http.Request) {
	st, uid, err := s.userStore(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error { return st.FetchAccounts(ctx) })
	g.Go(func() error { return st.FetchTransactions(ctx) })
	if err := g.Wait(); err != nil {
		writeError(w, r, err)
		return
	}

	snap := st.Snapshot()
	var buf bytes.Buffer
	if err := export.WriteTransactions(&buf, snap.Accounts, snap.Transactions); err != nil {
		writeError(w, r, fmt.Errorf("export transactions: %w", err))
		return
	}
	log.FromContext(r.Context()).WithComponent(log.ComponentExport).InfoContext(r.Context(), "Transactions exported",
		log.FieldUserID, uid.String(), log.FieldCount, len(snap.Transactions))

	filename := "transactions-" + s.now().UTC().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
