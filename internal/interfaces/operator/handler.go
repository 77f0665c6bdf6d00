package operator

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	log "github.com/sirupsen/logrus"

	"github.com/chaindex-network/chaindexd/internal/core/application"
	"github.com/chaindex-network/chaindexd/internal/core/domain"
)

// Handler exposes the block delivery and inspection surface of the node over
// plain HTTP on the operator port. It is the attachment point for the
// surrounding chain: blocks are posted as they connect and posted to the
// rollback route on reorg.
type Handler struct {
	pipeline *application.Pipeline
	registry *application.PairRegistry
	mux      *http.ServeMux
}

func NewHandler(
	pipeline *application.Pipeline, registry *application.PairRegistry,
) *Handler {
	h := &Handler{
		pipeline: pipeline,
		registry: registry,
		mux:      http.NewServeMux(),
	}
	h.mux.HandleFunc("/v1/block", h.applyBlock)
	h.mux.HandleFunc("/v1/block/rollback", h.rollbackBlock)
	h.mux.HandleFunc("/v1/depth", h.depth)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

type rejectionJSON struct {
	TxHash string `json:"txHash"`
	Reason string `json:"reason"`
}

type depthJSON struct {
	Pair string `json:"pair"`
	Bids int    `json:"bids"`
	Asks int    `json:"asks"`
}

func (h *Handler) applyBlock(w http.ResponseWriter, r *http.Request) {
	block, ok := decodeBlock(w, r)
	if !ok {
		return
	}

	rejections, err := h.pipeline.ApplyBlock(r.Context(), block)
	if err != nil {
		if errors.Is(err, application.ErrBlockRejected) {
			writeJSON(w, http.StatusUnprocessableEntity, toRejectionJSON(rejections))
			return
		}
		log.WithError(err).WithField("height", block.Height).
			Error("applying block")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) rollbackBlock(w http.ResponseWriter, r *http.Request) {
	block, ok := decodeBlock(w, r)
	if !ok {
		return
	}

	if err := h.pipeline.RollbackBlock(r.Context(), block); err != nil {
		log.WithError(err).WithField("height", block.Height).
			Error("rolling back block")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) depth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	hash, err := chainhash.NewHashFromStr(r.URL.Query().Get("pair"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	book, err := h.registry.GetBook(*hash)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, depthJSON{
		Pair: hash.String(),
		Bids: len(book.SnapshotSide(domain.OrderSideBuy)),
		Asks: len(book.SnapshotSide(domain.OrderSideSell)),
	})
}

func decodeBlock(
	w http.ResponseWriter, r *http.Request,
) (*application.Block, bool) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return nil, false
	}

	var block application.Block
	if err := json.NewDecoder(r.Body).Decode(&block); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return &block, true
}

func toRejectionJSON(
	rejections map[application.TxType][]application.Rejection,
) map[string][]rejectionJSON {
	out := map[string][]rejectionJSON{}
	for txType, rejs := range rejections {
		for _, rej := range rejs {
			out[txType.String()] = append(out[txType.String()], rejectionJSON{
				TxHash: rej.TxHash.String(),
				Reason: rej.Reason.Error(),
			})
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Error("encoding response")
	}
}
