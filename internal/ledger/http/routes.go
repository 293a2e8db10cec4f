package ledgerhttp

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches the ledger API under the given router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", h.listAccounts)
		r.Post("/", h.createAccount)
		r.Patch("/{id}", h.updateAccount)
		r.Delete("/{id}", h.deactivateAccount)
		r.Get("/{id}/balance", h.accountBalance)
		r.Get("/{id}/subsidiaries", h.listSubsidiaries)
		r.Post("/{id}/subsidiaries", h.createSubsidiary)
	})

	r.Route("/entries", func(r chi.Router) {
		r.Get("/", h.listEntries)
		r.Post("/", h.createEntry)
		r.Get("/{id}", h.getEntry)
		r.Delete("/{id}", h.discardDraft)
		r.Post("/{id}/post", h.postEntry)
		r.Post("/{id}/reverse", h.reverseEntry)
	})

	r.Route("/periods", func(r chi.Router) {
		r.Get("/{code}", h.periodStatus)
		r.Post("/{code}/lock", h.lockPeriod)
		r.Post("/{code}/unlock", h.unlockPeriod)
	})

	r.Route("/reports", func(r chi.Router) {
		r.Get("/trial-balance", h.trialBalance)
		r.Get("/balance-sheet", h.balanceSheet)
		r.Get("/profit-loss", h.profitAndLoss)
		r.Get("/statements", h.statements)
	})
}
