package httpapi

import (
	"net/http"
	"strings"
	"sync/atomic"

	"jobreview-engine/internal/config"
	"jobreview-engine/internal/secrets"
)

type SecretsHandler struct {
	CfgVal *atomic.Value // stores config.Config
}

type setIMAPPasswordReq struct {
	Password string `json:"password"`
}

func (h SecretsHandler) account() string {
	return secrets.IMAPKeyringAccount(h.CfgVal.Load().(config.Config))
}

func (h SecretsHandler) SetIMAPPassword(w http.ResponseWriter, r *http.Request) {
	var req setIMAPPasswordReq
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Password) == "" {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "password is required")
		return
	}
	if err := secrets.SetIMAPPassword(h.account(), req.Password); err != nil {
		WriteError(w, r, http.StatusBadRequest, "keyring_failed", "failed to store password: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h SecretsHandler) IMAPStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"has_password": secrets.HasIMAPPassword(h.account())})
}

func (h SecretsHandler) DeleteIMAPPassword(w http.ResponseWriter, r *http.Request) {
	if err := secrets.DeleteIMAPPassword(h.account()); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
