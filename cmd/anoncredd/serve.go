// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/op/go-logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/anoncred/voprf/ledger"
	"github.com/anoncred/voprf/service"
)

var serveLogger = logging.MustGetLogger("anoncred/cmd")

var rawMasterSecret bool
var ledgerFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the anonymous credential HTTP service",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if ledgerFlag != "" {
			cfg.ledgerBackend = ledgerFlag
		}

		primary, err := loadMasterSecret(cfg, rawMasterSecret)
		if err != nil {
			return err
		}

		svc := service.NewCredentialService(primary)

		var spendLedger ledger.Ledger
		if cfg.ledgerBackend == "redis" {
			client := redis.NewClient(&redis.Options{Addr: cfg.redisAddr})
			redisLedger := ledger.NewRedis(client, "anoncredd", 0)
			spendLedger = redisLedger
			serveLogger.Infof("using redis double-spend ledger at %s", cfg.redisAddr)
		} else {
			spendLedger = ledger.NewInMemory()
		}

		mux := newMux(svc, spendLedger)
		mux.Handle("/metrics", promhttp.Handler())

		serveLogger.Noticef("anoncredd listening on %s", cfg.listenAddress)

		server := &http.Server{
			Addr:         cfg.listenAddress,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}

		return server.ListenAndServe()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&rawMasterSecret, "master_secret_raw", false, "interpret the loaded master secret bytes as a canonical 32-byte scalar rather than a seed")
	serveCmd.Flags().StringVar(&ledgerFlag, "ledger", "", "override the configured double-spend ledger backend (memory|redis)")
}

// newMux wires the four RPC operations of §6.1 onto a minimal net/http+JSON
// transport — the lightest choice among the corpus's Thrift and gRPC
// precedents that still needs no code generation, keeping service.Handler
// itself decoupled from any one of them.
func newMux(svc service.Handler, spendLedger ledger.Ledger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/getPrimaryPublicKey", func(w http.ResponseWriter, r *http.Request) {
		pk := svc.GetPrimaryPublicKey(r.Context())
		writeJSON(w, http.StatusOK, map[string]string{"pk_m": encodeHex(pk[:])})
	})

	mux.HandleFunc("/v1/getPublicKeyAndProof", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Attributes []string `json:"attributes"`
		}

		if !decodeJSON(w, r, &req) {
			return
		}

		pk, proof, err := svc.GetPublicKeyAndProof(r.Context(), toByteSlices(req.Attributes))
		if writeServiceError(w, err) {
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"pk_a":  encodeHex(pk[:]),
			"proof": encodeHex(proof[:]),
		})
	})

	mux.HandleFunc("/v1/signCredential", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			CallerID   string   `json:"caller_id"`
			Blinded    string   `json:"blinded"`
			Attributes []string `json:"attributes"`
		}

		if !decodeJSON(w, r, &req) {
			return
		}

		var blinded [32]byte
		if !decodeHexInto(w, req.Blinded, blinded[:]) {
			return
		}

		var caller *service.AuthenticatedCaller
		if req.CallerID != "" {
			caller = &service.AuthenticatedCaller{ID: req.CallerID}
		}

		evaluated, proof, err := svc.SignCredential(r.Context(), caller, blinded, toByteSlices(req.Attributes))
		if writeServiceError(w, err) {
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"evaluated": encodeHex(evaluated[:]),
			"proof":     encodeHex(proof[:]),
		})
	})

	mux.HandleFunc("/v1/redeemCredential", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Token        string   `json:"token"`
			SharedSecret string   `json:"shared_secret"`
			Attributes   []string `json:"attributes"`
		}

		if !decodeJSON(w, r, &req) {
			return
		}

		var token [32]byte
		if !decodeHexInto(w, req.Token, token[:]) {
			return
		}

		var sharedSecret [64]byte
		if !decodeHexInto(w, req.SharedSecret, sharedSecret[:]) {
			return
		}

		if err := svc.RedeemCredential(r.Context(), token, sharedSecret, toByteSlices(req.Attributes)); writeServiceError(w, err) {
			return
		}

		if spendLedger != nil {
			alreadySpent, err := spendLedger.Mark(r.Context(), token)
			if err != nil {
				serveLogger.Warningf("ledger check failed: %v", err)
			} else if alreadySpent {
				writeJSON(w, http.StatusConflict, map[string]string{"error": "double_spend"})
				return
			}
		}

		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	return mux
}

func toByteSlices(in []string) [][]byte {
	out := make([][]byte, len(in))
	for i, s := range in {
		out[i] = []byte(s)
	}

	return out
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed_request"})
		return false
	}

	return true
}

// writeServiceError writes a transport-level error response for a non-nil
// service error and reports whether it did so. It never includes the
// underlying cause's text, only the stable ErrorCode, per §7's "no
// secret-bearing detail."
func writeServiceError(w http.ResponseWriter, err error) bool {
	if err == nil {
		return false
	}

	code := http.StatusBadRequest
	body := map[string]string{"error": "internal"}

	if svcErr, ok := err.(*service.Error); ok {
		body["error"] = svcErr.Code.String()

		if svcErr.Code == service.CodeAuthRequired {
			code = http.StatusUnauthorized
		}
	}

	writeJSON(w, code, body)

	return true
}
