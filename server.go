/*
Copyright (C) 2023-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// statsUpgrader is the same zero-origin-check Upgrader shape the
// teacher's scm.HTTPServe websocket endpoint uses; this module has no
// scheme callback to hand a message to, so the send side just ticks
// stats out instead of waiting on a read loop.
var statsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// oracleStats is one tick of the live horizon/oracle feed a connected
// client receives over /stats.
type oracleStats struct {
	Horizon   uint64 `json:"horizon"`
	NextXid   uint64 `json:"next_xid_hint"`
	LiveTuples int    `json:"live_tuples"`
}

// statsHandler serves /stats: every connecting client gets a horizon
// snapshot once a second until it disconnects.
func statsHandler(e *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := statsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for range ticker.C {
			e.mu.Lock()
			stats := oracleStats{
				Horizon:    uint64(e.Oracle.Horizon()),
				LiveTuples: len(e.tuples),
			}
			e.mu.Unlock()
			payload, err := json.Marshal(stats)
			if err != nil {
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}

// serveStats starts the /stats websocket endpoint in the background,
// grounded on the teacher's scm.HTTPServe (scm/network.go): a bare
// http.Server started with go server.ListenAndServe() and never joined.
func serveStats(e *Engine, port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/stats", statsHandler(e))
	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", port),
		Handler:        mux,
		ReadTimeout:    300 * time.Second,
		WriteTimeout:   300 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Println("stats server stopped:", err)
		}
	}()
}
