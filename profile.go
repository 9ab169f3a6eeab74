/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http/pprof"

	"github.com/julienschmidt/httprouter"
)

func registerProfileHandlers(prefix string, mux *httprouter.Router) {
	mux.Handler("GET", prefix+"/pprof/allocs", pprof.Handler("allocs"))
	mux.Handler("GET", prefix+"/pprof/block", pprof.Handler("block"))
	mux.Handler("GET", prefix+"/pprof/goroutine", pprof.Handler("goroutine"))
	mux.Handler("GET", prefix+"/pprof/heap", pprof.Handler("heap"))
	mux.Handler("GET", prefix+"/pprof/mutex", pprof.Handler("mutex"))
	mux.Handler("GET", prefix+"/pprof/threadcreate", pprof.Handler("threadcreate"))
	mux.HandlerFunc("GET", prefix+"/pprof/cmdline", pprof.Cmdline)
	mux.HandlerFunc("GET", prefix+"/pprof/profile", pprof.Profile)
	mux.HandlerFunc("GET", prefix+"/pprof/symbol", pprof.Symbol)
	mux.HandlerFunc("GET", prefix+"/pprof/trace", pprof.Trace)
}
