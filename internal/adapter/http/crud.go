package http

import (
	"context"
	"net/http"
)

// respond writes v with status, or maps err through writeDomainError.
func respond(w http.ResponseWriter, status int, v any, err error, notFoundMsg string) {
	if err != nil {
		writeDomainError(w, err, notFoundMsg)
		return
	}
	writeJSON(w, status, v)
}

// serveOne answers GET /{id} from get.
func serveOne[T any](get func(context.Context, string) (*T, error), notFoundMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := get(r.Context(), urlParam(r, "id"))
		respond(w, http.StatusOK, item, err, notFoundMsg)
	}
}

// serveList answers GET /{id}/<children>; an empty result encodes as [].
func serveList[T any](list func(context.Context, string) ([]T, error), notFoundMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := list(r.Context(), urlParam(r, "id"))
		if items == nil {
			items = []T{}
		}
		respond(w, http.StatusOK, items, err, notFoundMsg)
	}
}

// serveCreate decodes Req and answers 201 with the created resource.
func serveCreate[Req, Res any](create func(context.Context, *Req) (*Res, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := readJSON[Req](w, r)
		if !ok {
			return
		}
		res, err := create(r.Context(), &req)
		respond(w, http.StatusCreated, res, err, "creation failed")
	}
}

// serveUpdate decodes Req and applies it to the resource at /{id}.
func serveUpdate[Req, Res any](update func(context.Context, string, Req) (*Res, error), notFoundMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := readJSON[Req](w, r)
		if !ok {
			return
		}
		res, err := update(r.Context(), urlParam(r, "id"), req)
		respond(w, http.StatusOK, res, err, notFoundMsg)
	}
}
